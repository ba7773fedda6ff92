// Package service 定义跨层共享的领域服务契约
package service

import (
	"context"
	"strings"
)

type llmCtxKey string

const (
	llmCtxKeyTask     llmCtxKey = "llm_task"
	llmCtxKeyProvider llmCtxKey = "llm_provider"
	llmCtxKeyProject  llmCtxKey = "llm_project"
)

const unknown = "unknown"

// WithTask 在 context 中标记当前 LLM 任务类型
func WithTask(ctx context.Context, task string) context.Context {
	return withValue(ctx, llmCtxKeyTask, task)
}

// WithProvider 在 context 中标记当前提供商
func WithProvider(ctx context.Context, provider string) context.Context {
	return withValue(ctx, llmCtxKeyProvider, provider)
}

// WithProject 在 context 中标记所属项目
func WithProject(ctx context.Context, projectID string) context.Context {
	return withValue(ctx, llmCtxKeyProject, projectID)
}

func TaskFromContext(ctx context.Context) string {
	return valueOr(ctx, llmCtxKeyTask, unknown)
}

func ProviderFromContext(ctx context.Context) string {
	return valueOr(ctx, llmCtxKeyProvider, unknown)
}

func ProjectFromContext(ctx context.Context) string {
	return valueOr(ctx, llmCtxKeyProject, "")
}

func withValue(ctx context.Context, key llmCtxKey, v string) context.Context {
	if ctx == nil {
		return nil
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func valueOr(ctx context.Context, key llmCtxKey, def string) string {
	if ctx == nil {
		return def
	}
	s, ok := ctx.Value(key).(string)
	if !ok || strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}
