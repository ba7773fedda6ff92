package service

import (
	"context"

	"ghostwriter-ai-api/internal/domain/entity"
)

// LLMUsageInput 一次业务操作的 LLM 用量与结果，用于审计落库
type LLMUsageInput struct {
	ProjectID     string
	ChapterNumber int
	Operation     entity.GenerationOperation

	Provider string
	Model    string

	PromptTokens     int
	CompletionTokens int
	DurationMs       int64

	Err error
}

// LLMUsageRecorder 记录 LLM 用量
// 实现应为 best-effort，不阻塞主流程
type LLMUsageRecorder interface {
	Record(ctx context.Context, in LLMUsageInput) error
}
