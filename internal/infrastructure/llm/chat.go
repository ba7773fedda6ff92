package llm

import (
	"context"
	"fmt"
	"strings"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	einocallbacks "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"ghostwriter-ai-api/internal/domain/service"
	wfmodel "ghostwriter-ai-api/internal/workflow/model"
	"ghostwriter-ai-api/pkg/logger"
)

// ChatGenerator 基于 Eino ChatModel 的 Chat Completions 生成器
// 指标与追踪由 observability/eino 的全局回调负责
type ChatGenerator struct {
	name         string
	defaultModel string
	reasoning    bool
	chatModel    model.BaseChatModel
}

// NewChatGenerator 创建 Chat Completions 生成器
func NewChatGenerator(name, defaultModel string, reasoning bool, chatModel model.BaseChatModel) *ChatGenerator {
	return &ChatGenerator{
		name:         name,
		defaultModel: defaultModel,
		reasoning:    reasoning,
		chatModel:    chatModel,
	}
}

// Generate 调用 ChatModel.Generate，json_schema 不受支持时退回纯提示词约束
func (g *ChatGenerator) Generate(ctx context.Context, req *wfmodel.GenerateRequest) (*wfmodel.GenerateResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}
	ctx = service.WithProvider(ctx, g.name)
	ctx = einocallbacks.InitCallbacks(ctx, &einocallbacks.RunInfo{
		Name:      "chat.generate",
		Type:      g.name,
		Component: components.ComponentOfChatModel,
	})

	msgs := make([]*schema.Message, 0, 2)
	if s := strings.TrimSpace(req.Instructions); s != "" {
		msgs = append(msgs, schema.SystemMessage(s))
	}
	msgs = append(msgs, schema.UserMessage(req.Input))

	out, err := g.chatModel.Generate(ctx, msgs, g.options(req, true)...)
	if err != nil && (req.JSONMode || req.Schema != nil) && isResponseFormatUnsupported(err) {
		logger.Warn(ctx, "llm response_format not supported, fallback to prompt-only",
			"provider", g.name,
			"model", pickModel(req.Model, g.defaultModel),
			"error", err.Error(),
		)
		out, err = g.chatModel.Generate(ctx, msgs, g.options(req, false)...)
	}
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("empty llm response")
	}

	resp := &wfmodel.GenerateResponse{
		Text:  StripThinking(out.Content),
		Model: pickModel(req.Model, g.defaultModel),
	}
	if meta := out.ResponseMeta; meta != nil {
		if meta.Usage != nil {
			resp.Usage.PromptTokens = meta.Usage.PromptTokens
			resp.Usage.CompletionTokens = meta.Usage.CompletionTokens
		}
		resp.Incomplete = meta.FinishReason == "length"
	}
	fillEstimatedUsage(req, resp)
	return resp, nil
}

func (g *ChatGenerator) options(req *wfmodel.GenerateRequest, withFormat bool) []model.Option {
	opts := make([]model.Option, 0, 3)
	if req.MaxOutputTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxOutputTokens))
	}
	if m := strings.TrimSpace(req.Model); m != "" {
		opts = append(opts, model.WithModel(m))
	}

	extra := map[string]any{}
	if g.reasoning {
		if req.ReasoningEffort != "" {
			extra["reasoning_effort"] = req.ReasoningEffort
		}
		if req.Verbosity != "" {
			extra["verbosity"] = req.Verbosity
		}
	}
	if withFormat {
		switch {
		case req.Schema != nil:
			extra["response_format"] = map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   req.Schema.Name,
					"strict": false,
					"schema": req.Schema.Schema,
				},
			}
		case req.JSONMode:
			extra["response_format"] = map[string]any{"type": "json_object"}
		}
	}
	if len(extra) > 0 {
		opts = append(opts, openaiopts.WithExtraFields(extra))
	}
	return opts
}
