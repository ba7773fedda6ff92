package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ghostwriter-ai-api/internal/config"
	"ghostwriter-ai-api/internal/domain/service"
	wfmodel "ghostwriter-ai-api/internal/workflow/model"
	"ghostwriter-ai-api/pkg/tracer"
)

// ResponsesGenerator 基于 OpenAI Responses API 的生成器
// 响应体按原始 JSON 读取，由 NormalizeResponse 统一解析
type ResponsesGenerator struct {
	name         string
	defaultModel string
	client       openai.Client
}

// NewResponsesGenerator 创建 Responses API 生成器
func NewResponsesGenerator(name string, cfg config.ProviderConfig) *ResponsesGenerator {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &ResponsesGenerator{
		name:         name,
		defaultModel: cfg.Model,
		client:       openai.NewClient(opts...),
	}
}

// Generate 调用 POST /responses
func (g *ResponsesGenerator) Generate(ctx context.Context, req *wfmodel.GenerateRequest) (*wfmodel.GenerateResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}
	modelName := pickModel(req.Model, g.defaultModel)
	ctx = service.WithProvider(ctx, g.name)
	ctx, span := tracer.Start(ctx, "llm.responses.generate", trace.WithAttributes(
		attribute.String("llm.provider", g.name),
		attribute.String("llm.model", modelName),
		attribute.String("llm.task", service.TaskFromContext(ctx)),
		attribute.Int("llm.max_output_tokens", req.MaxOutputTokens),
	))
	defer span.End()

	start := time.Now()
	resp, err := g.generate(ctx, modelName, req)
	observeCall(ctx, span, modelName, start, resp, err)
	return resp, err
}

func (g *ResponsesGenerator) generate(ctx context.Context, modelName string, req *wfmodel.GenerateRequest) (*wfmodel.GenerateResponse, error) {
	var raw []byte
	if err := g.client.Post(ctx, "responses", buildResponsesBody(modelName, req), &raw); err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("responses api returned %d: %w", apiErr.StatusCode, err)
		}
		return nil, fmt.Errorf("responses api call failed: %w", err)
	}

	resp, err := NormalizeResponse(raw)
	if err != nil {
		return nil, err
	}
	if resp.Model == "" {
		resp.Model = modelName
	}
	fillEstimatedUsage(req, resp)
	return resp, nil
}

func buildResponsesBody(modelName string, req *wfmodel.GenerateRequest) map[string]any {
	body := map[string]any{
		"model": modelName,
		"input": req.Input,
	}
	if s := strings.TrimSpace(req.Instructions); s != "" {
		body["instructions"] = s
	}
	if req.MaxOutputTokens > 0 {
		body["max_output_tokens"] = req.MaxOutputTokens
	}
	if req.ReasoningEffort != "" {
		body["reasoning"] = map[string]any{"effort": req.ReasoningEffort}
	}
	if req.PreviousResponseID != "" {
		body["previous_response_id"] = req.PreviousResponseID
	}

	text := map[string]any{}
	if req.Verbosity != "" {
		text["verbosity"] = req.Verbosity
	}
	switch {
	case req.Schema != nil:
		text["format"] = map[string]any{
			"type":   "json_schema",
			"name":   req.Schema.Name,
			"schema": req.Schema.Schema,
			"strict": false,
		}
	case req.JSONMode:
		text["format"] = map[string]any{"type": "json_object"}
	}
	if len(text) > 0 {
		body["text"] = text
	}
	return body
}

func pickModel(requested, fallback string) string {
	if m := strings.TrimSpace(requested); m != "" {
		return m
	}
	return strings.TrimSpace(fallback)
}
