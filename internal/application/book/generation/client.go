package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ghostwriter-ai-api/internal/config"
	"ghostwriter-ai-api/internal/domain/entity"
	"ghostwriter-ai-api/internal/domain/service"
	wfmodel "ghostwriter-ai-api/internal/workflow/model"
	wfnode "ghostwriter-ai-api/internal/workflow/node"
	"ghostwriter-ai-api/internal/workflow/port"
	apperrors "ghostwriter-ai-api/pkg/errors"
	"ghostwriter-ai-api/pkg/logger"
	"ghostwriter-ai-api/pkg/metrics"
	"ghostwriter-ai-api/pkg/tracer"
)

const (
	defaultAttempts = 3
	// DefaultTokenCeiling 截断重试时输出预算的硬上限
	DefaultTokenCeiling = 128000
)

// Request 一次生成调用
type Request struct {
	Task      Task
	ProjectID string
	// AIConfig 已补齐默认值的项目配置
	AIConfig entity.AIConfig

	System string
	User   string

	// Schema 非空时使用 json_schema 结构化输出
	Schema             *wfmodel.ResponseSchema
	PreviousResponseID string
}

// Result 生成结果，Usage 为所有尝试的累计用量
type Result struct {
	ID       string
	Text     string
	Model    string
	Usage    wfmodel.TokenUsage
	Attempts int
}

// Client 生成适配器
type Client struct {
	factory  port.TextGeneratorFactory
	attempts int
	ceiling  int
}

func NewClient(factory port.TextGeneratorFactory, cfg config.GenerationConfig) *Client {
	c := &Client{
		factory:  factory,
		attempts: cfg.JSONAttempts,
		ceiling:  cfg.MaxOutputTokensCeiling,
	}
	if c.attempts < 1 {
		c.attempts = defaultAttempts
	}
	if c.ceiling <= 0 {
		c.ceiling = DefaultTokenCeiling
	}
	return c
}

// GenerateText 单次纯文本生成，不做重试
// 出错时返回的 Result 仍携带已消耗的用量，便于审计
func (c *Client) GenerateText(ctx context.Context, req Request) (*Result, error) {
	settings, gen, ctx, span, err := c.prepare(ctx, req)
	if err != nil {
		return &Result{}, err
	}
	defer span.End()

	res := &Result{Model: settings.Model}
	resp, err := gen.Generate(ctx, buildRequest(req, settings, c.clamp(settings.MaxOutputTokens), false))
	res.Attempts = 1
	if err != nil {
		tracer.RecordError(span, err)
		return res, apperrors.Wrap(err, apperrors.CodeGenerationFailed, "generation provider call failed")
	}
	if resp == nil {
		return res, apperrors.New(apperrors.CodeGenerationFailed, "generation returned no response")
	}
	res.absorb(resp)

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return res, apperrors.New(apperrors.CodeGenerationFailed, "generation returned empty output")
	}
	res.Text = text
	return res, nil
}

// GenerateJSON 生成 JSON 并解析到 out
// 解析失败且输出疑似被截断时，预算翻倍重试，直至次数用尽；结构性错误立即失败
func (c *Client) GenerateJSON(ctx context.Context, req Request, out any) (*Result, error) {
	settings, gen, ctx, span, err := c.prepare(ctx, req)
	if err != nil {
		return &Result{}, err
	}
	defer span.End()

	res := &Result{Model: settings.Model}
	budget := c.clamp(settings.MaxOutputTokens)
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		res.Attempts = attempt
		resp, err := gen.Generate(ctx, buildRequest(req, settings, budget, true))
		if err != nil {
			tracer.RecordError(span, err)
			return res, apperrors.Wrap(err, apperrors.CodeGenerationFailed, "generation provider call failed")
		}
		if resp == nil {
			return res, apperrors.New(apperrors.CodeGenerationFailed, "generation returned no response")
		}
		res.absorb(resp)

		text := strings.TrimSpace(resp.Text)
		perr := json.Unmarshal([]byte(wfnode.ExtractJSONObject(text)), out)
		if perr == nil {
			res.Text = text
			span.SetAttributes(attribute.Int("llm.attempts", attempt))
			return res, nil
		}
		lastErr = perr

		if !wfnode.LooksTruncated(text) && !resp.Incomplete {
			tracer.RecordError(span, perr)
			return res, apperrors.Wrap(perr, apperrors.CodeGenerationFailed, "generation returned malformed JSON")
		}
		if attempt == c.attempts {
			break
		}

		next := c.clamp(budget * 2)
		metrics.LLMTruncationRetries.WithLabelValues(string(req.Task)).Inc()
		logger.Warn(ctx, "truncated JSON output, retrying with larger budget",
			"task", string(req.Task),
			"attempt", attempt,
			"max_output_tokens", budget,
			"next_max_output_tokens", next,
		)
		budget = next
	}

	tracer.RecordError(span, lastErr)
	return res, apperrors.Wrap(lastErr, apperrors.CodeGenerationFailed,
		fmt.Sprintf("generation output still truncated after %d attempts", c.attempts))
}

// Ceiling 单次调用输出预算的上限
func (c *Client) Ceiling() int {
	return c.ceiling
}

func (c *Client) clamp(budget int) int {
	if budget > c.ceiling {
		return c.ceiling
	}
	return budget
}

func (c *Client) prepare(ctx context.Context, req Request) (Settings, port.TextGenerator, context.Context, trace.Span, error) {
	if c == nil || c.factory == nil {
		return Settings{}, nil, ctx, nil, apperrors.New(apperrors.CodeGenerationFailed, "text generator not configured")
	}
	settings, ok := Resolve(req.Task, req.AIConfig)
	if !ok {
		return Settings{}, nil, ctx, nil, apperrors.Newf(apperrors.CodeValidationFailed, "unknown generation task %q", req.Task)
	}

	ctx = service.WithTask(ctx, string(req.Task))
	ctx = service.WithProject(ctx, req.ProjectID)

	gen, err := c.factory.Get(ctx, settings.Provider)
	if err != nil {
		return Settings{}, nil, ctx, nil, apperrors.Wrap(err, apperrors.CodeGenerationFailed, "text generator unavailable")
	}

	ctx, span := tracer.Start(ctx, "generation."+string(req.Task), trace.WithAttributes(
		attribute.String("llm.task", string(req.Task)),
		attribute.String("llm.model", settings.Model),
		attribute.String("project.id", req.ProjectID),
		attribute.String("llm.reasoning_effort", string(settings.ReasoningEffort)),
		attribute.String("llm.verbosity", string(settings.Verbosity)),
	))
	return settings, gen, ctx, span, nil
}

func buildRequest(req Request, s Settings, budget int, jsonMode bool) *wfmodel.GenerateRequest {
	out := &wfmodel.GenerateRequest{
		Model:              s.Model,
		Instructions:       req.System,
		Input:              req.User,
		ReasoningEffort:    string(s.ReasoningEffort),
		Verbosity:          string(s.Verbosity),
		MaxOutputTokens:    budget,
		JSONMode:           jsonMode,
		PreviousResponseID: req.PreviousResponseID,
	}
	if jsonMode {
		out.Schema = req.Schema
	}
	return out
}

func (r *Result) absorb(resp *wfmodel.GenerateResponse) {
	if resp == nil {
		return
	}
	r.ID = resp.ID
	if resp.Model != "" {
		r.Model = resp.Model
	}
	r.Usage = r.Usage.Add(resp.Usage)
}

// SchemaFor 反射生成结构化输出所需的 JSON Schema
func SchemaFor[T any](name string) *wfmodel.ResponseSchema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	raw, err := json.Marshal(r.Reflect(v))
	if err != nil {
		return nil
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil
	}
	// 提供商不接受 $schema / $id 元字段
	delete(schema, "$schema")
	delete(schema, "$id")
	return &wfmodel.ResponseSchema{Name: name, Schema: schema}
}
