package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ghostwriter-ai-api/internal/domain/service"
	wfmodel "ghostwriter-ai-api/internal/workflow/model"
	"ghostwriter-ai-api/pkg/metrics"
	"ghostwriter-ai-api/pkg/tracer"
)

// observeCall 上报单次提供商调用的指标与 span 属性
func observeCall(ctx context.Context, span trace.Span, modelName string, start time.Time, resp *wfmodel.GenerateResponse, err error) {
	task := service.TaskFromContext(ctx)
	provider := service.ProviderFromContext(ctx)

	metrics.LLMCallDuration.WithLabelValues(task, provider, modelName).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(task, provider, modelName, "error").Inc()
		tracer.RecordError(span, err)
		return
	}
	metrics.LLMCallTotal.WithLabelValues(task, provider, modelName, "success").Inc()
	if resp == nil {
		return
	}
	metrics.LLMTokensUsed.WithLabelValues(task, provider, modelName, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.LLMTokensUsed.WithLabelValues(task, provider, modelName, "completion").Add(float64(resp.Usage.CompletionTokens))
	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", resp.Usage.PromptTokens),
		attribute.Int("llm.completion_tokens", resp.Usage.CompletionTokens),
		attribute.Bool("llm.usage_estimated", resp.Usage.Estimated),
		attribute.Bool("llm.incomplete", resp.Incomplete),
	)
}
