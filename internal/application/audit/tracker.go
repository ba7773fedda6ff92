package audit

import (
	"context"
	"time"

	"ghostwriter-ai-api/internal/domain/entity"
	"ghostwriter-ai-api/internal/domain/service"
	wfmodel "ghostwriter-ai-api/internal/workflow/model"
)

// Tracker 累计一次业务操作内全部 LLM 调用的用量，结束时写入一条审计日志
type Tracker struct {
	recorder service.LLMUsageRecorder
	in       service.LLMUsageInput
	start    time.Time
}

// Start 开始跟踪，recorder 为 nil 时 Finish 不做任何事
func Start(recorder service.LLMUsageRecorder, projectID string, chapterNumber int, op entity.GenerationOperation) *Tracker {
	return &Tracker{
		recorder: recorder,
		in: service.LLMUsageInput{
			ProjectID:     projectID,
			ChapterNumber: chapterNumber,
			Operation:     op,
		},
		start: time.Now(),
	}
}

// Add 累加一次调用的用量
func (t *Tracker) Add(model string, usage wfmodel.TokenUsage) {
	if t == nil {
		return
	}
	if model != "" {
		t.in.Model = model
	}
	t.in.PromptTokens += usage.PromptTokens
	t.in.CompletionTokens += usage.CompletionTokens
}

// Finish 写入审计日志；请求取消后仍会落库
func (t *Tracker) Finish(ctx context.Context, err error) {
	if t == nil || t.recorder == nil {
		return
	}
	t.in.DurationMs = time.Since(t.start).Milliseconds()
	t.in.Err = err
	_ = t.recorder.Record(context.WithoutCancel(ctx), t.in)
}
