// Package audit 将 LLM 操作写入生成审计日志
package audit

import (
	"context"
	"fmt"
	"strings"

	"ghostwriter-ai-api/internal/domain/entity"
	"ghostwriter-ai-api/internal/domain/repository"
	"ghostwriter-ai-api/internal/domain/service"
	"ghostwriter-ai-api/pkg/logger"
)

// errorMessageLimit 审计日志中错误信息的最大长度
const errorMessageLimit = 2000

type LLMUsageRecorder struct {
	logRepo repository.GenerationLogRepository
}

func NewLLMUsageRecorder(logRepo repository.GenerationLogRepository) *LLMUsageRecorder {
	return &LLMUsageRecorder{logRepo: logRepo}
}

var _ service.LLMUsageRecorder = (*LLMUsageRecorder)(nil)

func (r *LLMUsageRecorder) Record(ctx context.Context, in service.LLMUsageInput) error {
	if r == nil || r.logRepo == nil {
		return nil
	}

	projectID := strings.TrimSpace(in.ProjectID)
	if projectID == "" {
		return nil
	}
	if in.PromptTokens < 0 || in.CompletionTokens < 0 {
		return fmt.Errorf("invalid token usage")
	}

	log := entity.NewGenerationLog(projectID, in.ChapterNumber, in.Operation)
	log.Model = strings.TrimSpace(in.Model)
	log.PromptTokens = in.PromptTokens
	log.CompletionTokens = in.CompletionTokens
	log.DurationMs = in.DurationMs
	log.Success = in.Err == nil
	if in.Err != nil {
		msg := in.Err.Error()
		if len(msg) > errorMessageLimit {
			msg = msg[:errorMessageLimit]
		}
		log.ErrorMessage = msg
	}

	if err := r.logRepo.Create(ctx, log); err != nil {
		logger.Warn(ctx, "failed to write generation log",
			"project_id", projectID,
			"operation", string(in.Operation),
			"error", err.Error(),
		)
		return err
	}
	return nil
}
