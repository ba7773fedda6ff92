package repository

import (
	"context"

	"ghostwriter-ai-api/internal/domain/entity"
)

// ConsistencyReportRepository 一致性报告仓储接口
type ConsistencyReportRepository interface {
	// Create 追加报告
	Create(ctx context.Context, report *entity.ConsistencyReport) error

	// GetLatest 获取最新报告
	GetLatest(ctx context.Context, projectID string) (*entity.ConsistencyReport, error)

	// DeleteByProject 使项目下所有报告失效
	DeleteByProject(ctx context.Context, projectID string) error
}

// GenerationLogRepository 生成审计日志仓储接口
type GenerationLogRepository interface {
	Create(ctx context.Context, log *entity.GenerationLog) error
}

// ReferenceDocumentRepository 参考文档仓储接口
type ReferenceDocumentRepository interface {
	Create(ctx context.Context, doc *entity.ReferenceDocument) error
	ListByProject(ctx context.Context, projectID string) ([]*entity.ReferenceDocument, error)
}
