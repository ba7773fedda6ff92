package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"ghostwriter-ai-api/internal/domain/entity"
)

// ConsistencyReportRepository 一致性报告仓储实现
type ConsistencyReportRepository struct {
	client *Client
}

// NewConsistencyReportRepository 创建一致性报告仓储
func NewConsistencyReportRepository(client *Client) *ConsistencyReportRepository {
	return &ConsistencyReportRepository{client: client}
}

// Create 追加报告
func (r *ConsistencyReportRepository) Create(ctx context.Context, report *entity.ConsistencyReport) error {
	ctx, span := tracer.Start(ctx, "postgres.ConsistencyReportRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(report).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create consistency report: %w", err)
	}
	return nil
}

// GetLatest 获取最新报告
func (r *ConsistencyReportRepository) GetLatest(ctx context.Context, projectID string) (*entity.ConsistencyReport, error) {
	ctx, span := tracer.Start(ctx, "postgres.ConsistencyReportRepository.GetLatest")
	defer span.End()

	var report entity.ConsistencyReport
	err := getDB(ctx, r.client.db).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get latest consistency report: %w", err)
	}
	return &report, nil
}

// DeleteByProject 删除项目下全部报告
func (r *ConsistencyReportRepository) DeleteByProject(ctx context.Context, projectID string) error {
	ctx, span := tracer.Start(ctx, "postgres.ConsistencyReportRepository.DeleteByProject")
	defer span.End()

	err := getDB(ctx, r.client.db).
		Where("project_id = ?", projectID).
		Delete(&entity.ConsistencyReport{}).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete consistency reports: %w", err)
	}
	return nil
}

// GenerationLogRepository 审计日志仓储实现
type GenerationLogRepository struct {
	client *Client
}

// NewGenerationLogRepository 创建审计日志仓储
func NewGenerationLogRepository(client *Client) *GenerationLogRepository {
	return &GenerationLogRepository{client: client}
}

// Create 写入审计日志
func (r *GenerationLogRepository) Create(ctx context.Context, log *entity.GenerationLog) error {
	ctx, span := tracer.Start(ctx, "postgres.GenerationLogRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(log).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create generation log: %w", err)
	}
	return nil
}

// ReferenceDocumentRepository 参考文档仓储实现
type ReferenceDocumentRepository struct {
	client *Client
}

// NewReferenceDocumentRepository 创建参考文档仓储
func NewReferenceDocumentRepository(client *Client) *ReferenceDocumentRepository {
	return &ReferenceDocumentRepository{client: client}
}

// Create 保存参考文档
func (r *ReferenceDocumentRepository) Create(ctx context.Context, doc *entity.ReferenceDocument) error {
	ctx, span := tracer.Start(ctx, "postgres.ReferenceDocumentRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(doc).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create reference document: %w", err)
	}
	return nil
}

// ListByProject 按上传时间列出参考文档
func (r *ReferenceDocumentRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.ReferenceDocument, error) {
	ctx, span := tracer.Start(ctx, "postgres.ReferenceDocumentRepository.ListByProject")
	defer span.End()

	var docs []*entity.ReferenceDocument
	err := getDB(ctx, r.client.db).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&docs).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list reference documents: %w", err)
	}
	return docs, nil
}
