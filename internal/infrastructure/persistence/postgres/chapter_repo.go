package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ghostwriter-ai-api/internal/domain/entity"
)

// upsertColumns 重新生成时覆盖的列，撤销缓冲不在其中
var upsertColumns = []string{
	"title", "content", "word_count", "status",
	"summary", "key_points", "new_characters", "new_terms", "key_numbers",
	"last_modified_by", "model_used", "generated_at", "system_prompt", "user_prompt",
	"updated_at",
}

// ChapterRepository 章节仓储实现
type ChapterRepository struct {
	client *Client
}

// NewChapterRepository 创建章节仓储
func NewChapterRepository(client *Client) *ChapterRepository {
	return &ChapterRepository{client: client}
}

// GetByNumber 根据项目和章节号获取章节
func (r *ChapterRepository) GetByNumber(ctx context.Context, projectID string, number int) (*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.GetByNumber")
	defer span.End()

	var chapter entity.Chapter
	err := getDB(ctx, r.client.db).
		First(&chapter, "project_id = ? AND chapter_number = ?", projectID, number).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return &chapter, nil
}

// Upsert 按 (project_id, chapter_number) 插入或覆盖
func (r *ChapterRepository) Upsert(ctx context.Context, chapter *entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Upsert")
	defer span.End()

	err := getDB(ctx, r.client.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "chapter_number"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(chapter).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert chapter: %w", err)
	}
	return nil
}

// Update 保存章节
func (r *ChapterRepository) Update(ctx context.Context, chapter *entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Update")
	defer span.End()

	if err := getDB(ctx, r.client.db).Save(chapter).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update chapter: %w", err)
	}
	return nil
}

// ListByProject 按章节号升序列出
func (r *ChapterRepository) ListByProject(ctx context.Context, projectID string) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListByProject")
	defer span.End()

	var chapters []*entity.Chapter
	err := getDB(ctx, r.client.db).
		Where("project_id = ?", projectID).
		Order("chapter_number ASC").
		Find(&chapters).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	return chapters, nil
}

// CountCompleted 统计已完成章节
func (r *ChapterRepository) CountCompleted(ctx context.Context, projectID string) (int, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.CountCompleted")
	defer span.End()

	var count int64
	err := getDB(ctx, r.client.db).Model(&entity.Chapter{}).
		Where("project_id = ? AND status = ?", projectID, entity.ChapterStatusCompleted).
		Count(&count).Error
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count chapters: %w", err)
	}
	return int(count), nil
}
