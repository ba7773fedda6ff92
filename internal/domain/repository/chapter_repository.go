package repository

import (
	"context"

	"ghostwriter-ai-api/internal/domain/entity"
)

// ChapterRepository 章节仓储接口
type ChapterRepository interface {
	// GetByNumber 根据项目和章节号获取章节
	GetByNumber(ctx context.Context, projectID string, number int) (*entity.Chapter, error)

	// Upsert 按 (project_id, chapter_number) 插入或覆盖生成结果
	// 覆盖时不改动撤销缓冲
	Upsert(ctx context.Context, chapter *entity.Chapter) error

	// Update 保存编辑后的章节
	Update(ctx context.Context, chapter *entity.Chapter) error

	// ListByProject 按章节号升序列出项目章节
	ListByProject(ctx context.Context, projectID string) ([]*entity.Chapter, error)

	// CountCompleted 统计已完成章节数
	CountCompleted(ctx context.Context, projectID string) (int, error)
}
