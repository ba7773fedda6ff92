// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ghostwriter-ai-api/internal/domain/entity"
)

// ProjectRepository 项目仓储实现
type ProjectRepository struct {
	client *Client
}

// NewProjectRepository 创建项目仓储
func NewProjectRepository(client *Client) *ProjectRepository {
	return &ProjectRepository{client: client}
}

// Create 创建项目
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Create")
	defer span.End()

	if err := getDB(ctx, r.client.db).Create(project).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取项目
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.GetByID")
	defer span.End()

	return r.first(ctx, getDB(ctx, r.client.db), id)
}

// GetForUpdate 加行锁读取项目，需在事务中调用
func (r *ProjectRepository) GetForUpdate(ctx context.Context, id string) (*entity.Project, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.GetForUpdate")
	defer span.End()

	db := getDB(ctx, r.client.db).Clauses(clause.Locking{Strength: "UPDATE"})
	return r.first(ctx, db, id)
}

func (r *ProjectRepository) first(_ context.Context, db *gorm.DB, id string) (*entity.Project, error) {
	var project entity.Project
	if err := db.First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

// UpdateStatus 更新项目状态
func (r *ProjectRepository) UpdateStatus(ctx context.Context, id string, status entity.ProjectStatus) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.UpdateStatus")
	defer span.End()

	return r.updateColumn(ctx, id, "status", status)
}

// UpdateMasterContext 覆盖写入主上下文
func (r *ProjectRepository) UpdateMasterContext(ctx context.Context, id string, mc entity.MasterContext) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.UpdateMasterContext")
	defer span.End()

	// 走 Updates(struct) 以触发 serializer:json
	err := getDB(ctx, r.client.db).Model(&entity.Project{ID: id}).
		Select("master_context").
		Updates(&entity.Project{MasterContext: &mc}).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update master context: %w", err)
	}
	return nil
}

// UpdateGeneratedStyleGuide 写入自动生成的风格指南
func (r *ProjectRepository) UpdateGeneratedStyleGuide(ctx context.Context, id string, guide string) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.UpdateGeneratedStyleGuide")
	defer span.End()

	return r.updateColumn(ctx, id, "generated_style_guide", guide)
}

func (r *ProjectRepository) updateColumn(ctx context.Context, id, column string, value any) error {
	err := getDB(ctx, r.client.db).Model(&entity.Project{}).
		Where("id = ?", id).
		Update(column, value).Error
	if err != nil {
		return fmt.Errorf("failed to update project %s: %w", column, err)
	}
	return nil
}

// OutlineRepository 大纲仓储实现
type OutlineRepository struct {
	client *Client
}

// NewOutlineRepository 创建大纲仓储
func NewOutlineRepository(client *Client) *OutlineRepository {
	return &OutlineRepository{client: client}
}

// Save 按项目覆盖写入大纲
func (r *OutlineRepository) Save(ctx context.Context, outline *entity.Outline) error {
	ctx, span := tracer.Start(ctx, "postgres.OutlineRepository.Save")
	defer span.End()

	err := getDB(ctx, r.client.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"chapters", "updated_at"}),
	}).Create(outline).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save outline: %w", err)
	}
	return nil
}

// GetByProject 获取项目大纲
func (r *OutlineRepository) GetByProject(ctx context.Context, projectID string) (*entity.Outline, error) {
	ctx, span := tracer.Start(ctx, "postgres.OutlineRepository.GetByProject")
	defer span.End()

	var outline entity.Outline
	if err := getDB(ctx, r.client.db).First(&outline, "project_id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get outline: %w", err)
	}
	return &outline, nil
}
