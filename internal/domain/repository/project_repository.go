// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"ghostwriter-ai-api/internal/domain/entity"
)

// ProjectRepository 项目仓储接口
// 未找到记录时 Get 系列方法返回 (nil, nil)
type ProjectRepository interface {
	// Create 创建项目
	Create(ctx context.Context, project *entity.Project) error

	// GetByID 根据 ID 获取项目
	GetByID(ctx context.Context, id string) (*entity.Project, error)

	// GetForUpdate 在事务中加行锁读取项目
	GetForUpdate(ctx context.Context, id string) (*entity.Project, error)

	// UpdateStatus 更新项目状态
	UpdateStatus(ctx context.Context, id string, status entity.ProjectStatus) error

	// UpdateMasterContext 覆盖写入主上下文
	UpdateMasterContext(ctx context.Context, id string, mc entity.MasterContext) error

	// UpdateGeneratedStyleGuide 写入自动生成的风格指南
	UpdateGeneratedStyleGuide(ctx context.Context, id string, guide string) error
}

// OutlineRepository 大纲仓储接口
type OutlineRepository interface {
	// Save 创建或覆盖项目大纲
	Save(ctx context.Context, outline *entity.Outline) error

	// GetByProject 获取项目大纲
	GetByProject(ctx context.Context, projectID string) (*entity.Outline, error)
}
