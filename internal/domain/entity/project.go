// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectStatusDraft              ProjectStatus = "draft"
	ProjectStatusGeneratingOutline  ProjectStatus = "generating_outline"
	ProjectStatusGeneratingChapters ProjectStatus = "generating_chapters"
	ProjectStatusCompleted          ProjectStatus = "completed"
	ProjectStatusError              ProjectStatus = "error"
)

// Project 代写书籍项目实体
type Project struct {
	ID          string `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title       string `json:"title" gorm:"type:varchar(255);not null"`
	AuthorName  string `json:"author_name,omitempty" gorm:"type:varchar(255)"`
	CompanyName string `json:"company_name,omitempty" gorm:"type:varchar(255)"`
	Industry    string `json:"industry,omitempty" gorm:"type:varchar(255)"`

	// 叙事素材
	Situation      string `json:"situation,omitempty" gorm:"type:text"`
	Challenge      string `json:"challenge,omitempty" gorm:"type:text"`
	Transformation string `json:"transformation,omitempty" gorm:"type:text"`
	Achievement    string `json:"achievement,omitempty" gorm:"type:text"`
	Lesson         string `json:"lesson,omitempty" gorm:"type:text"`
	BusinessGoals  string `json:"business_goals,omitempty" gorm:"type:text"`

	Status        ProjectStatus  `json:"status" gorm:"type:varchar(50);default:'draft'"`
	MasterContext *MasterContext `json:"master_context,omitempty" gorm:"type:jsonb;serializer:json"`

	// 风格指南三选一，优先级 custom > generated > legacy
	CustomStyleGuide    string            `json:"custom_style_guide,omitempty" gorm:"type:text"`
	GeneratedStyleGuide string            `json:"generated_style_guide,omitempty" gorm:"type:text"`
	LegacyStyleGuide    *LegacyStyleGuide `json:"legacy_style_guide,omitempty" gorm:"type:jsonb;serializer:json"`

	AIConfig *AIConfig `json:"ai_config,omitempty" gorm:"column:ai_config;type:jsonb;serializer:json"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}

// NewProject 创建新项目
func NewProject(title string) *Project {
	now := time.Now()
	return &Project{
		ID:            uuid.NewString(),
		Title:         title,
		Status:        ProjectStatusDraft,
		MasterContext: NewMasterContext(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Context 返回项目主上下文，未初始化时返回空上下文
func (p *Project) Context() MasterContext {
	if p.MasterContext == nil {
		return *NewMasterContext()
	}
	return p.MasterContext.Clone()
}

// StyleGuide 返回当前生效的风格指南及其来源
func (p *Project) StyleGuide() (string, StyleGuideSource) {
	return ResolveStyleGuide(p.CustomStyleGuide, p.GeneratedStyleGuide, p.LegacyStyleGuide)
}

// HasCustomStyleGuide 是否存在用户自定义风格指南
func (p *Project) HasCustomStyleGuide() bool {
	return trimmed(p.CustomStyleGuide) != ""
}

// DeriveProjectStatus 根据已完成章节数推导项目状态
// 没有大纲时保持当前状态
func DeriveProjectStatus(current ProjectStatus, hasOutline bool, completed, total int) ProjectStatus {
	if !hasOutline || total <= 0 {
		return current
	}
	switch {
	case completed <= 0:
		return ProjectStatusGeneratingOutline
	case completed < total:
		return ProjectStatusGeneratingChapters
	default:
		return ProjectStatusCompleted
	}
}
