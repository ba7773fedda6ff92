package entity

import (
	"time"

	"github.com/google/uuid"
)

// OutlineChapter 大纲中的单章规划
type OutlineChapter struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Outline 项目大纲，每个项目一份
type Outline struct {
	ID        string           `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID string           `json:"project_id" gorm:"type:uuid;uniqueIndex;not null"`
	Chapters  []OutlineChapter `json:"chapters" gorm:"type:jsonb;serializer:json"`
	CreatedAt time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Outline) TableName() string {
	return "outlines"
}

// NewOutline 创建大纲
func NewOutline(projectID string, chapters []OutlineChapter) *Outline {
	now := time.Now()
	return &Outline{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Chapters:  chapters,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TotalChapters 计划章节数
func (o *Outline) TotalChapters() int {
	if o == nil {
		return 0
	}
	return len(o.Chapters)
}

// Entry 获取第 n 章（从 1 开始）的规划
func (o *Outline) Entry(n int) (OutlineChapter, bool) {
	if o == nil || n < 1 || n > len(o.Chapters) {
		return OutlineChapter{}, false
	}
	return o.Chapters[n-1], true
}
