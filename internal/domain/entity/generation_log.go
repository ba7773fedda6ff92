package entity

import (
	"time"

	"github.com/google/uuid"
)

// GenerationOperation 审计操作类型
type GenerationOperation string

const (
	OperationChapterGeneration GenerationOperation = "chapter_generation"
	OperationConsistencyCheck  GenerationOperation = "consistency_check"
	OperationSuggestion        GenerationOperation = "suggestion_application"
	OperationStyleGuide        GenerationOperation = "style_guide"
)

// GenerationLog 生成审计日志，只写不改
type GenerationLog struct {
	ID               string              `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID        string              `json:"project_id" gorm:"type:uuid;index;not null"`
	ChapterNumber    int                 `json:"chapter_number,omitempty"`
	Operation        GenerationOperation `json:"operation" gorm:"type:varchar(50);index"`
	Model            string              `json:"model,omitempty" gorm:"type:varchar(100)"`
	PromptTokens     int                 `json:"prompt_tokens"`
	CompletionTokens int                 `json:"completion_tokens"`
	DurationMs       int64               `json:"duration_ms"`
	Success          bool                `json:"success"`
	ErrorMessage     string              `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt        time.Time           `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName 指定表名
func (GenerationLog) TableName() string {
	return "generation_logs"
}

// NewGenerationLog 创建审计日志
func NewGenerationLog(projectID string, chapterNumber int, op GenerationOperation) *GenerationLog {
	return &GenerationLog{
		ID:            uuid.NewString(),
		ProjectID:     projectID,
		ChapterNumber: chapterNumber,
		Operation:     op,
		CreatedAt:     time.Now(),
	}
}
