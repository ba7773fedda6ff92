package entity

import (
	"time"

	"github.com/google/uuid"
)

// ReferenceDocument 用户上传的参考文档（已抽取为纯文本）
type ReferenceDocument struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID string    `json:"project_id" gorm:"type:uuid;index;not null"`
	Filename  string    `json:"filename" gorm:"type:varchar(255)"`
	MimeType  string    `json:"mime_type" gorm:"type:varchar(100)"`
	Content   string    `json:"-" gorm:"type:text"`
	WordCount int       `json:"word_count"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (ReferenceDocument) TableName() string {
	return "reference_documents"
}

// NewReferenceDocument 创建参考文档
func NewReferenceDocument(projectID, filename, mimeType, content string) *ReferenceDocument {
	return &ReferenceDocument{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Filename:  filename,
		MimeType:  mimeType,
		Content:   content,
		WordCount: CountWords(content),
		CreatedAt: time.Now(),
	}
}
