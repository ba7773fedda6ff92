package entity

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChapterStatus 章节状态
type ChapterStatus string

const (
	ChapterStatusCompleted ChapterStatus = "completed"
	ChapterStatusFailed    ChapterStatus = "failed"
)

// ModifiedBy 最近一次修改来源
type ModifiedBy string

const (
	ModifiedByGeneration     ModifiedBy = "generation"
	ModifiedByAISuggestion   ModifiedBy = "ai_suggestion"
	ModifiedByUserManualEdit ModifiedBy = "user_manual_edit"
)

// Chapter 章节实体，(project_id, chapter_number) 唯一
type Chapter struct {
	ID            string        `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID     string        `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:idx_chapters_project_number"`
	ChapterNumber int           `json:"chapter_number" gorm:"not null;uniqueIndex:idx_chapters_project_number"`
	Title         string        `json:"title" gorm:"type:varchar(500)"`
	Content       string        `json:"content" gorm:"type:text"`
	WordCount     int           `json:"word_count" gorm:"default:0"`
	Status        ChapterStatus `json:"status" gorm:"type:varchar(50);default:'completed'"`

	Summary       string    `json:"summary,omitempty" gorm:"type:text"`
	KeyPoints     []string  `json:"key_points,omitempty" gorm:"type:jsonb;serializer:json"`
	NewCharacters []string  `json:"new_characters,omitempty" gorm:"type:jsonb;serializer:json"`
	NewTerms      StringMap `json:"new_terms,omitempty" gorm:"type:jsonb;serializer:json"`
	KeyNumbers    StringMap `json:"key_numbers,omitempty" gorm:"type:jsonb;serializer:json"`

	// 单槽撤销缓冲，仅编辑时写入
	PreviousContent        string     `json:"previous_content,omitempty" gorm:"type:text"`
	PreviousContentSavedAt *time.Time `json:"previous_content_saved_at,omitempty"`
	LastModifiedBy         ModifiedBy `json:"last_modified_by" gorm:"type:varchar(50)"`

	ModelUsed    string     `json:"model_used,omitempty" gorm:"type:varchar(100)"`
	GeneratedAt  *time.Time `json:"generated_at,omitempty"`
	SystemPrompt string     `json:"-" gorm:"type:text"`
	UserPrompt   string     `json:"-" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Chapter) TableName() string {
	return "chapters"
}

// NewChapter 创建新章节
func NewChapter(projectID string, number int) *Chapter {
	now := time.Now()
	return &Chapter{
		ID:            uuid.NewString(),
		ProjectID:     projectID,
		ChapterNumber: number,
		Status:        ChapterStatusCompleted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// SetContent 设置章节内容并重算字数
func (c *Chapter) SetContent(content string) {
	c.Content = content
	c.WordCount = CountWords(content)
	c.UpdatedAt = time.Now()
}

// ReplaceContent 编辑章节内容：旧内容进入撤销缓冲
func (c *Chapter) ReplaceContent(content string, by ModifiedBy, now time.Time) {
	c.PreviousContent = c.Content
	c.PreviousContentSavedAt = &now
	c.LastModifiedBy = by
	c.SetContent(content)
}

// HasUndo 是否存在可撤销的内容
func (c *Chapter) HasUndo() bool {
	return c.PreviousContentSavedAt != nil
}

// Undo 还原撤销缓冲中的内容并清空缓冲
func (c *Chapter) Undo(by ModifiedBy) bool {
	if !c.HasUndo() {
		return false
	}
	c.SetContent(c.PreviousContent)
	c.PreviousContent = ""
	c.PreviousContentSavedAt = nil
	c.LastModifiedBy = by
	return true
}

// IsCompleted 是否已完成
func (c *Chapter) IsCompleted() bool {
	return c != nil && c.Status == ChapterStatusCompleted
}

// Metadata 返回本章抽取的新增事实
func (c *Chapter) Metadata() ChapterMetadata {
	return ChapterMetadata{
		NewCharacters: c.NewCharacters,
		NewTerms:      c.NewTerms,
		KeyNumbers:    c.KeyNumbers,
	}
}

// CountWords 按空白分隔统计词数
func CountWords(s string) int {
	return len(strings.Fields(s))
}

var chapterPrefix = regexp.MustCompile(`(?i)^chapter\s+\d+\s*[:.\-]\s*`)

// ExtractChapterTitle 提取章节标题
// 优先取正文第一个一级标题（去掉 "Chapter N:" 前缀），其次取大纲标题，最后兜底 "Chapter N"
func ExtractChapterTitle(content string, number int, outlineTitle string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "# ") {
			continue
		}
		title := strings.TrimSpace(chapterPrefix.ReplaceAllString(strings.TrimSpace(line[2:]), ""))
		if title != "" {
			return title
		}
		break
	}
	if t := strings.TrimSpace(outlineTitle); t != "" {
		return t
	}
	return fmt.Sprintf("Chapter %d", number)
}
