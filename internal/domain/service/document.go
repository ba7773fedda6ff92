package service

import (
	"ghostwriter-ai-api/internal/domain/entity"
)

// ExportFormat 书稿导出格式
type ExportFormat string

const (
	ExportMarkdown ExportFormat = "markdown"
	ExportHTML     ExportFormat = "html"
)

// TextExtractor 从上传文件中抽取纯文本
type TextExtractor interface {
	// Extract 返回抽取的文本与词数；mimeType 为空时按内容探测
	Extract(data []byte, mimeType, filename string) (text string, wordCount int, err error)
}

// ManuscriptExporter 将章节导出为单个文档
type ManuscriptExporter interface {
	Export(project *entity.Project, chapters []*entity.Chapter, format ExportFormat) ([]byte, error)
	ContentType(format ExportFormat) string
}
