// Package manuscript 章节读取、参考文档上传与书稿导出
package manuscript

import (
	"context"
	"strings"

	"ghostwriter-ai-api/internal/domain/entity"
	"ghostwriter-ai-api/internal/domain/repository"
	"ghostwriter-ai-api/internal/domain/service"
	apperrors "ghostwriter-ai-api/pkg/errors"
	"ghostwriter-ai-api/pkg/logger"
)

// Deps Service 依赖
type Deps struct {
	Projects  repository.ProjectRepository
	Chapters  repository.ChapterRepository
	Documents repository.ReferenceDocumentRepository
	Extractor service.TextExtractor
	Exporter  service.ManuscriptExporter
}

type Service struct {
	projects  repository.ProjectRepository
	chapters  repository.ChapterRepository
	documents repository.ReferenceDocumentRepository
	extractor service.TextExtractor
	exporter  service.ManuscriptExporter
}

func NewService(d Deps) *Service {
	return &Service{
		projects:  d.Projects,
		chapters:  d.Chapters,
		documents: d.Documents,
		extractor: d.Extractor,
		exporter:  d.Exporter,
	}
}

// Upload 上传文件
type Upload struct {
	Filename string
	MimeType string
	Data     []byte
}

// ListChapters 按章节号升序返回项目章节
func (s *Service) ListChapters(ctx context.Context, projectID string) ([]*entity.Chapter, error) {
	if _, err := s.loadProject(ctx, projectID); err != nil {
		return nil, err
	}
	chapters, err := s.chapters.ListByProject(ctx, projectID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list chapters")
	}
	return chapters, nil
}

// GetChapter 获取单章
func (s *Service) GetChapter(ctx context.Context, projectID string, n int) (*entity.Chapter, error) {
	ch, err := s.chapters.GetByNumber(ctx, projectID, n)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load chapter")
	}
	if ch == nil {
		return nil, apperrors.Newf(apperrors.CodeChapterNotFound, "chapter %d not found", n)
	}
	return ch, nil
}

// AddReference 抽取上传文件的文本并保存为参考文档
func (s *Service) AddReference(ctx context.Context, projectID string, up Upload) (*entity.ReferenceDocument, error) {
	if _, err := s.loadProject(ctx, projectID); err != nil {
		return nil, err
	}
	filename := strings.TrimSpace(up.Filename)
	if filename == "" {
		filename = "document"
	}

	text, words, err := s.extractor.Extract(up.Data, up.MimeType, filename)
	if err != nil {
		return nil, err
	}

	doc := entity.NewReferenceDocument(projectID, filename, up.MimeType, text)
	doc.WordCount = words
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save reference document")
	}
	logger.Info(ctx, "reference document stored",
		"project_id", projectID,
		"filename", filename,
		"word_count", words,
	)
	return doc, nil
}

// Export 导出全部章节，返回内容与 Content-Type
func (s *Service) Export(ctx context.Context, projectID string, format service.ExportFormat) ([]byte, string, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, "", err
	}
	chapters, err := s.chapters.ListByProject(ctx, projectID)
	if err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list chapters")
	}
	out, err := s.exporter.Export(project, chapters, format)
	if err != nil {
		return nil, "", err
	}
	return out, s.exporter.ContentType(format), nil
}

func (s *Service) loadProject(ctx context.Context, projectID string) (*entity.Project, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load project")
	}
	if p == nil {
		return nil, apperrors.ErrProjectNotFound
	}
	return p, nil
}
