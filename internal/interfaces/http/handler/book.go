// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ghostwriter-ai-api/internal/application/book/manuscript"
	"ghostwriter-ai-api/internal/application/book/suggestion"
	"ghostwriter-ai-api/internal/domain/entity"
	"ghostwriter-ai-api/internal/domain/service"
	"ghostwriter-ai-api/internal/interfaces/http/dto"
	apperrors "ghostwriter-ai-api/pkg/errors"
	"ghostwriter-ai-api/pkg/logger"
)

// DefaultMaxUploadBytes 参考文档上传上限
const DefaultMaxUploadBytes = 10 << 20

type ChapterGenerator interface {
	GenerateChapter(ctx context.Context, projectID string, n int) (*entity.Chapter, error)
}

type SuggestionApplier interface {
	ApplySuggestion(ctx context.Context, projectID string, n int, issue entity.ConsistencyIssue, preview bool) (*suggestion.Outcome, error)
	ApplyCustomContent(ctx context.Context, projectID string, n int, text string) (*entity.Chapter, error)
	UndoLastEdit(ctx context.Context, projectID string, n int) (*entity.Chapter, error)
}

type ConsistencyChecker interface {
	FinalCheck(ctx context.Context, projectID string) (*entity.ConsistencyReport, error)
	LatestReport(ctx context.Context, projectID string) (*entity.ConsistencyReport, error)
}

type Manuscripts interface {
	ListChapters(ctx context.Context, projectID string) ([]*entity.Chapter, error)
	GetChapter(ctx context.Context, projectID string, n int) (*entity.Chapter, error)
	AddReference(ctx context.Context, projectID string, up manuscript.Upload) (*entity.ReferenceDocument, error)
	Export(ctx context.Context, projectID string, format service.ExportFormat) ([]byte, string, error)
}

type StyleGuides interface {
	FromReferences(ctx context.Context, projectID string) (string, error)
}

// BookHandlerDeps BookHandler 依赖
type BookHandlerDeps struct {
	Chapters       ChapterGenerator
	Suggestions    SuggestionApplier
	Checker        ConsistencyChecker
	Manuscripts    Manuscripts
	StyleGuides    StyleGuides
	MaxUploadBytes int64
}

// BookHandler 书稿相关处理器
type BookHandler struct {
	chapters    ChapterGenerator
	suggestions SuggestionApplier
	checker     ConsistencyChecker
	manuscripts Manuscripts
	styleGuides StyleGuides
	maxUpload   int64
}

func NewBookHandler(d BookHandlerDeps) *BookHandler {
	maxUpload := d.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &BookHandler{
		chapters:    d.Chapters,
		suggestions: d.Suggestions,
		checker:     d.Checker,
		manuscripts: d.Manuscripts,
		styleGuides: d.StyleGuides,
		maxUpload:   maxUpload,
	}
}

// GenerateChapter 生成章节
// @Summary 生成第 N 章
// @Tags Chapters
// @Produce json
// @Param pid path string true "项目 ID"
// @Param n path int true "章节号"
// @Success 200 {object} dto.Response[dto.ChapterResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Failure 412 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters/{n}/generate [post]
func (h *BookHandler) GenerateChapter(c *gin.Context) {
	ctx := c.Request.Context()
	n, err := dto.BindChapterNumber(c)
	if err != nil {
		fail(c, err)
		return
	}

	ch, err := h.chapters.GenerateChapter(ctx, dto.BindProjectID(c), n)
	if err != nil {
		fail(c, err)
		return
	}
	dto.Success(c, dto.ToChapterResponse(ch, true))
}

// ListChapters 获取章节列表（不含正文）
// @Router /v1/projects/{pid}/chapters [get]
func (h *BookHandler) ListChapters(c *gin.Context) {
	chapters, err := h.manuscripts.ListChapters(c.Request.Context(), dto.BindProjectID(c))
	if err != nil {
		fail(c, err)
		return
	}
	dto.Success(c, dto.ToChapterListResponse(chapters))
}

// GetChapter 获取章节详情
// @Router /v1/projects/{pid}/chapters/{n} [get]
func (h *BookHandler) GetChapter(c *gin.Context) {
	n, err := dto.BindChapterNumber(c)
	if err != nil {
		fail(c, err)
		return
	}
	ch, err := h.manuscripts.GetChapter(c.Request.Context(), dto.BindProjectID(c), n)
	if err != nil {
		fail(c, err)
		return
	}
	dto.Success(c, dto.ToChapterResponse(ch, true))
}

// ApplySuggestion 预览或应用修改建议
// @Summary 应用一致性问题的修改建议
// @Tags Chapters
// @Accept json
// @Produce json
// @Param body body dto.ApplySuggestionRequest true "问题与预览开关"
// @Success 200 {object} dto.Response[dto.SuggestionResponse]
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/projects/{pid}/chapters/{n}/suggestions [post]
func (h *BookHandler) ApplySuggestion(c *gin.Context) {
	n, err := dto.BindChapterNumber(c)
	if err != nil {
		fail(c, err)
		return
	}
	var req dto.ApplySuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	out, err := h.suggestions.ApplySuggestion(c.Request.Context(), dto.BindProjectID(c), n, req.Issue.ToEntity(n), req.Preview)
	if err != nil {
		fail(c, err)
		return
	}
	dto.Success(c, dto.ToSuggestionResponse(out))
}

// UpdateContent 手动编辑章节
// @Router /v1/projects/{pid}/chapters/{n}/content [put]
func (h *BookHandler) UpdateContent(c *gin.Context) {
	n, err := dto.BindChapterNumber(c)
	if err != nil {
		fail(c, err)
		return
	}
	var req dto.UpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ch, err := h.suggestions.ApplyCustomContent(c.Request.Context(), dto.BindProjectID(c), n, req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	dto.Success(c, dto.ToChapterResponse(ch, true))
}

// UndoEdit 撤销最近一次编辑
// @Router /v1/projects/{pid}/chapters/{n}/undo [post]
func (h *BookHandler) UndoEdit(c *gin.Context) {
	n, err := dto.BindChapterNumber(c)
	if err != nil {
		fail(c, err)
		return
	}
	ch, err := h.suggestions.UndoLastEdit(c.Request.Context(), dto.BindProjectID(c), n)
	if err != nil {
		fail(c, err)
		return
	}
	dto.Success(c, dto.ToChapterResponse(ch, true))
}

// RunConsistencyCheck 全书一致性检查
// @Router /v1/projects/{pid}/consistency-checks [post]
func (h *BookHandler) RunConsistencyCheck(c *gin.Context) {
	report, err := h.checker.FinalCheck(c.Request.Context(), dto.BindProjectID(c))
	if err != nil {
		fail(c, err)
		return
	}
	dto.Created(c, dto.ToReportResponse(report))
}

// LatestReport 最新一致性报告
// @Router /v1/projects/{pid}/consistency-checks/latest [get]
func (h *BookHandler) LatestReport(c *gin.Context) {
	report, err := h.checker.LatestReport(c.Request.Context(), dto.BindProjectID(c))
	if err != nil {
		fail(c, err)
		return
	}
	dto.Success(c, dto.ToReportResponse(report))
}

// UploadReference 上传参考文档（multipart 字段 file）
// @Router /v1/projects/{pid}/reference-documents [post]
func (h *BookHandler) UploadReference(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		dto.BadRequest(c, "missing multipart field \"file\"")
		return
	}
	if fh.Size > h.maxUpload {
		fail(c, apperrors.Newf(apperrors.CodeValidationFailed, "file exceeds %d bytes", h.maxUpload))
		return
	}
	f, err := fh.Open()
	if err != nil {
		dto.BadRequest(c, "failed to read upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		dto.BadRequest(c, "failed to read upload")
		return
	}
	if int64(len(data)) > h.maxUpload {
		fail(c, apperrors.Newf(apperrors.CodeValidationFailed, "file exceeds %d bytes", h.maxUpload))
		return
	}

	doc, err := h.manuscripts.AddReference(c.Request.Context(), dto.BindProjectID(c), manuscript.Upload{
		Filename: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		fail(c, err)
		return
	}
	dto.Created(c, dto.ToReferenceDocumentResponse(doc))
}

// GenerateStyleGuide 由参考文档生成风格指南
// @Router /v1/projects/{pid}/style-guide [post]
func (h *BookHandler) GenerateStyleGuide(c *gin.Context) {
	guide, err := h.styleGuides.FromReferences(c.Request.Context(), dto.BindProjectID(c))
	if err != nil {
		fail(c, err)
		return
	}
	dto.Success(c, dto.StyleGuideResponse{StyleGuide: guide})
}

// Export 导出书稿，format 取 markdown（默认）或 html
// @Router /v1/projects/{pid}/export [get]
func (h *BookHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportMarkdown)))
	out, contentType, err := h.manuscripts.Export(c.Request.Context(), dto.BindProjectID(c), format)
	if err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, out)
}

// fail 输出错误响应，服务端错误记录日志
func fail(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	if !apperrors.IsAppError(err) || apperrors.AsAppError(err).HTTPStatus >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request failed", err,
			"path", c.FullPath(),
			"error_code", string(code),
		)
	}
	dto.FromError(c, err)
}
