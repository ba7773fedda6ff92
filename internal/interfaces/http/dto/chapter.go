package dto

import (
	"time"

	"ghostwriter-ai-api/internal/application/book/suggestion"
	"ghostwriter-ai-api/internal/domain/entity"
)

// ChapterResponse 章节响应
type ChapterResponse struct {
	ID             string           `json:"id"`
	ProjectID      string           `json:"project_id"`
	ChapterNumber  int              `json:"chapter_number"`
	Title          string           `json:"title"`
	Content        string           `json:"content,omitempty"`
	WordCount      int              `json:"word_count"`
	Status         string           `json:"status"`
	Summary        string           `json:"summary,omitempty"`
	KeyPoints      []string         `json:"key_points,omitempty"`
	NewCharacters  []string         `json:"new_characters,omitempty"`
	NewTerms       entity.StringMap `json:"new_terms,omitempty"`
	KeyNumbers     entity.StringMap `json:"key_numbers,omitempty"`
	CanUndo        bool             `json:"can_undo"`
	LastModifiedBy string           `json:"last_modified_by,omitempty"`
	ModelUsed      string           `json:"model_used,omitempty"`
	GeneratedAt    *time.Time       `json:"generated_at,omitempty"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// ToChapterResponse 转换章节；withContent 为 false 时省略正文
func ToChapterResponse(ch *entity.Chapter, withContent bool) *ChapterResponse {
	if ch == nil {
		return nil
	}
	resp := &ChapterResponse{
		ID:             ch.ID,
		ProjectID:      ch.ProjectID,
		ChapterNumber:  ch.ChapterNumber,
		Title:          ch.Title,
		WordCount:      ch.WordCount,
		Status:         string(ch.Status),
		Summary:        ch.Summary,
		KeyPoints:      ch.KeyPoints,
		NewCharacters:  ch.NewCharacters,
		NewTerms:       ch.NewTerms,
		KeyNumbers:     ch.KeyNumbers,
		CanUndo:        ch.HasUndo(),
		LastModifiedBy: string(ch.LastModifiedBy),
		ModelUsed:      ch.ModelUsed,
		GeneratedAt:    ch.GeneratedAt,
		UpdatedAt:      ch.UpdatedAt,
	}
	if withContent {
		resp.Content = ch.Content
	}
	return resp
}

// ChapterListResponse 章节列表响应
type ChapterListResponse struct {
	Chapters []*ChapterResponse `json:"chapters"`
}

func ToChapterListResponse(chapters []*entity.Chapter) *ChapterListResponse {
	out := make([]*ChapterResponse, 0, len(chapters))
	for _, ch := range chapters {
		out = append(out, ToChapterResponse(ch, false))
	}
	return &ChapterListResponse{Chapters: out}
}

// SuggestionResponse 修改建议响应，字段命名与模型输出保持一致
type SuggestionResponse struct {
	Applied    bool              `json:"applied"`
	OldContent string            `json:"oldContent"`
	NewContent string            `json:"newContent"`
	Change     suggestion.Change `json:"change"`
	Stats      suggestion.Stats  `json:"stats"`
	Chapter    *ChapterResponse  `json:"chapter,omitempty"`
}

func ToSuggestionResponse(out *suggestion.Outcome) *SuggestionResponse {
	return &SuggestionResponse{
		Applied:    out.Applied,
		OldContent: out.OldContent,
		NewContent: out.NewContent,
		Change:     out.Change,
		Stats:      out.Stats,
		Chapter:    ToChapterResponse(out.Chapter, false),
	}
}

// ReportResponse 一致性报告响应
type ReportResponse struct {
	ID             string                    `json:"id"`
	ProjectID      string                    `json:"project_id"`
	OverallScore   int                       `json:"overall_score"`
	NarrativeScore int                       `json:"narrative_score"`
	StyleScore     int                       `json:"style_score"`
	FactualScore   int                       `json:"factual_score"`
	Summary        string                    `json:"summary"`
	Issues         []entity.ConsistencyIssue `json:"issues"`
	CreatedAt      time.Time                 `json:"created_at"`
}

func ToReportResponse(r *entity.ConsistencyReport) *ReportResponse {
	body := r.Body()
	issues := body.Issues
	if issues == nil {
		issues = []entity.ConsistencyIssue{}
	}
	return &ReportResponse{
		ID:             r.ID,
		ProjectID:      r.ProjectID,
		OverallScore:   r.OverallScore,
		NarrativeScore: body.NarrativeScore,
		StyleScore:     body.StyleScore,
		FactualScore:   body.FactualScore,
		Summary:        body.Summary,
		Issues:         issues,
		CreatedAt:      r.CreatedAt,
	}
}

// ReferenceDocumentResponse 参考文档响应
type ReferenceDocumentResponse struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mime_type"`
	WordCount int       `json:"word_count"`
	CreatedAt time.Time `json:"created_at"`
}

func ToReferenceDocumentResponse(d *entity.ReferenceDocument) *ReferenceDocumentResponse {
	return &ReferenceDocumentResponse{
		ID:        d.ID,
		Filename:  d.Filename,
		MimeType:  d.MimeType,
		WordCount: d.WordCount,
		CreatedAt: d.CreatedAt,
	}
}

// StyleGuideResponse 风格指南响应
type StyleGuideResponse struct {
	StyleGuide string `json:"style_guide"`
}
