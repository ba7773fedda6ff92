package document

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"ghostwriter-ai-api/internal/domain/entity"
	"ghostwriter-ai-api/internal/domain/service"
	apperrors "ghostwriter-ai-api/pkg/errors"
)

var pageTemplate = template.Must(template.New("manuscript").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { max-width: 42rem; margin: 3rem auto; padding: 0 1rem; font-family: Georgia, serif; line-height: 1.6; }
h1, h2 { font-family: Helvetica, Arial, sans-serif; }
section.chapter { page-break-before: always; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// Exporter 导出 Markdown 与 HTML 书稿
type Exporter struct {
	md goldmark.Markdown
}

var _ service.ManuscriptExporter = (*Exporter)(nil)

func NewExporter() *Exporter {
	return &Exporter{md: goldmark.New(goldmark.WithExtensions(extension.Typographer))}
}

// ContentType 导出格式对应的 Content-Type
func (e *Exporter) ContentType(format service.ExportFormat) string {
	if format == service.ExportHTML {
		return "text/html; charset=utf-8"
	}
	return "text/markdown; charset=utf-8"
}

// Export 按章节号顺序拼接书稿
func (e *Exporter) Export(project *entity.Project, chapters []*entity.Chapter, format service.ExportFormat) ([]byte, error) {
	if project == nil {
		return nil, apperrors.ErrProjectNotFound
	}
	if len(chapters) == 0 {
		return nil, apperrors.New(apperrors.CodePrerequisiteNotMet, "project has no chapters to export")
	}

	switch format {
	case service.ExportMarkdown, "":
		return []byte(e.markdown(project, chapters)), nil
	case service.ExportHTML:
		return e.html(project, chapters)
	default:
		return nil, apperrors.Newf(apperrors.CodeValidationFailed, "unsupported export format %q", format)
	}
}

func (e *Exporter) markdown(project *entity.Project, chapters []*entity.Chapter) string {
	var b strings.Builder
	b.WriteString(titlePage(project))
	for _, ch := range chapters {
		b.WriteString("\n\n---\n\n")
		b.WriteString(chapterMarkdown(ch))
	}
	b.WriteString("\n")
	return b.String()
}

func (e *Exporter) html(project *entity.Project, chapters []*entity.Chapter) ([]byte, error) {
	var body bytes.Buffer
	if err := e.md.Convert([]byte(titlePage(project)), &body); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "failed to render title page")
	}
	for _, ch := range chapters {
		body.WriteString("<section class=\"chapter\">\n")
		if err := e.md.Convert([]byte(chapterMarkdown(ch)), &body); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternalError,
				fmt.Sprintf("failed to render chapter %d", ch.ChapterNumber))
		}
		body.WriteString("</section>\n")
	}

	var out bytes.Buffer
	err := pageTemplate.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{Title: project.Title, Body: template.HTML(body.String())})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "failed to render manuscript")
	}
	return out.Bytes(), nil
}

func titlePage(p *entity.Project) string {
	s := "# " + strings.TrimSpace(p.Title)
	if a := strings.TrimSpace(p.AuthorName); a != "" {
		s += "\n\n*by " + a + "*"
	}
	return s
}

// chapterMarkdown 正文已有一级标题时降为二级，否则补上章节标题
func chapterMarkdown(ch *entity.Chapter) string {
	content := strings.TrimSpace(ch.Content)
	first, rest, _ := strings.Cut(content, "\n")
	if strings.HasPrefix(first, "# ") {
		return strings.TrimRight("#"+first+"\n"+rest, "\n")
	}
	title := strings.TrimSpace(ch.Title)
	if title == "" {
		title = fmt.Sprintf("Chapter %d", ch.ChapterNumber)
	}
	return fmt.Sprintf("## Chapter %d: %s\n\n%s", ch.ChapterNumber, title, content)
}
