// Package document 参考文档文本抽取与书稿导出
package document

import (
	"bytes"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	readability "github.com/go-shiori/go-readability"
	"github.com/yuin/goldmark"

	"ghostwriter-ai-api/internal/domain/entity"
	"ghostwriter-ai-api/internal/domain/service"
	apperrors "ghostwriter-ai-api/pkg/errors"
)

const (
	// DefaultMaxBytes 单个上传文件的大小上限
	DefaultMaxBytes = 10 << 20
	// minArticleRunes readability 结果过短时改用整页文本
	minArticleRunes = 100
)

// 叶子块元素，按段落拼接文本
const blockSelector = "p,h1,h2,h3,h4,h5,h6,li,pre,blockquote,td,th,dt,dd"

type kind int

const (
	kindUnsupported kind = iota
	kindPlain
	kindMarkdown
	kindHTML
)

// Extractor 支持纯文本、Markdown 与 HTML
type Extractor struct {
	maxBytes int
	md       goldmark.Markdown
}

var _ service.TextExtractor = (*Extractor)(nil)

func NewExtractor(maxBytes int) *Extractor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Extractor{maxBytes: maxBytes, md: goldmark.New()}
}

// Extract 抽取纯文本，空文本与不支持的格式返回 ValidationFailed
func (e *Extractor) Extract(data []byte, mimeType, filename string) (string, int, error) {
	if len(data) == 0 {
		return "", 0, apperrors.New(apperrors.CodeValidationFailed, "document is empty")
	}
	if len(data) > e.maxBytes {
		return "", 0, apperrors.Newf(apperrors.CodeValidationFailed, "document exceeds %d bytes", e.maxBytes)
	}

	var (
		text string
		err  error
	)
	switch k, detected := classify(data, mimeType, filename); k {
	case kindPlain:
		text, err = plainText(data)
	case kindMarkdown:
		text, err = e.markdownText(data)
	case kindHTML:
		text, err = htmlText(data, filename)
	default:
		return "", 0, apperrors.Newf(apperrors.CodeValidationFailed, "unsupported document type %q", detected)
	}
	if err != nil {
		return "", 0, err
	}

	text = normalize(text)
	if text == "" {
		return "", 0, apperrors.New(apperrors.CodeValidationFailed, "document contains no text")
	}
	return text, entity.CountWords(text), nil
}

// DetectMIME 探测文件类型，声明类型优先于内容探测
func DetectMIME(data []byte, declared, filename string) string {
	_, m := classify(data, declared, filename)
	return m
}

// classify 扩展名 .md 与声明的 markdown 类型优先，其余以内容探测为准
func classify(data []byte, declared, filename string) (kind, string) {
	declared = strings.ToLower(strings.TrimSpace(strings.SplitN(declared, ";", 2)[0]))
	ext := strings.ToLower(filepath.Ext(filename))

	if declared == "text/markdown" || declared == "text/x-markdown" || ext == ".md" || ext == ".markdown" {
		return kindMarkdown, "text/markdown"
	}

	detected := mimetype.Detect(data)
	switch {
	case detected.Is("text/html"), declared == "text/html", ext == ".html", ext == ".htm":
		return kindHTML, "text/html"
	case detected.Is("text/plain"):
		return kindPlain, "text/plain"
	}
	return kindUnsupported, detected.String()
}

func plainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", apperrors.New(apperrors.CodeValidationFailed, "document is not valid UTF-8 text")
	}
	return string(data), nil
}

func (e *Extractor) markdownText(data []byte) (string, error) {
	var buf bytes.Buffer
	if err := e.md.Convert(data, &buf); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeValidationFailed, "failed to parse markdown")
	}
	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeValidationFailed, "failed to parse markdown")
	}
	return blocksText(doc.Selection), nil
}

// htmlText 先用 readability 提取正文，过短时退回到整页块级文本
func htmlText(data []byte, filename string) (string, error) {
	pageURL := &url.URL{Scheme: "file", Path: "/" + filepath.Base(filename)}
	if article, err := readability.FromReader(bytes.NewReader(data), pageURL); err == nil {
		if text := strings.TrimSpace(article.TextContent); utf8.RuneCountInString(text) >= minArticleRunes {
			return text, nil
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeValidationFailed, "failed to parse html")
	}
	doc.Find("script,style,noscript,nav,header,footer").Remove()
	return blocksText(doc.Selection), nil
}

// blocksText 收集不含子块的块元素文本，没有块元素时取整体文本
func blocksText(sel *goquery.Selection) string {
	var parts []string
	sel.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		if s.Find(blockSelector).Length() > 0 {
			return
		}
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return sel.Text()
	}
	return strings.Join(parts, "\n\n")
}

// normalize 统一换行、去掉行尾空白并压缩多余空行
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
			line = ""
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
