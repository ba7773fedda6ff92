// Package promptctx 组装章节生成所需的提示词上下文，只读不写
package promptctx

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"ghostwriter-ai-api/internal/domain/entity"
	"ghostwriter-ai-api/internal/domain/repository"
	wfnode "ghostwriter-ai-api/internal/workflow/node"
)

const (
	// recapMaxRunes N-2 章没有摘要时截取正文的长度
	recapMaxRunes = 2000
	// previousMaxRunes 上一章全文的保护性上限
	previousMaxRunes = 60000
)

// ChapterContext 第 N 章的生成上下文
type ChapterContext struct {
	ChapterNumber int
	TotalChapters int
	Entry         entity.OutlineChapter
	Outline       []entity.OutlineChapter

	StyleGuide       string
	StyleGuideSource entity.StyleGuideSource
	MasterContext    entity.MasterContext
	AIConfig         entity.AIConfig

	// Previous 为第 N-1 章（N>1）
	Previous *entity.Chapter

	// Recap 为第 N-2 章的摘要或截断正文（N>2）
	Recap       string
	recapNumber int

	// FirstChapterKeyPoints 第 1 章要点（N>1）
	FirstChapterKeyPoints []string
}

// Input 构建参数，Previous 由调用方在前置校验时加载
type Input struct {
	Project       *entity.Project
	Outline       *entity.Outline
	ChapterNumber int
	Previous      *entity.Chapter
	Defaults      entity.AIConfig
}

type Builder struct {
	chapters repository.ChapterRepository
}

func NewBuilder(chapters repository.ChapterRepository) *Builder {
	return &Builder{chapters: chapters}
}

// Build 加载第 N-2 章与第 1 章并组装上下文
func (b *Builder) Build(ctx context.Context, in Input) (*ChapterContext, error) {
	if in.Project == nil || in.Outline == nil {
		return nil, fmt.Errorf("project and outline are required")
	}
	n := in.ChapterNumber

	cc := &ChapterContext{
		ChapterNumber: n,
		TotalChapters: in.Outline.TotalChapters(),
		Outline:       in.Outline.Chapters,
		MasterContext: in.Project.Context(),
		AIConfig:      in.Project.AIConfig.WithDefaults(in.Defaults),
		Previous:      in.Previous,
	}
	cc.Entry, _ = in.Outline.Entry(n)
	cc.StyleGuide, cc.StyleGuideSource = in.Project.StyleGuide()

	var recapCh, firstCh *entity.Chapter
	g, gctx := errgroup.WithContext(ctx)
	if n > 2 {
		g.Go(func() error {
			ch, err := b.chapters.GetByNumber(gctx, in.Project.ID, n-2)
			if err != nil {
				return fmt.Errorf("load chapter %d: %w", n-2, err)
			}
			recapCh = ch
			return nil
		})
		g.Go(func() error {
			ch, err := b.chapters.GetByNumber(gctx, in.Project.ID, 1)
			if err != nil {
				return fmt.Errorf("load chapter 1: %w", err)
			}
			firstCh = ch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// N=2 时第 1 章即上一章
	if n == 2 {
		firstCh = in.Previous
	}
	if firstCh != nil {
		cc.FirstChapterKeyPoints = firstCh.KeyPoints
	}
	if recapCh != nil {
		cc.recapNumber = recapCh.ChapterNumber
		if s := strings.TrimSpace(recapCh.Summary); s != "" {
			cc.Recap = s
		} else {
			cc.Recap = wfnode.TruncateWithMarker(strings.TrimSpace(recapCh.Content), recapMaxRunes)
		}
	}
	return cc, nil
}

// ChapterTitle 大纲中的章节标题，缺失时返回 Chapter N
func (c *ChapterContext) ChapterTitle() string {
	if t := strings.TrimSpace(c.Entry.Title); t != "" {
		return t
	}
	return fmt.Sprintf("Chapter %d", c.ChapterNumber)
}

// PreviousContent 上一章正文
func (c *ChapterContext) PreviousContent() string {
	if c.Previous == nil {
		return ""
	}
	return c.Previous.Content
}

// Render 渲染为提示词中的上下文文本
func (c *ChapterContext) Render(p *entity.Project) string {
	return wfnode.JoinSections(
		wfnode.Section("Book", renderBook(p)),
		wfnode.Section("Author story", renderStory(p)),
		wfnode.Section("Style guide", c.StyleGuide),
		wfnode.Section("Established facts (do not contradict)", c.MasterContext.Render()),
		wfnode.Section("Outline", c.renderOutline()),
		c.renderFirstChapterPoints(),
		c.renderRecap(),
		c.renderPrevious(),
	)
}

// PromptVars 章节生成模板变量
func (c *ChapterContext) PromptVars(p *entity.Project) map[string]any {
	return map[string]any{
		"author_name":         fallback(p.AuthorName, "the author"),
		"context":             c.Render(p),
		"chapter_number":      c.ChapterNumber,
		"total_chapters":      c.TotalChapters,
		"chapter_title":       c.ChapterTitle(),
		"chapter_description": fallback(c.Entry.Description, "Follow the outline."),
		"target_words":        c.AIConfig.TargetWordsPerChapter,
	}
}

func renderBook(p *entity.Project) string {
	return labeled(
		"Title", p.Title,
		"Author", p.AuthorName,
		"Company", p.CompanyName,
		"Industry", p.Industry,
	)
}

func renderStory(p *entity.Project) string {
	return labeled(
		"Situation", p.Situation,
		"Challenge", p.Challenge,
		"Transformation", p.Transformation,
		"Achievement", p.Achievement,
		"Lesson", p.Lesson,
		"Business goals", p.BusinessGoals,
	)
}

func (c *ChapterContext) renderOutline() string {
	lines := make([]string, 0, len(c.Outline))
	for i, e := range c.Outline {
		line := fmt.Sprintf("%d. %s", i+1, strings.TrimSpace(e.Title))
		if d := strings.TrimSpace(e.Description); d != "" {
			line += ": " + d
		}
		if i+1 == c.ChapterNumber {
			line += " (this chapter)"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (c *ChapterContext) renderFirstChapterPoints() string {
	lines := make([]string, 0, len(c.FirstChapterKeyPoints))
	for _, kp := range c.FirstChapterKeyPoints {
		if kp = strings.TrimSpace(kp); kp != "" {
			lines = append(lines, "- "+kp)
		}
	}
	return wfnode.Section("Key points of chapter 1", strings.Join(lines, "\n"))
}

func (c *ChapterContext) renderRecap() string {
	if c.Recap == "" {
		return ""
	}
	return wfnode.Section(fmt.Sprintf("Recap of chapter %d", c.recapNumber), c.Recap)
}

func (c *ChapterContext) renderPrevious() string {
	if c.Previous == nil {
		return ""
	}
	body := wfnode.TruncateWithMarker(strings.TrimSpace(c.Previous.Content), previousMaxRunes)
	return wfnode.Section(fmt.Sprintf("Previous chapter (%d) in full", c.Previous.ChapterNumber), body)
}

// labeled 按 label, value 成对渲染非空字段
func labeled(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		v := strings.TrimSpace(pairs[i+1])
		if v == "" {
			continue
		}
		b.WriteString(pairs[i])
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func fallback(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
