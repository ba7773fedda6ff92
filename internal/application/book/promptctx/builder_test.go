package promptctx

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ghostwriter-ai-api/internal/application/book/booktest"
	"ghostwriter-ai-api/internal/domain/entity"
)

func seedProject(t *testing.T) (*booktest.Store, *entity.Project, *entity.Outline) {
	t.Helper()
	store := booktest.NewStore()
	p := entity.NewProject("Scaling Quietly")
	p.AuthorName = "Dana Reyes"
	p.Challenge = "Cash ran out in month nine."
	p.CustomStyleGuide = "Short sentences. No jargon."
	mc := entity.MasterContext{Characters: []string{"Dana", "Luis"}, Numbers: entity.StringMap{"seed round": "$1.2M"}}
	p.MasterContext = &mc
	o := entity.NewOutline(p.ID, []entity.OutlineChapter{
		{Title: "The Garage", Description: "Founding story"},
		{Title: "First Hire", Description: "Hiring Luis"},
		{Title: "Month Nine", Description: "Running out of cash"},
		{Title: "The Pivot", Description: "Changing the product"},
	})
	store.Seed(p, o)
	return store, p, o
}

func completed(p *entity.Project, n int, content, summary string, keyPoints ...string) *entity.Chapter {
	ch := entity.NewChapter(p.ID, n)
	ch.SetContent(content)
	ch.Status = entity.ChapterStatusCompleted
	ch.Summary = summary
	ch.KeyPoints = keyPoints
	return ch
}

func TestBuildLoadsPriorChapters(t *testing.T) {
	store, p, o := seedProject(t)
	store.PutChapter(completed(p, 1, "garage text", "", "Start small", "Own the problem"))
	store.PutChapter(completed(p, 2, "hire text", "Dana hires Luis."))
	prev := completed(p, 3, "month nine full text", "Cash crunch.")
	store.PutChapter(prev)

	b := NewBuilder(store.ChapterRepo())
	cc, err := b.Build(context.Background(), Input{
		Project:       p,
		Outline:       o,
		ChapterNumber: 4,
		Previous:      prev,
		Defaults:      entity.AIConfig{Model: "gpt-5", TargetWordsPerChapter: 2500},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if cc.TotalChapters != 4 || cc.ChapterTitle() != "The Pivot" {
		t.Errorf("entry = %+v total = %d", cc.Entry, cc.TotalChapters)
	}
	if cc.Recap != "Dana hires Luis." {
		t.Errorf("recap = %q", cc.Recap)
	}
	if len(cc.FirstChapterKeyPoints) != 2 {
		t.Errorf("first chapter key points = %v", cc.FirstChapterKeyPoints)
	}
	if cc.StyleGuideSource != entity.StyleGuideSourceCustom {
		t.Errorf("style guide source = %s", cc.StyleGuideSource)
	}
	if cc.AIConfig.Model != "gpt-5" || cc.AIConfig.TargetWordsPerChapter != 2500 {
		t.Errorf("ai config = %+v", cc.AIConfig)
	}

	text := cc.Render(p)
	for _, want := range []string{
		"Title: Scaling Quietly",
		"Challenge: Cash ran out in month nine.",
		"## Style guide\nShort sentences. No jargon.",
		"Characters: Dana, Luis",
		"4. The Pivot: Changing the product (this chapter)",
		"## Key points of chapter 1\n- Start small\n- Own the problem",
		"## Recap of chapter 2\nDana hires Luis.",
		"## Previous chapter (3) in full\nmonth nine full text",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("context missing %q\n---\n%s", want, text)
		}
	}

	vars := cc.PromptVars(p)
	if vars["target_words"] != 2500 || vars["chapter_number"] != 4 || vars["author_name"] != "Dana Reyes" {
		t.Errorf("vars = %v", vars)
	}
}

func TestBuildRecapFallsBackToTruncatedContent(t *testing.T) {
	store, p, o := seedProject(t)
	store.PutChapter(completed(p, 1, strings.Repeat("word ", 1000), ""))
	prev := completed(p, 2, "second", "")
	store.PutChapter(prev)

	cc, err := NewBuilder(store.ChapterRepo()).Build(context.Background(), Input{Project: p, Outline: o, ChapterNumber: 3, Previous: prev})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(cc.Recap, "[...]") {
		t.Errorf("recap should be truncated, got %d bytes", len(cc.Recap))
	}
}

func TestBuildFirstChapterHasNoPriorSections(t *testing.T) {
	store, p, o := seedProject(t)
	cc, err := NewBuilder(store.ChapterRepo()).Build(context.Background(), Input{Project: p, Outline: o, ChapterNumber: 1})
	if err != nil {
		t.Fatal(err)
	}
	text := cc.Render(p)
	if strings.Contains(text, "Previous chapter") || strings.Contains(text, "Recap") || strings.Contains(text, "Key points") {
		t.Errorf("unexpected prior sections:\n%s", text)
	}
	if cc.PreviousContent() != "" {
		t.Error("chapter 1 has previous content")
	}
}

func TestBuildSecondChapterUsesPreviousKeyPoints(t *testing.T) {
	store, p, o := seedProject(t)
	prev := completed(p, 1, "garage text", "", "Start small")
	store.PutChapter(prev)

	cc, err := NewBuilder(store.ChapterRepo()).Build(context.Background(), Input{Project: p, Outline: o, ChapterNumber: 2, Previous: prev})
	if err != nil {
		t.Fatal(err)
	}
	if len(cc.FirstChapterKeyPoints) != 1 || cc.Recap != "" {
		t.Errorf("cc = %+v", cc)
	}
}

func TestBuildPropagatesLoadError(t *testing.T) {
	store, p, o := seedProject(t)
	store.Fail["chapters.GetByNumber"] = errors.New("db down")
	_, err := NewBuilder(store.ChapterRepo()).Build(context.Background(), Input{Project: p, Outline: o, ChapterNumber: 3, Previous: entity.NewChapter(p.ID, 2)})
	if err == nil {
		t.Fatal("expected error")
	}
}
