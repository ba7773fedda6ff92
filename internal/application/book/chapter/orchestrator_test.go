package chapter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ghostwriter-ai-api/internal/application/audit"
	"ghostwriter-ai-api/internal/application/book/booktest"
	"ghostwriter-ai-api/internal/application/book/consistency"
	"ghostwriter-ai-api/internal/application/book/generation"
	"ghostwriter-ai-api/internal/application/book/promptctx"
	"ghostwriter-ai-api/internal/application/book/styleguide"
	"ghostwriter-ai-api/internal/config"
	"ghostwriter-ai-api/internal/domain/entity"
	"ghostwriter-ai-api/internal/infrastructure/lock"
	"ghostwriter-ai-api/internal/workflow/prompt"
	apperrors "ghostwriter-ai-api/pkg/errors"
)

const (
	chapterOne = `{"chapter": "# Chapter 1: The Garage\n\nDana started the company in a garage with Luis.", ` +
		`"metadata": {"newCharacters": ["Dana", "Luis"], "newTerms": {"MRR": "monthly recurring revenue"}, "keyNumbers": {"founded": 2015}}, ` +
		`"summary": "Dana and Luis start out.", "keyPoints": ["garage start"]}`
	chapterTwo = `{"chapter": "# Chapter 2: First Hires\n\nDana hired Mia as the first engineer.", ` +
		`"metadata": {"newCharacters": ["Mia", "Dana"], "newTerms": {"MRR": "monthly recurring revenue (net)"}, "keyNumbers": {"hires": "3"}}, ` +
		`"summary": "The team grows.", "keyPoints": ["first hire"]}`
	chapterTwoFixed = `{"chapter": "# Chapter 2: First Hires\n\nDana and Luis hired Mia in 2016.", ` +
		`"metadata": {"newCharacters": ["Mia"]}, "summary": "The team grows.", "keyPoints": ["first hire"]}`

	cleanCheck    = `{"issues": []}`
	criticalCheck = `{"issues": [{"chapterNumber": 2, "type": "character", "severity": "critical", "description": "Luis disappears without explanation", "suggestion": "Mention Luis"}]}`
)

var (
	taskChapter = string(generation.TaskChapterGeneration)
	taskQuick   = string(generation.TaskQuickValidation)
	taskStyle   = string(generation.TaskStyleGuide)
)

type fixture struct {
	store   *booktest.Store
	gen     *booktest.Generator
	locker  *lock.LocalLocker
	orch    *Orchestrator
	project *entity.Project
}

func newFixture(t *testing.T, configure func(p *entity.Project)) *fixture {
	t.Helper()
	store := booktest.NewStore()
	gen := booktest.NewGenerator()
	locker := lock.NewLocalLocker()

	p := entity.NewProject("Scaling Quietly")
	p.AuthorName = "Dana Reyes"
	if configure != nil {
		configure(p)
	}
	store.Seed(p, entity.NewOutline(p.ID, []entity.OutlineChapter{
		{Title: "The Garage", Description: "How it started"},
		{Title: "First Hires", Description: "Building the team"},
	}))

	defaults := entity.AIConfig{Model: "gpt-5", TargetWordsPerChapter: 3000, MaxOutputTokens: 16000}
	client := generation.NewClient(gen, config.GenerationConfig{JSONAttempts: 3, MaxOutputTokensCeiling: 128000})
	prompts := prompt.NewRegistry()
	recorder := audit.NewLLMUsageRecorder(store.LogRepo())

	orch := NewOrchestrator(Deps{
		Generator: client,
		Prompts:   prompts,
		Contexts:  promptctx.NewBuilder(store.ChapterRepo()),
		Checker: consistency.NewChecker(consistency.Deps{
			Generator: client,
			Prompts:   prompts,
			Projects:  store.ProjectRepo(),
			Outlines:  store.OutlineRepo(),
			Chapters:  store.ChapterRepo(),
			Reports:   store.ReportRepo(),
			Recorder:  recorder,
			Defaults:  defaults,
		}),
		StyleGuides: styleguide.NewGenerator(styleguide.Deps{
			Generator: client,
			Prompts:   prompts,
			Projects:  store.ProjectRepo(),
			Documents: store.DocumentRepo(),
			Recorder:  recorder,
			Defaults:  defaults,
		}),
		Projects:          store.ProjectRepo(),
		Outlines:          store.OutlineRepo(),
		Chapters:          store.ChapterRepo(),
		Reports:           store.ReportRepo(),
		Tx:                store,
		Locker:            locker,
		Recorder:          recorder,
		Defaults:          defaults,
		QuickCheckEnabled: true,
	})
	orch.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }

	return &fixture{store: store, gen: gen, locker: locker, orch: orch, project: p}
}

// seedFirstChapter 写入已完成的第 1 章
func (f *fixture) seedFirstChapter() *entity.Chapter {
	ch := entity.NewChapter(f.project.ID, 1)
	ch.Title = "The Garage"
	ch.SetContent("Dana started the company in a garage with Luis.")
	ch.KeyPoints = []string{"garage start"}
	ch.LastModifiedBy = entity.ModifiedByGeneration
	f.store.PutChapter(ch)
	return ch
}

func TestGenerateFirstChapter(t *testing.T) {
	f := newFixture(t, nil)
	f.gen.OnText(taskChapter, chapterOne)

	ch, err := f.orch.GenerateChapter(context.Background(), f.project.ID, 1)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ch.Title != "The Garage" || ch.WordCount != 14 || ch.Status != entity.ChapterStatusCompleted {
		t.Errorf("chapter = %+v", ch)
	}
	if ch.LastModifiedBy != entity.ModifiedByGeneration || ch.ModelUsed != "gpt-5" || ch.GeneratedAt == nil {
		t.Errorf("provenance = %s / %s / %v", ch.LastModifiedBy, ch.ModelUsed, ch.GeneratedAt)
	}
	if ch.HasUndo() {
		t.Error("generation must not fill the undo buffer")
	}
	if !strings.Contains(ch.UserPrompt, "The Garage") || ch.SystemPrompt == "" {
		t.Error("prompts not recorded on chapter")
	}
	if ch.KeyNumbers["founded"] != "2015" {
		t.Errorf("key numbers = %v", ch.KeyNumbers)
	}

	p := f.store.Project(f.project.ID)
	if p.Status != entity.ProjectStatusGeneratingChapters || f.store.StatusWrites != 1 {
		t.Errorf("status = %s, writes = %d", p.Status, f.store.StatusWrites)
	}
	mc := p.Context()
	if len(mc.Characters) != 2 || mc.Terms["MRR"] != "monthly recurring revenue" {
		t.Errorf("master context = %+v", mc)
	}

	// 第 1 章不做快速检查
	if calls := f.gen.Calls(taskQuick); len(calls) != 0 {
		t.Errorf("quick check ran for chapter 1: %d calls", len(calls))
	}

	logs := f.store.Logs()
	if len(logs) != 1 {
		t.Fatalf("logs = %d, want 1", len(logs))
	}
	if l := logs[0]; !l.Success || l.Operation != entity.OperationChapterGeneration || l.ChapterNumber != 1 || l.PromptTokens != 100 {
		t.Errorf("log = %+v", l)
	}
}

func TestGenerateRequiresCompletedPreviousChapter(t *testing.T) {
	f := newFixture(t, nil)
	f.gen.OnText(taskChapter, chapterTwo)

	_, err := f.orch.GenerateChapter(context.Background(), f.project.ID, 2)
	if apperrors.CodeOf(err) != apperrors.CodePrerequisiteNotMet {
		t.Fatalf("err = %v, want prerequisite not met", err)
	}
	if !strings.Contains(err.Error(), "chapter 1") {
		t.Errorf("error should name chapter 1: %v", err)
	}

	failed := entity.NewChapter(f.project.ID, 1)
	failed.Status = entity.ChapterStatusFailed
	f.store.PutChapter(failed)
	if _, err := f.orch.GenerateChapter(context.Background(), f.project.ID, 2); apperrors.CodeOf(err) != apperrors.CodePrerequisiteNotMet {
		t.Errorf("failed previous chapter accepted: %v", err)
	}

	if n := len(f.gen.Calls("")); n != 0 {
		t.Errorf("model called %d times before prerequisites passed", n)
	}
	if f.store.Chapter(f.project.ID, 2) != nil {
		t.Error("chapter 2 persisted")
	}
	logs := f.store.Logs()
	if len(logs) != 2 || logs[0].Success || logs[1].Success {
		t.Errorf("logs = %+v", logs)
	}
}

func TestGenerateValidatesInput(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name      string
		projectID string
		n         int
		want      apperrors.ErrorCode
	}{
		{"zero", f.project.ID, 0, apperrors.CodeValidationFailed},
		{"beyond outline", f.project.ID, 3, apperrors.CodeValidationFailed},
		{"unknown project", "missing", 1, apperrors.CodeProjectNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orch.GenerateChapter(context.Background(), tt.projectID, tt.n)
			if got := apperrors.CodeOf(err); got != tt.want {
				t.Errorf("code = %s, want %s (%v)", got, tt.want, err)
			}
		})
	}

	bare := entity.NewProject("No outline")
	f.store.Seed(bare, nil)
	if _, err := f.orch.GenerateChapter(context.Background(), bare.ID, 1); apperrors.CodeOf(err) != apperrors.CodePrerequisiteNotMet {
		t.Errorf("missing outline: %v", err)
	}
}

func TestGenerateRejectsInvalidAIConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  entity.AIConfig
	}{
		{"budget above ceiling", entity.AIConfig{MaxOutputTokens: 500000}},
		{"unknown effort", entity.AIConfig{ReasoningEffort: "extreme"}},
		{"unknown verbosity", entity.AIConfig{Verbosity: "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(p *entity.Project) {
				cfg := tt.cfg
				p.AIConfig = &cfg
			})
			f.gen.OnText(taskChapter, chapterOne)

			_, err := f.orch.GenerateChapter(context.Background(), f.project.ID, 1)
			if apperrors.CodeOf(err) != apperrors.CodeValidationFailed {
				t.Fatalf("code = %s (%v)", apperrors.CodeOf(err), err)
			}
			if calls := f.gen.Calls(taskChapter); len(calls) != 0 {
				t.Errorf("model called %d times for an invalid config", len(calls))
			}
		})
	}
}

func TestTwoChapterScenario(t *testing.T) {
	f := newFixture(t, nil)
	f.gen.OnText(taskChapter, chapterOne, chapterTwo)
	f.gen.OnText(taskQuick, cleanCheck)
	f.gen.OnText(taskStyle, "- First person\n- Plain words")
	ctx := context.Background()

	if _, err := f.orch.GenerateChapter(ctx, f.project.ID, 1); err != nil {
		t.Fatalf("chapter 1: %v", err)
	}
	ch2, err := f.orch.GenerateChapter(ctx, f.project.ID, 2)
	if err != nil {
		t.Fatalf("chapter 2: %v", err)
	}
	if ch2.Title != "First Hires" {
		t.Errorf("title = %q", ch2.Title)
	}

	// 第 2 章的提示词包含第 1 章全文与要点
	calls := f.gen.Calls(taskChapter)
	if len(calls) != 2 {
		t.Fatalf("chapter calls = %d", len(calls))
	}
	user := userPrompt(calls[1])
	if !strings.Contains(user, "Previous chapter (1) in full") || !strings.Contains(user, "garage start") {
		t.Errorf("chapter 2 prompt lacks chapter 1 context:\n%s", user)
	}
	if len(f.gen.Calls(taskQuick)) != 1 {
		t.Errorf("quick check calls = %d", len(f.gen.Calls(taskQuick)))
	}

	p := f.store.Project(f.project.ID)
	if p.Status != entity.ProjectStatusCompleted || f.store.StatusWrites != 2 {
		t.Errorf("status = %s, writes = %d", p.Status, f.store.StatusWrites)
	}
	mc := p.Context()
	if strings.Join(mc.Characters, ",") != "Dana,Luis,Mia" {
		t.Errorf("characters = %v", mc.Characters)
	}
	if mc.Terms["MRR"] != "monthly recurring revenue (net)" || mc.Numbers["founded"] != "2015" || mc.Numbers["hires"] != "3" {
		t.Errorf("master context = %+v", mc)
	}
	if p.GeneratedStyleGuide != "- First person\n- Plain words" {
		t.Errorf("style guide = %q", p.GeneratedStyleGuide)
	}

	// 每次调用恰好一条审计记录；风格指南用量计入第 2 章
	logs := f.store.Logs()
	if len(logs) != 2 {
		t.Fatalf("logs = %d, want 2", len(logs))
	}
	if logs[1].ChapterNumber != 2 || logs[1].PromptTokens != 300 || logs[1].CompletionTokens != 150 {
		t.Errorf("chapter 2 log = %+v", logs[1])
	}
}

func TestRegenerationKeepsUndoAndInvalidatesReports(t *testing.T) {
	f := newFixture(t, func(p *entity.Project) { p.Status = entity.ProjectStatusGeneratingChapters })
	existing := f.seedFirstChapter()
	existing.ReplaceContent("Edited by hand.", entity.ModifiedByUserManualEdit, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	f.store.PutChapter(existing)
	_ = f.store.ReportRepo().Create(context.Background(), entity.NewConsistencyReport(f.project.ID, entity.ReportBody{}, 70))
	f.gen.OnText(taskChapter, chapterOne)

	ch, err := f.orch.GenerateChapter(context.Background(), f.project.ID, 1)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if ch.ID != existing.ID {
		t.Errorf("id changed: %s -> %s", existing.ID, ch.ID)
	}
	if ch.PreviousContent != "Dana started the company in a garage with Luis." || !ch.HasUndo() {
		t.Errorf("undo buffer touched: %q", ch.PreviousContent)
	}
	if ch.LastModifiedBy != entity.ModifiedByGeneration {
		t.Errorf("last modified by = %s", ch.LastModifiedBy)
	}
	if f.store.ChapterCount(f.project.ID) != 1 {
		t.Errorf("chapters = %d", f.store.ChapterCount(f.project.ID))
	}
	if r := f.store.Reports(f.project.ID); len(r) != 0 {
		t.Errorf("reports not invalidated: %d", len(r))
	}
	// 状态未变化时不写
	if f.store.StatusWrites != 0 {
		t.Errorf("status writes = %d", f.store.StatusWrites)
	}
}

func TestCriticalIssuesTriggerOneCorrectivePass(t *testing.T) {
	f := newFixture(t, func(p *entity.Project) { p.CustomStyleGuide = "Keep it short." })
	f.seedFirstChapter()
	f.gen.OnText(taskChapter, chapterTwo, chapterTwoFixed)
	f.gen.OnText(taskQuick, criticalCheck)

	ch, err := f.orch.GenerateChapter(context.Background(), f.project.ID, 2)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ch.Content != "# Chapter 2: First Hires\n\nDana and Luis hired Mia in 2016." {
		t.Errorf("first draft surfaced: %q", ch.Content)
	}

	calls := f.gen.Calls(taskChapter)
	if len(calls) != 2 {
		t.Fatalf("chapter calls = %d, want 2", len(calls))
	}
	if len(f.gen.Calls(taskQuick)) != 1 {
		t.Errorf("corrected draft should not be re-checked")
	}
	corrected := userPrompt(calls[1])
	if !strings.HasPrefix(corrected, userPrompt(calls[0])) {
		t.Error("corrective prompt should extend the original prompt")
	}
	if !strings.Contains(corrected, "Luis disappears without explanation") || !strings.Contains(corrected, "Mention Luis") {
		t.Errorf("corrections missing:\n%s", corrected)
	}
	if !strings.Contains(ch.UserPrompt, "Required corrections") {
		t.Error("stored prompt should be the corrective one")
	}
	if len(f.gen.Calls(taskStyle)) != 0 {
		t.Error("style guide generated despite custom guide")
	}
	if logs := f.store.Logs(); len(logs) != 1 || logs[0].PromptTokens != 300 {
		t.Errorf("logs = %+v", logs)
	}
}

func TestCorrectivePassFailure(t *testing.T) {
	f := newFixture(t, func(p *entity.Project) { p.CustomStyleGuide = "Keep it short." })
	f.seedFirstChapter()
	f.gen.On(taskChapter, booktest.Reply{Text: chapterTwo}, booktest.Reply{Err: errors.New("upstream 500")})
	f.gen.OnText(taskQuick, criticalCheck)

	_, err := f.orch.GenerateChapter(context.Background(), f.project.ID, 2)
	if apperrors.CodeOf(err) != apperrors.CodeGenerationFailed {
		t.Fatalf("err = %v, want generation failed", err)
	}
	if f.store.Chapter(f.project.ID, 2) != nil {
		t.Error("first draft persisted after failed corrective pass")
	}
}

func TestQuickCheckFailureKeepsDraft(t *testing.T) {
	f := newFixture(t, func(p *entity.Project) { p.CustomStyleGuide = "Keep it short." })
	f.seedFirstChapter()
	f.gen.OnText(taskChapter, chapterTwo)
	f.gen.On(taskQuick, booktest.Reply{Err: errors.New("timeout")})

	ch, err := f.orch.GenerateChapter(context.Background(), f.project.ID, 2)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(ch.Content, "Mia as the first engineer") {
		t.Errorf("content = %q", ch.Content)
	}
	if len(f.gen.Calls(taskChapter)) != 1 {
		t.Errorf("unexpected regeneration")
	}
}

func TestStyleGuideFailureDoesNotFailChapter(t *testing.T) {
	f := newFixture(t, nil)
	f.seedFirstChapter()
	f.gen.OnText(taskChapter, chapterTwo)
	f.gen.OnText(taskQuick, cleanCheck)
	f.gen.On(taskStyle, booktest.Reply{Err: errors.New("rate limited")})

	if _, err := f.orch.GenerateChapter(context.Background(), f.project.ID, 2); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if f.store.Project(f.project.ID).GeneratedStyleGuide != "" {
		t.Error("style guide stored")
	}
	if logs := f.store.Logs(); len(logs) != 1 || !logs[0].Success {
		t.Errorf("logs = %+v", logs)
	}
}

func TestGenerationFailurePersistsNothing(t *testing.T) {
	f := newFixture(t, nil)
	f.gen.OnText(taskChapter, "I could not write this chapter.")

	_, err := f.orch.GenerateChapter(context.Background(), f.project.ID, 1)
	if apperrors.CodeOf(err) != apperrors.CodeGenerationFailed {
		t.Fatalf("err = %v", err)
	}
	if f.store.ChapterCount(f.project.ID) != 0 || f.store.StatusWrites != 0 {
		t.Error("state changed after failed generation")
	}
	if logs := f.store.Logs(); len(logs) != 1 || logs[0].Success || logs[0].ErrorMessage == "" {
		t.Errorf("logs = %+v", logs)
	}
}

func TestPersistFailureRollsBack(t *testing.T) {
	f := newFixture(t, nil)
	f.gen.OnText(taskChapter, chapterOne)
	f.store.Fail["projects.UpdateMasterContext"] = errors.New("connection reset")

	_, err := f.orch.GenerateChapter(context.Background(), f.project.ID, 1)
	if apperrors.CodeOf(err) != apperrors.CodeDatabaseError {
		t.Fatalf("err = %v, want database error", err)
	}
	if f.store.Chapter(f.project.ID, 1) != nil {
		t.Error("chapter survived rollback")
	}
	if mc := f.store.Project(f.project.ID).Context(); !mc.IsEmpty() {
		t.Errorf("master context changed: %+v", mc)
	}
}

func TestConcurrentGenerationConflicts(t *testing.T) {
	f := newFixture(t, nil)
	f.gen.OnText(taskChapter, chapterOne)
	ctx := context.Background()

	release, err := f.locker.Acquire(ctx, "chapter:"+f.project.ID+":1", time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := f.orch.GenerateChapter(ctx, f.project.ID, 1); apperrors.CodeOf(err) != apperrors.CodeConflict {
		t.Fatalf("err = %v, want conflict", err)
	}
	_ = release(ctx)

	if _, err := f.orch.GenerateChapter(ctx, f.project.ID, 1); err != nil {
		t.Fatalf("after release: %v", err)
	}
	// 成功后锁已释放
	again, err := f.locker.Acquire(ctx, "chapter:"+f.project.ID+":1", time.Minute)
	if err != nil {
		t.Fatalf("lock not released: %v", err)
	}
	_ = again(ctx)
}

func userPrompt(c booktest.Call) string {
	return c.Request.Input
}
