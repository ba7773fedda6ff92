package suggestion

import (
	"context"
	"testing"
	"time"

	"ghostwriter-ai-api/internal/application/audit"
	"ghostwriter-ai-api/internal/application/book/booktest"
	"ghostwriter-ai-api/internal/application/book/generation"
	"ghostwriter-ai-api/internal/config"
	"ghostwriter-ai-api/internal/domain/entity"
	"ghostwriter-ai-api/internal/domain/service"
	"ghostwriter-ai-api/internal/infrastructure/lock"
	"ghostwriter-ai-api/internal/workflow/prompt"
	apperrors "ghostwriter-ai-api/pkg/errors"
)

const original = "Dana founded the company in 2015. Revenue reached $3M in year two."

type fixture struct {
	store   *booktest.Store
	gen     *booktest.Generator
	applier *Applier
	locker  *lock.LocalLocker
	project *entity.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := booktest.NewStore()
	gen := booktest.NewGenerator()
	locker := lock.NewLocalLocker()
	p := entity.NewProject("Scaling Quietly")
	store.Seed(p, entity.NewOutline(p.ID, []entity.OutlineChapter{{Title: "A"}}))
	ch := entity.NewChapter(p.ID, 1)
	ch.SetContent(original)
	ch.LastModifiedBy = entity.ModifiedByGeneration
	store.PutChapter(ch)
	_ = store.ReportRepo().Create(context.Background(), entity.NewConsistencyReport(p.ID, entity.ReportBody{}, 80))

	a := NewApplier(Deps{
		Generator: generation.NewClient(gen, config.GenerationConfig{JSONAttempts: 3, MaxOutputTokensCeiling: 128000}),
		Prompts:   prompt.NewRegistry(),
		Projects:  store.ProjectRepo(),
		Chapters:  store.ChapterRepo(),
		Reports:   store.ReportRepo(),
		Tx:        store,
		Locker:    locker,
		Recorder:  audit.NewLLMUsageRecorder(store.LogRepo()),
		Policy:    ConfidencePolicy{Threshold: DefaultConfidenceThreshold},
		Defaults:  entity.AIConfig{Model: "gpt-5"},
	})
	a.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return &fixture{store: store, gen: gen, applier: a, locker: locker, project: p}
}

var revenueIssue = entity.ConsistencyIssue{
	ChapterNumber: 1,
	Type:          "number",
	Severity:      entity.SeverityCritical,
	Description:   "Revenue is $2M elsewhere",
	Suggestion:    "Use $2M",
}

func replacementReply(confidence string) string {
	return `{"targetText":"Revenue reached $3M in year two.","modificationType":"replacement","newText":"Revenue reached $2M in year two.","reasoning":"match chapter 3","confidence":` + confidence + `}`
}

func TestConfidenceGateBelowThreshold(t *testing.T) {
	f := newFixture(t)
	f.gen.OnText(string(generation.TaskSuggestionApplication), replacementReply("0.69"))

	_, err := f.applier.ApplySuggestion(context.Background(), f.project.ID, 1, revenueIssue, false)
	if apperrors.CodeOf(err) != apperrors.CodeAmbiguousSuggestion {
		t.Fatalf("want AmbiguousSuggestion, got %v", err)
	}
	ch := f.store.Chapter(f.project.ID, 1)
	if ch.Content != original || ch.HasUndo() {
		t.Errorf("chapter mutated: %+v", ch)
	}
	logs := f.store.Logs()
	if len(logs) != 1 || logs[0].Success || logs[0].Operation != entity.OperationSuggestion {
		t.Errorf("logs = %+v", logs)
	}
}

func TestConfidenceGateAtThresholdApplies(t *testing.T) {
	f := newFixture(t)
	f.gen.OnText(string(generation.TaskSuggestionApplication), replacementReply("0.70"))

	out, err := f.applier.ApplySuggestion(context.Background(), f.project.ID, 1, revenueIssue, false)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !out.Applied || out.Chapter == nil {
		t.Fatalf("outcome = %+v", out)
	}

	ch := f.store.Chapter(f.project.ID, 1)
	want := "Dana founded the company in 2015. Revenue reached $2M in year two."
	if ch.Content != want || ch.PreviousContent != original || ch.LastModifiedBy != entity.ModifiedByAISuggestion {
		t.Errorf("chapter = %+v", ch)
	}
	if ch.WordCount != entity.CountWords(want) || ch.PreviousContentSavedAt == nil {
		t.Errorf("word count / undo snapshot not updated: %+v", ch)
	}
	if len(f.store.Reports(f.project.ID)) != 0 {
		t.Error("consistency reports not invalidated")
	}
	if out.Stats.WordsChanged != 2 {
		t.Errorf("stats = %+v", out.Stats)
	}
}

func TestPreviewDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	f.gen.OnText(string(generation.TaskSuggestionApplication), replacementReply("0.95"))

	out, err := f.applier.ApplySuggestion(context.Background(), f.project.ID, 1, revenueIssue, true)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if out.Applied || out.OldContent != original || out.NewContent == original {
		t.Errorf("outcome = %+v", out)
	}
	ch := f.store.Chapter(f.project.ID, 1)
	if ch.Content != original || ch.HasUndo() || ch.LastModifiedBy != entity.ModifiedByGeneration {
		t.Errorf("preview mutated chapter: %+v", ch)
	}
	if len(f.store.Reports(f.project.ID)) != 1 {
		t.Error("preview invalidated reports")
	}
}

func TestTargetNotFoundLeavesChapter(t *testing.T) {
	f := newFixture(t)
	f.gen.OnText(string(generation.TaskSuggestionApplication),
		`{"targetText":"Revenue reached three million.","modificationType":"replacement","newText":"x","confidence":0.9}`)

	_, err := f.applier.ApplySuggestion(context.Background(), f.project.ID, 1, revenueIssue, false)
	if apperrors.CodeOf(err) != apperrors.CodeTargetTextNotFound {
		t.Fatalf("got %v", err)
	}
	if f.store.Chapter(f.project.ID, 1).Content != original {
		t.Error("chapter mutated")
	}
}

func TestApplySuggestionMissingChapter(t *testing.T) {
	f := newFixture(t)
	_, err := f.applier.ApplySuggestion(context.Background(), f.project.ID, 9, revenueIssue, false)
	if apperrors.CodeOf(err) != apperrors.CodeChapterNotFound {
		t.Fatalf("got %v", err)
	}
	if len(f.gen.Calls("")) != 0 {
		t.Error("model called for missing chapter")
	}
}

func TestCustomContentAndUndo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.applier.ApplyCustomContent(ctx, f.project.ID, 1, "   "); apperrors.CodeOf(err) != apperrors.CodeValidationFailed {
		t.Fatalf("empty text: got %v", err)
	}
	if _, err := f.applier.UndoLastEdit(ctx, f.project.ID, 1); !apperrors.IsNotFound(err) {
		t.Fatalf("undo without edit: got %v", err)
	}

	ch, err := f.applier.ApplyCustomContent(ctx, f.project.ID, 1, "Rewritten by hand.")
	if err != nil {
		t.Fatal(err)
	}
	if ch.LastModifiedBy != entity.ModifiedByUserManualEdit || ch.PreviousContent != original {
		t.Errorf("chapter = %+v", ch)
	}
	if len(f.store.Reports(f.project.ID)) != 0 {
		t.Error("reports not invalidated by manual edit")
	}

	ch, err = f.applier.UndoLastEdit(ctx, f.project.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	stored := f.store.Chapter(f.project.ID, 1)
	if ch.Content != original || stored.Content != original || stored.HasUndo() {
		t.Errorf("undo result = %+v", stored)
	}
}

func TestEditsWaitForChapterLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gen.OnText(string(generation.TaskSuggestionApplication), replacementReply("0.95"), replacementReply("0.95"))

	release, err := f.locker.Acquire(ctx, service.ChapterLockKey(f.project.ID, 1), time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.applier.ApplyCustomContent(ctx, f.project.ID, 1, "Rewritten by hand."); apperrors.CodeOf(err) != apperrors.CodeConflict {
		t.Errorf("manual edit: got %v", err)
	}
	if _, err := f.applier.UndoLastEdit(ctx, f.project.ID, 1); apperrors.CodeOf(err) != apperrors.CodeConflict {
		t.Errorf("undo: got %v", err)
	}
	if _, err := f.applier.ApplySuggestion(ctx, f.project.ID, 1, revenueIssue, false); apperrors.CodeOf(err) != apperrors.CodeConflict {
		t.Errorf("commit: got %v", err)
	}
	if f.store.Chapter(f.project.ID, 1).Content != original {
		t.Error("chapter written while locked")
	}
	// 预览不写库，不需要锁
	if _, err := f.applier.ApplySuggestion(ctx, f.project.ID, 1, revenueIssue, true); err != nil {
		t.Errorf("preview while locked: %v", err)
	}

	if err := release(ctx); err != nil {
		t.Fatal(err)
	}
	out, err := f.applier.ApplySuggestion(ctx, f.project.ID, 1, revenueIssue, false)
	if err != nil || !out.Applied {
		t.Fatalf("commit after release: %+v, %v", out, err)
	}
}
