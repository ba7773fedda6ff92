package consistency

import (
	"context"
	"testing"

	"ghostwriter-ai-api/internal/application/audit"
	"ghostwriter-ai-api/internal/application/book/booktest"
	"ghostwriter-ai-api/internal/application/book/generation"
	"ghostwriter-ai-api/internal/config"
	"ghostwriter-ai-api/internal/domain/entity"
	"ghostwriter-ai-api/internal/workflow/prompt"
	apperrors "ghostwriter-ai-api/pkg/errors"
)

type fixture struct {
	store   *booktest.Store
	gen     *booktest.Generator
	checker *Checker
	project *entity.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := booktest.NewStore()
	gen := booktest.NewGenerator()
	p := entity.NewProject("Scaling Quietly")
	store.Seed(p, entity.NewOutline(p.ID, []entity.OutlineChapter{{Title: "A"}, {Title: "B"}}))

	checker := NewChecker(Deps{
		Generator: generation.NewClient(gen, config.GenerationConfig{JSONAttempts: 3, MaxOutputTokensCeiling: 128000}),
		Prompts:   prompt.NewRegistry(),
		Projects:  store.ProjectRepo(),
		Outlines:  store.OutlineRepo(),
		Chapters:  store.ChapterRepo(),
		Reports:   store.ReportRepo(),
		Recorder:  audit.NewLLMUsageRecorder(store.LogRepo()),
		Defaults:  entity.AIConfig{Model: "gpt-5"},
	})
	return &fixture{store: store, gen: gen, checker: checker, project: p}
}

func (f *fixture) addChapter(n int, content string) {
	ch := entity.NewChapter(f.project.ID, n)
	ch.Title = content
	ch.SetContent(content)
	f.store.PutChapter(ch)
}

func TestQuickCheckDerivesCriticalFlag(t *testing.T) {
	f := newFixture(t)
	f.gen.OnText(string(generation.TaskQuickValidation),
		`{"issues":[{"type":"number","severity":"CRITICAL","description":"Revenue was $2M, now $3M"},{"type":"style","severity":"odd","description":"Tone shift"},{"severity":"major","description":" "}]}`,
		`{"issues":[{"type":"style","severity":"minor","description":"Slightly formal"}]}`,
	)

	res, err := f.checker.QuickCheck(context.Background(), QuickCheckInput{
		ProjectID:       f.project.ID,
		ChapterNumber:   2,
		AIConfig:        entity.AIConfig{Model: "gpt-5"},
		NewContent:      "new",
		PreviousContent: "old",
	})
	if err != nil {
		t.Fatalf("quick check: %v", err)
	}
	if !res.HasCriticalIssues || len(res.Issues) != 2 {
		t.Fatalf("result = %+v", res)
	}
	if res.Issues[0].Severity != entity.SeverityCritical || res.Issues[1].Severity != entity.SeverityMinor {
		t.Errorf("severities = %s, %s", res.Issues[0].Severity, res.Issues[1].Severity)
	}
	if res.Issues[0].ChapterNumber != 2 {
		t.Errorf("chapter number = %d", res.Issues[0].ChapterNumber)
	}

	res, err = f.checker.QuickCheck(context.Background(), QuickCheckInput{ProjectID: f.project.ID, ChapterNumber: 2})
	if err != nil {
		t.Fatal(err)
	}
	if res.HasCriticalIssues {
		t.Error("minor issue flagged as critical")
	}

	call := f.gen.Calls(string(generation.TaskQuickValidation))[0]
	if call.Request.ReasoningEffort != "minimal" {
		t.Errorf("quick check effort = %s", call.Request.ReasoningEffort)
	}
}

func TestFinalCheckClampsAndAppends(t *testing.T) {
	f := newFixture(t)
	f.addChapter(1, "first chapter")
	f.addChapter(2, "second chapter")
	f.gen.OnText(string(generation.TaskConsistencyCheck),
		`{"issues":[{"chapterNumber":2,"type":"number","severity":"major","description":"Headcount differs"}],"narrativeScore":140,"styleScore":-5,"factualScore":88.6,"summary":" Solid. "}`,
	)

	report, err := f.checker.FinalCheck(context.Background(), f.project.ID)
	if err != nil {
		t.Fatalf("final check: %v", err)
	}
	body := report.Body()
	if body.NarrativeScore != 100 || body.StyleScore != 0 || body.FactualScore != 89 {
		t.Errorf("scores = %+v", body)
	}
	if report.OverallScore != 63 {
		t.Errorf("overall = %d", report.OverallScore)
	}
	if body.Summary != "Solid." || len(body.Issues) != 1 || body.Issues[0].ChapterNumber != 2 {
		t.Errorf("body = %+v", body)
	}
	if got := f.store.Reports(f.project.ID); len(got) != 1 {
		t.Errorf("reports = %d", len(got))
	}

	logs := f.store.Logs()
	if len(logs) != 1 || !logs[0].Success || logs[0].Operation != entity.OperationConsistencyCheck || logs[0].PromptTokens != 100 {
		t.Errorf("logs = %+v", logs)
	}

	latest, err := f.checker.LatestReport(context.Background(), f.project.ID)
	if err != nil || latest.ID != report.ID {
		t.Errorf("latest = %+v, err = %v", latest, err)
	}
}

func TestFinalCheckKeepsZeroOverallAndDropsUnplacedIssues(t *testing.T) {
	f := newFixture(t)
	f.addChapter(1, "first chapter")
	f.gen.OnText(string(generation.TaskConsistencyCheck),
		`{"issues":[{"chapterNumber":1,"type":"style","severity":"minor","description":"Tense shifts"},`+
			`{"type":"plot","severity":"major","description":"Ending contradicts the outline"}],`+
			`"narrativeScore":80,"styleScore":70,"factualScore":90,"overallScore":0,"summary":"Rewrite needed."}`,
	)

	report, err := f.checker.FinalCheck(context.Background(), f.project.ID)
	if err != nil {
		t.Fatalf("final check: %v", err)
	}
	if report.OverallScore != 0 {
		t.Errorf("overall = %d, want the model's 0", report.OverallScore)
	}
	issues := report.Body().Issues
	if len(issues) != 1 || issues[0].ChapterNumber != 1 {
		t.Errorf("issues = %+v", issues)
	}
}

func TestFinalCheckPreconditions(t *testing.T) {
	f := newFixture(t)

	_, err := f.checker.FinalCheck(context.Background(), f.project.ID)
	if apperrors.CodeOf(err) != apperrors.CodePrerequisiteNotMet {
		t.Errorf("no chapters: got %v", err)
	}
	_, err = f.checker.FinalCheck(context.Background(), "missing")
	if apperrors.CodeOf(err) != apperrors.CodeProjectNotFound {
		t.Errorf("missing project: got %v", err)
	}
	if len(f.gen.Calls("")) != 0 {
		t.Error("model called despite failed precondition")
	}
	logs := f.store.Logs()
	if len(logs) != 2 || logs[0].Success || logs[1].Success {
		t.Errorf("failed checks should still be audited: %+v", logs)
	}
}

func TestFinalCheckGenerationFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	f.addChapter(1, "first chapter")
	f.gen.OnText(string(generation.TaskConsistencyCheck), `not json at all.`)

	_, err := f.checker.FinalCheck(context.Background(), f.project.ID)
	if apperrors.CodeOf(err) != apperrors.CodeGenerationFailed {
		t.Fatalf("got %v", err)
	}
	if len(f.store.Reports(f.project.ID)) != 0 {
		t.Error("report stored after failure")
	}
}

func TestLatestReportNotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.checker.LatestReport(context.Background(), f.project.ID); !apperrors.IsNotFound(err) {
		t.Errorf("got %v", err)
	}
}
