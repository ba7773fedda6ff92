// Package consistency 提供章节间快速检查与全书一致性检查
package consistency

import (
	"context"
	"fmt"
	"math"
	"strings"

	"ghostwriter-ai-api/internal/application/audit"
	"ghostwriter-ai-api/internal/application/book/generation"
	"ghostwriter-ai-api/internal/domain/entity"
	"ghostwriter-ai-api/internal/domain/repository"
	"ghostwriter-ai-api/internal/domain/service"
	wfmodel "ghostwriter-ai-api/internal/workflow/model"
	wfnode "ghostwriter-ai-api/internal/workflow/node"
	"ghostwriter-ai-api/internal/workflow/prompt"
	apperrors "ghostwriter-ai-api/pkg/errors"
	"ghostwriter-ai-api/pkg/logger"
	"ghostwriter-ai-api/pkg/metrics"
)

// quickCheckMaxRunes 快速检查中每章正文的上限
const quickCheckMaxRunes = 40000

// QuickCheckInput 新章与上一章的对比输入
type QuickCheckInput struct {
	ProjectID       string
	ChapterNumber   int
	AIConfig        entity.AIConfig
	NewContent      string
	PreviousContent string
	MasterContext   entity.MasterContext
}

// QuickCheckResult 快速检查结果
type QuickCheckResult struct {
	Issues            []entity.ConsistencyIssue
	HasCriticalIssues bool
	Model             string
	Usage             wfmodel.TokenUsage
}

type quickOutput struct {
	Issues []entity.ConsistencyIssue `json:"issues"`
}

type finalOutput struct {
	Issues         []entity.ConsistencyIssue `json:"issues"`
	NarrativeScore float64                   `json:"narrativeScore"`
	StyleScore     float64                   `json:"styleScore"`
	FactualScore   float64                   `json:"factualScore"`
	OverallScore   *float64                  `json:"overallScore"`
	Summary        string                    `json:"summary"`
}

var (
	quickSchema = generation.SchemaFor[quickOutput]("quick_check")
	finalSchema = generation.SchemaFor[finalOutput]("consistency_report")
)

// Deps Checker 依赖
type Deps struct {
	Generator *generation.Client
	Prompts   *prompt.Registry
	Projects  repository.ProjectRepository
	Outlines  repository.OutlineRepository
	Chapters  repository.ChapterRepository
	Reports   repository.ConsistencyReportRepository
	Recorder  service.LLMUsageRecorder
	Defaults  entity.AIConfig
}

type Checker struct {
	gen      *generation.Client
	prompts  *prompt.Registry
	projects repository.ProjectRepository
	outlines repository.OutlineRepository
	chapters repository.ChapterRepository
	reports  repository.ConsistencyReportRepository
	recorder service.LLMUsageRecorder
	defaults entity.AIConfig
}

func NewChecker(d Deps) *Checker {
	return &Checker{
		gen:      d.Generator,
		prompts:  d.Prompts,
		projects: d.Projects,
		outlines: d.Outlines,
		chapters: d.Chapters,
		reports:  d.Reports,
		recorder: d.Recorder,
		defaults: d.Defaults,
	}
}

// QuickCheck 对比新章与上一章，HasCriticalIssues 由问题严重程度推导
func (c *Checker) QuickCheck(ctx context.Context, in QuickCheckInput) (*QuickCheckResult, error) {
	system, user, err := c.prompts.Render(ctx, prompt.PromptQuickCheckV1, map[string]any{
		"master_context":   fallback(in.MasterContext.Render(), "None recorded yet."),
		"previous_content": wfnode.TruncateWithMarker(strings.TrimSpace(in.PreviousContent), quickCheckMaxRunes),
		"new_content":      wfnode.TruncateWithMarker(strings.TrimSpace(in.NewContent), quickCheckMaxRunes),
		"chapter_number":   in.ChapterNumber,
	})
	if err != nil {
		return nil, err
	}

	var out quickOutput
	res, err := c.gen.GenerateJSON(ctx, generation.Request{
		Task:      generation.TaskQuickValidation,
		ProjectID: in.ProjectID,
		AIConfig:  in.AIConfig,
		System:    system,
		User:      user,
		Schema:    quickSchema,
	}, &out)
	result := &QuickCheckResult{Model: res.Model, Usage: res.Usage}
	if err != nil {
		metrics.QuickCheckTotal.WithLabelValues("error").Inc()
		return result, err
	}

	result.Issues = normalizeIssues(out.Issues, in.ChapterNumber)
	result.HasCriticalIssues = entity.HasCritical(result.Issues)
	if result.HasCriticalIssues {
		metrics.QuickCheckTotal.WithLabelValues("critical").Inc()
	} else {
		metrics.QuickCheckTotal.WithLabelValues("clean").Inc()
	}
	return result, nil
}

// FinalCheck 全书一致性检查，结果追加为新报告
func (c *Checker) FinalCheck(ctx context.Context, projectID string) (report *entity.ConsistencyReport, err error) {
	tracker := audit.Start(c.recorder, projectID, 0, entity.OperationConsistencyCheck)
	defer func() { tracker.Finish(ctx, err) }()

	project, err := c.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load project")
	}
	if project == nil {
		return nil, apperrors.ErrProjectNotFound
	}
	outline, err := c.outlines.GetByProject(ctx, projectID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load outline")
	}
	if outline == nil {
		return nil, apperrors.New(apperrors.CodePrerequisiteNotMet, "project has no outline")
	}
	chapters, err := c.chapters.ListByProject(ctx, projectID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load chapters")
	}
	if len(chapters) == 0 {
		return nil, apperrors.New(apperrors.CodePrerequisiteNotMet, "project has no chapters to check")
	}

	system, user, err := c.prompts.Render(ctx, prompt.PromptFinalCheckV1, map[string]any{
		"outline":        renderOutline(outline),
		"master_context": fallback(project.Context().Render(), "None recorded."),
		"chapters":       renderManuscript(chapters),
	})
	if err != nil {
		return nil, err
	}

	var out finalOutput
	res, err := c.gen.GenerateJSON(ctx, generation.Request{
		Task:      generation.TaskConsistencyCheck,
		ProjectID: projectID,
		AIConfig:  project.AIConfig.WithDefaults(c.defaults),
		System:    system,
		User:      user,
		Schema:    finalSchema,
	}, &out)
	tracker.Add(res.Model, res.Usage)
	if err != nil {
		return nil, err
	}

	issues := normalizeIssues(out.Issues, 0)
	if dropped := len(out.Issues) - len(issues); dropped > 0 {
		logger.Warn(ctx, "dropped consistency issues without chapter or description", "dropped", dropped)
	}
	body := entity.ReportBody{
		Issues:         issues,
		NarrativeScore: score(out.NarrativeScore),
		StyleScore:     score(out.StyleScore),
		FactualScore:   score(out.FactualScore),
		Summary:        strings.TrimSpace(out.Summary),
	}
	// 模型未给出总分时取三项均值
	var overall int
	if out.OverallScore != nil {
		overall = score(*out.OverallScore)
	} else {
		overall = int(math.Round(float64(body.NarrativeScore+body.StyleScore+body.FactualScore) / 3))
	}

	report = entity.NewConsistencyReport(projectID, body, overall)
	if err := c.reports.Create(ctx, report); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save consistency report")
	}
	metrics.ConsistencyScore.Observe(float64(report.OverallScore))
	logger.Info(ctx, "consistency check completed",
		"project_id", projectID,
		"overall_score", report.OverallScore,
		"issues", len(body.Issues),
	)
	return report, nil
}

// LatestReport 最新一份一致性报告
func (c *Checker) LatestReport(ctx context.Context, projectID string) (*entity.ConsistencyReport, error) {
	report, err := c.reports.GetLatest(ctx, projectID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load consistency report")
	}
	if report == nil {
		return nil, apperrors.ErrReportNotFound
	}
	return report, nil
}

// normalizeIssues 统一严重程度取值，缺失章节号时补为 defaultChapter；
// defaultChapter 为 0 时丢弃无法归属到章节的问题
func normalizeIssues(issues []entity.ConsistencyIssue, defaultChapter int) []entity.ConsistencyIssue {
	out := make([]entity.ConsistencyIssue, 0, len(issues))
	for _, issue := range issues {
		if strings.TrimSpace(issue.Description) == "" {
			continue
		}
		switch sev := entity.IssueSeverity(strings.ToLower(strings.TrimSpace(string(issue.Severity)))); sev {
		case entity.SeverityCritical, entity.SeverityMajor, entity.SeverityMinor:
			issue.Severity = sev
		default:
			issue.Severity = entity.SeverityMinor
		}
		if issue.ChapterNumber <= 0 {
			issue.ChapterNumber = defaultChapter
		}
		if issue.ChapterNumber <= 0 {
			continue
		}
		out = append(out, issue)
	}
	return out
}

func renderOutline(o *entity.Outline) string {
	lines := make([]string, 0, len(o.Chapters))
	for i, ch := range o.Chapters {
		lines = append(lines, fmt.Sprintf("%d. %s: %s", i+1, ch.Title, ch.Description))
	}
	return strings.Join(lines, "\n")
}

func renderManuscript(chapters []*entity.Chapter) string {
	parts := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		parts = append(parts, fmt.Sprintf("=== Chapter %d: %s ===\n%s", ch.ChapterNumber, ch.Title, strings.TrimSpace(ch.Content)))
	}
	return strings.Join(parts, "\n\n")
}

func score(v float64) int {
	return entity.ClampScore(int(math.Round(v)))
}

func fallback(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
