package suggestion

import (
	"context"
	"strings"
	"time"

	"ghostwriter-ai-api/internal/application/audit"
	"ghostwriter-ai-api/internal/application/book/generation"
	"ghostwriter-ai-api/internal/domain/entity"
	"ghostwriter-ai-api/internal/domain/repository"
	"ghostwriter-ai-api/internal/domain/service"
	"ghostwriter-ai-api/internal/workflow/prompt"
	apperrors "ghostwriter-ai-api/pkg/errors"
	"ghostwriter-ai-api/pkg/logger"
	"ghostwriter-ai-api/pkg/metrics"
)

var changeSchema = generation.SchemaFor[Change]("chapter_change")

// Outcome 修改建议的处理结果；Applied 为 false 时仅为预览
type Outcome struct {
	OldContent string
	NewContent string
	Change     Change
	Stats      Stats
	Applied    bool
	Chapter    *entity.Chapter
}

// Deps Applier 依赖
type Deps struct {
	Generator *generation.Client
	Prompts   *prompt.Registry
	Projects  repository.ProjectRepository
	Chapters  repository.ChapterRepository
	Reports   repository.ConsistencyReportRepository
	Tx        repository.Transactor
	Recorder  service.LLMUsageRecorder
	Locker    service.Locker
	LockTTL   time.Duration
	Policy    ConfidencePolicy
	Defaults  entity.AIConfig
}

// DefaultLockTTL 编辑持有章节锁的默认时长，需覆盖一次建议生成
const DefaultLockTTL = 2 * time.Minute

type Applier struct {
	gen      *generation.Client
	prompts  *prompt.Registry
	projects repository.ProjectRepository
	chapters repository.ChapterRepository
	reports  repository.ConsistencyReportRepository
	tx       repository.Transactor
	recorder service.LLMUsageRecorder
	locker   service.Locker
	lockTTL  time.Duration
	policy   ConfidencePolicy
	defaults entity.AIConfig
	now      func() time.Time
}

func NewApplier(d Deps) *Applier {
	ttl := d.LockTTL
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Applier{
		gen:      d.Generator,
		prompts:  d.Prompts,
		projects: d.Projects,
		chapters: d.Chapters,
		reports:  d.Reports,
		tx:       d.Tx,
		recorder: d.Recorder,
		locker:   d.Locker,
		lockTTL:  ttl,
		policy:   d.Policy,
		defaults: d.Defaults,
		now:      time.Now,
	}
}

// ApplySuggestion 请求模型给出修改并按置信度门槛应用；preview 为 true 时不写库
func (a *Applier) ApplySuggestion(ctx context.Context, projectID string, n int, issue entity.ConsistencyIssue, preview bool) (out *Outcome, err error) {
	mode := "apply"
	if preview {
		mode = "preview"
	}
	tracker := audit.Start(a.recorder, projectID, n, entity.OperationSuggestion)
	defer func() {
		tracker.Finish(ctx, err)
		metrics.SuggestionTotal.WithLabelValues(mode, outcomeLabel(out, err)).Inc()
	}()

	if strings.TrimSpace(issue.Description) == "" {
		return nil, apperrors.New(apperrors.CodeValidationFailed, "issue description is required")
	}
	project, err := a.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load project")
	}
	if project == nil {
		return nil, apperrors.ErrProjectNotFound
	}
	// 提交模式下从读取到写回全程持有章节锁
	if !preview {
		release, err := a.lock(ctx, projectID, n)
		if err != nil {
			return nil, err
		}
		defer a.unlock(ctx, release)
	}
	chapter, err := a.loadChapter(ctx, projectID, n)
	if err != nil {
		return nil, err
	}

	system, user, err := a.prompts.Render(ctx, prompt.PromptSuggestionV1, map[string]any{
		"issue_type":        fallback(issue.Type, "unspecified"),
		"issue_severity":    fallback(string(issue.Severity), "unspecified"),
		"issue_description": issue.Description,
		"issue_suggestion":  fallback(issue.Suggestion, "none"),
		"chapter_number":    n,
		"chapter_content":   chapter.Content,
	})
	if err != nil {
		return nil, err
	}

	var change Change
	res, err := a.gen.GenerateJSON(ctx, generation.Request{
		Task:      generation.TaskSuggestionApplication,
		ProjectID: projectID,
		AIConfig:  project.AIConfig.WithDefaults(a.defaults),
		System:    system,
		User:      user,
		Schema:    changeSchema,
	}, &change)
	tracker.Add(res.Model, res.Usage)
	if err != nil {
		return nil, err
	}

	if !a.policy.Allows(change.Confidence) {
		return nil, apperrors.Newf(apperrors.CodeAmbiguousSuggestion,
			"suggestion confidence %.2f is below threshold %.2f", change.Confidence, a.policy.Threshold).
			WithDetail(change.Reasoning)
	}

	newContent, err := ApplyChange(chapter.Content, change)
	if err != nil {
		return nil, err
	}
	out = &Outcome{
		OldContent: chapter.Content,
		NewContent: newContent,
		Change:     change,
		Stats:      ComputeStats(chapter.Content, newContent),
	}
	if preview {
		return out, nil
	}

	chapter.ReplaceContent(newContent, entity.ModifiedByAISuggestion, a.now())
	if err := a.persist(ctx, chapter); err != nil {
		return nil, err
	}
	out.Applied = true
	out.Chapter = chapter
	logger.Info(ctx, "suggestion applied",
		"project_id", projectID,
		"chapter_number", n,
		"modification_type", string(change.ModificationType),
		"words_changed", out.Stats.WordsChanged,
	)
	return out, nil
}

// ApplyCustomContent 用户手动编辑章节
func (a *Applier) ApplyCustomContent(ctx context.Context, projectID string, n int, text string) (*entity.Chapter, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.New(apperrors.CodeValidationFailed, "chapter content must not be empty")
	}
	release, err := a.lock(ctx, projectID, n)
	if err != nil {
		return nil, err
	}
	defer a.unlock(ctx, release)

	chapter, err := a.loadChapter(ctx, projectID, n)
	if err != nil {
		return nil, err
	}
	chapter.ReplaceContent(text, entity.ModifiedByUserManualEdit, a.now())
	if err := a.persist(ctx, chapter); err != nil {
		return nil, err
	}
	return chapter, nil
}

// UndoLastEdit 还原最近一次编辑前的内容并清空撤销缓冲
func (a *Applier) UndoLastEdit(ctx context.Context, projectID string, n int) (*entity.Chapter, error) {
	release, err := a.lock(ctx, projectID, n)
	if err != nil {
		return nil, err
	}
	defer a.unlock(ctx, release)

	chapter, err := a.loadChapter(ctx, projectID, n)
	if err != nil {
		return nil, err
	}
	if !chapter.Undo(entity.ModifiedByUserManualEdit) {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "chapter %d has no edit to undo", n)
	}
	if err := a.persist(ctx, chapter); err != nil {
		return nil, err
	}
	return chapter, nil
}

// lock 与章节生成共用同一把锁，未配置锁时不加锁
func (a *Applier) lock(ctx context.Context, projectID string, n int) (service.ReleaseFunc, error) {
	if a.locker == nil {
		return func(context.Context) error { return nil }, nil
	}
	return service.AcquireChapterLock(ctx, a.locker, projectID, n, a.lockTTL)
}

func (a *Applier) unlock(ctx context.Context, release service.ReleaseFunc) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		logger.Warn(ctx, "failed to release chapter lock", "error", err)
	}
}

func (a *Applier) loadChapter(ctx context.Context, projectID string, n int) (*entity.Chapter, error) {
	chapter, err := a.chapters.GetByNumber(ctx, projectID, n)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load chapter")
	}
	if chapter == nil {
		return nil, apperrors.Newf(apperrors.CodeChapterNotFound, "chapter %d not found", n)
	}
	return chapter, nil
}

// persist 保存章节并使一致性报告失效
func (a *Applier) persist(ctx context.Context, chapter *entity.Chapter) error {
	err := a.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := a.chapters.Update(ctx, chapter); err != nil {
			return err
		}
		return a.reports.DeleteByProject(ctx, chapter.ProjectID)
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save chapter")
	}
	return nil
}

func outcomeLabel(out *Outcome, err error) string {
	switch {
	case err == nil && out != nil && out.Applied:
		return "applied"
	case err == nil:
		return "previewed"
	}
	switch apperrors.CodeOf(err) {
	case apperrors.CodeAmbiguousSuggestion:
		return "ambiguous"
	case apperrors.CodeTargetTextNotFound:
		return "target_not_found"
	default:
		return "error"
	}
}

func fallback(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
