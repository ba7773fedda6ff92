// Package chapter 章节生成编排：前置校验、上下文组装、生成、快速检查与纠正、持久化
package chapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ghostwriter-ai-api/internal/application/audit"
	"ghostwriter-ai-api/internal/application/book/consistency"
	"ghostwriter-ai-api/internal/application/book/generation"
	"ghostwriter-ai-api/internal/application/book/promptctx"
	"ghostwriter-ai-api/internal/application/book/styleguide"
	"ghostwriter-ai-api/internal/domain/entity"
	"ghostwriter-ai-api/internal/domain/repository"
	"ghostwriter-ai-api/internal/domain/service"
	"ghostwriter-ai-api/internal/workflow/prompt"
	apperrors "ghostwriter-ai-api/pkg/errors"
	"ghostwriter-ai-api/pkg/logger"
	"ghostwriter-ai-api/pkg/metrics"
)

// DefaultLockTTL 章节锁默认过期时间，需覆盖一次完整生成（含纠正）
const DefaultLockTTL = 10 * time.Minute

// chapterOutput 章节生成的结构化输出
type chapterOutput struct {
	Chapter   string                 `json:"chapter"`
	Metadata  entity.ChapterMetadata `json:"metadata"`
	Summary   string                 `json:"summary"`
	KeyPoints []string               `json:"keyPoints"`
}

var chapterSchema = generation.SchemaFor[chapterOutput]("chapter")

// Deps Orchestrator 依赖
type Deps struct {
	Generator   *generation.Client
	Prompts     *prompt.Registry
	Contexts    *promptctx.Builder
	Checker     *consistency.Checker
	StyleGuides *styleguide.Generator

	Projects repository.ProjectRepository
	Outlines repository.OutlineRepository
	Chapters repository.ChapterRepository
	Reports  repository.ConsistencyReportRepository
	Tx       repository.Transactor

	Locker   service.Locker
	Recorder service.LLMUsageRecorder

	Defaults          entity.AIConfig
	LockTTL           time.Duration
	QuickCheckEnabled bool
}

// Orchestrator 章节生成编排器
type Orchestrator struct {
	gen         *generation.Client
	prompts     *prompt.Registry
	contexts    *promptctx.Builder
	checker     *consistency.Checker
	styleGuides *styleguide.Generator

	projects repository.ProjectRepository
	outlines repository.OutlineRepository
	chapters repository.ChapterRepository
	reports  repository.ConsistencyReportRepository
	tx       repository.Transactor

	locker   service.Locker
	recorder service.LLMUsageRecorder

	defaults   entity.AIConfig
	lockTTL    time.Duration
	quickCheck bool
	now        func() time.Time
}

func NewOrchestrator(d Deps) *Orchestrator {
	ttl := d.LockTTL
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Orchestrator{
		gen:         d.Generator,
		prompts:     d.Prompts,
		contexts:    d.Contexts,
		checker:     d.Checker,
		styleGuides: d.StyleGuides,
		projects:    d.Projects,
		outlines:    d.Outlines,
		chapters:    d.Chapters,
		reports:     d.Reports,
		tx:          d.Tx,
		locker:      d.Locker,
		recorder:    d.Recorder,
		defaults:    d.Defaults,
		lockTTL:     ttl,
		quickCheck:  d.QuickCheckEnabled,
		now:         time.Now,
	}
}

// draft 一次生成的结果
type draft struct {
	out    chapterOutput
	model  string
	system string
	user   string
}

// GenerateChapter 生成第 n 章并持久化
// 失败时不写入任何章节数据，审计记录无论成败都只写一条
func (o *Orchestrator) GenerateChapter(ctx context.Context, projectID string, n int) (chapter *entity.Chapter, err error) {
	start := time.Now()
	ctx = logger.WithContext(ctx, logger.ProjectIDKey, projectID)
	ctx = logger.WithContext(ctx, logger.ChapterNumberKey, n)

	tracker := audit.Start(o.recorder, projectID, n, entity.OperationChapterGeneration)
	defer func() {
		tracker.Finish(ctx, err)
		status := "success"
		if err != nil {
			status = "failed"
			logger.Error(ctx, "chapter generation failed", err)
		}
		metrics.ChapterGenerationTotal.WithLabelValues(status).Inc()
		metrics.ChapterGenerationDuration.Observe(time.Since(start).Seconds())
	}()

	if n < 1 {
		return nil, apperrors.Newf(apperrors.CodeValidationFailed, "chapter number must be >= 1, got %d", n)
	}

	release, err := service.AcquireChapterLock(ctx, o.locker, projectID, n, o.lockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			logger.Warn(ctx, "failed to release chapter lock", "error", rerr)
		}
	}()

	project, outline, previous, err := o.checkPrerequisites(ctx, projectID, n)
	if err != nil {
		return nil, err
	}
	if err := project.AIConfig.WithDefaults(o.defaults).Validate(o.gen.Ceiling()); err != nil {
		return nil, err
	}

	cc, err := o.contexts.Build(ctx, promptctx.Input{
		Project:       project,
		Outline:       outline,
		ChapterNumber: n,
		Previous:      previous,
		Defaults:      o.defaults,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to assemble chapter context")
	}

	system, user, err := o.prompts.Render(ctx, prompt.PromptChapterGenerationV1, cc.PromptVars(project))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "failed to render chapter prompt")
	}

	d, err := o.generate(ctx, tracker, project.ID, cc.AIConfig, system, user)
	if err != nil {
		return nil, err
	}

	if n > 1 && o.quickCheck {
		d, err = o.validate(ctx, tracker, project, cc, d)
		if err != nil {
			return nil, err
		}
	}

	chapter, err = o.persist(ctx, project, cc, d)
	if err != nil {
		return nil, err
	}

	if n == 2 {
		o.bootstrapStyleGuide(ctx, tracker, project, previous, chapter)
	}

	metrics.ChapterWordCount.Observe(float64(chapter.WordCount))
	logger.Info(ctx, "chapter generated",
		"title", chapter.Title,
		"word_count", chapter.WordCount,
		"model", chapter.ModelUsed,
	)
	return chapter, nil
}

// checkPrerequisites 项目、大纲存在，章节号在大纲范围内，且上一章已完成
func (o *Orchestrator) checkPrerequisites(ctx context.Context, projectID string, n int) (*entity.Project, *entity.Outline, *entity.Chapter, error) {
	project, err := o.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, nil, nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load project")
	}
	if project == nil {
		return nil, nil, nil, apperrors.ErrProjectNotFound
	}

	outline, err := o.outlines.GetByProject(ctx, projectID)
	if err != nil {
		return nil, nil, nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load outline")
	}
	if outline == nil || outline.TotalChapters() == 0 {
		return nil, nil, nil, apperrors.New(apperrors.CodePrerequisiteNotMet, "project has no outline")
	}
	if total := outline.TotalChapters(); n > total {
		return nil, nil, nil, apperrors.Newf(apperrors.CodeValidationFailed,
			"chapter %d is outside the outline (%d chapters)", n, total)
	}

	if n == 1 {
		return project, outline, nil, nil
	}
	previous, err := o.chapters.GetByNumber(ctx, projectID, n-1)
	if err != nil {
		return nil, nil, nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load previous chapter")
	}
	if !previous.IsCompleted() {
		return nil, nil, nil, apperrors.Newf(apperrors.CodePrerequisiteNotMet,
			"chapter %d must be completed before chapter %d", n-1, n)
	}
	return project, outline, previous, nil
}

func (o *Orchestrator) generate(ctx context.Context, tracker *audit.Tracker, projectID string, cfg entity.AIConfig, system, user string) (*draft, error) {
	d := &draft{system: system, user: user}
	res, err := o.gen.GenerateJSON(ctx, generation.Request{
		Task:      generation.TaskChapterGeneration,
		ProjectID: projectID,
		AIConfig:  cfg,
		System:    system,
		User:      user,
		Schema:    chapterSchema,
	}, &d.out)
	tracker.Add(res.Model, res.Usage)
	if err != nil {
		return nil, err
	}
	d.out.Chapter = strings.TrimSpace(d.out.Chapter)
	if d.out.Chapter == "" {
		return nil, apperrors.New(apperrors.CodeGenerationFailed, "model returned an empty chapter")
	}
	d.model = res.Model
	return d, nil
}

// validate 快速检查；发现 critical 问题时按原提示词加纠正说明重新生成一次
// 检查本身失败视为无问题，纠正稿无论自身是否仍有问题都替换初稿
func (o *Orchestrator) validate(ctx context.Context, tracker *audit.Tracker, project *entity.Project, cc *promptctx.ChapterContext, d *draft) (*draft, error) {
	res, err := o.checker.QuickCheck(ctx, consistency.QuickCheckInput{
		ProjectID:       project.ID,
		ChapterNumber:   cc.ChapterNumber,
		AIConfig:        cc.AIConfig,
		NewContent:      d.out.Chapter,
		PreviousContent: cc.PreviousContent(),
		MasterContext:   cc.MasterContext,
	})
	if res != nil {
		tracker.Add(res.Model, res.Usage)
	}
	if err != nil {
		logger.Warn(ctx, "quick check failed, keeping first draft", "error", err)
		return d, nil
	}
	if !res.HasCriticalIssues {
		return d, nil
	}

	metrics.ChapterCorrectivePasses.Inc()
	logger.Info(ctx, "critical issues found, regenerating chapter", "issues", len(res.Issues))

	corrected, err := o.generate(ctx, tracker, project.ID, cc.AIConfig, d.system, withCorrections(d.user, res.Issues))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeGenerationFailed, "corrective regeneration failed")
	}
	return corrected, nil
}

func withCorrections(user string, issues []entity.ConsistencyIssue) string {
	var b strings.Builder
	b.WriteString(user)
	b.WriteString("\n\n## Required corrections\n")
	b.WriteString("A review of your previous draft found these problems. Rewrite the chapter so that none of them remain:\n")
	for i, issue := range issues {
		fmt.Fprintf(&b, "%d. [%s] %s", i+1, issue.Severity, strings.TrimSpace(issue.Description))
		if s := strings.TrimSpace(issue.Suggestion); s != "" {
			b.WriteString(" Fix: ")
			b.WriteString(s)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// persist 在同一事务中写入章节、合并主上下文并重算项目状态
func (o *Orchestrator) persist(ctx context.Context, project *entity.Project, cc *promptctx.ChapterContext, d *draft) (*entity.Chapter, error) {
	n := cc.ChapterNumber
	var saved *entity.Chapter

	err := o.tx.WithTransaction(ctx, func(ctx context.Context) error {
		existing, err := o.chapters.GetByNumber(ctx, project.ID, n)
		if err != nil {
			return err
		}

		ch := entity.NewChapter(project.ID, n)
		if existing != nil {
			ch.ID = existing.ID
			ch.CreatedAt = existing.CreatedAt
		}
		now := o.now()
		ch.Title = entity.ExtractChapterTitle(d.out.Chapter, n, cc.Entry.Title)
		ch.SetContent(d.out.Chapter)
		ch.Summary = strings.TrimSpace(d.out.Summary)
		ch.KeyPoints = d.out.KeyPoints
		ch.NewCharacters = d.out.Metadata.NewCharacters
		ch.NewTerms = d.out.Metadata.NewTerms
		ch.KeyNumbers = d.out.Metadata.KeyNumbers
		ch.LastModifiedBy = entity.ModifiedByGeneration
		ch.ModelUsed = d.model
		ch.GeneratedAt = &now
		ch.SystemPrompt = d.system
		ch.UserPrompt = d.user

		if err := o.chapters.Upsert(ctx, ch); err != nil {
			return err
		}

		locked, err := o.projects.GetForUpdate(ctx, project.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return apperrors.ErrProjectNotFound
		}
		merged := locked.Context().Merge(d.out.Metadata)
		if err := o.projects.UpdateMasterContext(ctx, project.ID, merged); err != nil {
			return err
		}

		if existing != nil {
			if err := o.reports.DeleteByProject(ctx, project.ID); err != nil {
				return err
			}
		}

		completed, err := o.chapters.CountCompleted(ctx, project.ID)
		if err != nil {
			return err
		}
		status := entity.DeriveProjectStatus(locked.Status, true, completed, cc.TotalChapters)
		if status != locked.Status {
			if err := o.projects.UpdateStatus(ctx, project.ID, status); err != nil {
				return err
			}
		}

		saved, err = o.chapters.GetByNumber(ctx, project.ID, n)
		if err != nil {
			return err
		}
		if saved == nil {
			saved = ch
		}
		return nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save chapter")
	}
	return saved, nil
}

// bootstrapStyleGuide 第 2 章完成后由前两章生成风格指南，失败只记日志
func (o *Orchestrator) bootstrapStyleGuide(ctx context.Context, tracker *audit.Tracker, project *entity.Project, first, second *entity.Chapter) {
	if o.styleGuides == nil || project.HasCustomStyleGuide() {
		return
	}
	guide, err := o.styleGuides.FromChapters(ctx, project, []*entity.Chapter{first, second})
	if guide != nil {
		tracker.Add(guide.Model, guide.Usage)
	}
	if err != nil {
		logger.Warn(ctx, "style guide bootstrap failed", "error", err)
	}
}
