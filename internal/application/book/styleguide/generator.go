// Package styleguide 根据样章或参考文档生成风格指南
package styleguide

import (
	"context"
	"fmt"
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
)

const (
	chapterSampleMaxRunes   = 30000
	referenceSampleMaxRunes = 20000
)

// Deps Generator 依赖
type Deps struct {
	Generator *generation.Client
	Prompts   *prompt.Registry
	Projects  repository.ProjectRepository
	Documents repository.ReferenceDocumentRepository
	Recorder  service.LLMUsageRecorder
	Defaults  entity.AIConfig
}

type Generator struct {
	gen       *generation.Client
	prompts   *prompt.Registry
	projects  repository.ProjectRepository
	documents repository.ReferenceDocumentRepository
	recorder  service.LLMUsageRecorder
	defaults  entity.AIConfig
}

func NewGenerator(d Deps) *Generator {
	return &Generator{
		gen:       d.Generator,
		prompts:   d.Prompts,
		projects:  d.Projects,
		documents: d.Documents,
		recorder:  d.Recorder,
		defaults:  d.Defaults,
	}
}

// Guide 生成结果
type Guide struct {
	Text  string
	Model string
	Usage wfmodel.TokenUsage
}

// FromChapters 由样章生成风格指南，用量由调用方计入自身的审计记录
// 项目已有自定义指南时跳过并返回 nil
func (g *Generator) FromChapters(ctx context.Context, project *entity.Project, chapters []*entity.Chapter) (*Guide, error) {
	if project == nil {
		return nil, apperrors.ErrProjectNotFound
	}
	if project.HasCustomStyleGuide() {
		logger.Debug(ctx, "custom style guide present, skipping generation", "project_id", project.ID)
		return nil, nil
	}

	parts := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		if ch == nil || strings.TrimSpace(ch.Content) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("=== Chapter %d ===\n%s", ch.ChapterNumber,
			wfnode.TruncateWithMarker(strings.TrimSpace(ch.Content), chapterSampleMaxRunes)))
	}
	if len(parts) == 0 {
		return nil, apperrors.New(apperrors.CodePrerequisiteNotMet, "no chapter content to derive a style guide from")
	}

	return g.generate(ctx, project, prompt.PromptStyleGuideChaptersV1, "chapters", strings.Join(parts, "\n\n"))
}

// FromReferences 由上传的参考文档生成风格指南
func (g *Generator) FromReferences(ctx context.Context, projectID string) (guide string, err error) {
	tracker := audit.Start(g.recorder, projectID, 0, entity.OperationStyleGuide)
	defer func() { tracker.Finish(ctx, err) }()

	project, err := g.projects.GetByID(ctx, projectID)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load project")
	}
	if project == nil {
		return "", apperrors.ErrProjectNotFound
	}
	docs, err := g.documents.ListByProject(ctx, projectID)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load reference documents")
	}

	attachments := make([]wfnode.TextAttachment, 0, len(docs))
	for _, d := range docs {
		attachments = append(attachments, wfnode.TextAttachment{
			Name:    d.Filename,
			Content: wfnode.TruncateWithMarker(strings.TrimSpace(d.Content), referenceSampleMaxRunes),
		})
	}
	block := wfnode.BuildAttachmentsBlock("Reference documents", attachments)
	if block == "" {
		return "", apperrors.New(apperrors.CodePrerequisiteNotMet, "project has no reference documents")
	}

	out, err := g.generate(ctx, project, prompt.PromptStyleGuideReferencesV1, "references", block)
	if out != nil {
		tracker.Add(out.Model, out.Usage)
	}
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

// generate 出错时返回的 Guide 仍携带已消耗的用量
func (g *Generator) generate(ctx context.Context, project *entity.Project, id prompt.PromptID, key, material string) (*Guide, error) {
	system, user, err := g.prompts.Render(ctx, id, map[string]any{
		"project_title": project.Title,
		"author_name":   fallback(project.AuthorName, "the author"),
		key:             material,
	})
	if err != nil {
		return nil, err
	}

	res, err := g.gen.GenerateText(ctx, generation.Request{
		Task:      generation.TaskStyleGuide,
		ProjectID: project.ID,
		AIConfig:  project.AIConfig.WithDefaults(g.defaults),
		System:    system,
		User:      user,
	})
	out := &Guide{Model: res.Model, Usage: res.Usage}
	if err != nil {
		return out, err
	}

	out.Text = wfnode.StripCodeFence(res.Text)
	if err := g.projects.UpdateGeneratedStyleGuide(ctx, project.ID, out.Text); err != nil {
		return out, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save style guide")
	}
	logger.Info(ctx, "style guide generated", "project_id", project.ID, "prompt", string(id))
	return out, nil
}

func fallback(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
