// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"ghostwriter-ai-api/internal/application/book/chapter"
	"ghostwriter-ai-api/internal/application/book/consistency"
	"ghostwriter-ai-api/internal/application/book/generation"
	"ghostwriter-ai-api/internal/application/book/manuscript"
	"ghostwriter-ai-api/internal/application/book/promptctx"
	"ghostwriter-ai-api/internal/application/book/styleguide"
	"ghostwriter-ai-api/internal/application/book/suggestion"
	"ghostwriter-ai-api/internal/config"
	"ghostwriter-ai-api/internal/domain/entity"
	"ghostwriter-ai-api/internal/domain/repository"
	"ghostwriter-ai-api/internal/domain/service"
	"ghostwriter-ai-api/internal/infrastructure/document"
	"ghostwriter-ai-api/internal/infrastructure/llm"
	"ghostwriter-ai-api/internal/infrastructure/lock"
	"ghostwriter-ai-api/internal/infrastructure/persistence/postgres"
	"ghostwriter-ai-api/internal/infrastructure/persistence/redis"
	"ghostwriter-ai-api/internal/interfaces/http/handler"
	"ghostwriter-ai-api/internal/interfaces/http/middleware"
	"ghostwriter-ai-api/internal/workflow/port"
	"ghostwriter-ai-api/internal/workflow/prompt"
	"ghostwriter-ai-api/pkg/logger"
)

// PostgresOnlyDataLayer 仅包含 PostgreSQL 的数据层（用于 bootstrap）
type PostgresOnlyDataLayer struct {
	PgClient    *postgres.Client
	TxManager   *postgres.TxManager
	ProjectRepo *postgres.ProjectRepository
	OutlineRepo *postgres.OutlineRepository
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClientOptional 未启用或不可达时返回 nil
func ProvideRedisClientOptional(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		logger.Info(ctx, "redis disabled, using in-process chapter lock")
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Warn(ctx, "redis not available, using in-process chapter lock", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideLocker 章节生成锁
func ProvideLocker(cfg *config.Config, client *redis.Client) service.Locker {
	if client == nil {
		return lock.NewLocalLocker()
	}
	return redis.NewLocker(client, cfg.App.Name+":lock")
}

// ProvideRateLimiter 没有 Redis 时返回 nil，路由不限流
func ProvideRateLimiter(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return redis.NewRateLimiter(client)
}

func ProvideLLMFactory(cfg *config.Config) *llm.Factory {
	return llm.NewFactory(&cfg.LLM)
}

func ProvideGenerationClient(cfg *config.Config, factory port.TextGeneratorFactory) *generation.Client {
	return generation.NewClient(factory, cfg.Generation)
}

// ProvideGenerationDefaults 项目未配置时使用的生成参数
func ProvideGenerationDefaults(cfg *config.Config) entity.AIConfig {
	return entity.AIConfig{
		Provider:              cfg.LLM.DefaultProvider,
		Model:                 cfg.Generation.DefaultModel,
		MaxOutputTokens:       cfg.Generation.MaxOutputTokens,
		TargetWordsPerChapter: cfg.Generation.TargetWordsPerChapter,
	}
}

func ProvideChecker(
	gen *generation.Client,
	prompts *prompt.Registry,
	projects repository.ProjectRepository,
	outlines repository.OutlineRepository,
	chapters repository.ChapterRepository,
	reports repository.ConsistencyReportRepository,
	recorder service.LLMUsageRecorder,
	defaults entity.AIConfig,
) *consistency.Checker {
	return consistency.NewChecker(consistency.Deps{
		Generator: gen,
		Prompts:   prompts,
		Projects:  projects,
		Outlines:  outlines,
		Chapters:  chapters,
		Reports:   reports,
		Recorder:  recorder,
		Defaults:  defaults,
	})
}

func ProvideStyleGuideGenerator(
	gen *generation.Client,
	prompts *prompt.Registry,
	projects repository.ProjectRepository,
	documents repository.ReferenceDocumentRepository,
	recorder service.LLMUsageRecorder,
	defaults entity.AIConfig,
) *styleguide.Generator {
	return styleguide.NewGenerator(styleguide.Deps{
		Generator: gen,
		Prompts:   prompts,
		Projects:  projects,
		Documents: documents,
		Recorder:  recorder,
		Defaults:  defaults,
	})
}

func ProvideApplier(
	cfg *config.Config,
	gen *generation.Client,
	prompts *prompt.Registry,
	projects repository.ProjectRepository,
	chapters repository.ChapterRepository,
	reports repository.ConsistencyReportRepository,
	tx repository.Transactor,
	locker service.Locker,
	recorder service.LLMUsageRecorder,
	defaults entity.AIConfig,
) *suggestion.Applier {
	threshold := cfg.Generation.ConfidenceThreshold
	if threshold <= 0 {
		threshold = suggestion.DefaultConfidenceThreshold
	}
	return suggestion.NewApplier(suggestion.Deps{
		Generator: gen,
		Prompts:   prompts,
		Projects:  projects,
		Chapters:  chapters,
		Reports:   reports,
		Tx:        tx,
		Locker:    locker,
		LockTTL:   cfg.Generation.LockTTL,
		Recorder:  recorder,
		Policy:    suggestion.ConfidencePolicy{Threshold: threshold},
		Defaults:  defaults,
	})
}

func ProvideOrchestrator(
	cfg *config.Config,
	gen *generation.Client,
	prompts *prompt.Registry,
	contexts *promptctx.Builder,
	checker *consistency.Checker,
	guides *styleguide.Generator,
	projects repository.ProjectRepository,
	outlines repository.OutlineRepository,
	chapters repository.ChapterRepository,
	reports repository.ConsistencyReportRepository,
	tx repository.Transactor,
	locker service.Locker,
	recorder service.LLMUsageRecorder,
	defaults entity.AIConfig,
) *chapter.Orchestrator {
	return chapter.NewOrchestrator(chapter.Deps{
		Generator:         gen,
		Prompts:           prompts,
		Contexts:          contexts,
		Checker:           checker,
		StyleGuides:       guides,
		Projects:          projects,
		Outlines:          outlines,
		Chapters:          chapters,
		Reports:           reports,
		Tx:                tx,
		Locker:            locker,
		Recorder:          recorder,
		Defaults:          defaults,
		LockTTL:           cfg.Generation.LockTTL,
		QuickCheckEnabled: cfg.Generation.QuickCheckEnabled,
	})
}

func ProvideExtractor(cfg *config.Config) *document.Extractor {
	return document.NewExtractor(int(cfg.Server.HTTP.MaxUploadBytes))
}

func ProvideManuscriptService(
	projects repository.ProjectRepository,
	chapters repository.ChapterRepository,
	documents repository.ReferenceDocumentRepository,
	extractor service.TextExtractor,
	exporter service.ManuscriptExporter,
) *manuscript.Service {
	return manuscript.NewService(manuscript.Deps{
		Projects:  projects,
		Chapters:  chapters,
		Documents: documents,
		Extractor: extractor,
		Exporter:  exporter,
	})
}

// ProvideHealthHandler PostgreSQL 为必需依赖，Redis 可选
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, rc *redis.Client) *handler.HealthHandler {
	var redisPinger handler.Pinger
	if rc != nil {
		redisPinger = rc
	}
	return handler.NewHealthHandler(cfg.App.Version,
		handler.Dependency{Name: "postgres", Pinger: pg, Required: true},
		handler.Dependency{Name: "redis", Pinger: redisPinger},
	)
}

func ProvideBookHandler(
	cfg *config.Config,
	orchestrator *chapter.Orchestrator,
	applier *suggestion.Applier,
	checker *consistency.Checker,
	manuscripts *manuscript.Service,
	guides *styleguide.Generator,
) *handler.BookHandler {
	return handler.NewBookHandler(handler.BookHandlerDeps{
		Chapters:       orchestrator,
		Suggestions:    applier,
		Checker:        checker,
		Manuscripts:    manuscripts,
		StyleGuides:    guides,
		MaxUploadBytes: cfg.Server.HTTP.MaxUploadBytes,
	})
}
