//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"ghostwriter-ai-api/internal/application/audit"
	"ghostwriter-ai-api/internal/application/book/promptctx"
	"ghostwriter-ai-api/internal/config"
	"ghostwriter-ai-api/internal/domain/repository"
	"ghostwriter-ai-api/internal/domain/service"
	"ghostwriter-ai-api/internal/infrastructure/document"
	"ghostwriter-ai-api/internal/infrastructure/llm"
	"ghostwriter-ai-api/internal/infrastructure/persistence/postgres"
	"ghostwriter-ai-api/internal/interfaces/http/router"
	"ghostwriter-ai-api/internal/workflow/port"
	"ghostwriter-ai-api/internal/workflow/prompt"
)

// InitializePostgresOnly 仅初始化 PostgreSQL 数据层（用于 bootstrap）
func InitializePostgresOnly(ctx context.Context, cfg *config.Config) (*PostgresOnlyDataLayer, func(), error) {
	wire.Build(
		PostgresSet,
		wire.Struct(new(PostgresOnlyDataLayer), "*"),
	)
	return nil, nil, nil
}

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		LLMSet,
		BookSet,
		RouterSet,
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewProjectRepository,
	postgres.NewOutlineRepository,
	postgres.NewChapterRepository,
	postgres.NewConsistencyReportRepository,
	postgres.NewGenerationLogRepository,
	postgres.NewReferenceDocumentRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.ProjectRepository), new(*postgres.ProjectRepository)),
	wire.Bind(new(repository.OutlineRepository), new(*postgres.OutlineRepository)),
	wire.Bind(new(repository.ChapterRepository), new(*postgres.ChapterRepository)),
	wire.Bind(new(repository.ConsistencyReportRepository), new(*postgres.ConsistencyReportRepository)),
	wire.Bind(new(repository.GenerationLogRepository), new(*postgres.GenerationLogRepository)),
	wire.Bind(new(repository.ReferenceDocumentRepository), new(*postgres.ReferenceDocumentRepository)),
)

// RedisSet Redis 可选：不可用时锁退化为进程内锁、限流关闭
var RedisSet = wire.NewSet(
	ProvideRedisClientOptional,
	ProvideLocker,
	ProvideRateLimiter,
)

// LLMSet 模型调用相关提供者集合
var LLMSet = wire.NewSet(
	ProvideLLMFactory,
	wire.Bind(new(port.TextGeneratorFactory), new(*llm.Factory)),
	ProvideGenerationClient,
	prompt.NewRegistry,
	audit.NewLLMUsageRecorder,
	wire.Bind(new(service.LLMUsageRecorder), new(*audit.LLMUsageRecorder)),
)

// BookSet 书稿生成用例集合
var BookSet = wire.NewSet(
	ProvideGenerationDefaults,
	promptctx.NewBuilder,
	ProvideChecker,
	ProvideStyleGuideGenerator,
	ProvideApplier,
	ProvideOrchestrator,
	ProvideExtractor,
	document.NewExporter,
	wire.Bind(new(service.TextExtractor), new(*document.Extractor)),
	wire.Bind(new(service.ManuscriptExporter), new(*document.Exporter)),
	ProvideManuscriptService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	ProvideBookHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
