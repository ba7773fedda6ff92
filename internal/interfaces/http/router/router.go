// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ghostwriter-ai-api/internal/config"
	"ghostwriter-ai-api/internal/interfaces/http/handler"
	"ghostwriter-ai-api/internal/interfaces/http/middleware"
)

// Handlers 路由依赖的处理器
type Handlers struct {
	Health *handler.HealthHandler
	Book   *handler.BookHandler
}

// Router HTTP 路由器
type Router struct {
	engine  *gin.Engine
	cfg     *config.Config
	limiter middleware.RateLimiter
}

// New 创建路由器；limiter 为 nil 时不限流
func New(cfg *config.Config, h Handlers, limiter middleware.RateLimiter) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:  gin.New(),
		cfg:     cfg,
		limiter: limiter,
	}
	r.setupMiddleware()
	r.setupRoutes(h)
	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics("/health", "/ready", "/live", r.cfg.Observability.Metrics.Path))
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes(h Handlers) {
	if h.Health != nil {
		r.engine.GET("/health", h.Health.Health)
		r.engine.GET("/ready", h.Health.Ready)
		r.engine.GET("/live", h.Health.Live)
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	if h.Book == nil {
		return
	}

	// 调用模型的路由按项目限流
	costly := middleware.ProjectRateLimit(middleware.RateLimitConfig{
		Enabled:           r.cfg.Security.RateLimit.Enabled,
		RequestsPerMinute: r.cfg.Security.RateLimit.RequestsPerMinute,
		KeyPrefix:         r.cfg.App.Name + ":ratelimit",
	}, r.limiter)

	projects := r.engine.Group("/v1/projects/:pid")
	{
		projects.GET("/chapters", h.Book.ListChapters)
		projects.GET("/chapters/:n", h.Book.GetChapter)
		projects.POST("/chapters/:n/generate", costly, h.Book.GenerateChapter)
		projects.POST("/chapters/:n/suggestions", costly, h.Book.ApplySuggestion)
		projects.PUT("/chapters/:n/content", h.Book.UpdateContent)
		projects.POST("/chapters/:n/undo", h.Book.UndoEdit)

		projects.POST("/consistency-checks", costly, h.Book.RunConsistencyCheck)
		projects.GET("/consistency-checks/latest", h.Book.LatestReport)

		projects.POST("/reference-documents", h.Book.UploadReference)
		projects.POST("/style-guide", costly, h.Book.GenerateStyleGuide)
		projects.GET("/export", h.Book.Export)
	}
}
