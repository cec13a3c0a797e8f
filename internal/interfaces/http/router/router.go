// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"caption-story-api/internal/config"
	"caption-story-api/internal/interfaces/http/handler"
	"caption-story-api/internal/interfaces/http/middleware"
)

// Router HTTP 路由器
type Router struct {
	engine  *gin.Engine
	cfg     *config.Config
	caption *handler.CaptionHandler
	health  *handler.HealthHandler
	limiter middleware.RateLimiter
}

// New 创建新的路由器，limiter 为 nil 时不限流
func New(cfg *config.Config, caption *handler.CaptionHandler, health *handler.HealthHandler, limiter middleware.RateLimiter) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	// 文件上限由 CaptionHandler 控制，这里只限制内存中缓冲的部分
	engine.MaxMultipartMemory = cfg.Upload.MaxBytes

	r := &Router{
		engine:  engine,
		cfg:     cfg,
		caption: caption,
		health:  health,
		limiter: limiter,
	}

	r.setupMiddleware()
	r.setupRoutes()

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
		AllowedOrigins:   r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods:   r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders:   r.cfg.Security.CORS.AllowedHeaders,
		AllowCredentials: r.cfg.Security.CORS.AllowCredentials,
	}))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	// 系统端点
	r.engine.GET("/health", r.health.Health)
	r.engine.GET("/ready", r.health.Ready)
	r.engine.GET("/live", r.health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		path := r.cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	rateLimit := middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:   r.cfg.Security.RateLimit.Enabled,
		Limit:     r.cfg.Security.RateLimit.RequestsPerWindow,
		Window:    r.cfg.Security.RateLimit.Window,
		KeyPrefix: r.cfg.Security.RateLimit.KeyPrefix,
	}, r.limiter)

	r.engine.POST("/caption-image", rateLimit, r.caption.CaptionImage)
}
