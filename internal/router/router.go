package router

import (
	"retro/internal/app/board"
	"retro/internal/app/health"
	"retro/internal/config"
	"retro/internal/gateways/websocket"
	"retro/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(logger *zap.Logger, cfg *config.Config) *Router {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(middleware.CORSMiddleware(cfg.FrontendURLs))
	engine.Use(middleware.LoggerMiddleware(logger))
	engine.Use(gin.Recovery())
	return &Router{Engine: engine}
}

func (r *Router) RegisterHealthRoutes(handler health.Handler) {
	health.RegisterRoutes(r.Engine.Group("/api"), handler)
}

func (r *Router) RegisterBoardRoutes(handler board.Handler) {
	board.RegisterRoutes(r.Engine.Group("/api"), handler)
}

func (r *Router) RegisterWebSocketRoutes(handler *websocket.Handler) {
	websocket.RegisterRoutes(r.Engine, handler)
}

// RegisterMetricsRoutes exposes the given registry at /metrics.
func (r *Router) RegisterMetricsRoutes(gatherer prometheus.Gatherer) {
	r.Engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
