package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/game-catalog/internal/config"
	apperrors "github.com/wfunc/game-catalog/internal/errors"
	"github.com/wfunc/game-catalog/internal/middleware"
	"github.com/wfunc/game-catalog/internal/service"
	"go.uber.org/zap"
)

// Router API路由器
type Router struct {
	engine      *gin.Engine
	services    *service.Services
	gameHandler *GameHandler
	static      *staticFiles
	openAPIFile string
	log         *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(services *service.Services, cfg config.ServerConfig, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}

	// 创建Gin引擎
	engine := gin.New()

	// 全局中间件
	engine.Use(middleware.RequestID())
	engine.Use(middleware.AccessLog(log.Named("http")))
	engine.Use(middleware.Recovery(log))

	router := &Router{
		engine:      engine,
		services:    services,
		gameHandler: NewGameHandler(services.Game, log),
		static:      newStaticFiles(cfg.StaticDir),
		openAPIFile: cfg.OpenAPIFile,
		log:         log,
	}

	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	games := r.engine.Group("/api/games")
	{
		games.GET("", r.gameHandler.List)
		games.POST("", r.gameHandler.Create)
		games.POST("/search", r.gameHandler.Search)
		games.POST("/populate", r.gameHandler.Populate)
		games.PUT("/:id", r.gameHandler.Update)
		games.DELETE("/:id", r.gameHandler.Delete)
	}

	registerOpenAPIRoutes(r.engine, r.openAPIFile)
	registerSwaggerRoutes(r.engine)

	// 静态文件兜底，找不到时返回404
	r.engine.NoRoute(func(c *gin.Context) {
		if r.static.serve(c) {
			return
		}
		respondError(c, apperrors.New(apperrors.ErrNotFound, "接口不存在"))
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := r.services.Repos.Ping(ctx); err != nil {
		r.log.Warn("健康检查失败", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// Handler 返回http.Handler
func (r *Router) Handler() http.Handler {
	return r.engine
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
