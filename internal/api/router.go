// Package api 組裝 HTTP 路由與中間件
package api

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dining-menu/internal/api/handlers/health"
	mcpHandler "dining-menu/internal/api/handlers/mcp"
	menuHandler "dining-menu/internal/api/handlers/menu"
	plateHandler "dining-menu/internal/api/handlers/plate"
	"dining-menu/internal/api/middleware"
	"dining-menu/internal/core/cache"
	"dining-menu/internal/core/dining"
	"dining-menu/internal/core/plate"
	"dining-menu/internal/core/queue"
	"dining-menu/internal/infrastructure/config"
	"dining-menu/internal/metrics"
	"dining-menu/internal/pkg/common"
	"dining-menu/internal/storage"
)

// 單一請求的處理上限
const timeoutDuration = 60 * time.Second

// Deps 路由所需的服務
type Deps struct {
	Config  *config.Config
	Menus   *dining.Service
	Queue   *queue.Manager
	Plates  *plate.Registry
	Store   storage.Store
	Cache   cache.Store
	Metrics *metrics.Metrics
}

// SetupRouter 設置路由
func SetupRouter(deps Deps) *gin.Engine {
	cfg := deps.Config
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger(deps.Metrics))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))
	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	router.Use(middleware.Deduplication(cfg.DedupWindow))
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	healthHandler := &health.Handler{
		Version: cfg.App.Version,
		Queue:   deps.Queue,
		Cache:   deps.Cache,
		Store:   deps.Store,
		Plates:  deps.Plates.Sessions,
	}
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	menus := menuHandler.NewHandler(deps.Menus, deps.Queue)
	plates := plateHandler.NewHandler(deps.Plates, deps.Store, deps.Metrics)
	tools := mcpHandler.NewHandler(deps.Menus, deps.Plates, deps.Store, plates)

	router.POST("/mcp", tools.HandleToolCall)

	api := router.Group("/api/v1")
	{
		menuGroup := api.Group("/menus")
		{
			menuGroup.GET("", menus.HandleDayMenu)
			menuGroup.GET("/search", menus.HandleSearch)
			menuGroup.POST("/refresh", menus.HandleRefresh)
		}

		plateGroup := api.Group("/plates/:session")
		{
			plateGroup.GET("", plates.HandleGetPlate)
			plateGroup.DELETE("", plates.HandleClear)
			plateGroup.POST("/items", plates.HandleAddItem)
			plateGroup.PATCH("/items/:id", plates.HandleUpdatePortion)
			plateGroup.DELETE("/items/:id", plates.HandleRemoveItem)
			plateGroup.POST("/checkout", plates.HandleCheckout)
		}

		api.GET("/athletes/:athlete/meals", plates.HandleListMealLogs)
		api.GET("/meal-logs/:id", plates.HandleGetMealLog)
	}

	common.LogInfo("Router setup completed",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Int64("max_body_bytes", cfg.Server.MaxBodyBytes),
	)
	return router
}
