package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"dining-menu/internal/api"
	"dining-menu/internal/core/cache"
	"dining-menu/internal/core/dining"
	"dining-menu/internal/core/htmlmenu"
	"dining-menu/internal/core/plate"
	"dining-menu/internal/core/provider"
	"dining-menu/internal/core/queue"
	"dining-menu/internal/core/reconcile"
	"dining-menu/internal/core/search"
	"dining-menu/internal/infrastructure/config"
	"dining-menu/internal/metrics"
	"dining-menu/internal/pkg/common"
	"dining-menu/internal/storage"
)

func main() {
	// 載入設定（含可選的 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogDir); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("provider_url", cfg.Provider.BaseURL),
		zap.String("provider_api_key", config.MaskAPIKey(cfg.Provider.APIKey)),
		zap.Strings("slots", cfg.Provider.Slots),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.String("db_path", cfg.Storage.DBPath),
	)

	ctx := context.Background()

	// 初始化快取
	menuCache, err := cache.New(ctx, cfg.Cache, cfg.Redis)
	if err != nil {
		common.LogFatal("Failed to initialize cache", zap.Error(err))
	}

	// 初始化餐點紀錄資料庫
	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		common.LogFatal("Failed to open meal log store", zap.Error(err))
	}

	m := metrics.New()

	// 菜單來源：未設定供應商時只使用範例菜單
	var fetcher reconcile.Fetcher = provider.Offline{}
	if cfg.Provider.BaseURL != "" {
		fetcher = provider.NewClient(cfg.Provider)
	} else {
		common.LogWarn("Menu provider not configured, serving sample menus")
	}

	parser := htmlmenu.NewParser(htmlmenu.Keywords{
		Locations: cfg.Parser.LocationKeywords,
		Meals:     cfg.Parser.MealKeywords,
	})
	reconciler := reconcile.New(
		reconcile.WithParser(parser),
		reconcile.WithSlotTimeout(cfg.Provider.SlotTimeout),
	)

	var index *search.Index
	if len(cfg.Search.AliasGroups) > 0 {
		index = search.NewIndex(search.ParseAliasGroups(cfg.Search.AliasGroups))
	}

	opts := []dining.Option{dining.WithMetrics(m), dining.WithIndex(index)}
	if menuCache != nil {
		opts = append(opts, dining.WithCache(menuCache))
	}
	if slots := dining.ParseSlots(cfg.Provider.Slots); len(slots) > 0 {
		opts = append(opts, dining.WithSlots(slots))
	}
	menus := dining.NewService(reconciler, fetcher, opts...)

	// 刷新隊列，單次刷新最多等所有餐段逾時加上緩衝
	refreshTimeout := cfg.Provider.SlotTimeout + 10*time.Second
	refreshQueue := queue.NewManager(cfg.Queue, menus.Refresh, refreshTimeout)
	refreshQueue.Start()

	router := api.SetupRouter(api.Deps{
		Config:  cfg,
		Menus:   menus,
		Queue:   refreshQueue,
		Plates:  plate.NewRegistry(),
		Store:   store,
		Cache:   menuCache,
		Metrics: m,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("name", cfg.App.Name),
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	refreshQueue.Close()
	if menuCache != nil {
		if err := menuCache.Close(); err != nil {
			common.LogWarn("Failed to close cache", zap.Error(err))
		}
	}
	if err := store.Close(); err != nil {
		common.LogWarn("Failed to close meal log store", zap.Error(err))
	}

	common.LogInfo("Server exited")
}
