// Package health 健康、就緒與存活檢查
package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dining-menu/internal/core/queue"
	"dining-menu/internal/pkg/common"
)

// Pinger 可檢查連線的依賴
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsProvider 提供統計資訊的依賴
type StatsProvider interface {
	Stats() map[string]interface{}
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Queue     *queue.Status          `json:"queue,omitempty"`
	Cache     map[string]interface{} `json:"cache,omitempty"`
	Plates    int                    `json:"open_plates"`
}

// ReadyResponse 就緒檢查響應
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Handler 健康檢查處理程序
type Handler struct {
	Version string
	Queue   *queue.Manager
	Cache   StatsProvider
	Store   Pinger
	Plates  func() int
	Timeout time.Duration
}

// HealthCheck GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}
	if h.Queue != nil {
		resp.Queue = h.Queue.GetQueueStatus()
	}
	if h.Cache != nil {
		resp.Cache = h.Cache.Stats()
	}
	if h.Plates != nil {
		resp.Plates = h.Plates()
	}

	common.LogDebug("Health check request", zap.String("client_ip", c.ClientIP()))
	c.JSON(http.StatusOK, resp)
}

// ReadinessCheck GET /ready：餐點紀錄資料庫可連線且刷新隊列未關閉
func (h *Handler) ReadinessCheck(c *gin.Context) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	checks := map[string]string{}
	ready := true

	if h.Store != nil {
		if err := h.Store.Ping(ctx); err != nil {
			common.LogWarn("Store not ready", zap.Error(err))
			checks["store"] = err.Error()
			ready = false
		} else {
			checks["store"] = "ok"
		}
	}
	if h.Queue != nil {
		if h.Queue.GetQueueStatus().Closed {
			checks["queue"] = "closed"
			ready = false
		} else {
			checks["queue"] = "ok"
		}
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, ReadyResponse{Status: "not_ready", Checks: checks})
		return
	}
	c.JSON(http.StatusOK, ReadyResponse{Status: "ready", Checks: checks})
}

// LivenessCheck GET /live
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
