// Package queue 菜單刷新隊列：有界佇列加固定數量的 worker
package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"dining-menu/internal/infrastructure/config"
	"dining-menu/internal/pkg/common"
)

// RefreshFunc 重新抓取並快取指定日期的菜單
type RefreshFunc func(ctx context.Context, date time.Time) error

// Request 隊列請求
type Request struct {
	ID     string
	Date   time.Time
	Result chan Result
}

// Result 處理結果
type Result struct {
	ID    string
	Date  time.Time
	Error error
}

// Status 隊列狀態
type Status struct {
	QueueLength    int  `json:"queue_length"`
	ProcessedCount int  `json:"processed_count"`
	FailedCount    int  `json:"failed_count"`
	MaxQueueSize   int  `json:"max_queue_size"`
	Workers        int  `json:"workers"`
	Closed         bool `json:"closed"`
}

// Manager 隊列管理器
type Manager struct {
	cfg       config.QueueConfig
	refresh   RefreshFunc
	timeout   time.Duration
	queue     chan *Request
	done      chan struct{}
	wg        sync.WaitGroup
	processed int64
	failed    int64
	mu        sync.RWMutex
	closed    bool
}

// NewManager 創建新的隊列管理器；timeout 為單一刷新工作的上限
func NewManager(cfg config.QueueConfig, refresh RefreshFunc, timeout time.Duration) *Manager {
	return &Manager{
		cfg:     cfg,
		refresh: refresh,
		timeout: timeout,
		queue:   make(chan *Request, cfg.MaxSize),
		done:    make(chan struct{}),
	}
}

// Start 啟動 worker
func (m *Manager) Start() {
	for i := 0; i < m.cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}
	common.LogInfo("刷新隊列已啟動",
		zap.Int("workers", m.cfg.Workers),
		zap.Int("max_queue_size", m.cfg.MaxSize),
	)
}

// worker 處理隊列中的請求，隊列關閉後結束
func (m *Manager) worker(id int) {
	defer m.wg.Done()
	for req := range m.queue {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		err := m.refresh(ctx, req.Date)
		cancel()

		atomic.AddInt64(&m.processed, 1)
		if err != nil {
			atomic.AddInt64(&m.failed, 1)
			common.LogError("菜單刷新失敗",
				zap.Int("worker", id),
				zap.String("request_id", req.ID),
				zap.String("date", req.Date.Format(common.DateLayout)),
				zap.Error(err),
			)
		} else {
			common.LogInfo("菜單已刷新",
				zap.Int("worker", id),
				zap.String("request_id", req.ID),
				zap.String("date", req.Date.Format(common.DateLayout)),
			)
		}
		req.Result <- Result{ID: req.ID, Date: req.Date, Error: err}
	}
}

// Enqueue 將刷新請求加入隊列，回傳可等待結果的 channel
func (m *Manager) Enqueue(ctx context.Context, date time.Time) (*Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, common.ErrQueueClosed
	}

	// 檢查隊列容量
	if len(m.queue) >= m.cfg.MaxSize {
		return nil, common.ErrQueueFull.Wrap(fmt.Errorf("%d requests waiting", len(m.queue)))
	}

	req := &Request{
		ID:     common.GenerateUUID(),
		Date:   date,
		Result: make(chan Result, 1),
	}

	// 加入隊列
	select {
	case m.queue <- req:
		common.LogInfo("Refresh enqueued",
			zap.String("request_id", req.ID),
			zap.Int("queue_length", len(m.queue)),
			zap.Int("max_queue_size", m.cfg.MaxSize),
		)
		return req, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.done:
		return nil, common.ErrQueueClosed
	}
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return &Status{
		QueueLength:    len(m.queue),
		ProcessedCount: int(atomic.LoadInt64(&m.processed)),
		FailedCount:    int(atomic.LoadInt64(&m.failed)),
		MaxQueueSize:   m.cfg.MaxSize,
		Workers:        m.cfg.Workers,
		Closed:         m.closed,
	}
}

// Close 停止接收新請求，等待已排入的請求處理完畢
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.done)
	close(m.queue)
	m.mu.Unlock()

	m.wg.Wait()
	common.LogInfo("刷新隊列已關閉", zap.Int64("processed", atomic.LoadInt64(&m.processed)))
}
