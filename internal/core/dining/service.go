// Package dining 當日菜單服務：抓取各餐段、整合、快取與搜尋
package dining

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"dining-menu/internal/core/cache"
	"dining-menu/internal/core/menu"
	"dining-menu/internal/core/reconcile"
	"dining-menu/internal/core/search"
	"dining-menu/internal/metrics"
	"dining-menu/internal/pkg/common"
)

// DayMenu 一天的菜單與整體狀態
type DayMenu struct {
	Date      string                 `json:"date"`
	Source    menu.Source            `json:"source"`
	Error     *string                `json:"error"`
	Sections  []menu.MenuMealSection `json:"sections"`
	FetchedAt time.Time              `json:"fetched_at"`
	Cached    bool                   `json:"cached"`
}

// ErrorMessage 回傳整體錯誤訊息，無錯誤時為空字串
func (d *DayMenu) ErrorMessage() string {
	if d.Error == nil {
		return ""
	}
	return *d.Error
}

// Service 當日菜單服務
type Service struct {
	reconciler *reconcile.Reconciler
	fetcher    reconcile.Fetcher
	cache      cache.Store
	index      *search.Index
	metrics    *metrics.Metrics
	slots      []menu.Slot
}

// Option 服務選項
type Option func(*Service)

// WithCache 使用快取；nil 代表停用
func WithCache(store cache.Store) Option {
	return func(s *Service) { s.cache = store }
}

// WithIndex 指定搜尋索引
func WithIndex(idx *search.Index) Option {
	return func(s *Service) {
		if idx != nil {
			s.index = idx
		}
	}
}

// WithMetrics 記錄 Prometheus 指標
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSlots 指定要抓取的餐段
func WithSlots(slots []menu.Slot) Option {
	return func(s *Service) {
		if len(slots) > 0 {
			s.slots = slots
		}
	}
}

// NewService 創建菜單服務
func NewService(reconciler *reconcile.Reconciler, fetcher reconcile.Fetcher, opts ...Option) *Service {
	s := &Service{
		reconciler: reconciler,
		fetcher:    fetcher,
		index:      search.NewIndex(nil),
		slots:      menu.DefaultSlots,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseSlots 解析設定中的餐段名稱，略過無法辨識的值
func ParseSlots(values []string) []menu.Slot {
	var slots []menu.Slot
	for _, v := range values {
		if slot, ok := menu.ParseSlot(v); ok {
			slots = append(slots, slot)
		}
	}
	return slots
}

// DayMenu 取得指定日期的菜單，優先使用快取
func (s *Service) DayMenu(ctx context.Context, date time.Time) (*DayMenu, error) {
	key := s.cacheKey(date)
	if day, ok := s.fromCache(ctx, key); ok {
		return day, nil
	}

	day := s.load(ctx, date)
	s.store(ctx, key, day)
	return day, nil
}

// Refresh 略過快取重新抓取並覆寫快取；所有餐段都沒有資料時回傳錯誤
func (s *Service) Refresh(ctx context.Context, date time.Time) error {
	day := s.load(ctx, date)
	if day.Source == menu.SourceNone {
		return common.ErrProviderUnavailable.Wrap(errors.New(day.ErrorMessage()))
	}
	s.store(ctx, s.cacheKey(date), day)
	return nil
}

// Search 搜尋指定日期的菜單
func (s *Service) Search(ctx context.Context, date time.Time, query string) ([]search.Result, error) {
	day, err := s.DayMenu(ctx, date)
	if err != nil {
		return nil, err
	}
	return s.index.Search(day.Sections, query), nil
}

// load 抓取並整合所有餐段
func (s *Service) load(ctx context.Context, date time.Time) *DayMenu {
	start := time.Now()
	sections := s.reconciler.FetchDay(ctx, s.fetcher, date, s.slots)
	source, message := reconcile.Aggregate(sections)
	elapsed := time.Since(start)

	s.metrics.ObserveDay(sections, elapsed)

	day := &DayMenu{
		Date:      date.Format(common.DateLayout),
		Source:    source,
		Sections:  sections,
		FetchedAt: time.Now().UTC(),
	}
	if message != "" {
		day.Error = &message
	}

	common.LogInfo("當日菜單已整合",
		zap.String("date", day.Date),
		zap.String("source", source.String()),
		zap.Int("sections", len(sections)),
		zap.Duration("elapsed", elapsed),
		zap.String("error", message),
	)
	return day
}

func (s *Service) cacheKey(date time.Time) string {
	names := make([]string, len(s.slots))
	for i, slot := range s.slots {
		names[i] = string(slot)
	}
	return fmt.Sprintf("day:%s:%s", date.Format(common.DateLayout), strings.Join(names, ","))
}

func (s *Service) fromCache(ctx context.Context, key string) (*DayMenu, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, common.ErrCacheMiss) {
			common.LogWarn("讀取快取失敗", zap.String("key", key), zap.Error(err))
		}
		s.metrics.ObserveCache(false)
		return nil, false
	}

	var day DayMenu
	if err := json.Unmarshal(data, &day); err != nil {
		common.LogWarn("快取內容無法解析", zap.String("key", key), zap.Error(err))
		s.metrics.ObserveCache(false)
		return nil, false
	}
	s.metrics.ObserveCache(true)
	day.Cached = true
	return &day, true
}

// store 只快取至少有一個餐段成功的結果
func (s *Service) store(ctx context.Context, key string, day *DayMenu) {
	if s.cache == nil || day.Source == menu.SourceNone {
		return
	}
	data, err := json.Marshal(day)
	if err != nil {
		common.LogWarn("菜單序列化失敗", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		common.LogWarn("寫入快取失敗", zap.String("key", key), zap.Error(err))
	}
}
