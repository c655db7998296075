// Package reconcile 依餐段整合供應商回應、HTML 解析結果與範例菜單
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"dining-menu/internal/core/htmlmenu"
	"dining-menu/internal/core/menu"
	"dining-menu/internal/pkg/common"
)

// DefaultSlotTimeout 單一餐段請求的預設逾時
const DefaultSlotTimeout = 10 * time.Second

// ErrSlotAborted 餐段請求未正常完成
var ErrSlotAborted = errors.New("slot fetch aborted")

// Fetcher 取得單一餐段的供應商回應
type Fetcher interface {
	FetchSlot(ctx context.Context, date time.Time, slot menu.Slot) (*menu.ProviderResponse, error)
}

// FetcherFunc 讓函式實作 Fetcher
type FetcherFunc func(ctx context.Context, date time.Time, slot menu.Slot) (*menu.ProviderResponse, error)

// FetchSlot 實作 Fetcher
func (f FetcherFunc) FetchSlot(ctx context.Context, date time.Time, slot menu.Slot) (*menu.ProviderResponse, error) {
	return f(ctx, date, slot)
}

// SlotResult 單一餐段的請求結果
type SlotResult struct {
	Slot     menu.Slot
	Response *menu.ProviderResponse
	Err      error
}

// Reconciler 餐段整合器，建立後唯讀
type Reconciler struct {
	parser      *htmlmenu.Parser
	samples     Samples
	slotTimeout time.Duration
}

// Option 設定選項
type Option func(*Reconciler)

// WithParser 指定 HTML 解析器
func WithParser(p *htmlmenu.Parser) Option {
	return func(r *Reconciler) {
		if p != nil {
			r.parser = p
		}
	}
}

// WithSamples 指定範例菜單；傳入 nil 代表不使用範例
func WithSamples(s Samples) Option {
	return func(r *Reconciler) {
		r.samples = s
	}
}

// WithSlotTimeout 指定單一餐段逾時
func WithSlotTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.slotTimeout = d
		}
	}
}

// New 建立整合器，預設使用內嵌範例菜單
func New(opts ...Option) *Reconciler {
	r := &Reconciler{
		parser:      htmlmenu.NewParser(htmlmenu.DefaultKeywords()),
		samples:     DefaultSamples(),
		slotTimeout: DefaultSlotTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FallbackMessage 使用範例菜單時的說明
func FallbackMessage(slot menu.Slot) string {
	return fmt.Sprintf("Live %s menu unavailable; showing sample menu.", slot)
}

// EmptyMessage 沒有任何菜色時的說明
func EmptyMessage(slot menu.Slot) string {
	return fmt.Sprintf("No %s items found.", slot)
}

// ReconcileSlot 整合單一餐段：結構化 JSON 優先，其次 HTML，皆無菜色時改用範例菜單
func (r *Reconciler) ReconcileSlot(slot menu.Slot, date time.Time, resp *menu.ProviderResponse, fetchErr error) menu.MenuMealSection {
	section := menu.MenuMealSection{
		Type:      slot,
		Label:     slot.Label(),
		Locations: []menu.MenuLocation{},
	}

	if fetchErr != nil {
		section.Error = fetchErr.Error()
		return section
	}
	if resp == nil {
		resp = &menu.ProviderResponse{}
	}

	var locations []menu.MenuLocation
	switch {
	case len(resp.Menu) > 0:
		locations = menu.NormalizeLocations(resp.Menu)
	case strings.TrimSpace(resp.HTML) != "":
		locations = r.parser.Parse(resp.HTML, htmlmenu.DateContext{Date: date})
	}

	if menu.CountItems(locations) > 0 {
		section.Locations = locations
		section.Source = resp.Source
		if section.Source == menu.SourceNone {
			section.Source = menu.SourceLive
		}
		section.Error = strings.TrimSpace(resp.Error)
		return section
	}

	fallback := resp.FallbackMenu
	if len(fallback) == 0 {
		fallback = r.samples[slot]
	}
	if fb := menu.NormalizeLocations(fallback); menu.CountItems(fb) > 0 {
		section.Locations = fb
		section.Source = menu.SourceFallback
		section.Error = joinMessages(FallbackMessage(slot), resp.Error)
		return section
	}

	section.Error = joinMessages(EmptyMessage(slot), resp.Error)
	return section
}

// Reconcile 依輸入順序整合每個餐段
func (r *Reconciler) Reconcile(date time.Time, results []SlotResult) []menu.MenuMealSection {
	sections := make([]menu.MenuMealSection, len(results))
	for i, res := range results {
		sections[i] = r.ReconcileSlot(res.Slot, date, res.Response, res.Err)
	}
	return sections
}

// FetchDay 並行取得各餐段並整合；單一餐段失敗或逾時不影響其他餐段
func (r *Reconciler) FetchDay(ctx context.Context, fetcher Fetcher, date time.Time, slots []menu.Slot) []menu.MenuMealSection {
	if len(slots) == 0 {
		slots = menu.DefaultSlots
	}

	results := make([]SlotResult, len(slots))
	var wg conc.WaitGroup
	for i, slot := range slots {
		i, slot := i, slot
		results[i] = SlotResult{Slot: slot, Err: ErrSlotAborted}
		wg.Go(func() {
			sctx, cancel := context.WithTimeout(ctx, r.slotTimeout)
			defer cancel()

			start := time.Now()
			resp, err := fetcher.FetchSlot(sctx, date, slot)
			common.LogProviderCall(string(slot), time.Since(start), err)
			results[i] = SlotResult{Slot: slot, Response: resp, Err: err}
		})
	}
	if recovered := wg.WaitAndRecover(); recovered != nil {
		common.LogError("餐段請求發生 panic", zap.String("panic", recovered.String()))
	}

	return r.Reconcile(date, results)
}

// Aggregate 彙整各餐段狀態：來源一致時回傳該來源，不一致為 mixed，全部失敗為 null。
// 錯誤訊息為各餐段標籤加上錯誤，以空白串接。
func Aggregate(sections []menu.MenuMealSection) (menu.Source, string) {
	var sources []menu.Source
	var messages []string
	for _, s := range sections {
		if s.Source != menu.SourceNone && !containsSource(sources, s.Source) {
			sources = append(sources, s.Source)
		}
		if msg := strings.TrimSpace(s.Error); msg != "" {
			messages = append(messages, s.Label+": "+msg)
		}
	}

	var source menu.Source
	switch len(sources) {
	case 0:
		source = menu.SourceNone
	case 1:
		source = sources[0]
	default:
		source = menu.SourceMixed
	}
	return source, strings.Join(messages, " ")
}

func containsSource(list []menu.Source, s menu.Source) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func joinMessages(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
