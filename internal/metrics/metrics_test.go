package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"dining-menu/internal/core/menu"
)

func TestObserveDay(t *testing.T) {
	m := New()
	sections := []menu.MenuMealSection{
		{Type: menu.SlotLunch, Source: menu.SourceLive, Locations: []menu.MenuLocation{{
			Location: "Commons",
			Meals:    []menu.MenuMeal{{MealType: "lunch", Items: []menu.MenuItem{{Name: "Pasta"}, {Name: "Salad"}}}},
		}}},
		{Type: menu.SlotDinner},
	}
	m.ObserveDay(sections, 120*time.Millisecond)

	if got := testutil.ToFloat64(m.SlotResults.WithLabelValues("lunch", "live")); got != 1 {
		t.Errorf("lunch/live = %v", got)
	}
	if got := testutil.ToFloat64(m.SlotResults.WithLabelValues("dinner", "unavailable")); got != 1 {
		t.Errorf("dinner/unavailable = %v", got)
	}
	if got := testutil.ToFloat64(m.ItemsServed.WithLabelValues("lunch")); got != 2 {
		t.Errorf("lunch items = %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCheckout()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`dining_menu_cache_requests_total{result="hit"} 1`,
		`dining_menu_cache_requests_total{result="miss"} 1`,
		`dining_menu_plate_checkouts_total 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveCache(true)
	m.ObserveCheckout()
	m.ObserveDay(nil, time.Second)
}
