package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"dining-menu/internal/core/cache"
	"dining-menu/internal/core/dining"
	"dining-menu/internal/core/menu"
	"dining-menu/internal/core/plate"
	"dining-menu/internal/core/queue"
	"dining-menu/internal/core/reconcile"
	"dining-menu/internal/infrastructure/config"
	"dining-menu/internal/metrics"
	"dining-menu/internal/storage"
)

func lunch() *menu.ProviderResponse {
	return &menu.ProviderResponse{
		Source: menu.SourceLive,
		Menu: []menu.RawLocation{{
			Location: "Commons",
			Meals: []menu.RawMeal{{MealType: "Lunch", Items: []menu.RawItem{
				{Name: "Grilled Salmon", Calories: "350", NutritionFacts: []menu.RawFact{{Name: "Protein", Amount: 30.0, Unit: "g"}}},
				{Name: "Caesar Salad", Calories: 220.0},
			}}},
		}},
	}
}

type testServer struct {
	router *gin.Engine
	store  storage.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		App:         config.AppConfig{Debug: true, Version: "test"},
		Server:      config.ServerConfig{MaxBodyBytes: 1 << 20},
		DedupWindow: time.Second,
	}

	fetcher := reconcile.FetcherFunc(func(ctx context.Context, date time.Time, slot menu.Slot) (*menu.ProviderResponse, error) {
		if slot == menu.SlotLunch {
			return lunch(), nil
		}
		return nil, errors.New("connection refused")
	})

	m := metrics.New()
	menuCache := cache.NewManager(config.CacheConfig{Enabled: true, MaxSize: 8, TTL: time.Minute})
	t.Cleanup(func() { menuCache.Close() })

	store, err := storage.Open(filepath.Join(t.TempDir(), "meal_log.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc := dining.NewService(
		reconcile.New(reconcile.WithSamples(nil)),
		fetcher,
		dining.WithCache(menuCache),
		dining.WithMetrics(m),
		dining.WithSlots([]menu.Slot{menu.SlotLunch, menu.SlotDinner}),
	)
	q := queue.NewManager(config.QueueConfig{Workers: 1, MaxSize: 4}, svc.Refresh, 5*time.Second)
	q.Start()
	t.Cleanup(q.Close)

	router := SetupRouter(Deps{
		Config:  cfg,
		Menus:   svc,
		Queue:   q,
		Plates:  plate.NewRegistry(),
		Store:   store,
		Cache:   menuCache,
		Metrics: m,
	})
	return &testServer{router: router, store: store}
}

func (s *testServer) do(t *testing.T, method, path, body string, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func TestDayMenuEndpoint(t *testing.T) {
	s := newTestServer(t)

	var resp struct {
		Date     string  `json:"date"`
		Source   *string `json:"source"`
		Error    *string `json:"error"`
		Cached   bool    `json:"cached"`
		Sections []struct {
			Type      string  `json:"type"`
			Source    *string `json:"source"`
			Error     *string `json:"error"`
			Locations []struct {
				Location  string `json:"location"`
				ItemCount int    `json:"item_count"`
				Meals     []struct {
					Items []struct {
						Name          string   `json:"name"`
						Calories      *float64 `json:"calories"`
						CaloriesKnown bool     `json:"calories_known"`
						ProteinG      *float64 `json:"protein_g"`
					} `json:"items"`
				} `json:"meals"`
			} `json:"locations"`
		} `json:"sections"`
	}
	w := s.do(t, http.MethodGet, "/api/v1/menus?date=2025-03-03", "", &resp)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if resp.Date != "2025-03-03" || resp.Source == nil || *resp.Source != "live" {
		t.Errorf("date = %q source = %v", resp.Date, resp.Source)
	}
	if resp.Error == nil || !strings.Contains(*resp.Error, "connection refused") {
		t.Errorf("error = %v", resp.Error)
	}
	if len(resp.Sections) != 2 {
		t.Fatalf("sections = %d", len(resp.Sections))
	}
	dinner := resp.Sections[1]
	if dinner.Type != "dinner" || dinner.Source != nil || dinner.Error == nil || len(dinner.Locations) != 0 {
		t.Errorf("dinner = %+v", dinner)
	}

	loc := resp.Sections[0].Locations[0]
	if loc.ItemCount != 2 {
		t.Errorf("item_count = %d", loc.ItemCount)
	}
	salmon := loc.Meals[0].Items[0]
	if salmon.Name != "Grilled Salmon" || salmon.Calories == nil || *salmon.Calories != 350 || !salmon.CaloriesKnown {
		t.Errorf("salmon = %+v", salmon)
	}
	if salmon.ProteinG == nil || *salmon.ProteinG != 30 {
		t.Errorf("salmon protein = %v", salmon.ProteinG)
	}

	s.do(t, http.MethodGet, "/api/v1/menus?date=2025-03-03", "", &resp)
	if !resp.Cached {
		t.Error("second request should be served from cache")
	}
}

func TestDayMenuInvalidDate(t *testing.T) {
	s := newTestServer(t)
	var body errorBody
	w := s.do(t, http.MethodGet, "/api/v1/menus?date=03/03/2025", "", &body)
	if w.Code != http.StatusBadRequest || body.Code != "INVALID_REQUEST" {
		t.Errorf("status = %d body = %+v", w.Code, body)
	}
}

func TestSearchEndpoint(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		query string
		want  []string
	}{
		{query: "salmon", want: []string{"Grilled Salmon"}},
		{query: "COMMONS", want: []string{"Caesar Salad", "Grilled Salmon"}},
		{query: "pizza", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var resp struct {
				Count   int `json:"count"`
				Results []struct {
					SectionType string `json:"section_type"`
					Item        struct {
						Name string `json:"name"`
					} `json:"item"`
				} `json:"results"`
			}
			w := s.do(t, http.MethodGet, "/api/v1/menus/search?date=2025-03-03&q="+tt.query, "", &resp)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			if resp.Count != len(tt.want) || len(resp.Results) != len(tt.want) {
				t.Fatalf("count = %d, want %d", resp.Count, len(tt.want))
			}
			for i, name := range tt.want {
				if resp.Results[i].Item.Name != name || resp.Results[i].SectionType != "lunch" {
					t.Errorf("results[%d] = %+v", i, resp.Results[i])
				}
			}
		})
	}
}

func TestRefreshEndpoint(t *testing.T) {
	s := newTestServer(t)

	var resp struct {
		RequestID string `json:"request_id"`
		Status    string `json:"status"`
	}
	w := s.do(t, http.MethodPost, "/api/v1/menus/refresh", `{"date":"2025-03-03","wait":true}`, &resp)
	if w.Code != http.StatusOK || resp.Status != "done" || resp.RequestID == "" {
		t.Errorf("status = %d resp = %+v", w.Code, resp)
	}

	w = s.do(t, http.MethodPost, "/api/v1/menus/refresh", `{"date":"2025-03-04"}`, &resp)
	if w.Code != http.StatusAccepted || resp.Status != "queued" {
		t.Errorf("status = %d resp = %+v", w.Code, resp)
	}
}

type plateBody struct {
	Items []struct {
		ID      string  `json:"id"`
		Portion float64 `json:"portion"`
	} `json:"items"`
	Summary struct {
		TotalCalories    int     `json:"total_calories"`
		TotalProtein     float64 `json:"total_protein"`
		DominantMealType string  `json:"dominant_meal_type"`
	} `json:"summary"`
}

func TestPlateCheckoutFlow(t *testing.T) {
	s := newTestServer(t)
	base := "/api/v1/plates/session-1"

	var p plateBody
	w := s.do(t, http.MethodPost, base+"/items", `{
		"item": {"name": "Grilled Salmon", "calories": 350, "nutrition_facts": [{"name": "Protein", "amount": 30, "unit": "g"}]},
		"meal_type": "Lunch", "location": "Commons", "portion": 1.5}`, &p)
	if w.Code != http.StatusCreated {
		t.Fatalf("add salmon status = %d: %s", w.Code, w.Body.String())
	}
	if len(p.Items) != 1 || p.Summary.TotalCalories != 525 || p.Summary.TotalProtein != 45 {
		t.Fatalf("plate = %+v", p)
	}
	salmonID := p.Items[0].ID

	w = s.do(t, http.MethodPost, base+"/items", `{"item": {"name": "Caesar Salad", "calories": 220}, "meal_type": "dinner"}`, &p)
	if w.Code != http.StatusCreated || len(p.Items) != 2 || p.Items[1].Portion != 1 {
		t.Fatalf("add salad status = %d plate = %+v", w.Code, p)
	}
	saladID := p.Items[1].ID

	w = s.do(t, http.MethodPatch, base+"/items/"+saladID, `{"portion": 2}`, &p)
	if w.Code != http.StatusOK || p.Summary.TotalCalories != 525+440 {
		t.Errorf("update status = %d summary = %+v", w.Code, p.Summary)
	}

	var eb errorBody
	w = s.do(t, http.MethodPatch, base+"/items/"+saladID, `{"portion": -1}`, &eb)
	if w.Code != http.StatusBadRequest || eb.Code != "INVALID_REQUEST" {
		t.Errorf("negative portion status = %d body = %+v", w.Code, eb)
	}
	w = s.do(t, http.MethodDelete, base+"/items/missing", "", &eb)
	if w.Code != http.StatusNotFound || eb.Code != "PLATE_ITEM_NOT_FOUND" {
		t.Errorf("remove missing status = %d body = %+v", w.Code, eb)
	}

	var checkout struct {
		MealLog storage.MealLog `json:"meal_log"`
		Plate   plateBody       `json:"plate"`
	}
	w = s.do(t, http.MethodPost, base+"/checkout",
		`{"athlete_id": "athlete-1", "item_ids": ["`+salmonID+`"], "date_time": "2025-03-03T12:30:00Z"}`, &checkout)
	if w.Code != http.StatusCreated {
		t.Fatalf("checkout status = %d: %s", w.Code, w.Body.String())
	}
	if checkout.MealLog.ID == "" || checkout.MealLog.Calories != 525 || checkout.MealLog.ProteinG != 45 || checkout.MealLog.MealType != "lunch" {
		t.Errorf("meal log = %+v", checkout.MealLog)
	}
	if checkout.MealLog.Notes != "Grilled Salmon (Commons) × 1.5" {
		t.Errorf("notes = %q", checkout.MealLog.Notes)
	}
	if len(checkout.Plate.Items) != 1 || checkout.Plate.Items[0].ID != saladID {
		t.Errorf("remaining = %+v", checkout.Plate.Items)
	}

	var logs struct {
		Count    int               `json:"count"`
		MealLogs []storage.MealLog `json:"meal_logs"`
	}
	w = s.do(t, http.MethodGet, "/api/v1/athletes/athlete-1/meals?from=2025-03-03&to=2025-03-03", "", &logs)
	if w.Code != http.StatusOK || logs.Count != 1 || logs.MealLogs[0].ID != checkout.MealLog.ID {
		t.Errorf("logs status = %d body = %+v", w.Code, logs)
	}
	w = s.do(t, http.MethodGet, "/api/v1/athletes/athlete-1/meals?from=2025-03-04", "", &logs)
	if w.Code != http.StatusOK || logs.Count != 0 {
		t.Errorf("empty window status = %d count = %d", w.Code, logs.Count)
	}
	w = s.do(t, http.MethodGet, "/api/v1/athletes/athlete-1/meals?limit=zero", "", &eb)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", w.Code)
	}

	var one storage.MealLog
	w = s.do(t, http.MethodGet, "/api/v1/meal-logs/"+checkout.MealLog.ID, "", &one)
	if w.Code != http.StatusOK || one.AthleteID != "athlete-1" || !one.Completed {
		t.Errorf("get log status = %d log = %+v", w.Code, one)
	}
	w = s.do(t, http.MethodGet, "/api/v1/meal-logs/missing", "", &eb)
	if w.Code != http.StatusNotFound || eb.Code != "NOT_FOUND" {
		t.Errorf("missing log status = %d body = %+v", w.Code, eb)
	}

	w = s.do(t, http.MethodDelete, base, "", &p)
	if w.Code != http.StatusOK || len(p.Items) != 0 {
		t.Errorf("clear status = %d plate = %+v", w.Code, p)
	}
	w = s.do(t, http.MethodGet, base, "", &p)
	if w.Code != http.StatusOK || len(p.Items) != 0 || p.Summary.TotalCalories != 0 {
		t.Errorf("get after clear = %+v", p)
	}
}

func TestPlateValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{name: "missing item name", method: http.MethodPost, path: "/api/v1/plates/s/items", body: `{"item": {"calories": 100}}`, status: http.StatusBadRequest, code: "INVALID_REQUEST"},
		{name: "zero portion", method: http.MethodPost, path: "/api/v1/plates/s/items", body: `{"item": {"name": "Toast"}, "portion": 0}`, status: http.StatusBadRequest, code: "INVALID_REQUEST"},
		{name: "checkout empty plate", method: http.MethodPost, path: "/api/v1/plates/empty/checkout", body: `{"athlete_id": "athlete-1"}`, status: http.StatusBadRequest, code: "PLATE_EMPTY"},
		{name: "checkout without athlete", method: http.MethodPost, path: "/api/v1/plates/s/checkout", body: `{}`, status: http.StatusBadRequest, code: "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var eb errorBody
			w := s.do(t, tt.method, tt.path, tt.body, &eb)
			if w.Code != tt.status || eb.Code != tt.code {
				t.Errorf("status = %d body = %+v, want %d %s", w.Code, eb, tt.status, tt.code)
			}
		})
	}
}

func TestMCPToolCall(t *testing.T) {
	s := newTestServer(t)

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	w := s.do(t, http.MethodPost, "/mcp", `{"name": "search_menu", "arguments": {"date": "2025-03-03", "query": "salad"}}`, &result)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("content = %+v", result.Content)
	}
	var search struct {
		Count   int `json:"count"`
		Results []struct {
			Item struct {
				Name string `json:"name"`
			} `json:"item"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(result.Content[0].Text), &search); err != nil {
		t.Fatal(err)
	}
	if search.Count != 1 || search.Results[0].Item.Name != "Caesar Salad" {
		t.Errorf("search = %+v", search)
	}

	var eb errorBody
	w = s.do(t, http.MethodPost, "/mcp", `{"name": "order_pizza", "arguments": {}}`, &eb)
	if w.Code != http.StatusNotFound || eb.Code != "NOT_FOUND" {
		t.Errorf("unknown tool status = %d body = %+v", w.Code, eb)
	}
	w = s.do(t, http.MethodPost, "/mcp", `{"name": "get_meal_logs", "arguments": {}}`, &eb)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing athlete status = %d", w.Code)
	}
	eb = errorBody{}
	w = s.do(t, http.MethodPost, "/mcp", `{"name": "get_plate", "arguments": {"session": "s1", "sesion": "typo"}}`, &eb)
	if w.Code != http.StatusBadRequest || !strings.Contains(eb.Message, "sesion") {
		t.Errorf("unknown argument status = %d body = %+v", w.Code, eb)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/api/v1/menus?date=2025-03-03", "", nil)

	tests := []struct {
		path string
		want string
	}{
		{path: "/health", want: `"status":"ok"`},
		{path: "/ready", want: `"status":"ready"`},
		{path: "/live", want: `"status":"alive"`},
		{path: "/metrics", want: "dining_menu_http_requests_total"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := s.do(t, http.MethodGet, tt.path, "", nil)
			if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("status = %d body = %s", w.Code, w.Body.String())
			}
		})
	}
}
