package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"dining-menu/internal/core/menu"
	"dining-menu/internal/infrastructure/config"
	"dining-menu/internal/pkg/common"
)

func newTestClient(url string) *Client {
	return NewClient(config.ProviderConfig{
		BaseURL:    url,
		APIKey:     "test-key-123456",
		Timeout:    2 * time.Second,
		RetryCount: 1,
	})
}

func TestFetchSlot(t *testing.T) {
	var gotPath, gotDate, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotDate = r.URL.Query().Get("date")
		gotKey = r.Header.Get("X-API-Key")

		switch r.URL.Path {
		case "/menus/lunch":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"source":"live","menu":[{"location":"Commons","meals":[{"mealType":"Lunch","items":[{"name":"Pasta","calories":"450"}]}]}]}`))
		case "/menus/dinner":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<html><body><h2>Commons</h2><ul><li>Soup</li></ul></body></html>`))
		case "/menus/breakfast":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"no breakfast service"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	date := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("json", func(t *testing.T) {
		resp, err := c.FetchSlot(ctx, date, menu.SlotLunch)
		if err != nil {
			t.Fatalf("FetchSlot: %v", err)
		}
		if gotPath != "/menus/lunch" || gotDate != "2025-03-03" || gotKey != "test-key-123456" {
			t.Errorf("request = %s %s %s", gotPath, gotDate, gotKey)
		}
		if resp.Source != menu.SourceLive || resp.Format != FormatJSON || len(resp.Menu) != 1 {
			t.Fatalf("resp = %+v", resp)
		}
		if resp.Menu[0].Meals[0].Items[0].Name != "Pasta" {
			t.Errorf("item = %+v", resp.Menu[0].Meals[0].Items[0])
		}
	})

	t.Run("html", func(t *testing.T) {
		resp, err := c.FetchSlot(ctx, date, menu.SlotDinner)
		if err != nil {
			t.Fatalf("FetchSlot: %v", err)
		}
		if resp.Format != FormatHTML || resp.HTML == "" || !resp.HasData() {
			t.Errorf("resp = %+v", resp)
		}
	})

	t.Run("provider reported error", func(t *testing.T) {
		resp, err := c.FetchSlot(ctx, date, menu.SlotBreakfast)
		if err != nil {
			t.Fatalf("FetchSlot: %v", err)
		}
		if resp.Error != "no breakfast service" || resp.HasData() {
			t.Errorf("resp = %+v", resp)
		}
	})
}

func TestFetchSlotServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchSlot(context.Background(), time.Now(), menu.SlotLunch)
	if !errors.Is(err, common.ErrProviderUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 1 attempt + 1 retry", n)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantFormat  string
		wantErr     bool
	}{
		{name: "json", contentType: "application/json", body: `{"menu":[]}`, wantFormat: FormatJSON},
		{name: "html by type", contentType: "text/html", body: "plain words", wantFormat: FormatHTML},
		{name: "html by body", contentType: "", body: "  <div>Menu</div>", wantFormat: FormatHTML},
		{name: "json with html field", contentType: "application/json", body: `{"html":"<p>x</p>"}`, wantFormat: FormatHTML},
		{name: "empty", contentType: "application/json", body: "", wantFormat: FormatJSON},
		{name: "garbage", contentType: "application/json", body: "{not json", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.contentType, []byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got.Format != tt.wantFormat {
				t.Errorf("format = %q, want %q", got.Format, tt.wantFormat)
			}
		})
	}
}

func TestOffline(t *testing.T) {
	resp, err := Offline{}.FetchSlot(context.Background(), time.Now(), menu.SlotDinner)
	if err != nil || resp.Error != NotConfiguredMessage || resp.HasData() {
		t.Errorf("resp = %+v, err = %v", resp, err)
	}
}
