package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dining-menu/internal/infrastructure/config"
	"dining-menu/internal/pkg/common"
)

func TestManagerProcessesRequests(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	refresh := func(ctx context.Context, date time.Time) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, date.Format(common.DateLayout))
		if date.Day() == 4 {
			return errors.New("provider down")
		}
		return nil
	}

	m := NewManager(config.QueueConfig{Workers: 2, MaxSize: 4}, refresh, time.Second)
	m.Start()

	ok, err := m.Enqueue(context.Background(), time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	bad, err := m.Enqueue(context.Background(), time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if res := <-ok.Result; res.Error != nil || res.ID != ok.ID {
		t.Errorf("ok result = %+v", res)
	}
	if res := <-bad.Result; res.Error == nil {
		t.Error("expected refresh error")
	}

	m.Close()
	status := m.GetQueueStatus()
	if status.ProcessedCount != 2 || status.FailedCount != 1 || !status.Closed {
		t.Errorf("status = %+v", status)
	}
	if len(seen) != 2 {
		t.Errorf("seen = %v", seen)
	}

	if _, err := m.Enqueue(context.Background(), time.Now()); !errors.Is(err, common.ErrQueueClosed) {
		t.Errorf("enqueue after close err = %v", err)
	}
	m.Close()
}

func TestManagerQueueFull(t *testing.T) {
	// 未啟動 worker，請求會停在隊列中
	m := NewManager(config.QueueConfig{Workers: 1, MaxSize: 1}, func(context.Context, time.Time) error { return nil }, time.Second)

	if _, err := m.Enqueue(context.Background(), time.Now()); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if _, err := m.Enqueue(context.Background(), time.Now()); !errors.Is(err, common.ErrQueueFull) {
		t.Errorf("second enqueue err = %v", err)
	}
	if got := m.GetQueueStatus().QueueLength; got != 1 {
		t.Errorf("queue length = %d", got)
	}
}
