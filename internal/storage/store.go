// Package storage 餐點紀錄的持久化
package storage

import (
	"context"
	"errors"
	"time"

	"dining-menu/internal/core/menu"
	"dining-menu/internal/core/plate"
)

// ErrNotFound 找不到紀錄
var ErrNotFound = errors.New("meal log not found")

// MealLog 已儲存的餐點紀錄
type MealLog struct {
	ID             string               `json:"id"`
	AthleteID      string               `json:"athlete_id"`
	MealType       string               `json:"meal_type"`
	Calories       int                  `json:"calories"`
	ProteinG       float64              `json:"protein_g"`
	Notes          string               `json:"notes"`
	DateTime       time.Time            `json:"date_time"`
	Completed      bool                 `json:"completed"`
	NutritionFacts []menu.NutritionFact `json:"nutrition_facts"`
	CreatedAt      time.Time            `json:"created_at"`
}

// Query 查詢條件，零值欄位不限制
type Query struct {
	From  time.Time
	To    time.Time
	Limit int
}

// Store 餐點紀錄儲存介面
type Store interface {
	// SaveMealLog 儲存結帳產生的草稿並回傳完整紀錄
	SaveMealLog(ctx context.Context, athleteID string, draft plate.MealLogDraft) (*MealLog, error)

	// GetMealLog 依 ID 取得紀錄，不存在時回傳 ErrNotFound
	GetMealLog(ctx context.Context, id string) (*MealLog, error)

	// ListMealLogs 依時間新到舊列出選手的紀錄
	ListMealLogs(ctx context.Context, athleteID string, q Query) ([]*MealLog, error)

	Ping(ctx context.Context) error
	Close() error
}
