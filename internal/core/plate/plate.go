// Package plate 暫存使用者選取的菜色並依份量彙總成餐點紀錄
package plate

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"dining-menu/internal/core/menu"
)

var (
	// ErrInvalidPortion 份量必須為大於 0 的有限數
	ErrInvalidPortion = errors.New("portion must be a finite number greater than zero")
	// ErrItemNotFound 盤中沒有此項目
	ErrItemNotFound = errors.New("plate item not found")
	// ErrNothingToCheckout 結帳時沒有任何符合的項目
	ErrNothingToCheckout = errors.New("nothing to checkout")
)

// PlateItem 盤中的一筆選取，建立時即固定基礎熱量與蛋白質
type PlateItem struct {
	ID           string        `json:"id"`
	MealType     string        `json:"meal_type"`
	Location     string        `json:"location"`
	Item         menu.MenuItem `json:"item"`
	BaseCalories float64       `json:"base_calories"`
	BaseProteinG float64       `json:"base_protein_g"`
	Portion      float64       `json:"portion"`
}

// Summary 由盤中項目推導的彙總，不儲存
type Summary struct {
	TotalCalories    int                  `json:"total_calories"`
	TotalProtein     float64              `json:"total_protein"`
	DominantMealType string               `json:"dominant_meal_type"`
	Notes            string               `json:"notes"`
	NutritionFacts   []menu.NutritionFact `json:"nutrition_facts"`
}

// MealLogDraft 結帳產生的餐點紀錄草稿，ID 與完成狀態由儲存層指定
type MealLogDraft struct {
	MealType       string               `json:"meal_type"`
	Calories       int                  `json:"calories"`
	ProteinG       float64              `json:"protein_g"`
	Notes          string               `json:"notes"`
	DateTime       time.Time            `json:"date_time"`
	NutritionFacts []menu.NutritionFact `json:"nutrition_facts"`
}

// Plate 單一使用者的暫存盤，不具備並行保護
type Plate struct {
	items []PlateItem
	newID func() string
}

// New 建立空盤
func New() *Plate {
	return &Plate{newID: uuid.NewString}
}

// ValidPortion 份量是否合法
func ValidPortion(portion float64) bool {
	return portion > 0 && !math.IsInf(portion, 0) && !math.IsNaN(portion)
}

// Add 加入菜色；無法解析的熱量與蛋白質以 0 計
func (p *Plate) Add(item menu.MenuItem, mealType, location string, portion float64) (PlateItem, error) {
	if !ValidPortion(portion) {
		return PlateItem{}, ErrInvalidPortion
	}

	calories, _ := menu.ResolveCalories(item)
	protein, _ := menu.ResolveProtein(item)
	pi := PlateItem{
		ID:           p.newID(),
		MealType:     menu.NormalizeMealType(mealType),
		Location:     menu.CleanText(location),
		Item:         item,
		BaseCalories: calories,
		BaseProteinG: protein,
		Portion:      portion,
	}
	p.items = append(p.items, pi)
	return pi, nil
}

// Remove 移除指定項目，回傳是否存在
func (p *Plate) Remove(id string) bool {
	for i, it := range p.items {
		if it.ID == id {
			p.items = append(p.items[:i:i], p.items[i+1:]...)
			return true
		}
	}
	return false
}

// UpdatePortion 調整份量
func (p *Plate) UpdatePortion(id string, portion float64) (PlateItem, error) {
	if !ValidPortion(portion) {
		return PlateItem{}, ErrInvalidPortion
	}
	for i := range p.items {
		if p.items[i].ID == id {
			p.items[i].Portion = portion
			return p.items[i], nil
		}
	}
	return PlateItem{}, ErrItemNotFound
}

// Clear 清空
func (p *Plate) Clear() {
	p.items = nil
}

// Len 項目數
func (p *Plate) Len() int {
	return len(p.items)
}

// Items 依加入順序回傳副本
func (p *Plate) Items() []PlateItem {
	out := make([]PlateItem, len(p.items))
	copy(out, p.items)
	return out
}

// Summary 目前盤中項目的彙總
func (p *Plate) Summary() Summary {
	return Summarize(p.items)
}

// Checkout 結帳指定項目並只移除這些項目，其餘項目保留在盤中
func (p *Plate) Checkout(ids []string, at time.Time) (MealLogDraft, error) {
	draft, remaining, err := Checkout(p.items, ids, at)
	if err != nil {
		return MealLogDraft{}, err
	}
	p.items = remaining
	return draft, nil
}

// Summarize 純函式：熱量四捨五入為整數、蛋白質取兩位小數，營養成分依名稱加總
func Summarize(items []PlateItem) Summary {
	var calories, protein float64
	notes := make([]string, 0, len(items))
	for _, it := range items {
		calories += it.BaseCalories * it.Portion
		protein += it.BaseProteinG * it.Portion
		notes = append(notes, Note(it))
	}

	return Summary{
		TotalCalories:    int(math.Round(calories)),
		TotalProtein:     menu.Round2(protein),
		DominantMealType: dominantMealType(items),
		Notes:            strings.Join(notes, "; "),
		NutritionFacts:   sumFacts(items),
	}
}

// Checkout 純函式：回傳草稿與未被結帳的項目。ids 無任何符合時回傳 ErrNothingToCheckout。
func Checkout(items []PlateItem, ids []string, at time.Time) (MealLogDraft, []PlateItem, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var selected []PlateItem
	remaining := make([]PlateItem, 0, len(items))
	for _, it := range items {
		if wanted[it.ID] {
			selected = append(selected, it)
		} else {
			remaining = append(remaining, it)
		}
	}
	if len(selected) == 0 {
		return MealLogDraft{}, items, ErrNothingToCheckout
	}

	s := Summarize(selected)
	return MealLogDraft{
		MealType:       s.DominantMealType,
		Calories:       s.TotalCalories,
		ProteinG:       s.TotalProtein,
		Notes:          s.Notes,
		DateTime:       at,
		NutritionFacts: s.NutritionFacts,
	}, remaining, nil
}

// Note 單筆備註，格式為 "name — description (location) × portion"，份量為 1 時省略
func Note(it PlateItem) string {
	var sb strings.Builder
	sb.WriteString(it.Item.Name)
	if it.Item.Description != "" {
		sb.WriteString(" — ")
		sb.WriteString(it.Item.Description)
	}
	if it.Location != "" {
		fmt.Fprintf(&sb, " (%s)", it.Location)
	}
	if it.Portion != 1 {
		sb.WriteString(" × ")
		sb.WriteString(menu.FormatNumber(it.Portion))
	}
	return sb.String()
}

// dominantMealType 出現最多次的餐別，同數時取最早加入者
func dominantMealType(items []PlateItem) string {
	counts := make(map[string]int)
	var order []string
	for _, it := range items {
		if counts[it.MealType] == 0 {
			order = append(order, it.MealType)
		}
		counts[it.MealType]++
	}

	best, bestCount := "", 0
	for _, mt := range order {
		if counts[mt] > bestCount {
			best, bestCount = mt, counts[mt]
		}
	}
	return best
}

// sumFacts 依名稱加總營養成分 × 份量，保留第一次出現的名稱與單位
func sumFacts(items []PlateItem) []menu.NutritionFact {
	type acc struct {
		name  string
		unit  string
		total float64
	}
	var order []*acc
	index := make(map[string]*acc)

	for _, it := range items {
		for _, f := range it.Item.NutritionFacts {
			amount, ok := menu.FactAmount(f)
			if !ok {
				continue
			}
			key := menu.FactKey(f.Name)
			a, exists := index[key]
			if !exists {
				a = &acc{name: f.Name, unit: f.Unit}
				index[key] = a
				order = append(order, a)
			}
			a.total += amount * it.Portion
		}
	}

	out := make([]menu.NutritionFact, 0, len(order))
	for _, a := range order {
		total := menu.Round2(a.total)
		out = append(out, menu.NutritionFact{
			Name:    a.name,
			Amount:  menu.Float(total),
			Unit:    a.unit,
			Display: menu.FormatNumber(total) + a.unit,
		})
	}
	return out
}
