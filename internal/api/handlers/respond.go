// Package handlers HTTP 處理器共用的錯誤轉換與輸出格式
package handlers

import (
	"errors"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dining-menu/internal/core/menu"
	"dining-menu/internal/core/plate"
	"dining-menu/internal/pkg/common"
	"dining-menu/internal/storage"
)

// RespondError 將錯誤轉為統一的錯誤響應；除錯模式下附帶原始錯誤
func RespondError(c *gin.Context, err error) {
	err = translate(err)
	status, body := common.ToResponse(err, gin.IsDebugging())

	fields := []zap.Field{
		zap.Error(err),
		zap.Int("status", status),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", requestid.Get(c)),
	}
	if status >= 500 {
		common.LogError("請求處理失敗", fields...)
	} else {
		common.LogWarn("請求無效", fields...)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// translate 將核心套件的錯誤對應到預定義錯誤
func translate(err error) error {
	switch {
	case errors.Is(err, plate.ErrInvalidPortion):
		return common.NewValidationError(err.Error())
	case errors.Is(err, plate.ErrItemNotFound):
		return common.ErrPlateItemNotFound.Wrap(err)
	case errors.Is(err, plate.ErrNothingToCheckout):
		return common.ErrPlateEmpty.Wrap(err)
	case errors.Is(err, storage.ErrNotFound):
		return common.ErrNotFound.Wrap(err)
	}
	return err
}

// FactView 營養成分輸出，Formatted 為顯示字串
type FactView struct {
	menu.NutritionFact
	Formatted string `json:"formatted,omitempty"`
}

// ItemView 菜色輸出；熱量未知時 calories 為 null 且 calories_known 為 false
type ItemView struct {
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Calories       *float64   `json:"calories"`
	CaloriesKnown  bool       `json:"calories_known"`
	ProteinG       *float64   `json:"protein_g"`
	NutritionFacts []FactView `json:"nutrition_facts"`
	FeaturedFacts  []FactView `json:"featured_facts"`
}

// MealView 餐別輸出
type MealView struct {
	MealType string     `json:"meal_type"`
	Label    string     `json:"label"`
	Items    []ItemView `json:"items"`
}

// LocationView 地點輸出
type LocationView struct {
	Location  string     `json:"location"`
	ItemCount int        `json:"item_count"`
	Meals     []MealView `json:"meals"`
}

// SectionView 餐段輸出
type SectionView struct {
	Type      menu.Slot      `json:"type"`
	Label     string         `json:"label"`
	Source    menu.Source    `json:"source"`
	Error     *string        `json:"error"`
	Locations []LocationView `json:"locations"`
}

// NewFactViews 轉換營養成分清單
func NewFactViews(facts []menu.NutritionFact) []FactView {
	out := make([]FactView, 0, len(facts))
	for _, f := range facts {
		v := FactView{NutritionFact: f}
		if s, ok := menu.FormatFact(f); ok {
			v.Formatted = s
		}
		out = append(out, v)
	}
	return out
}

// NewItemView 轉換菜色，熱量與蛋白質依正規化規則解析
func NewItemView(item menu.MenuItem) ItemView {
	v := ItemView{
		Name:           item.Name,
		Description:    item.Description,
		NutritionFacts: NewFactViews(item.NutritionFacts),
		FeaturedFacts:  NewFactViews(menu.FeaturedFacts(item.NutritionFacts)),
	}
	if cal, ok := menu.ResolveCalories(item); ok {
		v.Calories = menu.Float(cal)
		v.CaloriesKnown = true
	}
	if protein, ok := menu.ResolveProtein(item); ok {
		v.ProteinG = menu.Float(protein)
	}
	return v
}

// NewSectionViews 轉換整天的餐段
func NewSectionViews(sections []menu.MenuMealSection) []SectionView {
	out := make([]SectionView, 0, len(sections))
	for _, s := range sections {
		sv := SectionView{
			Type:      s.Type,
			Label:     s.Label,
			Source:    s.Source,
			Locations: make([]LocationView, 0, len(s.Locations)),
		}
		if s.Error != "" {
			msg := s.Error
			sv.Error = &msg
		}
		for _, loc := range s.Locations {
			lv := LocationView{Location: loc.Location, ItemCount: loc.ItemCount(), Meals: make([]MealView, 0, len(loc.Meals))}
			for _, meal := range loc.Meals {
				mv := MealView{MealType: meal.MealType, Label: meal.Label, Items: make([]ItemView, 0, len(meal.Items))}
				for _, item := range meal.Items {
					mv.Items = append(mv.Items, NewItemView(item))
				}
				lv.Meals = append(lv.Meals, mv)
			}
			sv.Locations = append(sv.Locations, lv)
		}
		out = append(out, sv)
	}
	return out
}
