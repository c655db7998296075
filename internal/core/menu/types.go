package menu

import (
	"encoding/json"
	"strings"
)

// NutritionFact 營養成分，抽取後不再修改
type NutritionFact struct {
	Name              string   `json:"name"`
	Amount            *float64 `json:"amount,omitempty"`
	Unit              string   `json:"unit,omitempty"`
	PercentDailyValue *float64 `json:"percent_daily_value,omitempty"`
	Display           string   `json:"display,omitempty"`
}

// MenuItem 單一菜色，Name 為去重鍵
type MenuItem struct {
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Calories       *float64        `json:"calories"`
	NutritionFacts []NutritionFact `json:"nutrition_facts"`
}

// MenuMeal 某地點的一餐
type MenuMeal struct {
	MealType string     `json:"meal_type"` // breakfast | lunch | dinner | snack
	Label    string     `json:"label"`     // 原始標記，例如 "Late Night"
	Items    []MenuItem `json:"items"`
}

// MenuLocation 用餐地點
type MenuLocation struct {
	Location string     `json:"location"`
	Meals    []MenuMeal `json:"meals"`
}

// ItemCount 回傳地點內所有菜色數量
func (l MenuLocation) ItemCount() int {
	n := 0
	for _, meal := range l.Meals {
		n += len(meal.Items)
	}
	return n
}

// CountItems 計算多個地點的菜色總數
func CountItems(locations []MenuLocation) int {
	n := 0
	for _, loc := range locations {
		n += loc.ItemCount()
	}
	return n
}

// Slot 供應商查詢的餐段
type Slot string

const (
	SlotBreakfast Slot = "breakfast"
	SlotLunch     Slot = "lunch"
	SlotDinner    Slot = "dinner"
)

// DefaultSlots 預設查詢的三個餐段
var DefaultSlots = []Slot{SlotBreakfast, SlotLunch, SlotDinner}

// Label 餐段顯示名稱
func (s Slot) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// ParseSlot 解析餐段名稱
func ParseSlot(value string) (Slot, bool) {
	switch Slot(strings.ToLower(strings.TrimSpace(value))) {
	case SlotBreakfast:
		return SlotBreakfast, true
	case SlotLunch:
		return SlotLunch, true
	case SlotDinner:
		return SlotDinner, true
	}
	return "", false
}

// Source 資料來源；空字串代表無可用資料，JSON 輸出為 null
type Source string

const (
	SourceNone     Source = ""
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
	SourceMixed    Source = "mixed"
)

// String 日誌用名稱
func (s Source) String() string {
	if s == SourceNone {
		return "unavailable"
	}
	return string(s)
}

// MarshalJSON 空來源輸出 null
func (s Source) MarshalJSON() ([]byte, error) {
	if s == SourceNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON null 或空字串解析為 SourceNone
func (s *Source) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = SourceNone
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Source(strings.ToLower(strings.TrimSpace(v)))
	return nil
}

// MenuMealSection 單一餐段的整合結果
type MenuMealSection struct {
	Type      Slot           `json:"type"`
	Label     string         `json:"label"`
	Locations []MenuLocation `json:"locations"`
	Source    Source         `json:"source"`
	Error     string         `json:"error"`
}

// MarshalJSON error 為空時輸出 null
func (s MenuMealSection) MarshalJSON() ([]byte, error) {
	type alias MenuMealSection
	out := struct {
		alias
		Error *string `json:"error"`
	}{alias: alias(s)}
	if s.Locations == nil {
		out.Locations = []MenuLocation{}
	}
	if s.Error != "" {
		out.Error = &s.Error
	}
	return json.Marshal(out)
}

// UnmarshalJSON 與 MarshalJSON 對應，供快取還原
func (s *MenuMealSection) UnmarshalJSON(data []byte) error {
	type alias MenuMealSection
	var in struct {
		alias
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = MenuMealSection(in.alias)
	if in.Error != nil {
		s.Error = *in.Error
	}
	return nil
}

// RawFact 供應商原始營養成分，數值可能是數字或字串
type RawFact struct {
	Name              string `json:"name" yaml:"name"`
	Amount            any    `json:"amount,omitempty" yaml:"amount,omitempty"`
	Unit              string `json:"unit,omitempty" yaml:"unit,omitempty"`
	PercentDailyValue any    `json:"percentDailyValue,omitempty" yaml:"percent_daily_value,omitempty"`
	Display           string `json:"display,omitempty" yaml:"display,omitempty"`
}

// RawItem 供應商原始菜色
type RawItem struct {
	Name           string    `json:"name" yaml:"name"`
	Description    string    `json:"description,omitempty" yaml:"description,omitempty"`
	Calories       any       `json:"calories,omitempty" yaml:"calories,omitempty"`
	NutritionFacts []RawFact `json:"nutritionFacts,omitempty" yaml:"nutrition_facts,omitempty"`

	// TextCalories 由 HTML 文字抽取，優先順序最低
	TextCalories *float64 `json:"-" yaml:"-"`
}

// RawMeal 供應商原始餐別
type RawMeal struct {
	MealType string    `json:"mealType" yaml:"meal_type"`
	Items    []RawItem `json:"items" yaml:"items"`
}

// RawLocation 供應商原始地點
type RawLocation struct {
	Location string    `json:"location" yaml:"location"`
	Meals    []RawMeal `json:"meals" yaml:"meals"`
}

// ProviderResponse 單一餐段的供應商回應
type ProviderResponse struct {
	Source       Source        `json:"source"`
	Menu         []RawLocation `json:"menu,omitempty"`
	HTML         string        `json:"html,omitempty"`
	Format       string        `json:"format,omitempty"`
	FallbackMenu []RawLocation `json:"fallbackMenu,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// HasData 回應是否帶有可解析的內容
func (r *ProviderResponse) HasData() bool {
	return r != nil && (len(r.Menu) > 0 || strings.TrimSpace(r.HTML) != "")
}
