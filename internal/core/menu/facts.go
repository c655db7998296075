package menu

import (
	"strings"
	"unicode"
)

// MaxFeaturedFacts 精選營養成分上限
const MaxFeaturedFacts = 4

// featuredPreference 精選營養成分的優先順序
var featuredPreference = []string{"calorie", "protein", "carbohydrate", "fat", "fiber", "sugar"}

// FactKey 營養成分名稱的比對鍵
func FactKey(name string) string {
	return ItemKey(name)
}

// FactAmount 讀取數值，先取 Amount 再解析 Display
func FactAmount(f NutritionFact) (float64, bool) {
	if f.Amount != nil {
		if v, ok := ToNumber(*f.Amount); ok {
			return v, true
		}
	}
	return ToNumber(f.Display)
}

// FormatFact 營養成分顯示字串。無法顯示時回傳 false，成分仍保留在模型中。
func FormatFact(f NutritionFact) (string, bool) {
	if f.Amount != nil {
		if v, ok := ToNumber(*f.Amount); ok {
			return FormatNumber(v) + f.Unit, true
		}
	}

	display := strings.TrimSpace(f.Display)
	if display == "" {
		return "", false
	}
	if v, ok := ToNumber(display); ok {
		unit := inferUnit(display)
		if unit == "" {
			unit = f.Unit
		}
		return FormatNumber(v) + unit, true
	}
	return display, true
}

// inferUnit 去除數字與標點後剩下的字母即為單位
func inferUnit(display string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return -1
	}, display)
}

// FindFact 找出名稱包含關鍵字的第一個成分
func FindFact(facts []NutritionFact, keyword string) (NutritionFact, bool) {
	keyword = strings.ToLower(keyword)
	for _, f := range facts {
		if strings.Contains(strings.ToLower(f.Name), keyword) {
			return f, true
		}
	}
	return NutritionFact{}, false
}

// FeaturedFacts 依偏好順序挑出最多四個不重複的成分，其餘依原順序補足
func FeaturedFacts(facts []NutritionFact) []NutritionFact {
	out := make([]NutritionFact, 0, MaxFeaturedFacts)
	used := make(map[int]bool, len(facts))
	seen := make(map[string]bool, len(facts))

	take := func(i int) {
		key := FactKey(facts[i].Name)
		used[i] = true
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, facts[i])
	}

	for _, pref := range featuredPreference {
		for i, f := range facts {
			if used[i] || !strings.Contains(strings.ToLower(f.Name), pref) {
				continue
			}
			take(i)
			break
		}
	}
	for i := range facts {
		if len(out) >= MaxFeaturedFacts {
			break
		}
		if !used[i] {
			take(i)
		}
	}

	if len(out) > MaxFeaturedFacts {
		out = out[:MaxFeaturedFacts]
	}
	return out
}

// MergeFacts 以名稱聯集合併，先出現者優先
func MergeFacts(base, extra []NutritionFact) []NutritionFact {
	if len(extra) == 0 {
		return base
	}
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]NutritionFact, 0, len(base)+len(extra))
	for _, group := range [][]NutritionFact{base, extra} {
		for _, f := range group {
			key := FactKey(f.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, f)
		}
	}
	return out
}
