package menu

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// 正規化後的餐別
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealSnack     = "snack"
)

// mealTypeKeywords 依序比對，未命中時為 lunch
var mealTypeKeywords = []struct {
	keyword  string
	mealType string
}{
	{"breakfast", MealBreakfast},
	{"brunch", MealLunch},
	{"lunch", MealLunch},
	{"dinner", MealDinner},
	{"supper", MealDinner},
	{"late night", MealSnack},
	{"snack", MealSnack},
	{"grab", MealSnack},
}

// CleanText NFKC 正規化並壓縮空白
func CleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// ItemKey 菜色去重鍵：小寫並壓縮空白
func ItemKey(name string) string {
	return strings.ToLower(CleanText(name))
}

// NormalizeMealType 以關鍵字將餐別歸類為 breakfast/lunch/dinner/snack
func NormalizeMealType(text string) string {
	lower := strings.ToLower(CleanText(text))
	for _, kw := range mealTypeKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.mealType
		}
	}
	return MealLunch
}

// NormalizeFact 清理單一原始營養成分，名稱為空時回傳 false
func NormalizeFact(raw RawFact) (NutritionFact, bool) {
	name := CleanText(raw.Name)
	if name == "" {
		return NutritionFact{}, false
	}
	f := NutritionFact{
		Name:    name,
		Unit:    strings.TrimSpace(raw.Unit),
		Display: CleanText(raw.Display),
	}
	if v, ok := ToNumber(raw.Amount); ok {
		f.Amount = Float(v)
	}
	if v, ok := ToNumber(raw.PercentDailyValue); ok {
		f.PercentDailyValue = Float(v)
	}
	return f, true
}

// NormalizeItem 將原始菜色轉為 MenuItem。
// 熱量來源依序為：明確 calories 欄位、名稱含 calorie 的成分、HTML 文字抽取值。
func NormalizeItem(raw RawItem) MenuItem {
	item := MenuItem{
		Name:           CleanText(raw.Name),
		Description:    CleanText(raw.Description),
		NutritionFacts: make([]NutritionFact, 0, len(raw.NutritionFacts)),
	}
	for _, rf := range raw.NutritionFacts {
		if f, ok := NormalizeFact(rf); ok {
			item.NutritionFacts = append(item.NutritionFacts, f)
		}
	}

	if v, ok := ToNumber(raw.Calories); ok {
		item.Calories = Float(v)
	} else if v, ok := caloriesFromFacts(item.NutritionFacts); ok {
		item.Calories = Float(v)
	} else if raw.TextCalories != nil {
		if v, ok := ToNumber(*raw.TextCalories); ok {
			item.Calories = Float(v)
		}
	}
	return item
}

func caloriesFromFacts(facts []NutritionFact) (float64, bool) {
	f, ok := FindFact(facts, "calorie")
	if !ok {
		return 0, false
	}
	return FactAmount(f)
}

// ResolveCalories 取得菜色熱量；未知時回傳 false
func ResolveCalories(item MenuItem) (float64, bool) {
	if item.Calories != nil {
		if v, ok := ToNumber(*item.Calories); ok {
			return v, true
		}
	}
	return caloriesFromFacts(item.NutritionFacts)
}

// ResolveProtein 僅從名稱含 protein 的營養成分取得蛋白質
func ResolveProtein(item MenuItem) (float64, bool) {
	f, ok := FindFact(item.NutritionFacts, "protein")
	if !ok {
		return 0, false
	}
	return FactAmount(f)
}

// NormalizeLocations 將供應商結構化菜單轉為正規化模型，
// 同名地點與同名餐別會合併，空地點與空餐別會被移除。
func NormalizeLocations(raw []RawLocation) []MenuLocation {
	type mealBucket struct {
		label    string
		mealType string
		items    *Bucket
	}
	type locBucket struct {
		name  string
		meals []*mealBucket
		index map[string]*mealBucket
	}

	var order []*locBucket
	locIndex := make(map[string]*locBucket)

	for _, rl := range raw {
		locName := CleanText(rl.Location)
		if locName == "" {
			locName = DefaultLocation
		}
		lk := strings.ToLower(locName)
		lb, ok := locIndex[lk]
		if !ok {
			lb = &locBucket{name: locName, index: make(map[string]*mealBucket)}
			locIndex[lk] = lb
			order = append(order, lb)
		}

		for _, rm := range rl.Meals {
			label := CleanText(rm.MealType)
			if label == "" {
				label = DefaultMealLabel
			}
			mk := strings.ToLower(label)
			mb, ok := lb.index[mk]
			if !ok {
				mb = &mealBucket{label: label, mealType: NormalizeMealType(label), items: NewBucket()}
				lb.index[mk] = mb
				lb.meals = append(lb.meals, mb)
			}
			for _, ri := range rm.Items {
				item := NormalizeItem(ri)
				if item.Name == "" {
					continue
				}
				mb.items.Upsert(item)
			}
		}
	}

	out := make([]MenuLocation, 0, len(order))
	for _, lb := range order {
		loc := MenuLocation{Location: lb.name}
		for _, mb := range lb.meals {
			if mb.items.Len() == 0 {
				continue
			}
			loc.Meals = append(loc.Meals, MenuMeal{MealType: mb.mealType, Label: mb.label, Items: mb.items.Items()})
		}
		if len(loc.Meals) > 0 {
			out = append(out, loc)
		}
	}
	return out
}

// 解析時的預設地點與餐別
const (
	DefaultLocation  = "General"
	DefaultMealLabel = "All Day"
)
