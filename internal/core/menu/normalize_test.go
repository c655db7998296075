package menu

import (
	"encoding/json"
	"testing"
)

func TestToNumber(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   float64
		wantOK bool
	}{
		{name: "float", input: 12.5, want: 12.5, wantOK: true},
		{name: "int", input: 300, want: 300, wantOK: true},
		{name: "json number", input: json.Number("220"), want: 220, wantOK: true},
		{name: "string with unit", input: "350 kcal", want: 350, wantOK: true},
		{name: "string with decimals", input: "12.5g", want: 12.5, wantOK: true},
		{name: "negative", input: "-4", want: -4, wantOK: true},
		{name: "empty string", input: "", wantOK: false},
		{name: "letters only", input: "n/a", wantOK: false},
		{name: "range is not a number", input: "1-2", wantOK: false},
		{name: "nil", input: nil, wantOK: false},
		{name: "bool", input: true, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToNumber(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ToNumber(%v) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ToNumber(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeItemExplicitCaloriesWin(t *testing.T) {
	item := NormalizeItem(RawItem{
		Name:     "Yogurt Parfait",
		Calories: 220,
		NutritionFacts: []RawFact{
			{Name: "Calories", Amount: 500},
		},
	})

	if item.Calories == nil || *item.Calories != 220 {
		t.Fatalf("calories = %v, want 220", item.Calories)
	}
}

func TestNormalizeItemCaloriePriority(t *testing.T) {
	text := 410.0

	tests := []struct {
		name   string
		raw    RawItem
		want   float64
		wantOK bool
	}{
		{
			name: "fact amount used when field missing",
			raw:  RawItem{Name: "Oatmeal", NutritionFacts: []RawFact{{Name: "Total Calories", Amount: "150"}}},
			want: 150, wantOK: true,
		},
		{
			name: "fact display used when amount missing",
			raw:  RawItem{Name: "Oatmeal", NutritionFacts: []RawFact{{Name: "Calories", Display: "160 kcal"}}},
			want: 160, wantOK: true,
		},
		{
			name: "fact beats text calories",
			raw:  RawItem{Name: "Oatmeal", NutritionFacts: []RawFact{{Name: "calories", Amount: 170}}, TextCalories: &text},
			want: 170, wantOK: true,
		},
		{
			name: "text calories as last resort",
			raw:  RawItem{Name: "Oatmeal", TextCalories: &text},
			want: 410, wantOK: true,
		},
		{
			name: "unparseable field falls through",
			raw:  RawItem{Name: "Oatmeal", Calories: "unknown", TextCalories: &text},
			want: 410, wantOK: true,
		},
		{
			name:   "nothing resolves",
			raw:    RawItem{Name: "Oatmeal", Calories: "n/a"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := NormalizeItem(tt.raw)
			if (item.Calories != nil) != tt.wantOK {
				t.Fatalf("calories = %v, wantOK %v", item.Calories, tt.wantOK)
			}
			if tt.wantOK && *item.Calories != tt.want {
				t.Errorf("calories = %v, want %v", *item.Calories, tt.want)
			}
		})
	}
}

func TestResolveProtein(t *testing.T) {
	item := NormalizeItem(RawItem{
		Name: "Tofu Bowl",
		NutritionFacts: []RawFact{
			{Name: "Calories", Amount: 400},
			{Name: "Protein", Display: "21.5 g"},
		},
	})

	got, ok := ResolveProtein(item)
	if !ok || got != 21.5 {
		t.Fatalf("ResolveProtein = %v, %v; want 21.5, true", got, ok)
	}

	if _, ok := ResolveProtein(MenuItem{Name: "Water"}); ok {
		t.Error("expected protein to be unresolved without facts")
	}
}

func TestNormalizeMealType(t *testing.T) {
	tests := map[string]string{
		"Breakfast":       MealBreakfast,
		"Sunday Brunch":   MealLunch,
		"LUNCH":           MealLunch,
		"Supper":          MealDinner,
		"Dinner Specials": MealDinner,
		"Late Night":      MealSnack,
		"Grab & Go":       MealSnack,
		"All Day":         MealLunch,
		"":                MealLunch,
	}
	for input, want := range tests {
		if got := NormalizeMealType(input); got != want {
			t.Errorf("NormalizeMealType(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizeLocationsMergesAndDrops(t *testing.T) {
	raw := []RawLocation{
		{
			Location: "Commons",
			Meals: []RawMeal{
				{MealType: "Lunch", Items: []RawItem{
					{Name: "Pasta", Description: "Marinara"},
					{Name: "  pasta ", Description: "Parmesan", Calories: 600},
				}},
				{MealType: "Dinner"},
			},
		},
		{Location: "Empty Hall", Meals: []RawMeal{{MealType: "Lunch", Items: []RawItem{{Name: "   "}}}}},
		{Location: "commons", Meals: []RawMeal{{MealType: "lunch", Items: []RawItem{{Name: "Salad"}}}}},
	}

	got := NormalizeLocations(raw)
	if len(got) != 1 {
		t.Fatalf("locations = %d, want 1: %+v", len(got), got)
	}
	if len(got[0].Meals) != 1 {
		t.Fatalf("meals = %d, want 1", len(got[0].Meals))
	}
	items := got[0].Meals[0].Items
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Description != "Marinara • Parmesan" {
		t.Errorf("description = %q", items[0].Description)
	}
	if items[0].Calories == nil || *items[0].Calories != 600 {
		t.Errorf("calories = %v, want 600", items[0].Calories)
	}
	if got[0].Meals[0].MealType != MealLunch {
		t.Errorf("meal type = %q", got[0].Meals[0].MealType)
	}
}

func TestSectionJSONNulls(t *testing.T) {
	data, err := json.Marshal(MenuMealSection{Type: SlotDinner, Label: "Dinner"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"dinner","label":"Dinner","locations":[],"source":null,"error":null}`
	if string(data) != want {
		t.Errorf("json = %s\nwant %s", data, want)
	}

	var back MenuMealSection
	in := `{"type":"lunch","label":"Lunch","locations":[],"source":"fallback","error":"boom"}`
	if err := json.Unmarshal([]byte(in), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Source != SourceFallback || back.Error != "boom" {
		t.Errorf("round trip = %+v", back)
	}
}
