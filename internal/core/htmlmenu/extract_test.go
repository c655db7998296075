package htmlmenu

import (
	"reflect"
	"testing"

	"dining-menu/internal/core/menu"
)

func TestExtractItemMacroAndCalories(t *testing.T) {
	raw, ok := ExtractItem("Grilled Salmon 30g protein 350 cal")
	if !ok {
		t.Fatal("expected an item")
	}
	item := menu.NormalizeItem(raw)

	if item.Name != "Grilled Salmon" {
		t.Errorf("name = %q", item.Name)
	}
	if item.Calories == nil || *item.Calories != 350 {
		t.Errorf("calories = %v, want 350", item.Calories)
	}
	if item.Description != "Protein 30g" {
		t.Errorf("description = %q", item.Description)
	}
	if p, ok := menu.ResolveProtein(item); !ok || p != 30 {
		t.Errorf("protein = %v, %v", p, ok)
	}
}

func TestExtractItem(t *testing.T) {
	tests := []struct {
		name        string
		segment     string
		wantName    string
		wantDesc    string
		wantCalorie float64
		wantOK      bool
	}{
		{name: "dash inside word kept", segment: "Vegetable Stir-Fry", wantName: "Vegetable Stir-Fry", wantOK: true},
		{name: "spaced dash splits", segment: "Chicken Tikka - served with basmati rice", wantName: "Chicken Tikka", wantDesc: "served with basmati rice", wantOK: true},
		{name: "colon splits", segment: "Soup of the Day: Tomato Basil", wantName: "Soup of the Day", wantDesc: "Tomato Basil", wantOK: true},
		{name: "long name not split", segment: "One two three four five six seven - prose", wantName: "One two three four five six seven - prose", wantOK: true},
		{name: "parenthetical", segment: "Veggie Burger (vegan)", wantName: "Veggie Burger", wantDesc: "vegan", wantOK: true},
		{name: "leading calories", segment: "Calories: 250 Oatmeal", wantName: "Oatmeal", wantCalorie: 250, wantOK: true},
		{name: "calories mid text", segment: "Pasta 420 kcal with garlic bread", wantName: "Pasta", wantDesc: "with garlic bread", wantCalorie: 420, wantOK: true},
		{name: "thousands separator", segment: "Beef Chili 1,200 calories", wantName: "Beef Chili", wantCalorie: 1200, wantOK: true},
		{name: "labeled calories after name", segment: "Oatmeal Calories: 150", wantName: "Oatmeal", wantCalorie: 150, wantOK: true},
		{name: "labeled calories after dash", segment: "Oatmeal - Calories: 150", wantName: "Oatmeal", wantCalorie: 150, wantOK: true},
		{name: "labeled calories mid text", segment: "Lasagna kcal=1,050 with side salad", wantName: "Lasagna", wantDesc: "with side salad", wantCalorie: 1050, wantOK: true},
		{name: "local is not a calorie label", segment: "Local: 20 Farm Eggs", wantName: "Local", wantDesc: "20 Farm Eggs", wantOK: true},
		{
			name:     "label first macros",
			segment:  "Turkey Wrap Protein: 20g, Carbs 30g",
			wantName: "Turkey Wrap", wantDesc: "Protein 20g / Carbs 30g", wantOK: true,
		},
		{
			name:     "description order",
			segment:  "Tofu Bowl - spicy (gluten free) 15g protein",
			wantName: "Tofu Bowl", wantDesc: "spicy • gluten free • Protein 15g", wantOK: true,
		},
		{name: "skip label", segment: "Nutrition Facts", wantOK: false},
		{name: "only calories", segment: "350 calories", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, ok := ExtractItem(tt.segment)
			if ok != tt.wantOK {
				t.Fatalf("ExtractItem(%q) ok = %v, want %v (%+v)", tt.segment, ok, tt.wantOK, raw)
			}
			if !ok {
				return
			}
			if raw.Name != tt.wantName {
				t.Errorf("name = %q, want %q", raw.Name, tt.wantName)
			}
			if raw.Description != tt.wantDesc {
				t.Errorf("description = %q, want %q", raw.Description, tt.wantDesc)
			}
			if tt.wantCalorie > 0 {
				if raw.TextCalories == nil || *raw.TextCalories != tt.wantCalorie {
					t.Errorf("calories = %v, want %v", raw.TextCalories, tt.wantCalorie)
				}
			} else if raw.TextCalories != nil {
				t.Errorf("calories = %v, want none", *raw.TextCalories)
			}
		})
	}
}

func TestStripMacrosFacts(t *testing.T) {
	rest, macros, summary := StripMacros("Chili 8g fiber 22g protein 5.5g sugar")
	if rest != "Chili" {
		t.Errorf("rest = %q", rest)
	}
	if summary != "Protein 22g / Fiber 8g / Sugar 5.5g" {
		t.Errorf("summary = %q", summary)
	}
	want := []Macro{
		{Name: "Protein", Label: "Protein", Grams: 22},
		{Name: "Fiber", Label: "Fiber", Grams: 8},
		{Name: "Sugar", Label: "Sugar", Grams: 5.5},
	}
	if !reflect.DeepEqual(macros, want) {
		t.Errorf("macros = %+v", macros)
	}
}

func TestSegment(t *testing.T) {
	got := Segment("- Eggs\n• Bacon | Toast; Hash Browns\n\n  ")
	want := []string{"Eggs", "Bacon", "Toast", "Hash Browns"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Segment = %q, want %q", got, want)
	}
}

func TestSkipAndAnnotation(t *testing.T) {
	for _, s := range []string{"Calories", "kcal", "Nutritional Facts", "Allergens"} {
		if !IsSkipText(s) {
			t.Errorf("IsSkipText(%q) = false", s)
		}
	}
	if IsSkipText("Calorie Bomb Brownie") {
		t.Error("dish name treated as skip text")
	}
	for _, s := range []string{"Contains milk, soy", "Contains: milk, wheat", "CONTAINS:tree nuts", "Allergen info: peanuts"} {
		if !IsAnnotation(s) {
			t.Errorf("IsAnnotation(%q) = false", s)
		}
	}
	for _, s := range []string{"Containsville Pie", "Chicken Contains Nothing Odd"} {
		if IsAnnotation(s) {
			t.Errorf("IsAnnotation(%q) = true", s)
		}
	}
}
