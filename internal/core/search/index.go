// Package search 在正規化菜單上做不分大小寫的子字串搜尋
package search

import (
	"sort"
	"strings"

	"dining-menu/internal/core/menu"
)

// Result 單筆搜尋結果
type Result struct {
	Location     string        `json:"location"`
	MealType     string        `json:"meal_type"`
	MealLabel    string        `json:"meal_label"`
	SectionType  menu.Slot     `json:"section_type"`
	SectionLabel string        `json:"section_label"`
	Item         menu.MenuItem `json:"item"`

	locationKey string
}

// DefaultAliasGroups 同一場地的不同寫法，每組第一個為顯示名稱
var DefaultAliasGroups = [][]string{
	{"Berkeley College", "Berkeley", "Berkeley Dining Hall"},
	{"Commons Dining Hall", "Commons", "Schwarzman Commons"},
	{"Grace Hopper College", "Hopper", "Grace Hopper", "Hopper Dining Hall"},
	{"Pierson College", "Pierson", "Pierson Dining Hall"},
	{"Morse & Ezra Stiles", "Morse", "Stiles", "Morse College", "Ezra Stiles College"},
}

// Index 搜尋索引，只保存別名表，建立後唯讀
type Index struct {
	aliases map[string]string
}

// NewIndex 以別名群組建立索引，nil 使用預設別名表
func NewIndex(groups [][]string) *Index {
	if groups == nil {
		groups = DefaultAliasGroups
	}
	idx := &Index{aliases: make(map[string]string)}
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		canonical := menu.CleanText(group[0])
		for _, alias := range group {
			key := locationKey(alias)
			if key == "" {
				continue
			}
			if _, exists := idx.aliases[key]; !exists {
				idx.aliases[key] = canonical
			}
		}
	}
	return idx
}

// ParseAliasGroups 解析 "A|B|C" 格式的設定值
func ParseAliasGroups(values []string) [][]string {
	groups := make([][]string, 0, len(values))
	for _, v := range values {
		var group []string
		for _, name := range strings.Split(v, "|") {
			if name = menu.CleanText(name); name != "" {
				group = append(group, name)
			}
		}
		if len(group) > 0 {
			groups = append(groups, group)
		}
	}
	return groups
}

func locationKey(name string) string {
	return strings.ToLower(menu.CleanText(name))
}

// Canonical 回傳場地顯示名稱與去重鍵
func (idx *Index) Canonical(location string) (label, key string) {
	key = locationKey(location)
	if canonical, ok := idx.aliases[key]; ok {
		return canonical, locationKey(canonical)
	}
	return menu.CleanText(location), key
}

// Search 搜尋所有餐段；查詢字串為空白時回傳空結果
func (idx *Index) Search(sections []menu.MenuMealSection, query string) []Result {
	q := strings.ToLower(menu.CleanText(query))
	results := []Result{}
	if q == "" {
		return results
	}

	seen := make(map[string]bool)
	for _, section := range sections {
		for _, loc := range section.Locations {
			label, key := idx.Canonical(loc.Location)
			for _, meal := range loc.Meals {
				for _, item := range meal.Items {
					if !matches(q, section, loc, label, meal, item) {
						continue
					}
					dedup := strings.Join([]string{
						key,
						meal.MealType,
						strings.ToLower(item.Name),
						strings.ToLower(item.Description),
					}, "\x00")
					if seen[dedup] {
						continue
					}
					seen[dedup] = true
					results = append(results, Result{
						Location:     label,
						MealType:     meal.MealType,
						MealLabel:    meal.Label,
						SectionType:  section.Type,
						SectionLabel: section.Label,
						Item:         item,
						locationKey:  key,
					})
				}
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.locationKey != b.locationKey {
			return a.locationKey < b.locationKey
		}
		if am, bm := strings.ToLower(a.MealType), strings.ToLower(b.MealType); am != bm {
			return am < bm
		}
		if an, bn := strings.ToLower(a.Item.Name), strings.ToLower(b.Item.Name); an != bn {
			return an < bn
		}
		return strings.ToLower(a.Item.Description) < strings.ToLower(b.Item.Description)
	})
	return results
}

func matches(q string, section menu.MenuMealSection, loc menu.MenuLocation, label string, meal menu.MenuMeal, item menu.MenuItem) bool {
	fields := []string{
		item.Name,
		item.Description,
		loc.Location,
		label,
		meal.MealType,
		meal.Label,
		section.Label,
		string(section.Type),
	}
	for _, f := range item.NutritionFacts {
		fields = append(fields, f.Name, f.Display)
		if s, ok := menu.FormatFact(f); ok {
			fields = append(fields, s)
		}
	}
	for _, field := range fields {
		if field != "" && strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
