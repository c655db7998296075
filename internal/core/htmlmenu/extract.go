package htmlmenu

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"dining-menu/internal/core/menu"
)

// bulletRunes 視為項目分隔的字元
const bulletRunes = "•·●▪◦|;"

var (
	// 例如 "350 cal"、"1,200 Calories"、"90kcal"
	caloriesTrailing = regexp.MustCompile(`(?i)\b(\d{1,2},\d{3}|\d{2,4})\s*(?:k?cals?|calories)\b`)
	// 例如 "Oatmeal Calories: 150"，標籤在前且必須有冒號或等號
	caloriesLabeled = regexp.MustCompile(`(?i)\b(?:calories|kcals?|cals?)\s*[:=]\s*(\d{1,2},\d{3}|\d{2,4})\b`)
	// 例如 "kcal 90"，只在開頭
	caloriesLeading = regexp.MustCompile(`(?i)^(?:calories|kcals?|cals?)\s*[:=\-]?\s*(\d{1,2},\d{3}|\d{2,4})\b`)

	// 例如 "30g protein"、"12.5 g of carbs"
	macroAmountFirst = regexp.MustCompile(`(?i)\b(\d{1,3}(?:\.\d+)?)\s*g\s*(?:of\s+)?(protein|prot|carbohydrates?|carbs?|fat|fibre|fiber|sugars?)\b`)
	// 例如 "Protein: 20g"、"Carbs 30 g"
	macroLabelFirst = regexp.MustCompile(`(?i)\b(protein|prot|carbohydrates?|carbs?|fat|fibre|fiber|sugars?)\s*:?\s*(\d{1,3}(?:\.\d+)?)\s*g\b`)

	trailingParen = regexp.MustCompile(`^(.*?)\s*\(([^()]*)\)$`)
	emptyParen    = regexp.MustCompile(`\(\s*[,;:/|\-–—]*\s*\)`)

	segmentSplit  = regexp.MustCompile(`[\n•·●▪◦|;]+`)
	leadingBullet = regexp.MustCompile(`^[\s\-–—*•·●▪◦>]+`)

	skipPattern = regexp.MustCompile(`(?i)^(?:calories?|kcals?|nutrition(?:al)? facts?|allergens?)$`)
	// 例如 "Contains milk"、"Contains: milk, wheat"
	containsPrefix = regexp.MustCompile(`(?i)^contains\b\s*:?`)
)

// edgeTrim 清理後頭尾需去除的標點
const edgeTrim = " ,;:/|-–—•·"

// nameProseSeparators 名稱與說明之間的分隔，連字號兩側必須有空白
var nameProseSeparators = []string{" - ", " – ", " — ", " -- ", ":"}

// maxNameWords 拆分名稱與說明時名稱的字數上限
const maxNameWords = 6

// Macro 由文字抽出的巨量營養素，單位固定為公克
type Macro struct {
	Name  string // 營養成分名稱，例如 "Carbohydrates"
	Label string // 摘要用短名，例如 "Carbs"
	Grams float64
}

// macroOrder 摘要排序
var macroOrder = map[string]int{"Protein": 0, "Carbohydrates": 1, "Fat": 2, "Fiber": 3, "Sugar": 4}

func canonicalMacro(token string) (name, label string) {
	t := strings.ToLower(token)
	switch {
	case strings.HasPrefix(t, "prot"):
		return "Protein", "Protein"
	case strings.HasPrefix(t, "carb"):
		return "Carbohydrates", "Carbs"
	case t == "fat":
		return "Fat", "Fat"
	case strings.HasPrefix(t, "fib"):
		return "Fiber", "Fiber"
	default:
		return "Sugar", "Sugar"
	}
}

// Segment 依換行與項目符號切段，並去除開頭的符號與破折號
func Segment(text string) []string {
	parts := segmentSplit.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = menu.CleanText(leadingBullet.ReplaceAllString(p, ""))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// StripCalories 移除熱量標註。
// 標註在文字中段時，前段為名稱、後段以 residual 回傳作為描述。
func StripCalories(text string) (rest, residual string, calories *float64) {
	for _, re := range []*regexp.Regexp{caloriesTrailing, caloriesLabeled} {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		v, ok := calorieValue(text[loc[2]:loc[3]])
		if !ok {
			continue
		}
		before := tidy(text[:loc[0]])
		after := tidy(text[loc[1]:])
		if before == "" {
			return after, "", menu.Float(v)
		}
		return before, after, menu.Float(v)
	}
	if loc := caloriesLeading.FindStringSubmatchIndex(text); loc != nil {
		if v, ok := calorieValue(text[loc[2]:loc[3]]); ok {
			return tidy(text[loc[1]:]), "", menu.Float(v)
		}
	}
	return tidy(text), "", nil
}

// calorieValue 去除千分位逗號後解析
func calorieValue(digits string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(digits, ",", ""), 64)
	return v, err == nil
}

// StripMacros 移除巨量營養素標註，回傳剩餘文字、營養素與摘要，例如 "Protein 20g / Carbs 30g"。
// 同一營養素重複出現時以第一個為準。
func StripMacros(text string) (rest string, macros []Macro, summary string) {
	seen := make(map[string]bool)
	record := func(token, amount string) {
		v, err := strconv.ParseFloat(amount, 64)
		if err != nil {
			return
		}
		name, label := canonicalMacro(token)
		if seen[name] {
			return
		}
		seen[name] = true
		macros = append(macros, Macro{Name: name, Label: label, Grams: v})
	}

	rest = macroAmountFirst.ReplaceAllStringFunc(text, func(m string) string {
		sub := macroAmountFirst.FindStringSubmatch(m)
		record(sub[2], sub[1])
		return " "
	})
	rest = macroLabelFirst.ReplaceAllStringFunc(rest, func(m string) string {
		sub := macroLabelFirst.FindStringSubmatch(m)
		record(sub[1], sub[2])
		return " "
	})

	if len(macros) == 0 {
		return tidy(text), nil, ""
	}
	sort.SliceStable(macros, func(i, j int) bool {
		return macroOrder[macros[i].Name] < macroOrder[macros[j].Name]
	})
	return tidy(rest), macros, macroSummary(macros)
}

// StripParenthetical 取出結尾括號內容作為描述
func StripParenthetical(text string) (name, inner string) {
	sub := trailingParen.FindStringSubmatch(strings.TrimSpace(text))
	if sub == nil {
		return text, ""
	}
	return tidy(sub[1]), menu.CleanText(sub[2])
}

// SplitNameProse 以 " - "、" – " 或冒號拆出名稱與說明。
// 名稱超過六個字時不拆；"Stir-Fry" 這類無空白的連字號不會被拆開。
func SplitNameProse(text string) (name, prose string) {
	idx, width := -1, 0
	for _, sep := range nameProseSeparators {
		if i := strings.Index(text, sep); i > 0 && (idx < 0 || i < idx) {
			idx, width = i, len(sep)
		}
	}
	if idx < 0 {
		return text, ""
	}
	name = tidy(text[:idx])
	prose = tidy(text[idx+width:])
	if name == "" || prose == "" || len(strings.Fields(name)) > maxNameWords {
		return text, ""
	}
	return name, prose
}

// IsSkipText 純標籤文字，例如 "Calories"、"Nutrition Facts"
func IsSkipText(text string) bool {
	return skipPattern.MatchString(strings.TrimSpace(text))
}

// IsAnnotation 過敏原等註記，附加到前一道菜色而不是成為新菜色
func IsAnnotation(text string) bool {
	text = strings.TrimSpace(text)
	return containsPrefix.MatchString(text) || strings.Contains(strings.ToLower(text), "allergen")
}

// ExtractItem 依固定順序套用熱量、營養素、括號、名稱拆分規則。
// 名稱為空或為標籤文字時回傳 false。
func ExtractItem(segment string) (menu.RawItem, bool) {
	text := menu.CleanText(segment)

	text, residual, calories := StripCalories(text)
	text, macros, summary := StripMacros(text)
	residual, extra, _ := StripMacros(residual)
	macros = mergeMacros(macros, extra)
	if len(extra) > 0 {
		summary = macroSummary(macros)
	}

	name, paren := StripParenthetical(text)
	name, prose := SplitNameProse(name)
	name = tidy(name)
	if name == "" || IsSkipText(name) {
		return menu.RawItem{}, false
	}

	description := ""
	for _, part := range []string{prose, paren, residual, summary} {
		description = menu.MergeDescription(description, part)
	}

	raw := menu.RawItem{
		Name:         name,
		Description:  description,
		TextCalories: calories,
	}
	for _, m := range macros {
		raw.NutritionFacts = append(raw.NutritionFacts, menu.RawFact{
			Name:    m.Name,
			Amount:  m.Grams,
			Unit:    "g",
			Display: menu.FormatNumber(m.Grams) + "g",
		})
	}
	return raw, true
}

func mergeMacros(base, extra []Macro) []Macro {
	for _, m := range extra {
		dup := false
		for _, b := range base {
			if b.Name == m.Name {
				dup = true
				break
			}
		}
		if !dup {
			base = append(base, m)
		}
	}
	sort.SliceStable(base, func(i, j int) bool {
		return macroOrder[base[i].Name] < macroOrder[base[j].Name]
	})
	return base
}

func macroSummary(macros []Macro) string {
	parts := make([]string, len(macros))
	for i, m := range macros {
		parts[i] = m.Label + " " + menu.FormatNumber(m.Grams) + "g"
	}
	return strings.Join(parts, " / ")
}

// tidy 移除空括號、壓縮空白並修剪頭尾標點
func tidy(s string) string {
	s = emptyParen.ReplaceAllString(s, " ")
	return strings.Trim(menu.CleanText(s), edgeTrim)
}
