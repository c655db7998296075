package htmlmenu

import (
	"regexp"
	"sort"
	"strings"
)

// Keywords 地點與餐別標記的關鍵字，可由設定檔覆寫
type Keywords struct {
	Locations []string `mapstructure:"location_keywords"`
	Meals     []string `mapstructure:"meal_keywords"`
}

// DefaultKeywords 預設關鍵字清單
func DefaultKeywords() Keywords {
	return Keywords{
		Locations: []string{"college", "hall", "dining", "commons", "grill", "kitchen", "buttery", "library"},
		Meals:     []string{"breakfast", "brunch", "lunch", "dinner", "supper", "snack", "grab", "late night", "special"},
	}
}

// withDefaults 空清單使用預設值
func (k Keywords) withDefaults() Keywords {
	def := DefaultKeywords()
	if len(normalizeKeywords(k.Locations)) == 0 {
		k.Locations = def.Locations
	}
	if len(normalizeKeywords(k.Meals)) == 0 {
		k.Meals = def.Meals
	}
	k.Locations = normalizeKeywords(k.Locations)
	k.Meals = normalizeKeywords(k.Meals)
	return k
}

func normalizeKeywords(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, kw := range list {
		kw = strings.ToLower(strings.Join(strings.Fields(kw), " "))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}

// keywordPattern 組出 `\b(kw1|kw2)s?\b`，長關鍵字優先比對
func keywordPattern(list []string) string {
	sorted := append([]string(nil), list...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	alts := make([]string, len(sorted))
	for i, kw := range sorted {
		alts[i] = strings.ReplaceAll(regexp.QuoteMeta(kw), " ", `\s+`)
	}
	return `\b(` + strings.Join(alts, "|") + `)s?\b`
}

// 標記判斷用的填充字
var markerFillers = map[string]bool{
	"menu": true, "menus": true, "hours": true, "and": true, "&": true,
	"the": true, "of": true, "at": true, "-": true, "–": true, "—": true,
}

// timeRange 例如 "7:30 - 10am"、"(11am to 2pm)"
const timeRange = `\(?\d{1,2}(?::\d{2})?\s*(?:[ap]\.?m\.?)?\s*(?:-|–|—|to)\s*\d{1,2}(?::\d{2})?\s*(?:[ap]\.?m\.?)?\)?`

// matcher 由 Keywords 編譯出的比對器
type matcher struct {
	location *regexp.Regexp
	meal     *regexp.Regexp
	mealLine *regexp.Regexp
	words    map[string]bool
	locWords map[string]bool
}

func newMatcher(k Keywords) *matcher {
	k = k.withDefaults()
	m := &matcher{
		location: regexp.MustCompile(`(?i)` + keywordPattern(k.Locations)),
		meal:     regexp.MustCompile(`(?i)` + keywordPattern(k.Meals)),
		mealLine: regexp.MustCompile(`(?i)^` + keywordPattern(k.Meals) +
			`(?:\s+(?:menu|hours))?(?:\s*[:\-–—]?\s*` + timeRange + `)?\s*:?$`),
		words:    make(map[string]bool),
		locWords: make(map[string]bool),
	}
	for _, kw := range k.Locations {
		for _, w := range strings.Fields(kw) {
			m.words[w] = true
			m.locWords[w] = true
		}
	}
	for _, kw := range k.Meals {
		for _, w := range strings.Fields(kw) {
			m.words[w] = true
		}
	}
	return m
}

// isLocationMarker 非清單節點、像標題的短文字且含地點關鍵字
func (m *matcher) isLocationMarker(line string) bool {
	return isHeaderLike(line, 8) && m.location.MatchString(line)
}

// mealMarker 清單項目須整行為餐別；其他節點須為六字以內的短標題
func (m *matcher) mealMarker(line string, listItem bool) (string, bool) {
	if listItem {
		sub := m.mealLine.FindStringSubmatch(line)
		if sub == nil {
			return "", false
		}
		return sub[1], true
	}
	if !isHeaderLike(line, 6) {
		return "", false
	}
	sub := m.meal.FindStringSubmatch(line)
	if sub == nil {
		return "", false
	}
	return sub[1], true
}

// isKeywordPhrase 三字以內且本身就是地點或餐別標記的名稱
func (m *matcher) isKeywordPhrase(name string) bool {
	words := strings.Fields(strings.ToLower(name))
	if len(words) == 0 || len(words) > 3 {
		return false
	}
	if m.mealLine.MatchString(name) {
		return true
	}
	if hasWord(m.locWords, words[len(words)-1]) {
		return true
	}
	for _, w := range words {
		if !markerFillers[w] && !hasWord(m.words, w) {
			return false
		}
	}
	return true
}

// hasWord 比對單字，允許複數 s
func hasWord(set map[string]bool, w string) bool {
	w = strings.Trim(w, ":,.")
	if set[w] {
		return true
	}
	return len(w) > 3 && strings.HasSuffix(w, "s") && set[w[:len(w)-1]]
}

func isHeaderLike(line string, maxWords int) bool {
	if strings.ContainsAny(line, bulletRunes) {
		return false
	}
	n := len(strings.Fields(line))
	return n > 0 && n <= maxWords
}
