// Package htmlmenu 從排版不一致的餐廳 HTML 中盡力還原 地點 → 餐別 → 菜色 結構
package htmlmenu

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"dining-menu/internal/core/menu"
)

// DateContext 解析時的目標日期；零值代表不縮小範圍
type DateContext struct {
	Date time.Time
}

// 標題中可能出現的日期寫法
const (
	LongDateLayout   = "Monday, January 2, 2006"
	MediumDateLayout = "January 2, 2006"
)

// Renderings 回傳小寫的長、中格式日期字串
func (d DateContext) Renderings() []string {
	if d.Date.IsZero() {
		return nil
	}
	return []string{
		strings.ToLower(d.Date.Format(LongDateLayout)),
		strings.ToLower(d.Date.Format(MediumDateLayout)),
	}
}

// Parser HTML 菜單解析器。建立後唯讀，可在多個 goroutine 間共用。
type Parser struct {
	match *matcher
}

// NewParser 以指定關鍵字建立解析器，空清單使用預設值
func NewParser(keywords Keywords) *Parser {
	return &Parser{match: newMatcher(keywords)}
}

var defaultParser = NewParser(DefaultKeywords())

// Parse 使用預設關鍵字解析
func Parse(document string, dctx DateContext) []menu.MenuLocation {
	return defaultParser.Parse(document, dctx)
}

// Parse 解析 HTML 並回傳排序後的地點清單。相同輸入永遠得到相同輸出。
func (p *Parser) Parse(document string, dctx DateContext) []menu.MenuLocation {
	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return []menu.MenuLocation{}
	}

	w := &walker{
		match:    p.match,
		caser:    cases.Title(language.English),
		location: menu.DefaultLocation,
		meal:     menu.DefaultMealLabel,
		index:    make(map[string]*locationBucket),
	}
	w.visit(container(root, dctx))
	return w.result()
}

// container 找出含目標日期的標題，回傳其最近一個含 li 的祖先；找不到時回傳 body
func container(root *html.Node, dctx DateContext) *html.Node {
	if dates := dctx.Renderings(); len(dates) > 0 {
		if heading := findNode(root, func(n *html.Node) bool {
			if !isHeading(n) {
				return false
			}
			text := strings.ToLower(menu.CleanText(nodeText(n, false)))
			for _, d := range dates {
				if strings.Contains(text, d) {
					return true
				}
			}
			return false
		}); heading != nil {
			for anc := heading.Parent; anc != nil; anc = anc.Parent {
				if findNode(anc, func(n *html.Node) bool { return n.Type == html.ElementNode && n.DataAtom == atom.Li }) != nil {
					return anc
				}
			}
		}
	}
	if body := findNode(root, func(n *html.Node) bool { return n.Type == html.ElementNode && n.DataAtom == atom.Body }); body != nil {
		return body
	}
	return root
}

type locationBucket struct {
	name  string
	meals []*mealBucket
	index map[string]*mealBucket
}

type mealBucket struct {
	label string
	items *menu.Bucket
}

// walker 單次解析的走訪狀態
type walker struct {
	match    *matcher
	caser    cases.Caser
	location string
	meal     string

	order []*locationBucket
	index map[string]*locationBucket
}

func (w *walker) visit(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head:
			return
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.B, atom.Strong:
			w.handle(n, false)
			return
		case atom.P:
			w.handleParagraph(n)
			return
		case atom.Li:
			w.handle(n, true)
			w.visitNestedLists(n)
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.visit(c)
	}
}

// visitNestedLists li 內的巢狀清單另外走訪
func (w *walker) visitNestedLists(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.DataAtom == atom.Ul || c.DataAtom == atom.Ol {
			w.visit(c)
			continue
		}
		w.visitNestedLists(c)
	}
}

// handle 依序判斷地點標記、餐別標記、菜色文字
func (w *walker) handle(n *html.Node, listItem bool) {
	w.handleText(nodeText(n, listItem), listItem)
}

// handleParagraph 段落開頭的 <b>/<strong> 先各自判斷是否為標記，其餘文字再當作菜色處理
func (w *walker) handleParagraph(n *html.Node) {
	c := n.FirstChild
	for c != nil {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) == "" {
			c = c.NextSibling
			continue
		}
		if c.Type == html.ElementNode && (c.DataAtom == atom.B || c.DataAtom == atom.Strong) &&
			w.applyMarker(menu.CleanText(nodeText(c, false)), false) {
			c = c.NextSibling
			continue
		}
		break
	}
	if c == n.FirstChild {
		w.handle(n, false)
		return
	}

	var sb strings.Builder
	for ; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c, false))
	}
	w.handleText(sb.String(), false)
}

func (w *walker) handleText(text string, listItem bool) {
	line := menu.CleanText(text)
	if line == "" || w.applyMarker(line, listItem) {
		return
	}
	if listItem || hasBullets(text) {
		w.addEntries(text)
	}
}

// applyMarker 地點或餐別標記時更新目前狀態並回傳 true
func (w *walker) applyMarker(line string, listItem bool) bool {
	if line == "" {
		return false
	}
	if !listItem && w.match.isLocationMarker(line) {
		w.location = strings.Trim(line, edgeTrim)
		return true
	}
	if kw, ok := w.match.mealMarker(line, listItem); ok {
		w.meal = w.caser.String(strings.Join(strings.Fields(strings.ToLower(kw)), " "))
		return true
	}
	return false
}

func (w *walker) addEntries(text string) {
	for _, seg := range Segment(text) {
		if IsSkipText(seg) {
			continue
		}
		if IsAnnotation(seg) {
			if b := w.bucket(false); b != nil {
				b.Annotate(seg)
			}
			continue
		}
		raw, ok := ExtractItem(seg)
		if !ok || w.match.isKeywordPhrase(raw.Name) {
			continue
		}
		item := menu.NormalizeItem(raw)
		if item.Name == "" {
			continue
		}
		w.bucket(true).Upsert(item)
	}
}

// bucket 取得目前 (地點, 餐別) 的集合，create 為 false 時不存在則回傳 nil
func (w *walker) bucket(create bool) *menu.Bucket {
	lk := strings.ToLower(w.location)
	loc, ok := w.index[lk]
	if !ok {
		if !create {
			return nil
		}
		loc = &locationBucket{name: w.location, index: make(map[string]*mealBucket)}
		w.index[lk] = loc
		w.order = append(w.order, loc)
	}

	mk := strings.ToLower(w.meal)
	meal, ok := loc.index[mk]
	if !ok {
		if !create {
			return nil
		}
		meal = &mealBucket{label: w.meal, items: menu.NewBucket()}
		loc.index[mk] = meal
		loc.meals = append(loc.meals, meal)
	}
	return meal.items
}

// result 地點依名稱排序（不分大小寫，再比原字串），餐別依 (餐別類型, 標籤) 排序
func (w *walker) result() []menu.MenuLocation {
	out := make([]menu.MenuLocation, 0, len(w.order))
	for _, lb := range w.order {
		loc := menu.MenuLocation{Location: lb.name}
		for _, mb := range lb.meals {
			if mb.items.Len() == 0 {
				continue
			}
			loc.Meals = append(loc.Meals, menu.MenuMeal{
				MealType: menu.NormalizeMealType(mb.label),
				Label:    mb.label,
				Items:    mb.items.Items(),
			})
		}
		if len(loc.Meals) == 0 {
			continue
		}
		sort.SliceStable(loc.Meals, func(i, j int) bool {
			a, b := loc.Meals[i], loc.Meals[j]
			if a.MealType != b.MealType {
				return a.MealType < b.MealType
			}
			return a.Label < b.Label
		})
		out = append(out, loc)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Location), strings.ToLower(out[j].Location)
		if a != b {
			return a < b
		}
		return out[i].Location < out[j].Location
	})
	return out
}

func hasBullets(text string) bool {
	if strings.ContainsAny(text, bulletRunes) {
		return true
	}
	lines := 0
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines++
		}
	}
	if lines > 1 {
		return true
	}
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ")
}
