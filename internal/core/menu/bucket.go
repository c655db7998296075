package menu

import "strings"

// DescriptionSeparator 合併描述時使用的分隔字串
const DescriptionSeparator = " • "

// Bucket 保持插入順序的菜色集合，同名菜色只保留一筆
type Bucket struct {
	items []MenuItem
	index map[string]int
	last  int
}

// NewBucket 建立空集合
func NewBucket() *Bucket {
	return &Bucket{index: make(map[string]int), last: -1}
}

// Len 菜色數量
func (b *Bucket) Len() int {
	return len(b.items)
}

// Items 依插入順序回傳副本
func (b *Bucket) Items() []MenuItem {
	out := make([]MenuItem, len(b.items))
	copy(out, b.items)
	return out
}

// Upsert 新增或合併菜色，回傳是否為新項目
func (b *Bucket) Upsert(item MenuItem) bool {
	key := ItemKey(item.Name)
	if key == "" {
		return false
	}
	if i, ok := b.index[key]; ok {
		b.items[i] = MergeItems(b.items[i], item)
		b.last = i
		return false
	}
	if item.NutritionFacts == nil {
		item.NutritionFacts = []NutritionFact{}
	}
	b.last = len(b.items)
	b.index[key] = b.last
	b.items = append(b.items, item)
	return true
}

// Annotate 在最近一次寫入的菜色描述附加註記，集合為空時回傳 false
func (b *Bucket) Annotate(note string) bool {
	note = CleanText(note)
	if b.last < 0 || note == "" {
		return false
	}
	b.items[b.last].Description = MergeDescription(b.items[b.last].Description, note)
	return true
}

// MergeItems 合併同名菜色：保留先出現的熱量，描述取聯集，營養成分取聯集
func MergeItems(existing, incoming MenuItem) MenuItem {
	merged := existing
	merged.Description = MergeDescription(existing.Description, incoming.Description)
	if merged.Calories == nil && incoming.Calories != nil {
		merged.Calories = incoming.Calories
	}
	merged.NutritionFacts = MergeFacts(existing.NutritionFacts, incoming.NutritionFacts)
	return merged
}

// MergeDescription 合併描述；其中一方已包含另一方時保留較長者
func MergeDescription(existing, incoming string) string {
	existing = strings.TrimSpace(existing)
	incoming = strings.TrimSpace(incoming)
	switch {
	case incoming == "":
		return existing
	case existing == "":
		return incoming
	}

	le, li := strings.ToLower(existing), strings.ToLower(incoming)
	switch {
	case strings.Contains(le, li):
		return existing
	case strings.Contains(li, le):
		return incoming
	}
	return existing + DescriptionSeparator + incoming
}
