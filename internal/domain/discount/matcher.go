package discount

// Item is the matcher's view of a cart line: the opaque product and category
// keys a scope matches against.
type Item struct {
	ProductID  string
	CategoryID string
}

// MatchScope returns the indices of items the scope applies to. An empty
// scope matches every item; otherwise an item matches when its product ID or
// its category ID appears in the scope. Pure function, no side effects.
func MatchScope(s Scope, items []Item) []int {
	if s.IsEmpty() {
		all := make([]int, len(items))
		for i := range items {
			all[i] = i
		}
		return all
	}

	products := make(map[string]struct{}, len(s.Products))
	for _, id := range s.Products {
		products[id] = struct{}{}
	}
	categories := make(map[string]struct{}, len(s.Categories))
	for _, id := range s.Categories {
		categories[id] = struct{}{}
	}

	var matched []int
	for i, item := range items {
		if _, ok := products[item.ProductID]; ok {
			matched = append(matched, i)
			continue
		}
		if _, ok := categories[item.CategoryID]; ok {
			matched = append(matched, i)
		}
	}
	return matched
}
