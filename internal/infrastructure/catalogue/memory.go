package catalogue

import (
	"fmt"
	"sort"

	"github.com/nutriplan/backend/internal/domain"
)

// MemoryCatalogue is an in-memory, read-only food catalogue. Items are held
// sorted by id so every query has a stable iteration order, which the
// planner relies on for deterministic output.
type MemoryCatalogue struct {
	items      []domain.FoodItem
	byID       map[string]int
	byCategory map[domain.Category][]int
	byGroup    map[string][]int
}

// New builds a catalogue from a slice of items. Items are validated and
// sorted by id; duplicate ids are rejected.
func New(items []domain.FoodItem) (*MemoryCatalogue, error) {
	sorted := make([]domain.FoodItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	c := &MemoryCatalogue{
		items:      sorted,
		byID:       make(map[string]int, len(sorted)),
		byCategory: make(map[domain.Category][]int),
		byGroup:    make(map[string][]int),
	}

	for i := range c.items {
		item := &c.items[i]
		if err := item.Validate(); err != nil {
			return nil, err
		}
		if _, exists := c.byID[item.ID]; exists {
			return nil, fmt.Errorf("duplicate food item id %q", item.ID)
		}
		c.byID[item.ID] = i
		c.byCategory[item.Category] = append(c.byCategory[item.Category], i)
		if item.SubstitutionGroup != "" {
			c.byGroup[item.SubstitutionGroup] = append(c.byGroup[item.SubstitutionGroup], i)
		}
	}

	return c, nil
}

// All returns every item ordered by id
func (c *MemoryCatalogue) All() []domain.FoodItem {
	out := make([]domain.FoodItem, len(c.items))
	copy(out, c.items)
	return out
}

// ByID looks up a single item
func (c *MemoryCatalogue) ByID(id string) (domain.FoodItem, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.FoodItem{}, false
	}
	return c.items[i], true
}

// ByCategory returns items of one category ordered by id
func (c *MemoryCatalogue) ByCategory(cat domain.Category) []domain.FoodItem {
	return c.collect(c.byCategory[cat])
}

// BySubstitutionGroup returns culturally-equivalent items ordered by id
func (c *MemoryCatalogue) BySubstitutionGroup(group string) []domain.FoodItem {
	return c.collect(c.byGroup[group])
}

// Len returns the catalogue size
func (c *MemoryCatalogue) Len() int {
	return len(c.items)
}

// ApplyPrices overwrites unit costs from a market price snapshot and returns
// the number of items updated. Must be called before planning starts; the
// catalogue is treated as immutable once the engine is serving.
func (c *MemoryCatalogue) ApplyPrices(snapshot *domain.PriceSnapshot) int {
	if snapshot == nil {
		return 0
	}
	updated := 0
	for id, price := range snapshot.Prices {
		if price <= 0 {
			continue
		}
		if i, ok := c.byID[id]; ok {
			c.items[i].UnitCost = price
			updated++
		}
	}
	return updated
}

func (c *MemoryCatalogue) collect(indices []int) []domain.FoodItem {
	out := make([]domain.FoodItem, 0, len(indices))
	for _, i := range indices {
		out = append(out, c.items[i])
	}
	return out
}
