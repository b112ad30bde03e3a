package catalog

import (
	"slices"
	"strings"
)

type (
	// ItemFilter selects items.
	ItemFilter func(Item) bool
	// CategoryFilter selects categories.
	CategoryFilter func(Category) bool
	// SupplierFilter selects suppliers.
	SupplierFilter func(Supplier) bool
)

func apply[T any, F ~func(T) bool](all []T, filters []F) []T {
	if len(filters) == 0 {
		return all
	}
	out := make([]T, 0, len(all))
	for _, v := range all {
		if slices.IndexFunc(filters, func(f F) bool { return !f(v) }) < 0 {
			out = append(out, v)
		}
	}
	return out
}

// BySKU matches a single SKU.
func BySKU(sku string) ItemFilter {
	sku = strings.TrimSpace(sku)
	return func(it Item) bool { return it.SKU == sku }
}

// BySubCategory matches items of one of the given sub-categories.
func BySubCategory(subs ...string) ItemFilter {
	return func(it Item) bool { return slices.Contains(subs, it.SubCategory) }
}

// ByCategoryID matches items of one category.
func ByCategoryID(id int) ItemFilter {
	return func(it Item) bool { return it.CategoryID == id }
}

// ByLane matches items routed to lane.
func ByLane(lane Lane, threshold int) ItemFilter {
	return func(it Item) bool { return it.Lane(threshold) == lane }
}

// BySupplier matches items whose default supplier is name, ignoring case.
func BySupplier(name string) ItemFilter {
	name = strings.TrimSpace(name)
	return func(it Item) bool { return strings.EqualFold(it.DefaultSupplier, name) }
}

// NameContains matches item names containing q, ignoring case.
func NameContains(q string) ItemFilter {
	q = strings.ToLower(strings.TrimSpace(q))
	return func(it Item) bool { return strings.Contains(strings.ToLower(it.Name), q) }
}

// ByParent matches categories under the given parent.
func ByParent(parent string) CategoryFilter {
	return func(c Category) bool { return strings.EqualFold(c.Parent, parent) }
}

// EnabledOnly drops disabled suppliers.
func EnabledOnly() SupplierFilter {
	return func(s Supplier) bool { return s.Enabled }
}
