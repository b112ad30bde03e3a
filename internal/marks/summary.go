package marks

import (
	"fmt"
	"strings"

	"github.com/m3rciful/orderbot/core/telegram/format"
	"github.com/m3rciful/orderbot/internal/catalog"
)

// Destination is the thread a bulk order goes to.
type Destination string

const (
	DestManager    Destination = "manager"
	DestDispatcher Destination = "dispatcher"
)

// ParseDestination validates a destination taken from a callback payload.
func ParseDestination(s string) (Destination, bool) {
	switch d := Destination(strings.ToLower(strings.TrimSpace(s))); d {
	case DestManager, DestDispatcher:
		return d, true
	}
	return "", false
}

// Group is the marked items of one supplier.
type Group struct {
	Supplier string
	Items    []catalog.Item
}

// GroupBySupplier splits items by supplier. Groups appear in the order their
// first item appears in items.
func GroupBySupplier(items []catalog.Item, supplier func(catalog.Item) string) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, it := range items {
		name := supplier(it)
		if name == "" {
			name = catalog.UnknownSupplier
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group{Supplier: name})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}

// BuildSummary renders the Markdown bulk order message.
func BuildSummary(dest Destination, groups []Group, stamp string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 **Bulk Order Summary** (%s):\n\n", strings.ToUpper(string(dest)))
	for _, g := range groups {
		fmt.Fprintf(&b, "**<<%s>>**\n", format.EscapeV1(g.Supplier))
		for _, it := range g.Items {
			fmt.Fprintf(&b, "%s %s %s\n", format.EscapeV1(it.Name), format.EscapeV1(it.QtyText()), format.EscapeV1(it.Unit("pc")))
		}
		b.WriteString("•\n\n")
	}
	b.WriteString(stamp)
	return b.String()
}
