// Package marks implements mark mode: users collect catalog items into a
// personal set and send them as one bulk order summary.
package marks

import (
	"slices"
	"sync"

	"github.com/m3rciful/orderbot/internal/catalog"
)

type entry struct {
	enabled bool
	order   []string
	items   map[string]catalog.Item
}

// Book holds the mark mode flag and the marked items of every user. Items
// keep the order they were first marked in.
type Book struct {
	mu    sync.Mutex
	users map[int64]*entry
}

// NewBook returns an empty book.
func NewBook() *Book {
	return &Book{users: make(map[int64]*entry)}
}

func (b *Book) entry(user int64) *entry {
	e, ok := b.users[user]
	if !ok {
		e = &entry{items: make(map[string]catalog.Item)}
		b.users[user] = e
	}
	return e
}

// Enable turns mark mode on for user with an empty set.
func (b *Book) Enable(user int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.entry(user)
	e.enabled = true
	e.order = nil
	clear(e.items)
}

// Disable turns mark mode off and drops the user's set.
func (b *Book) Disable(user int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.users, user)
}

// Enabled reports whether user is in mark mode.
func (b *Book) Enabled(user int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.users[user]
	return ok && e.enabled
}

// Mark adds item to the user's set. It reports false when mark mode is off.
// Marking an item twice keeps its original position.
func (b *Book) Mark(user int64, item catalog.Item) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.users[user]
	if !ok || !e.enabled {
		return false
	}
	if _, dup := e.items[item.SKU]; !dup {
		e.order = append(e.order, item.SKU)
	}
	e.items[item.SKU] = item
	return true
}

// Unmark removes sku from the user's set. It reports false when mark mode
// is off.
func (b *Book) Unmark(user int64, sku string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.users[user]
	if !ok || !e.enabled {
		return false
	}
	if _, marked := e.items[sku]; marked {
		delete(e.items, sku)
		e.order = slices.DeleteFunc(e.order, func(s string) bool { return s == sku })
	}
	return true
}

// IsMarked reports whether sku is in the user's set.
func (b *Book) IsMarked(user int64, sku string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.users[user]
	if !ok {
		return false
	}
	_, marked := e.items[sku]
	return marked
}

// Items returns the user's set in marking order.
func (b *Book) Items(user int64) []catalog.Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.users[user]
	if !ok {
		return nil
	}
	out := make([]catalog.Item, 0, len(e.order))
	for _, sku := range e.order {
		out = append(out, e.items[sku])
	}
	return out
}

// Len is the size of the user's set.
func (b *Book) Len(user int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.users[user]; ok {
		return len(e.order)
	}
	return 0
}
