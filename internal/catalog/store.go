package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Kind names one of the catalog JSON files.
type Kind string

const (
	KindItems      Kind = "items"
	KindCategories Kind = "categories"
	KindSuppliers  Kind = "suppliers"
)

// Kinds lists every catalog file kind in menu order.
var Kinds = []Kind{KindItems, KindCategories, KindSuppliers}

// ParseKind validates a kind received from a callback payload.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Option customizes a FileStore.
type Option func(*FileStore)

// WithClock overrides the clock used for backup suffixes.
func WithClock(now func() time.Time) Option {
	return func(s *FileStore) {
		if now != nil {
			s.now = now
		}
	}
}

// FileStore reads the catalog from JSON files in a data directory. Every
// read goes to disk; writes are serialized and preceded by a backup.
type FileStore struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string, opts ...Option) *FileStore {
	s := &FileStore{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the data directory.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the JSON file backing kind.
func (s *FileStore) Path(kind Kind) string {
	return filepath.Join(s.dir, string(kind)+".json")
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", filepath.Base(path), err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", filepath.Base(path), err)
	}
	return out, nil
}

// Items returns the items accepted by every filter, in file order.
func (s *FileStore) Items(filters ...ItemFilter) ([]Item, error) {
	all, err := loadJSON[Item](s.Path(KindItems))
	if err != nil {
		return nil, err
	}
	return apply(all, filters), nil
}

// Categories returns the categories accepted by every filter.
func (s *FileStore) Categories(filters ...CategoryFilter) ([]Category, error) {
	all, err := loadJSON[Category](s.Path(KindCategories))
	if err != nil {
		return nil, err
	}
	return apply(all, filters), nil
}

// Suppliers returns the suppliers accepted by every filter.
func (s *FileStore) Suppliers(filters ...SupplierFilter) ([]Supplier, error) {
	all, err := loadJSON[Supplier](s.Path(KindSuppliers))
	if err != nil {
		return nil, err
	}
	return apply(all, filters), nil
}

// ItemBySKU looks an item up by its SKU.
func (s *FileStore) ItemBySKU(sku string) (Item, bool, error) {
	items, err := s.Items(BySKU(sku))
	if err != nil || len(items) == 0 {
		return Item{}, false, err
	}
	return items[0], true, nil
}

// CategoryByID looks a category up by id.
func (s *FileStore) CategoryByID(id int) (Category, bool, error) {
	cats, err := s.Categories(func(c Category) bool { return c.ID == id })
	if err != nil || len(cats) == 0 {
		return Category{}, false, err
	}
	return cats[0], true, nil
}

// ResolveSupplier names the supplier an item is ordered from: the catalog
// supplier matching the item's default supplier case-insensitively, else the
// default supplier text, else UnknownSupplier.
func (s *FileStore) ResolveSupplier(item Item) (string, error) {
	if item.DefaultSupplier == "" {
		return UnknownSupplier, nil
	}
	suppliers, err := s.Suppliers()
	if err != nil {
		return item.DefaultSupplier, err
	}
	for _, sup := range suppliers {
		if strings.EqualFold(sup.Name, item.DefaultSupplier) {
			return sup.Name, nil
		}
	}
	return item.DefaultSupplier, nil
}

// SubCategories lists the distinct sub-categories of lane items in file order.
func (s *FileStore) SubCategories(lane Lane, threshold int) ([]string, error) {
	items, err := s.Items(ByLane(lane, threshold))
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, it := range items {
		if it.SubCategory == "" {
			continue
		}
		if _, dup := seen[it.SubCategory]; dup {
			continue
		}
		seen[it.SubCategory] = struct{}{}
		out = append(out, it.SubCategory)
	}
	return out, nil
}
