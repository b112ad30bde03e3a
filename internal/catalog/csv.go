package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
)

// columns lists the well-known fields of each kind in export order.
var columns = map[Kind][]string{
	KindItems:      {"item_sku", "item_name", "category_id", "category_name", "sub_category", "default_supplier", "default_quantity", "measure_unit", "source"},
	KindCategories: {"category_id", "category_name", "parent_category"},
	KindSuppliers:  {"supplier", "enabled"},
}

// ExportCSV renders kind's file as CSV. Known columns come first, any other
// keys follow alphabetically.
func (s *FileStore) ExportCSV(kind Kind) ([]byte, error) {
	recs, err := s.readRecords(kind)
	if err != nil {
		return nil, err
	}
	header := slices.Clone(columns[kind])
	var extra []string
	for _, r := range recs {
		for k := range r {
			if !slices.Contains(header, k) && !slices.Contains(extra, k) {
				extra = append(extra, k)
			}
		}
	}
	slices.Sort(extra)
	header = append(header, extra...)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	row := make([]string, len(header))
	for _, r := range recs {
		for i, k := range header {
			row[i] = cell(r[k])
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("catalog: export %s: %w", kind, err)
	}
	return buf.Bytes(), nil
}

// ParseItemsCSV converts header-based CSV into item records. Blank lines are
// skipped and short rows leave the missing columns empty.
func ParseItemsCSV(data []byte) ([]record, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimSpace(data)))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, invalid(ReasonMissingHeader, nil)
	}
	if err != nil {
		return nil, invalid(ReasonMalformed, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	if !slices.Contains(header, "item_sku") {
		return nil, invalid(ReasonMissingHeader, errors.New("item_sku column required"))
	}

	var recs []record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, invalid(ReasonMalformed, err)
		}
		rec := make(record, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			v := ""
			if i < len(row) {
				v = strings.TrimSpace(row[i])
			}
			rec[h] = v
		}
		if text(rec["item_sku"]) == "" {
			continue
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return nil, invalid(ReasonMissingSKU, errors.New("no rows with item_sku"))
	}
	return recs, nil
}

// ImportItemsCSV replaces items.json with the parsed CSV and keeps the CSV
// itself as items.csv. Both files are backed up first.
func (s *FileStore) ImportItemsCSV(ctx context.Context, data []byte) (int, error) {
	recs, err := ParseItemsCSV(data)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	csvPath := filepath.Join(s.dir, "items.csv")
	if err := s.replaceFile(ctx, csvPath, bytes.TrimSpace(data), slog.String("kind", "items_csv")); err != nil {
		return 0, err
	}
	if err := s.writeJSON(ctx, KindItems, recs); err != nil {
		return 0, err
	}
	return len(recs), nil
}
