package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/m3rciful/orderbot/core/logger"
)

// record is a catalog entry as stored on disk. Unknown keys are preserved.
type record = map[string]any

// kindKeys maps the key whose presence identifies each kind.
var kindKeys = []struct {
	key  string
	kind Kind
}{
	{"item_sku", KindItems},
	{"category_id", KindCategories},
	{"supplier", KindSuppliers},
}

func decodeRecords(raw []byte) ([]record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var recs []record
	if err := dec.Decode(&recs); err != nil {
		return nil, invalid(ReasonMalformed, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, invalid(ReasonMalformed, errors.New("trailing data"))
	}
	return recs, nil
}

// DetectKind parses a pasted JSON array and infers its kind from the keys of
// the first record.
func DetectKind(raw []byte) (Kind, []record, error) {
	recs, err := decodeRecords(raw)
	if err != nil {
		return "", nil, err
	}
	if len(recs) == 0 {
		return "", nil, invalid(ReasonUnknownShape, nil)
	}
	for _, kk := range kindKeys {
		if v, ok := recs[0][kk.key]; ok && text(v) != "" {
			return kk.kind, recs, nil
		}
	}
	return "", nil, invalid(ReasonUnknownShape, nil)
}

// SaveRaw replaces the file matching the pasted array's kind.
func (s *FileStore) SaveRaw(ctx context.Context, raw []byte) (Kind, int, error) {
	kind, recs, err := DetectKind(raw)
	if err != nil {
		return "", 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeJSON(ctx, kind, recs); err != nil {
		return "", 0, err
	}
	return kind, len(recs), nil
}

// UpsertItem replaces the item with the same SKU or appends a new one. It
// reports whether the item was created.
func (s *FileStore) UpsertItem(ctx context.Context, raw []byte) (bool, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rec record
	if err := dec.Decode(&rec); err != nil {
		return false, invalid(ReasonMalformed, err)
	}
	sku := text(rec["item_sku"])
	if sku == "" {
		return false, invalid(ReasonMissingSKU, nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.readRecords(KindItems)
	if err != nil {
		return false, err
	}
	created := true
	for i, r := range recs {
		if text(r["item_sku"]) == sku {
			recs[i] = rec
			created = false
			break
		}
	}
	if created {
		recs = append(recs, rec)
	}
	if err := s.writeJSON(ctx, KindItems, recs); err != nil {
		return false, err
	}
	return created, nil
}

// RemoveItem deletes the item with sku from items.json.
func (s *FileStore) RemoveItem(ctx context.Context, sku string) error {
	return s.editItems(ctx, sku, func(recs []record, i int) []record {
		return append(recs[:i], recs[i+1:]...)
	})
}

// AssignSupplier sets the default supplier of the item with sku. Other keys
// of the record are kept as they are.
func (s *FileStore) AssignSupplier(ctx context.Context, sku, supplier string) error {
	return s.editItems(ctx, sku, func(recs []record, i int) []record {
		recs[i]["default_supplier"] = supplier
		return recs
	})
}

func (s *FileStore) editItems(ctx context.Context, sku string, edit func([]record, int) []record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.readRecords(KindItems)
	if err != nil {
		return err
	}
	for i, r := range recs {
		if text(r["item_sku"]) == sku {
			return s.writeJSON(ctx, KindItems, edit(recs, i))
		}
	}
	return ErrUnknownItem
}

// Raw returns the file contents for kind, or "[]" when it does not exist.
func (s *FileStore) Raw(kind Kind) ([]byte, error) {
	data, err := os.ReadFile(s.Path(kind))
	if errors.Is(err, fs.ErrNotExist) {
		return []byte("[]"), nil
	}
	return data, err
}

func (s *FileStore) readRecords(kind Kind) ([]record, error) {
	data, err := os.ReadFile(s.Path(kind))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var recs []record
	if err := dec.Decode(&recs); err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", kind, err)
	}
	return recs, nil
}

// writeJSON backs the current file up and writes recs. Callers hold s.mu.
func (s *FileStore) writeJSON(ctx context.Context, kind Kind, recs []record) error {
	if recs == nil {
		recs = []record{}
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("catalog: encode %s: %w", kind, err)
	}
	return s.replaceFile(ctx, s.Path(kind), data, slog.String("kind", string(kind)), slog.Int("count", len(recs)))
}

func (s *FileStore) replaceFile(ctx context.Context, path string, data []byte, attrs ...slog.Attr) error {
	backup, err := s.backup(path)
	if err != nil {
		return err
	}
	if err := writeAtomic(path, data); err != nil {
		return err
	}
	attrs = append(attrs, slog.String("path", path), slog.String("backup", backup))
	logger.Info(ctx, logger.ComponentCatalog, "catalog.saved", attrs...)
	return nil
}

// restoredSuffix marks a backup already used by RestoreLatest.
const restoredSuffix = ".restored"

// backup copies path to path.bak_<unix-ms> and returns the copy's name. A
// missing file is not backed up.
func (s *FileStore) backup(path string) (string, error) {
	return s.copyAside(path, "bak")
}

func (s *FileStore) copyAside(path, tag string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("catalog: %s %s: %w", tag, filepath.Base(path), err)
	}
	dst := fmt.Sprintf("%s.%s_%d", path, tag, s.now().UnixMilli())
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("catalog: %s %s: %w", tag, filepath.Base(path), err)
	}
	return dst, nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("catalog: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("catalog: write %s: %w", filepath.Base(path), err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("catalog: write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("catalog: write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("catalog: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LatestBackup returns the newest backup of kind's file.
func (s *FileStore) LatestBackup(kind Kind) (string, error) {
	path := s.Path(kind)
	matches, err := filepath.Glob(path + ".bak_*")
	if err != nil {
		return "", err
	}
	var (
		latest string
		best   int64 = -1
	)
	for _, m := range matches {
		ts, err := strconv.ParseInt(strings.TrimPrefix(m, path+".bak_"), 10, 64)
		if err != nil {
			continue
		}
		if ts > best {
			best, latest = ts, m
		}
	}
	if latest == "" {
		return "", ErrNoBackup
	}
	return latest, nil
}

// RestoreLatest copies the newest backup over kind's file and consumes it,
// so repeated restores step back one backup at a time. The replaced file is
// kept as path.undo_<unix-ms>, which is never picked as a backup.
func (s *FileStore) RestoreLatest(ctx context.Context, kind Kind) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, err := s.LatestBackup(kind)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("catalog: read backup: %w", err)
	}
	path := s.Path(kind)
	undo, err := s.copyAside(path, "undo")
	if err != nil {
		return "", err
	}
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	if err := os.Rename(src, src+restoredSuffix); err != nil {
		return "", fmt.Errorf("catalog: consume backup: %w", err)
	}
	logger.Info(ctx, logger.ComponentCatalog, "catalog.restored",
		slog.String("kind", string(kind)),
		slog.String("path", path),
		slog.String("restored_from", src),
		slog.String("undo", undo),
	)
	return src, nil
}

// List names the plain-text lists kept next to the catalog.
type List string

const (
	ListToday  List = "todaylist.csv"
	ListCustom List = "customlist.csv"
)

// ReadList returns the list contents and whether the file exists.
func (s *FileStore) ReadList(list List) (string, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, string(list)))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case json.Number:
		return x.String()
	case map[string]any, []any:
		b, _ := json.Marshal(x)
		return string(b)
	}
	return cast.ToString(v)
}
