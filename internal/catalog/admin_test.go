package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(start int64) func() time.Time {
	ms := start
	return func() time.Time {
		ms++
		return time.UnixMilli(ms)
	}
}

func TestDetectKind(t *testing.T) {
	cases := map[string]Kind{
		`[{"item_sku": "A"}]`:     KindItems,
		`[{"category_id": 1}]`:    KindCategories,
		`[{"supplier": "Fresh"}]`: KindSuppliers,
	}
	for raw, want := range cases {
		kind, recs, err := DetectKind([]byte(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, want, kind)
		assert.Len(t, recs, 1)
	}

	var perr *PayloadError
	_, _, err := DetectKind([]byte(`[{"foo": 1}]`))
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ReasonUnknownShape, perr.Reason)

	_, _, err = DetectKind([]byte(`[{"item_sku": `))
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ReasonMalformed, perr.Reason)
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Equal(t, "INVALID_PAYLOAD", perr.Code())
}

func TestSaveRawBacksUpAndPreservesNumbers(t *testing.T) {
	s := newStore(t, map[string]string{"items.json": `[{"item_sku": "OLD"}]`})
	s.now = fixedClock(1_700_000_000_000)

	kind, n, err := s.SaveRaw(context.Background(), []byte(`[{"item_sku": "A", "category_id": 10001, "extra": true}]`))
	require.NoError(t, err)
	assert.Equal(t, KindItems, kind)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(s.Path(KindItems))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"category_id": 10001`)
	assert.Contains(t, string(data), `"extra": true`)

	backup, err := s.LatestBackup(KindItems)
	require.NoError(t, err)
	assert.Equal(t, s.Path(KindItems)+".bak_1700000000001", backup)
	old, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, `[{"item_sku": "OLD"}]`, string(old))
}

func TestInvalidPayloadDoesNotMutate(t *testing.T) {
	s := newStore(t, map[string]string{"items.json": `[{"item_sku": "OLD"}]`})
	_, _, err := s.SaveRaw(context.Background(), []byte(`not json`))
	require.ErrorIs(t, err, ErrInvalidPayload)
	_, err = s.UpsertItem(context.Background(), []byte(`{"item_name": "no sku"}`))
	require.ErrorIs(t, err, ErrInvalidPayload)

	data, err := os.ReadFile(s.Path(KindItems))
	require.NoError(t, err)
	assert.Equal(t, `[{"item_sku": "OLD"}]`, string(data))
	_, err = s.LatestBackup(KindItems)
	assert.ErrorIs(t, err, ErrNoBackup)
}

func TestUpsertItem(t *testing.T) {
	s := newStore(t, map[string]string{"items.json": `[{"item_sku": "A", "item_name": "Apple"}]`})
	s.now = fixedClock(0)
	ctx := context.Background()

	created, err := s.UpsertItem(ctx, []byte(`{"item_sku": "A", "item_name": "Green apple"}`))
	require.NoError(t, err)
	assert.False(t, created)

	created, err = s.UpsertItem(ctx, []byte(`{"item_sku": "B", "item_name": "Banana"}`))
	require.NoError(t, err)
	assert.True(t, created)

	items, err := s.Items()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Green apple", items[0].Name)
	assert.Equal(t, "Banana", items[1].Name)
}

func TestSupplierOrderEdits(t *testing.T) {
	s := newStore(t, map[string]string{"items.json": `[
		{"item_sku": "A", "item_name": "Apple", "default_supplier": "Farm", "category_id": 10001},
		{"item_sku": "B", "item_name": "Banana", "default_supplier": "Farm"}
	]`})
	s.now = fixedClock(0)
	ctx := context.Background()

	require.NoError(t, s.AssignSupplier(ctx, "A", "Kali"))
	require.NoError(t, s.RemoveItem(ctx, "B"))
	assert.ErrorIs(t, s.RemoveItem(ctx, "B"), ErrUnknownItem)
	assert.ErrorIs(t, s.AssignSupplier(ctx, "Z", "Kali"), ErrUnknownItem)

	items, err := s.Items()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Kali", items[0].DefaultSupplier)
	assert.Equal(t, 10001, items[0].CategoryID)

	backups, err := filepath.Glob(s.Path(KindItems) + ".bak_*")
	require.NoError(t, err)
	assert.Len(t, backups, 2)
}

func TestItemLaneIgnoresSourceCase(t *testing.T) {
	for _, src := range []string{"Kitchen", "KITCHEN", "kitchen"} {
		assert.Equal(t, LaneKitchen, Item{Source: src, CategoryID: 40000}.Lane(DefaultKitchenThreshold), src)
	}
	assert.Equal(t, LaneBar, Item{Source: "Bar", CategoryID: 100}.Lane(DefaultKitchenThreshold))
}

func TestRestoreLatest(t *testing.T) {
	s := newStore(t, map[string]string{"suppliers.json": `[{"supplier": "First"}]`})
	s.now = fixedClock(100)
	ctx := context.Background()

	_, err := s.RestoreLatest(ctx, KindSuppliers)
	require.ErrorIs(t, err, ErrNoBackup)

	_, _, err = s.SaveRaw(ctx, []byte(`[{"supplier": "Second"}]`))
	require.NoError(t, err)
	_, _, err = s.SaveRaw(ctx, []byte(`[{"supplier": "Third"}]`))
	require.NoError(t, err)

	names := func() []string {
		sups, err := s.Suppliers()
		require.NoError(t, err)
		out := make([]string, 0, len(sups))
		for _, sup := range sups {
			out = append(out, sup.Name)
		}
		return out
	}

	src, err := s.RestoreLatest(ctx, KindSuppliers)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(src, ".bak_102"))
	assert.Equal(t, []string{"Second"}, names())

	src, err = s.RestoreLatest(ctx, KindSuppliers)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(src, ".bak_101"))
	assert.Equal(t, []string{"First"}, names())

	_, err = s.RestoreLatest(ctx, KindSuppliers)
	assert.ErrorIs(t, err, ErrNoBackup)

	undo, err := filepath.Glob(s.Path(KindSuppliers) + ".undo_*")
	require.NoError(t, err)
	assert.Len(t, undo, 2)
	_, err = os.Stat(src + restoredSuffix)
	assert.NoError(t, err)
}

func TestExportAndImportCSV(t *testing.T) {
	s := newStore(t, map[string]string{"items.json": `[{"item_sku": "A", "item_name": "Olive oil, extra", "category_id": 10001, "color": "green"}]`})
	s.now = fixedClock(0)

	out, err := s.ExportCSV(KindItems)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "item_sku,item_name,category_id,category_name,sub_category,default_supplier,default_quantity,measure_unit,source,color", lines[0])
	assert.Equal(t, `A,"Olive oil, extra",10001,,,,,,,green`, lines[1])

	n, err := s.ImportItemsCSV(context.Background(), []byte("item_sku,item_name,default_quantity\nX1, Flour ,5\n\nX2,Sugar\n,skipped,1\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	items, err := s.Items()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Flour", items[0].Name)
	assert.Equal(t, 5, items[0].Qty())
	assert.Equal(t, "", items[1].DefaultQuantity)

	_, err = os.Stat(filepath.Join(s.Dir(), "items.csv"))
	assert.NoError(t, err)

	_, err = s.ImportItemsCSV(context.Background(), []byte("name,qty\nFlour,1"))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestReadListAndRaw(t *testing.T) {
	s := newStore(t, map[string]string{"todaylist.csv": "item,qty\nFlour,2\n"})
	body, ok, err := s.ReadList(ListToday)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, body, "Flour,2")

	raw, err := s.Raw(KindCategories)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))

	k, ok := ParseKind("suppliers")
	assert.True(t, ok)
	assert.Equal(t, KindSuppliers, k)
	_, ok = ParseKind("layouts")
	assert.False(t, ok)
}
