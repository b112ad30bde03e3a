package marks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/orderbot/internal/catalog"
	"github.com/m3rciful/orderbot/internal/notify"
	"github.com/m3rciful/orderbot/internal/notify/notifytest"
)

type suppliers map[string]string

func (s suppliers) ResolveSupplier(it catalog.Item) (string, error) {
	if name, ok := s[it.SKU]; ok {
		return name, nil
	}
	return catalog.UnknownSupplier, nil
}

var threads = notify.Threads{Manager: 4, Dispatcher: 5}

func newService(t *testing.T) (*Service, *notifytest.Recorder) {
	t.Helper()
	rec := notifytest.New()
	svc := NewService(Options{
		Suppliers: suppliers{"A": "Fresh Farms", "B": "Sea Co", "C": "Fresh Farms"},
		Messenger: rec,
		Threads:   threads,
		Clock:     func() time.Time { return time.Date(2025, 3, 14, 18, 5, 0, 0, time.UTC) },
		Registry:  prometheus.NewRegistry(),
	})
	return svc, rec
}

func TestPlaceOrderGroupsBySupplier(t *testing.T) {
	svc, rec := newService(t)
	book := svc.Book()
	book.Enable(1)
	book.Mark(1, catalog.Item{SKU: "A", Name: "Tomatoes", DefaultQuantity: "2", MeasureUnit: "kg"})
	book.Mark(1, catalog.Item{SKU: "B", Name: "Salmon"})
	book.Mark(1, catalog.Item{SKU: "C", Name: "Basil_fresh", DefaultQuantity: "x"})

	text, err := svc.PlaceOrder(context.Background(), 1, DestManager)
	require.NoError(t, err)

	want := "📋 **Bulk Order Summary** (MANAGER):\n\n" +
		"**<<Fresh Farms>>**\nTomatoes 2 kg\nBasil\\_fresh x pc\n•\n\n" +
		"**<<Sea Co>>**\nSalmon 1 pc\n•\n\n" +
		"14.03.25 18:05"
	assert.Equal(t, want, text)

	sent := rec.InThread(threads.Manager)
	require.Len(t, sent, 1)
	assert.Equal(t, want, sent[0].Text)
	assert.True(t, sent[0].Markdown)

	assert.Zero(t, book.Len(1))
	assert.False(t, book.Enabled(1))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.placed.WithLabelValues("manager")))
}

func TestPlaceOrderToDispatcher(t *testing.T) {
	svc, rec := newService(t)
	svc.Book().Enable(2)
	svc.Book().Mark(2, catalog.Item{SKU: "Z", Name: "Ice"})

	text, err := svc.PlaceOrder(context.Background(), 2, DestDispatcher)
	require.NoError(t, err)
	assert.Contains(t, text, "(DISPATCHER)")
	assert.Contains(t, text, "**<<Unknown Supplier>>**")
	assert.Len(t, rec.InThread(threads.Dispatcher), 1)
	assert.Empty(t, rec.InThread(threads.Manager))
}

func TestPlaceOrderEmptySet(t *testing.T) {
	svc, rec := newService(t)
	svc.Book().Enable(3)
	_, err := svc.PlaceOrder(context.Background(), 3, DestManager)
	require.ErrorIs(t, err, ErrNothingMarked)
	assert.Empty(t, rec.Sent)
	assert.True(t, svc.Book().Enabled(3))
}

func TestPlaceOrderKeepsSetOnFailure(t *testing.T) {
	svc, rec := newService(t)
	svc.Book().Enable(4)
	svc.Book().Mark(4, catalog.Item{SKU: "A", Name: "Tomatoes"})
	rec.FailOn["post"] = errors.New("forbidden")

	_, err := svc.PlaceOrder(context.Background(), 4, DestManager)
	require.ErrorIs(t, err, notify.ErrExternalCall)
	assert.Equal(t, 1, svc.Book().Len(4))
	assert.True(t, svc.Book().Enabled(4))
}

func TestParseDestination(t *testing.T) {
	d, ok := ParseDestination("Manager")
	assert.True(t, ok)
	assert.Equal(t, DestManager, d)
	_, ok = ParseDestination("kitchen")
	assert.False(t, ok)
}
