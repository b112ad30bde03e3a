package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
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

var threads = notify.Threads{Kitchen: 2, Bar: 3, Manager: 4, Dispatcher: 5, Processing: 6, Completed: 7}

type fakeCatalog struct {
	items     map[string]catalog.Item
	suppliers map[string]string
}

func (f fakeCatalog) ItemBySKU(sku string) (catalog.Item, bool, error) {
	it, ok := f.items[sku]
	return it, ok, nil
}

func (f fakeCatalog) ResolveSupplier(it catalog.Item) (string, error) {
	if s, ok := f.suppliers[it.SKU]; ok {
		return s, nil
	}
	return catalog.UnknownSupplier, nil
}

type memJournal struct {
	mu   sync.Mutex
	rows []Transition
}

func (j *memJournal) Record(_ context.Context, t Transition) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rows = append(j.rows, t)
	return nil
}

func (j *memJournal) events() []Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Event, 0, len(j.rows))
	for _, r := range j.rows {
		out = append(out, r.Event)
	}
	return out
}

type fixture struct {
	svc     *Service
	msg     *notifytest.Recorder
	journal *memJournal
	metrics *Metrics
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cat := fakeCatalog{
		items: map[string]catalog.Item{
			"SKU123": {SKU: "SKU123", Name: "Tomatoes", CategoryID: 20, CategoryName: "Vegetables", DefaultQuantity: "1", MeasureUnit: "kg"},
			"SKU900": {SKU: "SKU900", Name: "Gin", CategoryID: 31000},
		},
		suppliers: map[string]string{"SKU123": "Fresh Farms"},
	}
	rec := notifytest.New()
	j := &memJournal{}
	m := NewMetrics(prometheus.NewRegistry())
	svc := NewService(Options{
		Catalog:   cat,
		Messenger: rec,
		Threads:   threads,
		Journal:   j,
		Metrics:   m,
		Clock:     func() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC) },
	})
	return fixture{svc: svc, msg: rec, journal: j, metrics: m}
}

func TestSKU123OrderLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.svc.Submit(ctx, "SKU123", "Ann")
	require.NoError(t, err)
	assert.Equal(t, StagePendingApproval, o.Stage)
	assert.Equal(t, catalog.LaneKitchen, o.Lane)
	manager := f.msg.InThread(threads.Manager)
	require.Len(t, manager, 1)
	assert.Equal(t, "Tomatoes 1", manager[0].Text)
	approvalID := manager[0].ID

	for range 2 {
		o, err = f.svc.IncreaseQuantity(ctx, approvalID, "Boss")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, o.Quantity)
	edit, ok := f.msg.LastEdit(approvalID)
	require.True(t, ok)
	assert.Equal(t, "Tomatoes 3", edit.Text)
	assert.Equal(t, "SKU123|3", edit.Keyboard[0][1].Payload)

	o, err = f.svc.Approve(ctx, approvalID, "Boss")
	require.NoError(t, err)
	assert.Equal(t, "Fresh Farms", o.Supplier)
	assert.Equal(t, "14.03.25 09:30", o.Stamp)
	edit, _ = f.msg.LastEdit(approvalID)
	assert.Equal(t, "✅ APPROVED: Tomatoes x3", edit.Text)
	assert.Empty(t, edit.Keyboard)

	kitchen := f.msg.InThread(threads.Kitchen)
	require.Len(t, kitchen, 1)
	assert.Equal(t, "🛒 Vegetables Tomatoes x3", kitchen[0].Text)
	assert.Empty(t, f.msg.InThread(threads.Bar))

	disp := f.msg.InThread(threads.Dispatcher)
	require.Len(t, disp, 1)
	assert.Equal(t, approvalID, disp[0].CopyOf)
	assert.Equal(t, "✅ APPROVED: Tomatoes x3", disp[0].Text)
	require.Len(t, disp[0].Keyboard, 1)
	assert.Equal(t, ActionDispatch, disp[0].Keyboard[0][0].Action)
	_, stillPending := f.svc.Store().Approval(approvalID)
	assert.False(t, stillPending)

	o, err = f.svc.Dispatch(ctx, disp[0].ID, "Disp")
	require.NoError(t, err)
	assert.Equal(t, StageAwaitingReceipt, o.Stage)
	edit, _ = f.msg.LastEdit(disp[0].ID)
	assert.Equal(t, "✅ DISPATCHED: <<Fresh Farms>>\nTomatoes 3 kg\n•\n\n14.03.25 09:30", edit.Text)
	require.Len(t, f.msg.Polls, 1)
	poll := f.msg.Polls[0]
	assert.Equal(t, threads.Processing, poll.Thread)
	assert.Equal(t, "Confirm receipt of items from Fresh Farms - 14.03.25 09:30?", poll.Question)
	assert.Equal(t, []string{"Tomatoes (3 kg)"}, poll.Options)
	assert.True(t, poll.MultipleAnswers)
	assert.False(t, poll.Anonymous)

	o, done, err := f.svc.ConfirmReceipt(ctx, poll.Ref.PollID, []int{0}, "Cook")
	require.NoError(t, err)
	require.True(t, done)
	assert.Equal(t, StageCompleted, o.Stage)
	completed := f.msg.InThread(threads.Completed)
	require.Len(t, completed, 1)
	assert.Equal(t, "🎉 COMPLETED!\n\n<<Fresh Farms>>\nTomatoes x3 kg\n•\n\n14.03.25 09:30", completed[0].Text)
	assert.Equal(t, poll.Ref.PollID, completed[0].Keyboard[0][0].Payload)

	assert.Equal(t, []Event{EventSubmit, EventIncrease, EventIncrease, EventApprove, EventDispatch, EventConfirm}, f.journal.events())
	assert.Equal(t, Counts{}, f.svc.Store().Counts())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Transitions.WithLabelValues("awaiting_receipt", "completed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.Pending.WithLabelValues("polls")))
}

func TestSubmitUnknownSKU(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), "NOPE", "Ann")
	require.ErrorIs(t, err, ErrItemNotFound)
	assert.Empty(t, f.msg.Sent)
}

func TestBarItemWithoutSupplier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, "SKU900", "Ann")
	require.NoError(t, err)
	id := f.msg.InThread(threads.Manager)[0].ID

	o, err := f.svc.Approve(ctx, id, "Boss")
	require.NoError(t, err)
	assert.Equal(t, catalog.UnknownSupplier, o.Supplier)
	bar := f.msg.InThread(threads.Bar)
	require.Len(t, bar, 1)
	assert.Equal(t, "🛒 Gin x1", bar[0].Text)
	assert.Equal(t, "pc", o.Unit())
}

func TestDuplicateApproveIsRecordNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, "SKU123", "Ann")
	require.NoError(t, err)
	id := f.msg.InThread(threads.Manager)[0].ID

	_, err = f.svc.Approve(ctx, id, "Boss")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, id, "Boss")
	require.ErrorIs(t, err, ErrRecordNotFound)
	assert.True(t, IsRecordNotFound(err))

	var coded interface{ Code() string }
	require.True(t, errors.As(err, &coded))
	assert.Equal(t, "RECORD_NOT_FOUND", coded.Code())
	assert.Len(t, f.msg.InThread(threads.Dispatcher), 1)

	_, err = f.svc.Cancel(ctx, id, "Boss")
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, "SKU123", "Ann")
	require.NoError(t, err)
	id := f.msg.InThread(threads.Manager)[0].ID

	o, err := f.svc.Cancel(ctx, id, "Boss")
	require.NoError(t, err)
	assert.Equal(t, StageCancelled, o.Stage)
	edit, _ := f.msg.LastEdit(id)
	assert.Equal(t, "❌ CANCELLED: Tomatoes", edit.Text)

	_, err = f.svc.IncreaseQuantity(ctx, id, "Boss")
	require.ErrorIs(t, err, ErrRecordNotFound)
	assert.Empty(t, f.msg.InThread(threads.Dispatcher))
}

func TestRejectDispatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, "SKU123", "Ann")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, f.msg.InThread(threads.Manager)[0].ID, "Boss")
	require.NoError(t, err)
	dispID := f.msg.InThread(threads.Dispatcher)[0].ID

	o, err := f.svc.RejectDispatch(ctx, dispID, "Disp")
	require.NoError(t, err)
	assert.Equal(t, StageDispatchRejected, o.Stage)
	edit, _ := f.msg.LastEdit(dispID)
	assert.True(t, strings.HasPrefix(edit.Text, "❌ DISPATCH REJECTED: <<Fresh Farms>>"))
	assert.Empty(t, f.msg.Polls)

	_, err = f.svc.Dispatch(ctx, dispID, "Disp")
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestConfirmReceiptIgnoresRetractionAndUnknownPolls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, "SKU123", "Ann")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, f.msg.InThread(threads.Manager)[0].ID, "Boss")
	require.NoError(t, err)
	_, err = f.svc.Dispatch(ctx, f.msg.InThread(threads.Dispatcher)[0].ID, "Disp")
	require.NoError(t, err)
	pollID := f.msg.Polls[0].Ref.PollID

	_, done, err := f.svc.ConfirmReceipt(ctx, pollID, nil, "Cook")
	require.NoError(t, err)
	assert.False(t, done)
	_, pending := f.svc.Store().Poll(pollID)
	assert.True(t, pending)

	_, done, err = f.svc.ConfirmReceipt(ctx, "other", []int{0}, "Cook")
	require.NoError(t, err)
	assert.False(t, done)

	_, done, err = f.svc.ConfirmReceipt(ctx, pollID, []int{0}, "Cook")
	require.NoError(t, err)
	assert.True(t, done)
	_, done, err = f.svc.ConfirmReceipt(ctx, pollID, []int{0}, "Chef")
	require.NoError(t, err)
	assert.False(t, done)
	assert.Len(t, f.msg.InThread(threads.Completed), 1)
}

func TestFailedCallRestoresRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, "SKU123", "Ann")
	require.NoError(t, err)
	id := f.msg.InThread(threads.Manager)[0].ID

	f.msg.FailOn["copy"] = errors.New("chat not found")
	_, err = f.svc.Approve(ctx, id, "Boss")
	require.ErrorIs(t, err, notify.ErrExternalCall)

	rec, ok := f.svc.Store().Approval(id)
	require.True(t, ok)
	assert.Equal(t, StagePendingApproval, rec.Order.Stage)
	assert.Empty(t, rec.Order.Supplier)
	edit, _ := f.msg.LastEdit(id)
	assert.Equal(t, "Tomatoes 1", edit.Text)
	assert.Len(t, edit.Keyboard[0], 3)
	assert.Equal(t, 0, f.svc.Store().Counts().Dispatches)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Failures.WithLabelValues("approve")))

	rec, _ = f.svc.Store().Approval(id)
	assert.True(t, rec.LanePosted)

	_, err = f.svc.Approve(ctx, id, "Boss")
	require.NoError(t, err)
	assert.Equal(t, 1, f.svc.Store().Counts().Dispatches)
	require.Len(t, f.msg.InThread(threads.Kitchen), 1)
	assert.Equal(t, "🛒 Vegetables Tomatoes x1", f.msg.InThread(threads.Kitchen)[0].Text)
}

func TestFailedLanePostIsRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, "SKU123", "Ann")
	require.NoError(t, err)
	id := f.msg.InThread(threads.Manager)[0].ID

	f.msg.FailOn["post"] = errors.New("timeout")
	_, err = f.svc.Approve(ctx, id, "Boss")
	require.Error(t, err)
	rec, ok := f.svc.Store().Approval(id)
	require.True(t, ok)
	assert.False(t, rec.LanePosted)

	_, err = f.svc.Approve(ctx, id, "Boss")
	require.NoError(t, err)
	assert.Len(t, f.msg.InThread(threads.Kitchen), 1)
	assert.Len(t, f.msg.InThread(threads.Dispatcher), 1)
}

func TestFailedPollRestoresDispatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, "SKU123", "Ann")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, f.msg.InThread(threads.Manager)[0].ID, "Boss")
	require.NoError(t, err)
	dispID := f.msg.InThread(threads.Dispatcher)[0].ID

	f.msg.FailOn["poll"] = errors.New("timeout")
	_, err = f.svc.Dispatch(ctx, dispID, "Disp")
	require.Error(t, err)
	_, ok := f.svc.Store().Dispatch(dispID)
	assert.True(t, ok)
	edit, _ := f.msg.LastEdit(dispID)
	assert.Len(t, edit.Keyboard[0], 2)

	_, err = f.svc.Dispatch(ctx, dispID, "Disp")
	require.NoError(t, err)
}

func TestFailedSubmitStoresNothing(t *testing.T) {
	f := newFixture(t)
	f.msg.FailOn["post"] = errors.New("forbidden")
	_, err := f.svc.Submit(context.Background(), "SKU123", "Ann")
	require.Error(t, err)
	assert.Equal(t, Counts{}, f.svc.Store().Counts())
	assert.Empty(t, f.journal.events())
	assert.Zero(t, f.svc.Added(catalog.LaneKitchen))
}

func TestAddedCountsSubmissionsPerLane(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, sku := range []string{"SKU123", "SKU123", "SKU900"} {
		_, err := f.svc.Submit(ctx, sku, "Ann")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, f.svc.Added(catalog.LaneKitchen))
	assert.Equal(t, 1, f.svc.Added(catalog.LaneBar))
}

func TestConcurrentOrdersForSameItemStayIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.svc.Submit(ctx, "SKU123", "Ann")
	require.NoError(t, err)
	b, err := f.svc.Submit(ctx, "SKU123", "Bob")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	msgs := f.msg.InThread(threads.Manager)
	require.Len(t, msgs, 2)
	_, err = f.svc.Cancel(ctx, msgs[0].ID, "Boss")
	require.NoError(t, err)
	_, ok := f.svc.Store().Approval(msgs[1].ID)
	assert.True(t, ok)
}

func TestConcurrentApprovePressesResolveOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, "SKU123", "Ann")
	require.NoError(t, err)
	id := f.msg.InThread(threads.Manager)[0].ID

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.Approve(ctx, id, "Boss")
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrRecordNotFound)
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, f.msg.InThread(threads.Dispatcher), 1)
}
