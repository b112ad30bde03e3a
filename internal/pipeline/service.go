// Package pipeline implements the order approval state machine:
// submission, manager approval, dispatcher review and receipt confirmation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/orderbot/core/logger"
	"github.com/m3rciful/orderbot/internal/catalog"
	"github.com/m3rciful/orderbot/internal/notify"
)

// Catalog is the read side of the catalog the pipeline needs.
type Catalog interface {
	ItemBySKU(sku string) (catalog.Item, bool, error)
	ResolveSupplier(item catalog.Item) (string, error)
}

// Options configures a Service.
type Options struct {
	Store            *Store
	Catalog          Catalog
	Messenger        notify.Messenger
	Threads          notify.Threads
	KitchenThreshold int
	Journal          Recorder
	Metrics          *Metrics
	Clock            func() time.Time
}

// Service drives orders through the pipeline. Every operation validates the
// event against the transition table and leaves the store unchanged when a
// platform call fails.
type Service struct {
	store     *Store
	catalog   Catalog
	msg       notify.Messenger
	threads   notify.Threads
	threshold int
	journal   Recorder
	metrics   *Metrics
	now       func() time.Time

	// Orders submitted per lane since start.
	kitchenAdded atomic.Int64
	barAdded     atomic.Int64
}

// NewService builds a service from opts, filling defaults.
func NewService(opts Options) *Service {
	s := &Service{
		store:     opts.Store,
		catalog:   opts.Catalog,
		msg:       opts.Messenger,
		threads:   opts.Threads,
		threshold: opts.KitchenThreshold,
		journal:   opts.Journal,
		metrics:   opts.Metrics,
		now:       opts.Clock,
	}
	if s.store == nil {
		s.store = NewStore()
	}
	if s.threshold <= 0 {
		s.threshold = catalog.DefaultKitchenThreshold
	}
	if s.journal == nil {
		s.journal = NopRecorder{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Store exposes the in-flight records.
func (s *Service) Store() *Store { return s.store }

// Added reports how many orders were submitted for lane since start.
func (s *Service) Added(l catalog.Lane) int {
	return int(s.addedCounter(l).Load())
}

func (s *Service) addedCounter(l catalog.Lane) *atomic.Int64 {
	if l == catalog.LaneKitchen {
		return &s.kitchenAdded
	}
	return &s.barAdded
}

func (s *Service) laneThread(l catalog.Lane) int {
	if l == catalog.LaneKitchen {
		return s.threads.Kitchen
	}
	return s.threads.Bar
}

// advance validates ev against the table and moves o to the next stage.
func advance(o *Order, ev Event) (Stage, error) {
	from := o.Stage
	to, err := Next(from, ev)
	if err != nil {
		return from, err
	}
	o.Stage = to
	return from, nil
}

func (s *Service) committed(ctx context.Context, o Order, from Stage, ev Event, actor string, msgID int, pollID string) {
	s.metrics.observe(from, o.Stage, s.store.Counts())
	logger.Info(ctx, logger.ComponentPipeline, "order."+string(ev),
		slog.String("status", "ok"),
		slog.String("from_stage", string(from)),
		slog.String("stage", string(o.Stage)),
		slog.String("sku", o.Item.SKU),
		slog.Int("qty", o.Quantity),
		slog.String("supplier", o.Supplier),
		slog.Int("msg_id", msgID),
		slog.String("poll_id", pollID),
	)
	t := Transition{
		OrderID:   o.ID,
		SKU:       o.Item.SKU,
		ItemName:  o.Item.Name,
		Quantity:  o.Quantity,
		Supplier:  o.Supplier,
		From:      from,
		To:        o.Stage,
		Event:     ev,
		Actor:     actor,
		MessageID: msgID,
		PollID:    pollID,
		At:        s.now(),
	}
	if err := s.journal.Record(ctx, t); err != nil {
		logger.Warn(ctx, logger.ComponentJournal, "journal.record", slog.String("status", "fail"), logger.Err(err))
	}
}

func (s *Service) rolledBack(ctx context.Context, o Order, ev Event, err error) {
	s.metrics.failed(ev, s.store.Counts())
	logger.Error(ctx, logger.ComponentPipeline, "order."+string(ev),
		slog.String("status", "fail"),
		slog.String("outcome", "restored"),
		slog.String("stage", string(o.Stage)),
		slog.String("sku", o.Item.SKU),
		logger.Err(err),
	)
}

// Submit posts an approval request for sku into the manager thread.
func (s *Service) Submit(ctx context.Context, sku, requester string) (Order, error) {
	item, ok, err := s.catalog.ItemBySKU(sku)
	if err != nil {
		return Order{}, fmt.Errorf("pipeline: load item %s: %w", sku, err)
	}
	if !ok {
		return Order{}, ErrItemNotFound
	}
	o := Order{
		ID:          uuid.New(),
		Item:        item,
		Lane:        item.Lane(s.threshold),
		Quantity:    item.Qty(),
		RequestedBy: requester,
		Stage:       StageNew,
	}
	ctx = logger.WithOrderID(ctx, o.ID.String())
	from, err := advance(&o, EventSubmit)
	if err != nil {
		return Order{}, err
	}

	msgID, err := s.msg.Post(ctx, notify.Message{
		Thread:   s.threads.Manager,
		Text:     approvalText(o),
		Keyboard: approvalKeyboard(o),
	})
	if err != nil {
		s.rolledBack(ctx, o, EventSubmit, err)
		return Order{}, err
	}
	s.store.approvals.insert(msgID, PendingApproval{Order: o, MessageID: msgID})
	s.addedCounter(o.Lane).Add(1)
	s.committed(ctx, o, from, EventSubmit, requester, msgID, "")
	return o, nil
}

// IncreaseQuantity adds one to the quantity of the approval posted as
// messageID and re-renders it.
func (s *Service) IncreaseQuantity(ctx context.Context, messageID int, actor string) (Order, error) {
	rec, err := s.store.claimApproval(messageID)
	if err != nil {
		return Order{}, err
	}
	ctx = logger.WithOrderID(ctx, rec.Order.ID.String())
	o := rec.Order
	from, err := advance(&o, EventIncrease)
	if err != nil {
		s.store.approvals.restore(messageID, rec)
		return Order{}, err
	}
	o.Quantity++

	if err := s.msg.Edit(ctx, messageID, approvalText(o), approvalKeyboard(o)); err != nil {
		s.store.approvals.restore(messageID, rec)
		s.rolledBack(ctx, rec.Order, EventIncrease, err)
		return Order{}, err
	}
	updated := rec
	updated.Order = o
	s.store.approvals.restore(messageID, updated)
	s.committed(ctx, o, from, EventIncrease, actor, messageID, "")
	return o, nil
}

// Approve posts the order to its lane thread and hands it to the dispatcher.
func (s *Service) Approve(ctx context.Context, messageID int, actor string) (Order, error) {
	rec, err := s.store.claimApproval(messageID)
	if err != nil {
		return Order{}, err
	}
	ctx = logger.WithOrderID(ctx, rec.Order.ID.String())
	o := rec.Order
	from, err := advance(&o, EventApprove)
	if err != nil {
		s.store.approvals.restore(messageID, rec)
		return Order{}, err
	}

	supplier, err := s.catalog.ResolveSupplier(o.Item)
	if err != nil {
		logger.Warn(ctx, logger.ComponentCatalog, "supplier.resolve", slog.String("sku", o.Item.SKU), logger.Err(err))
	}
	o.Supplier = supplier
	if o.Supplier == "" {
		o.Supplier = catalog.UnknownSupplier
	}
	o.Stamp = notify.Stamp(s.now())

	dispatchID, lanePosted, err := s.approveCalls(ctx, o, rec)
	if err != nil {
		failed := rec
		failed.LanePosted = lanePosted
		s.store.approvals.restore(messageID, failed)
		s.rerender(ctx, messageID, approvalText(rec.Order), approvalKeyboard(rec.Order))
		s.rolledBack(ctx, rec.Order, EventApprove, err)
		return Order{}, err
	}
	s.store.dispatches.insert(dispatchID, PendingDispatch{Order: o, MessageID: dispatchID, ApprovalMessageID: messageID})
	s.committed(ctx, o, from, EventApprove, actor, dispatchID, "")
	return o, nil
}

func (s *Service) approveCalls(ctx context.Context, o Order, rec PendingApproval) (int, bool, error) {
	messageID := rec.MessageID
	lanePosted := rec.LanePosted
	if err := s.msg.Edit(ctx, messageID, approvedText(o), nil); err != nil {
		return 0, lanePosted, err
	}
	if !lanePosted {
		if _, err := s.msg.Post(ctx, notify.Message{Thread: s.laneThread(o.Lane), Text: laneText(o)}); err != nil {
			return 0, false, err
		}
		lanePosted = true
	}
	id, err := s.msg.Copy(ctx, notify.CopyRequest{
		MessageID: messageID,
		Thread:    s.threads.Dispatcher,
		Keyboard:  dispatchKeyboard(o, messageID),
	})
	return id, lanePosted, err
}

// rerender restores a message's text and buttons after a rolled back
// transition already edited it. Failures are only logged.
func (s *Service) rerender(ctx context.Context, messageID int, text string, kb notify.Keyboard) {
	if err := s.msg.Edit(ctx, messageID, text, kb); err != nil {
		logger.Warn(ctx, logger.ComponentPipeline, "order.rerender", slog.Int("msg_id", messageID), logger.Err(err))
	}
}

// Cancel closes the approval posted as messageID.
func (s *Service) Cancel(ctx context.Context, messageID int, actor string) (Order, error) {
	rec, err := s.store.claimApproval(messageID)
	if err != nil {
		return Order{}, err
	}
	ctx = logger.WithOrderID(ctx, rec.Order.ID.String())
	o := rec.Order
	from, err := advance(&o, EventCancel)
	if err != nil {
		s.store.approvals.restore(messageID, rec)
		return Order{}, err
	}
	if err := s.msg.Edit(ctx, messageID, cancelledText(o), nil); err != nil {
		s.store.approvals.restore(messageID, rec)
		s.rolledBack(ctx, rec.Order, EventCancel, err)
		return Order{}, err
	}
	s.committed(ctx, o, from, EventCancel, actor, messageID, "")
	return o, nil
}

// Dispatch marks the order dispatched and opens the receipt poll.
func (s *Service) Dispatch(ctx context.Context, messageID int, actor string) (Order, error) {
	rec, err := s.store.claimDispatch(messageID)
	if err != nil {
		return Order{}, err
	}
	ctx = logger.WithOrderID(ctx, rec.Order.ID.String())
	o := rec.Order
	from, err := advance(&o, EventDispatch)
	if err != nil {
		s.store.dispatches.restore(messageID, rec)
		return Order{}, err
	}

	if err := s.msg.Edit(ctx, messageID, dispatchedText(o), nil); err != nil {
		s.store.dispatches.restore(messageID, rec)
		s.rolledBack(ctx, rec.Order, EventDispatch, err)
		return Order{}, err
	}
	ref, err := s.msg.Poll(ctx, pollRequest(o, s.threads.Processing))
	if err != nil {
		s.store.dispatches.restore(messageID, rec)
		s.rerender(ctx, messageID, approvedText(rec.Order), dispatchKeyboard(rec.Order, rec.ApprovalMessageID))
		s.rolledBack(ctx, rec.Order, EventDispatch, err)
		return Order{}, err
	}
	s.store.polls.insert(ref.PollID, PendingPoll{Order: o, PollID: ref.PollID, MessageID: ref.MessageID})
	s.committed(ctx, o, from, EventDispatch, actor, ref.MessageID, ref.PollID)
	return o, nil
}

// RejectDispatch closes the dispatch posted as messageID.
func (s *Service) RejectDispatch(ctx context.Context, messageID int, actor string) (Order, error) {
	rec, err := s.store.claimDispatch(messageID)
	if err != nil {
		return Order{}, err
	}
	ctx = logger.WithOrderID(ctx, rec.Order.ID.String())
	o := rec.Order
	from, err := advance(&o, EventRejectDispatch)
	if err != nil {
		s.store.dispatches.restore(messageID, rec)
		return Order{}, err
	}
	if err := s.msg.Edit(ctx, messageID, dispatchRejectedText(o), nil); err != nil {
		s.store.dispatches.restore(messageID, rec)
		s.rolledBack(ctx, rec.Order, EventRejectDispatch, err)
		return Order{}, err
	}
	s.committed(ctx, o, from, EventRejectDispatch, actor, messageID, "")
	return o, nil
}

// ConfirmReceipt completes the order behind pollID on the first answer that
// selects at least one option. Unknown polls and retracted votes are
// ignored; the bool reports whether the order completed.
func (s *Service) ConfirmReceipt(ctx context.Context, pollID string, options []int, actor string) (Order, bool, error) {
	if len(options) == 0 {
		return Order{}, false, nil
	}
	rec, ok := s.store.polls.claim(pollID)
	if !ok {
		return Order{}, false, nil
	}
	ctx = logger.WithOrderID(ctx, rec.Order.ID.String())
	o := rec.Order
	from, err := advance(&o, EventConfirm)
	if err != nil {
		s.store.polls.restore(pollID, rec)
		return Order{}, false, err
	}
	msgID, err := s.msg.Post(ctx, notify.Message{
		Thread:   s.threads.Completed,
		Text:     completedText(o),
		Keyboard: completedKeyboard(pollID),
	})
	if err != nil {
		s.store.polls.restore(pollID, rec)
		s.rolledBack(ctx, rec.Order, EventConfirm, err)
		return Order{}, false, err
	}
	s.committed(ctx, o, from, EventConfirm, actor, msgID, pollID)
	return o, true, nil
}

// IsRecordNotFound reports whether err means the pressed button belongs to
// an already resolved stage.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}
