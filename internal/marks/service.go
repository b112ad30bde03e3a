package marks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/m3rciful/orderbot/core/logger"
	"github.com/m3rciful/orderbot/internal/catalog"
	"github.com/m3rciful/orderbot/internal/notify"
)

// NothingMarkedText is shown when a user places an order with an empty set.
const NothingMarkedText = "No items marked for ordering."

// ErrNothingMarked is returned when placing an order with an empty set.
var ErrNothingMarked = errors.New("marks: nothing marked")

// SupplierResolver names the supplier of an item.
type SupplierResolver interface {
	ResolveSupplier(item catalog.Item) (string, error)
}

// Options configures a Service.
type Options struct {
	Book      *Book
	Suppliers SupplierResolver
	Messenger notify.Messenger
	Threads   notify.Threads
	Clock     func() time.Time
	Registry  prometheus.Registerer
}

// Service places bulk orders from the book.
type Service struct {
	book      *Book
	suppliers SupplierResolver
	msg       notify.Messenger
	threads   notify.Threads
	now       func() time.Time
	placed    *prometheus.CounterVec
}

// NewService builds a service, creating a book when none is given.
func NewService(opts Options) *Service {
	s := &Service{
		book:      opts.Book,
		suppliers: opts.Suppliers,
		msg:       opts.Messenger,
		threads:   opts.Threads,
		now:       opts.Clock,
		placed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderbot",
			Subsystem: "marks",
			Name:      "bulk_orders_total",
			Help:      "Bulk orders placed, by destination.",
		}, []string{"destination"}),
	}
	if s.book == nil {
		s.book = NewBook()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.Registry != nil {
		opts.Registry.MustRegister(s.placed)
	}
	return s
}

// Book exposes the per-user mark state.
func (s *Service) Book() *Book { return s.book }

func (s *Service) thread(dest Destination) int {
	if dest == DestDispatcher {
		return s.threads.Dispatcher
	}
	return s.threads.Manager
}

func (s *Service) supplierOf(ctx context.Context) func(catalog.Item) string {
	return func(it catalog.Item) string {
		name, err := s.suppliers.ResolveSupplier(it)
		if err != nil {
			logger.Warn(ctx, logger.ComponentMarks, "supplier.resolve", slog.String("sku", it.SKU), logger.Err(err))
		}
		return name
	}
}

// PlaceOrder posts the user's marked items to dest as one summary, then
// clears the set and leaves mark mode. The set is kept when posting fails.
func (s *Service) PlaceOrder(ctx context.Context, user int64, dest Destination) (string, error) {
	items := s.book.Items(user)
	if len(items) == 0 {
		return "", ErrNothingMarked
	}
	groups := GroupBySupplier(items, s.supplierOf(ctx))
	text := BuildSummary(dest, groups, notify.Stamp(s.now()))

	msgID, err := s.msg.Post(ctx, notify.Message{Thread: s.thread(dest), Text: text, Markdown: true})
	if err != nil {
		logger.Error(ctx, logger.ComponentMarks, "bulk.place",
			slog.String("status", "fail"),
			slog.String("kind", string(dest)),
			slog.Int("count", len(items)),
			logger.Err(err),
		)
		return "", err
	}
	s.book.Disable(user)
	s.placed.WithLabelValues(string(dest)).Inc()
	logger.Info(ctx, logger.ComponentMarks, "bulk.place",
		slog.String("status", "ok"),
		slog.String("kind", string(dest)),
		slog.Int("count", len(items)),
		slog.Int("msg_id", msgID),
	)
	return text, nil
}
