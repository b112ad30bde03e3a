package journal

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/orderbot/core/logger"
	"github.com/m3rciful/orderbot/internal/pipeline"
)

// ErrBufferFull is returned when a transition is dropped because the writer
// fell behind.
var ErrBufferFull = errors.New("journal: buffer full")

// ErrClosed is returned by Record after Close.
var ErrClosed = errors.New("journal: closed")

const (
	defaultBuffer = 256
	writeTimeout  = 5 * time.Second
)

// Recorder writes transitions from a background goroutine so the pipeline
// never waits on the database.
type Recorder struct {
	w     Writer
	queue chan Event
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewRecorder starts a recorder over w. buffer <= 0 selects the default size.
func NewRecorder(w Writer, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	r := &Recorder{
		w:     w,
		queue: make(chan Event, buffer),
		done:  make(chan struct{}),
	}
	go r.loop()
	return r
}

var _ pipeline.Recorder = (*Recorder)(nil)

// Record enqueues t. It does not block.
func (r *Recorder) Record(ctx context.Context, t pipeline.Transition) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrClosed
	}
	e := FromTransition(t)
	select {
	case r.queue <- e:
		return nil
	default:
		logger.Warn(ctx, logger.ComponentJournal, "journal.drop",
			slog.String("status", "fail"),
			slog.String("sku", e.SKU),
			slog.String("stage", e.ToStage),
		)
		return ErrBufferFull
	}
}

func (r *Recorder) loop() {
	defer close(r.done)
	for e := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		ctx = logger.WithOrderID(ctx, e.OrderID.String())
		if err := r.w.Insert(ctx, e); err != nil {
			logger.Error(ctx, logger.ComponentJournal, "journal.insert",
				slog.String("status", "fail"),
				slog.String("stage", e.ToStage),
				logger.Err(err),
			)
		}
		cancel()
	}
}

// Close stops accepting transitions and waits for queued ones to be written
// or for ctx to end.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
