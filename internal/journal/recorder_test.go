package journal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/orderbot/internal/pipeline"
)

type memWriter struct {
	mu     sync.Mutex
	rows   []Event
	gate   chan struct{}
	failOn string
}

func (w *memWriter) Insert(_ context.Context, e Event) error {
	if w.gate != nil {
		<-w.gate
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if e.Event == w.failOn {
		return errors.New("insert failed")
	}
	w.rows = append(w.rows, e)
	return nil
}

func (w *memWriter) events() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.rows))
	for _, r := range w.rows {
		out = append(out, r.Event)
	}
	return out
}

func transition(ev pipeline.Event) pipeline.Transition {
	return pipeline.Transition{
		OrderID:  uuid.MustParse("7d9f3a52-8c1e-4d6b-9a0f-2b3c4d5e6f70"),
		SKU:      "SKU123",
		ItemName: "Tomatoes",
		Quantity: 3,
		From:     pipeline.StagePendingApproval,
		To:       pipeline.StagePendingDispatch,
		Event:    ev,
		Actor:    "Boss",
		At:       time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestFromTransition(t *testing.T) {
	e := FromTransition(transition(pipeline.EventApprove))
	assert.Equal(t, "SKU123", e.SKU)
	assert.Equal(t, "pending_approval", e.FromStage)
	assert.Equal(t, "pending_dispatch", e.ToStage)
	assert.Equal(t, "approve", e.Event)
	assert.Equal(t, 3, e.Quantity)
	assert.Equal(t, 2025, e.CreatedAt.Year())
}

func TestRecorderWritesInOrderAndDrainsOnClose(t *testing.T) {
	w := &memWriter{failOn: "cancel"}
	r := NewRecorder(w, 8)
	ctx := context.Background()
	for _, ev := range []pipeline.Event{pipeline.EventSubmit, pipeline.EventCancel, pipeline.EventApprove} {
		require.NoError(t, r.Record(ctx, transition(ev)))
	}
	require.NoError(t, r.Close(ctx))
	assert.Equal(t, []string{"submit", "approve"}, w.events())

	assert.ErrorIs(t, r.Record(ctx, transition(pipeline.EventDispatch)), ErrClosed)
	require.NoError(t, r.Close(ctx))
}

func TestRecorderDropsWhenFull(t *testing.T) {
	w := &memWriter{gate: make(chan struct{})}
	r := NewRecorder(w, 1)
	ctx := context.Background()

	// The worker takes the first event and blocks on the gate; the second
	// fills the buffer.
	require.NoError(t, r.Record(ctx, transition(pipeline.EventSubmit)))
	require.Eventually(t, func() bool { return len(r.queue) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, r.Record(ctx, transition(pipeline.EventIncrease)))
	assert.ErrorIs(t, r.Record(ctx, transition(pipeline.EventApprove)), ErrBufferFull)

	close(w.gate)
	require.NoError(t, r.Close(ctx))
	assert.Equal(t, []string{"submit", "increase"}, w.events())
}

func TestRecorderCloseHonoursContext(t *testing.T) {
	w := &memWriter{gate: make(chan struct{})}
	r := NewRecorder(w, 4)
	require.NoError(t, r.Record(context.Background(), transition(pipeline.EventSubmit)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Close(ctx), context.DeadlineExceeded)
	close(w.gate)
}
