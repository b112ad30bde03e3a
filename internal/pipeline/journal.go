package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Transition is one journaled stage change.
type Transition struct {
	OrderID   uuid.UUID
	SKU       string
	ItemName  string
	Quantity  int
	Supplier  string
	From      Stage
	To        Stage
	Event     Event
	Actor     string
	MessageID int
	PollID    string
	At        time.Time
}

// Recorder persists transitions for auditing. Implementations must not
// block for long; errors are logged and otherwise ignored.
type Recorder interface {
	Record(ctx context.Context, t Transition) error
}

// NopRecorder discards transitions.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, Transition) error { return nil }
