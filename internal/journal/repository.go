// Package journal stores every pipeline transition in Postgres as an audit
// trail. The journal is write-mostly and never consulted to rebuild state.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/orderbot/internal/pipeline"
)

// Event is one row of order_events.
type Event struct {
	ID        int64     `db:"id"`
	OrderID   uuid.UUID `db:"order_id"`
	SKU       string    `db:"sku"`
	ItemName  string    `db:"item_name"`
	Quantity  int       `db:"quantity"`
	Supplier  string    `db:"supplier"`
	FromStage string    `db:"from_stage"`
	ToStage   string    `db:"to_stage"`
	Event     string    `db:"event"`
	Actor     string    `db:"actor"`
	MessageID int       `db:"message_id"`
	PollID    string    `db:"poll_id"`
	CreatedAt time.Time `db:"created_at"`
}

// FromTransition maps a pipeline transition onto a row.
func FromTransition(t pipeline.Transition) Event {
	return Event{
		OrderID:   t.OrderID,
		SKU:       t.SKU,
		ItemName:  t.ItemName,
		Quantity:  t.Quantity,
		Supplier:  t.Supplier,
		FromStage: string(t.From),
		ToStage:   string(t.To),
		Event:     string(t.Event),
		Actor:     t.Actor,
		MessageID: t.MessageID,
		PollID:    t.PollID,
		CreatedAt: t.At,
	}
}

// Writer persists events.
type Writer interface {
	Insert(ctx context.Context, e Event) error
}

// Repository reads and writes order_events.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps db.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const insertEvent = `
INSERT INTO order_events
    (order_id, sku, item_name, quantity, supplier, from_stage, to_stage, event, actor, message_id, poll_id, created_at)
VALUES
    (:order_id, :sku, :item_name, :quantity, :supplier, :from_stage, :to_stage, :event, :actor, :message_id, :poll_id, :created_at)`

// Insert appends e.
func (r *Repository) Insert(ctx context.Context, e Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if _, err := r.db.NamedExecContext(ctx, insertEvent, e); err != nil {
		return fmt.Errorf("journal: insert %s/%s: %w", e.OrderID, e.Event, err)
	}
	return nil
}

// History returns the events of one order, oldest first.
func (r *Repository) History(ctx context.Context, orderID uuid.UUID) ([]Event, error) {
	var out []Event
	err := r.db.SelectContext(ctx, &out, `SELECT * FROM order_events WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("journal: history %s: %w", orderID, err)
	}
	return out, nil
}

// Recent returns the newest events across all orders.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []Event
	err := r.db.SelectContext(ctx, &out, `SELECT * FROM order_events ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	return out, nil
}
