package pipeline

import (
	"github.com/google/uuid"

	"github.com/m3rciful/orderbot/internal/catalog"
)

// Order is one catalog item travelling through the pipeline.
type Order struct {
	ID          uuid.UUID
	Item        catalog.Item
	Lane        catalog.Lane
	Quantity    int
	RequestedBy string
	// Supplier and Stamp are set on manager approval.
	Supplier string
	Stamp    string
	Stage    Stage
}

// Unit is the item's measure unit, "pc" when the catalog has none.
func (o Order) Unit() string {
	return o.Item.Unit("pc")
}

// PendingApproval waits for the manager. It is keyed by the manager thread
// message id.
type PendingApproval struct {
	Order     Order
	MessageID int
	// LanePosted is set when an approval failed after the lane thread got
	// its post, so a retried approval does not post it twice.
	LanePosted bool
}

// PendingDispatch waits for the dispatcher. It is keyed by the copied
// message id in the dispatcher thread.
type PendingDispatch struct {
	Order             Order
	MessageID         int
	ApprovalMessageID int
}

// PendingPoll waits for a receipt confirmation. It is keyed by poll id.
type PendingPoll struct {
	Order     Order
	PollID    string
	MessageID int
}
