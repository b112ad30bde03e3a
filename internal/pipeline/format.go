package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/orderbot/internal/notify"
)

// Callback actions of pipeline buttons.
const (
	ActionAdd            = "add_to_order"
	ActionQtyAdd         = "qty_add"
	ActionApprove        = "approve_item"
	ActionCancel         = "cancel_item"
	ActionDispatch       = "dispatch_approve"
	ActionRejectDispatch = "dispatch_reject"
	ActionCRM            = "crm_update"
)

func payload(parts ...string) string {
	return strings.Join(parts, "|")
}

func approvalText(o Order) string {
	return fmt.Sprintf("%s %d", o.Item.Name, o.Quantity)
}

func approvalKeyboard(o Order) notify.Keyboard {
	qty := strconv.Itoa(o.Quantity)
	return notify.Row(
		notify.Button{Text: "+1", Action: ActionQtyAdd, Payload: payload(o.Item.SKU, qty)},
		notify.Button{Text: "✅", Action: ActionApprove, Payload: payload(o.Item.SKU, qty)},
		notify.Button{Text: "❌", Action: ActionCancel, Payload: o.Item.SKU},
	)
}

func approvedText(o Order) string {
	return fmt.Sprintf("✅ APPROVED: %s x%d", o.Item.Name, o.Quantity)
}

func laneText(o Order) string {
	name := o.Item.Name
	if o.Item.CategoryName != "" {
		name = o.Item.CategoryName + " " + name
	}
	return fmt.Sprintf("🛒 %s x%d", name, o.Quantity)
}

func cancelledText(o Order) string {
	return "❌ CANCELLED: " + o.Item.Name
}

func dispatchKeyboard(o Order, approvalMessageID int) notify.Keyboard {
	ref := payload(o.Item.SKU, strconv.Itoa(approvalMessageID))
	return notify.Row(
		notify.Button{Text: "✅ Approve", Action: ActionDispatch, Payload: ref},
		notify.Button{Text: "❌ Reject", Action: ActionRejectDispatch, Payload: ref},
	)
}

func dispatchBody(o Order) string {
	return fmt.Sprintf("<<%s>>\n%s %d %s\n•\n\n%s", o.Supplier, o.Item.Name, o.Quantity, o.Unit(), o.Stamp)
}

func dispatchedText(o Order) string {
	return "✅ DISPATCHED: " + dispatchBody(o)
}

func dispatchRejectedText(o Order) string {
	return "❌ DISPATCH REJECTED: " + dispatchBody(o)
}

func pollRequest(o Order, thread int) notify.PollRequest {
	return notify.PollRequest{
		Thread:          thread,
		Question:        fmt.Sprintf("Confirm receipt of items from %s - %s?", o.Supplier, o.Stamp),
		Options:         []string{fmt.Sprintf("%s (%d %s)", o.Item.Name, o.Quantity, o.Unit())},
		MultipleAnswers: true,
		Anonymous:       false,
	}
}

func completedText(o Order) string {
	return fmt.Sprintf("🎉 COMPLETED!\n\n<<%s>>\n%s x%d %s\n•\n\n%s", o.Supplier, o.Item.Name, o.Quantity, o.Unit(), o.Stamp)
}

func completedKeyboard(pollID string) notify.Keyboard {
	return notify.Row(notify.Button{Text: "📊 CRM", Action: ActionCRM, Payload: pollID})
}
