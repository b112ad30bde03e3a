package bot

import (
	"fmt"
	"log/slog"
	"strconv"

	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/m3rciful/orderbot/core/telegram/helpers"
	"github.com/m3rciful/orderbot/core/telegram/state"
	"github.com/m3rciful/orderbot/internal/notify"
)

const (
	actionApproveCustom = "approve_custom"
	actionRejectCustom  = "reject_custom"
)

// customStart waits for the next message of the user as a custom request.
func (h *Handlers) customStart(c tele.Context) error {
	h.opts.FSM.SetState(tghelpers.SenderID(c), StateCustomRequest)
	return tghelpers.SendText(c, textCustomPrompt)
}

// customReceive copies the request into the manager thread and posts an
// approval notice under it. The state is kept when forwarding fails so the
// user can simply send again.
func (h *Handlers) customReceive(c tele.Context) error {
	msg := c.Message()
	if msg == nil {
		return nil
	}
	if handled, err := h.escape(c); handled {
		return err
	}
	user := tghelpers.SenderID(c)
	ctx, cancel := opContext(c)
	defer cancel()

	copied, err := h.opts.Messenger.Copy(ctx, notify.CopyRequest{
		FromChat:  c.Chat().ID,
		MessageID: msg.ID,
		Thread:    h.opts.Threads.Manager,
	})
	if err == nil {
		ref := strconv.Itoa(copied)
		_, err = h.opts.Messenger.Post(ctx, notify.Message{
			Thread: h.opts.Threads.Manager,
			Text:   fmt.Sprintf(textCustomApproval, requester(c)),
			Keyboard: notify.Row(
				notify.Button{Text: "✅ Approve Custom", Action: actionApproveCustom, Payload: ref},
				notify.Button{Text: "❌ Reject Custom", Action: actionRejectCustom, Payload: ref},
			),
		})
	}
	if err != nil {
		logFailure(c, "custom.forward", err, slog.Int("msg_id", msg.ID))
		return tghelpers.SendText(c, textCustomFailed)
	}
	h.opts.FSM.Clear(user)
	return tghelpers.SendText(c, textCustomSent)
}

// resolveCustom edits the approval notice to its final label.
func (h *Handlers) resolveCustom(label, answer string) tele.HandlerFunc {
	return func(c tele.Context) error {
		if err := tghelpers.EditText(c, label); err != nil {
			logFailure(c, "custom.resolve", err)
			return tghelpers.Answer(c, textCallFailed)
		}
		return tghelpers.Answer(c, answer)
	}
}

// cancelConversation leaves any pending custom request or admin input.
func (h *Handlers) cancelConversation(c tele.Context) error {
	user := tghelpers.SenderID(c)
	current := h.opts.FSM.GetState(user)
	h.opts.FSM.Clear(user)
	switch current {
	case state.StateIdle:
		return tghelpers.SendText(c, textNothingToCancel)
	case StateCustomRequest:
		return tghelpers.SendText(c, textCustomCancelled)
	}
	return tghelpers.SendText(c, textAdminCancelled)
}
