package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/orderbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/orderbot/core/telegram/helpers"
	"github.com/m3rciful/orderbot/internal/notify"
	"github.com/m3rciful/orderbot/internal/pipeline"
)

// answerFailure reports a pipeline error to the presser. Resolved records,
// rejected transitions and failed platform calls are expected outcomes and
// are not returned, so a webhook delivery is not retried for them.
func (h *Handlers) answerFailure(c tele.Context, err error, notFound string) error {
	switch {
	case errors.Is(err, pipeline.ErrRecordNotFound), errors.Is(err, pipeline.ErrInvalidTransition):
		logFailure(c, "order.stale", err)
		return tghelpers.Answer(c, notFound)
	case errors.Is(err, notify.ErrExternalCall):
		logFailure(c, "order.call_failed", err)
		return tghelpers.Answer(c, textCallFailed)
	case errors.Is(err, pipeline.ErrItemNotFound):
		return tghelpers.Answer(c, textItemNotFound)
	}
	_ = tghelpers.Answer(c, textSomethingOff)
	return err
}

// addToOrder submits the pressed item for manager approval. In mark mode
// the press marks the item instead.
func (h *Handlers) addToOrder(c tele.Context) error {
	sku := strings.TrimSpace(callbacks.CallbackPayload(c))
	if sku == "" {
		return tghelpers.Answer(c, textItemNotFound)
	}
	if h.marking(c) {
		return h.markItem(c)
	}
	ctx, cancel := opContext(c)
	defer cancel()
	if _, err := h.opts.Pipeline.Submit(ctx, sku, requester(c)); err != nil {
		return h.answerFailure(c, err, textItemNotFound)
	}
	return tghelpers.Answer(c, textSentForApproval)
}

func (h *Handlers) increaseQuantity(c tele.Context) error {
	ctx, cancel := opContext(c)
	defer cancel()
	o, err := h.opts.Pipeline.IncreaseQuantity(ctx, callbackMessageID(c), requester(c))
	if err != nil {
		return h.answerFailure(c, err, textApprovalNotFound)
	}
	return tghelpers.Answer(c, fmt.Sprintf(textQuantityUpdated, o.Quantity))
}

func (h *Handlers) approve(c tele.Context) error {
	ctx, cancel := opContext(c)
	defer cancel()
	if _, err := h.opts.Pipeline.Approve(ctx, callbackMessageID(c), requester(c)); err != nil {
		return h.answerFailure(c, err, textApprovalNotFound)
	}
	return tghelpers.Answer(c, textItemApproved)
}

func (h *Handlers) cancelItem(c tele.Context) error {
	ctx, cancel := opContext(c)
	defer cancel()
	if _, err := h.opts.Pipeline.Cancel(ctx, callbackMessageID(c), requester(c)); err != nil {
		return h.answerFailure(c, err, textApprovalNotFound)
	}
	return tghelpers.Answer(c, textItemCancelled)
}

func (h *Handlers) dispatch(c tele.Context) error {
	ctx, cancel := opContext(c)
	defer cancel()
	if _, err := h.opts.Pipeline.Dispatch(ctx, callbackMessageID(c), requester(c)); err != nil {
		return h.answerFailure(c, err, textDispatchNotFound)
	}
	return tghelpers.Answer(c, textDispatched)
}

func (h *Handlers) rejectDispatch(c tele.Context) error {
	ctx, cancel := opContext(c)
	defer cancel()
	if _, err := h.opts.Pipeline.RejectDispatch(ctx, callbackMessageID(c), requester(c)); err != nil {
		return h.answerFailure(c, err, textDispatchNotFound)
	}
	return tghelpers.Answer(c, textDispatchRejected)
}

func (h *Handlers) crm(c tele.Context) error {
	return tghelpers.Answer(c, textCRMPlaceholder)
}

// pollAnswer completes the order behind a processing poll.
func (h *Handlers) pollAnswer(c tele.Context) error {
	ans := c.PollAnswer()
	if ans == nil {
		return nil
	}
	ctx, cancel := opContext(c)
	defer cancel()
	actor := tghelpers.DisplayName(ans.Sender)
	if _, _, err := h.opts.Pipeline.ConfirmReceipt(ctx, ans.PollID, ans.Options, actor); err != nil {
		if errors.Is(err, notify.ErrExternalCall) {
			logFailure(c, "order.call_failed", err, slog.String("poll_id", ans.PollID))
			return nil
		}
		return err
	}
	return nil
}
