package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/orderbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/orderbot/core/telegram/helpers"
	"github.com/m3rciful/orderbot/core/telegram/keyboard"
	"github.com/m3rciful/orderbot/internal/marks"
	"github.com/m3rciful/orderbot/internal/notify"
	"github.com/m3rciful/orderbot/internal/pipeline"
)

const (
	actionMarkItem   = "mark_item"
	actionUnmarkItem = "unmark_item"
	actionSendOrder  = "send_order"
)

// markState exposes mark mode as a per-user boolean state.
type markState struct{ book *marks.Book }

func (m markState) GetState(userID int64) bool { return m.book.Enabled(userID) }

func (h *Handlers) markModeInactive(c tele.Context) error {
	return tghelpers.Answer(c, textMarkModeOff)
}

func (h *Handlers) markModeOn(c tele.Context) error {
	h.opts.Marks.Book().Enable(tghelpers.SenderID(c))
	return tghelpers.SendWithMarkup(c, textMarkEnabled, markKeyboard(false))
}

func (h *Handlers) markModeOff(c tele.Context) error {
	h.opts.Marks.Book().Disable(tghelpers.SenderID(c))
	return tghelpers.SendWithMarkup(c, textMarkDisabled, h.mainKeyboard())
}

// placeOrder asks where the marked items should go.
func (h *Handlers) placeOrder(c tele.Context) error {
	user := tghelpers.SenderID(c)
	book := h.opts.Marks.Book()
	if !book.Enabled(user) {
		return tghelpers.SendWithMarkup(c, textMarkModeOff, h.mainKeyboard())
	}
	if book.Len(user) == 0 {
		return tghelpers.SendText(c, marks.NothingMarkedText)
	}
	id := strconv.FormatInt(user, 10)
	kb := keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: "📋 Manager", Unique: actionSendOrder, Data: string(marks.DestManager) + callbacks.Separator + id},
		{Text: "📦 Dispatcher", Unique: actionSendOrder, Data: string(marks.DestDispatcher) + callbacks.Separator + id},
	})
	return tghelpers.SendWithMarkup(c, textSendOrderTo, kb)
}

// sendOrder places the bulk order of the user named in the payload.
func (h *Handlers) sendOrder(c tele.Context) error {
	parts, err := callbacks.PayloadParts(c)
	if err != nil || len(parts) != 2 {
		return tghelpers.Answer(c, textUnknownAction)
	}
	dest, ok := marks.ParseDestination(parts[0])
	if !ok {
		return tghelpers.Answer(c, textUnknownAction)
	}
	user, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return tghelpers.Answer(c, textUnknownAction)
	}

	ctx, cancel := opContext(c)
	defer cancel()
	if _, err := h.opts.Marks.PlaceOrder(ctx, user, dest); err != nil {
		switch {
		case errors.Is(err, marks.ErrNothingMarked):
			return tghelpers.Answer(c, marks.NothingMarkedText)
		case errors.Is(err, notify.ErrExternalCall):
			logFailure(c, "bulk.call_failed", err, slog.String("kind", string(dest)))
			return tghelpers.Answer(c, textCallFailed)
		}
		return err
	}
	if err := tghelpers.EditText(c, fmt.Sprintf(textBulkSent, strings.ToUpper(string(dest)))); err != nil {
		logFailure(c, "bulk.edit", err)
	}
	return tghelpers.Answer(c, fmt.Sprintf(textBulkSentAnswer, dest))
}

func (h *Handlers) markItem(c tele.Context) error {
	return h.toggleMark(c, true)
}

func (h *Handlers) unmarkItem(c tele.Context) error {
	return h.toggleMark(c, false)
}

func (h *Handlers) toggleMark(c tele.Context, mark bool) error {
	sku := strings.TrimSpace(callbacks.CallbackPayload(c))
	item, ok, err := h.opts.Catalog.ItemBySKU(sku)
	if err != nil {
		return err
	}
	if !ok {
		return tghelpers.Answer(c, textItemNotFound)
	}
	user := tghelpers.SenderID(c)
	book := h.opts.Marks.Book()
	answer := fmt.Sprintf(textUnmarked, item.Name)
	if mark {
		book.Mark(user, item)
		answer = fmt.Sprintf(textMarked, item.Name)
	} else {
		book.Unmark(user, sku)
	}
	if kb := h.remark(c.Callback(), user); kb != nil {
		if err := tghelpers.EditMarkup(c, kb); err != nil {
			logFailure(c, "marks.keyboard", err, slog.String("sku", sku))
		}
	}
	return tghelpers.Answer(c, answer)
}

// remark rebuilds the keyboard of the pressed message so every item button
// reflects the user's current marks. Other buttons are kept as they are.
func (h *Handlers) remark(cb *tele.Callback, user int64) *tele.ReplyMarkup {
	if cb == nil || cb.Message == nil || cb.Message.ReplyMarkup == nil {
		return nil
	}
	book := h.opts.Marks.Book()
	rows := make([][]keyboard.InlineBtn, 0, len(cb.Message.ReplyMarkup.InlineKeyboard))
	for _, row := range cb.Message.ReplyMarkup.InlineKeyboard {
		r := make([]keyboard.InlineBtn, 0, len(row))
		for _, btn := range row {
			key, data := callbacks.ParseCallbackData(&tele.Callback{Unique: btn.Unique, Data: btn.Data})
			switch key {
			case actionMarkItem, actionUnmarkItem, pipeline.ActionAdd:
				name := strings.TrimPrefix(btn.Text, markedPrefix)
				if book.IsMarked(user, data) {
					r = append(r, keyboard.InlineBtn{Text: markedPrefix + name, Unique: actionUnmarkItem, Data: data})
				} else {
					r = append(r, keyboard.InlineBtn{Text: name, Unique: actionMarkItem, Data: data})
				}
			default:
				r = append(r, keyboard.InlineBtn{Text: btn.Text, Unique: key, Data: data})
			}
		}
		rows = append(rows, r)
	}
	return keyboard.InlineButtonsRows(rows...)
}
