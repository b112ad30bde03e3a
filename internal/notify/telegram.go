package notify

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/m3rciful/orderbot/core/logger"
	"github.com/m3rciful/orderbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// API is the part of *tele.Bot the Telegram messenger needs.
type API interface {
	Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error)
	Edit(msg tele.Editable, what any, opts ...any) (*tele.Message, error)
	Copy(to tele.Recipient, msg tele.Editable, opts ...any) (*tele.Message, error)
}

var errNoPoll = errors.New("sent message carries no poll")

// Telegram posts into the forum threads of one group chat.
type Telegram struct {
	api  API
	chat int64
}

// NewTelegram returns a messenger for the group chat.
func NewTelegram(api API, chatID int64) *Telegram {
	return &Telegram{api: api, chat: chatID}
}

// Markup converts a keyboard to inline markup; nil stays nil.
func Markup(kb Keyboard) *tele.ReplyMarkup {
	if len(kb) == 0 {
		return nil
	}
	rows := make([][]keyboard.InlineBtn, 0, len(kb))
	for _, row := range kb {
		r := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			r = append(r, keyboard.InlineBtn{Text: b.Text, Unique: b.Action, Data: b.Payload})
		}
		rows = append(rows, r)
	}
	return keyboard.InlineButtonsRows(rows...)
}

func (t *Telegram) options(thread int, kb Keyboard, markdown bool) *tele.SendOptions {
	opts := &tele.SendOptions{ThreadID: thread, ReplyMarkup: Markup(kb)}
	if markdown {
		opts.ParseMode = tele.ModeMarkdown
	}
	return opts
}

func (t *Telegram) stored(messageID int) tele.StoredMessage {
	return tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: t.chat}
}

func (t *Telegram) fail(ctx context.Context, op string, err error, attrs ...slog.Attr) error {
	attrs = append(attrs, slog.String("op", op), slog.String("status", "fail"), logger.Err(err))
	logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "notify.failed", attrs...)
	return Wrap(op, err)
}

// Post sends a text message into a thread.
func (t *Telegram) Post(ctx context.Context, msg Message) (int, error) {
	sent, err := t.api.Send(tele.ChatID(t.chat), msg.Text, t.options(msg.Thread, msg.Keyboard, msg.Markdown))
	if err != nil {
		return 0, t.fail(ctx, "send_message", err, slog.Int("thread_id", msg.Thread))
	}
	return sent.ID, nil
}

// Edit rewrites a message's text; a nil keyboard drops its buttons.
func (t *Telegram) Edit(ctx context.Context, messageID int, text string, kb Keyboard) error {
	if _, err := t.api.Edit(t.stored(messageID), text, t.options(0, kb, false)); err != nil {
		return t.fail(ctx, "edit_message", err, slog.Int("msg_id", messageID))
	}
	return nil
}

// Copy copies a message into a thread of the group chat.
func (t *Telegram) Copy(ctx context.Context, req CopyRequest) (int, error) {
	from := req.FromChat
	if from == 0 {
		from = t.chat
	}
	src := tele.StoredMessage{MessageID: strconv.Itoa(req.MessageID), ChatID: from}
	sent, err := t.api.Copy(tele.ChatID(t.chat), src, t.options(req.Thread, req.Keyboard, false))
	if err != nil {
		return 0, t.fail(ctx, "copy_message", err, slog.Int("msg_id", req.MessageID), slog.Int("thread_id", req.Thread))
	}
	return sent.ID, nil
}

// Poll sends a regular poll into a thread.
func (t *Telegram) Poll(ctx context.Context, req PollRequest) (PollRef, error) {
	poll := &tele.Poll{
		Type:            tele.PollRegular,
		Question:        req.Question,
		MultipleAnswers: req.MultipleAnswers,
		Anonymous:       req.Anonymous,
	}
	for _, opt := range req.Options {
		poll.Options = append(poll.Options, tele.PollOption{Text: opt})
	}
	sent, err := t.api.Send(tele.ChatID(t.chat), poll, &tele.SendOptions{ThreadID: req.Thread})
	if err != nil {
		return PollRef{}, t.fail(ctx, "send_poll", err, slog.Int("thread_id", req.Thread))
	}
	if sent.Poll == nil {
		return PollRef{}, t.fail(ctx, "send_poll", errNoPoll, slog.Int("msg_id", sent.ID))
	}
	return PollRef{MessageID: sent.ID, PollID: sent.Poll.ID}, nil
}
