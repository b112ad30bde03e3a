package router

import (
	tg "github.com/m3rciful/orderbot/core/telegram"
	tghelpers "github.com/m3rciful/orderbot/core/telegram/helpers"
	"github.com/m3rciful/orderbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM defines the minimal interface for an FSM manager.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions controls fallback behaviour for text and media updates.
type TextOptions struct {
	AdminID         int64
	OnAdminReject   tele.HandlerFunc
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds the text, document, photo and voice routes. A user in an
// active FSM state gets every message routed to the state handler; otherwise
// text is matched against commands and their aliases, then the fallback.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	admin := middleware.AdminOptions{AdminID: opts.AdminID, OnReject: opts.OnAdminReject}

	text := func(c tele.Context) error {
		if fsm != nil && fsm.InProgress(tghelpers.SenderID(c)) {
			return runWithSummary(c, summary{name: "fsm"}, func() error { return fsm.ManagerHandler(c) })
		}
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok {
				h := cmd.Handler
				if cmd.AdminOnly {
					h = middleware.AdminOnlyMiddleware(admin)(h)
				}
				return runWithSummary(c, summary{name: normalizeHandlerName(key)}, func() error { return h(c) })
			}
			if fb := reg.TextFallback(); fb != nil {
				return runWithSummary(c, summary{name: "fallback"}, func() error { return fb(c) })
			}
		}
		if opts.UnknownText != nil {
			return runWithSummary(c, summary{name: "unknown_text"}, func() error { return opts.UnknownText(c) })
		}
		return runWithSummary(c, summary{name: "unknown_text", status: "skip"}, func() error { return nil })
	}

	media := func(name string, unknown tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if fsm != nil && fsm.InProgress(tghelpers.SenderID(c)) {
				return runWithSummary(c, summary{name: "fsm_" + name}, func() error { return fsm.ManagerHandler(c) })
			}
			if unknown != nil {
				return runWithSummary(c, summary{name: "unexpected_" + name}, func() error { return unknown(c) })
			}
			return runWithSummary(c, summary{name: "unexpected_" + name, status: "skip"}, func() error { return nil })
		}
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.LoggerMiddleware(middleware.RecoverMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(text)},
		{Endpoint: tele.OnDocument, Handler: wrap(media("document", opts.UnknownDocument))},
		{Endpoint: tele.OnPhoto, Handler: wrap(media("photo", nil))},
		{Endpoint: tele.OnVoice, Handler: wrap(media("voice", nil))},
	}
}
