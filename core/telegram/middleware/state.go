package middleware

import (
	"log/slog"

	"github.com/m3rciful/orderbot/core/logger"
	tghelpers "github.com/m3rciful/orderbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// StateGetter is the minimal interface required from an FSM manager.
type StateGetter[S comparable] interface {
	GetState(userID int64) S
}

// State runs next only while the sender is in expected; otherwise the
// update is ignored, or handed to otherwise when it is set.
func State[S comparable](mgr StateGetter[S], expected S, otherwise tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			current := mgr.GetState(tghelpers.SenderID(c))
			if current == expected {
				return next(c)
			}
			logger.Debug(tghelpers.BuildContext(c), logger.ComponentTG, "fsm.skip",
				slog.Any("state", current),
				slog.Any("expected", expected),
			)
			if otherwise != nil {
				return otherwise(c)
			}
			return nil
		}
	}
}
