package router

import (
	tg "github.com/m3rciful/orderbot/core/telegram"
	"github.com/m3rciful/orderbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// EventRoute binds h to a non-message endpoint such as tele.OnPollAnswer or
// tele.OnQuery with the same logging, recovery and summary as other routes.
func EventRoute(endpoint string, name string, h tele.HandlerFunc) tg.Route {
	s := summary{name: normalizeHandlerName(name)}
	return tg.Route{
		Endpoint: endpoint,
		Handler:  middleware.LoggerMiddleware(middleware.RecoverMiddleware(withSummary(s, h))),
	}
}
