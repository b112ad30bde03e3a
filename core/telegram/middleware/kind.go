package middleware

import (
	coreconfig "github.com/m3rciful/orderbot/core/config"

	tele "gopkg.in/telebot.v4"
)

// UpdateKind names the payload carried by u using the rate limit exclusion vocabulary.
func UpdateKind(u tele.Update) string {
	switch {
	case u.Callback != nil:
		return coreconfig.UpdateCallback
	case u.Message != nil:
		return coreconfig.UpdateMessage
	case u.Query != nil:
		return coreconfig.UpdateInlineQuery
	case u.PollAnswer != nil:
		return coreconfig.UpdatePollAnswer
	default:
		return "other"
	}
}
