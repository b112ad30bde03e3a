package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Separator joins the unique key and payload parts inside callback data.
const Separator = "|"

// ParseCallbackData splits Telebot's "\f<unique>|<payload>" encoding.
// Data without the \f prefix is treated as "<unique>|<payload>" as well.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	unique, payload, _ := strings.Cut(raw, Separator)
	return strings.TrimSpace(unique), payload
}

// CallbackKey returns the unique key of the current callback.
func CallbackKey(c tele.Context) string {
	k, _ := ParseCallbackData(c.Callback())
	return k
}

// CallbackPayload returns everything after the first separator.
func CallbackPayload(c tele.Context) string {
	_, p := ParseCallbackData(c.Callback())
	return p
}

// Encode renders unique and parts the same way markup.Data does.
func Encode(unique string, parts ...string) string {
	if len(parts) == 0 {
		return "\f" + unique
	}
	return "\f" + unique + Separator + strings.Join(parts, Separator)
}
