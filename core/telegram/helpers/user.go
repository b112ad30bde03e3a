package helpers

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// DisplayName returns the username, else the first name, else "Unknown".
func DisplayName(u *tele.User) string {
	if u == nil {
		return "Unknown"
	}
	if name := strings.TrimSpace(u.Username); name != "" {
		return name
	}
	if name := strings.TrimSpace(u.FirstName); name != "" {
		return name
	}
	return "Unknown"
}

// SenderID returns the sender id of c or 0.
func SenderID(c tele.Context) int64 {
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}
