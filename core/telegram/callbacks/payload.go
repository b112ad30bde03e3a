package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// PayloadParts splits the callback payload on Separator.
func PayloadParts(c tele.Context) ([]string, error) {
	p := CallbackPayload(c)
	if p == "" {
		return nil, strconv.ErrSyntax
	}
	return strings.Split(p, Separator), nil
}

// PayloadInt parses the whole callback payload as int.
func PayloadInt(c tele.Context) (int, error) {
	return strconv.Atoi(strings.TrimSpace(CallbackPayload(c)))
}

// PayloadInt64 parses the whole callback payload as int64.
func PayloadInt64(c tele.Context) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(CallbackPayload(c)), 10, 64)
}

// PayloadStringInt parses payloads like "SKU123|4" where the first part is
// free text and the second an integer.
func PayloadStringInt(c tele.Context) (string, int, error) {
	parts, err := PayloadParts(c)
	if err != nil {
		return "", 0, err
	}
	if len(parts) != 2 || parts[0] == "" {
		return "", 0, strconv.ErrSyntax
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", 0, err
	}
	return parts[0], n, nil
}
