package tgui

import (
	"strings"
	"unicode/utf8"
)

// Data formats inline callback data as "action:payload" ("action" alone when
// payload is empty). It returns ErrCallbackDataTooLong when the result would not
// fit into Telegram's callback_data.
func Data(action, payload string) (string, error) {
	action = strings.TrimSpace(action)
	out := action
	if payload != "" {
		out = action + ":" + payload
	}
	if len(out) > MaxCallbackDataLen {
		return action, ErrCallbackDataTooLong
	}
	return out, nil
}

// DataOrBare is like Data but falls back to the bare action when the payload
// does not fit (or is not valid UTF-8, which Telegram rejects).
func DataOrBare(action, payload string) string {
	if !utf8.ValidString(payload) {
		return strings.TrimSpace(action)
	}
	out, err := Data(action, payload)
	if err != nil {
		return strings.TrimSpace(action)
	}
	return out
}

// ParseData splits callback data into action and payload.
// The payload is everything after the first ':' and may itself contain ':'.
func ParseData(data string) (action, payload string) {
	data = strings.TrimSpace(data)
	action, payload, _ = strings.Cut(data, ":")
	return strings.TrimSpace(action), payload
}
