package relay

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized         = errors.New("relay: unauthorized")
	ErrNotFound             = errors.New("relay: no pending message")
	ErrConfigurationMissing = errors.New("relay: staging chat not set")
	ErrStagingFailed        = errors.New("relay: staging failed")
)

// UsageError reports a missing or malformed directive argument.
type UsageError struct {
	Usage string // e.g. "/set <chat_id>"
	Hint  string // optional replacement for the generic "Usage:" line
}

func (e *UsageError) Error() string {
	if e.Hint != "" {
		return "relay: usage: " + e.Hint
	}
	return "relay: usage: " + e.Usage
}

// DeliveryFailure is one destination that did not receive a broadcast.
// It never fails the broadcast as a whole.
type DeliveryFailure struct {
	ChatID int64
	Err    error
}

func (f DeliveryFailure) Error() string { return fmt.Sprintf("chat %d: %v", f.ChatID, f.Err) }
func (f DeliveryFailure) Unwrap() error { return f.Err }

// DeliveryReport is the per-destination outcome of a broadcast.
type DeliveryReport struct {
	Attempted int
	Delivered []int64
	Failures  []DeliveryFailure
}

func (r DeliveryReport) Failed() int { return len(r.Failures) }

// Notice maps an error to the short message shown to the user who triggered it.
func Notice(err error) string {
	var ue *UsageError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ue):
		if ue.Hint != "" {
			return "❌ " + ue.Hint
		}
		return "❌ Usage: " + ue.Usage
	case errors.Is(err, ErrUnauthorized):
		return "🚫 You are not authorized to use this command."
	case errors.Is(err, ErrNotFound):
		return "❌ No pending message found."
	case errors.Is(err, ErrConfigurationMissing):
		return "❌ Staging chat not set. Use /set <chat_id>."
	case errors.Is(err, ErrStagingFailed):
		return "❌ Could not submit your message for review. Please try again later."
	default:
		return "❌ Something went wrong. Please try again."
	}
}
