package router

import (
	"context"
	"sync/atomic"
	"time"

	kit "relaybot/internal/transport"
	logx "relaybot/pkg/logx"
)

// Command is a slash command. Name and aliases are matched case-insensitively.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string

	// Timeout overrides Options.DefaultTimeout when set.
	Timeout time.Duration
	Handle  HandlerFunc
}

type CallbackHandlerFunc func(ctx context.Context, req *Request, payload string) error

// CallbackRoute handles button presses whose data is "action[:payload]".
type CallbackRoute struct {
	Action      string
	Description string
	Timeout     time.Duration
	Handle      CallbackHandlerFunc
}

// Request is one routed message or button press.
type Request struct {
	Update kit.Update
	Chat   kit.ChatTarget
	FromID int64
	// MessageID is the sent message, or the keyboard's message for callbacks.
	MessageID int
	ReplyToID int
	Text      string
	Command   string
	Args      []string
	Payload   string

	RawArgs   []string
	Flags     map[string]string
	BoolFlags map[string]bool
	ReqID     string

	Sender kit.Sender
	Logger logx.Logger

	callbackID string
	answered   atomic.Bool
}

// Reply answers in the request's chat, quoting the originating message.
func (r *Request) Reply(ctx context.Context, text string) error {
	_, err := r.Sender.SendText(ctx, r.Chat, text, &kit.SendOptions{DisablePreview: true, ReplyTo: r.MessageID})
	return err
}

// Answer sends the callback toast. Only the first call has an effect, so
// the dispatcher can always answer after the handler to stop the spinner.
func (r *Request) Answer(ctx context.Context, text string) error {
	if r.callbackID == "" || !r.answered.CompareAndSwap(false, true) {
		return nil
	}
	return r.Sender.AnswerCallback(ctx, r.callbackID, text)
}

func newMessageRequest(up kit.Update, sender kit.Sender, log logx.Logger, command string) *Request {
	msg := up.Message
	rid := newReqID()
	return &Request{
		Update:    up,
		Chat:      kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID},
		FromID:    msg.FromID,
		MessageID: msg.ID,
		ReplyToID: msg.ReplyToID,
		Text:      msg.Text,
		Command:   command,
		ReqID:     rid,
		Sender:    sender,
		Logger:    requestLogger(log, rid, msg.ChatID, msg.FromID, command),
	}
}

func newCallbackRequest(up kit.Update, sender kit.Sender, log logx.Logger, action, payload string) *Request {
	cb := up.Callback
	rid := newReqID()
	return &Request{
		Update:     up,
		Chat:       kit.ChatTarget{ChatID: cb.ChatID, ThreadID: cb.ThreadID},
		FromID:     cb.FromID,
		MessageID:  cb.MessageID,
		Command:    "cb:" + action,
		Payload:    payload,
		ReqID:      rid,
		Sender:     sender,
		Logger:     requestLogger(log, rid, cb.ChatID, cb.FromID, "cb:"+action),
		callbackID: cb.ID,
	}
}

func requestLogger(log logx.Logger, rid string, chatID, fromID int64, cmd string) logx.Logger {
	return log.With(
		logx.String("rid", rid),
		logx.Int64("chat_id", chatID),
		logx.Int64("from_id", fromID),
		logx.String("cmd", cmd),
	)
}
