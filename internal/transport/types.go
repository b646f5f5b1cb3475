// Package transport holds the chat-platform types shared by the adapter,
// the command router and the relay. Nothing here imports telebot.
package transport

import "context"

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback"
)

// Update is one inbound event; exactly one of Message or Callback is set.
type Update struct {
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
}

// Message is an inbound text message.
type Message struct {
	ID        int
	ChatID    int64
	ThreadID  int // forum topic, 0 outside forums
	FromID    int64
	Text      string
	ReplyToID int
}

// Callback is an inline-button press.
type Callback struct {
	ID        string
	FromID    int64
	ChatID    int64
	ThreadID  int
	MessageID int // message carrying the keyboard
	Data      string
}

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

// MessageRef identifies a message the bot sent.
type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	ReplyTo        int
	// ReplyMarkupAdapter carries platform markup (*telebot.ReplyMarkup).
	ReplyMarkupAdapter any
}

// Sender is what the relay and the log sink need from the bot.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	ClearMarkup(ctx context.Context, ref MessageRef) error
	AnswerCallback(ctx context.Context, callbackID string, text string) error
}

// Adapter is a Sender that also produces updates.
type Adapter interface {
	Sender
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error
}

type BotCommand struct {
	Command     string
	Description string
}

// CommandMenuUpdater is implemented by adapters that can publish a command menu.
type CommandMenuUpdater interface {
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
