package adapter

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	kit "relaybot/internal/transport"
	logx "relaybot/pkg/logx"
)

// SendText sends text, split into several messages when it exceeds the
// Telegram limit. Reply and markup go on the first part, whose ref is returned.
func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	var o kit.SendOptions
	if opt != nil {
		o = *opt
	}
	chat := &tele.Chat{ID: to.ChatID}
	parts := splitText(text, maxMessageRunes, strings.EqualFold(o.ParseMode, "HTML"))

	var first kit.MessageRef
	for i, part := range parts {
		if err := ctx.Err(); err != nil {
			return first, err
		}
		so := &tele.SendOptions{
			ParseMode:             o.ParseMode,
			DisableWebPagePreview: o.DisablePreview,
			ThreadID:              to.ThreadID,
		}
		if i == 0 {
			if o.ReplyTo > 0 {
				so.ReplyTo = &tele.Message{ID: o.ReplyTo, Chat: chat}
			}
			if rm, ok := o.ReplyMarkupAdapter.(*tele.ReplyMarkup); ok && rm != nil {
				so.ReplyMarkup = rm
			}
		}
		msg, err := a.bot.Send(chat, part, so)
		if err != nil {
			return first, classifySendError(err)
		}
		if i == 0 {
			first = kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}
		}
	}
	return first, nil
}

// ClearMarkup removes the inline keyboard of a sent message. A message that
// already has none is not an error.
func (a *Adapter) ClearMarkup(ctx context.Context, ref kit.MessageRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := &tele.Message{ID: ref.MessageID, Chat: &tele.Chat{ID: ref.ChatID}}
	if _, err := a.bot.EditReplyMarkup(m, nil); err != nil && !strings.Contains(err.Error(), "message is not modified") {
		return err
	}
	return nil
}

// AnswerCallback shows text as a toast to the user who pressed the button.
func (a *Adapter) AnswerCallback(ctx context.Context, callbackID string, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.bot.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{Text: text})
}

// UpdateMenuCommands publishes the command menu (setMyCommands), skipping
// the call when the list is unchanged since the last success.
func (a *Adapter) UpdateMenuCommands(ctx context.Context, cmds []kit.BotCommand) error {
	a.menuMu.Lock()
	defer a.menuMu.Unlock()

	sum := menuChecksum(cmds)
	if sum == a.menuSum {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	out := make([]tele.Command, 0, len(cmds))
	for _, c := range cmds {
		if c.Command == "" {
			continue
		}
		out = append(out, tele.Command{Text: c.Command, Description: c.Description})
	}
	if err := a.bot.SetCommands(out); err != nil {
		return err
	}
	a.menuSum = sum
	a.log.Info("menu commands updated", logx.Int("count", len(out)))
	return nil
}

func menuChecksum(cmds []kit.BotCommand) uint64 {
	h := fnv.New64a()
	for _, c := range cmds {
		h.Write([]byte(c.Command + "\x00" + c.Description + "\x00"))
	}
	return h.Sum64()
}

// permanentSendFailures are Telegram error fragments that retrying cannot fix.
var permanentSendFailures = []string{
	"chat not found",
	"bot was kicked",
	"bot was blocked",
	"not enough rights",
	"forbidden",
}

// classifySendError tags err as NoRetry or RetryAfter for the dispatcher.
func classifySendError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if d, ok := retryAfter(msg); ok {
		return kit.RetryAfter(err, d)
	}
	var te *tele.Error
	if errors.As(err, &te) && (te.Code == 400 || te.Code == 403) {
		return kit.NoRetry(err)
	}
	for _, frag := range permanentSendFailures {
		if strings.Contains(msg, frag) {
			return kit.NoRetry(err)
		}
	}
	return err
}

// retryAfter extracts the "retry after N" seconds of a flood-control error.
func retryAfter(msg string) (time.Duration, bool) {
	_, rest, ok := strings.Cut(msg, "retry after ")
	if !ok {
		return 0, false
	}
	end := strings.IndexFunc(rest, func(r rune) bool { return r < '0' || r > '9' })
	if end >= 0 {
		rest = rest[:end]
	}
	secs, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
