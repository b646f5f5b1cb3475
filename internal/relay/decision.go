package relay

import (
	"context"
	"fmt"

	"relaybot/internal/eventbus"
	logx "relaybot/pkg/logx"
)

var allowUsage = &UsageError{Usage: "/allow (as a reply)", Hint: "Reply to a message with /allow to approve it."}

// ApproveReply handles /allow sent as a reply to a rendering in chatID.
func (s *Service) ApproveReply(ctx context.Context, actorID, chatID int64, replyToID int) (DeliveryReport, error) {
	if err := s.gate.Check(actorID); err != nil {
		return DeliveryReport{}, err
	}
	if replyToID == 0 {
		return DeliveryReport{}, allowUsage
	}
	key := Key{ChatID: chatID, MessageID: replyToID}
	text, err := s.pending.Consume(key)
	if err != nil {
		return DeliveryReport{}, err
	}

	rep := s.Broadcast(ctx, text)
	s.clearMarkup(ctx, key)
	s.decided(EventApproved, DecisionEvent{Key: key, ActorID: actorID, Via: "reply", Delivered: len(rep.Delivered), Failed: rep.Failed()})
	return rep, nil
}

// Approve handles the inline approve button on rendering key. The Pending
// Store entry is consumed first so a message is broadcast at most once
// whichever path decides it; the button payload supplies the text when it
// carries one.
func (s *Service) Approve(ctx context.Context, actorID int64, key Key, payload string) (DeliveryReport, error) {
	if err := s.gate.Check(actorID); err != nil {
		return DeliveryReport{}, err
	}
	text, err := s.pending.Consume(key)
	if err != nil {
		s.clearMarkup(ctx, key)
		return DeliveryReport{}, err
	}
	if payload != "" {
		text = payload
	}

	rep := s.Broadcast(ctx, text)
	s.clearMarkup(ctx, key)
	s.decided(EventApproved, DecisionEvent{Key: key, ActorID: actorID, Via: "button", Delivered: len(rep.Delivered), Failed: rep.Failed()})
	return rep, nil
}

// Reject handles the inline reject button: the entry is discarded (if still
// present) and the buttons are removed. Nothing is broadcast.
func (s *Service) Reject(ctx context.Context, actorID int64, key Key) error {
	if err := s.gate.Check(actorID); err != nil {
		return err
	}
	existed := s.pending.Discard(key)
	s.clearMarkup(ctx, key)
	if !existed {
		s.log.Debug("reject on a message that was not pending", logx.Int64("chat_id", key.ChatID), logx.Int("message_id", key.MessageID))
	}
	s.decided(EventRejected, DecisionEvent{Key: key, ActorID: actorID, Via: "button"})
	return nil
}

func (s *Service) decided(typ string, ev DecisionEvent) {
	s.log.Info("message decided",
		logx.String("event", typ),
		logx.String("via", ev.Via),
		logx.Int64("chat_id", ev.Key.ChatID),
		logx.Int("message_id", ev.Key.MessageID),
		logx.Int("delivered", ev.Delivered),
		logx.Int("failed", ev.Failed),
	)
	s.bus.Publish(eventbus.Event{Type: typ, Data: ev})
}

// ForwardNotice is the operator confirmation after an approval.
func ForwardNotice(rep DeliveryReport) string {
	switch {
	case rep.Attempted == 0:
		return "✅ Message approved. No destinations are configured yet; use /add <chat_id>."
	case rep.Failed() == 0:
		return "✅ Message forwarded to allowed channels."
	default:
		return fmt.Sprintf("✅ Message forwarded to allowed channels (%d of %d failed; see logs).", rep.Failed(), rep.Attempted)
	}
}
