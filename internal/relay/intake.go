package relay

import (
	"context"
	"fmt"

	"relaybot/internal/eventbus"
	kit "relaybot/internal/transport"
	logx "relaybot/pkg/logx"
	"relaybot/pkg/tgui"
)

// Inbound is a text message submitted for moderation.
type Inbound struct {
	ChatID    int64
	MessageID int
	FromID    int64
	Text      string
}

// Intake stages msg in the staging chat with decision buttons. Anyone may
// submit. It returns ErrConfigurationMissing when no staging chat is set and
// ErrStagingFailed when the rendering could not be posted; nothing is staged
// in either case. Messages posted in the staging chat itself are ignored.
func (s *Service) Intake(ctx context.Context, msg Inbound) (staged bool, err error) {
	staging, ok := s.registry.Staging()
	if !ok {
		return false, ErrConfigurationMissing
	}
	if msg.ChatID == staging {
		return false, nil
	}

	ref, err := s.sender.SendText(ctx, kit.ChatTarget{ChatID: staging}, msg.Text, &kit.SendOptions{
		DisablePreview:     true,
		ReplyMarkupAdapter: decisionKeyboard(msg.Text),
	})
	if err != nil {
		s.log.Warn("staging post failed", logx.Int64("staging_chat", staging), logx.Int64("from_id", msg.FromID), logx.Err(err))
		return false, fmt.Errorf("%w: %w", ErrStagingFailed, err)
	}

	key := Key{ChatID: staging, MessageID: ref.MessageID}
	for _, e := range s.pending.Stage(key, msg.Text) {
		s.log.Info("pending entry evicted (store full)", logx.Int64("chat_id", e.Key.ChatID), logx.Int("message_id", e.Key.MessageID))
		s.clearMarkup(ctx, e.Key)
		s.bus.Publish(eventbus.Event{Type: EventExpired, Data: e.Key})
	}
	s.log.Info("message staged",
		logx.Int64("staging_chat", staging),
		logx.Int("rendering_id", ref.MessageID),
		logx.Int64("from_id", msg.FromID),
		logx.String("preview", tgui.TruncRunes(msg.Text, 48)),
		logx.Int("pending", s.pending.Len()),
	)
	s.bus.Publish(eventbus.Event{Type: EventStaged, Data: key})
	return true, nil
}
