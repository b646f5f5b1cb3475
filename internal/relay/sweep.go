package relay

import (
	"context"
	"time"

	"relaybot/internal/eventbus"
	logx "relaybot/pkg/logx"
)

// Sweep expires entries older than the configured TTL and strips their
// buttons. It returns the number of expired entries.
func (s *Service) Sweep(ctx context.Context) int {
	ttl := time.Duration(s.ttl.Load())
	if ttl <= 0 {
		return 0
	}
	expired := s.pending.Expire(s.now().Add(-ttl))
	for _, e := range expired {
		if ctx.Err() == nil {
			s.clearMarkup(ctx, e.Key)
		}
		s.bus.Publish(eventbus.Event{Type: EventExpired, Data: e.Key})
	}
	if len(expired) > 0 {
		s.log.Info("pending entries expired", logx.Int("count", len(expired)), logx.Duration("ttl", ttl), logx.Int("pending", s.pending.Len()))
	}
	return len(expired)
}
