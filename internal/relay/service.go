package relay

import (
	"context"
	"sync/atomic"
	"time"

	"relaybot/internal/eventbus"
	kit "relaybot/internal/transport"
	logx "relaybot/pkg/logx"
)

// Config holds the relay settings. OperatorID is fixed for the life of the Service.
type Config struct {
	OperatorID int64

	// Seeds applied once by New.
	StagingChat  int64
	Destinations []int64

	MaxPending int           // 0 = unbounded
	PendingTTL time.Duration // 0 = never expire
	Dispatch   DispatcherConfig
}

// Service owns the relay state and implements every handler.
type Service struct {
	gate     Gate
	registry *Registry
	pending  *PendingStore
	dispatch *Dispatcher

	sender kit.Sender
	log    logx.Logger
	bus    eventbus.Bus

	ttl atomic.Int64 // time.Duration
	now func() time.Time
}

func New(cfg Config, sender kit.Sender, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	s := &Service{
		gate:     NewGate(cfg.OperatorID),
		registry: NewRegistry(),
		pending:  NewPendingStore(cfg.MaxPending),
		dispatch: NewDispatcher(sender, cfg.Dispatch, log.With(logx.String("comp", "relay.dispatch")), bus),
		sender:   sender,
		log:      log,
		bus:      bus,
		now:      time.Now,
	}
	s.ttl.Store(int64(cfg.PendingTTL))

	if cfg.StagingChat != 0 {
		s.registry.SetStaging(cfg.StagingChat)
	}
	for _, id := range cfg.Destinations {
		if id != 0 {
			s.registry.AddDestination(id)
		}
	}
	return s
}

func (s *Service) Registry() *Registry     { return s.registry }
func (s *Service) Pending() *PendingStore  { return s.pending }
func (s *Service) Gate() Gate              { return s.gate }
func (s *Service) Dispatcher() *Dispatcher { return s.dispatch }

// Apply updates the reloadable settings. The operator and the seeds are ignored.
func (s *Service) Apply(cfg Config) {
	if cfg.OperatorID != 0 && cfg.OperatorID != s.gate.Operator() {
		s.log.Warn("operator change ignored; restart required", logx.Int64("operator_id", s.gate.Operator()))
	}
	s.pending.SetMaxEntries(cfg.MaxPending)
	s.ttl.Store(int64(cfg.PendingTTL))
	s.dispatch.Apply(cfg.Dispatch)
}

// Broadcast sends text to the current destination set.
func (s *Service) Broadcast(ctx context.Context, text string) DeliveryReport {
	return s.dispatch.Broadcast(ctx, s.registry.Destinations(), text)
}

// clearMarkup strips the decision buttons from a rendering, best-effort.
func (s *Service) clearMarkup(ctx context.Context, key Key) {
	ref := kit.MessageRef{ChatID: key.ChatID, MessageID: key.MessageID}
	if err := s.sender.ClearMarkup(ctx, ref); err != nil {
		s.log.Debug("clear markup failed", logx.Int64("chat_id", key.ChatID), logx.Int("message_id", key.MessageID), logx.Err(err))
	}
}
