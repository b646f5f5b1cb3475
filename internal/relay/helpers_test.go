package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	kit "relaybot/internal/transport"
	logx "relaybot/pkg/logx"
)

type sentMsg struct {
	to   kit.ChatTarget
	text string
	opt  kit.SendOptions
}

// fakeSender records outbound calls. failures[chatID] is returned for every
// send to that chat; flaky[chatID] fails that many times before succeeding.
type fakeSender struct {
	mu       sync.Mutex
	sent     []sentMsg
	cleared  []kit.MessageRef
	answers  map[string]string
	attempts map[int64]int
	failures map[int64]error
	flaky    map[int64]int
	nextID   int
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		answers:  map[string]string{},
		attempts: map[int64]int{},
		failures: map[int64]error{},
		flaky:    map[int64]int{},
		nextID:   100,
	}
}

func (f *fakeSender) SendText(_ context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[to.ChatID]++
	if err := f.failures[to.ChatID]; err != nil {
		return kit.MessageRef{}, err
	}
	if f.flaky[to.ChatID] > 0 {
		f.flaky[to.ChatID]--
		return kit.MessageRef{}, errors.New("temporary failure")
	}
	s := sentMsg{to: to, text: text}
	if opt != nil {
		s.opt = *opt
	}
	f.sent = append(f.sent, s)
	f.nextID++
	return kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: f.nextID}, nil
}

func (f *fakeSender) ClearMarkup(_ context.Context, ref kit.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, ref)
	return nil
}

func (f *fakeSender) AnswerCallback(_ context.Context, id, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers[id] = text
	return nil
}

func (f *fakeSender) sentTo(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sent {
		if s.to.ChatID == chatID {
			out = append(out, s.text)
		}
	}
	return out
}

func (f *fakeSender) lastSent() sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMsg{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) clearedKeys() []kit.MessageRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kit.MessageRef(nil), f.cleared...)
}

func (f *fakeSender) attemptsTo(chatID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[chatID]
}

const (
	operatorID  int64 = 42
	strangerID  int64 = 7
	stagingChat int64 = -1001
	userChat    int64 = 555
	destA       int64 = -2001
	destB       int64 = -2002
)

func fastDispatch() DispatcherConfig {
	return DispatcherConfig{Workers: 2, RatePerSec: 1000, RetryMax: 2, RetryBase: time.Millisecond, SendTimeout: time.Second}
}

func newTestService(f *fakeSender, staging int64, dests ...int64) *Service {
	return New(Config{
		OperatorID:   operatorID,
		StagingChat:  staging,
		Destinations: dests,
		Dispatch:     fastDispatch(),
	}, f, logx.Nop(), nil)
}
