package router

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	kit "relaybot/internal/transport"
	logx "relaybot/pkg/logx"
)

type sent struct {
	to   kit.ChatTarget
	text string
	opt  kit.SendOptions
}

type fakeAdapter struct {
	mu       sync.Mutex
	sent     []sent
	answers  map[string]string
	answered []string
	menu     []kit.BotCommand
}

func newFakeAdapter() *fakeAdapter { return &fakeAdapter{answers: map[string]string{}} }

func (f *fakeAdapter) SendText(_ context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := sent{to: to, text: text}
	if opt != nil {
		s.opt = *opt
	}
	f.sent = append(f.sent, s)
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(f.sent)}, nil
}

func (f *fakeAdapter) ClearMarkup(context.Context, kit.MessageRef) error { return nil }

func (f *fakeAdapter) AnswerCallback(_ context.Context, id, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers[id] = text
	f.answered = append(f.answered, id)
	return nil
}

func (f *fakeAdapter) UpdateMenuCommands(_ context.Context, cmds []kit.BotCommand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.menu = cmds
	return nil
}

func (f *fakeAdapter) Start(context.Context, chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                     { return nil }

func (f *fakeAdapter) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		out = append(out, s.text)
	}
	return out
}

// runDispatch starts the dispatcher and returns the update channel plus a stop func
// that waits for queued jobs to drain.
func runDispatch(t *testing.T, m *CommandManager) (chan<- kit.Update, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan kit.Update, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.DispatchLoop(ctx, updates)
	}()
	return updates, func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("dispatcher did not stop")
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestRoutesCommandsAliasesAndText(t *testing.T) {
	t.Parallel()
	ad := newFakeAdapter()
	m := NewCommandManager(logx.Nop(), ad, Options{Workers: 2})

	var mu sync.Mutex
	got := map[string][]string{}
	record := func(key string) HandlerFunc {
		return func(_ context.Context, req *Request) error {
			mu.Lock()
			defer mu.Unlock()
			got[key] = append(got[key], strings.Join(req.Args, ","))
			return nil
		}
	}
	m.SetRegistry([]Command{
		{Name: "set", Aliases: []string{"set_staging", "set-staging"}, Handle: record("set")},
	}, nil, record("text"))

	updates, stop := runDispatch(t, m)
	updates <- kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ID: 1, ChatID: 10, FromID: 1, Text: "/set -100"}}
	updates <- kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ID: 2, ChatID: 10, FromID: 1, Text: "/set-staging@relay_bot 5"}}
	updates <- kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ID: 3, ChatID: 10, FromID: 1, Text: "hello world"}}
	updates <- kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ID: 4, ChatID: 10, FromID: 1, Text: "/nope"}}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got["set"]) == 2 && len(got["text"]) == 1 && len(ad.texts()) == 1
	})
	stop()

	if got["set"][0] != "-100" && got["set"][1] != "-100" {
		t.Fatalf("negative chat id lost: %v", got["set"])
	}
	if txt := ad.texts()[0]; !strings.Contains(txt, "Unknown command") {
		t.Fatalf("unknown command reply = %q", txt)
	}
}

func TestCallbackRouteReceivesPayloadAndIsAnswered(t *testing.T) {
	t.Parallel()
	ad := newFakeAdapter()
	m := NewCommandManager(logx.Nop(), ad, Options{Workers: 1})

	payloads := make(chan string, 1)
	m.SetRegistry(nil, []CallbackRoute{{
		Action: "approve",
		Handle: func(_ context.Context, req *Request, payload string) error {
			if req.MessageID != 77 {
				t.Errorf("MessageID = %d, want 77", req.MessageID)
			}
			payloads <- payload
			return nil
		},
	}}, nil)

	updates, stop := runDispatch(t, m)
	updates <- kit.Update{Kind: kit.UpdateCallback, Callback: &kit.Callback{ID: "cb1", FromID: 1, ChatID: 10, MessageID: 77, Data: "approve:a:b"}}

	select {
	case p := <-payloads:
		if p != "a:b" {
			t.Fatalf("payload = %q, want a:b", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback not routed")
	}
	waitFor(t, func() bool {
		ad.mu.Lock()
		defer ad.mu.Unlock()
		return len(ad.answered) == 1
	})
	stop()
}

func TestRequestAnswerOnlyOnce(t *testing.T) {
	t.Parallel()
	ad := newFakeAdapter()
	req := &Request{Sender: ad, callbackID: "cb"}
	_ = req.Answer(context.Background(), "first")
	_ = req.Answer(context.Background(), "second")

	if len(ad.answered) != 1 || ad.answers["cb"] != "first" {
		t.Fatalf("answers = %v %v", ad.answered, ad.answers)
	}
}

func TestHandlerPanicDoesNotStopDispatcher(t *testing.T) {
	t.Parallel()
	ad := newFakeAdapter()
	m := NewCommandManager(logx.Nop(), ad, Options{Workers: 1})

	ok := make(chan struct{}, 1)
	m.SetRegistry([]Command{
		{Name: "boom", Handle: func(context.Context, *Request) error { panic("boom") }},
		{Name: "ok", Handle: func(context.Context, *Request) error { ok <- struct{}{}; return nil }},
	}, nil, nil)

	updates, stop := runDispatch(t, m)
	defer stop()
	updates <- kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ID: 1, ChatID: 1, Text: "/boom"}}
	updates <- kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ID: 2, ChatID: 1, Text: "/ok"}}

	select {
	case <-ok:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher stalled after panic")
	}
}

func TestHelpAndMenuListCommands(t *testing.T) {
	t.Parallel()
	ad := newFakeAdapter()
	m := NewCommandManager(logx.Nop(), ad, Options{})
	m.SetRegistry([]Command{
		{Name: "add", Aliases: []string{"add-destination"}, Description: "add a destination", Usage: "/add <chat_id>", Handle: func(context.Context, *Request) error { return nil }},
	}, nil, nil)

	help := m.helpText()
	if !strings.Contains(help, "/add &lt;chat_id&gt;") || !strings.Contains(help, "/help") {
		t.Fatalf("help missing commands:\n%s", help)
	}

	m.PublishMenu(context.Background())
	if len(ad.menu) != 2 || ad.menu[0].Command != "add" || ad.menu[1].Command != "help" {
		t.Fatalf("menu = %+v", ad.menu)
	}
}

func TestSanitizeTelegramCommand(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"set-staging": "set_staging",
		"Add Dest":    "add_dest",
		"9lives":      "cmd_9lives",
		"!!!":         "",
	}
	for in, want := range tests {
		if got := sanitizeTelegramCommand(in); got != want {
			t.Fatalf("sanitizeTelegramCommand(%q) = %q, want %q", in, got, want)
		}
	}
}
