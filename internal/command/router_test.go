package command

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
)

type fakeMessage struct {
	id      int64
	content string
	userID  int64

	mu      sync.Mutex
	replies []string
}

func (m *fakeMessage) ID() int64        { return m.id }
func (m *fakeMessage) Content() string  { return m.content }
func (m *fakeMessage) UserID() int64    { return m.userID }
func (m *fakeMessage) ChannelID() int64 { return 1 }

func (m *fakeMessage) Reply(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, text)
	return nil
}

type funcCommand struct {
	name    string
	pattern *regexp.Regexp
	handle  func(args string, matches []string) error
}

func (c funcCommand) Name() string            { return c.name }
func (c funcCommand) Description() string     { return c.name }
func (c funcCommand) Pattern() *regexp.Regexp { return c.pattern }

func (c funcCommand) Handle(_ context.Context, _ Message, args string, matches []string) error {
	return c.handle(args, matches)
}

func selfIs(id int64) SelfFunc {
	return func() (int64, bool) { return id, true }
}

func TestParse(t *testing.T) {
	r := NewRouter("!", nil, nil)

	tests := []struct {
		content string
		name    string
		args    string
		ok      bool
	}{
		{"!ping", "ping", "", true},
		{"!PING", "ping", "", true},
		{"!roll  2d6 ", "roll", "2d6", true},
		{"!kick bob for spam", "kick", "bob for spam", true},
		{"!p", "", "", false},
		{"ping", "", "", false},
		{"!p1ng", "", "", false},
		{"hello !ping", "", "", false},
	}
	for _, tt := range tests {
		name, args, ok := r.Parse(tt.content)
		if ok != tt.ok || name != tt.name || args != tt.args {
			t.Fatalf("Parse(%q) = %q, %q, %v; want %q, %q, %v", tt.content, name, args, ok, tt.name, tt.args, tt.ok)
		}
	}
}

func TestParseCustomPrefix(t *testing.T) {
	r := NewRouter(".", nil, nil)
	if _, _, ok := r.Parse("!ping"); ok {
		t.Fatalf("default prefix must not match a custom router")
	}
	if name, _, ok := r.Parse(".ping"); !ok || name != "ping" {
		t.Fatalf("expected .ping to parse, got %q %v", name, ok)
	}
}

func TestFirstMatchWins(t *testing.T) {
	r := NewRouter("!", selfIs(7), nil)
	var ran []string
	r.Register(funcCommand{name: "help", pattern: regexp.MustCompile(`^(help|h[a-z]+)$`), handle: func(string, []string) error {
		ran = append(ran, "help")
		return nil
	}})
	r.Register(funcCommand{name: "hello", pattern: regexp.MustCompile(`^hello$`), handle: func(string, []string) error {
		ran = append(ran, "hello")
		return nil
	}})

	if !r.Handle(context.Background(), &fakeMessage{content: "!hello", userID: 9}) {
		t.Fatalf("expected a command to run")
	}
	if len(ran) != 1 || ran[0] != "help" {
		t.Fatalf("expected only the first matching command, got %v", ran)
	}
}

func TestHandlePassesArgsAndMatches(t *testing.T) {
	r := NewRouter("!", selfIs(7), nil)
	var gotArgs string
	var gotMatches []string
	r.Register(funcCommand{name: "roll", pattern: regexp.MustCompile(`^(roll|r)$`), handle: func(args string, matches []string) error {
		gotArgs, gotMatches = args, matches
		return nil
	}})

	r.Handle(context.Background(), &fakeMessage{content: "!Roll 2d6", userID: 9})
	if gotArgs != "2d6" {
		t.Fatalf("unexpected args %q", gotArgs)
	}
	if len(gotMatches) != 2 || gotMatches[1] != "roll" {
		t.Fatalf("unexpected matches %v", gotMatches)
	}
}

func TestOwnMessagesIgnored(t *testing.T) {
	r := NewRouter("!", selfIs(7), nil)
	r.Register(Ping{})

	msg := &fakeMessage{content: "!ping", userID: 7}
	if r.Handle(context.Background(), msg) {
		t.Fatalf("own message must not trigger commands")
	}
	if len(msg.replies) != 0 {
		t.Fatalf("unexpected replies %v", msg.replies)
	}
}

func TestUnknownCommand(t *testing.T) {
	r := NewRouter("!", selfIs(7), nil)
	r.Register(Ping{})

	if r.Handle(context.Background(), &fakeMessage{content: "!pong", userID: 9}) {
		t.Fatalf("unknown command must not run")
	}
}

func TestHandlerFailuresAreContained(t *testing.T) {
	r := NewRouter("!", selfIs(7), nil)
	r.Register(funcCommand{name: "fail", pattern: regexp.MustCompile(`^fail$`), handle: func(string, []string) error {
		return errors.New("boom")
	}})
	r.Register(funcCommand{name: "panic", pattern: regexp.MustCompile(`^panic$`), handle: func(string, []string) error {
		panic("handler bug")
	}})

	if !r.Handle(context.Background(), &fakeMessage{content: "!fail", userID: 9}) {
		t.Fatalf("failing command still counts as handled")
	}
	if !r.Handle(context.Background(), &fakeMessage{content: "!panic", userID: 9}) {
		t.Fatalf("panicking command still counts as handled")
	}
}

func TestRegisterReplacesByName(t *testing.T) {
	r := NewRouter("!", nil, nil)
	r.Register(Ping{})
	r.Register(Ping{})
	if n := len(r.Commands()); n != 1 {
		t.Fatalf("expected 1 command, got %d", n)
	}
}

func TestPingReplies(t *testing.T) {
	r := NewRouter("!", selfIs(7), nil)
	r.Register(Ping{})

	msg := &fakeMessage{content: "!ping", userID: 9}
	r.Handle(context.Background(), msg)
	if len(msg.replies) != 1 {
		t.Fatalf("expected one reply, got %v", msg.replies)
	}
	found := false
	for _, resp := range pingResponses {
		if resp == msg.replies[0] {
			found = true
		}
	}
	if !found {
		t.Fatalf("unexpected reply %q", msg.replies[0])
	}
}
