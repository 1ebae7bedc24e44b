package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/sharkord-go/internal/proto"
)

// recorder is a synchronous Emitter.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Emit(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Name()
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

type rpcCall struct {
	method string
	path   string
	input  any
}

// fakeCaller records calls and answers with result.
type fakeCaller struct {
	mu     sync.Mutex
	calls  []rpcCall
	result *proto.Result
	err    error
}

func (f *fakeCaller) Call(_ context.Context, method, path string, input any) (*proto.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rpcCall{method: method, path: path, input: input})
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &proto.Result{Type: proto.ResultData}, nil
}

func (f *fakeCaller) last(t *testing.T) rpcCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatalf("expected an rpc call")
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeCaller) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestCache(t *testing.T) (*Cache, *recorder, *fakeCaller) {
	t.Helper()

	rec := &recorder{}
	caller := &fakeCaller{}
	cache, err := NewCache(caller, rec, nil, 16)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	return cache, rec, caller
}

// seedCache hydrates a server with an owner, a moderator bot and a plain member.
func seedCache(t *testing.T, cache *Cache, botPerms ...string) {
	t.Helper()

	perms := make([]any, len(botPerms))
	for i, p := range botPerms {
		perms[i] = p
	}
	cache.Hydrate(&proto.Snapshot{
		Roles: []map[string]any{
			{"id": float64(1), "name": "Owner", "permissions": []any{"MANAGE_USERS", "MANAGE_MESSAGES"}},
			{"id": float64(2), "name": "Bot", "permissions": perms},
			{"id": float64(3), "name": "Member", "permissions": []any{"SEND_MESSAGES"}},
		},
		Channels: []map[string]any{
			{"id": float64(1), "name": "general", "categoryId": float64(5)},
		},
		Categories: []map[string]any{
			{"id": float64(5), "name": "Text"},
		},
		Users: []map[string]any{
			{"id": float64(1), "name": "owner", "roleIds": []any{float64(1)}},
			{"id": float64(7), "name": "bot", "roleIds": []any{float64(2)}},
			{"id": float64(9), "name": "member", "roleIds": []any{float64(3)}},
		},
		OwnUserID:      7,
		PublicSettings: map[string]any{"serverId": "s1", "name": "Test"},
	})
}

func mustEvent[E Event](t *testing.T, ch <-chan Event) E {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if e, ok := ev.(E); ok {
				return e
			}
		case <-deadline:
			var zero E
			t.Fatalf("expected event %s not received", zero.Name())
			return zero
		}
	}
}
