package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vovakirdan/sharkord-go/internal/config"
	"github.com/vovakirdan/sharkord-go/internal/core"
	"github.com/vovakirdan/sharkord-go/internal/proto"
)

// fakeSharkord serves /login and the gateway endpoint over a real WebSocket.
type fakeSharkord struct {
	srv    *httptest.Server
	logins atomic.Int32
	// rejectLogins fails that many logins before accepting.
	rejectLogins atomic.Int32

	mu       sync.Mutex
	snapshot map[string]any
	conn     *serverConn

	conns     chan *serverConn
	mutations chan proto.Request
}

// serverConn is the server side of one gateway connection.
type serverConn struct {
	ws    *websocket.Conn
	token string

	mu   sync.Mutex
	subs map[string]uint64

	subscribed chan string
	done       chan struct{}
}

func defaultSnapshot() map[string]any {
	return map[string]any{
		"channels":       []any{map[string]any{"id": 1, "name": "general"}},
		"users":          []any{map[string]any{"id": 1, "name": "bot"}},
		"ownUserId":      1,
		"publicSettings": map[string]any{"serverId": "s1"},
	}
}

func newFakeSharkord(t *testing.T) *fakeSharkord {
	t.Helper()

	f := &fakeSharkord{
		snapshot:  defaultSnapshot(),
		conns:     make(chan *serverConn, 8),
		mutations: make(chan proto.Request, 64),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", f.handleLogin)
	mux.HandleFunc("GET /", f.handleGateway)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSharkord) host() string {
	return strings.TrimPrefix(f.srv.URL, "http://")
}

func (f *fakeSharkord) handleLogin(w http.ResponseWriter, r *http.Request) {
	n := f.logins.Add(1)
	if n <= f.rejectLogins.Load() {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"token": "token-" + strconv.Itoa(int(n))})
}

func (f *fakeSharkord) handleGateway(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer ws.CloseNow()

	c := &serverConn{
		ws:         ws,
		subs:       make(map[string]uint64),
		subscribed: make(chan string, 64),
		done:       make(chan struct{}),
	}
	defer close(c.done)

	f.mu.Lock()
	f.conn = c
	snapshot := f.snapshot
	f.mu.Unlock()
	f.conns <- c

	ctx := r.Context()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			return
		}

		var req proto.Request
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}
		if req.Method == proto.MethodConnectionParams {
			var params proto.ConnectionParams
			_ = json.Unmarshal(data, &params)
			c.mu.Lock()
			c.token = params.Data.Token
			c.mu.Unlock()
			continue
		}

		switch {
		case req.Params.Path == proto.PathHandshake:
			c.reply(ctx, req.ID, proto.ResultData, map[string]any{"handshakeHash": "abc"})
		case req.Params.Path == proto.PathJoinServer:
			c.reply(ctx, req.ID, proto.ResultData, snapshot)
		case req.Method == proto.MethodSubscription:
			c.mu.Lock()
			c.subs[req.Params.Path] = req.ID
			c.mu.Unlock()
			c.reply(ctx, req.ID, proto.ResultStarted, nil)
			c.subscribed <- req.Params.Path
		case req.Method == proto.MethodMutation:
			f.mutations <- req
			c.reply(ctx, req.ID, proto.ResultData, map[string]any{})
		default:
			c.reply(ctx, req.ID, proto.ResultData, nil)
		}
	}
}

func (c *serverConn) reply(ctx context.Context, id uint64, typ string, data any) {
	result := map[string]any{"type": typ}
	if data != nil {
		result["data"] = data
	}
	_ = wsjson.Write(ctx, c.ws, map[string]any{"id": id, "result": result})
}

func (c *serverConn) sessionToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// push delivers data on the subscription registered for path.
func (c *serverConn) push(t *testing.T, path string, data any) {
	t.Helper()

	c.mu.Lock()
	id, ok := c.subs[path]
	c.mu.Unlock()
	if !ok {
		t.Fatalf("no subscription for %s", path)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.reply(ctx, id, proto.ResultData, data)
}

// drop closes the connection from the server side.
func (c *serverConn) drop() {
	_ = c.ws.Close(websocket.StatusGoingAway, "server restart")
}

func (f *fakeSharkord) nextConn(t *testing.T) *serverConn {
	t.Helper()
	select {
	case c := <-f.conns:
		return c
	case <-time.After(5 * time.Second):
		t.Fatalf("expected a gateway connection")
		return nil
	}
}

func (f *fakeSharkord) nextMutation(t *testing.T) proto.Request {
	t.Helper()
	select {
	case req := <-f.mutations:
		return req
	case <-time.After(5 * time.Second):
		t.Fatalf("expected a mutation")
		return proto.Request{}
	}
}

func testConfig(host string) config.Config {
	cfg := config.Default()
	cfg.Host = host
	cfg.Identity = "bot@example.com"
	cfg.Password = "secret"
	cfg.Insecure = true
	cfg.IdleTimeout = time.Hour
	cfg.RequestTimeout = 5 * time.Second
	cfg.SendRate = 0
	return cfg
}

type testApp struct {
	*App
	clock  *clock.Mock
	events chan core.Event
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func startApp(t *testing.T, f *fakeSharkord, opts ...Option) *testApp {
	t.Helper()

	mock := clock.NewMock()
	opts = append([]Option{WithClock(mock), WithRegistry(prometheus.NewRegistry())}, opts...)
	a, err := New(testConfig(f.host()), nil, opts...)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	events := make(chan core.Event, 256)
	a.Hub().OnAny(func(ev core.Event) { events <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	ta := &testApp{App: a, clock: mock, events: events, cancel: cancel, done: make(chan struct{})}
	go func() {
		ta.err = a.Run(ctx)
		close(ta.done)
	}()
	t.Cleanup(ta.stop)
	return ta
}

func (ta *testApp) stop() {
	ta.cancel()
	select {
	case <-ta.done:
	case <-time.After(5 * time.Second):
	}
}

// awaitSubscriptions waits until every fixed subscription is registered on c.
func (ta *testApp) awaitSubscriptions(t *testing.T, c *serverConn) {
	t.Helper()

	want := len(ta.subscriptions())
	for i := 0; i < want; i++ {
		select {
		case <-c.subscribed:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d of %d subscriptions registered", i, want)
		}
	}
}

func (ta *testApp) nextEvent(t *testing.T) core.Event {
	t.Helper()
	select {
	case ev := <-ta.events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatalf("expected an event")
		return nil
	}
}

func (ta *testApp) expectNoEvent(t *testing.T) {
	t.Helper()
	select {
	case ev := <-ta.events:
		t.Fatalf("unexpected event %s", ev.Name())
	case <-time.After(100 * time.Millisecond):
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
