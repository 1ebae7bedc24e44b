package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vovakirdan/sharkord-go/internal/proto"
)

// tester is the subset of testing.TB that rapid.T also provides.
type tester interface {
	Helper()
	Fatalf(format string, args ...any)
}

var errFakeClosed = errors.New("fake conn closed")

type fakeConn struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once

	closeCalls atomic.Int32
	abortCalls atomic.Int32
	mu         sync.Mutex
	readErr    error
	code       int
	reason     string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 256),
		out:    make(chan []byte, 256),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.in:
		return data, nil
	case <-c.closed:
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.readErr != nil {
			return nil, c.readErr
		}
		return nil, errFakeClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) Write(ctx context.Context, data []byte) error {
	select {
	case <-c.closed:
		return errFakeClosed
	default:
	}
	cp := append([]byte(nil), data...)
	select {
	case c.out <- cp:
		return nil
	case <-c.closed:
		return errFakeClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *fakeConn) Close(code int, reason string) error {
	c.closeCalls.Add(1)
	c.once.Do(func() {
		c.mu.Lock()
		c.code, c.reason = code, reason
		c.mu.Unlock()
		close(c.closed)
	})
	return nil
}

func (c *fakeConn) CloseNow() error {
	c.abortCalls.Add(1)
	c.once.Do(func() { close(c.closed) })
	return nil
}

// dropRemote simulates the server going away with err.
func (c *fakeConn) dropRemote(err error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.readErr = err
		c.mu.Unlock()
		close(c.closed)
	})
}

func (c *fakeConn) push(frame []byte) {
	select {
	case c.in <- frame:
	case <-c.closed:
	}
}

type dialerFunc func(ctx context.Context, url string, header http.Header) (Conn, error)

func (f dialerFunc) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	return f(ctx, url, header)
}

// replyFunc answers a request; nil means no reply.
type replyFunc func(req proto.Request) []byte

type fakeServer struct {
	conn     *fakeConn
	mu       sync.Mutex
	handlers map[string]replyFunc
	requests chan proto.Request
	control  chan string
	quit     chan struct{}
}

func newFakeServer(conn *fakeConn) *fakeServer {
	s := &fakeServer{
		conn:     conn,
		handlers: make(map[string]replyFunc),
		requests: make(chan proto.Request, 1024),
		control:  make(chan string, 1024),
		quit:     make(chan struct{}),
	}
	s.handle(proto.PathHandshake, func(req proto.Request) []byte {
		return resultFrame(req.ID, proto.ResultData, map[string]any{"handshakeHash": "hash-1"})
	})
	s.handle(proto.PathJoinServer, func(req proto.Request) []byte {
		return resultFrame(req.ID, proto.ResultData, snapshotFixture())
	})
	go s.serve()
	return s
}

func (s *fakeServer) handle(path string, fn replyFunc) {
	s.mu.Lock()
	s.handlers[path] = fn
	s.mu.Unlock()
}

func (s *fakeServer) stop() {
	close(s.quit)
}

func (s *fakeServer) serve() {
	for {
		select {
		case data := <-s.conn.out:
			s.dispatch(data)
		case <-s.quit:
			return
		}
	}
}

func (s *fakeServer) dispatch(data []byte) {
	var req proto.Request
	if err := json.Unmarshal(data, &req); err != nil || req.Params.Path == "" {
		s.control <- string(data)
		return
	}
	s.requests <- req

	s.mu.Lock()
	fn := s.handlers[req.Params.Path]
	s.mu.Unlock()
	if fn == nil {
		if req.Method != proto.MethodSubscription {
			return
		}
		fn = func(req proto.Request) []byte { return resultFrame(req.ID, proto.ResultStarted, nil) }
	}
	if frame := fn(req); frame != nil {
		s.conn.push(frame)
	}
}

func (s *fakeServer) nextRequest(t tester) proto.Request {
	t.Helper()
	select {
	case req := <-s.requests:
		return req
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a request, got none")
		return proto.Request{}
	}
}

func (s *fakeServer) nextControl(t tester) string {
	t.Helper()
	select {
	case frame := <-s.control:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a control frame, got none")
		return ""
	}
}

func (s *fakeServer) expectNoControl(t tester, wait time.Duration) {
	t.Helper()
	select {
	case frame := <-s.control:
		t.Fatalf("unexpected control frame %q", frame)
	case <-time.After(wait):
	}
}

func resultFrame(id uint64, typ string, data any) []byte {
	result := map[string]any{"type": typ}
	if data != nil {
		result["data"] = data
	}
	frame, _ := json.Marshal(map[string]any{"id": id, "result": result})
	return frame
}

func errorFrame(id uint64, code int, message string, data map[string]any) []byte {
	body := map[string]any{"code": code, "message": message}
	if data != nil {
		body["data"] = data
	}
	frame, _ := json.Marshal(map[string]any{"id": id, "error": body})
	return frame
}

func snapshotFixture() map[string]any {
	return map[string]any{
		"roles":      []any{map[string]any{"id": 1, "name": "Owner"}},
		"categories": []any{},
		"channels":   []any{map[string]any{"id": 1, "name": "general"}},
		"users":      []any{map[string]any{"id": 7, "name": "bot"}},
		"ownUserId":  7,
		"publicSettings": map[string]any{
			"name": "Test Server",
		},
	}
}

type harness struct {
	t      tester
	gw     *Gateway
	conn   *fakeConn
	server *fakeServer
	header http.Header
	dials  atomic.Int32
}

func newHarness(t tester, opts ...Option) *harness {
	t.Helper()

	h := &harness{t: t, conn: newFakeConn()}
	h.server = newFakeServer(h.conn)
	dialer := dialerFunc(func(_ context.Context, _ string, header http.Header) (Conn, error) {
		h.dials.Add(1)
		h.header = header.Clone()
		return h.conn, nil
	})
	opts = append([]Option{WithDialer(dialer)}, opts...)
	h.gw = New(Config{
		URL:       "ws://sharkord.test/?connectionParams=1",
		UserAgent: "sharkord-test",
	}, nil, opts...)
	return h
}

// connect opens the connection and drains the handshake traffic.
func (h *harness) connect() *proto.Snapshot {
	h.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	snapshot, err := h.gw.Connect(ctx, "token-1")
	if err != nil {
		h.t.Fatalf("connect: %v", err)
	}
	h.server.nextControl(h.t)
	h.server.nextRequest(h.t)
	h.server.nextRequest(h.t)
	h.waitProcessed(2)
	return snapshot
}

func (h *harness) close() {
	h.gw.Disconnect()
	h.server.stop()
}

func (h *harness) waitProcessed(n uint64) {
	h.t.Helper()
	waitFor(h.t, func() bool {
		s := h.gw.current()
		return s != nil && s.processed.Load() >= n
	}, "frames processed")
}

func (h *harness) waitClosed() CloseEvent {
	h.t.Helper()
	select {
	case ev := <-h.gw.Closed():
		return ev
	case <-time.After(2 * time.Second):
		h.t.Fatalf("expected close event")
		return CloseEvent{}
	}
}

func waitFor(t tester, cond func() bool, what string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
