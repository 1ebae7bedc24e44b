// Package gateway owns the real-time WebSocket connection: the handshake, JSON-RPC
// request/response correlation, subscription demultiplexing and the liveness watchdog.
//
// Each connection is served by one loop goroutine that owns the correlation table and
// both watchdog timers. Inbound frames, outbound requests and timer expiries are handled
// one at a time in arrival order, so subscription handlers observe frames in wire order.
// Handlers run on that goroutine and must not block on Call.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/coder/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/vovakirdan/sharkord-go/internal/proto"
	"github.com/vovakirdan/sharkord-go/internal/utils"
)

const (
	defaultIdleTimeout  = 31 * time.Second
	defaultProbeTimeout = 3 * time.Second
	defaultWriteTimeout = 10 * time.Second
)

// Config tunes a Gateway.
type Config struct {
	URL          string
	UserAgent    string
	IdleTimeout  time.Duration
	ProbeTimeout time.Duration
	WriteTimeout time.Duration
	// SendRate caps mutations per second; zero means unlimited.
	SendRate  float64
	SendBurst int
}

// CloseEvent describes why a connection ended.
type CloseEvent struct {
	Code   int
	Reason string
}

// Handler receives the data of a subscription push.
type Handler func(data json.RawMessage) error

// Option customises a Gateway.
type Option func(*Gateway)

// WithDialer replaces the WebSocket dialer.
func WithDialer(d Dialer) Option {
	return func(g *Gateway) { g.dialer = d }
}

// WithClock replaces the clock driving the watchdog.
func WithClock(c clock.Clock) Option {
	return func(g *Gateway) { g.clock = c }
}

// WithMetrics records gateway activity into m.
func WithMetrics(m *Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// Gateway is a client for the server's real-time API.
type Gateway struct {
	cfg     Config
	dialer  Dialer
	clock   clock.Clock
	log     *zerolog.Logger
	metrics *Metrics
	limiter *rate.Limiter

	mu     sync.Mutex
	sess   *session
	closed <-chan CloseEvent
}

// New creates a disconnected Gateway.
func New(cfg Config, logger *zerolog.Logger, opts ...Option) *Gateway {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	limit := rate.Inf
	if cfg.SendRate > 0 {
		limit = rate.Limit(cfg.SendRate)
	}
	burst := cfg.SendBurst
	if burst <= 0 {
		burst = 1
	}

	g := &Gateway{
		cfg:     cfg,
		dialer:  WebsocketDialer{},
		clock:   clock.New(),
		log:     logger,
		limiter: rate.NewLimiter(limit, burst),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Connect dials the server, performs the handshake and joins, returning the initial
// snapshot. A failed attempt leaves the Gateway disconnected; it never retries.
func (g *Gateway) Connect(ctx context.Context, token string) (*proto.Snapshot, error) {
	if g.Connected() {
		return nil, ErrAlreadyConnected
	}

	header := http.Header{}
	// Host is derived from the URL by the HTTP client.
	header.Set("User-Agent", g.cfg.UserAgent)

	conn, err := g.dialer.Dial(ctx, g.cfg.URL, header)
	if err != nil {
		g.log.Error().Err(err).Str("url", g.cfg.URL).Msg("websocket connection failed")
		return nil, fmt.Errorf("dial gateway: %w", err)
	}

	s := g.newSession(conn)

	g.mu.Lock()
	if g.sess != nil {
		g.mu.Unlock()
		_ = conn.CloseNow()
		return nil, ErrAlreadyConnected
	}
	g.sess = s
	g.closed = s.closed
	g.mu.Unlock()

	s.log.Debug().Msg("websocket connected")
	go s.readLoop()
	go s.run()

	snapshot, err := s.handshake(ctx, token)
	if err != nil {
		s.log.Error().Err(err).Msg("handshake failed")
		g.release(s)
		s.abort(int(websocket.StatusNormalClosure), "handshake failed")
		return nil, err
	}
	return snapshot, nil
}

// Disconnect closes the current connection. The handle is dropped immediately so that
// subsequent calls fail with ErrNotConnected; the loop then cancels the watchdog, rejects
// pending calls and emits the close event. Safe to call from a subscription handler.
func (g *Gateway) Disconnect() {
	g.mu.Lock()
	s := g.sess
	g.sess = nil
	g.mu.Unlock()

	if s == nil {
		return
	}
	s.log.Debug().Msg("disconnecting from websocket")
	s.stop(int(websocket.StatusNormalClosure), "client disconnect")
}

// Closed returns the close channel of the most recent connection. It yields one
// CloseEvent and is then closed.
func (g *Gateway) Closed() <-chan CloseEvent {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// Connected reports whether a connection is open.
func (g *Gateway) Connected() bool {
	return g.current() != nil
}

// SessionID returns the identifier of the open connection, or "".
func (g *Gateway) SessionID() string {
	if s := g.current(); s != nil {
		return s.id
	}
	return ""
}

func (g *Gateway) current() *session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sess
}

func (g *Gateway) release(s *session) {
	g.mu.Lock()
	if g.sess == s {
		g.sess = nil
	}
	g.mu.Unlock()
}

// session is the state of one connection. Everything below the channels is owned by
// the run goroutine.
type session struct {
	id      string
	g       *Gateway
	conn    Conn
	cfg     Config
	clock   clock.Clock
	log     *zerolog.Logger
	metrics *Metrics

	ctx        context.Context
	cancel     context.CancelFunc
	stopOnce   sync.Once
	stopCode   int
	stopReason string
	stopAbort  bool

	ops     chan op
	frames  chan []byte
	readErr chan error
	closed  chan CloseEvent
	done    chan struct{}

	pending map[uint64]*pendingCall
	nextID  uint64
	idle    *clock.Timer
	probe   *clock.Timer

	// processed counts handled inbound frames.
	processed atomic.Uint64
}

func (g *Gateway) newSession(conn Conn) *session {
	id := utils.NewID()
	logger := g.log.With().Str("session", utils.ShortID(id)).Logger()
	ctx, cancel := context.WithCancel(context.Background())

	return &session{
		id:      id,
		g:       g,
		conn:    conn,
		cfg:     g.cfg,
		clock:   g.clock,
		log:     &logger,
		metrics: g.metrics,
		ctx:     ctx,
		cancel:  cancel,
		ops:     make(chan op, 64),
		frames:  make(chan []byte, 64),
		readErr: make(chan error, 1),
		closed:  make(chan CloseEvent, 1),
		done:    make(chan struct{}),
		pending: make(map[uint64]*pendingCall),
	}
}

// stop asks the loop to close the connection gracefully; the first reason wins.
func (s *session) stop(code int, reason string) {
	s.requestStop(code, reason, false)
}

// abort asks the loop to drop the connection without a closing handshake.
func (s *session) abort(code int, reason string) {
	s.requestStop(code, reason, true)
}

func (s *session) requestStop(code int, reason string, abort bool) {
	s.stopOnce.Do(func() {
		s.stopCode = code
		s.stopReason = reason
		s.stopAbort = abort
		s.cancel()
	})
}

func (s *session) run() {
	defer close(s.done)

	s.resetWatchdog()
	for {
		select {
		case <-s.ctx.Done():
			s.teardown(s.stopCode, s.stopReason, s.stopAbort)
			return
		case err := <-s.readErr:
			code, reason := closeDetails(err)
			s.log.Warn().Int("code", code).Str("reason", reason).Msg("connection closed")
			s.teardown(code, reason, true)
			return
		case data := <-s.frames:
			s.handleFrame(data)
		case o := <-s.ops:
			s.handleOp(o)
		case <-timerC(s.idle):
			s.onIdle()
		case <-timerC(s.probe):
			s.log.Error().Dur("probe_timeout", s.cfg.ProbeTimeout).Msg("watchdog: server did not answer probe, disconnecting")
			s.metrics.timeout()
			s.teardown(int(websocket.StatusNormalClosure), "watchdog timeout", true)
			return
		}
	}
}

func (s *session) readLoop() {
	for {
		data, err := s.conn.Read(context.Background())
		if err != nil {
			select {
			case s.readErr <- err:
			case <-s.done:
			}
			return
		}
		select {
		case s.frames <- data:
		case <-s.ctx.Done():
			return
		}
	}
}

// teardown releases the session. With abort set the socket is dropped without waiting
// for the peer's close frame.
func (s *session) teardown(code int, reason string, abort bool) {
	s.cancel()
	s.stopTimers()
	s.g.release(s)

	for id, call := range s.pending {
		if !call.persistent {
			call.reply <- callReply{err: ErrConnectionClosed}
		}
		delete(s.pending, id)
	}
	s.metrics.setPending(0)

	var err error
	if abort {
		err = s.conn.CloseNow()
	} else {
		err = s.conn.Close(code, reason)
	}
	if err != nil {
		s.log.Debug().Err(err).Msg("close websocket")
	}

	s.closed <- CloseEvent{Code: code, Reason: reason}
	close(s.closed)
}

func (s *session) write(data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()

	if err := s.conn.Write(ctx, data); err != nil {
		return err
	}
	s.metrics.frameOut()
	return nil
}

func (s *session) handshake(ctx context.Context, token string) (*proto.Snapshot, error) {
	params, err := json.Marshal(proto.ConnectionParams{
		JSONRPC: proto.JSONRPCVersion,
		Method:  proto.MethodConnectionParams,
		Data:    proto.ConnectionParamsData{Token: token},
	})
	if err != nil {
		return nil, fmt.Errorf("encode connection params: %w", err)
	}
	if err := s.sendRaw(ctx, params); err != nil {
		return nil, fmt.Errorf("send connection params: %w", err)
	}

	s.log.Debug().Msg("sending handshake request")
	res, err := s.call(ctx, proto.MethodQuery, proto.PathHandshake, nil)
	if err != nil {
		return nil, fmt.Errorf("handshake: %w", err)
	}
	var hs proto.HandshakeData
	if len(res.Data) > 0 {
		if err := json.Unmarshal(res.Data, &hs); err != nil {
			return nil, &ProtocolError{Step: "handshake", Err: err}
		}
	}
	if hs.HandshakeHash == "" {
		return nil, &ProtocolError{Step: "handshake", Err: ErrMissingHandshakeHash}
	}

	s.log.Debug().Msg("handshake ok, joining server")
	res, err = s.call(ctx, proto.MethodQuery, proto.PathJoinServer, proto.JoinInput{HandshakeHash: hs.HandshakeHash})
	if err != nil {
		return nil, fmt.Errorf("join server: %w", err)
	}
	if len(res.Data) == 0 {
		return nil, &ProtocolError{Step: "join", Err: errors.New("empty snapshot")}
	}
	var snapshot proto.Snapshot
	if err := json.Unmarshal(res.Data, &snapshot); err != nil {
		return nil, &ProtocolError{Step: "join", Err: err}
	}
	return &snapshot, nil
}
