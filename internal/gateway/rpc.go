package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vovakirdan/sharkord-go/internal/proto"
)

type opKind int

const (
	opCall opKind = iota
	opSubscribe
	opForget
	opRaw
)

// op is a request handed to the loop goroutine.
type op struct {
	kind  opKind
	call  *pendingCall
	input any
	raw   []byte
	sent  chan error
}

type callReply struct {
	result *proto.Result
	err    error
}

// pendingCall is an entry of the correlation table. Persistent entries belong to
// subscriptions and live as long as the connection.
type pendingCall struct {
	id         uint64
	method     string
	path       string
	persistent bool
	reply      chan callReply
	handler    Handler
}

// Call sends a query or mutation and waits for its response.
func (g *Gateway) Call(ctx context.Context, method, path string, input any) (*proto.Result, error) {
	if method != proto.MethodQuery && method != proto.MethodMutation {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}
	s := g.current()
	if s == nil {
		return nil, ErrNotConnected
	}
	if method == proto.MethodMutation {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return s.call(ctx, method, path, input)
}

func (s *session) call(ctx context.Context, method, path string, input any) (*proto.Result, error) {
	call := &pendingCall{
		method: method,
		path:   path,
		reply:  make(chan callReply, 1),
	}
	if err := s.submit(ctx, op{kind: opCall, call: call, input: input}); err != nil {
		return nil, err
	}

	select {
	case r := <-call.reply:
		return r.result, r.err
	case <-s.done:
		select {
		case r := <-call.reply:
			return r.result, r.err
		default:
			return nil, ErrConnectionClosed
		}
	case <-ctx.Done():
		s.forget(call)
		return nil, ctx.Err()
	}
}

func (s *session) sendRaw(ctx context.Context, data []byte) error {
	sent := make(chan error, 1)
	if err := s.submit(ctx, op{kind: opRaw, raw: data, sent: sent}); err != nil {
		return err
	}
	return s.awaitSent(ctx, sent)
}

func (s *session) submit(ctx context.Context, o op) error {
	select {
	case s.ops <- o:
		return nil
	case <-s.done:
		return ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *session) awaitSent(ctx context.Context, sent <-chan error) error {
	select {
	case err := <-sent:
		return err
	case <-s.done:
		select {
		case err := <-sent:
			return err
		default:
			return ErrConnectionClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// forget drops an abandoned call so a late response is ignored.
func (s *session) forget(call *pendingCall) {
	select {
	case s.ops <- op{kind: opForget, call: call}:
	case <-s.done:
	}
}

func (s *session) handleOp(o op) {
	switch o.kind {
	case opCall, opSubscribe:
		s.register(o)
	case opForget:
		if cur, ok := s.pending[o.call.id]; ok && cur == o.call {
			delete(s.pending, o.call.id)
			s.metrics.setPending(len(s.pending))
		}
	case opRaw:
		o.sent <- s.write(o.raw)
	}
}

// register assigns the next id, records the entry and writes the request frame.
func (s *session) register(o op) {
	call := o.call
	s.nextID++
	call.id = s.nextID

	fail := func(err error) {
		if call.persistent {
			o.sent <- err
		} else {
			call.reply <- callReply{err: err}
		}
	}

	req, err := proto.NewRequest(call.id, call.method, call.path, o.input)
	if err != nil {
		fail(fmt.Errorf("encode %s input: %w", call.path, err))
		return
	}
	data, err := json.Marshal(req)
	if err != nil {
		fail(fmt.Errorf("encode %s request: %w", call.path, err))
		return
	}

	s.pending[call.id] = call
	if err := s.write(data); err != nil {
		delete(s.pending, call.id)
		fail(fmt.Errorf("send %s: %w", call.path, err))
		return
	}
	s.metrics.call(call.method)
	s.metrics.setPending(len(s.pending))

	s.log.Trace().Uint64("id", call.id).Str("method", call.method).Str("path", call.path).Msg("request sent")
	if call.persistent {
		o.sent <- nil
	}
}

func (s *session) handleFrame(data []byte) {
	defer s.processed.Add(1)
	s.metrics.frameIn()

	var resp proto.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		s.handleHeartbeat(data)
		return
	}
	s.resetWatchdog()

	if resp.ID == nil {
		s.log.Debug().Msg("dropping frame without id")
		return
	}
	call, ok := s.pending[*resp.ID]
	if !ok {
		s.log.Debug().Uint64("id", *resp.ID).Msg("dropping response for unknown id")
		return
	}
	if call.persistent {
		s.deliver(call, &resp)
		return
	}

	delete(s.pending, call.id)
	s.metrics.setPending(len(s.pending))

	if resp.Error != nil {
		s.metrics.callError(call.method)
		call.reply <- callReply{err: newRPCError(resp.Error)}
		return
	}
	result := resp.Result
	if result == nil {
		result = &proto.Result{}
	}
	call.reply <- callReply{result: result}
}

func (s *session) handleHeartbeat(data []byte) {
	switch strings.TrimSpace(string(data)) {
	case proto.HeartbeatPing:
		s.resetWatchdog()
		if err := s.write([]byte(proto.HeartbeatPong)); err != nil {
			s.log.Warn().Err(err).Msg("failed to answer heartbeat")
		}
	case proto.HeartbeatPong:
		s.resetWatchdog()
	default:
		s.metrics.malformed()
		s.log.Debug().Int("size", len(data)).Msg("dropping malformed frame")
	}
}
