package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vovakirdan/sharkord-go/internal/proto"
)

// Subscribe registers handler for pushes on path. The subscription lives until the
// connection closes; a handler error or panic is logged and does not affect later
// deliveries.
func (g *Gateway) Subscribe(ctx context.Context, path string, handler Handler) error {
	s := g.current()
	if s == nil {
		return ErrNotConnected
	}

	sent := make(chan error, 1)
	call := &pendingCall{
		method:     proto.MethodSubscription,
		path:       path,
		persistent: true,
		handler:    handler,
	}
	if err := s.submit(ctx, op{kind: opSubscribe, call: call, input: []any{}, sent: sent}); err != nil {
		return err
	}
	if err := s.awaitSent(ctx, sent); err != nil {
		return err
	}
	s.log.Debug().Str("path", path).Msg("subscribed")
	return nil
}

func (s *session) deliver(call *pendingCall, resp *proto.Response) {
	if resp.Error != nil {
		s.log.Error().
			Str("path", call.path).
			Int("code", resp.Error.Code).
			Str("error", resp.Error.Message).
			Msg("subscription error")
		return
	}
	if resp.Result == nil {
		return
	}

	switch resp.Result.Type {
	case proto.ResultStarted:
		s.log.Debug().Str("path", call.path).Msg("subscription started")
	case proto.ResultStopped:
		s.log.Warn().Str("path", call.path).Msg("subscription stopped by server")
	case proto.ResultData:
		s.metrics.delivery(call.path)
		if err := s.invoke(call, resp.Result.Data); err != nil {
			s.metrics.handlerFailure(call.path)
			s.log.Error().Err(err).Str("path", call.path).Msg("subscription handler failed")
		}
	default:
		s.log.Debug().Str("path", call.path).Str("type", resp.Result.Type).Msg("ignoring subscription frame")
	}
}

func (s *session) invoke(call *pendingCall, data json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return call.handler(data)
}
