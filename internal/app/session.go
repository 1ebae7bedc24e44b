package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vovakirdan/sharkord-go/internal/auth"
	"github.com/vovakirdan/sharkord-go/internal/core"
	"github.com/vovakirdan/sharkord-go/internal/gateway"
)

// subscription binds a server push path to the cache mutator that applies it.
type subscription struct {
	path   string
	handle gateway.Handler
}

// subscriptions lists the pushes registered after every join.
func (a *App) subscriptions() []subscription {
	c := a.cache
	return []subscription{
		{"messages.onNew", object(c.Messages.Add)},
		{"channels.onCreate", object(c.Channels.Create)},
		{"channels.onUpdate", object(c.Channels.Update)},
		{"channels.onDelete", byID(c.Channels.Delete)},
		{"categories.onCreate", object(c.Categories.Create)},
		{"categories.onUpdate", object(c.Categories.Update)},
		{"categories.onDelete", byID(c.Categories.Delete)},
		{"roles.onCreate", object(c.Roles.Create)},
		{"roles.onUpdate", object(c.Roles.Update)},
		{"roles.onDelete", byID(c.Roles.Delete)},
		{"users.onCreate", object(c.Users.Create)},
		{"users.onJoin", object(c.Users.Join)},
		{"users.onLeave", byID(c.Users.Leave)},
		{"users.onUpdate", object(c.Users.Update)},
		{"users.onDelete", byID(c.Users.Delete)},
		{"others.onServerSettingsUpdate", object(c.Servers.Update)},
	}
}

func object[V any](apply func(map[string]any) (V, error)) gateway.Handler {
	return func(data json.RawMessage) error {
		raw, err := core.DecodeObject(data)
		if err != nil {
			return err
		}
		_, err = apply(raw)
		return err
	}
}

func byID[V any](apply func(int64) (V, bool)) gateway.Handler {
	return func(data json.RawMessage) error {
		id, err := core.DecodeID(data)
		if err != nil {
			return err
		}
		apply(id)
		return nil
	}
}

// supervise runs sessions back to back, waiting ReconnectDelay between them, until ctx
// is done. There is no retry limit.
func (a *App) supervise(ctx context.Context) error {
	for {
		if err := a.session(ctx); err != nil && ctx.Err() == nil {
			a.log.Error().Err(err).Msg("session failed")
		}
		if ctx.Err() != nil {
			return nil
		}

		a.reconnects.Add(1)
		a.metrics.reconnects.Inc()
		a.log.Warn().Dur("delay", a.cfg.ReconnectDelay).Msg("reconnecting")

		select {
		case <-ctx.Done():
			return nil
		case <-a.clock.After(a.cfg.ReconnectDelay):
		}
	}
}

// session runs login, connect, hydrate and subscribe, then blocks until the connection
// closes. A nil error means the session was established and later ended.
func (a *App) session(ctx context.Context) error {
	token, err := a.login(ctx)
	if err != nil {
		return err
	}

	connectCtx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	snapshot, err := a.gateway.Connect(connectCtx, token)
	cancel()
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	closed := a.gateway.Closed()

	a.cache.Hydrate(snapshot)

	if err := a.subscribe(ctx); err != nil {
		a.gateway.Disconnect()
		<-closed
		return err
	}

	self, _ := a.cache.Self()
	a.ready.Store(true)
	a.metrics.ready.Set(1)
	a.log.Info().Str("session", a.gateway.SessionID()).Msg("ready")
	a.hub.Emit(core.ReadyEvent{Self: self})

	var ev gateway.CloseEvent
	select {
	case ev = <-closed:
	case <-ctx.Done():
		a.gateway.Disconnect()
		ev = <-closed
	}

	a.ready.Store(false)
	a.metrics.ready.Set(0)
	a.log.Warn().Int("code", ev.Code).Str("reason", ev.Reason).Msg("connection closed")
	a.hub.Emit(core.ClosedEvent{Code: ev.Code, Reason: ev.Reason})
	return nil
}

func (a *App) login(ctx context.Context) (string, error) {
	loginCtx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	token, err := a.auth.Login(loginCtx, auth.Credentials{Identity: a.cfg.Identity, Password: a.cfg.Password})
	if err != nil {
		a.metrics.logins.WithLabelValues("error").Inc()
		if errors.Is(err, auth.ErrInvalidCredentials) {
			a.log.Error().Str("identity", a.cfg.Identity).Msg("login rejected")
		}
		return "", fmt.Errorf("login: %w", err)
	}
	a.metrics.logins.WithLabelValues("ok").Inc()

	if info, err := auth.InspectToken(token); err == nil && !info.ExpiresAt.IsZero() {
		a.log.Debug().Time("expires_at", info.ExpiresAt).Msg("token issued")
	}
	return token, nil
}

func (a *App) subscribe(ctx context.Context) error {
	for _, sub := range a.subscriptions() {
		subCtx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
		err := a.gateway.Subscribe(subCtx, sub.path, sub.handle)
		cancel()
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", sub.path, err)
		}
	}
	return nil
}
