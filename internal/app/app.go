// Package app runs the bot: it logs in, connects the gateway, keeps the entity cache in
// sync and reconnects after every lost session.
package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/sharkord-go/internal/auth"
	"github.com/vovakirdan/sharkord-go/internal/command"
	"github.com/vovakirdan/sharkord-go/internal/config"
	"github.com/vovakirdan/sharkord-go/internal/core"
	"github.com/vovakirdan/sharkord-go/internal/gateway"
	"github.com/vovakirdan/sharkord-go/internal/log"
	"github.com/vovakirdan/sharkord-go/internal/store"
	"github.com/vovakirdan/sharkord-go/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/sharkord-go/internal/transport/http"
)

const (
	shutdownTimeout = 5 * time.Second
	// commandQueueSize bounds messages waiting for the command worker.
	commandQueueSize = 64
)

// Option customises an App.
type Option func(*options)

type options struct {
	dialer     gateway.Dialer
	httpClient *stdhttp.Client
	clock      clock.Clock
	registry   *prometheus.Registry
	archive    store.Store
}

// WithDialer replaces the WebSocket dialer.
func WithDialer(d gateway.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithHTTPClient replaces the client used for login.
func WithHTTPClient(c *stdhttp.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithClock replaces the clock driving the reconnect delay and the watchdog.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithRegistry registers metrics with reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithArchive uses st as the message archive instead of opening cfg.ArchivePath.
func WithArchive(st store.Store) Option {
	return func(o *options) { o.archive = st }
}

// App wires together the gateway, the cache and the operational surfaces.
type App struct {
	cfg      config.Config
	log      *zerolog.Logger
	clock    clock.Clock
	registry *prometheus.Registry
	metrics  *metrics

	auth    *auth.Service
	gateway *gateway.Gateway
	hub     *core.Hub
	cache   *core.Cache
	router  *command.Router
	archive store.Store
	server  *stdhttp.Server

	commands chan *core.Message

	started    atomic.Bool
	ready      atomic.Bool
	reconnects atomic.Uint64
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
		o.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	a := &App{
		cfg:      cfg,
		log:      log.Component(logger, "app"),
		clock:    o.clock,
		registry: o.registry,
		metrics:  newMetrics(o.registry),
		archive:  o.archive,
		commands: make(chan *core.Message, commandQueueSize),
	}

	a.auth = auth.NewService(o.httpClient, cfg.Host, cfg.Insecure, cfg.UserAgent, log.Component(logger, "auth"))

	gwOpts := []gateway.Option{
		gateway.WithClock(o.clock),
		gateway.WithMetrics(gateway.NewMetrics(o.registry)),
	}
	if o.dialer != nil {
		gwOpts = append(gwOpts, gateway.WithDialer(o.dialer))
	}
	a.gateway = gateway.New(gateway.Config{
		URL:          gateway.Endpoint(cfg.Host, !cfg.Insecure),
		UserAgent:    cfg.UserAgent,
		IdleTimeout:  cfg.IdleTimeout,
		ProbeTimeout: cfg.ProbeTimeout,
		WriteTimeout: cfg.WriteTimeout,
		SendRate:     cfg.SendRate,
		SendBurst:    cfg.SendBurst,
	}, log.Component(logger, "gateway"), gwOpts...)

	a.hub = core.NewHub(log.Component(logger, "hub"))

	cache, err := core.NewCache(a.gateway, a.hub, log.Component(logger, "cache"), cfg.MessageCacheSize)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}
	a.cache = cache

	a.router = command.NewRouter(cfg.CommandPrefix, a.selfID, log.Component(logger, "command"))

	if a.archive == nil && cfg.ArchivePath != "" {
		st, err := sqlite.New(cfg.ArchivePath)
		if err != nil {
			return nil, fmt.Errorf("init archive: %w", err)
		}
		a.archive = st
		a.log.Info().Str("archive_path", cfg.ArchivePath).Msg("message archive initialized")
	}

	if cfg.StatusAddr != "" {
		a.server = transporthttp.NewServer(transporthttp.Options{
			Addr:              cfg.StatusAddr,
			RequestsPerSecond: cfg.StatusRate,
			Burst:             cfg.StatusBurst,
			Status:            a,
			Archive:           a.archive,
			Gatherer:          a.registry,
		}, log.Component(logger, "status"))
	}

	return a, nil
}

// Hub returns the event hub. Register listeners before Run.
func (a *App) Hub() *core.Hub { return a.hub }

// Cache returns the entity cache.
func (a *App) Cache() *core.Cache { return a.cache }

// Commands returns the command router.
func (a *App) Commands() *command.Router { return a.router }

// Gateway returns the real-time connection.
func (a *App) Gateway() *gateway.Gateway { return a.gateway }

// Ready reports whether the cache is hydrated and every subscription is live.
func (a *App) Ready() bool { return a.ready.Load() }

// Run connects and keeps reconnecting until ctx is cancelled. It returns after every
// component has stopped and resources are released.
func (a *App) Run(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return errors.New("app already running")
	}

	g, gctx := errgroup.WithContext(ctx)
	a.listen(gctx)

	g.Go(func() error { return a.hub.Run(gctx) })
	g.Go(func() error { return a.runCommands(gctx) })

	if a.server != nil {
		g.Go(func() error {
			a.log.Info().Str("addr", a.server.Addr).Msg("status server listening")
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				return fmt.Errorf("status server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			a.log.Info().Msg("shutting down status server")
			return a.server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error { return a.supervise(gctx) })

	err := g.Wait()
	return multierr.Append(err, a.cleanup())
}

// listen attaches the built-in event listeners.
func (a *App) listen(ctx context.Context) {
	a.hub.OnAny(func(ev core.Event) {
		a.metrics.events.WithLabelValues(ev.Name()).Inc()
		a.log.Debug().Str("event", ev.Name()).Msg("event dispatched")
	})

	core.On(a.hub, func(ev core.MessageEvent) {
		select {
		case a.commands <- ev.Message:
		default:
			a.log.Warn().Int64("message_id", ev.Message.ID()).Msg("command queue full, message skipped")
		}
	})

	if a.archive != nil {
		core.On(a.hub, func(ev core.MessageEvent) {
			a.archiveMessage(ctx, ev.Message)
		})
	}
}

// runCommands feeds queued messages to the command router off the hub's dispatcher.
func (a *App) runCommands(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-a.commands:
			cmdCtx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
			a.router.Handle(cmdCtx, msg)
			cancel()
		}
	}
}

func (a *App) archiveMessage(ctx context.Context, msg *core.Message) {
	rec := &store.Message{
		ID:        msg.ID(),
		ChannelID: msg.ChannelID(),
		UserID:    msg.UserID(),
		Content:   msg.Content(),
		CreatedAt: a.clock.Now().UTC(),
	}
	if author, ok := msg.Author(); ok {
		rec.AuthorName = author.Name()
	}

	saveCtx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()
	if err := a.archive.SaveMessage(saveCtx, rec); err != nil {
		a.metrics.archiveErrors.Inc()
		a.log.Warn().Err(err).Int64("message_id", rec.ID).Msg("failed to archive message")
		return
	}
	a.metrics.archived.Inc()
}

func (a *App) selfID() (int64, bool) {
	u, ok := a.cache.Self()
	if !ok {
		return 0, false
	}
	return u.ID(), true
}

// cleanup closes the gateway and the archive.
func (a *App) cleanup() error {
	a.gateway.Disconnect()

	var err error
	if a.archive != nil {
		if closeErr := a.archive.Close(); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("close archive: %w", closeErr))
		} else {
			a.log.Info().Msg("archive closed")
		}
	}
	return err
}
