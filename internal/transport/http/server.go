// Package http exposes the bot's operational surface: health, live status, the message
// archive and Prometheus metrics.
package http

import (
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/sharkord-go/internal/store"
)

// Options configures the status server. Archive and Gatherer are optional.
type Options struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	// RequestsPerSecond limits /api requests; zero disables the limit.
	RequestsPerSecond float64
	Burst             int

	Status   StatusProvider
	Archive  store.MessageStore
	Gatherer prometheus.Gatherer
}

// NewServer builds the status HTTP server.
func NewServer(opts Options, logger *zerolog.Logger) *stdhttp.Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.ReadHeaderTimeout == 0 {
		opts.ReadHeaderTimeout = 5 * time.Second
	}

	return &stdhttp.Server{
		Addr:              opts.Addr,
		Handler:           NewRouter(opts, logger),
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
	}
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(opts Options, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	status := NewStatusHandlers(opts.Status, logger)
	router.GET("/health", status.Health)
	router.GET("/status", status.Status)

	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	if opts.Archive != nil {
		api := router.Group("/api", RateLimitMiddleware(opts.RequestsPerSecond, opts.Burst))
		messages := NewMessageHandlers(opts.Archive, logger)
		api.GET("/channels/:id/messages", messages.ListMessages)
		api.GET("/messages/:id", messages.GetMessage)
	}

	return router
}
