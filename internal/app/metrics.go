package app

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	logins        *prometheus.CounterVec
	reconnects    prometheus.Counter
	ready         prometheus.Gauge
	events        *prometheus.CounterVec
	archived      prometheus.Counter
	archiveErrors prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharkord", Subsystem: "bot", Name: "logins_total",
			Help: "HTTP login attempts, by result.",
		}, []string{"result"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sharkord", Subsystem: "bot", Name: "reconnects_total",
			Help: "Reconnection attempts scheduled after a lost or failed session.",
		}),
		ready: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sharkord", Subsystem: "bot", Name: "ready",
			Help: "1 while the cache is hydrated and subscriptions are live.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharkord", Subsystem: "bot", Name: "events_total",
			Help: "Domain events dispatched, by name.",
		}, []string{"event"}),
		archived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sharkord", Subsystem: "archive", Name: "messages_saved_total",
			Help: "Messages written to the archive.",
		}),
		archiveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sharkord", Subsystem: "archive", Name: "errors_total",
			Help: "Messages that could not be archived.",
		}),
	}
	reg.MustRegister(m.logins, m.reconnects, m.ready, m.events, m.archived, m.archiveErrors)
	return m
}
