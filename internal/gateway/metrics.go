package gateway

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds gateway collectors. A nil *Metrics records nothing.
type Metrics struct {
	framesIn         prometheus.Counter
	framesOut        prometheus.Counter
	malformedFrames  prometheus.Counter
	calls            *prometheus.CounterVec
	callErrors       *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
	handlerFailures  *prometheus.CounterVec
	watchdogProbes   prometheus.Counter
	watchdogTimeouts prometheus.Counter
	pending          prometheus.Gauge
}

// NewMetrics creates the gateway collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		framesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sharkord", Subsystem: "gateway", Name: "frames_received_total",
			Help: "Frames received from the server, heartbeats included.",
		}),
		framesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sharkord", Subsystem: "gateway", Name: "frames_sent_total",
			Help: "Frames written to the server, heartbeats included.",
		}),
		malformedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sharkord", Subsystem: "gateway", Name: "malformed_frames_total",
			Help: "Inbound frames dropped as malformed.",
		}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharkord", Subsystem: "gateway", Name: "rpc_calls_total",
			Help: "RPC requests sent, by method.",
		}, []string{"method"}),
		callErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharkord", Subsystem: "gateway", Name: "rpc_errors_total",
			Help: "RPC requests answered with an error object, by method.",
		}, []string{"method"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharkord", Subsystem: "gateway", Name: "subscription_deliveries_total",
			Help: "Subscription data frames delivered, by path.",
		}, []string{"path"}),
		handlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sharkord", Subsystem: "gateway", Name: "subscription_handler_failures_total",
			Help: "Subscription handlers that returned an error or panicked, by path.",
		}, []string{"path"}),
		watchdogProbes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sharkord", Subsystem: "gateway", Name: "watchdog_probes_total",
			Help: "PING probes sent after an idle period.",
		}),
		watchdogTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sharkord", Subsystem: "gateway", Name: "watchdog_timeouts_total",
			Help: "Connections dropped because a probe went unanswered.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sharkord", Subsystem: "gateway", Name: "pending_calls",
			Help: "Entries in the correlation table, subscriptions included.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.framesIn, m.framesOut, m.malformedFrames, m.calls, m.callErrors,
			m.deliveries, m.handlerFailures, m.watchdogProbes, m.watchdogTimeouts, m.pending,
		)
	}
	return m
}

func (m *Metrics) frameIn() {
	if m != nil {
		m.framesIn.Inc()
	}
}

func (m *Metrics) frameOut() {
	if m != nil {
		m.framesOut.Inc()
	}
}

func (m *Metrics) malformed() {
	if m != nil {
		m.malformedFrames.Inc()
	}
}

func (m *Metrics) call(method string) {
	if m != nil {
		m.calls.WithLabelValues(method).Inc()
	}
}

func (m *Metrics) callError(method string) {
	if m != nil {
		m.callErrors.WithLabelValues(method).Inc()
	}
}

func (m *Metrics) delivery(path string) {
	if m != nil {
		m.deliveries.WithLabelValues(path).Inc()
	}
}

func (m *Metrics) handlerFailure(path string) {
	if m != nil {
		m.handlerFailures.WithLabelValues(path).Inc()
	}
}

func (m *Metrics) probe() {
	if m != nil {
		m.watchdogProbes.Inc()
	}
}

func (m *Metrics) timeout() {
	if m != nil {
		m.watchdogTimeouts.Inc()
	}
}

func (m *Metrics) setPending(n int) {
	if m != nil {
		m.pending.Set(float64(n))
	}
}
