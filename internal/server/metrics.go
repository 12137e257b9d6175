package server

import (
	"errors"
	"net/http"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/muurk/wgdyn/internal/lease"
	"github.com/muurk/wgdyn/internal/protocol"
)

const metricsNamespace = "wgdyn"

// maxGoroutines fails the liveness check when exceeded.
const maxGoroutines = 10000

// Metrics are the server's Prometheus collectors. Each Server has its own
// registry.
type Metrics struct {
	registry *prometheus.Registry

	Requests       *prometheus.CounterVec
	ProtocolErrors *prometheus.CounterVec
	ActiveConns    prometheus.Gauge
	Rejected       prometheus.Counter
	DeferredWrites prometheus.Counter
}

// NewMetrics creates and registers the collectors. The lease gauge reads
// pool on every scrape.
func NewMetrics(pool *lease.Pool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Requests answered, by outcome.",
		}, []string{"outcome"}),
		ProtocolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "protocol_errors_total",
			Help:      "Error replies sent, by error code.",
		}, []string{"code"}),
		ActiveConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_connections",
			Help:      "Client connections currently open.",
		}),
		Rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rejected_connections_total",
			Help:      "Connections closed on accept because every worker was busy.",
		}),
		DeferredWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "deferred_writes_total",
			Help:      "Replies the socket could not take in one go.",
		}),
	}

	m.registry.MustRegister(
		m.Requests,
		m.ProtocolErrors,
		m.ActiveConns,
		m.Rejected,
		m.DeferredWrites,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "leases",
			Help:      "Leases currently held.",
		}, func() float64 { return float64(pool.Len()) }),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) observeError(err error) {
	m.Requests.WithLabelValues("error").Inc()
	m.ProtocolErrors.WithLabelValues(protocol.CodeOf(err).String()).Inc()
}

// newHealth builds the /live and /ready checks. ready reports whether the
// listener is accepting.
func newHealth(m *Metrics, ready func() bool) healthcheck.Handler {
	h := healthcheck.NewMetricsHandler(m.registry, metricsNamespace)
	h.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(maxGoroutines))
	h.AddReadinessCheck("listener", func() error {
		if !ready() {
			return errors.New("not accepting connections")
		}
		return nil
	})
	return h
}

// adminHandler serves /metrics, /live and /ready.
func adminHandler(m *Metrics, health healthcheck.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry}))
	mux.HandleFunc("/live", health.LiveEndpoint)
	mux.HandleFunc("/ready", health.ReadyEndpoint)
	return mux
}
