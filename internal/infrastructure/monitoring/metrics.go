package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Command metrics
	CommandsTotal *prometheus.CounterVec

	// Session metrics
	SessionsActive    prometheus.Gauge
	SessionsCreated   prometheus.Counter
	SessionsDestroyed prometheus.Counter
	BrowserLaunches   *prometheus.CounterVec

	// Challenge metrics
	ChallengeOutcomes  *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec

	// Solver metrics
	SolverCalls    *prometheus.CounterVec
	SolverDuration *prometheus.HistogramVec

	Uptime    prometheus.Gauge
	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds running totals for logging and tests
type Snapshot struct {
	TotalRequests   int64
	TotalErrors     int64
	ActiveSessions  int64
	ChallengeSolved int64
	ChallengeFailed int64
}

// NewMetrics creates a metrics collector backed by its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playcha_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playcha_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playcha_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		CommandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playcha_commands_total",
				Help: "V1 commands by name and response status",
			},
			[]string{"cmd", "status"},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "playcha_sessions_active",
				Help: "Number of live browser sessions",
			},
		),
		SessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "playcha_sessions_created_total",
				Help: "Total number of sessions created",
			},
		),
		SessionsDestroyed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "playcha_sessions_destroyed_total",
				Help: "Total number of sessions destroyed",
			},
		),
		BrowserLaunches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playcha_browser_launches_total",
				Help: "Browser launches by kind (session, throwaway) and status",
			},
			[]string{"kind", "status"},
		),

		ChallengeOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playcha_challenge_outcomes_total",
				Help: "Resolution outcomes (not_detected, solved, blocked, timeout, error)",
			},
			[]string{"outcome"},
		),
		ResolutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playcha_resolution_duration_seconds",
				Help:    "Time spent resolving a request",
				Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"outcome"},
		),

		SolverCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playcha_solver_calls_total",
				Help: "Solver invocations by backend and status",
			},
			[]string{"solver", "status"},
		),
		SolverDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playcha_solver_duration_seconds",
				Help:    "Solver invocation duration in seconds",
				Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"solver"},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "playcha_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// Handler exposes the registry in Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if len(status) > 0 && status[0] >= '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// SetSessionsActive sets the number of live sessions
func (m *Metrics) SetSessionsActive(count int) {
	m.SessionsActive.Set(float64(count))

	m.mu.Lock()
	m.snapshot.ActiveSessions = int64(count)
	m.mu.Unlock()
}

// IncSessionsCreated increments created sessions
func (m *Metrics) IncSessionsCreated() {
	m.SessionsCreated.Inc()
}

// IncSessionsDestroyed increments destroyed sessions
func (m *Metrics) IncSessionsDestroyed() {
	m.SessionsDestroyed.Inc()
}

// RecordBrowserLaunch records a browser launch attempt
func (m *Metrics) RecordBrowserLaunch(kind string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.BrowserLaunches.WithLabelValues(kind, status).Inc()
}

// RecordResolution records the outcome and duration of one resolution
func (m *Metrics) RecordResolution(outcome string, duration time.Duration) {
	m.ChallengeOutcomes.WithLabelValues(outcome).Inc()
	m.ResolutionDuration.WithLabelValues(outcome).Observe(duration.Seconds())

	m.mu.Lock()
	switch outcome {
	case "solved", "not_detected":
		m.snapshot.ChallengeSolved++
	default:
		m.snapshot.ChallengeFailed++
	}
	m.mu.Unlock()
}

// RecordSolverCall records a solver invocation
func (m *Metrics) RecordSolverCall(solver, status string, duration time.Duration) {
	m.SolverCalls.WithLabelValues(solver, status).Inc()
	m.SolverDuration.WithLabelValues(solver).Observe(duration.Seconds())
}

// RecordCommand records a dispatched /v1 command
func (m *Metrics) RecordCommand(cmd, status string) {
	m.CommandsTotal.WithLabelValues(cmd, status).Inc()
}

// Snapshot returns a copy of the running totals
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
