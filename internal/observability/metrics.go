package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "call_analysis_active_sessions",
		Help: "Number of active realtime analysis sessions",
	})

	totalSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "call_analysis_sessions_total",
		Help: "Total number of realtime sessions opened",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "call_analysis_session_duration_seconds",
		Help:    "Duration of realtime sessions in seconds",
		Buckets: []float64{10, 30, 60, 300, 600, 1800, 3600},
	})

	// Engine metrics
	analysisRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "call_analysis_runs_total",
		Help: "Total number of engine invocations",
	}, []string{"trigger", "status"}) // trigger: "tick" or "rest"

	analysisLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "call_analysis_run_latency_seconds",
		Help:    "Engine run latency in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	})

	analysisSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "call_analysis_suppressed_total",
		Help: "Engine results withheld from clients",
	}, []string{"reason"}) // reason: "cadence", "cooldown", "confidence", "warmup"

	// Transcript ingest metrics
	transcriptPackets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "call_analysis_transcript_packets_total",
		Help: "Transcript packets received over realtime sessions",
	}, []string{"outcome"}) // outcome: "accepted", "duplicate", "dropped"

	transcriptChunks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "call_analysis_transcript_chunks_total",
		Help: "Transcript chunks accepted into session buffers",
	})

	// Refiner metrics
	refinerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "call_analysis_refiner_requests_total",
		Help: "Total number of refiner overlay requests",
	}, []string{"status"})

	refinerLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "call_analysis_refiner_latency_seconds",
		Help:    "Refiner overlay latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "call_analysis_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "call_analysis_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "call_analysis_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// Metrics tracks metrics for a single meeting session
type Metrics struct {
	meetingID        string
	startTime        time.Time
	analysisStart    time.Time
	refinerStartTime time.Time
	mu               sync.Mutex
}

// NewSessionMetrics creates a new metrics tracker for a meeting
func NewSessionMetrics(meetingID string) *Metrics {
	return &Metrics{
		meetingID: meetingID,
		startTime: time.Now(),
	}
}

// RecordSessionStart records the start of a realtime session
func (m *Metrics) RecordSessionStart() {
	activeSessions.Inc()
	totalSessions.Inc()
}

// RecordSessionEnd records the end of a realtime session
func (m *Metrics) RecordSessionEnd() {
	activeSessions.Dec()
	sessionDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordAnalysisStart records the start of one engine run
func (m *Metrics) RecordAnalysisStart() {
	m.mu.Lock()
	m.analysisStart = time.Now()
	m.mu.Unlock()
}

// RecordAnalysisEnd records the end of one engine run
func (m *Metrics) RecordAnalysisEnd(trigger string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.analysisStart.IsZero() {
		analysisLatency.Observe(time.Since(m.analysisStart).Seconds())
	}

	status := "success"
	if !success {
		status = "error"
	}
	analysisRuns.WithLabelValues(trigger, status).Inc()
}

// RecordSuppressed records an engine result withheld from the client
func (m *Metrics) RecordSuppressed(reason string) {
	analysisSuppressed.WithLabelValues(reason).Inc()
}

// RecordPacket records a transcript packet outcome
func (m *Metrics) RecordPacket(outcome string) {
	transcriptPackets.WithLabelValues(outcome).Inc()
}

// RecordChunks records transcript chunks accepted into the session buffer
func (m *Metrics) RecordChunks(n int) {
	transcriptChunks.Add(float64(n))
}

// RecordRefinerStart records the start of a refiner overlay request
func (m *Metrics) RecordRefinerStart() {
	m.mu.Lock()
	m.refinerStartTime = time.Now()
	m.mu.Unlock()
}

// RecordRefinerEnd records the end of a refiner overlay request
func (m *Metrics) RecordRefinerEnd(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.refinerStartTime.IsZero() {
		refinerLatency.Observe(time.Since(m.refinerStartTime).Seconds())
	}

	status := "success"
	if !success {
		status = "error"
	}
	refinerRequests.WithLabelValues(status).Inc()
}

// RecordError records an error
func (m *Metrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
