package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ServiceName labels logs and health responses
const ServiceName = "doc-narrator"

var (
	// Run metrics
	activeRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "doc_narrator_active_runs",
		Help: "Number of narration runs in progress",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doc_narrator_runs_total",
		Help: "Total number of narration runs by outcome",
	}, []string{"status"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "doc_narrator_run_duration_seconds",
		Help:    "Wall-clock duration of narration runs in seconds",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})

	// Extraction metrics
	pagesExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doc_narrator_pages_extracted_total",
		Help: "Total number of pages run through structure reconstruction",
	})

	degradedPages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doc_narrator_extraction_degraded_pages_total",
		Help: "Pages whose reconstruction failed and degraded to empty text",
	})

	// Reformatting metrics
	pagesFormatted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doc_narrator_pages_formatted_total",
		Help: "Total number of pages reformatted into narration",
	})

	pageFormatLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "doc_narrator_page_format_seconds",
		Help:    "Per-page reformatting latency including retries",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 240},
	})

	// Remote call metrics
	remoteAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doc_narrator_remote_attempts_total",
		Help: "Remote call attempts by operation and outcome",
	}, []string{"operation", "outcome"})

	rateLimitCooldowns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doc_narrator_rate_limit_cooldowns_total",
		Help: "Number of cooldown waits triggered by rate limiting",
	}, []string{"operation"})

	// Synthesis metrics
	ttsChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doc_narrator_tts_chunks_total",
		Help: "Text chunks sent to speech synthesis",
	}, []string{"status"})

	ttsLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "doc_narrator_tts_latency_seconds",
		Help:    "Speech synthesis latency per chunk in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	audioSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doc_narrator_audio_seconds_total",
		Help: "Seconds of narrated audio produced",
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doc_narrator_errors_total",
		Help: "Total number of errors",
	}, []string{"kind", "stage"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "doc_narrator_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doc_narrator_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// RunMetrics tracks metrics for a single narration run
type RunMetrics struct {
	runID        string
	startTime    time.Time
	ttsStartTime time.Time
	mu           sync.Mutex
}

// NewRunMetrics creates a new metrics tracker for a run
func NewRunMetrics(runID string) *RunMetrics {
	return &RunMetrics{
		runID:     runID,
		startTime: time.Now(),
	}
}

// RecordRunStart records the start of a run
func (m *RunMetrics) RecordRunStart() {
	activeRuns.Inc()
}

// RecordRunEnd records the end of a run
func (m *RunMetrics) RecordRunEnd(success bool) {
	activeRuns.Dec()
	runDuration.Observe(time.Since(m.startTime).Seconds())
	runsTotal.WithLabelValues(status(success)).Inc()
}

// RecordTTSStart records the start of a synthesis call
func (m *RunMetrics) RecordTTSStart() {
	m.mu.Lock()
	m.ttsStartTime = time.Now()
	m.mu.Unlock()
}

// RecordTTSEnd records the end of a synthesis call
func (m *RunMetrics) RecordTTSEnd(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ttsStartTime.IsZero() {
		ttsLatency.Observe(time.Since(m.ttsStartTime).Seconds())
	}
	ttsChunks.WithLabelValues(status(success)).Inc()
}

// RecordError records an error
func (m *RunMetrics) RecordError(kind, stage string) {
	errorsTotal.WithLabelValues(kind, stage).Inc()
}

// RecordPageExtracted counts a page run through reconstruction
func RecordPageExtracted(degraded bool) {
	pagesExtracted.Inc()
	if degraded {
		degradedPages.Inc()
	}
}

// RecordPageFormatted records a reformatted page and its latency
func RecordPageFormatted(latency time.Duration) {
	pagesFormatted.Inc()
	pageFormatLatency.Observe(latency.Seconds())
}

// RecordRemoteAttempt records one attempt of a remote call
func RecordRemoteAttempt(operation, outcome string) {
	remoteAttempts.WithLabelValues(operation, outcome).Inc()
}

// RecordRateLimitCooldown records a cooldown wait
func RecordRateLimitCooldown(operation string) {
	rateLimitCooldowns.WithLabelValues(operation).Inc()
}

// RecordAudioSeconds records seconds of produced audio
func RecordAudioSeconds(seconds float64) {
	audioSeconds.Add(seconds)
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
