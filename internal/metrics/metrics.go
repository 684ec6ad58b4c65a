package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deusflow/monsoon/internal/news"
)

const namespace = "monsoon"

// Metrics holds the Prometheus collectors for a run plus the health status
// served on /health. All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	FetchAttempts     *prometheus.CounterVec
	FetchDuration     *prometheus.HistogramVec
	Candidates        prometheus.Counter
	SkippedRows       prometheus.Counter
	Articles          *prometheus.CounterVec
	DuplicatesRemoved prometheus.Counter
	Unusable          prometheus.Counter
	RegionsFailed     prometheus.Counter
	RunDuration       prometheus.Gauge

	mu            sync.RWMutex
	lastRunTime   time.Time
	lastDuration  time.Duration
	lastErrorTime time.Time
	lastError     string
	isHealthy     bool
	runs          int64
}

var Global = New()

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{registry: reg, isHealthy: true}
	m.FetchAttempts = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_attempts_total",
		Help:      "Fetch strategy attempts by strategy and outcome",
	}, []string{"strategy", "outcome"})
	m.FetchDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fetch_duration_seconds",
		Help:      "Duration of a single fetch strategy attempt",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"strategy"})
	m.Candidates = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "candidates_total",
		Help:      "Candidate URLs processed",
	})
	m.SkippedRows = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "skipped_rows_total",
		Help:      "Input rows dropped for lacking a valid http(s) link",
	})
	m.Articles = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "articles_total",
		Help:      "Articles kept after deduplication by quality tier",
	}, []string{"tier"})
	m.DuplicatesRemoved = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "duplicates_removed_total",
		Help:      "Articles removed as duplicates",
	})
	m.Unusable = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unusable_pages_total",
		Help:      "Fetched pages without usable article text",
	})
	m.RegionsFailed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "regions_failed_total",
		Help:      "Region batches that could not be processed",
	})
	m.RunDuration = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_duration_seconds",
		Help:      "Wall time of the most recent run",
	})
	return m
}

// ObserveFetch records one strategy attempt.
func (m *Metrics) ObserveFetch(strategy, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(strategy, outcome).Inc()
	m.FetchDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// RecordStats adds a finished day's statistics to the counters.
func (m *Metrics) RecordStats(stats news.ExtractionStats) {
	if m == nil {
		return
	}
	m.Candidates.Add(float64(stats.TotalCandidates))
	m.SkippedRows.Add(float64(stats.Skipped))
	for tier, n := range stats.ByTier {
		m.Articles.WithLabelValues(string(tier)).Add(float64(n))
	}
	m.DuplicatesRemoved.Add(float64(stats.DuplicatesRemoved))
	m.Unusable.Add(float64(stats.Unusable))
	m.RegionsFailed.Add(float64(len(stats.FailedRegions)))
}

func (m *Metrics) RecordRunDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.Set(d.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastDuration = d
	m.runs++
}

func (m *Metrics) SetLastRun() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRunTime = time.Now()
	m.isHealthy = true
}

func (m *Metrics) SetError(err string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = err
	m.lastErrorTime = time.Now()
	m.isHealthy = false
}

func (m *Metrics) Healthy() bool {
	if m == nil {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"runs":                 m.runs,
		"last_run_duration_ms": m.lastDuration.Milliseconds(),
		"last_run_time":        m.lastRunTime.Format(time.RFC3339),
		"last_error_time":      m.lastErrorTime.Format(time.RFC3339),
		"last_error":           m.lastError,
		"is_healthy":           m.isHealthy,
	}
}

// Registry exposes the collectors, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
