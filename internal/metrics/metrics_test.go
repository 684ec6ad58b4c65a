package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/monsoon/internal/news"
)

func TestObserveFetch(t *testing.T) {
	m := New()
	m.ObserveFetch("http", "ok", 120*time.Millisecond)
	m.ObserveFetch("http", "timeout", time.Second)
	m.ObserveFetch("http", "ok", 80*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FetchAttempts.WithLabelValues("http", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchAttempts.WithLabelValues("http", "timeout")))
}

func TestRecordStats(t *testing.T) {
	m := New()
	m.RecordStats(news.ExtractionStats{
		TotalCandidates:   5,
		Skipped:           3,
		DuplicatesRemoved: 1,
		ByTier:            map[news.Tier]int{news.TierHigh: 2, news.TierLow: 1},
		FailedRegions:     []string{"assam"},
	})

	assert.Equal(t, 5.0, testutil.ToFloat64(m.Candidates))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SkippedRows))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Articles.WithLabelValues("high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DuplicatesRemoved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegionsFailed))
}

func TestHealth(t *testing.T) {
	m := New()
	assert.True(t, m.Healthy())

	m.SetError("no candidate input")
	assert.False(t, m.Healthy())
	assert.Equal(t, "no candidate input", m.GetStats()["last_error"])

	m.SetLastRun()
	assert.True(t, m.Healthy())
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveFetch("http", "ok", time.Second)
	m.RecordStats(news.ExtractionStats{})
	m.SetError("x")
	assert.True(t, m.Healthy())
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveFetch("browser_a", "ok", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `monsoon_fetch_attempts_total{outcome="ok",strategy="browser_a"} 1`)
}
