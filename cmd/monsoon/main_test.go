package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/monsoon/internal/config"
	"github.com/deusflow/monsoon/internal/logger"
	"github.com/deusflow/monsoon/internal/metrics"
)

func TestParseRequest(t *testing.T) {
	now := time.Date(2025, 7, 3, 18, 0, 0, 0, time.UTC)

	req, err := parseRequest(&flags{}, now)
	require.NoError(t, err)
	assert.Equal(t, now, req.Date)

	req, err = parseRequest(&flags{date: "2025-06-30", daysBack: 2, state: "kerala"}, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), req.Date)
	assert.Equal(t, 2, req.DaysBack)
	assert.Equal(t, "kerala", req.Region)

	_, err = parseRequest(&flags{date: "30/06/2025"}, now)
	assert.ErrorContains(t, err, "invalid --date")

	_, err = parseRequest(&flags{daysBack: -1}, now)
	assert.Error(t, err)

	_, err = parseRequest(&flags{state: "narnia"}, now)
	assert.ErrorContains(t, err, "unknown state")
}

func TestHealthEndpoint(t *testing.T) {
	m := metrics.New()
	mux := monitoringMux(m)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	m.SetError("no candidate input")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "no candidate input", body["last_error"])
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.ObserveFetch("http", "ok", time.Second)

	rec := httptest.NewRecorder()
	monitoringMux(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "monsoon_fetch_duration_seconds")
}

func TestReportConfig(t *testing.T) {
	prev := logger.Logger
	t.Cleanup(func() { logger.Logger = prev })
	var buf bytes.Buffer
	logger.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	reportConfig(&config.Config{})
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "no config file found")

	buf.Reset()
	reportConfig(&config.Config{Path: "configs/pipeline.yaml", RegionWorkers: 4})
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "path=configs/pipeline.yaml")
	assert.Contains(t, buf.String(), "region_workers=4")
}

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"config", "date", "days-back", "state"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}
