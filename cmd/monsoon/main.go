package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/deusflow/monsoon/internal/app"
	"github.com/deusflow/monsoon/internal/config"
	"github.com/deusflow/monsoon/internal/logger"
	"github.com/deusflow/monsoon/internal/metrics"
	"github.com/deusflow/monsoon/internal/pipeline"
)

type flags struct {
	configPath string
	date       string
	daysBack   int
	state      string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:          "monsoon",
		Short:        "Extract, score and deduplicate monsoon news for Indian states and UTs",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.configPath, "config", "", "config file (default $MONSOON_CONFIG or "+config.DefaultPath+")")
	cmd.Flags().StringVar(&f.date, "date", "", "target date YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&f.daysBack, "days-back", 0, "also process this many days before the target date")
	cmd.Flags().StringVar(&f.state, "state", "", "process only this state or UT, e.g. kerala")
	return cmd
}

func parseRequest(f *flags, now time.Time) (pipeline.Request, error) {
	req := pipeline.Request{Date: now.UTC(), DaysBack: f.daysBack, Region: f.state}
	if f.date != "" {
		d, err := time.Parse("2006-01-02", f.date)
		if err != nil {
			return req, fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", f.date)
		}
		req.Date = d
	}
	if f.daysBack < 0 {
		return req, fmt.Errorf("--days-back must not be negative")
	}
	if f.state != "" && !config.KnownRegion(f.state) {
		return req, fmt.Errorf("unknown state or UT %q", f.state)
	}
	return req, nil
}

func run(ctx context.Context, f *flags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.Init(cfg.LogLevel)
	reportConfig(cfg)

	req, err := parseRequest(f, time.Now())
	if err != nil {
		return err
	}

	if cfg.EnableMonitoring {
		go startMonitoringServer(cfg.MonitoringPort, metrics.Global)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = app.Run(ctx, cfg, req, metrics.Global, log)
	return err
}

func reportConfig(cfg *config.Config) {
	if cfg.Path == "" {
		logger.Warn("no config file found, using defaults and environment", "default_path", config.DefaultPath)
		return
	}
	logger.Debug("config loaded",
		"path", cfg.Path,
		"data_dir", cfg.DataDir,
		"region_workers", cfg.RegionWorkers,
		"fetch_concurrency", cfg.FetchConcurrency,
		"browser_a", cfg.EnableBrowserA,
		"browser_b", cfg.EnableBrowserB,
	)
}

func startMonitoringServer(port string, m *metrics.Metrics) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           monitoringMux(m),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("starting monitoring server", "port", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("monitoring server error", "error", err)
	}
}

func monitoringMux(m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler(m))
	mux.Handle("/metrics", m.Handler())
	return mux
}

func healthHandler(m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := m.GetStats()

		status := "ok"
		code := http.StatusOK
		if !m.Healthy() {
			status = "error"
			code = http.StatusServiceUnavailable
		}

		response := map[string]interface{}{
			"status":     status,
			"last_run":   stats["last_run_time"],
			"last_error": stats["last_error"],
			"runs":       stats["runs"],
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(response)
	}
}
