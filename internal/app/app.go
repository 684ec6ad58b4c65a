package app

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/deusflow/monsoon/internal/config"
	"github.com/deusflow/monsoon/internal/dedup"
	"github.com/deusflow/monsoon/internal/extract"
	"github.com/deusflow/monsoon/internal/fetch"
	"github.com/deusflow/monsoon/internal/metrics"
	"github.com/deusflow/monsoon/internal/news"
	"github.com/deusflow/monsoon/internal/pipeline"
	"github.com/deusflow/monsoon/internal/ratelimit"
	"github.com/deusflow/monsoon/internal/storage"
)

// Strategies builds the fetch strategies in trial order: plain HTTP, then
// the enabled browser engines.
func Strategies(cfg *config.Config, logger *slog.Logger) ([]fetch.Strategy, []io.Closer) {
	strategies := []fetch.Strategy{
		fetch.NewHTTPStrategy(fetch.HTTPOptions{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.HTTPTimeout,
		}),
	}
	var closers []io.Closer

	renderOpts := fetch.RenderOptions{
		UserAgent:          cfg.UserAgent,
		ConcurrentSessions: cfg.BrowserSessions,
		Logger:             logger,
	}
	if cfg.EnableBrowserA {
		strategies = append(strategies, fetch.NewRenderStrategy(fetch.StrategyBrowserA, cfg.BrowserTimeout,
			fetch.NewChromedpRenderer(renderOpts)))
	}
	if cfg.EnableBrowserB {
		rod := fetch.NewRodRenderer(renderOpts)
		strategies = append(strategies, fetch.NewRenderStrategy(fetch.StrategyBrowserB, cfg.BrowserTimeout, rod))
		closers = append(closers, rod)
	}
	return strategies, closers
}

// New wires a pipeline from configuration.
func New(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*pipeline.Pipeline, func()) {
	strategies, closers := Strategies(cfg, logger)
	limiter := ratelimit.NewHostLimiter(cfg.HostRate, cfg.HostBurst)

	f := fetch.New(strategies, fetch.Options{
		Retries:    cfg.RetryAttempts,
		RetryDelay: cfg.RetryDelay,
		Limiter:    limiter,
		Observer:   m,
		Logger:     logger,
	})
	e := extract.New(extract.Options{
		MinPrimaryWords: cfg.MinPrimaryWords,
		MinUsableWords:  cfg.MinUsableWords,
		Logger:          logger,
	})
	w := storage.NewWriter(cfg.MainOutputDir, cfg.SpareOutputDir)

	p := pipeline.New(f, e, w, pipeline.Options{
		DataDir:          cfg.DataDir,
		DisasterType:     cfg.DisasterType,
		RegionWorkers:    cfg.RegionWorkers,
		FetchConcurrency: cfg.FetchConcurrency,
		Dedup: dedup.Options{
			Threshold:         cfg.SimilarityThreshold,
			MinTextSimilarity: cfg.MinTextSimilarity,
		},
		Metrics: m,
		Logger:  logger,
	})

	cleanup := func() {
		logger.Debug("host limiter", "stats", limiter.GetStats())
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Warn("failed to close browser", "error", err)
			}
		}
	}
	return p, cleanup
}

// Run executes one pipeline run and records its health in m.
func Run(ctx context.Context, cfg *config.Config, req pipeline.Request, m *metrics.Metrics, logger *slog.Logger) ([]pipeline.DayReport, error) {
	p, cleanup := New(cfg, m, logger)
	defer cleanup()

	start := time.Now()
	logger.Info("starting run",
		"date", req.Date.Format("2006-01-02"),
		"days_back", req.DaysBack,
		"region", req.Region,
		"data_dir", cfg.DataDir,
	)

	reports, err := p.Run(ctx, req)
	m.RecordRunDuration(time.Since(start))
	if err != nil {
		m.SetError(err.Error())
		return reports, err
	}
	m.SetLastRun()

	for _, r := range reports {
		logger.Info("written",
			"date", r.Date.Format("2006-01-02"),
			"combined", r.Paths.Combined,
			"spare", r.Paths.SpareDir,
			"high", len(r.Result.Tiers[news.TierHigh]),
			"medium", len(r.Result.Tiers[news.TierMedium]),
			"low", len(r.Result.Tiers[news.TierLow]),
		)
	}
	logger.Info("run finished", "days", len(reports), "elapsed", time.Since(start).Round(time.Millisecond))
	return reports, nil
}
