// Package pipeline runs one extraction: discover candidate lists, fetch and
// extract every link per region, score, deduplicate, aggregate per date and
// write the day files.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/deusflow/monsoon/internal/aggregate"
	"github.com/deusflow/monsoon/internal/cache"
	"github.com/deusflow/monsoon/internal/candidates"
	"github.com/deusflow/monsoon/internal/dedup"
	"github.com/deusflow/monsoon/internal/extract"
	"github.com/deusflow/monsoon/internal/fetch"
	"github.com/deusflow/monsoon/internal/news"
	"github.com/deusflow/monsoon/internal/quality"
	"github.com/deusflow/monsoon/internal/storage"
)

// ErrNoCandidates is the only run-fatal input condition.
var ErrNoCandidates = errors.New("no candidate input for the requested dates")

type Fetcher interface {
	Fetch(ctx context.Context, url string) fetch.Result
}

type Writer interface {
	WriteDay(date time.Time, res aggregate.Result) (storage.Paths, error)
}

// StatsRecorder receives the statistics of every finished day.
type StatsRecorder interface {
	RecordStats(stats news.ExtractionStats)
}

type Options struct {
	DataDir          string
	DisasterType     string
	RegionWorkers    int
	FetchConcurrency int
	Dedup            dedup.Options
	Metrics          StatsRecorder
	Logger           *slog.Logger
}

// Request selects what to process.
type Request struct {
	Date     time.Time
	DaysBack int
	Region   string // empty means every region found on disk
}

// DayReport is the finished output of one date.
type DayReport struct {
	Date   time.Time
	Result aggregate.Result
	Paths  storage.Paths
}

type Pipeline struct {
	fetcher   Fetcher
	extractor *extract.Extractor
	dedup     *dedup.Deduplicator
	writer    Writer
	fetchSem  *semaphore.Weighted
	opts      Options
	logger    *slog.Logger
}

func New(f Fetcher, e *extract.Extractor, w Writer, opts Options) *Pipeline {
	if opts.RegionWorkers < 1 {
		opts.RegionWorkers = 1
	}
	if opts.FetchConcurrency < 1 {
		opts.FetchConcurrency = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		fetcher:   f,
		extractor: e,
		dedup:     dedup.New(opts.Dedup),
		writer:    w,
		fetchSem:  semaphore.NewWeighted(int64(opts.FetchConcurrency)),
		opts:      opts,
		logger:    logger.With("component", "pipeline"),
	}
}

// Dates returns the days from date-daysBack through date, oldest first.
func Dates(date time.Time, daysBack int) []time.Time {
	if daysBack < 0 {
		daysBack = 0
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, 0, daysBack+1)
	for i := daysBack; i >= 0; i-- {
		dates = append(dates, day.AddDate(0, 0, -i))
	}
	return dates
}

// Run processes every requested date. Region and URL failures are
// recorded in the results; only missing input or a write failure aborts.
func (p *Pipeline) Run(ctx context.Context, req Request) ([]DayReport, error) {
	dates := Dates(req.Date, req.DaysBack)
	lists, err := candidates.Discover(p.opts.DataDir, p.opts.DisasterType, dates, req.Region)
	if err != nil {
		if errors.Is(err, candidates.ErrNoInput) {
			return nil, fmt.Errorf("%w: %v", ErrNoCandidates, err)
		}
		return nil, fmt.Errorf("failed to discover candidates: %w", err)
	}

	byDate := make(map[time.Time][]candidates.List, len(dates))
	for _, l := range lists {
		byDate[l.Date] = append(byDate[l.Date], l)
	}

	var reports []DayReport
	for _, date := range dates {
		dayLists := byDate[date]
		if len(dayLists) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		start := time.Now()
		batches := p.ProcessDay(ctx, dayLists)
		res := aggregate.Aggregate(batches)

		paths, err := p.writer.WriteDay(date, res)
		if err != nil {
			return reports, fmt.Errorf("failed to write %s: %w", date.Format("2006-01-02"), err)
		}
		if p.opts.Metrics != nil {
			p.opts.Metrics.RecordStats(res.Stats)
		}

		p.logger.Info("day finished",
			"date", date.Format("2006-01-02"),
			"regions", len(batches),
			"candidates", res.Stats.TotalCandidates,
			"articles", len(res.All),
			"combined", len(res.Combined),
			"duplicates", res.Stats.DuplicatesRemoved,
			"failed_regions", len(res.Stats.FailedRegions),
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
		reports = append(reports, DayReport{Date: date, Result: res, Paths: paths})
	}
	return reports, nil
}

// ProcessDay runs the region batches of one date on a bounded worker
// group. Batches come back in list order.
func (p *Pipeline) ProcessDay(ctx context.Context, lists []candidates.List) []news.RegionBatch {
	batches := make([]news.RegionBatch, len(lists))

	var g errgroup.Group
	g.SetLimit(p.opts.RegionWorkers)
	for i, l := range lists {
		g.Go(func() error {
			batches[i] = p.ProcessRegion(ctx, l)
			return nil
		})
	}
	_ = g.Wait()
	return batches
}

type item struct {
	article *news.Article
	outcome news.Outcome
}

// ProcessRegion fetches, extracts and scores every candidate of one list,
// then deduplicates the batch. It never fails: a list that could not be
// read becomes a batch with Failure set.
func (p *Pipeline) ProcessRegion(ctx context.Context, l candidates.List) news.RegionBatch {
	batch := news.RegionBatch{
		Region:   l.Region,
		Date:     l.Date,
		Articles: []news.Article{},
		Outcomes: []news.Outcome{},
		Skipped:  l.Skipped,
	}
	logger := p.logger.With("region", l.Region, "date", l.Date.Format("2006-01-02"))
	if l.Err != nil {
		batch.Failure = l.Err.Error()
		logger.Warn("region skipped", "error", l.Err)
		return batch
	}

	// a URL listed twice in one file is fetched once
	memo := cache.New[fetch.Result](0)
	items := make([]item, len(l.Candidates))

	var g errgroup.Group
	for i, c := range l.Candidates {
		g.Go(func() error {
			items[i] = p.processCandidate(ctx, memo, c, logger)
			return nil
		})
	}
	_ = g.Wait()

	var articles []news.Article
	var owner []int // outcome index of each article
	for i, it := range items {
		batch.Outcomes = append(batch.Outcomes, it.outcome)
		if it.article != nil {
			articles = append(articles, *it.article)
			owner = append(owner, i)
		}
	}

	stampInListOrder(articles)
	report := p.dedup.Run(articles)
	for k, idx := range report.DuplicateIndex {
		batch.Outcomes[owner[idx]].DuplicateOf = report.Duplicates[k].IsDuplicateOf
	}
	if report.Kept != nil {
		batch.Articles = report.Kept
	}
	batch.Stats = news.ComputeStats(batch.Outcomes, batch.Articles)
	batch.Stats.Skipped = batch.Skipped

	logger.Info("region finished",
		"candidates", len(l.Candidates),
		"skipped", l.Skipped,
		"fetched", batch.Stats.FetchedOK,
		"articles", len(batch.Articles),
		"duplicates", report.Removed,
		"memo_hits", memo.Hits(),
	)
	return batch
}

// stampInListOrder hands the batch's extraction times back out in list
// order, so ties in dedup resolve the same way however the fetches raced.
func stampInListOrder(articles []news.Article) {
	times := make([]time.Time, len(articles))
	for i, a := range articles {
		times[i] = a.ExtractedAt
	}
	slices.SortFunc(times, time.Time.Compare)
	for i := range articles {
		articles[i].ExtractedAt = times[i]
	}
}

func (p *Pipeline) processCandidate(ctx context.Context, memo *cache.Cache[fetch.Result], c news.CandidateURL, logger *slog.Logger) item {
	res := memo.Do(c.URL, func() fetch.Result {
		if err := p.fetchSem.Acquire(ctx, 1); err != nil {
			return fetch.Result{URL: c.URL, FinalURL: c.URL, Strategy: fetch.StrategyFailed, Err: &fetch.Error{Kind: fetch.KindTimeout, Err: err}}
		}
		defer p.fetchSem.Release(1)
		return p.fetcher.Fetch(ctx, c.URL)
	})

	out := item{outcome: news.Outcome{URL: c.URL, Strategy: res.Strategy}}
	if !res.OK() {
		out.outcome.Strategy = fetch.StrategyFailed
		out.outcome.FetchError = "unknown"
		if res.Err != nil {
			out.outcome.FetchError = res.Err.Label()
		}
		logger.Debug("fetch failed", "url", c.URL, "error", out.outcome.FetchError)
		return out
	}

	a, err := p.extractor.Extract(res, c)
	if err != nil {
		out.outcome.Unusable = errors.Is(err, extract.ErrNoUsableContent)
		logger.Debug("extraction failed", "url", c.URL, "error", err)
		return out
	}
	quality.Apply(a)
	out.article = a
	return out
}
