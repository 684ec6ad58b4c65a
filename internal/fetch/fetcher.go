// Package fetch retrieves article HTML by trying an ordered list of
// strategies: a plain HTTP GET first, then two headless browser engines.
package fetch

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/deusflow/monsoon/internal/retry"
)

// Strategy names as they appear in results and statistics.
const (
	StrategyHTTP     = "http"
	StrategyBrowserA = "browser_a"
	StrategyBrowserB = "browser_b"
	StrategyFailed   = "failed"
)

// Page is what a strategy hands back on success.
type Page struct {
	HTML       string
	FinalURL   string
	StatusCode int
}

// Strategy is one way of getting a page. Fetch must respect ctx and
// return an *Error (or an error classify understands) on failure.
type Strategy interface {
	Name() string
	Timeout() time.Duration
	Fetch(ctx context.Context, url string) (Page, error)
}

// Limiter delays requests per host.
type Limiter interface {
	Wait(ctx context.Context, host string) error
}

// Observer receives one call per strategy attempt.
type Observer interface {
	ObserveFetch(strategy, outcome string, elapsed time.Duration)
}

// Attempt records a failed strategy.
type Attempt struct {
	Strategy string
	Err      *Error
}

// Result is the outcome of Fetch. Err is the last error seen when every
// strategy failed.
type Result struct {
	URL      string
	FinalURL string
	Strategy string
	HTML     string
	Err      *Error
	Attempts []Attempt
	Elapsed  time.Duration
}

func (r Result) OK() bool { return r.Strategy != StrategyFailed && r.Err == nil }

type Options struct {
	// Retries is the number of extra attempts a strategy gets after a
	// transient failure.
	Retries    int
	RetryDelay time.Duration
	Limiter    Limiter
	Observer   Observer
	Logger     *slog.Logger
}

type Fetcher struct {
	strategies []Strategy
	opts       Options
	logger     *slog.Logger
}

func New(strategies []Strategy, opts Options) *Fetcher {
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		strategies: strategies,
		opts:       opts,
		logger:     logger.With("component", "fetcher"),
	}
}

// Strategies returns the strategy names in trial order.
func (f *Fetcher) Strategies() []string {
	names := make([]string, len(f.strategies))
	for i, s := range f.strategies {
		names[i] = s.Name()
	}
	return names
}

// Fetch tries each strategy in order and returns the first success. It
// never returns an error: failures are reported in the Result.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) Result {
	start := time.Now()
	res := Result{URL: rawURL, Strategy: StrategyFailed}

	host := ""
	if u, err := url.Parse(strings.TrimSpace(rawURL)); err == nil {
		host = u.Hostname()
	}

	for _, s := range f.strategies {
		if ctx.Err() != nil {
			res.Err = classify(ctx.Err())
			break
		}

		page, err := f.try(ctx, s, rawURL, host)
		if err == nil {
			res.Strategy = s.Name()
			res.HTML = page.HTML
			res.FinalURL = page.FinalURL
			res.Err = nil
			break
		}

		fe := classify(err)
		res.Err = fe
		res.Attempts = append(res.Attempts, Attempt{Strategy: s.Name(), Err: fe})
		f.logger.Debug("strategy failed", "url", rawURL, "strategy", s.Name(), "error", fe)
	}

	if res.FinalURL == "" {
		res.FinalURL = rawURL
	}
	res.Elapsed = time.Since(start)
	return res
}

func (f *Fetcher) try(ctx context.Context, s Strategy, rawURL, host string) (Page, error) {
	var page Page
	cfg := retry.RetryConfig{
		MaxAttempts: 1 + f.opts.Retries,
		Delay:       f.opts.RetryDelay,
		ShouldRetry: IsTransient,
	}
	err := retry.WithRetry(ctx, cfg, func(ctx context.Context) error {
		if f.opts.Limiter != nil {
			if err := f.opts.Limiter.Wait(ctx, host); err != nil {
				return classify(err)
			}
		}

		attemptCtx := ctx
		if t := s.Timeout(); t > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, t)
			defer cancel()
		}

		begin := time.Now()
		p, err := s.Fetch(attemptCtx, rawURL)
		if err == nil {
			err = validate(p)
		}
		f.observe(s.Name(), err, time.Since(begin))
		if err != nil {
			return classify(err)
		}
		page = p
		return nil
	})
	if err != nil {
		var fe *Error
		if errors.As(err, &fe) {
			return Page{}, fe
		}
		return Page{}, err
	}
	return page, nil
}

func (f *Fetcher) observe(strategy string, err error, elapsed time.Duration) {
	if f.opts.Observer == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = classify(err).Label()
	}
	f.opts.Observer.ObserveFetch(strategy, outcome, elapsed)
}

// validate applies the success rule: status in [200,399] and a non-empty
// body. A zero status means the strategy does not report one.
func validate(p Page) error {
	if p.StatusCode != 0 && (p.StatusCode < 200 || p.StatusCode > 399) {
		return &Error{Kind: KindHTTPStatus, StatusCode: p.StatusCode}
	}
	if strings.TrimSpace(p.HTML) == "" {
		return &Error{Kind: KindEmptyBody}
	}
	return nil
}
