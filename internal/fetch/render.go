package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Renderer loads a URL in a browser and returns the rendered DOM. It is
// injected into the fetcher so tests can replace it.
type Renderer interface {
	Render(ctx context.Context, url string) (Page, error)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(ctx context.Context, url string) (Page, error)

func (f RenderFunc) Render(ctx context.Context, url string) (Page, error) { return f(ctx, url) }

// RenderStrategy exposes a Renderer as a fetch strategy.
type RenderStrategy struct {
	name     string
	timeout  time.Duration
	renderer Renderer
}

func NewRenderStrategy(name string, timeout time.Duration, r Renderer) *RenderStrategy {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &RenderStrategy{name: name, timeout: timeout, renderer: r}
}

func (s *RenderStrategy) Name() string           { return s.name }
func (s *RenderStrategy) Timeout() time.Duration { return s.timeout }

func (s *RenderStrategy) Fetch(ctx context.Context, url string) (Page, error) {
	p, err := s.renderer.Render(ctx, url)
	if err != nil {
		return Page{}, classify(err)
	}
	if p.FinalURL == "" {
		p.FinalURL = url
	}
	return p, nil
}

// documentStatus keeps the HTTP status of the first document response a
// tab receives. Redirect hops are not reported as responses, and frames
// load after the main document, so the first one belongs to the page.
type documentStatus struct {
	code atomic.Int64
}

// observe records status if resourceType is a document and nothing was
// recorded yet. It reports whether the status was taken.
func (d *documentStatus) observe(resourceType string, status int64) bool {
	if resourceType != string(network.ResourceTypeDocument) || status <= 0 {
		return false
	}
	return d.code.CompareAndSwap(0, status)
}

func (d *documentStatus) get() int { return int(d.code.Load()) }

// RenderOptions configures a browser renderer.
type RenderOptions struct {
	UserAgent          string
	ConcurrentSessions int
	// CaptureDelay is how long to let scripts run after the document is
	// ready before the DOM is captured.
	CaptureDelay time.Duration
	MaxBodyBytes int64
	Logger       *slog.Logger
}

func (o *RenderOptions) defaults() {
	if o.ConcurrentSessions <= 0 {
		o.ConcurrentSessions = 2
	}
	if o.CaptureDelay <= 0 {
		o.CaptureDelay = 1500 * time.Millisecond
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 5 * 1024 * 1024
	}
	if strings.TrimSpace(o.UserAgent) == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// ChromedpRenderer renders pages in headless Chrome through chromedp. Each
// render gets its own browser context.
type ChromedpRenderer struct {
	opts      RenderOptions
	semaphore chan struct{}
	logger    *slog.Logger
}

func NewChromedpRenderer(opts RenderOptions) *ChromedpRenderer {
	opts.defaults()
	return &ChromedpRenderer{
		opts:      opts,
		semaphore: make(chan struct{}, opts.ConcurrentSessions),
		logger:    opts.Logger.With("component", "chromedp"),
	}
}

func (r *ChromedpRenderer) Render(ctx context.Context, url string) (Page, error) {
	select {
	case r.semaphore <- struct{}{}:
		defer func() { <-r.semaphore }()
	case <-ctx.Done():
		return Page{}, ctx.Err()
	}

	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(r.opts.UserAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOpts...)
	defer allocCancel()

	chromeCtx, chromeCancel := chromedp.NewContext(allocCtx)
	defer chromeCancel()

	var status documentStatus
	chromedp.ListenTarget(chromeCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Response != nil {
			status.observe(string(e.Type), e.Response.Status)
		}
	})

	var html, finalURL string
	start := time.Now()
	err := chromedp.Run(chromeCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.opts.CaptureDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		if ctx.Err() != nil {
			return Page{}, fmt.Errorf("chromedp run: %w", ctx.Err())
		}
		return Page{}, fmt.Errorf("chromedp run: %w", err)
	}

	if int64(len(html)) > r.opts.MaxBodyBytes {
		html = html[:r.opts.MaxBodyBytes]
	}
	r.logger.Debug("render complete", "url", url, "final_url", finalURL, "status", status.get(),
		"html_bytes", len(html), "latency_ms", time.Since(start).Milliseconds())
	return Page{HTML: html, FinalURL: finalURL, StatusCode: status.get()}, nil
}
