package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodRenderer renders pages with go-rod. Unlike ChromedpRenderer it keeps
// one browser process for the whole run and opens a tab per render, so it
// must be closed when the run ends.
type RodRenderer struct {
	opts      RenderOptions
	semaphore chan struct{}
	logger    *slog.Logger

	once     sync.Once
	launch   *launcher.Launcher
	browser  *rod.Browser
	startErr error
}

func NewRodRenderer(opts RenderOptions) *RodRenderer {
	opts.defaults()
	return &RodRenderer{
		opts:      opts,
		semaphore: make(chan struct{}, opts.ConcurrentSessions),
		logger:    opts.Logger.With("component", "rod"),
	}
}

func (r *RodRenderer) start() error {
	r.once.Do(func() {
		r.launch = launcher.New().Headless(true).NoSandbox(true).Set("disable-gpu").Set("disable-dev-shm-usage")
		controlURL, err := r.launch.Launch()
		if err != nil {
			r.startErr = fmt.Errorf("launch browser: %w", err)
			return
		}
		browser := rod.New().ControlURL(controlURL)
		if err := browser.Connect(); err != nil {
			r.launch.Kill()
			r.startErr = fmt.Errorf("connect browser: %w", err)
			return
		}
		r.browser = browser
		r.logger.Debug("browser started")
	})
	return r.startErr
}

func (r *RodRenderer) Render(ctx context.Context, url string) (Page, error) {
	select {
	case r.semaphore <- struct{}{}:
		defer func() { <-r.semaphore }()
	case <-ctx.Done():
		return Page{}, ctx.Err()
	}

	if err := r.start(); err != nil {
		return Page{}, err
	}

	tab, err := r.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return Page{}, fmt.Errorf("open tab: %w", err)
	}
	defer func() { _ = tab.Close() }()

	pageCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	page := tab.Context(pageCtx)
	start := time.Now()
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: r.opts.UserAgent}); err != nil {
		return Page{}, r.wrap(ctx, "set user agent", err)
	}

	var status documentStatus
	wait := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Response == nil {
			return false
		}
		return status.observe(string(e.Type), int64(e.Response.Status))
	})
	go wait()
	if err := page.Navigate(url); err != nil {
		return Page{}, r.wrap(ctx, "navigate", err)
	}
	if err := page.WaitLoad(); err != nil {
		return Page{}, r.wrap(ctx, "wait load", err)
	}

	select {
	case <-time.After(r.opts.CaptureDelay):
	case <-ctx.Done():
		return Page{}, ctx.Err()
	}

	html, err := page.HTML()
	if err != nil {
		return Page{}, r.wrap(ctx, "read html", err)
	}
	finalURL := url
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	if int64(len(html)) > r.opts.MaxBodyBytes {
		html = html[:r.opts.MaxBodyBytes]
	}
	r.logger.Debug("render complete", "url", url, "final_url", finalURL, "status", status.get(),
		"html_bytes", len(html), "latency_ms", time.Since(start).Milliseconds())
	return Page{HTML: html, FinalURL: finalURL, StatusCode: status.get()}, nil
}

func (r *RodRenderer) wrap(ctx context.Context, step string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("rod %s: %w", step, ctx.Err())
	}
	return fmt.Errorf("rod %s: %w", step, err)
}

// Close shuts the browser down if it was started.
func (r *RodRenderer) Close() error {
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	if r.launch != nil {
		r.launch.Kill()
	}
	return err
}
