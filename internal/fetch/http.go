package fetch

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"

// HTTPOptions controls the plain HTTP strategy.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
	Headers      map[string]string
	// Client replaces the default client, mostly for tests.
	Client *http.Client
}

// HTTPStrategy fetches pages with a single GET request.
type HTTPStrategy struct {
	client       *http.Client
	timeout      time.Duration
	userAgent    string
	headers      map[string]string
	maxBodyBytes int64
}

func NewHTTPStrategy(opts HTTPOptions) *HTTPStrategy {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 5 * 1024 * 1024
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   4,
				IdleConnTimeout:       90 * time.Second,
				ExpectContinueTimeout: time.Second,
			},
		}
	}

	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &HTTPStrategy{
		client:       client,
		timeout:      opts.Timeout,
		userAgent:    opts.UserAgent,
		headers:      headers,
		maxBodyBytes: opts.MaxBodyBytes,
	}
}

func (s *HTTPStrategy) Name() string           { return StrategyHTTP }
func (s *HTTPStrategy) Timeout() time.Duration { return s.timeout }

func (s *HTTPStrategy) Fetch(ctx context.Context, rawURL string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{}, &Error{Kind: KindConnectionFailed, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,hi;q=0.8,ta;q=0.7")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Page{}, classify(err)
	}
	defer resp.Body.Close()

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 399 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return Page{}, &Error{Kind: KindHTTPStatus, StatusCode: resp.StatusCode}
	}

	body, err := s.readBody(resp)
	if err != nil {
		return Page{}, classify(err)
	}

	return Page{HTML: body, FinalURL: finalURL, StatusCode: resp.StatusCode}, nil
}

// readBody undoes content encoding and converts the body to UTF-8.
func (s *HTTPStrategy) readBody(resp *http.Response) (string, error) {
	var reader io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("gzip decode: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	}

	limited := io.LimitReader(reader, s.maxBodyBytes)
	utf8Reader, err := charset.NewReader(limited, resp.Header.Get("Content-Type"))
	if err != nil {
		utf8Reader = limited
	}

	body, err := io.ReadAll(utf8Reader)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}
