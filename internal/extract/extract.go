// Package extract turns fetched HTML into article records. A readability
// pass runs first; when it yields too little text a tag-based pass over
// the page's paragraphs runs and the longer usable result is kept.
package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/deusflow/monsoon/internal/fetch"
	"github.com/deusflow/monsoon/internal/langid"
	"github.com/deusflow/monsoon/internal/news"
)

const (
	// MinPrimaryWords is the readability result size below which the
	// fallback pass runs.
	MinPrimaryWords = 50
	// MinUsableWords is the smallest text kept as an article.
	MinUsableWords = 10
)

var (
	ErrFetchFailed     = errors.New("fetch failed")
	ErrNoUsableContent = errors.New("no usable content")
)

type Options struct {
	MinPrimaryWords int
	MinUsableWords  int
	Now             func() time.Time
	Logger          *slog.Logger
}

type Extractor struct {
	opts   Options
	logger *slog.Logger
}

func New(opts Options) *Extractor {
	if opts.MinPrimaryWords <= 0 {
		opts.MinPrimaryWords = MinPrimaryWords
	}
	if opts.MinUsableWords <= 0 {
		opts.MinUsableWords = MinUsableWords
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{opts: opts, logger: logger.With("component", "extractor")}
}

type candidate struct {
	title  string
	text   string
	words  int
	method news.ExtractionMethod
}

// Extract builds an article from a fetch result. It returns ErrFetchFailed
// when no strategy succeeded and ErrNoUsableContent when neither pass found
// enough text. The returned article is not scored yet.
func (e *Extractor) Extract(res fetch.Result, cand news.CandidateURL) (*news.Article, error) {
	if !res.OK() {
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetchFailed, res.Err)
		}
		return nil, ErrFetchFailed
	}

	pageURL := res.FinalURL
	if pageURL == "" {
		pageURL = cand.URL
	}

	primary := e.primary(res.HTML, pageURL)
	chosen := primary
	var fallback candidate

	if primary.words < e.opts.MinPrimaryWords {
		fallback = e.fallback(res.HTML)
		switch {
		case fallback.words >= e.opts.MinUsableWords && fallback.words >= primary.words:
			chosen = fallback
		case primary.words >= e.opts.MinUsableWords:
			chosen = primary
		default:
			e.logger.Debug("no usable content", "url", cand.URL,
				"primary_words", primary.words, "fallback_words", fallback.words)
			return nil, ErrNoUsableContent
		}
	}

	title := firstNonEmpty(chosen.title, primary.title, fallback.title, cand.Title)
	lang, conf := langid.Detect(title + "\n" + chosen.text)

	normalized := news.CanonicalURL(cand.URL)
	article := &news.Article{
		ID:               news.ArticleID(normalized, title),
		URL:              cand.URL,
		FinalURL:         res.FinalURL,
		NormalizedURL:    normalized,
		Region:           cand.Region,
		DisasterType:     cand.DisasterType,
		SourceHint:       cand.SourceHint,
		Title:            title,
		Text:             chosen.text,
		WordCount:        chosen.words,
		Language:         lang,
		ExtractionMethod: chosen.method,
		FetchStrategy:    res.Strategy,
		ExtractedAt:      e.opts.Now().UTC(),
	}
	e.logger.Debug("extracted", "url", cand.URL, "method", chosen.method,
		"words", chosen.words, "language", lang, "confidence", conf)
	return article, nil
}

func (e *Extractor) primary(html, pageURL string) candidate {
	c := candidate{method: news.MethodPrimary}
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return c
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		e.logger.Debug("readability failed", "url", pageURL, "error", err)
		return c
	}
	c.title = cleanTitle(article.Title)
	c.text = cleanText(article.TextContent)
	c.words = countWords(c.text)
	return c
}

func (e *Extractor) fallback(html string) candidate {
	c := candidate{method: news.MethodFallback}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return c
	}
	title, text := fallbackExtract(doc)
	c.title = title
	c.text = cleanText(text)
	c.words = countWords(c.text)
	return c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
