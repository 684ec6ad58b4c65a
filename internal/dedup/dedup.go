// Package dedup removes duplicate articles from a single region/date batch.
//
// Three passes run in order: identical URL, identical match key (see
// news.MatchKey) and near-duplicate content. The first two keep the first
// occurrence. The content pass keeps the higher quality score; equal scores
// keep the earlier ExtractedAt, then the earlier position.
package dedup

import (
	"strings"
	"unicode"

	"github.com/deusflow/monsoon/internal/news"
)

const (
	DefaultThreshold         = 0.85
	DefaultMinTextSimilarity = 0.30

	// minTitleTokens keeps one- and two-word headlines out of the title rule.
	minTitleTokens = 3
)

// Options tunes the near-duplicate pass.
type Options struct {
	// Threshold is the title token overlap coefficient, or on its own the
	// text token Jaccard similarity, at which articles are the same story.
	Threshold float64
	// MinTextSimilarity is the text similarity required alongside a title
	// match.
	MinTextSimilarity float64
}

func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, MinTextSimilarity: DefaultMinTextSimilarity}
}

// Report is the outcome of one deduplication run.
type Report struct {
	Kept       []news.Article
	Duplicates []news.Article // IsDuplicateOf points at a kept URL
	// DuplicateIndex holds the input position of each entry in Duplicates.
	DuplicateIndex []int
	Removed        int
}

type Deduplicator struct {
	opts Options
}

func New(opts Options) *Deduplicator {
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		opts.Threshold = DefaultThreshold
	}
	if opts.MinTextSimilarity < 0 || opts.MinTextSimilarity > 1 {
		opts.MinTextSimilarity = DefaultMinTextSimilarity
	}
	return &Deduplicator{opts: opts}
}

// Deduplicate runs with default options and returns the kept articles.
func Deduplicate(articles []news.Article) []news.Article {
	return New(DefaultOptions()).Run(articles).Kept
}

func (d *Deduplicator) Deduplicate(articles []news.Article) []news.Article {
	return d.Run(articles).Kept
}

// Run deduplicates articles. Kept preserves input order. The input slice
// is not modified.
func (d *Deduplicator) Run(articles []news.Article) Report {
	n := len(articles)
	dupOf := make([]int, n)
	for i := range dupOf {
		dupOf[i] = -1
	}

	exact := make(map[string]int, n)
	for i, a := range articles {
		if j, ok := exact[a.URL]; ok {
			dupOf[i] = j
			continue
		}
		exact[a.URL] = i
	}

	keys := make(map[string]int, n)
	for i, a := range articles {
		if dupOf[i] >= 0 {
			continue
		}
		own := matchKeys(a)
		for _, k := range own {
			if j, ok := keys[k]; ok {
				dupOf[i] = j
				break
			}
		}
		if dupOf[i] >= 0 {
			continue
		}
		for _, k := range own {
			keys[k] = i
		}
	}

	d.nearDuplicates(articles, dupOf)

	report := Report{}
	for i, a := range articles {
		root := i
		for dupOf[root] >= 0 {
			root = dupOf[root]
		}
		if root == i {
			report.Kept = append(report.Kept, a)
			continue
		}
		a.IsDuplicateOf = articles[root].URL
		report.Duplicates = append(report.Duplicates, a)
		report.DuplicateIndex = append(report.DuplicateIndex, i)
	}
	report.Removed = len(report.Duplicates)
	return report
}

func (d *Deduplicator) nearDuplicates(articles []news.Article, dupOf []int) {
	titles := make([]map[string]struct{}, len(articles))
	texts := make([]map[string]struct{}, len(articles))
	for i, a := range articles {
		if dupOf[i] >= 0 {
			continue
		}
		titles[i] = tokenSet(a.Title)
		texts[i] = tokenSet(a.Text)
	}

	for i := range articles {
		if dupOf[i] >= 0 {
			continue
		}
		for j := i + 1; j < len(articles); j++ {
			if dupOf[j] >= 0 {
				continue
			}
			if !d.similar(titles[i], titles[j], texts[i], texts[j]) {
				continue
			}
			if prefer(articles[i], articles[j]) {
				dupOf[j] = i
				continue
			}
			dupOf[i] = j
			break
		}
	}
}

func (d *Deduplicator) similar(titleA, titleB, textA, textB map[string]struct{}) bool {
	text := jaccard(textA, textB)
	if text >= d.opts.Threshold {
		return true
	}
	if len(titleA) < minTitleTokens || len(titleB) < minTitleTokens {
		return false
	}
	return overlap(titleA, titleB) >= d.opts.Threshold && text >= d.opts.MinTextSimilarity
}

// prefer reports whether a, which comes first in the batch, survives
// against b.
func prefer(a, b news.Article) bool {
	if a.QualityScore != b.QualityScore {
		return a.QualityScore > b.QualityScore
	}
	if !a.ExtractedAt.Equal(b.ExtractedAt) {
		return a.ExtractedAt.Before(b.ExtractedAt)
	}
	return true
}

func matchKeys(a news.Article) []string {
	keys := []string{news.MatchKey(a.URL)}
	if a.FinalURL != "" {
		if k := news.MatchKey(a.FinalURL); k != keys[0] {
			keys = append(keys, k)
		}
	}
	return keys
}

// Similarity is the token Jaccard similarity of two strings.
func Similarity(a, b string) float64 {
	return jaccard(tokenSet(a), tokenSet(b))
}

// TitleOverlap is the overlap coefficient of the title tokens: shared
// tokens over the size of the smaller set. A headline reworded by one
// word between outlets still scores 0.9.
func TitleOverlap(a, b string) float64 {
	return overlap(tokenSet(a), tokenSet(b))
}

func overlap(a, b map[string]struct{}) float64 {
	smaller := min(len(a), len(b))
	if smaller == 0 {
		return 0
	}
	return float64(intersection(a, b)) / float64(smaller)
}

func intersection(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for t := range a {
		if _, ok := b[t]; ok {
			n++
		}
	}
	return n
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := intersection(a, b)
	if inter == 0 {
		return 0
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		set[f] = struct{}{}
	}
	return set
}
