// Package news holds the records that flow through one extraction run:
// candidate links, extracted articles, region batches and their statistics.
package news

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Tier is the quality class derived from an article's score.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Tier boundaries. A score at a boundary belongs to the upper tier.
const (
	HighThreshold   = 0.7
	MediumThreshold = 0.4
)

// Tiers lists every tier from best to worst.
var Tiers = []Tier{TierHigh, TierMedium, TierLow}

// TierFromScore maps a score in [0,1] onto a tier.
func TierFromScore(score float64) Tier {
	switch {
	case score >= HighThreshold:
		return TierHigh
	case score >= MediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// ExtractionMethod records which extractor produced the article text.
type ExtractionMethod string

const (
	MethodPrimary  ExtractionMethod = "primary"
	MethodFallback ExtractionMethod = "fallback"
)

// LanguageUnknown is used when language detection is not confident enough.
const LanguageUnknown = "unknown"

// CandidateURL is one discovered link for a region and date. It is never
// modified by the pipeline.
type CandidateURL struct {
	Region         string    `json:"region"`
	URL            string    `json:"url"`
	DiscoveredDate time.Time `json:"discovered_date"`
	SourceHint     string    `json:"source_hint,omitempty"`
	Title          string    `json:"title,omitempty"`
	DisasterType   string    `json:"disaster_type,omitempty"`
}

// Article is an extracted, scored news story.
type Article struct {
	ID               string           `json:"id"`
	URL              string           `json:"url"`
	FinalURL         string           `json:"final_url,omitempty"`
	NormalizedURL    string           `json:"normalized_url"`
	Region           string           `json:"region"`
	DisasterType     string           `json:"disaster_type,omitempty"`
	SourceHint       string           `json:"source_hint,omitempty"`
	Title            string           `json:"title"`
	Text             string           `json:"text"`
	WordCount        int              `json:"word_count"`
	Language         string           `json:"language"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
	FetchStrategy    string           `json:"fetch_strategy,omitempty"`
	QualityScore     float64          `json:"quality_score"`
	QualityTier      Tier             `json:"quality_tier"`
	IsDuplicateOf    string           `json:"is_duplicate_of,omitempty"`
	ExtractedAt      time.Time        `json:"extracted_at"`
}

// ArticleID builds a stable identifier from the normalized URL and title.
func ArticleID(normalizedURL, title string) string {
	h := sha256.New()
	h.Write([]byte(normalizedURL + "|" + strings.ToLower(strings.TrimSpace(title))))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Outcome is what happened to a single candidate inside a batch.
type Outcome struct {
	URL         string `json:"url"`
	Strategy    string `json:"strategy"`
	FetchError  string `json:"fetch_error,omitempty"`
	Unusable    bool   `json:"unusable,omitempty"`
	DuplicateOf string `json:"duplicate_of,omitempty"`
}

// Fetched reports whether any fetch strategy succeeded.
func (o Outcome) Fetched() bool {
	return o.FetchError == "" && o.Strategy != "failed" && o.Strategy != ""
}

// RegionBatch is the finished work for one region on one date.
type RegionBatch struct {
	Region   string          `json:"region"`
	Date     time.Time       `json:"date"`
	Articles []Article       `json:"articles"`
	Outcomes []Outcome       `json:"outcomes"`
	Stats    ExtractionStats `json:"stats"`
	Failure  string          `json:"failure,omitempty"`
	// Skipped is the number of input rows without a usable link.
	Skipped int `json:"skipped,omitempty"`
}
