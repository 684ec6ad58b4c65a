// Package quality scores extracted articles.
//
// The score is a weighted sum of five signals, each normalised to [0,1]:
//
//	length       min(words, LengthCap) / LengthCap          WeightLength
//	title        1 if the title is non-empty                WeightTitle
//	language     1 if the language is known                 WeightLanguage
//	method       1 for primary, FallbackFactor for fallback WeightMethod
//	boilerplate  1 - share of boilerplate lines             WeightBoilerplate
//
// The non-length weights sum to less than news.MediumThreshold, so an article
// can only leave the low tier on the strength of its text.
package quality

import (
	"math"
	"strings"

	"github.com/deusflow/monsoon/internal/news"
)

const (
	LengthCap         = 500
	WeightLength      = 0.65
	WeightTitle       = 0.10
	WeightLanguage    = 0.10
	WeightMethod      = 0.10
	WeightBoilerplate = 0.05

	FallbackFactor = 0.5

	// ShortLineWords is the word count under which a line counts as
	// boilerplate.
	ShortLineWords = 5
)

// junkMarkers flag navigation and consent text left over by extraction.
var junkMarkers = []string{
	"cookie", "privacy policy", "terms of service", "subscribe", "sign up",
	"log in", "login", "advertisement", "click here", "read more",
	"also read", "follow us", "download the app", "all rights reserved",
}

// Score returns the quality score and tier of a. It depends only on a's
// fields.
func Score(a news.Article) (float64, news.Tier) {
	words := a.WordCount
	if words == 0 {
		words = len(strings.Fields(a.Text))
	}
	length := math.Min(float64(words), LengthCap) / LengthCap

	var title, lang float64
	if strings.TrimSpace(a.Title) != "" {
		title = 1
	}
	if a.Language != "" && a.Language != news.LanguageUnknown {
		lang = 1
	}

	method := FallbackFactor
	if a.ExtractionMethod == news.MethodPrimary {
		method = 1
	}

	score := WeightLength*length +
		WeightTitle*title +
		WeightLanguage*lang +
		WeightMethod*method +
		WeightBoilerplate*(1-BoilerplateRatio(a.Text))

	score = math.Round(math.Max(0, math.Min(1, score))*1e4) / 1e4
	return score, news.TierFromScore(score)
}

// Apply scores a and stores the result on it.
func Apply(a *news.Article) {
	a.QualityScore, a.QualityTier = Score(*a)
}

// BoilerplateRatio is the share of non-empty lines that are short, repeat an
// earlier line, or carry a junk marker. Empty text is all boilerplate.
func BoilerplateRatio(text string) float64 {
	seen := make(map[string]bool)
	total, junk := 0, 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		total++
		key := strings.ToLower(line)
		switch {
		case len(strings.Fields(line)) < ShortLineWords, seen[key], isJunk(key):
			junk++
		}
		seen[key] = true
	}
	if total == 0 {
		return 1
	}
	return float64(junk) / float64(total)
}

func isJunk(lower string) bool {
	for _, m := range junkMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
