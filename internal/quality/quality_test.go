package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/monsoon/internal/news"
)

func paragraphText(words int) string {
	var lines []string
	for i := 0; i < words/10; i++ {
		lines = append(lines, strings.TrimSpace(strings.Repeat("flood ", 9))+" line"+strings.Repeat("x", i))
	}
	return strings.Join(lines, "\n")
}

func TestScoreShortFallbackIsLow(t *testing.T) {
	a := news.Article{
		Title:            "Rain alert",
		Text:             "Light rain expected in parts of the district on Tuesday evening says weather office today",
		Language:         "en",
		ExtractionMethod: news.MethodFallback,
	}
	score, tier := Score(a)
	assert.InDelta(t, 0.3195, score, 1e-9)
	assert.Equal(t, news.TierLow, tier)
}

func TestScoreShortTextNeverLeavesLowTier(t *testing.T) {
	a := news.Article{
		Title:            "Rain alert",
		Text:             "Light rain expected in parts of the district on Tuesday evening says weather office today",
		Language:         "en",
		ExtractionMethod: news.MethodPrimary,
	}
	_, tier := Score(a)
	assert.Equal(t, news.TierLow, tier)
}

func TestScoreLongPrimaryIsHigh(t *testing.T) {
	text := paragraphText(300)
	require.Len(t, strings.Fields(text), 300)

	a := news.Article{
		Title:            "Kerala floods",
		Text:             text,
		Language:         "ml",
		ExtractionMethod: news.MethodPrimary,
	}
	score, tier := Score(a)
	assert.InDelta(t, 0.74, score, 1e-9)
	assert.Equal(t, news.TierHigh, tier)
}

func TestScoreTierMatchesThresholds(t *testing.T) {
	for words := 0; words <= 600; words += 10 {
		for _, method := range []news.ExtractionMethod{news.MethodPrimary, news.MethodFallback} {
			a := news.Article{Text: paragraphText(words), ExtractionMethod: method, Language: "en", Title: "t"}
			score, tier := Score(a)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
			assert.Equal(t, news.TierFromScore(score), tier)

			again, _ := Score(a)
			assert.Equal(t, score, again)
		}
	}
}

func TestScoreGrowsWithLength(t *testing.T) {
	prev := -1.0
	for words := 10; words <= 700; words += 10 {
		score, _ := Score(news.Article{Text: paragraphText(words), ExtractionMethod: news.MethodPrimary})
		assert.GreaterOrEqual(t, score, prev)
		prev = score
	}
}

func TestBoilerplateRatio(t *testing.T) {
	text := "Read more here\n" +
		"Officials said the river crossed the danger mark overnight.\n" +
		"Officials said the river crossed the danger mark overnight.\n" +
		"Subscribe to our newsletter for daily monsoon updates and alerts."
	assert.InDelta(t, 0.75, BoilerplateRatio(text), 1e-9)
	assert.Equal(t, 1.0, BoilerplateRatio(""))
}

func TestApply(t *testing.T) {
	a := news.Article{Text: paragraphText(100), ExtractionMethod: news.MethodFallback}
	Apply(&a)
	score, tier := Score(a)
	assert.Equal(t, score, a.QualityScore)
	assert.Equal(t, tier, a.QualityTier)
}
