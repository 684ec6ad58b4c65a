package aggregate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/monsoon/internal/news"
)

func batches() []news.RegionBatch {
	at := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	mk := func(region, url string, score float64) news.Article {
		return news.Article{
			URL: url, Region: region, Title: url, Text: "text", Language: "en",
			QualityScore: score, QualityTier: news.TierFromScore(score), ExtractedAt: at,
		}
	}
	return []news.RegionBatch{
		{
			Region: "kerala",
			Date:   at,
			Articles: []news.Article{
				mk("kerala", "https://k/1", 0.5),
				mk("kerala", "https://k/2", 0.9),
				mk("kerala", "https://k/3", 0.1),
			},
			Outcomes: []news.Outcome{
				{URL: "https://k/1", Strategy: "http"},
				{URL: "https://k/2", Strategy: "browser_a"},
				{URL: "https://k/3", Strategy: "http"},
				{URL: "https://k/2?x", Strategy: "http", DuplicateOf: "https://k/2"},
			},
			// deliberately wrong: Aggregate must not trust it
			Stats:   news.ExtractionStats{TotalCandidates: 99},
			Skipped: 2,
		},
		{
			Region:   "assam",
			Date:     at,
			Failure:  "no candidate list",
			Articles: nil,
		},
		{
			Region: "goa",
			Date:   at,
			Articles: []news.Article{
				mk("goa", "https://g/1", 0.75),
			},
			Outcomes: []news.Outcome{
				{URL: "https://g/1", Strategy: "http"},
				{URL: "https://g/2", Strategy: "failed", FetchError: "timeout"},
			},
			Skipped: 1,
		},
	}
}

func TestAggregatePartitionsPreserveRegionOrder(t *testing.T) {
	res := Aggregate(batches())

	assert.Equal(t, []string{"https://k/2", "https://g/1"}, urlsOf(res.Tiers[news.TierHigh]))
	assert.Equal(t, []string{"https://k/1"}, urlsOf(res.Tiers[news.TierMedium]))
	assert.Equal(t, []string{"https://k/3"}, urlsOf(res.Tiers[news.TierLow]))
	assert.Equal(t, []string{"https://k/2", "https://g/1", "https://k/1"}, urlsOf(res.Combined))
	assert.Equal(t, []string{"https://k/1", "https://k/2", "https://k/3", "https://g/1"}, urlsOf(res.All))
}

func TestAggregateRecomputesStats(t *testing.T) {
	res := Aggregate(batches())

	assert.Equal(t, 6, res.Stats.TotalCandidates)
	assert.Equal(t, 5, res.Stats.FetchedOK)
	assert.Equal(t, 1, res.Stats.FetchFailed)
	assert.Equal(t, 1, res.Stats.DuplicatesRemoved)
	assert.Equal(t, map[news.Tier]int{news.TierHigh: 2, news.TierMedium: 1, news.TierLow: 1}, res.Stats.ByTier)
	assert.Equal(t, map[string]int{"en": 4}, res.Stats.ByLanguage)
	assert.Equal(t, []string{"assam"}, res.Stats.FailedRegions)
	assert.Equal(t, 3, res.Stats.Skipped)
	assert.Equal(t, 2, res.RegionStats["kerala"].Skipped)
	assert.Equal(t, 1, res.RegionStats["goa"].Skipped)
	assert.Zero(t, res.RegionStats["assam"].Skipped)

	require.Contains(t, res.RegionStats, "kerala")
	assert.Equal(t, 4, res.RegionStats["kerala"].TotalCandidates)
	assert.Equal(t, []string{"assam"}, res.RegionStats["assam"].FailedRegions)
	assert.Equal(t, 1, res.RegionStats["goa"].FetchFailed)
}

func TestAggregateIsDeterministic(t *testing.T) {
	first, err := json.Marshal(Aggregate(batches()))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(Aggregate(batches()))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestAggregateEmpty(t *testing.T) {
	res := Aggregate(nil)
	data, err := json.Marshal(res.Tiers)
	require.NoError(t, err)
	assert.JSONEq(t, `{"high":[],"medium":[],"low":[]}`, string(data))
	assert.Empty(t, res.Combined)
	assert.Equal(t, 0, res.Stats.TotalCandidates)
}

func urlsOf(articles []news.Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.URL)
	}
	return out
}
