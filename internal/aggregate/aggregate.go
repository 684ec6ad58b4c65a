// Package aggregate merges finished region batches into day-level,
// tier-partitioned collections.
package aggregate

import (
	"github.com/deusflow/monsoon/internal/news"
)

// Result is everything a run emits for one date.
type Result struct {
	Tiers    map[news.Tier][]news.Article `json:"tiers"`
	Combined []news.Article              `json:"combined"` // high, then medium
	All      []news.Article              `json:"all"`
	Stats    news.ExtractionStats        `json:"stats"`
	// RegionStats is keyed by region and rebuilt from the batch outcomes.
	RegionStats map[string]news.ExtractionStats `json:"region_stats"`
}

// Aggregate merges batches in the order given. Articles keep their batch
// order inside every partition; nothing is re-sorted by score. Statistics
// are recomputed from scratch over all outcomes and articles.
func Aggregate(batches []news.RegionBatch) Result {
	res := Result{
		Tiers:       make(map[news.Tier][]news.Article, len(news.Tiers)),
		Combined:    []news.Article{},
		All:         []news.Article{},
		RegionStats: make(map[string]news.ExtractionStats, len(batches)),
	}
	for _, t := range news.Tiers {
		res.Tiers[t] = []news.Article{}
	}

	var outcomes []news.Outcome
	var failed []string
	regionFailed := make(map[string]bool)
	regionOutcomes := make(map[string][]news.Outcome)
	regionArticles := make(map[string][]news.Article)
	regionSkipped := make(map[string]int)
	skipped := 0
	var regionOrder []string

	for _, b := range batches {
		if _, ok := regionOutcomes[b.Region]; !ok {
			regionOrder = append(regionOrder, b.Region)
			regionOutcomes[b.Region] = []news.Outcome{}
		}
		if b.Failure != "" {
			failed = append(failed, b.Region)
			regionFailed[b.Region] = true
		}
		outcomes = append(outcomes, b.Outcomes...)
		regionOutcomes[b.Region] = append(regionOutcomes[b.Region], b.Outcomes...)
		regionArticles[b.Region] = append(regionArticles[b.Region], b.Articles...)
		regionSkipped[b.Region] += b.Skipped
		skipped += b.Skipped

		for _, a := range b.Articles {
			res.All = append(res.All, a)
			res.Tiers[a.QualityTier] = append(res.Tiers[a.QualityTier], a)
		}
	}

	res.Combined = append(res.Combined, res.Tiers[news.TierHigh]...)
	res.Combined = append(res.Combined, res.Tiers[news.TierMedium]...)

	res.Stats = news.ComputeStats(outcomes, res.All)
	res.Stats.Skipped = skipped
	res.Stats.FailedRegions = failed
	for _, region := range regionOrder {
		s := news.ComputeStats(regionOutcomes[region], regionArticles[region])
		s.Skipped = regionSkipped[region]
		if regionFailed[region] {
			s.FailedRegions = []string{region}
		}
		res.RegionStats[region] = s
	}
	return res
}
