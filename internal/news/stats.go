package news

// ExtractionStats summarises a batch or a whole run. It is always rebuilt
// from the outcomes and final articles with ComputeStats. Skipped counts
// input rows that never became candidates and is filled in by the caller.
type ExtractionStats struct {
	TotalCandidates   int            `json:"total_candidates"`
	Skipped           int            `json:"skipped"`
	FetchedOK         int            `json:"fetched_ok"`
	FetchFailed       int            `json:"fetch_failed"`
	Unusable          int            `json:"unusable"`
	DuplicatesRemoved int            `json:"duplicates_removed"`
	ByTier            map[Tier]int   `json:"by_tier"`
	ByLanguage        map[string]int `json:"by_language"`
	ByRegion          map[string]int `json:"by_region,omitempty"`
	ByStrategy        map[string]int `json:"by_strategy,omitempty"`
	FetchErrors       map[string]int `json:"fetch_errors,omitempty"`
	FailedRegions     []string       `json:"failed_regions,omitempty"`
}

// ComputeStats derives statistics by scanning every outcome and every
// retained article.
func ComputeStats(outcomes []Outcome, articles []Article) ExtractionStats {
	stats := ExtractionStats{
		TotalCandidates: len(outcomes),
		ByTier:          make(map[Tier]int, len(Tiers)),
		ByLanguage:      map[string]int{},
		ByRegion:        map[string]int{},
		ByStrategy:      map[string]int{},
		FetchErrors:     map[string]int{},
	}
	for _, t := range Tiers {
		stats.ByTier[t] = 0
	}

	for _, o := range outcomes {
		if o.Strategy != "" {
			stats.ByStrategy[o.Strategy]++
		}
		if !o.Fetched() {
			stats.FetchFailed++
			if o.FetchError != "" {
				stats.FetchErrors[o.FetchError]++
			}
			continue
		}
		stats.FetchedOK++
		if o.Unusable {
			stats.Unusable++
		}
		if o.DuplicateOf != "" {
			stats.DuplicatesRemoved++
		}
	}

	for _, a := range articles {
		stats.ByTier[a.QualityTier]++
		lang := a.Language
		if lang == "" {
			lang = LanguageUnknown
		}
		stats.ByLanguage[lang]++
		stats.ByRegion[a.Region]++
	}
	return stats
}
