package candidates

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/deusflow/monsoon/internal/news"
)

// LoadFeed reads candidates from a saved RSS or Atom document, such as a
// Google News search feed.
func LoadFeed(path, region, disaster string, date time.Time) ([]news.CandidateURL, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open candidate feed: %w", err)
	}
	defer f.Close()

	feed, err := gofeed.NewParser().Parse(f)
	if err != nil {
		return nil, 0, fmt.Errorf("parse candidate feed: %w", err)
	}

	var out []news.CandidateURL
	skipped := 0
	for _, item := range feed.Items {
		link := item.Link
		if link == "" && strings.HasPrefix(item.GUID, "http") {
			link = item.GUID
		}
		source := ""
		if item.Author != nil {
			source = item.Author.Name
		}
		if source == "" {
			source = news.Host(link)
		}
		out = collect(out, &skipped, news.CandidateURL{
			Region:         region,
			URL:            strings.TrimSpace(link),
			DiscoveredDate: date,
			SourceHint:     source,
			Title:          strings.TrimSpace(item.Title),
			DisasterType:   disaster,
		})
	}

	if len(out) == 0 {
		return nil, skipped, ErrEmptyList
	}
	return out, skipped, nil
}
