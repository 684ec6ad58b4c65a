package candidates

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/deusflow/monsoon/internal/news"
)

var columnNames = map[string][]string{
	"link":   {"link", "url", "article_url"},
	"title":  {"title", "headline"},
	"source": {"source", "publisher", "site"},
	"date":   {"date", "published", "published_at"},
}

// LoadCSV reads a results.csv. The header must name a link column; title,
// source and date columns are optional.
func LoadCSV(path, region, disaster string, date time.Time) ([]news.CandidateURL, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open candidate list: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, region, disaster, date)
}

func ReadCSV(r io.Reader, region, disaster string, date time.Time) ([]news.CandidateURL, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, ErrEmptyList
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}

	cols := make(map[string]int, len(columnNames))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for key, names := range columnNames {
			if _, ok := cols[key]; ok {
				continue
			}
			for _, n := range names {
				if h == n {
					cols[key] = i
				}
			}
		}
	}
	linkCol, ok := cols["link"]
	if !ok {
		return nil, 0, fmt.Errorf("csv has no link column (header %v)", header)
	}

	field := func(row []string, key string) string {
		i, ok := cols[key]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []news.CandidateURL
	skipped := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read csv row: %w", err)
		}
		if linkCol >= len(row) {
			skipped++
			continue
		}
		source := field(row, "source")
		link := strings.TrimSpace(row[linkCol])
		if source == "" {
			source = news.Host(link)
		}
		out = collect(out, &skipped, news.CandidateURL{
			Region:         region,
			URL:            link,
			DiscoveredDate: date,
			SourceHint:     source,
			Title:          field(row, "title"),
			DisasterType:   disaster,
		})
	}

	if len(out) == 0 {
		return nil, skipped, ErrEmptyList
	}
	return out, skipped, nil
}
