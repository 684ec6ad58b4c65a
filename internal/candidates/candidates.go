// Package candidates loads the per-region, per-day link lists produced by
// the search stage:
//
//	<base>/<states|union-territories>/<region>/<Disaster>/YYYY/MM/DD/results.csv
//
// A results.xml RSS/Atom feed in the same folder is used when no CSV exists.
package candidates

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/deusflow/monsoon/internal/news"
)

// RegionTypes are the top-level folders under the data directory.
var RegionTypes = []string{"states", "union-territories"}

const (
	csvName  = "results.csv"
	feedName = "results.xml"
)

var (
	// ErrNoInput means not a single candidate list exists for the request.
	ErrNoInput = errors.New("no candidate input found")
	// ErrEmptyList marks a list file without usable links.
	ErrEmptyList = errors.New("candidate list is empty")
	// ErrMissingList marks a region folder without a list for the date.
	ErrMissingList = errors.New("candidate list missing")
)

// List is the candidate set for one region and date. Err is set when the
// list could not be used; the region then fails without affecting others.
type List struct {
	Region     string
	RegionType string
	Date       time.Time
	Path       string
	Candidates []news.CandidateURL
	Skipped    int // rows without a valid http(s) link
	Err        error
}

// Discover finds the lists for every date under baseDir. With region set,
// only that region is considered. Lists come back ordered by date, region
// type and region name. ErrNoInput is returned when no list file exists.
func Discover(baseDir, disaster string, dates []time.Time, region string) ([]List, error) {
	type regionDir struct{ typ, name string }
	var regions []regionDir

	for _, typ := range RegionTypes {
		entries, err := os.ReadDir(filepath.Join(baseDir, typ))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", typ, err)
		}
		for _, e := range entries {
			if !e.IsDir() || (region != "" && e.Name() != region) {
				continue
			}
			regions = append(regions, regionDir{typ: typ, name: e.Name()})
		}
	}

	var lists []List
	found := 0
	for _, date := range dates {
		for _, r := range regions {
			dir := filepath.Join(baseDir, r.typ, r.name, disaster,
				date.Format("2006"), date.Format("01"), date.Format("02"))
			l := List{Region: r.name, RegionType: r.typ, Date: date}
			l.Path, l.Err = locate(dir)
			if l.Err == nil {
				found++
				l.Candidates, l.Skipped, l.Err = Load(l.Path, r.name, disaster, date)
			}
			lists = append(lists, l)
		}
	}

	if found == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoInput, baseDir)
	}
	return lists, nil
}

func locate(dir string) (string, error) {
	for _, name := range []string{csvName, feedName} {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", ErrMissingList
}

// Load reads a list file, dispatching on its extension.
func Load(path, region, disaster string, date time.Time) ([]news.CandidateURL, int, error) {
	switch filepath.Ext(path) {
	case ".xml", ".rss", ".atom":
		return LoadFeed(path, region, disaster, date)
	default:
		return LoadCSV(path, region, disaster, date)
	}
}

// collect validates a link and appends it. Duplicate links are kept: the
// deduplicator is responsible for them.
func collect(out []news.CandidateURL, skipped *int, c news.CandidateURL) []news.CandidateURL {
	if !news.ValidCandidate(c.URL) {
		*skipped++
		return out
	}
	return append(out, c)
}
