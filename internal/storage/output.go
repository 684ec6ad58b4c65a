package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/deusflow/monsoon/internal/aggregate"
	"github.com/deusflow/monsoon/internal/news"
)

// File names inside a day folder.
const (
	CombinedFile    = "articles_combined.json"
	AllFile         = "articles_all.json"
	StatsFile       = "extraction_stats.json"
	RegionStatsFile = "region_stats.json"
)

// TierFile returns the spare-folder file for a tier, e.g.
// articles_high_quality.json.
func TierFile(t news.Tier) string {
	return fmt.Sprintf("articles_%s_quality.json", t)
}

// DayStats is the content of extraction_stats.json.
type DayStats struct {
	ExtractionDate string               `json:"extraction_date"`
	GeneratedAt    time.Time            `json:"generated_at"`
	TotalArticles  int                  `json:"total_articles"`
	Stats          news.ExtractionStats `json:"stats"`
}

// Paths lists what WriteDay produced.
type Paths struct {
	MainDir  string `json:"main_dir"`
	SpareDir string `json:"spare_dir"`
	Combined string `json:"combined"`
	Stats    string `json:"stats"`
}

type outputFile struct {
	path  string
	value interface{}
}

// Writer lays out a day's results as JSON files. The main folder holds
// the combined high+medium set; the spare folder holds everything else.
type Writer struct {
	mainDir  string
	spareDir string
	now      func() time.Time
}

func NewWriter(mainDir, spareDir string) *Writer {
	return &Writer{mainDir: mainDir, spareDir: spareDir, now: time.Now}
}

// WriteDay writes every output file for date. Files are replaced
// atomically so a crashed run never leaves half-written JSON.
func (w *Writer) WriteDay(date time.Time, res aggregate.Result) (Paths, error) {
	day := date.Format("2006-01-02")
	p := Paths{
		MainDir:  filepath.Join(w.mainDir, day),
		SpareDir: filepath.Join(w.spareDir, day),
	}
	p.Combined = filepath.Join(p.MainDir, CombinedFile)
	p.Stats = filepath.Join(p.SpareDir, StatsFile)

	files := []outputFile{
		{p.Combined, res.Combined},
		{filepath.Join(p.SpareDir, AllFile), res.All},
	}
	for _, t := range news.Tiers {
		files = append(files, outputFile{filepath.Join(p.SpareDir, TierFile(t)), res.Tiers[t]})
	}
	files = append(files,
		outputFile{p.Stats, DayStats{
			ExtractionDate: day,
			GeneratedAt:    w.now().UTC(),
			TotalArticles:  len(res.All),
			Stats:          res.Stats,
		}},
		outputFile{filepath.Join(p.SpareDir, RegionStatsFile), res.RegionStats},
	)

	for _, f := range files {
		if err := writeJSON(f.path, f.value); err != nil {
			return p, err
		}
	}
	return p, nil
}

// ReadArticles loads an article file written by WriteDay.
func ReadArticles(path string) ([]news.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read articles: %w", err)
	}
	var articles []news.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal articles: %w", err)
	}
	return articles, nil
}

func writeJSON(path string, v interface{}) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
