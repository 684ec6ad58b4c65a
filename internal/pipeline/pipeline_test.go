package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/monsoon/internal/candidates"
	"github.com/deusflow/monsoon/internal/dedup"
	"github.com/deusflow/monsoon/internal/extract"
	"github.com/deusflow/monsoon/internal/fetch"
	"github.com/deusflow/monsoon/internal/news"
	"github.com/deusflow/monsoon/internal/storage"
)

var day = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

func storyHTML() string {
	var b strings.Builder
	b.WriteString("<html><head><title>Kerala floods: relief camps opened in Ernakulam</title></head><body><article>")
	b.WriteString("<h1>Kerala floods: relief camps opened in Ernakulam</h1>")
	for i := 0; i < 6; i++ {
		fmt.Fprintf(&b, "<p>Continuous rain over the past three days has flooded several low lying areas of the district, update %d. The district collector said that more than four hundred families have been shifted to relief camps and that schools will remain closed until the water level in the Periyar river comes down.</p>", i)
	}
	b.WriteString("</article></body></html>")
	return b.String()
}

const briefHTML = `<html><head><title>Rain alert</title></head><body>
<p>Yellow alert issued for Idukki and Wayanad districts as rain is likely to continue on Wednesday</p>
</body></html>`

type server struct {
	*httptest.Server
	goaHits atomic.Int32
}

func newServer(t *testing.T) *server {
	s := &server{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/story":
			fmt.Fprint(w, storyHTML())
		case "/brief":
			fmt.Fprint(w, briefHTML)
		case "/goa":
			s.goaHits.Add(1)
			fmt.Fprint(w, storyHTML())
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func writeList(t *testing.T, base, region string, links ...string) {
	t.Helper()
	dir := filepath.Join(base, "states", region, "Monsoon", "2025", "07", "01")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := "Link\n" + strings.Join(links, "\n")
	if len(links) > 0 {
		content += "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "results.csv"), []byte(content), 0o644))
}

type statsSink struct{ got []news.ExtractionStats }

func (s *statsSink) RecordStats(st news.ExtractionStats) { s.got = append(s.got, st) }

func newPipeline(t *testing.T, dataDir string, sink StatsRecorder) (*Pipeline, string) {
	t.Helper()
	out := t.TempDir()
	f := fetch.New([]fetch.Strategy{
		fetch.NewHTTPStrategy(fetch.HTTPOptions{Timeout: 5 * time.Second}),
	}, fetch.Options{})
	e := extract.New(extract.Options{})
	w := storage.NewWriter(filepath.Join(out, "main"), filepath.Join(out, "spare"))
	return New(f, e, w, Options{
		DataDir:          dataDir,
		DisasterType:     "Monsoon",
		RegionWorkers:    2,
		FetchConcurrency: 3,
		Dedup:            dedup.DefaultOptions(),
		Metrics:          sink,
	}), out
}

func TestRunEndToEnd(t *testing.T) {
	srv := newServer(t)
	data := t.TempDir()
	writeList(t, data, "kerala",
		srv.URL+"/story?utm_source=twitter",
		srv.URL+"/story?utm_source=whatsapp",
		srv.URL+"/brief",
		srv.URL+"/missing",
		"not-a-link",
	)
	writeList(t, data, "bihar")

	sink := &statsSink{}
	p, out := newPipeline(t, data, sink)

	reports, err := p.Run(context.Background(), Request{Date: day})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	res := reports[0].Result

	require.Len(t, res.All, 2)
	assert.Equal(t, srv.URL+"/story?utm_source=twitter", res.All[0].URL)
	assert.NotEqual(t, news.TierLow, res.All[0].QualityTier)
	assert.Equal(t, srv.URL+"/brief", res.All[1].URL)
	assert.Equal(t, news.TierLow, res.All[1].QualityTier)
	assert.Len(t, res.Combined, 1)

	st := res.Stats
	assert.Equal(t, 4, st.TotalCandidates)
	assert.Equal(t, 1, st.Skipped)
	assert.Equal(t, 1, res.RegionStats["kerala"].Skipped)
	assert.Equal(t, 3, st.FetchedOK)
	assert.Equal(t, 1, st.FetchFailed)
	assert.Equal(t, 1, st.DuplicatesRemoved)
	assert.Equal(t, 1, st.FetchErrors["http_404"])
	assert.Equal(t, []string{"bihar"}, st.FailedRegions)
	assert.Equal(t, 2, res.RegionStats["kerala"].ByRegion["kerala"])

	require.Len(t, sink.got, 1)
	assert.Equal(t, st.TotalCandidates, sink.got[0].TotalCandidates)
	assert.Equal(t, 1, sink.got[0].Skipped)

	combined, err := storage.ReadArticles(filepath.Join(out, "main", "2025-07-01", storage.CombinedFile))
	require.NoError(t, err)
	require.Len(t, combined, 1)
	assert.Equal(t, res.All[0].ID, combined[0].ID)
}

func listOf(region string, cands []news.CandidateURL) candidates.List {
	return candidates.List{Region: region, RegionType: "states", Date: day, Candidates: cands}
}

func TestProcessRegionMarksDuplicateOutcome(t *testing.T) {
	srv := newServer(t)
	p, _ := newPipeline(t, t.TempDir(), nil)

	first := srv.URL + "/story?utm_source=a"
	batch := p.ProcessRegion(context.Background(), listOf("kerala", []news.CandidateURL{
		{Region: "kerala", URL: first},
		{Region: "kerala", URL: srv.URL + "/story?utm_source=b"},
	}))

	require.Len(t, batch.Articles, 1)
	assert.Equal(t, first, batch.Articles[0].URL)
	require.Len(t, batch.Outcomes, 2)
	assert.Empty(t, batch.Outcomes[0].DuplicateOf)
	assert.Equal(t, first, batch.Outcomes[1].DuplicateOf)
	assert.Equal(t, 1, batch.Stats.DuplicatesRemoved)
}

// slowFetcher serves the same page for every URL and holds back the ones
// listed in delay.
type slowFetcher struct {
	html  string
	delay map[string]time.Duration
}

func (f slowFetcher) Fetch(ctx context.Context, url string) fetch.Result {
	if d := f.delay[url]; d > 0 {
		time.Sleep(d)
	}
	return fetch.Result{URL: url, FinalURL: url, Strategy: fetch.StrategyHTTP, HTML: f.html}
}

func TestEqualScoreDuplicateKeepsListOrder(t *testing.T) {
	first := "https://a.example.com/kerala-floods"
	second := "https://b.example.com/news/kerala-floods"
	f := slowFetcher{html: storyHTML(), delay: map[string]time.Duration{first: 150 * time.Millisecond}}
	e := extract.New(extract.Options{})
	p := New(f, e, nil, Options{FetchConcurrency: 2, Dedup: dedup.DefaultOptions()})

	for range 3 {
		batch := p.ProcessRegion(context.Background(), listOf("kerala", []news.CandidateURL{
			{Region: "kerala", URL: first},
			{Region: "kerala", URL: second},
		}))
		require.Len(t, batch.Articles, 1)
		assert.Equal(t, first, batch.Articles[0].URL)
		assert.Equal(t, first, batch.Outcomes[1].DuplicateOf)
		assert.Empty(t, batch.Outcomes[0].DuplicateOf)
	}
}

func TestProcessRegionListFailure(t *testing.T) {
	p, _ := newPipeline(t, t.TempDir(), nil)
	l := listOf("assam", nil)
	l.Err = candidates.ErrMissingList
	l.Skipped = 4

	batch := p.ProcessRegion(context.Background(), l)
	assert.Equal(t, candidates.ErrMissingList.Error(), batch.Failure)
	assert.Empty(t, batch.Articles)
	assert.Empty(t, batch.Outcomes)
	assert.Equal(t, 4, batch.Skipped)
}

func TestRepeatedURLFetchedOnce(t *testing.T) {
	srv := newServer(t)
	data := t.TempDir()
	writeList(t, data, "goa", srv.URL+"/goa", srv.URL+"/goa", srv.URL+"/goa")
	p, _ := newPipeline(t, data, nil)

	reports, err := p.Run(context.Background(), Request{Date: day})
	require.NoError(t, err)
	require.Len(t, reports, 1)

	assert.Equal(t, int32(1), srv.goaHits.Load())
	res := reports[0].Result
	assert.Len(t, res.All, 1)
	assert.Equal(t, 3, res.Stats.FetchedOK)
	assert.Equal(t, 2, res.Stats.DuplicatesRemoved)
}

func TestRunNoCandidates(t *testing.T) {
	p, _ := newPipeline(t, t.TempDir(), nil)
	_, err := p.Run(context.Background(), Request{Date: day, DaysBack: 2})
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestRunMissingDaysFailRegions(t *testing.T) {
	srv := newServer(t)
	data := t.TempDir()
	writeList(t, data, "kerala", srv.URL+"/brief")
	p, _ := newPipeline(t, data, nil)

	reports, err := p.Run(context.Background(), Request{Date: day.AddDate(0, 0, 1), DaysBack: 2})
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, day, reports[1].Date)
	assert.Len(t, reports[1].Result.All, 1)
	assert.Equal(t, []string{"kerala"}, reports[0].Result.Stats.FailedRegions)
}

func TestCancelledRunFailsURLsNotRegions(t *testing.T) {
	srv := newServer(t)
	p, _ := newPipeline(t, t.TempDir(), nil)

	lists := []news.CandidateURL{
		{Region: "kerala", URL: srv.URL + "/story"},
		{Region: "kerala", URL: srv.URL + "/brief"},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := p.ProcessRegion(ctx, listOf("kerala", lists))
	assert.Empty(t, batch.Failure)
	assert.Empty(t, batch.Articles)
	require.Len(t, batch.Outcomes, 2)
	for _, o := range batch.Outcomes {
		assert.Equal(t, fetch.StrategyFailed, o.Strategy)
		assert.NotEmpty(t, o.FetchError)
	}
}

func TestDates(t *testing.T) {
	got := Dates(time.Date(2025, 3, 1, 17, 4, 0, 0, time.UTC), 2)
	require.Len(t, got, 3)
	assert.Equal(t, time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC), got[0])
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got[2])

	assert.Len(t, Dates(day, -1), 1)
}
