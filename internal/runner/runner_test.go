package runner

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cricket-stream-scraper/internal/capture"
	"cricket-stream-scraper/internal/database/models"
	"cricket-stream-scraper/internal/firebase"
	"cricket-stream-scraper/internal/firebase/firebasetest"
	"cricket-stream-scraper/internal/monitoring"
	"cricket-stream-scraper/internal/scraper"
	"cricket-stream-scraper/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScraper struct {
	links map[string]string
	calls []string
	mu    sync.Mutex
}

func (f *fakeScraper) Name() string { return "fake" }

func (f *fakeScraper) Scrape(ctx context.Context, stream types.StreamConfig) (*scraper.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, stream.URL)
	f.mu.Unlock()

	link, ok := f.links[stream.URL]
	if !ok {
		return &scraper.Result{}, capture.ErrNoManifest
	}
	return &scraper.Result{Selected: types.Candidate{
		Kind:    types.KindRequest,
		Link:    link,
		Headers: types.Headers{types.HeaderReferer: "https://player.example/"},
	}}, nil
}

func (f *fakeScraper) Close() error { return nil }

type fakeHistory struct {
	mu    sync.Mutex
	links []*models.StreamLink
	runs  []*models.ScrapeRun
}

func (h *fakeHistory) SaveLink(_ context.Context, link *models.StreamLink) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.links = append(h.links, link)
	return nil
}

func (h *fakeHistory) InsertRun(_ context.Context, run *models.ScrapeRun) error {
	h.runs = append(h.runs, run)
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

var testStreams = []types.StreamConfig{
	{URL: "https://a.example/play", Name: "A", Title: "Stream A"},
	{URL: "https://b.example/play", Name: "B", Title: "Stream B"},
	{URL: "https://c.example/play", Name: "C", Title: "Stream C"},
}

func TestRunUploadsFoundStreams(t *testing.T) {
	fb := firebasetest.NewServer()
	defer fb.Close()

	s := &fakeScraper{links: map[string]string{
		"https://a.example/play": "https://cdn.example/a/index.m3u8",
		"https://c.example/play": "https://cdn.example/c/index.m3u8",
	}}
	resultsFile := filepath.Join(t.TempDir(), "out", "scrape_results.json")
	history := &fakeHistory{}
	monitor := monitoring.NewMonitor(quietLogger(), filepath.Join(t.TempDir(), "metrics.json"))

	r := New(s, firebase.NewClient(fb.URL, "", time.Second, quietLogger()), quietLogger(), Options{ResultsFile: resultsFile}).
		WithHistory(history).
		WithMonitor(monitor)
	now := time.Date(2025, 11, 11, 0, 0, 0, 123e6, time.UTC)
	r.now = func() time.Time { return now }

	summary, err := r.Run(context.Background(), testStreams)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Found)
	assert.Equal(t, 2, summary.Uploaded)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, []string{"https://a.example/play", "https://b.example/play", "https://c.example/play"}, s.calls)

	raw, ok := fb.Node("1ndserverlink")
	require.True(t, ok)
	var rec types.StreamRecord
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.Equal(t, "https://cdn.example/a/index.m3u8", rec.Link)
	assert.Equal(t, types.StatusOK, rec.Status)
	assert.Equal(t, int64(1762819200123), rec.CreatedAt)
	assert.Equal(t, "https://player.example/", rec.Headers[types.HeaderReferer])

	_, ok = fb.Node("2rdserverlink")
	assert.False(t, ok, "failed stream is not uploaded")
	_, ok = fb.Node("3thserverlink")
	assert.True(t, ok)

	data, err := os.ReadFile(resultsFile)
	require.NoError(t, err)
	var written []types.StreamRecord
	require.NoError(t, json.Unmarshal(data, &written))
	require.Len(t, written, 2)
	assert.Equal(t, "Stream A", written[0].Title)

	require.Len(t, history.links, 2)
	require.Len(t, history.runs, 1)
	assert.Equal(t, summary.RunID, history.runs[0].ID)
	assert.Len(t, history.runs[0].Errors, 1)

	metrics := monitor.GetMetrics()
	assert.Equal(t, 1, metrics.ScrapeRuns)
	assert.Equal(t, 3, metrics.StreamsTried)
	assert.Equal(t, 1, metrics.SlotMetrics["2rdserverlink"].ConsecutiveFailures)
}

func TestRunSkipsResultsFileWhenNothingFound(t *testing.T) {
	fb := firebasetest.NewServer()
	defer fb.Close()

	resultsFile := filepath.Join(t.TempDir(), "scrape_results.json")
	r := New(&fakeScraper{}, firebase.NewClient(fb.URL, "", time.Second, quietLogger()), quietLogger(), Options{ResultsFile: resultsFile})

	summary, err := r.Run(context.Background(), testStreams[:1])
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Found)
	assert.Equal(t, 0, fb.Len())
	_, err = os.Stat(resultsFile)
	assert.True(t, os.IsNotExist(err))
}

func TestRunContinuesAfterUploadFailure(t *testing.T) {
	fb := firebasetest.NewServer()
	defer fb.Close()
	fb.FailPuts = http.StatusUnauthorized

	s := &fakeScraper{links: map[string]string{
		"https://a.example/play": "https://cdn.example/a/index.m3u8",
		"https://b.example/play": "https://cdn.example/b/index.m3u8",
	}}
	r := New(s, firebase.NewClient(fb.URL, "", time.Second, quietLogger()), quietLogger(), Options{Workers: 2})

	summary, err := r.Run(context.Background(), testStreams[:2])
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Found)
	assert.Equal(t, 0, summary.Uploaded)
	require.Len(t, summary.Streams, 2)
	for _, st := range summary.Streams {
		assert.False(t, st.Uploaded)
		assert.Contains(t, st.Error, "401")
	}
}

func TestRunHonorsConfiguredSlot(t *testing.T) {
	fb := firebasetest.NewServer()
	defer fb.Close()

	streams := []types.StreamConfig{{URL: "https://a.example/play", Name: "A", Slot: "willowserverlink"}}
	s := &fakeScraper{links: map[string]string{"https://a.example/play": "https://cdn.example/a.m3u8"}}
	r := New(s, firebase.NewClient(fb.URL, "", time.Second, quietLogger()), quietLogger(), Options{})

	_, err := r.Run(context.Background(), streams)
	require.NoError(t, err)
	_, ok := fb.Node("willowserverlink")
	assert.True(t, ok)
}

func TestRunStopsOnCancel(t *testing.T) {
	fb := firebasetest.NewServer()
	defer fb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(&fakeScraper{}, firebase.NewClient(fb.URL, "", time.Second, quietLogger()), quietLogger(), Options{Delay: time.Hour})
	summary, err := r.Run(ctx, testStreams)
	require.Error(t, err)
	assert.Empty(t, summary.Streams)
}

func TestWriteResultsIsIndented(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, WriteResults(path, []types.StreamRecord{{Link: "https://x/y.m3u8", Headers: types.Headers{}}}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {\n    \"source_url\"")
}

type timedScraper struct {
	work   time.Duration
	mu     sync.Mutex
	starts []time.Time
	ends   []time.Time
}

func (s *timedScraper) Name() string { return "timed" }

func (s *timedScraper) Scrape(ctx context.Context, stream types.StreamConfig) (*scraper.Result, error) {
	s.mu.Lock()
	s.starts = append(s.starts, time.Now())
	s.mu.Unlock()

	time.Sleep(s.work)

	s.mu.Lock()
	s.ends = append(s.ends, time.Now())
	s.mu.Unlock()
	return &scraper.Result{}, capture.ErrNoManifest
}

func (s *timedScraper) Close() error { return nil }

func TestRunPausesBetweenStreams(t *testing.T) {
	fb := firebasetest.NewServer()
	defer fb.Close()

	delay := 300 * time.Millisecond
	s := &timedScraper{work: 2 * delay}
	r := New(s, firebase.NewClient(fb.URL, "", time.Second, quietLogger()), quietLogger(), Options{Workers: 1, Delay: delay})

	summary, err := r.Run(context.Background(), testStreams)
	require.NoError(t, err)
	require.Len(t, s.starts, 3)
	require.Len(t, s.ends, 3)

	for i := 1; i < len(s.starts); i++ {
		gap := s.starts[i].Sub(s.ends[i-1])
		assert.GreaterOrEqual(t, gap, delay, "gap before stream %d", i)
	}
	assert.Less(t, summary.FinishedAt.Sub(s.ends[2]), delay, "no pause after the last stream")
}
