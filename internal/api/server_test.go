package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cricket-stream-scraper/internal/database/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	links   []*models.StreamLink
	runs    []*models.ScrapeRun
	pingErr error
	err     error
}

func (f *fakeStore) GetLinks(_ context.Context, status string) ([]*models.StreamLink, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.StreamLink
	for _, l := range f.links {
		if status == "" || l.Status == status {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) GetLinkBySlot(_ context.Context, slot string) (*models.StreamLink, error) {
	for _, l := range f.links {
		if l.Slot == slot {
			return l, nil
		}
	}
	return nil, f.err
}

func (f *fakeStore) GetRuns(_ context.Context, limit int) ([]*models.ScrapeRun, error) {
	if len(f.runs) > limit {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

func (f *fakeStore) GetStats(context.Context) (map[string]interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	return map[string]interface{}{"total_links": len(f.links)}, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func newTestServer(store Store) http.Handler {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	s := NewServer(store, logger, "0")
	s.now = func() time.Time { return time.Date(2025, 11, 11, 0, 0, 0, 0, time.UTC) }
	return s.Handler()
}

func sampleStore() *fakeStore {
	return &fakeStore{
		links: []*models.StreamLink{
			{
				Slot:          "1ndserverlink",
				Name:          "Willow Cricket Extra",
				Title:         "Watch, Stream \"Live\"",
				Link:          "https://jan.player0003.com:8099/hls/asportsd.m3u8?md6=a",
				SourceURL:     "https://crichdplayer.com/willow-cricket-extra-live-stream-play-01",
				Headers:       models.HeadersJSON{"Referer": "https://bhalocast.com/"},
				Status:        "OK",
				CreatedAtMs:   1762819200123,
				LastCheckedMs: 1762819200123,
			},
			{Slot: "2rdserverlink", Name: "Ten Sports", Status: "DEAD"},
		},
		runs: []*models.ScrapeRun{{ID: "run-1", Variant: "aggressive", Total: 2, Found: 1}},
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestLinks(t *testing.T) {
	h := newTestServer(sampleStore())

	rec := get(t, h, "/api/links")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 2, body["count"])

	body = decode(t, get(t, h, "/api/links?status=dead"))
	assert.EqualValues(t, 1, body["count"])
	first := body["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "2rdserverlink", first["slot"])
}

func TestLinksEmptyIsArray(t *testing.T) {
	h := newTestServer(&fakeStore{})
	rec := get(t, h, "/api/links")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestLinkBySlot(t *testing.T) {
	h := newTestServer(sampleStore())

	rec := get(t, h, "/api/links/1ndserverlink")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "Willow Cricket Extra", data["name"])

	rec = get(t, h, "/api/links/1ndserverlink?format=record")
	require.Equal(t, http.StatusOK, rec.Code)
	tree := decode(t, rec)["data"].(map[string]interface{})
	record := tree["1ndserverlink"].(map[string]interface{})
	assert.Equal(t, "2025-11-11T00:00:00Z", record["createdAtISO"])
	assert.EqualValues(t, 1762819200123, record["createdAt"])

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/links/9thserverlink").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/links/").Code)
}

func TestRunsAndStats(t *testing.T) {
	h := newTestServer(sampleStore())

	body := decode(t, get(t, h, "/api/runs?limit=500"))
	assert.EqualValues(t, 1, body["count"])

	body = decode(t, get(t, h, "/api/stats"))
	assert.EqualValues(t, 2, body["data"].(map[string]interface{})["total_links"])
}

func TestStoreErrors(t *testing.T) {
	h := newTestServer(&fakeStore{err: errors.New("connection refused")})
	rec := get(t, h, "/api/stats")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "connection refused")
}

func TestExportCSV(t *testing.T) {
	h := newTestServer(sampleStore())
	rec := get(t, h, "/api/export/csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "stream_links_2025-11-11.csv")

	rows, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Slot", rows[0][0])
	assert.Equal(t, `Watch, Stream "Live"`, rows[1][2])
	assert.Equal(t, "https://bhalocast.com/", rows[1][6])
}

func TestHealth(t *testing.T) {
	assert.Equal(t, http.StatusOK, get(t, newTestServer(&fakeStore{}), "/api/health").Code)
	down := newTestServer(&fakeStore{pingErr: errors.New("down")})
	assert.Equal(t, http.StatusServiceUnavailable, get(t, down, "/api/health").Code)
}

func TestCORSAndMethods(t *testing.T) {
	h := newTestServer(sampleStore())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/links", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/links", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRootAndDashboard(t *testing.T) {
	h := newTestServer(sampleStore())
	assert.Contains(t, get(t, h, "/").Body.String(), "Cricket Stream Scraper API")
	assert.Equal(t, http.StatusNotFound, get(t, h, "/nope").Code)

	rec := get(t, h, "/dashboard")
	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Cricket Stream Dashboard")
}
