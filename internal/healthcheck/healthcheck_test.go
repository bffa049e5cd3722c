package healthcheck

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cricket-stream-scraper/internal/firebase"
	"cricket-stream-scraper/internal/firebase/firebasetest"
	"cricket-stream-scraper/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type recordingUpdater struct {
	statuses map[string]string
}

func (r *recordingUpdater) UpdateStatus(_ context.Context, slot, status string, _ int64) error {
	r.statuses[slot] = status
	return nil
}

func streamServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/live.m3u8", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Referer") != "https://bhalocast.com/" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		w.Write([]byte("#EXTM3U\n#EXT-X-VERSION:3\n"))
	})
	mux.HandleFunc("/typed", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		w.Write([]byte("binary"))
	})
	mux.HandleFunc("/html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func record(link string, headers types.Headers) types.StreamRecord {
	return types.StreamRecord{
		Name:          "Willow Cricket Extra",
		Link:          link,
		Headers:       headers,
		Status:        types.StatusOK,
		CreatedAt:     1762819200123,
		LastCheckedAt: 1762819200123,
	}
}

func TestCheckAll(t *testing.T) {
	streams := streamServer(t)
	fb := firebasetest.NewServer()
	defer fb.Close()

	referer := types.Headers{types.HeaderReferer: "https://bhalocast.com/"}
	fb.Seed("1ndserverlink", record(streams.URL+"/live.m3u8", referer))
	fb.Seed("2rdserverlink", record(streams.URL+"/live.m3u8", types.Headers{}))
	fb.Seed("3thserverlink", record(streams.URL+"/typed", nil))
	fb.Seed("4thserverlink", record(streams.URL+"/html", nil))
	fb.Seed("5thserverlink", record("", nil))
	fb.Seed("settings", map[string]string{"theme": "dark"})

	updater := &recordingUpdater{statuses: map[string]string{}}
	checker := New(firebase.NewClient(fb.URL, "", time.Second, quietLogger()), time.Second, quietLogger()).
		WithStatusUpdater(updater)
	checker.now = func() time.Time { return time.Date(2025, 11, 12, 0, 0, 0, 0, time.UTC) }

	report, err := checker.CheckAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.Checked)
	assert.Equal(t, 2, report.Alive)
	assert.Equal(t, 2, report.Dead)
	assert.Equal(t, 2, report.Skipped)

	assert.Equal(t, map[string]string{
		"1ndserverlink": types.StatusOK,
		"2rdserverlink": types.StatusDead,
		"3thserverlink": types.StatusOK,
		"4thserverlink": types.StatusDead,
	}, updater.statuses)

	raw, ok := fb.Node("2rdserverlink")
	require.True(t, ok)
	var rec types.StreamRecord
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.Equal(t, types.StatusDead, rec.Status)
	assert.Equal(t, int64(1762905600000), rec.LastCheckedAt)
	assert.Equal(t, int64(1762819200123), rec.CreatedAt, "createdAt is preserved")

	raw, _ = fb.Node("settings")
	assert.JSONEq(t, `{"theme":"dark"}`, string(raw))
}

func TestCheckLinkSendsDefaultUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		w.Write([]byte("#EXTM3U"))
	}))
	defer srv.Close()

	checker := New(nil, time.Second, quietLogger())
	alive, reason := checker.CheckLink(context.Background(), srv.URL, nil)
	assert.True(t, alive, reason)
	assert.Contains(t, gotUA, "Mozilla/5.0")
}

func TestCheckLinkUnreachable(t *testing.T) {
	checker := New(nil, 200*time.Millisecond, quietLogger())
	alive, reason := checker.CheckLink(context.Background(), "http://127.0.0.1:1/x.m3u8", nil)
	assert.False(t, alive)
	assert.NotEmpty(t, reason)
}
