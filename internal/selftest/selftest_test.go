package selftest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
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

func newRunner(fb *firebasetest.Server, auth string) *Runner {
	r := New(firebase.NewClient(fb.URL, auth, time.Second, quietLogger()), quietLogger())
	r.now = func() time.Time { return time.Date(2025, 11, 11, 0, 0, 0, 0, time.UTC) }
	return r
}

func TestConnectivityPasses(t *testing.T) {
	fb := firebasetest.NewServer()
	defer fb.Close()
	fb.Seed("1ndserverlink", map[string]string{"link": "x"})

	report := newRunner(fb, "").Connectivity(context.Background())
	assert.True(t, report.OK())
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 4, report.Passed)

	_, ok := fb.Node(TestSlot)
	assert.False(t, ok, "test record is cleaned up")
	assert.Equal(t, 1, fb.Len())
	assert.Contains(t, fb.Requests, "PUT /testserverlink.json")
}

func TestConnectivityWithBadAuth(t *testing.T) {
	fb := firebasetest.NewServer()
	defer fb.Close()
	fb.Auth = "secret"

	report := newRunner(fb, "wrong").Connectivity(context.Background())
	assert.False(t, report.OK())
	assert.Equal(t, 0, report.Passed)
	assert.Equal(t, 4, report.Total)
	for _, s := range report.Steps {
		assert.Contains(t, s.Error, "401")
	}
}

func TestConnectivityWriteRejected(t *testing.T) {
	fb := firebasetest.NewServer()
	defer fb.Close()
	fb.FailPuts = http.StatusForbidden

	report := newRunner(fb, "").Connectivity(context.Background())
	assert.Equal(t, 2, report.Passed)
	assert.False(t, report.Steps[1].Passed)
	assert.False(t, report.Steps[2].Passed, "nothing to read back")
}

func TestSimulate(t *testing.T) {
	fb := firebasetest.NewServer()
	defer fb.Close()

	report := newRunner(fb, "").Simulate(context.Background())
	assert.True(t, report.OK())
	assert.Equal(t, 2, report.Passed)

	raw, ok := fb.Node("3rdserverlink")
	require.True(t, ok)
	var rec types.StreamRecord
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.Contains(t, rec.Link, "tenspk.m3u8")
	assert.Equal(t, "https://bhalocast.com/", rec.Headers[types.HeaderReferer])
	assert.Equal(t, "2025-11-11T00:00:00Z", rec.CreatedAtISO)
}

func TestSampleTreeShape(t *testing.T) {
	now := time.Date(2025, 11, 11, 0, 0, 0, 0, time.UTC)
	data, err := json.Marshal(SampleTree(now))
	require.NoError(t, err)

	var tree map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &tree))
	rec := tree["2ndserverlink"]
	for _, field := range []string{"source_url", "title", "name", "link", "headers", "status", "thumblink", "createdAt", "createdAtISO", "lastCheckedAt"} {
		assert.Contains(t, rec, field)
	}
	assert.Equal(t, "OK", rec["status"])
	assert.Len(t, rec["headers"], 3)
}

func TestTestRecordStatus(t *testing.T) {
	rec := TestRecord(time.Now())
	assert.Equal(t, types.StatusTest, rec.Status)
	assert.Equal(t, rec.CreatedAt, rec.LastCheckedAt)
}
