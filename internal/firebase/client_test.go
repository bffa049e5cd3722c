package firebase

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

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

func TestPutGetDeleteRoundTrip(t *testing.T) {
	srv := firebasetest.NewServer()
	defer srv.Close()

	c := NewClient(srv.URL+"/", "", time.Second, quietLogger())
	ctx := context.Background()

	rec := types.StreamRecord{
		SourceURL: "https://crichdplayer.com/willow-cricket-extra-live-stream-play-01",
		Link:      "https://jan.player0003.com:8099/hls/asportsd.m3u8?md6=test",
		Headers:   types.Headers{"Origin": "https://bhalocast.com"},
		Status:    types.StatusOK,
	}
	require.NoError(t, c.Put(ctx, "2ndserverlink", rec))

	var got types.StreamRecord
	found, err := c.Get(ctx, "2ndserverlink", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, rec, got)

	keys, err := c.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2ndserverlink"}, keys)

	require.NoError(t, c.Delete(ctx, "2ndserverlink"))
	found, err = c.Get(ctx, "2ndserverlink", &got)
	require.NoError(t, err)
	assert.False(t, found)

	assert.Contains(t, srv.Requests, "PUT /2ndserverlink.json")
}

func TestAuthTokenIsSentAsQueryParam(t *testing.T) {
	srv := firebasetest.NewServer()
	srv.Auth = "secret-token"
	defer srv.Close()

	ctx := context.Background()
	anon := NewClient(srv.URL, "", time.Second, quietLogger())
	err := anon.Put(ctx, "testserverlink", map[string]string{"a": "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "401")

	authed := NewClient(srv.URL, "secret-token", time.Second, quietLogger())
	assert.True(t, authed.HasAuth())
	require.NoError(t, authed.Put(ctx, "testserverlink", map[string]string{"a": "b"}))
}

func TestPutNon200IsError(t *testing.T) {
	srv := firebasetest.NewServer()
	srv.FailPuts = http.StatusForbidden
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, quietLogger())
	err := c.Put(context.Background(), "1ndserverlink", map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestKeysOnEmptyDatabase(t *testing.T) {
	srv := firebasetest.NewServer()
	defer srv.Close()

	c := NewClient(srv.URL, "", 0, quietLogger())
	keys, err := c.Keys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestBaseURLTrimsTrailingSlash(t *testing.T) {
	c := NewClient("https://cricket-stream-portal-default-rtdb.firebaseio.com/", "", 0, quietLogger())
	assert.Equal(t, "https://cricket-stream-portal-default-rtdb.firebaseio.com", c.BaseURL())
	assert.Equal(t, "https://cricket-stream-portal-default-rtdb.firebaseio.com/3thserverlink.json", c.nodeURL("3thserverlink"))
}
