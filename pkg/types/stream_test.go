package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotKey(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "1ndserverlink"},
		{1, "2rdserverlink"},
		{2, "3thserverlink"},
		{9, "10thserverlink"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SlotKey(tt.index))
	}
}

func TestSlotForPrefersConfiguredSlot(t *testing.T) {
	assert.Equal(t, "2ndserverlink", SlotFor(StreamConfig{Slot: "2ndserverlink"}, 0))
	assert.Equal(t, "1ndserverlink", SlotFor(StreamConfig{}, 0))
}

func TestHeadersKeysOrder(t *testing.T) {
	h := Headers{HeaderUserAgent: "ua", HeaderOrigin: "https://a.example"}
	assert.Equal(t, []string{HeaderOrigin, HeaderUserAgent}, h.Keys())
	assert.Nil(t, Headers{}.Keys())
}

func TestStreamRecordJSONFieldNames(t *testing.T) {
	rec := StreamRecord{
		SourceURL: "https://crichdplayer.com/x",
		Link:      "https://cdn.example/hls/a.m3u8",
		Headers:   Headers{HeaderReferer: "https://bhalocast.com/"},
		Status:    StatusOK,
		CreatedAt: 1700000000000,
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"source_url", "title", "name", "link", "headers", "status", "thumblink", "createdAt", "createdAtISO", "lastCheckedAt"} {
		assert.Contains(t, raw, key)
	}
	assert.Equal(t, map[string]interface{}{"Referer": "https://bhalocast.com/"}, raw["headers"])
}
