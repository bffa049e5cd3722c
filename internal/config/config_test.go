package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("FIREBASE_URL", "")
	t.Setenv("FIREBASE_AUTH", "")
	t.Setenv("SCRAPER_VARIANT", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultFirebaseURL, cfg.Firebase.URL)
	assert.Equal(t, "aggressive", cfg.Scraper.Variant)
	assert.Equal(t, 1, cfg.Scraper.ConcurrentWorkers)
	assert.True(t, cfg.Scraper.IsHeadless())
}

func TestLoadYAMLAndEnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", `
firebase:
  url: https://from-file.firebaseio.com
  timeout: 3
scraper:
  variant: cdp
  concurrent_workers: 0
  delay_between_streams: 2
  headless: false
  timings:
    stream_wait: 12
database:
  enabled: true
  port: 6543
logging:
  level: debug
`)
	t.Setenv("FIREBASE_URL", "")
	t.Setenv("FIREBASE_AUTH", "token-from-env")
	t.Setenv("SCRAPER_VARIANT", "ultimate")
	t.Setenv("DB_PORT", "7777")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://from-file.firebaseio.com", cfg.Firebase.URL)
	assert.Equal(t, "token-from-env", cfg.Firebase.Auth)
	assert.Equal(t, 3, cfg.Firebase.Timeout)
	assert.Equal(t, "ultimate", cfg.Scraper.Variant)
	assert.Equal(t, 1, cfg.Scraper.ConcurrentWorkers)
	assert.Equal(t, 2, cfg.Scraper.DelayBetweenStreams)
	assert.False(t, cfg.Scraper.IsHeadless())
	assert.Equal(t, 12, cfg.Scraper.Timings.StreamWait)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, 7777, cfg.Database.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched defaults survive a partial file
	assert.Equal(t, "scrape_results.json", cfg.Scraper.ResultsFile)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", "firebase: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadStreamsFromFileAndEnv(t *testing.T) {
	path := writeFile(t, "streams.yaml", `
streams:
  - url: https://crichd.one/stream.php?id=willow
    name: Sri Lanka Vs Pakistan ODI
    title: Sri Lanka Vs Pakistan ODI
    slot: 3rdserverlink
  - name: missing url
`)
	t.Setenv("STREAM_URLS_JSON", `[{"url":"https://extra.example/live","name":"Extra","title":"Extra Live"}]`)

	var warnings []string
	warn := func(format string, args ...interface{}) { warnings = append(warnings, fmt.Sprintf(format, args...)) }

	streams, err := LoadStreams(path, warn)
	require.NoError(t, err)
	require.Len(t, streams, 2)
	assert.Equal(t, "3rdserverlink", streams[0].Slot)
	assert.Equal(t, "https://extra.example/live", streams[1].URL)
	assert.Len(t, warnings, 1)
}

func TestLoadStreamsDefaultsAndMalformedEnv(t *testing.T) {
	t.Setenv("STREAM_URLS_JSON", `{not json`)

	var warnings []string
	warn := func(format string, args ...interface{}) { warnings = append(warnings, fmt.Sprintf(format, args...)) }

	streams, err := LoadStreams(filepath.Join(t.TempDir(), "missing.yaml"), warn)
	require.NoError(t, err)
	assert.Equal(t, DefaultStreams(), streams)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "STREAM_URLS_JSON")
}
