package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/pevans/progcat/discovery"
	"github.com/pevans/progcat/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: getenv backed by a map
func envMap(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

// TestResolve_Defaults verifies defaults apply with no file and no env
func TestResolve_Defaults(t *testing.T) {
	s, err := Resolve(nil, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *s)
}

// TestResolve_FileOverridesDefaults verifies set file values win and unset
// ones keep their defaults
func TestResolve_FileOverridesDefaults(t *testing.T) {
	custom := scraper.DefaultConfig()
	custom.Origin = "http://example.test"

	file := &FileConfig{
		Storage: StorageConfig{Snapshots: "/data/catalogs"},
		HTTP:    HTTPConfig{UserAgent: "file/1.0"},
		Scraper: &custom,
		Categories: []discovery.Category{
			{Name: "Drama", URLs: []string{"http://example.test/drama"}},
		},
	}
	file.Crawl.Workers = 9

	s, err := Resolve(file, envMap(nil))
	require.NoError(t, err)

	def := Defaults()
	assert.Equal(t, "/data/catalogs", s.SnapshotDir)
	assert.Equal(t, def.RunsDB, s.RunsDB)
	assert.Equal(t, 9, s.Crawl.Workers)
	assert.Equal(t, def.Crawl.MaxAttempts, s.Crawl.MaxAttempts)
	assert.Equal(t, "file/1.0", s.HTTP.UserAgent)
	assert.Equal(t, def.HTTP.Timeout, s.HTTP.Timeout)
	assert.Equal(t, "http://example.test", s.Scraper.Origin)
	assert.Equal(t, file.Categories, s.Categories)
}

// TestResolve_EnvOverridesFile verifies environment variables have the
// highest priority
func TestResolve_EnvOverridesFile(t *testing.T) {
	file := &FileConfig{
		Storage:  StorageConfig{Snapshots: "/file/catalogs", Runs: "/file/runs.db"},
		Feed:     "http://file.test/feed",
		LogLevel: "warn",
	}
	file.Crawl.Workers = 9

	s, err := Resolve(file, envMap(map[string]string{
		"PROGCAT_SNAPSHOT_DIR":   "/env/catalogs",
		"PROGCAT_WORKERS":        "2",
		"PROGCAT_MAX_PAGES":      "5",
		"PROGCAT_REQUEST_DELAY":  "2s",
		"PROGCAT_TIMEOUT":        "45s",
		"PROGCAT_ORIGIN":         "http://env.test",
		"PROGCAT_RESOLVE_POLICY": "PAGE",
		"PROGCAT_FEED":           "http://env.test/feed",
		"PROGCAT_LOG_LEVEL":      "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/env/catalogs", s.SnapshotDir)
	assert.Equal(t, "/file/runs.db", s.RunsDB)
	assert.Equal(t, 2, s.Crawl.Workers)
	assert.Equal(t, 5, s.Crawl.MaxPagesPerCategory)
	assert.Equal(t, 2*time.Second, s.Crawl.RequestDelay)
	assert.Equal(t, 45*time.Second, s.HTTP.Timeout)
	assert.Equal(t, "http://env.test", s.Scraper.Origin)
	assert.Equal(t, scraper.ResolvePage, s.Scraper.ResolvePolicy)
	assert.Equal(t, "http://env.test/feed", s.Feed)
	assert.Equal(t, "debug", s.LogLevel)
}

// TestResolve_InvalidEnv verifies malformed numeric and duration values are
// reported
func TestResolve_InvalidEnv(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"PROGCAT_WORKERS", "many"},
		{"PROGCAT_MAX_ATTEMPTS", "1.5"},
		{"PROGCAT_REQUEST_DELAY", "soon"},
		{"PROGCAT_TIMEOUT", "10"},
		{"PROGCAT_RESOLVE_POLICY", "sideways"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			_, err := Resolve(nil, envMap(map[string]string{tt.key: tt.value}))
			assert.Error(t, err)
		})
	}
}

// TestLoad_BrokenFileFallsBack verifies an unparsable file is ignored
func TestLoad_BrokenFileFallsBack(t *testing.T) {
	setupHome(t, "crawl: [not, a, map]\n")
	t.Setenv("PROGCAT_WORKERS", "3")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, s.Crawl.Workers)
	assert.Equal(t, Defaults().SnapshotDir, s.SnapshotDir)
}

// TestParseLogLevel verifies level names map to slog levels
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLogLevel(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLogLevel("loud")
	assert.Error(t, err)
}
