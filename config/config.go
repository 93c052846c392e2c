// Package config resolves crawler settings with precedence: environment
// variables, then the config file, then built-in defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pevans/progcat/discovery"
	"github.com/pevans/progcat/fetch"
	"github.com/pevans/progcat/scraper"
	"github.com/pevans/progcat/traverse"
)

// Settings is the resolved configuration of one invocation.
type Settings struct {
	SnapshotDir string
	RunsDB      string
	Crawl       traverse.Config
	HTTP        fetch.HTTPOptions
	Scraper     scraper.Config
	Categories  []discovery.Category
	Feed        string
	LogLevel    string
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		SnapshotDir: ".catalogs",
		RunsDB:      "runs.db",
		Crawl:       traverse.DefaultConfig(),
		HTTP:        fetch.DefaultHTTPOptions(),
		Scraper:     scraper.DefaultConfig(),
		LogLevel:    "info",
	}
}

// Load resolves settings from the config file and the process environment.
// A config file that cannot be read is logged and ignored.
func Load() (*Settings, error) {
	file, err := LoadConfigFile()
	if err != nil {
		slog.Warn("Failed to load config file, continuing with defaults and environment variables", "error", err)
		file = nil
	}
	return Resolve(file, os.Getenv)
}

// Resolve applies file (may be nil) and then the environment as read by
// getenv on top of Defaults.
func Resolve(file *FileConfig, getenv func(string) string) (*Settings, error) {
	s := Defaults()

	if file != nil {
		applyFile(&s, file)
	}

	if err := applyEnv(&s, getenv); err != nil {
		return nil, err
	}

	if err := s.Scraper.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scraper config: %w", err)
	}

	return &s, nil
}

func applyFile(s *Settings, f *FileConfig) {
	if f.Storage.Snapshots != "" {
		s.SnapshotDir = f.Storage.Snapshots
	}
	if f.Storage.Runs != "" {
		s.RunsDB = f.Storage.Runs
	}

	c := f.Crawl
	if c.Workers != 0 {
		s.Crawl.Workers = c.Workers
	}
	if c.MaxAttempts != 0 {
		s.Crawl.MaxAttempts = c.MaxAttempts
	}
	if c.InitialBackoff != 0 {
		s.Crawl.InitialBackoff = c.InitialBackoff
	}
	if c.MaxBackoff != 0 {
		s.Crawl.MaxBackoff = c.MaxBackoff
	}
	if c.PerOriginConcurrency != 0 {
		s.Crawl.PerOriginConcurrency = c.PerOriginConcurrency
	}
	if c.RequestDelay != 0 {
		s.Crawl.RequestDelay = c.RequestDelay
	}
	if c.MaxPagesPerCategory != 0 {
		s.Crawl.MaxPagesPerCategory = c.MaxPagesPerCategory
	}

	if f.HTTP.UserAgent != "" {
		s.HTTP.UserAgent = f.HTTP.UserAgent
	}
	if f.HTTP.Timeout != 0 {
		s.HTTP.Timeout = f.HTTP.Timeout
	}
	if f.HTTP.MaxRedirects != 0 {
		s.HTTP.MaxRedirects = f.HTTP.MaxRedirects
	}

	if f.Scraper != nil {
		s.Scraper = *f.Scraper
	}
	if len(f.Categories) > 0 {
		s.Categories = f.Categories
	}
	if f.Feed != "" {
		s.Feed = f.Feed
	}
	if f.LogLevel != "" {
		s.LogLevel = f.LogLevel
	}
}

func applyEnv(s *Settings, getenv func(string) string) error {
	if val := getenv("PROGCAT_SNAPSHOT_DIR"); val != "" {
		s.SnapshotDir = val
	}
	if val := getenv("PROGCAT_RUNS_DB"); val != "" {
		s.RunsDB = val
	}
	if val := getenv("PROGCAT_ORIGIN"); val != "" {
		s.Scraper.Origin = val
	}
	if val := getenv("PROGCAT_RESOLVE_POLICY"); val != "" {
		s.Scraper.ResolvePolicy = scraper.ResolvePolicy(strings.ToLower(val))
	}
	if val := getenv("PROGCAT_USER_AGENT"); val != "" {
		s.HTTP.UserAgent = val
	}
	if val := getenv("PROGCAT_FEED"); val != "" {
		s.Feed = val
	}
	if val := getenv("PROGCAT_LOG_LEVEL"); val != "" {
		s.LogLevel = val
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"PROGCAT_WORKERS", &s.Crawl.Workers},
		{"PROGCAT_MAX_ATTEMPTS", &s.Crawl.MaxAttempts},
		{"PROGCAT_PER_ORIGIN", &s.Crawl.PerOriginConcurrency},
		{"PROGCAT_MAX_PAGES", &s.Crawl.MaxPagesPerCategory},
	}
	for _, v := range ints {
		val := getenv(v.key)
		if val == "" {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", v.key, err)
		}
		*v.dst = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"PROGCAT_REQUEST_DELAY", &s.Crawl.RequestDelay},
		{"PROGCAT_TIMEOUT", &s.HTTP.Timeout},
	}
	for _, v := range durations {
		val := getenv(v.key)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", v.key, err)
		}
		*v.dst = d
	}

	return nil
}

// ParseLogLevel maps a level name to a slog level.
func ParseLogLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}
