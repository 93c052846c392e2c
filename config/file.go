package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pevans/progcat/discovery"
	"github.com/pevans/progcat/scraper"
	"github.com/pevans/progcat/traverse"
	"gopkg.in/yaml.v3"
)

// StorageConfig says where snapshots and run history live.
type StorageConfig struct {
	// Snapshots is the catalog snapshot directory.
	Snapshots string `yaml:"snapshots"`
	// Runs is the SQLite run history database.
	Runs string `yaml:"runs"`
}

// HTTPConfig configures the live fetcher.
type HTTPConfig struct {
	UserAgent    string        `yaml:"user_agent"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRedirects int           `yaml:"max_redirects"`
}

// FileConfig represents the structure of ~/.progcat/config.yaml.
type FileConfig struct {
	Storage StorageConfig   `yaml:"storage"`
	Crawl   traverse.Config `yaml:"crawl"`
	HTTP    HTTPConfig      `yaml:"http"`
	// Scraper replaces the built-in selectors when present.
	Scraper    *scraper.Config      `yaml:"scraper"`
	Categories []discovery.Category `yaml:"categories"`
	// Feed is an RSS/Atom feed of categories, used when no categories are
	// given.
	Feed     string `yaml:"feed"`
	LogLevel string `yaml:"log_level"`
}

// Path returns the config file location: $PROGCAT_CONFIG if set, else
// ~/.progcat/config.yaml.
func Path() (string, error) {
	if p := os.Getenv("PROGCAT_CONFIG"); p != "" {
		return p, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".progcat", "config.yaml"), nil
}

// LoadConfigFile loads the config file at Path. Returns nil if the file
// doesn't exist (not an error). Returns error if the file exists but cannot
// be parsed.
func LoadConfigFile() (*FileConfig, error) {
	configPath, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadConfigFileFrom(configPath)
}

// LoadConfigFileFrom loads the config file at configPath with the same
// rules as LoadConfigFile.
func LoadConfigFileFrom(configPath string) (*FileConfig, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Scraper != nil {
		if err := cfg.Scraper.Validate(); err != nil {
			return nil, fmt.Errorf("invalid scraper config: %w", err)
		}
	}

	return &cfg, nil
}

// DefaultFileConfig returns the file written by WriteDefaultConfigFile.
func DefaultFileConfig() FileConfig {
	def := Defaults()
	sc := def.Scraper

	return FileConfig{
		Storage: StorageConfig{
			Snapshots: def.SnapshotDir,
			Runs:      def.RunsDB,
		},
		Crawl: def.Crawl,
		HTTP: HTTPConfig{
			UserAgent:    def.HTTP.UserAgent,
			Timeout:      def.HTTP.Timeout,
			MaxRedirects: def.HTTP.MaxRedirects,
		},
		Scraper: &sc,
		Categories: []discovery.Category{
			{Name: "Comedy", URLs: []string{"http://www.bbc.co.uk/iplayer/categories/comedy/all?sort=atoz"}},
		},
		LogLevel: def.LogLevel,
	}
}

// WriteDefaultConfigFile writes DefaultFileConfig to Path. An existing file
// is kept unless force is set; created reports whether a file was written.
func WriteDefaultConfigFile(force bool) (created bool, err error) {
	configPath, err := Path()
	if err != nil {
		return false, err
	}

	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return false, nil
		}
	}

	data, err := yaml.Marshal(DefaultFileConfig())
	if err != nil {
		return false, fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}

	return true, nil
}
