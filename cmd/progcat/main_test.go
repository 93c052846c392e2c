package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pevans/progcat/catalog"
	"github.com/pevans/progcat/runs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const comedySeed = "Comedy=http://www.bbc.co.uk/iplayer/categories/comedy/all?sort=atoz"

var fixtureSite = filepath.Join("..", "..", "fetch", "testdata", "site")

// Test helper: isolate HOME and storage in a temp dir
func setupEnv(t *testing.T) string {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("PROGCAT_CONFIG", filepath.Join(dir, "config.yaml"))
	t.Setenv("PROGCAT_SNAPSHOT_DIR", filepath.Join(dir, "catalogs"))
	t.Setenv("PROGCAT_RUNS_DB", filepath.Join(dir, "runs.db"))
	t.Setenv("PROGCAT_REQUEST_DELAY", "0s")
	t.Setenv("PROGCAT_LOG_LEVEL", "")
	t.Setenv("PROGCAT_FEED", "")
	return dir
}

// Test helper: run the CLI with args and capture stdout
func execute(t *testing.T, args ...string) (string, error) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// TestCrawl_Fixtures verifies a crawl over fixture pages stores a snapshot,
// writes the output file and records the run
func TestCrawl_Fixtures(t *testing.T) {
	dir := setupEnv(t)
	outPath := filepath.Join(dir, "out", "catalog.yaml")

	output, err := execute(t, "crawl", "--fixtures", fixtureSite, "--out", outPath, comedySeed)
	require.NoError(t, err, output)

	assert.Contains(t, output, "Crawl completed")
	assert.Contains(t, output, "3 pages, 4 programmes, 0 failures")

	saved, err := catalog.Load(outPath)
	require.NoError(t, err)
	require.Len(t, saved.Categories, 1)
	assert.Equal(t, "Comedy", saved.Categories[0].Name)

	var titles []string
	for i, p := range saved.Categories[0].Programmes {
		require.NotNil(t, p.Index)
		assert.Equal(t, i, *p.Index)
		titles = append(titles, p.DisplayTitle())
	}
	assert.Equal(t, "Asian Network Comedy", titles[0])
	assert.Equal(t, "Mock the Week", titles[3])

	store, err := catalog.NewStore(filepath.Join(dir, "catalogs"))
	require.NoError(t, err)
	latest, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, saved.ID, latest.ID)

	history, err := runs.NewRunStore(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	defer history.Close()

	list, err := history.List(runs.RunFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, runs.StatusCompleted, list[0].Status)
	assert.Equal(t, 4, list[0].Programmes)
	require.NotNil(t, list[0].CatalogID)
	assert.Equal(t, saved.ID, *list[0].CatalogID)
}

// TestCrawl_ConfiguredCategories verifies categories from the config file
// are used when no arguments are given
func TestCrawl_ConfiguredCategories(t *testing.T) {
	dir := setupEnv(t)
	cfg := `categories:
  - name: Comedy
    urls:
      - "http://www.bbc.co.uk/iplayer/categories/comedy/all?sort=atoz"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0o600))

	output, err := execute(t, "crawl", "--fixtures", fixtureSite)
	require.NoError(t, err, output)
	assert.Contains(t, output, "4 programmes")
}

// TestCrawl_MaxPages verifies the page limit flag is applied
func TestCrawl_MaxPages(t *testing.T) {
	setupEnv(t)

	output, err := execute(t, "crawl", "--fixtures", fixtureSite, "--max-pages", "1", comedySeed)
	require.NoError(t, err, output)
	assert.Contains(t, output, "1 pages")
	assert.Contains(t, output, "dropped by the page limit")
}

// TestCrawl_Failures verifies unknown pages are reported, not fatal
func TestCrawl_Failures(t *testing.T) {
	setupEnv(t)

	output, err := execute(t, "crawl", "--fixtures", fixtureSite, "-v",
		"Missing=http://www.bbc.co.uk/iplayer/categories/missing/all")
	require.NoError(t, err, output)
	assert.Contains(t, output, "1 pages, 0 programmes, 1 failures")
	assert.Contains(t, output, "Failures:")
	assert.Contains(t, output, "categories/missing/all")
}

// TestCrawl_NoCategories verifies a crawl without any category source fails
func TestCrawl_NoCategories(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "crawl", "--fixtures", fixtureSite)
	assert.ErrorContains(t, err, "no categories")

	_, err = execute(t, "crawl", "--fixtures", fixtureSite, "not-a-seed")
	assert.Error(t, err)
}

// TestShow verifies the formats of the show command
func TestShow(t *testing.T) {
	dir := setupEnv(t)
	outPath := filepath.Join(dir, "catalog.json")

	_, err := execute(t, "crawl", "--fixtures", fixtureSite, "--out", outPath, comedySeed)
	require.NoError(t, err)

	table, err := execute(t, "show")
	require.NoError(t, err)
	assert.Contains(t, table, "== Comedy (4) ==")
	assert.Contains(t, table, "#0 Asian Network Comedy")

	compact, err := execute(t, "show", "--format", "compact", outPath)
	require.NoError(t, err)
	assert.Contains(t, compact, "#3 Mock the Week (Comedy)")

	saved, err := catalog.Load(outPath)
	require.NoError(t, err)

	raw, err := execute(t, "show", "--format", "json", saved.ID.String())
	require.NoError(t, err)
	var decoded catalog.Catalog
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, saved.ID, decoded.ID)

	_, err = execute(t, "show", "--category", "Drama")
	assert.ErrorContains(t, err, "category not found")

	_, err = execute(t, "show", "--format", "xml")
	assert.Error(t, err)
}

// TestShow_NoSnapshots verifies an empty store is reported
func TestShow_NoSnapshots(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "show")
	assert.ErrorIs(t, err, catalog.ErrNoSnapshots)
}

// TestRuns verifies run history listing
func TestRuns(t *testing.T) {
	setupEnv(t)

	output, err := execute(t, "runs")
	require.NoError(t, err)
	assert.Contains(t, output, "No runs recorded.")

	_, err = execute(t, "crawl", "--fixtures", fixtureSite, comedySeed)
	require.NoError(t, err)

	output, err = execute(t, "runs", "--since", "1d")
	require.NoError(t, err)
	assert.Contains(t, output, "completed")
	assert.Contains(t, output, "Comedy")

	raw, err := execute(t, "runs", "--format", "json", "--status", "completed")
	require.NoError(t, err)
	var decoded struct {
		Runs  []runs.Run `json:"runs"`
		Total int        `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, 1, decoded.Total)

	_, err = execute(t, "runs", "--status", "paused")
	assert.Error(t, err)
}

// TestInit verifies the config file and storage are created
func TestInit(t *testing.T) {
	dir := setupEnv(t)

	output, err := execute(t, "init")
	require.NoError(t, err, output)
	assert.Contains(t, output, "✓ Created config file")
	assert.FileExists(t, filepath.Join(dir, "config.yaml"))
	assert.DirExists(t, filepath.Join(dir, "catalogs"))
	assert.FileExists(t, filepath.Join(dir, "runs.db"))

	output, err = execute(t, "init")
	require.NoError(t, err)
	assert.Contains(t, output, "already exists")
}

// TestLogLevelFlag verifies an invalid log level is rejected
func TestLogLevelFlag(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "runs", "--log-level", "loud")
	assert.Error(t, err)
}

// TestParseDuration verifies day and week suffixes
func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"90m", 90 * time.Minute},
		{"2d", 48 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
	}
	for _, tt := range tests {
		got, err := parseDuration(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}

	_, err := parseDuration("soon")
	assert.Error(t, err)
}

// TestTruncate verifies rune-safe truncation
func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "Été ...", truncate("Été en fête", 7))
}

// TestServe_Shutdown verifies the server stops when the context ends
func TestServe_Shutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- serve(ctx, server) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
