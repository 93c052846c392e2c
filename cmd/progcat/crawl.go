package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pevans/progcat/catalog"
	"github.com/pevans/progcat/discovery"
	"github.com/pevans/progcat/fetch"
	"github.com/pevans/progcat/page"
	"github.com/pevans/progcat/runs"
	"github.com/pevans/progcat/traverse"
	"github.com/spf13/cobra"
)

type crawlOptions struct {
	out      string
	workers  int
	maxPages int
	delay    time.Duration
	fixtures string
	feed     string
	verbose  bool
}

// fetcher is what crawl needs from a page source: traversal fetches and
// feed fetches share one implementation.
type fetcher interface {
	traverse.Fetcher
	discovery.Fetcher
}

func newCrawlCmd(a *app) *cobra.Command {
	opts := &crawlOptions{}

	cmd := &cobra.Command{
		Use:   "crawl [name=url ...]",
		Short: "Crawl categories and save a catalog snapshot",
		Long: `Crawl the given categories and save the result as a catalog snapshot.

Categories come from, in order of preference: name=url arguments, the --feed
flag or the feed setting, and the categories in the config file. Repeat a
name to give a category several listing URLs.

Example:
  progcat crawl "Comedy=http://www.bbc.co.uk/iplayer/categories/comedy/all?sort=atoz"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCrawl(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Also write the catalog to this file (.json, .yaml)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Concurrent fetch workers")
	cmd.Flags().IntVar(&opts.maxPages, "max-pages", 0, "Maximum pages fetched per category (0 = unlimited)")
	cmd.Flags().DurationVar(&opts.delay, "delay", 0, "Minimum delay between requests to one host")
	cmd.Flags().StringVar(&opts.fixtures, "fixtures", "", "Serve pages from a fixture directory instead of the network")
	cmd.Flags().StringVar(&opts.feed, "feed", "", "RSS/Atom feed listing the categories to crawl")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "List failed references")

	return cmd
}

func (a *app) runCrawl(cmd *cobra.Command, opts *crawlOptions, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	s := a.settings

	crawlCfg := s.Crawl
	if cmd.Flags().Changed("workers") {
		crawlCfg.Workers = opts.workers
	}
	if cmd.Flags().Changed("max-pages") {
		crawlCfg.MaxPagesPerCategory = opts.maxPages
	}
	if cmd.Flags().Changed("delay") {
		crawlCfg.RequestDelay = opts.delay
	}

	var f fetcher
	if opts.fixtures != "" {
		files, err := fetch.NewFiles(opts.fixtures)
		if err != nil {
			return err
		}
		f = files
	} else {
		f = fetch.NewHTTP(s.HTTP)
	}

	feed := s.Feed
	if opts.feed != "" {
		feed = opts.feed
	}

	seeds, err := a.seeds(ctx, f, args, feed)
	if err != nil {
		return err
	}

	decoder, err := page.NewDecoder(s.Scraper)
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	snapshots, err := catalog.NewStore(s.SnapshotDir)
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %w", err)
	}

	history, err := runs.NewRunStore(s.RunsDB)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer history.Close()

	names := make([]string, len(seeds))
	for i, seed := range seeds {
		names[i] = seed.Category
	}

	run, err := history.Start(names)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Crawling %d categories...\n", len(seeds))

	engine := traverse.New(f, decoder, crawlCfg)
	result, runErr := engine.Run(ctx, seeds)

	var stats traverse.Stats
	if result != nil {
		stats = result.Stats()
	}

	outcome := runs.Outcome{Stats: stats, Err: runErr}
	var snapshot *catalog.Catalog

	switch {
	case runErr == nil:
		snapshot, err = a.saveSnapshot(snapshots, result, opts.out)
		if err != nil {
			outcome.Status = runs.StatusFailed
			outcome.Err = err
			runErr = err
		} else {
			outcome.Status = runs.StatusCompleted
			outcome.CatalogID = &snapshot.ID
		}
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		outcome.Status = runs.StatusCancelled
	default:
		outcome.Status = runs.StatusFailed
	}

	if err := history.Finish(run.RunID, outcome); err != nil {
		slog.Error("Failed to record run", "run", run.RunID, "error", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Crawl %s:\n", outcome.Status)
	fmt.Fprintf(out, "  %s\n", stats)
	if stats.Truncated > 0 {
		fmt.Fprintf(out, "  %d references dropped by the page limit\n", stats.Truncated)
	}
	fmt.Fprintf(out, "  Run: %s\n", run.RunID)
	if snapshot != nil {
		fmt.Fprintf(out, "  Snapshot: %s\n", snapshot.ID)
		if opts.out != "" {
			fmt.Fprintf(out, "  Saved to: %s\n", opts.out)
		}
	}

	if result != nil && len(result.Failures) > 0 && opts.verbose {
		printFailures(out, result.Failures)
	}

	if runErr != nil {
		return fmt.Errorf("crawl %s: %w", outcome.Status, runErr)
	}
	return nil
}

// seeds picks the category source: arguments, then a feed, then the
// configured categories.
func (a *app) seeds(ctx context.Context, f discovery.Fetcher, args []string, feed string) ([]traverse.Seed, error) {
	switch {
	case len(args) > 0:
		return discovery.ParseArgs(args)
	case feed != "":
		return discovery.FetchFeed(ctx, f, feed)
	case len(a.settings.Categories) > 0:
		return discovery.FromCategories(a.settings.Categories)
	default:
		return nil, fmt.Errorf("no categories: pass name=url arguments, --feed, or configure categories")
	}
}

func (a *app) saveSnapshot(store *catalog.Store, result *traverse.Result, path string) (*catalog.Catalog, error) {
	snapshot, err := catalog.Assemble(result.Categories, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to assemble catalog: %w", err)
	}

	if err := store.Add(snapshot); err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}

	if path != "" {
		if err := catalog.Save(snapshot, path); err != nil {
			return nil, err
		}
	}

	return snapshot, nil
}

func printFailures(w io.Writer, failures []traverse.Failure) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Failures:")
	for _, f := range failures {
		fmt.Fprintf(w, "  - %s [%s] after %d attempts: %v\n", f.Ref.URL, f.Category, f.Attempts, f.Err)
	}
}
