// Package discovery builds traversal seeds: from "name=url" arguments, from
// the config file's category list, or from an RSS/Atom feed whose items
// are category listing pages.
package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/pevans/progcat/page"
	"github.com/pevans/progcat/traverse"
	"github.com/pevans/progcat/urlnorm"
)

// ErrNoSeeds is returned when a source yields no usable category.
var ErrNoSeeds = errors.New("no category seeds")

// Category is one configured category: a name and its listing URLs.
type Category struct {
	Name string   `yaml:"name" json:"name"`
	URLs []string `yaml:"urls" json:"urls"`
}

// builder collects seeds by category name, keeping first-seen order and
// dropping repeated URLs within a category.
type builder struct {
	seeds []traverse.Seed
	index map[string]int
	seen  map[string]map[string]bool
}

func newBuilder() *builder {
	return &builder{
		index: make(map[string]int),
		seen:  make(map[string]map[string]bool),
	}
}

func (b *builder) add(name, rawURL string) error {
	name = strings.TrimSpace(name)
	rawURL = strings.TrimSpace(rawURL)
	if name == "" {
		return fmt.Errorf("category for %q has no name", rawURL)
	}

	key, err := urlnorm.Normalize(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL for category %q: %w", name, err)
	}

	i, ok := b.index[name]
	if !ok {
		i = len(b.seeds)
		b.index[name] = i
		b.seeds = append(b.seeds, traverse.Seed{Category: name})
		b.seen[name] = make(map[string]bool)
	}

	if b.seen[name][key] {
		return nil
	}
	b.seen[name][key] = true
	b.seeds[i].Refs = append(b.seeds[i].Refs, page.Reference{URL: rawURL, Kind: page.NextPage})

	return nil
}

func (b *builder) result() ([]traverse.Seed, error) {
	if len(b.seeds) == 0 {
		return nil, ErrNoSeeds
	}
	return b.seeds, nil
}

// ParseArgs parses "name=url" arguments. Repeating a name adds further
// listing URLs to that category.
func ParseArgs(args []string) ([]traverse.Seed, error) {
	b := newBuilder()
	for _, arg := range args {
		name, rawURL, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid seed %q: expected name=url", arg)
		}
		if err := b.add(name, rawURL); err != nil {
			return nil, err
		}
	}
	return b.result()
}

// FromCategories converts configured categories to seeds.
func FromCategories(categories []Category) ([]traverse.Seed, error) {
	b := newBuilder()
	for _, c := range categories {
		if len(c.URLs) == 0 {
			return nil, fmt.Errorf("category %q has no URLs", c.Name)
		}
		for _, u := range c.URLs {
			if err := b.add(c.Name, u); err != nil {
				return nil, err
			}
		}
	}
	return b.result()
}

// ParseFeed reads category seeds from an RSS or Atom feed. Each item is a
// category: its title names the category and its link is the listing URL.
// Items without a usable link are skipped.
func ParseFeed(data []byte) ([]traverse.Seed, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	b := newBuilder()
	for _, item := range feed.Items {
		link := item.Link
		if link == "" && len(item.Links) > 0 {
			link = item.Links[0]
		}

		name := strings.TrimSpace(item.Title)
		if name == "" {
			name = feed.Title
		}

		if err := b.add(name, link); err != nil {
			slog.Warn("Skipping feed item", "title", item.Title, "error", err)
			continue
		}
	}

	return b.result()
}

// Fetcher retrieves the raw feed document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetchFeed fetches feedURL with f and parses it with ParseFeed.
func FetchFeed(ctx context.Context, f Fetcher, feedURL string) ([]traverse.Seed, error) {
	data, err := f.Fetch(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	seeds, err := ParseFeed(data)
	if err != nil {
		return nil, err
	}

	slog.Info("Loaded category seeds from feed", "url", feedURL, "categories", len(seeds))
	return seeds, nil
}
