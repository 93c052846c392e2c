package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/pevans/progcat/page"
	"github.com/pevans/progcat/traverse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const categoriesRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>iPlayer categories</title>
    <link>http://www.bbc.co.uk/iplayer</link>
    <item>
      <title>Comedy</title>
      <link>http://www.bbc.co.uk/iplayer/categories/comedy/all?sort=atoz</link>
    </item>
    <item>
      <title>Drama</title>
      <link>http://www.bbc.co.uk/iplayer/categories/drama/all?sort=atoz</link>
    </item>
    <item>
      <title>Comedy</title>
      <link>http://www.bbc.co.uk/iplayer/categories/comedy/all?sort=atoz&amp;page=2</link>
    </item>
    <item>
      <title>Broken</title>
      <link>not a url</link>
    </item>
    <item>
      <title>No link</title>
    </item>
  </channel>
</rss>`

const categoriesAtom = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Categories</title>
  <id>urn:categories</id>
  <updated>2026-01-01T00:00:00Z</updated>
  <entry>
    <title>Films</title>
    <id>urn:films</id>
    <updated>2026-01-01T00:00:00Z</updated>
    <link href="http://www.bbc.co.uk/iplayer/categories/films/all"/>
  </entry>
</feed>`

// Test helper: stub feed fetcher
type stubFetcher struct {
	body []byte
	err  error
	urls []string
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	s.urls = append(s.urls, url)
	return s.body, s.err
}

func refURLs(seed traverse.Seed) []string {
	var urls []string
	for _, r := range seed.Refs {
		urls = append(urls, r.URL)
	}
	return urls
}

// TestParseArgs verifies name=url arguments group by category
func TestParseArgs(t *testing.T) {
	seeds, err := ParseArgs([]string{
		"Comedy=http://www.bbc.co.uk/iplayer/categories/comedy/all",
		"Drama=http://www.bbc.co.uk/iplayer/categories/drama/all",
		"Comedy=http://www.bbc.co.uk/iplayer/categories/comedy/all?page=2",
		"Comedy=HTTP://www.bbc.co.uk/iplayer/categories/comedy/all",
	})
	require.NoError(t, err)
	require.Len(t, seeds, 2)

	assert.Equal(t, "Comedy", seeds[0].Category)
	assert.Equal(t, []string{
		"http://www.bbc.co.uk/iplayer/categories/comedy/all",
		"http://www.bbc.co.uk/iplayer/categories/comedy/all?page=2",
	}, refURLs(seeds[0]))
	assert.Equal(t, "Drama", seeds[1].Category)

	for _, r := range seeds[0].Refs {
		assert.Equal(t, page.NextPage, r.Kind)
	}
}

// TestParseArgs_Errors verifies malformed arguments are rejected
func TestParseArgs_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no separator", []string{"Comedy"}},
		{"empty name", []string{"=http://www.bbc.co.uk/a"}},
		{"relative url", []string{"Comedy=/iplayer"}},
		{"no args", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args)
			assert.Error(t, err)
		})
	}

	_, err := ParseArgs(nil)
	assert.ErrorIs(t, err, ErrNoSeeds)
}

// TestFromCategories verifies configured categories become seeds
func TestFromCategories(t *testing.T) {
	seeds, err := FromCategories([]Category{
		{Name: "Comedy", URLs: []string{"http://www.bbc.co.uk/iplayer/categories/comedy/all"}},
		{Name: "Films", URLs: []string{
			"http://www.bbc.co.uk/iplayer/categories/films/all",
			"http://www.bbc.co.uk/iplayer/categories/films/all?page=2",
		}},
	})
	require.NoError(t, err)
	require.Len(t, seeds, 2)
	assert.Equal(t, "Films", seeds[1].Category)
	assert.Len(t, seeds[1].Refs, 2)

	_, err = FromCategories([]Category{{Name: "Empty"}})
	assert.Error(t, err)
}

// TestParseFeed_RSS verifies RSS items become category seeds and unusable
// items are skipped
func TestParseFeed_RSS(t *testing.T) {
	seeds, err := ParseFeed([]byte(categoriesRSS))
	require.NoError(t, err)
	require.Len(t, seeds, 2)

	assert.Equal(t, "Comedy", seeds[0].Category)
	assert.Equal(t, []string{
		"http://www.bbc.co.uk/iplayer/categories/comedy/all?sort=atoz",
		"http://www.bbc.co.uk/iplayer/categories/comedy/all?sort=atoz&page=2",
	}, refURLs(seeds[0]))

	assert.Equal(t, "Drama", seeds[1].Category)
}

// TestParseFeed_Atom verifies Atom entry links are used
func TestParseFeed_Atom(t *testing.T) {
	seeds, err := ParseFeed([]byte(categoriesAtom))
	require.NoError(t, err)
	require.Len(t, seeds, 1)

	assert.Equal(t, "Films", seeds[0].Category)
	assert.Equal(t, []string{"http://www.bbc.co.uk/iplayer/categories/films/all"}, refURLs(seeds[0]))
}

// TestParseFeed_Errors verifies invalid and empty feeds fail
func TestParseFeed_Errors(t *testing.T) {
	_, err := ParseFeed([]byte("<html>not a feed</html>"))
	assert.Error(t, err)

	empty := `<?xml version="1.0"?><rss version="2.0"><channel><title>x</title></channel></rss>`
	_, err = ParseFeed([]byte(empty))
	assert.ErrorIs(t, err, ErrNoSeeds)
}

// TestFetchFeed verifies the feed is fetched and parsed
func TestFetchFeed(t *testing.T) {
	f := &stubFetcher{body: []byte(categoriesAtom)}

	seeds, err := FetchFeed(context.Background(), f, "http://example.test/categories.xml")
	require.NoError(t, err)
	assert.Len(t, seeds, 1)
	assert.Equal(t, []string{"http://example.test/categories.xml"}, f.urls)

	boom := errors.New("boom")
	_, err = FetchFeed(context.Background(), &stubFetcher{err: boom}, "http://example.test/x")
	assert.ErrorIs(t, err, boom)
}
