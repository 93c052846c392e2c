package scraper

import "fmt"

// ResolvePolicy decides what a path-relative link ("episodes/b01", no
// leading slash) is resolved against. Scheme-qualified and site-relative
// ("/iplayer/...") links are unaffected by it.
type ResolvePolicy string

const (
	// ResolveOrigin joins path-relative links to the root of the origin.
	ResolveOrigin ResolvePolicy = "origin"
	// ResolvePage resolves path-relative links against the URL of the page
	// they were found on.
	ResolvePage ResolvePolicy = "page"
)

// Config defines how to find programme items, their fields and the links
// between listing pages.
type Config struct {
	// Origin is the base URL relative links are joined to. When empty the
	// scheme and host of the page being decoded are used.
	Origin        string        `json:"origin,omitempty" yaml:"origin,omitempty"`
	ResolvePolicy ResolvePolicy `json:"resolve_policy,omitempty" yaml:"resolve_policy,omitempty"`

	Item ItemSelectors `json:"item" yaml:"item"`
	List ListConfig    `json:"list" yaml:"list"`
}

// ItemSelectors locate one item container on a listing page and the fields
// inside it. Every field selector is optional; a selector that matches
// nothing yields an absent field.
type ItemSelectors struct {
	Container      string   `json:"container" yaml:"container"`
	Title          string   `json:"title,omitempty" yaml:"title,omitempty"`
	Subtitle       string   `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Synopsis       string   `json:"synopsis,omitempty" yaml:"synopsis,omitempty"`
	Thumbnail      string   `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
	ThumbnailAttrs []string `json:"thumbnail_attrs,omitempty" yaml:"thumbnail_attrs,omitempty"`
	Available      string   `json:"available,omitempty" yaml:"available,omitempty"`
	Duration       string   `json:"duration,omitempty" yaml:"duration,omitempty"`
	Link           string   `json:"link,omitempty" yaml:"link,omitempty"`
	DetailLink     string   `json:"detail_link,omitempty" yaml:"detail_link,omitempty"`
	PIDAttr        string   `json:"pid_attr,omitempty" yaml:"pid_attr,omitempty"`
	LinkPIDAttr    string   `json:"link_pid_attr,omitempty" yaml:"link_pid_attr,omitempty"`
	SeriesMarker   string   `json:"series_marker,omitempty" yaml:"series_marker,omitempty"`
}

// ListConfig defines how listing pages link to each other.
type ListConfig struct {
	PaginationSelector string `json:"pagination_selector,omitempty" yaml:"pagination_selector,omitempty"`
	SeriesNavSelector  string `json:"series_nav_selector,omitempty" yaml:"series_nav_selector,omitempty"`
	SeriesLinkSelector string `json:"series_link_selector,omitempty" yaml:"series_link_selector,omitempty"`
}

// DefaultConfig returns selectors for the iPlayer listing markup.
func DefaultConfig() Config {
	return Config{
		Origin:        "http://www.bbc.co.uk",
		ResolvePolicy: ResolveOrigin,
		Item: ItemSelectors{
			Container:      ".list-item-inner",
			Title:          ".secondary .title",
			Subtitle:       ".secondary .subtitle",
			Synopsis:       ".synopsis",
			Thumbnail:      ".rs-image picture source",
			ThumbnailAttrs: []string{"srcset", "src"},
			Available:      ".period",
			Duration:       ".duration",
			Link:           "a[href]",
			DetailLink:     ".view-more-container",
			PIDAttr:        "data-ip-id",
			LinkPIDAttr:    "data-episode-id",
			SeriesMarker:   ".series-nav",
		},
		List: ListConfig{
			PaginationSelector: ".page a",
			SeriesNavSelector:  ".series-nav",
			SeriesLinkSelector: ".series-nav a",
		},
	}
}

// Validate checks that the configuration can locate items at all.
func (c Config) Validate() error {
	if c.Item.Container == "" {
		return fmt.Errorf("item container selector is required")
	}

	switch c.ResolvePolicy {
	case "", ResolveOrigin, ResolvePage:
	default:
		return fmt.Errorf("resolve_policy must be %q or %q, got %q", ResolveOrigin, ResolvePage, c.ResolvePolicy)
	}

	return nil
}
