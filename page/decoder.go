package page

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/progcat"
	"github.com/pevans/progcat/extract"
	"github.com/pevans/progcat/scraper"
	"github.com/pevans/progcat/urlnorm"
)

// ErrEmptyDocument is returned for bodies with no markup in them.
var ErrEmptyDocument = errors.New("empty document")

// Page is everything the traversal needs from one listing page. It holds
// plain values only; the parsed document does not outlive Decode.
type Page struct {
	URL           string
	Selections    []Selection
	Continuations []Reference
	SeriesLinks   []Reference
	IsSeries      bool
}

// Decoder turns raw listing pages into Pages.
type Decoder struct {
	cfg       scraper.Config
	resolver  *urlnorm.Resolver
	extractor *extract.Extractor
}

// NewDecoder creates a decoder for the given selector configuration.
func NewDecoder(cfg scraper.Config) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scraper config: %w", err)
	}

	resolver, err := urlnorm.NewResolver(cfg.Origin, cfg.ResolvePolicy)
	if err != nil {
		return nil, err
	}

	return &Decoder{
		cfg:       cfg,
		resolver:  resolver,
		extractor: extract.New(cfg.Item, resolver),
	}, nil
}

// Decode parses body, fetched from pageURL. A body that cannot be parsed
// into a document is a *progcat.DecodeError; anything short of that yields
// a Page, possibly with no selections.
func (d *Decoder) Decode(body []byte, pageURL string) (*Page, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &progcat.DecodeError{URL: pageURL, Err: ErrEmptyDocument}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &progcat.DecodeError{URL: pageURL, Err: fmt.Errorf("failed to parse HTML: %w", err)}
	}

	// The HTML parser accepts anything; a document whose body holds no
	// elements and no text was not a page.
	if doc.Find("body *").Length() == 0 && strings.TrimSpace(doc.Find("body").Text()) == "" {
		return nil, &progcat.DecodeError{URL: pageURL, Err: ErrEmptyDocument}
	}

	self, _ := urlnorm.Normalize(pageURL)

	p := &Page{URL: pageURL}
	if sel := d.cfg.List.SeriesNavSelector; sel != "" {
		p.IsSeries = doc.Find(sel).Length() > 0
	}

	scope := Scope{PageURL: pageURL, Series: p.IsSeries}
	doc.Find(d.cfg.Item.Container).Each(func(i int, node *goquery.Selection) {
		s := Classify(node, d.extractor, scope)
		if s.Tag == Skipped {
			slog.Debug("Skipping item", "url", pageURL, "position", i, "reason", s.Reason)
		}
		p.Selections = append(p.Selections, s)
	})

	p.Continuations = d.links(doc, d.cfg.List.PaginationSelector, pageURL, self, NextPage)
	if p.IsSeries {
		p.SeriesLinks = d.links(doc, d.cfg.List.SeriesLinkSelector, pageURL, self, SeriesPage)
	}

	return p, nil
}

// links collects the distinct resolved hrefs matched by selector, minus the
// current page.
func (d *Decoder) links(doc *goquery.Document, selector, pageURL, self string, kind Kind) []Reference {
	if selector == "" {
		return nil
	}

	seen := map[string]bool{}
	if self != "" {
		seen[self] = true
	}

	var refs []Reference
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		resolved, ok := d.resolver.Resolve(href, pageURL)
		if !ok {
			return
		}
		key, err := urlnorm.Normalize(resolved)
		if err != nil || seen[key] {
			return
		}
		seen[key] = true
		refs = append(refs, Reference{URL: resolved, Kind: kind})
	})

	return refs
}
