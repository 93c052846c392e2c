// Package extract pulls optional, typed fields out of one item node on a
// listing page. Every extractor is total: missing markup yields nil.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/progcat/catalog"
	"github.com/pevans/progcat/scraper"
	"github.com/pevans/progcat/urlnorm"
)

// Extractor reads programme fields from item nodes using configured
// selectors.
type Extractor struct {
	sel      scraper.ItemSelectors
	resolver *urlnorm.Resolver
}

// New creates an extractor for the given item selectors.
func New(sel scraper.ItemSelectors, resolver *urlnorm.Resolver) *Extractor {
	return &Extractor{sel: sel, resolver: resolver}
}

// Programme runs every field extractor independently. The index is left
// unset.
func (e *Extractor) Programme(node *goquery.Selection, pageURL string) catalog.Programme {
	return catalog.Programme{
		Title:     e.Title(node),
		Subtitle:  e.Subtitle(node),
		Synopsis:  e.Synopsis(node),
		Thumbnail: e.Thumbnail(node, pageURL),
		URL:       e.DetailURL(node, pageURL),
		Available: e.Available(node),
		Duration:  e.Duration(node),
		PID:       e.PID(node),
	}
}

// Title returns the item title with whitespace collapsed.
func (e *Extractor) Title(node *goquery.Selection) *string {
	return e.text(node, e.sel.Title)
}

// Subtitle returns the episode or series subtitle.
func (e *Extractor) Subtitle(node *goquery.Selection) *string {
	return e.text(node, e.sel.Subtitle)
}

// Synopsis returns the short description shown on the listing.
func (e *Extractor) Synopsis(node *goquery.Selection) *string {
	return e.text(node, e.sel.Synopsis)
}

// Available returns the availability text, e.g. "Available until 2026".
func (e *Extractor) Available(node *goquery.Selection) *string {
	return e.text(node, e.sel.Available)
}

// Duration returns the duration label as shown, without parsing it.
func (e *Extractor) Duration(node *goquery.Selection) *string {
	return e.text(node, e.sel.Duration)
}

// DetailURL returns the item's primary link: the first link inside the
// item that is not its "view more" link, or the item itself when it is the
// link.
func (e *Extractor) DetailURL(node *goquery.Selection, pageURL string) *string {
	if e.sel.Link == "" {
		return nil
	}

	var link *goquery.Selection
	node.Find(e.sel.Link).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if e.inDetailLink(s) {
			return true
		}
		link = s
		return false
	})
	if link == nil {
		if !node.Is(e.sel.Link) {
			return nil
		}
		link = node
	}

	href, ok := link.Attr("href")
	if !ok {
		return nil
	}
	return e.resolve(href, pageURL)
}

// DetailLink returns the "view more" link of an item, if any. A present
// detail link turns the item into a page reference.
func (e *Extractor) DetailLink(node *goquery.Selection, pageURL string) *string {
	if e.sel.DetailLink == "" {
		return nil
	}

	link := node.Find(e.sel.DetailLink).First()
	if link.Length() == 0 {
		return nil
	}

	// The marker is either the anchor itself or a wrapper around one.
	href, ok := link.Attr("href")
	if !ok {
		href, ok = link.Find("a[href]").First().Attr("href")
	}
	if !ok {
		return nil
	}
	return e.resolve(href, pageURL)
}

// Thumbnail returns the first candidate of the first matching image source.
// For responsive image sets that is the first srcset entry.
func (e *Extractor) Thumbnail(node *goquery.Selection, pageURL string) *string {
	if e.sel.Thumbnail == "" {
		return nil
	}

	var found *string
	node.Find(e.sel.Thumbnail).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, attr := range e.sel.ThumbnailAttrs {
			val, ok := s.Attr(attr)
			if !ok {
				continue
			}
			candidate := firstCandidate(val)
			if candidate == "" {
				continue
			}
			found = e.resolve(candidate, pageURL)
			if found != nil {
				return false
			}
		}
		return true
	})

	return found
}

// PID returns the programme identifier from the item's attribute, falling
// back to the attribute on its first link.
func (e *Extractor) PID(node *goquery.Selection) *string {
	if e.sel.PIDAttr != "" {
		if pid, ok := node.Attr(e.sel.PIDAttr); ok {
			if pid = strings.TrimSpace(pid); pid != "" {
				return &pid
			}
		}
	}

	if e.sel.LinkPIDAttr != "" {
		sel := "[" + e.sel.LinkPIDAttr + "]"
		if pid, ok := node.Find(sel).First().Attr(e.sel.LinkPIDAttr); ok {
			if pid = strings.TrimSpace(pid); pid != "" {
				return &pid
			}
		}
	}

	return nil
}

// HasSeriesMarker reports whether the item carries the series navigation
// marker.
func (e *Extractor) HasSeriesMarker(node *goquery.Selection) bool {
	if e.sel.SeriesMarker == "" {
		return false
	}
	return node.Find(e.sel.SeriesMarker).Length() > 0 || node.Is(e.sel.SeriesMarker)
}

func (e *Extractor) inDetailLink(s *goquery.Selection) bool {
	if e.sel.DetailLink == "" {
		return false
	}
	return s.Is(e.sel.DetailLink) || s.ParentsFiltered(e.sel.DetailLink).Length() > 0
}

func (e *Extractor) text(node *goquery.Selection, selector string) *string {
	if selector == "" {
		return nil
	}

	match := node.Find(selector).First()
	if match.Length() == 0 {
		return nil
	}

	return NormalizeText(match.Text())
}

func (e *Extractor) resolve(raw, pageURL string) *string {
	resolved, ok := e.resolver.Resolve(raw, pageURL)
	if !ok {
		return nil
	}
	return &resolved
}

// NormalizeText collapses whitespace runs and trims. Empty text is nil.
func NormalizeText(s string) *string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return nil
	}
	return &s
}

// firstCandidate returns the URL of the first entry of a srcset value (or
// the whole value of a plain src).
func firstCandidate(srcset string) string {
	first, _, _ := strings.Cut(srcset, ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
