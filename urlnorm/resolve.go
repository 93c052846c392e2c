// Package urlnorm resolves links found on listing pages and normalizes URLs
// into visited-set keys.
package urlnorm

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pevans/progcat/scraper"
)

// Resolver turns raw href values into absolute http(s) URLs.
type Resolver struct {
	origin *url.URL
	policy scraper.ResolvePolicy
}

// NewResolver creates a resolver. An empty origin means "use the page's own
// scheme and host".
func NewResolver(origin string, policy scraper.ResolvePolicy) (*Resolver, error) {
	r := &Resolver{policy: policy}
	if r.policy == "" {
		r.policy = scraper.ResolveOrigin
	}

	if origin != "" {
		u, err := url.Parse(origin)
		if err != nil {
			return nil, fmt.Errorf("invalid origin: %w", err)
		}
		if !isHTTP(u) || u.Host == "" {
			return nil, fmt.Errorf("invalid origin %q: must be an absolute http(s) URL", origin)
		}
		r.origin = &url.URL{Scheme: u.Scheme, Host: u.Host}
	}

	return r, nil
}

// Resolve returns the absolute form of raw as found on pageURL. The second
// return is false when raw is empty, a fragment, not parseable, not
// http(s) or has no host.
func (r *Resolver) Resolve(raw, pageURL string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return "", false
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	// Scheme-qualified or protocol-relative: already absolute.
	if ref.Scheme != "" || ref.Host != "" {
		if ref.Scheme == "" {
			ref.Scheme = r.schemeFor(pageURL)
		}
		if !isHTTP(ref) || ref.Host == "" {
			return "", false
		}
		return ref.String(), true
	}

	page, _ := url.Parse(pageURL)
	origin := r.origin
	if origin == nil {
		if page == nil || !isHTTP(page) || page.Host == "" {
			return "", false
		}
		origin = &url.URL{Scheme: page.Scheme, Host: page.Host}
	}

	var resolved *url.URL
	switch {
	case strings.HasPrefix(ref.Path, "/"):
		resolved = origin.ResolveReference(ref)
	case page != nil && page.Host != "" && (r.policy == scraper.ResolvePage || ref.Path == ""):
		// Query-only links always belong to the page they sit on. The
		// page's path is kept but moved onto the configured origin.
		base := *origin
		base.Path = page.Path
		base.RawQuery = page.RawQuery
		resolved = base.ResolveReference(ref)
	default:
		root := *origin
		root.Path = "/"
		resolved = root.ResolveReference(ref)
	}

	return resolved.String(), true
}

func (r *Resolver) schemeFor(pageURL string) string {
	if r.origin != nil {
		return r.origin.Scheme
	}
	if u, err := url.Parse(pageURL); err == nil && u.Scheme != "" {
		return u.Scheme
	}
	return "https"
}

func isHTTP(u *url.URL) bool {
	return u.Scheme == "http" || u.Scheme == "https"
}
