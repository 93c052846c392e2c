package urlnorm

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
)

// Normalize returns the canonical form of an absolute http(s) URL: lower
// case scheme and host, no default port, no fragment, sorted query, no
// trailing slash except on the root path.
func Normalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid URL %q: missing host", raw)
	}

	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	switch {
	case port != "":
		host = net.JoinHostPort(host, port)
	case strings.Contains(host, ":"):
		host = "[" + host + "]"
	}
	u.Host = host

	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil

	if u.Path == "" {
		u.Path = "/"
	} else if len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
		if u.Path == "" {
			u.Path = "/"
		}
	}
	u.RawPath = ""

	if u.RawQuery != "" {
		u.RawQuery = sortQuery(u.RawQuery)
	}
	u.ForceQuery = false

	return u.String(), nil
}

// sortQuery orders the query by key. A query that does not parse cleanly
// has its raw pairs sorted instead, so no pair is ever dropped.
func sortQuery(raw string) string {
	values, err := url.ParseQuery(raw)
	if err == nil {
		// Encode sorts by key.
		return values.Encode()
	}

	pairs := strings.Split(raw, "&")
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}
