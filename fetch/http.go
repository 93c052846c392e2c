// Package fetch provides page fetchers for the traversal engine: an HTTP
// client for live crawls and a fixture loader that serves pages from disk.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pevans/progcat"
)

// DefaultUserAgent identifies the crawler to the listing service.
const DefaultUserAgent = "progcat/1.0 (programme catalog crawler)"

// ErrTooManyRedirects is returned, wrapped in a permanent FetchError, when a
// request exceeds the redirect limit.
var ErrTooManyRedirects = errors.New("too many redirects")

// HTTPOptions configures an HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	// MaxRedirects bounds redirects followed per request.
	MaxRedirects int
}

// DefaultHTTPOptions returns the options used when none are configured.
func DefaultHTTPOptions() HTTPOptions {
	return HTTPOptions{
		UserAgent:    DefaultUserAgent,
		Timeout:      10 * time.Second,
		MaxRedirects: 10,
	}
}

// HTTP fetches pages over the network. Retries are left to the caller; a
// failed request is classified once and returned.
type HTTP struct {
	client *resty.Client
}

// NewHTTP creates an HTTP fetcher.
func NewHTTP(opts HTTPOptions) *HTTP {
	def := DefaultHTTPOptions()
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = def.MaxRedirects
	}

	client := resty.New()
	client.SetHeader("User-Agent", opts.UserAgent)
	client.SetHeader("Accept", "text/html,application/xhtml+xml")
	client.SetTimeout(opts.Timeout)
	client.SetRedirectPolicy(redirectLimit(opts.MaxRedirects))

	return &HTTP{client: client}
}

func redirectLimit(limit int) resty.RedirectPolicy {
	return resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
		if len(via) >= limit {
			return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, limit)
		}
		return nil
	})
}

// Fetch retrieves url. Non-2xx responses become a *progcat.FetchError
// classified by status. Network failures are transient FetchErrors and a
// redirect loop is a permanent one.
func (h *HTTP) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := h.client.R().SetContext(ctx).Get(url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &progcat.FetchError{
			URL:       url,
			Permanent: errors.Is(err, ErrTooManyRedirects),
			Err:       err,
		}
	}

	if !resp.IsSuccess() {
		return nil, progcat.NewStatusError(url, resp.StatusCode())
	}

	return resp.Body(), nil
}
