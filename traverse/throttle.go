package traverse

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// hostLimit caps concurrency and request rate for one host.
type hostLimit struct {
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// throttle hands out per-host fetch slots. Workers share it, so the host
// map is guarded.
type throttle struct {
	mu          sync.Mutex
	hosts       map[string]*hostLimit
	concurrency int64
	delay       time.Duration
}

func newThrottle(concurrency int, delay time.Duration) *throttle {
	return &throttle{
		hosts:       make(map[string]*hostLimit),
		concurrency: int64(concurrency),
		delay:       delay,
	}
}

// getHostLimit retrieves or creates the limits for host.
func (t *throttle) getHostLimit(host string) *hostLimit {
	t.mu.Lock()
	defer t.mu.Unlock()

	hl, exists := t.hosts[host]
	if !exists {
		hl = &hostLimit{sem: semaphore.NewWeighted(t.concurrency)}
		if t.delay > 0 {
			hl.limiter = rate.NewLimiter(rate.Every(t.delay), 1)
		}
		t.hosts[host] = hl
		slog.Debug("Created host limits", "host", host, "concurrency", t.concurrency, "delay", t.delay)
	}
	return hl
}

// acquire blocks until a request to rawURL may be made. The returned
// release func must be called once the request is done.
func (t *throttle) acquire(ctx context.Context, rawURL string) (release func(), err error) {
	hl := t.getHostLimit(hostOf(rawURL))

	if err := hl.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire host slot: %w", err)
	}
	release = func() { hl.sem.Release(1) }

	if hl.limiter != nil {
		if err := hl.limiter.Wait(ctx); err != nil {
			release()
			return nil, fmt.Errorf("failed to wait for rate limit: %w", err)
		}
	}

	return release, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
