// Package traverse drives a breadth-first crawl over listing pages. A single
// coordinator owns the frontier, the visited set and the per-category
// accumulators; workers only fetch and decode. Results are applied in
// dispatch order, so the record order does not depend on which fetch
// finishes first.
package traverse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pevans/progcat"
	"github.com/pevans/progcat/catalog"
	"github.com/pevans/progcat/page"
	"github.com/pevans/progcat/urlnorm"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidSeed is returned by Run before any fetch when a seed cannot be
// crawled.
var ErrInvalidSeed = errors.New("invalid seed")

// Fetcher retrieves the raw body of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Decoder turns a fetched body into a page. *page.Decoder implements it.
type Decoder interface {
	Decode(body []byte, pageURL string) (*page.Page, error)
}

// Seed is the starting point of one category.
type Seed struct {
	Category string
	Refs     []page.Reference
}

// Engine runs traversals. It holds no per-run state and may be reused.
type Engine struct {
	fetcher Fetcher
	decoder Decoder
	cfg     Config
}

// New creates an engine.
func New(fetcher Fetcher, decoder Decoder, cfg Config) *Engine {
	return &Engine{
		fetcher: fetcher,
		decoder: decoder,
		cfg:     cfg.withDefaults(),
	}
}

type job struct {
	seq   uint64
	entry entry
}

type outcome struct {
	seq      uint64
	entry    entry
	page     *page.Page
	attempts int
	err      error
}

// Run crawls every seed and returns the programmes found per category.
// Per-page failures are collected in the result. Run stops early only on
// cancellation, in which case the partial result is returned with
// ctx.Err(), or on an invariant violation.
func (e *Engine) Run(ctx context.Context, seeds []Seed) (*Result, error) {
	if err := validateSeeds(seeds); err != nil {
		return nil, err
	}

	r := newRun(seeds, e.cfg.MaxPagesPerCategory)
	for i, seed := range seeds {
		for _, ref := range seed.Refs {
			if err := r.enqueue(ref, i); err != nil {
				return nil, err
			}
		}
	}

	start := time.Now()
	slog.Info("Starting traversal",
		"categories", len(seeds),
		"seeds", r.frontier.len(),
		"workers", e.cfg.Workers)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	th := newThrottle(e.cfg.PerOriginConcurrency, e.cfg.RequestDelay)
	jobs := make(chan job)
	results := make(chan outcome)

	for i := 0; i < e.cfg.Workers; i++ {
		g.Go(func() error {
			for j := range jobs {
				o := e.process(gctx, th, j)
				select {
				case results <- o:
				case <-gctx.Done():
					return nil
				}
			}
			return nil
		})
	}

	err := e.coordinate(ctx, r, jobs, results)
	close(jobs)
	cancel()
	if waitErr := g.Wait(); waitErr != nil && err == nil {
		err = waitErr
	}

	result := r.finish()
	stats := result.Stats()
	if err != nil {
		slog.Warn("Traversal stopped", "error", err, "pages", stats.Pages, "programmes", stats.Programmes)
		return result, err
	}

	slog.Info("Traversal complete",
		"pages", stats.Pages,
		"programmes", stats.Programmes,
		"failures", stats.Failures,
		"skipped", stats.Skipped,
		"duration", time.Since(start).Round(time.Millisecond))

	return result, nil
}

// coordinate dispatches frontier entries to workers and applies their
// outcomes strictly in dispatch order.
func (e *Engine) coordinate(ctx context.Context, r *run, jobs chan<- job, results <-chan outcome) error {
	var (
		dispatched uint64
		applied    uint64
		inflight   int
		pending    = make(map[uint64]outcome)
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var (
			send chan<- job
			next job
		)
		if inflight < e.cfg.Workers {
			if head, ok := r.frontier.peek(); ok {
				send = jobs
				next = job{seq: dispatched, entry: head}
			}
		}

		if send == nil && inflight == 0 {
			return nil
		}

		select {
		case send <- next:
			r.frontier.pop()
			dispatched++
			inflight++

		case o := <-results:
			inflight--
			pending[o.seq] = o

			for {
				ready, ok := pending[applied]
				if !ok {
					break
				}
				delete(pending, applied)
				applied++

				if err := ctx.Err(); err != nil {
					return err
				}
				if err := r.apply(ready); err != nil {
					return err
				}
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// process fetches and decodes one page. It runs on a worker and touches no
// coordinator state.
func (e *Engine) process(ctx context.Context, th *throttle, j job) outcome {
	o := outcome{seq: j.seq, entry: j.entry}
	pageURL := j.entry.ref.URL

	body, attempts, err := e.fetchWithRetry(ctx, th, pageURL)
	o.attempts = attempts
	if err != nil {
		o.err = err
		return o
	}

	p, err := e.decoder.Decode(body, pageURL)
	if err != nil {
		var decodeErr *progcat.DecodeError
		if !errors.As(err, &decodeErr) {
			err = &progcat.DecodeError{URL: pageURL, Err: err}
		}
		o.err = err
		return o
	}

	o.page = p
	return o
}

func validateSeeds(seeds []Seed) error {
	names := make(map[string]bool, len(seeds))

	for i, seed := range seeds {
		if seed.Category == "" {
			return fmt.Errorf("%w: seed %d has no category name", ErrInvalidSeed, i)
		}
		if names[seed.Category] {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidSeed, seed.Category)
		}
		names[seed.Category] = true

		for _, ref := range seed.Refs {
			if _, err := urlnorm.Normalize(ref.URL); err != nil {
				return fmt.Errorf("%w: category %q: %v", ErrInvalidSeed, seed.Category, err)
			}
		}
	}

	return nil
}

// run is the coordinator-owned state of one Run.
type run struct {
	names      []string
	programmes [][]catalog.Programme
	pages      []int
	maxPages   int

	frontier frontier
	visited  *visitedSet

	fetched   []string
	failures  []Failure
	skipped   int
	truncated int
}

func newRun(seeds []Seed, maxPages int) *run {
	r := &run{
		names:      make([]string, len(seeds)),
		programmes: make([][]catalog.Programme, len(seeds)),
		pages:      make([]int, len(seeds)),
		maxPages:   maxPages,
		visited:    newVisitedSet(),
	}
	for i, seed := range seeds {
		r.names[i] = seed.Category
	}
	return r
}

// enqueue admits ref to the frontier unless its URL was already admitted
// or its category is full.
func (r *run) enqueue(ref page.Reference, category int) error {
	if category < 0 || category >= len(r.names) {
		return progcat.Invariantf("reference %q has unknown category %d", ref.URL, category)
	}

	key, err := urlnorm.Normalize(ref.URL)
	if err != nil {
		return progcat.Invariantf("malformed reference %q: %v", ref.URL, err)
	}

	if r.maxPages > 0 && r.pages[category] >= r.maxPages {
		if !r.visited.has(key) {
			r.truncated++
			slog.Debug("Page limit reached", "category", r.names[category], "url", ref.URL)
		}
		return nil
	}

	if !r.visited.MarkIfNotVisited(key) {
		return nil
	}

	r.pages[category]++
	r.frontier.push(entry{ref: ref, key: key, category: category})
	return nil
}

// apply folds one outcome into the accumulators and enqueues the
// references it found.
func (r *run) apply(o outcome) error {
	if o.entry.category < 0 || o.entry.category >= len(r.names) {
		return progcat.Invariantf("outcome for %q has unknown category %d", o.entry.ref.URL, o.entry.category)
	}
	name := r.names[o.entry.category]
	r.fetched = append(r.fetched, o.entry.key)

	if o.err != nil {
		slog.Warn("Page failed", "url", o.entry.ref.URL, "category", name, "attempts", o.attempts, "error", o.err)
		r.failures = append(r.failures, Failure{
			Ref:      o.entry.ref,
			Category: name,
			Attempts: o.attempts,
			Err:      o.err,
		})
		return nil
	}
	if o.page == nil {
		return progcat.Invariantf("outcome for %q has neither page nor error", o.entry.ref.URL)
	}

	found := 0
	for _, sel := range o.page.Selections {
		switch sel.Tag {
		case page.Programme:
			if sel.Programme.Indexed() {
				return progcat.Invariantf("decoded programme on %q is already indexed", o.entry.ref.URL)
			}
			r.programmes[o.entry.category] = append(r.programmes[o.entry.category], sel.Programme)
			found++
		case page.PageRef:
			if err := r.enqueue(sel.Ref, o.entry.category); err != nil {
				return err
			}
		case page.Skipped:
			r.skipped++
		default:
			return progcat.Invariantf("unknown selection tag %d on %q", sel.Tag, o.entry.ref.URL)
		}
	}

	for _, refs := range [][]page.Reference{o.page.Continuations, o.page.SeriesLinks} {
		for _, ref := range refs {
			if err := r.enqueue(ref, o.entry.category); err != nil {
				return err
			}
		}
	}

	slog.Debug("Applied page",
		"url", o.entry.ref.URL,
		"kind", o.entry.ref.Kind,
		"category", name,
		"programmes", found,
		"frontier", r.frontier.len())

	return nil
}

func (r *run) finish() *Result {
	res := &Result{
		Categories: make([]catalog.Category, len(r.names)),
		Failures:   r.failures,
		Visited:    r.fetched,
		Skipped:    r.skipped,
		Truncated:  r.truncated,
	}
	for i, name := range r.names {
		res.Categories[i] = catalog.NewCategory(name, r.programmes[i])
	}
	return res
}
