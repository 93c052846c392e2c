package traverse

import (
	"fmt"

	"github.com/pevans/progcat/catalog"
	"github.com/pevans/progcat/page"
)

// Failure records a reference that could not be turned into a page.
type Failure struct {
	Ref      page.Reference
	Category string
	Attempts int
	Err      error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s (%s, %d attempts): %v", f.Ref.URL, f.Category, f.Attempts, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Result is the outcome of one traversal run. On cancellation it holds
// everything applied before the run stopped.
type Result struct {
	// Categories are in seed order, programmes in discovery order.
	Categories []catalog.Category
	Failures   []Failure
	// Visited lists the normalized URL of every page the run fetched, in
	// processing order.
	Visited []string
	// Skipped counts item nodes that were neither a programme nor a
	// reference.
	Skipped int
	// Truncated counts references dropped because their category hit its
	// page limit.
	Truncated int
}

// Stats summarizes a result.
type Stats struct {
	Pages      int
	Programmes int
	Failures   int
	Skipped    int
	Truncated  int
}

// Stats returns counts for reporting.
func (r *Result) Stats() Stats {
	s := Stats{
		Pages:     len(r.Visited),
		Failures:  len(r.Failures),
		Skipped:   r.Skipped,
		Truncated: r.Truncated,
	}
	for _, c := range r.Categories {
		s.Programmes += len(c.Programmes)
	}
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("%d pages, %d programmes, %d failures, %d skipped items",
		s.Pages, s.Programmes, s.Failures, s.Skipped)
}
