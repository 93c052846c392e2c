package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/pevans/progcat"
)

// Assemble assigns catalog indices 0..N-1 across categories in order and
// programmes in discovery order, and stamps the result with a new ID and
// now. The input is copied; a programme that arrives already indexed means
// the traversal handed over something it should not have.
func Assemble(categories []Category, now time.Time) (*Catalog, error) {
	out := make([]Category, 0, len(categories))
	next := 0

	for _, cat := range categories {
		progs := make([]Programme, len(cat.Programmes))
		for i, p := range cat.Programmes {
			if p.Indexed() {
				return nil, progcat.Invariantf("programme %q in category %q already has index %d",
					p.DisplayTitle(), cat.Name, *p.Index)
			}

			idx := next
			p.Index = &idx
			progs[i] = p
			next++
		}
		out = append(out, Category{Name: cat.Name, Programmes: progs})
	}

	return &Catalog{
		ID:         uuid.New(),
		Categories: out,
		SavedAt:    now,
	}, nil
}
