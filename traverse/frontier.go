package traverse

import "github.com/pevans/progcat/page"

// entry is one pending page visit. key is the normalized URL the entry was
// admitted under; category indexes the run's accumulators.
type entry struct {
	ref      page.Reference
	key      string
	category int
}

// frontier is a FIFO queue of entries. It is owned by the coordinator and
// never touched by workers.
type frontier struct {
	items []entry
	head  int
}

func (f *frontier) push(e entry) {
	f.items = append(f.items, e)
}

func (f *frontier) peek() (entry, bool) {
	if f.head >= len(f.items) {
		return entry{}, false
	}
	return f.items[f.head], true
}

func (f *frontier) pop() (entry, bool) {
	if f.head >= len(f.items) {
		return entry{}, false
	}

	e := f.items[f.head]
	f.items[f.head] = entry{}
	f.head++

	// Reclaim the consumed prefix once it dominates the backing array.
	if f.head > 64 && f.head*2 > len(f.items) {
		f.items = append([]entry(nil), f.items[f.head:]...)
		f.head = 0
	}

	return e, true
}

func (f *frontier) len() int {
	return len(f.items) - f.head
}
