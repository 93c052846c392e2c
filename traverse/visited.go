package traverse

// visitedSet records normalized URLs admitted to the frontier during one
// run. Marking happens at enqueue time, so a URL is fetched at most once
// even when several pages link to it before it is visited.
type visitedSet struct {
	urls map[string]bool
}

func newVisitedSet() *visitedSet {
	return &visitedSet{urls: make(map[string]bool)}
}

// MarkIfNotVisited records key and reports whether it was new.
func (s *visitedSet) MarkIfNotVisited(key string) bool {
	if s.urls[key] {
		return false
	}
	s.urls[key] = true
	return true
}

func (s *visitedSet) has(key string) bool {
	return s.urls[key]
}
