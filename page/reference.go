// Package page decodes one fetched listing page into classified item
// selections and the references that lead to further pages.
package page

// Kind says what a reference points at.
type Kind int

const (
	// NextPage continues the same listing.
	NextPage Kind = iota
	// ProgrammePage describes one programme in more detail.
	ProgrammePage
	// SeriesPage lists the episodes of one series or box set.
	SeriesPage
)

func (k Kind) String() string {
	switch k {
	case NextPage:
		return "next_page"
	case ProgrammePage:
		return "programme_page"
	case SeriesPage:
		return "series_page"
	default:
		return "unknown"
	}
}

// Reference is a link to another page to visit.
type Reference struct {
	URL  string
	Kind Kind
}
