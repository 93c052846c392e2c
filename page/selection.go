package page

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/progcat/catalog"
	"github.com/pevans/progcat/extract"
	"github.com/pevans/progcat/urlnorm"
)

// Tag identifies the variant held by a Selection.
type Tag int

const (
	// Skipped items contribute nothing.
	Skipped Tag = iota
	// Programme items are terminal records.
	Programme
	// PageRef items point at a deeper page.
	PageRef
)

func (t Tag) String() string {
	switch t {
	case Programme:
		return "programme"
	case PageRef:
		return "page_ref"
	default:
		return "skipped"
	}
}

// Selection is the classification of one item node. Only the field matching
// Tag is meaningful.
type Selection struct {
	Tag       Tag
	Programme catalog.Programme
	Ref       Reference
	// Reason says why an item was skipped.
	Reason string
}

// Scope is what the classifier knows about the page around an item.
type Scope struct {
	PageURL string
	// Series is set on box-set landing pages.
	Series bool
}

// Classify decides what one item node is. A detail link that differs from
// the item's own link wins over inline programme fields.
func Classify(node *goquery.Selection, ex *extract.Extractor, scope Scope) Selection {
	primary := ex.DetailURL(node, scope.PageURL)
	title := ex.Title(node)
	if primary == nil && title == nil {
		return Selection{Tag: Skipped, Reason: "no link or title"}
	}

	if detail := ex.DetailLink(node, scope.PageURL); detail != nil && !sameURL(*detail, primary) {
		kind := ProgrammePage
		if scope.Series || ex.HasSeriesMarker(node) {
			kind = SeriesPage
		}
		return Selection{Tag: PageRef, Ref: Reference{URL: *detail, Kind: kind}}
	}

	return Selection{Tag: Programme, Programme: ex.Programme(node, scope.PageURL)}
}

func sameURL(a string, b *string) bool {
	if b == nil {
		return false
	}

	na, errA := urlnorm.Normalize(a)
	nb, errB := urlnorm.Normalize(*b)
	if errA != nil || errB != nil {
		return a == *b
	}
	return na == nb
}
