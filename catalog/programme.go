package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Programme is one terminal record extracted from a listing page. Every
// text field is optional because the source markup differs between films,
// series and live events. Index is nil until the catalog is assembled.
type Programme struct {
	Title     *string `json:"title,omitempty" yaml:"title,omitempty"`
	Subtitle  *string `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Synopsis  *string `json:"synopsis,omitempty" yaml:"synopsis,omitempty"`
	Thumbnail *string `json:"thumbnail_url,omitempty" yaml:"thumbnail_url,omitempty"`
	URL       *string `json:"detail_url,omitempty" yaml:"detail_url,omitempty"`
	Available *string `json:"available,omitempty" yaml:"available,omitempty"`
	Duration  *string `json:"duration,omitempty" yaml:"duration,omitempty"`
	PID       *string `json:"pid,omitempty" yaml:"pid,omitempty"`
	Index     *int    `json:"index,omitempty" yaml:"index,omitempty"`
}

// Indexed reports whether the programme has been assigned a catalog index.
func (p Programme) Indexed() bool {
	return p.Index != nil
}

// DisplayTitle returns the title, or "(No title)" when the item had none.
func (p Programme) DisplayTitle() string {
	if p.Title == nil {
		return "(No title)"
	}
	return *p.Title
}

// Category is a named, independently seeded crawl target. Programme order is
// discovery order and defines index order.
type Category struct {
	Name       string      `json:"name" yaml:"name"`
	Programmes []Programme `json:"programmes" yaml:"programmes"`
}

// NewCategory creates a category holding the given programmes.
func NewCategory(name string, programmes []Programme) Category {
	if programmes == nil {
		programmes = []Programme{}
	}
	return Category{Name: name, Programmes: programmes}
}

// Catalog is the persisted snapshot of one crawl.
type Catalog struct {
	ID         uuid.UUID  `json:"id" yaml:"id"`
	Categories []Category `json:"categories" yaml:"categories"`
	SavedAt    time.Time  `json:"saved_at" yaml:"saved_at"`
}

// Len returns the number of programmes across all categories.
func (c *Catalog) Len() int {
	n := 0
	for _, cat := range c.Categories {
		n += len(cat.Programmes)
	}
	return n
}

// Category returns the named category, or nil.
func (c *Catalog) Category(name string) *Category {
	for i := range c.Categories {
		if c.Categories[i].Name == name {
			return &c.Categories[i]
		}
	}
	return nil
}

// Programme returns the programme with the given index, or nil.
func (c *Catalog) Programme(index int) *Programme {
	for i := range c.Categories {
		for j := range c.Categories[i].Programmes {
			p := &c.Categories[i].Programmes[j]
			if p.Index != nil && *p.Index == index {
				return p
			}
		}
	}
	return nil
}
