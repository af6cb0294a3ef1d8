// Package models defines the canonical typed records of notebase and the
// transformer that produces them from raw backend records.
package models

import (
	"github.com/starford/notebase/internal/frontmatter"
)

// TimeLayout is the format of the created, updated and deleted fields.
const TimeLayout = "2006-01-02 15:04:05.000Z"

// UntitledTitle is the display title of items with neither title nor summary.
const UntitledTitle = "Untitled"

// RawRecord is a record as the backend returns it: frontmatter is untyped
// and may be an object, a bare string, null or anything else.
type RawRecord struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	Slug        string `json:"slug"`
	Content     string `json:"content"`
	Frontmatter any    `json:"frontmatter"`
	Created     string `json:"created"`
	Updated     string `json:"updated"`
	Hash        string `json:"hash,omitempty"`
	Deleted     string `json:"deleted,omitempty"`
}

// Item is the canonical typed record. Items are replaced, never mutated in
// place: work on a Clone.
type Item struct {
	ID          string                  `json:"id"`
	Path        string                  `json:"path"`
	Slug        string                  `json:"slug"`
	Content     string                  `json:"content"`
	Frontmatter frontmatter.Frontmatter `json:"frontmatter"`
	Created     string                  `json:"created"`
	Updated     string                  `json:"updated"`
	Hash        string                  `json:"hash,omitempty"`
}

// Done reports whether the item is completed.
func (i Item) Done() bool {
	return i.Frontmatter.Done()
}

// Title returns title ?? summary ?? "Untitled". An explicitly empty title
// is kept.
func (i Item) Title() string {
	switch {
	case i.Frontmatter.Title != nil:
		return *i.Frontmatter.Title
	case i.Frontmatter.Summary != nil:
		return *i.Frontmatter.Summary
	default:
		return UntitledTitle
	}
}

// Clone returns a deep copy of i.
func (i Item) Clone() Item {
	out := i
	out.Frontmatter = i.Frontmatter.Clone()
	return out
}

// Display is the flattened view list consumers render.
type Display struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	Completed string           `json:"completed"`
	Done      bool             `json:"done"`
	Type      frontmatter.Type `json:"type"`
	Path      string           `json:"path"`
	Updated   string           `json:"updated"`
}

// Display flattens i for presentation.
func (i Item) Display() Display {
	return Display{
		ID:        i.ID,
		Title:     i.Title(),
		Content:   i.Content,
		Completed: i.Frontmatter.Completed,
		Done:      i.Done(),
		Type:      i.Frontmatter.Type,
		Path:      i.Path,
		Updated:   i.Updated,
	}
}

// ListResult is one page of typed items.
type ListResult struct {
	Items      []Item `json:"items"`
	Page       int    `json:"page"`
	PerPage    int    `json:"perPage"`
	TotalItems int    `json:"totalItems"`
	TotalPages int    `json:"totalPages"`
}

// RawListResult is the list envelope on the wire.
type RawListResult struct {
	Items      []RawRecord `json:"items"`
	Page       int         `json:"page"`
	PerPage    int         `json:"perPage"`
	TotalItems int         `json:"totalItems"`
	TotalPages int         `json:"totalPages"`
}

// TotalPages returns ceil(total/perPage); zero items means zero pages.
func TotalPages(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// PageBounds returns the half-open slice bounds of page within total items.
func PageBounds(page, perPage, total int) (start, end int) {
	start = (page - 1) * perPage
	if start > total {
		start = total
	}
	end = start + perPage
	if end > total {
		end = total
	}
	return start, end
}
