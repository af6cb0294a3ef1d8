// Package frontmatter defines the structured metadata attached to every item
// and the total normalization pipeline that turns loosely typed input into it.
//
// Frontmatter is one structurally open record: the common Base fields plus
// one field group per content variant, composed by embedding. Keys that are
// not recognized are kept in Extra and written back unchanged.
package frontmatter

import "slices"

// Type discriminates the content variant of an item.
type Type string

// Content variants.
const (
	TypeTask      Type = "task"
	TypeDebt      Type = "debt"
	TypeTrack     Type = "track"
	TypeGroceries Type = "groceries"
	TypeNone      Type = "none"
)

// Types lists every known variant in display order.
var Types = []Type{TypeTask, TypeDebt, TypeTrack, TypeGroceries, TypeNone}

// ParseType maps s to a known Type.
func ParseType(s string) (Type, bool) {
	t := Type(s)
	if slices.Contains(Types, t) {
		return t, true
	}
	return TypeNone, false
}

// Base holds the fields every variant shares.
type Base struct {
	Title   *string
	Summary *string
	Type    Type
	// Completed is "" for incomplete items, otherwise a timestamp.
	Completed string
	Aliases   []string
	Tags      []string
}

// DebtFields is meaningful when Type is TypeDebt.
type DebtFields struct {
	Currency     *string
	Transactions []Transaction
}

// TrackFields is meaningful when Type is TypeTrack.
type TrackFields struct {
	Season      *int
	Episode     *int
	NextEpisode *string
	URL         *string
}

// GroceriesFields is meaningful when Type is TypeGroceries.
type GroceriesFields struct {
	Checklist []ChecklistItem
}

// TaskFields carries the optional planning fields tasks use.
type TaskFields struct {
	Due      *string
	Status   *string
	Priority *string
	Modified *string
	Rating   *string
}

// Frontmatter is the normalized metadata of an item.
type Frontmatter struct {
	Base
	DebtFields
	TrackFields
	GroceriesFields
	TaskFields

	// Extra holds every key the schema does not know about.
	Extra map[string]any
}

// Transaction is one entry of a debt ledger.
type Transaction struct {
	ID      string  `json:"id"`
	Amount  float64 `json:"amount"`
	Created string  `json:"created"`
	Comment *string `json:"comment,omitempty"`
}

// ChecklistItem is one line of a grocery list.
type ChecklistItem struct {
	Name string `json:"name"`
	Done bool   `json:"done"`
}

// Empty returns the frontmatter every malformed input degrades to.
func Empty() Frontmatter {
	return Frontmatter{Base: Base{Type: TypeNone}}
}

// Done reports whether the item is completed.
func (f Frontmatter) Done() bool {
	return f.Completed != ""
}

// Balance sums the amounts of all transactions.
func (f Frontmatter) Balance() float64 {
	var total float64
	for _, tx := range f.Transactions {
		total += tx.Amount
	}
	return total
}

// TransactionIndex returns the position of the transaction with id, or -1.
func (f Frontmatter) TransactionIndex(id string) int {
	return slices.IndexFunc(f.Transactions, func(tx Transaction) bool { return tx.ID == id })
}

// ChecklistIndex returns the position of the first entry named name, or -1.
func (f Frontmatter) ChecklistIndex(name string) int {
	return slices.IndexFunc(f.Checklist, func(c ChecklistItem) bool { return c.Name == name })
}

// Clone returns a deep copy that shares no mutable state with f.
func (f Frontmatter) Clone() Frontmatter {
	out := f
	out.Title = cloneString(f.Title)
	out.Summary = cloneString(f.Summary)
	out.Aliases = slices.Clone(f.Aliases)
	out.Tags = slices.Clone(f.Tags)

	out.Currency = cloneString(f.Currency)
	if f.Transactions != nil {
		out.Transactions = make([]Transaction, len(f.Transactions))
		for i, tx := range f.Transactions {
			tx.Comment = cloneString(tx.Comment)
			out.Transactions[i] = tx
		}
	}

	if f.Season != nil {
		v := *f.Season
		out.Season = &v
	}
	if f.Episode != nil {
		v := *f.Episode
		out.Episode = &v
	}
	out.NextEpisode = cloneString(f.NextEpisode)
	out.URL = cloneString(f.URL)

	out.Checklist = slices.Clone(f.Checklist)

	out.Due = cloneString(f.Due)
	out.Status = cloneString(f.Status)
	out.Priority = cloneString(f.Priority)
	out.Modified = cloneString(f.Modified)
	out.Rating = cloneString(f.Rating)

	if f.Extra != nil {
		out.Extra = make(map[string]any, len(f.Extra))
		for k, v := range f.Extra {
			out.Extra[k] = cloneValue(v)
		}
	}
	return out
}

// String returns a pointer to s, for building optional fields.
func String(s string) *string {
	return &s
}

// Int returns a pointer to n, for building optional fields.
func Int(n int) *int {
	return &n
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}
