// Package query builds backend filter expressions from the client-side
// filter state.
package query

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// Mode selects how FilterState.Query is interpreted.
type Mode string

// Query modes.
const (
	// ModeFulltext matches the query as a substring of body, summary or title.
	ModeFulltext Mode = "fulltext"
	// ModeQueryLang passes the query through as a raw filter fragment.
	ModeQueryLang Mode = "querylang"
)

// FilterState is the user's current filter selection.
type FilterState struct {
	Query             string `json:"query"`
	Mode              Mode   `json:"mode"`
	PathFilter        string `json:"pathFilter"`
	PathFilterEnabled bool   `json:"pathFilterEnabled"`
	TypeFilter        string `json:"typeFilter"`
	TypeFilterEnabled bool   `json:"typeFilterEnabled"`
}

// DefaultState returns the state a fresh client starts with.
func DefaultState() FilterState {
	return FilterState{Mode: ModeFulltext}
}

// Normalized trims surrounding whitespace from the text fields and defaults
// an empty mode to fulltext.
func (s FilterState) Normalized() FilterState {
	s.Query = strings.TrimSpace(s.Query)
	s.PathFilter = strings.TrimSpace(s.PathFilter)
	s.TypeFilter = strings.TrimSpace(s.TypeFilter)
	if s.Mode == "" {
		s.Mode = ModeFulltext
	}
	return s
}

// Validate checks the state's shape.
func (s FilterState) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Mode, validation.Required, validation.In(ModeFulltext, ModeQueryLang)),
	)
}

// Build derives the backend filter expression for s. It is pure: equal
// states yield byte-identical output.
//
// The querylang fragment is inserted verbatim inside parentheses. The
// parentheses keep its operators from binding to the surrounding clauses;
// they do not sanitize it.
func Build(s FilterState) string {
	s = s.Normalized()
	clauses := []string{"deleted = ''"}
	if s.TypeFilterEnabled && s.TypeFilter != "" {
		clauses = append(clauses, "frontmatter.type = "+Quote(s.TypeFilter))
	}
	if s.PathFilterEnabled && s.PathFilter != "" {
		clauses = append(clauses, "path ~ "+Quote(LikeLiteral(s.PathFilter)))
	}
	if s.Query != "" {
		switch s.Mode {
		case ModeQueryLang:
			clauses = append(clauses, "("+s.Query+")")
		default:
			q := Quote(LikeLiteral(s.Query))
			clauses = append(clauses, "(content ~ "+q+" || frontmatter.summary ~ "+q+" || frontmatter.title ~ "+q+")")
		}
	}
	return strings.Join(clauses, " && ")
}

// LikeLiteral escapes the LIKE wildcards % and _ and the escape character
// itself, so v matches as a plain substring under ~.
func LikeLiteral(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(v)
}

// Quote renders v as a single-quoted filter literal.
func Quote(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// SavedFilter is a named, reusable FilterState.
type SavedFilter struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	FilterState
}

// NewSavedFilter returns a preset with a fresh id.
func NewSavedFilter(label string, s FilterState) SavedFilter {
	return SavedFilter{
		ID:          uuid.NewString(),
		Label:       strings.TrimSpace(label),
		FilterState: s.Normalized(),
	}
}

// Validate validates the preset.
func (f SavedFilter) Validate() error {
	if err := validation.ValidateStruct(&f,
		validation.Field(&f.ID, validation.Required),
		validation.Field(&f.Label, validation.Required),
	); err != nil {
		return err
	}
	return f.FilterState.Validate()
}
