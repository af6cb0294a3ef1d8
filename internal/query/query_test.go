package query

import (
	"strings"
	"testing"

	"github.com/starford/notebase/internal/filterexpr"
)

func TestBuild(t *testing.T) {
	cases := []struct {
		name  string
		state FilterState
		want  string
	}{
		{
			name:  "default",
			state: DefaultState(),
			want:  "deleted = ''",
		},
		{
			name:  "type filter",
			state: FilterState{TypeFilter: "debt", TypeFilterEnabled: true},
			want:  "deleted = '' && frontmatter.type = 'debt'",
		},
		{
			name:  "disabled filters are ignored",
			state: FilterState{TypeFilter: "debt", PathFilter: "money/"},
			want:  "deleted = ''",
		},
		{
			name:  "enabled but empty",
			state: FilterState{TypeFilterEnabled: true, PathFilterEnabled: true, Query: "   "},
			want:  "deleted = ''",
		},
		{
			name:  "path filter",
			state: FilterState{PathFilter: "money/", PathFilterEnabled: true},
			want:  "deleted = '' && path ~ 'money/'",
		},
		{
			name:  "path filter wildcards are literal",
			state: FilterState{PathFilter: "my_notes%", PathFilterEnabled: true},
			want:  `deleted = '' && path ~ 'my\\_notes\\%'`,
		},
		{
			name:  "fulltext",
			state: FilterState{Query: "milk", Mode: ModeFulltext},
			want:  "deleted = '' && (content ~ 'milk' || frontmatter.summary ~ 'milk' || frontmatter.title ~ 'milk')",
		},
		{
			name:  "empty mode means fulltext",
			state: FilterState{Query: "milk"},
			want:  "deleted = '' && (content ~ 'milk' || frontmatter.summary ~ 'milk' || frontmatter.title ~ 'milk')",
		},
		{
			name:  "querylang is parenthesized verbatim",
			state: FilterState{Query: "frontmatter.type = 'task' || path ~ 'x'", Mode: ModeQueryLang},
			want:  "deleted = '' && (frontmatter.type = 'task' || path ~ 'x')",
		},
		{
			name: "clause order",
			state: FilterState{
				Query: "bob", Mode: ModeFulltext,
				PathFilter: "debts", PathFilterEnabled: true,
				TypeFilter: "debt", TypeFilterEnabled: true,
			},
			want: "deleted = '' && frontmatter.type = 'debt' && path ~ 'debts' && " +
				"(content ~ 'bob' || frontmatter.summary ~ 'bob' || frontmatter.title ~ 'bob')",
		},
		{
			name:  "quotes are escaped",
			state: FilterState{Query: `it's a \ test`},
			want:  `deleted = '' && (content ~ 'it\'s a \\\\ test' || frontmatter.summary ~ 'it\'s a \\\\ test' || frontmatter.title ~ 'it\'s a \\\\ test')`,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Build(c.state)
			if got != c.want {
				t.Errorf("Build() =\n  %s\nwant\n  %s", got, c.want)
			}
			if Build(c.state) != got {
				t.Error("Build is not deterministic")
			}
			if _, err := filterexpr.Parse(got); err != nil {
				t.Errorf("output does not parse: %v", err)
			}
		})
	}
}

func TestBuild_EscapedValueRoundTrips(t *testing.T) {
	raw := `O'Brien`
	expr, err := filterexpr.Parse(Build(FilterState{PathFilter: raw, PathFilterEnabled: true}))
	if err != nil {
		t.Fatal(err)
	}
	rec := filterexpr.MapResolver(map[string]string{"path": "people/o'brien.md"}, nil)
	if !filterexpr.Match(expr, rec) {
		t.Error("escaped path filter should match its own value")
	}
}

func TestBuild_FulltextIsPlainSubstring(t *testing.T) {
	contents := map[string]string{
		"a.md": "I paid 100% of it",
		"b.md": `see C:\temp folder`,
		"c.md": "file_name",
		"d.md": "fileXname",
		"e.md": "100 percent",
	}
	cases := map[string][]string{
		"100%":      {"a.md"},
		`C:\temp`:   {"b.md"},
		"file_name": {"c.md"},
		"FILE":      {"c.md", "d.md"},
	}
	for q, want := range cases {
		expr, err := filterexpr.Parse(Build(FilterState{Query: q}))
		if err != nil {
			t.Fatalf("%q: %v", q, err)
		}
		var got []string
		for _, path := range []string{"a.md", "b.md", "c.md", "d.md", "e.md"} {
			rec := filterexpr.MapResolver(map[string]string{"path": path, "content": contents[path]}, nil)
			if filterexpr.Match(expr, rec) {
				got = append(got, path)
			}
		}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("query %q matched %v, want %v", q, got, want)
		}
	}
}

func TestLikeLiteral(t *testing.T) {
	cases := map[string]string{
		"plain":   "plain",
		"100%":    `100\%`,
		"a_b":     `a\_b`,
		`C:\temp`: `C:\\temp`,
	}
	for in, want := range cases {
		if got := LikeLiteral(in); got != want {
			t.Errorf("LikeLiteral(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFilterState_Validate(t *testing.T) {
	if err := DefaultState().Validate(); err != nil {
		t.Errorf("default state: %v", err)
	}
	if err := (FilterState{Mode: "regex"}).Validate(); err == nil {
		t.Error("unknown mode should fail")
	}
	if err := (FilterState{}).Validate(); err == nil {
		t.Error("empty mode should fail before normalization")
	}
	if err := (FilterState{}).Normalized().Validate(); err != nil {
		t.Errorf("normalized state: %v", err)
	}
}

func TestNewSavedFilter(t *testing.T) {
	a := NewSavedFilter("  Debts ", FilterState{TypeFilter: " debt ", TypeFilterEnabled: true})
	b := NewSavedFilter("Debts", FilterState{})
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("ids should be unique and non-empty: %q %q", a.ID, b.ID)
	}
	if a.Label != "Debts" || a.TypeFilter != "debt" || a.Mode != ModeFulltext {
		t.Errorf("preset not normalized: %+v", a)
	}
	if err := a.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if err := (SavedFilter{ID: "x", FilterState: DefaultState()}).Validate(); err == nil {
		t.Error("label is required")
	}
}
