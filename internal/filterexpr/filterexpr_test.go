package filterexpr

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func record(fields map[string]string, fm map[string]any) Resolver {
	return MapResolver(fields, fm)
}

func mustParse(t *testing.T, s string) Expr {
	t.Helper()
	e, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return e
}

func TestParse_EmptyMatchesAll(t *testing.T) {
	for _, s := range []string{"", "   "} {
		e := mustParse(t, s)
		if _, ok := e.(All); !ok {
			t.Errorf("Parse(%q) = %T, want All", s, e)
		}
	}
}

func TestParse_Precedence(t *testing.T) {
	e := mustParse(t, "path = 'a' || path = 'b' && deleted = ''")
	or, ok := e.(Or)
	if !ok || len(or.Terms) != 2 {
		t.Fatalf("top level = %#v, want Or with 2 terms", e)
	}
	if _, ok := or.Terms[1].(And); !ok {
		t.Errorf("&& should bind tighter than ||, got %#v", or.Terms[1])
	}
}

func TestParse_Errors(t *testing.T) {
	bad := []string{
		"path",
		"path =",
		"path = 'unterminated",
		"(path = 'a'",
		"path = 'a' &",
		"nope = 'a'",
		"frontmatter.bad-key = 'a'",
		"path = other",
		"path > 'a'",
		"!path = 'a'",
		"path = 'a' path = 'b'",
	}
	for _, s := range bad {
		_, err := Parse(s)
		if err == nil {
			t.Errorf("Parse(%q) succeeded, want error", s)
			continue
		}
		if !errors.Is(err, ErrSyntax) {
			t.Errorf("Parse(%q) error %v does not wrap ErrSyntax", s, err)
		}
	}
}

func TestParse_Literals(t *testing.T) {
	e := mustParse(t, `frontmatter.season = 2.0 && frontmatter.x = null && frontmatter.flag = true && slug = "a\"b"`)
	and, ok := e.(And)
	if !ok || len(and.Terms) != 4 {
		t.Fatalf("got %#v, want And with 4 terms", e)
	}
	var got []string
	for _, term := range and.Terms {
		got = append(got, term.(*Compare).Value)
	}
	want := []string{"2", "", "true", `a"b`}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("values (-want +got):\n%s", diff)
	}
}

func TestMatch(t *testing.T) {
	rec := record(
		map[string]string{"path": "debt/Bob.md", "content": "Lunch with Bob", "deleted": ""},
		map[string]any{"type": "debt", "season": 2.0, "flag": true, "tags": []any{"money", "friends"}},
	)
	cases := []struct {
		filter string
		want   bool
	}{
		{"", true},
		{"deleted = ''", true},
		{"deleted != ''", false},
		{"frontmatter.type = 'debt'", true},
		{"frontmatter.type = \"task\"", false},
		{"path ~ 'debt/'", true},
		{"path ~ 'BOB'", true},
		{"path !~ 'task/'", true},
		{"path ~ 'debt/%.md'", true},
		{"path ~ 'debt/_ob.md'", true},
		{"path ~ 'debt'", true},
		{"path ~ '%.txt'", false},
		{"frontmatter.season = 2", true},
		{"frontmatter.flag = true", true},
		{"frontmatter.missing = ''", true},
		{"frontmatter.missing = null", true},
		{"frontmatter.tags ~ 'friends'", true},
		{"content ~ 'dinner' || frontmatter.type = 'debt'", true},
		{"(content ~ 'dinner' || path ~ 'task') && deleted = ''", false},
	}
	for _, c := range cases {
		e := mustParse(t, c.filter)
		if got := Match(e, rec); got != c.want {
			t.Errorf("Match(%q) = %v, want %v", c.filter, got, c.want)
		}
	}
}

func TestMatch_EscapedQuoteAndWildcard(t *testing.T) {
	rec := record(map[string]string{"content": "it's 50% done"}, nil)
	if !Match(mustParse(t, `content ~ 'it\'s'`), rec) {
		t.Error("escaped quote should match")
	}
	if !Match(mustParse(t, `content ~ '50\%'`), rec) {
		t.Error("escaped percent should be literal and auto-wrapped")
	}
	other := record(map[string]string{"content": "500 done"}, nil)
	if Match(mustParse(t, `content ~ '50\%'`), other) {
		t.Error("escaped percent must not act as a wildcard")
	}
}

func TestMatch_CaseFoldingIsASCIIOnly(t *testing.T) {
	rec := record(map[string]string{"content": "ÄPFEL kaufen"}, nil)
	if !Match(mustParse(t, `content ~ 'KAUFEN'`), rec) {
		t.Error("ASCII letters should match regardless of case")
	}
	if Match(mustParse(t, `content ~ 'äpfel'`), rec) {
		t.Error("non-ASCII letters must compare case-sensitively, like SQLite LIKE")
	}
	if !Match(mustParse(t, `content ~ 'Äpfel'`), rec) {
		t.Error("exact non-ASCII letters with folded ASCII should match")
	}
	if !Match(mustParse(t, `content ~ 'ä_fel'`), record(map[string]string{"content": "äpfel"}, nil)) {
		t.Error("_ should match a single character")
	}
}

func TestLikePattern(t *testing.T) {
	cases := map[string]string{
		"abc":  "%abc%",
		"a%":   "a%",
		`50\%`: `%50\%%`,
		"a_b":  "%a_b%",
		"":     "%%",
	}
	for in, want := range cases {
		if got := LikePattern(in); got != want {
			t.Errorf("LikePattern(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSQL(t *testing.T) {
	cols := Columns{Fields: map[string]string{"path": "path", "deleted": "deleted"}, JSON: "frontmatter"}
	e := mustParse(t, "deleted = '' && (path ~ 'debt' || frontmatter.type = 'task')")
	where, args, err := SQL(e, cols)
	if err != nil {
		t.Fatalf("SQL: %v", err)
	}
	if !strings.HasPrefix(where, "(COALESCE(deleted, '') = ? AND (COALESCE(path, '') LIKE ? ESCAPE '\\' OR (CASE json_type(frontmatter, ?)") {
		t.Errorf("where = %s", where)
	}
	want := []any{"", "%debt%", "$.type", "$.type", "task"}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Errorf("args (-want +got):\n%s", diff)
	}
}

func TestSQL_UnknownColumn(t *testing.T) {
	e := mustParse(t, "slug = 'x'")
	if _, _, err := SQL(e, Columns{Fields: map[string]string{}}); err == nil {
		t.Error("expected error for unmapped field")
	}
}

func TestStringify(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"s", "s"},
		{true, "true"},
		{3.0, "3"},
		{2.5, "2.5"},
		{[]any{"a", "b"}, `["a","b"]`},
		{map[string]any{"b": 1.0, "a": "x"}, `{"a":"x","b":1}`},
	}
	for _, c := range cases {
		if got := Stringify(c.in); got != c.want {
			t.Errorf("Stringify(%#v) = %q, want %q", c.in, got, c.want)
		}
	}
}
