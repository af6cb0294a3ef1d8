// Package parser splits vault Markdown files into YAML frontmatter and body,
// and composes them back.
package parser

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

const delim = "---"

// Result holds the output of parsing a Markdown file.
type Result struct {
	// Frontmatter is nil when the file has no frontmatter block.
	Frontmatter map[string]any
	Body        string
	// Invalid is set when a frontmatter block was present but was not a YAML
	// mapping; the whole file is then treated as body.
	Invalid bool
}

// Parse extracts frontmatter and body from raw Markdown bytes. It never
// fails on malformed frontmatter.
func Parse(data []byte) *Result {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return &Result{Body: string(data)}
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return &Result{Body: string(data)}
	}

	block := rest[:idx]
	after := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(after), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return &Result{Body: string(data), Invalid: true}
	}
	if fm == nil {
		fm = map[string]any{}
	}
	return &Result{Frontmatter: fm, Body: body}
}

// Compose renders fm and body as a Markdown file. An empty fm yields the
// body alone. Keys are written in sorted order so equal input gives equal
// bytes.
func Compose(fm map[string]any, body string) ([]byte, error) {
	if len(fm) == 0 {
		return []byte(body), nil
	}
	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, fmt.Errorf("parser: encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("parser: encode frontmatter: %w", err)
	}
	buf.WriteString(delim + "\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// Slug derives the URL slug of a vault path: the lowercased file name
// without extension, with runs of non-alphanumerics collapsed to '-'.
func Slug(p string) string {
	name := strings.TrimSuffix(path.Base(p), path.Ext(p))
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
