package mcpserver

// FilterLanguage describes the filter expressions list_items accepts in
// querylang mode.
const FilterLanguage = `# notebase Filter Language

A filter is a boolean expression over record fields.

## Grammar

` + "```" + `
expr       := or
or         := and ('||' and)*
and        := unary ('&&' unary)*
unary      := '(' expr ')' | comparison
comparison := field op value
op         := '=' | '!=' | '~' | '!~'
value      := 'text' | "text" | number | true | false | null
` + "```" + `

## Fields

- ` + "`id`, `path`, `slug`, `content`, `created`, `updated`, `deleted`, `hash`" + `
- ` + "`frontmatter.<key>`" + ` for any frontmatter key made of letters, digits and underscores

A missing value compares equal to ` + "`''`" + ` and to ` + "`null`" + `.

## Operators

- ` + "`=` / `!=`" + ` compare the value as text. Numbers are written in their
  shortest form (` + "`2.0`" + ` matches ` + "`2`" + `), booleans as ` + "`true`/`false`" + `.
- ` + "`~` / `!~`" + ` are contains checks, case-insensitive for ASCII letters only. ` + "`%`" + ` matches any run of
  characters and ` + "`_`" + ` any single one. A value without ` + "`%`" + ` is matched anywhere
  in the field. Escape a literal ` + "`%`, `_` or quote" + ` with a backslash.

## Examples

` + "```" + `
frontmatter.type = 'debt' && frontmatter.completed = ''
path ~ 'groceries/' || frontmatter.title ~ 'milk'
(frontmatter.season = 2 || frontmatter.season = 3) && content !~ 'spoiler'
` + "```" + `

list_items always adds ` + "`deleted = ''`" + `, so deleted items never appear.
`
