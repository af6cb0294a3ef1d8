package filterexpr

import (
	"fmt"
	"strings"
)

// Columns maps top-level field names to SQL columns. JSON names the column
// holding the frontmatter document.
type Columns struct {
	Fields map[string]string
	JSON   string
}

// SQL renders e as a SQLite boolean expression with positional arguments.
func SQL(e Expr, cols Columns) (string, []any, error) {
	var args []any
	s, err := sqlExpr(e, cols, &args)
	if err != nil {
		return "", nil, err
	}
	return s, args, nil
}

func sqlExpr(e Expr, cols Columns, args *[]any) (string, error) {
	switch x := e.(type) {
	case All:
		return "1 = 1", nil
	case And:
		return sqlJoin(x.Terms, " AND ", cols, args)
	case Or:
		return sqlJoin(x.Terms, " OR ", cols, args)
	case *Compare:
		lhs, err := sqlField(x.Field, cols, args)
		if err != nil {
			return "", err
		}
		switch x.Op {
		case OpEq:
			*args = append(*args, x.Value)
			return lhs + " = ?", nil
		case OpNeq:
			*args = append(*args, x.Value)
			return lhs + " != ?", nil
		case OpLike:
			*args = append(*args, LikePattern(x.Value))
			return lhs + ` LIKE ? ESCAPE '\'`, nil
		case OpNotLike:
			*args = append(*args, LikePattern(x.Value))
			return lhs + ` NOT LIKE ? ESCAPE '\'`, nil
		default:
			return "", fmt.Errorf("filterexpr: unsupported operator %q", x.Op)
		}
	default:
		return "", fmt.Errorf("filterexpr: unsupported expression %T", e)
	}
}

func sqlJoin(terms []Expr, sep string, cols Columns, args *[]any) (string, error) {
	parts := make([]string, len(terms))
	for i, t := range terms {
		s, err := sqlExpr(t, cols, args)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

// sqlField renders a field as TEXT following the rules of Stringify.
func sqlField(field string, cols Columns, args *[]any) (string, error) {
	if key, ok := strings.CutPrefix(field, FrontmatterPrefix); ok {
		if cols.JSON == "" {
			return "", fmt.Errorf("filterexpr: frontmatter fields are not available")
		}
		path := "$." + key
		*args = append(*args, path, path)
		return fmt.Sprintf(`(CASE json_type(%[1]s, ?) WHEN 'true' THEN 'true' WHEN 'false' THEN 'false' WHEN 'null' THEN '' `+
			`ELSE COALESCE(CAST(json_extract(%[1]s, ?) AS TEXT), '') END)`, cols.JSON), nil
	}
	col, ok := cols.Fields[field]
	if !ok {
		return "", fmt.Errorf("filterexpr: field %q has no column", field)
	}
	return "COALESCE(" + col + ", '')", nil
}
