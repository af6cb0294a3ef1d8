package filterexpr

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Resolver returns the textual value of a field reference for one record.
// Use Stringify so values compare the same way the SQL translation does.
type Resolver func(field string) string

// Match reports whether the record behind resolve satisfies e.
func Match(e Expr, resolve Resolver) bool {
	switch x := e.(type) {
	case All:
		return true
	case And:
		for _, t := range x.Terms {
			if !Match(t, resolve) {
				return false
			}
		}
		return true
	case Or:
		for _, t := range x.Terms {
			if Match(t, resolve) {
				return true
			}
		}
		return false
	case *Compare:
		v := resolve(x.Field)
		switch x.Op {
		case OpEq:
			return v == x.Value
		case OpNeq:
			return v != x.Value
		case OpLike:
			return x.like.MatchString(v)
		case OpNotLike:
			return !x.like.MatchString(v)
		}
	}
	return false
}

// MapResolver resolves top-level fields from fields and frontmatter.<key>
// references from fm.
func MapResolver(fields map[string]string, fm map[string]any) Resolver {
	return func(field string) string {
		if key, ok := strings.CutPrefix(field, FrontmatterPrefix); ok {
			return Stringify(fm[key])
		}
		return fields[field]
	}
}

// Stringify renders a decoded JSON value as text: null is "", booleans are
// true/false, numbers use the shortest decimal form and composites are
// compact JSON.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
