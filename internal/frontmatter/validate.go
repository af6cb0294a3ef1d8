package frontmatter

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/starford/notebase/internal/apperr"
	"github.com/starford/notebase/internal/checksum"
)

// Keys recognized by the schema. Everything else goes to Extra.
const (
	keyTitle        = "title"
	keySummary      = "summary"
	keyType         = "type"
	keyCompleted    = "completed"
	keyAliases      = "aliases"
	keyTags         = "tags"
	keyCurrency     = "currency"
	keyTransactions = "transactions"
	keySeason       = "season"
	keyEpisode      = "episode"
	keyNextEpisode  = "next_episode"
	keyURL          = "url"
	keyChecklist    = "checklist"
	keyDue          = "due"
	keyStatus       = "status"
	keyPriority     = "priority"
	keyModified     = "modified"
	keyRating       = "rating"
)

var knownKeys = map[string]struct{}{
	keyTitle: {}, keySummary: {}, keyType: {}, keyCompleted: {}, keyAliases: {}, keyTags: {},
	keyCurrency: {}, keyTransactions: {}, keySeason: {}, keyEpisode: {}, keyNextEpisode: {},
	keyURL: {}, keyChecklist: {}, keyDue: {}, keyStatus: {}, keyPriority: {}, keyModified: {},
	keyRating: {},
}

// timestampLayouts are accepted for completed, in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// DegradedError lists what normalization had to coerce or drop.
// It is informational: the accompanying Frontmatter is always usable.
type DegradedError struct {
	Issues []string
}

func (e *DegradedError) Error() string {
	return "frontmatter: validation degraded: " + strings.Join(e.Issues, "; ")
}

func (e *DegradedError) Unwrap() error {
	return apperr.ErrValidationDegraded
}

// Validate normalizes raw into a Frontmatter. It never fails.
func Validate(raw any) Frontmatter {
	fm, _ := Normalize(raw)
	return fm
}

// Normalize is Validate plus a report of every coercion and drop.
// The report is nil when the input was already well formed, including the
// strict per-variant requirements.
func Normalize(raw any) (Frontmatter, *DegradedError) {
	n := &normalizer{}
	fm := n.run(raw)
	if err := fm.ValidateVariant(); err != nil {
		n.issue("%s variant: %v", fm.Type, err)
	}
	if len(n.issues) == 0 {
		return fm, nil
	}
	return fm, &DegradedError{Issues: n.issues}
}

// ParseTimestamp parses s with every layout completed accepts.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type normalizer struct {
	issues []string
}

func (n *normalizer) issue(format string, args ...any) {
	n.issues = append(n.issues, fmt.Sprintf(format, args...))
}

func (n *normalizer) run(raw any) Frontmatter {
	fm := Empty()
	m, ok := n.object(raw)
	if !ok {
		return fm
	}

	fm.Title = n.optString(m, keyTitle)
	fm.Summary = n.optString(m, keySummary)
	fm.Type = n.typ(m[keyType])
	fm.Completed = n.completed(m[keyCompleted])
	fm.Aliases = n.stringList(m, keyAliases, false)
	fm.Tags = n.stringList(m, keyTags, true)

	fm.Currency = n.optString(m, keyCurrency)
	fm.Transactions = n.transactions(m[keyTransactions])

	fm.Season = n.optInt(m, keySeason)
	fm.Episode = n.optInt(m, keyEpisode)
	fm.NextEpisode = n.optString(m, keyNextEpisode)
	fm.URL = n.optString(m, keyURL)

	fm.Checklist = n.checklist(m[keyChecklist])

	fm.Due = n.optString(m, keyDue)
	fm.Status = n.optString(m, keyStatus)
	fm.Priority = n.optString(m, keyPriority)
	fm.Modified = n.optString(m, keyModified)
	fm.Rating = n.optString(m, keyRating)

	for k, v := range m {
		if _, known := knownKeys[k]; known {
			continue
		}
		if fm.Extra == nil {
			fm.Extra = make(map[string]any)
		}
		fm.Extra[k] = sanitize(v)
	}
	return fm
}

// object coerces the accepted raw shapes into a string-keyed map.
func (n *normalizer) object(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return v, true
	case map[any]any:
		return sanitize(v).(map[string]any), true
	case Frontmatter:
		return v.ToMap(), true
	case json.RawMessage:
		return n.jsonObject(v)
	case []byte:
		return n.jsonObject(v)
	case string:
		n.issue("frontmatter is a bare string")
		return nil, false
	default:
		n.issue("frontmatter has unsupported shape %T", raw)
		return nil, false
	}
}

func (n *normalizer) jsonObject(data []byte) (map[string]any, bool) {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		n.issue("frontmatter is not valid JSON: %v", err)
		return nil, false
	}
	return n.object(decoded)
}

func (n *normalizer) typ(v any) Type {
	if v == nil {
		return TypeNone
	}
	s, ok := v.(string)
	if !ok {
		n.issue("type: expected string, got %T", v)
		return TypeNone
	}
	if s == "" {
		return TypeNone
	}
	t, ok := ParseType(s)
	if !ok {
		n.issue("type: unknown variant %q", s)
	}
	return t
}

func (n *normalizer) completed(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case bool:
		if c {
			n.issue("completed: boolean true has no timestamp")
		}
		return ""
	case time.Time:
		return c.UTC().Format(time.RFC3339)
	case string:
		if c == "" {
			return ""
		}
		if _, ok := ParseTimestamp(c); !ok {
			n.issue("completed: %q is not a timestamp", c)
			return ""
		}
		return c
	default:
		n.issue("completed: expected string, got %T", v)
		return ""
	}
}

func (n *normalizer) optString(m map[string]any, key string) *string {
	v, present := m[key]
	if !present || v == nil {
		return nil
	}
	s, ok := scalarString(v)
	if !ok {
		n.issue("%s: expected string, got %T", key, v)
		return nil
	}
	return &s
}

func (n *normalizer) optInt(m map[string]any, key string) *int {
	v, present := m[key]
	if !present || v == nil {
		return nil
	}
	i, ok := toInt(v)
	if !ok {
		n.issue("%s: expected integer, got %v", key, v)
		return nil
	}
	return &i
}

func (n *normalizer) stringList(m map[string]any, key string, dedupe bool) []string {
	v, present := m[key]
	if !present || v == nil {
		return nil
	}
	var items []any
	switch l := v.(type) {
	case []any:
		items = l
	case []string:
		items = make([]any, len(l))
		for i, s := range l {
			items[i] = s
		}
	case string:
		if l == "" {
			return []string{}
		}
		items = []any{l}
	default:
		n.issue("%s: expected list, got %T", key, v)
		return nil
	}

	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		s, ok := scalarString(item)
		if !ok {
			n.issue("%s: dropped non-string entry %v", key, item)
			continue
		}
		if dedupe {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
		}
		out = append(out, s)
	}
	return out
}

func (n *normalizer) transactions(v any) []Transaction {
	if v == nil {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		n.issue("transactions: expected list, got %T", v)
		return nil
	}
	out := make([]Transaction, 0, len(list))
	for i, entry := range list {
		m, ok := asMap(entry)
		if !ok {
			n.issue("transactions[%d]: expected object, got %T", i, entry)
			continue
		}
		amount, ok := toFloat(m["amount"])
		if !ok {
			n.issue("transactions[%d]: amount is not a number", i)
			continue
		}
		created, ok := timeString(m["created"])
		if !ok {
			n.issue("transactions[%d]: created is missing", i)
			continue
		}
		tx := Transaction{Amount: amount, Created: created}
		if id, ok := m["id"].(string); ok && id != "" {
			tx.ID = id
		} else {
			tx.ID = derivedTransactionID(i, created, amount)
		}
		if c, ok := scalarString(m["comment"]); ok && m["comment"] != nil {
			tx.Comment = &c
		}
		out = append(out, tx)
	}
	return out
}

// derivedTransactionID gives legacy transactions without an id a stable one.
// Position is part of the key so two entries with the same timestamp differ.
func derivedTransactionID(pos int, created string, amount float64) string {
	return "tx-" + checksum.Short(12, strconv.Itoa(pos), created, formatFloat(amount))
}

func (n *normalizer) checklist(v any) []ChecklistItem {
	if v == nil {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		n.issue("checklist: expected list, got %T", v)
		return nil
	}
	out := make([]ChecklistItem, 0, len(list))
	for i, entry := range list {
		m, ok := asMap(entry)
		if !ok {
			n.issue("checklist[%d]: expected object, got %T", i, entry)
			continue
		}
		name, ok := scalarString(m["name"])
		if !ok || m["name"] == nil {
			n.issue("checklist[%d]: name is missing", i)
			continue
		}
		item := ChecklistItem{Name: name}
		switch d := m["done"].(type) {
		case nil:
		case bool:
			item.Done = d
		default:
			n.issue("checklist[%d]: done is not a boolean", i)
		}
		out = append(out, item)
	}
	return out
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		return sanitize(m).(map[string]any), true
	default:
		return nil, false
	}
}

// scalarString renders strings, numbers, booleans and times as text.
func scalarString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case uint64:
		return strconv.FormatUint(s, 10), true
	case float64:
		return formatFloat(s), true
	case json.Number:
		return s.String(), true
	case time.Time:
		return formatTime(s), true
	default:
		return "", false
	}
}

func timeString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case time.Time:
		return t.UTC().Format(time.RFC3339), true
	default:
		return "", false
	}
}

// formatTime keeps plain YAML dates as dates.
func formatTime(t time.Time) string {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

func toFloat(v any) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	case float32:
		return float64(f), true
	case int:
		return float64(f), true
	case int64:
		return float64(f), true
	case uint64:
		return float64(f), true
	case json.Number:
		x, err := f.Float64()
		return x, err == nil
	default:
		return 0, false
	}
}

func toInt(v any) (int, bool) {
	switch i := v.(type) {
	case int:
		return i, true
	case int64:
		return int(i), true
	case uint64:
		return int(i), true
	case json.Number:
		x, err := i.Int64()
		return int(x), err == nil
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// sanitize converts YAML-style map[any]any values into JSON-friendly maps.
func sanitize(v any) any {
	switch t := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = sanitize(e)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = sanitize(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = sanitize(e)
		}
		return s
	default:
		return v
	}
}
