package frontmatter

import (
	"encoding/json"
	"fmt"
)

// ToMap renders f as the open map stored by the backend. Extra keys are
// emitted first so known fields always win on collision.
func (f Frontmatter) ToMap() map[string]any {
	m := make(map[string]any, len(f.Extra)+8)
	for k, v := range f.Extra {
		m[k] = cloneValue(v)
	}

	putString(m, keyTitle, f.Title)
	putString(m, keySummary, f.Summary)
	if f.Type != "" && f.Type != TypeNone {
		m[keyType] = string(f.Type)
	}
	m[keyCompleted] = f.Completed
	putList(m, keyAliases, f.Aliases)
	putList(m, keyTags, f.Tags)

	putString(m, keyCurrency, f.Currency)
	if f.Transactions != nil {
		list := make([]any, len(f.Transactions))
		for i, tx := range f.Transactions {
			entry := map[string]any{
				"id":      tx.ID,
				"amount":  tx.Amount,
				"created": tx.Created,
			}
			if tx.Comment != nil {
				entry["comment"] = *tx.Comment
			}
			list[i] = entry
		}
		m[keyTransactions] = list
	}

	if f.Season != nil {
		m[keySeason] = *f.Season
	}
	if f.Episode != nil {
		m[keyEpisode] = *f.Episode
	}
	putString(m, keyNextEpisode, f.NextEpisode)
	putString(m, keyURL, f.URL)

	if f.Checklist != nil {
		list := make([]any, len(f.Checklist))
		for i, c := range f.Checklist {
			list[i] = map[string]any{"name": c.Name, "done": c.Done}
		}
		m[keyChecklist] = list
	}

	putString(m, keyDue, f.Due)
	putString(m, keyStatus, f.Status)
	putString(m, keyPriority, f.Priority)
	putString(m, keyModified, f.Modified)
	putString(m, keyRating, f.Rating)
	return m
}

// MarshalJSON emits the open map form.
func (f Frontmatter) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.ToMap())
}

// UnmarshalJSON is total for any syntactically valid JSON value: non-object
// input degrades to the empty frontmatter.
func (f *Frontmatter) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("frontmatter: decode: %w", err)
	}
	*f = Validate(raw)
	return nil
}

func putString(m map[string]any, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}

func putList(m map[string]any, key string, v []string) {
	if v == nil {
		return
	}
	list := make([]any, len(v))
	for i, s := range v {
		list[i] = s
	}
	m[key] = list
}
