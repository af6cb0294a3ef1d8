package models

import (
	"github.com/starford/notebase/internal/frontmatter"
)

// ToItem maps a raw backend record to an Item. It is the single place raw
// shapes are interpreted and it never fails.
func ToItem(raw RawRecord) Item {
	item, _ := ToItemReport(raw)
	return item
}

// ToItemReport is ToItem plus the validator's degradation report.
func ToItemReport(raw RawRecord) (Item, *frontmatter.DegradedError) {
	fm, report := frontmatter.Normalize(raw.Frontmatter)
	return Item{
		ID:          raw.ID,
		Path:        raw.Path,
		Slug:        raw.Slug,
		Content:     raw.Content,
		Frontmatter: fm,
		Created:     raw.Created,
		Updated:     raw.Updated,
		Hash:        raw.Hash,
	}, report
}

// FromItem is the inverse of ToItem.
func FromItem(item Item) RawRecord {
	return RawRecord{
		ID:          item.ID,
		Path:        item.Path,
		Slug:        item.Slug,
		Content:     item.Content,
		Frontmatter: item.Frontmatter.ToMap(),
		Created:     item.Created,
		Updated:     item.Updated,
		Hash:        item.Hash,
	}
}

// ToListResult transforms every record of a raw page. onReport, when
// non-nil, is called for each record whose frontmatter degraded.
func ToListResult(raw RawListResult, onReport func(RawRecord, *frontmatter.DegradedError)) ListResult {
	items := make([]Item, len(raw.Items))
	for i, r := range raw.Items {
		item, report := ToItemReport(r)
		if report != nil && onReport != nil {
			onReport(r, report)
		}
		items[i] = item
	}
	return ListResult{
		Items:      items,
		Page:       raw.Page,
		PerPage:    raw.PerPage,
		TotalItems: raw.TotalItems,
		TotalPages: raw.TotalPages,
	}
}
