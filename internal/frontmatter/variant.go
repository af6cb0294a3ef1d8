package frontmatter

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ValidateVariant applies the strict schema of f's variant. Normalization
// never rejects input on these grounds; the result is reported as degradation.
func (f Frontmatter) ValidateVariant() error {
	switch f.Type {
	case TypeDebt:
		d := f.DebtFields
		return validation.ValidateStruct(&d,
			validation.Field(&d.Currency, validation.Required),
			validation.Field(&d.Transactions, validation.NotNil),
		)
	case TypeTrack:
		t := f.TrackFields
		return validation.ValidateStruct(&t,
			validation.Field(&t.Season, validation.NotNil),
			validation.Field(&t.Episode, validation.NotNil),
			validation.Field(&t.NextEpisode, validation.NotNil),
			validation.Field(&t.URL, validation.NotNil),
		)
	case TypeGroceries:
		g := f.GroceriesFields
		return validation.ValidateStruct(&g,
			validation.Field(&g.Checklist, validation.NotNil),
		)
	default:
		return nil
	}
}

// Validate checks a single ledger entry.
func (t Transaction) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.ID, validation.Required),
		validation.Field(&t.Created, validation.Required),
	)
}

// Validate checks a single checklist entry.
func (c ChecklistItem) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
	)
}
