package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/notebase/internal/models"
)

// AuthRequest is the request body for password authentication.
type AuthRequest models.AuthRequest

// Validate checks that both credentials are present.
func (r AuthRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required),
	)
}

// AuthResponse is returned after a successful authentication.
type AuthResponse = models.AuthResponse

// Record is a single record as stored (aliased from the domain layer).
type Record = models.RawRecord

// RecordListResponse is one page of records.
type RecordListResponse = models.RawListResult

// UpdateFrontmatterRequest is the request body for replacing frontmatter.
type UpdateFrontmatterRequest models.UpdateFrontmatterRequest

// Validate requires a data object; an empty object clears the frontmatter.
func (r UpdateFrontmatterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Data, validation.NotNil),
	)
}

// UpdateContentRequest is the request body for replacing a record body.
type UpdateContentRequest = models.UpdateContentRequest

// ErrorResponse is the body of every error response.
type ErrorResponse = models.ErrorResponse
