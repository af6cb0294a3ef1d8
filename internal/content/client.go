// Package content defines the content client contract and its two
// adapters: HTTPClient talks to a live content store, Memory is a
// deterministic in-process stand-in. Both return records already
// normalized into models.Item.
package content

import (
	"context"
	"net/http"
	"time"

	"github.com/starford/notebase/internal/apperr"
	"github.com/starford/notebase/internal/frontmatter"
	"github.com/starford/notebase/internal/models"
)

// Client is the capability set every backend adapter provides.
type Client interface {
	// GetList returns one page of items matching filter. page and pageSize
	// are 1-based and must be at least 1.
	GetList(ctx context.Context, page, pageSize int, filter string) (models.ListResult, error)
	// GetItem returns the item with id or apperr.ErrNotFound.
	GetItem(ctx context.Context, id string) (models.Item, error)
	// UpdateFrontmatter replaces the whole frontmatter of an item.
	UpdateFrontmatter(ctx context.Context, id string, data frontmatter.Frontmatter) error
	// UpdateContent replaces the body of an item.
	UpdateContent(ctx context.Context, id string, data string) error

	IsAuthenticated(ctx context.Context) bool
	ClearAuth(ctx context.Context)
	Authenticate(ctx context.Context, email, password string) (AuthResult, error)
}

// AuthResult describes an established session.
type AuthResult struct {
	Token   string
	Email   string
	Expires time.Time
}

// ErrInvalidPage is returned for page or page size below 1.
var ErrInvalidPage error = &apperr.BackendError{
	Status:  http.StatusBadRequest,
	Message: "page and page size must be at least 1",
}

func checkPage(page, pageSize int) error {
	if page < 1 || pageSize < 1 {
		return ErrInvalidPage
	}
	return nil
}
