package index

import "github.com/starford/notebase/internal/models"

// RecordIndex defines the record store operations the API and the vault
// sync depend on.
type RecordIndex interface {
	UpsertFile(path string, frontmatter any, body, hash string) (Change, error)
	SoftDelete(path string) (Change, error)
	Get(id string) (models.RawRecord, error)
	GetByPath(path string) (models.RawRecord, error)
	List(page, perPage int, filter string) (models.RawListResult, error)
	LiveHashes() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies RecordIndex at compile time.
var _ RecordIndex = (*DB)(nil)
