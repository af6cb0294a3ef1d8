package index

import (
	"log/slog"

	"github.com/starford/notebase/internal/checksum"
	"github.com/starford/notebase/internal/parser"
	"github.com/starford/notebase/internal/storage"
)

// Sync walks the vault and brings the store up to date:
//   - new or changed files are parsed and upserted
//   - records whose file is gone are soft-deleted
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	hashes, err := db.LiveHashes()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if hashes[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		ch, err := IndexFile(db, m.Path, data)
		if err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: indexed", slog.String("path", m.Path), slog.String("kind", ch.Kind))
	}

	for p := range hashes {
		if _, ok := disk[p]; ok {
			continue
		}
		if _, err := db.SoftDelete(p); err != nil {
			logger.Warn("sync: soft delete failed", slog.String("path", p), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: soft deleted", slog.String("path", p))
		}
	}

	return nil
}

// IndexFile parses data and upserts it as the record at path.
func IndexFile(db RecordIndex, path string, data []byte) (Change, error) {
	res := parser.Parse(data)
	var fm any
	if res.Frontmatter != nil {
		fm = res.Frontmatter
	}
	return db.UpsertFile(path, fm, res.Body, checksum.Sum(data))
}
