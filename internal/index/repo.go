package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/notebase/internal/apperr"
	"github.com/starford/notebase/internal/filterexpr"
	"github.com/starford/notebase/internal/models"
	"github.com/starford/notebase/internal/parser"
)

// Change kinds reported by mutations.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// ErrInvalidPage is returned by List for page or perPage below 1.
var ErrInvalidPage = errors.New("index: page and perPage must be at least 1")

// Change describes the effect of a mutation. Kind is empty when the call
// changed nothing.
type Change struct {
	Kind   string
	Record models.RawRecord
}

var filterColumns = filterexpr.Columns{
	Fields: map[string]string{
		"id":      "id",
		"path":    "path",
		"slug":    "slug",
		"content": "content",
		"created": "created",
		"updated": "updated",
		"deleted": "deleted",
		"hash":    "hash",
	},
	JSON: "frontmatter",
}

const recordColumns = `id, path, slug, content, frontmatter, hash, deleted, created, updated`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (models.RawRecord, error) {
	var r models.RawRecord
	var fm string
	if err := s.Scan(&r.ID, &r.Path, &r.Slug, &r.Content, &fm, &r.Hash, &r.Deleted, &r.Created, &r.Updated); err != nil {
		return models.RawRecord{}, err
	}
	if err := json.Unmarshal([]byte(fm), &r.Frontmatter); err != nil {
		r.Frontmatter = nil
	}
	return r, nil
}

func encodeFrontmatter(fm any) string {
	if fm == nil {
		return "null"
	}
	data, err := json.Marshal(fm)
	if err != nil {
		return "null"
	}
	return string(data)
}

func (db *DB) timestamp() string {
	return db.now().UTC().Format(models.TimeLayout)
}

// UpsertFile records the parsed state of the vault file at path. A new
// path gets a fresh id; a soft-deleted path is revived under its old id.
// An unchanged hash on a live record is a no-op.
func (db *DB) UpsertFile(path string, frontmatter any, body, hash string) (Change, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Change{}, fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	existing, err := scanRecord(tx.QueryRow(`SELECT `+recordColumns+` FROM records WHERE path = ?`, path))
	found := true
	if errors.Is(err, sql.ErrNoRows) {
		found = false
	} else if err != nil {
		return Change{}, fmt.Errorf("index: lookup %s: %w", path, err)
	}

	if found && existing.Deleted == "" && existing.Hash == hash {
		return Change{}, nil
	}

	ts := db.timestamp()
	fmJSON := encodeFrontmatter(frontmatter)
	slug := parser.Slug(path)

	var id, kind string
	if !found {
		id, kind = db.newID(), KindCreated
		_, err = tx.Exec(`
			INSERT INTO records (id, path, slug, content, frontmatter, hash, deleted, created, updated)
			VALUES (?, ?, ?, ?, ?, ?, '', ?, ?)
		`, id, path, slug, body, fmJSON, hash, ts, ts)
	} else {
		id, kind = existing.ID, KindUpdated
		if existing.Deleted != "" {
			kind = KindCreated
		}
		_, err = tx.Exec(`
			UPDATE records SET
				slug        = ?,
				content     = ?,
				frontmatter = ?,
				hash        = ?,
				deleted     = '',
				updated     = ?
			WHERE id = ?
		`, slug, body, fmJSON, hash, ts, id)
	}
	if err != nil {
		return Change{}, fmt.Errorf("index: upsert %s: %w", path, err)
	}

	rec, err := scanRecord(tx.QueryRow(`SELECT `+recordColumns+` FROM records WHERE id = ?`, id))
	if err != nil {
		return Change{}, fmt.Errorf("index: reload %s: %w", path, err)
	}
	if err := tx.Commit(); err != nil {
		return Change{}, fmt.Errorf("index: commit: %w", err)
	}
	return Change{Kind: kind, Record: rec}, nil
}

// SoftDelete marks the record at path deleted. Missing or already deleted
// paths are a no-op.
func (db *DB) SoftDelete(path string) (Change, error) {
	ts := db.timestamp()
	res, err := db.conn.Exec(`UPDATE records SET deleted = ?, updated = ? WHERE path = ? AND deleted = ''`, ts, ts, path)
	if err != nil {
		return Change{}, fmt.Errorf("index: soft delete %s: %w", path, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Change{}, nil
	}
	rec, err := scanRecord(db.conn.QueryRow(`SELECT `+recordColumns+` FROM records WHERE path = ?`, path))
	if err != nil {
		return Change{}, fmt.Errorf("index: reload %s: %w", path, err)
	}
	return Change{Kind: KindDeleted, Record: rec}, nil
}

// Get returns the live record with id.
func (db *DB) Get(id string) (models.RawRecord, error) {
	return db.getLive(`id = ?`, id)
}

// GetByPath returns the live record at path.
func (db *DB) GetByPath(path string) (models.RawRecord, error) {
	return db.getLive(`path = ?`, path)
}

func (db *DB) getLive(where string, arg string) (models.RawRecord, error) {
	rec, err := scanRecord(db.conn.QueryRow(`SELECT `+recordColumns+` FROM records WHERE `+where+` AND deleted = ''`, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return models.RawRecord{}, fmt.Errorf("%w: record %s", apperr.ErrNotFound, arg)
	}
	if err != nil {
		return models.RawRecord{}, fmt.Errorf("index: get %s: %w", arg, err)
	}
	return rec, nil
}

// List returns one page of records matching filter, ordered by
// (created, id). Soft-deleted records are included unless the filter
// excludes them. A malformed filter yields an error wrapping
// filterexpr.ErrSyntax.
func (db *DB) List(page, perPage int, filter string) (models.RawListResult, error) {
	if page < 1 || perPage < 1 {
		return models.RawListResult{}, ErrInvalidPage
	}
	expr, err := filterexpr.Parse(filter)
	if err != nil {
		return models.RawListResult{}, fmt.Errorf("index: %w", err)
	}
	where, args, err := filterexpr.SQL(expr, filterColumns)
	if err != nil {
		return models.RawListResult{}, fmt.Errorf("index: %w", err)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM records WHERE `+where, args...).Scan(&total); err != nil {
		return models.RawListResult{}, fmt.Errorf("index: count: %w", err)
	}

	pageArgs := append(append([]any{}, args...), perPage, (page-1)*perPage)
	rows, err := db.conn.Query(`SELECT `+recordColumns+` FROM records WHERE `+where+
		` ORDER BY created, id LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return models.RawListResult{}, fmt.Errorf("index: list: %w", err)
	}
	defer rows.Close()

	items := []models.RawRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return models.RawListResult{}, fmt.Errorf("index: scan: %w", err)
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return models.RawListResult{}, fmt.Errorf("index: list: %w", err)
	}
	return models.RawListResult{
		Items:      items,
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: models.TotalPages(total, perPage),
	}, nil
}

// LiveHashes returns path → hash for every live record.
func (db *DB) LiveHashes() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, hash FROM records WHERE deleted = ''`)
	if err != nil {
		return nil, fmt.Errorf("index: live hashes: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, h string
		if err := rows.Scan(&p, &h); err != nil {
			return nil, err
		}
		out[p] = h
	}
	return out, rows.Err()
}
