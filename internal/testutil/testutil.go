// Package testutil provides shared test helpers for setting up vaults,
// record stores and seeded records.
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/notebase/internal/index"
	"github.com/starford/notebase/internal/models"
	"github.com/starford/notebase/internal/parser"
	"github.com/starford/notebase/internal/storage"
)

// TestDB creates a temporary SQLite record store that is automatically
// closed.
func TestDB(t *testing.T, opts ...index.Option) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "records.db"), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store
}

// SteppingClock returns a clock that advances by step on every call,
// starting at start.
func SteppingClock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

// SequentialIDs returns an id generator yielding prefix000001, prefix000002, ...
func SequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%06d", prefix, n)
	}
}

// SeedVault writes each record as a Markdown file and indexes it, in order.
// Frontmatter that is not a mapping cannot live in a vault file and is
// dropped. It returns the stored records.
func SeedVault(t *testing.T, store storage.Provider, db index.RecordIndex, records ...models.RawRecord) []models.RawRecord {
	t.Helper()
	out := make([]models.RawRecord, 0, len(records))
	for _, r := range records {
		fm, _ := r.Frontmatter.(map[string]any)
		data, err := parser.Compose(fm, r.Content)
		if err != nil {
			t.Fatalf("compose %s: %v", r.Path, err)
		}
		if err := store.Write(r.Path, data); err != nil {
			t.Fatalf("write %s: %v", r.Path, err)
		}
		ch, err := index.IndexFile(db, r.Path, data)
		if err != nil {
			t.Fatalf("index %s: %v", r.Path, err)
		}
		out = append(out, ch.Record)
	}
	return out
}
