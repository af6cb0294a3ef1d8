// Package noteservice implements the record operations of the content store:
// reads go to the index, writes go to the vault file first and are then
// re-indexed.
package noteservice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/notebase/internal/apperr"
	"github.com/starford/notebase/internal/index"
	"github.com/starford/notebase/internal/models"
	"github.com/starford/notebase/internal/parser"
	"github.com/starford/notebase/internal/storage"
)

// Service coordinates storage and index operations.
type Service struct {
	store    storage.Provider
	db       index.RecordIndex
	logger   *slog.Logger
	onChange func(index.Change)

	// mu serializes read-modify-write cycles so If-Match checks hold.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithOnChange registers a callback invoked after every write that changed
// a record.
func WithOnChange(fn func(index.Change)) Option {
	return func(s *Service) {
		s.onChange = fn
	}
}

// NewService creates a new record service.
func NewService(store storage.Provider, db index.RecordIndex, opts ...Option) *Service {
	s := &Service{store: store, db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns one page of records matching filter.
func (s *Service) List(_ context.Context, page, perPage int, filter string) (models.RawListResult, error) {
	return s.db.List(page, perPage, filter)
}

// Get returns the live record with id.
func (s *Service) Get(_ context.Context, id string) (models.RawRecord, error) {
	return s.db.Get(id)
}

// UpdateFrontmatter replaces the frontmatter of record id, keeping its body.
// A non-empty ifMatch must equal the current hash.
func (s *Service) UpdateFrontmatter(ctx context.Context, id string, data map[string]any, ifMatch string) (models.RawRecord, error) {
	return s.rewrite(ctx, id, ifMatch, func(rec models.RawRecord) (map[string]any, string) {
		return data, rec.Content
	})
}

// UpdateContent replaces the body of record id, keeping its frontmatter.
func (s *Service) UpdateContent(ctx context.Context, id, content, ifMatch string) (models.RawRecord, error) {
	return s.rewrite(ctx, id, ifMatch, func(rec models.RawRecord) (map[string]any, string) {
		fm, _ := rec.Frontmatter.(map[string]any)
		return fm, content
	})
}

func (s *Service) rewrite(ctx context.Context, id, ifMatch string, edit func(models.RawRecord) (map[string]any, string)) (models.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.RawRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.db.Get(id)
	if err != nil {
		return models.RawRecord{}, err
	}
	if ifMatch != "" && ifMatch != rec.Hash {
		return models.RawRecord{}, fmt.Errorf("%w: record %s changed", apperr.ErrConflict, id)
	}

	fm, body := edit(rec)
	data, err := parser.Compose(fm, body)
	if err != nil {
		return models.RawRecord{}, err
	}
	if err := s.store.Write(rec.Path, data); err != nil {
		return models.RawRecord{}, fmt.Errorf("noteservice: write %s: %w", rec.Path, err)
	}
	ch, err := index.IndexFile(s.db, rec.Path, data)
	if err != nil {
		return models.RawRecord{}, fmt.Errorf("noteservice: index %s: %w", rec.Path, err)
	}
	if ch.Kind == "" {
		// Unchanged bytes, or the vault watcher indexed the file first.
		return s.db.Get(id)
	}

	s.logger.Debug("record written",
		slog.String("id", ch.Record.ID),
		slog.String("path", ch.Record.Path),
		slog.String("kind", ch.Kind))
	if s.onChange != nil {
		s.onChange(ch)
	}
	return ch.Record, nil
}
