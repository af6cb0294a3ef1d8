// Package filterstore persists the client filter state and saved filter
// presets in a JSON file.
package filterstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/fsnotify/fsnotify"
	"github.com/natefinch/atomic"

	"github.com/starford/notebase/internal/apperr"
	"github.com/starford/notebase/internal/query"
)

// DefaultPath returns $XDG_STATE_HOME/notebase/filters.json.
func DefaultPath() string {
	return filepath.Join(xdg.StateHome, "notebase", "filters.json")
}

// document is the on-disk layout.
type document struct {
	Current query.FilterState   `json:"current"`
	Saved   []query.SavedFilter `json:"saved"`
}

// Store holds the filter document in memory and writes every change
// through to disk.
type Store struct {
	path   string
	logger *slog.Logger

	mu  sync.RWMutex
	doc document
}

// Open loads the document at path. A missing, unreadable or malformed file
// yields defaults; only a failure to create the parent directory is fatal.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("filterstore: create dir: %w", err)
	}
	s := &Store{path: path, logger: logger}
	s.Load()
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load rereads the file, falling back to defaults.
func (s *Store) Load() {
	doc := s.read()
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
}

func (s *Store) read() document {
	def := document{Current: query.DefaultState()}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return def
	}
	if err != nil {
		s.logger.Warn("filterstore: read failed, using defaults",
			slog.String("path", s.path), slog.String("error", err.Error()))
		return def
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("filterstore: malformed file, using defaults",
			slog.String("path", s.path), slog.String("error", err.Error()))
		return def
	}
	doc.Current = doc.Current.Normalized()
	if err := doc.Current.Validate(); err != nil {
		s.logger.Warn("filterstore: invalid current state, using defaults",
			slog.String("path", s.path), slog.String("error", err.Error()))
		doc.Current = def.Current
	}
	saved := doc.Saved[:0]
	for _, f := range doc.Saved {
		f.FilterState = f.FilterState.Normalized()
		if err := f.Validate(); err != nil {
			s.logger.Warn("filterstore: dropping invalid preset",
				slog.String("id", f.ID), slog.String("error", err.Error()))
			continue
		}
		saved = append(saved, f)
	}
	doc.Saved = saved
	return doc
}

// Current returns the persisted filter state.
func (s *Store) Current() query.FilterState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Current
}

// SetCurrent validates and persists state.
func (s *Store) SetCurrent(state query.FilterState) error {
	state = state.Normalized()
	if err := state.Validate(); err != nil {
		return fmt.Errorf("filterstore: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.doc
	doc.Current = state
	return s.writeLocked(doc)
}

// Saved returns the presets in creation order.
func (s *Store) Saved() []query.SavedFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.doc.Saved)
}

// Get returns the preset with id.
func (s *Store) Get(id string) (query.SavedFilter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return query.SavedFilter{}, fmt.Errorf("%w: saved filter %s", apperr.ErrNotFound, id)
	}
	return s.doc.Saved[i], nil
}

// Save stores state as a new preset named label.
func (s *Store) Save(label string, state query.FilterState) (query.SavedFilter, error) {
	f := query.NewSavedFilter(label, state)
	if err := f.Validate(); err != nil {
		return query.SavedFilter{}, fmt.Errorf("filterstore: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.doc.Saved {
		if existing.Label == f.Label {
			return query.SavedFilter{}, fmt.Errorf("%w: saved filter %q", apperr.ErrAlreadyExists, f.Label)
		}
	}
	doc := s.doc
	doc.Saved = append(slices.Clone(s.doc.Saved), f)
	if err := s.writeLocked(doc); err != nil {
		return query.SavedFilter{}, err
	}
	return f, nil
}

// Delete removes the preset with id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: saved filter %s", apperr.ErrNotFound, id)
	}
	doc := s.doc
	doc.Saved = slices.Delete(slices.Clone(s.doc.Saved), i, i+1)
	return s.writeLocked(doc)
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.doc.Saved, func(f query.SavedFilter) bool { return f.ID == id })
}

func (s *Store) writeLocked(doc document) error {
	if doc.Saved == nil {
		doc.Saved = []query.SavedFilter{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("filterstore: encode: %w", err)
	}
	data = append(data, '\n')
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("filterstore: write %s: %w", s.path, err)
	}
	s.doc = doc
	return nil
}

// Watch reloads the document when the file changes on disk and calls
// onChange with the new current state. It blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, onChange func(query.FilterState)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("filterstore: watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: atomic writes replace the file, which drops a
	// watch on the file itself.
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("filterstore: watch %s: %w", dir, err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case <-fire:
			fire = nil
			before := s.Current()
			s.Load()
			if after := s.Current(); after != before && onChange != nil {
				onChange(after)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(100 * time.Millisecond)
			} else {
				timer.Reset(100 * time.Millisecond)
			}
			fire = timer.C

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("filterstore: watcher error", slog.String("error", werr.Error()))
		}
	}
}
