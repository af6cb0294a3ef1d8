package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/notebase/internal/storage"
)

// EventCallback is called after a watcher-driven record change.
type EventCallback func(ch Change)

// Watch starts an fsnotify watcher on the vault root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each mutation that changed a record.
//
// New directories created at runtime are added to the watch list. Rename
// events trigger a reconciliation pass that soft-deletes records whose
// files no longer exist.
func Watch(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if err := addDirsRecursive(w, store, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	notify := func(ch Change) {
		if ch.Kind == "" {
			return
		}
		logger.Debug("watcher: record changed",
			slog.String("kind", ch.Kind),
			slog.String("id", ch.Record.ID),
			slog.String("path", ch.Record.Path))
		if cb != nil {
			cb(ch)
		}
	}

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
		reconcileCh = reconcileTimer.C
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcileCh = nil
			reconcile(db, store, logger, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name
			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil || store.Excluded(rel) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, store, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					indexNewDir(db, store, absPath, logger, notify)
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") || strings.HasPrefix(filepath.Base(rel), ".") {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				ch, idxErr := IndexFile(db, rel, data)
				if idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
					continue
				}
				notify(ch)

			case ev.Op&fsnotify.Remove != 0:
				ch, delErr := db.SoftDelete(rel)
				if delErr != nil {
					logger.Warn("watcher: soft delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				notify(ch)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify reports Rename on the old path only; the new path
				// arrives as a Create if it stays inside a watched dir.
				ch, delErr := db.SoftDelete(rel)
				if delErr != nil {
					logger.Warn("watcher: rename soft delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				} else {
					notify(ch)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile soft-deletes records without a file on disk and indexes
// files that are new or changed.
func reconcile(db *DB, store storage.Provider, logger *slog.Logger, notify func(Change)) {
	hashes, err := db.LiveHashes()
	if err != nil {
		logger.Warn("reconcile: live hashes failed", slog.String("error", err.Error()))
		return
	}
	metas, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range hashes {
		if _, ok := disk[p]; !ok {
			if ch, delErr := db.SoftDelete(p); delErr == nil {
				notify(ch)
			}
		}
	}

	for p, cs := range disk {
		if hashes[p] == cs {
			continue
		}
		data, readErr := store.Read(p)
		if readErr != nil {
			continue
		}
		if ch, idxErr := IndexFile(db, p, data); idxErr == nil {
			notify(ch)
		}
	}
}

// indexNewDir indexes any .md files found in a newly created directory.
func indexNewDir(db *DB, store storage.Provider, dirPath string, logger *slog.Logger, notify func(Change)) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(store.Root(), path)
		if relErr != nil {
			return nil
		}
		if store.Excluded(rel) || (path != dirPath && strings.HasPrefix(d.Name(), ".")) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel = filepath.ToSlash(rel)
		data, readErr := store.Read(rel)
		if readErr != nil {
			return nil
		}
		ch, idxErr := IndexFile(db, rel, data)
		if idxErr != nil {
			logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
			return nil
		}
		notify(ch)
		return nil
	})
}

// addDirsRecursive adds root and all its non-hidden, non-excluded
// subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, store storage.Provider, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if rel, relErr := filepath.Rel(store.Root(), path); relErr == nil && store.Excluded(rel) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
