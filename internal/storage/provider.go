// Package storage defines the vault file-system abstraction.
package storage

import "time"

// FileMeta describes one Markdown file of the vault.
type FileMeta struct {
	// Path is slash-separated and relative to the vault root.
	Path     string
	Checksum string
	ModTime  time.Time
}

// Provider is the interface for vault file operations.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to vault root).
	List(dir string) ([]FileMeta, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path (relative to vault root).
	Write(path string, content []byte) error
	// Root returns the absolute vault directory.
	Root() string
	// Excluded reports whether path (relative to vault root) is hidden by an
	// exclude pattern.
	Excluded(path string) bool
}
