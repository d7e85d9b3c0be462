// Package storage defines the read-only view of the note vault on disk.
package storage

import "github.com/starford/linkpeek/internal/models"

// Provider is the interface for vault file access.
type Provider interface {
	// List returns metadata for every visible file under dir (relative to vault root).
	List(dir string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Ignored reports whether the slash-separated relative path is excluded
	// from the vault: dotfiles, host bookkeeping and configured folders.
	Ignored(rel string) bool
	// Root returns the absolute vault directory.
	Root() string
}
