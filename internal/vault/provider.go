// Package vault defines the note-directory file-system abstraction.
package vault

import "github.com/starford/ansuz/internal/models"

// Provider is the interface for vault file operations. The graph analyzer
// walks vaults exclusively through this interface so tests can run against
// temp directories.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to the
	// vault root), in stable path order. Hidden directories are skipped.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the
	// vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the vault root).
	Write(path string, content []byte) error
	// Root returns the absolute vault root directory.
	Root() string
}
