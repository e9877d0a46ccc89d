// Package models defines the domain types shared across the graph engine.
package models

import "time"

// NoteMetadata is a lightweight per-file record returned by vault listing.
type NoteMetadata struct {
	Path      string    `json:"path"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteFile is one parsed Markdown file as seen by the graph analyzer.
// Notes are never persisted as objects; they are re-derived from disk on
// every analyzer pass.
type NoteFile struct {
	Path     string `json:"path"`
	Basename string `json:"basename"`
	Title    string `json:"title"`
	Content  string `json:"-"`
	Mentions int    `json:"mentions"`
}
