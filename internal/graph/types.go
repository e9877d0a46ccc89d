// Package graph analyzes wikilink structure over a vault of Markdown notes:
// forward links, backlinks, dangling links, and orphan notes, with an
// incremental dependency-aware cache in front of the walk.
package graph

// BacklinkEntry records one note that references a given title.
type BacklinkEntry struct {
	SourcePath  string `json:"sourcePath"`
	SourceTitle string `json:"sourceTitle"`
	Context     string `json:"context,omitempty"`
}

// DanglingSource aggregates the occurrences of one unmatched target within
// a single note.
type DanglingSource struct {
	NotePath  string `json:"notePath"`
	NoteTitle string `json:"noteTitle"`
	Count     int    `json:"count"`
}

// DanglingLink is one distinct unmatched wikilink target with every note
// that references it.
type DanglingLink struct {
	Target  string           `json:"target"`
	Sources []DanglingSource `json:"sources"`
}

// Occurrences returns the total mention count across all sources.
func (d DanglingLink) Occurrences() int {
	total := 0
	for _, s := range d.Sources {
		total += s.Count
	}
	return total
}

// Stats is the full derived graph over one vault directory. All maps and
// slices are non-nil and deterministically ordered so the structure
// serialises stably to JSON.
type Stats struct {
	NoteCount         int                        `json:"noteCount"`
	UniqueConnections int                        `json:"uniqueConnections"`
	TotalMentions     int                        `json:"totalMentions"`
	ForwardLinks      map[string][]string        `json:"forwardLinks"`
	Backlinks         map[string][]BacklinkEntry `json:"backlinks"`
	DanglingLinks     []DanglingLink             `json:"danglingLinks"`
	OrphanNotes       []string                   `json:"orphanNotes"`
}

// QuickStats is the numeric-only projection of Stats for dashboards.
type QuickStats struct {
	NoteCount         int `json:"noteCount"`
	UniqueConnections int `json:"uniqueConnections"`
	TotalMentions     int `json:"totalMentions"`
	DanglingCount     int `json:"danglingCount"`
	OrphanCount       int `json:"orphanCount"`
}

func emptyStats() *Stats {
	return &Stats{
		ForwardLinks:  map[string][]string{},
		Backlinks:     map[string][]BacklinkEntry{},
		DanglingLinks: []DanglingLink{},
		OrphanNotes:   []string{},
	}
}
