package index

import (
	"fmt"
	"sort"

	"github.com/starford/ansuz/internal/graph"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/similarity"
	"github.com/starford/ansuz/internal/wikilink"
)

// Rebuild replaces the snapshot with the given note inventory and dangling
// links within a single transaction.
func (db *DB) Rebuild(notes []models.NoteFile, dangling []graph.DanglingLink) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM notes`); err != nil {
		return fmt.Errorf("index: clear notes: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM dangling`); err != nil {
		return fmt.Errorf("index: clear dangling: %w", err)
	}

	noteStmt, err := tx.Prepare(`INSERT INTO notes (path, title, normalized) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare note insert: %w", err)
	}
	defer noteStmt.Close()
	for _, n := range notes {
		if _, err := noteStmt.Exec(n.Path, n.Title, wikilink.NormalizeTitle(n.Title)); err != nil {
			return fmt.Errorf("index: insert note: %w", err)
		}
	}

	dangStmt, err := tx.Prepare(`INSERT OR REPLACE INTO dangling (target, note_path, note_title, count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare dangling insert: %w", err)
	}
	defer dangStmt.Close()
	for _, d := range dangling {
		for _, src := range d.Sources {
			if _, err := dangStmt.Exec(d.Target, src.NotePath, src.NoteTitle, src.Count); err != nil {
				return fmt.Errorf("index: insert dangling: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Titles returns every indexed note title in sorted order.
func (db *DB) Titles() ([]string, error) {
	rows, err := db.conn.Query(`SELECT title FROM notes ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("index: titles: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Dangling returns the snapshotted dangling links, aggregated per target
// in sorted target order.
func (db *DB) Dangling() ([]graph.DanglingLink, error) {
	rows, err := db.conn.Query(`SELECT target, note_path, note_title, count FROM dangling ORDER BY target, note_path`)
	if err != nil {
		return nil, fmt.Errorf("index: dangling: %w", err)
	}
	defer rows.Close()

	byTarget := make(map[string]*graph.DanglingLink)
	var order []string
	for rows.Next() {
		var target string
		var src graph.DanglingSource
		if err := rows.Scan(&target, &src.NotePath, &src.NoteTitle, &src.Count); err != nil {
			return nil, err
		}
		d, ok := byTarget[target]
		if !ok {
			d = &graph.DanglingLink{Target: target}
			byTarget[target] = d
			order = append(order, target)
		}
		d.Sources = append(d.Sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]graph.DanglingLink, 0, len(order))
	for _, t := range order {
		out = append(out, *byTarget[t])
	}
	return out, nil
}

// Suggestion pairs an existing note title with its edit distance from a
// dangling target.
type Suggestion struct {
	Title    string `json:"title"`
	Distance int    `json:"distance"`
}

// Suggest returns up to limit existing titles within maxDistance edits of
// target, closest first. Repair tooling uses plain Levenshtein here; the
// composite similarity scorer belongs to clustering.
func (db *DB) Suggest(target string, maxDistance, limit int) ([]Suggestion, error) {
	titles, err := db.Titles()
	if err != nil {
		return nil, err
	}

	var out []Suggestion
	for _, title := range titles {
		if wikilink.IsSameNote(title, target) {
			continue
		}
		if d := similarity.Levenshtein(target, title); d <= maxDistance {
			out = append(out, Suggestion{Title: title, Distance: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Title < out[j].Title
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
