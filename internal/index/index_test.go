package index

import (
	"os"
	"testing"

	"github.com/starford/ansuz/internal/graph"
	"github.com/starford/ansuz/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "ansuz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seed(t *testing.T, db *DB) {
	t.Helper()
	notes := []models.NoteFile{
		{Path: "a.md", Title: "Daily Note"},
		{Path: "b.md", Title: "Weekly Plan"},
	}
	dangling := []graph.DanglingLink{
		{Target: "Dailu Note", Sources: []graph.DanglingSource{
			{NotePath: "b.md", NoteTitle: "Weekly Plan", Count: 2},
		}},
	}
	if err := db.Rebuild(notes, dangling); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
}

func TestRebuildAndTitles(t *testing.T) {
	db := testDB(t)
	seed(t, db)

	titles, err := db.Titles()
	if err != nil {
		t.Fatalf("Titles: %v", err)
	}
	if len(titles) != 2 || titles[0] != "Daily Note" || titles[1] != "Weekly Plan" {
		t.Errorf("titles = %v", titles)
	}
}

func TestRebuild_ReplacesPrevious(t *testing.T) {
	db := testDB(t)
	seed(t, db)
	if err := db.Rebuild([]models.NoteFile{{Path: "c.md", Title: "Only"}}, nil); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	titles, _ := db.Titles()
	if len(titles) != 1 || titles[0] != "Only" {
		t.Errorf("titles = %v", titles)
	}
	dangling, _ := db.Dangling()
	if len(dangling) != 0 {
		t.Errorf("dangling = %+v, want empty", dangling)
	}
}

func TestDangling_AggregatesPerTarget(t *testing.T) {
	db := testDB(t)
	err := db.Rebuild(nil, []graph.DanglingLink{
		{Target: "Missing", Sources: []graph.DanglingSource{
			{NotePath: "a.md", NoteTitle: "A", Count: 1},
			{NotePath: "b.md", NoteTitle: "B", Count: 3},
		}},
	})
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	dangling, err := db.Dangling()
	if err != nil {
		t.Fatalf("Dangling: %v", err)
	}
	if len(dangling) != 1 || len(dangling[0].Sources) != 2 {
		t.Fatalf("dangling = %+v", dangling)
	}
	if dangling[0].Occurrences() != 4 {
		t.Errorf("occurrences = %d, want 4", dangling[0].Occurrences())
	}
}

func TestSuggest_RanksByDistance(t *testing.T) {
	db := testDB(t)
	seed(t, db)

	got, err := db.Suggest("Dailu Note", 3, 5)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Daily Note" || got[0].Distance != 1 {
		t.Errorf("suggestions = %+v", got)
	}
}

func TestSuggest_ExcludesSameNormalizedTitle(t *testing.T) {
	db := testDB(t)
	seed(t, db)

	got, err := db.Suggest("daily-note", 5, 5)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	for _, s := range got {
		if s.Title == "Daily Note" {
			t.Errorf("suggestion should exclude the already-matching title: %+v", got)
		}
	}
}
