package fts_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/preflight/internal/fts"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "search.sqlite3")
	db, err := fts.Open(path)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return db
}

func sampleFiles() []fts.SourceFile {
	return []fts.SourceFile{
		{
			Path: "main.go", Repo: "a/b", Kind: "code", ContentHash: "h1",
			Lines: []string{"package main", "func main() {", `    fmt.Println("hello world")`, "}"},
		},
		{
			Path: "README.md", Repo: "a/b", Kind: "doc", ContentHash: "h2",
			Lines: []string{"# Hello", "This is a readme about world events."},
		},
	}
}

func TestRebuildThenSearch(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, fts.Rebuild(db, sampleFiles(), fts.Options{Scope: fts.ScopeAll}))

	hits, err := fts.Search(db, "world", fts.ScopeAll, 10, "")
	require.NoError(t, err)
	require.Len(t, hits, 2)
}

func TestSearchScopeFiltersByKind(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, fts.Rebuild(db, sampleFiles(), fts.Options{Scope: fts.ScopeAll}))

	hits, err := fts.Search(db, "world", fts.ScopeDocs, 10, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "README.md", hits[0].Path)
}

func TestSearchRawFTSDialect(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, fts.Rebuild(db, sampleFiles(), fts.Options{Scope: fts.ScopeAll}))

	hits, err := fts.Search(db, "fts:hello", fts.ScopeAll, 10, "")
	require.NoError(t, err)
	require.NotEmpty(t, hits)
}

func TestSearchOrderingIsDeterministic(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, fts.Rebuild(db, sampleFiles(), fts.Options{Scope: fts.ScopeAll}))

	hits, err := fts.Search(db, "world", fts.ScopeAll, 10, "")
	require.NoError(t, err)

	for i := 1; i < len(hits); i++ {
		prev, cur := hits[i-1], hits[i]
		require.True(t, prev.Score < cur.Score || (prev.Score == cur.Score && prev.Path <= cur.Path))
	}
}

func TestIncrementalUpdateAddsUpdatesRemoves(t *testing.T) {
	db := openTestDB(t)

	initial := sampleFiles()
	require.NoError(t, fts.Rebuild(db, initial, fts.Options{Scope: fts.ScopeAll}))

	changed := []fts.SourceFile{
		initial[0], // unchanged
		{Path: "README.md", Repo: "a/b", Kind: "doc", ContentHash: "h2-changed", Lines: []string{"# Hello", "Updated content."}},
		{Path: "NEW.md", Repo: "a/b", Kind: "doc", ContentHash: "h3", Lines: []string{"new file"}},
	}

	report, err := fts.IncrementalUpdate(db, changed, fts.Options{Scope: fts.ScopeAll})
	require.NoError(t, err)
	require.Equal(t, 1, report.Added)
	require.Equal(t, 1, report.Updated)
	require.Equal(t, 1, report.Unchanged)
	require.Equal(t, 0, report.Removed)
}

func TestIncrementalUpdateRemovesMissingFiles(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, fts.Rebuild(db, sampleFiles(), fts.Options{Scope: fts.ScopeAll}))

	report, err := fts.IncrementalUpdate(db, sampleFiles()[:1], fts.Options{Scope: fts.ScopeAll})
	require.NoError(t, err)
	require.Equal(t, 1, report.Removed)
	require.Equal(t, 1, report.Unchanged)

	hits, err := fts.Search(db, "world", fts.ScopeAll, 10, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestSearchAdvancedGroupsByFile(t *testing.T) {
	db := openTestDB(t)

	files := []fts.SourceFile{
		{Path: "a.go", Repo: "a/b", Kind: "code", ContentHash: "h1", Lines: []string{"needle one", "needle two"}},
	}
	require.NoError(t, fts.Rebuild(db, files, fts.Options{Scope: fts.ScopeAll}))

	hits, grouped, err := fts.SearchAdvanced(db, "needle", fts.AdvancedOptions{Scope: fts.ScopeAll, GroupByFile: true})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Len(t, grouped, 1)
	require.Equal(t, 2, grouped[0].HitCount)
}

func TestSearchAdvancedExtensionFilter(t *testing.T) {
	db := openTestDB(t)

	files := []fts.SourceFile{
		{Path: "a.go", Repo: "a/b", Kind: "code", ContentHash: "h1", Lines: []string{"needle in go"}},
		{Path: "b.py", Repo: "a/b", Kind: "code", ContentHash: "h2", Lines: []string{"needle in python"}},
	}
	require.NoError(t, fts.Rebuild(db, files, fts.Options{Scope: fts.ScopeAll}))

	hits, _, err := fts.SearchAdvanced(db, "needle", fts.AdvancedOptions{Scope: fts.ScopeAll, Extensions: []string{".go"}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "a.go", hits[0].Path)
}
