package trace_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/preflight/internal/trace"
)

func testDBPath(t *testing.T) string {
	t.Helper()

	return filepath.Join(t.TempDir(), "trace.sqlite3")
}

func TestUpsertRejectsMissingEvidenceForTestedBy(t *testing.T) {
	dbPath := testDBPath(t)
	db, err := trace.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	edges := []trace.Edge{{
		Source: trace.EntityRef{Type: "file", ID: "src/x.go"},
		Target: trace.EntityRef{Type: "file", ID: "src/x_test.go"},
		Type:   trace.TestedBy,
		Method: trace.MethodHeuristic,
	}}

	result, err := trace.Upsert(db, dbPath, edges, trace.UpsertOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Upserted)
	require.Len(t, result.Blocked, 1)
	assert.Equal(t, "MISSING_EVIDENCE", result.Blocked[0].Code)
	require.NotNil(t, result.Blocked[0].NextAction)
	assert.Equal(t, "trace_upsert", result.Blocked[0].NextAction.ToolName)
}

func TestUpsertIsIdempotentOnRepeatedKey(t *testing.T) {
	dbPath := testDBPath(t)
	db, err := trace.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	edge := trace.Edge{
		Source:     trace.EntityRef{Type: "file", ID: "src/x.go"},
		Target:     trace.EntityRef{Type: "file", ID: "src/x_test.go"},
		Type:       trace.TestedBy,
		Method:     trace.MethodHeuristic,
		Confidence: 0.8,
		Sources:    []trace.Evidence{{File: "src/x_test.go", Note: "naming convention"}},
	}

	first, err := trace.Upsert(db, dbPath, []trace.Edge{edge}, trace.UpsertOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, first.Upserted)

	edge.Confidence = 0.95

	second, err := trace.Upsert(db, dbPath, []trace.Edge{edge}, trace.UpsertOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, second.Upserted)

	assert.Equal(t, first.IDs[0], second.IDs[0])

	result, err := trace.Query(db, trace.QueryFilters{})
	require.NoError(t, err)
	require.Len(t, result.Edges, 1)
	assert.InDelta(t, 0.95, result.Edges[0].Confidence, 0.0001)
}

func TestUpsertDryRunPerformsNoWrites(t *testing.T) {
	dbPath := testDBPath(t)
	db, err := trace.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	edge := trace.Edge{
		Source:     trace.EntityRef{Type: "file", ID: "src/a.go"},
		Target:     trace.EntityRef{Type: "file", ID: "src/b.go"},
		Type:       trace.DependsOn,
		Method:     trace.MethodHeuristic,
		Confidence: 0.5,
	}

	result, err := trace.Upsert(db, dbPath, []trace.Edge{edge}, trace.UpsertOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Upserted)
	require.Len(t, result.Preview, 1)

	queryResult, err := trace.Query(db, trace.QueryFilters{})
	require.NoError(t, err)
	assert.Equal(t, "no_edges", queryResult.Reason)
}

func TestQueryClassifiesNoMatchingEdges(t *testing.T) {
	dbPath := testDBPath(t)
	db, err := trace.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	edge := trace.Edge{
		Source:     trace.EntityRef{Type: "file", ID: "src/a.go"},
		Target:     trace.EntityRef{Type: "file", ID: "src/b.go"},
		Type:       trace.DependsOn,
		Method:     trace.MethodHeuristic,
		Confidence: 0.5,
	}

	_, err = trace.Upsert(db, dbPath, []trace.Edge{edge}, trace.UpsertOptions{})
	require.NoError(t, err)

	result, err := trace.Query(db, trace.QueryFilters{Type: trace.Implements})
	require.NoError(t, err)
	assert.Equal(t, "no_matching_edges", result.Reason)
}

func TestSuggestFindsNamingConventionCompanions(t *testing.T) {
	bundleRoot := t.TempDir()
	normDir := filepath.Join(bundleRoot, "repos", "o", "r", "norm")
	require.NoError(t, os.MkdirAll(normDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(normDir, "x.go"), []byte("package p\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(normDir, "x_test.go"), []byte("package p\n"), 0o644))

	dbPath := testDBPath(t)
	db, err := trace.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	result, err := trace.Suggest(db, bundleRoot, trace.SuggestOptions{})
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 1)
	assert.Contains(t, result.Suggestions[0].Target.ID, "x_test.go")
}

func TestExportJSONWritesAllEdges(t *testing.T) {
	dbPath := testDBPath(t)
	db, err := trace.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	edge := trace.Edge{
		Source:     trace.EntityRef{Type: "file", ID: "src/a.go"},
		Target:     trace.EntityRef{Type: "file", ID: "src/b.go"},
		Type:       trace.DependsOn,
		Method:     trace.MethodHeuristic,
		Confidence: 0.5,
	}

	_, err = trace.Upsert(db, dbPath, []trace.Edge{edge}, trace.UpsertOptions{})
	require.NoError(t, err)

	jsonPath := filepath.Join(filepath.Dir(dbPath), "trace.json")
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "depends_on")
}
