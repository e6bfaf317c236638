package depgraph_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/preflight/internal/config"
	"github.com/Sumatoshi-tech/preflight/internal/depgraph"
)

func testBudgets() config.GraphBudgets {
	return config.GraphBudgets{MaxFiles: 1000, MaxNodes: 1000, MaxEdges: 1000, TimeBudgetMs: 60000}
}

func TestExtractImportsJSExact(t *testing.T) {
	content := "import { x } from './b.js';\nimport z from \"lodash\";\nconst w = require('./c');\n"

	imports := depgraph.ExtractImports(content, depgraph.LangJS, true)

	require.Len(t, imports, 3)
	assert.Equal(t, "./b.js", imports[0].Module)
	assert.Equal(t, depgraph.MethodExact, imports[0].Method)
	assert.InDelta(t, depgraph.ConfidenceExact, imports[0].Confidence, 0.0001)
	assert.Equal(t, "lodash", imports[1].Module)
	assert.Equal(t, "./c", imports[2].Module)
}

func TestExtractImportsPythonSplitsCommaImport(t *testing.T) {
	imports := depgraph.ExtractImports("import os, sys\n", depgraph.LangPython, true)

	require.Len(t, imports, 2)
	assert.Equal(t, "os", imports[0].Module)
	assert.Equal(t, "sys", imports[1].Module)
}

func TestExtractImportsFallsBackToHeuristic(t *testing.T) {
	content := "  // some comment mentioning import './fake.js' mid-line\n"

	imports := depgraph.ExtractImports(content, depgraph.LangJS, false)

	require.Len(t, imports, 1)
	assert.Equal(t, depgraph.MethodHeuristic, imports[0].Method)
	assert.InDelta(t, depgraph.ConfidenceHeuristic, imports[0].Confidence, 0.0001)
}

func TestExtractImportsRustExpandsUseGroup(t *testing.T) {
	imports := depgraph.ExtractImports("use crate::a::{b, c};\n", depgraph.LangRust, true)

	require.Len(t, imports, 2)
	assert.Equal(t, "crate::a::b", imports[0].Module)
	assert.Equal(t, "crate::a::c", imports[1].Module)
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()

	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestResolveJSRelativeAndIndexExpansion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", "")
	writeFile(t, root, "b.ts", "")
	writeFile(t, root, "pkg/index.ts", "")

	fi, err := depgraph.NewFileIndex(root)
	require.NoError(t, err)

	resolved, ok := depgraph.ResolveJS(fi, "a.ts", "./b.js")
	require.True(t, ok)
	assert.Equal(t, "b.ts", resolved)

	resolved, ok = depgraph.ResolveJS(fi, "a.ts", "./pkg")
	require.True(t, ok)
	assert.Equal(t, "pkg/index.ts", resolved)

	_, ok = depgraph.ResolveJS(fi, "a.ts", "lodash")
	assert.False(t, ok)
}

func TestResolvePythonRelative(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/a.py", "")
	writeFile(t, root, "pkg/b.py", "")

	fi, err := depgraph.NewFileIndex(root)
	require.NoError(t, err)

	resolved, ok := depgraph.ResolvePython(fi, "pkg/a.py", ".b")
	require.True(t, ok)
	assert.Equal(t, "pkg/b.py", resolved)
}

func TestResolvePythonAbsoluteAmbiguityUnlessOwnRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/util.py", "")
	writeFile(t, root, "app/src/util.py", "")

	fi, err := depgraph.NewFileIndex(root)
	require.NoError(t, err)

	resolved, ok := depgraph.ResolvePython(fi, "app/main.py", "util")
	require.True(t, ok)
	assert.Equal(t, "app/util.py", resolved)
}

func TestResolveGoNearestModAndDeterministicFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "go.mod", "module example.com/demo\n\ngo 1.24\n")
	writeFile(t, root, "pkg/sub/b.go", "package sub\n")
	writeFile(t, root, "pkg/sub/a.go", "package sub\n")
	writeFile(t, root, "pkg/sub/a_test.go", "package sub\n")

	fi, err := depgraph.NewFileIndex(root)
	require.NoError(t, err)

	resolved, ok := depgraph.ResolveGo(fi, "main.go", "example.com/demo/pkg/sub")
	require.True(t, ok)
	assert.Equal(t, "pkg/sub/a.go", resolved)
}

func TestResolveRustCrateAndSuper(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/lib.rs", "")
	writeFile(t, root, "src/a.rs", "")
	writeFile(t, root, "src/b/mod.rs", "")
	writeFile(t, root, "src/b/c.rs", "")

	fi, err := depgraph.NewFileIndex(root)
	require.NoError(t, err)

	resolved, ok := depgraph.ResolveRust(fi, "src/b/c.rs", "crate::a")
	require.True(t, ok)
	assert.Equal(t, "src/a.rs", resolved)

	resolved, ok = depgraph.ResolveRust(fi, "src/b/c.rs", "super::a")
	require.True(t, ok)
	assert.Equal(t, "src/a.rs", resolved)
}

func TestGenerateTargetJSScenario(t *testing.T) {
	bundleRoot := t.TempDir()
	normDir := filepath.Join(bundleRoot, "repos", "o", "r", "norm")
	writeFile(t, normDir, "a.ts", "import { x } from './b.js';\n")
	writeFile(t, normDir, "b.ts", "export const x = 1;\n")

	opts := depgraph.Options{
		TargetFile:      "repos/o/r/norm/a.ts",
		Budgets:         testBudgets(),
		UseExactImports: true,
	}

	result, err := depgraph.GenerateTarget(bundleRoot, "bundle-1", nil, opts)
	require.NoError(t, err)

	assert.Equal(t, depgraph.ModeTarget, result.Meta.Mode)

	var hasImports, hasResolved bool

	for _, e := range result.Facts.Edges {
		switch e.Type {
		case depgraph.EdgeImports:
			if e.To == "module:./b.js" {
				hasImports = true
			}
		case depgraph.EdgeImportsResolved:
			if e.To == "repos/o/r/norm/b.ts" {
				hasResolved = true
			}
		}
	}

	assert.True(t, hasImports, "expected imports edge to module:./b.js")
	assert.True(t, hasResolved, "expected imports_resolved edge to repos/o/r/norm/b.ts")
}

func TestGenerateTargetBudgetTruncatesAtMaxEdges(t *testing.T) {
	bundleRoot := t.TempDir()
	normDir := filepath.Join(bundleRoot, "repos", "o", "r", "norm")
	writeFile(t, normDir, "a.ts", "import { x } from 'pkg-one';\nimport { y } from 'pkg-two';\n")

	budgets := testBudgets()
	budgets.MaxEdges = 1

	result, err := depgraph.GenerateTarget(bundleRoot, "bundle-1", nil, depgraph.Options{
		TargetFile:      "repos/o/r/norm/a.ts",
		Budgets:         budgets,
		UseExactImports: true,
	})
	require.NoError(t, err)

	assert.True(t, result.CoverageReport.Truncated)
	assert.Equal(t, "maxEdges reached", result.CoverageReport.TruncatedReason)
	assert.Len(t, result.Facts.Edges, 1)
}

func TestGenerateTargetRejectsAbsolutePath(t *testing.T) {
	bundleRoot := t.TempDir()

	_, err := depgraph.GenerateTarget(bundleRoot, "bundle-1", nil, depgraph.Options{
		TargetFile: "/etc/passwd",
		Budgets:    testBudgets(),
	})

	require.Error(t, err)
}

func TestGenerateGlobalClassifiesAndCaches(t *testing.T) {
	bundleRoot := t.TempDir()
	normDir := filepath.Join(bundleRoot, "repos", "o", "r", "norm")

	writeFile(t, normDir, "hub.ts", "")
	var hubContent string
	for i := 0; i < 16; i++ {
		leaf := "leaf" + string(rune('a'+i)) + ".ts"
		writeFile(t, normDir, leaf, "")
		hubContent += "import './" + leaf[:len(leaf)-3] + "';\n"
	}
	writeFile(t, normDir, "hub.ts", hubContent)

	opts := depgraph.Options{
		Budgets:          testBudgets(),
		UseExactImports:  true,
		MaxFileSizeBytes: 1 << 20,
		FileSizeStrategy: depgraph.FileSizeSkip,
	}

	result, err := depgraph.GenerateGlobal(bundleRoot, "bundle-1", opts)
	require.NoError(t, err)
	assert.False(t, result.Meta.FromCache)

	var foundHub bool

	for _, hv := range result.Signals.HighValueModules {
		if hv.Path == "repos/o/r/norm/hub.ts" && hv.Role == depgraph.RoleHub {
			foundHub = true
		}
	}

	assert.True(t, foundHub, "expected hub.ts to be classified as a hub")

	cached, err := depgraph.GenerateGlobal(bundleRoot, "bundle-1", opts)
	require.NoError(t, err)
	assert.True(t, cached.Meta.FromCache)
	assert.Contains(t, cached.Signals.Warnings[0], "from cache")

	forced, err := depgraph.GenerateGlobal(bundleRoot, "bundle-1", depgraph.Options{
		Budgets: testBudgets(), UseExactImports: true, Force: true,
		MaxFileSizeBytes: 1 << 20, FileSizeStrategy: depgraph.FileSizeSkip,
	})
	require.NoError(t, err)
	assert.False(t, forced.Meta.FromCache)
}
