package ingest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/preflight/internal/ingest"
)

func TestBuiltinExcludesAlwaysApply(t *testing.T) {
	set, err := ingest.LoadIgnoreSet(t.TempDir())
	require.NoError(t, err)

	require.True(t, set.Excluded("node_modules/foo.js", false))
	require.True(t, set.Excluded("src/.git/HEAD", false))
	require.False(t, set.Excluded("src/main.go", false))
}

func TestGitignoreRulesApply(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.log\n!keep.log\n"), 0o644))

	set, err := ingest.LoadIgnoreSet(root)
	require.NoError(t, err)

	require.True(t, set.Excluded("debug.log", false))
	require.False(t, set.Excluded("keep.log", false))
	require.False(t, set.Excluded("main.go", false))
}

func TestMissingGitignoreIsNotAnError(t *testing.T) {
	_, err := ingest.LoadIgnoreSet(t.TempDir())
	require.NoError(t, err)
}
