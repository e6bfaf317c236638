package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/preflight/internal/bundleerrors"
	"github.com/Sumatoshi-tech/preflight/internal/storage"
)

func TestFindBundleStopsOnFirstHit(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()

	bundleID := "b-1"

	require.NoError(t, os.MkdirAll(storage.GetPaths(rootB, bundleID).Root, 0o755))

	root, ok := storage.FindBundle([]string{rootA, rootB}, bundleID)
	require.True(t, ok)
	require.Equal(t, rootB, root)
}

func TestFindBundleNotFound(t *testing.T) {
	rootA := t.TempDir()

	_, ok := storage.FindBundle([]string{rootA}, "missing")
	require.False(t, ok)
}

func TestEffectiveWriteRootPicksFirstWritable(t *testing.T) {
	root := t.TempDir()

	got, err := storage.EffectiveWriteRoot([]string{root})
	require.NoError(t, err)
	require.Equal(t, root, got)
}

func TestEffectiveWriteRootNoneAvailable(t *testing.T) {
	_, err := storage.EffectiveWriteRoot(nil)
	require.Error(t, err)
	require.Equal(t, bundleerrors.CodeStorageUnavailable, bundleerrors.CodeOf(err))
}

func TestListBundlesEmptyWhenMissing(t *testing.T) {
	root := t.TempDir()

	ids, err := storage.ListBundles(root)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestListBundlesReturnsDirNames(t *testing.T) {
	root := t.TempDir()

	require.NoError(t, os.MkdirAll(storage.GetPaths(root, "b-1").Root, 0o755))
	require.NoError(t, os.MkdirAll(storage.GetPaths(root, "b-2").Root, 0o755))

	ids, err := storage.ListBundles(root)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"b-1", "b-2"}, ids)
}

func TestMirrorCopiesFilesToBackups(t *testing.T) {
	primary := t.TempDir()
	backup := t.TempDir()

	bundleID := "b-1"

	paths := storage.GetPaths(primary, bundleID)
	require.NoError(t, os.MkdirAll(filepath.Dir(paths.Manifest), 0o755))
	require.NoError(t, os.WriteFile(paths.Manifest, []byte(`{"version":1}`), 0o644))

	warnings := storage.Mirror(primary, []string{backup}, bundleID)
	require.Empty(t, warnings)

	mirrored := storage.GetPaths(backup, bundleID).Manifest
	content, err := os.ReadFile(mirrored)
	require.NoError(t, err)
	require.Equal(t, `{"version":1}`, string(content))
}

func TestMirrorReportsWarningOnFailure(t *testing.T) {
	primary := t.TempDir()

	bundleID := "b-1"
	paths := storage.GetPaths(primary, bundleID)
	require.NoError(t, os.MkdirAll(filepath.Dir(paths.Manifest), 0o755))
	require.NoError(t, os.WriteFile(paths.Manifest, []byte(`{}`), 0o644))

	// A backup root that is itself a regular file cannot be mkdir'd into.
	badBackupParent := t.TempDir()
	badBackup := filepath.Join(badBackupParent, "not-a-dir")
	require.NoError(t, os.WriteFile(badBackup, []byte("x"), 0o644))

	warnings := storage.Mirror(primary, []string{badBackup}, bundleID)
	require.NotEmpty(t, warnings)
}
