package api_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/preflight/internal/api"
	"github.com/Sumatoshi-tech/preflight/internal/bundleerrors"
	"github.com/Sumatoshi-tech/preflight/internal/config"
	"github.com/Sumatoshi-tech/preflight/internal/manifest"
	"github.com/Sumatoshi-tech/preflight/internal/storage"
	"github.com/Sumatoshi-tech/preflight/internal/trace"
)

func testConfig(t *testing.T, storageDirs ...string) *config.Config {
	t.Helper()

	if len(storageDirs) == 0 {
		storageDirs = []string{filepath.Join(t.TempDir(), "store")}
	}

	return &config.Config{
		StorageDirs:         storageDirs,
		TmpDir:              t.TempDir(),
		MaxFileBytes:        1 << 20,
		MaxTotalBytes:       1 << 30,
		GitCloneTimeoutMs:   1000,
		BundleCreationLimit: 2,
		GraphDefaultBudgets: config.GraphBudgets{MaxFiles: 100, MaxNodes: 100, MaxEdges: 100, TimeBudgetMs: 1000},
	}
}

// writeFakeBundle creates just enough of a bundle's on-disk shape
// (manifest.json at the expected path) for storage.FindBundle/ListBundles
// to see it, without running the full builder pipeline.
func writeFakeBundle(t *testing.T, root, bundleID string) {
	t.Helper()

	paths := storage.GetPaths(root, bundleID)
	require.NoError(t, os.MkdirAll(filepath.Dir(paths.Manifest), 0o755))

	m := manifest.New(bundleID, "fp-"+bundleID)
	require.NoError(t, manifest.Save(paths.Manifest, m))
}

func TestCreateBundleRejectsEmptyRepos(t *testing.T) {
	env, err := api.New(testConfig(t))
	require.NoError(t, err)

	_, err = env.CreateBundle(context.Background(), api.CreateBundleRequest{})
	require.Error(t, err)
	require.Equal(t, bundleerrors.CodeBundleValidationError, bundleerrors.CodeOf(err))
}

func TestListBundlesDedupesAcrossStorageRoots(t *testing.T) {
	rootA := filepath.Join(t.TempDir(), "a")
	rootB := filepath.Join(t.TempDir(), "b")

	env, err := api.New(testConfig(t, rootA, rootB))
	require.NoError(t, err)

	writeFakeBundle(t, rootA, "bundle-1")
	writeFakeBundle(t, rootB, "bundle-1")
	writeFakeBundle(t, rootB, "bundle-2")

	ids, err := env.ListBundles()
	require.NoError(t, err)
	require.Equal(t, []string{"bundle-1", "bundle-2"}, ids)
}

func TestDeleteBundleReturnsFalseWhenUnknown(t *testing.T) {
	env, err := api.New(testConfig(t))
	require.NoError(t, err)

	deleted, err := env.DeleteBundle("does-not-exist")
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestDeleteBundleRemovesKnownBundle(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")
	env, err := api.New(testConfig(t, root))
	require.NoError(t, err)

	writeFakeBundle(t, root, "bundle-1")

	deleted, err := env.DeleteBundle("bundle-1")
	require.NoError(t, err)
	require.True(t, deleted)

	_, found := storage.FindBundle([]string{root}, "bundle-1")
	require.False(t, found)
}

func TestTraceQueryReportsNotInitialized(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")
	env, err := api.New(testConfig(t, root))
	require.NoError(t, err)

	writeFakeBundle(t, root, "bundle-1")

	result, err := env.TraceQuery("bundle-1", trace.QueryFilters{})
	require.NoError(t, err)
	require.Equal(t, "not_initialized", result.Reason)
	require.Empty(t, result.Edges)
}

func TestGetTaskStatusUnknownID(t *testing.T) {
	env, err := api.New(testConfig(t))
	require.NoError(t, err)

	_, err = env.GetTaskStatus("no-such-task")
	require.Error(t, err)
}
