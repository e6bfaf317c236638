package bundlebuilder_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/preflight/internal/bundlebuilder"
	"github.com/Sumatoshi-tech/preflight/internal/config"
	"github.com/Sumatoshi-tech/preflight/internal/dedup"
	"github.com/Sumatoshi-tech/preflight/internal/manifest"
	"github.com/Sumatoshi-tech/preflight/internal/progress"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		StorageDirs:         []string{filepath.Join(t.TempDir(), "store")},
		TmpDir:              t.TempDir(),
		MaxFileBytes:        1 << 20,
		MaxTotalBytes:       1 << 30,
		GitCloneTimeoutMs:   1000,
		BundleCreationLimit: 2,
		GraphDefaultBudgets: config.GraphBudgets{MaxFiles: 100, MaxNodes: 100, MaxEdges: 100, TimeBudgetMs: 1000},
	}
}

func newBuilder(t *testing.T) (*bundlebuilder.Builder, *dedup.Store) {
	t.Helper()

	cfg := testConfig(t)
	store := dedup.NewStore(cfg.StorageDirs[0], func(string) bool { return true })

	b := bundlebuilder.New(bundlebuilder.Deps{
		Config:  cfg,
		Dedup:   store,
		Tracker: progress.NewTracker(),
	})

	return b, store
}

func writeSourceRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Demo\n\nHello world.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644))

	return dir
}

func TestCreatePublishesCompleteBundle(t *testing.T) {
	b, _ := newBuilder(t)

	repoDir := writeSourceRepo(t)

	req := bundlebuilder.CreateRequest{
		Repos: []manifest.RepoInput{
			{Kind: "local", RepoID: "demo/proj", AbsolutePath: repoDir},
		},
		Type: manifest.BundleTypeRepo,
	}

	result, err := b.Create(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, result.BundleID)
	require.Len(t, result.Manifest.Repos, 1)
	require.Equal(t, manifest.RepoKindLocal, result.Manifest.Repos[0].Kind)
}

func TestCreateIsIdempotentOnFingerprint(t *testing.T) {
	b, _ := newBuilder(t)

	repoDir := writeSourceRepo(t)

	req := bundlebuilder.CreateRequest{
		Repos: []manifest.RepoInput{
			{Kind: "local", RepoID: "demo/proj", AbsolutePath: repoDir},
		},
	}

	first, err := b.Create(context.Background(), req)
	require.NoError(t, err)

	second, err := b.Create(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, first.BundleID, second.BundleID)
}

func TestCreateWithIfExistsErrorRejectsDuplicate(t *testing.T) {
	b, _ := newBuilder(t)

	repoDir := writeSourceRepo(t)

	req := bundlebuilder.CreateRequest{
		Repos: []manifest.RepoInput{
			{Kind: "local", RepoID: "demo/proj", AbsolutePath: repoDir},
		},
	}

	_, err := b.Create(context.Background(), req)
	require.NoError(t, err)

	req.IfExists = bundlebuilder.IfExistsError
	_, err = b.Create(context.Background(), req)
	require.Error(t, err)
}

func TestCreateRejectsUnknownRepoKind(t *testing.T) {
	b, _ := newBuilder(t)

	req := bundlebuilder.CreateRequest{
		Repos: []manifest.RepoInput{{Kind: "carrier-pigeon"}},
	}

	_, err := b.Create(context.Background(), req)
	require.Error(t, err)
}

func TestUpdateRefreshesManifestAndKeepsBundleID(t *testing.T) {
	b, _ := newBuilder(t)

	repoDir := writeSourceRepo(t)

	req := bundlebuilder.CreateRequest{
		Repos: []manifest.RepoInput{
			{Kind: "local", RepoID: "demo/proj", AbsolutePath: repoDir},
		},
	}

	created, err := b.Create(context.Background(), req)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "NEWFILE.md"), []byte("# New\n"), 0o644))

	updated, err := b.Update(context.Background(), created.BundleID, req)
	require.NoError(t, err)
	require.Equal(t, created.BundleID, updated.BundleID)
	require.Equal(t, created.Manifest.Fingerprint, updated.Manifest.Fingerprint)
	require.True(t, updated.Manifest.UpdatedAt.After(created.Manifest.CreatedAt) ||
		updated.Manifest.UpdatedAt.Equal(created.Manifest.CreatedAt))
}

func TestUpdateUnknownBundleReturnsNotFound(t *testing.T) {
	b, _ := newBuilder(t)

	_, err := b.Update(context.Background(), "does-not-exist", bundlebuilder.CreateRequest{})
	require.Error(t, err)
}
