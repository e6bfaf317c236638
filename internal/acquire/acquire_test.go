package acquire_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/preflight/internal/acquire"
	"github.com/Sumatoshi-tech/preflight/internal/bundleerrors"
	"github.com/Sumatoshi-tech/preflight/internal/external"
	"github.com/Sumatoshi-tech/preflight/internal/manifest"
)

func TestGitHubFallsBackToArchiveOnCloneFailure(t *testing.T) {
	dir := t.TempDir()

	fetcherCalled := false

	acquired, err := acquire.GitHub(context.Background(), acquire.GitHubRequest{
		Owner:        "nonexistent-owner-xyz",
		Repo:         "nonexistent-repo-xyz",
		CloneDir:     dir,
		CloneTimeout: 50 * time.Millisecond,
		ArchiveFetcher: func(_ context.Context, owner, repo, ref, dstDir string) (string, error) {
			fetcherCalled = true
			require.NoError(t, os.WriteFile(filepath.Join(dstDir, "marker.txt"), []byte("x"), 0o644))

			return "main", nil
		},
	})
	require.NoError(t, err)
	require.True(t, fetcherCalled)
	require.Equal(t, manifest.RepoKindArchive, acquired.Record.Kind)
	require.NotEmpty(t, acquired.Warnings)
}

func TestGitHubReturnsErrorWhenNoFallbackConfigured(t *testing.T) {
	dir := t.TempDir()

	_, err := acquire.GitHub(context.Background(), acquire.GitHubRequest{
		Owner:        "nonexistent-owner-xyz",
		Repo:         "nonexistent-repo-xyz",
		CloneDir:     dir,
		CloneTimeout: 50 * time.Millisecond,
	})
	require.Error(t, err)
	require.Equal(t, bundleerrors.CodeGitHubError, bundleerrors.CodeOf(err))
}

func TestLocalResolvesDirectory(t *testing.T) {
	dir := t.TempDir()

	acquired, err := acquire.Local(acquire.LocalRequest{RepoID: "local/proj", AbsolutePath: dir})
	require.NoError(t, err)
	require.Equal(t, dir, acquired.RepoRoot)
	require.Equal(t, manifest.RepoKindLocal, acquired.Record.Kind)
}

func TestLocalRejectsNonDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := acquire.Local(acquire.LocalRequest{RepoID: "x", AbsolutePath: file})
	require.Error(t, err)
}

func TestWebUsesCrawlerOutput(t *testing.T) {
	crawler := external.StaticWebCrawler{Site: external.CrawledSite{ContentHash: "hash-1"}}

	acquired, err := acquire.Web(context.Background(), acquire.WebRequest{
		URL: "https://example.com", Crawler: crawler, OutputDir: t.TempDir(),
	})
	require.NoError(t, err)
	require.Equal(t, "hash-1", acquired.Record.ContentHash)
	require.Equal(t, manifest.RepoKindCrawl, acquired.Record.Kind)
}

func TestWebRequiresCrawler(t *testing.T) {
	_, err := acquire.Web(context.Background(), acquire.WebRequest{URL: "https://example.com"})
	require.Error(t, err)
	require.Equal(t, bundleerrors.CodeCrawlError, bundleerrors.CodeOf(err))
}
