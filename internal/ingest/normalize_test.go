package ingest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/preflight/internal/ingest"
)

func writeRepoFile(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNormalizeBasicWalk(t *testing.T) {
	repo := t.TempDir()
	rawDir := t.TempDir()
	normDir := t.TempDir()

	writeRepoFile(t, repo, "main.go", "package main\n")
	writeRepoFile(t, repo, "README.md", "# hello\n")
	writeRepoFile(t, repo, "node_modules/dep/index.js", "ignored")

	result, err := ingest.Normalize(repo, rawDir, normDir, ingest.Options{MaxFileBytes: 1 << 20, MaxTotalBytes: 1 << 20})
	require.NoError(t, err)
	require.Len(t, result.Files, 2)
	require.Empty(t, result.Skipped)

	byPath := map[string]ingest.IngestedFile{}
	for _, f := range result.Files {
		byPath[f.RepoRelPath] = f
	}

	require.Equal(t, ingest.KindCode, byPath["main.go"].Kind)
	require.Equal(t, ingest.KindDoc, byPath["README.md"].Kind)
}

func TestNormalizeFilesAreSortedByPath(t *testing.T) {
	repo := t.TempDir()

	writeRepoFile(t, repo, "z.go", "package z\n")
	writeRepoFile(t, repo, "a.go", "package a\n")

	result, err := ingest.Normalize(repo, t.TempDir(), t.TempDir(), ingest.Options{MaxFileBytes: 1 << 20, MaxTotalBytes: 1 << 20})
	require.NoError(t, err)
	require.Len(t, result.Files, 2)
	require.Equal(t, "a.go", result.Files[0].RepoRelPath)
	require.Equal(t, "z.go", result.Files[1].RepoRelPath)
}

func TestNormalizeEnforcesPerFileCap(t *testing.T) {
	repo := t.TempDir()
	writeRepoFile(t, repo, "big.txt", "0123456789")

	result, err := ingest.Normalize(repo, t.TempDir(), t.TempDir(), ingest.Options{MaxFileBytes: 5, MaxTotalBytes: 1 << 20})
	require.NoError(t, err)
	require.Empty(t, result.Files)
	require.Len(t, result.Skipped, 1)
	require.Equal(t, ingest.ReasonTooLarge, result.Skipped[0].Reason)
}

func TestNormalizeEnforcesTotalCapGreedily(t *testing.T) {
	repo := t.TempDir()
	writeRepoFile(t, repo, "a.txt", "01234")
	writeRepoFile(t, repo, "b.txt", "56789")
	writeRepoFile(t, repo, "c.txt", "abcde")

	result, err := ingest.Normalize(repo, t.TempDir(), t.TempDir(), ingest.Options{MaxFileBytes: 1 << 20, MaxTotalBytes: 8})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	require.Equal(t, "a.txt", result.Files[0].RepoRelPath)

	for _, s := range result.Skipped {
		require.Equal(t, ingest.ReasonTotalCapReached, s.Reason)
	}
	require.Len(t, result.Skipped, 2)
}

func TestNormalizeSkipsInvalidUTF8(t *testing.T) {
	repo := t.TempDir()
	path := filepath.Join(repo, "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xfe, 0x00}, 0o644))

	result, err := ingest.Normalize(repo, t.TempDir(), t.TempDir(), ingest.Options{MaxFileBytes: 1 << 20, MaxTotalBytes: 1 << 20})
	require.NoError(t, err)
	require.Empty(t, result.Files)
	require.Len(t, result.Skipped, 1)
	require.Equal(t, ingest.ReasonUnreadableUTF8, result.Skipped[0].Reason)
}

func TestNormalizeConvertsCRLFToLF(t *testing.T) {
	repo := t.TempDir()
	rawDir := t.TempDir()
	normDir := t.TempDir()

	writeRepoFile(t, repo, "win.txt", "line1\r\nline2\r\n")

	_, err := ingest.Normalize(repo, rawDir, normDir, ingest.Options{MaxFileBytes: 1 << 20, MaxTotalBytes: 1 << 20})
	require.NoError(t, err)

	normalized, err := os.ReadFile(filepath.Join(normDir, "win.txt"))
	require.NoError(t, err)
	require.Equal(t, "line1\nline2\n", string(normalized))

	raw, err := os.ReadFile(filepath.Join(rawDir, "win.txt"))
	require.NoError(t, err)
	require.Equal(t, "line1\r\nline2\r\n", string(raw))
}
