package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/preflight/internal/manifest"
)

func TestFingerprintIsOrderIndependent(t *testing.T) {
	repos := []manifest.RepoInput{
		{Kind: "github", Owner: "Foo", Repo: "Bar"},
		{Kind: "local", AbsolutePath: "/Home/User/Proj"},
	}
	reversed := []manifest.RepoInput{repos[1], repos[0]}

	fp1, err := manifest.Fingerprint(repos, []string{"React", "lodash"}, []string{"Web"})
	require.NoError(t, err)

	fp2, err := manifest.Fingerprint(reversed, []string{"lodash", "React"}, []string{"Web"})
	require.NoError(t, err)

	require.Equal(t, fp1, fp2)
}

func TestFingerprintIsCaseInsensitiveOnGitHubRepo(t *testing.T) {
	a := []manifest.RepoInput{{Kind: "github", Owner: "Foo", Repo: "Bar", Ref: "Main"}}
	b := []manifest.RepoInput{{Kind: "github", Owner: "foo", Repo: "bar", Ref: "main"}}

	fp1, err := manifest.Fingerprint(a, nil, nil)
	require.NoError(t, err)

	fp2, err := manifest.Fingerprint(b, nil, nil)
	require.NoError(t, err)

	require.Equal(t, fp1, fp2)
}

func TestFingerprintGitHubDefaultsRefToDefault(t *testing.T) {
	withRef := []manifest.RepoInput{{Kind: "github", Owner: "a", Repo: "b", Ref: "default"}}
	withoutRef := []manifest.RepoInput{{Kind: "github", Owner: "a", Repo: "b"}}

	fp1, err := manifest.Fingerprint(withRef, nil, nil)
	require.NoError(t, err)

	fp2, err := manifest.Fingerprint(withoutRef, nil, nil)
	require.NoError(t, err)

	require.Equal(t, fp1, fp2)
}

func TestFingerprintDiffersOnDifferentInputs(t *testing.T) {
	a := []manifest.RepoInput{{Kind: "github", Owner: "a", Repo: "b"}}
	b := []manifest.RepoInput{{Kind: "github", Owner: "a", Repo: "c"}}

	fp1, err := manifest.Fingerprint(a, nil, nil)
	require.NoError(t, err)

	fp2, err := manifest.Fingerprint(b, nil, nil)
	require.NoError(t, err)

	require.NotEqual(t, fp1, fp2)
}

func TestCanonicalizeRejectsUnknownKind(t *testing.T) {
	_, err := manifest.Canonicalize(manifest.RepoInput{Kind: "ftp"})
	require.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")

	m := manifest.New("bundle-1", "fp-1")
	m.Repos = append(m.Repos, manifest.RepoRecord{ID: "a/b", Kind: manifest.RepoKindGit})

	require.NoError(t, manifest.Save(path, m))

	loaded, err := manifest.Load(path)
	require.NoError(t, err)
	require.Equal(t, m.BundleID, loaded.BundleID)
	require.Equal(t, m.Fingerprint, loaded.Fingerprint)
	require.Len(t, loaded.Repos, 1)
}

func TestLoadMissingReturnsNotExist(t *testing.T) {
	_, err := manifest.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	require.True(t, os.IsNotExist(err))
}
