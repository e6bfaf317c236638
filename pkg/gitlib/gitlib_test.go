package gitlib_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/preflight/pkg/gitlib"
)

func TestHashZeroValue(t *testing.T) {
	require.True(t, gitlib.ZeroHash().IsZero())
}

func TestHashString(t *testing.T) {
	var h gitlib.Hash
	for i := range h {
		h[i] = byte(i)
	}

	require.Len(t, h.String(), gitlib.HashHexSize)
}

func initSourceRepo(t *testing.T) string {
	t.Helper()

	srcDir := t.TempDir()

	repo, err := git2go.InitRepository(srcDir, false)
	require.NoError(t, err)
	defer repo.Free()

	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "README.md"), []byte("# hello\n"), 0o644))

	idx, err := repo.Index()
	require.NoError(t, err)
	require.NoError(t, idx.AddByPath("README.md"))
	require.NoError(t, idx.Write())

	treeID, err := idx.WriteTree()
	require.NoError(t, err)

	tree, err := repo.LookupTree(treeID)
	require.NoError(t, err)
	defer tree.Free()

	sig := &git2go.Signature{Name: "test", Email: "test@example.com", When: time.Now()}
	_, err = repo.CreateCommit("HEAD", sig, sig, "initial", tree)
	require.NoError(t, err)

	return srcDir
}

func TestCloneLocalRepository(t *testing.T) {
	src := initSourceRepo(t)
	dst := filepath.Join(t.TempDir(), "clone")

	repo, err := gitlib.Clone(context.Background(), src, dst, gitlib.CloneOptions{Timeout: 30 * time.Second})
	require.NoError(t, err)
	defer repo.Free()

	head, err := repo.Head()
	require.NoError(t, err)
	require.False(t, head.IsZero())
}

func TestCloneRespectsTimeout(t *testing.T) {
	src := initSourceRepo(t)
	dst := filepath.Join(t.TempDir(), "clone-timeout")

	_, err := gitlib.Clone(context.Background(), src, dst, gitlib.CloneOptions{Timeout: time.Nanosecond})
	require.Error(t, err)
}
