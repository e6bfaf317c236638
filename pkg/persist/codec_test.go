package persist_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/preflight/pkg/persist"
)

type fixture struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestJSONCodecRoundTrip(t *testing.T) {
	dir := t.TempDir()
	codec := persist.NewJSONCodec()

	in := &fixture{Name: "alpha", Count: 3}
	require.NoError(t, persist.SaveState(dir, "state", codec, in))

	var out fixture
	require.NoError(t, persist.LoadState(dir, "state", codec, &out))
	require.Equal(t, *in, out)
}

func TestSaveAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dedup.json")
	codec := persist.NewJSONCodec()

	require.NoError(t, persist.SaveAtomic(path, codec, &fixture{Name: "beta", Count: 1}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "dedup.json", entries[0].Name())

	var out fixture
	require.NoError(t, persist.LoadFile(path, codec, &out))
	require.Equal(t, "beta", out.Name)
}

func TestLoadFileMissingReturnsNotExist(t *testing.T) {
	dir := t.TempDir()
	var out fixture
	err := persist.LoadFile(filepath.Join(dir, "missing.json"), persist.NewJSONCodec(), &out)
	require.Error(t, err)
	require.True(t, os.IsNotExist(err))
}
