package config_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/preflight/internal/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, cfg.StorageDirs)
	require.Equal(t, int64(config.DefaultMaxFileBytes), cfg.MaxFileBytes)
	require.True(t, cfg.UsesExactImportExtraction())
}

func TestValidateRejectsEmptyStorageDirs(t *testing.T) {
	cfg := &config.Config{
		MaxFileBytes:        1,
		MaxTotalBytes:       1,
		GitCloneTimeoutMs:   1,
		BundleCreationLimit: 1,
		GraphDefaultBudgets: config.GraphBudgets{MaxFiles: 1, MaxNodes: 1, MaxEdges: 1, TimeBudgetMs: 1},
	}
	require.ErrorIs(t, cfg.Validate(), config.ErrNoStorageDirs)
}

func TestValidateRejectsMaxTotalBelowMaxFile(t *testing.T) {
	cfg := &config.Config{
		StorageDirs:         []string{"/tmp"},
		MaxFileBytes:        100,
		MaxTotalBytes:       10,
		GitCloneTimeoutMs:   1,
		BundleCreationLimit: 1,
		GraphDefaultBudgets: config.GraphBudgets{MaxFiles: 1, MaxNodes: 1, MaxEdges: 1, TimeBudgetMs: 1},
	}
	require.ErrorIs(t, cfg.Validate(), config.ErrInvalidMaxTotal)
}
