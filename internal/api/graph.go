package api

import (
	"github.com/Sumatoshi-tech/preflight/internal/bundleerrors"
	"github.com/Sumatoshi-tech/preflight/internal/config"
	"github.com/Sumatoshi-tech/preflight/internal/depgraph"
	"github.com/Sumatoshi-tech/preflight/internal/fts"
	"github.com/Sumatoshi-tech/preflight/internal/storage"
)

// DependencyGraph generates or re-generates bundleID's dependency graph,
// in target mode when opts.TargetFile is set and global mode otherwise
// (spec §6 `dependency_graph`, spec §4.I).
func (e *Env) DependencyGraph(bundleID string, opts depgraph.Options) (depgraph.Result, error) {
	root, err := e.bundleRoot(bundleID)
	if err != nil {
		return depgraph.Result{}, err
	}

	if opts.Budgets == (config.GraphBudgets{}) {
		opts.Budgets = e.Config.GraphDefaultBudgets
	}

	if opts.MaxFileSizeBytes == 0 {
		opts.MaxFileSizeBytes = e.Config.MaxFileBytes
	}

	opts.UseExactImports = e.Config.UsesExactImportExtraction()

	if opts.TargetFile == "" {
		return depgraph.GenerateGlobal(root, bundleID, opts)
	}

	db, err := fts.Open(storage.GetPaths(root, bundleID).SearchDB)
	if err != nil {
		return depgraph.Result{}, bundleerrors.IndexCorrupt(bundleID, err)
	}
	defer db.Close()

	return depgraph.GenerateTarget(root, bundleID, db, opts)
}
