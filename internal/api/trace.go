package api

import (
	"os"

	"github.com/Sumatoshi-tech/preflight/internal/bundleerrors"
	"github.com/Sumatoshi-tech/preflight/internal/storage"
	"github.com/Sumatoshi-tech/preflight/internal/trace"
)

// TraceUpsert writes edges into bundleID's trace store, exporting a fresh
// trace.json snapshot on success (spec §6 `trace_upsert`, spec §4.J).
func (e *Env) TraceUpsert(bundleID string, edges []trace.Edge, opts trace.UpsertOptions) (trace.UpsertResult, error) {
	root, err := e.bundleRoot(bundleID)
	if err != nil {
		return trace.UpsertResult{}, err
	}

	paths := storage.GetPaths(root, bundleID)

	db, err := trace.Open(paths.TraceDB)
	if err != nil {
		return trace.UpsertResult{}, bundleerrors.OperationFailed("open trace store", err)
	}
	defer db.Close()

	result, err := trace.Upsert(db, paths.TraceDB, edges, opts)
	if err != nil {
		return trace.UpsertResult{}, bundleerrors.OperationFailed("upsert trace edges", err)
	}

	if !opts.DryRun && result.Upserted > 0 {
		if _, exportErr := trace.ExportJSON(db, paths.TraceJSON); exportErr != nil {
			result.Warnings = append(result.Warnings, "trace.json export failed: "+exportErr.Error())
		}
	}

	return result, nil
}

// TraceQuery filters bundleID's trace edges, classifying an empty result
// as `not_initialized` when the trace store has never been written, and
// otherwise deferring to trace.Query's no_edges/no_matching_edges
// classification (spec §6 `trace_query`, spec §4.J).
func (e *Env) TraceQuery(bundleID string, filters trace.QueryFilters) (trace.QueryResult, error) {
	root, err := e.bundleRoot(bundleID)
	if err != nil {
		return trace.QueryResult{}, err
	}

	paths := storage.GetPaths(root, bundleID)

	if _, statErr := os.Stat(paths.TraceDB); statErr != nil {
		return trace.QueryResult{
			Reason: "not_initialized",
			NextSteps: []string{
				"run trace_upsert or trace_suggest to populate the trace store",
			},
		}, nil
	}

	db, err := trace.Open(paths.TraceDB)
	if err != nil {
		return trace.QueryResult{}, bundleerrors.OperationFailed("open trace store", err)
	}
	defer db.Close()

	result, err := trace.Query(db, filters)
	if err != nil {
		return trace.QueryResult{}, bundleerrors.OperationFailed("query trace edges", err)
	}

	return result, nil
}

// TraceSuggest proposes candidate edges from naming conventions and
// existing norm/ files (spec §6 `trace_suggest`, spec §4.J).
func (e *Env) TraceSuggest(bundleID string, opts trace.SuggestOptions) (trace.SuggestResult, error) {
	root, err := e.bundleRoot(bundleID)
	if err != nil {
		return trace.SuggestResult{}, err
	}

	paths := storage.GetPaths(root, bundleID)

	db, err := trace.Open(paths.TraceDB)
	if err != nil {
		return trace.SuggestResult{}, bundleerrors.OperationFailed("open trace store", err)
	}
	defer db.Close()

	result, err := trace.Suggest(db, root, opts)
	if err != nil {
		return trace.SuggestResult{}, bundleerrors.OperationFailed("suggest trace edges", err)
	}

	return result, nil
}

// TraceExport writes bundleID's current trace edges to trace.json and
// returns the edge count (spec §6 `trace_export`).
func (e *Env) TraceExport(bundleID string) (int, error) {
	root, err := e.bundleRoot(bundleID)
	if err != nil {
		return 0, err
	}

	paths := storage.GetPaths(root, bundleID)

	db, err := trace.Open(paths.TraceDB)
	if err != nil {
		return 0, bundleerrors.OperationFailed("open trace store", err)
	}
	defer db.Close()

	n, err := trace.ExportJSON(db, paths.TraceJSON)
	if err != nil {
		return 0, bundleerrors.OperationFailed("export trace.json", err)
	}

	return n, nil
}
