package bundlebuilder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/preflight/internal/bundleerrors"
	"github.com/Sumatoshi-tech/preflight/internal/external"
	"github.com/Sumatoshi-tech/preflight/internal/fts"
	"github.com/Sumatoshi-tech/preflight/internal/manifest"
	"github.com/Sumatoshi-tech/preflight/internal/observability"
	"github.com/Sumatoshi-tech/preflight/internal/progress"
	"github.com/Sumatoshi-tech/preflight/internal/storage"
)

// Update re-runs acquisition and normalization for bundleID's inputs,
// refreshing its search index incrementally (rather than rebuilding it) and
// regenerating its manifest and guides in place, per spec §4.H's
// updateBundle path. The bundle id and fingerprint are preserved. Logs and
// records RED metrics under the "bundle.update" operation name.
func (b *Builder) Update(ctx context.Context, bundleID string, req CreateRequest) (result Result, err error) {
	b.deps.Logger.Info("updating bundle", "bundleId", bundleID, "repos", len(req.Repos))

	err = observability.Observe(ctx, b.deps.Metrics, "bundle.update", func() error {
		result, err = b.update(ctx, bundleID, req)

		return err
	})
	if err != nil {
		b.deps.Logger.Error("bundle update failed", "bundleId", bundleID, "error", err)
	} else {
		b.deps.Logger.Info("bundle updated", "bundleId", result.BundleID, "taskId", result.TaskID)
	}

	return result, err
}

// update implements Update's pipeline; split out so Update can wrap it
// uniformly with logging and metrics, and so create can invoke it directly
// without double-recording the "bundle.update" metric inside "bundle.create".
func (b *Builder) update(ctx context.Context, bundleID string, req CreateRequest) (Result, error) {
	existingRoot, found := storage.FindBundle(b.deps.Config.StorageDirs, bundleID)
	if !found {
		return Result{}, bundleerrors.BundleNotFound(bundleID)
	}

	existing, err := manifest.Load(storage.GetPaths(existingRoot, bundleID).Manifest)
	if err != nil {
		return Result{}, bundleerrors.BundleCreationError(fmt.Errorf("load existing manifest: %w", err))
	}

	taskID := b.deps.Tracker.StartTask(existing.Fingerprint, repoDisplayIDs(req.Repos))

	finalize := func(failErr error) {
		if failErr != nil {
			b.deps.Tracker.FailTask(taskID, failErr.Error())
		}
	}

	tmpRoot := filepath.Join(b.deps.Config.TmpDir, "bundles-wip", bundleID+"-update")
	if err := os.RemoveAll(tmpRoot); err != nil {
		finalize(err)

		return Result{}, bundleerrors.BundleCreationError(err)
	}

	if err := os.MkdirAll(tmpRoot, 0o755); err != nil {
		cleanupErr := bundleerrors.BundleCreationError(fmt.Errorf("allocate tmp dir: %w", err))
		finalize(cleanupErr)

		return Result{}, cleanupErr
	}
	defer os.RemoveAll(tmpRoot)

	p := pipelineCtx{
		bundleID:    bundleID,
		fingerprint: existing.Fingerprint,
		taskID:      taskID,
		tmpRoot:     tmpRoot,
		root:        existingRoot,
		req:         req,
	}

	b.deps.Tracker.UpdateProgress(taskID, progress.PhaseIngesting, 10, "re-acquiring and normalizing repos", 0)

	acquired, ingested, skipped, warnings, err := b.acquireAndNormalize(ctx, p)
	if err != nil {
		updateErr := bundleerrors.BundleCreationError(err)
		finalize(updateErr)

		return Result{}, updateErr
	}

	b.deps.Tracker.UpdateProgress(taskID, progress.PhaseIndexing, 40, "updating search index", 0)

	existingDB := storage.GetPaths(existingRoot, bundleID).SearchDB

	tmpDBPath := filepath.Join(tmpRoot, "indexes", "search.sqlite3")
	if err := os.MkdirAll(filepath.Dir(tmpDBPath), 0o755); err != nil {
		updateErr := bundleerrors.BundleCreationError(err)
		finalize(updateErr)

		return Result{}, updateErr
	}

	if content, readErr := os.ReadFile(existingDB); readErr == nil {
		if err := os.WriteFile(tmpDBPath, content, 0o644); err != nil {
			updateErr := bundleerrors.BundleCreationError(err)
			finalize(updateErr)

			return Result{}, updateErr
		}
	}

	db, err := fts.Open(tmpDBPath)
	if err != nil {
		updateErr := bundleerrors.BundleCreationError(err)
		finalize(updateErr)

		return Result{}, updateErr
	}
	defer db.Close()

	sourceFiles, err := toSourceFiles(ingested)
	if err != nil {
		updateErr := bundleerrors.BundleCreationError(err)
		finalize(updateErr)

		return Result{}, updateErr
	}

	report, err := fts.IncrementalUpdate(db, sourceFiles, fts.Options{Scope: fts.ScopeAll})
	if err != nil {
		updateErr := bundleerrors.BundleCreationError(err)
		finalize(updateErr)

		return Result{}, updateErr
	}

	warnings = append(warnings, fmt.Sprintf(
		"index updated: %d added, %d updated, %d removed, %d unchanged",
		report.Added, report.Updated, report.Removed, report.Unchanged))

	b.deps.Tracker.UpdateProgress(taskID, progress.PhaseGenerating, 60, "refreshing tags and guides", 0)

	view := external.BundleView{BundleID: bundleID, Repos: repoRecordIDs(acquired), FileCount: len(ingested)}

	description, err := b.deps.Tagger.Describe(ctx, view)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("tagger failed: %v", err))
	}

	existing.Touch()
	existing.Repos = nil

	for _, a := range acquired {
		existing.Repos = append(existing.Repos, a.Record)
	}

	existing.Skipped = skipped

	if len(description.Tags) > 0 {
		existing.Tags = description.Tags
	}

	if description.DisplayName != "" {
		existing.DisplayName = description.DisplayName
	}

	if err := manifest.Save(filepath.Join(tmpRoot, "manifest.json"), existing); err != nil {
		updateErr := bundleerrors.BundleCreationError(err)
		finalize(updateErr)

		return Result{}, updateErr
	}

	guides, err := b.deps.Guides.Generate(ctx, view)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("guide generation failed: %v", err))
	}

	if err := writeGuides(tmpRoot, guides); err != nil {
		updateErr := bundleerrors.BundleCreationError(err)
		finalize(updateErr)

		return Result{}, updateErr
	}

	b.deps.Tracker.UpdateProgress(taskID, progress.PhaseFinalizing, 90, "validating completeness", 0)

	if missing := validateTmpCompleteness(tmpRoot); len(missing) > 0 {
		updateErr := bundleerrors.BundleValidationError(bundleID, missing)
		finalize(updateErr)

		return Result{}, updateErr
	}

	if err := swapInPlace(tmpRoot, existingRoot); err != nil {
		updateErr := bundleerrors.BundleCreationError(err)
		finalize(updateErr)

		return Result{}, updateErr
	}

	var backupRoots []string

	for _, r := range b.deps.Config.StorageDirs {
		if r != existingRoot {
			backupRoots = append(backupRoots, r)
		}
	}

	warnings = append(warnings, storage.Mirror(existingRoot, backupRoots, bundleID)...)

	b.deps.Tracker.CompleteTask(taskID, bundleID)

	return Result{BundleID: bundleID, TaskID: taskID, Manifest: existing, Warnings: warnings}, nil
}

// swapInPlace atomically replaces an existing bundle directory with a
// freshly built one: the old directory is moved aside, the new one takes
// its place, and the old one is removed only once the swap has succeeded.
func swapInPlace(tmpRoot, finalRoot string) error {
	backup := finalRoot + ".old"

	if err := os.RemoveAll(backup); err != nil {
		return err
	}

	if _, err := os.Stat(finalRoot); err == nil {
		if err := os.Rename(finalRoot, backup); err != nil {
			return err
		}
	}

	if err := publishAtomic(tmpRoot, finalRoot); err != nil {
		if _, statErr := os.Stat(backup); statErr == nil {
			_ = os.Rename(backup, finalRoot)
		}

		return err
	}

	return os.RemoveAll(backup)
}
