package validate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/preflight/internal/config"
	"github.com/Sumatoshi-tech/preflight/internal/dedup"
	"github.com/Sumatoshi-tech/preflight/internal/external"
	"github.com/Sumatoshi-tech/preflight/internal/fts"
	"github.com/Sumatoshi-tech/preflight/internal/manifest"
	"github.com/Sumatoshi-tech/preflight/internal/storage"
)

// unfixableReposEmpty is the guidance attached when repos/ holds no repo
// entries at all — Repair never re-fetches, so there is nothing to rescan.
const unfixableReposEmpty = "repos/ is empty: delete and recreate the bundle, or run update_bundle to add repos"

// RepairOptions parameterizes a Repair call (spec §4.K Repair).
type RepairOptions struct {
	Mode Mode

	// BundleRoot is the bundle's on-disk root (storage.Paths.Root).
	BundleRoot string

	// StorageRoot/BackupRoots/BundleID are needed to mirror repaired
	// artifacts to backups; BackupRoots may be empty.
	StorageRoot string
	BackupRoots []string
	BundleID    string

	GuideGenerator external.GuideGenerator
	Dedup          *dedup.Store
	Config         *config.Config
}

// Repair validates bundleRoot and, in ModeRepair, rebuilds missing or
// empty derived artifacts without ever re-fetching repos (spec §4.K).
func Repair(ctx context.Context, opts RepairOptions) (RepairResult, error) {
	before, err := Validate(opts.BundleRoot)
	if err != nil {
		return RepairResult{}, fmt.Errorf("validate before repair: %w", err)
	}

	reposEmpty, err := isReposEmpty(opts.BundleRoot)
	if err != nil {
		return RepairResult{}, fmt.Errorf("check repos/ emptiness: %w", err)
	}

	result := RepairResult{}

	if reposEmpty {
		result.UnfixableIssues = append(result.UnfixableIssues, unfixableReposEmpty)
	}

	if before.IsValid {
		result.Validated = true

		return result, nil
	}

	result.MissingComponents = before.MissingComponents

	if opts.Mode != ModeRepair {
		return result, nil
	}

	var repaired []string

	if hasMissing(before.MissingComponents, filepath.Join("indexes", "search.sqlite3")) && !reposEmpty {
		if err := rebuildIndex(opts.BundleRoot, defaultMaxFileBytes(opts.Config)); err != nil {
			return result, fmt.Errorf("rebuild index: %w", err)
		}

		repaired = append(repaired, "index")
	}

	guidesMissing := hasMissing(before.MissingComponents, "START_HERE.md") ||
		hasMissing(before.MissingComponents, "AGENTS.md")
	overviewMissing := hasMissing(before.MissingComponents, "OVERVIEW.md")

	if (guidesMissing || overviewMissing) && opts.GuideGenerator != nil {
		if err := regenerateGuides(ctx, opts, guidesMissing, overviewMissing); err != nil {
			return result, fmt.Errorf("regenerate guides: %w", err)
		}

		if guidesMissing {
			repaired = append(repaired, "guides")
		}

		if overviewMissing {
			repaired = append(repaired, "overview")
		}
	}

	result.Repaired = repaired

	if len(repaired) > 0 {
		warnings, err := finalizeRepair(opts)
		if err != nil {
			return result, fmt.Errorf("finalize repair: %w", err)
		}

		result.Warnings = warnings
	}

	after, err := Validate(opts.BundleRoot)
	if err != nil {
		return result, fmt.Errorf("validate after repair: %w", err)
	}

	result.Validated = after.IsValid
	result.MissingComponents = after.MissingComponents

	return result, nil
}

func hasMissing(missing []string, name string) bool {
	for _, m := range missing {
		if m == name {
			return true
		}
	}

	return false
}

func rebuildIndex(bundleRoot string, maxFileBytes int64) error {
	files, err := rescanNormFiles(bundleRoot, maxFileBytes)
	if err != nil {
		return err
	}

	dbPath := filepath.Join(bundleRoot, "indexes", "search.sqlite3")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return err
	}

	db, err := fts.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	return fts.Rebuild(db, files, fts.Options{Scope: fts.ScopeAll})
}

func regenerateGuides(ctx context.Context, opts RepairOptions, guidesMissing, overviewMissing bool) error {
	view, err := buildBundleView(opts.BundleRoot, opts.BundleID)
	if err != nil {
		return err
	}

	guides, err := opts.GuideGenerator.Generate(ctx, view)
	if err != nil {
		return err
	}

	if guidesMissing {
		if err := os.WriteFile(filepath.Join(opts.BundleRoot, "START_HERE.md"), []byte(guides.StartHere), 0o644); err != nil {
			return err
		}

		if err := os.WriteFile(filepath.Join(opts.BundleRoot, "AGENTS.md"), []byte(guides.Agents), 0o644); err != nil {
			return err
		}
	}

	if overviewMissing {
		if err := os.WriteFile(filepath.Join(opts.BundleRoot, "OVERVIEW.md"), []byte(guides.Overview), 0o644); err != nil {
			return err
		}
	}

	return nil
}

func buildBundleView(bundleRoot, bundleID string) (external.BundleView, error) {
	m, err := manifest.Load(filepath.Join(bundleRoot, "manifest.json"))
	if err != nil {
		return external.BundleView{BundleID: bundleID}, nil //nolint:nilerr
	}

	repos := make([]string, 0, len(m.Repos))
	for _, r := range m.Repos {
		repos = append(repos, r.ID)
	}

	fileCount := 0

	if files, err := rescanNormFiles(bundleRoot, 0); err == nil {
		fileCount = len(files)
	}

	return external.BundleView{
		BundleID:    bundleID,
		Repos:       repos,
		FileCount:   fileCount,
		PrimaryLang: m.PrimaryLang,
	}, nil
}

// finalizeRepair rewrites the manifest's updatedAt, refreshes the dedup
// index entry, and mirrors the repaired bundle to backup roots (spec
// §4.K: "After repair, rewrite manifest updatedAt, refresh dedup index
// entry, mirror to backups").
func finalizeRepair(opts RepairOptions) ([]string, error) {
	manifestPath := filepath.Join(opts.BundleRoot, "manifest.json")

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}

	m.Touch()

	if err := manifest.Save(manifestPath, m); err != nil {
		return nil, err
	}

	if opts.Dedup != nil {
		if err := opts.Dedup.MarkComplete(m.Fingerprint, opts.BundleID); err != nil {
			return nil, err
		}
	}

	var warnings []string

	if opts.StorageRoot != "" && len(opts.BackupRoots) > 0 {
		warnings = storage.Mirror(opts.StorageRoot, opts.BackupRoots, opts.BundleID)
	}

	return warnings, nil
}
