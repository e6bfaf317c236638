package api

import (
	"context"

	"github.com/Sumatoshi-tech/preflight/internal/storage"
	"github.com/Sumatoshi-tech/preflight/internal/validate"
)

// RepairBundle runs the completeness Validator, and when mode is
// ModeRepair, rebuilds what it can without re-fetching any repo (spec §6
// `repair_bundle`, spec §4.K).
func (e *Env) RepairBundle(ctx context.Context, bundleID string, mode validate.Mode) (validate.RepairResult, error) {
	root, err := e.bundleRoot(bundleID)
	if err != nil {
		return validate.RepairResult{}, err
	}

	writeRoot, found := storage.FindBundle(e.Config.StorageDirs, bundleID)
	if !found {
		return validate.RepairResult{}, notFound(bundleID)
	}

	var backupRoots []string

	for _, r := range e.Config.StorageDirs {
		if r != writeRoot {
			backupRoots = append(backupRoots, r)
		}
	}

	return validate.Repair(ctx, validate.RepairOptions{
		Mode:           mode,
		BundleRoot:     root,
		StorageRoot:    writeRoot,
		BackupRoots:    backupRoots,
		BundleID:       bundleID,
		GuideGenerator: e.Guides,
		Dedup:          e.Dedup,
		Config:         e.Config,
	})
}

// ValidateReport validates claims against a bundle's on-disk evidence
// (spec §6 `validate_report`, spec §4.K's Claim validator).
func (e *Env) ValidateReport(bundleID string, claims []validate.Claim) (validate.ClaimReport, error) {
	root, err := e.bundleRoot(bundleID)
	if err != nil {
		return validate.ClaimReport{}, err
	}

	return validate.ValidateClaims(root, claims), nil
}
