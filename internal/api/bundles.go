package api

import (
	"context"
	"fmt"
	"sort"

	"github.com/Sumatoshi-tech/preflight/internal/bundlebuilder"
	"github.com/Sumatoshi-tech/preflight/internal/bundleerrors"
	"github.com/Sumatoshi-tech/preflight/internal/manifest"
	"github.com/Sumatoshi-tech/preflight/internal/storage"
)

// ListBundles enumerates every bundle id visible across all configured
// storage roots (spec §6 `list_bundles(dir) → string[]`), deduplicated and
// sorted for deterministic output regardless of which root holds the
// primary vs. a mirrored copy.
func (e *Env) ListBundles() ([]string, error) {
	seen := map[string]bool{}

	for _, root := range e.Config.StorageDirs {
		ids, err := storage.ListBundles(root)
		if err != nil {
			return nil, fmt.Errorf("list bundles under %s: %w", root, err)
		}

		for _, id := range ids {
			seen[id] = true
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}

	sort.Strings(out)

	return out, nil
}

// CreateBundleRequest is create_bundle's input (spec §6).
type CreateBundleRequest struct {
	Repos           []manifest.RepoInput   `json:"repos"`
	Libraries       []string               `json:"libraries,omitempty"`
	Topics          []string               `json:"topics,omitempty"`
	IfExists        bundlebuilder.IfExists `json:"ifExists,omitempty"`
	Type            manifest.BundleType    `json:"type,omitempty"`
	DisplayNameHint string                 `json:"displayNameHint,omitempty"`
}

// BundleSummary is create_bundle/update_bundle's return shape (spec §3.N).
type BundleSummary struct {
	BundleID      string   `json:"bundleId"`
	Fingerprint   string   `json:"fingerprint"`
	CreatedAt     string   `json:"createdAt"`
	UpdatedAt     string   `json:"updatedAt"`
	RepoCount     int      `json:"repoCount"`
	FileCount     int      `json:"fileCount"`
	SkippedCount  int      `json:"skippedCount"`
	Warnings      []string `json:"warnings,omitempty"`
}

// CreateBundle validates req against its JSON schema and runs the Bundle
// Builder's full creation pipeline (spec §6 `create_bundle`).
func (e *Env) CreateBundle(ctx context.Context, req CreateBundleRequest) (BundleSummary, error) {
	if err := validateAgainstSchema(createBundleSchema, req); err != nil {
		return BundleSummary{}, err
	}

	result, err := e.Builder.Create(ctx, bundlebuilder.CreateRequest{
		Repos:           req.Repos,
		Libraries:       req.Libraries,
		Topics:          req.Topics,
		IfExists:        req.IfExists,
		Type:            req.Type,
		DisplayNameHint: req.DisplayNameHint,
	})
	if err != nil {
		return BundleSummary{}, err
	}

	return e.summarize(result), nil
}

// UpdateBundleResult is update_bundle's return shape.
type UpdateBundleResult struct {
	Summary BundleSummary `json:"summary"`
	Changed bool          `json:"changed"`
}

// UpdateBundle re-runs acquisition/normalization for bundleID (spec §6
// `update_bundle`).
func (e *Env) UpdateBundle(ctx context.Context, bundleID string, req CreateBundleRequest) (UpdateBundleResult, error) {
	result, err := e.Builder.Update(ctx, bundleID, bundlebuilder.CreateRequest{
		Repos:           req.Repos,
		Libraries:       req.Libraries,
		Topics:          req.Topics,
		IfExists:        req.IfExists,
		Type:            req.Type,
		DisplayNameHint: req.DisplayNameHint,
	})
	if err != nil {
		return UpdateBundleResult{}, err
	}

	return UpdateBundleResult{Summary: e.summarize(result), Changed: true}, nil
}

// DeleteBundle removes bundleID's directory from every storage root it is
// found in (spec §6 `delete_bundle`). Returns false if the bundle wasn't
// found anywhere.
func (e *Env) DeleteBundle(bundleID string) (bool, error) {
	deleted := false

	for _, root := range e.Config.StorageDirs {
		bundleRoot := storage.GetPaths(root, bundleID).Root

		if _, found := storage.FindBundle([]string{root}, bundleID); !found {
			continue
		}

		if err := removeAll(bundleRoot); err != nil {
			return deleted, bundleerrors.OperationFailed(fmt.Sprintf("delete bundle from %s", root), err)
		}

		deleted = true
	}

	return deleted, nil
}

func (e *Env) summarize(result bundlebuilder.Result) BundleSummary {
	if result.Manifest == nil {
		return BundleSummary{BundleID: result.BundleID, Warnings: result.Warnings}
	}

	m := result.Manifest

	fileCount := 0

	if root, err := e.bundleRoot(result.BundleID); err == nil {
		fileCount, _ = countNormFiles(root)
	}

	return BundleSummary{
		BundleID:     result.BundleID,
		Fingerprint:  m.Fingerprint,
		CreatedAt:    m.CreatedAt.Format(rfc3339),
		UpdatedAt:    m.UpdatedAt.Format(rfc3339),
		RepoCount:    len(m.Repos),
		FileCount:    fileCount,
		SkippedCount: len(m.Skipped),
		Warnings:     result.Warnings,
	}
}

const rfc3339 = "2006-01-02T15:04:05Z07:00"
