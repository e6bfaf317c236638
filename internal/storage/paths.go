// Package storage maintains the ordered list of storage roots (primary +
// backups) and the fixed on-disk path layout for a bundle, following
// codefang's path-layout conventions and the registry-style storage path
// builder pattern.
package storage

import "path/filepath"

// Paths is the fixed layout of files and directories under a single
// bundle's root, as specified in spec §4.A / §6.
type Paths struct {
	Root string

	Manifest    string
	StartHere   string
	Agents      string
	Overview    string
	SearchDB    string
	ReposDir    string
	AnalysisDir string
	FactsJSON   string
	DepsCache   string
	TraceDB     string
	TraceJSON   string
	CardsDir    string
}

// GetPaths computes the fixed layout for bundleID under root.
func GetPaths(root, bundleID string) Paths {
	base := filepath.Join(root, "bundles", bundleID)

	return Paths{
		Root: base,

		Manifest:  filepath.Join(base, "manifest.json"),
		StartHere: filepath.Join(base, "START_HERE.md"),
		Agents:    filepath.Join(base, "AGENTS.md"),
		Overview:  filepath.Join(base, "OVERVIEW.md"),

		SearchDB: filepath.Join(base, "indexes", "search.sqlite3"),

		ReposDir: filepath.Join(base, "repos"),

		AnalysisDir: filepath.Join(base, "analysis"),
		FactsJSON:   filepath.Join(base, "analysis", "FACTS.json"),

		DepsCache: filepath.Join(base, "deps", "dependency-graph.json"),

		TraceDB:   filepath.Join(base, "trace", "trace.sqlite3"),
		TraceJSON: filepath.Join(base, "trace", "trace.json"),

		CardsDir: filepath.Join(base, "cards"),
	}
}

// RepoRawDir returns the raw-bytes directory for a repo identified by
// owner/repo (or "web/<safeId>").
func (p Paths) RepoRawDir(ownerRepo string) string {
	return filepath.Join(p.ReposDir, filepath.FromSlash(ownerRepo), "raw")
}

// RepoNormDir returns the normalized-files directory for a repo identified
// by owner/repo (or "web/<safeId>").
func (p Paths) RepoNormDir(ownerRepo string) string {
	return filepath.Join(p.ReposDir, filepath.FromSlash(ownerRepo), "norm")
}

// RepoMetaJSON returns the per-repo metadata file path.
func (p Paths) RepoMetaJSON(ownerRepo string) string {
	return filepath.Join(p.ReposDir, filepath.FromSlash(ownerRepo), "meta.json")
}

// CardJSON returns the repo-card file path for a given safe repo id.
func (p Paths) CardJSON(safeRepoID string) string {
	return filepath.Join(p.CardsDir, safeRepoID, "CARD.json")
}
