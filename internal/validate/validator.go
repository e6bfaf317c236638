package validate

import (
	"os"
	"path/filepath"
)

// requiredArtifacts are the top-level files the Validator checks for
// presence and non-emptiness (spec §4.K Validator).
var requiredArtifacts = []string{
	"manifest.json",
	filepath.Join("indexes", "search.sqlite3"),
	"START_HERE.md",
	"AGENTS.md",
	"OVERVIEW.md",
}

const reposNormComponent = "repos/*/*/norm (no non-empty normalized file)"

// Validate checks bundleRoot for the fixed set of required artifacts and
// at least one non-empty file under repos/*/*/norm (spec §4.K).
func Validate(bundleRoot string) (Result, error) {
	var missing []string

	for _, rel := range requiredArtifacts {
		if !nonEmptyFile(filepath.Join(bundleRoot, rel)) {
			missing = append(missing, rel)
		}
	}

	hasNorm, err := hasNonEmptyNormFile(filepath.Join(bundleRoot, "repos"))
	if err != nil {
		return Result{}, err
	}

	if !hasNorm {
		missing = append(missing, reposNormComponent)
	}

	return Result{IsValid: len(missing) == 0, MissingComponents: missing}, nil
}

func nonEmptyFile(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir() && info.Size() > 0
}

// hasNonEmptyNormFile walks the two-level repos/<namespace>/<name>/norm
// layout and reports whether at least one non-empty file exists under any
// repo's norm directory.
func hasNonEmptyNormFile(reposDir string) (bool, error) {
	namespaces, err := os.ReadDir(reposDir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, err
	}

	for _, ns := range namespaces {
		if !ns.IsDir() {
			continue
		}

		names, err := os.ReadDir(filepath.Join(reposDir, ns.Name()))
		if err != nil {
			continue
		}

		for _, name := range names {
			if !name.IsDir() {
				continue
			}

			normDir := filepath.Join(reposDir, ns.Name(), name.Name(), "norm")

			found, err := dirHasNonEmptyFile(normDir)
			if err != nil {
				continue
			}

			if found {
				return true, nil
			}
		}
	}

	return false, nil
}

func dirHasNonEmptyFile(dir string) (bool, error) {
	found := false

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil //nolint:nilerr
		}

		if info.Size() > 0 {
			found = true
		}

		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	return found, nil
}

// isReposEmpty reports whether bundleRoot's repos/ directory has zero
// namespace/name repo entries at all — the one Repair case spec §4.K
// marks unfixable.
func isReposEmpty(bundleRoot string) (bool, error) {
	reposDir := filepath.Join(bundleRoot, "repos")

	namespaces, err := os.ReadDir(reposDir)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}

		return false, err
	}

	for _, ns := range namespaces {
		if !ns.IsDir() {
			continue
		}

		names, err := os.ReadDir(filepath.Join(reposDir, ns.Name()))
		if err != nil {
			continue
		}

		for _, name := range names {
			if name.IsDir() {
				return false, nil
			}
		}
	}

	return true, nil
}
