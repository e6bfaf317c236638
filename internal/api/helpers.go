package api

import (
	"os"
	"path/filepath"
)

// countNormFiles counts regular files under bundleRoot's repos/*/*/norm
// directories, used to populate BundleSummary.FileCount.
func countNormFiles(bundleRoot string) (int, error) {
	reposDir := filepath.Join(bundleRoot, "repos")

	namespaces, err := os.ReadDir(reposDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}

		return 0, err
	}

	count := 0

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

			_ = filepath.Walk(normDir, func(_ string, info os.FileInfo, err error) error {
				if err != nil || info == nil || info.IsDir() {
					return nil //nolint:nilerr
				}

				count++

				return nil
			})
		}
	}

	return count, nil
}

func removeAll(path string) error {
	return os.RemoveAll(path)
}
