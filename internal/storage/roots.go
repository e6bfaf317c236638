package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/preflight/internal/bundleerrors"
)

// FindBundle scans storageDirs in order and returns the first root that
// contains bundleID, stopping on first hit (spec §4.A).
func FindBundle(storageDirs []string, bundleID string) (string, bool) {
	for _, root := range storageDirs {
		info, err := os.Stat(GetPaths(root, bundleID).Root)
		if err == nil && info.IsDir() {
			return root, true
		}
	}

	return "", false
}

// EffectiveWriteRoot returns the first writable storage root, probing by
// attempting to create (and remove) a marker file.
func EffectiveWriteRoot(storageDirs []string) (string, error) {
	for _, root := range storageDirs {
		if isWritable(root) {
			return root, nil
		}
	}

	return "", bundleerrors.StorageUnavailable()
}

// isWritable ensures root exists and accepts a test file write.
func isWritable(root string) bool {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return false
	}

	probe := filepath.Join(root, ".preflight-write-probe")

	f, err := os.Create(probe)
	if err != nil {
		return false
	}

	f.Close()
	os.Remove(probe)

	return true
}

// ListBundles enumerates bundle ids present under root's bundles directory.
func ListBundles(root string) ([]string, error) {
	dir := filepath.Join(root, "bundles")

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("list bundles in %s: %w", dir, err)
	}

	ids := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}

	return ids, nil
}

// Mirror copies a bundle's directory tree from primary into each backup
// root. Failures are returned as warnings, never fatal — mirrors are
// best-effort per spec §4.A/§9.
func Mirror(primary string, backups []string, bundleID string) []string {
	var warnings []string

	srcRoot := GetPaths(primary, bundleID).Root

	for _, backup := range backups {
		dstRoot := GetPaths(backup, bundleID).Root

		if err := copyTree(srcRoot, dstRoot); err != nil {
			warnings = append(warnings, fmt.Sprintf("mirror to %s failed: %v", backup, err))
		}
	}

	return warnings
}

// copyTree recursively copies src into dst, creating directories as needed.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(src, path)
		if relErr != nil {
			return relErr
		}

		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)

	return err
}
