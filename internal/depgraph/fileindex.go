package depgraph

import (
	"os"
	"path"
	"path/filepath"
	"sort"
)

// FileIndex is the resolver's view of one repo's normalized file tree:
// bundle-relative (POSIX-style) paths plus the ability to read a file's
// bytes for the handful of resolution rules that need file content
// (currently just Go's `module <path>` line in go.mod).
type FileIndex struct {
	normDir string
	set     map[string]bool
	byDir   map[string][]string
}

// NewFileIndex walks normDir (a repo's norm/ directory) and builds a
// FileIndex over the bundle-relative paths found there.
func NewFileIndex(normDir string) (*FileIndex, error) {
	fi := &FileIndex{
		normDir: normDir,
		set:     make(map[string]bool),
		byDir:   make(map[string][]string),
	}

	err := filepath.Walk(normDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(normDir, p)
		if relErr != nil {
			return relErr
		}

		rel = filepath.ToSlash(rel)
		fi.set[rel] = true
		dir := path.Dir(rel)
		fi.byDir[dir] = append(fi.byDir[dir], rel)

		return nil
	})
	if err != nil {
		return nil, err
	}

	for dir := range fi.byDir {
		sort.Strings(fi.byDir[dir])
	}

	return fi, nil
}

// Exists reports whether relPath is a known file.
func (fi *FileIndex) Exists(relPath string) bool {
	return fi.set[path.Clean(relPath)]
}

// FilesInDir returns the sorted files directly inside dir (not recursive).
func (fi *FileIndex) FilesInDir(dir string) []string {
	return fi.byDir[path.Clean(dir)]
}

// ReadFile reads relPath's bytes from the underlying norm directory.
func (fi *FileIndex) ReadFile(relPath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(fi.normDir, filepath.FromSlash(relPath)))
}

// SortedPaths returns every known file path, sorted, for deterministic
// global-mode iteration.
func (fi *FileIndex) SortedPaths() []string {
	paths := make([]string, 0, len(fi.set))
	for p := range fi.set {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	return paths
}
