package bundlebuilder

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Sumatoshi-tech/preflight/internal/external"
	"github.com/Sumatoshi-tech/preflight/internal/fts"
)

var unsafeRepoDirChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// safeRepoDirComponent sanitizes s into a single filesystem-safe path
// component.
func safeRepoDirComponent(s string) string {
	if s == "" {
		return "unknown"
	}

	return unsafeRepoDirChars.ReplaceAllString(s, "_")
}

// repoDirParts splits a repo id into exactly two sanitized path components
// (namespace, name), matching the "repos/*/*/{raw,norm}" two-level layout
// the Dependency Graph Engine's global mode globs over (spec §4.I). GitHub
// ids are already owner/repo; local ids may be bare names; web ids are full
// URLs and get their scheme stripped before splitting.
func repoDirParts(repoID string) (string, string) {
	id := strings.TrimPrefix(repoID, "web/")
	id = strings.TrimPrefix(strings.TrimPrefix(id, "https://"), "http://")

	segments := strings.Split(strings.Trim(id, "/"), "/")

	switch len(segments) {
	case 0:
		return "repo", "unknown"
	case 1:
		return "repo", safeRepoDirComponent(segments[0])
	default:
		return safeRepoDirComponent(segments[0]), safeRepoDirComponent(strings.Join(segments[1:], "_"))
	}
}

// toSourceFiles reads each tagged file's normalized bytes from disk and
// splits them into the line-oriented shape the FTS index expects. Paths are
// namespaced by repo id so files of the same relative path in different
// repos don't collide in the index.
func toSourceFiles(files []taggedFile) ([]fts.SourceFile, error) {
	out := make([]fts.SourceFile, 0, len(files))

	for _, tf := range files {
		content, err := os.ReadFile(filepath.Join(tf.NormDir, filepath.FromSlash(tf.File.NormRelPath)))
		if err != nil {
			return nil, err
		}

		out = append(out, fts.SourceFile{
			Path:        tf.RepoID + "/" + tf.File.NormRelPath,
			Repo:        tf.RepoID,
			Kind:        string(tf.File.Kind),
			ContentHash: tf.File.ContentHash,
			Lines:       strings.Split(string(content), "\n"),
		})
	}

	return out, nil
}

// writeGuides writes the three narrative files a GuideGenerator produces
// into bundleRoot (spec §4.H step 9).
func writeGuides(bundleRoot string, guides external.Guides) error {
	files := map[string]string{
		"START_HERE.md": guides.StartHere,
		"AGENTS.md":      guides.Agents,
		"OVERVIEW.md":    guides.Overview,
	}

	for name, content := range files {
		if err := os.WriteFile(filepath.Join(bundleRoot, name), []byte(content), 0o644); err != nil {
			return err
		}
	}

	return nil
}

// validateTmpCompleteness is the step-11 pre-publish completeness check
// (spec §4.H, §4.K): manifest.json, the search index, and all three guide
// files must be present and non-empty.
func validateTmpCompleteness(bundleRoot string) []string {
	required := []string{
		"manifest.json",
		filepath.Join("indexes", "search.sqlite3"),
		"START_HERE.md",
		"AGENTS.md",
		"OVERVIEW.md",
	}

	var missing []string

	for _, rel := range required {
		info, err := os.Stat(filepath.Join(bundleRoot, rel))
		if err != nil || info.Size() == 0 {
			missing = append(missing, rel)
		}
	}

	return missing
}

// publishAtomic moves src into place at dst. A same-filesystem rename is
// atomic; EXDEV (cross-device rename, e.g. tmp on tmpfs and storage on a
// bind mount) falls back to copy-then-remove, matching the content-addressed
// publish idiom used across the pack's storage layers.
func publishAtomic(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	if !isCrossDevice(err) {
		return err
	}

	if err := copyTree(src, dst); err != nil {
		return err
	}

	return os.RemoveAll(src)
}

func isCrossDevice(err error) bool {
	return strings.Contains(err.Error(), "invalid cross-device link") ||
		strings.Contains(err.Error(), "cross-device")
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		return os.WriteFile(target, content, info.Mode())
	})
}
