// Package ingest implements the Ingest Normalizer: walks an acquired repo
// root, applies gitignore-style exclusion, enforces size budgets, and
// writes raw + LF-normalized copies of every admitted file, following the
// walk-hash-classify shape of the pack's bundle-assembly examples.
package ingest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	enry "github.com/src-d/enry/v2"
)

// Kind classifies a normalized file as documentation or code.
type Kind string

// File kinds.
const (
	KindDoc  Kind = "doc"
	KindCode Kind = "code"
)

// docExtensions is the fallback extension set used when enry's
// documentation heuristic doesn't classify a path, per spec §4.B.
var docExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".rst":      true,
	".txt":      true,
	".adoc":     true,
	".rdoc":     true,
}

// IngestedFile is a single normalized file admitted into the bundle (spec §3).
type IngestedFile struct {
	RepoRelPath   string
	NormRelPath   string
	Kind          Kind
	ContentHash   string
	Size          int64
}

// SkippedFileEntry records an excluded candidate file and why (spec §3).
type SkippedFileEntry struct {
	Path   string
	Reason string
	Size   int64
}

// Skip reasons.
const (
	ReasonTooLarge        = "too-large"
	ReasonUnreadableUTF8  = "unreadable-utf8"
	ReasonTotalCapReached = "total-cap-reached"
	ReasonUnsupported     = "unsupported"
)

// Options controls normalizer size budgets.
type Options struct {
	MaxFileBytes  int64
	MaxTotalBytes int64
}

// Result is the outcome of normalizing one repo root (spec §4.B).
type Result struct {
	Files   []IngestedFile
	Skipped []SkippedFileEntry
}

// Normalize walks repoRoot, admitting files under rawDir/normDir, and
// returns the ingested/skipped accounting. File ordering in the result is
// stable (sorted POSIX repo-relative paths); size budgeting is greedy in
// walk order — once maxTotalBytes is hit, every further candidate is
// skipped with reason total-cap-reached.
func Normalize(repoRoot, rawDir, normDir string, opts Options) (Result, error) {
	ignores, err := LoadIgnoreSet(repoRoot)
	if err != nil {
		return Result{}, err
	}

	type candidate struct {
		relPath string
		absPath string
		info    fs.FileInfo
	}

	var candidates []candidate

	walkErr := filepath.Walk(repoRoot, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if path == repoRoot {
			return nil
		}

		rel, relErr := filepath.Rel(repoRoot, path)
		if relErr != nil {
			return relErr
		}

		rel = filepath.ToSlash(rel)

		if ignores.Excluded(rel, info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if info.IsDir() {
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 || !info.Mode().IsRegular() {
			return nil
		}

		candidates = append(candidates, candidate{relPath: rel, absPath: path, info: info})

		return nil
	})
	if walkErr != nil {
		return Result{}, walkErr
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].relPath < candidates[j].relPath
	})

	result := Result{}

	var totalBytes int64

	capReached := false

	for _, c := range candidates {
		size := c.info.Size()

		if capReached {
			result.Skipped = append(result.Skipped, SkippedFileEntry{
				Path: c.relPath, Reason: ReasonTotalCapReached, Size: size,
			})

			continue
		}

		if opts.MaxFileBytes > 0 && size > opts.MaxFileBytes {
			result.Skipped = append(result.Skipped, SkippedFileEntry{
				Path: c.relPath, Reason: ReasonTooLarge, Size: size,
			})

			continue
		}

		if opts.MaxTotalBytes > 0 && totalBytes+size > opts.MaxTotalBytes {
			capReached = true

			result.Skipped = append(result.Skipped, SkippedFileEntry{
				Path: c.relPath, Reason: ReasonTotalCapReached, Size: size,
			})

			continue
		}

		raw, err := os.ReadFile(c.absPath)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedFileEntry{
				Path: c.relPath, Reason: ReasonUnreadableUTF8, Size: size,
			})

			continue
		}

		if !utf8.Valid(raw) {
			result.Skipped = append(result.Skipped, SkippedFileEntry{
				Path: c.relPath, Reason: ReasonUnreadableUTF8, Size: size,
			})

			continue
		}

		normalized := normalizeLineEndings(raw)

		if err := writeFile(filepath.Join(rawDir, c.relPath), raw); err != nil {
			return Result{}, err
		}

		if err := writeFile(filepath.Join(normDir, c.relPath), normalized); err != nil {
			return Result{}, err
		}

		sum := sha256.Sum256(normalized)

		result.Files = append(result.Files, IngestedFile{
			RepoRelPath: c.relPath,
			NormRelPath: c.relPath,
			Kind:        Classify(c.relPath, normalized),
			ContentHash: hex.EncodeToString(sum[:]),
			Size:        int64(len(normalized)),
		})

		totalBytes += size
	}

	return result, nil
}

// normalizeLineEndings rewrites CRLF and lone CR to LF.
func normalizeLineEndings(b []byte) []byte {
	b = bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
	b = bytes.ReplaceAll(b, []byte("\r"), []byte("\n"))

	return b
}

// Classify decides doc vs code, preferring enry's documentation heuristic
// and falling back to the extension allowlist. Exported so repair's index
// rescan can classify existing norm/ files without re-running Normalize.
func Classify(relPath string, content []byte) Kind {
	if enry.IsDocumentation(relPath) {
		return KindDoc
	}

	ext := strings.ToLower(filepath.Ext(relPath))
	if docExtensions[ext] {
		return KindDoc
	}

	return KindCode
}

func writeFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, content, 0o644)
}
