package ingest

import (
	"os"
	"path/filepath"
	"strings"
)

// builtinExcludeDirs are always skipped regardless of gitignore content,
// mirroring the common-excluded-directories list every ingestion example in
// the pack carries.
var builtinExcludeDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
	".next":        true,
	"target":       true,
}

// ignoreRule is one parsed line of a .gitignore-style file.
type ignoreRule struct {
	pattern string
	negate  bool
	dirOnly bool
}

// IgnoreSet holds the built-in excludes plus any repo-embedded .gitignore
// rules loaded from the repo root, applied gitignore-style: later rules
// override earlier ones, "!" negates.
type IgnoreSet struct {
	rules []ignoreRule
}

// LoadIgnoreSet reads a .gitignore at the root of repoRoot, if present, and
// returns an IgnoreSet combining it with the built-in exclude list.
func LoadIgnoreSet(repoRoot string) (*IgnoreSet, error) {
	set := &IgnoreSet{}

	data, err := os.ReadFile(filepath.Join(repoRoot, ".gitignore"))
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}

		return nil, err
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		rule := ignoreRule{pattern: trimmed}

		if strings.HasPrefix(rule.pattern, "!") {
			rule.negate = true
			rule.pattern = rule.pattern[1:]
		}

		if strings.HasSuffix(rule.pattern, "/") {
			rule.dirOnly = true
			rule.pattern = strings.TrimSuffix(rule.pattern, "/")
		}

		rule.pattern = strings.TrimPrefix(rule.pattern, "/")

		set.rules = append(set.rules, rule)
	}

	return set, nil
}

// Excluded reports whether relPath (POSIX, repo-relative) should be
// skipped, consulting the built-in exclude list first (any path component)
// then the gitignore rules in file order (last match wins).
func (s *IgnoreSet) Excluded(relPath string, isDir bool) bool {
	for _, part := range strings.Split(relPath, "/") {
		if builtinExcludeDirs[part] {
			return true
		}
	}

	excluded := false

	for _, rule := range s.rules {
		if rule.dirOnly && !isDir {
			continue
		}

		if matchesGitignorePattern(rule.pattern, relPath) {
			excluded = !rule.negate
		}
	}

	return excluded
}

// matchesGitignorePattern matches a simplified gitignore glob (supporting
// "*", "?", and path-segment globs via filepath.Match) against relPath or
// any of its basenames.
func matchesGitignorePattern(pattern, relPath string) bool {
	if strings.Contains(pattern, "/") {
		ok, _ := filepath.Match(pattern, relPath)
		return ok
	}

	for _, part := range strings.Split(relPath, "/") {
		if ok, _ := filepath.Match(pattern, part); ok {
			return true
		}
	}

	return false
}
