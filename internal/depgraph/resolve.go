package depgraph

import (
	"path"
	"strings"

	"github.com/Sumatoshi-tech/preflight/internal/cache"
)

// jsResolveExtensions are the extensions tried, in order, when a JS/TS
// specifier names a directory or an extension-less file.
var jsResolveExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}

// ResolveJS resolves a relative or root-absolute JS/TS specifier against
// importerRelPath. Bare specifiers (package names) are left unresolved;
// they become "imports" edges to a module node rather than "imports_resolved"
// edges to a file node.
//
// Per spec §9's open question on this resolver: the `.ts`/`.tsx` swap
// courtesy only applies to a literal `.js` suffix, not `.mjs`/`.cjs` (no
// equivalent `.mts`/`.cts` swap is attempted).
func ResolveJS(fi *FileIndex, importerRelPath, specifier string) (string, bool) {
	if !strings.HasPrefix(specifier, "./") && !strings.HasPrefix(specifier, "../") && !strings.HasPrefix(specifier, "/") {
		return "", false
	}

	var base string
	if strings.HasPrefix(specifier, "/") {
		base = strings.TrimPrefix(specifier, "/")
	} else {
		base = path.Join(path.Dir(importerRelPath), specifier)
	}

	base = path.Clean(base)

	if fi.Exists(base) {
		return base, true
	}

	if strings.HasSuffix(base, ".js") {
		stem := strings.TrimSuffix(base, ".js")
		for _, ext := range []string{".ts", ".tsx"} {
			if candidate := stem + ext; fi.Exists(candidate) {
				return candidate, true
			}
		}
	}

	for _, ext := range jsResolveExtensions {
		if candidate := base + ext; fi.Exists(candidate) {
			return candidate, true
		}
	}

	for _, ext := range jsResolveExtensions {
		if candidate := path.Join(base, "index"+ext); fi.Exists(candidate) {
			return candidate, true
		}
	}

	return "", false
}

// splitPythonModule separates a `from` clause's leading dots (relative
// import level) from the dotted module path that follows them.
func splitPythonModule(raw string) (dots int, rest string) {
	i := 0
	for i < len(raw) && raw[i] == '.' {
		i++
	}

	return i, raw[i:]
}

// pythonRootsFor returns the absolute-import search roots, in spec order:
// importer's src/, importer's top-level dir, repo root, src/.
func pythonRootsFor(importerDir string) []string {
	top := importerDir
	for {
		parent := path.Dir(top)
		if parent == "." || parent == top {
			break
		}

		top = parent
	}

	if importerDir == "." {
		top = ""
	}

	return []string{
		path.Join(top, "src"),
		top,
		"",
		"src",
	}
}

// ResolvePython resolves a Python import specifier against importerRelPath,
// first splitting the raw capture into its leading-dot relative level and
// remaining dotted path.
func ResolvePython(fi *FileIndex, importerRelPath, rawModule string) (string, bool) {
	dots, rest := splitPythonModule(rawModule)

	if dots > 0 {
		dir := path.Dir(importerRelPath)
		for i := 0; i < dots-1; i++ {
			dir = path.Dir(dir)
		}

		if dir == "." {
			dir = ""
		}

		base := dir
		if rest != "" {
			base = path.Join(dir, strings.ReplaceAll(rest, ".", "/"))
		}

		if candidate := base + ".py"; fi.Exists(candidate) {
			return candidate, true
		}

		if candidate := path.Join(base, "__init__.py"); fi.Exists(candidate) {
			return candidate, true
		}

		return "", false
	}

	if rest == "" {
		return "", false
	}

	importerDir := path.Dir(importerRelPath)
	roots := pythonRootsFor(importerDir)
	restPath := strings.ReplaceAll(rest, ".", "/")

	type match struct {
		path     string
		rootIdx  int
	}

	var matches []match
	seen := map[string]bool{}

	for idx, root := range roots {
		base := path.Join(root, restPath)

		for _, candidate := range []string{base + ".py", path.Join(base, "__init__.py")} {
			if !fi.Exists(candidate) || seen[candidate] {
				continue
			}

			seen[candidate] = true
			matches = append(matches, match{path: candidate, rootIdx: idx})
		}
	}

	if len(matches) == 0 {
		return "", false
	}

	if len(matches) == 1 {
		return matches[0].path, true
	}

	var ownRoot []match
	for _, m := range matches {
		if m.rootIdx == 1 {
			ownRoot = append(ownRoot, m)
		}
	}

	if len(ownRoot) == 1 {
		return ownRoot[0].path, true
	}

	return "", false
}

// parseGoModulePath extracts the `module <path>` directive from go.mod
// content.
func parseGoModulePath(content []byte) string {
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "module ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "module "))
		}
	}

	return ""
}

// ResolveGo maps a Go import path to a concrete file by finding the
// nearest go.mod walking up from the importer, mapping the specifier
// against that module's path, and deterministically picking the first
// (sorted, non-`_test.go`) file in the resulting directory.
func ResolveGo(fi *FileIndex, importerRelPath, specifier string) (string, bool) {
	dir := path.Dir(importerRelPath)
	if dir == "." {
		dir = ""
	}

	modDir := dir
	found := false

	for {
		if fi.Exists(path.Join(modDir, "go.mod")) {
			found = true
			break
		}

		if modDir == "" {
			break
		}

		parent := path.Dir(modDir)
		if parent == "." {
			parent = ""
		}

		if parent == modDir {
			break
		}

		modDir = parent
	}

	if !found {
		return "", false
	}

	content, err := fi.ReadFile(path.Join(modDir, "go.mod"))
	if err != nil {
		return "", false
	}

	modulePath := parseGoModulePath(content)
	if modulePath == "" || !strings.HasPrefix(specifier, modulePath) {
		return "", false
	}

	remainder := strings.TrimPrefix(specifier, modulePath)
	remainder = strings.TrimPrefix(remainder, "/")

	subdir := path.Join(modDir, remainder)

	var candidates []string
	for _, f := range fi.FilesInDir(subdir) {
		if strings.HasSuffix(f, ".go") && !strings.HasSuffix(f, "_test.go") {
			candidates = append(candidates, f)
		}
	}

	if len(candidates) == 0 {
		return "", false
	}

	return candidates[0], true
}

// findRustCrateRoot walks up from fromDir looking for a crate root: a
// directory directly containing lib.rs/main.rs, or a src/ subdirectory
// containing them.
func findRustCrateRoot(fi *FileIndex, fromDir string) (string, bool) {
	dir := fromDir

	for {
		if fi.Exists(path.Join(dir, "lib.rs")) || fi.Exists(path.Join(dir, "main.rs")) {
			return dir, true
		}

		if fi.Exists(path.Join(dir, "src", "lib.rs")) || fi.Exists(path.Join(dir, "src", "main.rs")) {
			return path.Join(dir, "src"), true
		}

		if dir == "" || dir == "." {
			break
		}

		parent := path.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return "", false
}

// resolveRustSegments walks segments from startDir, trying `segment.rs`
// then `segment/mod.rs` at each step, remembering the last successfully
// resolved step so a partially-resolvable path still yields a prefix
// match instead of nothing.
func resolveRustSegments(fi *FileIndex, startDir string, segments []string) (string, bool) {
	current := startDir
	lastGood := ""
	foundAny := false

	for i, seg := range segments {
		isLast := i == len(segments)-1

		fileCandidate := path.Join(current, seg+".rs")
		dirCandidate := path.Join(current, seg, "mod.rs")

		if isLast {
			if fi.Exists(fileCandidate) {
				return fileCandidate, true
			}

			if fi.Exists(dirCandidate) {
				return dirCandidate, true
			}

			break
		}

		if fi.Exists(dirCandidate) {
			current = path.Join(current, seg)
			lastGood = dirCandidate
			foundAny = true

			continue
		}

		if fi.Exists(fileCandidate) {
			lastGood = fileCandidate
			foundAny = true
		}

		break
	}

	return lastGood, foundAny
}

// ResolveRust rewrites a `crate::`/`self::`/`super::` path against
// importerRelPath's crate root and walks its segments.
func ResolveRust(fi *FileIndex, importerRelPath, specifier string) (string, bool) {
	segments := strings.Split(specifier, "::")

	var filtered []string
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			filtered = append(filtered, s)
		}
	}

	segments = filtered
	if len(segments) == 0 {
		return "", false
	}

	importerDir := path.Dir(importerRelPath)
	if importerDir == "." {
		importerDir = ""
	}

	crateRoot, ok := findRustCrateRoot(fi, importerDir)
	if !ok {
		return "", false
	}

	var startDir string

	switch segments[0] {
	case "crate":
		startDir = crateRoot
		segments = segments[1:]
	case "self":
		startDir = importerDir
		segments = segments[1:]
	case "super":
		dir := importerDir
		for len(segments) > 0 && segments[0] == "super" {
			dir = path.Dir(dir)
			if dir == "." {
				dir = ""
			}

			segments = segments[1:]
		}

		startDir = dir
	default:
		startDir = crateRoot
	}

	if len(segments) == 0 {
		return "", false
	}

	return resolveRustSegments(fi, startDir, segments)
}

// Resolve dispatches to the per-language resolution rule for an import,
// returning a bundle-relative resolved path or ("", false) when the
// specifier names an external package/crate/module rather than a file in
// this repo.
func Resolve(fi *FileIndex, importerRelPath string, imp Import) (string, bool) {
	switch imp.Language {
	case LangJS:
		return ResolveJS(fi, importerRelPath, imp.Module)
	case LangPython:
		return ResolvePython(fi, importerRelPath, imp.Module)
	case LangGo:
		return ResolveGo(fi, importerRelPath, imp.Module)
	case LangRust:
		return ResolveRust(fi, importerRelPath, imp.Module)
	default:
		return "", false
	}
}

// resolveKey is the (repo_root, importer_rel, module) tuple spec §9's
// resolver cache is keyed by.
type resolveKey struct {
	repoRoot    string
	importerRel string
	module      string
}

type resolveOutcome struct {
	resolved string
	ok       bool
}

// resolveMemo memoizes Resolve within a single graph run (spec §8
// invariant 8: "resolve(importer, module) … cached within a single graph
// run"). resolve(importer, module) is deterministic for a fixed FileIndex,
// so results never need invalidating within the run that built them.
type resolveMemo struct {
	memo *cache.Memo[resolveKey, resolveOutcome]
}

// newResolveMemo creates an empty memo, one per GenerateGlobal/GenerateTarget
// call.
func newResolveMemo() *resolveMemo {
	return &resolveMemo{memo: cache.NewMemo[resolveKey, resolveOutcome]()}
}

// resolve looks up Resolve's result for this (repoRoot, importerRelPath,
// imp.Module) tuple, computing and caching it on first request.
func (rm *resolveMemo) resolve(repoRoot string, fi *FileIndex, importerRelPath string, imp Import) (string, bool) {
	key := resolveKey{repoRoot: repoRoot, importerRel: importerRelPath, module: imp.Module}

	outcome, _ := rm.memo.GetOrCompute(key, func() (resolveOutcome, error) {
		resolved, ok := Resolve(fi, importerRelPath, imp)

		return resolveOutcome{resolved: resolved, ok: ok}, nil
	})

	return outcome.resolved, outcome.ok
}
