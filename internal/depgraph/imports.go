package depgraph

import (
	"path/filepath"
	"regexp"
	"strings"
)

// langByExtension maps a normalized (lowercased, leading-dot) file extension
// to the language the extractor/resolver treats it as. JS and TS share one
// resolution family per spec §4.I.
var langByExtension = map[string]Language{
	".js":   LangJS,
	".jsx":  LangJS,
	".mjs":  LangJS,
	".cjs":  LangJS,
	".ts":   LangJS,
	".tsx":  LangJS,
	".py":   LangPython,
	".go":   LangGo,
	".rs":   LangRust,
	".java": LangOther,
	".rb":   LangOther,
	".php":  LangOther,
}

// globalModeExtensions is the extension allowlist global mode walks (spec §4.I).
var globalModeExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
	".py": true, ".go": true, ".rs": true, ".java": true, ".rb": true, ".php": true,
}

func languageOf(path string) Language {
	lang, ok := langByExtension[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return LangOther
	}

	return lang
}

// Exact-path patterns: anchored to the start of a (trimmed) line, so they
// only match genuine import statements rather than incidental substring
// occurrences. This is the "parser-backed" path spec §4.I calls for,
// implemented as a small set of line-anchored regular expressions per
// language rather than a full grammar (see DESIGN.md for why no
// tree-sitter grammar is wired here).
var (
	jsExactImportFrom = regexp.MustCompile(`^import\b[^'"]*from\s+['"]([^'"]+)['"]`)
	jsExactBareImport = regexp.MustCompile(`^import\s+['"]([^'"]+)['"]`)
	jsExactRequire    = regexp.MustCompile(`^(?:const|let|var)\s+[^=]+=\s*require\(\s*['"]([^'"]+)['"]\s*\)`)
	jsExactDynamic    = regexp.MustCompile(`^(?:export\s+)?(?:await\s+)?import\(\s*['"]([^'"]+)['"]\s*\)`)
	jsExactReexport   = regexp.MustCompile(`^export\s+(?:\*|\{[^}]*\})\s+from\s+['"]([^'"]+)['"]`)

	pyExactFrom   = regexp.MustCompile(`^from\s+(\.*[\w.]*)\s+import\b`)
	pyExactImport = regexp.MustCompile(`^import\s+([\w.]+(?:\s*,\s*[\w.]+)*)`)

	goExactImport     = regexp.MustCompile(`^\s*"([^"]+)"\s*(?://.*)?$`)
	goExactImportStmt = regexp.MustCompile(`^import\s+"([^"]+)"`)

	rustExactUse = regexp.MustCompile(`^(?:pub\s+)?use\s+([\w:{}*,\s]+);`)
)

// Heuristic-path patterns: unanchored, looser, used when the exact path is
// disabled (spec §4.I fallback, method=heuristic conf=0.7).
var (
	jsHeuristic = regexp.MustCompile(`(?:import|require)\s*\(?\s*['"]([^'"]+)['"]`)
	pyHeuristic = regexp.MustCompile(`(?:from\s+([\w.]+)\s+import|import\s+([\w.]+))`)
	goHeuristic = regexp.MustCompile(`"([\w./-]+\.?[\w/-]*)"`)
	rustHeuristic = regexp.MustCompile(`use\s+([\w:]+)`)
)

// ExtractImports scans content (already LF-normalized) for import
// statements in lang, using the exact per-line scanner when useExact is
// true and the broader heuristic regex set otherwise (spec §4.I step 3).
func ExtractImports(content string, lang Language, useExact bool) []Import {
	lines := strings.Split(content, "\n")

	var out []Import

	for i, rawLine := range lines {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		var modules []string

		if useExact {
			modules = extractExactLine(line, lang)
		} else {
			modules = extractHeuristicLine(line, lang)
		}

		method := MethodHeuristic
		confidence := ConfidenceHeuristic

		if useExact {
			method = MethodExact
			confidence = ConfidenceExact
		}

		for _, m := range modules {
			out = append(out, Import{
				Module:     m,
				Range:      Range{StartLine: i + 1, EndLine: i + 1},
				Language:   lang,
				Kind:       "import",
				Method:     method,
				Confidence: confidence,
			})
		}
	}

	return out
}

func extractExactLine(line string, lang Language) []string {
	switch lang {
	case LangJS:
		for _, re := range []*regexp.Regexp{jsExactImportFrom, jsExactBareImport, jsExactRequire, jsExactDynamic, jsExactReexport} {
			if m := re.FindStringSubmatch(line); m != nil {
				return []string{m[1]}
			}
		}

	case LangPython:
		if m := pyExactFrom.FindStringSubmatch(line); m != nil {
			return []string{m[1]}
		}

		if m := pyExactImport.FindStringSubmatch(line); m != nil {
			var mods []string
			for _, spec := range strings.Split(m[1], ",") {
				mods = append(mods, strings.TrimSpace(spec))
			}

			return mods
		}

	case LangGo:
		if m := goExactImportStmt.FindStringSubmatch(line); m != nil {
			return []string{m[1]}
		}

		if m := goExactImport.FindStringSubmatch(line); m != nil {
			return []string{m[1]}
		}

	case LangRust:
		if m := rustExactUse.FindStringSubmatch(line); m != nil {
			return expandRustUseTree(m[1])
		}
	}

	return nil
}

func extractHeuristicLine(line string, lang Language) []string {
	switch lang {
	case LangJS:
		if m := jsHeuristic.FindStringSubmatch(line); m != nil {
			return []string{m[1]}
		}

	case LangPython:
		if m := pyHeuristic.FindStringSubmatch(line); m != nil {
			if m[1] != "" {
				return []string{m[1]}
			}

			return []string{m[2]}
		}

	case LangGo:
		if strings.Contains(line, "import") || looksLikeGoImportLine(line) {
			if m := goHeuristic.FindStringSubmatch(line); m != nil {
				return []string{m[1]}
			}
		}

	case LangRust:
		if m := rustHeuristic.FindStringSubmatch(line); m != nil {
			return []string{m[1]}
		}
	}

	return nil
}

func looksLikeGoImportLine(line string) bool {
	return strings.HasPrefix(line, `"`) || strings.HasPrefix(line, "import")
}

// expandRustUseTree expands a simple `use a::b::{c, d}` grouped-import tree
// into individual module paths. Nested groups are not recursively expanded;
// this matches the spec's MVP scope for the Rust resolver.
func expandRustUseTree(tree string) []string {
	tree = strings.TrimSpace(tree)

	open := strings.Index(tree, "{")
	if open == -1 {
		return []string{strings.TrimSpace(tree)}
	}

	prefix := strings.TrimSuffix(tree[:open], "::")
	inner := strings.TrimSuffix(tree[open+1:], "}")

	var out []string

	for _, part := range strings.Split(inner, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		out = append(out, prefix+"::"+part)
	}

	return out
}
