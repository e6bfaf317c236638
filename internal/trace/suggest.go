package trace

import (
	"database/sql"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// testCompanion returns the expected test-file name for a source file,
// per spec §4.J's naming-convention heuristics, or "" if the language has
// no convention this MVP recognizes.
func testCompanion(relPath string) (string, float64) {
	dir := path.Dir(relPath)
	base := path.Base(relPath)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	switch ext {
	case ".go":
		if strings.HasSuffix(stem, "_test") {
			return "", 0
		}

		return path.Join(dir, stem+"_test.go"), 0.8
	case ".py":
		if strings.HasPrefix(stem, "test_") || strings.HasSuffix(stem, "_test") {
			return "", 0
		}

		return path.Join(dir, "test_"+stem+".py"), 0.75
	case ".ts", ".tsx", ".js", ".jsx":
		if strings.HasSuffix(stem, ".test") || strings.HasSuffix(stem, ".spec") {
			return "", 0
		}

		return path.Join(dir, stem+".test"+ext), 0.7
	case ".rs":
		return "", 0
	default:
		return "", 0
	}
}

// walkNormFiles lists every bundle-relative file under repos/*/*/norm,
// sorted, independent of internal/depgraph to keep this package's
// dependency surface narrow.
func walkNormFiles(bundleRoot string) ([]string, error) {
	reposDir := filepath.Join(bundleRoot, "repos")

	var out []string

	namespaces, err := os.ReadDir(reposDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
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

			err := filepath.Walk(normDir, func(p string, info os.FileInfo, err error) error {
				if err != nil || info == nil || info.IsDir() {
					return nil
				}

				rel, relErr := filepath.Rel(bundleRoot, p)
				if relErr != nil {
					return nil
				}

				out = append(out, filepath.ToSlash(rel))

				return nil
			})
			if err != nil {
				continue
			}
		}
	}

	sort.Strings(out)

	return out, nil
}

// Suggest proposes tested_by edges (the only MVP edge type) by naming
// convention, filtering out pairs already present in db (spec §4.J).
func Suggest(db *sql.DB, bundleRoot string, opts SuggestOptions) (SuggestResult, error) {
	edgeType := opts.EdgeType
	if edgeType == "" {
		edgeType = TestedBy
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	files, err := walkNormFiles(bundleRoot)
	if err != nil {
		return SuggestResult{}, err
	}

	existing, err := queryEdges(db, QueryFilters{Type: edgeType, Limit: 100000})
	if err != nil {
		return SuggestResult{}, err
	}

	existingKeys := map[string]bool{}
	for _, e := range existing {
		existingKeys[entityKey(e.Source)+"|"+entityKey(e.Target)] = true
	}

	fileSet := map[string]bool{}
	for _, f := range files {
		fileSet[f] = true
	}

	stats := map[string]int{"filesScanned": len(files)}

	var suggestions []Suggestion

	for _, f := range files {
		if opts.Scope != "" && !strings.HasPrefix(f, opts.Scope) {
			continue
		}

		companion, confidence := testCompanion(f)
		if companion == "" || !fileSet[companion] {
			continue
		}

		stats["candidatesFound"]++

		if confidence < opts.MinConfidence {
			continue
		}

		source := EntityRef{Type: "file", ID: f}
		target := EntityRef{Type: "file", ID: companion}

		if existingKeys[entityKey(source)+"|"+entityKey(target)] {
			continue
		}

		suggestions = append(suggestions, Suggestion{
			Source:     source,
			Target:     target,
			Confidence: confidence,
			Method:     MethodHeuristic,
			Why:        "naming convention match: " + companion,
			UpsertPayload: Edge{
				Source:     source,
				Target:     target,
				Type:       edgeType,
				Confidence: confidence,
				Method:     MethodHeuristic,
				Sources: []Evidence{
					{File: companion, Note: "matched by filename convention against " + f},
				},
			},
		})
	}

	sort.Slice(suggestions, func(i, j int) bool { return suggestions[i].Source.ID < suggestions[j].Source.ID })

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}

	stats["suggested"] = len(suggestions)

	return SuggestResult{Suggestions: suggestions, Stats: stats}, nil
}
