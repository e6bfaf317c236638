package depgraph

import (
	"database/sql"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Sumatoshi-tech/preflight/internal/bundleerrors"
	"github.com/Sumatoshi-tech/preflight/internal/fts"
)

// repoNormDirs lists a bundle's `repos/<ns>/<name>/norm` directories, sorted,
// for a deterministic repo-scoped FileIndex lookup.
func repoNormDirs(bundleRoot string) ([]string, error) {
	reposDir := filepath.Join(bundleRoot, "repos")

	entries, err := os.ReadDir(reposDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	var dirs []string

	for _, ns := range entries {
		if !ns.IsDir() {
			continue
		}

		nsPath := filepath.Join(reposDir, ns.Name())

		names, err := os.ReadDir(nsPath)
		if err != nil {
			continue
		}

		for _, name := range names {
			if !name.IsDir() {
				continue
			}

			norm := filepath.Join(nsPath, name.Name(), "norm")
			if info, err := os.Stat(norm); err == nil && info.IsDir() {
				dirs = append(dirs, norm)
			}
		}
	}

	return dirs, nil
}

// findRepoForTarget locates which repo's norm/ directory contains
// targetRelPath (a bundle-relative path like `repos/o/r/norm/a.ts`), and
// returns that repo's FileIndex plus the path relative to its norm root.
func findRepoForTarget(bundleRoot, targetRelPath string) (*FileIndex, string, error) {
	normDirs, err := repoNormDirs(bundleRoot)
	if err != nil {
		return nil, "", err
	}

	cleanTarget := path.Clean(filepath.ToSlash(targetRelPath))

	for _, normDir := range normDirs {
		repoRelNorm := filepath.ToSlash(mustRel(bundleRoot, normDir))
		if !strings.HasPrefix(cleanTarget, repoRelNorm+"/") {
			continue
		}

		fi, err := NewFileIndex(normDir)
		if err != nil {
			return nil, "", err
		}

		withinRepo := strings.TrimPrefix(cleanTarget, repoRelNorm+"/")
		if fi.Exists(withinRepo) {
			return fi, withinRepo, nil
		}
	}

	return nil, "", nil
}

func mustRel(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}

	return rel
}

var callSitePattern = func(symbol string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(symbol) + `\b\s*\(`)
}

// GenerateTarget runs target mode for one bundle-relative file (spec §4.I).
func GenerateTarget(bundleRoot, bundleID string, db *sql.DB, opts Options) (Result, error) {
	if filepath.IsAbs(opts.TargetFile) {
		return Result{}, bundleerrors.New(bundleerrors.CodeTargetFileNotFound,
			"target.file must be a bundle-relative path, not absolute").
			WithContext("bundleId", bundleID).
			WithContext("path", opts.TargetFile)
	}

	fi, withinRepoPath, err := findRepoForTarget(bundleRoot, opts.TargetFile)
	if err != nil {
		return Result{}, bundleerrors.OperationFailed("failed to scan bundle repos", err)
	}

	if fi == nil {
		return Result{}, bundleerrors.TargetFileNotFound(bundleID, opts.TargetFile)
	}

	raw, err := fi.ReadFile(withinRepoPath)
	if err != nil {
		return Result{}, bundleerrors.TargetFileNotFound(bundleID, opts.TargetFile)
	}

	content := strings.ReplaceAll(string(raw), "\r\n", "\n")
	lang := languageOf(withinRepoPath)

	tracker := newBudgetTracker(opts.Budgets)
	tracker.countFile()

	var warnings []string

	nodeSet := map[string]Node{
		opts.TargetFile: {ID: opts.TargetFile, Kind: NodeFile, Language: lang},
	}

	var edges []Edge

	imports := ExtractImports(content, lang, opts.UseExactImports)

	resolver := newResolveMemo()

	for _, imp := range imports {
		if !tracker.checkBudget("import extraction") {
			break
		}

		moduleNodeID := "module:" + imp.Module
		if _, ok := nodeSet[moduleNodeID]; !ok {
			nodeSet[moduleNodeID] = Node{ID: moduleNodeID, Kind: NodeModule}
			tracker.countNodes(1)
		}

		edges = append(edges, Edge{
			From:       opts.TargetFile,
			To:         moduleNodeID,
			Type:       EdgeImports,
			Method:     imp.Method,
			Confidence: imp.Confidence,
		})
		tracker.countEdges(1)

		resolved, ok := resolver.resolve(fi.normDir, fi, withinRepoPath, imp)
		if !ok {
			continue
		}

		resolvedID := bundleRelFromRepoRel(opts.TargetFile, withinRepoPath, resolved)

		if _, ok := nodeSet[resolvedID]; !ok {
			nodeSet[resolvedID] = Node{ID: resolvedID, Kind: NodeFile, Language: imp.Language}
			tracker.countNodes(1)
		}

		edges = append(edges, Edge{
			From:       opts.TargetFile,
			To:         resolvedID,
			Type:       EdgeImportsResolved,
			Method:     imp.Method,
			Confidence: imp.Confidence,
		})
		tracker.countEdges(1)
	}

	if opts.Symbol != "" && opts.EdgeTypes == "all" {
		if db == nil {
			warnings = append(warnings, "references skipped: no search index available")
		} else {
			hits, err := fts.Search(db, opts.Symbol, fts.ScopeCode, 200, bundleRoot)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("references skipped: search failed: %v", err))
			} else {
				re := callSitePattern(opts.Symbol)

				for _, h := range hits {
					if !tracker.checkBudget("reference scan") {
						break
					}

					if !re.MatchString(h.Snippet) {
						continue
					}

					hitID := h.Path

					if _, ok := nodeSet[hitID]; !ok {
						nodeSet[hitID] = Node{ID: hitID, Kind: NodeFile}
						tracker.countNodes(1)
					}

					edges = append(edges, Edge{
						From:       opts.TargetFile,
						To:         hitID,
						Type:       EdgeReferences,
						Method:     MethodHeuristic,
						Confidence: ConfidenceReferences,
					})
					tracker.countEdges(1)
				}
			}
		}
	} else if opts.Symbol != "" {
		warnings = append(warnings, "references skipped: edgeTypes must be \"all\" to search for symbol references")
	}

	nodes := make([]Node, 0, len(nodeSet))
	for _, n := range nodeSet {
		nodes = append(nodes, n)
	}

	sortNodes(nodes)

	if tracker.truncated {
		warnings = append(warnings, "truncated: "+tracker.truncatedReason)
	}

	return Result{
		Meta: Meta{BundleID: bundleID, Mode: ModeTarget, TargetFile: opts.TargetFile},
		Facts: Facts{
			Nodes: nodes,
			Edges: edges,
		},
		Signals: Signals{
			Stats:    Stats{NodeCount: len(nodes), EdgeCount: len(edges)},
			Warnings: warnings,
		},
		CoverageReport: CoverageReport{
			ScannedFilesCount: 1,
			ParsedFilesCount:  1,
			Truncated:         tracker.truncated,
			TruncatedReason:   tracker.truncatedReason,
			Limits:            opts.Budgets,
		},
	}, nil
}

// bundleRelFromRepoRel rewrites a resolved path (relative to the target's
// repo norm/ root) back into a full bundle-relative path, by replacing the
// target's own within-repo path with the resolved one under the same
// `repos/<ns>/<name>/norm/` prefix.
func bundleRelFromRepoRel(targetBundleRel, withinRepoPath, resolvedWithinRepo string) string {
	prefix := strings.TrimSuffix(targetBundleRel, withinRepoPath)

	return prefix + resolvedWithinRepo
}

func sortNodes(nodes []Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}
