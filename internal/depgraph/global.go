package depgraph

import (
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/preflight/internal/bundleerrors"
)

type scannedFile struct {
	bundleRel string // bundle-relative path, e.g. repos/o/r/norm/a.ts
	repoRel   string // path within the repo's norm/ root
	normDir   string // absolute filesystem path to the repo's norm/ dir
	fi        *FileIndex
	lang      Language
	size      int64
}

// gatherGlobalFiles walks repos/*/*/norm/* (the two-level repo layout also
// used by the bundle builder), collecting files whose extension is in the
// global-mode allowlist, sorted by bundle-relative path for deterministic
// iteration.
func gatherGlobalFiles(bundleRoot string) ([]scannedFile, error) {
	normDirs, err := repoNormDirs(bundleRoot)
	if err != nil {
		return nil, err
	}

	sort.Strings(normDirs)

	var out []scannedFile

	for _, normDir := range normDirs {
		fi, err := NewFileIndex(normDir)
		if err != nil {
			return nil, err
		}

		repoBundleRel := filepath.ToSlash(mustRel(bundleRoot, normDir))

		for _, rel := range fi.SortedPaths() {
			ext := strings.ToLower(path.Ext(rel))
			if !globalModeExtensions[ext] {
				continue
			}

			info, err := os.Stat(filepath.Join(normDir, filepath.FromSlash(rel)))
			if err != nil {
				continue
			}

			out = append(out, scannedFile{
				bundleRel: repoBundleRel + "/" + rel,
				repoRel:   rel,
				normDir:   normDir,
				fi:        fi,
				lang:      languageOf(rel),
				size:      info.Size(),
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].bundleRel < out[j].bundleRel })

	return out, nil
}

func topDir(bundleRel string) string {
	parts := strings.SplitN(bundleRel, "/", 2)
	if len(parts) == 0 {
		return ""
	}

	return parts[0]
}

// GenerateGlobal runs global mode over the whole bundle (spec §4.I).
func GenerateGlobal(bundleRoot, bundleID string, opts Options) (Result, error) {
	if !opts.Force {
		if cached, ok := loadCachedGraph(bundleRoot); ok {
			cached.Meta.FromCache = true
			cached.Signals.Warnings = append([]string{"result served from cache (deps/dependency-graph.json); pass force=true to regenerate"}, cached.Signals.Warnings...)

			return cached, nil
		}
	}

	files, err := gatherGlobalFiles(bundleRoot)
	if err != nil {
		return Result{}, bundleerrors.OperationFailed("failed to walk bundle repos", err)
	}

	tracker := newBudgetTracker(opts.Budgets)

	perLanguage := map[string]LangCoverage{}
	perDir := map[string]int{}

	var skipped []SkippedFile

	importedByCount := map[string]int{}
	importsCount := map[string]int{}
	nodeSet := map[string]Node{}

	var edges []Edge

	scannedCount := 0
	parsedCount := 0

	maxSize := opts.MaxFileSizeBytes

	resolver := newResolveMemo()

	for _, f := range files {
		if !tracker.checkBudget("file scan") {
			break
		}

		scannedCount++
		tracker.countFile()

		dir := topDir(f.bundleRel)
		perDir[dir]++

		lc := perLanguage[string(f.lang)]
		lc.Scanned++

		oversized := maxSize > 0 && f.size > maxSize

		var content string

		if oversized && opts.FileSizeStrategy == FileSizeTruncate {
			raw, err := f.fi.ReadFile(f.repoRel)
			if err != nil {
				perLanguage[string(f.lang)] = lc
				continue
			}

			lines := strings.SplitN(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n", 201)
			if len(lines) > 200 {
				lines = lines[:200]
			}

			content = strings.Join(lines, "\n")
		} else if oversized {
			if len(skipped) < 50 {
				skipped = append(skipped, SkippedFile{Path: f.bundleRel, Size: f.size, Reason: "too large"})
			}

			perLanguage[string(f.lang)] = lc

			continue
		} else {
			raw, err := f.fi.ReadFile(f.repoRel)
			if err != nil {
				perLanguage[string(f.lang)] = lc
				continue
			}

			content = strings.ReplaceAll(string(raw), "\r\n", "\n")
		}

		parsedCount++
		lc.Parsed++

		if _, ok := nodeSet[f.bundleRel]; !ok {
			nodeSet[f.bundleRel] = Node{ID: f.bundleRel, Kind: NodeFile, Language: f.lang}
			tracker.countNodes(1)
		}

		imports := ExtractImports(content, f.lang, opts.UseExactImports)

		for _, imp := range imports {
			if !tracker.checkBudget("import resolution") {
				break
			}

			resolved, ok := resolver.resolve(f.normDir, f.fi, f.repoRel, imp)
			if !ok {
				continue
			}

			resolvedID := bundleRelFromRepoRel(f.bundleRel, f.repoRel, resolved)

			if _, ok := nodeSet[resolvedID]; !ok {
				nodeSet[resolvedID] = Node{ID: resolvedID, Kind: NodeFile, Language: imp.Language}
				tracker.countNodes(1)
			}

			edges = append(edges, Edge{
				From:       f.bundleRel,
				To:         resolvedID,
				Type:       EdgeImportsResolved,
				Method:     imp.Method,
				Confidence: imp.Confidence,
			})
			tracker.countEdges(1)

			importsCount[f.bundleRel]++
			importedByCount[resolvedID]++

			lc.Edges++
		}

		perLanguage[string(f.lang)] = lc
	}

	highValue := classifyHighValueModules(nodeSet, importedByCount, importsCount)

	nodes := make([]Node, 0, len(nodeSet))
	for _, n := range nodeSet {
		nodes = append(nodes, n)
	}

	sortNodes(nodes)

	var warnings []string
	if tracker.truncated {
		warnings = append(warnings, "truncated: "+tracker.truncatedReason)
	}

	result := Result{
		Meta: Meta{BundleID: bundleID, Mode: ModeGlobal},
		Facts: Facts{
			Nodes: nodes,
			Edges: edges,
		},
		Signals: Signals{
			Stats:            Stats{NodeCount: len(nodes), EdgeCount: len(edges)},
			Warnings:         warnings,
			HighValueModules: highValue,
		},
		CoverageReport: CoverageReport{
			ScannedFilesCount: scannedCount,
			ParsedFilesCount:  parsedCount,
			PerLanguage:       perLanguage,
			PerDir:            perDir,
			SkippedFiles:      skipped,
			Truncated:         tracker.truncated,
			TruncatedReason:   tracker.truncatedReason,
			Limits:            opts.Budgets,
		},
		Mermaid: buildMermaid(nodes, edges, importedByCount, importsCount),
	}

	if err := cacheGraph(bundleRoot, result); err != nil {
		result.Signals.Warnings = append(result.Signals.Warnings, "failed to write dependency-graph cache: "+err.Error())
	}

	return result, nil
}

// classifyHighValueModules applies the fixed degree thresholds from spec §4.I.
func classifyHighValueModules(nodeSet map[string]Node, importedBy, imports map[string]int) []HighValueModule {
	var out []HighValueModule

	ids := make([]string, 0, len(nodeSet))
	for id, n := range nodeSet {
		if n.Kind != NodeFile {
			continue
		}

		ids = append(ids, id)
	}

	sort.Strings(ids)

	for _, id := range ids {
		in := importedBy[id]
		outDeg := imports[id]

		var role HighValueModuleRole

		switch {
		case in >= 10:
			role = RoleHighCoupling
		case outDeg >= 15:
			role = RoleHub
		case outDeg >= 8 && in <= 2:
			role = RoleEntryPoint
		default:
			continue
		}

		out = append(out, HighValueModule{
			Path:            id,
			Role:            role,
			ImportedByCount: in,
			ImportsCount:    outDeg,
		})
	}

	return out
}

// buildMermaid renders a flowchart of the top-15 nodes by total degree.
func buildMermaid(nodes []Node, edges []Edge, importedBy, imports map[string]int) string {
	if len(nodes) == 0 {
		return ""
	}

	type scored struct {
		id     string
		degree int
	}

	scoredNodes := make([]scored, 0, len(nodes))
	for _, n := range nodes {
		scoredNodes = append(scoredNodes, scored{id: n.ID, degree: importedBy[n.ID] + imports[n.ID]})
	}

	sort.Slice(scoredNodes, func(i, j int) bool {
		if scoredNodes[i].degree != scoredNodes[j].degree {
			return scoredNodes[i].degree > scoredNodes[j].degree
		}

		return scoredNodes[i].id < scoredNodes[j].id
	})

	if len(scoredNodes) > 15 {
		scoredNodes = scoredNodes[:15]
	}

	top := map[string]bool{}
	for _, s := range scoredNodes {
		top[s.id] = true
	}

	var b strings.Builder

	b.WriteString("flowchart LR\n")

	ids := make([]string, 0, len(top))
	for id := range top {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	idAlias := map[string]string{}
	for i, id := range ids {
		alias := "n" + strconv.Itoa(i)
		idAlias[id] = alias
		b.WriteString("  " + alias + "[\"" + mermaidEscape(id) + "\"]\n")
	}

	seen := map[string]bool{}

	for _, e := range edges {
		if !top[e.From] || !top[e.To] {
			continue
		}

		key := e.From + "->" + e.To
		if seen[key] {
			continue
		}

		seen[key] = true
		b.WriteString("  " + idAlias[e.From] + " --> " + idAlias[e.To] + "\n")
	}

	return b.String()
}

func mermaidEscape(s string) string {
	return strings.ReplaceAll(s, `"`, `'`)
}

// cacheGraph writes result to deps/dependency-graph.json.
func cacheGraph(bundleRoot string, result Result) error {
	depsDir := filepath.Join(bundleRoot, "deps")
	if err := os.MkdirAll(depsDir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(depsDir, "dependency-graph.json"), data, 0o644)
}

func loadCachedGraph(bundleRoot string) (Result, bool) {
	data, err := os.ReadFile(filepath.Join(bundleRoot, "deps", "dependency-graph.json"))
	if err != nil {
		return Result{}, false
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, false
	}

	return result, true
}
