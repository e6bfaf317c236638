// Package depgraph implements the Dependency Graph Engine: parser-backed
// (and regex-heuristic fallback) import extraction with per-language
// resolution rules, target and global generation modes, budget-bounded
// deterministic traversal, and coverage reporting, per spec §4.I.
package depgraph

import "github.com/Sumatoshi-tech/preflight/internal/config"

// Language identifies the source language a file/import belongs to.
type Language string

// Recognized languages.
const (
	LangJS     Language = "javascript"
	LangPython Language = "python"
	LangGo     Language = "go"
	LangRust   Language = "rust"
	LangOther  Language = "other"
)

// ExtractMethod records how an import was discovered.
type ExtractMethod string

// Extraction methods (spec §4.I).
const (
	MethodExact     ExtractMethod = "exact"
	MethodHeuristic ExtractMethod = "heuristic"
)

// Confidence constants matching spec §4.I's fixed per-method confidences.
const (
	ConfidenceExact      = 0.9
	ConfidenceHeuristic  = 0.7
	ConfidenceReferences = 0.5
)

// Range is the line span an import statement or reference occupies.
type Range struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`
}

// Import is one extracted import statement, prior to resolution.
type Import struct {
	Module     string        `json:"module"`
	Range      Range         `json:"range"`
	Language   Language      `json:"language"`
	Kind       string        `json:"kind"`
	Method     ExtractMethod `json:"method"`
	Confidence float64       `json:"confidence"`
}

// NodeKind distinguishes a file node from a module-specifier node.
type NodeKind string

// Node kinds.
const (
	NodeFile   NodeKind = "file"
	NodeModule NodeKind = "module"
)

// Node is one graph vertex: either a bundle-relative file or an
// as-yet-unresolved module specifier.
type Node struct {
	ID       string   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Language Language `json:"language,omitempty"`
}

// EdgeType enumerates the graph's edge kinds.
type EdgeType string

// Edge types (spec §4.I).
const (
	EdgeImports         EdgeType = "imports"
	EdgeImportsResolved EdgeType = "imports_resolved"
	EdgeReferences      EdgeType = "references"
)

// Edge is one directed graph edge.
type Edge struct {
	From       string        `json:"from"`
	To         string        `json:"to"`
	Type       EdgeType      `json:"type"`
	Method     ExtractMethod `json:"method"`
	Confidence float64       `json:"confidence"`
}

// Facts is the graph's node/edge set, stored as flat tagged arrays rather
// than a cyclic in-memory object graph (spec §9 design note: "model cyclic
// graphs as flat arrays of nodes/edges with integer or string ids").
type Facts struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// HighValueModuleRole classifies a file's structural role in the graph.
type HighValueModuleRole string

// Roles (spec §4.I global mode step 4).
const (
	RoleHighCoupling HighValueModuleRole = "high_coupling"
	RoleHub          HighValueModuleRole = "hub"
	RoleEntryPoint   HighValueModuleRole = "entry_point"
)

// HighValueModule is one file flagged as structurally significant.
type HighValueModule struct {
	Path            string              `json:"path"`
	Role            HighValueModuleRole `json:"role"`
	ImportedByCount int                 `json:"importedByCount"`
	ImportsCount    int                 `json:"importsCount"`
}

// Stats summarizes the produced graph's size.
type Stats struct {
	NodeCount int `json:"nodeCount"`
	EdgeCount int `json:"edgeCount"`
}

// Signals carries the graph's derived, non-structural outputs.
type Signals struct {
	Stats             Stats             `json:"stats"`
	Warnings          []string          `json:"warnings,omitempty"`
	HighValueModules  []HighValueModule `json:"highValueModules,omitempty"`
}

// LangCoverage is one language's slice of the coverage report.
type LangCoverage struct {
	Scanned int `json:"scanned"`
	Parsed  int `json:"parsed"`
	Edges   int `json:"edges"`
}

// SkippedFile records one file excluded from global-mode scanning.
type SkippedFile struct {
	Path   string `json:"path"`
	Size   int64  `json:"size,omitempty"`
	Reason string `json:"reason"`
}

// CoverageReport summarizes what the engine scanned/parsed and whether it
// was truncated by a budget (spec §4.I).
type CoverageReport struct {
	ScannedFilesCount int                     `json:"scannedFilesCount"`
	ParsedFilesCount  int                     `json:"parsedFilesCount"`
	PerLanguage       map[string]LangCoverage `json:"perLanguage,omitempty"`
	PerDir            map[string]int          `json:"perDir,omitempty"`
	SkippedFiles      []SkippedFile           `json:"skippedFiles,omitempty"`
	Truncated         bool                    `json:"truncated"`
	TruncatedReason   string                  `json:"truncatedReason,omitempty"`
	Limits            config.GraphBudgets     `json:"limits"`
}

// Mode is the generation mode.
type Mode string

// Modes.
const (
	ModeTarget Mode = "target"
	ModeGlobal Mode = "global"
)

// Meta carries the request parameters and provenance of a generated graph.
type Meta struct {
	BundleID   string `json:"bundleId"`
	Mode       Mode   `json:"mode"`
	TargetFile string `json:"targetFile,omitempty"`
	FromCache  bool   `json:"fromCache,omitempty"`
}

// Result is the dependency graph engine's unified output schema, shared by
// both target and global mode (spec §4.I).
type Result struct {
	Meta           Meta           `json:"meta"`
	Facts          Facts          `json:"facts"`
	Signals        Signals        `json:"signals"`
	CoverageReport CoverageReport `json:"coverageReport"`
	Mermaid        string         `json:"mermaid,omitempty"`
}

// FileSizeStrategy controls global-mode handling of oversized files.
type FileSizeStrategy string

// Strategies (spec §4.I global mode step 2).
const (
	FileSizeSkip     FileSizeStrategy = "skip"
	FileSizeTruncate FileSizeStrategy = "truncate"
)

// Options parameterizes a Generate call.
type Options struct {
	// TargetFile is a bundle-relative path; when set, target mode runs.
	TargetFile string

	// Symbol, when set alongside EdgeTypes=="all", triggers the FTS-backed
	// references search in target mode.
	Symbol    string
	EdgeTypes string

	Budgets          config.GraphBudgets
	MaxFileSizeBytes int64
	FileSizeStrategy FileSizeStrategy
	UseExactImports  bool

	// Force bypasses the global-mode dependency-graph.json cache.
	Force bool
}
