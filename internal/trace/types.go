// Package trace implements the SQLite-backed typed edge graph described in
// spec §4.J: upsert with mandatory-evidence validation, filtered query with
// empty-result reason classification, naming-convention suggestion
// heuristics, and JSON export.
package trace

import "github.com/Sumatoshi-tech/preflight/internal/bundleerrors"

// EdgeType enumerates the trace graph's edge kinds (spec §3's TraceEdge).
type EdgeType string

// Edge types.
const (
	TestedBy     EdgeType = "tested_by"
	Documents    EdgeType = "documents"
	Implements   EdgeType = "implements"
	RelatesTo    EdgeType = "relates_to"
	EntrypointOf EdgeType = "entrypoint_of"
	DependsOn    EdgeType = "depends_on"
)

// mandatoryEvidence is the set of edge types that must carry ≥1 source
// evidence entry to be accepted, per spec §3's TraceEdge invariant.
var mandatoryEvidence = map[EdgeType]bool{
	TestedBy:   true,
	Documents:  true,
	Implements: true,
}

var validEdgeTypes = map[EdgeType]bool{
	TestedBy: true, Documents: true, Implements: true,
	RelatesTo: true, EntrypointOf: true, DependsOn: true,
}

// Method records how an edge was discovered.
type Method string

// Methods.
const (
	MethodExact     Method = "exact"
	MethodHeuristic Method = "heuristic"
)

// Range is the evidence snippet's location within a file.
type Range struct {
	StartLine int `json:"startLine"`
	StartCol  int `json:"startCol"`
	EndLine   int `json:"endLine"`
	EndCol    int `json:"endCol"`
}

// Evidence grounds an edge (or claim) in a concrete file location.
type Evidence struct {
	File          string `json:"file"`
	Range         Range  `json:"range"`
	URI           string `json:"uri,omitempty"`
	Snippet       string `json:"snippet,omitempty"`
	SnippetSha256 string `json:"snippetSha256,omitempty"`
	Note          string `json:"note,omitempty"`
}

// EntityRef names one endpoint of a trace edge: a kind (file/symbol/module)
// plus a stable id within that kind.
type EntityRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Edge is one typed, evidenced relationship between two entities.
type Edge struct {
	ID         string     `json:"id"`
	Source     EntityRef  `json:"source"`
	Target     EntityRef  `json:"target"`
	Type       EdgeType   `json:"type"`
	Confidence float64    `json:"confidence"`
	Method     Method     `json:"method"`
	Sources    []Evidence `json:"sources,omitempty"`
	CreatedAt  string     `json:"createdAt,omitempty"`
	UpdatedAt  string     `json:"updatedAt,omitempty"`
}

// BlockedEdge explains why one edge in an Upsert batch was rejected.
type BlockedEdge struct {
	Index      int                    `json:"index"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	NextAction *bundleerrors.NextAction `json:"nextAction,omitempty"`
}

// UpsertOptions controls Upsert's write behavior.
type UpsertOptions struct {
	DryRun bool
}

// UpsertResult summarizes one Upsert call.
type UpsertResult struct {
	Upserted int           `json:"upserted"`
	IDs      []string      `json:"ids"`
	Warnings []string      `json:"warnings,omitempty"`
	Blocked  []BlockedEdge `json:"blocked,omitempty"`
	Preview  []Edge        `json:"preview,omitempty"`
}

// QueryFilters narrows a Query call. Zero-value fields are unfiltered.
type QueryFilters struct {
	SourceType    string
	SourceID      string
	TargetType    string
	TargetID      string
	Type          EdgeType
	MinConfidence float64
	MaxConfidence float64
	Limit         int
}

// QueryResult is Query's return value, with a classified reason on an
// empty result set.
type QueryResult struct {
	Edges     []Edge   `json:"edges"`
	Reason    string   `json:"reason,omitempty"`
	NextSteps []string `json:"nextSteps,omitempty"`
}

// SuggestOptions parameterizes Suggest.
type SuggestOptions struct {
	Scope         string
	EdgeType      EdgeType
	MinConfidence float64
	Limit         int
}

// Suggestion is one candidate edge Suggest proposes, not yet written.
type Suggestion struct {
	Source        EntityRef `json:"source"`
	Target        EntityRef `json:"target"`
	Confidence    float64   `json:"confidence"`
	Method        Method    `json:"method"`
	Why           string    `json:"why"`
	UpsertPayload Edge      `json:"upsertPayload"`
}

// SuggestResult is Suggest's return value.
type SuggestResult struct {
	Suggestions []Suggestion   `json:"suggestions"`
	Stats       map[string]int `json:"stats"`
}
