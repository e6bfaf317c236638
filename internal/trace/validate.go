package trace

import (
	"fmt"

	"github.com/Sumatoshi-tech/preflight/internal/bundleerrors"
)

// validateEdge checks one edge against spec §4.J's upsert invariants,
// returning a populated BlockedEdge when the edge must be rejected.
func validateEdge(index int, e Edge) *BlockedEdge {
	if !validEdgeTypes[e.Type] {
		return &BlockedEdge{
			Index:   index,
			Code:    "INVALID_EDGE_TYPE",
			Message: fmt.Sprintf("unrecognized edge type %q", e.Type),
		}
	}

	if e.Confidence < 0 || e.Confidence > 1 {
		return &BlockedEdge{
			Index:   index,
			Code:    "INVALID_CONFIDENCE",
			Message: fmt.Sprintf("confidence %v is outside [0,1]", e.Confidence),
		}
	}

	if e.Method != MethodExact && e.Method != MethodHeuristic {
		return &BlockedEdge{
			Index:   index,
			Code:    "INVALID_METHOD",
			Message: fmt.Sprintf("unrecognized method %q", e.Method),
		}
	}

	if mandatoryEvidence[e.Type] && len(e.Sources) == 0 {
		missing := bundleerrors.MissingEvidence(string(e.Type), entityKey(e.Source), entityKey(e.Target))

		return &BlockedEdge{
			Index:   index,
			Code:    string(missing.Code),
			Message: missing.Message,
			NextAction: &bundleerrors.NextAction{
				ToolName: "trace_upsert",
				Args:     map[string]any{"edgeIndex": index},
				Reason:   "attach at least one source evidence entry and retry",
			},
		}
	}

	if e.Method == MethodExact {
		for i, src := range e.Sources {
			if src.Snippet == "" {
				return &BlockedEdge{
					Index: index,
					Code:  "METHOD_SOURCE_MISMATCH",
					Message: fmt.Sprintf(
						"method=exact requires every source to carry a snippet; source %d has none", i),
				}
			}
		}
	}

	return nil
}

func entityKey(r EntityRef) string {
	return r.Type + ":" + r.ID
}
