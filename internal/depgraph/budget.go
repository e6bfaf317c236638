package depgraph

import (
	"time"

	"github.com/Sumatoshi-tech/preflight/internal/config"
)

// budgetTracker enforces the maxFiles/maxNodes/maxEdges/timeBudgetMs limits
// with a single checkBudget() predicate, per spec §4.I: "all iteration uses
// sorted inputs for reproducibility" and truncation is reported, never a
// hard abort.
type budgetTracker struct {
	limits config.GraphBudgets
	start  time.Time

	files, nodes, edges int

	truncated       bool
	truncatedReason string
}

func newBudgetTracker(limits config.GraphBudgets) *budgetTracker {
	return &budgetTracker{limits: limits, start: time.Now()}
}

// checkBudget reports whether the caller may continue, tripping (and
// latching) truncation the first time any limit is exceeded. context names
// the operation in progress when the time budget is the cause, per spec's
// `timeBudget exceeded during X` reason format.
func (t *budgetTracker) checkBudget(context string) bool {
	if t.truncated {
		return false
	}

	switch {
	case t.limits.MaxFiles > 0 && t.files >= t.limits.MaxFiles:
		t.trip("maxFiles")
	case t.limits.MaxNodes > 0 && t.nodes >= t.limits.MaxNodes:
		t.trip("maxNodes")
	case t.limits.MaxEdges > 0 && t.edges >= t.limits.MaxEdges:
		t.trip("maxEdges reached")
	case t.limits.TimeBudgetMs > 0 && time.Since(t.start) >= time.Duration(t.limits.TimeBudgetMs)*time.Millisecond:
		t.trip("timeBudget exceeded during " + context)
	}

	return !t.truncated
}

func (t *budgetTracker) trip(reason string) {
	t.truncated = true
	t.truncatedReason = reason
}

func (t *budgetTracker) countFile() { t.files++ }

func (t *budgetTracker) countNodes(n int) { t.nodes += n }

func (t *budgetTracker) countEdges(n int) { t.edges += n }
