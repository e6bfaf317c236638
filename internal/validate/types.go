// Package validate implements the completeness Validator, the Repair
// state machine, and the Claim validator (spec §4.K): checking a bundle
// for missing or empty derived artifacts, rebuilding what it can without
// re-fetching repos, and verifying a claim's evidence against the files
// it cites.
package validate

import "github.com/Sumatoshi-tech/preflight/internal/trace"

// Result is the completeness Validator's report.
type Result struct {
	IsValid           bool
	MissingComponents []string
}

// Mode selects whether Repair only reports or also fixes.
type Mode string

// Repair modes.
const (
	ModeValidate Mode = "validate"
	ModeRepair   Mode = "repair"
)

// RepairResult is the outcome of a Repair call (spec §3.N RepairResult).
type RepairResult struct {
	Validated bool

	// MissingComponents carries Validate's report whenever the bundle
	// isn't (or wasn't, before repair) complete, so ModeValidate callers
	// see what's missing even though they asked for a report, not a fix.
	MissingComponents []string

	Repaired        []string
	UnfixableIssues []string
	Warnings        []string
}

// Severity classifies a claim-validation issue.
type Severity string

// Issue severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is one finding raised against a Claim (spec §4.K Claim validator).
type Issue struct {
	Severity      Severity
	Code          string
	Message       string
	ClaimID       string
	EvidenceIndex int
	File          string
}

// Claim validator issue codes.
const (
	CodeEvidenceFileMissing      = "EVIDENCE_FILE_MISSING"
	CodeEvidenceRangeOutOfBounds = "EVIDENCE_RANGE_OUT_OF_BOUNDS"
	CodeEvidenceSnippetMismatch  = "EVIDENCE_SNIPPET_MISMATCH"
	CodeEvidenceHashMismatch     = "EVIDENCE_HASH_MISMATCH"
	CodeClaimNoEvidence          = "CLAIM_NO_EVIDENCE"
)

// Status is a Claim's support state.
type Status string

// Claim statuses.
const (
	ClaimSupported Status = "supported"
	ClaimInferred  Status = "inferred"
	ClaimUnknown   Status = "unknown"
)

// Claim is a derived assertion carrying evidence pointers (spec §3).
type Claim struct {
	ID          string
	Text        string
	Confidence  float64
	Kind        string
	Status      Status
	Evidence    []trace.Evidence
	WhyInferred string
}

// ClaimReport is the aggregate outcome of validating a set of Claims.
type ClaimReport struct {
	Issues        []Issue
	TotalClaims   int
	ValidClaims   int
	InvalidClaims int
	Passed        bool
}
