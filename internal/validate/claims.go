package validate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sumatoshi-tech/preflight/internal/trace"
)

// ValidateClaims checks every evidence entry of every claim against the
// files it cites (spec §4.K Claim validator): the file must exist within
// the bundle, the range must lie inside the file's bounds, a supplied
// snippet must match the file content at that range, and a supplied
// snippetSha256 must equal the snippet's SHA-256.
func ValidateClaims(bundleRoot string, claims []Claim) ClaimReport {
	report := ClaimReport{TotalClaims: len(claims)}

	for _, c := range claims {
		issues := validateClaim(bundleRoot, c)

		report.Issues = append(report.Issues, issues...)

		if hasErrorIssue(issues) {
			report.InvalidClaims++
		} else {
			report.ValidClaims++
		}
	}

	report.Passed = report.InvalidClaims == 0

	return report
}

func hasErrorIssue(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}

	return false
}

func validateClaim(bundleRoot string, c Claim) []Issue {
	if len(c.Evidence) == 0 {
		return []Issue{{
			Severity: SeverityError,
			Code:     CodeClaimNoEvidence,
			Message:  "claim has no evidence entries",
			ClaimID:  c.ID,
		}}
	}

	var issues []Issue

	for i, ev := range c.Evidence {
		issues = append(issues, validateEvidence(bundleRoot, c.ID, i, ev)...)
	}

	return issues
}

func validateEvidence(bundleRoot, claimID string, index int, ev trace.Evidence) []Issue {
	absPath := filepath.Join(bundleRoot, filepath.FromSlash(ev.File))

	var content []byte

	rel, err := filepath.Rel(bundleRoot, absPath)
	if err == nil && (rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
		err = os.ErrNotExist
	}

	if err == nil {
		content, err = os.ReadFile(absPath)
	}

	if err != nil {
		return []Issue{{
			Severity:      SeverityError,
			Code:          CodeEvidenceFileMissing,
			Message:       fmt.Sprintf("evidence file does not exist in bundle: %s", ev.File),
			ClaimID:       claimID,
			EvidenceIndex: index,
			File:          ev.File,
		}}
	}

	lines := strings.Split(string(content), "\n")

	var issues []Issue

	if !rangeInBounds(ev.Range, lines) {
		issues = append(issues, Issue{
			Severity:      SeverityError,
			Code:          CodeEvidenceRangeOutOfBounds,
			Message:       fmt.Sprintf("evidence range is outside %s's bounds", ev.File),
			ClaimID:       claimID,
			EvidenceIndex: index,
			File:          ev.File,
		})

		return issues
	}

	actual := extractRange(ev.Range, lines)

	if ev.Snippet != "" && actual != ev.Snippet {
		issues = append(issues, Issue{
			Severity:      SeverityError,
			Code:          CodeEvidenceSnippetMismatch,
			Message:       fmt.Sprintf("evidence snippet does not match %s at the given range", ev.File),
			ClaimID:       claimID,
			EvidenceIndex: index,
			File:          ev.File,
		})
	}

	if ev.SnippetSha256 != "" {
		sum := sha256.Sum256([]byte(ev.Snippet))
		if hex.EncodeToString(sum[:]) != ev.SnippetSha256 {
			issues = append(issues, Issue{
				Severity:      SeverityError,
				Code:          CodeEvidenceHashMismatch,
				Message:       fmt.Sprintf("evidence snippetSha256 does not match its snippet for %s", ev.File),
				ClaimID:       claimID,
				EvidenceIndex: index,
				File:          ev.File,
			})
		}
	}

	return issues
}

// rangeInBounds reports whether r's line span lies within lines (1-indexed,
// inclusive), and whether its columns fit the referenced lines' lengths.
func rangeInBounds(r trace.Range, lines []string) bool {
	if r.StartLine < 1 || r.EndLine < r.StartLine || r.EndLine > len(lines) {
		return false
	}

	startLine := lines[r.StartLine-1]
	endLine := lines[r.EndLine-1]

	if r.StartCol < 0 || r.StartCol > len(startLine) {
		return false
	}

	if r.EndCol < 0 || r.EndCol > len(endLine) {
		return false
	}

	if r.StartLine == r.EndLine && r.StartCol > r.EndCol {
		return false
	}

	return true
}

// extractRange reconstructs the text spanned by r out of lines, joining
// with "\n" when the range crosses multiple lines.
func extractRange(r trace.Range, lines []string) string {
	if r.StartLine == r.EndLine {
		line := lines[r.StartLine-1]

		return line[r.StartCol:r.EndCol]
	}

	var b strings.Builder

	b.WriteString(lines[r.StartLine-1][r.StartCol:])

	for l := r.StartLine + 1; l < r.EndLine; l++ {
		b.WriteString("\n")
		b.WriteString(lines[l-1])
	}

	b.WriteString("\n")
	b.WriteString(lines[r.EndLine-1][:r.EndCol])

	return b.String()
}
