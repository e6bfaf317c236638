package validate_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/preflight/internal/dedup"
	"github.com/Sumatoshi-tech/preflight/internal/external"
	"github.com/Sumatoshi-tech/preflight/internal/manifest"
	"github.com/Sumatoshi-tech/preflight/internal/trace"
	"github.com/Sumatoshi-tech/preflight/internal/validate"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func completeBundle(t *testing.T) string {
	t.Helper()

	root := t.TempDir()

	writeFile(t, root, "manifest.json", `{"schemaVersion":1}`)
	writeFile(t, root, "indexes/search.sqlite3", "not-empty")
	writeFile(t, root, "START_HERE.md", "# start\n")
	writeFile(t, root, "AGENTS.md", "# agents\n")
	writeFile(t, root, "OVERVIEW.md", "# overview\n")
	writeFile(t, root, "repos/o/r/norm/a.go", "package p\n")

	return root
}

func TestValidatePassesOnCompleteBundle(t *testing.T) {
	root := completeBundle(t)

	result, err := validate.Validate(root)
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Empty(t, result.MissingComponents)
}

func TestValidateReportsEachMissingComponent(t *testing.T) {
	root := t.TempDir()

	result, err := validate.Validate(root)
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.MissingComponents, "manifest.json")
	assert.Contains(t, result.MissingComponents, filepath.Join("indexes", "search.sqlite3"))
	assert.Contains(t, result.MissingComponents, "START_HERE.md")
}

func TestValidateTreatsEmptyFileAsMissing(t *testing.T) {
	root := completeBundle(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "OVERVIEW.md"), nil, 0o644))

	result, err := validate.Validate(root)
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.MissingComponents, "OVERVIEW.md")
}

type fixedGuideGenerator struct{}

func (fixedGuideGenerator) Generate(_ context.Context, b external.BundleView) (external.Guides, error) {
	return external.Guides{
		StartHere: "# start for " + b.BundleID + "\n",
		Agents:    "# agents\n",
		Overview:  "# overview\n",
	}, nil
}

func TestRepairValidateModeReportsWithoutFixing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "manifest.json", `{"schemaVersion":1}`)
	writeFile(t, root, "repos/o/r/norm/a.go", "package p\n")

	result, err := validate.Repair(context.Background(), validate.RepairOptions{
		Mode:       validate.ModeValidate,
		BundleRoot: root,
		BundleID:   "bundle-1",
	})
	require.NoError(t, err)
	assert.False(t, result.Validated)
	assert.Empty(t, result.Repaired)
	assert.Contains(t, result.MissingComponents, filepath.Join("indexes", "search.sqlite3"))
	assert.Contains(t, result.MissingComponents, "START_HERE.md")
	assert.Contains(t, result.MissingComponents, "OVERVIEW.md")

	_, statErr := os.Stat(filepath.Join(root, "START_HERE.md"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRepairModeLeavesRemainingGapsInMissingComponents(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "manifest.json", `{"schemaVersion":1}`)
	writeFile(t, root, "repos/o/r/norm/a.go", "package p\n\nfunc F() {}\n")

	manifestPath := filepath.Join(root, "manifest.json")
	m := manifest.New("bundle-1", "fp-1")
	require.NoError(t, manifest.Save(manifestPath, m))

	result, err := validate.Repair(context.Background(), validate.RepairOptions{
		Mode:       validate.ModeRepair,
		BundleRoot: root,
		BundleID:   "bundle-1",
	})
	require.NoError(t, err)
	assert.False(t, result.Validated)
	assert.Contains(t, result.Repaired, "index")
	assert.Contains(t, result.MissingComponents, "START_HERE.md")
	assert.Contains(t, result.MissingComponents, "OVERVIEW.md")
	assert.NotContains(t, result.MissingComponents, filepath.Join("indexes", "search.sqlite3"))
}

func TestRepairRebuildsIndexAndGuides(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "manifest.json", `{"schemaVersion":1}`)
	writeFile(t, root, "repos/o/r/norm/a.go", "package p\n\nfunc F() {}\n")

	manifestPath := filepath.Join(root, "manifest.json")
	m := manifest.New("bundle-1", "fp-1")
	require.NoError(t, manifest.Save(manifestPath, m))

	store := dedup.NewStore(t.TempDir(), func(string) bool { return true })

	result, err := validate.Repair(context.Background(), validate.RepairOptions{
		Mode:           validate.ModeRepair,
		BundleRoot:     root,
		BundleID:       "bundle-1",
		GuideGenerator: fixedGuideGenerator{},
		Dedup:          store,
	})
	require.NoError(t, err)
	assert.True(t, result.Validated)
	assert.Contains(t, result.Repaired, "index")
	assert.Contains(t, result.Repaired, "guides")
	assert.Contains(t, result.Repaired, "overview")

	data, err := os.ReadFile(filepath.Join(root, "START_HERE.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "bundle-1")

	after, err := validate.Validate(root)
	require.NoError(t, err)
	assert.True(t, after.IsValid)

	reloaded, err := manifest.Load(manifestPath)
	require.NoError(t, err)
	assert.True(t, reloaded.UpdatedAt.After(m.CreatedAt) || reloaded.UpdatedAt.Equal(m.CreatedAt))
}

func TestRepairFlagsEmptyReposAsUnfixable(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "manifest.json", `{"schemaVersion":1}`)

	result, err := validate.Repair(context.Background(), validate.RepairOptions{
		Mode:       validate.ModeRepair,
		BundleRoot: root,
		BundleID:   "bundle-1",
	})
	require.NoError(t, err)
	require.Len(t, result.UnfixableIssues, 1)
	assert.Contains(t, result.UnfixableIssues[0], "repos/ is empty")
}

func TestValidateClaimsDetectsMissingFileAndSnippetMismatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "repos/o/r/norm/a.go", "package p\n\nfunc F() int {\n\treturn 1\n}\n")

	claims := []validate.Claim{
		{
			ID:     "claim-missing-file",
			Status: validate.ClaimUnknown,
			Evidence: []trace.Evidence{
				{File: "repos/o/r/norm/missing.go", Range: trace.Range{StartLine: 1, EndLine: 1}},
			},
		},
		{
			ID:     "claim-bad-snippet",
			Status: validate.ClaimInferred,
			Evidence: []trace.Evidence{
				{
					File:    "repos/o/r/norm/a.go",
					Range:   trace.Range{StartLine: 3, StartCol: 0, EndLine: 3, EndCol: 12},
					Snippet: "func Wrong()",
				},
			},
		},
		{
			ID:     "claim-good",
			Status: validate.ClaimSupported,
			Evidence: []trace.Evidence{
				{
					File:    "repos/o/r/norm/a.go",
					Range:   trace.Range{StartLine: 3, StartCol: 0, EndLine: 3, EndCol: 12},
					Snippet: "func F() int",
				},
			},
		},
	}

	report := validate.ValidateClaims(root, claims)

	assert.Equal(t, 3, report.TotalClaims)
	assert.Equal(t, 1, report.ValidClaims)
	assert.Equal(t, 2, report.InvalidClaims)
	assert.False(t, report.Passed)

	var codes []string
	for _, issue := range report.Issues {
		codes = append(codes, issue.Code)
	}

	assert.Contains(t, codes, validate.CodeEvidenceFileMissing)
	assert.Contains(t, codes, validate.CodeEvidenceSnippetMismatch)
}

func TestValidateClaimsDetectsHashMismatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "repos/o/r/norm/a.go", "package p\n")

	claims := []validate.Claim{{
		ID: "claim-hash",
		Evidence: []trace.Evidence{{
			File:          "repos/o/r/norm/a.go",
			Range:         trace.Range{StartLine: 1, StartCol: 0, EndLine: 1, EndCol: 7},
			Snippet:       "package",
			SnippetSha256: "deadbeef",
		}},
	}}

	report := validate.ValidateClaims(root, claims)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, validate.CodeEvidenceHashMismatch, report.Issues[0].Code)
}

func TestValidateClaimsRejectsClaimWithNoEvidence(t *testing.T) {
	root := t.TempDir()

	report := validate.ValidateClaims(root, []validate.Claim{{ID: "claim-empty"}})
	require.Len(t, report.Issues, 1)
	assert.Equal(t, validate.CodeClaimNoEvidence, report.Issues[0].Code)
	assert.Equal(t, 1, report.InvalidClaims)
}
