// Package manifest defines the bundle manifest schema and the fingerprint
// computation used for dedup identity, following codefang's JSON-state
// persistence conventions via pkg/persist.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// SchemaVersion is the current manifest schema version.
const SchemaVersion = 1

// RepoKind identifies how a repo entry was acquired.
type RepoKind string

// Repo source kinds.
const (
	RepoKindGit     RepoKind = "git"
	RepoKindArchive RepoKind = "archive"
	RepoKindLocal   RepoKind = "local"
	RepoKindCrawl   RepoKind = "crawl"
)

// RepoRecord is the manifest entry for one ingested repo (spec §3).
type RepoRecord struct {
	ID          string    `json:"id"`
	Kind        RepoKind  `json:"kind"`
	HeadRev     string    `json:"headRev,omitempty"`
	FetchedAt   time.Time `json:"fetchedAt"`
	Notes       []string  `json:"notes,omitempty"`
	RefUsed     string    `json:"refUsed,omitempty"`
	ContentHash string    `json:"contentHash,omitempty"`
}

// SkippedFileEntry records a file excluded during ingestion (spec §3).
type SkippedFileEntry struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Size   int64  `json:"size,omitempty"`
}

// BundleType distinguishes a repo bundle from a document bundle.
type BundleType string

// Bundle type tags.
const (
	BundleTypeRepo     BundleType = "repo"
	BundleTypeDocument BundleType = "document"
)

// Manifest is the single JSON file describing a bundle's identity, contents,
// and provenance (spec §4.D).
type Manifest struct {
	SchemaVersion int                `json:"schemaVersion"`
	BundleID      string             `json:"bundleId"`
	Fingerprint   string             `json:"fingerprint"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
	Repos         []RepoRecord       `json:"repos"`
	SearchIndex   string             `json:"searchIndex,omitempty"`
	Skipped       []SkippedFileEntry `json:"skipped,omitempty"`
	Type          BundleType         `json:"type,omitempty"`
	Tags          []string           `json:"tags,omitempty"`
	DisplayName   string             `json:"displayName,omitempty"`
	PrimaryLang   string             `json:"primaryLang,omitempty"`
}

// RepoInput is one of the three repo-entry variants accepted on bundle
// creation, before acquisition (spec §3).
type RepoInput struct {
	// Kind selects which fields apply: "github", "local", or "web".
	Kind string

	// GitHub variant.
	Owner string
	Repo  string
	Ref   string

	// Local variant.
	RepoID       string
	AbsolutePath string

	// Web variant.
	URL    string
	Config map[string]any
}

// canonicalRepo is the canonicalized form of a RepoInput used inside the
// fingerprint's JSON structure (spec §4.D).
type canonicalRepo struct {
	Kind string `json:"kind"`
	Repo string `json:"repo,omitempty"`
	Ref  string `json:"ref,omitempty"`
	Path string `json:"path,omitempty"`
	URL  string `json:"url,omitempty"`
}

// canonicalStructure is the exact JSON shape hashed to produce the fingerprint.
type canonicalStructure struct {
	SchemaVersion int             `json:"schemaVersion"`
	Repos         []canonicalRepo `json:"repos"`
	Libraries     []string        `json:"libraries"`
	Topics        []string        `json:"topics"`
}

// Canonicalize reduces a RepoInput to its canonical form per spec §4.D:
// GitHub owner/repo lowercased with ref defaulting to "default"; local paths
// resolved (by the caller) and lowercased; web URLs normalized (by the
// caller) and passed through.
func Canonicalize(in RepoInput) (canonicalRepo, error) {
	switch in.Kind {
	case "github":
		if in.Owner == "" || in.Repo == "" {
			return canonicalRepo{}, fmt.Errorf("github repo input requires owner and repo")
		}

		ref := in.Ref
		if ref == "" {
			ref = "default"
		}

		return canonicalRepo{
			Kind: "github",
			Repo: strings.ToLower(in.Owner + "/" + in.Repo),
			Ref:  strings.ToLower(ref),
		}, nil

	case "local":
		if in.AbsolutePath == "" {
			return canonicalRepo{}, fmt.Errorf("local repo input requires absolutePath")
		}

		return canonicalRepo{
			Kind: "local",
			Path: strings.ToLower(in.AbsolutePath),
		}, nil

	case "web":
		if in.URL == "" {
			return canonicalRepo{}, fmt.Errorf("web repo input requires url")
		}

		return canonicalRepo{
			Kind: "web",
			URL:  in.URL,
		}, nil

	default:
		return canonicalRepo{}, fmt.Errorf("unknown repo input kind %q", in.Kind)
	}
}

// Fingerprint computes the SHA-256 hex fingerprint over the canonicalized,
// sorted bundle inputs (spec §3, §4.D). Two create-requests with the same
// fingerprint are considered the same bundle.
func Fingerprint(repos []RepoInput, libraries, topics []string) (string, error) {
	canonRepos := make([]canonicalRepo, 0, len(repos))

	for _, r := range repos {
		cr, err := Canonicalize(r)
		if err != nil {
			return "", fmt.Errorf("canonicalize repo: %w", err)
		}

		canonRepos = append(canonRepos, cr)
	}

	sort.Slice(canonRepos, func(i, j int) bool {
		return repoSortKey(canonRepos[i]) < repoSortKey(canonRepos[j])
	})

	libs := lowerSortedCopy(libraries)
	tops := lowerSortedCopy(topics)

	canon := canonicalStructure{
		SchemaVersion: SchemaVersion,
		Repos:         canonRepos,
		Libraries:     libs,
		Topics:        tops,
	}

	encoded, err := json.Marshal(canon)
	if err != nil {
		return "", fmt.Errorf("marshal canonical structure: %w", err)
	}

	sum := sha256.Sum256(encoded)

	return hex.EncodeToString(sum[:]), nil
}

func repoSortKey(r canonicalRepo) string {
	return r.Kind + "\x00" + r.Repo + "\x00" + r.Path + "\x00" + r.URL
}

func lowerSortedCopy(in []string) []string {
	out := make([]string, len(in))

	for i, s := range in {
		out[i] = strings.ToLower(s)
	}

	sort.Strings(out)

	return out
}

// New creates a fresh Manifest for bundleID at the given fingerprint.
func New(bundleID, fingerprint string) *Manifest {
	now := time.Now().UTC()

	return &Manifest{
		SchemaVersion: SchemaVersion,
		BundleID:      bundleID,
		Fingerprint:   fingerprint,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Touch refreshes UpdatedAt.
func (m *Manifest) Touch() {
	m.UpdatedAt = time.Now().UTC()
}
