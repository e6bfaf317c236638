// Package acquire implements the Repo Acquirer: the three variants
// (github, local, web) that each produce a populated repoRoot directory,
// per spec §4.G. GitHub acquisition uses pkg/gitlib (git2go) with an
// archive(zip)-over-HTTP fallback; local resolves and verifies a path;
// web defers to an external WebCrawler implementation.
package acquire

import (
	"context"
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/preflight/internal/external"
	"github.com/Sumatoshi-tech/preflight/internal/manifest"
)

// Acquired is the uniform post-condition of any acquirer variant: a
// directory containing the repo's files, plus provenance for the manifest.
type Acquired struct {
	RepoRoot string
	Record   manifest.RepoRecord
	Warnings []string
}

// GitHubRequest parameterizes a GitHub acquisition.
type GitHubRequest struct {
	Owner       string
	Repo        string
	Ref         string
	CloneDir    string
	CloneTimeout time.Duration
	Progress    func(string)
	// ArchiveFetcher downloads owner/repo[ref].zip and extracts it into dir,
	// returning the ref actually used. Pluggable so tests can avoid real
	// network access; production wiring uses the default HTTP+zip fetcher.
	ArchiveFetcher func(ctx context.Context, owner, repo, ref, dir string) (refUsed string, err error)
}

// LocalRequest parameterizes a local-directory acquisition.
type LocalRequest struct {
	RepoID       string
	AbsolutePath string
	Ref          string
}

// WebRequest parameterizes a web-crawl acquisition.
type WebRequest struct {
	URL       string
	Config    external.CrawlConfig
	Crawler   external.WebCrawler
	OutputDir string
}

func canonicalID(owner, repo string) string {
	return owner + "/" + repo
}
