// Package external defines the narrow seams the bundle lifecycle core
// presents to out-of-scope collaborators (web crawler, guide generator,
// auto-tagger), plus default implementations so the core is independently
// buildable and testable without pulling in MCP/HTTP/RAG/LLM/PDF-VLM/LSP
// dependencies.
package external

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// CrawlConfig parameterizes a web crawl request.
type CrawlConfig struct {
	MaxPages int
	MaxDepth int
	Include  []string
	Exclude  []string
}

// CrawledPage is one page written by the crawler under the bundle's web root.
type CrawledPage struct {
	URL         string
	RelPath     string
	ContentHash string
	FetchedAt   time.Time
}

// CrawledSite is the result of a web crawl: already-normalized pages
// written under the bundle root, plus a content hash of the concatenated
// page hashes (spec §4.G).
type CrawledSite struct {
	Pages       []CrawledPage
	ContentHash string
}

// WebCrawler is implemented by an external crawler; the Repo Acquirer only
// consumes its output.
type WebCrawler interface {
	Crawl(ctx context.Context, url string, cfg CrawlConfig) (CrawledSite, error)
}

// BundleView is the read-only view of a built bundle offered to the guide
// generator and tagger.
type BundleView struct {
	BundleID    string
	Repos       []string
	FileCount   int
	PrimaryLang string
}

// Guides is the set of generated narrative files.
type Guides struct {
	StartHere string
	Agents    string
	Overview  string
}

// GuideGenerator produces START_HERE.md/AGENTS.md/OVERVIEW.md from a built bundle.
type GuideGenerator interface {
	Generate(ctx context.Context, b BundleView) (Guides, error)
}

// Description is the auto-tagging/description result for a bundle.
type Description struct {
	Tags        []string
	DisplayName string
	Summary     string
}

// Tagger auto-tags and describes a bundle from its ingested file set.
type Tagger interface {
	Describe(ctx context.Context, b BundleView) (Description, error)
}

// NoopGuideGenerator produces minimal non-empty guide files so the
// Validator's completeness checks pass without a real generator wired in.
type NoopGuideGenerator struct{}

// Generate implements GuideGenerator with placeholder content.
func (NoopGuideGenerator) Generate(_ context.Context, b BundleView) (Guides, error) {
	return Guides{
		StartHere: "# Start Here\n\nBundle " + b.BundleID + " contains " + strconv.Itoa(b.FileCount) + " files.\n",
		Agents:    "# Agents\n\nNo agent-specific guidance generated for this bundle.\n",
		Overview:  "# Overview\n\nRepos: " + joinOrNone(b.Repos) + "\n",
	}, nil
}

// NoopTagger returns an empty, valid Description.
type NoopTagger struct{}

// Describe implements Tagger with no tags and no summary.
func (NoopTagger) Describe(_ context.Context, _ BundleView) (Description, error) {
	return Description{}, nil
}

// StaticWebCrawler is a test double that returns a fixed CrawledSite,
// useful for exercising the Web acquirer variant without a real crawler.
type StaticWebCrawler struct {
	Site CrawledSite
	Err  error
}

// Crawl implements WebCrawler by returning the configured fixture.
func (s StaticWebCrawler) Crawl(_ context.Context, _ string, _ CrawlConfig) (CrawledSite, error) {
	return s.Site, s.Err
}

func joinOrNone(repos []string) string {
	if len(repos) == 0 {
		return "(none)"
	}

	return strings.Join(repos, ", ")
}
