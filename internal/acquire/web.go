package acquire

import (
	"context"
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/preflight/internal/bundleerrors"
	"github.com/Sumatoshi-tech/preflight/internal/manifest"
)

// Web defers to an external WebCrawler implementation, receiving
// normalized pages already written under the bundle root and a content
// hash of the concatenated page hashes (spec §4.G).
func Web(ctx context.Context, req WebRequest) (Acquired, error) {
	if req.Crawler == nil {
		return Acquired{}, bundleerrors.CrawlError("no web crawler configured", nil)
	}

	site, err := req.Crawler.Crawl(ctx, req.URL, req.Config)
	if err != nil {
		return Acquired{}, bundleerrors.CrawlError(fmt.Sprintf("crawl %s failed", req.URL), err)
	}

	return Acquired{
		RepoRoot: req.OutputDir,
		Record: manifest.RepoRecord{
			ID:          "web/" + req.URL,
			Kind:        manifest.RepoKindCrawl,
			FetchedAt:   time.Now().UTC(),
			ContentHash: site.ContentHash,
		},
	}, nil
}
