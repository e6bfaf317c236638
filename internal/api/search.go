package api

import (
	"github.com/Sumatoshi-tech/preflight/internal/bundleerrors"
	"github.com/Sumatoshi-tech/preflight/internal/fts"
	"github.com/Sumatoshi-tech/preflight/internal/storage"
)

// SearchRequest is search's input (spec §6 `search`).
type SearchRequest struct {
	Query       string   `json:"query"`
	Scope       string   `json:"scope,omitempty"`
	Extensions  []string `json:"extensions,omitempty"`
	GroupByFile bool     `json:"groupByFile,omitempty"`
	TokenBudget int      `json:"tokenBudget,omitempty"`
	Limit       int      `json:"limit,omitempty"`
}

// SearchResult is search's return shape: Hits is populated when
// GroupByFile is false, Grouped when it's true.
type SearchResult struct {
	Hits    []fts.SearchHit  `json:"hits,omitempty"`
	Grouped []fts.GroupedHit `json:"grouped,omitempty"`
}

// Search runs a full-text query against bundleID's search index (spec
// §6 `search`, spec §4.C).
func (e *Env) Search(bundleID string, req SearchRequest) (SearchResult, error) {
	root, err := e.bundleRoot(bundleID)
	if err != nil {
		return SearchResult{}, err
	}

	db, err := fts.Open(storage.GetPaths(root, bundleID).SearchDB)
	if err != nil {
		return SearchResult{}, bundleerrors.IndexCorrupt(bundleID, err)
	}
	defer db.Close()

	scope := fts.Scope(req.Scope)
	if scope == "" {
		scope = fts.ScopeAll
	}

	if !req.GroupByFile && len(req.Extensions) == 0 && req.TokenBudget == 0 {
		hits, err := fts.Search(db, req.Query, scope, req.Limit, root)
		if err != nil {
			return SearchResult{}, bundleerrors.OperationFailed("search", err)
		}

		return SearchResult{Hits: hits}, nil
	}

	hits, grouped, err := fts.SearchAdvanced(db, req.Query, fts.AdvancedOptions{
		Scope:       scope,
		Extensions:  req.Extensions,
		GroupByFile: req.GroupByFile,
		TokenBudget: req.TokenBudget,
		BundleRoot:  root,
	})
	if err != nil {
		return SearchResult{}, bundleerrors.OperationFailed("search", err)
	}

	return SearchResult{Hits: hits, Grouped: grouped}, nil
}
