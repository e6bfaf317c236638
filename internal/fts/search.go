package fts

import (
	"bufio"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const ftsPrefix = "fts:"

// Search runs query against the index and returns hits ordered
// deterministically by score ASC, path ASC, lineNo ASC (spec §4.C).
func Search(db *sql.DB, query string, scope Scope, limit int, bundleRoot string) ([]SearchHit, error) {
	return searchInternal(db, query, scope, limit, nil, bundleRoot)
}

// SearchAdvanced extends Search with extension filtering and optional
// per-file grouping.
func SearchAdvanced(db *sql.DB, query string, opts AdvancedOptions) ([]SearchHit, []GroupedHit, error) {
	limit := opts.TokenBudget
	if limit <= 0 {
		limit = 200
	}

	hits, err := searchInternal(db, query, opts.Scope, limit, opts.Extensions, opts.BundleRoot)
	if err != nil {
		return nil, nil, err
	}

	if !opts.GroupByFile {
		return hits, nil, nil
	}

	return hits, groupByFile(hits), nil
}

func searchInternal(db *sql.DB, query string, scope Scope, limit int, extAllow []string, bundleRoot string) ([]SearchHit, error) {
	matchExpr := toFTSMatch(query)

	sqlQuery := strings.Builder{}
	sqlQuery.WriteString(`
		SELECT l.path, l.repo, l.kind, l.line_no, l.text, bm25(lines_fts) AS score
		FROM lines_fts
		JOIN lines l ON l.id = lines_fts.rowid
		WHERE lines_fts MATCH ?
	`)

	args := []any{matchExpr}

	if scope != "" && scope != ScopeAll {
		sqlQuery.WriteString(" AND l.kind = ?")
		args = append(args, scopeKind(scope))
	}

	if len(extAllow) > 0 {
		sqlQuery.WriteString(" AND (")

		for i, ext := range extAllow {
			if i > 0 {
				sqlQuery.WriteString(" OR ")
			}

			sqlQuery.WriteString("l.path LIKE ?")
			args = append(args, "%"+ext)
		}

		sqlQuery.WriteString(")")
	}

	sqlQuery.WriteString(" ORDER BY score ASC, l.path ASC, l.line_no ASC LIMIT ?")
	args = append(args, limit)

	rows, err := db.Query(sqlQuery.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit

	for rows.Next() {
		var h SearchHit

		if err := rows.Scan(&h.Path, &h.Repo, &h.Kind, &h.LineNo, &h.Snippet, &h.Score); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}

		if bundleRoot != "" {
			h.FunctionContext, h.ClassContext = extractContext(bundleRoot, h.Path, h.LineNo)
		}

		hits = append(hits, h)
	}

	return hits, rows.Err()
}

func scopeKind(scope Scope) string {
	if scope == ScopeDocs {
		return "doc"
	}

	return "code"
}

// toFTSMatch converts the simple public query dialect into an FTS5 MATCH
// expression: raw passthrough when prefixed "fts:", otherwise an AND-of-terms
// with trailing wildcard expansion per term (spec §4.C).
func toFTSMatch(query string) string {
	if strings.HasPrefix(query, ftsPrefix) {
		return strings.TrimPrefix(query, ftsPrefix)
	}

	terms := strings.Fields(query)
	for i, term := range terms {
		terms[i] = term + "*"
	}

	return strings.Join(terms, " AND ")
}

func groupByFile(hits []SearchHit) []GroupedHit {
	order := make([]string, 0)
	byPath := make(map[string]*GroupedHit)

	for _, h := range hits {
		g, ok := byPath[h.Path]
		if !ok {
			g = &GroupedHit{Path: h.Path, TopSnippet: h.Snippet, TopScore: h.Score}
			byPath[h.Path] = g
			order = append(order, h.Path)
		}

		g.HitCount++
		g.Lines = append(g.Lines, h.LineNo)
	}

	grouped := make([]GroupedHit, 0, len(order))
	for _, path := range order {
		grouped = append(grouped, *byPath[path])
	}

	return grouped
}

// extractContext best-effort scans bundleRoot/path for the nearest
// preceding function/class declaration above lineNo, using a minimal
// language-agnostic heuristic (keyword match on "func"/"def"/"class").
func extractContext(bundleRoot, path string, lineNo int) (function, class string) {
	f, err := os.Open(filepath.Join(bundleRoot, path))
	if err != nil {
		return "", ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)

	line := 0

	for scanner.Scan() {
		line++
		if line > lineNo {
			break
		}

		text := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(text, "func "):
			function = text
		case strings.HasPrefix(text, "def "):
			function = text
		case strings.HasPrefix(text, "class "):
			class = text
		}
	}

	return function, class
}
