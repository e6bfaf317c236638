package trace

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// Query filters edges per spec §4.J, classifying an empty result's reason
// as `no_edges` (the store holds nothing at all) or `no_matching_edges`
// (filters excluded everything). Bundle-not-found/store-not-initialized
// classification happens one layer up, where multiple bundles' trace
// stores are discoverable.
func Query(db *sql.DB, filters QueryFilters) (QueryResult, error) {
	edges, err := queryEdges(db, filters)
	if err != nil {
		return QueryResult{}, err
	}

	if len(edges) > 0 {
		return QueryResult{Edges: edges}, nil
	}

	total, err := countEdges(db)
	if err != nil {
		return QueryResult{}, err
	}

	if total == 0 {
		return QueryResult{
			Edges:  edges,
			Reason: "no_edges",
			NextSteps: []string{
				"run trace_suggest to find candidate edges from naming conventions",
				"run trace_upsert to record a known relationship",
			},
		}, nil
	}

	return QueryResult{
		Edges:  edges,
		Reason: "no_matching_edges",
		NextSteps: []string{
			"widen the confidence range or drop the type/source/target filters",
		},
	}, nil
}

func countEdges(db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM edges").Scan(&n); err != nil {
		return 0, fmt.Errorf("count edges: %w", err)
	}

	return n, nil
}

func queryEdges(db *sql.DB, filters QueryFilters) ([]Edge, error) {
	var conditions []string

	var args []any

	add := func(cond string, arg any) {
		conditions = append(conditions, cond)
		args = append(args, arg)
	}

	if filters.SourceType != "" {
		add("source_type = ?", filters.SourceType)
	}

	if filters.SourceID != "" {
		add("source_id = ?", filters.SourceID)
	}

	if filters.TargetType != "" {
		add("target_type = ?", filters.TargetType)
	}

	if filters.TargetID != "" {
		add("target_id = ?", filters.TargetID)
	}

	if filters.Type != "" {
		add("type = ?", string(filters.Type))
	}

	if filters.MinConfidence > 0 {
		add("confidence >= ?", filters.MinConfidence)
	}

	if filters.MaxConfidence > 0 {
		add("confidence <= ?", filters.MaxConfidence)
	}

	query := "SELECT id, source_type, source_id, target_type, target_id, type, confidence, method, sources_json, created_at, updated_at FROM edges"

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY source_type, source_id, target_type, target_id, type"

	limit := filters.Limit
	if limit <= 0 {
		limit = 500
	}

	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	var out []Edge

	for rows.Next() {
		var (
			e           Edge
			sourcesJSON string
		)

		if err := rows.Scan(&e.ID, &e.Source.Type, &e.Source.ID, &e.Target.Type, &e.Target.ID,
			&e.Type, &e.Confidence, &e.Method, &sourcesJSON, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}

		if err := json.Unmarshal([]byte(sourcesJSON), &e.Sources); err != nil {
			return nil, fmt.Errorf("unmarshal sources for edge %s: %w", e.ID, err)
		}

		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}

	return out, nil
}
