package trace

import (
	"database/sql"
	"encoding/json"
	"os"
)

// ExportJSON dumps every edge in db to jsonPath, called automatically after
// every successful Upsert (spec §4.J).
func ExportJSON(db *sql.DB, jsonPath string) (int, error) {
	edges, err := queryEdges(db, QueryFilters{})
	if err != nil {
		return 0, err
	}

	data, err := json.MarshalIndent(edges, "", "  ")
	if err != nil {
		return 0, err
	}

	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return 0, err
	}

	return len(edges), nil
}
