package trace

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"
)

// Upsert validates and writes edges, per spec §4.J. Under DryRun no writes
// occur and validated edges are returned as a Preview; otherwise each
// validated edge is inserted or updated keyed on (source, target, type),
// and — on any successful write — trace/trace.json is regenerated.
func Upsert(db *sql.DB, dbPath string, edges []Edge, opts UpsertOptions) (UpsertResult, error) {
	result := UpsertResult{}

	now := time.Now().UTC().Format(time.RFC3339)

	var toWrite []Edge

	for i, e := range edges {
		if blocked := validateEdge(i, e); blocked != nil {
			result.Blocked = append(result.Blocked, *blocked)
			continue
		}

		e.ID = computeEdgeID(e)
		if e.CreatedAt == "" {
			e.CreatedAt = now
		}

		e.UpdatedAt = now

		toWrite = append(toWrite, e)
	}

	if opts.DryRun {
		result.Preview = toWrite
		result.Warnings = append(result.Warnings, "dryRun: no writes performed")

		return result, nil
	}

	if len(toWrite) == 0 {
		return result, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return result, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`
		INSERT INTO edges (id, source_type, source_id, target_type, target_id, type, confidence, method, sources_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_type, source_id, target_type, target_id, type) DO UPDATE SET
			confidence = excluded.confidence,
			method = excluded.method,
			sources_json = excluded.sources_json,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return result, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range toWrite {
		sourcesJSON, err := json.Marshal(e.Sources)
		if err != nil {
			return result, fmt.Errorf("marshal sources for edge %s: %w", e.ID, err)
		}

		if _, err := stmt.Exec(e.ID, e.Source.Type, e.Source.ID, e.Target.Type, e.Target.ID,
			string(e.Type), e.Confidence, string(e.Method), string(sourcesJSON), e.CreatedAt, e.UpdatedAt); err != nil {
			return result, fmt.Errorf("upsert edge %s: %w", e.ID, err)
		}

		result.IDs = append(result.IDs, e.ID)
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit upsert tx: %w", err)
	}

	result.Upserted = len(toWrite)

	exported, err := ExportJSON(db, filepath.Join(filepath.Dir(dbPath), "trace.json"))
	if err != nil {
		result.Warnings = append(result.Warnings, "failed to export trace.json: "+err.Error())
	} else {
		result.Warnings = append(result.Warnings, fmt.Sprintf("exported %d edges to trace.json", exported))
	}

	return result, nil
}
