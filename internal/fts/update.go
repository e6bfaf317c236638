package fts

import (
	"database/sql"
	"fmt"
)

// IncrementalUpdate applies a delta against the existing contentHash table,
// deleting and re-inserting lines only for files whose hash changed (spec §4.C).
func IncrementalUpdate(db *sql.DB, files []SourceFile, opts Options) (UpdateReport, error) {
	existing, err := loadFileHashes(db)
	if err != nil {
		return UpdateReport{}, err
	}

	tx, err := db.Begin()
	if err != nil {
		return UpdateReport{}, fmt.Errorf("begin update tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var report UpdateReport

	seen := make(map[string]bool, len(files))

	insertLine, err := tx.Prepare("INSERT INTO lines (path, repo, kind, line_no, content_hash, text) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return UpdateReport{}, fmt.Errorf("prepare line insert: %w", err)
	}
	defer insertLine.Close()

	for _, f := range files {
		if !f.matchesScope(opts.Scope) {
			continue
		}

		seen[f.Path] = true

		oldHash, existed := existing[f.Path]

		switch {
		case existed && oldHash == f.ContentHash:
			report.Unchanged++

		case existed:
			if err := deleteFile(tx, f.Path); err != nil {
				return UpdateReport{}, err
			}

			if err := insertFileLines(insertLine, f); err != nil {
				return UpdateReport{}, err
			}

			if err := upsertFileHash(tx, f.Path, f.ContentHash); err != nil {
				return UpdateReport{}, err
			}

			report.Updated++

		default:
			if err := insertFileLines(insertLine, f); err != nil {
				return UpdateReport{}, err
			}

			if err := upsertFileHash(tx, f.Path, f.ContentHash); err != nil {
				return UpdateReport{}, err
			}

			report.Added++
		}
	}

	for path := range existing {
		if seen[path] {
			continue
		}

		if err := deleteFile(tx, path); err != nil {
			return UpdateReport{}, err
		}

		if _, err := tx.Exec("DELETE FROM file_hashes WHERE path = ?", path); err != nil {
			return UpdateReport{}, fmt.Errorf("delete file_hash for %s: %w", path, err)
		}

		report.Removed++
	}

	if err := tx.Commit(); err != nil {
		return UpdateReport{}, fmt.Errorf("commit update tx: %w", err)
	}

	report.TotalIndexed = report.Added + report.Updated + report.Unchanged

	return report, nil
}

func loadFileHashes(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query("SELECT path, content_hash FROM file_hashes")
	if err != nil {
		return nil, fmt.Errorf("load file hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)

	for rows.Next() {
		var path, hash string

		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("scan file hash row: %w", err)
		}

		hashes[path] = hash
	}

	return hashes, rows.Err()
}

func deleteFile(tx *sql.Tx, path string) error {
	if _, err := tx.Exec("DELETE FROM lines WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete lines for %s: %w", path, err)
	}

	return nil
}

func upsertFileHash(tx *sql.Tx, path, hash string) error {
	_, err := tx.Exec(
		"INSERT INTO file_hashes (path, content_hash) VALUES (?, ?) ON CONFLICT(path) DO UPDATE SET content_hash = excluded.content_hash",
		path, hash,
	)
	if err != nil {
		return fmt.Errorf("upsert file_hash for %s: %w", path, err)
	}

	return nil
}
