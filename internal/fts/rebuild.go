package fts

import (
	"database/sql"
	"fmt"
)

// Rebuild deletes every line row and file hash, then inserts rows for the
// files matching opts.Scope, committing in a single transaction (spec §4.C).
func Rebuild(db *sql.DB, files []SourceFile, opts Options) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin rebuild tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec("DELETE FROM lines"); err != nil {
		return fmt.Errorf("clear lines: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM file_hashes"); err != nil {
		return fmt.Errorf("clear file_hashes: %w", err)
	}

	insertLine, err := tx.Prepare("INSERT INTO lines (path, repo, kind, line_no, content_hash, text) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare line insert: %w", err)
	}
	defer insertLine.Close()

	insertHash, err := tx.Prepare("INSERT INTO file_hashes (path, content_hash) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("prepare hash insert: %w", err)
	}
	defer insertHash.Close()

	for _, f := range files {
		if !f.matchesScope(opts.Scope) {
			continue
		}

		if err := insertFileLines(insertLine, f); err != nil {
			return err
		}

		if _, err := insertHash.Exec(f.Path, f.ContentHash); err != nil {
			return fmt.Errorf("insert file_hash for %s: %w", f.Path, err)
		}
	}

	return tx.Commit()
}

func insertFileLines(stmt *sql.Stmt, f SourceFile) error {
	for i, line := range f.Lines {
		if line == "" {
			continue
		}

		if _, err := stmt.Exec(f.Path, f.Repo, f.Kind, i+1, f.ContentHash, line); err != nil {
			return fmt.Errorf("insert line %d of %s: %w", i+1, f.Path, err)
		}
	}

	return nil
}
