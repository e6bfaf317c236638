// Package fts implements the SQLite FTS5 external-content line-level
// search index, following the database/sql + modernc.org/sqlite wiring
// shown by the pack's SQLite-backed graph store example.
package fts

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS lines (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL,
	repo TEXT NOT NULL,
	kind TEXT NOT NULL,
	line_no INTEGER NOT NULL,
	content_hash TEXT NOT NULL,
	text TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lines_path ON lines(path);

CREATE VIRTUAL TABLE IF NOT EXISTS lines_fts USING fts5(
	text,
	content='lines',
	content_rowid='id',
	tokenize='unicode61'
);

CREATE TRIGGER IF NOT EXISTS lines_ai AFTER INSERT ON lines BEGIN
	INSERT INTO lines_fts(rowid, text) VALUES (new.id, new.text);
END;

CREATE TRIGGER IF NOT EXISTS lines_ad AFTER DELETE ON lines BEGIN
	INSERT INTO lines_fts(lines_fts, rowid, text) VALUES ('delete', old.id, old.text);
END;

CREATE TABLE IF NOT EXISTS file_hashes (
	path TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL
);
`

// Open opens (creating if absent) the FTS5 database at dbPath with the
// schema above, enabling WAL mode for concurrent readers during writes.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()

		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()

		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return db, nil
}
