package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
)

// SchemaVersion is written to meta.schema_version on every open.
const SchemaVersion = 3

const schema = `
CREATE TABLE IF NOT EXISTS pkt_messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    pkt_file TEXT NOT NULL,
    msg_index INTEGER NOT NULL,
    date_iso TEXT,
    date_raw TEXT,
    echo TEXT,
    size_bytes INTEGER NOT NULL,
    msg_lines INTEGER,
    pct_quoted REAL,
    from_name TEXT,
    subject TEXT,
    imported_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_pkt_unique ON pkt_messages(pkt_file, msg_index);
CREATE INDEX IF NOT EXISTS idx_pkt_date ON pkt_messages(date_iso);
CREATE INDEX IF NOT EXISTS idx_pkt_echo ON pkt_messages(echo);

CREATE TABLE IF NOT EXISTS packets (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    pkt_file TEXT NOT NULL,
    hash TEXT NOT NULL,
    size_bytes INTEGER NOT NULL,
    status TEXT NOT NULL,
    bytes_skipped INTEGER NOT NULL DEFAULT 0,
    messages INTEGER NOT NULL DEFAULT 0,
    run_id TEXT,
    processed_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_packets_hash ON packets(hash);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT
);`

// addedColumns are pkt_messages columns that older databases may lack,
// in the order they were introduced.
var addedColumns = []struct{ name, decl string }{
	{"msg_lines", "INTEGER"},
	{"pct_quoted", "REAL"},
	{"to_name", "TEXT"},
	{"orig_addr", "TEXT"},
	{"msg_id", "TEXT"},
}

// migrate creates missing tables and columns and bumps the schema version.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	cols, err := tableColumns(ctx, db, "pkt_messages")
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[c] = true
	}
	for _, c := range addedColumns {
		if have[c.name] {
			continue
		}
		if _, err := db.ExecContext(ctx, "ALTER TABLE pkt_messages ADD COLUMN "+c.name+" "+c.decl); err != nil {
			return fmt.Errorf("store: add column %s: %w", c.name, err)
		}
		log.Printf("INFO: Migrated pkt_messages: added column %s", c.name)
	}
	if _, err := db.ExecContext(ctx, `
INSERT INTO meta (key, value) VALUES ('schema_version', ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`, strconv.Itoa(SchemaVersion)); err != nil {
		return fmt.Errorf("store: set schema version: %w", err)
	}
	return nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("store: table info %s: %w", table, err)
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store: table info %s: %w", table, err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}
