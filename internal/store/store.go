// Package store persists extracted packet metadata in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/stlalpha/pktindex/internal/ftn"
)

// DateLayout is the sortable text form of every stored timestamp.
const DateLayout = "2006-01-02 15:04:05"

var errEmptyPath = errors.New("store: database path is empty")

// Packet outcome values stored in packets.status.
const (
	StatusComplete = "complete"
	StatusPartial  = "partial"
	StatusFailed   = "failed"
)

// Store wraps the SQLite database holding pkt_messages.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// PacketRecord describes one processed packet file.
type PacketRecord struct {
	File         string
	Hash         uint64
	Size         int64
	Status       string
	BytesSkipped int
	Messages     int
	RunID        string
}

// Open opens (or creates) the database at path and migrates its schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errEmptyPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	// Keep operations serialized and honor busy timeout.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{"pragma journal_mode=WAL", "pragma busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// SaveMessages inserts msgs for one packet in a single transaction and
// records the packet. Rows already present for the same (pkt_file,
// msg_index) are ignored, so the returned count can be lower than len(msgs).
func (s *Store) SaveMessages(ctx context.Context, pkt PacketRecord, msgs []ftn.ExtractedMessage) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO pkt_messages (
    pkt_file, msg_index, date_iso, date_raw, echo, size_bytes, msg_lines,
    pct_quoted, from_name, to_name, subject, orig_addr, msg_id, imported_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()

	imported := s.now().UTC().Format(DateLayout)
	inserted := 0
	for _, m := range msgs {
		res, err := stmt.ExecContext(ctx,
			pkt.File,
			m.Index,
			dateISO(m),
			strings.TrimSpace(m.DateRaw),
			nullString(m.Area),
			m.Size,
			m.Lines,
			pctQuoted(m),
			m.From,
			m.To,
			m.Subject,
			m.Orig.String(),
			nullString(m.MsgID),
			imported,
		)
		if err != nil {
			return 0, fmt.Errorf("store: insert message %d of %s: %w", m.Index, pkt.File, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO packets (pkt_file, hash, size_bytes, status, bytes_skipped, messages, run_id, processed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		pkt.File, hashText(pkt.Hash), pkt.Size, pkt.Status, pkt.BytesSkipped, pkt.Messages, pkt.RunID, imported,
	); err != nil {
		return 0, fmt.Errorf("store: record packet %s: %w", pkt.File, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return inserted, nil
}

// PacketSeen reports whether a packet with this content hash was already
// stored completely.
func (s *Store) PacketSeen(ctx context.Context, hash uint64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM packets WHERE hash = ? AND status = ?`,
		hashText(hash), StatusComplete).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: packet lookup: %w", err)
	}
	return n > 0, nil
}

func hashText(h uint64) string { return fmt.Sprintf("%016x", h) }

func dateISO(m ftn.ExtractedMessage) any {
	if m.DateErr != nil || m.Date.IsZero() {
		return nil
	}
	return m.Date.Format(DateLayout)
}

func pctQuoted(m ftn.ExtractedMessage) any {
	if m.Lines == 0 {
		return nil
	}
	return m.QuotedPct
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
