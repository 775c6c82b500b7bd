package store

import (
	"context"
	"database/sql"
	"fmt"
)

// requiredColumns are the pkt_messages columns every report depends on.
var requiredColumns = []string{
	"pkt_file", "msg_index", "date_iso", "date_raw", "echo",
	"size_bytes", "from_name", "subject", "imported_at",
}

// Inspection summarizes the database for the check command.
type Inspection struct {
	SchemaVersion  string
	Columns        []string
	MissingColumns []string
	Total          int
	Packets        int
	PartialPackets int
	DateMin        string
	DateMax        string
	ImportedMin    string
	ImportedMax    string
	Samples        []Sample
}

// Sample is one stored message row as shown by the check command.
type Sample struct {
	ID         int64
	Area       string
	DateISO    string
	Size       int
	Lines      sql.NullInt64
	PctQuoted  sql.NullFloat64
	From       string
	Subject    string
	ImportedAt string
}

// Inspect collects schema details, totals and the first limit rows.
func (s *Store) Inspect(ctx context.Context, limit int) (*Inspection, error) {
	var in Inspection
	var err error

	if in.SchemaVersion, err = s.SchemaVersion(ctx); err != nil {
		return nil, err
	}
	if in.Columns, err = tableColumns(ctx, s.db, "pkt_messages"); err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(in.Columns))
	for _, c := range in.Columns {
		have[c] = true
	}
	for _, c := range requiredColumns {
		if !have[c] {
			in.MissingColumns = append(in.MissingColumns, c)
		}
	}

	if in.Total, err = s.Count(ctx); err != nil {
		return nil, err
	}
	err = s.db.QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(SUM(CASE WHEN status <> ? THEN 1 ELSE 0 END), 0) FROM packets`,
		StatusComplete).Scan(&in.Packets, &in.PartialPackets)
	if err != nil {
		return nil, fmt.Errorf("store: packet totals: %w", err)
	}
	if in.Total == 0 {
		return &in, nil
	}

	var dmin, dmax, imin, imax sql.NullString
	if err := s.db.QueryRowContext(ctx,
		`SELECT MIN(date_iso), MAX(date_iso) FROM pkt_messages WHERE date_iso IS NOT NULL`).Scan(&dmin, &dmax); err != nil {
		return nil, fmt.Errorf("store: date range: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT MIN(imported_at), MAX(imported_at) FROM pkt_messages`).Scan(&imin, &imax); err != nil {
		return nil, fmt.Errorf("store: import range: %w", err)
	}
	in.DateMin, in.DateMax = dmin.String, dmax.String
	in.ImportedMin, in.ImportedMax = imin.String, imax.String

	rows, err := s.db.QueryContext(ctx, `
SELECT id, echo, date_iso, size_bytes, msg_lines, pct_quoted, from_name, subject, imported_at
FROM pkt_messages ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: samples: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sm Sample
		var area, date, from, subj, imported sql.NullString
		if err := rows.Scan(&sm.ID, &area, &date, &sm.Size, &sm.Lines, &sm.PctQuoted, &from, &subj, &imported); err != nil {
			return nil, fmt.Errorf("store: samples: %w", err)
		}
		sm.Area, sm.DateISO, sm.From, sm.Subject, sm.ImportedAt = area.String, date.String, from.String, subj.String, imported.String
		in.Samples = append(in.Samples, sm)
	}
	return &in, rows.Err()
}
