package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// dateExpr prefers the parsed message date and falls back to the import
// time, so rows with unparseable stamps still land in a report bucket.
const dateExpr = `COALESCE(NULLIF(TRIM(date_iso), ''), NULLIF(TRIM(imported_at), ''), NULLIF(TRIM(date_raw), ''))`

// ErrNoDates is returned by DateRange when no row carries a usable date.
var ErrNoDates = errors.New("store: no dated messages")

// AreaDate is one message reduced to its area and report date. Raw holds
// the stored text when it could not be parsed.
type AreaDate struct {
	Area string
	Date time.Time
	Raw  string
}

// MessageRow is the per-message data used by the top report.
type MessageRow struct {
	From    string
	Subject string
	Size    int
	Lines   int
}

// SchemaVersion returns meta.schema_version as stored.
func (s *Store) SchemaVersion(ctx context.Context) (string, error) {
	var v sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "unknown", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: schema version: %w", err)
	}
	if !v.Valid {
		return "unknown", nil
	}
	return v.String, nil
}

// Count returns the number of stored messages.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pkt_messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// DateRange returns the earliest and latest report dates.
func (s *Store) DateRange(ctx context.Context) (time.Time, time.Time, error) {
	var mn, mx sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MIN(`+dateExpr+`), MAX(`+dateExpr+`) FROM pkt_messages`).Scan(&mn, &mx)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("store: date range: %w", err)
	}
	if !mn.Valid || !mx.Valid {
		return time.Time{}, time.Time{}, ErrNoDates
	}
	from, err := ParseDate(mn.String)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := ParseDate(mx.String)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// AreaDates returns the area and date of every message dated within
// [from, to]. Rows whose date text cannot be parsed are returned with a
// zero Date and Raw set.
func (s *Store) AreaDates(ctx context.Context, from, to time.Time) ([]AreaDate, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT echo, `+dateExpr+` AS any_date
FROM pkt_messages
WHERE `+dateExpr+` >= ? AND `+dateExpr+` <= ?`,
		from.Format(DateLayout), to.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("store: area dates: %w", err)
	}
	defer rows.Close()

	var out []AreaDate
	for rows.Next() {
		var echo, date sql.NullString
		if err := rows.Scan(&echo, &date); err != nil {
			return nil, fmt.Errorf("store: area dates: %w", err)
		}
		ad := AreaDate{Area: strings.TrimSpace(echo.String)}
		if t, err := ParseDate(date.String); err == nil {
			ad.Date = t
		} else {
			ad.Raw = date.String
		}
		out = append(out, ad)
	}
	return out, rows.Err()
}

// AreaMessages returns poster, subject, size and lines of every message in
// area dated within [from, to].
func (s *Store) AreaMessages(ctx context.Context, area string, from, to time.Time) ([]MessageRow, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT from_name, subject, size_bytes, msg_lines
FROM pkt_messages
WHERE echo = ? AND `+dateExpr+` >= ? AND `+dateExpr+` <= ?`,
		area, from.Format(DateLayout), to.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("store: area messages: %w", err)
	}
	defer rows.Close()

	var out []MessageRow
	for rows.Next() {
		var from, subj sql.NullString
		var size, lines sql.NullInt64
		if err := rows.Scan(&from, &subj, &size, &lines); err != nil {
			return nil, fmt.Errorf("store: area messages: %w", err)
		}
		out = append(out, MessageRow{
			From:    from.String,
			Subject: subj.String,
			Size:    int(size.Int64),
			Lines:   int(lines.Int64),
		})
	}
	return out, rows.Err()
}

// storedDateLayouts are accepted when reading dates back. The first is
// what this package writes; the rest cover databases from other indexers
// and user-entered range bounds.
var storedDateLayouts = []string{
	DateLayout,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02 Jan 06 15:04:05",
	"02-Jan-2006 15:04",
	"02-Jan-06",
}

// ParseDate parses a stored or user-supplied date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("store: empty date")
	}
	for _, layout := range storedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("store: unrecognized date format: %q", s)
}
