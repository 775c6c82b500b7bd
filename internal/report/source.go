// Package report builds the area summary, per-area top lists and database
// check output from indexed messages.
package report

import (
	"context"
	"errors"
	"time"

	"github.com/stlalpha/pktindex/internal/store"
)

// Source is the read side of the message store. *store.Store implements it.
type Source interface {
	SchemaVersion(ctx context.Context) (string, error)
	Count(ctx context.Context) (int, error)
	DateRange(ctx context.Context) (time.Time, time.Time, error)
	AreaDates(ctx context.Context, from, to time.Time) ([]store.AreaDate, error)
	AreaMessages(ctx context.Context, area string, from, to time.Time) ([]store.MessageRow, error)
}

var (
	ErrEmptyDatabase = errors.New("report: no messages indexed")
	ErrNoDates       = errors.New("report: rows exist but no date field is set")
	ErrRangeConflict = errors.New("report: a date preset cannot be combined with from/to/days")
	ErrBadPreset     = errors.New("report: unknown date preset")
	ErrBadPeriod     = errors.New("report: unknown period")
)

// UnknownArea labels messages stored without an area.
const UnknownArea = "UNKNOWN"

// headerDateLayout renders range bounds in report headings.
const headerDateLayout = "02-Jan-06"
