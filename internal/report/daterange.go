package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/stlalpha/pktindex/internal/store"
)

// Date presets, relative to the latest date in the database.
const (
	PresetWeek   = "WEEK"   // last 7 days
	PresetMonth  = "MONTH"  // previous calendar month
	PresetCMonth = "CMONTH" // current calendar month so far
)

// RangeOptions selects the reporting window. At most one of Preset or
// From/To/Days may be used. Days > 0 overrides From/To.
type RangeOptions struct {
	From   string
	To     string
	Days   int
	Preset string
}

// Validate reports conflicting or malformed options.
func (o RangeOptions) Validate() error {
	if o.Preset != "" {
		if o.From != "" || o.To != "" || o.Days != 0 {
			return ErrRangeConflict
		}
		switch strings.ToUpper(o.Preset) {
		case PresetWeek, PresetMonth, PresetCMonth:
		default:
			return fmt.Errorf("%w: %q (want WEEK, MONTH or CMONTH)", ErrBadPreset, o.Preset)
		}
	}
	if o.Days < 0 {
		return fmt.Errorf("report: days must be positive, got %d", o.Days)
	}
	return nil
}

// Range is an inclusive reporting window.
type Range struct {
	From time.Time
	To   time.Time
}

// Resolve turns options into a concrete window given the database date
// range. A date-only To bound covers that whole day.
func (o RangeOptions) Resolve(dbMin, dbMax time.Time) (Range, error) {
	if err := o.Validate(); err != nil {
		return Range{}, err
	}

	switch strings.ToUpper(o.Preset) {
	case PresetWeek:
		return Range{From: startOfDay(dbMax.AddDate(0, 0, -6)), To: dbMax}, nil
	case PresetCMonth:
		return Range{From: startOfMonth(dbMax), To: dbMax}, nil
	case PresetMonth:
		this := startOfMonth(dbMax)
		return Range{From: this.AddDate(0, -1, 0), To: this.Add(-time.Second)}, nil
	}

	if o.Days > 0 {
		return Range{From: startOfDay(dbMax.AddDate(0, 0, -(o.Days - 1))), To: dbMax}, nil
	}

	r := Range{From: dbMin, To: dbMax}
	if o.From != "" {
		t, err := store.ParseDate(o.From)
		if err != nil {
			return Range{}, fmt.Errorf("report: --from: %w", err)
		}
		r.From = t
	}
	if o.To != "" {
		t, err := store.ParseDate(o.To)
		if err != nil {
			return Range{}, fmt.Errorf("report: --to: %w", err)
		}
		if t.Equal(startOfDay(t)) && !strings.Contains(o.To, ":") {
			t = t.AddDate(0, 0, 1).Add(-time.Second)
		}
		r.To = t
	}
	if r.To.Before(r.From) {
		return Range{}, fmt.Errorf("report: range ends %s before it starts %s",
			r.To.Format(store.DateLayout), r.From.Format(store.DateLayout))
	}
	return r, nil
}

// Days returns the number of calendar days the range touches.
func (r Range) Days() int {
	return int(startOfDay(r.To).Sub(startOfDay(r.From)).Hours()/24) + 1
}

func (r Range) heading() string {
	return fmt.Sprintf("Statistics from %s to %s", r.From.Format(headerDateLayout), r.To.Format(headerDateLayout))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
