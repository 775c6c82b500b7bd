package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/stlalpha/pktindex/internal/store"
)

// Grouping periods for the area report.
const (
	PeriodAuto  = "auto"  // day when the range spans at most 31 days, else month
	PeriodDay   = "day"   // one column per calendar day
	PeriodMonth = "month" // season columns 15..9
)

// seasonMonths are the month columns, newest first. January to March are
// shown as 13 to 15 so they sort after the previous autumn.
var seasonMonths = []int{15, 14, 13, 12, 11, 10, 9}

// AreaOptions configures BuildAreaReport.
type AreaOptions struct {
	Title   string
	Range   RangeOptions
	Period  string
	Known   []string // always listed, zero rows included
	Only    []string // when set, only these areas are listed
	Exclude []string
}

// AreaRow is one area's counts per column.
type AreaRow struct {
	Area   string
	Counts []int
	Total  int
}

// AreaReport is a per-area message count table.
type AreaReport struct {
	Title         string
	SchemaVersion string
	Range         Range
	Period        string
	Columns       []string
	Rows          []AreaRow
	Totals        []int
	GrandTotal    int
	BadDates      int
}

// BuildAreaReport counts messages per area and period bucket. An empty
// database is reported only when explicit from/to bounds and known areas
// are given, so a zero-traffic report can still be produced.
func BuildAreaReport(ctx context.Context, src Source, opts AreaOptions) (*AreaReport, error) {
	period := strings.ToLower(opts.Period)
	switch period {
	case "":
		period = PeriodAuto
	case PeriodAuto, PeriodDay, PeriodMonth:
	default:
		return nil, fmt.Errorf("%w: %q", ErrBadPeriod, opts.Period)
	}
	if err := opts.Range.Validate(); err != nil {
		return nil, err
	}

	version, err := src.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	dbMin, dbMax, err := databaseRange(ctx, src, opts.Range, len(opts.Known) > 0)
	if err != nil {
		return nil, err
	}
	rng, err := opts.Range.Resolve(dbMin, dbMax)
	if err != nil {
		return nil, err
	}

	rep := &AreaReport{Title: opts.Title, SchemaVersion: version, Range: rng, Period: period}
	if period == PeriodAuto {
		rep.Period = PeriodDay
		if rng.Days()-1 > 31 {
			rep.Period = PeriodMonth
		}
	}

	// Column keys: a month number, or a day as YYYYMMDD.
	var keys []int
	index := map[int]int{}
	if rep.Period == PeriodMonth {
		keys = seasonMonths
		for _, m := range keys {
			rep.Columns = append(rep.Columns, fmt.Sprint(m))
		}
	} else {
		for d := startOfDay(rng.From); !d.After(rng.To); d = d.AddDate(0, 0, 1) {
			keys = append(keys, dayKey(d))
			rep.Columns = append(rep.Columns, d.Format("02"))
		}
	}
	for i, k := range keys {
		index[k] = i
	}

	rows, err := src.AreaDates(ctx, rng.From, rng.To)
	if err != nil {
		return nil, err
	}
	counts := map[string][]int{}
	seen := map[string]bool{}
	for _, r := range rows {
		if r.Date.IsZero() {
			rep.BadDates++
			continue
		}
		area := r.Area
		if area == "" {
			area = UnknownArea
		}
		if counts[area] == nil {
			counts[area] = make([]int, len(keys))
		}
		key := dayKey(r.Date)
		if rep.Period == PeriodMonth {
			key = monthBucket(r.Date)
		}
		if i, ok := index[key]; ok {
			counts[area][i]++
		}
		seen[area] = true
	}

	for _, a := range opts.Known {
		seen[a] = true
	}
	for _, a := range opts.Only {
		seen[a] = true
	}
	only := toSet(opts.Only)
	exclude := toSet(opts.Exclude)

	areas := make([]string, 0, len(seen))
	for a := range seen {
		if len(only) > 0 && !only[a] {
			continue
		}
		if exclude[a] {
			continue
		}
		areas = append(areas, a)
	}
	sort.Strings(areas)

	rep.Totals = make([]int, len(keys))
	for _, a := range areas {
		row := AreaRow{Area: a, Counts: counts[a]}
		if row.Counts == nil {
			row.Counts = make([]int, len(keys))
		}
		for i, v := range row.Counts {
			row.Total += v
			rep.Totals[i] += v
		}
		rep.GrandTotal += row.Total
		rep.Rows = append(rep.Rows, row)
	}
	return rep, nil
}

// databaseRange returns the stored date range, or the user's explicit
// bounds when the database is empty and a zero-traffic report is allowed.
func databaseRange(ctx context.Context, src Source, opts RangeOptions, allowEmpty bool) (time.Time, time.Time, error) {
	total, err := src.Count(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if total == 0 {
		if !allowEmpty || opts.From == "" || opts.To == "" {
			return time.Time{}, time.Time{}, ErrEmptyDatabase
		}
		from, err := store.ParseDate(opts.From)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("report: --from: %w", err)
		}
		to, err := store.ParseDate(opts.To)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("report: --to: %w", err)
		}
		return from, to, nil
	}

	mn, mx, err := src.DateRange(ctx)
	if errors.Is(err, store.ErrNoDates) {
		return time.Time{}, time.Time{}, ErrNoDates
	}
	return mn, mx, err
}

// Render writes the report as a fixed-width table.
func (r *AreaReport) Render(w io.Writer, st Styles, areaWidth int) error {
	if areaWidth < 2 {
		areaWidth = 2
	}
	cols := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		cols[i] = fmt.Sprintf("%4s", c)
	}
	colHeader := strings.Join(cols, " ")
	rule := strings.Repeat("=", areaWidth+len(colHeader)+8)

	p := newPrinter(w, st)
	p.line(st.Title, r.Title)
	p.line(st.Note, fmt.Sprintf("(DB schema v%s)", r.SchemaVersion))
	p.blank()
	p.plain(r.Range.heading())
	p.blank()
	p.line(st.Header, fmt.Sprintf("%-*s%s   Total", areaWidth, "Area", colHeader))
	p.line(st.Rule, rule)
	for _, row := range r.Rows {
		p.plain(fmt.Sprintf("%-*s%s : %5d", areaWidth, shorten(row.Area, areaWidth-1), joinCounts(row.Counts), row.Total))
	}
	p.line(st.Rule, rule)
	p.line(st.Total, fmt.Sprintf("%-*s%s : %5d", areaWidth, "TOTALS", joinCounts(r.Totals), r.GrandTotal))

	if r.BadDates > 0 {
		p.blank()
		p.line(st.Note, fmt.Sprintf("(NOTE: skipped %d rows with unparseable dates)", r.BadDates))
	}
	return p.err
}

func joinCounts(counts []int) string {
	parts := make([]string, len(counts))
	for i, v := range counts {
		parts[i] = fmt.Sprintf("%4d", v)
	}
	return strings.Join(parts, " ")
}

func monthBucket(t time.Time) int {
	m := int(t.Month())
	if m <= 3 {
		return m + 12
	}
	return m
}

func dayKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

func toSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, s := range list {
		set[s] = true
	}
	return set
}
