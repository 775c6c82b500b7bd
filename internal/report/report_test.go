package report

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stlalpha/pktindex/internal/store"
)

type fakeRow struct {
	area    string
	date    time.Time
	raw     string
	from    string
	subject string
	size    int
	lines   int
}

// fakeSource serves rows from memory the way the store does.
type fakeSource struct {
	version string
	rows    []fakeRow
}

func (f *fakeSource) SchemaVersion(context.Context) (string, error) { return f.version, nil }

func (f *fakeSource) Count(context.Context) (int, error) { return len(f.rows), nil }

func (f *fakeSource) DateRange(context.Context) (time.Time, time.Time, error) {
	var mn, mx time.Time
	for _, r := range f.rows {
		if r.date.IsZero() {
			continue
		}
		if mn.IsZero() || r.date.Before(mn) {
			mn = r.date
		}
		if r.date.After(mx) {
			mx = r.date
		}
	}
	if mn.IsZero() {
		return time.Time{}, time.Time{}, store.ErrNoDates
	}
	return mn, mx, nil
}

func inRange(t, from, to time.Time) bool { return !t.Before(from) && !t.After(to) }

func (f *fakeSource) AreaDates(_ context.Context, from, to time.Time) ([]store.AreaDate, error) {
	var out []store.AreaDate
	for _, r := range f.rows {
		if r.date.IsZero() {
			out = append(out, store.AreaDate{Area: r.area, Raw: r.raw})
			continue
		}
		if inRange(r.date, from, to) {
			out = append(out, store.AreaDate{Area: r.area, Date: r.date})
		}
	}
	return out, nil
}

func (f *fakeSource) AreaMessages(_ context.Context, area string, from, to time.Time) ([]store.MessageRow, error) {
	var out []store.MessageRow
	for _, r := range f.rows {
		if r.area == area && inRange(r.date, from, to) {
			out = append(out, store.MessageRow{From: r.from, Subject: r.subject, Size: r.size, Lines: r.lines})
		}
	}
	return out, nil
}

func day(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func twoDaySource() *fakeSource {
	return &fakeSource{version: "3", rows: []fakeRow{
		{area: "FSX_GEN", date: day(2026, 2, 9, 8)},
		{area: "FSX_GEN", date: day(2026, 2, 9, 9)},
		{area: "FSX_GEN", date: day(2026, 2, 9, 23)},
		{area: "FSX_BOT", date: day(2026, 2, 10, 1)},
		{area: "", date: day(2026, 2, 10, 12)},
		{area: "FSX_GEN", raw: "garbage"},
	}}
}

func TestBuildAreaReportDays(t *testing.T) {
	rep, err := BuildAreaReport(context.Background(), twoDaySource(), AreaOptions{Title: "Areas"})
	if err != nil {
		t.Fatalf("BuildAreaReport: %v", err)
	}
	if rep.Period != PeriodDay {
		t.Errorf("Period = %q, want day", rep.Period)
	}
	if !reflect.DeepEqual(rep.Columns, []string{"09", "10"}) {
		t.Errorf("Columns = %v", rep.Columns)
	}
	want := []AreaRow{
		{Area: "FSX_BOT", Counts: []int{0, 1}, Total: 1},
		{Area: "FSX_GEN", Counts: []int{3, 0}, Total: 3},
		{Area: UnknownArea, Counts: []int{0, 1}, Total: 1},
	}
	if !reflect.DeepEqual(rep.Rows, want) {
		t.Errorf("Rows = %+v, want %+v", rep.Rows, want)
	}
	if !reflect.DeepEqual(rep.Totals, []int{3, 2}) || rep.GrandTotal != 5 {
		t.Errorf("Totals = %v / %d", rep.Totals, rep.GrandTotal)
	}
	if rep.BadDates != 1 {
		t.Errorf("BadDates = %d, want 1", rep.BadDates)
	}
}

func TestAreaReportRender(t *testing.T) {
	rep, err := BuildAreaReport(context.Background(), twoDaySource(), AreaOptions{Title: "Areas"})
	if err != nil {
		t.Fatalf("BuildAreaReport: %v", err)
	}
	var buf bytes.Buffer
	if err := rep.Render(&buf, Styles{}, 10); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Areas\n(DB schema v3)\n",
		"Statistics from 09-Feb-26 to 10-Feb-26\n",
		"Area        09   10   Total\n",
		strings.Repeat("=", 27) + "\n",
		"FSX_BOT      0    1 :     1\n",
		"FSX_GEN      3    0 :     3\n",
		"TOTALS       3    2 :     5\n",
		"(NOTE: skipped 1 rows with unparseable dates)\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAreaReportRenderShortensLongArea(t *testing.T) {
	rep := &AreaReport{
		Title:   "Areas",
		Range:   Range{From: day(2026, 2, 9, 0), To: day(2026, 2, 9, 0)},
		Columns: []string{"09"},
		Rows:    []AreaRow{{Area: "A_VERY_LONG_AREA_NAME", Counts: []int{2}, Total: 2}},
		Totals:  []int{2},
	}
	var buf bytes.Buffer
	if err := rep.Render(&buf, Styles{}, 8); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "A_VERY…    2 :     2") {
		t.Errorf("long area not shortened:\n%s", buf.String())
	}
}

func TestBuildAreaReportMonths(t *testing.T) {
	src := &fakeSource{version: "3", rows: []fakeRow{
		{area: "FSX_GEN", date: day(2025, 10, 1, 0)},
		{area: "FSX_GEN", date: day(2025, 12, 24, 0)},
		{area: "FSX_GEN", date: day(2026, 1, 20, 0)},
		{area: "FSX_BOT", date: day(2026, 1, 2, 0)},
	}}
	rep, err := BuildAreaReport(context.Background(), src, AreaOptions{})
	if err != nil {
		t.Fatalf("BuildAreaReport: %v", err)
	}
	if rep.Period != PeriodMonth {
		t.Fatalf("Period = %q, want month", rep.Period)
	}
	if !reflect.DeepEqual(rep.Columns, []string{"15", "14", "13", "12", "11", "10", "9"}) {
		t.Errorf("Columns = %v", rep.Columns)
	}
	gen := rep.Rows[1]
	if gen.Area != "FSX_GEN" || !reflect.DeepEqual(gen.Counts, []int{0, 0, 1, 1, 0, 1, 0}) {
		t.Errorf("FSX_GEN row = %+v", gen)
	}
}

func TestBuildAreaReportForcedPeriod(t *testing.T) {
	rep, err := BuildAreaReport(context.Background(), twoDaySource(), AreaOptions{Period: "MONTH"})
	if err != nil {
		t.Fatalf("BuildAreaReport: %v", err)
	}
	if rep.Period != PeriodMonth || rep.Totals[1] != 5 {
		t.Errorf("period=%q totals=%v, want February (14) to hold 5", rep.Period, rep.Totals)
	}

	if _, err := BuildAreaReport(context.Background(), twoDaySource(), AreaOptions{Period: "week"}); !errors.Is(err, ErrBadPeriod) {
		t.Errorf("err = %v, want ErrBadPeriod", err)
	}
}

func TestBuildAreaReportAreaLists(t *testing.T) {
	tests := []struct {
		name  string
		opts  AreaOptions
		areas []string
	}{
		{"known adds zero rows", AreaOptions{Known: []string{"FSX_NEW"}}, []string{"FSX_BOT", "FSX_GEN", "FSX_NEW", UnknownArea}},
		{"only restricts", AreaOptions{Only: []string{"FSX_GEN", "FSX_ZZZ"}}, []string{"FSX_GEN", "FSX_ZZZ"}},
		{"exclude removes", AreaOptions{Exclude: []string{"FSX_GEN", UnknownArea}}, []string{"FSX_BOT"}},
		{"exclude wins over only", AreaOptions{Only: []string{"FSX_GEN", "FSX_BOT"}, Exclude: []string{"FSX_BOT"}}, []string{"FSX_GEN"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rep, err := BuildAreaReport(context.Background(), twoDaySource(), tc.opts)
			if err != nil {
				t.Fatalf("BuildAreaReport: %v", err)
			}
			var got []string
			for _, r := range rep.Rows {
				got = append(got, r.Area)
			}
			if !reflect.DeepEqual(got, tc.areas) {
				t.Errorf("areas = %v, want %v", got, tc.areas)
			}
		})
	}
}

func TestBuildAreaReportEmptyDatabase(t *testing.T) {
	empty := &fakeSource{version: "3"}
	if _, err := BuildAreaReport(context.Background(), empty, AreaOptions{}); !errors.Is(err, ErrEmptyDatabase) {
		t.Fatalf("err = %v, want ErrEmptyDatabase", err)
	}

	rep, err := BuildAreaReport(context.Background(), empty, AreaOptions{
		Known: []string{"FSX_GEN"},
		Range: RangeOptions{From: "2026-02-01", To: "2026-02-03"},
	})
	if err != nil {
		t.Fatalf("zero-traffic report: %v", err)
	}
	if len(rep.Columns) != 3 || len(rep.Rows) != 1 || rep.Rows[0].Total != 0 {
		t.Errorf("zero-traffic report = %+v", rep)
	}
}

func TestBuildAreaReportNoDates(t *testing.T) {
	src := &fakeSource{version: "3", rows: []fakeRow{{area: "FSX_GEN", raw: "junk"}}}
	if _, err := BuildAreaReport(context.Background(), src, AreaOptions{}); !errors.Is(err, ErrNoDates) {
		t.Fatalf("err = %v, want ErrNoDates", err)
	}
}

func TestRangeResolve(t *testing.T) {
	dbMin := day(2026, 1, 5, 6)
	dbMax := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		opts     RangeOptions
		from, to time.Time
	}{
		{"full range", RangeOptions{}, dbMin, dbMax},
		{"week", RangeOptions{Preset: "week"}, day(2026, 3, 9, 0), dbMax},
		{"current month", RangeOptions{Preset: PresetCMonth}, day(2026, 3, 1, 0), dbMax},
		{"previous month", RangeOptions{Preset: PresetMonth}, day(2026, 2, 1, 0), time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC)},
		{"days", RangeOptions{Days: 3}, day(2026, 3, 13, 0), dbMax},
		{"days overrides from", RangeOptions{Days: 1, From: "2026-01-01"}, day(2026, 3, 15, 0), dbMax},
		{"explicit dates", RangeOptions{From: "2026-02-01", To: "2026-02-10"}, day(2026, 2, 1, 0), time.Date(2026, 2, 10, 23, 59, 59, 0, time.UTC)},
		{"explicit time", RangeOptions{From: "2026-02-01 12:00:00", To: "2026-02-10 06:00:00"}, day(2026, 2, 1, 12), day(2026, 2, 10, 6)},
		{"from only", RangeOptions{From: "01-Mar-26"}, day(2026, 3, 1, 0), dbMax},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, err := tc.opts.Resolve(dbMin, dbMax)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if !r.From.Equal(tc.from) || !r.To.Equal(tc.to) {
				t.Errorf("range = %v .. %v, want %v .. %v", r.From, r.To, tc.from, tc.to)
			}
		})
	}
}

func TestRangeResolveJanuaryPreviousMonth(t *testing.T) {
	r, err := RangeOptions{Preset: PresetMonth}.Resolve(day(2025, 1, 1, 0), day(2026, 1, 10, 0))
	if err != nil {
		t.Fatal(err)
	}
	if !r.From.Equal(day(2025, 12, 1, 0)) || !r.To.Equal(time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)) {
		t.Errorf("range = %v .. %v", r.From, r.To)
	}
}

func TestRangeResolveErrors(t *testing.T) {
	dbMin, dbMax := day(2026, 1, 1, 0), day(2026, 2, 1, 0)
	tests := []struct {
		name string
		opts RangeOptions
		want error
	}{
		{"preset with days", RangeOptions{Preset: PresetWeek, Days: 3}, ErrRangeConflict},
		{"preset with from", RangeOptions{Preset: PresetWeek, From: "2026-01-01"}, ErrRangeConflict},
		{"unknown preset", RangeOptions{Preset: "YEAR"}, ErrBadPreset},
		{"negative days", RangeOptions{Days: -1}, nil},
		{"bad from", RangeOptions{From: "yesterday"}, nil},
		{"reversed", RangeOptions{From: "2026-01-20", To: "2026-01-10"}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.opts.Resolve(dbMin, dbMax)
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func topSource() *fakeSource {
	d := day(2026, 2, 9, 12)
	return &fakeSource{version: "3", rows: []fakeRow{
		{area: "FSX_GEN", date: d, from: "Avon", subject: "Hello", size: 1536, lines: 30},
		{area: "FSX_GEN", date: d, from: "Sean", subject: "Re: Hello", size: 200, lines: 4},
		{area: "FSX_GEN", date: d, from: "Avon", subject: "RE[2]: re: Hello", size: 300, lines: 6},
		{area: "FSX_GEN", date: d, from: " ", subject: "", size: 0},
		{area: "FSX_GEN", date: d, from: "Sean", subject: "Weather", size: 4000, lines: 80},
		{area: "FSX_BOT", date: d, from: "Bot", subject: "Stats", size: 99},
	}}
}

func TestBuildTopReport(t *testing.T) {
	rep, err := BuildTopReport(context.Background(), topSource(), TopOptions{Title: "Echo", Area: "FSX_GEN"})
	if err != nil {
		t.Fatalf("BuildTopReport: %v", err)
	}
	if rep.Total != 5 {
		t.Errorf("Total = %d, want 5", rep.Total)
	}
	wantPosters := []Ranked{{"Avon", 2}, {"Sean", 2}, {"(unknown)", 1}}
	if !reflect.DeepEqual(rep.Posters, wantPosters) {
		t.Errorf("Posters = %v, want %v", rep.Posters, wantPosters)
	}
	wantSubjects := []Ranked{{"Hello", 3}, {"(no subject)", 1}, {"Weather", 1}}
	if !reflect.DeepEqual(rep.Subjects, wantSubjects) {
		t.Errorf("Subjects = %v, want %v", rep.Subjects, wantSubjects)
	}
	wantSize := []PosterSize{{"Sean", 4200, 4000}, {"Avon", 1836, 1536}, {"(unknown)", 0, 0}}
	if !reflect.DeepEqual(rep.BySize, wantSize) {
		t.Errorf("BySize = %v, want %v", rep.BySize, wantSize)
	}
	if len(rep.Largest) != 4 || rep.Largest[0].Size != 4000 || rep.Largest[3].Size != 200 {
		t.Errorf("Largest = %+v", rep.Largest)
	}
}

func TestBuildTopReportLimit(t *testing.T) {
	rep, err := BuildTopReport(context.Background(), topSource(), TopOptions{Area: "FSX_GEN", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Posters) != 1 || len(rep.Subjects) != 1 || len(rep.BySize) != 1 || len(rep.Largest) != 1 {
		t.Errorf("limit not applied: %+v", rep)
	}
}

func TestBuildTopReportErrors(t *testing.T) {
	if _, err := BuildTopReport(context.Background(), topSource(), TopOptions{}); err == nil {
		t.Error("expected error without area")
	}
	if _, err := BuildTopReport(context.Background(), &fakeSource{}, TopOptions{Area: "X"}); !errors.Is(err, ErrEmptyDatabase) {
		t.Errorf("err = %v, want ErrEmptyDatabase", err)
	}
}

func TestTopReportRender(t *testing.T) {
	rep, err := BuildTopReport(context.Background(), topSource(), TopOptions{Title: "Echo", Area: "FSX_GEN"})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := rep.Render(&buf, Styles{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Echo: top stats for area FSX_GEN\n",
		"Total messages in range: 5\n",
		"Top posters\n===========\n",
		"#  Poster     Msgs\n",
		"1  Avon          2\n",
		"1  Hello            3\n",
		"Top posters by total message size\n",
		"1  Sean       4.1 KiB  3.9 KiB\n",
		"Largest individual messages\n",
		"1.5 KiB",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTopReportRenderNoMessages(t *testing.T) {
	rep, err := BuildTopReport(context.Background(), topSource(), TopOptions{Area: "FSX_NONE"})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := rep.Render(&buf, Styles{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `No messages found in area "FSX_NONE"`) {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "Top posters") {
		t.Error("tables rendered for an empty area")
	}
}

func TestNormalizeSubject(t *testing.T) {
	tests := map[string]string{
		"Hello":             "Hello",
		"  Re: Hello ":      "Hello",
		"RE: re:Hello":      "Hello",
		"Re[12]: Hello":     "Hello",
		"Re: ":              "(no subject)",
		"":                  "(no subject)",
		"Regarding: thing":  "Regarding: thing",
		"Hello Re: Goodbye": "Hello Re: Goodbye",
	}
	for in, want := range tests {
		if got := NormalizeSubject(in); got != want {
			t.Errorf("NormalizeSubject(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestShorten(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a longer label", 8, "a longe…"},
		{"two  spaces\there", 20, "two spaces here"},
		{"abc def", 5, "abc…"},
		{"Jürgen Müller", 7, "Jürgen…"},
		{"abc", 1, "…"},
	}
	for _, tc := range tests {
		if got := shorten(tc.in, tc.width); got != tc.want {
			t.Errorf("shorten(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}

func TestLoadAreaList(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	tests := []struct {
		name string
		path string
		want []string
	}{
		{"text", write("areas.txt", "# comment\nFSX_GEN\n\n  FSX_BOT  \r\n"), []string{"FSX_GEN", "FSX_BOT"}},
		{"json list", write("areas.json", `["FSX_GEN", 7, " ", "FSX_BOT"]`), []string{"FSX_GEN", "FSX_BOT"}},
		{"json object", write("obj.json", `{"areas": ["FSX_GEN"]}`), []string{"FSX_GEN"}},
		{"json by content", write("areas.lst", ` ["FSX_GEN"]`), []string{"FSX_GEN"}},
		{"yaml list", write("areas.yaml", "- FSX_GEN\n- FSX_BOT\n"), []string{"FSX_GEN", "FSX_BOT"}},
		{"yaml object", write("areas.yml", "areas:\n  - FSX_GEN\n"), []string{"FSX_GEN"}},
		{"empty path", "", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LoadAreaList(tc.path)
			if err != nil {
				t.Fatalf("LoadAreaList: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}

	for _, bad := range []string{
		write("bad.json", `{"names": ["FSX_GEN"]}`),
		write("broken.json", `["FSX_GEN"`),
		filepath.Join(dir, "missing.txt"),
	} {
		if _, err := LoadAreaList(bad); err == nil {
			t.Errorf("LoadAreaList(%s): expected error", filepath.Base(bad))
		}
	}
}

func TestRenderCheck(t *testing.T) {
	in := &store.Inspection{
		SchemaVersion:  "3",
		Columns:        []string{"id", "pkt_file", "echo", "msg_lines"},
		MissingColumns: []string{"subject"},
		Total:          1200,
		Packets:        4,
		PartialPackets: 1,
		DateMin:        "2026-02-09 12:00:00",
		DateMax:        "2026-02-10 08:00:00",
		ImportedMin:    "2026-03-01 08:00:00",
		ImportedMax:    "2026-03-01 08:00:00",
		Samples: []store.Sample{
			{ID: 1, Area: "", Size: 42, Lines: sql.NullInt64{Int64: 3, Valid: true}, PctQuoted: sql.NullFloat64{Float64: 33.333, Valid: true}, From: "Avon", Subject: "Hi"},
		},
	}
	var buf bytes.Buffer
	if err := RenderCheck(&buf, Styles{}, "pkt_index.db", in); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Inspecting: pkt_index.db\n",
		"meta.schema_version: 3\n",
		"  id, pkt_file, echo, msg_lines\n",
		"  - subject\n",
		"  msg_lines column present : YES\n",
		"  pct_quoted column present: NO\n",
		"Total messages in pkt_messages: 1,200\n",
		"Packets recorded: 4 (1 not complete)\n",
		"date_iso range           : 2026-02-09 12:00:00  ->  2026-02-10 08:00:00\n",
		"[1]  Area=UNKNOWN",
		"date_iso=-  size=42  lines=3  quoted=33.3%",
		`from="Avon"  subj="Hi"  imported_at=-`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
