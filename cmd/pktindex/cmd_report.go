package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/stlalpha/pktindex/internal/config"
	"github.com/stlalpha/pktindex/internal/pager"
	"github.com/stlalpha/pktindex/internal/report"
)

// reportFlags select the date range and area filtering shared by the
// report, top and view commands. Zero values fall back to the config.
type reportFlags struct {
	rng          report.RangeOptions
	period       string
	knownAreas   string
	onlyAreas    string
	excludeAreas string
	areaWidth    int
	title        string
	limit        int
}

func addReportFlags(fs *flag.FlagSet) *reportFlags {
	f := &reportFlags{}
	fs.StringVar(&f.rng.From, "from", "", "Start date/time (e.g. 2025-12-12)")
	fs.StringVar(&f.rng.To, "to", "", "End date/time (e.g. 2025-12-17)")
	fs.IntVar(&f.rng.Days, "days", 0, "Last N days ending at the newest message (overrides -from/-to)")
	fs.StringVar(&f.rng.Preset, "date", "", "Preset range relative to the newest message: WEEK, MONTH (previous) or CMONTH (current)")
	fs.StringVar(&f.period, "period", report.PeriodAuto, "Grouping period: auto, day or month")
	fs.StringVar(&f.knownAreas, "known-areas", "", "Area list file; listed areas always appear (.txt, .json, .yaml)")
	fs.StringVar(&f.onlyAreas, "only-areas", "", "Area list file; report on these areas only")
	fs.StringVar(&f.excludeAreas, "exclude-areas", "", "Area list file; areas to leave out")
	fs.IntVar(&f.areaWidth, "area-width", 0, "Area column width (default from config, 34)")
	fs.StringVar(&f.title, "title", "", "Report title")
	fs.IntVar(&f.limit, "limit", 0, "Entries per top table (default from config, 10)")
	return f
}

// resolve fills unset values from the config's report section.
func (f *reportFlags) resolve(rc config.ReportConfig) {
	if f.knownAreas == "" {
		f.knownAreas = rc.KnownAreas
	}
	if f.onlyAreas == "" {
		f.onlyAreas = rc.OnlyAreas
	}
	if f.excludeAreas == "" {
		f.excludeAreas = rc.ExcludeAreas
	}
	if f.areaWidth <= 0 {
		f.areaWidth = rc.AreaWidth
	}
	if f.title == "" {
		f.title = rc.Title
	}
	if f.limit <= 0 {
		f.limit = rc.TopLimit
	}
}

func (f *reportFlags) areaOptions() (report.AreaOptions, error) {
	opts := report.AreaOptions{Title: f.title, Range: f.rng, Period: f.period}
	var err error
	if opts.Known, err = report.LoadAreaList(f.knownAreas); err != nil {
		return opts, err
	}
	if opts.Only, err = report.LoadAreaList(f.onlyAreas); err != nil {
		return opts, err
	}
	if opts.Exclude, err = report.LoadAreaList(f.excludeAreas); err != nil {
		return opts, err
	}
	return opts, nil
}

// renderer writes one report with the given styles.
type renderer func(w io.Writer, st report.Styles) error

// buildReport loads configuration, opens the database and returns a
// renderer for either the area summary or, when area is set, the top list.
func buildReport(ctx context.Context, g *globalFlags, f *reportFlags, area string) (renderer, error) {
	cfg, closer, err := g.setup()
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	f.resolve(cfg.Report)

	if _, err := os.Stat(cfg.DBPath); err != nil {
		return nil, fmt.Errorf("DB file not found: %s", cfg.DBPath)
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	if area != "" {
		rep, err := report.BuildTopReport(ctx, st, report.TopOptions{
			Title: f.title, Area: area, Range: f.rng, Limit: f.limit,
		})
		if err != nil {
			return nil, err
		}
		return rep.Render, nil
	}

	opts, err := f.areaOptions()
	if err != nil {
		return nil, err
	}
	rep, err := report.BuildAreaReport(ctx, st, opts)
	if err != nil {
		return nil, err
	}
	return func(w io.Writer, s report.Styles) error { return rep.Render(w, s, f.areaWidth) }, nil
}

// cmdReport implements 'pktindex report': the per-area summary.
func cmdReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	g := addGlobalFlags(fs)
	f := addReportFlags(fs)
	top := fs.String("top", "", "Show top posters/subjects for this area instead")
	fs.Parse(args)

	ctx, cancel := signalContext()
	defer cancel()
	render, err := buildReport(ctx, g, f, *top)
	if err != nil {
		return err
	}
	return render(os.Stdout, report.NewStyles(os.Stdout))
}

// cmdTop implements 'pktindex top AREA'.
func cmdTop(args []string) error {
	fs := flag.NewFlagSet("top", flag.ExitOnError)
	g := addGlobalFlags(fs)
	f := addReportFlags(fs)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("usage: pktindex top [options] AREA")
	}

	ctx, cancel := signalContext()
	defer cancel()
	render, err := buildReport(ctx, g, f, fs.Arg(0))
	if err != nil {
		return err
	}
	return render(os.Stdout, report.NewStyles(os.Stdout))
}

// cmdView implements 'pktindex view': a report in a scrollable pager.
// Output that is not a terminal gets the plain report instead.
func cmdView(args []string) error {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	g := addGlobalFlags(fs)
	f := addReportFlags(fs)
	top := fs.String("top", "", "Show top posters/subjects for this area")
	fs.Parse(args)

	ctx, cancel := signalContext()
	defer cancel()
	render, err := buildReport(ctx, g, f, *top)
	if err != nil {
		return err
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return render(os.Stdout, report.Styles{})
	}
	var buf bytes.Buffer
	if err := render(&buf, report.NewStyles(os.Stdout)); err != nil {
		return err
	}
	title := f.title
	if *top != "" {
		title = fmt.Sprintf("%s: %s", f.title, *top)
	}
	return pager.Run(title, buf.String())
}

// cmdCheck implements 'pktindex check': schema and contents summary.
func cmdCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	g := addGlobalFlags(fs)
	limit := fs.Int("limit", 20, "Rows to display from pkt_messages")
	fs.IntVar(limit, "n", 20, "Alias for -limit")
	fs.Parse(args)

	cfg, closer, err := g.setup()
	if err != nil {
		return err
	}
	defer closer.Close()

	if _, err := os.Stat(cfg.DBPath); err != nil {
		return fmt.Errorf("DB file not found: %s", cfg.DBPath)
	}
	ctx, cancel := signalContext()
	defer cancel()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	in, err := st.Inspect(ctx, *limit)
	if err != nil {
		return err
	}
	return report.RenderCheck(os.Stdout, report.NewStyles(os.Stdout), cfg.DBPath, in)
}
