package report

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
)

// DefaultTopLimit is the number of entries per top table.
const DefaultTopLimit = 10

// replyPrefix matches stacked reply prefixes: "Re: ", "RE[2]: Re:".
var replyPrefix = regexp.MustCompile(`(?i)^(re(\[\d+\])?:\s*)+`)

// Ranked is one entry of a top table.
type Ranked struct {
	Label string
	Count int
}

// PosterSize is a poster's total and largest message size in bytes.
type PosterSize struct {
	Poster string
	Total  int
	Max    int
}

// LargeMessage is one entry of the largest-messages table.
type LargeMessage struct {
	Size    int
	Lines   int
	Poster  string
	Subject string
}

// TopReport lists the busiest posters and threads of one area.
type TopReport struct {
	Title         string
	Area          string
	SchemaVersion string
	Range         Range
	Total         int
	Posters       []Ranked
	Subjects      []Ranked
	BySize        []PosterSize
	Largest       []LargeMessage
}

// TopOptions configures BuildTopReport.
type TopOptions struct {
	Title string
	Area  string
	Range RangeOptions
	Limit int
}

// BuildTopReport aggregates posters, subjects and sizes for one area.
func BuildTopReport(ctx context.Context, src Source, opts TopOptions) (*TopReport, error) {
	if opts.Area == "" {
		return nil, fmt.Errorf("report: no area given for top report")
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultTopLimit
	}
	if err := opts.Range.Validate(); err != nil {
		return nil, err
	}

	version, err := src.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	dbMin, dbMax, err := databaseRange(ctx, src, opts.Range, false)
	if err != nil {
		return nil, err
	}
	rng, err := opts.Range.Resolve(dbMin, dbMax)
	if err != nil {
		return nil, err
	}

	rows, err := src.AreaMessages(ctx, opts.Area, rng.From, rng.To)
	if err != nil {
		return nil, err
	}

	rep := &TopReport{Title: opts.Title, Area: opts.Area, SchemaVersion: version, Range: rng, Total: len(rows)}
	posters := newCounter()
	subjects := newCounter()
	sizes := map[string]*PosterSize{}
	var sizeOrder []string
	var largest []LargeMessage

	for _, r := range rows {
		poster := strings.TrimSpace(r.From)
		if poster == "" {
			poster = "(unknown)"
		}
		subject := NormalizeSubject(r.Subject)
		posters.add(poster, 1)
		subjects.add(subject, 1)

		size := max(r.Size, 0)
		ps, ok := sizes[poster]
		if !ok {
			ps = &PosterSize{Poster: poster}
			sizes[poster] = ps
			sizeOrder = append(sizeOrder, poster)
		}
		ps.Total += size
		ps.Max = max(ps.Max, size)
		if size > 0 {
			largest = append(largest, LargeMessage{Size: size, Lines: r.Lines, Poster: poster, Subject: subject})
		}
	}

	rep.Posters = posters.top(opts.Limit)
	rep.Subjects = subjects.top(opts.Limit)

	for _, p := range sizeOrder {
		rep.BySize = append(rep.BySize, *sizes[p])
	}
	slices.SortStableFunc(rep.BySize, func(a, b PosterSize) int { return cmp.Compare(b.Total, a.Total) })
	rep.BySize = rep.BySize[:min(len(rep.BySize), opts.Limit)]

	slices.SortStableFunc(largest, func(a, b LargeMessage) int { return cmp.Compare(b.Size, a.Size) })
	rep.Largest = largest[:min(len(largest), opts.Limit)]
	return rep, nil
}

// NormalizeSubject strips reply prefixes so replies count toward the
// thread they answer. Empty subjects become "(no subject)".
func NormalizeSubject(subject string) string {
	s := strings.TrimSpace(replyPrefix.ReplaceAllString(strings.TrimSpace(subject), ""))
	if s == "" {
		return "(no subject)"
	}
	return s
}

// counter counts labels, remembering first-seen order for stable ties.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter { return &counter{counts: map[string]int{}} }

func (c *counter) add(label string, n int) {
	if _, ok := c.counts[label]; !ok {
		c.order = append(c.order, label)
	}
	c.counts[label] += n
}

func (c *counter) top(limit int) []Ranked {
	out := make([]Ranked, 0, len(c.order))
	for _, l := range c.order {
		out = append(out, Ranked{Label: l, Count: c.counts[l]})
	}
	slices.SortStableFunc(out, func(a, b Ranked) int { return cmp.Compare(b.Count, a.Count) })
	return out[:min(len(out), limit)]
}

// Render writes the top tables.
func (r *TopReport) Render(w io.Writer, st Styles) error {
	p := newPrinter(w, st)
	p.line(st.Title, fmt.Sprintf("%s: top stats for area %s", r.Title, r.Area))
	p.line(st.Note, fmt.Sprintf("(DB schema v%s)", r.SchemaVersion))
	p.plain(r.Range.heading())
	if r.Total == 0 {
		p.plain(fmt.Sprintf("No messages found in area %q for the selected date range.", r.Area))
		return p.err
	}
	p.plain("Total messages in range: " + humanize.Comma(int64(r.Total)))

	renderRanked(p, st, "Top posters", "Poster", r.Posters)
	renderRanked(p, st, "Top subjects", "Subject", r.Subjects)
	renderBySize(p, st, r.BySize)
	renderLargest(p, st, r.Largest)
	return p.err
}

func renderRanked(p *printer, st Styles, title, label string, items []Ranked) {
	p.blank()
	p.title(st, title)
	if len(items) == 0 {
		p.plain("(no data)")
		return
	}

	rankWidth := len(fmt.Sprint(len(items)))
	countWidth := len("Msgs")
	labelWidth := len(label)
	for _, it := range items {
		countWidth = max(countWidth, len(fmt.Sprint(it.Count)))
		labelWidth = max(labelWidth, min(60, len([]rune(it.Label))))
	}

	header := fmt.Sprintf("%*s  %-*s  %*s", rankWidth, "#", labelWidth, label, countWidth, "Msgs")
	p.line(st.Header, header)
	p.line(st.Rule, strings.Repeat("-", len(header)))
	for i, it := range items {
		p.plain(fmt.Sprintf("%*d  %-*s  %*d", rankWidth, i+1, labelWidth, shorten(it.Label, labelWidth), countWidth, it.Count))
	}
}

func renderBySize(p *printer, st Styles, items []PosterSize) {
	p.blank()
	p.title(st, "Top posters by total message size")
	if len(items) == 0 {
		p.plain("(no data)")
		return
	}

	rankWidth := len(fmt.Sprint(len(items)))
	labelWidth := len("Poster")
	totalWidth := len("Total")
	maxWidth := len("Max")
	for _, it := range items {
		labelWidth = max(labelWidth, min(40, len([]rune(it.Poster))))
		totalWidth = max(totalWidth, len(formatBytes(it.Total)))
		maxWidth = max(maxWidth, len(formatBytes(it.Max)))
	}

	header := fmt.Sprintf("%*s  %-*s  %*s  %*s", rankWidth, "#", labelWidth, "Poster", totalWidth, "Total", maxWidth, "Max")
	p.line(st.Header, header)
	p.line(st.Rule, strings.Repeat("-", len(header)))
	for i, it := range items {
		p.plain(fmt.Sprintf("%*d  %-*s  %*s  %*s", rankWidth, i+1, labelWidth, shorten(it.Poster, labelWidth),
			totalWidth, formatBytes(it.Total), maxWidth, formatBytes(it.Max)))
	}
}

func renderLargest(p *printer, st Styles, items []LargeMessage) {
	if len(items) == 0 {
		return
	}
	p.blank()
	p.title(st, "Largest individual messages")
	p.line(st.Header, fmt.Sprintf("%2s  %10s  %6s  %-20s  Subject", "#", "Size", "Lines", "Poster"))
	p.line(st.Rule, strings.Repeat("-", 64))
	for i, it := range items {
		p.plain(fmt.Sprintf("%2d  %10s  %6d  %-20s  %s", i+1, formatBytes(it.Size), it.Lines,
			shorten(it.Poster, 20), shorten(it.Subject, 60)))
	}
}

func formatBytes(n int) string {
	return humanize.IBytes(uint64(max(n, 0)))
}
