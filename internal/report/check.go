package report

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/stlalpha/pktindex/internal/store"
)

// RenderCheck writes a schema and contents summary of the database at path.
func RenderCheck(w io.Writer, st Styles, path string, in *store.Inspection) error {
	p := newPrinter(w, st)
	p.line(st.Title, "Inspecting: "+path)
	p.blank()
	p.plain("meta.schema_version: " + in.SchemaVersion)

	p.blank()
	p.line(st.Header, "Columns in pkt_messages:")
	p.plain("  " + strings.Join(in.Columns, ", "))
	if len(in.MissingColumns) > 0 {
		p.blank()
		p.line(st.Total, "WARNING: Missing expected base columns:")
		for _, c := range in.MissingColumns {
			p.plain("  - " + c)
		}
	}

	p.blank()
	p.line(st.Header, "Extended body stats:")
	p.plain("  msg_lines column present : " + yesNo(slices.Contains(in.Columns, "msg_lines")))
	p.plain("  pct_quoted column present: " + yesNo(slices.Contains(in.Columns, "pct_quoted")))

	p.blank()
	p.plain("Total messages in pkt_messages: " + humanize.Comma(int64(in.Total)))
	p.plain(fmt.Sprintf("Packets recorded: %s (%s not complete)",
		humanize.Comma(int64(in.Packets)), humanize.Comma(int64(in.PartialPackets))))
	if in.Total == 0 {
		return p.err
	}
	p.plain(fmt.Sprintf("date_iso range           : %s  ->  %s", dash(in.DateMin), dash(in.DateMax)))
	p.plain(fmt.Sprintf("imported_at range        : %s  ->  %s", dash(in.ImportedMin), dash(in.ImportedMax)))

	p.blank()
	p.line(st.Header, fmt.Sprintf("Sample of first %d messages:", len(in.Samples)))
	p.blank()
	for _, s := range in.Samples {
		area := s.Area
		if area == "" {
			area = UnknownArea
		}
		lines, quoted := "-", "-"
		if s.Lines.Valid {
			lines = fmt.Sprint(s.Lines.Int64)
		}
		if s.PctQuoted.Valid {
			quoted = fmt.Sprintf("%.1f%%", s.PctQuoted.Float64)
		}
		p.plain(fmt.Sprintf("  [%d]  Area=%-30s  date_iso=%s  size=%d  lines=%s  quoted=%s  from=%q  subj=%q  imported_at=%s",
			s.ID, shorten(area, 30), dash(s.DateISO), s.Size, lines, quoted,
			shorten(s.From, 25), shorten(s.Subject, 40), dash(s.ImportedAt)))
	}
	return p.err
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
