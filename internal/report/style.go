package report

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// Styles colors report output. The zero value renders plain text.
type Styles struct {
	Title  lipgloss.Style
	Note   lipgloss.Style
	Header lipgloss.Style
	Rule   lipgloss.Style
	Total  lipgloss.Style

	enabled bool
}

// NewStyles returns styles bound to w's color profile, so output to a file
// or pipe stays free of escape sequences.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Note:   r.NewStyle().Foreground(lipgloss.Color("8")),
		Header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		Rule:   r.NewStyle().Foreground(lipgloss.Color("4")),
		Total:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),

		enabled: true,
	}
}

// printer writes styled lines and keeps the first write error.
type printer struct {
	w      io.Writer
	styled bool
	err    error
}

func newPrinter(w io.Writer, st Styles) *printer {
	return &printer{w: w, styled: st.enabled}
}

func (p *printer) line(style lipgloss.Style, s string) {
	if p.styled && s != "" {
		s = style.Render(s)
	}
	p.plain(s)
}

func (p *printer) plain(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s+"\n")
}

func (p *printer) blank() { p.plain("") }

// title writes s underlined with = signs.
func (p *printer) title(st Styles, s string) {
	p.line(st.Title, s)
	p.line(st.Rule, strings.Repeat("=", utf8.RuneCountInString(s)))
}

// shorten collapses runs of whitespace and truncates s to width runes,
// ending with an ellipsis when cut.
func shorten(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width <= 0 || utf8.RuneCountInString(s) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	r := []rune(s)
	return strings.TrimRight(string(r[:width-1]), " ") + "…"
}
