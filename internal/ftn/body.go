package ftn

import (
	"bytes"
	"iter"
	"strings"
)

// KludgeByte is the SOH control byte that starts an FTN kludge line.
const KludgeByte = 0x01

// maxAttribution bounds the initials QuoteMarkersWithAttribution allows
// before a quote marker ("SR>").
const maxAttribution = 8

var (
	areaPrefix   = []byte("AREA:")
	seenByPrefix = []byte("SEEN-BY:")
	msgIDPrefix  = []byte("MSGID:")
)

// LineKind tags a body line after classification.
type LineKind int

const (
	LineDisplay LineKind = iota // human-readable text
	LineKludge                  // starts with the kludge byte, never displayed
	LineSeenBy                  // SEEN-BY distribution line, displayed
	LineArea                    // bare "AREA:" first line, displayed
)

func (k LineKind) String() string {
	switch k {
	case LineKludge:
		return "kludge"
	case LineSeenBy:
		return "seen-by"
	case LineArea:
		return "area"
	default:
		return "display"
	}
}

// Line is one classified body line. For kludges Text excludes the control
// byte; it never includes the line terminator.
type Line struct {
	Kind LineKind
	Text []byte
}

// Lines returns a single-pass sequence of classified lines in body. Lines
// end at CR, LF or CRLF; a final terminator does not start an empty line.
// Only lines starting with the kludge byte are kludges. A bare "AREA:" first
// line (FTS-0004 placement) is tagged LineArea and SEEN-BY lines LineSeenBy;
// both are still display text.
func Lines(body []byte, kludge byte) iter.Seq[Line] {
	return func(yield func(Line) bool) {
		first := true
		for len(body) > 0 {
			i := bytes.IndexAny(body, "\r\n")
			var line []byte
			if i < 0 {
				line, body = body, nil
			} else {
				line = body[:i]
				next := i + 1
				if body[i] == '\r' && next < len(body) && body[next] == '\n' {
					next++
				}
				body = body[next:]
			}
			if !yield(classify(line, kludge, first)) {
				return
			}
			first = false
		}
	}
}

func classify(line []byte, kludge byte, first bool) Line {
	switch {
	case len(line) > 0 && line[0] == kludge:
		return Line{Kind: LineKludge, Text: line[1:]}
	case first && hasPrefixFold(line, areaPrefix):
		return Line{Kind: LineArea, Text: line}
	case bytes.HasPrefix(line, seenByPrefix):
		return Line{Kind: LineSeenBy, Text: line}
	default:
		return Line{Kind: LineDisplay, Text: line}
	}
}

// QuoteFunc reports whether a display line is quoted text.
type QuoteFunc func(line []byte) bool

// QuoteMarkers returns the default quote predicate: the first non-blank byte
// of the line is one of markers. A blank line is never quoted.
func QuoteMarkers(markers string) QuoteFunc {
	return func(line []byte) bool {
		s := bytes.TrimLeft(line, " \t")
		return len(s) > 0 && strings.IndexByte(markers, s[0]) >= 0
	}
}

// QuoteMarkersWithAttribution also accepts up to eight alphanumeric
// attribution characters before the marker ("SR> text", "Sean> text").
func QuoteMarkersWithAttribution(markers string) QuoteFunc {
	return func(line []byte) bool {
		s := bytes.TrimLeft(line, " \t")
		for i := 0; i < len(s) && i <= maxAttribution; i++ {
			ch := s[i]
			if strings.IndexByte(markers, ch) >= 0 {
				return true
			}
			if !isAttributionChar(ch) {
				return false
			}
		}
		return false
	}
}

func isAttributionChar(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '_'
}

// Analysis is the text statistics of one message body.
type Analysis struct {
	Area         string
	AreaFound    bool
	MsgID        string
	Kludges      []string
	DisplayLines int
	QuotedLines  int
	SeenByLines  int
}

// QuotedPercent is 100*quoted/display, or 0 when there are no display lines.
func (a Analysis) QuotedPercent() float64 {
	if a.DisplayLines == 0 {
		return 0
	}
	return float64(a.QuotedLines) * 100 / float64(a.DisplayLines)
}

// Analyze classifies every line of body in one forward pass. Every line that
// does not start with the kludge byte is a display line.
func Analyze(body []byte, kludge byte, quoted QuoteFunc) Analysis {
	return analyze(body, kludge, quoted, false)
}

// analyze is Analyze with SEEN-BY lines optionally left out of the display
// and quote counts.
func analyze(body []byte, kludge byte, quoted QuoteFunc, skipSeenBy bool) Analysis {
	var a Analysis
	for line := range Lines(body, kludge) {
		switch line.Kind {
		case LineKludge:
			a.Kludges = append(a.Kludges, string(line.Text))
			if !a.AreaFound && hasPrefixFold(line.Text, areaPrefix) {
				if area := strings.TrimSpace(string(line.Text[len(areaPrefix):])); area != "" {
					a.Area, a.AreaFound = area, true
				}
			}
			if a.MsgID == "" && bytes.HasPrefix(line.Text, msgIDPrefix) {
				a.MsgID = strings.TrimSpace(string(line.Text[len(msgIDPrefix):]))
			}
			continue
		case LineArea:
			if area := strings.TrimSpace(string(line.Text[len(areaPrefix):])); area != "" && !a.AreaFound {
				a.Area, a.AreaFound = area, true
			}
		case LineSeenBy:
			a.SeenByLines++
			if skipSeenBy {
				continue
			}
		}
		a.DisplayLines++
		if quoted != nil && quoted(line.Text) {
			a.QuotedLines++
		}
	}
	return a
}

func hasPrefixFold(b, prefix []byte) bool {
	return len(b) >= len(prefix) && bytes.EqualFold(b[:len(prefix)], prefix)
}
