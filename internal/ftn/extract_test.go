package ftn

import (
	"errors"
	"testing"
	"time"
)

func parseOne(t *testing.T, msg testMessage, opts Options) ExtractedMessage {
	t.Helper()
	res, err := Parse(buildPacket(t, newWireHeader(21, 3, 110, 0, 21, 1, 100, 0, ""), []testMessage{msg}), opts)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Messages) != 1 {
		t.Fatalf("got %d messages (err=%v)", len(res.Messages), res.Err)
	}
	return res.Messages[0]
}

func TestParseRoundTripsMessageFields(t *testing.T) {
	msg := sampleMessage(7)
	msg.Attr = MsgAttrPrivate | MsgAttrLocal
	msg.Cost = 3

	m := parseOne(t, msg, DefaultOptions())
	if m.From != "Sender 7" || m.To != "All" || m.Subject != "Msg 7" {
		t.Errorf("names: %q %q %q", m.From, m.To, m.Subject)
	}
	if m.Area != "FSX_GEN" || !m.AreaFound {
		t.Errorf("area: %q", m.Area)
	}
	if got := m.Orig.String(); got != "21:3/110" {
		t.Errorf("orig: %s", got)
	}
	if got := m.Dest.String(); got != "21:1/100" {
		t.Errorf("dest: %s", got)
	}
	if m.Attr != msg.Attr || m.Cost != 3 {
		t.Errorf("attr/cost: %x %d", m.Attr, m.Cost)
	}
	want := time.Date(2026, 2, 9, 12, 7, 0, 0, time.UTC)
	if m.DateErr != nil || !m.Date.Equal(want) {
		t.Errorf("date: %v %v", m.Date, m.DateErr)
	}
	if m.Size != len(msg.Body) {
		t.Errorf("size: got %d, want %d", m.Size, len(msg.Body))
	}
	if m.Lines != 2 || m.Quoted != 1 || m.QuotedPct != 50 {
		t.Errorf("lines: %d quoted %d pct %v", m.Lines, m.Quoted, m.QuotedPct)
	}
	if m.MsgID != "21:3/110 00000007" {
		t.Errorf("msgid: %q", m.MsgID)
	}
	if m.Kludges != 2 {
		t.Errorf("kludges: %d", m.Kludges)
	}
}

func TestParseKeepsUnparseableDate(t *testing.T) {
	msg := sampleMessage(1)
	msg.DateTime = "sometime"
	m := parseOne(t, msg, DefaultOptions())
	if !errors.Is(m.DateErr, ErrUnparseableDate) {
		t.Errorf("DateErr: %v", m.DateErr)
	}
	if m.DateRaw != "sometime" || !m.Date.IsZero() {
		t.Errorf("raw %q date %v", m.DateRaw, m.Date)
	}
}

func TestParseFallbackArea(t *testing.T) {
	msg := sampleMessage(1)
	msg.Body = "netmail text\r"

	if m := parseOne(t, msg, DefaultOptions()); m.Area != DefaultFallbackArea || m.AreaFound {
		t.Errorf("default fallback: %q found=%v", m.Area, m.AreaFound)
	}

	opts := DefaultOptions()
	opts.FallbackArea = "NETMAIL"
	if m := parseOne(t, msg, opts); m.Area != "NETMAIL" {
		t.Errorf("custom fallback: %q", m.Area)
	}

	if m := parseOne(t, msg, Options{}); m.Area != "" {
		t.Errorf("zero options should leave area empty, got %q", m.Area)
	}
}

func TestParseCharsets(t *testing.T) {
	msg := sampleMessage(1)
	msg.From = "J\x81rgen" // cp437 u-umlaut

	opts := DefaultOptions()
	opts.Charset = CharsetCP437
	if m := parseOne(t, msg, opts); m.From != "Jürgen" {
		t.Errorf("cp437: got %q", m.From)
	}

	msg.From = "J\xfcrgen" // latin1 u-umlaut
	if m := parseOne(t, msg, DefaultOptions()); m.From != "Jürgen" {
		t.Errorf("latin1: got %q", m.From)
	}
}

func TestParseCharsetNames(t *testing.T) {
	tests := map[string]Charset{
		"":       CharsetLatin1,
		"CP437":  CharsetCP437,
		"ibm866": CharsetCP866,
		"UTF-8":  CharsetUTF8,
	}
	for in, want := range tests {
		got, err := ParseCharset(in)
		if err != nil || got != want {
			t.Errorf("ParseCharset(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseCharset("ebcdic"); err == nil {
		t.Error("ParseCharset should reject unknown names")
	}
}

func TestParseAddressKludges(t *testing.T) {
	msg := sampleMessage(1)
	msg.Body = "\x01INTL 2:5020/1042 1:103/705\r\x01FMPT 4\r\x01TOPT 9\rhi\r"
	m := parseOne(t, msg, DefaultOptions())
	if got := m.Orig.String(); got != "1:103/705.4" {
		t.Errorf("orig: %s", got)
	}
	if got := m.Dest.String(); got != "2:5020/1042.9" {
		t.Errorf("dest: %s", got)
	}
}

func TestParseCustomQuoteFunc(t *testing.T) {
	msg := sampleMessage(1)
	msg.Body = "\x01AREA:X\r: colon quote\r> not counted\rplain\r"

	opts := DefaultOptions()
	opts.QuoteFunc = func(line []byte) bool { return len(line) > 0 && line[0] == ':' }
	m := parseOne(t, msg, opts)
	if m.Lines != 3 || m.Quoted != 1 {
		t.Errorf("lines %d quoted %d", m.Lines, m.Quoted)
	}

	opts = DefaultOptions()
	opts.QuoteMarkers = ":>"
	if m := parseOne(t, msg, opts); m.Quoted != 2 {
		t.Errorf("markers: quoted %d", m.Quoted)
	}
}

func TestParseTrimsHeaderStrings(t *testing.T) {
	msg := sampleMessage(1)
	msg.To = "  Sysop  "
	if m := parseOne(t, msg, DefaultOptions()); m.To != "Sysop" {
		t.Errorf("to: %q", m.To)
	}
}
