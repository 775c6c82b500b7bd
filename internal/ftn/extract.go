package ftn

import (
	"strconv"
	"strings"
	"time"
)

// DefaultFallbackArea is recorded for messages without an AREA kludge.
const DefaultFallbackArea = "UNKNOWN"

// Options carries the caller-supplied parsing conventions. Parse reads no
// global configuration; a zero Options behaves like DefaultOptions.
type Options struct {
	KludgeByte       byte      // 0 means KludgeByte (SOH)
	QuoteMarkers     string    // "" means ">"
	QuoteAttribution bool      // also accept "SR> text" style quotes
	QuoteFunc        QuoteFunc // overrides QuoteMarkers when set
	SkipSeenBy       bool      // leave SEEN-BY lines out of line and quote counts
	FallbackArea     string    // area for messages without AREA; may be empty
	Charset          Charset   // "" means Latin-1
}

// DefaultOptions returns the conventional FTN settings.
func DefaultOptions() Options {
	return Options{
		KludgeByte:   KludgeByte,
		QuoteMarkers: ">",
		FallbackArea: DefaultFallbackArea,
		Charset:      CharsetLatin1,
	}
}

func (o Options) kludge() byte {
	if o.KludgeByte == 0 {
		return KludgeByte
	}
	return o.KludgeByte
}

func (o Options) quote() QuoteFunc {
	if o.QuoteFunc != nil {
		return o.QuoteFunc
	}
	markers := o.QuoteMarkers
	if markers == "" {
		markers = ">"
	}
	if o.QuoteAttribution {
		return QuoteMarkersWithAttribution(markers)
	}
	return QuoteMarkers(markers)
}

// ExtractedMessage is the normalized metadata of one packed message.
type ExtractedMessage struct {
	Index     int
	Offset    int
	Area      string
	AreaFound bool // false when Area is the fallback
	From      string
	To        string
	Subject   string
	Orig      Address
	Dest      Address
	Attr      uint16
	Cost      uint16
	DateRaw   string
	Date      time.Time // zero when DateErr is set
	DateErr   error     // wraps ErrUnparseableDate
	Size      int       // body length in bytes
	Lines     int       // display lines
	Quoted    int       // quoted display lines
	QuotedPct float64   // 0..100
	MsgID     string
	Kludges   int
	SeenBy    int
}

// Result is the outcome of parsing one packet buffer.
type Result struct {
	Header        *PacketHeader
	Messages      []ExtractedMessage
	Status        Status
	BytesSkipped  int
	TrailingBytes int
	Err           error // cause of StatusPartial
}

// Complete reports whether the packet terminator was reached.
func (r *Result) Complete() bool { return r.Status == StatusComplete }

// Parse decodes a complete packet buffer. It is a pure function of buf and
// opts, so distinct buffers may be parsed concurrently. A header failure
// returns a *HeaderError and no result; record failures yield a partial
// result holding every message decoded before the failure.
func Parse(buf []byte, opts Options) (*Result, error) {
	c := NewCursor(buf)
	hdr, err := DecodePacketHeader(c)
	if err != nil {
		return nil, err
	}

	scan := Scan(c)
	res := &Result{
		Header:        hdr,
		Messages:      make([]ExtractedMessage, 0, len(scan.Records)),
		Status:        scan.Status,
		BytesSkipped:  scan.BytesSkipped,
		TrailingBytes: scan.TrailingBytes,
		Err:           scan.Err,
	}
	for _, rec := range scan.Records {
		res.Messages = append(res.Messages, Assemble(hdr, rec, opts))
	}
	return res, nil
}

// Assemble combines a record and its body analysis into an ExtractedMessage.
// An unparseable date stamp is kept raw with DateErr set.
func Assemble(pkt *PacketHeader, rec Record, opts Options) ExtractedMessage {
	cs := opts.Charset
	a := analyze(rec.Body, opts.kludge(), opts.quote(), opts.SkipSeenBy)

	m := ExtractedMessage{
		Index:     rec.Index,
		Offset:    rec.Offset,
		Area:      cs.Decode([]byte(a.Area)),
		AreaFound: a.AreaFound,
		From:      strings.TrimSpace(cs.Decode(rec.Header.From)),
		To:        strings.TrimSpace(cs.Decode(rec.Header.To)),
		Subject:   strings.TrimSpace(cs.Decode(rec.Header.Subject)),
		Attr:      rec.Header.Attr,
		Cost:      rec.Header.Cost,
		DateRaw:   cs.Decode(rec.Header.DateTime),
		Size:      len(rec.Body),
		Lines:     a.DisplayLines,
		Quoted:    a.QuotedLines,
		QuotedPct: a.QuotedPercent(),
		MsgID:     a.MsgID,
		Kludges:   len(a.Kludges),
		SeenBy:    a.SeenByLines,
	}
	if !m.AreaFound {
		m.Area = opts.FallbackArea
	}

	m.Date, m.DateErr = ParseFTNDateTime(m.DateRaw)

	m.Orig = Address{Net: int(rec.Header.OrigNet), Node: int(rec.Header.OrigNode)}
	m.Dest = Address{Net: int(rec.Header.DestNet), Node: int(rec.Header.DestNode)}
	if pkt != nil {
		m.Orig.Zone = pkt.Orig.Zone
		m.Dest.Zone = pkt.Dest.Zone
	}
	applyAddressKludges(&m, a.Kludges)
	return m
}

// applyAddressKludges refines message addresses from INTL, FMPT and TOPT.
func applyAddressKludges(m *ExtractedMessage, kludges []string) {
	for _, k := range kludges {
		name, value, _ := strings.Cut(k, " ")
		value = strings.TrimSpace(value)
		switch strings.TrimSuffix(name, ":") {
		case "INTL":
			fields := strings.Fields(value)
			if len(fields) != 2 {
				continue
			}
			if dest, err := ParseAddress(fields[0]); err == nil {
				m.Dest.Zone, m.Dest.Net, m.Dest.Node = dest.Zone, dest.Net, dest.Node
			}
			if orig, err := ParseAddress(fields[1]); err == nil {
				m.Orig.Zone, m.Orig.Net, m.Orig.Node = orig.Zone, orig.Net, orig.Node
			}
		case "FMPT":
			if p, err := strconv.Atoi(value); err == nil {
				m.Orig.Point = p
			}
		case "TOPT":
			if p, err := strconv.Atoi(value); err == nil {
				m.Dest.Point = p
			}
		}
	}
}
