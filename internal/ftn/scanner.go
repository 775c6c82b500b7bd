package ftn

import (
	"encoding/binary"
	"errors"
)

// Message type markers (FTS-0001).
const (
	MsgTypeTerminator = 0x0000
	MsgTypePacked     = 0x0002
)

// Maximum widths of the packed message string fields, terminator included.
const (
	DateTimeWidth = 20
	NameWidth     = 36
	SubjectWidth  = 72
)

// Packed message attribute flags (FTS-0001).
const (
	MsgAttrPrivate  = 0x0001
	MsgAttrCrash    = 0x0002
	MsgAttrReceived = 0x0004
	MsgAttrSent     = 0x0008
	MsgAttrFile     = 0x0010
	MsgAttrTransit  = 0x0020
	MsgAttrOrphan   = 0x0040
	MsgAttrKillSent = 0x0080
	MsgAttrLocal    = 0x0100
	MsgAttrHold     = 0x0200
	MsgAttrFRQ      = 0x0800
)

// MessageHeader is the decoded fixed and NUL-terminated part of a packed
// message. String fields hold raw bytes; decoding happens during assembly.
type MessageHeader struct {
	MsgType  uint16
	OrigNode uint16
	DestNode uint16
	OrigNet  uint16
	DestNet  uint16
	Attr     uint16
	Cost     uint16
	DateTime []byte
	To       []byte
	From     []byte
	Subject  []byte
}

type mh = MessageHeader

var messageLayout = []fieldSpec[mh]{
	{"msgType", 2, u16(func(h *mh, v uint16) { h.MsgType = v })},
	{"origNode", 2, u16(func(h *mh, v uint16) { h.OrigNode = v })},
	{"destNode", 2, u16(func(h *mh, v uint16) { h.DestNode = v })},
	{"origNet", 2, u16(func(h *mh, v uint16) { h.OrigNet = v })},
	{"destNet", 2, u16(func(h *mh, v uint16) { h.DestNet = v })},
	{"attr", 2, u16(func(h *mh, v uint16) { h.Attr = v })},
	{"cost", 2, u16(func(h *mh, v uint16) { h.Cost = v })},
}

var messageStrings = []stringSpec[mh]{
	{"datetime", DateTimeWidth, func(h *mh, b []byte) { h.DateTime = b }},
	{"to", NameWidth, func(h *mh, b []byte) { h.To = b }},
	{"from", NameWidth, func(h *mh, b []byte) { h.From = b }},
	{"subject", SubjectWidth, func(h *mh, b []byte) { h.Subject = b }},
}

// MessageHeaderSize is the width of the fixed part of a packed message.
var MessageHeaderSize = layoutSize(messageLayout)

// Record is one raw message found by the scanner. Header strings and Body
// alias the packet buffer, which must not be modified while in use.
type Record struct {
	Index  int
	Offset int // byte offset of the message type marker
	Length int // bytes consumed by the whole record, terminators included
	Header MessageHeader
	Body   []byte
}

// Status is the packet-level outcome of a scan.
type Status int

const (
	StatusComplete Status = iota // terminator reached
	StatusPartial                // scanning stopped early; earlier records are valid
)

func (s Status) String() string {
	if s == StatusPartial {
		return "partial"
	}
	return "complete"
}

// ScanResult is the outcome of walking the message records of a packet.
type ScanResult struct {
	Records       []Record
	Status        Status
	BytesSkipped  int   // unread bytes from the failed record to end of buffer
	TrailingBytes int   // bytes after the terminator, ignored
	Err           error // cause when Status is StatusPartial (a *RecordError)
}

// Scan walks packed messages from the cursor position, normally right after
// the packet header, until the terminator or the first malformed record.
// Failures are contained in the result and never discard earlier records.
// Running out of buffer before the terminator is StatusPartial with
// ErrMissingTerminator.
func Scan(c *Cursor) ScanResult {
	var res ScanResult
	for {
		start := c.Pos()
		index := len(res.Records)

		if c.AtEnd() {
			return res.partial(c, start, &RecordError{Index: index, Offset: start, Err: ErrMissingTerminator})
		}
		marker, err := c.Peek(2)
		if err != nil {
			return res.partial(c, start, &RecordError{Index: index, Offset: start, Field: "msgType", Err: err})
		}

		switch binary.LittleEndian.Uint16(marker) {
		case MsgTypeTerminator:
			c.ReadFixed(2)
			res.Status = StatusComplete
			res.TrailingBytes = c.Remaining()
			return res
		case MsgTypePacked:
		default:
			return res.partial(c, start, &RecordError{Index: index, Offset: start, Field: "msgType", Err: ErrBadMessageType})
		}

		rec, err := readRecord(c, index)
		if err != nil {
			return res.partial(c, start, err)
		}
		res.Records = append(res.Records, rec)
	}
}

func (res ScanResult) partial(c *Cursor, start int, err error) ScanResult {
	res.Status = StatusPartial
	res.BytesSkipped = c.Len() - start
	res.Err = err
	return res
}

// readRecord decodes one packed message: fixed header, string fields and
// the NUL-terminated body.
func readRecord(c *Cursor, index int) (Record, error) {
	rec := Record{Index: index, Offset: c.Pos()}
	wrap := func(field string, err error) error {
		var fe *fieldError
		if errors.As(err, &fe) {
			field, err = fe.field, fe.err
		}
		return &RecordError{Index: index, Offset: rec.Offset, Field: field, Err: err}
	}

	if err := decodeLayout(c, &rec.Header, messageLayout); err != nil {
		return rec, wrap("", err)
	}
	if err := decodeStrings(c, &rec.Header, messageStrings); err != nil {
		return rec, wrap("", err)
	}
	body, err := c.ReadUntil(0)
	if err != nil {
		return rec, wrap("body", err)
	}
	rec.Body = body
	rec.Length = c.Pos() - rec.Offset
	return rec, nil
}
