package ftn

import (
	"bytes"
	"time"
)

// PacketType2 is the packet type word shared by Type-2, 2+ and 2.2 packets.
const PacketType2 = 2

// PacketHeaderSize is the fixed size of a Type-2 family packet header.
const PacketHeaderSize = 58

// CWValidation is the capability word validation value per FSC-0048.
const CWValidation = 0x0100

// Dialect identifies which Type-2 header variant a packet uses.
type Dialect int

const (
	DialectType2     Dialect = iota // FTS-0001 "stone age"
	DialectType2Plus                // FSC-0039 / FSC-0048
	DialectType22                   // FSC-0045
)

func (d Dialect) String() string {
	switch d {
	case DialectType2Plus:
		return "2+"
	case DialectType22:
		return "2.2"
	default:
		return "2"
	}
}

// PacketHeader is the decoded packet container header.
type PacketHeader struct {
	Orig        Address
	Dest        Address
	Created     time.Time // zero when the stored date is not a valid calendar date
	Type        uint16
	Dialect     Dialect
	ProductCode uint16
	ProductRev  [2]uint8 // major, minor
	Password    string
	CapWord     uint16
	OrigDomain  string // Type 2.2 only
	DestDomain  string // Type 2.2 only
	ProductData [4]byte
}

// rawPacketHeader holds the header words before dialect normalization.
type rawPacketHeader struct {
	OrigNode, DestNode           uint16
	Year, Month, Day             uint16
	Hour, Minute, Second         uint16
	Baud, PktType                uint16
	OrigNet, DestNet             uint16
	ProdCode, ProdRev            uint8
	Password                     []byte
	QOrigZone, QDestZone, AuxNet uint16
	CWCopy                       uint16
	ProdCode2, ProdRev2          uint8
	CapWord                      uint16
	OrigZone, DestZone           uint16
	OrigPoint, DestPoint         uint16
	ProdData                     []byte
	OrigDomain, DestDomain       []byte
}

type rph = rawPacketHeader

// type2Layout is the FTS-0001 / FSC-0048 header. Type-2 readers ignore the
// tail; Type-2+ readers validate it through the capability word.
var type2Layout = []fieldSpec[rph]{
	{"origNode", 2, u16(func(h *rph, v uint16) { h.OrigNode = v })},
	{"destNode", 2, u16(func(h *rph, v uint16) { h.DestNode = v })},
	{"year", 2, u16(func(h *rph, v uint16) { h.Year = v })},
	{"month", 2, u16(func(h *rph, v uint16) { h.Month = v })},
	{"day", 2, u16(func(h *rph, v uint16) { h.Day = v })},
	{"hour", 2, u16(func(h *rph, v uint16) { h.Hour = v })},
	{"minute", 2, u16(func(h *rph, v uint16) { h.Minute = v })},
	{"second", 2, u16(func(h *rph, v uint16) { h.Second = v })},
	{"baud", 2, u16(func(h *rph, v uint16) { h.Baud = v })},
	{"pktType", 2, u16(func(h *rph, v uint16) { h.PktType = v })},
	{"origNet", 2, u16(func(h *rph, v uint16) { h.OrigNet = v })},
	{"destNet", 2, u16(func(h *rph, v uint16) { h.DestNet = v })},
	{"prodCode", 1, u8(func(h *rph, v uint8) { h.ProdCode = v })},
	{"prodRev", 1, u8(func(h *rph, v uint8) { h.ProdRev = v })},
	{"password", 8, raw(func(h *rph, b []byte) { h.Password = b })},
	{"qOrigZone", 2, u16(func(h *rph, v uint16) { h.QOrigZone = v })},
	{"qDestZone", 2, u16(func(h *rph, v uint16) { h.QDestZone = v })},
	{"auxNet", 2, u16(func(h *rph, v uint16) { h.AuxNet = v })},
	{"cwCopy", 2, u16(func(h *rph, v uint16) { h.CWCopy = v })},
	{"prodCode2", 1, u8(func(h *rph, v uint8) { h.ProdCode2 = v })},
	{"prodRev2", 1, u8(func(h *rph, v uint8) { h.ProdRev2 = v })},
	{"capWord", 2, u16(func(h *rph, v uint16) { h.CapWord = v })},
	{"origZone", 2, u16(func(h *rph, v uint16) { h.OrigZone = v })},
	{"destZone", 2, u16(func(h *rph, v uint16) { h.DestZone = v })},
	{"origPoint", 2, u16(func(h *rph, v uint16) { h.OrigPoint = v })},
	{"destPoint", 2, u16(func(h *rph, v uint16) { h.DestPoint = v })},
	{"prodData", 4, raw(func(h *rph, b []byte) { h.ProdData = b })},
}

// type22Layout is the FSC-0045 header. The sub-version word sits where
// Type-2 keeps the baud rate.
var type22Layout = []fieldSpec[rph]{
	{"origNode", 2, u16(func(h *rph, v uint16) { h.OrigNode = v })},
	{"destNode", 2, u16(func(h *rph, v uint16) { h.DestNode = v })},
	{"origPoint", 2, u16(func(h *rph, v uint16) { h.OrigPoint = v })},
	{"destPoint", 2, u16(func(h *rph, v uint16) { h.DestPoint = v })},
	{"reserved", 8, nil},
	{"subVersion", 2, u16(func(h *rph, v uint16) { h.Baud = v })},
	{"pktType", 2, u16(func(h *rph, v uint16) { h.PktType = v })},
	{"origNet", 2, u16(func(h *rph, v uint16) { h.OrigNet = v })},
	{"destNet", 2, u16(func(h *rph, v uint16) { h.DestNet = v })},
	{"prodCode", 1, u8(func(h *rph, v uint8) { h.ProdCode = v })},
	{"prodRev", 1, u8(func(h *rph, v uint8) { h.ProdRev = v })},
	{"password", 8, raw(func(h *rph, b []byte) { h.Password = b })},
	{"origZone", 2, u16(func(h *rph, v uint16) { h.OrigZone = v })},
	{"destZone", 2, u16(func(h *rph, v uint16) { h.DestZone = v })},
	{"origDomain", 8, raw(func(h *rph, b []byte) { h.OrigDomain = b })},
	{"destDomain", 8, raw(func(h *rph, b []byte) { h.DestDomain = b })},
	{"prodData", 4, raw(func(h *rph, b []byte) { h.ProdData = b })},
}

// DecodePacketHeader reads the packet header at the cursor position and
// advances past it. Any error is a *HeaderError; the cursor position is
// undefined after a failure.
func DecodePacketHeader(c *Cursor) (*PacketHeader, error) {
	start := c.Pos()
	if c.Remaining() < PacketHeaderSize {
		return nil, &HeaderError{Err: ErrTruncated}
	}

	var r rawPacketHeader
	if err := decodeLayout(c, &r, type2Layout); err != nil {
		return nil, &HeaderError{Err: err}
	}
	if r.PktType != PacketType2 {
		return nil, &HeaderError{Err: ErrInvalidPacketType}
	}

	if r.Baud == 2 {
		if err := c.Seek(start); err != nil {
			return nil, &HeaderError{Err: err}
		}
		r = rawPacketHeader{}
		if err := decodeLayout(c, &r, type22Layout); err != nil {
			return nil, &HeaderError{Err: err}
		}
		return r.type22(), nil
	}
	return r.type2(), nil
}

func (r *rawPacketHeader) common() *PacketHeader {
	h := &PacketHeader{
		Type:        r.PktType,
		ProductCode: uint16(r.ProdCode),
		ProductRev:  [2]uint8{r.ProdRev, 0},
		Password:    cString(r.Password),
	}
	copy(h.ProductData[:], r.ProdData)
	return h
}

func (r *rawPacketHeader) type2() *PacketHeader {
	h := r.common()
	h.Orig = Address{Zone: int(r.QOrigZone), Net: int(r.OrigNet), Node: int(r.OrigNode)}
	h.Dest = Address{Zone: int(r.QDestZone), Net: int(r.DestNet), Node: int(r.DestNode)}
	h.Created = packetDate(r)

	swapped := r.CWCopy>>8 | r.CWCopy<<8
	if r.CapWord != 0 && r.CapWord == swapped && r.CapWord&0x0001 != 0 {
		h.Dialect = DialectType2Plus
		h.CapWord = r.CapWord
		h.ProductCode = uint16(r.ProdCode2)<<8 | uint16(r.ProdCode)
		h.ProductRev[1] = r.ProdRev2
		if r.OrigZone != 0 {
			h.Orig.Zone = int(r.OrigZone)
		}
		if r.DestZone != 0 {
			h.Dest.Zone = int(r.DestZone)
		}
		h.Orig.Point = int(r.OrigPoint)
		h.Dest.Point = int(r.DestPoint)
		// FSC-0048 point packets carry net -1 and the boss net in AuxNet.
		if r.OrigNet == 0xFFFF && r.OrigPoint != 0 {
			h.Orig.Net = int(r.AuxNet)
		}
	}
	return h
}

func (r *rawPacketHeader) type22() *PacketHeader {
	h := r.common()
	h.Dialect = DialectType22
	h.Orig = Address{Zone: int(r.OrigZone), Net: int(r.OrigNet), Node: int(r.OrigNode), Point: int(r.OrigPoint)}
	h.Dest = Address{Zone: int(r.DestZone), Net: int(r.DestNet), Node: int(r.DestNode), Point: int(r.DestPoint)}
	h.OrigDomain = cString(r.OrigDomain)
	h.DestDomain = cString(r.DestDomain)
	return h
}

// packetDate converts the header date words. Month is stored 0-based.
func packetDate(r *rawPacketHeader) time.Time {
	if r.Month > 11 || r.Day < 1 || r.Day > 31 || r.Hour > 23 || r.Minute > 59 || r.Second > 59 {
		return time.Time{}
	}
	t := time.Date(int(r.Year), time.Month(r.Month+1), int(r.Day),
		int(r.Hour), int(r.Minute), int(r.Second), 0, time.UTC)
	if t.Day() != int(r.Day) {
		return time.Time{}
	}
	return t
}

// cString trims a fixed NUL-padded field at its first NUL.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
