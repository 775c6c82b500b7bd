package ftn

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"
	"time"
)

// wireHeader mirrors the 58-byte Type-2+ layout for binary.Write.
type wireHeader struct {
	OrigNode  uint16
	DestNode  uint16
	Year      uint16
	Month     uint16
	Day       uint16
	Hour      uint16
	Minute    uint16
	Second    uint16
	Baud      uint16
	PktType   uint16
	OrigNet   uint16
	DestNet   uint16
	ProdCode  uint8
	ProdRev   uint8
	Password  [8]byte
	QOrigZone uint16
	QDestZone uint16
	AuxNet    uint16
	CWCopy    uint16
	ProdCode2 uint8
	ProdRev2  uint8
	CapWord   uint16
	OrigZone  uint16
	DestZone  uint16
	OrigPoint uint16
	DestPoint uint16
	ProdData  [4]byte
}

// wireHeader22 mirrors the FSC-0045 Type-2.2 layout.
type wireHeader22 struct {
	OrigNode   uint16
	DestNode   uint16
	OrigPoint  uint16
	DestPoint  uint16
	Reserved   [8]byte
	SubVersion uint16
	PktType    uint16
	OrigNet    uint16
	DestNet    uint16
	ProdCode   uint8
	ProdRev    uint8
	Password   [8]byte
	OrigZone   uint16
	DestZone   uint16
	OrigDomain [8]byte
	DestDomain [8]byte
	ProdData   [4]byte
}

// newWireHeader builds a Type-2+ header dated 2026-02-09 14:30:45.
func newWireHeader(origZone, origNet, origNode, origPoint uint16,
	destZone, destNet, destNode, destPoint uint16, password string) *wireHeader {
	h := &wireHeader{
		OrigNode:  origNode,
		DestNode:  destNode,
		Year:      2026,
		Month:     1, // 0-based
		Day:       9,
		Hour:      14,
		Minute:    30,
		Second:    45,
		PktType:   PacketType2,
		OrigNet:   origNet,
		DestNet:   destNet,
		QOrigZone: origZone,
		QDestZone: destZone,
		OrigZone:  origZone,
		DestZone:  destZone,
		OrigPoint: origPoint,
		DestPoint: destPoint,
		CapWord:   0x0001,
		CWCopy:    CWValidation,
	}
	copy(h.Password[:], password)
	return h
}

type testMessage struct {
	OrigNode, DestNode uint16
	OrigNet, DestNet   uint16
	Attr, Cost         uint16
	DateTime           string
	To, From, Subject  string
	Body               string
}

func writeMessage(buf *bytes.Buffer, msg testMessage) {
	fixed := make([]byte, 14)
	binary.LittleEndian.PutUint16(fixed[0:], MsgTypePacked)
	binary.LittleEndian.PutUint16(fixed[2:], msg.OrigNode)
	binary.LittleEndian.PutUint16(fixed[4:], msg.DestNode)
	binary.LittleEndian.PutUint16(fixed[6:], msg.OrigNet)
	binary.LittleEndian.PutUint16(fixed[8:], msg.DestNet)
	binary.LittleEndian.PutUint16(fixed[10:], msg.Attr)
	binary.LittleEndian.PutUint16(fixed[12:], msg.Cost)
	buf.Write(fixed)
	for _, s := range []string{msg.DateTime, msg.To, msg.From, msg.Subject, msg.Body} {
		buf.WriteString(s)
		buf.WriteByte(0)
	}
}

// buildPacket assembles header, messages and the two-byte terminator.
func buildPacket(t *testing.T, hdr any, msgs []testMessage) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, hdr); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for _, m := range msgs {
		writeMessage(&buf, m)
	}
	buf.Write([]byte{0, 0})
	return buf.Bytes()
}

// sampleMessage returns a well-formed echomail message numbered n.
func sampleMessage(n int) testMessage {
	return testMessage{
		OrigNode: 110, DestNode: 100, OrigNet: 3, DestNet: 1,
		DateTime: formatFTNDateTime(time.Date(2026, 2, 9, 12, n%60, 0, 0, time.UTC)),
		To:       "All",
		From:     fmt.Sprintf("Sender %d", n),
		Subject:  fmt.Sprintf("Msg %d", n),
		Body:     fmt.Sprintf("\x01AREA:FSX_GEN\r\x01MSGID: 21:3/110 %08x\rBody %d\r> quoted\r", n, n),
	}
}

func sampleMessages(n int) []testMessage {
	msgs := make([]testMessage, n)
	for i := range msgs {
		msgs[i] = sampleMessage(i)
	}
	return msgs
}

// formatFTNDateTime formats a time as "DD Mon YY  HH:MM:SS".
func formatFTNDateTime(t time.Time) string {
	months := []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun",
		"Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	return fmt.Sprintf("%02d %s %02d  %02d:%02d:%02d",
		t.Day(), months[t.Month()-1], t.Year()%100,
		t.Hour(), t.Minute(), t.Second())
}
