package ftn

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Cursor is a bounds-checked reader over an immutable packet buffer.
// All out-of-range reads surface as ErrTruncated or ErrUnterminatedField.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor returns a cursor positioned at the start of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos reports the current read offset.
func (c *Cursor) Pos() int { return c.pos }

// Len reports the total buffer length.
func (c *Cursor) Len() int { return len(c.buf) }

// Remaining reports the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

// AtEnd reports whether every byte has been consumed.
func (c *Cursor) AtEnd() bool { return c.pos >= len(c.buf) }

// Seek moves the cursor to an absolute offset within the buffer.
func (c *Cursor) Seek(pos int) error {
	if pos < 0 || pos > len(c.buf) {
		return fmt.Errorf("seek to %d of %d: %w", pos, len(c.buf), ErrTruncated)
	}
	c.pos = pos
	return nil
}

// Peek returns the next n bytes without advancing.
func (c *Cursor) Peek(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, fmt.Errorf("need %d bytes at offset %d, have %d: %w", n, c.pos, c.Remaining(), ErrTruncated)
	}
	return c.buf[c.pos : c.pos+n : c.pos+n], nil
}

// ReadFixed returns the next n bytes and advances past them.
func (c *Cursor) ReadFixed(n int) ([]byte, error) {
	b, err := c.Peek(n)
	if err != nil {
		return nil, err
	}
	c.pos += n
	return b, nil
}

// ReadUint16 reads a little-endian 16-bit word.
func (c *Cursor) ReadUint16() (uint16, error) {
	b, err := c.ReadFixed(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadUntil returns the bytes up to (not including) the next sentinel and
// advances past the sentinel.
func (c *Cursor) ReadUntil(sentinel byte) ([]byte, error) {
	return c.ReadField(sentinel, 0)
}

// ReadField is ReadUntil bounded to width bytes, sentinel included.
// A width of zero or less means unbounded.
func (c *Cursor) ReadField(sentinel byte, width int) ([]byte, error) {
	window := c.buf[c.pos:]
	if width > 0 && len(window) > width {
		window = window[:width]
	}
	i := bytes.IndexByte(window, sentinel)
	if i < 0 {
		if width > 0 && len(window) == width {
			return nil, fmt.Errorf("no terminator within %d bytes at offset %d: %w", width, c.pos, ErrUnterminatedField)
		}
		return nil, fmt.Errorf("no terminator before end of buffer at offset %d: %w", c.pos, ErrUnterminatedField)
	}
	b := c.buf[c.pos : c.pos+i : c.pos+i]
	c.pos += i + 1
	return b, nil
}
