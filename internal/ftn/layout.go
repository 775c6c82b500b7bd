package ftn

import "encoding/binary"

// fieldSpec describes one fixed-width field of a legacy binary record.
// Layouts are ordered slices of fieldSpec so that byte order and widths live
// in one table per record type instead of offset arithmetic.
type fieldSpec[T any] struct {
	name   string
	width  int
	decode func(dst *T, b []byte) // nil skips the field
}

func u16[T any](set func(*T, uint16)) func(*T, []byte) {
	return func(dst *T, b []byte) { set(dst, binary.LittleEndian.Uint16(b)) }
}

func u8[T any](set func(*T, uint8)) func(*T, []byte) {
	return func(dst *T, b []byte) { set(dst, b[0]) }
}

// raw copies the field bytes so the record never aliases the packet buffer.
func raw[T any](set func(*T, []byte)) func(*T, []byte) {
	return func(dst *T, b []byte) { set(dst, append([]byte(nil), b...)) }
}

// layoutSize returns the total width of a layout in bytes.
func layoutSize[T any](layout []fieldSpec[T]) int {
	n := 0
	for _, f := range layout {
		n += f.width
	}
	return n
}

// decodeLayout reads every field of layout from c into dst.
func decodeLayout[T any](c *Cursor, dst *T, layout []fieldSpec[T]) error {
	for _, f := range layout {
		b, err := c.ReadFixed(f.width)
		if err != nil {
			return &fieldError{field: f.name, err: err}
		}
		if f.decode != nil {
			f.decode(dst, b)
		}
	}
	return nil
}

// stringSpec describes a NUL-terminated field with a maximum width
// (terminator included). A width of zero means unbounded.
type stringSpec[T any] struct {
	name  string
	width int
	set   func(dst *T, b []byte)
}

// decodeStrings reads each NUL-terminated field of layout from c into dst.
func decodeStrings[T any](c *Cursor, dst *T, layout []stringSpec[T]) error {
	for _, f := range layout {
		b, err := c.ReadField(0, f.width)
		if err != nil {
			return &fieldError{field: f.name, err: err}
		}
		f.set(dst, b)
	}
	return nil
}

// fieldError tags a cursor failure with the name of the field being read.
type fieldError struct {
	field string
	err   error
}

func (e *fieldError) Error() string { return e.field + ": " + e.err.Error() }
func (e *fieldError) Unwrap() error { return e.err }
