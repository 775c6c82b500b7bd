package ftn

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrTruncated         = errors.New("ftn: truncated data")
	ErrUnterminatedField = errors.New("ftn: unterminated field")
	ErrInvalidPacketType = errors.New("ftn: invalid packet type (expected 2)")
	ErrUnparseableDate   = errors.New("ftn: unparseable date")
	ErrBadMessageType    = errors.New("ftn: unexpected message type marker")
	ErrMissingTerminator = fmt.Errorf("ftn: packet ends without terminator: %w", ErrTruncated)
	errUnknownCharset    = errors.New("ftn: unknown charset")
)

// HeaderError reports a packet header that could not be decoded. It is fatal
// to the whole packet: no messages are returned alongside it.
type HeaderError struct {
	Err error
}

func (e *HeaderError) Error() string {
	return "ftn: packet header: " + e.Err.Error()
}

func (e *HeaderError) Unwrap() error { return e.Err }

// RecordError describes the message record that stopped a scan.
type RecordError struct {
	Index  int // zero-based index of the record that failed
	Offset int // byte offset of the record start
	Field  string
	Err    error
}

func (e *RecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("ftn: message %d at offset %d: %s: %v", e.Index, e.Offset, e.Field, e.Err)
	}
	return fmt.Sprintf("ftn: message %d at offset %d: %v", e.Index, e.Offset, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
