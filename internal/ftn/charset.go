package ftn

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Charset decodes header and kludge text to UTF-8.
type Charset string

const (
	CharsetLatin1 Charset = "latin1"
	CharsetCP437  Charset = "cp437"
	CharsetCP866  Charset = "cp866"
	CharsetUTF8   Charset = "utf8"
)

// ParseCharset maps a configuration value to a Charset.
func ParseCharset(s string) (Charset, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return CharsetLatin1, nil
	case "cp437", "ibm437", "ibmpc":
		return CharsetCP437, nil
	case "cp866", "ibm866":
		return CharsetCP866, nil
	case "utf8", "utf-8":
		return CharsetUTF8, nil
	}
	return "", fmt.Errorf("%w: %q", errUnknownCharset, s)
}

func (cs Charset) charmap() *charmap.Charmap {
	switch cs {
	case CharsetCP437:
		return charmap.CodePage437
	case CharsetCP866:
		return charmap.CodePage866
	case CharsetUTF8:
		return nil
	default:
		return charmap.ISO8859_1
	}
}

// Decode converts b to a UTF-8 string. Invalid UTF-8 under CharsetUTF8 is
// replaced rather than rejected.
func (cs Charset) Decode(b []byte) string {
	cm := cs.charmap()
	if cm == nil {
		if utf8.Valid(b) {
			return string(b)
		}
		return strings.ToValidUTF8(string(b), "�")
	}
	if isASCII(b) {
		return string(b)
	}
	out, err := cm.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}
