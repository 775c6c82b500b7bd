package ftn

import (
	"fmt"
	"strings"
	"time"
)

// ftnDateLayouts are the stamp formats seen in the wild, FTS-0001 first.
var ftnDateLayouts = []string{
	"02 Jan 06  15:04:05", // FTS-0001
	"02 Jan 06 15:04:05",  // single space variant
	"_2 Jan 06  15:04:05",
	"02 Jan 2006  15:04:05",
	"02 Jan 2006 15:04:05",
	"Mon _2 Jan 06 15:04", // SEAdog
	"Mon  2 Jan 06 15:04",
}

// ParseFTNDateTime parses a packed message date stamp. The result is in UTC
// since FTN stamps carry no zone. Failures wrap ErrUnparseableDate.
func ParseFTNDateTime(s string) (time.Time, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty stamp: %w", ErrUnparseableDate)
	}
	for _, layout := range ftnDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	// Some editors pad single-digit days with a space instead of a zero.
	if t, err := time.Parse("2 Jan 06 15:04:05", strings.Join(strings.Fields(raw), " ")); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%q: %w", raw, ErrUnparseableDate)
}
