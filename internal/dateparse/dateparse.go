// Package dateparse turns the raw capture-date strings stored in the catalog
// into time values.
package dateparse

import (
	"strings"
	"time"
)

// Layouts are tried in order; the first one that parses wins. Month, day and
// time fields may omit their leading zero.
var Layouts = []string{
	"2006:1:2 15:4:5", // EXIF
	"2006-1-2 15:4:5",
	"2006-1-2",
}

const dayLayout = "2006-1-2"

// Parse returns the time encoded in text and true, or the zero time and
// false when no layout matches the whole of text. Results are in UTC.
func Parse(text string) (time.Time, bool) {
	if text == "" || hasFraction(text) {
		return time.Time{}, false
	}
	for _, layout := range Layouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDay parses a YYYY-MM-DD calendar date as used by the filter options.
func ParseDay(text string) (time.Time, error) {
	return time.Parse(dayLayout, text)
}

// hasFraction reports whether text carries a fractional-seconds suffix.
// time.Parse accepts one after the seconds field even when the layout has
// none.
func hasFraction(text string) bool {
	return strings.ContainsAny(text, ".,")
}
