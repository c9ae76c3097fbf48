package sync

import (
	"strconv"
	"time"
)

// noDateSentinel is how the remote authority encodes an absent date.
const noDateSentinel = "0000-00-00T00:00:00"

// parseNumber returns the numeric value of the string, or nil when the input
// is empty or not numeric. Callers can distinguish "unset" from an explicit
// zero.
func parseNumber(raw string) *float64 {
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &value
}

// numberOr unwraps a parsed number with a fallback for "no value".
func numberOr(value *float64, fallback float64) float64 {
	if value == nil {
		return fallback
	}
	return *value
}

// parseDate returns the date described by the ISO 8601 date string, with an
// optional hh:mm:ss time. Empty input and the all-zero sentinel mean "no
// date", not an error.
func parseDate(isoDate, isoTime string) *time.Time {
	if isoDate == "" || isoDate == noDateSentinel {
		return nil
	}
	date, err := time.Parse("2006-01-02T15:04:05", isoDate)
	if err != nil {
		date, err = time.Parse("2006-01-02", isoDate)
		if err != nil {
			return nil
		}
	}
	if len(isoTime) >= 8 {
		hours, errH := strconv.Atoi(isoTime[0:2])
		minutes, errM := strconv.Atoi(isoTime[3:5])
		seconds, errS := strconv.Atoi(isoTime[6:8])
		if errH == nil && errM == nil && errS == nil {
			date = time.Date(date.Year(), date.Month(), date.Day(), hours, minutes, seconds, 0, time.UTC)
		}
	}
	return &date
}

// parseBoolean returns true only for the exact strings accepted by the remote
// authority; anything else is false.
func parseBoolean(raw string) bool {
	switch raw {
	case "true", "True", "TRUE":
		return true
	}
	return false
}

// unitPrice normalizes a per-pack price to pack size 1. A zero or unknown
// pack size yields 0 rather than dividing by zero.
func unitPrice(price *float64, packSize float64) float64 {
	if packSize == 0 {
		return 0
	}
	return numberOr(price, 0) / packSize
}
