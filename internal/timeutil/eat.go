package timeutil

import (
	"time"
)

// EAT is the East Africa Time location (UTC+3)
var EAT *time.Location

func init() {
	var err error
	EAT, err = time.LoadLocation("Africa/Nairobi")
	if err != nil {
		// Fallback: create fixed zone if Africa/Nairobi not available
		EAT = time.FixedZone("EAT", 3*60*60) // UTC+3
	}
}

// Now returns the current time in EAT
func Now() time.Time {
	return time.Now().In(EAT)
}

// ToEAT converts any time to EAT
func ToEAT(t time.Time) time.Time {
	return t.In(EAT)
}

// ParseInEAT parses a time string and returns it in EAT
func ParseInEAT(layout, value string) (time.Time, error) {
	t, err := time.ParseInLocation(layout, value, EAT)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// FormatEAT formats a time in EAT using the given layout
func FormatEAT(t time.Time, layout string) string {
	return t.In(EAT).Format(layout)
}

// StartOfDay returns the start of day (00:00:00) in EAT for the given time
func StartOfDay(t time.Time) time.Time {
	eat := t.In(EAT)
	return time.Date(eat.Year(), eat.Month(), eat.Day(), 0, 0, 0, 0, EAT)
}

// EndOfDay returns the end of day (23:59:59) in EAT for the given time
func EndOfDay(t time.Time) time.Time {
	eat := t.In(EAT)
	return time.Date(eat.Year(), eat.Month(), eat.Day(), 23, 59, 59, 999999999, EAT)
}

// StartOfMonth returns the first instant of the month containing t, in EAT
func StartOfMonth(t time.Time) time.Time {
	eat := t.In(EAT)
	return time.Date(eat.Year(), eat.Month(), 1, 0, 0, 0, 0, EAT)
}

// StartOfYear returns the first instant of the year containing t, in EAT
func StartOfYear(t time.Time) time.Time {
	eat := t.In(EAT)
	return time.Date(eat.Year(), time.January, 1, 0, 0, 0, 0, EAT)
}

// Common layouts for EAT formatting
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
	DateTimeLayout = "2006-01-02 15:04:05"
	DisplayLayout  = "02 Jan 2006, 03:04 PM"
)
