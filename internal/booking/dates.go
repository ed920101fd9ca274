package booking

import (
	"fmt"
	"strings"
	"time"
)

const dateOnly = "2006-01-02"

// Layouts without an offset are read in the configured location.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// DateWarning reports a date input that could not be parsed. The booking is
// still written, without a date.
type DateWarning struct {
	Input string
}

func (w *DateWarning) Error() string {
	return fmt.Sprintf("invalid date %q: stored without a date", w.Input)
}

// NormalizeDate turns date-like text into the calendar day it names, pinned
// to 12:00 in loc and returned in UTC. Midday keeps the day stable when the
// value is later rendered in any zone within twelve hours of loc.
//
// Forecast bookings and empty input yield nil. Unparseable input yields nil
// and a warning.
func NormalizeDate(input string, isForecast bool, loc *time.Location) (*time.Time, *DateWarning) {
	if isForecast {
		return nil, nil
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	t, ok := parseDateLike(input, loc)
	if !ok {
		return nil, &DateWarning{Input: input}
	}
	n := NormalizeTime(t, loc)
	return &n, nil
}

// NormalizeTime pins t to 12:00 on its calendar day in loc.
func NormalizeTime(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 12, 0, 0, 0, loc).UTC()
}

// ParseTimestamp reads a caller-supplied ledger timestamp.
func ParseTimestamp(input string, loc *time.Location) (time.Time, error) {
	t, ok := parseDateLike(strings.TrimSpace(input), loc)
	if !ok {
		return time.Time{}, ValidationError{Code: CodeInvalidTimestamp, Message: fmt.Sprintf("invalid timestamp: %q", input)}
	}
	return t.UTC(), nil
}

// DayBounds returns the first and last instant of the local calendar day.
func DayBounds(day string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	start, err := time.ParseInLocation(dateOnly, day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, ValidationError{Code: CodeValidationFailed, Message: "date must be YYYY-MM-DD"}
	}
	return start.UTC(), start.AddDate(0, 0, 1).Add(-time.Millisecond).UTC(), nil
}

// MonthBounds returns the first and last instant of the local calendar month.
func MonthBounds(month string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	start, err := time.ParseInLocation("2006-01", month, loc)
	if err != nil {
		return time.Time{}, time.Time{}, ValidationError{Code: CodeValidationFailed, Message: "month must be YYYY-MM"}
	}
	return start.UTC(), start.AddDate(0, 1, 0).Add(-time.Millisecond).UTC(), nil
}

func parseDateLike(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation(dateOnly, s, loc); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), true
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
