// Package dates holds the calendar arithmetic shared by scheduling and
// booking: civil dates, "HH:MM" clock strings and month anchors.
package dates

import (
	"errors"
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
	MonthLayout = "2006-01"
)

var (
	ErrInvalidDate  = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidClock = errors.New("invalid time, expected HH:MM")
)

// ParseDate parses YYYY-MM-DD into a civil date (midnight UTC).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// ParseClock parses a zero-padded 24h "HH:MM" string.
func ParseClock(s string) (hour, minute int, err error) {
	if len(s) != len(ClockLayout) {
		return 0, 0, ErrInvalidClock
	}
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, 0, ErrInvalidClock
	}
	return t.Hour(), t.Minute(), nil
}

// Clock formats an hour on the hour, e.g. 9 -> "09:00".
func Clock(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// Day truncates t to its calendar day in t's own location and returns it as
// a civil date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is the civil date of now in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	return Day(now.In(loc))
}

// Format renders a civil date as YYYY-MM-DD.
func Format(date time.Time) string {
	return date.Format(DateLayout)
}

// At combines a civil date and an "HH:MM" clock into an instant in loc.
func At(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	h, m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := date.Date()
	return time.Date(y, mo, d, h, m, 0, 0, loc), nil
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Anchor returns the civil date in year/month whose day equals anchorDay,
// clamped to the last day of months that are too short.
func Anchor(year int, month time.Month, anchorDay int) time.Time {
	// normalise month overflow first, then clamp the day
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	day := min(anchorDay, DaysIn(first.Year(), first.Month()))
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// Window is a half-open civil date range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether date falls inside the window.
func (w Window) Contains(date time.Time) bool {
	return !date.Before(w.Start) && date.Before(w.End)
}

// MonthlyWindow returns the rolling month containing today that starts on
// anchorDay. Short months clamp the anchor to their last day.
func MonthlyWindow(today time.Time, anchorDay int) Window {
	today = Day(today)
	start := Anchor(today.Year(), today.Month(), anchorDay)
	if start.After(today) {
		start = Anchor(today.Year(), today.Month()-1, anchorDay)
	}
	return Window{
		Start: start,
		End:   Anchor(start.Year(), start.Month()+1, anchorDay),
	}
}

// MonthRange returns [first day of month, first day of next month).
func MonthRange(year int, month time.Month) Window {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}
