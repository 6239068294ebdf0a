package digest

import (
	"errors"
	"fmt"
	"time"
)

// SendHour is the hour of day (site timezone) at which an approved digest
// is delivered: Monday 08:00 of the week after the digest week.
const SendHour = 8

// ErrBadWeekKey indicates a week identifier that is not of the form 2026-w07.
var ErrBadWeekKey = errors.New("malformed week key")

// WeekKey returns the ISO-8601 week identifier for t, e.g. "2026-w07".
// Weeks start Monday; week 1 is the week containing the year's first
// Thursday, so early-January dates can belong to week 52/53 of the prior
// year.
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-w%02d", year, week)
}

// ParseWeekKey splits a week identifier into its ISO year and week number.
// PRE: key looks like "2026-w07"
// POST: Returns year and week, or ErrBadWeekKey
func ParseWeekKey(key string) (year, week int, err error) {
	if _, err := fmt.Sscanf(key, "%d-w%d", &year, &week); err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadWeekKey, key)
	}
	if year < 1 || week < 1 || week > 53 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadWeekKey, key)
	}
	return year, week, nil
}

// weekStart returns the Monday 00:00 of the given ISO year/week in loc.
// January 4 is always inside ISO week 1, which anchors the calculation.
func weekStart(year, week int, loc *time.Location) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	weekday := (int(jan4.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	firstMonday := jan4.AddDate(0, 0, -weekday)
	return firstMonday.AddDate(0, 0, (week-1)*7)
}

// WeekStart returns Monday 00:00 (in loc) of the digest week itself. Dispatch
// re-reads the change feed from this instant, since changed items are never
// persisted with the record.
// PRE: week is a valid week key; loc is non-nil
// POST: Returns the instant, or ErrBadWeekKey
func WeekStart(week string, loc *time.Location) (time.Time, error) {
	year, num, err := ParseWeekKey(week)
	if err != nil {
		return time.Time{}, err
	}
	return weekStart(year, num, loc), nil
}

// SendWindow returns the scheduled delivery instant for a digest week:
// Monday 08:00 (in loc) of the week following the digest week. Approval
// before that instant defers the send to it; approval at or after it sends
// immediately.
// PRE: week is a valid week key; loc is non-nil
// POST: Returns the window instant, or ErrBadWeekKey
func SendWindow(week string, loc *time.Location) (time.Time, error) {
	year, num, err := ParseWeekKey(week)
	if err != nil {
		return time.Time{}, err
	}
	monday := weekStart(year, num, loc).AddDate(0, 0, 7)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), SendHour, 0, 0, 0, loc), nil
}
