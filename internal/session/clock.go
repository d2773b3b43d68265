package session

import (
	"fmt"
	"regexp"
	"time"
)

// DateLayout is the wire format for attendance dates.
const DateLayout = "2006-01-02"

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidClock reports whether raw is a 24-hour HH:MM time.
func ValidClock(raw string) bool {
	return clockPattern.MatchString(raw)
}

// FormatDate renders t as YYYY-MM-DD from its own calendar fields, so a
// local midnight never slides to the previous day through UTC conversion.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

// ParseDate reads YYYY-MM-DD as a calendar day in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout, raw, loc)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// dateInWindow reports whether day lies in [today-windowDays, today]. With a
// 30 day window both today and the day 30 days back are accepted.
func dateInWindow(day, now time.Time, windowDays int) (future bool, tooOld bool) {
	today := startOfDay(now)
	day = startOfDay(day)
	earliest := today.AddDate(0, 0, -windowDays)
	return day.After(today), day.Before(earliest)
}
