package utils

import (
	"fmt"
	"math"
	"time"

	"github.com/yukikurage/pmbot/internal/constants"
)

// StartOfDay truncates t to midnight in t's own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayIn returns midnight of the calendar day t falls on in loc
func DayIn(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t.In(loc))
}

// DaysBetween counts calendar days from `from` to `to`, both read in from's location.
// It is negative when `to` is on an earlier day.
func DaysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.In(from.Location()).Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// SameDay reports whether a and b fall on the same calendar day in ref's location
func SameDay(a, b time.Time, ref *time.Location) bool {
	ay, am, ad := a.In(ref).Date()
	by, bm, bd := b.In(ref).Date()
	return ay == by && am == bm && ad == bd
}

// ParseDate parses a YYYY-MM-DD string as midnight in loc
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(constants.DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}

// CalculateProgress returns the share of the project period already elapsed, 0-100.
// It is based on calendar time only.
func CalculateProgress(startDate, endDate, now time.Time) int {
	totalDays := wholeDays(endDate.Sub(startDate))
	elapsedDays := wholeDays(now.Sub(startDate))

	if totalDays <= 0 {
		return 100
	}
	if elapsedDays <= 0 {
		return 0
	}
	if elapsedDays >= totalDays {
		return 100
	}

	return int(math.Round(float64(elapsedDays) / float64(totalDays) * 100))
}

func wholeDays(d time.Duration) int {
	return int(d / (24 * time.Hour))
}

// Percent returns part/total as a rounded percentage, 0 when total is 0
func Percent(part, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
