package attendance

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date format used on every boundary of the engine.
const DateLayout = "2006-01-02"

// ParseDate parses an ISO YYYY-MM-DD string into midnight of that day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDate renders the calendar date of t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// civil drops the time of day and the zone, keeping only t's calendar date.
// All comparisons and day iteration in this package work on civil dates so that
// values read from the database and values from the clock agree regardless of zone.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOfDay returns midnight of t in t's own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// RangesOverlap reports whether the inclusive date range [bStart, bEnd] intersects the
// window [aStart, aEnd]: b starts inside the window, b ends inside the window, or b
// spans the whole window. Every overlap decision in the engine goes through here.
func RangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	aStart, aEnd, bStart, bEnd = civil(aStart), civil(aEnd), civil(bStart), civil(bEnd)
	return within(bStart, aStart, aEnd) ||
		within(bEnd, aStart, aEnd) ||
		(!bStart.After(aStart) && !bEnd.Before(aEnd))
}

// rangeContains reports whether [start, end] lies entirely inside [winStart, winEnd].
func rangeContains(winStart, winEnd, start, end time.Time) bool {
	return !civil(start).Before(civil(winStart)) && !civil(end).After(civil(winEnd))
}

// eachDay calls fn for every calendar date from start to end inclusive.
func eachDay(start, end time.Time, fn func(day time.Time)) {
	for d, last := civil(start), civil(end); !d.After(last); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}
