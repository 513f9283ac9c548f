package attendance

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const holidayCategory = "Holiday"

// HolidayLookup is the result of HolidaysInRange. Err is set when the lookup failed
// and Dates was defaulted to empty.
type HolidayLookup struct {
	Dates []string
	Err   error
}

// HolidaysInRange lists every holiday date, as YYYY-MM-DD, of the holiday rows that
// intersect [start, end]. Each row is expanded over its full span, so dates outside
// the window and dates shared by two rows appear as stored.
func (s *Service) HolidaysInRange(ctx context.Context, start, end time.Time) HolidayLookup {
	rows, err := s.store.ListSchedules(ctx, []string{holidayCategory})
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"start": FormatDate(start),
			"end":   FormatDate(end),
		}).Warn("Holiday lookup failed, continuing without holidays")
		return HolidayLookup{Dates: []string{}, Err: err}
	}

	dates := []string{}
	for _, row := range rows {
		if !RangesOverlap(start, end, row.StartDate, row.EndDate) {
			continue
		}
		eachDay(row.StartDate, row.EndDate, func(day time.Time) {
			dates = append(dates, FormatDate(day))
		})
	}
	return HolidayLookup{Dates: dates}
}

// CalculateWorkingDays counts the days in [start, end] that are neither a Sunday nor
// listed in holidays. Saturdays are working days. An inverted range has none.
func CalculateWorkingDays(start, end time.Time, holidays []string) int {
	holidaySet := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		holidaySet[h] = struct{}{}
	}

	count := 0
	eachDay(start, end, func(day time.Time) {
		if day.Weekday() == time.Sunday {
			return
		}
		if _, ok := holidaySet[FormatDate(day)]; ok {
			return
		}
		count++
	})
	return count
}

// CalculateWorkingDaysWithHolidays counts working days in [start, end] using the
// stored holidays. A failed holiday lookup counts as no holidays.
func (s *Service) CalculateWorkingDaysWithHolidays(ctx context.Context, start, end time.Time) int {
	lookup := s.HolidaysInRange(ctx, start, end)
	return CalculateWorkingDays(start, end, lookup.Dates)
}
