package attendance

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestCalculateWorkingDays(t *testing.T) {
	cases := []struct {
		name     string
		start    string
		end      string
		holidays []string
		want     int
	}{
		{"first week of 2026 skips Sunday", "2026-01-01", "2026-01-07", nil, 6},
		{"holiday on a weekday", "2026-01-01", "2026-01-07", []string{"2026-01-05"}, 5},
		{"holiday on Sunday counted once", "2026-01-01", "2026-01-07", []string{"2026-01-04"}, 6},
		{"duplicate holidays", "2026-01-01", "2026-01-07", []string{"2026-01-05", "2026-01-05"}, 5},
		{"holiday outside range", "2026-01-01", "2026-01-07", []string{"2026-02-05"}, 6},
		{"Saturday is a working day", "2026-01-03", "2026-01-03", nil, 1},
		{"single Sunday", "2026-01-04", "2026-01-04", nil, 0},
		{"inverted range", "2026-01-07", "2026-01-01", nil, 0},
		{"across a month boundary", "2026-01-30", "2026-02-02", nil, 3},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateWorkingDays(mustDate(t, tc.start), mustDate(t, tc.end), tc.holidays)
			if got != tc.want {
				t.Fatalf("CalculateWorkingDays(%s, %s, %v) = %d, want %d", tc.start, tc.end, tc.holidays, got, tc.want)
			}
		})
	}
}

func TestCalculateWorkingDaysHolidaysNeverAdd(t *testing.T) {
	pool := []string{"2026-01-01", "2026-01-04", "2026-01-14", "2026-01-15", "2026-01-26", "2026-02-01", "2026-02-16"}
	start := mustDate(t, "2025-12-28")
	for span := 0; span < 60; span += 3 {
		end := start.AddDate(0, 0, span)
		base := CalculateWorkingDays(start, end, nil)

		days, sundays := span+1, 0
		eachDay(start, end, func(d time.Time) {
			if d.Weekday() == time.Sunday {
				sundays++
			}
		})
		if base != days-sundays {
			t.Fatalf("span %d: got %d, want %d", span, base, days-sundays)
		}

		for n := 1; n <= len(pool); n++ {
			holidays := pool[:n]
			got := CalculateWorkingDays(start, end, holidays)
			if got > base {
				t.Fatalf("span %d with %v: %d > %d", span, holidays, got, base)
			}
			weekdayHolidays := 0
			for _, h := range holidays {
				d := mustDate(t, h)
				if d.Weekday() != time.Sunday && within(d, start, end) {
					weekdayHolidays++
				}
			}
			if got != base-weekdayHolidays {
				t.Fatalf("span %d with %v: got %d, want %d", span, holidays, got, base-weekdayHolidays)
			}
		}
	}
}

func TestHolidaysInRange(t *testing.T) {
	store := NewMemoryStore()
	store.AddSchedule(ScheduleRow{Title: "Pongal", Category: "Holiday", StartDate: mustDate(t, "2026-01-25"), EndDate: mustDate(t, "2026-01-27")})
	store.AddSchedule(ScheduleRow{Title: "Republic Day", Category: "Holiday", StartDate: mustDate(t, "2026-01-26"), EndDate: mustDate(t, "2026-01-26")})
	store.AddSchedule(ScheduleRow{Title: "Later", Category: "Holiday", StartDate: mustDate(t, "2026-03-01"), EndDate: mustDate(t, "2026-03-01")})
	store.AddSchedule(ScheduleRow{Title: "Internal", Category: "CIA1", StartDate: mustDate(t, "2026-01-28"), EndDate: mustDate(t, "2026-01-28")})
	svc := newTestService(t, store, "2026-01-20T09:00:00Z")

	got := svc.HolidaysInRange(context.Background(), mustDate(t, "2026-01-26"), mustDate(t, "2026-01-31"))
	if got.Err != nil {
		t.Fatalf("unexpected error: %v", got.Err)
	}
	want := []string{"2026-01-25", "2026-01-26", "2026-01-27", "2026-01-26"}
	if !reflect.DeepEqual(got.Dates, want) {
		t.Fatalf("HolidaysInRange = %v, want %v", got.Dates, want)
	}

	if n := svc.CalculateWorkingDaysWithHolidays(context.Background(), mustDate(t, "2026-01-26"), mustDate(t, "2026-01-31")); n != 4 {
		t.Fatalf("CalculateWorkingDaysWithHolidays = %d, want 4", n)
	}
}

func TestHolidaysInRangeFailsOpen(t *testing.T) {
	store := NewMemoryStore()
	store.AddSchedule(ScheduleRow{Category: "Holiday", StartDate: mustDate(t, "2026-01-05"), EndDate: mustDate(t, "2026-01-05")})
	boom := errors.New("connection refused")
	store.Fail("schedules", boom)
	svc := newTestService(t, store, "2026-01-01T09:00:00Z")

	got := svc.HolidaysInRange(context.Background(), mustDate(t, "2026-01-01"), mustDate(t, "2026-01-07"))
	if !errors.Is(got.Err, boom) {
		t.Fatalf("Err = %v, want %v", got.Err, boom)
	}
	if got.Dates == nil || len(got.Dates) != 0 {
		t.Fatalf("Dates = %#v, want empty list", got.Dates)
	}
	if n := svc.CalculateWorkingDaysWithHolidays(context.Background(), mustDate(t, "2026-01-01"), mustDate(t, "2026-01-07")); n != 6 {
		t.Fatalf("working days = %d, want 6", n)
	}
}
