package attendance

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"
)

// SnapshotStatus says whether an AttendanceReport was computed or defaulted, and why.
type SnapshotStatus string

const (
	StatusComputed           SnapshotStatus = "computed"
	StatusNoSemesterStart    SnapshotStatus = "no_semester_start"
	StatusSemesterNotStarted SnapshotStatus = "semester_not_started"
	StatusNoWorkingDays      SnapshotStatus = "no_working_days"
	StatusFailed             SnapshotStatus = "failed"
)

// AttendanceSnapshot is a student's attendance for the current semester up to today.
type AttendanceSnapshot struct {
	TotalDays            int     `json:"total_days"`
	LeaveDays            float64 `json:"leave_days"`
	ODDays               float64 `json:"od_days"`
	AttendancePercentage float64 `json:"attendance_percentage"`
	SemesterStartDate    *string `json:"semester_start_date"`
}

// AttendanceReport is an AttendanceSnapshot with the outcome of computing it.
// Every status other than StatusComputed carries the full-attendance default.
type AttendanceReport struct {
	AttendanceSnapshot
	Status SnapshotStatus `json:"status"`
	Err    error          `json:"-"`
}

// Defaulted reports whether the snapshot is the full-attendance fallback.
func (r AttendanceReport) Defaulted() bool { return r.Status != StatusComputed }

func fullAttendance(status SnapshotStatus, err error) AttendanceReport {
	return AttendanceReport{
		AttendanceSnapshot: AttendanceSnapshot{AttendancePercentage: 100},
		Status:             status,
		Err:                err,
	}
}

// AttendancePercentage is (totalDays - leaveDays) / totalDays * 100 rounded half up
// to two decimals. A non-positive totalDays is full attendance.
func AttendancePercentage(totalDays int, leaveDays float64) float64 {
	if totalDays <= 0 {
		return 100
	}
	total := float64(totalDays)
	return roundHalfUp2((total - leaveDays) / total * 100)
}

func roundHalfUp2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// StudentAttendance computes the user's attendance from the semester start through
// today. Only approved leave fully inside that window is deducted; approved OD is
// reported but never deducted. Missing data and lookup failures produce the
// full-attendance default with the reason in Status.
func (s *Service) StudentAttendance(ctx context.Context, userID uint) AttendanceReport {
	logger := s.log.WithField("user_id", userID)

	enrollment, err := s.store.FindEnrollment(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrEnrollmentNotFound) {
			return fullAttendance(StatusNoSemesterStart, nil)
		}
		logger.WithError(err).Warn("Attendance lookup failed, defaulting to full attendance")
		return fullAttendance(StatusFailed, err)
	}
	if enrollment.SemesterStartDate == nil {
		return fullAttendance(StatusNoSemesterStart, nil)
	}

	semStart := civil(*enrollment.SemesterStartDate)
	today := s.today()
	if semStart.After(today) {
		return fullAttendance(StatusSemesterNotStarted, nil)
	}

	totalDays := s.CalculateWorkingDaysWithHolidays(ctx, semStart, today)
	if totalDays == 0 {
		return fullAttendance(StatusNoWorkingDays, nil)
	}

	leaveDays, err := s.approvedDays(ctx, KindLeave, userID, semStart, today)
	if err != nil {
		logger.WithError(err).Warn("Leave aggregation failed, defaulting to full attendance")
		return fullAttendance(StatusFailed, err)
	}
	odDays, err := s.approvedDays(ctx, KindOD, userID, semStart, today)
	if err != nil {
		logger.WithError(err).Warn("OD aggregation failed, defaulting to full attendance")
		return fullAttendance(StatusFailed, err)
	}

	start := FormatDate(semStart)
	return AttendanceReport{
		AttendanceSnapshot: AttendanceSnapshot{
			TotalDays:            totalDays,
			LeaveDays:            leaveDays,
			ODDays:               odDays,
			AttendancePercentage: AttendancePercentage(totalDays, leaveDays),
			SemesterStartDate:    &start,
		},
		Status: StatusComputed,
	}
}

func (s *Service) approvedDays(ctx context.Context, kind RequestKind, userID uint, from, to time.Time) (float64, error) {
	rows, err := s.store.ListRequests(ctx, kind, userID, []string{"approved"})
	if err != nil {
		return 0, err
	}
	var days float64
	for _, row := range rows {
		if rangeContains(from, to, row.StartDate, row.EndDate) {
			days += row.Days()
		}
	}
	return days, nil
}

// TrendPoint is the approved or forwarded leave and OD days starting in one month.
type TrendPoint struct {
	Month     string  `json:"month"` // YYYY-MM
	LeaveDays float64 `json:"leave_days"`
	ODDays    float64 `json:"od_days"`
}

// trendStatuses count toward reporting views but only approved deducts attendance.
var trendStatuses = []string{"approved", "forwarded"}

// AttendanceTrend buckets the user's approved and forwarded requests of the current
// semester by the month they start in, oldest first. A user without a semester start
// has an empty trend.
func (s *Service) AttendanceTrend(ctx context.Context, userID uint) ([]TrendPoint, error) {
	enrollment, err := s.store.FindEnrollment(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrEnrollmentNotFound) {
			return []TrendPoint{}, nil
		}
		return nil, err
	}
	if enrollment.SemesterStartDate == nil {
		return []TrendPoint{}, nil
	}
	semStart := civil(*enrollment.SemesterStartDate)
	today := s.today()

	buckets := map[string]*TrendPoint{}
	for _, kind := range []RequestKind{KindLeave, KindOD} {
		rows, err := s.store.ListRequests(ctx, kind, userID, trendStatuses)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if !RangesOverlap(semStart, today, row.StartDate, row.EndDate) {
				continue
			}
			month := row.StartDate.Format("2006-01")
			point, ok := buckets[month]
			if !ok {
				point = &TrendPoint{Month: month}
				buckets[month] = point
			}
			if kind == KindLeave {
				point.LeaveDays += row.Days()
			} else {
				point.ODDays += row.Days()
			}
		}
	}

	trend := make([]TrendPoint, 0, len(buckets))
	for _, p := range buckets {
		trend = append(trend, *p)
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Month < trend[j].Month })
	return trend, nil
}
