package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ExamCheck reports the exams scheduled inside a requested window.
type ExamCheck struct {
	HasExams  bool     `json:"has_exams"`
	ExamDates []string `json:"exam_dates"`
	Err       error    `json:"-"`
}

// CheckExamDatesInRange finds exams for the user's batch, or for every batch, that
// intersect [start, end]. A user without an enrollment only sees exams that apply
// to every batch. Lookup failures report no exams.
func (s *Service) CheckExamDatesInRange(ctx context.Context, userID uint, start, end time.Time) ExamCheck {
	logger := s.log.WithField("user_id", userID)

	var batchID *uint
	enrollment, err := s.store.FindEnrollment(ctx, userID)
	switch {
	case err == nil:
		batchID = &enrollment.BatchID
	case errors.Is(err, ErrEnrollmentNotFound):
	default:
		logger.WithError(err).Warn("Exam check could not resolve batch, reporting no exams")
		return ExamCheck{ExamDates: []string{}, Err: err}
	}

	rows, err := s.store.ListSchedules(ctx, s.examCategories)
	if err != nil {
		logger.WithError(err).Warn("Exam lookup failed, reporting no exams")
		return ExamCheck{ExamDates: []string{}, Err: err}
	}

	check := ExamCheck{ExamDates: []string{}}
	for _, row := range rows {
		if !appliesToBatch(row.BatchID, batchID) {
			continue
		}
		if !RangesOverlap(start, end, row.StartDate, row.EndDate) {
			continue
		}
		check.ExamDates = append(check.ExamDates, fmt.Sprintf("%s to %s (%s: %s)",
			FormatDate(row.StartDate), FormatDate(row.EndDate), row.Category, row.Title))
	}
	check.HasExams = len(check.ExamDates) > 0
	return check
}

func appliesToBatch(rowBatch, userBatch *uint) bool {
	if rowBatch == nil {
		return true
	}
	return userBatch != nil && *rowBatch == *userBatch
}
