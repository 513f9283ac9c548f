package attendance

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// LeaveTypeCasual is the only leave type gated by attendance.
const LeaveTypeCasual = "casual"

// Rejection codes returned in a Verdict.
const (
	CodeInvalidRange       = "invalid_range"
	CodePastDate           = "past_date"
	CodeHalfDaySpan        = "half_day_span"
	CodeNoWorkingDays      = "no_working_days"
	CodeOverlap            = "overlap"
	CodeExamConflict       = "exam_conflict"
	CodeBelowMinAttendance = "attendance_below_minimum"
)

// ValidateNotPastDate reports whether start is today or later.
func (s *Service) ValidateNotPastDate(start time.Time) bool {
	return !civil(start).Before(s.today())
}

// Submission is a leave or OD request about to be created or edited.
type Submission struct {
	UserID    uint
	Kind      RequestKind
	LeaveType string
	Start     time.Time
	End       time.Time
	IsHalfDay bool
	// Exclude is the request being edited, if any.
	Exclude *RequestRef
}

// Verdict is the outcome of ValidateSubmission. When Accepted is false Code and
// Reason say why. ExamDates on an accepted OD submission are warnings.
type Verdict struct {
	Accepted    bool              `json:"accepted"`
	Code        string            `json:"code,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	WorkingDays float64           `json:"working_days"`
	ExamDates   []string          `json:"exam_dates,omitempty"`
	Eligibility *LeaveEligibility `json:"eligibility,omitempty"`
}

func reject(code, reason string) Verdict {
	return Verdict{Code: code, Reason: reason}
}

// ValidateSubmission runs every rule a new or edited request must pass. Policy
// refusals come back as a Verdict; an error means the overlap check could not run
// and the submission must not be accepted.
func (s *Service) ValidateSubmission(ctx context.Context, sub Submission) (Verdict, error) {
	if civil(sub.Start).After(civil(sub.End)) {
		return reject(CodeInvalidRange, "Start date must be on or before end date"), nil
	}
	if !s.ValidateNotPastDate(sub.Start) {
		return reject(CodePastDate, "Start date cannot be in the past"), nil
	}
	if sub.IsHalfDay && !civil(sub.Start).Equal(civil(sub.End)) {
		return reject(CodeHalfDaySpan, "A half-day request must start and end on the same day"), nil
	}

	workingDays := float64(s.CalculateWorkingDaysWithHolidays(ctx, sub.Start, sub.End))
	if workingDays == 0 {
		return reject(CodeNoWorkingDays, "The selected dates contain no working days"), nil
	}
	if sub.IsHalfDay {
		workingDays = 0.5
	}

	overlapping, err := s.CheckOverlappingRequests(ctx, sub.UserID, sub.Start, sub.End, sub.Exclude)
	if err != nil {
		return Verdict{}, err
	}
	if overlapping {
		return reject(CodeOverlap, "You already have a leave or OD request covering these dates"), nil
	}

	verdict := Verdict{Accepted: true, WorkingDays: workingDays}

	exams := s.CheckExamDatesInRange(ctx, sub.UserID, sub.Start, sub.End)
	if exams.HasExams {
		if sub.Kind == KindLeave {
			v := reject(CodeExamConflict, fmt.Sprintf("Leave cannot be applied during exams: %s", strings.Join(exams.ExamDates, "; ")))
			v.ExamDates = exams.ExamDates
			v.WorkingDays = workingDays
			return v, nil
		}
		verdict.ExamDates = exams.ExamDates
	}

	if sub.Kind == KindLeave && (sub.LeaveType == "" || sub.LeaveType == LeaveTypeCasual) {
		eligibility := s.CanApplyCasualLeave(ctx, sub.UserID)
		if !eligibility.Allowed {
			v := reject(CodeBelowMinAttendance, eligibility.Message)
			v.WorkingDays = workingDays
			v.Eligibility = &eligibility
			return v, nil
		}
		verdict.Eligibility = &eligibility
	}

	return verdict, nil
}

