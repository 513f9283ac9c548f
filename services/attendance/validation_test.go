package attendance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateNotPastDate(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(), "2026-02-14T15:00:00Z")

	assert.True(t, svc.ValidateNotPastDate(mustDate(t, "2026-02-14")))
	assert.True(t, svc.ValidateNotPastDate(mustDate(t, "2026-02-15")))
	assert.False(t, svc.ValidateNotPastDate(mustDate(t, "2026-02-13")))
}

// submissionStore: today is Saturday 2026-02-14, Monday the 16th is a holiday,
// an internal exam runs on the 23rd and a pending leave (id 50) holds the 18th-19th.
func submissionStore(t *testing.T) *MemoryStore {
	store := NewMemoryStore()
	store.PutEnrollment(Enrollment{UserID: 1, BatchID: 10, BatchLabel: "2024-2028", SemesterStartDate: datePtr(t, "2026-02-02")})
	store.AddSchedule(ScheduleRow{Title: "Festival", Category: "Holiday", StartDate: mustDate(t, "2026-02-16"), EndDate: mustDate(t, "2026-02-16")})
	store.AddSchedule(ScheduleRow{Title: "Internal 2", Category: "CIA2", StartDate: mustDate(t, "2026-02-23"), EndDate: mustDate(t, "2026-02-24"), BatchID: uintPtr(10)})
	store.AddRequest(KindLeave, RequestRow{ID: 50, UserID: 1, Status: "pending", StartDate: mustDate(t, "2026-02-18"), EndDate: mustDate(t, "2026-02-19"), WorkingDays: 2})
	return store
}

func TestValidateSubmission(t *testing.T) {
	cases := []struct {
		name     string
		sub      Submission
		accepted bool
		code     string
		days     float64
		exams    int
	}{
		{
			name: "inverted range",
			sub:  Submission{Kind: KindLeave, Start: mustDate(t, "2026-02-20"), End: mustDate(t, "2026-02-17")},
			code: CodeInvalidRange,
		},
		{
			name: "starts yesterday",
			sub:  Submission{Kind: KindLeave, Start: mustDate(t, "2026-02-13"), End: mustDate(t, "2026-02-17")},
			code: CodePastDate,
		},
		{
			name: "half day over two days",
			sub:  Submission{Kind: KindLeave, Start: mustDate(t, "2026-02-17"), End: mustDate(t, "2026-02-18"), IsHalfDay: true},
			code: CodeHalfDaySpan,
		},
		{
			name: "Sunday and holiday only",
			sub:  Submission{Kind: KindOD, Start: mustDate(t, "2026-02-15"), End: mustDate(t, "2026-02-16")},
			code: CodeNoWorkingDays,
		},
		{
			name: "overlaps pending leave",
			sub:  Submission{Kind: KindOD, Start: mustDate(t, "2026-02-19"), End: mustDate(t, "2026-02-20")},
			code: CodeOverlap,
			days: 0,
		},
		{
			name:  "leave during exams",
			sub:   Submission{Kind: KindLeave, LeaveType: "medical", Start: mustDate(t, "2026-02-23"), End: mustDate(t, "2026-02-23")},
			code:  CodeExamConflict,
			days:  1,
			exams: 1,
		},
		{
			name:     "OD during exams is a warning",
			sub:      Submission{Kind: KindOD, Start: mustDate(t, "2026-02-23"), End: mustDate(t, "2026-02-24")},
			accepted: true,
			days:     2,
			exams:    1,
		},
		{
			name:     "casual leave over a holiday",
			sub:      Submission{Kind: KindLeave, LeaveType: LeaveTypeCasual, Start: mustDate(t, "2026-02-16"), End: mustDate(t, "2026-02-17")},
			accepted: true,
			days:     1,
		},
		{
			name:     "half day leave",
			sub:      Submission{Kind: KindLeave, LeaveType: LeaveTypeCasual, Start: mustDate(t, "2026-02-17"), End: mustDate(t, "2026-02-17"), IsHalfDay: true},
			accepted: true,
			days:     0.5,
		},
		{
			name:     "editing the pending leave",
			sub:      Submission{Kind: KindLeave, Start: mustDate(t, "2026-02-18"), End: mustDate(t, "2026-02-20"), Exclude: &RequestRef{Kind: KindLeave, ID: 50}},
			accepted: true,
			days:     3,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t, submissionStore(t), "2026-02-14T09:00:00Z")
			tc.sub.UserID = 1

			v, err := svc.ValidateSubmission(context.Background(), tc.sub)
			require.NoError(t, err)
			assert.Equal(t, tc.accepted, v.Accepted)
			assert.Equal(t, tc.code, v.Code)
			assert.Equal(t, tc.days, v.WorkingDays)
			assert.Len(t, v.ExamDates, tc.exams)
			if !tc.accepted {
				assert.NotEmpty(t, v.Reason)
			}
		})
	}
}

func TestValidateSubmissionAttendanceGate(t *testing.T) {
	// 12 working days up to 2026-02-14 with 3 approved: 75%.
	store := submissionStore(t)
	store.AddRequest(KindLeave, RequestRow{UserID: 1, Status: "approved", StartDate: mustDate(t, "2026-02-03"), EndDate: mustDate(t, "2026-02-05"), WorkingDays: 3})
	svc := newTestService(t, store, "2026-02-14T09:00:00Z")
	ctx := context.Background()

	casual, err := svc.ValidateSubmission(ctx, Submission{UserID: 1, Kind: KindLeave, LeaveType: LeaveTypeCasual, Start: mustDate(t, "2026-02-17"), End: mustDate(t, "2026-02-17")})
	require.NoError(t, err)
	assert.False(t, casual.Accepted)
	assert.Equal(t, CodeBelowMinAttendance, casual.Code)
	require.NotNil(t, casual.Eligibility)
	assert.Equal(t, 75.0, casual.Eligibility.AttendancePercentage)

	medical, err := svc.ValidateSubmission(ctx, Submission{UserID: 1, Kind: KindLeave, LeaveType: "medical", Start: mustDate(t, "2026-02-17"), End: mustDate(t, "2026-02-17")})
	require.NoError(t, err)
	assert.True(t, medical.Accepted)
	assert.Nil(t, medical.Eligibility)

	od, err := svc.ValidateSubmission(ctx, Submission{UserID: 1, Kind: KindOD, Start: mustDate(t, "2026-02-17"), End: mustDate(t, "2026-02-17")})
	require.NoError(t, err)
	assert.True(t, od.Accepted)
}

func TestValidateSubmissionOverlapFailure(t *testing.T) {
	store := submissionStore(t)
	boom := errors.New("lock wait timeout")
	store.Fail("od", boom)
	svc := newTestService(t, store, "2026-02-14T09:00:00Z")

	_, err := svc.ValidateSubmission(context.Background(), Submission{UserID: 1, Kind: KindLeave, Start: mustDate(t, "2026-02-17"), End: mustDate(t, "2026-02-17")})
	assert.ErrorIs(t, err, boom)
}
