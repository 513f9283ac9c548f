package attendance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func examStore(t *testing.T) *MemoryStore {
	store := NewMemoryStore()
	store.PutEnrollment(Enrollment{UserID: 1, BatchID: 10, SectionID: 100, BatchLabel: "2024-2028"})
	store.AddSchedule(ScheduleRow{Title: "Internal 1", Category: "CIA1", StartDate: mustDate(t, "2026-02-10"), EndDate: mustDate(t, "2026-02-12"), BatchID: uintPtr(10)})
	store.AddSchedule(ScheduleRow{Title: "Model exam", Category: "Model", StartDate: mustDate(t, "2026-02-11"), EndDate: mustDate(t, "2026-02-11"), BatchID: uintPtr(20)})
	store.AddSchedule(ScheduleRow{Title: "End semester", Category: "Semester", StartDate: mustDate(t, "2026-02-20"), EndDate: mustDate(t, "2026-02-25")})
	store.AddSchedule(ScheduleRow{Title: "Founders day", Category: "Holiday", StartDate: mustDate(t, "2026-02-11"), EndDate: mustDate(t, "2026-02-11")})
	store.AddSchedule(ScheduleRow{Title: "Lab exam", Category: "Practical", StartDate: mustDate(t, "2026-02-16"), EndDate: mustDate(t, "2026-02-16"), BatchID: uintPtr(10)})
	return store
}

func TestCheckExamDatesInRange(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, examStore(t), "2026-02-01T09:00:00Z")

	got := svc.CheckExamDatesInRange(ctx, 1, mustDate(t, "2026-02-09"), mustDate(t, "2026-02-21"))
	assert.NoError(t, got.Err)
	assert.True(t, got.HasExams)
	assert.Equal(t, []string{
		"2026-02-10 to 2026-02-12 (CIA1: Internal 1)",
		"2026-02-20 to 2026-02-25 (Semester: End semester)",
	}, got.ExamDates)

	none := svc.CheckExamDatesInRange(ctx, 1, mustDate(t, "2026-02-13"), mustDate(t, "2026-02-19"))
	assert.False(t, none.HasExams)
	assert.Empty(t, none.ExamDates)
	assert.NotNil(t, none.ExamDates)
}

func TestCheckExamDatesInRangeWithoutEnrollment(t *testing.T) {
	svc := newTestService(t, examStore(t), "2026-02-01T09:00:00Z")

	got := svc.CheckExamDatesInRange(context.Background(), 99, mustDate(t, "2026-02-01"), mustDate(t, "2026-02-28"))
	assert.NoError(t, got.Err)
	assert.Equal(t, []string{"2026-02-20 to 2026-02-25 (Semester: End semester)"}, got.ExamDates)
}

func TestCheckExamDatesInRangeCustomCategories(t *testing.T) {
	svc := newTestService(t, examStore(t), "2026-02-01T09:00:00Z", WithExamCategories("Practical"))

	got := svc.CheckExamDatesInRange(context.Background(), 1, mustDate(t, "2026-02-01"), mustDate(t, "2026-02-28"))
	assert.Equal(t, []string{"2026-02-16 to 2026-02-16 (Practical: Lab exam)"}, got.ExamDates)
}

func TestCheckExamDatesInRangeFailsOpen(t *testing.T) {
	boom := errors.New("timeout")
	for _, op := range []string{"enrollment", "schedules"} {
		op := op
		t.Run(op, func(t *testing.T) {
			store := examStore(t)
			store.Fail(op, boom)
			svc := newTestService(t, store, "2026-02-01T09:00:00Z")

			got := svc.CheckExamDatesInRange(context.Background(), 1, mustDate(t, "2026-02-09"), mustDate(t, "2026-02-21"))
			assert.ErrorIs(t, got.Err, boom)
			assert.False(t, got.HasExams)
			assert.Empty(t, got.ExamDates)
		})
	}
}
