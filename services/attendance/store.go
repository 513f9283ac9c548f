package attendance

import (
	"context"
	"errors"
	"time"
)

// ErrEnrollmentNotFound is returned by a Store when the user has no student profile.
var ErrEnrollmentNotFound = errors.New("student enrollment not found")

// RequestKind selects the leave or the on-duty request table.
type RequestKind string

const (
	KindLeave RequestKind = "leave"
	KindOD    RequestKind = "od"
)

// RequestRef identifies one persisted request, used to exclude a request from
// overlap checks while it is being edited.
type RequestRef struct {
	Kind RequestKind
	ID   uint
}

// Enrollment is the student's batch placement and its current semester window.
type Enrollment struct {
	UserID            uint
	BatchID           uint
	SectionID         uint
	BatchLabel        string
	SemesterStartDate *time.Time
	SemesterEndDate   *time.Time
}

// ScheduleRow is a holiday or exam window from the schedules table.
type ScheduleRow struct {
	ID        uint
	Title     string
	Category  string
	StartDate time.Time
	EndDate   time.Time
	BatchID   *uint
}

// RequestRow is the part of a leave or OD request the engine reads.
type RequestRow struct {
	ID          uint
	UserID      uint
	StartDate   time.Time
	EndDate     time.Time
	Status      string
	IsHalfDay   bool
	WorkingDays float64
}

// Days is the amount of attendance the request covers.
func (r RequestRow) Days() float64 {
	if r.IsHalfDay {
		return 0.5
	}
	return r.WorkingDays
}

// Store is the read-only query capability the engine is built on.
// Date intersection is decided by the engine, so implementations only filter
// on the columns named in each method.
type Store interface {
	// FindEnrollment returns ErrEnrollmentNotFound when the user has no student profile.
	FindEnrollment(ctx context.Context, userID uint) (Enrollment, error)
	ListSchedules(ctx context.Context, categories []string) ([]ScheduleRow, error)
	ListRequests(ctx context.Context, kind RequestKind, userID uint, statuses []string) ([]RequestRow, error)
}
