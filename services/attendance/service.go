// Package attendance holds the semester-aware attendance rules: academic state,
// holidays and working days, exam and overlap checks, attendance percentage and
// the casual-leave eligibility gate. Every read goes through a Store and every
// notion of "today" goes through the injected clock.
package attendance

import (
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultMinimumAttendance = 80.0

// DefaultExamCategories are the schedule categories treated as exams.
var DefaultExamCategories = []string{"CIA1", "CIA2", "CIA3", "Model", "Semester"}

// Service evaluates the attendance rules for one portal. It keeps no state between
// calls and is safe for concurrent use.
type Service struct {
	store          Store
	now            func() time.Time
	minAttendance  float64
	examCategories []string
	log            *logrus.Entry
}

type Option func(*Service)

// WithNow replaces the wall clock.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMinimumAttendance sets the casual-leave threshold in percent.
func WithMinimumAttendance(percent float64) Option {
	return func(s *Service) {
		if percent > 0 {
			s.minAttendance = percent
		}
	}
}

func WithExamCategories(categories ...string) Option {
	return func(s *Service) {
		if len(categories) > 0 {
			s.examCategories = append([]string(nil), categories...)
		}
	}
}

func WithLogger(entry *logrus.Entry) Option {
	return func(s *Service) {
		if entry != nil {
			s.log = entry
		}
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:          store,
		now:            time.Now,
		minAttendance:  DefaultMinimumAttendance,
		examCategories: DefaultExamCategories,
		log:            logrus.WithField("component", "attendance"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MinimumAttendance returns the configured casual-leave threshold.
func (s *Service) MinimumAttendance() float64 { return s.minAttendance }

// Now returns the current time from the injected clock.
func (s *Service) Now() time.Time { return s.now() }

// today is the current calendar date as a civil date.
func (s *Service) today() time.Time { return civil(s.now()) }
