package attendance

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// GormStore runs the engine's reads as raw parameterized SQL on a gorm connection.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

const enrollmentQuery = `
SELECT sp.user_id, sp.batch_id, sp.section_id, b.name AS batch_label,
       b.semester_start_date, b.semester_end_date
FROM student_profiles sp
JOIN batches b ON b.id = sp.batch_id AND b.deleted_at IS NULL
WHERE sp.user_id = ? AND sp.deleted_at IS NULL
LIMIT 1`

func (s *GormStore) FindEnrollment(ctx context.Context, userID uint) (Enrollment, error) {
	var rows []Enrollment
	if err := s.db.WithContext(ctx).Raw(enrollmentQuery, userID).Scan(&rows).Error; err != nil {
		return Enrollment{}, fmt.Errorf("find enrollment for user %d: %w", userID, err)
	}
	if len(rows) == 0 {
		return Enrollment{}, ErrEnrollmentNotFound
	}
	return rows[0], nil
}

const schedulesQuery = `
SELECT id, title, category, start_date, end_date, batch_id
FROM schedules
WHERE category IN ? AND deleted_at IS NULL
ORDER BY start_date`

func (s *GormStore) ListSchedules(ctx context.Context, categories []string) ([]ScheduleRow, error) {
	if len(categories) == 0 {
		return nil, nil
	}
	var rows []ScheduleRow
	if err := s.db.WithContext(ctx).Raw(schedulesQuery, categories).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return rows, nil
}

var requestTables = map[RequestKind]string{
	KindLeave: "leave_requests",
	KindOD:    "od_requests",
}

func (s *GormStore) ListRequests(ctx context.Context, kind RequestKind, userID uint, statuses []string) ([]RequestRow, error) {
	table, ok := requestTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown request kind %q", kind)
	}
	if len(statuses) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
SELECT id, user_id, start_date, end_date, status, is_half_day, working_days
FROM %s
WHERE user_id = ? AND status IN ? AND deleted_at IS NULL`, table)

	var rows []RequestRow
	if err := s.db.WithContext(ctx).Raw(query, userID, statuses).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return rows, nil
}
