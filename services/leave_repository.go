package services

import (
	"context"
	"errors"

	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/models"
	"gorm.io/gorm"
)

// LeaveRepository persists leave and OD requests.
// Get methods return ErrNotFound when the row does not exist.
type LeaveRepository interface {
	CreateLeave(ctx context.Context, req *models.LeaveRequest) error
	CreateOD(ctx context.Context, req *models.ODRequest) error
	GetLeave(ctx context.Context, id uint) (*models.LeaveRequest, error)
	GetOD(ctx context.Context, id uint) (*models.ODRequest, error)
	SaveLeave(ctx context.Context, req *models.LeaveRequest) error
	SaveOD(ctx context.Context, req *models.ODRequest) error
	ListLeaves(ctx context.Context, userID uint) ([]models.LeaveRequest, error)
	ListODs(ctx context.Context, userID uint) ([]models.ODRequest, error)
	// TutorOf returns the tutor of the student's section, nil when unassigned
	TutorOf(ctx context.Context, studentID uint) (*uint, error)
	AdminIDs(ctx context.Context) ([]uint, error)
}

type gormLeaveRepository struct {
	db *gorm.DB
}

func NewGormLeaveRepository(db *gorm.DB) LeaveRepository {
	return &gormLeaveRepository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (r *gormLeaveRepository) CreateLeave(ctx context.Context, req *models.LeaveRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *gormLeaveRepository) CreateOD(ctx context.Context, req *models.ODRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *gormLeaveRepository) GetLeave(ctx context.Context, id uint) (*models.LeaveRequest, error) {
	var req models.LeaveRequest
	if err := r.db.WithContext(ctx).First(&req, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

func (r *gormLeaveRepository) GetOD(ctx context.Context, id uint) (*models.ODRequest, error) {
	var req models.ODRequest
	if err := r.db.WithContext(ctx).First(&req, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

func (r *gormLeaveRepository) SaveLeave(ctx context.Context, req *models.LeaveRequest) error {
	return r.db.WithContext(ctx).Omit("User").Save(req).Error
}

func (r *gormLeaveRepository) SaveOD(ctx context.Context, req *models.ODRequest) error {
	return r.db.WithContext(ctx).Omit("User").Save(req).Error
}

func (r *gormLeaveRepository) ListLeaves(ctx context.Context, userID uint) ([]models.LeaveRequest, error) {
	var out []models.LeaveRequest
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("start_date DESC").Find(&out).Error
	return out, err
}

func (r *gormLeaveRepository) ListODs(ctx context.Context, userID uint) ([]models.ODRequest, error) {
	var out []models.ODRequest
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("start_date DESC").Find(&out).Error
	return out, err
}

func (r *gormLeaveRepository) TutorOf(ctx context.Context, studentID uint) (*uint, error) {
	var rows []struct{ TutorID *uint }
	err := r.db.WithContext(ctx).Raw(`
SELECT s.tutor_id
FROM student_profiles sp
JOIN sections s ON s.id = sp.section_id
WHERE sp.user_id = ? AND sp.deleted_at IS NULL
LIMIT 1`, studentID).Scan(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0].TutorID, nil
}

func (r *gormLeaveRepository) AdminIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ? AND status = ?", models.RoleAdmin, "active").
		Pluck("id", &ids).Error
	return ids, err
}
