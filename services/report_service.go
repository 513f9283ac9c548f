package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/services/attendance"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// RosterEntry is one enrolled student of a batch
type RosterEntry struct {
	UserID     uint   `json:"user_id"`
	RollNumber string `json:"roll_number"`
	Name       string `json:"name"`
	Section    string `json:"section"`
}

// BatchRef names a batch
type BatchRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// RosterSource lists batches and their students.
type RosterSource interface {
	ActiveBatches(ctx context.Context) ([]BatchRef, error)
	BatchRoster(ctx context.Context, batchID uint) (BatchRef, []RosterEntry, error)
}

// ReportRow is one student's line in the batch attendance report.
type ReportRow struct {
	RosterEntry
	attendance.AttendanceSnapshot
	Status   attendance.SnapshotStatus `json:"status"`
	Eligible bool                      `json:"eligible"`
}

// ReportFile is a rendered workbook
type ReportFile struct {
	Batch       BatchRef
	FileName    string
	GeneratedOn time.Time
	RecordCount int
	Body        []byte
}

type ReportService struct {
	engine *attendance.Service
	roster RosterSource
	log    *logrus.Entry
}

func NewReportService(engine *attendance.Service, roster RosterSource) *ReportService {
	return &ReportService{
		engine: engine,
		roster: roster,
		log:    logrus.WithField("component", "report"),
	}
}

// Rows computes a fresh attendance snapshot for every student of the batch.
func (s *ReportService) Rows(ctx context.Context, batchID uint) (BatchRef, []ReportRow, error) {
	batch, roster, err := s.roster.BatchRoster(ctx, batchID)
	if err != nil {
		return BatchRef{}, nil, err
	}
	rows := make([]ReportRow, 0, len(roster))
	for _, entry := range roster {
		report := s.engine.StudentAttendance(ctx, entry.UserID)
		if report.Err != nil {
			s.log.WithError(report.Err).WithField("user_id", entry.UserID).Warn("Attendance defaulted in report")
		}
		rows = append(rows, ReportRow{
			RosterEntry:        entry,
			AttendanceSnapshot: report.AttendanceSnapshot,
			Status:             report.Status,
			Eligible:           report.AttendancePercentage >= s.engine.MinimumAttendance(),
		})
	}
	return batch, rows, nil
}

// BelowMinimum returns the computed rows under the attendance threshold.
// Defaulted rows never count as below the minimum.
func (s *ReportService) BelowMinimum(ctx context.Context, batchID uint) ([]ReportRow, error) {
	_, rows, err := s.Rows(ctx, batchID)
	if err != nil {
		return nil, err
	}
	var out []ReportRow
	for _, r := range rows {
		if r.Status == attendance.StatusComputed && !r.Eligible {
			out = append(out, r)
		}
	}
	return out, nil
}

// BatchWorkbook renders the batch report as an xlsx workbook.
func (s *ReportService) BatchWorkbook(ctx context.Context, batchID uint) (*ReportFile, error) {
	batch, rows, err := s.Rows(ctx, batchID)
	if err != nil {
		return nil, err
	}
	generatedOn := s.engine.Now()
	body, err := BuildWorkbook(batch.Name, generatedOn, s.engine.MinimumAttendance(), rows)
	if err != nil {
		return nil, err
	}
	return &ReportFile{
		Batch:       batch,
		FileName:    fmt.Sprintf("attendance_%s_%s.xlsx", batch.Name, generatedOn.Format("20060102")),
		GeneratedOn: generatedOn,
		RecordCount: len(rows),
		Body:        body,
	}, nil
}

var reportHeaders = []interface{}{
	"Roll No", "Name", "Section", "Working Days", "Leave Days", "OD Days", "Attendance %", "Eligible", "Status",
}

// BuildWorkbook writes rows to a single-sheet workbook titled with the batch label.
func BuildWorkbook(batchLabel string, generatedOn time.Time, minimum float64, rows []ReportRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Attendance"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}

	title := fmt.Sprintf("Batch %s attendance as of %s (minimum %.0f%%)", batchLabel, attendance.FormatDate(generatedOn), minimum)
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(sheet, "A3", &reportHeaders); err != nil {
		return nil, err
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(sheet, "A3", "I3", style)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+4)
		if err != nil {
			return nil, err
		}
		eligible := "No"
		if r.Eligible {
			eligible = "Yes"
		}
		values := []interface{}{
			r.RollNumber, r.Name, r.Section, r.TotalDays, r.LeaveDays, r.ODDays, r.AttendancePercentage, eligible, string(r.Status),
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 16)
	_ = f.SetColWidth(sheet, "B", "B", 28)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type gormRoster struct {
	db *gorm.DB
}

func NewGormRoster(db *gorm.DB) RosterSource {
	return &gormRoster{db: db}
}

func (r *gormRoster) ActiveBatches(ctx context.Context) ([]BatchRef, error) {
	var out []BatchRef
	err := r.db.WithContext(ctx).Raw(`
SELECT id, name FROM batches
WHERE active = 1 AND deleted_at IS NULL
ORDER BY name`).Scan(&out).Error
	return out, err
}

func (r *gormRoster) BatchRoster(ctx context.Context, batchID uint) (BatchRef, []RosterEntry, error) {
	var batches []BatchRef
	if err := r.db.WithContext(ctx).Raw(`SELECT id, name FROM batches WHERE id = ? AND deleted_at IS NULL`, batchID).Scan(&batches).Error; err != nil {
		return BatchRef{}, nil, err
	}
	if len(batches) == 0 {
		return BatchRef{}, nil, ErrNotFound
	}

	var roster []RosterEntry
	err := r.db.WithContext(ctx).Raw(`
SELECT sp.user_id, sp.roll_number, COALESCE(NULLIF(u.name, ''), u.username) AS name, s.name AS section
FROM student_profiles sp
JOIN users u ON u.id = sp.user_id AND u.deleted_at IS NULL
JOIN sections s ON s.id = sp.section_id
WHERE sp.batch_id = ? AND sp.deleted_at IS NULL AND u.status = 'active'
ORDER BY s.name, sp.roll_number`, batchID).Scan(&roster).Error
	return batches[0], roster, err
}
