package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/models"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/services/notifications"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReportUploader stores a rendered workbook and returns its object key
type ReportUploader interface {
	UploadReport(ctx context.Context, batchLabel string, generatedOn time.Time, body []byte) (string, error)
}

// ArchiveStore records uploaded report workbooks.
type ArchiveStore interface {
	CreateArchive(ctx context.Context, a *models.ReportArchive) error
	SaveArchive(ctx context.Context, a *models.ReportArchive) error
	ListArchives(ctx context.Context, batchID uint, limit int) ([]models.ReportArchive, error)
	GetArchive(ctx context.Context, id uint) (*models.ReportArchive, error)
}

const jobTimeout = 10 * time.Minute

var ErrStorageUnavailable = errors.New("report storage is not configured")

// AttendanceMonitor runs the scheduled attendance jobs.
type AttendanceMonitor struct {
	reports  *ReportService
	notifier Notifier
	uploader ReportUploader
	archives ArchiveStore
	cron     *cron.Cron
	log      *logrus.Entry
}

func NewAttendanceMonitor(reports *ReportService, notifier Notifier, uploader ReportUploader, archives ArchiveStore, loc *time.Location) *AttendanceMonitor {
	if loc == nil {
		loc = time.Local
	}
	log := logrus.WithField("component", "attendance_monitor")
	return &AttendanceMonitor{
		reports:  reports,
		notifier: notifier,
		uploader: uploader,
		archives: archives,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log})),
		),
		log: log,
	}
}

// Start registers the alert and archive jobs and starts the scheduler.
// An empty spec disables that job.
func (m *AttendanceMonitor) Start(alertSpec, archiveSpec string) error {
	if alertSpec != "" {
		if err := m.AddJob("low_attendance_alert", alertSpec, func(ctx context.Context) error {
			_, err := m.SendLowAttendanceAlerts(ctx)
			return err
		}); err != nil {
			return err
		}
	}
	if archiveSpec != "" {
		if err := m.AddJob("report_archive", archiveSpec, func(ctx context.Context) error {
			_, err := m.ArchiveReports(ctx)
			return err
		}); err != nil {
			return err
		}
	}
	m.cron.Start()
	m.log.WithField("jobs", len(m.cron.Entries())).Info("Attendance monitor started")
	return nil
}

// AddJob schedules fn under spec with a bounded context.
func (m *AttendanceMonitor) AddJob(name, spec string, fn func(ctx context.Context) error) error {
	_, err := m.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		started := time.Now()
		if err := fn(ctx); err != nil {
			m.log.WithError(err).WithField("job", name).Error("Scheduled job failed")
			return
		}
		m.log.WithFields(logrus.Fields{"job": name, "duration": time.Since(started).String()}).Debug("Scheduled job finished")
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	return nil
}

// Stop halts the scheduler and waits for running jobs.
func (m *AttendanceMonitor) Stop() {
	<-m.cron.Stop().Done()
	m.log.Info("Attendance monitor stopped")
}

// SendLowAttendanceAlerts warns every student whose freshly computed attendance
// is below the minimum. It returns the number of students alerted.
func (m *AttendanceMonitor) SendLowAttendanceAlerts(ctx context.Context) (int, error) {
	batches, err := m.reports.roster.ActiveBatches(ctx)
	if err != nil {
		return 0, fmt.Errorf("list batches: %w", err)
	}
	minimum := m.reports.engine.MinimumAttendance()
	alerted := 0
	for _, b := range batches {
		low, err := m.reports.BelowMinimum(ctx, b.ID)
		if err != nil {
			m.log.WithError(err).WithField("batch", b.Name).Warn("Skipping batch in attendance alert")
			continue
		}
		for _, r := range low {
			msg := notifications.NewMessage("Low attendance",
				fmt.Sprintf("Your attendance is %.2f%%, below the required %.0f%%. Casual leave is blocked until it improves.", r.AttendancePercentage, minimum),
				notifications.TypeWarning,
				map[string]interface{}{"attendance_percentage": r.AttendancePercentage, "minimum_percentage": minimum})
			if err := m.notifier.EnqueueOrCreate(ctx, []uint{r.UserID}, msg); err != nil {
				m.log.WithError(err).WithField("user_id", r.UserID).Warn("Low attendance alert not sent")
				continue
			}
			alerted++
		}
	}
	m.log.WithFields(logrus.Fields{"batches": len(batches), "alerted": alerted}).Info("Low attendance alerts sent")
	return alerted, nil
}

// ArchiveReports uploads a workbook for every active batch. A failing batch is
// recorded as failed and does not stop the others.
func (m *AttendanceMonitor) ArchiveReports(ctx context.Context) (int, error) {
	batches, err := m.reports.roster.ActiveBatches(ctx)
	if err != nil {
		return 0, fmt.Errorf("list batches: %w", err)
	}
	done := 0
	for _, b := range batches {
		if _, err := m.ArchiveBatch(ctx, b.ID); err != nil {
			m.log.WithError(err).WithField("batch", b.Name).Error("Report archive failed")
			continue
		}
		done++
	}
	return done, nil
}

// ArchiveBatch renders, uploads and records one batch report.
func (m *AttendanceMonitor) ArchiveBatch(ctx context.Context, batchID uint) (*models.ReportArchive, error) {
	if m.uploader == nil {
		return nil, ErrStorageUnavailable
	}
	file, err := m.reports.BatchWorkbook(ctx, batchID)
	if err != nil {
		return nil, err
	}

	rec := &models.ReportArchive{
		BatchID:     batchID,
		FileName:    file.FileName,
		GeneratedOn: file.GeneratedOn,
		RecordCount: file.RecordCount,
		FileSize:    int64(len(file.Body)),
		Status:      "pending",
	}
	if err := m.archives.CreateArchive(ctx, rec); err != nil {
		return nil, fmt.Errorf("record archive: %w", err)
	}

	key, uploadErr := m.uploader.UploadReport(ctx, file.Batch.Name, file.GeneratedOn, file.Body)
	if uploadErr != nil {
		rec.Status = "failed"
		rec.Error = uploadErr.Error()
	} else {
		rec.Status = "completed"
		rec.S3Key = key
	}
	if err := m.archives.SaveArchive(ctx, rec); err != nil {
		m.log.WithError(err).WithField("archive_id", rec.ID).Warn("Could not update archive status")
	}
	if uploadErr != nil {
		return rec, fmt.Errorf("upload report: %w", uploadErr)
	}

	m.log.WithFields(logrus.Fields{
		"batch":   file.Batch.Name,
		"s3_key":  key,
		"records": rec.RecordCount,
		"size":    rec.FileSize,
	}).Info("Attendance report archived")
	return rec, nil
}

// cronLogger adapts logrus to cron.Logger
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithError(err).WithFields(kvFields(keysAndValues)).Error(msg)
}

func kvFields(kv []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}

type gormArchiveStore struct {
	db *gorm.DB
}

func NewGormArchiveStore(db *gorm.DB) ArchiveStore {
	return &gormArchiveStore{db: db}
}

func (s *gormArchiveStore) CreateArchive(ctx context.Context, a *models.ReportArchive) error {
	return s.db.WithContext(ctx).Create(a).Error
}

func (s *gormArchiveStore) SaveArchive(ctx context.Context, a *models.ReportArchive) error {
	return s.db.WithContext(ctx).Save(a).Error
}

func (s *gormArchiveStore) ListArchives(ctx context.Context, batchID uint, limit int) ([]models.ReportArchive, error) {
	var out []models.ReportArchive
	q := s.db.WithContext(ctx).Order("generated_on DESC, id DESC")
	if batchID != 0 {
		q = q.Where("batch_id = ?", batchID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

func (s *gormArchiveStore) GetArchive(ctx context.Context, id uint) (*models.ReportArchive, error) {
	var a models.ReportArchive
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}
