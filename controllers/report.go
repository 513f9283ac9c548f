package controllers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/middleware"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/models"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/services"
	"github.com/sirupsen/logrus"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	presignTTL      = 15 * time.Minute
)

// Presigner issues temporary download links for archived reports
type Presigner interface {
	PresignDownload(key string, ttl time.Duration) (string, error)
}

// ReportController serves batch attendance workbooks and their S3 archive.
type ReportController struct {
	reports   *services.ReportService
	archives  services.ArchiveStore
	presigner Presigner
	monitor   *services.AttendanceMonitor
}

func NewReportController(reports *services.ReportService, archives services.ArchiveStore, presigner Presigner, monitor *services.AttendanceMonitor) *ReportController {
	return &ReportController{reports: reports, archives: archives, presigner: presigner, monitor: monitor}
}

// DownloadBatchReport streams a freshly computed workbook for the batch
func (rc *ReportController) DownloadBatchReport(c *fiber.Ctx) error {
	batchID, err := paramID(c, "batchId")
	if err != nil {
		return badRequest(c, err)
	}
	file, err := rc.reports.BatchWorkbook(c.UserContext(), batchID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Batch not found"})
		}
		logrus.WithError(err).WithField("batch_id", batchID).Error("Failed to build attendance report")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to build report"})
	}

	middleware.LogActivity(c, "EXPORT", "reports", batchID, fiber.Map{"records": file.RecordCount})
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+file.FileName+`"`)
	return c.Send(file.Body)
}

// ListArchives returns archived workbooks, optionally for one batch
func (rc *ReportController) ListArchives(c *fiber.Ctx) error {
	var batchID uint
	if raw := c.Query("batch_id"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || v == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid batch_id"})
		}
		batchID = uint(v)
	}
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	archives, err := rc.archives.ListArchives(c.UserContext(), batchID, limit)
	if err != nil {
		logrus.WithError(err).Error("Failed to list report archives")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch archives"})
	}
	if archives == nil {
		archives = []models.ReportArchive{}
	}
	return c.JSON(fiber.Map{"archives": archives})
}

// GetArchiveURL returns a short-lived download link for a completed archive
func (rc *ReportController) GetArchiveURL(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	archive, err := rc.archives.GetArchive(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Archive not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch archive"})
	}
	if archive.Status != "completed" || archive.S3Key == "" {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Archive is not available for download"})
	}
	if rc.presigner == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Report storage is not configured"})
	}
	url, err := rc.presigner.PresignDownload(archive.S3Key, presignTTL)
	if err != nil {
		logrus.WithError(err).WithField("archive_id", id).Error("Failed to presign archive")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create download link"})
	}
	return c.JSON(fiber.Map{
		"url":        url,
		"expires_in": int(presignTTL.Seconds()),
		"file_name":  archive.FileName,
	})
}

// ArchiveBatchNow archives the batch workbook immediately (admin only)
func (rc *ReportController) ArchiveBatchNow(c *fiber.Ctx) error {
	batchID, err := paramID(c, "batchId")
	if err != nil {
		return badRequest(c, err)
	}
	archive, err := rc.monitor.ArchiveBatch(c.UserContext(), batchID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Batch not found"})
		}
		if errors.Is(err, services.ErrStorageUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
		}
		resp := fiber.Map{"error": "Failed to archive report"}
		if archive != nil {
			resp["archive"] = archive
		}
		return c.Status(fiber.StatusBadGateway).JSON(resp)
	}
	middleware.LogActivity(c, "ARCHIVE", "reports", batchID, fiber.Map{"s3_key": archive.S3Key})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"archive": archive})
}
