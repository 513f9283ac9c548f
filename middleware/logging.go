package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/database"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	RequestIDHeader  = "X-Request-ID"
	activityLogQueue = "activity_logs:queue"
)

// RequestIDMiddleware keeps an incoming X-Request-ID or assigns a new one
func RequestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals("request_id", id)
		c.Set(RequestIDHeader, id)
		return c.Next()
	}
}

// RequestID returns the id assigned by RequestIDMiddleware
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals("request_id").(string)
	return id
}

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		fields := logrus.Fields{
			"request_id": RequestID(c),
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"duration":   time.Since(start).String(),
			"ip":         c.IP(),
			"user_agent": c.Get("User-Agent"),
		}
		if claims, ok := c.Locals("claims").(*Claims); ok {
			fields["user_id"] = claims.UserID
		}
		logrus.WithFields(fields).Info("HTTP Request")

		return err
	}
}

// LogActivity records a user action. It is buffered in Redis when available and
// written straight to the database otherwise.
func LogActivity(c *fiber.Ctx, action, resource string, resourceID uint, details interface{}) {
	var userID uint
	if claims, ok := c.Locals("claims").(*Claims); ok {
		userID = claims.UserID
	}

	var detailsJSON models.JSON
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			detailsJSON = b
		}
	}

	entry := models.ActivityLog{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    detailsJSON,
		IPAddress:  c.IP(),
		UserAgent:  c.Get("User-Agent"),
		RequestID:  RequestID(c),
	}
	entry.CreatedAt = time.Now()

	go func(al models.ActivityLog) {
		defer func() {
			if r := recover(); r != nil {
				logrus.WithField("panic", r).Error("panic recovered in LogActivity goroutine")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := queueActivityLog(ctx, database.GetRedisClient(), al); err != nil {
			if database.DB == nil {
				logrus.Error("database.DB is nil; dropping activity log")
				return
			}
			if dbErr := database.DB.WithContext(ctx).Create(&al).Error; dbErr != nil {
				logrus.WithError(dbErr).Error("Failed to save activity log to database")
			}
		}
	}(entry)
}

func queueActivityLog(ctx context.Context, rdb *redis.Client, al models.ActivityLog) error {
	if rdb == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(al)
	if err != nil {
		return fmt.Errorf("failed to marshal activity log: %w", err)
	}
	return rdb.RPush(ctx, activityLogQueue, data).Err()
}

// FlushActivityLogs moves up to max buffered activity logs from Redis into the
// database and returns how many were written.
func FlushActivityLogs(ctx context.Context, db *gorm.DB, rdb *redis.Client, max int64) (int, error) {
	if rdb == nil || db == nil {
		return 0, nil
	}
	items, err := rdb.LRange(ctx, activityLogQueue, 0, max-1).Result()
	if err != nil || len(items) == 0 {
		return 0, err
	}

	logs := make([]models.ActivityLog, 0, len(items))
	for _, it := range items {
		var al models.ActivityLog
		if err := json.Unmarshal([]byte(it), &al); err != nil {
			logrus.WithError(err).Warn("Skipping malformed activity log entry")
			continue
		}
		logs = append(logs, al)
	}
	if len(logs) > 0 {
		if err := db.WithContext(ctx).CreateInBatches(logs, 200).Error; err != nil {
			return 0, fmt.Errorf("insert activity logs: %w", err)
		}
	}
	if err := rdb.LTrim(ctx, activityLogQueue, int64(len(items)), -1).Err(); err != nil {
		logrus.WithError(err).Warn("Failed to trim activity log queue")
	}
	return len(logs), nil
}

// LogActivityMiddleware logs successful write requests
func LogActivityMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodGet || strings.Contains(c.Path(), "/auth/") {
			return c.Next()
		}

		err := c.Next()

		action := activityAction(c.Method())
		if action == "" {
			return err
		}

		var resourceID uint
		if id, parseErr := strconv.ParseUint(c.Params("id"), 10, 64); parseErr == nil {
			resourceID = uint(id)
		}

		if c.Response().StatusCode() < 400 {
			LogActivity(c, action, activityResource(c.Path()), resourceID, nil)
		}

		return err
	}
}

func activityAction(method string) string {
	switch method {
	case fiber.MethodPost:
		return "CREATE"
	case fiber.MethodPut, fiber.MethodPatch:
		return "UPDATE"
	case fiber.MethodDelete:
		return "DELETE"
	}
	return ""
}

// activityResource is the first segment after /api
func activityResource(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 2 {
		return parts[1]
	}
	return ""
}
