package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/config"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/database"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/models"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Notification types accepted by the notifications table
const (
	TypeInfo    = "info"
	TypeWarning = "warning"
	TypeError   = "error"
	TypeSuccess = "success"
)

const redisListKey = "notifications:queue"

// ErrNoRecipients is returned when a notification has nobody to go to
var ErrNoRecipients = errors.New("no user ids")

// Message is the content of one notification, fanned out to every recipient.
type Message struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
}

// NewMessage builds a Message, defaulting unknown types to info.
func NewMessage(title, message, typ string, data any) Message {
	return Message{Title: title, Message: message, Type: normalizeType(typ), Data: data}
}

// Queue item stored in Redis. The database row is the source of truth, the queue
// only smooths bursts such as the daily attendance alert.
type queuedNotification struct {
	UserIDs []uint `json:"user_ids"`
	Message
	CreatedAt time.Time `json:"created_at"`
}

// WSHub interface for WebSocket broadcasting
type WSHub interface {
	BroadcastToUser(userID uint, message interface{})
}

// Service creates notifications, through the Redis queue when enabled and
// directly in the database otherwise.
type Service struct {
	db       *gorm.DB
	redis    *redis.Client
	useRedis bool
	wsHub    WSHub
	log      *logrus.Entry
}

// NewService wires the service to the shared database and Redis connections
func NewService() *Service {
	rdb := database.GetRedisClient()
	useRedis := config.AppConfig != nil && config.AppConfig.UseRedisNotifications && rdb != nil
	return NewServiceWith(database.GetDB(), rdb, useRedis)
}

func NewServiceWith(db *gorm.DB, rdb *redis.Client, useRedis bool) *Service {
	return &Service{
		db:       db,
		redis:    rdb,
		useRedis: useRedis && rdb != nil,
		log:      logrus.WithField("component", "notifications"),
	}
}

// SetWebSocketHub sets the WebSocket hub for real-time notifications
func (s *Service) SetWebSocketHub(hub WSHub) {
	s.wsHub = hub
}

func normalizeType(typ string) string {
	switch typ {
	case TypeInfo, TypeWarning, TypeError, TypeSuccess:
		return typ
	}
	return TypeInfo
}

// EnqueueOrCreate stores notifications using Redis queue if enabled, else direct insert.
func (s *Service) EnqueueOrCreate(ctx context.Context, userIDs []uint, msg Message) error {
	if len(userIDs) == 0 {
		return ErrNoRecipients
	}
	msg.Type = normalizeType(msg.Type)
	q := queuedNotification{UserIDs: userIDs, Message: msg, CreatedAt: time.Now().UTC()}

	if s.useRedis {
		b, err := json.Marshal(q)
		if err != nil {
			return err
		}
		if err = s.redis.RPush(ctx, redisListKey, b).Err(); err == nil {
			return nil
		}
		s.log.WithError(err).Warn("Redis queue failed, falling back to direct insert")
	}

	return s.createDirect(ctx, q)
}

func (s *Service) createDirect(ctx context.Context, q queuedNotification) error {
	if len(q.UserIDs) == 0 {
		return nil
	}
	var dataJSON models.JSON
	if q.Data != nil {
		if b, err := json.Marshal(q.Data); err == nil {
			dataJSON = b
		}
	}
	notifs := make([]models.Notification, 0, len(q.UserIDs))
	for _, uid := range q.UserIDs {
		notifs = append(notifs, models.Notification{
			UserID:  uid,
			Title:   q.Title,
			Message: q.Message.Message,
			Type:    q.Type,
			Data:    dataJSON,
		})
	}

	if err := s.db.WithContext(ctx).Create(&notifs).Error; err != nil {
		return err
	}

	if s.wsHub != nil {
		for _, n := range notifs {
			s.wsHub.BroadcastToUser(n.UserID, map[string]interface{}{
				"type": "notification",
				"data": utils.ToNotificationDTO(n),
			})
		}
	}
	return nil
}

// StartWorker starts a background worker polling Redis queue and flushing to DB
func (s *Service) StartWorker(stop <-chan struct{}) {
	if !s.useRedis {
		s.log.Info("Redis notifications disabled; worker not started")
		return
	}
	go func() {
		s.log.Info("Redis notification worker started")
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		ctx := context.Background()
		for {
			select {
			case <-stop:
				s.log.Info("Notification worker stopping")
				return
			case <-ticker.C:
				s.flushBatch(ctx, 200)
			}
		}
	}()
}

// flushBatch drains up to five batches from the Redis queue into the database.
func (s *Service) flushBatch(ctx context.Context, batchSize int) {
	for i := 0; i < 5; i++ {
		vals, err := s.redis.LRange(ctx, redisListKey, 0, int64(batchSize-1)).Result()
		if err != nil || len(vals) == 0 {
			return
		}
		// Trim immediately to avoid duplicates (best-effort)
		if err = s.redis.LTrim(ctx, redisListKey, int64(len(vals)), -1).Err(); err != nil {
			s.log.WithError(err).Warn("LTrim failed")
		}
		for _, raw := range vals {
			var q queuedNotification
			if err := json.Unmarshal([]byte(raw), &q); err != nil {
				continue
			}
			if err := s.createDirect(ctx, q); err != nil {
				s.log.WithError(err).WithField("recipients", len(q.UserIDs)).Error("Notification insert failed")
			}
		}
		if len(vals) < batchSize {
			return
		}
	}
}

// ListForUser returns the user's newest notifications first
func (s *Service) ListForUser(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("`read` = ?", false)
	}
	var out []models.Notification
	err := q.Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

// MarkRead marks one of the user's notifications as read. It returns
// gorm.ErrRecordNotFound when the notification is not the user's.
func (s *Service) MarkRead(ctx context.Context, userID, id uint) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"read": true, "read_at": &now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
