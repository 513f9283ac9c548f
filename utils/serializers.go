package utils

import (
	"strings"
	"time"

	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/models"
)

// Compact representations used across APIs
type UserShort struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
}

type Sender struct {
	Type string `json:"type"` // "system" or "user"
	ID   *uint  `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type Recipient struct {
	Type string `json:"type"` // "user", "role", etc.
	ID   uint   `json:"id"`
}

type NotificationDTO struct {
	ID        uint        `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	UserID    uint        `json:"user_id"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	Type      string      `json:"type"`
	Data      models.JSON `json:"data,omitempty"`
	Read      bool        `json:"read"`
	ReadAt    *time.Time  `json:"read_at,omitempty"`
	Sender    Sender      `json:"sender"`
	Recipient Recipient   `json:"recipient"`
}

// ToUserShort falls back to the email local-part when the user has no display name.
func ToUserShort(u models.User) UserShort {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		name = u.Username
	}
	if name == "" && u.Email != "" {
		name, _, _ = strings.Cut(u.Email, "@")
	}
	return UserShort{ID: u.ID, Username: u.Username, Name: name, Role: u.Role}
}

// ToNotificationDTO maps a models.Notification to the compact DTO.
// Notifications are raised by the portal itself, so the sender is always the system.
func ToNotificationDTO(n models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		CreatedAt: n.CreatedAt,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Data:      n.Data,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		Sender:    Sender{Type: "system", Name: "Attendance Service"},
		Recipient: Recipient{Type: "user", ID: n.UserID},
	}
}
