package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/services/notifications"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type NotificationController struct {
	svc *notifications.Service
}

func NewNotificationController(svc *notifications.Service) *NotificationController {
	return &NotificationController{svc: svc}
}

// GetNotifications returns notifications for the current user
func (nc *NotificationController) GetNotifications(c *fiber.Ctx) error {
	claims, ok, err := currentClaims(c)
	if !ok {
		return err
	}

	list, err := nc.svc.ListForUser(c.UserContext(), claims.UserID, c.QueryBool("unread", false), c.QueryInt("limit", 50))
	if err != nil {
		logrus.WithError(err).WithField("user_id", claims.UserID).Error("Failed to fetch notifications")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch notifications"})
	}

	out := make([]utils.NotificationDTO, 0, len(list))
	for _, n := range list {
		out = append(out, utils.ToNotificationDTO(n))
	}
	return c.JSON(fiber.Map{"notifications": out})
}

// MarkAsRead marks one of the caller's notifications as read
func (nc *NotificationController) MarkAsRead(c *fiber.Ctx) error {
	claims, ok, err := currentClaims(c)
	if !ok {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	if err := nc.svc.MarkRead(c.UserContext(), claims.UserID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update notification"})
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}
