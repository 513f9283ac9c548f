package controllers

import (
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/database"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/middleware"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/models"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/services/websocket"
	"github.com/sirupsen/logrus"
)

type WebSocketController struct {
	hub *websocket.Hub
}

func NewWebSocketController(hub *websocket.Hub) *WebSocketController {
	return &WebSocketController{hub: hub}
}

// RequireUpgrade rejects plain HTTP requests on the websocket route
func (wsc *WebSocketController) RequireUpgrade(c *fiber.Ctx) error {
	if fiberws.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
		"error": "Use the WebSocket endpoint: ws://<host>/ws?token=YOUR_JWT",
	})
}

// WebSocketHandler authenticates the ?token= query and attaches the connection to the hub
func (wsc *WebSocketController) WebSocketHandler() fiber.Handler {
	return fiberws.New(func(c *fiberws.Conn) {
		defer func() {
			if r := recover(); r != nil {
				logrus.WithField("panic", r).Error("WebSocket handler panic")
			}
		}()

		claims, err := middleware.ParseToken(c.Query("token"))
		if err != nil {
			logrus.WithError(err).Warn("WebSocket connection rejected: invalid token")
			_ = c.WriteMessage(fiberws.CloseMessage, []byte("Invalid token"))
			_ = c.Close()
			return
		}

		var user models.User
		if err := database.DB.Where("id = ? AND status = ?", claims.UserID, "active").First(&user).Error; err != nil {
			logrus.WithField("user_id", claims.UserID).Warn("WebSocket connection rejected: inactive user")
			_ = c.WriteMessage(fiberws.CloseMessage, []byte("User not found or inactive"))
			_ = c.Close()
			return
		}

		logrus.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("WebSocket connection established")
		wsc.hub.ServeFiberWS(c, user.ID)
	})
}

// GetWebSocketStats returns connection statistics (admin only)
func (wsc *WebSocketController) GetWebSocketStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"connected_clients": wsc.hub.GetClientCount(),
		"status":            "active",
	})
}
