package controllers

import (
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/middleware"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/models"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/services/attendance"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AuthController struct {
	db     *gorm.DB
	redis  *redis.Client
	engine *attendance.Service
}

func NewAuthController(db *gorm.DB, rdb *redis.Client, engine *attendance.Service) *AuthController {
	return &AuthController{db: db, redis: rdb, engine: engine}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest represents the change password request body
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,nefield=CurrentPassword"`
}

// Login authenticates a user and returns a JWT token
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if ok, err := bindBody(c, &req); !ok {
		return err
	}

	var user models.User
	if err := ac.db.WithContext(c.UserContext()).
		Where("username = ? AND status = ?", strings.TrimSpace(req.Username), "active").
		First(&user).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}
	if err := utils.CheckPassword(req.Password, user.Password); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}

	token, err := middleware.GenerateToken(&user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}

	c.Locals("claims", &middleware.Claims{UserID: user.ID, Username: user.Username, Role: user.Role})
	middleware.LogActivity(c, "LOGIN", "auth", user.ID, fiber.Map{
		"username": user.Username,
		"role":     user.Role,
	})

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"user":    utils.ToUserShort(user),
	})
}

// Logout revokes the current token until it would have expired
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	tokenString := strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil || tokenString == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing authorization header"})
	}

	if ac.redis != nil {
		ttl := 24 * time.Hour
		if claims.ExpiresAt != nil {
			ttl = time.Until(claims.ExpiresAt.Time)
		}
		if ttl > 0 {
			if err := ac.redis.Set(c.UserContext(), middleware.BlacklistKey(tokenString), "1", ttl).Err(); err != nil {
				logrus.WithError(err).WithField("user_id", claims.UserID).Warn("Failed to revoke token on logout")
			}
		}
	}

	middleware.LogActivity(c, "LOGOUT", "auth", claims.UserID, fiber.Map{"username": claims.Username})
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// GetProfile returns the current user's profile with their enrollment
func (ac *AuthController) GetProfile(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	resp := fiber.Map{
		"id":       user.ID,
		"username": user.Username,
		"name":     user.Name,
		"email":    user.Email,
		"phone":    user.Phone,
		"role":     user.Role,
		"status":   user.Status,
		"avatar":   user.Avatar,
	}

	if user.Role == models.RoleStudent {
		var profile models.StudentProfile
		err := ac.db.WithContext(c.UserContext()).
			Preload("Batch").Preload("Section").
			Where("user_id = ?", user.ID).
			First(&profile).Error
		if err == nil {
			resp["student_profile"] = fiber.Map{
				"roll_number":    profile.RollNumber,
				"batch":          profile.Batch.Name,
				"section":        profile.Section.Name,
				"academic_state": ac.engine.CalculateCurrentAcademicState(profile.Batch.Name),
			}
		}
	}

	return c.JSON(fiber.Map{"user": resp})
}

// ChangePassword allows users to change their password
func (ac *AuthController) ChangePassword(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	var req ChangePasswordRequest
	if ok, err := bindBody(c, &req); !ok {
		return err
	}
	if err := utils.CheckPassword(req.CurrentPassword, user.Password); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Current password is incorrect"})
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to hash password"})
	}
	if err := ac.db.WithContext(c.UserContext()).Model(user).Update("password", hashed).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update password"})
	}

	middleware.LogActivity(c, "UPDATE", "users", user.ID, fiber.Map{"action": "password_change"})
	return c.JSON(fiber.Map{"message": "Password changed successfully"})
}
