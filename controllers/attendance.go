package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/services/attendance"
	"github.com/sirupsen/logrus"
)

// AttendanceController serves attendance snapshots, eligibility and trends.
type AttendanceController struct {
	engine *attendance.Service
}

func NewAttendanceController(engine *attendance.Service) *AttendanceController {
	return &AttendanceController{engine: engine}
}

// GetMyAttendance returns the caller's attendance for the current semester
func (ac *AttendanceController) GetMyAttendance(c *fiber.Ctx) error {
	claims, ok, err := currentClaims(c)
	if !ok {
		return err
	}
	return c.JSON(ac.engine.StudentAttendance(c.UserContext(), claims.UserID))
}

// GetStudentAttendance returns a student's attendance (staff only)
func (ac *AttendanceController) GetStudentAttendance(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return badRequest(c, err)
	}
	return c.JSON(ac.engine.StudentAttendance(c.UserContext(), userID))
}

// GetEligibility says whether the caller may apply for casual leave
func (ac *AttendanceController) GetEligibility(c *fiber.Ctx) error {
	claims, ok, err := currentClaims(c)
	if !ok {
		return err
	}
	return c.JSON(ac.engine.CanApplyCasualLeave(c.UserContext(), claims.UserID))
}

// GetTrend returns monthly approved and forwarded leave/OD days this semester
func (ac *AttendanceController) GetTrend(c *fiber.Ctx) error {
	claims, ok, err := currentClaims(c)
	if !ok {
		return err
	}
	points, err := ac.engine.AttendanceTrend(c.UserContext(), claims.UserID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", claims.UserID).Error("Attendance trend failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load attendance trend"})
	}
	if points == nil {
		points = []attendance.TrendPoint{}
	}
	return c.JSON(fiber.Map{"trend": points})
}
