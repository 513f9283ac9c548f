package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/services/attendance"
)

// AcademicController exposes the academic calendar: holidays, working days,
// exams and the batch's current year and semester.
type AcademicController struct {
	engine *attendance.Service
	loc    *time.Location
}

func NewAcademicController(engine *attendance.Service, loc *time.Location) *AcademicController {
	return &AcademicController{engine: engine, loc: loc}
}

func (ac *AcademicController) GetHolidays(c *fiber.Ctx) error {
	start, end, err := dateRange(c, ac.loc)
	if err != nil {
		return badRequest(c, err)
	}
	lookup := ac.engine.HolidaysInRange(c.UserContext(), start, end)
	dates := lookup.Dates
	if dates == nil {
		dates = []string{}
	}
	return c.JSON(fiber.Map{
		"holidays": dates,
		"degraded": lookup.Err != nil,
	})
}

func (ac *AcademicController) GetWorkingDays(c *fiber.Ctx) error {
	start, end, err := dateRange(c, ac.loc)
	if err != nil {
		return badRequest(c, err)
	}
	return c.JSON(fiber.Map{
		"start":        attendance.FormatDate(start),
		"end":          attendance.FormatDate(end),
		"working_days": ac.engine.CalculateWorkingDaysWithHolidays(c.UserContext(), start, end),
	})
}

// GetExams lists exams for the caller's batch that fall inside the range
func (ac *AcademicController) GetExams(c *fiber.Ctx) error {
	claims, ok, err := currentClaims(c)
	if !ok {
		return err
	}
	start, end, err := dateRange(c, ac.loc)
	if err != nil {
		return badRequest(c, err)
	}
	check := ac.engine.CheckExamDatesInRange(c.UserContext(), claims.UserID, start, end)
	if check.ExamDates == nil {
		check.ExamDates = []string{}
	}
	return c.JSON(check)
}

// GetAcademicState derives year and semester from a batch label like 2024-2028
func (ac *AcademicController) GetAcademicState(c *fiber.Ctx) error {
	batch := strings.TrimSpace(c.Query("batch"))
	if batch == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "batch is required"})
	}
	return c.JSON(ac.engine.CalculateCurrentAcademicState(batch))
}
