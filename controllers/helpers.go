package controllers

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/middleware"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/services"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/services/attendance"
)

var validate = validator.New()

// bindBody parses and validates the request body into dst. On failure the
// error response has already been written and the returned error should be
// passed back to fiber.
func bindBody(c *fiber.Ctx, dst interface{}) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(dst); err != nil {
		return false, validationError(c, err)
	}
	return true, nil
}

func validationError(c *fiber.Ctx, err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fe.Tag()
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  "Validation failed",
		"fields": fields,
	})
}

// dateRange reads ISO start and end dates from the query string.
func dateRange(c *fiber.Ctx, loc *time.Location) (time.Time, time.Time, error) {
	start, err := attendance.ParseDate(c.Query("start"), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "start must be a YYYY-MM-DD date")
	}
	end, err := attendance.ParseDate(c.Query("end"), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "end must be a YYYY-MM-DD date")
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "start must be on or before end")
	}
	return start, end, nil
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}

// currentClaims returns the caller's claims; ok is false when the 401 has been written.
func currentClaims(c *fiber.Ctx) (claims *middleware.Claims, ok bool, err error) {
	claims, err = middleware.GetCurrentClaims(c)
	if err != nil {
		return nil, false, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}
	return claims, true, nil
}

// badRequest writes a fiber.Error from the helpers above as a JSON error.
func badRequest(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

// workflowError maps leave workflow errors to HTTP responses.
func workflowError(c *fiber.Ctx, err error) error {
	var rejection *services.RejectionError
	switch {
	case errors.As(err, &rejection):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   rejection.Verdict.Reason,
			"code":    rejection.Verdict.Code,
			"verdict": rejection.Verdict,
		})
	case errors.Is(err, services.ErrCheckUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": services.ErrCheckUnavailable.Error()})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Request not found"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Insufficient permissions"})
	case errors.Is(err, services.ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}

func isWorkflowError(err error) bool {
	var rejection *services.RejectionError
	return errors.As(err, &rejection) ||
		errors.Is(err, services.ErrNotFound) ||
		errors.Is(err, services.ErrForbidden) ||
		errors.Is(err, services.ErrInvalidTransition) ||
		errors.Is(err, services.ErrCheckUnavailable)
}
