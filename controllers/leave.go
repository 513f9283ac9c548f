package controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/middleware"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/models"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/services"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/services/attendance"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/utils"
	"github.com/sirupsen/logrus"
)

// LeaveController handles leave and OD requests from submission to decision.
type LeaveController struct {
	svc *services.LeaveService
	loc *time.Location
}

func NewLeaveController(svc *services.LeaveService, loc *time.Location) *LeaveController {
	return &LeaveController{svc: svc, loc: loc}
}

// LeaveRequestBody is the body of a leave submission or edit
type LeaveRequestBody struct {
	LeaveType      string `json:"leave_type" validate:"omitempty,max=50"`
	StartDate      string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate        string `json:"end_date" validate:"required,datetime=2006-01-02"`
	IsHalfDay      bool   `json:"is_half_day"`
	HalfDaySession string `json:"half_day_session" validate:"required_if=IsHalfDay true,omitempty,oneof=forenoon afternoon"`
	Reason         string `json:"reason" validate:"required,max=1000"`
}

// ODRequestBody is the body of an OD submission
type ODRequestBody struct {
	Purpose        string `json:"purpose" validate:"required,max=255"`
	Place          string `json:"place" validate:"max=255"`
	StartDate      string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate        string `json:"end_date" validate:"required,datetime=2006-01-02"`
	IsHalfDay      bool   `json:"is_half_day"`
	HalfDaySession string `json:"half_day_session" validate:"required_if=IsHalfDay true,omitempty,oneof=forenoon afternoon"`
}

// DecisionBody is a reviewer's decision on a request
type DecisionBody struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject forward"`
}

func (lc *LeaveController) parseDates(start, end string) (time.Time, time.Time, error) {
	s, err := attendance.ParseDate(start, lc.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "start_date must be a YYYY-MM-DD date")
	}
	e, err := attendance.ParseDate(end, lc.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "end_date must be a YYYY-MM-DD date")
	}
	return s, e, nil
}

func (lc *LeaveController) leaveInput(body LeaveRequestBody) (services.LeaveInput, error) {
	start, end, err := lc.parseDates(body.StartDate, body.EndDate)
	if err != nil {
		return services.LeaveInput{}, err
	}
	return services.LeaveInput{
		LeaveType:      body.LeaveType,
		Start:          start,
		End:            end,
		IsHalfDay:      body.IsHalfDay,
		HalfDaySession: body.HalfDaySession,
		Reason:         utils.SanitizeString(body.Reason),
	}, nil
}

// SubmitLeave creates a pending leave request
func (lc *LeaveController) SubmitLeave(c *fiber.Ctx) error {
	claims, ok, err := currentClaims(c)
	if !ok {
		return err
	}
	var body LeaveRequestBody
	if ok, err := bindBody(c, &body); !ok {
		return err
	}
	in, err := lc.leaveInput(body)
	if err != nil {
		return badRequest(c, err)
	}

	req, verdict, err := lc.svc.SubmitLeave(c.UserContext(), claims.UserID, in)
	if err != nil {
		return workflowError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "leave_requests", req.ID, fiber.Map{
		"leave_type":   req.LeaveType,
		"start_date":   body.StartDate,
		"end_date":     body.EndDate,
		"working_days": req.WorkingDays,
	})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":       "Leave request submitted",
		"leave_request": req,
		"verdict":       verdict,
	})
}

// UpdateLeave edits the caller's pending leave request
func (lc *LeaveController) UpdateLeave(c *fiber.Ctx) error {
	claims, ok, err := currentClaims(c)
	if !ok {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var body LeaveRequestBody
	if ok, err := bindBody(c, &body); !ok {
		return err
	}
	in, err := lc.leaveInput(body)
	if err != nil {
		return badRequest(c, err)
	}

	req, verdict, err := lc.svc.UpdateLeave(c.UserContext(), claims.UserID, id, in)
	if err != nil {
		return workflowError(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "leave_requests", req.ID, fiber.Map{
		"start_date": body.StartDate,
		"end_date":   body.EndDate,
	})
	return c.JSON(fiber.Map{
		"message":       "Leave request updated",
		"leave_request": req,
		"verdict":       verdict,
	})
}

// SubmitOD creates a pending OD request. Exams in the window come back as warnings.
func (lc *LeaveController) SubmitOD(c *fiber.Ctx) error {
	claims, ok, err := currentClaims(c)
	if !ok {
		return err
	}
	var body ODRequestBody
	if ok, err := bindBody(c, &body); !ok {
		return err
	}
	start, end, err := lc.parseDates(body.StartDate, body.EndDate)
	if err != nil {
		return badRequest(c, err)
	}

	req, verdict, err := lc.svc.SubmitOD(c.UserContext(), claims.UserID, services.ODInput{
		Purpose:        utils.SanitizeString(body.Purpose),
		Place:          utils.SanitizeString(body.Place),
		Start:          start,
		End:            end,
		IsHalfDay:      body.IsHalfDay,
		HalfDaySession: body.HalfDaySession,
	})
	if err != nil {
		return workflowError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "od_requests", req.ID, fiber.Map{
		"purpose":    req.Purpose,
		"start_date": body.StartDate,
		"end_date":   body.EndDate,
	})
	resp := fiber.Map{
		"message":    "OD request submitted",
		"od_request": req,
		"verdict":    verdict,
	}
	if len(verdict.ExamDates) > 0 {
		resp["warnings"] = verdict.ExamDates
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// ValidateRequest runs the submission checks without saving anything.
// Query: start, end, kind (leave|od), type, half_day, exclude_id.
func (lc *LeaveController) ValidateRequest(c *fiber.Ctx) error {
	claims, ok, err := currentClaims(c)
	if !ok {
		return err
	}
	start, end, err := lc.parseDates(c.Query("start"), c.Query("end"))
	if err != nil {
		return badRequest(c, err)
	}

	kind := attendance.RequestKind(c.Query("kind", string(attendance.KindLeave)))
	if kind != attendance.KindLeave && kind != attendance.KindOD {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "kind must be leave or od"})
	}
	sub := attendance.Submission{
		UserID:    claims.UserID,
		Kind:      kind,
		LeaveType: c.Query("type"),
		Start:     start,
		End:       end,
		IsHalfDay: c.QueryBool("half_day", false),
	}
	if raw := c.Query("exclude_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid exclude_id"})
		}
		sub.Exclude = &attendance.RequestRef{Kind: kind, ID: uint(id)}
	}

	verdict, err := lc.svc.Validate(c.UserContext(), sub)
	if err != nil {
		if _, rejected := err.(*services.RejectionError); !rejected {
			return workflowError(c, err)
		}
	}
	return c.JSON(verdict)
}

// Cancel withdraws the caller's undecided request
func (lc *LeaveController) Cancel(kind attendance.RequestKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok, err := currentClaims(c)
		if !ok {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return badRequest(c, err)
		}
		if err := lc.svc.Cancel(c.UserContext(), claims.UserID, kind, id); err != nil {
			return workflowError(c, err)
		}
		middleware.LogActivity(c, "CANCEL", string(kind)+"_requests", id, nil)
		return c.JSON(fiber.Map{"message": "Request cancelled", "status": models.StatusCancelled})
	}
}

// Decide applies a tutor or admin decision to a request
func (lc *LeaveController) Decide(kind attendance.RequestKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok, err := currentClaims(c)
		if !ok {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return badRequest(c, err)
		}
		var body DecisionBody
		if ok, err := bindBody(c, &body); !ok {
			return err
		}

		status, err := lc.svc.Decide(c.UserContext(), services.Actor{ID: claims.UserID, Role: claims.Role}, kind, id, services.Decision(body.Decision))
		if err != nil {
			if !isWorkflowError(err) {
				logrus.WithError(err).WithFields(logrus.Fields{"kind": kind, "id": id}).Error("Decision failed")
			}
			return workflowError(c, err)
		}

		middleware.LogActivity(c, "DECIDE", string(kind)+"_requests", id, fiber.Map{
			"decision": body.Decision,
			"status": status,
		})
		return c.JSON(fiber.Map{"message": "Decision recorded", "status": status})
	}
}

// ListMine returns the caller's leave and OD requests
func (lc *LeaveController) ListMine(c *fiber.Ctx) error {
	claims, ok, err := currentClaims(c)
	if !ok {
		return err
	}
	leaves, ods, err := lc.svc.ListMine(c.UserContext(), claims.UserID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", claims.UserID).Error("Failed to list requests")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch requests"})
	}
	if leaves == nil {
		leaves = []models.LeaveRequest{}
	}
	if ods == nil {
		ods = []models.ODRequest{}
	}
	return c.JSON(fiber.Map{
		"leave_requests": leaves,
		"od_requests":    ods,
	})
}
