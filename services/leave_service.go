package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/models"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/services/attendance"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/services/notifications"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotFound          = errors.New("request not found")
	ErrForbidden         = errors.New("not allowed to act on this request")
	ErrInvalidTransition = errors.New("request can no longer be changed")
	// ErrCheckUnavailable means existing requests could not be read, so the
	// submission was refused rather than risk an overlap.
	ErrCheckUnavailable = errors.New("could not verify existing requests, please try again")
)

// RejectionError is a submission refused by an attendance rule.
type RejectionError struct {
	Verdict attendance.Verdict
}

func (e *RejectionError) Error() string { return e.Verdict.Reason }

// Notifier delivers in-app notifications
type Notifier interface {
	EnqueueOrCreate(ctx context.Context, userIDs []uint, msg notifications.Message) error
}

type LeaveInput struct {
	LeaveType      string
	Start          time.Time
	End            time.Time
	IsHalfDay      bool
	HalfDaySession string
	Reason         string
}

type ODInput struct {
	Purpose        string
	Place          string
	Start          time.Time
	End            time.Time
	IsHalfDay      bool
	HalfDaySession string
}

// Actor is the authenticated user acting on a request
type Actor struct {
	ID   uint
	Role string
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
	DecisionForward Decision = "forward"
)

// LeaveService runs the leave and OD request workflow on top of the attendance rules.
type LeaveService struct {
	engine   *attendance.Service
	repo     LeaveRepository
	notifier Notifier
	log      *logrus.Entry
}

func NewLeaveService(engine *attendance.Service, repo LeaveRepository, notifier Notifier) *LeaveService {
	return &LeaveService{
		engine:   engine,
		repo:     repo,
		notifier: notifier,
		log:      logrus.WithField("component", "leave"),
	}
}

// Validate runs every submission rule without saving anything.
func (s *LeaveService) Validate(ctx context.Context, sub attendance.Submission) (attendance.Verdict, error) {
	verdict, err := s.engine.ValidateSubmission(ctx, sub)
	if err != nil {
		s.log.WithError(err).WithField("user_id", sub.UserID).Error("Overlap check failed, refusing submission")
		return verdict, fmt.Errorf("%w: %v", ErrCheckUnavailable, err)
	}
	if !verdict.Accepted {
		return verdict, &RejectionError{Verdict: verdict}
	}
	return verdict, nil
}

// SubmitLeave validates and stores a new pending leave request, then tells the tutor.
func (s *LeaveService) SubmitLeave(ctx context.Context, userID uint, in LeaveInput) (*models.LeaveRequest, attendance.Verdict, error) {
	if in.LeaveType == "" {
		in.LeaveType = attendance.LeaveTypeCasual
	}
	verdict, err := s.Validate(ctx, attendance.Submission{
		UserID:    userID,
		Kind:      attendance.KindLeave,
		LeaveType: in.LeaveType,
		Start:     in.Start,
		End:       in.End,
		IsHalfDay: in.IsHalfDay,
	})
	if err != nil {
		return nil, verdict, err
	}

	req := &models.LeaveRequest{
		UserID:         userID,
		LeaveType:      in.LeaveType,
		StartDate:      in.Start,
		EndDate:        in.End,
		IsHalfDay:      in.IsHalfDay,
		HalfDaySession: in.HalfDaySession,
		WorkingDays:    verdict.WorkingDays,
		Reason:         in.Reason,
		Status:         models.StatusPending,
	}
	if err := s.repo.CreateLeave(ctx, req); err != nil {
		return nil, verdict, fmt.Errorf("create leave request: %w", err)
	}

	s.notifyReviewers(ctx, userID, "New leave request",
		fmt.Sprintf("%s leave from %s to %s (%.1f working days) is waiting for review.",
			req.LeaveType, attendance.FormatDate(req.StartDate), attendance.FormatDate(req.EndDate), req.WorkingDays),
		map[string]interface{}{"kind": attendance.KindLeave, "request_id": req.ID})
	return req, verdict, nil
}

// SubmitOD validates and stores a new pending OD request. Exams inside the
// window do not block an OD and come back in the verdict as warnings.
func (s *LeaveService) SubmitOD(ctx context.Context, userID uint, in ODInput) (*models.ODRequest, attendance.Verdict, error) {
	verdict, err := s.Validate(ctx, attendance.Submission{
		UserID:    userID,
		Kind:      attendance.KindOD,
		Start:     in.Start,
		End:       in.End,
		IsHalfDay: in.IsHalfDay,
	})
	if err != nil {
		return nil, verdict, err
	}

	req := &models.ODRequest{
		UserID:         userID,
		Purpose:        in.Purpose,
		Place:          in.Place,
		StartDate:      in.Start,
		EndDate:        in.End,
		IsHalfDay:      in.IsHalfDay,
		HalfDaySession: in.HalfDaySession,
		WorkingDays:    verdict.WorkingDays,
		Status:         models.StatusPending,
	}
	if err := s.repo.CreateOD(ctx, req); err != nil {
		return nil, verdict, fmt.Errorf("create od request: %w", err)
	}

	s.notifyReviewers(ctx, userID, "New OD request",
		fmt.Sprintf("OD for %s from %s to %s is waiting for review.",
			req.Purpose, attendance.FormatDate(req.StartDate), attendance.FormatDate(req.EndDate)),
		map[string]interface{}{"kind": attendance.KindOD, "request_id": req.ID})
	return req, verdict, nil
}

// UpdateLeave edits one of the user's pending leave requests. The request's own
// dates do not count as an overlap.
func (s *LeaveService) UpdateLeave(ctx context.Context, userID, id uint, in LeaveInput) (*models.LeaveRequest, attendance.Verdict, error) {
	req, err := s.repo.GetLeave(ctx, id)
	if err != nil {
		return nil, attendance.Verdict{}, err
	}
	if req.UserID != userID {
		return nil, attendance.Verdict{}, ErrNotFound
	}
	if req.Status != models.StatusPending {
		return nil, attendance.Verdict{}, ErrInvalidTransition
	}
	if in.LeaveType == "" {
		in.LeaveType = req.LeaveType
	}

	verdict, err := s.Validate(ctx, attendance.Submission{
		UserID:    userID,
		Kind:      attendance.KindLeave,
		LeaveType: in.LeaveType,
		Start:     in.Start,
		End:       in.End,
		IsHalfDay: in.IsHalfDay,
		Exclude:   &attendance.RequestRef{Kind: attendance.KindLeave, ID: id},
	})
	if err != nil {
		return nil, verdict, err
	}

	req.LeaveType = in.LeaveType
	req.StartDate = in.Start
	req.EndDate = in.End
	req.IsHalfDay = in.IsHalfDay
	req.HalfDaySession = in.HalfDaySession
	req.Reason = in.Reason
	req.WorkingDays = verdict.WorkingDays
	if err := s.repo.SaveLeave(ctx, req); err != nil {
		return nil, verdict, fmt.Errorf("update leave request: %w", err)
	}
	return req, verdict, nil
}

// Cancel withdraws one of the user's requests that has not been decided yet.
func (s *LeaveService) Cancel(ctx context.Context, userID uint, kind attendance.RequestKind, id uint) error {
	h, err := s.load(ctx, kind, id)
	if err != nil {
		return err
	}
	if h.userID != userID {
		return ErrNotFound
	}
	if h.status != models.StatusPending && h.status != models.StatusPendingAdmin {
		return ErrInvalidTransition
	}
	h.set(models.StatusCancelled, nil, nil)
	return h.save(ctx)
}

// nextStatus is the review state machine. Tutors act on pending requests and may
// escalate them to an admin; admins act on pending and escalated requests and may
// forward an escalated one outside the portal.
func nextStatus(role, current string, d Decision) (string, error) {
	switch role {
	case models.RoleTutor:
		if current != models.StatusPending {
			return "", ErrInvalidTransition
		}
		switch d {
		case DecisionApprove:
			return models.StatusApproved, nil
		case DecisionReject:
			return models.StatusRejected, nil
		case DecisionForward:
			return models.StatusPendingAdmin, nil
		}
	case models.RoleAdmin:
		if current != models.StatusPending && current != models.StatusPendingAdmin {
			return "", ErrInvalidTransition
		}
		switch d {
		case DecisionApprove:
			return models.StatusApproved, nil
		case DecisionReject:
			return models.StatusRejected, nil
		case DecisionForward:
			if current == models.StatusPendingAdmin {
				return models.StatusForwarded, nil
			}
			return "", ErrInvalidTransition
		}
	default:
		return "", ErrForbidden
	}
	return "", fmt.Errorf("unknown decision %q", d)
}

// Decide applies a reviewer's decision. Tutors may only review students of their
// own sections.
func (s *LeaveService) Decide(ctx context.Context, actor Actor, kind attendance.RequestKind, id uint, d Decision) (string, error) {
	h, err := s.load(ctx, kind, id)
	if err != nil {
		return "", err
	}

	if actor.Role == models.RoleTutor {
		tutorID, err := s.repo.TutorOf(ctx, h.userID)
		if err != nil {
			return "", fmt.Errorf("resolve tutor: %w", err)
		}
		if tutorID == nil || *tutorID != actor.ID {
			return "", ErrForbidden
		}
	}

	status, err := nextStatus(actor.Role, h.status, d)
	if err != nil {
		return "", err
	}

	now := s.engine.Now()
	by := actor.ID
	h.set(status, &by, &now)
	if err := h.save(ctx); err != nil {
		return "", fmt.Errorf("save decision: %w", err)
	}

	data := map[string]interface{}{"kind": kind, "request_id": id, "status": status}
	switch status {
	case models.StatusApproved:
		s.notify(ctx, []uint{h.userID}, notifications.NewMessage(h.label+" approved",
			fmt.Sprintf("Your %s request from %s was approved.", h.label, h.period), notifications.TypeSuccess, data))
	case models.StatusRejected:
		s.notify(ctx, []uint{h.userID}, notifications.NewMessage(h.label+" rejected",
			fmt.Sprintf("Your %s request from %s was rejected.", h.label, h.period), notifications.TypeWarning, data))
	case models.StatusPendingAdmin:
		admins, err := s.repo.AdminIDs(ctx)
		if err != nil {
			s.log.WithError(err).Warn("Could not load admins for escalation notice")
		}
		s.notify(ctx, admins, notifications.NewMessage(h.label+" escalated",
			fmt.Sprintf("A %s request from %s needs admin review.", h.label, h.period), notifications.TypeInfo, data))
	}
	return status, nil
}

// ListMine returns the user's leave and OD requests, newest first
func (s *LeaveService) ListMine(ctx context.Context, userID uint) ([]models.LeaveRequest, []models.ODRequest, error) {
	leaves, err := s.repo.ListLeaves(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	ods, err := s.repo.ListODs(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return leaves, ods, nil
}

// requestHandle gives the workflow one view over leave and OD rows
type requestHandle struct {
	userID uint
	status string
	label  string
	period string
	set    func(status string, by *uint, at *time.Time)
	save   func(ctx context.Context) error
}

func (s *LeaveService) load(ctx context.Context, kind attendance.RequestKind, id uint) (*requestHandle, error) {
	switch kind {
	case attendance.KindLeave:
		req, err := s.repo.GetLeave(ctx, id)
		if err != nil {
			return nil, err
		}
		return &requestHandle{
			userID: req.UserID,
			status: req.Status,
			label:  "Leave",
			period: attendance.FormatDate(req.StartDate) + " to " + attendance.FormatDate(req.EndDate),
			set: func(status string, by *uint, at *time.Time) {
				req.Status = status
				if by != nil {
					req.ApprovedBy, req.ApprovedAt = by, at
				}
			},
			save: func(ctx context.Context) error { return s.repo.SaveLeave(ctx, req) },
		}, nil
	case attendance.KindOD:
		req, err := s.repo.GetOD(ctx, id)
		if err != nil {
			return nil, err
		}
		return &requestHandle{
			userID: req.UserID,
			status: req.Status,
			label:  "OD",
			period: attendance.FormatDate(req.StartDate) + " to " + attendance.FormatDate(req.EndDate),
			set: func(status string, by *uint, at *time.Time) {
				req.Status = status
				if by != nil {
					req.ApprovedBy, req.ApprovedAt = by, at
				}
			},
			save: func(ctx context.Context) error { return s.repo.SaveOD(ctx, req) },
		}, nil
	}
	return nil, fmt.Errorf("unknown request kind %q", kind)
}

// notifyReviewers tells the student's tutor, or every admin when the section has none.
func (s *LeaveService) notifyReviewers(ctx context.Context, studentID uint, title, message string, data interface{}) {
	var recipients []uint
	tutorID, err := s.repo.TutorOf(ctx, studentID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", studentID).Warn("Could not resolve tutor")
	}
	if tutorID != nil {
		recipients = []uint{*tutorID}
	} else if recipients, err = s.repo.AdminIDs(ctx); err != nil {
		s.log.WithError(err).Warn("Could not load admins")
	}
	s.notify(ctx, recipients, notifications.NewMessage(title, message, notifications.TypeInfo, data))
}

// notify is best effort, the request is already stored
func (s *LeaveService) notify(ctx context.Context, userIDs []uint, msg notifications.Message) {
	if s.notifier == nil || len(userIDs) == 0 {
		return
	}
	if err := s.notifier.EnqueueOrCreate(ctx, userIDs, msg); err != nil {
		s.log.WithError(err).WithField("title", msg.Title).Warn("Failed to send notification")
	}
}
