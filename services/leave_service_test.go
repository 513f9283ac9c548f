package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/models"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/services/attendance"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/services/notifications"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu     sync.Mutex
	nextID uint
	leaves map[uint]*models.LeaveRequest
	ods    map[uint]*models.ODRequest
	tutors map[uint]uint
	admins []uint
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		leaves: map[uint]*models.LeaveRequest{},
		ods:    map[uint]*models.ODRequest{},
		tutors: map[uint]uint{},
	}
}

func (r *fakeRepo) CreateLeave(ctx context.Context, req *models.LeaveRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	req.ID = r.nextID
	r.leaves[req.ID] = req
	return nil
}

func (r *fakeRepo) CreateOD(ctx context.Context, req *models.ODRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	req.ID = r.nextID
	r.ods[req.ID] = req
	return nil
}

func (r *fakeRepo) GetLeave(ctx context.Context, id uint) (*models.LeaveRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.leaves[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *fakeRepo) GetOD(ctx context.Context, id uint) (*models.ODRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.ods[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *fakeRepo) SaveLeave(ctx context.Context, req *models.LeaveRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaves[req.ID] = req
	return nil
}

func (r *fakeRepo) SaveOD(ctx context.Context, req *models.ODRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ods[req.ID] = req
	return nil
}

func (r *fakeRepo) ListLeaves(ctx context.Context, userID uint) ([]models.LeaveRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.LeaveRequest
	for _, req := range r.leaves {
		if req.UserID == userID {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListODs(ctx context.Context, userID uint) ([]models.ODRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ODRequest
	for _, req := range r.ods {
		if req.UserID == userID {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (r *fakeRepo) TutorOf(ctx context.Context, studentID uint) (*uint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.tutors[studentID]; ok {
		return &id, nil
	}
	return nil, nil
}

func (r *fakeRepo) AdminIDs(ctx context.Context) ([]uint, error) {
	return r.admins, nil
}

type sentMessage struct {
	to  []uint
	msg notifications.Message
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (n *recordingNotifier) EnqueueOrCreate(ctx context.Context, userIDs []uint, msg notifications.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{to: userIDs, msg: msg})
	return nil
}

func (n *recordingNotifier) last() sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return sentMessage{}
	}
	return n.sent[len(n.sent)-1]
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := attendance.ParseDate(s, time.UTC)
	require.NoError(t, err)
	return d
}

func quietEntry() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

const (
	studentID = uint(1)
	tutorID   = uint(7)
	adminID   = uint(9)
)

// newWorkflow: today is Saturday 2026-02-14; the student's semester began Monday
// the 2nd and the student has a clean record.
func newWorkflow(t *testing.T) (*LeaveService, *attendance.MemoryStore, *fakeRepo, *recordingNotifier) {
	t.Helper()
	store := attendance.NewMemoryStore()
	start := day(t, "2026-02-02")
	store.PutEnrollment(attendance.Enrollment{UserID: studentID, BatchID: 10, BatchLabel: "2024-2028", SemesterStartDate: &start})

	now := time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)
	engine := attendance.NewService(store,
		attendance.WithNow(func() time.Time { return now }),
		attendance.WithLogger(quietEntry()),
	)

	repo := newFakeRepo()
	repo.tutors[studentID] = tutorID
	repo.admins = []uint{adminID}
	notifier := &recordingNotifier{}

	svc := NewLeaveService(engine, repo, notifier)
	svc.log = quietEntry()
	return svc, store, repo, notifier
}

func TestSubmitLeaveStoresPendingAndNotifiesTutor(t *testing.T) {
	svc, _, repo, notifier := newWorkflow(t)

	req, verdict, err := svc.SubmitLeave(context.Background(), studentID, LeaveInput{
		Start:  day(t, "2026-02-17"),
		End:    day(t, "2026-02-18"),
		Reason: "family function",
	})
	require.NoError(t, err)
	assert.True(t, verdict.Accepted)
	assert.Equal(t, models.StatusPending, req.Status)
	assert.Equal(t, attendance.LeaveTypeCasual, req.LeaveType)
	assert.Equal(t, 2.0, req.WorkingDays)
	assert.Contains(t, repo.leaves, req.ID)

	last := notifier.last()
	assert.Equal(t, []uint{tutorID}, last.to)
	assert.Equal(t, "New leave request", last.msg.Title)
}

func TestSubmitLeaveWithoutTutorNotifiesAdmins(t *testing.T) {
	svc, _, repo, notifier := newWorkflow(t)
	delete(repo.tutors, studentID)

	_, _, err := svc.SubmitLeave(context.Background(), studentID, LeaveInput{
		Start: day(t, "2026-02-17"),
		End:   day(t, "2026-02-17"),
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{adminID}, notifier.last().to)
}

func TestSubmitLeaveRejectedOnOverlap(t *testing.T) {
	svc, store, repo, notifier := newWorkflow(t)
	store.AddRequest(attendance.KindOD, attendance.RequestRow{
		UserID: studentID, Status: models.StatusApproved,
		StartDate: day(t, "2026-02-18"), EndDate: day(t, "2026-02-18"), WorkingDays: 1,
	})

	_, verdict, err := svc.SubmitLeave(context.Background(), studentID, LeaveInput{
		Start: day(t, "2026-02-17"),
		End:   day(t, "2026-02-19"),
	})
	var rejection *RejectionError
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, attendance.CodeOverlap, rejection.Verdict.Code)
	assert.False(t, verdict.Accepted)
	assert.Empty(t, repo.leaves)
	assert.Empty(t, notifier.sent)
}

func TestSubmitFailsClosedWhenRequestsUnreadable(t *testing.T) {
	svc, store, repo, _ := newWorkflow(t)
	store.Fail("leave", errors.New("connection reset"))

	_, _, err := svc.SubmitOD(context.Background(), studentID, ODInput{
		Purpose: "Symposium",
		Start:   day(t, "2026-02-17"),
		End:     day(t, "2026-02-17"),
	})
	assert.ErrorIs(t, err, ErrCheckUnavailable)
	assert.Empty(t, repo.ods)
}

func TestSubmitODDuringExamsCarriesWarning(t *testing.T) {
	svc, store, _, _ := newWorkflow(t)
	batch := uint(10)
	store.AddSchedule(attendance.ScheduleRow{
		Title: "Internal 2", Category: "CIA2", BatchID: &batch,
		StartDate: day(t, "2026-02-23"), EndDate: day(t, "2026-02-23"),
	})

	req, verdict, err := svc.SubmitOD(context.Background(), studentID, ODInput{
		Purpose: "Hackathon",
		Start:   day(t, "2026-02-23"),
		End:     day(t, "2026-02-24"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, req.WorkingDays)
	assert.Len(t, verdict.ExamDates, 1)
}

func TestUpdateLeave(t *testing.T) {
	svc, store, repo, _ := newWorkflow(t)
	ctx := context.Background()

	req, _, err := svc.SubmitLeave(ctx, studentID, LeaveInput{Start: day(t, "2026-02-17"), End: day(t, "2026-02-17")})
	require.NoError(t, err)
	// mirror the stored request so the engine sees it as the student's own
	store.AddRequest(attendance.KindLeave, attendance.RequestRow{
		ID: req.ID, UserID: studentID, Status: models.StatusPending,
		StartDate: req.StartDate, EndDate: req.EndDate, WorkingDays: 1,
	})

	updated, verdict, err := svc.UpdateLeave(ctx, studentID, req.ID, LeaveInput{Start: day(t, "2026-02-17"), End: day(t, "2026-02-18")})
	require.NoError(t, err)
	assert.True(t, verdict.Accepted)
	assert.Equal(t, 2.0, updated.WorkingDays)
	assert.Equal(t, attendance.LeaveTypeCasual, updated.LeaveType)

	_, _, err = svc.UpdateLeave(ctx, studentID+1, req.ID, LeaveInput{Start: day(t, "2026-02-17"), End: day(t, "2026-02-18")})
	assert.ErrorIs(t, err, ErrNotFound)

	repo.leaves[req.ID].Status = models.StatusApproved
	_, _, err = svc.UpdateLeave(ctx, studentID, req.ID, LeaveInput{Start: day(t, "2026-02-17"), End: day(t, "2026-02-18")})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancel(t *testing.T) {
	svc, _, repo, _ := newWorkflow(t)
	ctx := context.Background()

	req, _, err := svc.SubmitOD(ctx, studentID, ODInput{Purpose: "Workshop", Start: day(t, "2026-02-17"), End: day(t, "2026-02-17")})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Cancel(ctx, studentID+1, attendance.KindOD, req.ID), ErrNotFound)
	require.NoError(t, svc.Cancel(ctx, studentID, attendance.KindOD, req.ID))
	assert.Equal(t, models.StatusCancelled, repo.ods[req.ID].Status)
	assert.ErrorIs(t, svc.Cancel(ctx, studentID, attendance.KindOD, req.ID), ErrInvalidTransition)
	assert.ErrorIs(t, svc.Cancel(ctx, studentID, attendance.KindLeave, 999), ErrNotFound)
}

func TestNextStatus(t *testing.T) {
	cases := []struct {
		role    string
		current string
		d       Decision
		want    string
		err     error
	}{
		{models.RoleTutor, models.StatusPending, DecisionApprove, models.StatusApproved, nil},
		{models.RoleTutor, models.StatusPending, DecisionReject, models.StatusRejected, nil},
		{models.RoleTutor, models.StatusPending, DecisionForward, models.StatusPendingAdmin, nil},
		{models.RoleTutor, models.StatusPendingAdmin, DecisionApprove, "", ErrInvalidTransition},
		{models.RoleAdmin, models.StatusPending, DecisionApprove, models.StatusApproved, nil},
		{models.RoleAdmin, models.StatusPendingAdmin, DecisionReject, models.StatusRejected, nil},
		{models.RoleAdmin, models.StatusPendingAdmin, DecisionForward, models.StatusForwarded, nil},
		{models.RoleAdmin, models.StatusPending, DecisionForward, "", ErrInvalidTransition},
		{models.RoleAdmin, models.StatusApproved, DecisionReject, "", ErrInvalidTransition},
		{models.RoleFaculty, models.StatusPending, DecisionApprove, "", ErrForbidden},
		{models.RoleStudent, models.StatusPending, DecisionApprove, "", ErrForbidden},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.role+"/"+tc.current+"/"+string(tc.d), func(t *testing.T) {
			got, err := nextStatus(tc.role, tc.current, tc.d)
			if !errors.Is(err, tc.err) {
				t.Fatalf("err = %v, want %v", err, tc.err)
			}
			if got != tc.want {
				t.Fatalf("status = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDecide(t *testing.T) {
	svc, _, repo, notifier := newWorkflow(t)
	ctx := context.Background()

	req, _, err := svc.SubmitLeave(ctx, studentID, LeaveInput{Start: day(t, "2026-02-17"), End: day(t, "2026-02-17")})
	require.NoError(t, err)

	_, err = svc.Decide(ctx, Actor{ID: tutorID + 100, Role: models.RoleTutor}, attendance.KindLeave, req.ID, DecisionApprove)
	assert.ErrorIs(t, err, ErrForbidden)

	status, err := svc.Decide(ctx, Actor{ID: tutorID, Role: models.RoleTutor}, attendance.KindLeave, req.ID, DecisionForward)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingAdmin, status)
	assert.Equal(t, []uint{adminID}, notifier.last().to)

	status, err = svc.Decide(ctx, Actor{ID: adminID, Role: models.RoleAdmin}, attendance.KindLeave, req.ID, DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, status)

	stored := repo.leaves[req.ID]
	require.NotNil(t, stored.ApprovedBy)
	assert.Equal(t, adminID, *stored.ApprovedBy)
	require.NotNil(t, stored.ApprovedAt)

	last := notifier.last()
	assert.Equal(t, []uint{studentID}, last.to)
	assert.Equal(t, notifications.TypeSuccess, last.msg.Type)

	_, err = svc.Decide(ctx, Actor{ID: adminID, Role: models.RoleAdmin}, attendance.KindLeave, req.ID, DecisionReject)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestListMine(t *testing.T) {
	svc, _, _, _ := newWorkflow(t)
	ctx := context.Background()

	_, _, err := svc.SubmitLeave(ctx, studentID, LeaveInput{Start: day(t, "2026-02-17"), End: day(t, "2026-02-17")})
	require.NoError(t, err)
	_, _, err = svc.SubmitOD(ctx, studentID, ODInput{Purpose: "Seminar", Start: day(t, "2026-02-19"), End: day(t, "2026-02-19")})
	require.NoError(t, err)

	leaves, ods, err := svc.ListMine(ctx, studentID)
	require.NoError(t, err)
	assert.Len(t, leaves, 1)
	assert.Len(t, ods, 1)
}
