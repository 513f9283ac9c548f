package attendance

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and local tooling.
type MemoryStore struct {
	mu          sync.RWMutex
	enrollments map[uint]Enrollment
	schedules   []ScheduleRow
	requests    map[RequestKind][]RequestRow
	nextID      uint

	// failures forces an error from the named operation:
	// "enrollment", "schedules", "leave" or "od".
	failures map[string]error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		enrollments: map[uint]Enrollment{},
		requests:    map[RequestKind][]RequestRow{},
		failures:    map[string]error{},
	}
}

func (m *MemoryStore) PutEnrollment(e Enrollment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrollments[e.UserID] = e
}

// AddSchedule stores row and returns its id.
func (m *MemoryStore) AddSchedule(row ScheduleRow) uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row.ID == 0 {
		m.nextID++
		row.ID = m.nextID
	}
	m.schedules = append(m.schedules, row)
	return row.ID
}

// AddRequest stores row under kind and returns its id.
func (m *MemoryStore) AddRequest(kind RequestKind, row RequestRow) uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row.ID == 0 {
		m.nextID++
		row.ID = m.nextID
	}
	m.requests[kind] = append(m.requests[kind], row)
	return row.ID
}

// Fail makes op return err until cleared with a nil err.
func (m *MemoryStore) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

func (m *MemoryStore) FindEnrollment(ctx context.Context, userID uint) (Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures["enrollment"]; err != nil {
		return Enrollment{}, err
	}
	e, ok := m.enrollments[userID]
	if !ok {
		return Enrollment{}, ErrEnrollmentNotFound
	}
	return e, nil
}

func (m *MemoryStore) ListSchedules(ctx context.Context, categories []string) ([]ScheduleRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures["schedules"]; err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		wanted[c] = struct{}{}
	}
	var out []ScheduleRow
	for _, row := range m.schedules {
		if _, ok := wanted[row.Category]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListRequests(ctx context.Context, kind RequestKind, userID uint, statuses []string) ([]RequestRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures[string(kind)]; err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(statuses))
	for _, s := range statuses {
		wanted[s] = struct{}{}
	}
	var out []RequestRow
	for _, row := range m.requests[kind] {
		if row.UserID != userID {
			continue
		}
		if _, ok := wanted[row.Status]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}
