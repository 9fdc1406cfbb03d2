package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/parlourpunch/internal/models"
)

// MemoryAttendanceRepository keeps the punch log in process. It backs the
// "memory" storage driver and the tests.
type MemoryAttendanceRepository struct {
	mu     sync.Mutex
	events []models.AttendanceEvent
	now    func() time.Time
	// failWith, when set, makes every call fail as if the store were down.
	failWith error
}

func NewMemoryAttendanceRepository() *MemoryAttendanceRepository {
	return &MemoryAttendanceRepository{now: time.Now}
}

// WithClock replaces the receipt-time source.
func (r *MemoryAttendanceRepository) WithClock(now func() time.Time) *MemoryAttendanceRepository {
	r.now = now
	return r
}

// SetUnavailable simulates an unreachable store; pass nil to recover.
func (r *MemoryAttendanceRepository) SetUnavailable(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWith = err
}

func (r *MemoryAttendanceRepository) Append(_ context.Context, submission models.PunchSubmission) (*models.AttendanceEvent, error) {
	punch, err := validateSubmission(submission)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWith != nil {
		return nil, &StorageError{Op: "append attendance log", Err: r.failWith}
	}

	createdAt := r.now().UTC()
	event := models.AttendanceEvent{
		ID:           uuid.New().String(),
		EmployeeID:   punch.EmployeeID,
		EmployeeName: punch.EmployeeName,
		Action:       models.PunchAction(punch.Action),
		Status:       models.PunchStatus(punch.Status),
		Timestamp:    punch.at,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	r.events = append(r.events, event)

	out := event
	return &out, nil
}

func (r *MemoryAttendanceRepository) ListRecent(_ context.Context, limit int) ([]*models.AttendanceEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWith != nil {
		return nil, &StorageError{Op: "query attendance logs", Err: r.failWith}
	}

	// Insertion order breaks ties between equal receipt times.
	idx := make([]int, len(r.events))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ea, eb := r.events[idx[a]], r.events[idx[b]]
		if !ea.CreatedAt.Equal(eb.CreatedAt) {
			return ea.CreatedAt.After(eb.CreatedAt)
		}
		return idx[a] > idx[b]
	})

	limit = NormalizeLimit(limit)
	if limit > len(idx) {
		limit = len(idx)
	}

	out := make([]*models.AttendanceEvent, 0, limit)
	for _, i := range idx[:limit] {
		event := r.events[i]
		out = append(out, &event)
	}
	return out, nil
}

// MemoryEmployeeRepository is a fixed employee directory.
type MemoryEmployeeRepository struct {
	mu        sync.RWMutex
	employees map[string]*models.Employee
}

func NewMemoryEmployeeRepository(employees ...*models.Employee) *MemoryEmployeeRepository {
	r := &MemoryEmployeeRepository{employees: make(map[string]*models.Employee, len(employees))}
	for _, e := range employees {
		r.Put(e)
	}
	return r
}

func (r *MemoryEmployeeRepository) Put(employee *models.Employee) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *employee
	r.employees[cp.ID] = &cp
}

func (r *MemoryEmployeeRepository) List(_ context.Context) ([]*models.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Employee, 0, len(r.employees))
	for _, e := range r.employees {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryEmployeeRepository) GetByID(_ context.Context, id string) (*models.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.employees[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// DevEmployees is the directory used by the memory storage driver.
func DevEmployees() []*models.Employee {
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	mk := func(id, name, role string, dept models.Department) *models.Employee {
		return &models.Employee{
			ID:         id,
			Name:       name,
			Role:       role,
			Department: dept,
			Status:     models.EmployeeActive,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}
	return []*models.Employee{
		mk("E1", "Ann", "Senior Stylist", models.DepartmentHairStyling),
		mk("E2", "Bela", "Nail Technician", models.DepartmentNailCare),
		mk("E3", "Chitra", "Esthetician", models.DepartmentSkinCare),
		mk("E4", "Divya", "Front Desk", models.DepartmentReception),
	}
}
