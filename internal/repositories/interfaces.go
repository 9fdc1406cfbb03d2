package repositories

import (
	"context"

	"github.com/prudhvinik1/parlourpunch/internal/models"
)

// AttendanceRepository is the append-only punch log.
type AttendanceRepository interface {
	Append(ctx context.Context, submission models.PunchSubmission) (*models.AttendanceEvent, error)
	ListRecent(ctx context.Context, limit int) ([]*models.AttendanceEvent, error)
}

// EmployeeRepository is the read-only employee directory.
type EmployeeRepository interface {
	List(ctx context.Context) ([]*models.Employee, error)
	GetByID(ctx context.Context, id string) (*models.Employee, error)
}

// StatusRepository is a rebuildable projection of the latest status per
// employee. The attendance log stays the source of truth.
type StatusRepository interface {
	SetIfNewer(ctx context.Context, status models.EmployeeStatus) error
	GetAll(ctx context.Context) (map[string]models.EmployeeStatus, error)
	Rebuild(ctx context.Context, events []*models.AttendanceEvent) error
}
