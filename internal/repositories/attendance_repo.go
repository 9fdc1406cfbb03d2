package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/parlourpunch/internal/models"
)

type PostgresAttendanceRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresAttendanceRepository(pool *pgxpool.Pool) *PostgresAttendanceRepository {
	return &PostgresAttendanceRepository{pool: pool}
}

// Append validates and inserts one punch. created_at is assigned by the
// database and is the ordering key for ListRecent.
func (r *PostgresAttendanceRepository) Append(ctx context.Context, submission models.PunchSubmission) (*models.AttendanceEvent, error) {
	punch, err := validateSubmission(submission)
	if err != nil {
		return nil, err
	}

	// One clock read for both columns so they stay identical.
	query := `INSERT INTO attendance_logs (id, employee_id, employee_name, action, status, punched_at, created_at, updated_at)
	          SELECT $1, $2, $3, $4, $5, $6, ts, ts FROM (SELECT clock_timestamp() AS ts) AS now
	          RETURNING created_at, updated_at`

	event := &models.AttendanceEvent{
		ID:           uuid.New().String(),
		EmployeeID:   punch.EmployeeID,
		EmployeeName: punch.EmployeeName,
		Action:       models.PunchAction(punch.Action),
		Status:       models.PunchStatus(punch.Status),
		Timestamp:    punch.at,
	}

	err = r.pool.QueryRow(ctx, query,
		event.ID,
		event.EmployeeID,
		event.EmployeeName,
		string(event.Action),
		string(event.Status),
		event.Timestamp,
	).Scan(&event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return nil, &StorageError{Op: "append attendance log", Err: err}
	}

	event.CreatedAt = event.CreatedAt.UTC()
	event.UpdatedAt = event.UpdatedAt.UTC()
	return event, nil
}

func (r *PostgresAttendanceRepository) ListRecent(ctx context.Context, limit int) ([]*models.AttendanceEvent, error) {
	query := `SELECT id, employee_id, employee_name, action, status, punched_at, created_at, updated_at
	          FROM attendance_logs
	          ORDER BY created_at DESC, seq DESC
	          LIMIT $1`

	rows, err := r.pool.Query(ctx, query, NormalizeLimit(limit))
	if err != nil {
		return nil, &StorageError{Op: "query attendance logs", Err: err}
	}
	defer rows.Close()

	events := make([]*models.AttendanceEvent, 0)
	for rows.Next() {
		var (
			event  models.AttendanceEvent
			action string
			status string
		)
		err := rows.Scan(
			&event.ID,
			&event.EmployeeID,
			&event.EmployeeName,
			&action,
			&status,
			&event.Timestamp,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, &StorageError{Op: "scan attendance log", Err: err}
		}
		event.Action = models.PunchAction(action)
		event.Status = models.PunchStatus(status)
		event.Timestamp = event.Timestamp.UTC()
		event.CreatedAt = event.CreatedAt.UTC()
		event.UpdatedAt = event.UpdatedAt.UTC()
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "iterate attendance logs", Err: fmt.Errorf("rows: %w", err)}
	}

	return events, nil
}
