package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/parlourpunch/internal/models"
)

type PostgresEmployeeRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresEmployeeRepository(pool *pgxpool.Pool) *PostgresEmployeeRepository {
	return &PostgresEmployeeRepository{pool: pool}
}

func (r *PostgresEmployeeRepository) List(ctx context.Context) ([]*models.Employee, error) {
	query := `SELECT id, name, role, department, status, created_at, updated_at
	          FROM employees
	          ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []*models.Employee
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, employee)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employees: %w", err)
	}

	return employees, nil
}

func (r *PostgresEmployeeRepository) GetByID(ctx context.Context, id string) (*models.Employee, error) {
	query := `SELECT id, name, role, department, status, created_at, updated_at
	          FROM employees
	          WHERE id = $1`

	employee, err := scanEmployee(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return employee, nil
}

func scanEmployee(row pgx.Row) (*models.Employee, error) {
	var (
		employee   models.Employee
		department string
		status     string
	)
	err := row.Scan(
		&employee.ID,
		&employee.Name,
		&employee.Role,
		&department,
		&status,
		&employee.CreatedAt,
		&employee.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	employee.Department = models.Department(department)
	employee.Status = models.EmployeeStatusKind(status)
	return &employee, nil
}
