package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pointwatch/swtd-api/internal/models"
)

// ClearanceRepository stores manual clearance overrides granted by admins.
type ClearanceRepository struct {
	db *sqlx.DB
}

// NewClearanceRepository instantiates a clearance repository.
func NewClearanceRepository(db *sqlx.DB) *ClearanceRepository {
	return &ClearanceRepository{db: db}
}

// FindOverride returns the override for an employee and term, or nil when none exists.
func (r *ClearanceRepository) FindOverride(ctx context.Context, employeeID, termID string) (*models.ClearanceOverride, error) {
	const query = `SELECT id, employee_id, term_id, cleared, reason, granted_by, granted_at FROM clearance_overrides WHERE employee_id = $1 AND term_id = $2`
	var override models.ClearanceOverride
	if err := r.db.GetContext(ctx, &override, query, employeeID, termID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find clearance override: %w", err)
	}
	return &override, nil
}

// ListOverridesByTerm returns every override recorded for a term.
func (r *ClearanceRepository) ListOverridesByTerm(ctx context.Context, termID string) ([]models.ClearanceOverride, error) {
	const query = `SELECT id, employee_id, term_id, cleared, reason, granted_by, granted_at FROM clearance_overrides WHERE term_id = $1 ORDER BY granted_at DESC`
	var overrides []models.ClearanceOverride
	if err := r.db.SelectContext(ctx, &overrides, query, termID); err != nil {
		return nil, fmt.Errorf("list clearance overrides: %w", err)
	}
	return overrides, nil
}

// UpsertOverride inserts or replaces the override for an employee and term.
func (r *ClearanceRepository) UpsertOverride(ctx context.Context, override *models.ClearanceOverride) error {
	if override.ID == "" {
		override.ID = uuid.NewString()
	}
	override.GrantedAt = time.Now().UTC()

	const query = `INSERT INTO clearance_overrides (id, employee_id, term_id, cleared, reason, granted_by, granted_at)
		VALUES (:id, :employee_id, :term_id, :cleared, :reason, :granted_by, :granted_at)
		ON CONFLICT (employee_id, term_id) DO UPDATE SET cleared = EXCLUDED.cleared, reason = EXCLUDED.reason, granted_by = EXCLUDED.granted_by, granted_at = EXCLUDED.granted_at`
	if _, err := r.db.NamedExecContext(ctx, query, override); err != nil {
		return fmt.Errorf("upsert clearance override: %w", err)
	}
	return nil
}

// DeleteOverride removes any override for an employee and term.
func (r *ClearanceRepository) DeleteOverride(ctx context.Context, employeeID, termID string) error {
	const query = `DELETE FROM clearance_overrides WHERE employee_id = $1 AND term_id = $2`
	result, err := r.db.ExecContext(ctx, query, employeeID, termID)
	if err != nil {
		return fmt.Errorf("delete clearance override: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete clearance override rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PointsByStatus sums submission points per validation status for an employee in a term.
func (r *ClearanceRepository) PointsByStatus(ctx context.Context, employeeID, termID string) (map[models.ValidationStatus]float64, error) {
	const query = `SELECT validation_status, COALESCE(SUM(points), 0) AS total FROM submissions WHERE author_id = $1 AND term_id = $2 GROUP BY validation_status`
	rows, err := r.db.QueryxContext(ctx, query, employeeID, termID)
	if err != nil {
		return nil, fmt.Errorf("sum points by status: %w", err)
	}
	defer rows.Close()

	totals := make(map[models.ValidationStatus]float64)
	for rows.Next() {
		var status models.ValidationStatus
		var total float64
		if err := rows.Scan(&status, &total); err != nil {
			return nil, fmt.Errorf("scan points row: %w", err)
		}
		totals[status] = total
	}
	return totals, rows.Err()
}

// DepartmentPointTotals returns per-employee valid and pending point sums for a
// department in a term. Employees without submissions still appear with zeros.
func (r *ClearanceRepository) DepartmentPointTotals(ctx context.Context, departmentID, termID string) ([]models.EmployeePointTotals, error) {
	const query = `SELECT u.id AS employee_id, u.full_name AS employee_name, u.department_id, d.name AS department_name,
		COALESCE(SUM(CASE WHEN s.validation_status = 'APPROVED' THEN s.points ELSE 0 END), 0) AS valid_points,
		COALESCE(SUM(CASE WHEN s.validation_status = 'PENDING' THEN s.points ELSE 0 END), 0) AS pending_points
		FROM users u
		JOIN departments d ON d.id = u.department_id
		LEFT JOIN submissions s ON s.author_id = u.id AND s.term_id = $2
		WHERE u.department_id = $1 AND u.active = TRUE
		GROUP BY u.id, u.full_name, u.department_id, d.name
		ORDER BY u.full_name ASC`
	var totals []models.EmployeePointTotals
	if err := r.db.SelectContext(ctx, &totals, query, departmentID, termID); err != nil {
		return nil, fmt.Errorf("department point totals: %w", err)
	}
	return totals, nil
}

// AllPointTotals returns per-employee point sums across every department for a term.
func (r *ClearanceRepository) AllPointTotals(ctx context.Context, termID string) ([]models.EmployeePointTotals, error) {
	const query = `SELECT u.id AS employee_id, u.full_name AS employee_name, u.department_id, d.name AS department_name,
		COALESCE(SUM(CASE WHEN s.validation_status = 'APPROVED' THEN s.points ELSE 0 END), 0) AS valid_points,
		COALESCE(SUM(CASE WHEN s.validation_status = 'PENDING' THEN s.points ELSE 0 END), 0) AS pending_points
		FROM users u
		JOIN departments d ON d.id = u.department_id
		LEFT JOIN submissions s ON s.author_id = u.id AND s.term_id = $1
		WHERE u.active = TRUE
		GROUP BY u.id, u.full_name, u.department_id, d.name
		ORDER BY d.name ASC, u.full_name ASC`
	var totals []models.EmployeePointTotals
	if err := r.db.SelectContext(ctx, &totals, query, termID); err != nil {
		return nil, fmt.Errorf("all point totals: %w", err)
	}
	return totals, nil
}
