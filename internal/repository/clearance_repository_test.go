package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/pointwatch/swtd-api/internal/models"
)

func newClearanceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestClearanceRepositoryFindOverrideMissing(t *testing.T) {
	db, mock, cleanup := newClearanceRepoMock(t)
	defer cleanup()
	repo := NewClearanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, employee_id, term_id, cleared, reason, granted_by, granted_at FROM clearance_overrides WHERE employee_id = $1 AND term_id = $2")).
		WithArgs("emp-1", "term-1").
		WillReturnError(sql.ErrNoRows)

	override, err := repo.FindOverride(context.Background(), "emp-1", "term-1")
	require.NoError(t, err)
	require.Nil(t, override)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearanceRepositoryUpsertOverride(t *testing.T) {
	db, mock, cleanup := newClearanceRepoMock(t)
	defer cleanup()
	repo := NewClearanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO clearance_overrides")).
		WithArgs(sqlmock.AnyArg(), "emp-1", "term-1", true, "completed external training", "admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	override := &models.ClearanceOverride{
		EmployeeID: "emp-1",
		TermID:     "term-1",
		Cleared:    true,
		Reason:     "completed external training",
		GrantedBy:  "admin-1",
	}
	require.NoError(t, repo.UpsertOverride(context.Background(), override))
	require.NotEmpty(t, override.ID)
	require.False(t, override.GrantedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearanceRepositoryDeleteOverrideMissing(t *testing.T) {
	db, mock, cleanup := newClearanceRepoMock(t)
	defer cleanup()
	repo := NewClearanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM clearance_overrides WHERE employee_id = $1 AND term_id = $2")).
		WithArgs("emp-1", "term-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteOverride(context.Background(), "emp-1", "term-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearanceRepositoryPointsByStatus(t *testing.T) {
	db, mock, cleanup := newClearanceRepoMock(t)
	defer cleanup()
	repo := NewClearanceRepository(db)

	rows := sqlmock.NewRows([]string{"validation_status", "total"}).
		AddRow("APPROVED", 8.5).
		AddRow("PENDING", 2.0)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT validation_status, COALESCE(SUM(points), 0) AS total FROM submissions WHERE author_id = $1 AND term_id = $2 GROUP BY validation_status")).
		WithArgs("emp-1", "term-1").
		WillReturnRows(rows)

	totals, err := repo.PointsByStatus(context.Background(), "emp-1", "term-1")
	require.NoError(t, err)
	require.InDelta(t, 8.5, totals[models.StatusApproved], 1e-9)
	require.InDelta(t, 2.0, totals[models.StatusPending], 1e-9)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearanceRepositoryDepartmentPointTotals(t *testing.T) {
	db, mock, cleanup := newClearanceRepoMock(t)
	defer cleanup()
	repo := NewClearanceRepository(db)

	rows := sqlmock.NewRows([]string{"employee_id", "employee_name", "department_id", "department_name", "valid_points", "pending_points"}).
		AddRow("emp-1", "Alice Reyes", "dept-1", "Mathematics", 12.0, 0.5).
		AddRow("emp-2", "Ben Cruz", "dept-1", "Mathematics", 0.0, 0.0)
	mock.ExpectQuery("SELECT u.id AS employee_id, u.full_name AS employee_name").
		WithArgs("dept-1", "term-1").
		WillReturnRows(rows)

	totals, err := repo.DepartmentPointTotals(context.Background(), "dept-1", "term-1")
	require.NoError(t, err)
	require.Len(t, totals, 2)
	require.Equal(t, "Alice Reyes", totals[0].EmployeeName)
	require.Zero(t, totals[1].ValidPoints)
	require.NoError(t, mock.ExpectationsWereMet())
}
