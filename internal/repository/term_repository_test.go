package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/pointwatch/swtd-api/internal/models"
)

func newTermRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func termRows(id string, termType models.TermType, ongoing bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "type", "start_date", "end_date", "is_ongoing", "required_points", "midyear_points", "created_at", "updated_at"}).
		AddRow(id, "AY 2025-2026 1st Semester", string(termType), time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC), ongoing, 10.0, 5.0, time.Now(), time.Now())
}

func TestTermRepositoryFindOngoing(t *testing.T) {
	db, mock, cleanup := newTermRepoMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, type, start_date, end_date, is_ongoing, required_points, midyear_points, created_at, updated_at FROM terms WHERE is_ongoing = TRUE AND type = $1 LIMIT 1")).
		WithArgs(models.TermTypeSemester).
		WillReturnRows(termRows("term-1", models.TermTypeSemester, true))

	term, err := repo.FindOngoing(context.Background(), models.TermTypeSemester)
	require.NoError(t, err)
	require.Equal(t, "term-1", term.ID)
	require.True(t, term.IsOngoing)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTermRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newTermRepoMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO terms")).
		WithArgs(sqlmock.AnyArg(), "AY 2025-2026 1st Semester", models.TermTypeSemester, sqlmock.AnyArg(), sqlmock.AnyArg(), false, 10.0, 5.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	term := &models.Term{
		Name:           "AY 2025-2026 1st Semester",
		Type:           models.TermTypeSemester,
		StartDate:      time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC),
		RequiredPoints: 10,
		MidyearPoints:  5,
	}
	require.NoError(t, repo.Create(context.Background(), term))
	require.NotEmpty(t, term.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTermRepositorySetOngoingClosesOthers(t *testing.T) {
	db, mock, cleanup := newTermRepoMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE terms SET is_ongoing = FALSE, updated_at = $1 WHERE is_ongoing = TRUE AND type = $2 AND id <> $3")).
		WithArgs(sqlmock.AnyArg(), models.TermTypeSemester, "term-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE terms SET is_ongoing = TRUE, updated_at = $2 WHERE id = $1")).
		WithArgs("term-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetOngoing(context.Background(), "term-2", models.TermTypeSemester))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTermRepositoryExistsByNameAndType(t *testing.T) {
	db, mock, cleanup := newTermRepoMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM terms WHERE name = $1 AND type = $2 LIMIT 1")).
		WithArgs("AY 2025-2026 1st Semester", models.TermTypeSemester).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByNameAndType(context.Background(), "AY 2025-2026 1st Semester", models.TermTypeSemester, "")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM terms WHERE name = $1 AND type = $2 AND id <> $3 LIMIT 1")).
		WithArgs("Midyear 2026", models.TermTypeMidyear, "term-9").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsByNameAndType(context.Background(), "Midyear 2026", models.TermTypeMidyear, "term-9")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTermRepositoryCountSubmissions(t *testing.T) {
	db, mock, cleanup := newTermRepoMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM submissions WHERE term_id = $1")).
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountSubmissions(context.Background(), "term-1")
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
