package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pointwatch/swtd-api/internal/models"
)

// TermRepository handles persistence for compliance terms.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository instantiates a term repository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

const termColumns = `id, name, type, start_date, end_date, is_ongoing, required_points, midyear_points, created_at, updated_at`

// List returns terms matching provided filters.
func (r *TermRepository) List(ctx context.Context, filter models.TermFilter) ([]models.Term, int, error) {
	base := "FROM terms WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.IsOngoing != nil {
		conditions = append(conditions, fmt.Sprintf("is_ongoing = $%d", len(args)+1))
		args = append(args, *filter.IsOngoing)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "start_date"
	}
	allowedSorts := map[string]bool{
		"name":       true,
		"start_date": true,
		"end_date":   true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "start_date"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", termColumns, base, sortBy, order, size, offset)

	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list terms: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count terms: %w", err)
	}

	return terms, total, nil
}

// FindByID loads a term by identifier.
func (r *TermRepository) FindByID(ctx context.Context, id string) (*models.Term, error) {
	query := fmt.Sprintf("SELECT %s FROM terms WHERE id = $1", termColumns)
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, id); err != nil {
		return nil, err
	}
	return &term, nil
}

// FindOngoing returns the ongoing term of the given type.
func (r *TermRepository) FindOngoing(ctx context.Context, termType models.TermType) (*models.Term, error) {
	query := fmt.Sprintf("SELECT %s FROM terms WHERE is_ongoing = TRUE AND type = $1 LIMIT 1", termColumns)
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, termType); err != nil {
		return nil, err
	}
	return &term, nil
}

// ExistsByNameAndType checks if another term shares name and type.
func (r *TermRepository) ExistsByNameAndType(ctx context.Context, name string, termType models.TermType, excludeID string) (bool, error) {
	base := "SELECT 1 FROM terms WHERE name = $1 AND type = $2"
	args := []interface{}{name, termType}
	if excludeID != "" {
		base += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, base+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check term uniqueness: %w", err)
	}
	return true, nil
}

// Create inserts a new term record.
func (r *TermRepository) Create(ctx context.Context, term *models.Term) error {
	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if term.CreatedAt.IsZero() {
		term.CreatedAt = now
	}
	term.UpdatedAt = now

	const query = `INSERT INTO terms (id, name, type, start_date, end_date, is_ongoing, required_points, midyear_points, created_at, updated_at) VALUES (:id, :name, :type, :start_date, :end_date, :is_ongoing, :required_points, :midyear_points, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		return fmt.Errorf("create term: %w", err)
	}
	return nil
}

// Update modifies an existing term.
func (r *TermRepository) Update(ctx context.Context, term *models.Term) error {
	term.UpdatedAt = time.Now().UTC()
	const query = `UPDATE terms SET name = :name, type = :type, start_date = :start_date, end_date = :end_date, is_ongoing = :is_ongoing, required_points = :required_points, midyear_points = :midyear_points, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		return fmt.Errorf("update term: %w", err)
	}
	return nil
}

// SetOngoing marks the given term ongoing and closes other terms of the same
// type, keeping the at-most-one-ongoing-per-type invariant.
func (r *TermRepository) SetOngoing(ctx context.Context, id string, termType models.TermType) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set ongoing tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE terms SET is_ongoing = FALSE, updated_at = $1 WHERE is_ongoing = TRUE AND type = $2 AND id <> $3`, time.Now().UTC(), termType, id); err != nil {
		return fmt.Errorf("close other ongoing terms: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE terms SET is_ongoing = TRUE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark term ongoing: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set ongoing tx: %w", err)
	}
	return nil
}

// Delete removes a term permanently.
func (r *TermRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM terms WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete term: %w", err)
	}
	return nil
}

// CountSubmissions returns the number of submissions referencing the term.
func (r *TermRepository) CountSubmissions(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM submissions WHERE term_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count term submissions: %w", err)
	}
	return count, nil
}
