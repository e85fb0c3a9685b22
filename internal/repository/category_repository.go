package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pointwatch/swtd-api/internal/models"
)

// CategoryRepository handles persistence for SWTD activity categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository instantiates a category repository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `id, name, multiplier, requires_manual_points, created_at, updated_at`

// ListAll returns every category ordered by identifier.
func (r *CategoryRepository) ListAll(ctx context.Context) ([]models.Category, error) {
	query := fmt.Sprintf("SELECT %s FROM categories ORDER BY id ASC", categoryColumns)
	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// FindByID loads a category by identifier.
func (r *CategoryRepository) FindByID(ctx context.Context, id int) (*models.Category, error) {
	query := fmt.Sprintf("SELECT %s FROM categories WHERE id = $1", categoryColumns)
	var category models.Category
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		return nil, err
	}
	return &category, nil
}

// NameExists checks uniqueness of a category name.
func (r *CategoryRepository) NameExists(ctx context.Context, name string, excludeID int) (bool, error) {
	base := "SELECT 1 FROM categories WHERE name = $1"
	args := []interface{}{name}
	if excludeID > 0 {
		base += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, base+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check category uniqueness: %w", err)
	}
	return true, nil
}

// Create inserts a new category record.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now
	const query = `INSERT INTO categories (id, name, multiplier, requires_manual_points, created_at, updated_at) VALUES (:id, :name, :multiplier, :requires_manual_points, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// Update modifies an existing category.
func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	category.UpdatedAt = time.Now().UTC()
	const query = `UPDATE categories SET name = :name, multiplier = :multiplier, requires_manual_points = :requires_manual_points, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// Delete removes a category permanently.
func (r *CategoryRepository) Delete(ctx context.Context, id int) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// CountSubmissions returns the number of submissions referencing the category.
func (r *CategoryRepository) CountSubmissions(ctx context.Context, id int) (int, error) {
	const query = `SELECT COUNT(*) FROM submissions WHERE category_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count category submissions: %w", err)
	}
	return count, nil
}
