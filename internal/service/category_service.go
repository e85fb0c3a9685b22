package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pointwatch/swtd-api/internal/models"
	"github.com/pointwatch/swtd-api/internal/points"
	appErrors "github.com/pointwatch/swtd-api/pkg/errors"
)

type categoryRepository interface {
	ListAll(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id int) (*models.Category, error)
	NameExists(ctx context.Context, name string, excludeID int) (bool, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id int) error
	CountSubmissions(ctx context.Context, id int) (int, error)
}

// CreateCategoryRequest describes payload for new SWTD categories.
type CreateCategoryRequest struct {
	Name                 string  `json:"name" validate:"required"`
	Multiplier           float64 `json:"multiplier" validate:"gt=0"`
	RequiresManualPoints bool    `json:"requires_manual_points"`
}

// UpdateCategoryRequest mutates an existing category.
type UpdateCategoryRequest struct {
	Name                 string  `json:"name" validate:"required"`
	Multiplier           float64 `json:"multiplier" validate:"gt=0"`
	RequiresManualPoints bool    `json:"requires_manual_points"`
}

// CategoryService manages the SWTD category catalog.
type CategoryService struct {
	repo      categoryRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCategoryService creates a category service instance.
func NewCategoryService(repo categoryRepository, validate *validator.Validate, logger *zap.Logger) *CategoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{repo: repo, validator: validate, logger: logger}
}

// List returns the full category catalog.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	return categories, nil
}

// Get returns one category by ID.
func (s *CategoryService) Get(ctx context.Context, id int) (*models.Category, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}
	return category, nil
}

// Table builds the point-calculation lookup from the stored catalog. When the
// catalog is empty the seeded default set is used so point computation keeps
// working on a fresh database.
func (s *CategoryService) Table(ctx context.Context) (points.Table, error) {
	categories, err := s.repo.ListAll(ctx)
	if err != nil {
		return points.Table{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category table")
	}
	if len(categories) == 0 {
		s.logger.Warn("category catalog empty, using seeded defaults")
		return points.DefaultTable(), nil
	}

	converted := make([]points.Category, 0, len(categories))
	for _, c := range categories {
		converted = append(converted, points.Category{
			ID:                   c.ID,
			Name:                 c.Name,
			Multiplier:           c.Multiplier,
			RequiresManualPoints: c.RequiresManualPoints,
		})
	}
	return points.NewTable(converted), nil
}

// Create adds a category after uniqueness checks.
func (s *CategoryService) Create(ctx context.Context, req CreateCategoryRequest) (*models.Category, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}

	exists, err := s.repo.NameExists(ctx, req.Name, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check category uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "category name already exists")
	}

	category := &models.Category{
		Name:                 req.Name,
		Multiplier:           req.Multiplier,
		RequiresManualPoints: req.RequiresManualPoints,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create category")
	}
	return category, nil
}

// Update modifies a category. Changing the multiplier does not retroactively
// recompute points of existing submissions.
func (s *CategoryService) Update(ctx context.Context, id int, req UpdateCategoryRequest) (*models.Category, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}

	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}

	exists, err := s.repo.NameExists(ctx, req.Name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check category uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "category name already exists")
	}

	category.Name = req.Name
	category.Multiplier = req.Multiplier
	category.RequiresManualPoints = req.RequiresManualPoints
	if err := s.repo.Update(ctx, category); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update category")
	}
	return category, nil
}

// Delete removes a category unless submissions reference it.
func (s *CategoryService) Delete(ctx context.Context, id int) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}

	count, err := s.repo.CountSubmissions(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check category dependencies")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "category has submissions associated")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete category")
	}
	return nil
}
