package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pointwatch/swtd-api/internal/models"
	"github.com/pointwatch/swtd-api/internal/points"
	appErrors "github.com/pointwatch/swtd-api/pkg/errors"
)

type termRepository interface {
	List(ctx context.Context, filter models.TermFilter) ([]models.Term, int, error)
	FindByID(ctx context.Context, id string) (*models.Term, error)
	FindOngoing(ctx context.Context, termType models.TermType) (*models.Term, error)
	ExistsByNameAndType(ctx context.Context, name string, termType models.TermType, excludeID string) (bool, error)
	Create(ctx context.Context, term *models.Term) error
	Update(ctx context.Context, term *models.Term) error
	SetOngoing(ctx context.Context, id string, termType models.TermType) error
	Delete(ctx context.Context, id string) error
	CountSubmissions(ctx context.Context, id string) (int, error)
}

// CreateTermRequest describes payload for creating compliance terms.
type CreateTermRequest struct {
	Name           string          `json:"name" validate:"required"`
	Type           models.TermType `json:"type" validate:"required,oneof=SEMESTER MIDYEAR ACADEMIC_YEAR"`
	StartDate      time.Time       `json:"start_date" validate:"required"`
	EndDate        time.Time       `json:"end_date" validate:"required"`
	IsOngoing      bool            `json:"is_ongoing"`
	RequiredPoints float64         `json:"required_points" validate:"gte=0"`
	MidyearPoints  float64         `json:"midyear_points" validate:"gte=0"`
}

// UpdateTermRequest updates mutable fields on a term.
type UpdateTermRequest struct {
	Name           string          `json:"name" validate:"required"`
	Type           models.TermType `json:"type" validate:"required,oneof=SEMESTER MIDYEAR ACADEMIC_YEAR"`
	StartDate      time.Time       `json:"start_date" validate:"required"`
	EndDate        time.Time       `json:"end_date" validate:"required"`
	IsOngoing      *bool           `json:"is_ongoing"`
	RequiredPoints float64         `json:"required_points" validate:"gte=0"`
	MidyearPoints  float64         `json:"midyear_points" validate:"gte=0"`
}

// SetOngoingTermRequest marks a term as the ongoing period of its type.
type SetOngoingTermRequest struct {
	ID string `json:"id" validate:"required"`
}

// TermService orchestrates term workflows.
type TermService struct {
	repo      termRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewTermService creates a new term service instance.
func NewTermService(repo termRepository, validate *validator.Validate, logger *zap.Logger) *TermService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TermService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns paginated terms.
func (s *TermService) List(ctx context.Context, filter models.TermFilter) ([]models.Term, *models.Pagination, error) {
	terms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list terms")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	pagination := &models.Pagination{
		Page:       page,
		PageSize:   size,
		TotalCount: total,
	}
	return terms, pagination, nil
}

// Get returns a term by ID.
func (s *TermService) Get(ctx context.Context, id string) (*models.Term, error) {
	term, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	return term, nil
}

// GetOngoing returns the ongoing term of the given type.
func (s *TermService) GetOngoing(ctx context.Context, termType models.TermType) (*models.Term, error) {
	term, err := s.repo.FindOngoing(ctx, termType)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no ongoing term of requested type")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ongoing term")
	}
	return term, nil
}

// Create adds a new term ensuring uniqueness and date validation.
func (s *TermService) Create(ctx context.Context, req CreateTermRequest) (*models.Term, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid term payload")
	}
	if !req.StartDate.Before(req.EndDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be before end_date")
	}

	exists, err := s.repo.ExistsByNameAndType(ctx, req.Name, req.Type, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check term uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "term already exists with this name and type")
	}

	term := &models.Term{
		Name:           req.Name,
		Type:           req.Type,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		IsOngoing:      req.IsOngoing,
		RequiredPoints: req.RequiredPoints,
		MidyearPoints:  req.MidyearPoints,
	}

	if err := s.repo.Create(ctx, term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create term")
	}

	if req.IsOngoing {
		if err := s.repo.SetOngoing(ctx, term.ID, term.Type); err != nil {
			s.logger.Error("failed to mark term ongoing after create", zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark term ongoing")
		}
		term.IsOngoing = true
	}

	return term, nil
}

// Update modifies a term record.
func (s *TermService) Update(ctx context.Context, id string, req UpdateTermRequest) (*models.Term, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid term payload")
	}
	if !req.StartDate.Before(req.EndDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be before end_date")
	}

	term, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	// Elapsed terms are frozen; only the ongoing flag keeps a past-dated
	// term editable.
	if !term.IsOngoing && points.IsPastDate(term.EndDate, s.now()) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "term has ended and can no longer be modified")
	}

	exists, err := s.repo.ExistsByNameAndType(ctx, req.Name, req.Type, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check term uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "term already exists with this name and type")
	}

	term.Name = req.Name
	term.Type = req.Type
	term.StartDate = req.StartDate
	term.EndDate = req.EndDate
	term.RequiredPoints = req.RequiredPoints
	term.MidyearPoints = req.MidyearPoints
	if req.IsOngoing != nil {
		term.IsOngoing = *req.IsOngoing
	}

	if err := s.repo.Update(ctx, term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update term")
	}

	if req.IsOngoing != nil && *req.IsOngoing {
		if err := s.repo.SetOngoing(ctx, term.ID, term.Type); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark term ongoing")
		}
		term.IsOngoing = true
	}

	return term, nil
}

// SetOngoing designates a term as the ongoing period of its type.
func (s *TermService) SetOngoing(ctx context.Context, req SetOngoingTermRequest) (*models.Term, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid set ongoing payload")
	}

	term, err := s.repo.FindByID(ctx, req.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	if err := s.repo.SetOngoing(ctx, term.ID, term.Type); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark term ongoing")
	}
	term.IsOngoing = true
	return term, nil
}

// Delete removes a term when not ongoing and without submissions.
func (s *TermService) Delete(ctx context.Context, id string) error {
	term, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	if term.IsOngoing {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "cannot delete ongoing term")
	}

	count, err := s.repo.CountSubmissions(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check term dependencies")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "term has submissions associated")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete term")
	}
	return nil
}
