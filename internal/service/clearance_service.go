package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pointwatch/swtd-api/internal/models"
	"github.com/pointwatch/swtd-api/internal/points"
	appErrors "github.com/pointwatch/swtd-api/pkg/errors"
)

type clearanceRepository interface {
	FindOverride(ctx context.Context, employeeID, termID string) (*models.ClearanceOverride, error)
	UpsertOverride(ctx context.Context, override *models.ClearanceOverride) error
	DeleteOverride(ctx context.Context, employeeID, termID string) error
	PointsByStatus(ctx context.Context, employeeID, termID string) (map[models.ValidationStatus]float64, error)
}

type clearanceUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type clearanceDepartmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Department, error)
}

type dashboardCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// OverrideRequest is an admin's explicit clearance grant or revocation.
type OverrideRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ClearanceService resolves quota policy and computes authoritative
// clearance decisions, combining point aggregation with admin overrides.
type ClearanceService struct {
	repo        clearanceRepository
	users       clearanceUserRepository
	departments clearanceDepartmentRepository
	terms       submissionTermRepository
	cache       dashboardCacheInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewClearanceService wires the clearance workflow.
func NewClearanceService(repo clearanceRepository, users clearanceUserRepository, departments clearanceDepartmentRepository, terms submissionTermRepository, cache dashboardCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *ClearanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClearanceService{
		repo:        repo,
		users:       users,
		departments: departments,
		terms:       terms,
		cache:       cache,
		validator:   validate,
		logger:      logger,
	}
}

// ResolveQuota determines which quota field of the term applies to the
// employee. Midyear terms bind only members of departments that opted into
// the midyear policy; everyone else owes the regular quota.
func (s *ClearanceService) ResolveQuota(ctx context.Context, employee *models.User, term *models.Term) (float64, error) {
	if term.Type != models.TermTypeMidyear {
		return term.RequiredPoints, nil
	}
	if employee.DepartmentID == nil {
		return 0, nil
	}
	department, err := s.departments.FindByID(ctx, *employee.DepartmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department policy")
	}
	if !department.UsesMidyear {
		return 0, nil
	}
	return term.MidyearPoints, nil
}

// Decision computes the full clearance picture for an employee and term: the
// aggregated point status plus any admin override, with the override taking
// precedence in the final verdict.
func (s *ClearanceService) Decision(ctx context.Context, employeeID, termID string) (*points.ClearanceDecision, error) {
	employee, err := s.users.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}

	term, err := s.terms.FindByID(ctx, termID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	quota, err := s.ResolveQuota(ctx, employee, term)
	if err != nil {
		return nil, err
	}

	totals, err := s.repo.PointsByStatus(ctx, employeeID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate submission points")
	}

	records := []points.Record{
		{TermID: termID, Points: totals[models.StatusApproved], Status: points.StatusApproved},
		{TermID: termID, Points: totals[models.StatusPending], Status: points.StatusPending},
	}
	computed := points.AggregateClearance(records, employeeID, termID, quota)

	stored, err := s.repo.FindOverride(ctx, employeeID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clearance override")
	}

	var override *points.Override
	if stored != nil {
		override = &points.Override{
			Cleared:   stored.Cleared,
			GrantedBy: stored.GrantedBy,
			GrantedAt: stored.GrantedAt,
			Reason:    stored.Reason,
		}
	}

	decision := points.Decide(computed, override)
	return &decision, nil
}

// IsCleared reports the authoritative clearance verdict for an employee and
// term. Used to lock submissions once a term is settled.
func (s *ClearanceService) IsCleared(ctx context.Context, employeeID, termID string) (bool, error) {
	decision, err := s.Decision(ctx, employeeID, termID)
	if err != nil {
		return false, err
	}
	return decision.Cleared(), nil
}

// Grant records an admin override marking the employee cleared for the term.
func (s *ClearanceService) Grant(ctx context.Context, adminID, employeeID, termID string, req OverrideRequest) (*points.ClearanceDecision, error) {
	return s.setOverride(ctx, adminID, employeeID, termID, true, req, models.AuditActionClearanceGrant)
}

// Revoke records an admin override marking the employee NOT cleared for the
// term, regardless of accumulated points.
func (s *ClearanceService) Revoke(ctx context.Context, adminID, employeeID, termID string, req OverrideRequest) (*points.ClearanceDecision, error) {
	return s.setOverride(ctx, adminID, employeeID, termID, false, req, models.AuditActionClearanceRevoke)
}

// ClearOverride removes any explicit override, restoring the computed verdict.
func (s *ClearanceService) ClearOverride(ctx context.Context, adminID, employeeID, termID string) error {
	if err := s.repo.DeleteOverride(ctx, employeeID, termID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no override recorded for employee and term")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove clearance override")
	}

	s.invalidateDashboards(ctx)
	s.audit(ctx, adminID, models.AuditActionClearanceRevoke, employeeID, map[string]string{"term_id": termID, "override": "removed"})
	return nil
}

func (s *ClearanceService) setOverride(ctx context.Context, adminID, employeeID, termID string, cleared bool, req OverrideRequest, action string) (*points.ClearanceDecision, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid override payload")
	}

	if _, err := s.users.FindByID(ctx, employeeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	if _, err := s.terms.FindByID(ctx, termID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	override := &models.ClearanceOverride{
		EmployeeID: employeeID,
		TermID:     termID,
		Cleared:    cleared,
		Reason:     req.Reason,
		GrantedBy:  adminID,
	}
	if err := s.repo.UpsertOverride(ctx, override); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record clearance override")
	}

	s.invalidateDashboards(ctx)
	s.audit(ctx, adminID, action, employeeID, override)

	return s.Decision(ctx, employeeID, termID)
}

func (s *ClearanceService) invalidateDashboards(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func (s *ClearanceService) audit(ctx context.Context, adminID, action, employeeID string, payload interface{}) {
	values, err := json.Marshal(payload)
	if err != nil {
		values = nil
	}
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     action,
		Resource:   "clearance",
		ResourceID: &employeeID,
		NewValues:  values,
	}); err != nil {
		s.logger.Warn("failed to record clearance audit log", zap.Error(err))
	}
}
