package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pointwatch/swtd-api/internal/dto"
	"github.com/pointwatch/swtd-api/internal/models"
	"github.com/pointwatch/swtd-api/internal/points"
	appErrors "github.com/pointwatch/swtd-api/pkg/errors"
)

type dashboardClearanceRepository interface {
	DepartmentPointTotals(ctx context.Context, departmentID, termID string) ([]models.EmployeePointTotals, error)
	AllPointTotals(ctx context.Context, termID string) ([]models.EmployeePointTotals, error)
	ListOverridesByTerm(ctx context.Context, termID string) ([]models.ClearanceOverride, error)
}

type dashboardSubmissionRepository interface {
	ListByAuthorAndTerm(ctx context.Context, authorID, termID string) ([]models.Submission, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type quotaResolver interface {
	ResolveQuota(ctx context.Context, employee *models.User, term *models.Term) (float64, error)
	Decision(ctx context.Context, employeeID, termID string) (*points.ClearanceDecision, error)
}

// DashboardService assembles compliance dashboards for the three audiences:
// the employee's own standing, a head's department roster, and the HR-wide
// cross-department view. Aggregates are cached briefly since they fan out
// over the whole submissions table.
type DashboardService struct {
	clearances  dashboardClearanceRepository
	submissions dashboardSubmissionRepository
	users       clearanceUserRepository
	departments clearanceDepartmentRepository
	terms       submissionTermRepository
	resolver    quotaResolver
	cache       dashboardCache
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewDashboardService wires the dashboard aggregation paths.
func NewDashboardService(clearances dashboardClearanceRepository, submissions dashboardSubmissionRepository, users clearanceUserRepository, departments clearanceDepartmentRepository, terms submissionTermRepository, resolver quotaResolver, cache dashboardCache, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{
		clearances:  clearances,
		submissions: submissions,
		users:       users,
		departments: departments,
		terms:       terms,
		resolver:    resolver,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// Employee builds the personal compliance view for one employee and term.
func (s *DashboardService) Employee(ctx context.Context, employeeID, termID string) (*dto.EmployeeDashboardResponse, error) {
	term, err := s.terms.FindByID(ctx, termID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	decision, err := s.resolver.Decision(ctx, employeeID, termID)
	if err != nil {
		return nil, err
	}

	submissions, err := s.submissions.ListByAuthorAndTerm(ctx, employeeID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions")
	}

	remaining := decision.Computed.RequiredPoints - decision.Computed.ValidPoints
	if remaining < 0 {
		remaining = 0
	}

	return &dto.EmployeeDashboardResponse{
		EmployeeID:      employeeID,
		TermID:          termID,
		TermName:        term.Name,
		RequiredPoints:  decision.Computed.RequiredPoints,
		ValidPoints:     decision.Computed.ValidPoints,
		PendingPoints:   decision.Computed.PendingPoints,
		RemainingPoints: remaining,
		IsCleared:       decision.Cleared(),
		Overridden:      decision.Override != nil,
		Submissions:     submissions,
	}, nil
}

// Department builds the head's roster view for one department and term. The
// boolean reports whether the response was served from cache.
func (s *DashboardService) Department(ctx context.Context, departmentID, termID string) (*dto.DepartmentDashboardResponse, bool, error) {
	cacheKey := fmt.Sprintf("dashboard:department:%s:%s", departmentID, termID)
	if s.cache != nil {
		var cached dto.DepartmentDashboardResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, true, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("department dashboard cache read failed", zap.Error(err))
		}
	}

	department, err := s.departments.FindByID(ctx, departmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}

	term, err := s.terms.FindByID(ctx, termID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	totals, err := s.clearances.DepartmentPointTotals(ctx, departmentID, termID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate department points")
	}

	overrides, err := s.overrideIndex(ctx, termID)
	if err != nil {
		return nil, false, err
	}

	quota := resolveTermQuota(term, department)
	rows := make([]models.ClearanceRow, 0, len(totals))
	cleared := 0
	pendingReviews := 0
	for _, t := range totals {
		row := buildClearanceRow(t, termID, quota, overrides)
		if row.IsCleared {
			cleared++
		}
		if t.PendingPoints > 0 {
			pendingReviews++
		}
		rows = append(rows, row)
	}

	resp := &dto.DepartmentDashboardResponse{
		DepartmentID:   departmentID,
		DepartmentName: department.Name,
		TermID:         termID,
		ClearedCount:   cleared,
		TotalCount:     len(rows),
		PendingReviews: pendingReviews,
		Rows:           rows,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cacheTTL); err != nil {
			s.logger.Warn("department dashboard cache write failed", zap.Error(err))
		}
	}
	return resp, false, nil
}

// HR builds the institution-wide compliance view for one term. The boolean
// reports whether the response was served from cache.
func (s *DashboardService) HR(ctx context.Context, termID string) (*dto.HRDashboardResponse, bool, error) {
	cacheKey := fmt.Sprintf("dashboard:hr:%s", termID)
	if s.cache != nil {
		var cached dto.HRDashboardResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, true, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("hr dashboard cache read failed", zap.Error(err))
		}
	}

	term, err := s.terms.FindByID(ctx, termID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	totals, err := s.clearances.AllPointTotals(ctx, termID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate institution points")
	}

	overrides, err := s.overrideIndex(ctx, termID)
	if err != nil {
		return nil, false, err
	}

	// Department policy lookups are memoized per department.
	deptQuota := make(map[string]float64)
	rows := make([]models.ClearanceRow, 0, len(totals))
	type deptStat struct {
		name    string
		cleared int
		total   int
	}
	stats := make(map[string]*deptStat)

	for _, t := range totals {
		quota, ok := deptQuota[t.DepartmentID]
		if !ok {
			department, err := s.departments.FindByID(ctx, t.DepartmentID)
			if err != nil {
				return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department policy")
			}
			quota = resolveTermQuota(term, department)
			deptQuota[t.DepartmentID] = quota
		}

		row := buildClearanceRow(t, termID, quota, overrides)
		rows = append(rows, row)

		stat, ok := stats[t.DepartmentID]
		if !ok {
			stat = &deptStat{name: t.DepartmentName}
			stats[t.DepartmentID] = stat
		}
		stat.total++
		if row.IsCleared {
			stat.cleared++
		}
	}

	departments := make([]dto.DepartmentComplianceStat, 0, len(stats))
	for id, stat := range stats {
		rate := 0.0
		if stat.total > 0 {
			rate = float64(stat.cleared) / float64(stat.total)
		}
		departments = append(departments, dto.DepartmentComplianceStat{
			DepartmentID:   id,
			DepartmentName: stat.name,
			ClearedCount:   stat.cleared,
			TotalCount:     stat.total,
			ComplianceRate: rate,
		})
	}

	resp := &dto.HRDashboardResponse{
		TermID:      termID,
		Departments: departments,
		Rows:        rows,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cacheTTL); err != nil {
			s.logger.Warn("hr dashboard cache write failed", zap.Error(err))
		}
	}
	return resp, false, nil
}

func (s *DashboardService) overrideIndex(ctx context.Context, termID string) (map[string]models.ClearanceOverride, error) {
	overrides, err := s.clearances.ListOverridesByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clearance overrides")
	}
	index := make(map[string]models.ClearanceOverride, len(overrides))
	for _, o := range overrides {
		index[o.EmployeeID] = o
	}
	return index, nil
}

func resolveTermQuota(term *models.Term, department *models.Department) float64 {
	if term.Type != models.TermTypeMidyear {
		return term.RequiredPoints
	}
	if department == nil || !department.UsesMidyear {
		return 0
	}
	return term.MidyearPoints
}

func buildClearanceRow(t models.EmployeePointTotals, termID string, quota float64, overrides map[string]models.ClearanceOverride) models.ClearanceRow {
	row := models.ClearanceRow{
		EmployeeID:     t.EmployeeID,
		EmployeeName:   t.EmployeeName,
		DepartmentID:   t.DepartmentID,
		DepartmentName: t.DepartmentName,
		TermID:         termID,
		ValidPoints:    t.ValidPoints,
		PendingPoints:  t.PendingPoints,
		RequiredPoints: quota,
		IsCleared:      t.ValidPoints >= quota,
	}
	if o, ok := overrides[t.EmployeeID]; ok {
		row.IsCleared = o.Cleared
		row.Overridden = true
	}
	return row
}
