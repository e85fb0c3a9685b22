package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointwatch/swtd-api/internal/models"
)

type mockClearanceRepo struct {
	overrides map[string]*models.ClearanceOverride
	totals    map[string]map[models.ValidationStatus]float64
}

func overrideKey(employeeID, termID string) string {
	return employeeID + ":" + termID
}

func (m *mockClearanceRepo) FindOverride(ctx context.Context, employeeID, termID string) (*models.ClearanceOverride, error) {
	if o, ok := m.overrides[overrideKey(employeeID, termID)]; ok {
		copied := *o
		return &copied, nil
	}
	return nil, nil
}

func (m *mockClearanceRepo) UpsertOverride(ctx context.Context, override *models.ClearanceOverride) error {
	if m.overrides == nil {
		m.overrides = make(map[string]*models.ClearanceOverride)
	}
	override.GrantedAt = time.Now().UTC()
	stored := *override
	m.overrides[overrideKey(override.EmployeeID, override.TermID)] = &stored
	return nil
}

func (m *mockClearanceRepo) DeleteOverride(ctx context.Context, employeeID, termID string) error {
	key := overrideKey(employeeID, termID)
	if _, ok := m.overrides[key]; !ok {
		return sql.ErrNoRows
	}
	delete(m.overrides, key)
	return nil
}

func (m *mockClearanceRepo) PointsByStatus(ctx context.Context, employeeID, termID string) (map[models.ValidationStatus]float64, error) {
	if t, ok := m.totals[overrideKey(employeeID, termID)]; ok {
		return t, nil
	}
	return map[models.ValidationStatus]float64{}, nil
}

type mockClearanceUsers struct {
	users map[string]*models.User
	logs  []models.AuditLog
}

func (m *mockClearanceUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClearanceUsers) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

type mockDepartmentFinder struct {
	departments map[string]*models.Department
}

func (m *mockDepartmentFinder) FindByID(ctx context.Context, id string) (*models.Department, error) {
	if d, ok := m.departments[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

type mockCacheInvalidator struct {
	patterns []string
}

func (m *mockCacheInvalidator) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func strPtr(s string) *string { return &s }

func newClearanceFixture() (*ClearanceService, *mockClearanceRepo, *mockClearanceUsers, *mockCacheInvalidator) {
	repo := &mockClearanceRepo{
		overrides: map[string]*models.ClearanceOverride{},
		totals:    map[string]map[models.ValidationStatus]float64{},
	}
	users := &mockClearanceUsers{users: map[string]*models.User{
		"emp-1": {ID: "emp-1", FullName: "Alice Reyes", Role: models.RoleStaff, DepartmentID: strPtr("dept-cs"), Active: true},
		"emp-2": {ID: "emp-2", FullName: "Ben Cruz", Role: models.RoleStaff, DepartmentID: strPtr("dept-lib"), Active: true},
		"emp-3": {ID: "emp-3", FullName: "Carol Tan", Role: models.RoleStaff, Active: true},
	}}
	departments := &mockDepartmentFinder{departments: map[string]*models.Department{
		"dept-cs":  {ID: "dept-cs", Name: "Computer Studies", UsesMidyear: true},
		"dept-lib": {ID: "dept-lib", Name: "Library", UsesMidyear: false},
	}}
	terms := &mockTermFinder{terms: map[string]*models.Term{
		"term-sem": {
			ID:             "term-sem",
			Type:           models.TermTypeSemester,
			StartDate:      fixedDate(2026, time.June, 1),
			EndDate:        fixedDate(2026, time.October, 31),
			RequiredPoints: 10,
			MidyearPoints:  5,
		},
		"term-mid": {
			ID:             "term-mid",
			Type:           models.TermTypeMidyear,
			StartDate:      fixedDate(2026, time.April, 1),
			EndDate:        fixedDate(2026, time.May, 31),
			RequiredPoints: 10,
			MidyearPoints:  5,
		},
	}}
	cache := &mockCacheInvalidator{}
	svc := NewClearanceService(repo, users, departments, terms, cache, nil, nil)
	return svc, repo, users, cache
}

func TestResolveQuotaRegularTerm(t *testing.T) {
	svc, _, users, _ := newClearanceFixture()
	term := &models.Term{Type: models.TermTypeSemester, RequiredPoints: 10, MidyearPoints: 5}

	quota, err := svc.ResolveQuota(context.Background(), users.users["emp-1"], term)
	require.NoError(t, err)
	assert.Equal(t, 10.0, quota)
}

func TestResolveQuotaMidyearPolicy(t *testing.T) {
	svc, _, users, _ := newClearanceFixture()
	term := &models.Term{Type: models.TermTypeMidyear, RequiredPoints: 10, MidyearPoints: 5}

	// Department opted into the midyear policy.
	quota, err := svc.ResolveQuota(context.Background(), users.users["emp-1"], term)
	require.NoError(t, err)
	assert.Equal(t, 5.0, quota)

	// Department without the policy owes nothing for midyear terms.
	quota, err = svc.ResolveQuota(context.Background(), users.users["emp-2"], term)
	require.NoError(t, err)
	assert.Equal(t, 0.0, quota)

	// No department at all behaves the same.
	quota, err = svc.ResolveQuota(context.Background(), users.users["emp-3"], term)
	require.NoError(t, err)
	assert.Equal(t, 0.0, quota)
}

func TestDecisionClearedByPoints(t *testing.T) {
	svc, repo, _, _ := newClearanceFixture()
	repo.totals[overrideKey("emp-1", "term-sem")] = map[models.ValidationStatus]float64{
		models.StatusApproved: 12,
		models.StatusPending:  3,
	}

	decision, err := svc.Decision(context.Background(), "emp-1", "term-sem")
	require.NoError(t, err)
	assert.True(t, decision.Cleared())
	assert.Equal(t, 12.0, decision.Computed.ValidPoints)
	assert.Equal(t, 3.0, decision.Computed.PendingPoints)
	assert.Nil(t, decision.Override)
}

func TestDecisionShortOfQuota(t *testing.T) {
	svc, repo, _, _ := newClearanceFixture()
	repo.totals[overrideKey("emp-1", "term-sem")] = map[models.ValidationStatus]float64{
		models.StatusApproved: 6,
		models.StatusPending:  10,
	}

	// Pending points never count toward the quota.
	decision, err := svc.Decision(context.Background(), "emp-1", "term-sem")
	require.NoError(t, err)
	assert.False(t, decision.Cleared())
}

func TestDecisionOverridePrecedence(t *testing.T) {
	svc, repo, _, _ := newClearanceFixture()
	repo.totals[overrideKey("emp-1", "term-sem")] = map[models.ValidationStatus]float64{
		models.StatusApproved: 2,
	}
	repo.overrides[overrideKey("emp-1", "term-sem")] = &models.ClearanceOverride{
		EmployeeID: "emp-1",
		TermID:     "term-sem",
		Cleared:    true,
		Reason:     "served on accreditation task force",
		GrantedBy:  "admin-1",
		GrantedAt:  time.Now().UTC(),
	}

	decision, err := svc.Decision(context.Background(), "emp-1", "term-sem")
	require.NoError(t, err)
	assert.True(t, decision.Cleared())
	require.NotNil(t, decision.Override)
	assert.False(t, decision.Computed.IsCleared)
}

func TestDecisionRevokeOverridesPoints(t *testing.T) {
	svc, repo, _, _ := newClearanceFixture()
	repo.totals[overrideKey("emp-1", "term-sem")] = map[models.ValidationStatus]float64{
		models.StatusApproved: 20,
	}
	repo.overrides[overrideKey("emp-1", "term-sem")] = &models.ClearanceOverride{
		EmployeeID: "emp-1",
		TermID:     "term-sem",
		Cleared:    false,
		Reason:     "submitted falsified certificates",
		GrantedBy:  "admin-1",
		GrantedAt:  time.Now().UTC(),
	}

	decision, err := svc.Decision(context.Background(), "emp-1", "term-sem")
	require.NoError(t, err)
	assert.False(t, decision.Cleared())
	assert.True(t, decision.Computed.IsCleared)
}

func TestGrantRecordsOverrideAndInvalidatesCache(t *testing.T) {
	svc, repo, users, cache := newClearanceFixture()

	decision, err := svc.Grant(context.Background(), "admin-1", "emp-1", "term-sem", OverrideRequest{Reason: "committee service"})
	require.NoError(t, err)
	assert.True(t, decision.Cleared())

	stored := repo.overrides[overrideKey("emp-1", "term-sem")]
	require.NotNil(t, stored)
	assert.True(t, stored.Cleared)
	assert.Equal(t, "admin-1", stored.GrantedBy)

	assert.Contains(t, cache.patterns, "dashboard:*")
	require.Len(t, users.logs, 1)
	assert.Equal(t, models.AuditActionClearanceGrant, users.logs[0].Action)
}

func TestGrantRequiresReason(t *testing.T) {
	svc, _, _, _ := newClearanceFixture()

	_, err := svc.Grant(context.Background(), "admin-1", "emp-1", "term-sem", OverrideRequest{})
	require.Error(t, err)
}

func TestGrantUnknownEmployee(t *testing.T) {
	svc, _, _, _ := newClearanceFixture()

	_, err := svc.Grant(context.Background(), "admin-1", "emp-404", "term-sem", OverrideRequest{Reason: "x"})
	require.Error(t, err)
}

func TestClearOverrideMissing(t *testing.T) {
	svc, _, _, _ := newClearanceFixture()

	err := svc.ClearOverride(context.Background(), "admin-1", "emp-1", "term-sem")
	require.Error(t, err)
}

func TestClearOverrideRestoresComputed(t *testing.T) {
	svc, repo, _, _ := newClearanceFixture()
	repo.overrides[overrideKey("emp-1", "term-sem")] = &models.ClearanceOverride{
		EmployeeID: "emp-1",
		TermID:     "term-sem",
		Cleared:    true,
		Reason:     "temporary",
		GrantedBy:  "admin-1",
	}

	err := svc.ClearOverride(context.Background(), "admin-1", "emp-1", "term-sem")
	require.NoError(t, err)

	decision, err := svc.Decision(context.Background(), "emp-1", "term-sem")
	require.NoError(t, err)
	assert.False(t, decision.Cleared())
}
