package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointwatch/swtd-api/internal/models"
	appErrors "github.com/pointwatch/swtd-api/pkg/errors"
)

type mockTermRepo struct {
	terms       map[string]*models.Term
	submissions map[string]int
}

func (m *mockTermRepo) List(ctx context.Context, filter models.TermFilter) ([]models.Term, int, error) {
	var result []models.Term
	for _, t := range m.terms {
		if filter.Type != "" && filter.Type != t.Type {
			continue
		}
		result = append(result, *t)
	}
	return result, len(result), nil
}

func (m *mockTermRepo) FindByID(ctx context.Context, id string) (*models.Term, error) {
	if t, ok := m.terms[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTermRepo) FindOngoing(ctx context.Context, termType models.TermType) (*models.Term, error) {
	for _, t := range m.terms {
		if t.Type == termType && t.IsOngoing {
			copied := *t
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockTermRepo) ExistsByNameAndType(ctx context.Context, name string, termType models.TermType, excludeID string) (bool, error) {
	for _, t := range m.terms {
		if t.Name == name && t.Type == termType && t.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTermRepo) Create(ctx context.Context, term *models.Term) error {
	if m.terms == nil {
		m.terms = make(map[string]*models.Term)
	}
	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	stored := *term
	m.terms[term.ID] = &stored
	return nil
}

func (m *mockTermRepo) Update(ctx context.Context, term *models.Term) error {
	if _, ok := m.terms[term.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *term
	m.terms[term.ID] = &stored
	return nil
}

func (m *mockTermRepo) SetOngoing(ctx context.Context, id string, termType models.TermType) error {
	for _, t := range m.terms {
		if t.Type == termType {
			t.IsOngoing = t.ID == id
		}
	}
	return nil
}

func (m *mockTermRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.terms[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.terms, id)
	return nil
}

func (m *mockTermRepo) CountSubmissions(ctx context.Context, id string) (int, error) {
	return m.submissions[id], nil
}

func newTermFixture() (*TermService, *mockTermRepo) {
	repo := &mockTermRepo{
		terms:       map[string]*models.Term{},
		submissions: map[string]int{},
	}
	return NewTermService(repo, nil, nil), repo
}

func TestTermCreateRejectsInvertedDates(t *testing.T) {
	svc, _ := newTermFixture()

	_, err := svc.Create(context.Background(), CreateTermRequest{
		Name:      "Backwards",
		Type:      models.TermTypeSemester,
		StartDate: fixedDate(2026, time.October, 31),
		EndDate:   fixedDate(2026, time.June, 1),
	})
	require.Error(t, err)
}

func TestTermCreateRejectsDuplicateNameAndType(t *testing.T) {
	svc, repo := newTermFixture()
	repo.terms["t1"] = &models.Term{ID: "t1", Name: "First Semester 2026", Type: models.TermTypeSemester}

	_, err := svc.Create(context.Background(), CreateTermRequest{
		Name:      "First Semester 2026",
		Type:      models.TermTypeSemester,
		StartDate: fixedDate(2026, time.June, 1),
		EndDate:   fixedDate(2026, time.October, 31),
	})
	require.Error(t, err)

	// Same name under a different type is fine.
	created, err := svc.Create(context.Background(), CreateTermRequest{
		Name:      "First Semester 2026",
		Type:      models.TermTypeAcademicYear,
		StartDate: fixedDate(2026, time.June, 1),
		EndDate:   fixedDate(2027, time.March, 31),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
}

func TestTermSetOngoingClosesSiblings(t *testing.T) {
	svc, repo := newTermFixture()
	repo.terms["t1"] = &models.Term{ID: "t1", Name: "Old", Type: models.TermTypeSemester, IsOngoing: true}
	repo.terms["t2"] = &models.Term{ID: "t2", Name: "New", Type: models.TermTypeSemester}
	repo.terms["t3"] = &models.Term{ID: "t3", Name: "Midyear", Type: models.TermTypeMidyear, IsOngoing: true}

	updated, err := svc.SetOngoing(context.Background(), SetOngoingTermRequest{ID: "t2"})
	require.NoError(t, err)
	assert.True(t, updated.IsOngoing)

	assert.False(t, repo.terms["t1"].IsOngoing)
	assert.True(t, repo.terms["t2"].IsOngoing)
	// Terms of other types keep their own ongoing flag.
	assert.True(t, repo.terms["t3"].IsOngoing)
}

func TestTermUpdateBlockedAfterTermEnds(t *testing.T) {
	svc, repo := newTermFixture()
	svc.now = func() time.Time { return fixedDate(2026, time.August, 15) }
	repo.terms["past"] = &models.Term{
		ID:        "past",
		Name:      "Second Semester 2025",
		Type:      models.TermTypeSemester,
		StartDate: fixedDate(2025, time.November, 1),
		EndDate:   fixedDate(2026, time.March, 31),
	}

	_, err := svc.Update(context.Background(), "past", UpdateTermRequest{
		Name:      "Second Semester 2025 (revised)",
		Type:      models.TermTypeSemester,
		StartDate: fixedDate(2025, time.November, 1),
		EndDate:   fixedDate(2026, time.April, 30),
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestTermUpdateAllowedWhileOngoing(t *testing.T) {
	svc, repo := newTermFixture()
	svc.now = func() time.Time { return fixedDate(2026, time.August, 15) }
	// Past end date but still flagged ongoing, so edits stay open.
	repo.terms["late"] = &models.Term{
		ID:        "late",
		Name:      "First Semester 2026",
		Type:      models.TermTypeSemester,
		StartDate: fixedDate(2026, time.February, 1),
		EndDate:   fixedDate(2026, time.July, 31),
		IsOngoing: true,
	}

	updated, err := svc.Update(context.Background(), "late", UpdateTermRequest{
		Name:      "First Semester 2026",
		Type:      models.TermTypeSemester,
		StartDate: fixedDate(2026, time.February, 1),
		EndDate:   fixedDate(2026, time.August, 31),
	})
	require.NoError(t, err)
	assert.Equal(t, fixedDate(2026, time.August, 31), updated.EndDate)
}

func TestTermDeleteGuards(t *testing.T) {
	svc, repo := newTermFixture()
	repo.terms["ongoing"] = &models.Term{ID: "ongoing", Name: "Current", Type: models.TermTypeSemester, IsOngoing: true}
	repo.terms["used"] = &models.Term{ID: "used", Name: "Past", Type: models.TermTypeSemester}
	repo.terms["empty"] = &models.Term{ID: "empty", Name: "Unused", Type: models.TermTypeSemester}
	repo.submissions["used"] = 3

	require.Error(t, svc.Delete(context.Background(), "ongoing"))
	require.Error(t, svc.Delete(context.Background(), "used"))
	require.NoError(t, svc.Delete(context.Background(), "empty"))
	_, ok := repo.terms["empty"]
	assert.False(t, ok)
}

func TestTermGetOngoingMissing(t *testing.T) {
	svc, _ := newTermFixture()

	_, err := svc.GetOngoing(context.Background(), models.TermTypeSemester)
	require.Error(t, err)
}
