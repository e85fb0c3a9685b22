package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointwatch/swtd-api/internal/models"
	"github.com/pointwatch/swtd-api/internal/points"
	appErrors "github.com/pointwatch/swtd-api/pkg/errors"
)

type mockSubmissionRepo struct {
	stored      map[string]models.Submission
	validations []models.ValidationStatus
	deleted     []string
}

func (m *mockSubmissionRepo) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	var result []models.Submission
	for _, s := range m.stored {
		if filter.AuthorID != "" && filter.AuthorID != s.AuthorID {
			continue
		}
		result = append(result, s)
	}
	return result, len(result), nil
}

func (m *mockSubmissionRepo) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	if s, ok := m.stored[id]; ok {
		copied := s
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) ListByAuthorAndTerm(ctx context.Context, authorID, termID string) ([]models.Submission, error) {
	var result []models.Submission
	for _, s := range m.stored {
		if s.AuthorID == authorID && s.TermID == termID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockSubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	if m.stored == nil {
		m.stored = make(map[string]models.Submission)
	}
	if submission.ID == "" {
		submission.ID = "generated-id"
	}
	m.stored[submission.ID] = *submission
	return nil
}

func (m *mockSubmissionRepo) Update(ctx context.Context, submission *models.Submission) error {
	if _, ok := m.stored[submission.ID]; !ok {
		return sql.ErrNoRows
	}
	m.stored[submission.ID] = *submission
	return nil
}

func (m *mockSubmissionRepo) SetValidation(ctx context.Context, id string, status models.ValidationStatus, validatorID string, comment *string) error {
	s, ok := m.stored[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.ValidationStatus = status
	s.ValidatorID = &validatorID
	s.ValidationComment = comment
	m.stored[id] = s
	m.validations = append(m.validations, status)
	return nil
}

func (m *mockSubmissionRepo) SetProof(ctx context.Context, id, filename, mime string) error {
	s, ok := m.stored[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.ProofFilename = &filename
	s.ProofMIME = &mime
	m.stored[id] = s
	return nil
}

func (m *mockSubmissionRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.stored[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.stored, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockTermFinder struct {
	terms map[string]*models.Term
}

func (m *mockTermFinder) FindByID(ctx context.Context, id string) (*models.Term, error) {
	if t, ok := m.terms[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

type mockCategoryProvider struct {
	categories map[int]*models.Category
}

func (m *mockCategoryProvider) Table(ctx context.Context) (points.Table, error) {
	entries := make([]points.Category, 0, len(m.categories))
	for _, c := range m.categories {
		entries = append(entries, points.Category{
			ID:                   c.ID,
			Name:                 c.Name,
			Multiplier:           c.Multiplier,
			RequiresManualPoints: c.RequiresManualPoints,
		})
	}
	return points.NewTable(entries), nil
}

func (m *mockCategoryProvider) Get(ctx context.Context, id int) (*models.Category, error) {
	if c, ok := m.categories[id]; ok {
		return c, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
}

type mockClearanceChecker struct {
	cleared bool
	err     error
}

func (m *mockClearanceChecker) IsCleared(ctx context.Context, employeeID, termID string) (bool, error) {
	return m.cleared, m.err
}

type mockAuditWriter struct {
	logs []models.AuditLog
}

func (m *mockAuditWriter) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func fixedDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newSubmissionFixture() (*SubmissionService, *mockSubmissionRepo, *mockClearanceChecker) {
	repo := &mockSubmissionRepo{stored: map[string]models.Submission{}}
	terms := &mockTermFinder{terms: map[string]*models.Term{
		"term-1": {
			ID:             "term-1",
			Name:           "First Semester 2026",
			Type:           models.TermTypeSemester,
			StartDate:      fixedDate(2026, time.June, 1),
			EndDate:        fixedDate(2026, time.October, 31),
			IsOngoing:      true,
			RequiredPoints: 10,
		},
	}}
	categories := &mockCategoryProvider{categories: map[int]*models.Category{
		1: {ID: 1, Name: "Profession or work-relevant webinar", Multiplier: 1.0},
		2: {ID: 2, Name: "Life-relevant webinar", Multiplier: 0.5},
		5: {ID: 5, Name: "Degree (Masters)", Multiplier: 2.0, RequiresManualPoints: true},
	}}
	clearance := &mockClearanceChecker{}
	audits := &mockAuditWriter{}

	svc := NewSubmissionService(repo, terms, categories, clearance, audits, nil, nil, ProofConfig{MaxFileSizeBytes: 1 << 20}, nil, nil)
	svc.now = func() time.Time { return fixedDate(2026, time.August, 15) }
	return svc, repo, clearance
}

func TestSubmissionCreateComputesPoints(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()

	created, err := svc.Create(context.Background(), "emp-1", CreateSubmissionRequest{
		TermID:     "term-1",
		CategoryID: 1,
		Title:      "Cloud Security Workshop",
		Venue:      "Main Hall",
		Role:       "Participant",
		Dates: []SubmissionDateRequest{
			{Date: fixedDate(2026, time.July, 10), TimeStarted: "08:00", TimeEnded: "17:00"},
		},
	})
	require.NoError(t, err)

	// 9 clock hours lands in the >=8 tier worth 4 base points at 1.0x.
	assert.Equal(t, 4.0, created.Points)
	assert.Equal(t, models.StatusPending, created.ValidationStatus)
	assert.Len(t, repo.stored, 1)
	require.Len(t, created.Dates, 1)
	assert.Equal(t, fixedDate(2026, time.July, 10), created.Dates[0].Date)
}

func TestSubmissionCreateMultiDayAccumulates(t *testing.T) {
	svc, _, _ := newSubmissionFixture()

	created, err := svc.Create(context.Background(), "emp-1", CreateSubmissionRequest{
		TermID:     "term-1",
		CategoryID: 2,
		Title:      "Wellness Series",
		Venue:      "Online",
		Role:       "Participant",
		Dates: []SubmissionDateRequest{
			{Date: fixedDate(2026, time.July, 10), TimeStarted: "09:00", TimeEnded: "12:00"},
			{Date: fixedDate(2026, time.July, 11), TimeStarted: "09:00", TimeEnded: "12:00"},
		},
	})
	require.NoError(t, err)

	// Two 3-hour days at 1 base point each, scaled by the 0.5 multiplier.
	assert.Equal(t, 1.0, created.Points)
}

func TestSubmissionCreateManualCategory(t *testing.T) {
	svc, _, _ := newSubmissionFixture()

	created, err := svc.Create(context.Background(), "emp-1", CreateSubmissionRequest{
		TermID:       "term-1",
		CategoryID:   5,
		Title:        "MS Computer Science",
		Venue:        "State University",
		Role:         "Student",
		ManualPoints: 15,
		Dates: []SubmissionDateRequest{
			{Date: fixedDate(2026, time.July, 1), TimeStarted: "08:00", TimeEnded: "09:00"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 15.0, created.Points)
}

func TestSubmissionCreateDeliverablesUseManualPoints(t *testing.T) {
	svc, _, _ := newSubmissionFixture()

	// Category 1 normally scores by duration; deliverables switch the
	// submission to the entered value.
	created, err := svc.Create(context.Background(), "emp-1", CreateSubmissionRequest{
		TermID:          "term-1",
		CategoryID:      1,
		Title:           "Research Output",
		Venue:           "Main Campus",
		Role:            "Author",
		HasDeliverables: true,
		ManualPoints:    10,
		Dates: []SubmissionDateRequest{
			{Date: fixedDate(2026, time.July, 1), TimeStarted: "08:00", TimeEnded: "16:00"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 10.0, created.Points)
}

func TestSubmissionUpdateDeliverablesUseManualPoints(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()

	created, err := svc.Create(context.Background(), "emp-1", CreateSubmissionRequest{
		TermID:     "term-1",
		CategoryID: 1,
		Title:      "Seminar",
		Venue:      "Main Campus",
		Role:       "Attendee",
		Dates: []SubmissionDateRequest{
			{Date: fixedDate(2026, time.July, 1), TimeStarted: "08:00", TimeEnded: "17:00"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 4.0, created.Points)

	updated, err := svc.Update(context.Background(), "emp-1", created.ID, UpdateSubmissionRequest{
		TermID:          "term-1",
		CategoryID:      1,
		Title:           "Seminar",
		Venue:           "Main Campus",
		Role:            "Attendee",
		HasDeliverables: true,
		ManualPoints:    7.5,
		Dates: []SubmissionDateRequest{
			{Date: fixedDate(2026, time.July, 1), TimeStarted: "08:00", TimeEnded: "17:00"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 7.5, updated.Points)
	assert.True(t, repo.stored[created.ID].HasDeliverables)
}

func TestSubmissionCreateRejectsFutureDate(t *testing.T) {
	svc, _, _ := newSubmissionFixture()

	// Ongoing term: the window closes at "today" (2026-08-15 in the fixture).
	_, err := svc.Create(context.Background(), "emp-1", CreateSubmissionRequest{
		TermID:     "term-1",
		CategoryID: 1,
		Title:      "Future Event",
		Venue:      "Main Hall",
		Role:       "Participant",
		Dates: []SubmissionDateRequest{
			{Date: fixedDate(2026, time.September, 1), TimeStarted: "08:00", TimeEnded: "17:00"},
		},
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrIneligibleDate.Code, appErr.Code)
}

func TestSubmissionCreateRejectsDateBeforeTerm(t *testing.T) {
	svc, _, _ := newSubmissionFixture()

	_, err := svc.Create(context.Background(), "emp-1", CreateSubmissionRequest{
		TermID:     "term-1",
		CategoryID: 1,
		Title:      "Early Event",
		Venue:      "Main Hall",
		Role:       "Participant",
		Dates: []SubmissionDateRequest{
			{Date: fixedDate(2026, time.May, 20), TimeStarted: "08:00", TimeEnded: "17:00"},
		},
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrIneligibleDate.Code, appErr.Code)
}

func TestSubmissionUpdateBlockedWhenCleared(t *testing.T) {
	svc, repo, clearance := newSubmissionFixture()
	repo.stored["sub-1"] = models.Submission{
		ID:               "sub-1",
		AuthorID:         "emp-1",
		TermID:           "term-1",
		CategoryID:       1,
		ValidationStatus: models.StatusApproved,
	}
	clearance.cleared = true

	_, err := svc.Update(context.Background(), "emp-1", "sub-1", UpdateSubmissionRequest{
		TermID:     "term-1",
		CategoryID: 1,
		Title:      "Edited",
		Venue:      "Main Hall",
		Role:       "Participant",
		Dates: []SubmissionDateRequest{
			{Date: fixedDate(2026, time.July, 10), TimeStarted: "08:00", TimeEnded: "12:00"},
		},
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrCleared.Code, appErr.Code)
}

func TestSubmissionUpdateResetsReviewState(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()
	validator := "head-1"
	repo.stored["sub-1"] = models.Submission{
		ID:               "sub-1",
		AuthorID:         "emp-1",
		TermID:           "term-1",
		CategoryID:       1,
		ValidationStatus: models.StatusRejected,
		ValidatorID:      &validator,
	}

	updated, err := svc.Update(context.Background(), "emp-1", "sub-1", UpdateSubmissionRequest{
		TermID:     "term-1",
		CategoryID: 1,
		Title:      "Edited Title",
		Venue:      "Main Hall",
		Role:       "Participant",
		Dates: []SubmissionDateRequest{
			{Date: fixedDate(2026, time.July, 10), TimeStarted: "08:00", TimeEnded: "12:00"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.ValidationStatus)
	assert.Nil(t, updated.ValidatorID)
	assert.Nil(t, updated.ValidationComment)
}

func TestSubmissionUpdateForeignAuthorForbidden(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()
	repo.stored["sub-1"] = models.Submission{ID: "sub-1", AuthorID: "emp-1", TermID: "term-1"}

	_, err := svc.Update(context.Background(), "emp-2", "sub-1", UpdateSubmissionRequest{
		TermID:     "term-1",
		CategoryID: 1,
		Title:      "Edited",
		Venue:      "Main Hall",
		Role:       "Participant",
		Dates: []SubmissionDateRequest{
			{Date: fixedDate(2026, time.July, 10), TimeStarted: "08:00", TimeEnded: "12:00"},
		},
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestSubmissionDeleteOnlyPending(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()
	repo.stored["sub-1"] = models.Submission{
		ID:               "sub-1",
		AuthorID:         "emp-1",
		TermID:           "term-1",
		ValidationStatus: models.StatusApproved,
	}

	err := svc.Delete(context.Background(), "emp-1", "sub-1")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestSubmissionValidateRejectRequiresComment(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()
	repo.stored["sub-1"] = models.Submission{
		ID:               "sub-1",
		AuthorID:         "emp-1",
		TermID:           "term-1",
		ValidationStatus: models.StatusPending,
	}

	_, err := svc.Validate(context.Background(), "head-1", "sub-1", ValidateSubmissionRequest{
		Status: models.StatusRejected,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestSubmissionValidateSelfForbidden(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()
	repo.stored["sub-1"] = models.Submission{
		ID:               "sub-1",
		AuthorID:         "head-1",
		TermID:           "term-1",
		ValidationStatus: models.StatusPending,
	}

	_, err := svc.Validate(context.Background(), "head-1", "sub-1", ValidateSubmissionRequest{
		Status: models.StatusApproved,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestSubmissionValidateApprove(t *testing.T) {
	svc, repo, _ := newSubmissionFixture()
	repo.stored["sub-1"] = models.Submission{
		ID:               "sub-1",
		AuthorID:         "emp-1",
		TermID:           "term-1",
		ValidationStatus: models.StatusPending,
	}

	updated, err := svc.Validate(context.Background(), "head-1", "sub-1", ValidateSubmissionRequest{
		Status: models.StatusApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.ValidationStatus)
	require.NotNil(t, updated.ValidatorID)
	assert.Equal(t, "head-1", *updated.ValidatorID)
	assert.Equal(t, []models.ValidationStatus{models.StatusApproved}, repo.validations)
}
