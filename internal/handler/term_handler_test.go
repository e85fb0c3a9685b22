package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pointwatch/swtd-api/internal/models"
	"github.com/pointwatch/swtd-api/internal/service"
)

type stubTermRepo struct {
	terms       map[string]*models.Term
	submissions map[string]int
}

func (s *stubTermRepo) List(ctx context.Context, filter models.TermFilter) ([]models.Term, int, error) {
	var out []models.Term
	for _, t := range s.terms {
		out = append(out, *t)
	}
	return out, len(out), nil
}

func (s *stubTermRepo) FindByID(ctx context.Context, id string) (*models.Term, error) {
	if t, ok := s.terms[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubTermRepo) FindOngoing(ctx context.Context, termType models.TermType) (*models.Term, error) {
	for _, t := range s.terms {
		if t.Type == termType && t.IsOngoing {
			return t, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubTermRepo) ExistsByNameAndType(ctx context.Context, name string, termType models.TermType, excludeID string) (bool, error) {
	return false, nil
}

func (s *stubTermRepo) Create(ctx context.Context, term *models.Term) error {
	term.ID = "created"
	s.terms[term.ID] = term
	return nil
}

func (s *stubTermRepo) Update(ctx context.Context, term *models.Term) error {
	s.terms[term.ID] = term
	return nil
}

func (s *stubTermRepo) SetOngoing(ctx context.Context, id string, termType models.TermType) error {
	return nil
}

func (s *stubTermRepo) Delete(ctx context.Context, id string) error {
	delete(s.terms, id)
	return nil
}

func (s *stubTermRepo) CountSubmissions(ctx context.Context, id string) (int, error) {
	return s.submissions[id], nil
}

func newTermTestRouter() (*gin.Engine, *stubTermRepo) {
	gin.SetMode(gin.TestMode)
	repo := &stubTermRepo{
		terms: map[string]*models.Term{
			"t1": {
				ID:   "t1",
				Name: "First Semester 2026",
				Type: models.TermTypeSemester,
			},
		},
		submissions: map[string]int{},
	}
	handler := NewTermHandler(service.NewTermService(repo, nil, nil))

	router := gin.New()
	router.GET("/terms", handler.List)
	router.GET("/terms/ongoing", handler.GetOngoing)
	router.GET("/terms/:id", handler.Get)
	router.DELETE("/terms/:id", handler.Delete)
	return router, repo
}

func TestTermHandlerList(t *testing.T) {
	router, _ := newTermTestRouter()

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/terms", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestTermHandlerGetMissing(t *testing.T) {
	router, _ := newTermTestRouter()

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/terms/nope", nil))

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestTermHandlerDeleteOngoingBlocked(t *testing.T) {
	router, repo := newTermTestRouter()
	repo.terms["t1"].IsOngoing = true

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodDelete, "/terms/t1", nil))

	if recorder.Code != http.StatusPreconditionFailed {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestTermHandlerGetOngoing(t *testing.T) {
	router, repo := newTermTestRouter()
	repo.terms["t1"].Type = models.TermTypeSemester
	repo.terms["t1"].IsOngoing = true
	repo.terms["t1"].StartDate = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	repo.terms["t1"].EndDate = time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/terms/ongoing?type=SEMESTER", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}
