package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/pointwatch/swtd-api/internal/models"
)

func injectClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func rbacRouter(claims *models.JWTClaims, guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/resource/:id", injectClaims(claims), guard, func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestRBACAllowsListedRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleHR}
	router := rbacRouter(claims, RBAC("HR", "ADMIN"))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/resource/u2", nil))

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRBACSelfMatchesPathID(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleStaff}
	router := rbacRouter(claims, RBAC("ADMIN", "SELF"))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/resource/u1", nil))
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("self access should pass, got %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/resource/u2", nil))
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("foreign id should be forbidden, got %d", recorder.Code)
	}
}

func TestRequireRolesRejectsOthers(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleStaff}
	router := rbacRouter(claims, RequireRoles(models.RoleHR, models.RoleAdmin))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/resource/u1", nil))

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestDepartmentScopeLimitsHeads(t *testing.T) {
	dept := "dept-cs"
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleHead, DepartmentID: &dept}
	router := rbacRouter(claims, DepartmentScope())

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/resource/dept-cs", nil))
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("own department should pass, got %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/resource/dept-lib", nil))
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("foreign department should be forbidden, got %d", recorder.Code)
	}
}

func TestDepartmentScopeAdminBypass(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}
	router := rbacRouter(claims, DepartmentScope())

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/resource/dept-lib", nil))

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}
