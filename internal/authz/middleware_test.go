package authz

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/lyceum-app/lyceum/internal/platform/httpx"
)

type stubResolver struct {
	principal Principal
	err       error
}

func (s stubResolver) Resolve(r *http.Request) (Principal, error) {
	if s.err != nil {
		return Principal{}, s.err
	}
	return s.principal, nil
}

func newTestRouter(resolver PrincipalResolver) (chi.Router, Middleware) {
	mw := Middleware{Engine: testEngine(nil), Resolver: resolver}
	r := chi.NewRouter()
	r.Use(mw.WithPrincipal())
	r.Use(mw.RequireEndpointAccess())
	return r, mw
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func TestEndpointMiddlewareDeniesAdminPathsForNonAdmin(t *testing.T) {
	r, _ := newTestRouter(stubResolver{principal: Principal{ID: 5, Role: "TEACHER"}})
	r.Get("/api/admin/settings", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/settings", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEndpointMiddlewareAdminPasses(t *testing.T) {
	r, _ := newTestRouter(stubResolver{principal: Principal{ID: 1, Role: RoleAdmin}})
	r.Get("/api/admin/settings", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/settings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestEndpointMiddlewarePublicPathWithoutCredential(t *testing.T) {
	r, _ := newTestRouter(stubResolver{err: ErrUnauthenticated})
	r.Post("/api/auth/login", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthenticatedWithoutCredential(t *testing.T) {
	r, mw := newTestRouter(stubResolver{err: ErrUnauthenticated})
	r.With(mw.RequireAuthenticated()).Get("/api/grades/mine", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/grades/mine", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequirePermissionForbiddenPayload(t *testing.T) {
	r, mw := newTestRouter(stubResolver{principal: Principal{ID: 5, Role: "TEACHER"}})
	r.With(mw.RequirePermission(PermManageFees)).Post("/api/fees", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/fees", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, http.StatusForbidden, problem.Status)
	require.Equal(t, []string{PermManageFees}, problem.RequiredPermissions)
}

func TestRequireRoleForbiddenListsRequiredRoles(t *testing.T) {
	r, mw := newTestRouter(stubResolver{principal: Principal{ID: 5, Role: "STUDENT"}})
	r.With(mw.RequireRole("teacher", "head-teacher")).Get("/api/grades/entry", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/grades/entry", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, []string{"teacher", "head-teacher"}, problem.RequiredRoles)
}

func TestEscalationMiddlewareBlocksRoleAssignment(t *testing.T) {
	r, mw := newTestRouter(stubResolver{principal: Principal{ID: 5, Role: "TEACHER"}})
	r.With(mw.PreventPrivilegeEscalation()).Put("/api/accounts/5", okHandler)

	body := strings.NewReader(`{"name":"T. Chalk","role":"admin"}`)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/accounts/5", body))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEscalationMiddlewareRestoresBody(t *testing.T) {
	r, mw := newTestRouter(stubResolver{principal: Principal{ID: 5, Role: "TEACHER"}})

	var seen struct {
		Name string `json:"name"`
		Role string `json:"role"`
	}
	r.With(mw.PreventPrivilegeEscalation()).Put("/api/accounts/5", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&seen))
		w.WriteHeader(http.StatusOK)
	})

	body := strings.NewReader(`{"name":"T. Chalk","role":"teacher"}`)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/accounts/5", body))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "T. Chalk", seen.Name)
	require.Equal(t, "teacher", seen.Role)
}

func TestEscalationMiddlewareIgnoresPayloadsWithoutRole(t *testing.T) {
	r, mw := newTestRouter(stubResolver{principal: Principal{ID: 5, Role: "TEACHER"}})
	r.With(mw.PreventPrivilegeEscalation()).Put("/api/accounts/5", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/accounts/5", strings.NewReader(`{"name":"x"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermissionWithContextOwnership(t *testing.T) {
	r, mw := newTestRouter(stubResolver{principal: Principal{ID: 2, Role: "STUDENT"}})

	extract := func(req *http.Request, principal Principal) ResourceContext {
		return ResourceContext{
			RequesterID:     "2",
			ResourceOwnerID: chi.URLParam(req, "studentID"),
		}
	}
	r.With(mw.RequirePermissionWithContext(PermViewOwnGrades, extract)).
		Get("/api/students/{studentID}/grades", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/students/2/grades", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/students/3/grades", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
}
