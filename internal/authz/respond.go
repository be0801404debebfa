package authz

import (
	"errors"
	"net/http"

	"github.com/lyceum-app/lyceum/internal/platform/httpx"
)

// RespondError maps engine error kinds to RFC7807 responses. The engine
// itself is transport-agnostic; this is the one place its taxonomy
// becomes status codes, shared by every handler that calls the engine.
func RespondError(w http.ResponseWriter, err error) {
	var forbidden *ForbiddenError
	switch {
	case errors.Is(err, ErrUnauthenticated):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "missing or invalid credential")
	case errors.As(err, &forbidden):
		httpx.JSON(w, http.StatusForbidden, httpx.ProblemDetail{
			Title:               "Forbidden",
			Status:              http.StatusForbidden,
			Detail:              forbidden.Reason,
			RequiredRoles:       forbidden.RequiredRoles,
			RequiredPermissions: forbidden.RequiredPermissions,
		})
	case errors.Is(err, ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrUnavailable):
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "authorization store unavailable")
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
