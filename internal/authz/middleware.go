package authz

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// ContextExtractor derives the self-access resource context from the
// request. The principal is supplied so extractors can fill the
// requester side without re-parsing the credential.
type ContextExtractor func(r *http.Request, principal Principal) ResourceContext

// PrincipalResolver resolves the request credential into a Principal,
// or an error wrapping ErrUnauthenticated. identity.Resolver is the
// production implementation.
type PrincipalResolver interface {
	Resolve(r *http.Request) (Principal, error)
}

// Middleware wires the engine's checks into chi handler chains.
type Middleware struct {
	Engine   *Engine
	Resolver PrincipalResolver
	Logger   *slog.Logger
}

// WithPrincipal resolves the bearer credential when present and stores
// the principal in context. It never short-circuits: endpoints behind
// RequireAuthenticated enforce presence, public ones proceed without.
func (m Middleware) WithPrincipal() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if principal, err := m.Resolver.Resolve(r); err == nil {
				r = r.WithContext(ContextWithPrincipal(r.Context(), principal))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthenticated populates the principal or short-circuits with
// Unauthenticated.
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				resolved, err := m.Resolver.Resolve(r)
				if err != nil {
					RespondError(w, ErrUnauthenticated)
					return
				}
				principal = resolved
				r = r.WithContext(ContextWithPrincipal(r.Context(), principal))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole allows principals whose canonical role is among the
// allowed spellings, or admins.
func (m Middleware) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				RespondError(w, ErrUnauthenticated)
				return
			}
			if err := m.Engine.AuthorizeRole(r.Context(), principal, allowed...); err != nil {
				RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission allows principals whose role grants any of the
// permissions.
func (m Middleware) RequirePermission(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				RespondError(w, ErrUnauthenticated)
				return
			}
			if err := m.Engine.AuthorizePermission(r.Context(), principal, permissions...); err != nil {
				RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermissionWithContext runs the resource check using a
// caller-supplied context extractor.
func (m Middleware) RequirePermissionWithContext(permission string, extract ContextExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				RespondError(w, ErrUnauthenticated)
				return
			}
			var rc ResourceContext
			if extract != nil {
				rc = extract(r, principal)
			}
			if err := m.Engine.AuthorizeResource(r.Context(), principal, permission, rc); err != nil {
				RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireEndpointAccess consults the endpoint access table for the
// current path. Public rules admit unauthenticated callers.
func (m Middleware) RequireEndpointAccess() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, _ := PrincipalFromContext(r.Context())
			if err := m.Engine.AuthorizeEndpoint(r.Context(), principal, r.URL.Path); err != nil {
				RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type roleField struct {
	Role string `json:"role"`
}

// PreventPrivilegeEscalation inspects the JSON payload of a mutation
// for a `role` field and rejects non-admin principals assigning a role
// other than their own. The body is restored for downstream handlers.
func (m Middleware) PreventPrivilegeEscalation() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				RespondError(w, ErrUnauthenticated)
				return
			}
			requested, restore, err := peekRoleField(r)
			if err != nil {
				RespondError(w, err)
				return
			}
			restore()
			if err := m.Engine.PreventPrivilegeEscalation(r.Context(), principal, requested); err != nil {
				RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// peekRoleField reads the body far enough to learn whether it carries a
// role field, then hands back a restore func so the handler can decode
// the payload again. A body that is not JSON is left to the handler to
// reject; the guard only cares about the role field.
func peekRoleField(r *http.Request) (string, func(), error) {
	if r.Body == nil {
		return "", func() {}, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return "", nil, ErrValidation
	}
	_ = r.Body.Close()
	restore := func() {
		r.Body = io.NopCloser(bytes.NewReader(body))
	}
	var payload roleField
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", restore, nil
	}
	return payload.Role, restore, nil
}
