package authz

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lyceum-app/lyceum/internal/platform/httpx"
)

// Handler exposes the role management surface and the self-service
// permission endpoints.
type Handler struct {
	logger    *slog.Logger
	store     *Store
	engine    *Engine
	mw        Middleware
	validator *validator.Validate
	titler    cases.Caser
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, store *Store, engine *Engine, mw Middleware) *Handler {
	return &Handler{
		logger:    logger,
		store:     store,
		engine:    engine,
		mw:        mw,
		validator: validator.New(),
		titler:    cases.Title(language.English),
	}
}

// MountRoutes registers the management surface. Reads require
// view_roles, mutations manage_roles; admin passes either way.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/roles", func(r chi.Router) {
		r.Use(h.mw.RequireAuthenticated())
		r.Group(func(r chi.Router) {
			r.Use(h.mw.RequirePermission(PermViewRoles))
			r.Get("/", h.listRoles)
			r.Get("/stats", h.roleStats)
			r.Get("/{roleID}", h.getRole)
			r.Get("/{roleID}/permissions", h.rolePermissions)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.mw.RequirePermission(PermManageRoles))
			r.Post("/", h.createRole)
			r.Put("/{roleID}", h.updateRole)
			r.Delete("/{roleID}", h.deleteRole)
		})
	})
	r.With(h.mw.RequireAuthenticated(), h.mw.RequirePermission(PermViewPermissions)).
		Get("/permissions/catalog", h.catalog)
	r.With(h.mw.RequireAuthenticated()).Get("/my/permissions", h.myPermissions)
	r.With(h.mw.RequireAuthenticated()).Post("/check-permission", h.checkPermission)
}

type roleResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	IsSystem    bool      `json:"isSystem"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (h *Handler) toResponse(role Role) roleResponse {
	label := h.titler.String(strings.NewReplacer("-", " ", "_", " ").Replace(role.Name))
	return roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Label:       label,
		Description: role.Description,
		IsSystem:    role.IsSystem,
		Permissions: role.Permissions,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.store.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		RespondError(w, err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, h.toResponse(role))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	role, err := h.store.GetRole(r.Context(), id)
	if err != nil {
		RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.toResponse(role))
}

func (h *Handler) rolePermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	role, err := h.store.GetRole(r.Context(), id)
	if err != nil {
		RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role": role.Name, "permissions": role.Permissions})
}

type createRoleRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=64"`
	Description string   `json:"description" validate:"max=255"`
	Permissions []string `json:"permissions" validate:"required,min=1,dive,required"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.store.CreateRole(r.Context(), CreateRoleInput{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
	}, principal.ID)
	if err != nil {
		RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, h.toResponse(role))
}

type updateRoleRequest struct {
	Name        string   `json:"name" validate:"omitempty,min=2,max=64"`
	Description string   `json:"description" validate:"max=255"`
	Permissions []string `json:"permissions" validate:"required,min=1,dive,required"`
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	var req updateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.store.UpdateRole(r.Context(), id, UpdateRolePatch{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
	}, principal.ID)
	if err != nil {
		RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.toResponse(role))
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteRole(r.Context(), id, principal.ID); err != nil {
		RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"version":    CatalogVersion,
		"categories": CatalogByCategory(),
	})
}

func (h *Handler) roleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.RoleStats(r.Context())
	if err != nil {
		h.logger.Error("role stats", slog.Any("error", err))
		RespondError(w, err)
		return
	}
	type statRow struct {
		Role       string `json:"role"`
		IsSystem   bool   `json:"isSystem"`
		Principals int64  `json:"principals"`
	}
	rows := make([]statRow, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, statRow{Role: s.Role.Name, IsSystem: s.Role.IsSystem, Principals: s.Principals})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"stats": rows})
}

func (h *Handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if principal.IsAdmin() {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"role":        string(principal.Role),
			"permissions": Catalog(),
			"superuser":   true,
		})
		return
	}
	role, err := h.store.ResolveRole(r.Context(), string(principal.Role))
	if err != nil {
		RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":        role.Name,
		"permissions": role.Permissions,
		"superuser":   false,
	})
}

type checkPermissionRequest struct {
	Role       string `json:"role" validate:"required"`
	Permission string `json:"permission" validate:"required"`
}

// checkPermission evaluates a hypothetical role/permission combination
// for auditing purposes. It never mutates state.
func (h *Handler) checkPermission(w http.ResponseWriter, r *http.Request) {
	var req checkPermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	allowed := h.engine.HasPermission(r.Context(), CanonicalRole(req.Role), req.Permission)
	reason := ReasonGranted
	if CanonicalRole(req.Role).IsAdmin() {
		reason = ReasonAdmin
	} else if !allowed {
		reason = ReasonInsufficientPermission
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":       req.Role,
		"permission": req.Permission,
		"allowed":    allowed,
		"reason":     reason,
	})
}

func (h *Handler) roleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "roleID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return 0, false
	}
	return id, true
}
