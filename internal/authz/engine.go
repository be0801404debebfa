package authz

import (
	"context"
	"time"
)

// PermissionSource answers permission membership for a role. *Store is
// the production implementation.
type PermissionSource interface {
	HasPermission(ctx context.Context, role RoleName, permission string) bool
}

// Engine is the decision facade combining the permission source, the
// endpoint access table, the self-access rules and the escalation
// guard. Every domain route consults it through the middleware.
type Engine struct {
	source     PermissionSource
	endpoints  *EndpointTable
	selfAccess SelfAccessRuleSet
	observer   Observer
}

// NewEngine constructs an Engine. observer may be nil.
func NewEngine(source PermissionSource, endpoints *EndpointTable, selfAccess SelfAccessRuleSet, observer Observer) *Engine {
	if endpoints == nil {
		endpoints = NewEndpointTable(true)
	}
	if selfAccess == nil {
		selfAccess = DefaultSelfAccessRules()
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Engine{source: source, endpoints: endpoints, selfAccess: selfAccess, observer: observer}
}

// HasPermission reports whether the role grants any of the permissions.
func (e *Engine) HasPermission(ctx context.Context, role RoleName, permissions ...string) bool {
	if role.IsAdmin() {
		return true
	}
	for _, p := range permissions {
		if e.source.HasPermission(ctx, role, p) {
			return true
		}
	}
	return false
}

// CanAccessEndpoint reports whether the role may invoke the path.
func (e *Engine) CanAccessEndpoint(role RoleName, path string) bool {
	return e.endpoints.CanAccess(role, path)
}

// CanAccessResource evaluates permission plus self-access for the role.
// Ordering matters: the permission check runs before the ownership
// check, so the two failure modes stay distinguishable.
func (e *Engine) CanAccessResource(ctx context.Context, role RoleName, permission string, rc ResourceContext) bool {
	if role.IsAdmin() {
		return true
	}
	if !e.source.HasPermission(ctx, role, permission) {
		return false
	}
	return e.selfAccess.Satisfied(permission, rc)
}

// AuthorizeRole allows when the principal's canonical role is among the
// allowed spellings, or the principal is admin.
func (e *Engine) AuthorizeRole(ctx context.Context, principal Principal, allowed ...string) error {
	if principal.IsAdmin() {
		e.emit(ctx, principal, Event{Outcome: OutcomeAllow, Reason: ReasonAdmin})
		return nil
	}
	for _, want := range CanonicalRoles(allowed...) {
		if principal.Role == want {
			e.emit(ctx, principal, Event{Outcome: OutcomeAllow, Reason: ReasonGranted})
			return nil
		}
	}
	e.emit(ctx, principal, Event{Outcome: OutcomeDeny, Reason: ReasonRoleNotAllowed})
	return &ForbiddenError{
		Reason:        "role not allowed",
		RequiredRoles: allowed,
		ActualRole:    string(principal.Role),
	}
}

// AuthorizePermission allows when the principal's role grants any of
// the permissions.
func (e *Engine) AuthorizePermission(ctx context.Context, principal Principal, permissions ...string) error {
	if principal.IsAdmin() {
		e.emit(ctx, principal, Event{Outcome: OutcomeAllow, Reason: ReasonAdmin})
		return nil
	}
	if e.HasPermission(ctx, principal.Role, permissions...) {
		e.emit(ctx, principal, Event{Permission: first(permissions), Outcome: OutcomeAllow, Reason: ReasonGranted})
		return nil
	}
	e.emit(ctx, principal, Event{Permission: first(permissions), Outcome: OutcomeDeny, Reason: ReasonInsufficientPermission})
	return &ForbiddenError{
		Reason:              "insufficient permission",
		RequiredPermissions: permissions,
		ActualRole:          string(principal.Role),
	}
}

// AuthorizeEndpoint consults the endpoint access table for the path.
func (e *Engine) AuthorizeEndpoint(ctx context.Context, principal Principal, path string) error {
	if e.endpoints.CanAccess(principal.Role, path) {
		reason := ReasonGranted
		if principal.IsAdmin() {
			reason = ReasonAdmin
		} else if !e.endpoints.Matches(path) {
			reason = ReasonEndpointDefault
		}
		e.emit(ctx, principal, Event{Endpoint: path, Outcome: OutcomeAllow, Reason: reason})
		return nil
	}
	e.emit(ctx, principal, Event{Endpoint: path, Outcome: OutcomeDeny, Reason: ReasonEndpointDenied})
	return &ForbiddenError{
		Reason:     "endpoint not allowed for role",
		ActualRole: string(principal.Role),
	}
}

// AuthorizeResource evaluates permission plus self-access and returns a
// structured denial distinguishing missing permission from wrong owner.
func (e *Engine) AuthorizeResource(ctx context.Context, principal Principal, permission string, rc ResourceContext) error {
	if principal.IsAdmin() {
		e.emit(ctx, principal, Event{Permission: permission, Outcome: OutcomeAllow, Reason: ReasonAdmin})
		return nil
	}
	if !e.source.HasPermission(ctx, principal.Role, permission) {
		e.emit(ctx, principal, Event{Permission: permission, Outcome: OutcomeDeny, Reason: ReasonInsufficientPermission})
		return &ForbiddenError{
			Reason:              "insufficient permission",
			RequiredPermissions: []string{permission},
			ActualRole:          string(principal.Role),
		}
	}
	if !e.selfAccess.Satisfied(permission, rc) {
		e.emit(ctx, principal, Event{Permission: permission, Outcome: OutcomeDeny, Reason: ReasonOwnerMismatch})
		return &ForbiddenError{
			Reason:              "resource owned by another principal",
			RequiredPermissions: []string{permission},
			ActualRole:          string(principal.Role),
		}
	}
	e.emit(ctx, principal, Event{Permission: permission, Outcome: OutcomeAllow, Reason: ReasonGranted})
	return nil
}

func (e *Engine) emit(ctx context.Context, principal Principal, ev Event) {
	ev.PrincipalID = principal.ID
	ev.Role = principal.Role
	ev.At = time.Now()
	e.observer.Decision(ctx, ev)
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
