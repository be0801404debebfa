package authz

import "context"

// PreventPrivilegeEscalation rejects a mutation in which a non-admin
// principal assigns a role other than its own. requestedRole is the raw
// `role` field from the request payload; empty means the field was
// absent and the guard does not apply. This check is orthogonal to
// permission checks and runs in addition to them.
func (e *Engine) PreventPrivilegeEscalation(ctx context.Context, principal Principal, requestedRole string) error {
	if requestedRole == "" {
		return nil
	}
	if principal.IsAdmin() {
		e.emit(ctx, principal, Event{Outcome: OutcomeAllow, Reason: ReasonAdmin})
		return nil
	}
	if CanonicalRole(requestedRole) == principal.Role {
		e.emit(ctx, principal, Event{Outcome: OutcomeAllow, Reason: ReasonGranted})
		return nil
	}
	e.emit(ctx, principal, Event{Outcome: OutcomeDeny, Reason: ReasonEscalationDenied})
	return &ForbiddenError{
		Reason:        "privilege escalation attempt",
		RequiredRoles: []string{string(RoleAdmin)},
		ActualRole:    string(principal.Role),
	}
}
