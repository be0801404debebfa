package audit

import (
	"context"
	"fmt"

	"github.com/lyceum-app/lyceum/internal/authz"
)

// RoleMutation implements authz.MutationAudit: every role create,
// update, and delete lands in the audit log.
func (r *Recorder) RoleMutation(ctx context.Context, actorID int64, action string, role authz.Role) {
	detail := fmt.Sprintf("permissions=%d system=%t", len(role.Permissions), role.IsSystem)
	r.Record(ctx, actorID, action, "role", string(role.Canonical), detail)
}

// DecisionObserver persists denied authorization decisions. Allowed
// decisions are high volume and stay out of the durable log.
type DecisionObserver struct {
	recorder *Recorder
}

// NewDecisionObserver constructs a DecisionObserver.
func NewDecisionObserver(recorder *Recorder) *DecisionObserver {
	return &DecisionObserver{recorder: recorder}
}

// Decision implements authz.Observer.
func (o *DecisionObserver) Decision(ctx context.Context, ev authz.Event) {
	if ev.Outcome != authz.OutcomeDeny {
		return
	}
	target := ev.Permission
	if target == "" {
		target = ev.Endpoint
	}
	detail := fmt.Sprintf("role=%s reason=%s", ev.Role, ev.Reason)
	o.recorder.Record(ctx, ev.PrincipalID, "authz.denied", "decision", target, detail)
}
