package authz

import (
	"context"
	"log/slog"
	"time"
)

// Outcome of an authorization decision.
type Outcome string

const (
	OutcomeAllow Outcome = "allow"
	OutcomeDeny  Outcome = "deny"
)

// Decision reasons, kept stable for metrics labels and diagnostics.
const (
	ReasonAdmin                  = "admin"
	ReasonGranted                = "granted"
	ReasonInsufficientPermission = "insufficient_permission"
	ReasonRoleNotAllowed         = "role_not_allowed"
	ReasonOwnerMismatch          = "owner_mismatch"
	ReasonEndpointDenied         = "endpoint_denied"
	ReasonEndpointDefault        = "endpoint_default"
	ReasonEscalationDenied       = "escalation_denied"
)

// Event is one authorization decision, emitted through the Observer
// instead of inline tracing on the hot path.
type Event struct {
	PrincipalID int64
	Role        RoleName
	Permission  string
	Endpoint    string
	Outcome     Outcome
	Reason      string
	At          time.Time
}

// Observer receives decision-audit events. Implementations must be safe
// for concurrent use and must not block the decision path.
type Observer interface {
	Decision(ctx context.Context, ev Event)
}

// NopObserver discards all events.
type NopObserver struct{}

// Decision implements Observer.
func (NopObserver) Decision(context.Context, Event) {}

// LogObserver writes decisions to a structured logger: denials at warn,
// allows at debug.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver constructs a LogObserver.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

// Decision implements Observer.
func (o *LogObserver) Decision(ctx context.Context, ev Event) {
	attrs := []any{
		slog.Int64("principal_id", ev.PrincipalID),
		slog.String("role", string(ev.Role)),
		slog.String("outcome", string(ev.Outcome)),
		slog.String("reason", ev.Reason),
	}
	if ev.Permission != "" {
		attrs = append(attrs, slog.String("permission", ev.Permission))
	}
	if ev.Endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", ev.Endpoint))
	}
	if ev.Outcome == OutcomeDeny {
		o.logger.Warn("authorization denied", attrs...)
		return
	}
	o.logger.Debug("authorization allowed", attrs...)
}

// MultiObserver fans one event out to several observers.
type MultiObserver []Observer

// Decision implements Observer.
func (m MultiObserver) Decision(ctx context.Context, ev Event) {
	for _, o := range m {
		if o != nil {
			o.Decision(ctx, ev)
		}
	}
}
