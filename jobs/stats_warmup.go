package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/lyceum-app/lyceum/internal/authz"
)

// RoleStatsWarmupJob walks the role table, re-resolving every role so
// the cache holds fresh entries, and precomputes the usage stats the
// management endpoints read.
type RoleStatsWarmupJob struct {
	store  *authz.Store
	logger *slog.Logger
}

// NewRoleStatsWarmupJob constructs the job.
func NewRoleStatsWarmupJob(store *authz.Store, logger *slog.Logger) *RoleStatsWarmupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoleStatsWarmupJob{store: store, logger: logger}
}

// Handle processes TaskRoleStatsWarmup tasks.
func (j *RoleStatsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload RoleStatsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	roles, err := j.store.ListRoles(ctx)
	if err != nil {
		return err
	}
	warmed := 0
	for _, role := range roles {
		if _, err := j.store.ResolveRole(ctx, string(role.Canonical)); err != nil {
			j.logger.Warn("warm role", slog.String("role", string(role.Canonical)), slog.Any("error", err))
			continue
		}
		warmed++
	}
	stats, err := j.store.RoleStats(ctx)
	if err != nil {
		return err
	}
	j.logger.Info("role stats warmup",
		slog.String("scope", payload.Scope),
		slog.Int("warmed", warmed),
		slog.Int("roles", len(stats)))
	return nil
}
