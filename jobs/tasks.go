package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRoleStatsWarmup refreshes the role cache and stats snapshot.
	TaskRoleStatsWarmup = "authz:stats_warmup"
)

// RoleStatsWarmupPayload selects which roles to warm. An empty Scope
// warms every role.
type RoleStatsWarmupPayload struct {
	Scope string `json:"scope"`
}

// NewRoleStatsWarmupTask constructs an Asynq task.
func NewRoleStatsWarmupTask(scope string) (*asynq.Task, error) {
	data, err := json.Marshal(RoleStatsWarmupPayload{Scope: scope})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRoleStatsWarmup, data), nil
}
