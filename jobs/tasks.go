package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDashboardWarmup pre-composes dashboard views for platform roles.
	TaskDashboardWarmup = "dashboard:warmup"
)

// DashboardWarmupPayload selects which roles to warm. Empty means every
// platform-scoped role.
type DashboardWarmupPayload struct {
	Roles []string `json:"roles,omitempty"`
}

// NewDashboardWarmupTask constructs an Asynq task.
func NewDashboardWarmupTask(payload DashboardWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, data), nil
}
