// Package jobs holds the asynq task definitions and background handlers.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Queue names.
const (
	QueueDefault = "default"
)

// Task type identifiers.
const (
	TaskDeadlineScan = "deadline:scan"
)

// DeadlineScanPayload parameterises the due-soon digest scan.
type DeadlineScanPayload struct {
	WindowDays int `json:"window_days"`
}

// NewDeadlineScanTask builds a deadline scan task.
func NewDeadlineScanTask(payload DeadlineScanPayload) (*asynq.Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDeadlineScan, raw), nil
}
