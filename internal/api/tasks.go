package api

import (
	"github.com/Sumatoshi-tech/preflight/internal/bundleerrors"
	"github.com/Sumatoshi-tech/preflight/internal/progress"
)

// GetTaskStatus returns the current state of an in-flight or completed
// bundle-construction task (spec §6 `get_task_status`, spec §4.F).
func (e *Env) GetTaskStatus(taskID string) (progress.Task, error) {
	task, found := e.Tracker.ByID(taskID)
	if !found {
		return progress.Task{}, bundleerrors.New(bundleerrors.CodeOperationFailed, "no task with this id").
			WithContext("taskId", taskID)
	}

	return task, nil
}
