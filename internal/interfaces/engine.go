package interfaces

import (
	"context"

	"github.com/ternarybob/quaero/internal/models"
)

// RunContext is handed to a worker by the engine. It carries the task
// being executed plus a cancellation check the worker should poll at
// natural suspension points (between pages, between batches).
type RunContext struct {
	Context   context.Context
	Task      *models.Task
	Store     Store
	Cancelled func() bool
}

// Worker executes one task type to completion. A panic inside a worker is
// recovered by the engine and converted into a failed task; a worker must
// otherwise return a result value, which the engine marshals into
// Task.Result, or an error.
type Worker func(rc *RunContext) (result interface{}, err error)

// Engine dispatches tasks to registered workers under a per-user
// concurrency cap and per-task-type wall-clock deadline.
type Engine interface {
	RegisterWorker(taskType models.TaskType, worker Worker)
	Submit(ctx context.Context, task *models.Task) error
	Cancel(ctx context.Context, taskID string) error
	Start()
	Stop()
}
