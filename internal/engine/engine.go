// -----------------------------------------------------------------------
// Task Engine - per-user run-queue dispatch for the agent task types
// -----------------------------------------------------------------------

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaero/internal/common"
	"github.com/ternarybob/quaero/internal/interfaces"
	"github.com/ternarybob/quaero/internal/models"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// run tracks an in-flight task so it can be cancelled or waited on.
type run struct {
	taskID string
	userID string
	cancel context.CancelFunc
	done   chan struct{}
}

// Engine is the default interfaces.Engine implementation. It keeps a
// per-user queue of pending tasks and dispatches them to registered
// workers, never exceeding cfg.Engine.MaxConcurrentTasksPerUser active
// runs for any one user.
type Engine struct {
	cfg     *common.Config
	store   interfaces.Store
	logger  arbor.ILogger
	workers map[models.TaskType]interfaces.Worker

	mu       sync.Mutex
	active   map[string]int            // userID -> count of running tasks
	runs     map[string]*run           // taskID -> run
	pending  map[string][]*models.Task // userID -> FIFO queue of tasks waiting for a slot
	stopped  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New builds an Engine. RegisterWorker must be called for every
// models.TaskType the caller intends to Submit before Start is called.
func New(cfg *common.Config, store interfaces.Store, logger arbor.ILogger) *Engine {
	return &Engine{
		cfg:     cfg,
		store:   store,
		logger:  logger,
		workers: make(map[models.TaskType]interfaces.Worker),
		active:  make(map[string]int),
		runs:    make(map[string]*run),
		pending: make(map[string][]*models.Task),
		stopCh:  make(chan struct{}),
	}
}

func (e *Engine) RegisterWorker(taskType models.TaskType, worker interfaces.Worker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.workers[taskType] = worker
}

// Start is a no-op placeholder for symmetry with Stop; the engine has no
// background loop of its own, work is driven entirely by Submit.
func (e *Engine) Start() {
	e.logger.Info().Msg("task engine started")
}

// Stop cancels every in-flight run and waits for workers to unwind.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	for _, r := range e.runs {
		r.cancel()
	}
	e.mu.Unlock()

	e.wg.Wait()
	e.logger.Info().Msg("task engine stopped")
}

// Submit enqueues a task for execution, running it immediately if the
// user has a free concurrency slot, or holding it in the per-user pending
// queue otherwise.
func (e *Engine) Submit(ctx context.Context, task *models.Task) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return fmt.Errorf("engine is stopped")
	}
	if _, ok := e.workers[task.Type]; !ok {
		return fmt.Errorf("no worker registered for task type %q", task.Type)
	}

	if task.RecurrenceCron != "" && task.NextExecutionAt == nil {
		if schedule, err := cronParser.Parse(task.RecurrenceCron); err != nil {
			e.logger.Warn().Err(err).Str("task_id", task.ID).Str("recurrence_cron", task.RecurrenceCron).
				Msg("invalid recurrence_cron, ignoring")
		} else {
			next := schedule.Next(time.Now())
			task.NextExecutionAt = &next
		}
	}

	limit := e.cfg.Engine.MaxConcurrentTasksPerUser
	if limit <= 0 {
		limit = 2
	}

	if e.active[task.UserID] >= limit {
		e.pending[task.UserID] = append(e.pending[task.UserID], task)
		e.logger.Debug().Str("task_id", task.ID).Str("user_id", task.UserID).Msg("task queued, user at concurrency cap")
		return nil
	}

	e.startLocked(task)
	return nil
}

// Cancel requests cancellation of a running task. Tasks still sitting in
// the per-user pending queue are removed and marked cancelled directly.
func (e *Engine) Cancel(ctx context.Context, taskID string) error {
	e.mu.Lock()
	if r, ok := e.runs[taskID]; ok {
		r.cancel()
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	for userID, queue := range e.pending {
		for i, t := range queue {
			if t.ID != taskID {
				continue
			}
			e.mu.Lock()
			e.pending[userID] = append(queue[:i], queue[i+1:]...)
			e.mu.Unlock()

			t.Status = models.TaskStatusCancelled
			now := time.Now()
			t.FinishedAt = &now
			t.UpdatedAt = now
			return e.store.UpdateTask(ctx, t)
		}
	}

	return fmt.Errorf("task %s is not active or pending", taskID)
}

// startLocked marks a task running and dispatches its worker. Caller must
// hold e.mu.
func (e *Engine) startLocked(task *models.Task) {
	e.active[task.UserID]++

	runCtx, cancel := context.WithCancel(context.Background())
	if d := e.cfg.Engine.DeadlineFor(string(task.Type)); d > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, d)
	}

	r := &run{taskID: task.ID, userID: task.UserID, cancel: cancel, done: make(chan struct{})}
	e.runs[task.ID] = r

	e.wg.Add(1)
	common.SafeGoWithContext(context.Background(), e.logger, "engine-worker:"+task.ID, func() {
		defer e.wg.Done()
		e.execute(runCtx, task, r)
	})
}

// execute runs a single task to completion, handling the status
// transitions, deadline, and panic recovery, then releases the user's
// concurrency slot and promotes the next pending task if any.
func (e *Engine) execute(ctx context.Context, task *models.Task, r *run) {
	defer close(r.done)
	defer e.finish(task.UserID, task.ID)

	worker := e.workers[task.Type]

	now := time.Now()
	task.Status = models.TaskStatusRunning
	task.StartedAt = &now
	task.UpdatedAt = now
	if err := e.store.UpdateTask(ctx, task); err != nil {
		e.logger.Error().Err(err).Str("task_id", task.ID).Msg("failed to mark task running")
		return
	}

	rc := &interfaces.RunContext{
		Context: ctx,
		Task:    task,
		Store:   e.store,
		Cancelled: func() bool {
			select {
			case <-ctx.Done():
				return true
			default:
				return false
			}
		},
	}

	result, err := e.runWorker(worker, rc)

	finished := time.Now()
	task.FinishedAt = &finished
	task.UpdatedAt = finished

	switch {
	case err != nil:
		task.Status = models.TaskStatusFailed
		task.ErrorMessage = err.Error()
		e.logger.Warn().Err(err).Str("task_id", task.ID).Str("task_type", string(task.Type)).Msg("task failed")
	default:
		task.Status = models.TaskStatusCompleted
		if result != nil {
			if raw, marshalErr := json.Marshal(result); marshalErr == nil {
				task.Result = raw
			} else {
				e.logger.Warn().Err(marshalErr).Str("task_id", task.ID).Msg("failed to marshal task result")
			}
		}
	}

	if updateErr := e.store.UpdateTask(ctx, task); updateErr != nil {
		e.logger.Error().Err(updateErr).Str("task_id", task.ID).Msg("failed to persist task completion")
	}
}

// runWorker invokes the worker with panic recovery so a single bad worker
// never takes down the engine's dispatch loop.
func (e *Engine) runWorker(worker interfaces.Worker, rc *interfaces.RunContext) (result interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("worker panicked: %v", p)
		}
	}()
	return worker(rc)
}

// finish releases the user's concurrency slot and starts the next queued
// task for that user, if any.
func (e *Engine) finish(userID, taskID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.runs, taskID)
	e.active[userID]--
	if e.active[userID] < 0 {
		e.active[userID] = 0
	}

	queue := e.pending[userID]
	if len(queue) == 0 || e.stopped {
		return
	}

	next := queue[0]
	e.pending[userID] = queue[1:]
	e.startLocked(next)
}
