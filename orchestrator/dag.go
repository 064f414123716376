// Package orchestrator runs ffmpeg commands as a dependency graph with
// per-resource concurrency limits.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"chaptertrim/command"
	"chaptertrim/models"
)

// ResourceType represents different types of hardware resources
type ResourceType string

const (
	ResourceGPUEncode ResourceType = "gpu-encode" // GPU encoder block (sequential)
	ResourceCPU       ResourceType = "cpu"        // CPU processing (parallel)
	ResourceIO        ResourceType = "io"         // File I/O (sequential)
)

// ErrDependencyFailed marks tasks skipped because something they depend on
// failed.
var ErrDependencyFailed = errors.New("dependency failed")

// Task represents a unit of work with dependencies and resource requirements
type Task struct {
	ID           string
	Command      command.Command
	Dependencies []string // IDs of tasks that must complete before this one
	Resource     ResourceType
	Status       TaskStatus
	Error        error
	Result       *models.TaskResult
	StartTime    time.Time
	EndTime      time.Time

	done chan struct{}
}

// TaskStatus represents the current state of a task
type TaskStatus int

const (
	TaskPending TaskStatus = iota
	TaskReady              // Dependencies met, waiting for resource
	TaskRunning
	TaskCompleted
	TaskFailed
)

func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskReady:
		return "ready"
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ResourceConstraint defines limits for a resource type
type ResourceConstraint struct {
	Type     ResourceType
	MaxSlots int // Maximum concurrent tasks for this resource
}

// DAGOrchestrator manages task execution with dependencies and resource constraints
type DAGOrchestrator struct {
	tasks map[string]*Task
	order []string // insertion order, used for results

	slots map[ResourceType]*semaphore.Weighted

	tasksMutex sync.RWMutex
	completed  int

	// Progress tracking
	progressMutex sync.Mutex
	onProgress    func(completed, total int, task *Task)
}

// NewDAGOrchestrator creates a new orchestrator with resource constraints.
// Resources without a constraint are unlimited.
func NewDAGOrchestrator(constraints []ResourceConstraint) *DAGOrchestrator {
	slots := make(map[ResourceType]*semaphore.Weighted)
	for _, c := range constraints {
		n := c.MaxSlots
		if n < 1 {
			n = 1
		}
		slots[c.Type] = semaphore.NewWeighted(int64(n))
	}

	return &DAGOrchestrator{
		tasks: make(map[string]*Task),
		slots: slots,
	}
}

// AddTask adds a task to the orchestrator
func (o *DAGOrchestrator) AddTask(task *Task) error {
	o.tasksMutex.Lock()
	defer o.tasksMutex.Unlock()

	if task.ID == "" {
		return fmt.Errorf("task id cannot be empty")
	}
	if task.Command == nil {
		return fmt.Errorf("task %s has no command", task.ID)
	}
	if _, exists := o.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already exists", task.ID)
	}

	task.Status = TaskPending
	task.done = make(chan struct{})
	o.tasks[task.ID] = task
	o.order = append(o.order, task.ID)
	return nil
}

// SetProgressCallback sets a callback for progress updates. It is called
// once per finished task, never concurrently.
func (o *DAGOrchestrator) SetProgressCallback(callback func(completed, total int, task *Task)) {
	o.onProgress = callback
}

// Execute runs all tasks respecting dependencies and resource constraints.
//
// The first failure cancels everything still running or waiting; tasks
// that never ran are marked failed. Results are returned in the order tasks
// were added, together with the first error.
func (o *DAGOrchestrator) Execute(ctx context.Context) ([]*models.TaskResult, error) {
	// Validate DAG (no cycles, all dependencies exist)
	if err := o.validateDAG(); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range o.order {
		task := o.tasks[id]
		g.Go(func() error {
			return o.executeTask(gctx, task)
		})
	}
	err := g.Wait()

	results := make([]*models.TaskResult, 0, len(o.order))
	o.tasksMutex.RLock()
	for _, id := range o.order {
		if r := o.tasks[id].Result; r != nil {
			results = append(results, r)
		}
	}
	o.tasksMutex.RUnlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return results, ctxErr
	}
	return results, err
}

// executeTask waits for the task's dependencies and a resource slot, then
// runs its command.
func (o *DAGOrchestrator) executeTask(ctx context.Context, task *Task) error {
	defer close(task.done)

	if err := o.waitForDependencies(ctx, task); err != nil {
		o.finish(task, err)
		if errors.Is(err, ErrDependencyFailed) {
			return nil
		}
		return err
	}

	o.setStatus(task, TaskReady)

	if err := o.acquire(ctx, task.Resource); err != nil {
		o.finish(task, err)
		return err
	}
	defer o.release(task.Resource)

	o.tasksMutex.Lock()
	task.Status = TaskRunning
	task.StartTime = time.Now()
	o.tasksMutex.Unlock()

	err := task.Command.Run(ctx)
	o.finish(task, err)
	if err != nil {
		return fmt.Errorf("task %s: %w", task.ID, err)
	}
	return nil
}

func (o *DAGOrchestrator) waitForDependencies(ctx context.Context, task *Task) error {
	for _, depID := range task.Dependencies {
		dep := o.tasks[depID]
		select {
		case <-dep.done:
		case <-ctx.Done():
			return ctx.Err()
		}

		o.tasksMutex.RLock()
		failed := dep.Status == TaskFailed
		o.tasksMutex.RUnlock()
		if failed {
			return fmt.Errorf("%w: %s", ErrDependencyFailed, depID)
		}
	}
	return nil
}

// acquire takes a resource slot, or returns immediately for unconstrained
// resources.
func (o *DAGOrchestrator) acquire(ctx context.Context, resourceType ResourceType) error {
	sem, ok := o.slots[resourceType]
	if !ok {
		return nil
	}
	return sem.Acquire(ctx, 1)
}

// release releases a resource slot
func (o *DAGOrchestrator) release(resourceType ResourceType) {
	if sem, ok := o.slots[resourceType]; ok {
		sem.Release(1)
	}
}

func (o *DAGOrchestrator) setStatus(task *Task, status TaskStatus) {
	o.tasksMutex.Lock()
	task.Status = status
	o.tasksMutex.Unlock()
}

// finish records the task outcome and reports progress.
func (o *DAGOrchestrator) finish(task *Task, err error) {
	o.progressMutex.Lock()
	defer o.progressMutex.Unlock()

	o.tasksMutex.Lock()

	task.EndTime = time.Now()
	var elapsed time.Duration
	if !task.StartTime.IsZero() {
		elapsed = task.EndTime.Sub(task.StartTime)
	}

	if err != nil {
		task.Status = TaskFailed
		task.Error = err
		task.Result, _ = models.NewTaskFailure(task.ID, err, elapsed)
	} else {
		task.Status = TaskCompleted
		result, resultErr := models.NewTaskSuccess(task.ID, task.Command.GetOutputPath(), elapsed)
		if resultErr != nil {
			task.Status = TaskFailed
			task.Error = resultErr
			result, _ = models.NewTaskFailure(task.ID, resultErr, elapsed)
		}
		task.Result = result
	}

	o.completed++
	completed, total := o.completed, len(o.tasks)
	o.tasksMutex.Unlock()

	if o.onProgress != nil {
		o.onProgress(completed, total, task)
	}
}

// validateDAG validates the task graph
func (o *DAGOrchestrator) validateDAG() error {
	o.tasksMutex.RLock()
	defer o.tasksMutex.RUnlock()

	if len(o.tasks) == 0 {
		return fmt.Errorf("no tasks to execute")
	}

	// Check all dependencies exist
	for _, id := range o.order {
		task := o.tasks[id]
		for _, depID := range task.Dependencies {
			if _, exists := o.tasks[depID]; !exists {
				return fmt.Errorf("task %s depends on non-existent task %s", task.ID, depID)
			}
		}
	}

	// Check for cycles (simple DFS-based cycle detection)
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var hasCycle func(taskID string) bool
	hasCycle = func(taskID string) bool {
		visited[taskID] = true
		recStack[taskID] = true

		for _, depID := range o.tasks[taskID].Dependencies {
			if !visited[depID] {
				if hasCycle(depID) {
					return true
				}
			} else if recStack[depID] {
				return true
			}
		}

		recStack[taskID] = false
		return false
	}

	for _, id := range o.order {
		if !visited[id] && hasCycle(id) {
			return fmt.Errorf("cycle detected in task dependencies")
		}
	}

	return nil
}

// Levels groups task ids into stages: every task's dependencies sit in an
// earlier stage. Ids within a stage keep insertion order.
func (o *DAGOrchestrator) Levels() ([][]string, error) {
	if err := o.validateDAG(); err != nil {
		return nil, err
	}

	o.tasksMutex.RLock()
	defer o.tasksMutex.RUnlock()

	level := make(map[string]int, len(o.order))
	var depth func(id string) int
	depth = func(id string) int {
		if l, ok := level[id]; ok {
			return l
		}
		l := 0
		for _, dep := range o.tasks[id].Dependencies {
			l = max(l, depth(dep)+1)
		}
		level[id] = l
		return l
	}

	var levels [][]string
	for _, id := range o.order {
		l := depth(id)
		for len(levels) <= l {
			levels = append(levels, nil)
		}
		levels[l] = append(levels[l], id)
	}
	return levels, nil
}

// GetTask returns the task with id, or nil.
func (o *DAGOrchestrator) GetTask(taskID string) *Task {
	o.tasksMutex.RLock()
	defer o.tasksMutex.RUnlock()
	return o.tasks[taskID]
}

// GetTaskStatus returns the status of a task
func (o *DAGOrchestrator) GetTaskStatus(taskID string) (TaskStatus, error) {
	o.tasksMutex.RLock()
	defer o.tasksMutex.RUnlock()

	task, exists := o.tasks[taskID]
	if !exists {
		return TaskPending, fmt.Errorf("task %s not found", taskID)
	}

	return task.Status, nil
}

// GetStats returns execution statistics keyed by status name, plus "total".
func (o *DAGOrchestrator) GetStats() map[string]int {
	o.tasksMutex.RLock()
	defer o.tasksMutex.RUnlock()

	stats := map[string]int{
		"total":     len(o.tasks),
		"pending":   0,
		"ready":     0,
		"running":   0,
		"completed": 0,
		"failed":    0,
	}
	for _, task := range o.tasks {
		stats[task.Status.String()]++
	}
	return stats
}
