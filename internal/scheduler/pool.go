package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/johnsonfarmsus/claw-conductor/internal/events"
	"github.com/johnsonfarmsus/claw-conductor/internal/executor"
	"github.com/johnsonfarmsus/claw-conductor/internal/logging"
)

const (
	// DefaultMaxWorkers bounds concurrent executor dispatches when the
	// config does not say otherwise.
	DefaultMaxWorkers = 5

	// DefaultTaskTimeout bounds a single executor dispatch.
	DefaultTaskTimeout = 30 * time.Minute
)

// PoolConfig configures a worker pool. One pool drains one project's task
// list, start to finish.
type PoolConfig struct {
	Project     ProjectRef
	MaxWorkers  int             // Max concurrent executor dispatches (default 5)
	TaskTimeout time.Duration   // Per-dispatch timeout (default 30m)
	Bus         *events.Bus     // Optional event sink (nil disables)
	Log         *logging.Logger // Optional logger (nil discards)
}

// Pool admits queued tasks to workers as dependencies resolve and file
// targets free up, bounded by MaxWorkers. All bookkeeping lives under one
// mutex; executor dispatches run on their own goroutines and re-enter the
// critical section exactly once, at completion. Admission itself happens on
// a dedicated dispatcher goroutine so a completing worker never dispatches
// its successor from inside its own worker slot.
type Pool struct {
	cfg   PoolConfig
	graph *Graph
	execs *executor.Registry
	log   *logging.Logger

	baseCtx context.Context
	group   *errgroup.Group

	mu        sync.Mutex
	queue     []string            // Scheduled task IDs awaiting admission, submission order
	scheduled map[string]bool     // Guards against double-scheduling
	running   map[string][]string // Running task ID -> file targets held
	blocked   map[string][]string // Task ID -> failed dependency IDs, entries pruned from the queue
	results   map[string]*Result  // Append-only terminal results
	active    int                 // Running worker count, bounded by MaxWorkers
	workerSeq int
	drainCh   chan struct{} // Closed when queue and active set empty; nil when no waiter armed it

	wake chan struct{} // Wakes the dispatcher after schedule and completion
}

// NewPool creates a pool over a validated graph and starts its dispatcher.
// The context bounds the whole episode: cancelling it stops admission and
// cancels in-flight dispatches.
func NewPool(ctx context.Context, cfg PoolConfig, graph *Graph, execs *executor.Registry) *Pool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = DefaultTaskTimeout
	}
	if cfg.Log == nil {
		cfg.Log = logging.Nop()
	}

	group := &errgroup.Group{}
	group.SetLimit(cfg.MaxWorkers)

	p := &Pool{
		cfg:       cfg,
		graph:     graph,
		execs:     execs,
		log:       cfg.Log.WithComponent("pool"),
		baseCtx:   ctx,
		group:     group,
		scheduled: make(map[string]bool),
		running:   make(map[string][]string),
		blocked:   make(map[string][]string),
		results:   make(map[string]*Result),
		wake:      make(chan struct{}, 1),
	}

	go p.dispatch()

	return p
}

// Schedule appends a task to the admission queue. The task must exist in
// the pool's graph and may be scheduled only once.
func (p *Pool) Schedule(task *Task) error {
	if task == nil {
		return fmt.Errorf("nil task")
	}
	if err := p.baseCtx.Err(); err != nil {
		return fmt.Errorf("pool shut down: %w", err)
	}

	p.mu.Lock()
	if _, exists := p.graph.Get(task.ID); !exists {
		p.mu.Unlock()
		return fmt.Errorf("task %q not in graph", task.ID)
	}
	if p.scheduled[task.ID] {
		p.mu.Unlock()
		return fmt.Errorf("task %q already scheduled", task.ID)
	}
	p.scheduled[task.ID] = true
	p.queue = append(p.queue, task.ID)
	p.mu.Unlock()

	p.publish(events.TaskScheduledEvent{
		ID:          task.ID,
		Description: task.Description,
		Category:    task.Category,
		Project:     p.cfg.Project.Name,
		Timestamp:   time.Now(),
	})
	p.log.Debug("task scheduled", "task_id", task.ID)

	p.poke()
	return nil
}

// WaitAll blocks until the queue is empty and no workers are active, or the
// context is cancelled. Safe to call concurrently with ongoing scheduling.
func (p *Pool) WaitAll(ctx context.Context) error {
	p.mu.Lock()
	if p.drainedLocked() {
		p.mu.Unlock()
		return nil
	}
	if p.drainCh == nil {
		p.drainCh = make(chan struct{})
	}
	drained := p.drainCh
	p.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) drainedLocked() bool {
	return len(p.queue) == 0 && p.active == 0
}

// poke wakes the dispatcher without blocking. The buffer of one collapses
// bursts; the dispatcher rescans the full queue on every wake.
func (p *Pool) poke() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// dispatch is the admission loop. It owns all transitions from queued to
// running and signals drain when the pool goes idle.
func (p *Pool) dispatch() {
	for {
		select {
		case <-p.baseCtx.Done():
			return
		case <-p.wake:
		}

		p.admitReady()
		p.signalDrain()
	}
}

// admitReady repeats admission scans until capacity runs out or no queued
// task is admissible. Each scan admits at most one task.
func (p *Pool) admitReady() {
	for {
		task, workerID, pruned := p.admitOne()

		for _, ev := range pruned {
			p.log.Warn("task blocked by failed dependency",
				"task_id", ev.ID, "failed_deps", ev.FailedDeps)
			p.publish(ev)
		}

		if task == nil {
			return
		}

		p.log.Info("task admitted", "task_id", task.ID, "worker", workerID)
		p.publish(p.progressEvent())

		t := task
		p.group.Go(func() error {
			p.runTask(t, workerID)
			return nil // Task outcomes live in the graph, not the group error
		})
	}
}

// admitOne scans the queue in submission order under the pool mutex.
// Entries permanently blocked by a failed dependency are pruned so the
// drain terminates; their status stays pending. The first entry that is
// dependency-satisfied and overlaps no running task's file targets is
// admitted: dequeued, marked running, bound to a new worker. Dispatch
// happens outside the mutex, in the caller.
func (p *Pool) admitOne() (*Task, string, []events.TaskBlockedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var pruned []events.TaskBlockedEvent

	if p.active >= p.cfg.MaxWorkers {
		return nil, "", pruned
	}

	i := 0
	for i < len(p.queue) {
		id := p.queue[i]

		if failed := p.graph.BlockedBy(id); len(failed) > 0 {
			p.queue = append(p.queue[:i], p.queue[i+1:]...)
			p.blocked[id] = failed
			pruned = append(pruned, events.TaskBlockedEvent{
				ID:         id,
				FailedDeps: failed,
				Project:    p.cfg.Project.Name,
				Timestamp:  time.Now(),
			})
			continue
		}

		if !p.graph.IsSatisfied(id) {
			i++
			continue
		}

		task, _ := p.graph.Get(id)
		if p.overlapsRunningLocked(task.FileTargets) {
			i++
			continue
		}

		p.queue = append(p.queue[:i], p.queue[i+1:]...)
		if err := p.graph.MarkRunning(id); err != nil {
			p.log.Error("dropping unadmittable task", "task_id", id, "error", err)
			continue
		}
		p.active++
		p.workerSeq++
		p.running[id] = task.FileTargets

		return task, fmt.Sprintf("worker-%d", p.workerSeq), pruned
	}

	return nil, "", pruned
}

// overlapsRunningLocked reports whether the targets conflict with any
// running task of this pool's project. Caller holds p.mu.
func (p *Pool) overlapsRunningLocked(targets []string) bool {
	for _, held := range p.running {
		if AnyTargetsOverlap(targets, held) {
			return true
		}
	}
	return false
}

// runTask performs one executor dispatch and records the terminal result.
// Runs on a worker goroutine; re-enters the pool mutex exactly once.
func (p *Pool) runTask(task *Task, workerID string) {
	log := p.log.WithTask(task.ID).With("worker", workerID)

	exec, resolveErr := p.execs.Resolve(task.ExecutorID)
	execID := task.ExecutorID
	if resolveErr == nil {
		execID = exec.ID()
	}

	p.publish(events.TaskStartedEvent{
		ID:          task.ID,
		Description: task.Description,
		ExecutorID:  execID,
		WorkerID:    workerID,
		Project:     p.cfg.Project.Name,
		Timestamp:   time.Now(),
	})
	log.Info("task started", "executor", execID)

	var res *executor.Result
	err := resolveErr
	if err == nil {
		runCtx, cancel := context.WithTimeout(p.baseCtx, p.cfg.TaskTimeout)
		res, err = exec.Run(runCtx, executor.Request{
			TaskID:      task.ID,
			Description: task.Description,
			Category:    task.Category,
			Complexity:  task.Complexity,
			FileTargets: task.FileTargets,
			Workspace:   p.cfg.Project.Workspace,
			ExecutorID:  execID,
		})
		cancel()
	}

	result := &Result{}
	switch {
	case err != nil:
		// Transport failure or timeout: an ordinary task failure
		result.Error = err.Error()
		if res != nil {
			result.Output = res.Output
		}
	case !res.Success:
		result.Output = res.Output
		result.Error = res.ErrorText
		if result.Error == "" {
			result.Error = "executor reported failure"
		}
	default:
		result.Success = true
		result.Output = res.Output
		result.ModifiedFiles = append([]string(nil), task.FileTargets...)
	}

	p.mu.Lock()
	if result.Success {
		_ = p.graph.MarkCompleted(task.ID, result)
	} else {
		_ = p.graph.MarkFailed(task.ID, result)
	}
	p.results[task.ID] = result
	delete(p.running, task.ID)
	p.active--
	p.mu.Unlock()

	finished, _ := p.graph.Get(task.ID)
	duration := finished.Duration()

	if result.Success {
		log.Info("task completed", "duration", duration)
		p.publish(events.TaskCompletedEvent{
			ID:            task.ID,
			Project:       p.cfg.Project.Name,
			Output:        result.Output,
			ModifiedFiles: result.ModifiedFiles,
			Duration:      duration,
			Timestamp:     time.Now(),
		})
	} else {
		log.Warn("task failed", "error", result.Error, "duration", duration)
		p.publish(events.TaskFailedEvent{
			ID:        task.ID,
			Project:   p.cfg.Project.Name,
			Error:     result.Error,
			Output:    result.Output,
			Duration:  duration,
			Timestamp: time.Now(),
		})
	}
	p.publish(p.progressEvent())

	p.poke()
}

// signalDrain closes the drain channel when the pool has gone idle and a
// waiter armed it.
func (p *Pool) signalDrain() {
	p.mu.Lock()
	if p.drainedLocked() && p.drainCh != nil {
		close(p.drainCh)
		p.drainCh = nil
	}
	p.mu.Unlock()
}

func (p *Pool) publish(ev events.Event) {
	if p.cfg.Bus != nil {
		p.cfg.Bus.Publish(ev)
	}
}
