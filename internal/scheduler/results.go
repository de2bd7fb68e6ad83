package scheduler

import (
	"time"

	"github.com/johnsonfarmsus/claw-conductor/internal/events"
)

// Progress is a point-in-time census of the pool's tasks, recomputed on
// demand from the graph.
type Progress struct {
	Total         int
	Completed     int
	Failed        int
	Running       int
	Pending       int
	ActiveWorkers int
}

// Progress returns the current task census.
func (p *Pool) Progress() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progressLocked()
}

func (p *Pool) progressLocked() Progress {
	pr := Progress{ActiveWorkers: p.active}
	for _, task := range p.graph.Tasks() {
		pr.Total++
		switch task.Status {
		case TaskCompleted:
			pr.Completed++
		case TaskFailed:
			pr.Failed++
		case TaskRunning:
			pr.Running++
		case TaskPending:
			pr.Pending++
		}
	}
	return pr
}

func (p *Pool) progressEvent() events.PoolProgressEvent {
	pr := p.Progress()
	return events.PoolProgressEvent{
		Project:       p.cfg.Project.Name,
		Total:         pr.Total,
		Completed:     pr.Completed,
		Failed:        pr.Failed,
		Running:       pr.Running,
		Pending:       pr.Pending,
		ActiveWorkers: pr.ActiveWorkers,
		Timestamp:     time.Now(),
	}
}

// Result returns the terminal result recorded for a task.
func (p *Pool) Result(taskID string) (*Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, exists := p.results[taskID]
	if !exists {
		return nil, false
	}
	return cloneResult(res), true
}

// Results returns a copy of all terminal results keyed by task ID.
func (p *Pool) Results() map[string]*Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]*Result, len(p.results))
	for id, res := range p.results {
		out[id] = cloneResult(res)
	}
	return out
}

// Blocked returns the tasks pruned from the queue because a dependency
// failed, keyed to the failed dependency IDs. Their status is still
// pending.
func (p *Pool) Blocked() map[string][]string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string][]string, len(p.blocked))
	for id, deps := range p.blocked {
		out[id] = append([]string(nil), deps...)
	}
	return out
}

// CompletedTasks returns copies of all successfully finished tasks.
func (p *Pool) CompletedTasks() []*Task {
	return p.tasksWithStatus(TaskCompleted)
}

// FailedTasks returns copies of all failed tasks.
func (p *Pool) FailedTasks() []*Task {
	return p.tasksWithStatus(TaskFailed)
}

func (p *Pool) tasksWithStatus(status TaskStatus) []*Task {
	tasks := []*Task{}
	for _, task := range p.graph.Tasks() {
		if task.Status == status {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

func cloneResult(r *Result) *Result {
	if r == nil {
		return nil
	}
	cp := *r
	if r.ModifiedFiles != nil {
		cp.ModifiedFiles = append([]string(nil), r.ModifiedFiles...)
	}
	return &cp
}
