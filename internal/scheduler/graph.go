package scheduler

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gammazero/toposort"
)

// Graph holds a project's tasks and their dependency edges.
// Construction validates the whole task list: duplicate IDs, references to
// unknown tasks, and cycles all fail fast. After construction the graph only
// changes through the Mark* transitions.
type Graph struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	order []string // Topological order fixed at construction
}

// NewGraph builds and validates a graph from the full task list.
func NewGraph(tasks []*Task) (*Graph, error) {
	g := &Graph{
		tasks: make(map[string]*Task, len(tasks)),
	}

	for _, task := range tasks {
		if task.ID == "" {
			return nil, fmt.Errorf("task with empty ID")
		}
		if _, exists := g.tasks[task.ID]; exists {
			return nil, fmt.Errorf("duplicate task ID %q", task.ID)
		}
		g.tasks[task.ID] = cloneTask(task)
	}

	// Verify all dependencies reference known tasks
	for taskID, task := range g.tasks {
		for _, depID := range task.Dependencies {
			if _, exists := g.tasks[depID]; !exists {
				return nil, fmt.Errorf("task %q depends on non-existent task %q", taskID, depID)
			}
		}
	}

	order, err := g.sortTopologically()
	if err != nil {
		return nil, err
	}
	g.order = order

	return g, nil
}

// sortTopologically runs gammazero/toposort over the dependency edges.
// Returns ordered task IDs or an error if a cycle exists.
func (g *Graph) sortTopologically() ([]string, error) {
	var edges []toposort.Edge
	for taskID, task := range g.tasks {
		if len(task.Dependencies) == 0 {
			// Task with no dependencies - add edge from nil to ensure it's included
			edges = append(edges, toposort.Edge{nil, taskID})
		} else {
			for _, depID := range task.Dependencies {
				// Edge (depID, taskID) means depID must come before taskID
				edges = append(edges, toposort.Edge{depID, taskID})
			}
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("task graph contains cycle: %w", err)
	}

	order := make([]string, 0, len(sorted))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(string))
		}
	}

	// Catches disconnected entries lost by the sort
	if len(order) != len(g.tasks) {
		missing := []string{}
		foundMap := make(map[string]bool)
		for _, id := range order {
			foundMap[id] = true
		}
		for taskID := range g.tasks {
			if !foundMap[taskID] {
				missing = append(missing, taskID)
			}
		}
		return nil, fmt.Errorf("topological sort lost %d tasks: %s", len(missing), strings.Join(missing, ", "))
	}

	return order, nil
}

// Order returns the topological task ordering computed at construction.
func (g *Graph) Order() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.order...)
}

// Get returns a copy of the task by ID.
func (g *Graph) Get(taskID string) (*Task, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	task, exists := g.tasks[taskID]
	if !exists {
		return nil, false
	}
	return cloneTask(task), true
}

// Tasks returns copies of all tasks in topological order.
func (g *Graph) Tasks() []*Task {
	g.mu.RLock()
	defer g.mu.RUnlock()

	tasks := make([]*Task, 0, len(g.tasks))
	for _, id := range g.order {
		tasks = append(tasks, cloneTask(g.tasks[id]))
	}
	return tasks
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.tasks)
}

// Pending returns copies of all tasks still in the pending state,
// in topological order.
func (g *Graph) Pending() []*Task {
	g.mu.RLock()
	defer g.mu.RUnlock()

	pending := []*Task{}
	for _, id := range g.order {
		if g.tasks[id].Status == TaskPending {
			pending = append(pending, cloneTask(g.tasks[id]))
		}
	}
	return pending
}

// IsSatisfied reports whether every dependency of the task has completed
// successfully. A task with a pending or running dependency is not satisfied.
func (g *Graph) IsSatisfied(taskID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	task, exists := g.tasks[taskID]
	if !exists {
		return false
	}
	for _, depID := range task.Dependencies {
		if g.tasks[depID].Status != TaskCompleted {
			return false
		}
	}
	return true
}

// IsBlocked reports whether the task can never become satisfied because a
// dependency failed, directly or through a chain of blocked dependencies.
func (g *Graph) IsBlocked(taskID string) bool {
	return len(g.BlockedBy(taskID)) > 0
}

// BlockedBy returns the IDs of failed tasks that permanently block this
// task, following pending dependencies transitively. Empty means the task
// is not blocked. The graph never fails a blocked task itself; its status
// stays pending unless the caller intervenes.
func (g *Graph) BlockedBy(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]bool)
	var failed []string

	var walk func(id string)
	walk = func(id string) {
		task, exists := g.tasks[id]
		if !exists {
			return
		}
		for _, depID := range task.Dependencies {
			if seen[depID] {
				continue
			}
			seen[depID] = true

			switch g.tasks[depID].Status {
			case TaskFailed:
				failed = append(failed, depID)
			case TaskPending:
				// A pending dependency may itself be waiting on a failure
				walk(depID)
			}
		}
	}
	walk(taskID)

	return failed
}

// MarkRunning transitions a pending task to running and records the start
// time.
func (g *Graph) MarkRunning(taskID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	task, exists := g.tasks[taskID]
	if !exists {
		return fmt.Errorf("task %q not found", taskID)
	}
	if task.Status != TaskPending {
		return fmt.Errorf("task %q is %s, cannot start", taskID, task.Status)
	}

	task.Status = TaskRunning
	task.StartedAt = time.Now()
	return nil
}

// MarkCompleted transitions a running task to completed and stores its
// result.
func (g *Graph) MarkCompleted(taskID string, result *Result) error {
	return g.finish(taskID, TaskCompleted, result)
}

// MarkFailed transitions a running task to failed and stores its result.
func (g *Graph) MarkFailed(taskID string, result *Result) error {
	return g.finish(taskID, TaskFailed, result)
}

func (g *Graph) finish(taskID string, status TaskStatus, result *Result) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	task, exists := g.tasks[taskID]
	if !exists {
		return fmt.Errorf("task %q not found", taskID)
	}
	if task.Status != TaskRunning {
		return fmt.Errorf("task %q is %s, cannot finish", taskID, task.Status)
	}

	task.Status = status
	task.Result = result
	task.CompletedAt = time.Now()
	return nil
}
