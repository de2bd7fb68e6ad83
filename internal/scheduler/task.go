package scheduler

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus int

const (
	TaskPending   TaskStatus = iota // Waiting for dependencies or a free worker
	TaskRunning                     // Currently executing
	TaskCompleted                   // Finished successfully
	TaskFailed                      // Finished with error
)

// String returns the wire/journal form of the status.
func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is completed or failed.
// There is no transition out of a terminal state.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Task represents a unit of work in the dependency graph.
type Task struct {
	ID           string     // Unique identifier within the project
	Description  string     // Human-readable description, becomes the executor prompt
	Category     string     // Opaque metadata (e.g. "backend", "frontend")
	Complexity   int        // Opaque metadata, 1-5
	Dependencies []string   // Task IDs that must complete successfully first
	FileTargets  []string   // Paths or directory wildcards this task will modify
	ExecutorID   string     // Executor to dispatch to; empty selects the default
	Status       TaskStatus
	Result       *Result    // Populated on the terminal transition only
	StartedAt    time.Time
	CompletedAt  time.Time
}

// Duration returns the elapsed execution time, zero until the task is terminal.
func (t *Task) Duration() time.Duration {
	if t.StartedAt.IsZero() || t.CompletedAt.IsZero() {
		return 0
	}
	return t.CompletedAt.Sub(t.StartedAt)
}

// Result is the terminal outcome of one task execution.
type Result struct {
	Success       bool
	ModifiedFiles []string
	Output        string
	Error         string // Empty on success
}

// ProjectRef identifies the project an episode runs against.
// Defined here so the pool does not depend on the project package.
type ProjectRef struct {
	ID        string
	Name      string
	Workspace string
}

func cloneTask(task *Task) *Task {
	if task == nil {
		return nil
	}

	cp := *task
	if task.Dependencies != nil {
		cp.Dependencies = append([]string(nil), task.Dependencies...)
	}
	if task.FileTargets != nil {
		cp.FileTargets = append([]string(nil), task.FileTargets...)
	}
	cp.Result = cloneResult(task.Result)
	return &cp
}
