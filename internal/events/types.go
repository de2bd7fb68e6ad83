package events

import (
	"time"
)

// Event is implemented by everything published on the Bus.
// TaskID returns "" for events not tied to a single task.
type Event interface {
	EventType() string
	TaskID() string
}

// Topic constants. The topic of an event is the segment of its type
// before the first dot.
const (
	TopicTask          = "task"
	TopicPool          = "pool"
	TopicConsolidation = "consolidation"
)

// Event type constants.
const (
	EventTypeTaskScheduled = "task.scheduled"
	EventTypeTaskStarted   = "task.started"
	EventTypeTaskBlocked   = "task.blocked"
	EventTypeTaskCompleted = "task.completed"
	EventTypeTaskFailed    = "task.failed"
	EventTypePoolProgress  = "pool.progress"
	EventTypeConsolidation = "consolidation.finished"
)

// TaskScheduledEvent is published when a task enters the pending queue.
type TaskScheduledEvent struct {
	ID          string
	Description string
	Category    string
	Project     string
	Timestamp   time.Time
}

func (e TaskScheduledEvent) EventType() string { return EventTypeTaskScheduled }
func (e TaskScheduledEvent) TaskID() string    { return e.ID }

// TaskStartedEvent is published when a task is admitted and dispatched.
type TaskStartedEvent struct {
	ID          string
	Description string
	ExecutorID  string
	WorkerID    string
	Project     string
	Timestamp   time.Time
}

func (e TaskStartedEvent) EventType() string { return EventTypeTaskStarted }
func (e TaskStartedEvent) TaskID() string    { return e.ID }

// TaskBlockedEvent is published when a queued task is dropped from the
// queue because a dependency failed. The task's status stays pending.
type TaskBlockedEvent struct {
	ID         string
	FailedDeps []string
	Project    string
	Timestamp  time.Time
}

func (e TaskBlockedEvent) EventType() string { return EventTypeTaskBlocked }
func (e TaskBlockedEvent) TaskID() string    { return e.ID }

// TaskCompletedEvent is published when a task reaches the completed state.
type TaskCompletedEvent struct {
	ID            string
	Project       string
	Output        string
	ModifiedFiles []string
	Duration      time.Duration
	Timestamp     time.Time
}

func (e TaskCompletedEvent) EventType() string { return EventTypeTaskCompleted }
func (e TaskCompletedEvent) TaskID() string    { return e.ID }

// TaskFailedEvent is published when a task reaches the failed state.
type TaskFailedEvent struct {
	ID        string
	Project   string
	Error     string
	Output    string
	Duration  time.Duration
	Timestamp time.Time
}

func (e TaskFailedEvent) EventType() string { return EventTypeTaskFailed }
func (e TaskFailedEvent) TaskID() string    { return e.ID }

// PoolProgressEvent is a snapshot of scheduling progress, published after
// every admission and completion.
type PoolProgressEvent struct {
	Project       string
	Total         int
	Completed     int
	Failed        int
	Running       int
	Pending       int
	ActiveWorkers int
	Timestamp     time.Time
}

func (e PoolProgressEvent) EventType() string { return EventTypePoolProgress }
func (e PoolProgressEvent) TaskID() string    { return "" }

// ConsolidationEvent reports the outcome of the post-drain consolidation.
type ConsolidationEvent struct {
	Project        string
	Success        bool
	TasksCompleted int
	TasksFailed    int
	CommitID       string
	Error          string
	Timestamp      time.Time
}

func (e ConsolidationEvent) EventType() string { return EventTypeConsolidation }
func (e ConsolidationEvent) TaskID() string    { return "" }
