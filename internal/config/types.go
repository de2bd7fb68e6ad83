package config

import "time"

// StateDirName is the per-workspace directory holding conductor state:
// project config, the episode journal, and logs.
const StateDirName = ".claw-conductor"

// ExecutorConfig defines one external executor tasks can be dispatched to.
// Multiple executor ids may share one adapter type.
type ExecutorConfig struct {
	Type    string   `json:"type"`            // adapter type: "claude" or "script"
	Command string   `json:"command"`         // CLI binary name
	Args    []string `json:"args,omitempty"`  // extra args appended to every invocation
	Model   string   `json:"model,omitempty"` // model flag for claude-type executors
}

// ConsolidationConfig controls the post-drain commit step.
type ConsolidationConfig struct {
	Push               bool `json:"push"`                           // push after commit when a remote exists
	TestTimeoutSeconds int  `json:"test_timeout_seconds,omitempty"` // advisory test run bound
}

// TestTimeout returns the advisory-test bound as a duration.
func (c ConsolidationConfig) TestTimeout() time.Duration {
	return time.Duration(c.TestTimeoutSeconds) * time.Second
}

// Config is the top-level conductor configuration.
type Config struct {
	MaxWorkers         int                       `json:"max_workers"`
	TaskTimeoutSeconds int                       `json:"task_timeout_seconds,omitempty"`
	DefaultExecutor    string                    `json:"default_executor"`
	Executors          map[string]ExecutorConfig `json:"executors"`
	Consolidation      ConsolidationConfig       `json:"consolidation"`
	LogLevel           string                    `json:"log_level,omitempty"`
}

// TaskTimeout returns the per-dispatch bound as a duration. Zero means
// dispatches are bounded only by episode cancellation.
func (c *Config) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutSeconds) * time.Second
}
