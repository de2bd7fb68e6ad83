package executor

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/johnsonfarmsus/claw-conductor/internal/logging"
)

// Request describes one task dispatch to an external executor.
type Request struct {
	TaskID      string
	Description string
	Category    string
	Complexity  int
	FileTargets []string
	Workspace   string // Directory the executor works in
	ExecutorID  string
}

// Result is the executor's answer for one dispatch. Success=false means the
// executor ran but reported failure (nonzero exit); transport problems are
// returned as errors instead.
type Result struct {
	Success   bool
	Output    string
	ErrorText string
}

// Executor performs exactly one attempt per Run call.
type Executor interface {
	// ID returns the executor's registry key.
	ID() string

	// Run dispatches one task and blocks until it finishes or ctx expires.
	Run(ctx context.Context, req Request) (*Result, error)
}

// Config defines the configuration for an executor.
type Config struct {
	Type    string   // "claude" or "script"
	Command string   // Binary to invoke
	Args    []string // Extra arguments, script type only
	Model   string   // Optional model override, claude type only
}

// New creates an executor based on the provided configuration.
// This factory function switches on cfg.Type and returns the appropriate
// adapter.
func New(id string, cfg Config, pm *ProcessManager, log *logging.Logger) (Executor, error) {
	switch cfg.Type {
	case "claude":
		return NewClaude(id, cfg, pm, log)
	case "script":
		return NewScript(id, cfg, pm, log)
	default:
		return nil, fmt.Errorf("unknown executor type: %s", cfg.Type)
	}
}

// Registry resolves executor IDs to instances, with a default for tasks
// that do not name one.
type Registry struct {
	mu        sync.RWMutex
	execs     map[string]Executor
	defaultID string
}

// NewRegistry creates a registry whose empty-ID lookups resolve to
// defaultID.
func NewRegistry(defaultID string) *Registry {
	return &Registry{
		execs:     make(map[string]Executor),
		defaultID: defaultID,
	}
}

// Register adds an executor under its own ID, replacing any previous entry.
func (r *Registry) Register(e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.execs[e.ID()] = e
}

// Resolve returns the executor for the given ID. An empty ID resolves to
// the registry default.
func (r *Registry) Resolve(id string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id == "" {
		id = r.defaultID
	}
	e, ok := r.execs[id]
	if !ok {
		return nil, fmt.Errorf("no executor registered for %q", id)
	}
	return e, nil
}

// DefaultID returns the ID empty lookups resolve to.
func (r *Registry) DefaultID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultID
}

// IDs returns the registered executor IDs, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.execs))
	for id := range r.execs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
