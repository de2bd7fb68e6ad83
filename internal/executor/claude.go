package executor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/uuid"

	"github.com/johnsonfarmsus/claw-conductor/internal/logging"
)

// Claude drives the claude CLI. Each Run is an independent invocation in
// the request's workspace with a fresh session ID; there is no conversation
// state between dispatches.
type Claude struct {
	id      string
	command string
	model   string
	procs   *ProcessManager
	log     *logging.Logger
}

// NewClaude creates a claude CLI executor. The ProcessManager is optional;
// if nil, subprocesses won't be tracked.
func NewClaude(id string, cfg Config, pm *ProcessManager, log *logging.Logger) (*Claude, error) {
	command := cfg.Command
	if command == "" {
		command = "claude"
	}
	if log == nil {
		log = logging.Nop()
	}

	return &Claude{
		id:      id,
		command: command,
		model:   cfg.Model,
		procs:   pm,
		log:     log.WithComponent("executor." + id),
	}, nil
}

// ID returns the executor's registry key.
func (c *Claude) ID() string {
	return c.id
}

// Run invokes the claude CLI once for the task and interprets its exit
// status. A nonzero exit is an application-level failure carried in the
// Result; spawn failures and timeouts are returned as errors.
func (c *Claude) Run(ctx context.Context, req Request) (*Result, error) {
	sessionID := uuid.NewString()
	args := c.buildArgs(req, sessionID)

	cmd := newCommand(ctx, c.command, args...)
	cmd.Dir = req.Workspace

	c.log.Debug("dispatching task", "task_id", req.TaskID, "session_id", sessionID)

	stdout, stderr, err := runCommand(cmd, c.procs)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("claude dispatch for task %q: %w", req.TaskID, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &Result{
				Success:   false,
				Output:    string(stdout),
				ErrorText: exitText(stderr, exitErr),
			}, nil
		}
		return nil, fmt.Errorf("claude dispatch for task %q: %w", req.TaskID, err)
	}

	return &Result{
		Success: true,
		Output:  string(stdout),
	}, nil
}

// buildArgs constructs the command-line arguments for the claude CLI.
func (c *Claude) buildArgs(req Request, sessionID string) []string {
	args := []string{
		"--dangerously-skip-permissions",
		"-p", BuildPrompt(req),
		"--session-id", sessionID,
	}
	if c.model != "" {
		args = append(args, "--model", c.model)
	}
	return args
}

// BuildPrompt renders the task into the instruction text handed to the
// executor CLI.
func BuildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("Complete the following development task.\n\n")
	fmt.Fprintf(&b, "Task: %s\n", req.Description)
	if req.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", req.Category)
	}
	if req.Complexity > 0 {
		fmt.Fprintf(&b, "Complexity: %d/5\n", req.Complexity)
	}
	if len(req.FileTargets) > 0 {
		fmt.Fprintf(&b, "Files to create or modify: %s\n", strings.Join(req.FileTargets, ", "))
	}
	b.WriteString("\nWork in the current directory. Implement the task completely; do not leave placeholders.")

	return b.String()
}

// exitText picks the most useful failure description for a nonzero exit.
func exitText(stderr []byte, exitErr *exec.ExitError) string {
	if msg := strings.TrimSpace(string(stderr)); msg != "" {
		return msg
	}
	return exitErr.Error()
}
