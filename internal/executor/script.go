package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/johnsonfarmsus/claw-conductor/internal/logging"
)

// Script runs an arbitrary command per dispatch. It serves as the escape
// hatch for agent CLIs without a dedicated adapter, and as a controllable
// stand-in for real executors in development. Task metadata is exported as
// CLAW_* environment variables and the rendered prompt arrives on stdin.
type Script struct {
	id      string
	command string
	args    []string
	procs   *ProcessManager
	log     *logging.Logger
}

// NewScript creates a script executor from the configured command template.
func NewScript(id string, cfg Config, pm *ProcessManager, log *logging.Logger) (*Script, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("script executor %q has no command", id)
	}
	if log == nil {
		log = logging.Nop()
	}

	return &Script{
		id:      id,
		command: cfg.Command,
		args:    append([]string(nil), cfg.Args...),
		procs:   pm,
		log:     log.WithComponent("executor." + id),
	}, nil
}

// ID returns the executor's registry key.
func (s *Script) ID() string {
	return s.id
}

// Run invokes the configured command once. Exit status semantics match the
// claude executor: nonzero exit is a failure Result, spawn failures and
// timeouts are errors.
func (s *Script) Run(ctx context.Context, req Request) (*Result, error) {
	cmd := newCommand(ctx, s.command, s.args...)
	cmd.Dir = req.Workspace
	cmd.Env = append(os.Environ(), taskEnv(req)...)
	cmd.Stdin = strings.NewReader(BuildPrompt(req))

	s.log.Debug("dispatching task", "task_id", req.TaskID, "command", s.command)

	stdout, stderr, err := runCommand(cmd, s.procs)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("script dispatch for task %q: %w", req.TaskID, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &Result{
				Success:   false,
				Output:    string(stdout),
				ErrorText: exitText(stderr, exitErr),
			}, nil
		}
		return nil, fmt.Errorf("script dispatch for task %q: %w", req.TaskID, err)
	}

	return &Result{
		Success: true,
		Output:  string(stdout),
	}, nil
}

// taskEnv renders the request as CLAW_* environment variables.
func taskEnv(req Request) []string {
	return []string{
		"CLAW_TASK_ID=" + req.TaskID,
		"CLAW_TASK_CATEGORY=" + req.Category,
		fmt.Sprintf("CLAW_TASK_COMPLEXITY=%d", req.Complexity),
		"CLAW_FILE_TARGETS=" + strings.Join(req.FileTargets, ","),
		"CLAW_WORKSPACE=" + req.Workspace,
	}
}
