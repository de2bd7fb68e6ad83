// Package consolidate turns a drained episode's workspace into a single
// commit: partition terminal states, refuse on unmerged paths, run
// advisory tests, stage, commit, optionally push.
package consolidate

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/johnsonfarmsus/claw-conductor/internal/events"
	"github.com/johnsonfarmsus/claw-conductor/internal/logging"
	"github.com/johnsonfarmsus/claw-conductor/internal/scheduler"
)

const defaultTestTimeout = 60 * time.Second

// RetryConfig bounds the push retry policy.
type RetryConfig struct {
	InitialInterval time.Duration // first retry delay (default 500ms)
	MaxInterval     time.Duration // delay ceiling (default 5s)
	MaxElapsedTime  time.Duration // total retry budget (default 30s)
}

// DefaultRetryConfig returns the push retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxElapsedTime:  30 * time.Second,
	}
}

// Config configures a Consolidator for one project workspace.
type Config struct {
	Project     string        // project name used in the commit message
	Workspace   string        // git repository the tasks wrote into
	Push        bool          // push after commit when a remote exists
	TestTimeout time.Duration // advisory test bound (default 60s)
	PushRetry   RetryConfig   // zero fields take defaults
	Bus         *events.Bus   // optional event sink
	Log         *logging.Logger
}

// Consolidator commits the combined output of one episode.
type Consolidator struct {
	cfg Config
	git *Git
	log *logging.Logger
}

// New creates a Consolidator over the configured workspace.
func New(cfg Config) *Consolidator {
	if cfg.TestTimeout <= 0 {
		cfg.TestTimeout = defaultTestTimeout
	}
	def := DefaultRetryConfig()
	if cfg.PushRetry.InitialInterval <= 0 {
		cfg.PushRetry.InitialInterval = def.InitialInterval
	}
	if cfg.PushRetry.MaxInterval <= 0 {
		cfg.PushRetry.MaxInterval = def.MaxInterval
	}
	if cfg.PushRetry.MaxElapsedTime <= 0 {
		cfg.PushRetry.MaxElapsedTime = def.MaxElapsedTime
	}
	if cfg.Log == nil {
		cfg.Log = logging.Nop()
	}

	return &Consolidator{
		cfg: cfg,
		git: NewGit(cfg.Workspace),
		log: cfg.Log.WithComponent("consolidate"),
	}
}

// Consolidate runs the post-drain commit flow over the terminal task
// states. It aborts without touching the repository when no task
// succeeded or when unmerged paths remain. Advisory test failures and
// push failures are recorded in the summary and do not abort. The
// returned Summary is populated even when the error is non-nil.
func (c *Consolidator) Consolidate(ctx context.Context, tasks []*scheduler.Task) (*Summary, error) {
	summary := &Summary{}

	var completed []*scheduler.Task
	for _, task := range tasks {
		switch task.Status {
		case scheduler.TaskCompleted:
			completed = append(completed, task)
			summary.TasksCompleted++
		case scheduler.TaskFailed:
			summary.TasksFailed++
		}
	}

	if len(completed) == 0 {
		err := fmt.Errorf("%w (%d failed)", ErrNoCompletedTasks, summary.TasksFailed)
		c.finish(summary, err)
		return summary, err
	}

	c.log.Info("consolidating results",
		"project", c.cfg.Project,
		"completed", summary.TasksCompleted,
		"failed", summary.TasksFailed)

	conflicts, err := c.git.UnmergedPaths(ctx)
	if err != nil {
		c.finish(summary, err)
		return summary, err
	}
	if len(conflicts) > 0 {
		summary.Conflicts = conflicts
		err := fmt.Errorf("%w: %s", ErrUnresolvedConflicts, strings.Join(conflicts, ", "))
		c.finish(summary, err)
		return summary, err
	}

	summary.Tests = c.runTests(ctx)
	if summary.Tests != nil && !summary.Tests.Success {
		c.log.Warn("advisory tests failed",
			"framework", summary.Tests.Framework, "error", summary.Tests.Error)
	}

	commitID, err := c.commit(ctx, completed)
	if err != nil {
		err = fmt.Errorf("committing consolidated changes: %w", err)
		c.finish(summary, err)
		return summary, err
	}
	summary.CommitID = commitID

	if c.cfg.Push && c.git.HasRemote(ctx) {
		summary.Push = c.push(ctx)
	}

	summary.Success = true
	c.finish(summary, nil)
	return summary, nil
}

// commit stages everything and commits unless the index is a no-op.
// Returns the new HEAD id, or "" when there was nothing to commit.
func (c *Consolidator) commit(ctx context.Context, completed []*scheduler.Task) (string, error) {
	if err := c.git.AddAll(ctx); err != nil {
		return "", err
	}

	staged, err := c.git.HasStagedChanges(ctx)
	if err != nil {
		return "", err
	}
	if !staged {
		c.log.Info("no changes to commit")
		return "", nil
	}

	if err := c.git.Commit(ctx, commitMessage(c.cfg.Project, completed)); err != nil {
		return "", err
	}

	head, err := c.git.Head(ctx)
	if err != nil {
		return "", err
	}
	c.log.Info("committed changes", "commit", head)
	return head, nil
}

// commitMessage builds a conventional-commit message: feat when any
// completed task's category mentions frontend, backend, or api.
func commitMessage(project string, completed []*scheduler.Task) string {
	commitType := "chore"
	for _, task := range completed {
		category := strings.ToLower(task.Category)
		if strings.Contains(category, "frontend") ||
			strings.Contains(category, "backend") ||
			strings.Contains(category, "api") {
			commitType = "feat"
			break
		}
	}

	n := len(completed)
	return fmt.Sprintf(`%s: %s - %d tasks completed

Autonomous development by Claw Conductor
Tasks: %d completed

Co-Authored-By: Claw Conductor <conductor@clawhub.ai>
`, commitType, project, n, n)
}

// runTests runs the workspace test suite when a framework marker exists,
// bounded by the configured timeout. Returns nil when no framework is
// detected.
func (c *Consolidator) runTests(ctx context.Context) *TestOutcome {
	var name string
	var args []string

	switch {
	case c.markerExists("pytest.ini") || c.markerExists("tests"):
		name = "pytest"
		args = []string{"-v"}
	case c.markerExists("package.json"):
		name = "npm"
		args = []string{"test"}
	default:
		return nil
	}

	outcome := &TestOutcome{Framework: name}
	c.log.Info("running advisory tests", "framework", name)

	runCtx, cancel := context.WithTimeout(ctx, c.cfg.TestTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = c.cfg.Workspace
	output, err := cmd.CombinedOutput()
	outcome.Output = string(output)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Success = true
	return outcome
}

func (c *Consolidator) markerExists(name string) bool {
	_, err := os.Stat(filepath.Join(c.cfg.Workspace, name))
	return err == nil
}

// push retries transient push failures with exponential backoff. The
// outcome never invalidates the consolidation.
func (c *Consolidator) push(ctx context.Context) *PushOutcome {
	operation := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return c.git.Push(ctx)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.PushRetry.InitialInterval
	policy.MaxInterval = c.cfg.PushRetry.MaxInterval
	policy.MaxElapsedTime = c.cfg.PushRetry.MaxElapsedTime

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		c.log.Warn("push failed", "error", err)
		return &PushOutcome{Error: err.Error()}
	}

	c.log.Info("pushed to remote")
	return &PushOutcome{Success: true}
}

// finish logs the outcome and publishes the consolidation event.
func (c *Consolidator) finish(summary *Summary, err error) {
	switch {
	case err != nil:
		c.log.Error("consolidation failed", "error", err)
	case summary.CommitID == "":
		c.log.Info("consolidation finished with nothing to commit")
	default:
		c.log.Info("consolidation finished", "commit", summary.CommitID)
	}

	if c.cfg.Bus == nil {
		return
	}
	ev := events.ConsolidationEvent{
		Project:        c.cfg.Project,
		Success:        summary.Success,
		TasksCompleted: summary.TasksCompleted,
		TasksFailed:    summary.TasksFailed,
		CommitID:       summary.CommitID,
		Timestamp:      time.Now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	c.cfg.Bus.Publish(ev)
}
