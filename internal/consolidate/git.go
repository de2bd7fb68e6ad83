package consolidate

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Git runs git subcommands in a fixed working directory. The consolidator
// drives it against the project workspace; project setup reuses it for
// repository initialization.
type Git struct {
	Dir string
}

// NewGit returns a Git bound to the given directory.
func NewGit(dir string) *Git {
	return &Git{Dir: dir}
}

// run executes one git subcommand and returns its combined output.
func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("git %s failed: %w (output: %s)", args[0], err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// Init initializes a repository in the directory.
func (g *Git) Init(ctx context.Context) error {
	_, err := g.run(ctx, "init")
	return err
}

// SetConfig sets a repository-local configuration value.
func (g *Git) SetConfig(ctx context.Context, key, value string) error {
	_, err := g.run(ctx, "config", key, value)
	return err
}

// CheckoutNewBranch creates a branch and switches to it.
func (g *Git) CheckoutNewBranch(ctx context.Context, branch string) error {
	_, err := g.run(ctx, "checkout", "-b", branch)
	return err
}

// UnmergedPaths returns the files left in a conflicted state.
func (g *Git) UnmergedPaths(ctx context.Context) ([]string, error) {
	output, err := g.run(ctx, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// AddAll stages every change under the directory.
func (g *Git) AddAll(ctx context.Context) error {
	_, err := g.run(ctx, "add", ".")
	return err
}

// HasStagedChanges reports whether the index differs from HEAD.
func (g *Git) HasStagedChanges(ctx context.Context) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--cached", "--quiet")
	cmd.Dir = g.Dir
	err := cmd.Run()
	if err == nil {
		return false, nil
	}
	// Exit code 1 means staged differences exist
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, fmt.Errorf("git diff --cached failed: %w", err)
}

// Commit records the staged changes with the given message.
func (g *Git) Commit(ctx context.Context, message string) error {
	_, err := g.run(ctx, "commit", "-m", message)
	return err
}

// Head returns the current HEAD commit id.
func (g *Git) Head(ctx context.Context) (string, error) {
	output, err := g.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// HasRemote reports whether any remote is configured.
func (g *Git) HasRemote(ctx context.Context) bool {
	output, err := g.run(ctx, "remote")
	return err == nil && strings.TrimSpace(output) != ""
}

// Push pushes the current branch to its remote.
func (g *Git) Push(ctx context.Context) error {
	_, err := g.run(ctx, "push")
	return err
}
