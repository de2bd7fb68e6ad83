// Package project creates conductor project workspaces and derives their
// aggregate status from the episode outcome.
package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/johnsonfarmsus/claw-conductor/internal/config"
	"github.com/johnsonfarmsus/claw-conductor/internal/consolidate"
	"github.com/johnsonfarmsus/claw-conductor/internal/logging"
	"github.com/johnsonfarmsus/claw-conductor/internal/scheduler"
)

// Committer identity for conductor-created repositories.
const (
	GitUserName  = "Claw Conductor"
	GitUserEmail = "conductor@clawhub.ai"
)

const initialCommitMessage = "chore: initial commit - project setup\n\nCo-Authored-By: Claw Conductor <noreply@clawhub.ai>"

// Status is the aggregate project state, derived and never set by workers.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Project is one conductor-managed workspace and its episode state.
type Project struct {
	ID          string
	Name        string
	Description string
	Workspace   string
	Status      Status
	CreatedAt   time.Time
}

// Ref returns the identifying fields the scheduler carries around.
func (p *Project) Ref() scheduler.ProjectRef {
	return scheduler.ProjectRef{ID: p.ID, Name: p.Name, Workspace: p.Workspace}
}

// Finish derives the terminal status from the consolidation outcome:
// completed only when consolidation succeeded.
func (p *Project) Finish(summary *consolidate.Summary) {
	if summary != nil && summary.Success {
		p.Status = StatusCompleted
		return
	}
	p.Status = StatusFailed
}

// Manager creates project workspaces under a projects root.
type Manager struct {
	root string
	log  *logging.Logger
}

// NewManager returns a Manager rooted at the given directory. The root is
// only used when Create is called without an explicit workspace.
func NewManager(root string, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	return &Manager{root: root, log: log.WithComponent("project")}
}

// DefaultRoot returns ~/projects.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, "projects"), nil
}

// Create builds a new project workspace: directory structure, state dir,
// git repository with the conductor identity on a main branch, and a
// README scaffold committed as the initial commit. Existing repositories
// and README files are left untouched.
func (m *Manager) Create(ctx context.Context, name, description, workspace string) (*Project, error) {
	if name == "" {
		return nil, fmt.Errorf("project name is empty")
	}
	if workspace == "" {
		if m.root == "" {
			return nil, fmt.Errorf("no workspace given and no projects root configured")
		}
		workspace = filepath.Join(m.root, name)
	}

	now := time.Now().UTC()
	p := &Project{
		ID:          fmt.Sprintf("%s-%s", name, now.Format("20060102150405")),
		Name:        name,
		Description: description,
		Workspace:   workspace,
		Status:      StatusInProgress,
		CreatedAt:   now,
	}

	if err := os.MkdirAll(workspace, 0755); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(workspace, config.StateDirName), 0755); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}

	if err := m.initGit(ctx, workspace); err != nil {
		return nil, err
	}
	if err := m.scaffoldReadme(ctx, p, now); err != nil {
		return nil, err
	}

	m.log.Info("project created", "project_id", p.ID, "workspace", workspace)
	return p, nil
}

// initGit initializes the workspace repository with the conductor identity
// unless one already exists.
func (m *Manager) initGit(ctx context.Context, workspace string) error {
	if _, err := os.Stat(filepath.Join(workspace, ".git")); err == nil {
		return nil
	}

	g := consolidate.NewGit(workspace)
	if err := g.Init(ctx); err != nil {
		return err
	}
	if err := g.SetConfig(ctx, "user.name", GitUserName); err != nil {
		return err
	}
	if err := g.SetConfig(ctx, "user.email", GitUserEmail); err != nil {
		return err
	}
	// May already be on main when init.defaultBranch says so
	if err := g.CheckoutNewBranch(ctx, "main"); err != nil {
		m.log.Debug("checkout -b main skipped", "error", err)
	}
	return nil
}

// scaffoldReadme writes and commits the starter README when none exists.
// The state dir holds a live journal database, so it is gitignored rather
// than swept up by consolidation commits.
func (m *Manager) scaffoldReadme(ctx context.Context, p *Project, now time.Time) error {
	if err := m.writeGitignore(p.Workspace); err != nil {
		return err
	}

	path := filepath.Join(p.Workspace, "README.md")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	content := fmt.Sprintf(`# %s

%s

**Status:** In Development
**Created:** %s
**Managed by:** Claw Conductor

## Development Progress

This project is being built autonomously by Claw Conductor.
Progress is journaled under %s/.
`, p.Name, p.Description, now.Format("2006-01-02"), config.StateDirName)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing README: %w", err)
	}

	g := consolidate.NewGit(p.Workspace)
	if err := g.AddAll(ctx); err != nil {
		return err
	}
	return g.Commit(ctx, initialCommitMessage)
}

// writeGitignore excludes the state dir from the repository, creating or
// extending .gitignore as needed.
func (m *Manager) writeGitignore(workspace string) error {
	entry := config.StateDirName + "/"
	path := filepath.Join(workspace, ".gitignore")

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading .gitignore: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == entry {
			return nil
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	defer f.Close()

	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		entry = "\n" + entry
	}
	if _, err := f.WriteString(entry + "\n"); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	return nil
}
