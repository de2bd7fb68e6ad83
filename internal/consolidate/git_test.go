package consolidate

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// setupTestRepo creates a temporary git repository with one commit on main.
func setupTestRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	runGit(t, dir, "init")
	runGit(t, dir, "config", "user.name", "Test User")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "checkout", "-b", "main")
	writeFile(t, dir, "README.md", "# Test Repo\n")
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "initial commit")
	return dir
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v (output: %s)", args, err, string(output))
	}
	return string(output)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

// makeConflict leaves README.md in an unmerged state via a failed merge.
func makeConflict(t *testing.T, dir string) {
	t.Helper()

	runGit(t, dir, "checkout", "-b", "side")
	writeFile(t, dir, "README.md", "# Side version\n")
	runGit(t, dir, "commit", "-am", "side change")
	runGit(t, dir, "checkout", "main")
	writeFile(t, dir, "README.md", "# Main version\n")
	runGit(t, dir, "commit", "-am", "main change")

	merge := exec.Command("git", "merge", "side")
	merge.Dir = dir
	if err := merge.Run(); err == nil {
		t.Fatal("expected merge conflict, merge succeeded")
	}
}

func TestGit_InitAndCommitFlow(t *testing.T) {
	ctx := context.Background()
	g := NewGit(t.TempDir())

	if err := g.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := g.SetConfig(ctx, "user.name", "Test User"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	if err := g.SetConfig(ctx, "user.email", "test@example.com"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	if err := g.CheckoutNewBranch(ctx, "main"); err != nil {
		t.Fatalf("CheckoutNewBranch() error = %v", err)
	}

	writeFile(t, g.Dir, "hello.txt", "hello\n")
	if err := g.AddAll(ctx); err != nil {
		t.Fatalf("AddAll() error = %v", err)
	}

	if err := g.Commit(ctx, "first commit"); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	head, err := g.Head(ctx)
	if err != nil {
		t.Fatalf("Head() error = %v", err)
	}
	if len(head) != 40 {
		t.Errorf("Head() = %q, want 40-char commit id", head)
	}

	staged, err := g.HasStagedChanges(ctx)
	if err != nil {
		t.Fatalf("HasStagedChanges() error = %v", err)
	}
	if staged {
		t.Error("HasStagedChanges() = true right after commit")
	}
}

func TestGit_HasStagedChanges(t *testing.T) {
	ctx := context.Background()
	dir := setupTestRepo(t)
	g := NewGit(dir)

	staged, err := g.HasStagedChanges(ctx)
	if err != nil {
		t.Fatalf("HasStagedChanges() error = %v", err)
	}
	if staged {
		t.Error("clean repo reports staged changes")
	}

	writeFile(t, dir, "new.txt", "content\n")
	if err := g.AddAll(ctx); err != nil {
		t.Fatalf("AddAll() error = %v", err)
	}

	staged, err = g.HasStagedChanges(ctx)
	if err != nil {
		t.Fatalf("HasStagedChanges() error = %v", err)
	}
	if !staged {
		t.Error("staged file not detected")
	}
}

func TestGit_UnmergedPaths(t *testing.T) {
	ctx := context.Background()

	t.Run("clean repo", func(t *testing.T) {
		g := NewGit(setupTestRepo(t))
		paths, err := g.UnmergedPaths(ctx)
		if err != nil {
			t.Fatalf("UnmergedPaths() error = %v", err)
		}
		if len(paths) != 0 {
			t.Errorf("UnmergedPaths() = %v, want empty", paths)
		}
	})

	t.Run("conflicted repo", func(t *testing.T) {
		dir := setupTestRepo(t)
		makeConflict(t, dir)

		g := NewGit(dir)
		paths, err := g.UnmergedPaths(ctx)
		if err != nil {
			t.Fatalf("UnmergedPaths() error = %v", err)
		}
		if len(paths) != 1 || paths[0] != "README.md" {
			t.Errorf("UnmergedPaths() = %v, want [README.md]", paths)
		}
	})
}

func TestGit_HasRemote(t *testing.T) {
	ctx := context.Background()
	dir := setupTestRepo(t)
	g := NewGit(dir)

	if g.HasRemote(ctx) {
		t.Error("fresh repo reports a remote")
	}

	runGit(t, dir, "remote", "add", "origin", t.TempDir())
	if !g.HasRemote(ctx) {
		t.Error("configured remote not detected")
	}
}

func TestGit_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGit(setupTestRepo(t))
	if _, err := g.Head(ctx); err == nil {
		t.Error("expected error with cancelled context")
	}
}

func TestGit_RunErrorIncludesOutput(t *testing.T) {
	g := NewGit(setupTestRepo(t))
	_, err := g.run(context.Background(), "checkout", "nonexistent-branch")
	if err == nil {
		t.Fatal("expected error for bad checkout")
	}
	if !strings.Contains(err.Error(), "git checkout failed") {
		t.Errorf("error = %q, want git checkout failure", err)
	}
}
