package scheduler

import (
	"strings"
	"testing"
)

func task(id string, deps ...string) *Task {
	return &Task{
		ID:           id,
		Description:  "task " + id,
		Dependencies: deps,
	}
}

func TestNewGraph_Validation(t *testing.T) {
	tests := []struct {
		name    string
		tasks   []*Task
		wantErr string
	}{
		{
			name:  "single task",
			tasks: []*Task{task("a")},
		},
		{
			name:  "linear chain",
			tasks: []*Task{task("a"), task("b", "a"), task("c", "b")},
		},
		{
			name:  "parallel roots",
			tasks: []*Task{task("a"), task("b"), task("c")},
		},
		{
			name:  "diamond",
			tasks: []*Task{task("a"), task("b", "a"), task("c", "a"), task("d", "b", "c")},
		},
		{
			name:    "empty id",
			tasks:   []*Task{task("")},
			wantErr: "empty ID",
		},
		{
			name:    "duplicate id",
			tasks:   []*Task{task("a"), task("a")},
			wantErr: `duplicate task ID "a"`,
		},
		{
			name:    "missing dependency",
			tasks:   []*Task{task("a", "ghost")},
			wantErr: `non-existent task "ghost"`,
		},
		{
			name:    "self loop",
			tasks:   []*Task{task("a", "a")},
			wantErr: "cycle",
		},
		{
			name:    "direct cycle",
			tasks:   []*Task{task("a", "b"), task("b", "a")},
			wantErr: "cycle",
		},
		{
			name:    "transitive cycle",
			tasks:   []*Task{task("a", "c"), task("b", "a"), task("c", "b")},
			wantErr: "cycle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGraph(tt.tasks)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("NewGraph() error = %v, want nil", err)
				}
				if g.Len() != len(tt.tasks) {
					t.Errorf("Len() = %d, want %d", g.Len(), len(tt.tasks))
				}
				return
			}
			if err == nil {
				t.Fatalf("NewGraph() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewGraph() error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestGraph_OrderRespectsDependencies(t *testing.T) {
	g, err := NewGraph([]*Task{
		task("d", "b", "c"),
		task("b", "a"),
		task("c", "a"),
		task("a"),
	})
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}

	order := g.Order()
	if len(order) != 4 {
		t.Fatalf("Order() returned %d tasks, want 4", len(order))
	}

	pos := make(map[string]int)
	for i, id := range order {
		pos[id] = i
	}
	for _, tk := range g.Tasks() {
		for _, dep := range tk.Dependencies {
			if pos[dep] > pos[tk.ID] {
				t.Errorf("dependency %q ordered after %q: %v", dep, tk.ID, order)
			}
		}
	}
}

func TestGraph_SatisfiedAndBlocked(t *testing.T) {
	newGraph := func(t *testing.T) *Graph {
		t.Helper()
		g, err := NewGraph([]*Task{
			task("a"),
			task("b", "a"),
			task("c", "b"),
		})
		if err != nil {
			t.Fatalf("NewGraph() error = %v", err)
		}
		return g
	}

	t.Run("pending dependency is not satisfied", func(t *testing.T) {
		g := newGraph(t)
		if !g.IsSatisfied("a") {
			t.Error("root task should be satisfied")
		}
		if g.IsSatisfied("b") {
			t.Error("task with pending dependency should not be satisfied")
		}
		if g.IsBlocked("b") {
			t.Error("pending dependency must not count as blocked")
		}
	})

	t.Run("completed dependency satisfies", func(t *testing.T) {
		g := newGraph(t)
		mustMarkRunning(t, g, "a")
		mustMarkCompleted(t, g, "a")
		if !g.IsSatisfied("b") {
			t.Error("task should be satisfied after dependency completes")
		}
	})

	t.Run("running dependency is neither satisfied nor blocked", func(t *testing.T) {
		g := newGraph(t)
		mustMarkRunning(t, g, "a")
		if g.IsSatisfied("b") {
			t.Error("running dependency should not satisfy")
		}
		if g.IsBlocked("b") {
			t.Error("running dependency should not block")
		}
	})

	t.Run("failed dependency blocks directly", func(t *testing.T) {
		g := newGraph(t)
		mustMarkRunning(t, g, "a")
		if err := g.MarkFailed("a", &Result{Error: "boom"}); err != nil {
			t.Fatalf("MarkFailed() error = %v", err)
		}
		blocked := g.BlockedBy("b")
		if len(blocked) != 1 || blocked[0] != "a" {
			t.Errorf("BlockedBy(b) = %v, want [a]", blocked)
		}
	})

	t.Run("failure blocks transitively through pending chain", func(t *testing.T) {
		g := newGraph(t)
		mustMarkRunning(t, g, "a")
		if err := g.MarkFailed("a", &Result{Error: "boom"}); err != nil {
			t.Fatalf("MarkFailed() error = %v", err)
		}
		blocked := g.BlockedBy("c")
		if len(blocked) != 1 || blocked[0] != "a" {
			t.Errorf("BlockedBy(c) = %v, want [a]", blocked)
		}
		// Blocked dependents stay pending; the graph never fails them
		if tk, _ := g.Get("c"); tk.Status != TaskPending {
			t.Errorf("blocked task status = %s, want pending", tk.Status)
		}
	})

	t.Run("unknown task", func(t *testing.T) {
		g := newGraph(t)
		if g.IsSatisfied("ghost") {
			t.Error("unknown task should not be satisfied")
		}
		if got := g.BlockedBy("ghost"); len(got) != 0 {
			t.Errorf("BlockedBy(ghost) = %v, want empty", got)
		}
	})
}

func TestGraph_Transitions(t *testing.T) {
	g, err := NewGraph([]*Task{task("a"), task("b")})
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}

	if err := g.MarkCompleted("a", nil); err == nil {
		t.Error("completing a pending task should fail")
	}
	if err := g.MarkRunning("ghost"); err == nil {
		t.Error("starting an unknown task should fail")
	}

	mustMarkRunning(t, g, "a")
	if err := g.MarkRunning("a"); err == nil {
		t.Error("starting a running task should fail")
	}

	tk, _ := g.Get("a")
	if tk.Status != TaskRunning {
		t.Errorf("status = %s, want running", tk.Status)
	}
	if tk.StartedAt.IsZero() {
		t.Error("StartedAt not recorded")
	}

	res := &Result{Success: true, Output: "done", ModifiedFiles: []string{"src/a.js"}}
	if err := g.MarkCompleted("a", res); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}

	tk, _ = g.Get("a")
	if tk.Status != TaskCompleted {
		t.Errorf("status = %s, want completed", tk.Status)
	}
	if tk.CompletedAt.IsZero() {
		t.Error("CompletedAt not recorded")
	}
	if tk.Result == nil || !tk.Result.Success {
		t.Errorf("result not stored: %+v", tk.Result)
	}

	// Terminal states reject further transitions
	if err := g.MarkRunning("a"); err == nil {
		t.Error("restarting a completed task should fail")
	}
	if err := g.MarkFailed("a", nil); err == nil {
		t.Error("failing a completed task should fail")
	}

	mustMarkRunning(t, g, "b")
	if err := g.MarkFailed("b", &Result{Error: "exit 1"}); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}
	tk, _ = g.Get("b")
	if tk.Status != TaskFailed {
		t.Errorf("status = %s, want failed", tk.Status)
	}
}

func TestGraph_PendingAndCopies(t *testing.T) {
	g, err := NewGraph([]*Task{task("a"), task("b", "a")})
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}

	mustMarkRunning(t, g, "a")
	mustMarkCompleted(t, g, "a")

	pending := g.Pending()
	if len(pending) != 1 || pending[0].ID != "b" {
		t.Fatalf("Pending() = %v, want [b]", pending)
	}

	// Returned tasks are copies; mutations must not leak back
	pending[0].Status = TaskFailed
	pending[0].Dependencies[0] = "mutated"
	if tk, _ := g.Get("b"); tk.Status != TaskPending || tk.Dependencies[0] != "a" {
		t.Error("mutation of returned task leaked into graph")
	}
}

func mustMarkRunning(t *testing.T, g *Graph, id string) {
	t.Helper()
	if err := g.MarkRunning(id); err != nil {
		t.Fatalf("MarkRunning(%s) error = %v", id, err)
	}
}

func mustMarkCompleted(t *testing.T, g *Graph, id string) {
	t.Helper()
	if err := g.MarkCompleted(id, &Result{Success: true}); err != nil {
		t.Fatalf("MarkCompleted(%s) error = %v", id, err)
	}
}
