package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTasks(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "tasks.json")

	raw := `{
		"project": "webapp",
		"description": "A small web app",
		"tasks": [
			{
				"task_id": "task-1",
				"description": "Create database schema",
				"category": "backend",
				"complexity": 3,
				"file_targets": ["src/db/*"]
			},
			{
				"task_id": "task-2",
				"description": "Build auth endpoints",
				"category": "backend",
				"dependencies": ["task-1"],
				"file_targets": ["src/auth/*"],
				"executor": "claude"
			}
		]
	}`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatalf("writing tasks file: %v", err)
	}

	tf, err := LoadTasks(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tf.Project != "webapp" {
		t.Errorf("project = %q, want webapp", tf.Project)
	}
	if len(tf.Tasks) != 2 {
		t.Fatalf("tasks count = %d, want 2", len(tf.Tasks))
	}
	if tf.Tasks[0].ID != "task-1" {
		t.Errorf("first task id = %q, want task-1", tf.Tasks[0].ID)
	}
	if tf.Tasks[0].Complexity != 3 {
		t.Errorf("first task complexity = %d, want 3", tf.Tasks[0].Complexity)
	}
	if len(tf.Tasks[1].Dependencies) != 1 || tf.Tasks[1].Dependencies[0] != "task-1" {
		t.Errorf("second task deps = %v, want [task-1]", tf.Tasks[1].Dependencies)
	}
	if tf.Tasks[1].Executor != "claude" {
		t.Errorf("second task executor = %q, want claude", tf.Tasks[1].Executor)
	}
}

func TestLoadTasks_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "empty task list",
			raw:  `{"project": "p", "tasks": []}`,
		},
		{
			name: "missing task id",
			raw:  `{"project": "p", "tasks": [{"description": "do things"}]}`,
		},
		{
			name: "missing description",
			raw:  `{"project": "p", "tasks": [{"task_id": "task-1"}]}`,
		},
		{
			name: "malformed JSON",
			raw:  `{not json`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			path := filepath.Join(tmpDir, "tasks.json")
			if err := os.WriteFile(path, []byte(tt.raw), 0644); err != nil {
				t.Fatalf("writing tasks file: %v", err)
			}

			if _, err := LoadTasks(path); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoadTasks_MissingFile(t *testing.T) {
	if _, err := LoadTasks("/nonexistent/tasks.json"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
