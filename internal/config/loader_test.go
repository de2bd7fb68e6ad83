package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MergePrecedence(t *testing.T) {
	tests := []struct {
		name            string
		globalJSON      string
		projectJSON     string
		expectWorkers   int
		expectTimeout   int
		expectExecutors int
		expectDefault   string
		checkExecutor   string
		expectCommand   string
	}{
		{
			name:            "No config files - returns defaults",
			expectWorkers:   5,
			expectTimeout:   1800,
			expectExecutors: 1,
			expectDefault:   "claude",
		},
		{
			name:            "Global only - overrides scalars",
			globalJSON:      `{"max_workers": 3, "task_timeout_seconds": 600}`,
			expectWorkers:   3,
			expectTimeout:   600,
			expectExecutors: 1,
			expectDefault:   "claude",
		},
		{
			name:            "Global only - adds new executor",
			globalJSON:      `{"executors": {"lint": {"type": "script", "command": "./lint.sh"}}}`,
			expectWorkers:   5,
			expectTimeout:   1800,
			expectExecutors: 2,
			expectDefault:   "claude",
			checkExecutor:   "lint",
			expectCommand:   "./lint.sh",
		},
		{
			name:            "Project only - overrides executor command",
			projectJSON:     `{"executors": {"claude": {"type": "claude", "command": "/opt/bin/claude"}}}`,
			expectWorkers:   5,
			expectTimeout:   1800,
			expectExecutors: 1,
			expectDefault:   "claude",
			checkExecutor:   "claude",
			expectCommand:   "/opt/bin/claude",
		},
		{
			name:            "Both with merge - global adds, project overrides",
			globalJSON:      `{"max_workers": 8, "executors": {"tests": {"type": "script", "command": "./run-tests.sh"}}}`,
			projectJSON:     `{"max_workers": 2, "default_executor": "tests"}`,
			expectWorkers:   2,
			expectTimeout:   1800,
			expectExecutors: 2,
			expectDefault:   "tests",
			checkExecutor:   "tests",
			expectCommand:   "./run-tests.sh",
		},
		{
			name:            "Project overrides global - project wins",
			globalJSON:      `{"executors": {"claude": {"type": "claude", "command": "claude", "model": "model-x"}}}`,
			projectJSON:     `{"executors": {"claude": {"type": "claude", "command": "claude", "model": "model-y"}}}`,
			expectWorkers:   5,
			expectTimeout:   1800,
			expectExecutors: 1,
			expectDefault:   "claude",
			checkExecutor:   "claude",
			expectCommand:   "claude",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()

			globalPath := ""
			if tt.globalJSON != "" {
				globalPath = filepath.Join(tmpDir, "global.json")
				if err := os.WriteFile(globalPath, []byte(tt.globalJSON), 0644); err != nil {
					t.Fatalf("writing global config: %v", err)
				}
			}

			projectPath := ""
			if tt.projectJSON != "" {
				projectPath = filepath.Join(tmpDir, "project.json")
				if err := os.WriteFile(projectPath, []byte(tt.projectJSON), 0644); err != nil {
					t.Fatalf("writing project config: %v", err)
				}
			}

			cfg, err := Load(globalPath, projectPath)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if cfg.MaxWorkers != tt.expectWorkers {
				t.Errorf("max workers = %d, want %d", cfg.MaxWorkers, tt.expectWorkers)
			}
			if cfg.TaskTimeoutSeconds != tt.expectTimeout {
				t.Errorf("task timeout = %d, want %d", cfg.TaskTimeoutSeconds, tt.expectTimeout)
			}
			if got := len(cfg.Executors); got != tt.expectExecutors {
				t.Errorf("executors count = %d, want %d", got, tt.expectExecutors)
			}
			if cfg.DefaultExecutor != tt.expectDefault {
				t.Errorf("default executor = %q, want %q", cfg.DefaultExecutor, tt.expectDefault)
			}

			if tt.checkExecutor != "" {
				exec, exists := cfg.Executors[tt.checkExecutor]
				if !exists {
					t.Fatalf("expected executor %q not found", tt.checkExecutor)
				}
				if exec.Command != tt.expectCommand {
					t.Errorf("executor %q command = %q, want %q", tt.checkExecutor, exec.Command, tt.expectCommand)
				}
			}
		})
	}
}

func TestLoad_ConsolidationOverlay(t *testing.T) {
	tmpDir := t.TempDir()

	// push=false must survive the merge even though false is the zero value.
	projectPath := filepath.Join(tmpDir, "project.json")
	raw := `{"consolidation": {"push": false, "test_timeout_seconds": 120}}`
	if err := os.WriteFile(projectPath, []byte(raw), 0644); err != nil {
		t.Fatalf("writing project config: %v", err)
	}

	cfg, err := Load("", projectPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Consolidation.Push {
		t.Error("push = true, want false after project override")
	}
	if cfg.Consolidation.TestTimeoutSeconds != 120 {
		t.Errorf("test timeout = %d, want 120", cfg.Consolidation.TestTimeoutSeconds)
	}
}

func TestLoad_PartialConsolidationKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	globalPath := filepath.Join(tmpDir, "global.json")
	raw := `{"consolidation": {"test_timeout_seconds": 90}}`
	if err := os.WriteFile(globalPath, []byte(raw), 0644); err != nil {
		t.Fatalf("writing global config: %v", err)
	}

	cfg, err := Load(globalPath, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg.Consolidation.Push {
		t.Error("push = false, want default true when file omits it")
	}
	if cfg.Consolidation.TestTimeoutSeconds != 90 {
		t.Errorf("test timeout = %d, want 90", cfg.Consolidation.TestTimeoutSeconds)
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	tmpDir := t.TempDir()

	globalPath := filepath.Join(tmpDir, "global.json")
	if err := os.WriteFile(globalPath, []byte("{invalid json"), 0644); err != nil {
		t.Fatalf("writing malformed config: %v", err)
	}

	_, err := Load(globalPath, "")
	if err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}

func TestLoad_MissingFilesNotError(t *testing.T) {
	cfg, err := Load("/nonexistent/global.json", "/nonexistent/project.json")
	if err != nil {
		t.Fatalf("expected no error for missing files, got: %v", err)
	}

	if cfg.MaxWorkers != 5 {
		t.Errorf("max workers = %d, want 5", cfg.MaxWorkers)
	}
	if cfg.LogLevel != "INFO" {
		t.Errorf("log level = %q, want INFO", cfg.LogLevel)
	}
}

func TestLoadForWorkspace(t *testing.T) {
	tmpDir := t.TempDir()

	stateDir := filepath.Join(tmpDir, StateDirName)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		t.Fatalf("creating state dir: %v", err)
	}
	raw := `{"max_workers": 7}`
	if err := os.WriteFile(filepath.Join(stateDir, "config.json"), []byte(raw), 0644); err != nil {
		t.Fatalf("writing workspace config: %v", err)
	}

	cfg, err := LoadForWorkspace(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxWorkers != 7 {
		t.Errorf("max workers = %d, want 7", cfg.MaxWorkers)
	}
}

func TestTimeoutAccessors(t *testing.T) {
	cfg := Default()

	if got := cfg.TaskTimeout().Seconds(); got != 1800 {
		t.Errorf("task timeout = %vs, want 1800s", got)
	}
	if got := cfg.Consolidation.TestTimeout().Seconds(); got != 60 {
		t.Errorf("test timeout = %vs, want 60s", got)
	}
}
