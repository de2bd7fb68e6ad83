package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads and merges configuration from global and project paths.
// Precedence (highest to lowest): project config, global config, defaults.
// Missing files are not errors; malformed JSON is.
func Load(globalPath, projectPath string) (*Config, error) {
	cfg := Default()

	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	return cfg, nil
}

// LoadForWorkspace loads configuration for a project workspace, merging
// the global config with the workspace's state-dir config.
func LoadForWorkspace(workspace string) (*Config, error) {
	globalPath, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return Load(globalPath, ProjectPath(workspace))
}

// GlobalPath returns ~/.claw-conductor/config.json.
func GlobalPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, StateDirName, "config.json"), nil
}

// ProjectPath returns the config path inside a workspace's state directory.
func ProjectPath(workspace string) string {
	return filepath.Join(workspace, StateDirName, "config.json")
}

// overlay mirrors Config with pointer scalars so a file can override a
// value without clobbering the fields it leaves out.
type overlay struct {
	MaxWorkers         *int                      `json:"max_workers"`
	TaskTimeoutSeconds *int                      `json:"task_timeout_seconds"`
	DefaultExecutor    *string                   `json:"default_executor"`
	LogLevel           *string                   `json:"log_level"`
	Executors          map[string]ExecutorConfig `json:"executors"`
	Consolidation      *consolidationOverlay     `json:"consolidation"`
}

type consolidationOverlay struct {
	Push               *bool `json:"push"`
	TestTimeoutSeconds *int  `json:"test_timeout_seconds"`
}

// mergeConfigFile merges one JSON config file into base. Missing files
// are silently skipped.
func mergeConfigFile(base *Config, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var loaded overlay
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if loaded.MaxWorkers != nil {
		base.MaxWorkers = *loaded.MaxWorkers
	}
	if loaded.TaskTimeoutSeconds != nil {
		base.TaskTimeoutSeconds = *loaded.TaskTimeoutSeconds
	}
	if loaded.DefaultExecutor != nil {
		base.DefaultExecutor = *loaded.DefaultExecutor
	}
	if loaded.LogLevel != nil {
		base.LogLevel = *loaded.LogLevel
	}
	for key, ex := range loaded.Executors {
		base.Executors[key] = ex
	}
	if loaded.Consolidation != nil {
		if loaded.Consolidation.Push != nil {
			base.Consolidation.Push = *loaded.Consolidation.Push
		}
		if loaded.Consolidation.TestTimeoutSeconds != nil {
			base.Consolidation.TestTimeoutSeconds = *loaded.Consolidation.TestTimeoutSeconds
		}
	}

	return nil
}
