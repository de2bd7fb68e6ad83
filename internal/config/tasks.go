package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// TaskSpec is one task record from the decomposition output. The wire
// names follow the decomposer's JSON.
type TaskSpec struct {
	ID           string   `json:"task_id"`
	Description  string   `json:"description"`
	Category     string   `json:"category,omitempty"`
	Complexity   int      `json:"complexity,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	FileTargets  []string `json:"file_targets,omitempty"`
	Executor     string   `json:"executor,omitempty"`
}

// TaskFile is a project's task list as produced by decomposition.
type TaskFile struct {
	Project     string     `json:"project,omitempty"`
	Description string     `json:"description,omitempty"`
	Tasks       []TaskSpec `json:"tasks"`
}

// LoadTasks reads a task file. Structural problems (no tasks, a task
// without an id) are reported here; dependency and cycle validation
// belongs to graph construction.
func LoadTasks(path string) (*TaskFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading task file: %w", err)
	}

	var tf TaskFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if len(tf.Tasks) == 0 {
		return nil, fmt.Errorf("task file %s contains no tasks", path)
	}
	for i, spec := range tf.Tasks {
		if spec.ID == "" {
			return nil, fmt.Errorf("task at index %d has no task_id", i)
		}
		if spec.Description == "" {
			return nil, fmt.Errorf("task %q has no description", spec.ID)
		}
	}

	return &tf, nil
}
