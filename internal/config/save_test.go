package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveCreatesFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	cfg := Default()
	cfg.MaxWorkers = 3

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Config file was not created: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Config file contains invalid JSON: %v", err)
	}

	if loaded.MaxWorkers != 3 {
		t.Errorf("Expected max workers 3, got %d", loaded.MaxWorkers)
	}
}

func TestSaveCreatesParentDir(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "deep", "config.json")

	if err := Save(Default(), path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Config file was not created: %s", path)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	cfg := Default()
	cfg.MaxWorkers = 2
	cfg.DefaultExecutor = "review"
	cfg.Executors["review"] = ExecutorConfig{
		Type:    "script",
		Command: "./review.sh",
		Args:    []string{"--strict"},
	}
	cfg.Consolidation.Push = false

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.MaxWorkers != 2 {
		t.Errorf("Max workers mismatch: got %d", loaded.MaxWorkers)
	}
	if loaded.DefaultExecutor != "review" {
		t.Errorf("Default executor mismatch: got %q", loaded.DefaultExecutor)
	}
	review, ok := loaded.Executors["review"]
	if !ok {
		t.Fatal("review executor missing after round trip")
	}
	if len(review.Args) != 1 || review.Args[0] != "--strict" {
		t.Errorf("review executor args mismatch: got %v", review.Args)
	}
	if loaded.Consolidation.Push {
		t.Error("push = true, want false after round trip")
	}
}

func TestSaveOverwritesExisting(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	cfg1 := Default()
	cfg1.LogLevel = "DEBUG"
	if err := Save(cfg1, path); err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	cfg2 := Default()
	cfg2.LogLevel = "WARN"
	if err := Save(cfg2, path); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}

	if loaded.LogLevel != "WARN" {
		t.Errorf("Expected 'WARN', got %q", loaded.LogLevel)
	}
}
