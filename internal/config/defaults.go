package config

// Default returns the built-in configuration. The claude executor is the
// only one registered out of the box.
func Default() *Config {
	return &Config{
		MaxWorkers:         5,
		TaskTimeoutSeconds: 1800,
		DefaultExecutor:    "claude",
		Executors: map[string]ExecutorConfig{
			"claude": {
				Type:    "claude",
				Command: "claude",
			},
		},
		Consolidation: ConsolidationConfig{
			Push:               true,
			TestTimeoutSeconds: 60,
		},
		LogLevel: "INFO",
	}
}
