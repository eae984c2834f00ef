package config

import "runtime"

// GetDefault returns the default configuration
func GetDefault() *Config {
	return &Config{
		ExcludeDirs: []string{
			".git",
			"node_modules",
			"__pycache__",
			"venv",
			".venv",
			".env",
			"$Recycle.Bin",
			"System Volume Information",
			"Windows.old",
		},
		ExcludeFiles: []string{
			".gitignore",
			".DS_Store",
			"Thumbs.db",
			"desktop.ini",
		},
		CacheTTLHours: 24,
		PageSize:      10,
		ResultLimit:   1000,
		Log: LogConfig{
			Enabled: false,
			Level:   "info",
		},
	}
}

// DefaultWorkers returns the default scanner worker count: one per CPU,
// leaving a core free for the interactive loop.
func DefaultWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// DefaultMaxDepth bounds traversal when no depth flag is given.
const DefaultMaxDepth = 10
