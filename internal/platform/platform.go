// Package platform answers platform-specific questions: which volumes are
// mounted, and where per-user state lives.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
)

// Platform represents the operating system platform
type Platform string

const (
	MacOS   Platform = "darwin"
	Linux   Platform = "linux"
	Windows Platform = "windows"
	Unknown Platform = "unknown"
)

// Detect returns the current platform
func Detect() Platform {
	switch runtime.GOOS {
	case "darwin":
		return MacOS
	case "linux":
		return Linux
	case "windows":
		return Windows
	default:
		return Unknown
	}
}

// Mounts returns the roots of every mounted volume worth indexing, used by
// the scan-all-drives option. Always returns at least one root.
func Mounts() []string {
	var mounts []string
	switch Detect() {
	case Linux:
		mounts = linuxMounts()
	case MacOS:
		mounts = darwinMounts()
	case Windows:
		mounts = windowsMounts()
	}
	if len(mounts) == 0 {
		mounts = []string{string(os.PathSeparator)}
	}
	return mounts
}

// StateDir returns the per-user directory for cache and log files.
func StateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".winfuzz_cache"), nil
}
