package platform

import (
	"os"
	"path/filepath"
)

// darwinMounts returns the boot volume plus everything under /Volumes,
// skipping the symlink macOS keeps there for the boot volume itself.
func darwinMounts() []string {
	mounts := []string{"/"}

	entries, err := os.ReadDir("/Volumes")
	if err != nil {
		return mounts
	}

	for _, e := range entries {
		full := filepath.Join("/Volumes", e.Name())
		if resolved, err := filepath.EvalSymlinks(full); err != nil || resolved == "/" {
			continue
		}
		mounts = append(mounts, full)
	}
	return mounts
}
