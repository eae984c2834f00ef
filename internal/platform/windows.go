package platform

import "os"

// windowsMounts probes drive letters A: through Z: for mounted volumes.
func windowsMounts() []string {
	var mounts []string
	for letter := 'A'; letter <= 'Z'; letter++ {
		root := string(letter) + `:\`
		if _, err := os.Stat(root); err == nil {
			mounts = append(mounts, root)
		}
	}
	return mounts
}
