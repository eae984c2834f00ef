package platform

import (
	"bufio"
	"os"
	"sort"
	"strings"
)

// Filesystem types that correspond to real, local storage. Everything else
// in /proc/mounts (proc, sysfs, cgroup, overlay layers, ...) is noise for
// a file finder.
var physicalFSTypes = map[string]bool{
	"ext2":     true,
	"ext3":     true,
	"ext4":     true,
	"xfs":      true,
	"btrfs":    true,
	"zfs":      true,
	"f2fs":     true,
	"vfat":     true,
	"exfat":    true,
	"ntfs":     true,
	"ntfs3":    true,
	"fuseblk":  true,
	"reiserfs": true,
}

// linuxMounts parses /proc/mounts for local filesystems, de-duplicated by
// mount point. Nested mount points under an already-included root are kept:
// the scanner visits them once because they are distinct directory subtrees.
func linuxMounts() []string {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return nil
	}
	defer f.Close()

	seen := make(map[string]bool)
	var mounts []string

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		mountPoint, fsType := fields[1], fields[2]
		if !physicalFSTypes[fsType] || seen[mountPoint] {
			continue
		}
		seen[mountPoint] = true
		mounts = append(mounts, unescapeMount(mountPoint))
	}

	sort.Strings(mounts)
	return mounts
}

// unescapeMount decodes the octal escapes /proc/mounts uses for spaces,
// tabs and backslashes in mount points.
func unescapeMount(s string) string {
	replacer := strings.NewReplacer(
		`\040`, " ",
		`\011`, "\t",
		`\012`, "\n",
		`\134`, `\`,
	)
	return replacer.Replace(s)
}
