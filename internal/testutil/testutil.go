// Package testutil provides filesystem fixtures for scanner and cache tests.
// All file operations use t.TempDir() for safe, isolated testing.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TestFixture holds a temp directory tree for index-building tests.
type TestFixture struct {
	T       *testing.T
	RootDir string // Root temp directory (auto-cleaned)
}

// NewFixture creates a new test fixture rooted in a temp directory.
func NewFixture(t *testing.T) *TestFixture {
	t.Helper()
	return &TestFixture{T: t, RootDir: t.TempDir()}
}

// Path returns the full path for a relative path within the fixture.
func (f *TestFixture) Path(relPath string) string {
	return filepath.Join(f.RootDir, relPath)
}

// CreateFile creates a file (and its parents) and returns its path.
func (f *TestFixture) CreateFile(relPath string, content []byte) string {
	f.T.Helper()

	fullPath := f.Path(relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		f.T.Fatalf("failed to create directory for %s: %v", fullPath, err)
	}
	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		f.T.Fatalf("failed to create file %s: %v", fullPath, err)
	}
	return fullPath
}

// CreateDir creates a directory and returns its path.
func (f *TestFixture) CreateDir(relPath string) string {
	f.T.Helper()

	fullPath := f.Path(relPath)
	if err := os.MkdirAll(fullPath, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", fullPath, err)
	}
	return fullPath
}

// CreateTree creates a directory with n empty files named file00..fileNN.
func (f *TestFixture) CreateTree(relDir string, n int) {
	f.T.Helper()
	for i := 0; i < n; i++ {
		f.CreateFile(filepath.Join(relDir, filenameFor(i)), nil)
	}
}

func filenameFor(i int) string {
	return "file" + string(rune('a'+i/26)) + string(rune('a'+i%26)) + ".txt"
}

// CreateSymlink creates a symbolic link, skipping the test where symlinks
// are unsupported.
func (f *TestFixture) CreateSymlink(target, linkRelPath string) string {
	f.T.Helper()

	fullLink := f.Path(linkRelPath)
	if err := os.MkdirAll(filepath.Dir(fullLink), 0755); err != nil {
		f.T.Fatalf("failed to create directory for %s: %v", fullLink, err)
	}
	if err := os.Symlink(target, fullLink); err != nil {
		f.T.Skipf("symlinks not supported here: %v", err)
	}
	return fullLink
}

// CreateUnreadableDir creates a directory that cannot be listed. Permissions
// are restored on cleanup so TempDir removal works.
func (f *TestFixture) CreateUnreadableDir(relPath string) string {
	f.T.Helper()
	SkipIfRoot(f.T)

	fullPath := f.CreateDir(relPath)
	if err := os.Chmod(fullPath, 0000); err != nil {
		f.T.Fatalf("failed to chmod directory %s: %v", fullPath, err)
	}
	f.T.Cleanup(func() {
		os.Chmod(fullPath, 0755)
	})
	return fullPath
}

// SkipIfRoot skips the test if running as root, where permission bits do
// not restrict access.
func SkipIfRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() == 0 {
		t.Skip("skipping test when running as root")
	}
}
