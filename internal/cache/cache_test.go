package cache

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vrohs/winfuzz/internal/index"
	"github.com/Vrohs/winfuzz/internal/matcher"
	"github.com/Vrohs/winfuzz/internal/scanner"
	"github.com/Vrohs/winfuzz/internal/testutil"
)

func testRecords() []index.PathRecord {
	return []index.PathRecord{
		{Path: "/tmp/a/apple.txt", Name: "apple.txt", Depth: 1},
		{Path: "/tmp/a", Name: "a", Depth: 0, IsDir: true},
		{Path: "/tmp/b/deep/file.go", Name: "file.go", Depth: 2},
	}
}

func sortedPaths(records []index.PathRecord) []string {
	paths := make([]string, 0, len(records))
	for _, r := range records {
		paths = append(paths, r.Path)
	}
	sort.Strings(paths)
	return paths
}

func TestScopeKeyDeterministic(t *testing.T) {
	k1 := ScopeKey([]string{"/tmp/a", "/tmp/b"}, 5)
	k2 := ScopeKey([]string{"/tmp/b", "/tmp/a"}, 5)
	assert.Equal(t, k1, k2, "root order must not matter")

	k3 := ScopeKey([]string{"/tmp/a//", "/tmp/b/."}, 5)
	assert.Equal(t, k1, k3, "redundant separators must not matter")
}

func TestScopeKeyVariesByScope(t *testing.T) {
	base := ScopeKey([]string{"/tmp/a"}, 5)
	assert.NotEqual(t, base, ScopeKey([]string{"/tmp/b"}, 5), "different roots")
	assert.NotEqual(t, base, ScopeKey([]string{"/tmp/a"}, 6), "different depth")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := NewManager(t.TempDir(), time.Hour)
	key := ScopeKey([]string{"/tmp/a"}, 3)

	require.NoError(t, m.Save(key, testRecords()))

	loaded, ok := m.Load(key)
	require.True(t, ok, "fresh entry must hit")
	assert.Equal(t, sortedPaths(testRecords()), sortedPaths(loaded),
		"round-trip must preserve the record set")
	assert.Equal(t, testRecords(), loaded, "field-level round-trip")
}

func TestLoadMissingIsMiss(t *testing.T) {
	m := NewManager(t.TempDir(), time.Hour)
	_, ok := m.Load("nope")
	assert.False(t, ok)
}

func TestLoadCorruptIsMiss(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, time.Hour)
	key := ScopeKey([]string{"/tmp/a"}, 3)

	require.NoError(t, os.WriteFile(m.entryPath(key), []byte("not gob data"), 0644))

	_, ok := m.Load(key)
	assert.False(t, ok, "corruption is a miss, never fatal")
}

func TestLoadScopeMismatchIsMiss(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, time.Hour)
	keyA := ScopeKey([]string{"/tmp/a"}, 3)
	keyB := ScopeKey([]string{"/tmp/b"}, 3)

	require.NoError(t, m.Save(keyA, testRecords()))

	// An entry renamed into another scope's slot must not be trusted.
	require.NoError(t, os.Rename(m.entryPath(keyA), m.entryPath(keyB)))
	_, ok := m.Load(keyB)
	assert.False(t, ok)
}

func TestTTLBoundary(t *testing.T) {
	const ttl = time.Hour
	m := NewManager(t.TempDir(), ttl)
	key := ScopeKey([]string{"/tmp/a"}, 3)

	created := time.Now()
	m.now = func() time.Time { return created }
	require.NoError(t, m.Save(key, testRecords()))

	// Exactly at the TTL: expired.
	m.now = func() time.Time { return created.Add(ttl) }
	_, ok := m.Load(key)
	assert.False(t, ok, "entry aged exactly ttl is expired")

	// One millisecond inside the TTL: hit.
	m.now = func() time.Time { return created.Add(ttl - time.Millisecond) }
	_, ok = m.Load(key)
	assert.True(t, ok, "entry one millisecond younger than ttl is a hit")
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, time.Hour)
	key := ScopeKey([]string{"/tmp/a"}, 3)

	require.NoError(t, m.Save(key, testRecords()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(m.entryPath(key)), entries[0].Name())
}

func TestSaveOverwritesExistingEntry(t *testing.T) {
	m := NewManager(t.TempDir(), time.Hour)
	key := ScopeKey([]string{"/tmp/a"}, 3)

	require.NoError(t, m.Save(key, testRecords()))
	replacement := []index.PathRecord{{Path: "/only", Name: "only"}}
	require.NoError(t, m.Save(key, replacement))

	loaded, ok := m.Load(key)
	require.True(t, ok)
	assert.Equal(t, replacement, loaded)
}

func TestClearRemovesAllEntries(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, time.Hour)

	require.NoError(t, m.Save(ScopeKey([]string{"/tmp/a"}, 1), testRecords()))
	require.NoError(t, m.Save(ScopeKey([]string{"/tmp/b"}, 2), testRecords()))

	// Unrelated files in the cache dir survive a clear.
	bystander := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(bystander, []byte("keep me"), 0644))

	require.NoError(t, m.Clear())

	_, ok := m.Load(ScopeKey([]string{"/tmp/a"}, 1))
	assert.False(t, ok)
	_, err := os.Stat(bystander)
	assert.NoError(t, err)
}

func TestWarmRunRanksLikeFreshScan(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateFile("src/apple.go", nil)
	f.CreateFile("src/application.go", nil)
	f.CreateFile("docs/apparatus.md", nil)
	f.CreateFile("docs/banana.md", nil)

	scn, err := scanner.New(scanner.Options{MaxDepth: 10, Workers: 4})
	require.NoError(t, err)

	fresh := index.New(0)
	_, err = scn.Scan(context.Background(), []string{f.RootDir}, fresh)
	require.NoError(t, err)

	// First run persists the index; the second finds it and skips the scan.
	m := NewManager(t.TempDir(), time.Hour)
	key := ScopeKey([]string{f.RootDir}, 10)
	require.NoError(t, m.Save(key, fresh.Snapshot()))

	records, ok := m.Load(key)
	require.True(t, ok, "identical scope must hit")
	warm := index.Hydrate(records)

	for _, query := range []string{"", "app", "apple", "md"} {
		fromScan := matcher.Rank(fresh.Snapshot(), query, 0)
		fromCache := matcher.Rank(warm.Snapshot(), query, 0)
		assert.Equal(t, fromScan, fromCache, "query %q", query)
	}
}

func TestClearOnMissingDirIsNoop(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "never-created"), time.Hour)
	assert.NoError(t, m.Clear())
}
