package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/Vrohs/winfuzz/internal/index"
	"github.com/Vrohs/winfuzz/internal/testutil"
)

func mustScanner(t *testing.T, opts Options) *Scanner {
	t.Helper()
	if opts.Workers == 0 {
		opts.Workers = 4
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return s
}

func scanToStore(t *testing.T, s *Scanner, roots ...string) (*index.Store, Outcome) {
	t.Helper()
	store := index.New(0)
	outcome, err := s.Scan(context.Background(), roots, store)
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	return store, outcome
}

func storePaths(store *index.Store) []string {
	var paths []string
	for _, rec := range store.Snapshot() {
		paths = append(paths, rec.Path)
	}
	sort.Strings(paths)
	return paths
}

func TestScanRecordsFilesAndDirs(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateFile("apple.txt", nil)
	f.CreateFile("sub/nested.go", nil)

	s := mustScanner(t, Options{MaxDepth: 10})
	store, outcome := scanToStore(t, s, f.RootDir)

	want := []string{
		f.Path("apple.txt"),
		f.Path("sub"),
		f.Path("sub/nested.go"),
	}
	sort.Strings(want)
	got := storePaths(store)
	if len(got) != len(want) {
		t.Fatalf("got %d records %v, want %v", len(got), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %q, want %q", i, got[i], want[i])
		}
	}

	if outcome.Records != 3 {
		t.Errorf("outcome.Records = %d, want 3", outcome.Records)
	}
	if outcome.SkippedUnits != 0 {
		t.Errorf("outcome.SkippedUnits = %d, want 0", outcome.SkippedUnits)
	}
	if !store.Frozen() {
		t.Error("store must be frozen after scan")
	}
}

func TestScanRecordShape(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateFile("sub/nested.go", nil)

	s := mustScanner(t, Options{MaxDepth: 10})
	store, _ := scanToStore(t, s, f.RootDir)

	byPath := make(map[string]index.PathRecord)
	for _, rec := range store.Snapshot() {
		byPath[rec.Path] = rec
	}

	sub := byPath[f.Path("sub")]
	if !sub.IsDir || sub.Name != "sub" || sub.Depth != 0 {
		t.Errorf("sub record wrong: %+v", sub)
	}
	nested := byPath[f.Path("sub/nested.go")]
	if nested.IsDir || nested.Name != "nested.go" || nested.Depth != 1 {
		t.Errorf("nested record wrong: %+v", nested)
	}
}

func TestScanDepthZeroOnlyImmediateEntries(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateFile("top.txt", nil)
	f.CreateFile("sub/child.txt", nil)
	f.CreateFile("sub/deeper/grandchild.txt", nil)

	s := mustScanner(t, Options{MaxDepth: 0})
	store, _ := scanToStore(t, s, f.RootDir)

	want := []string{f.Path("sub"), f.Path("top.txt")}
	got := storePaths(store)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("depth 0 scan recorded %v, want %v", got, want)
	}
}

func TestScanDepthOne(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateFile("sub/child.txt", nil)
	f.CreateFile("sub/deeper/grandchild.txt", nil)

	s := mustScanner(t, Options{MaxDepth: 1})
	store, _ := scanToStore(t, s, f.RootDir)

	got := storePaths(store)
	want := []string{f.Path("sub"), f.Path("sub/child.txt"), f.Path("sub/deeper")}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("depth 1 scan recorded %v, want %v", got, want)
	}
}

func TestScanSkipsUnreadableDirAndContinues(t *testing.T) {
	f := testutil.NewFixture(t)
	for i := 0; i < 9; i++ {
		f.CreateFile(fmt.Sprintf("dir%d/file.txt", i), nil)
	}
	f.CreateUnreadableDir("locked")

	s := mustScanner(t, Options{MaxDepth: 10})
	store, outcome := scanToStore(t, s, f.RootDir)

	if outcome.SkippedUnits != 1 {
		t.Errorf("SkippedUnits = %d, want 1", outcome.SkippedUnits)
	}
	// 10 dir records + 9 readable dirs' files. The locked dir is still
	// recorded as an entry of the root; only its listing failed.
	if got := store.Len(); got != 19 {
		t.Errorf("Len() = %d, want 19: %v", got, storePaths(store))
	}
}

func TestScanExcludesConfiguredDirs(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateFile("src/main.go", nil)
	f.CreateFile("node_modules/lodash/index.js", nil)
	f.CreateFile(".git/HEAD", nil)

	s := mustScanner(t, Options{MaxDepth: 10, ExcludeDirs: []string{"node_modules", ".git"}})
	store, _ := scanToStore(t, s, f.RootDir)

	want := []string{f.Path("src"), f.Path("src/main.go")}
	got := storePaths(store)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("recorded %v, want %v", got, want)
	}
}

func TestScanExcludesFileGlobs(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateFile("keep.txt", nil)
	f.CreateFile(".DS_Store", nil)
	f.CreateFile("noise.tmp", nil)

	s := mustScanner(t, Options{MaxDepth: 10, ExcludeFiles: []string{".DS_Store", "*.tmp"}})
	store, _ := scanToStore(t, s, f.RootDir)

	want := []string{f.Path("keep.txt")}
	if got := storePaths(store); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("recorded %v, want %v", got, want)
	}
}

func TestScanInvalidExcludePattern(t *testing.T) {
	_, err := New(Options{ExcludeFiles: []string{"[unclosed"}})
	if err == nil {
		t.Fatal("New() accepted an invalid glob")
	}
}

func TestScanSymlinkCycleRecordedAsLeaf(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateFile("sub/file.txt", nil)
	// sub/loop points back at the fixture root: descending would revisit
	// an ancestor forever.
	f.CreateSymlink(f.RootDir, "sub/loop")

	s := mustScanner(t, Options{MaxDepth: 50, Workers: 2})

	done := make(chan struct{})
	var store *index.Store
	go func() {
		defer close(done)
		store = index.New(0)
		s.Scan(context.Background(), []string{f.RootDir}, store)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("scan did not terminate: symlink cycle followed")
	}

	byPath := make(map[string]index.PathRecord)
	for _, rec := range store.Snapshot() {
		byPath[rec.Path] = rec
	}
	loop, ok := byPath[f.Path("sub/loop")]
	if !ok {
		t.Fatal("cycle entry missing from index")
	}
	if !loop.IsDir {
		t.Error("cycle entry should report its target type")
	}
	if _, descended := byPath[f.Path("sub/loop/sub")]; descended {
		t.Error("scanner descended into a symlink")
	}
}

func TestScanBrokenSymlinkRecorded(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateSymlink(filepath.Join(f.RootDir, "does-not-exist"), "dangling")

	s := mustScanner(t, Options{MaxDepth: 10})
	store, outcome := scanToStore(t, s, f.RootDir)

	want := []string{f.Path("dangling")}
	if got := storePaths(store); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("recorded %v, want %v", got, want)
	}
	if outcome.SkippedUnits != 0 {
		t.Errorf("a broken symlink is a leaf, not a skipped unit; got %d", outcome.SkippedUnits)
	}
}

func TestScanMultipleRoots(t *testing.T) {
	a := testutil.NewFixture(t)
	b := testutil.NewFixture(t)
	a.CreateFile("one.txt", nil)
	b.CreateFile("two.txt", nil)

	s := mustScanner(t, Options{MaxDepth: 10})
	store, _ := scanToStore(t, s, a.RootDir, b.RootDir)

	got := storePaths(store)
	want := []string{a.Path("one.txt"), b.Path("two.txt")}
	sort.Strings(want)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("recorded %v, want %v", got, want)
	}
}

func TestScanUnreadableRootIsSkippedUnit(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateFile("ok/file.txt", nil)
	missing := filepath.Join(f.RootDir, "gone")

	s := mustScanner(t, Options{MaxDepth: 10})
	store, outcome := scanToStore(t, s, f.Path("ok"), missing)

	if outcome.SkippedUnits != 1 {
		t.Errorf("SkippedUnits = %d, want 1", outcome.SkippedUnits)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestScanCancellation(t *testing.T) {
	f := testutil.NewFixture(t)
	// A wide tree so there is work to abandon.
	for i := 0; i < 50; i++ {
		f.CreateTree(fmt.Sprintf("dir%02d", i), 20)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := mustScanner(t, Options{MaxDepth: 10, Workers: 4})
	store := index.New(0)
	outcome, err := s.Scan(ctx, []string{f.RootDir}, store)

	if err == nil {
		t.Fatal("cancelled scan must return the context error")
	}
	if !outcome.Cancelled {
		t.Error("outcome.Cancelled = false")
	}
	if !store.Frozen() {
		t.Error("store must be frozen even after cancellation")
	}
	// The partial store stays usable for filtering.
	_ = store.Snapshot()
}

func TestScanProgressCounters(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateTree("data", 30)

	s := mustScanner(t, Options{MaxDepth: 10})
	_, outcome := scanToStore(t, s, f.RootDir)

	p := s.Progress()
	if p.Records != int64(outcome.Records) {
		t.Errorf("Progress().Records = %d, want %d", p.Records, outcome.Records)
	}
	if p.Dirs != 2 { // root + data
		t.Errorf("Progress().Dirs = %d, want 2", p.Dirs)
	}
}

func BenchmarkScanWideTree(b *testing.B) {
	root := b.TempDir()
	for i := 0; i < 20; i++ {
		dir := filepath.Join(root, fmt.Sprintf("dir%02d", i))
		if err := os.MkdirAll(dir, 0755); err != nil {
			b.Fatal(err)
		}
		for j := 0; j < 50; j++ {
			path := filepath.Join(dir, fmt.Sprintf("file%02d.txt", j))
			if err := os.WriteFile(path, nil, 0644); err != nil {
				b.Fatal(err)
			}
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s, _ := New(Options{MaxDepth: 10, Workers: 8})
		store := index.New(1024)
		if _, err := s.Scan(context.Background(), []string{root}, store); err != nil {
			b.Fatal(err)
		}
	}
}
