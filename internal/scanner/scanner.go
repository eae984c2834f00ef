// Package scanner populates the path index from live filesystem roots using
// a bounded worker pool over an explicit directory work queue.
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"github.com/Vrohs/winfuzz/internal/index"
	"github.com/Vrohs/winfuzz/internal/logging"
)

// Options configures a scan.
type Options struct {
	// MaxDepth bounds traversal: 0 records only the roots' immediate
	// entries, 1 adds their children, and so on.
	MaxDepth uint32

	// Workers is the directory-listing pool size.
	Workers int

	// ExcludeDirs are directory names skipped entirely (not listed, not
	// recorded).
	ExcludeDirs []string

	// ExcludeFiles are glob patterns matched against file base names.
	ExcludeFiles []string
}

// Outcome summarizes a completed (or cancelled) scan.
type Outcome struct {
	Records      int
	SkippedUnits int // directories that could not be listed
	Elapsed      time.Duration
	Cancelled    bool
}

// Progress is a point-in-time snapshot of scan counters, safe to read while
// the scan is running.
type Progress struct {
	Records int64
	Dirs    int64
	Skipped int64
}

// Scanner walks directories with a worker pool. The unit of work is one
// directory listing: listing cost is dominated by per-directory I/O latency,
// so distributing whole directories balances load without per-file locking.
type Scanner struct {
	opts         Options
	excludeDirs  map[string]bool
	excludeFiles []glob.Glob

	records atomic.Int64
	dirs    atomic.Int64
	skipped atomic.Int64
}

// dirTask is one pending directory listing. chain holds the identities of
// every ancestor directory up to and including this one, used to refuse
// descending into cycles (bind mounts, reparse points).
type dirTask struct {
	path  string
	depth uint32
	chain []os.FileInfo
}

// New creates a Scanner, compiling the exclude patterns up front so an
// invalid pattern fails at startup rather than mid-scan.
func New(opts Options) (*Scanner, error) {
	s := &Scanner{
		opts:        opts,
		excludeDirs: make(map[string]bool, len(opts.ExcludeDirs)),
	}
	for _, name := range opts.ExcludeDirs {
		s.excludeDirs[name] = true
	}
	for _, pattern := range opts.ExcludeFiles {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		s.excludeFiles = append(s.excludeFiles, g)
	}
	return s, nil
}

// Progress returns the current counters.
func (s *Scanner) Progress() Progress {
	return Progress{
		Records: s.records.Load(),
		Dirs:    s.dirs.Load(),
		Skipped: s.skipped.Load(),
	}
}

// Scan traverses roots up to MaxDepth, appending one record per encountered
// entry into store. A single unreadable directory is counted and skipped,
// never fatal. On return the store is frozen; a cancelled scan leaves a
// usable partial store behind.
func (s *Scanner) Scan(ctx context.Context, roots []string, store *index.Store) (Outcome, error) {
	log := logging.ForComponent(logging.CompScanner)
	start := time.Now()

	queue := newTaskQueue()
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			s.skipped.Add(1)
			log.Warn("scan root unreadable", "root", root, "err", err)
			continue
		}
		queue.push(dirTask{path: filepath.Clean(root), depth: 0, chain: []os.FileInfo{info}})
	}
	if queue.idle() {
		// Every root was unreadable: nothing will ever be pushed, so the
		// termination condition must be forced by hand.
		queue.close()
	}

	workers := s.opts.Workers
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return s.worker(ctx, queue, store)
		})
	}

	// Unblock any worker parked on an empty queue when the scan is
	// cancelled from outside.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			queue.close()
		case <-watchDone:
		}
	}()

	err := g.Wait()
	close(watchDone)
	queue.close()

	dropped := store.Freeze()
	if dropped > 0 {
		log.Warn("appends after freeze dropped", "count", dropped)
	}

	outcome := Outcome{
		Records:      int(s.records.Load()),
		SkippedUnits: int(s.skipped.Load()),
		Elapsed:      time.Since(start),
		Cancelled:    err != nil,
	}
	log.Info("scan finished",
		"records", outcome.Records,
		"skipped", outcome.SkippedUnits,
		"elapsed", outcome.Elapsed,
		"cancelled", outcome.Cancelled)
	return outcome, err
}

func (s *Scanner) worker(ctx context.Context, queue *taskQueue, store *index.Store) error {
	for {
		if err := ctx.Err(); err != nil {
			queue.close()
			return err
		}
		task, ok := queue.pop()
		if !ok {
			return nil
		}
		s.listDir(task, queue, store)
		queue.finish()
	}
}

// listDir lists one directory, appends records for its entries, and enqueues
// subdirectories that still have depth budget.
func (s *Scanner) listDir(task dirTask, queue *taskQueue, store *index.Store) {
	entries, err := os.ReadDir(task.path)
	if err != nil {
		s.skipped.Add(1)
		return
	}
	s.dirs.Add(1)

	batch := make([]index.PathRecord, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(task.path, name)

		switch {
		case entry.Type()&os.ModeSymlink != 0:
			// Symlinks are recorded as leaves and never descended into:
			// following them risks revisiting an ancestor.
			target, err := os.Stat(full)
			isDir := err == nil && target.IsDir()
			batch = append(batch, index.PathRecord{Path: full, Name: name, Depth: task.depth, IsDir: isDir})

		case entry.IsDir():
			if s.excludeDirs[name] {
				continue
			}
			batch = append(batch, index.PathRecord{Path: full, Name: name, Depth: task.depth, IsDir: true})
			if task.depth >= s.opts.MaxDepth {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				s.skipped.Add(1)
				continue
			}
			if onChain(task.chain, info) {
				// Already an ancestor: a reparse point or bind mount
				// aliasing the tree above us. Leaf only.
				continue
			}
			chain := make([]os.FileInfo, len(task.chain), len(task.chain)+1)
			copy(chain, task.chain)
			queue.push(dirTask{path: full, depth: task.depth + 1, chain: append(chain, info)})

		default:
			if s.fileExcluded(name) {
				continue
			}
			batch = append(batch, index.PathRecord{Path: full, Name: name, Depth: task.depth, IsDir: false})
		}
	}

	store.Append(batch...)
	s.records.Add(int64(len(batch)))
}

func (s *Scanner) fileExcluded(name string) bool {
	for _, g := range s.excludeFiles {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// onChain reports whether info identifies the same directory as any ancestor.
func onChain(chain []os.FileInfo, info os.FileInfo) bool {
	for _, anc := range chain {
		if os.SameFile(anc, info) {
			return true
		}
	}
	return false
}
