// Package session owns the incremental query state: the query string and its
// revision counter, the ranked top-K result set, and the selection the user
// navigates. The event loop drives it; ranking itself may run on any
// goroutine via Compute/Apply.
package session

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Vrohs/winfuzz/internal/index"
	"github.com/Vrohs/winfuzz/internal/matcher"
)

// State is the session lifecycle. Selected and Cancelled are terminal.
type State int

const (
	Idle State = iota // empty query, index shown in path order
	Filtering
	Navigating
	Selected
	Cancelled
)

// Result is a ranked result set tagged with the query revision it was
// computed against. Stale results are dropped by Apply, never merged.
type Result struct {
	Rev     uint64
	Matches []matcher.Match
}

// Session holds the query, the current result set, and navigation state.
type Session struct {
	mu       sync.Mutex
	store    *index.Store
	limit    int // top-K window
	pageSize int
	growth   *rate.Limiter

	state    State
	query    []rune
	revision uint64

	matches  []matcher.Match
	selected int
	offset   int
}

// New creates a session over store. limit bounds the ranked window, pageSize
// is the visible rows per page.
func New(store *index.Store, limit, pageSize int) *Session {
	if pageSize < 1 {
		pageSize = 1
	}
	if limit < pageSize {
		limit = pageSize
	}
	return &Session{
		store:    store,
		limit:    limit,
		pageSize: pageSize,
		// Index growth during a scan triggers re-filters at most this
		// often; per-append rescoring would burn the CPU for nothing.
		growth: rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Query returns the current query string.
func (s *Session) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.query)
}

// Revision returns the current query revision.
func (s *Session) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Insert appends a character to the query and returns the new revision.
func (s *Session) Insert(r rune) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal() {
		return s.revision
	}
	s.query = append(s.query, r)
	s.revision++
	s.state = Filtering
	return s.revision
}

// Backspace removes the last query character and returns the new revision.
// Deleting from an empty query changes nothing.
func (s *Session) Backspace() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal() || len(s.query) == 0 {
		return s.revision
	}
	s.query = s.query[:len(s.query)-1]
	s.revision++
	if len(s.query) == 0 {
		s.state = Idle
	} else {
		s.state = Filtering
	}
	return s.revision
}

// SetQuery replaces the whole query, e.g. from a text input widget. A
// changed value counts as one edit and bumps the revision; an identical
// value is a no-op. Returns the current revision either way.
func (s *Session) SetQuery(q string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal() || string(s.query) == q {
		return s.revision
	}
	s.query = []rune(q)
	s.revision++
	if len(s.query) == 0 {
		s.state = Idle
	} else {
		s.state = Filtering
	}
	return s.revision
}

// Compute ranks the store snapshot available right now against the current
// query and tags the result with the current revision. Safe to call off the
// event loop; the caller hands the result back through Apply.
func (s *Session) Compute() Result {
	s.mu.Lock()
	rev := s.revision
	query := string(s.query)
	s.mu.Unlock()

	snapshot := s.store.Snapshot()
	return Result{Rev: rev, Matches: matcher.Rank(snapshot, query, s.limit)}
}

// Apply installs a computed result set. Results for a superseded revision
// are dropped: a consumer never observes an older revision's results after
// a newer one. The previously selected path stays selected if still present,
// otherwise selection resets to the top.
func (s *Session) Apply(res Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal() || res.Rev != s.revision {
		return false
	}

	var prevPath string
	if s.selected < len(s.matches) {
		prevPath = s.matches[s.selected].Record.Path
	}

	s.matches = res.Matches

	s.selected = 0
	if prevPath != "" {
		for i, m := range s.matches {
			if m.Record.Path == prevPath {
				s.selected = i
				break
			}
		}
	}
	s.clampView()
	return true
}

// AllowGrowthRefilter rate-limits re-filter passes triggered by index growth
// while the scan is still running.
func (s *Session) AllowGrowthRefilter() bool {
	return s.growth.Allow()
}

// Matches returns the installed result set.
func (s *Session) Matches() []matcher.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matches
}

// Page returns the visible window of results, the absolute selected index,
// and the window's starting offset.
func (s *Session) Page() ([]matcher.Match, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	end := s.offset + s.pageSize
	if end > len(s.matches) {
		end = len(s.matches)
	}
	return s.matches[s.offset:end], s.selected, s.offset
}

// MoveUp moves the selection one row up.
func (s *Session) MoveUp() { s.move(-1) }

// MoveDown moves the selection one row down.
func (s *Session) MoveDown() { s.move(1) }

// PageUp moves the selection one page up.
func (s *Session) PageUp() { s.move(-s.pageSize) }

// PageDown moves the selection one page down.
func (s *Session) PageDown() { s.move(s.pageSize) }

func (s *Session) move(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal() || len(s.matches) == 0 {
		return
	}
	s.selected += delta
	s.state = Navigating
	s.clampView()
}

// Confirm finishes the session with the selected record. ok=false when the
// result set is empty.
func (s *Session) Confirm() (index.PathRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal() || len(s.matches) == 0 {
		return index.PathRecord{}, false
	}
	s.state = Selected
	return s.matches[s.selected].Record, true
}

// Cancel aborts the session.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.terminal() {
		s.state = Cancelled
	}
}

// clampView keeps the selection inside [0, len-1] and scrolls the window so
// the selection stays visible. Callers hold s.mu.
func (s *Session) clampView() {
	if s.selected >= len(s.matches) {
		s.selected = len(s.matches) - 1
	}
	if s.selected < 0 {
		s.selected = 0
	}
	if s.selected < s.offset {
		s.offset = s.selected
	}
	if s.selected >= s.offset+s.pageSize {
		s.offset = s.selected - s.pageSize + 1
	}
	if s.offset < 0 {
		s.offset = 0
	}
}

func (s *Session) terminal() bool {
	return s.state == Selected || s.state == Cancelled
}
