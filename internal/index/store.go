// Package index holds the in-memory path index shared between the scanner's
// worker pool and the query session.
package index

import (
	"sync"
)

// PathRecord is one indexed filesystem entry. Records are immutable once
// appended; Path is the natural key within a single Store.
type PathRecord struct {
	Path  string // absolute path
	Name  string // base name, shown in the result list
	Depth uint32 // levels below the scan root
	IsDir bool
}

// Store is an ordered, append-only sequence of PathRecords. Multiple scanner
// workers append concurrently; readers take prefix snapshots while appends
// are still in flight. After Freeze, the store is read-only.
type Store struct {
	mu      sync.RWMutex
	records []PathRecord
	frozen  bool
	dropped int
}

// New returns an empty Store with room for hint records.
func New(hint int) *Store {
	if hint < 0 {
		hint = 0
	}
	return &Store{records: make([]PathRecord, 0, hint)}
}

// Hydrate builds a frozen Store from a complete record set, e.g. a cache hit.
func Hydrate(records []PathRecord) *Store {
	return &Store{records: records, frozen: true}
}

// Append adds records to the store. Appends after Freeze are dropped.
func (s *Store) Append(records ...PathRecord) {
	if len(records) == 0 {
		return
	}
	s.mu.Lock()
	if s.frozen {
		s.dropped += len(records)
		s.mu.Unlock()
		return
	}
	s.records = append(s.records, records...)
	s.mu.Unlock()
}

// Snapshot returns the records appended so far. The returned slice is a
// stable prefix view: records are immutable and append never rewrites
// existing elements, so sharing the backing array is safe.
func (s *Store) Snapshot() []PathRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[:len(s.records):len(s.records)]
}

// Len returns the current record count.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Freeze marks the store read-only. Called once the scan completes or is
// cancelled. Returns the number of appends dropped after an earlier Freeze.
func (s *Store) Freeze() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = true
	return s.dropped
}

// Frozen reports whether Freeze has been called.
func (s *Store) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}
