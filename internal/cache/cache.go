// Package cache persists path index snapshots between runs. One entry per
// scan scope, expired by TTL, checked lazily on load. Corruption is never
// fatal: anything unreadable is treated as a miss.
package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Vrohs/winfuzz/internal/index"
)

// DefaultTTL is how long a cached index stays valid.
const DefaultTTL = 24 * time.Hour

const (
	filePrefix = "index_"
	fileSuffix = ".gob"
)

// Manager reads and writes index snapshots in a dedicated cache directory.
type Manager struct {
	dir string
	ttl time.Duration

	// now is swappable for TTL boundary tests.
	now func() time.Time
}

// entry is the on-disk layout.
type entry struct {
	ScopeKey  string
	CreatedAt time.Time
	Records   []index.PathRecord
}

// NewManager creates a Manager rooted at dir. A zero ttl means DefaultTTL.
func NewManager(dir string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{dir: dir, ttl: ttl, now: time.Now}
}

// ScopeKey derives the cache slot for a scan scope. Deterministic: the same
// roots (in any order, with redundant separators) and depth always produce
// the same key.
func ScopeKey(roots []string, maxDepth uint32) string {
	normalized := make([]string, 0, len(roots))
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			abs = root
		}
		normalized = append(normalized, filepath.Clean(abs))
	}
	sort.Strings(normalized)

	h := sha256.New()
	fmt.Fprintf(h, "%s|depth=%d", strings.Join(normalized, "\x00"), maxDepth)
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// Load returns the cached records for key, or ok=false on a miss. Missing
// file, decode failure, scope mismatch, and TTL expiry are all misses; an
// entry aged exactly ttl is already expired.
func (m *Manager) Load(key string) ([]index.PathRecord, bool) {
	f, err := os.Open(m.entryPath(key))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	var e entry
	if err := gob.NewDecoder(f).Decode(&e); err != nil {
		return nil, false
	}
	if e.ScopeKey != key {
		return nil, false
	}
	if m.now().Sub(e.CreatedAt) >= m.ttl {
		return nil, false
	}
	return e.Records, true
}

// Save writes records under key. The entry is written to a temp file in the
// cache directory and renamed into place, so a crash mid-write never leaves
// a half-written entry visible to Load.
func (m *Manager) Save(key string, records []index.PathRecord) error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(m.dir, filePrefix+"*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	e := entry{ScopeKey: key, CreatedAt: m.now(), Records: records}
	if err := gob.NewEncoder(tmp).Encode(&e); err != nil {
		tmp.Close()
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}

	if err := os.Rename(tmp.Name(), m.entryPath(key)); err != nil {
		return fmt.Errorf("replace cache entry: %w", err)
	}
	return nil
}

// Clear removes every cached entry unconditionally.
func (m *Manager) Clear() error {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cache dir: %w", err)
	}

	var firstErr error
	for _, de := range entries {
		name := de.Name()
		if !strings.HasPrefix(name, filePrefix) {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, name)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Manager) entryPath(key string) string {
	return filepath.Join(m.dir, filePrefix+key+fileSuffix)
}
