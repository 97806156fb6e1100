// Package dedup implements the deduplication and age store: a persistent set
// of previously-seen deal identities with lazy age-based eviction.
package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/firsthalfhero/OzBargain/internal/domain"
)

const stateVersion = 1

// stateFile is the on-disk format. Unknown fields are ignored on load so the
// format stays forward-compatible.
type stateFile struct {
	Version int                  `json:"version"`
	Seen    map[string]time.Time `json:"seen"`
}

// FileStore is a seen-set backed by a single JSON file. All methods are safe
// for concurrent use; the check-and-record sequence is one critical section,
// and no lock is held across file I/O.
type FileStore struct {
	path      string
	maxAge    time.Duration
	retention time.Duration
	logger    *slog.Logger

	mu    sync.Mutex
	seen  map[string]time.Time
	dirty bool
	gen   uint64
}

// NewFileStore loads persisted state from path. A missing, corrupt, or
// unreadable file degrades to an empty store with a warning: re-alerting
// after state loss beats refusing to start.
func NewFileStore(path string, maxAge, retention time.Duration, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	if retention <= 0 {
		retention = 2 * maxAge
	}
	if retention < maxAge {
		retention = maxAge
	}

	s := &FileStore{
		path:      path,
		maxAge:    maxAge,
		retention: retention,
		logger:    logger,
		seen:      map[string]time.Time{},
	}
	s.load()
	return s
}

func (s *FileStore) load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("seen-state unreadable, starting empty", "path", s.path, "error", err)
		}
		return
	}

	var state stateFile
	if err := json.Unmarshal(raw, &state); err != nil {
		s.logger.Warn("seen-state corrupt, starting empty", "path", s.path, "error", err)
		return
	}
	if state.Seen != nil {
		s.seen = state.Seen
	}
	s.logger.Debug("seen-state loaded", "path", s.path, "records", len(s.seen))
}

// IsNew decides what an entry is: Stale when older than the freshness window
// (checked before the seen-set so old entries never pollute it), Duplicate
// when already recorded, New otherwise. Returning New records the identity
// key atomically, so two concurrent calls with the same key cannot both
// observe New. Persistence is best-effort: a failed write is logged and
// retried on the next call, and the in-memory decision always stands.
func (s *FileStore) IsNew(_ context.Context, identityKey string, publishedAt, now time.Time) domain.DedupDecision {
	if now.Sub(publishedAt) > s.maxAge {
		return domain.DecisionStale
	}

	s.mu.Lock()
	s.evictLocked(now)

	decision := domain.DecisionDuplicate
	if _, ok := s.seen[identityKey]; !ok {
		s.seen[identityKey] = now
		s.dirty = true
		s.gen++
		decision = domain.DecisionNew
	}

	var snapshot map[string]time.Time
	var snapshotGen uint64
	if s.dirty {
		snapshot = s.cloneLocked()
		snapshotGen = s.gen
	}
	s.mu.Unlock()

	if snapshot != nil {
		s.persist(snapshot, snapshotGen)
	}
	return decision
}

// evictLocked drops records older than the retention window. Eviction is
// lazy, piggybacking on lookups, so store size stays bounded without a
// background sweeper. Caller holds s.mu.
func (s *FileStore) evictLocked(now time.Time) {
	for key, firstSeen := range s.seen {
		if now.Sub(firstSeen) > s.retention {
			delete(s.seen, key)
			s.dirty = true
			s.gen++
		}
	}
}

func (s *FileStore) cloneLocked() map[string]time.Time {
	clone := make(map[string]time.Time, len(s.seen))
	for k, v := range s.seen {
		clone[k] = v
	}
	return clone
}

// persist writes a snapshot atomically (temp file + rename). The dirty flag
// is cleared only if no mutation happened while the write was in flight.
func (s *FileStore) persist(snapshot map[string]time.Time, gen uint64) {
	if err := writeState(s.path, snapshot); err != nil {
		s.logger.Error("seen-state write failed, will retry next cycle", "path", s.path, "error", err)
		return
	}

	s.mu.Lock()
	if s.gen == gen {
		s.dirty = false
	}
	s.mu.Unlock()
}

func writeState(path string, seen map[string]time.Time) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	raw, err := json.MarshalIndent(stateFile{Version: stateVersion, Seen: seen}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Records returns the current seen-set sorted by identity key, for audit
// output and tests.
func (s *FileStore) Records() []domain.SeenRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]domain.SeenRecord, 0, len(s.seen))
	for key, firstSeen := range s.seen {
		records = append(records, domain.SeenRecord{IdentityKey: key, FirstSeenAt: firstSeen})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].IdentityKey < records[j].IdentityKey
	})
	return records
}

// Close flushes any unpersisted state.
func (s *FileStore) Close() error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snapshot := s.cloneLocked()
	s.mu.Unlock()

	return writeState(s.path, snapshot)
}
