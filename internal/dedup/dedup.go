// Package dedup implements the two cooperating state stores that back
// fingerprint-based bundle deduplication: the dedup index (fingerprint to
// completed bundle) and the in-progress lock table (fingerprint to active
// task), following codefang's pkg/persist atomic state-file conventions.
package dedup

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Sumatoshi-tech/preflight/internal/bundleerrors"
	"github.com/Sumatoshi-tech/preflight/pkg/persist"
)

const (
	dedupFile = "dedup.json"
	lockFile  = "locks.json"
)

// Status is the dedup index entry's lifecycle state.
type Status string

// Dedup statuses.
const (
	StatusComplete   Status = "complete"
	StatusInProgress Status = "in-progress"
)

// IndexEntry is one fingerprint → bundle mapping in the dedup index.
type IndexEntry struct {
	BundleID  string    `json:"bundleId"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Lock is one fingerprint's in-progress construction record.
type Lock struct {
	BundleID  string    `json:"bundleId"`
	TaskID    string    `json:"taskId"`
	StartedAt time.Time `json:"startedAt"`
	Repos     []string  `json:"repos"`
	Phase     string    `json:"phase"`
}

type indexState struct {
	Entries map[string]IndexEntry `json:"entries"`
}

type lockState struct {
	Locks map[string]Lock `json:"locks"`
}

// Store guards the dedup index and lock table under a single storage root,
// serializing concurrent callers in-process and persisting atomically
// on-disk for crash safety.
type Store struct {
	mu sync.Mutex

	root       string
	codec      persist.Codec
	dedupPath  string
	lockPath   string
	bundleStat func(bundleID string) bool
}

// NewStore creates a Store rooted at root. bundleExists is consulted by
// FindExisting to confirm a "complete" index entry's bundle directory still
// exists on disk before trusting it.
func NewStore(root string, bundleExists func(bundleID string) bool) *Store {
	return &Store{
		root:       root,
		codec:      persist.NewJSONCodec(),
		dedupPath:  filepath.Join(root, dedupFile),
		lockPath:   filepath.Join(root, lockFile),
		bundleStat: bundleExists,
	}
}

func (s *Store) loadIndex() (indexState, error) {
	var st indexState

	if err := persist.LoadFile(s.dedupPath, s.codec, &st); err != nil {
		if os.IsNotExist(err) {
			return indexState{Entries: map[string]IndexEntry{}}, nil
		}

		return indexState{}, err
	}

	if st.Entries == nil {
		st.Entries = map[string]IndexEntry{}
	}

	return st, nil
}

func (s *Store) saveIndex(st indexState) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return err
	}

	return persist.SaveAtomic(s.dedupPath, s.codec, st)
}

func (s *Store) loadLocks() (lockState, error) {
	var st lockState

	if err := persist.LoadFile(s.lockPath, s.codec, &st); err != nil {
		if os.IsNotExist(err) {
			return lockState{Locks: map[string]Lock{}}, nil
		}

		return lockState{}, err
	}

	if st.Locks == nil {
		st.Locks = map[string]Lock{}
	}

	return st, nil
}

func (s *Store) saveLocks(st lockState) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return err
	}

	return persist.SaveAtomic(s.lockPath, s.codec, st)
}

// FindExisting returns the bundle id for fingerprint if a complete entry
// exists whose bundle directory is still present, per spec §4.E.
func (s *Store) FindExisting(fingerprint string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.loadIndex()
	if err != nil {
		return "", false, err
	}

	entry, ok := st.Entries[fingerprint]
	if !ok || entry.Status != StatusComplete {
		return "", false, nil
	}

	if s.bundleStat != nil && !s.bundleStat(entry.BundleID) {
		return "", false, nil
	}

	return entry.BundleID, true, nil
}

// MarkComplete records fingerprint as complete for bundleID.
func (s *Store) MarkComplete(fingerprint, bundleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.loadIndex()
	if err != nil {
		return err
	}

	st.Entries[fingerprint] = IndexEntry{
		BundleID:  bundleID,
		Status:    StatusComplete,
		CreatedAt: time.Now().UTC(),
	}

	return s.saveIndex(st)
}

// SetLock atomically checks and sets the in-progress lock for fingerprint.
// If a lock is already held, it returns (false, existing lock, nil) rather
// than overwriting it — callers translate this into BundleInProgress.
func (s *Store) SetLock(fingerprint, bundleID, taskID string, repos []string) (bool, *Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.loadLocks()
	if err != nil {
		return false, nil, err
	}

	if existing, ok := st.Locks[fingerprint]; ok {
		existing := existing

		return false, &existing, nil
	}

	st.Locks[fingerprint] = Lock{
		BundleID:  bundleID,
		TaskID:    taskID,
		StartedAt: time.Now().UTC(),
		Repos:     repos,
		Phase:     "starting",
	}

	if err := s.saveLocks(st); err != nil {
		return false, nil, err
	}

	return true, nil, nil
}

// ClearLock removes the lock for fingerprint. Idempotent: clearing an
// absent lock is not an error.
func (s *Store) ClearLock(fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.loadLocks()
	if err != nil {
		return err
	}

	if _, ok := st.Locks[fingerprint]; !ok {
		return nil
	}

	delete(st.Locks, fingerprint)

	return s.saveLocks(st)
}

// CheckLock returns the current lock for fingerprint, if any.
func (s *Store) CheckLock(fingerprint string) (*Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.loadLocks()
	if err != nil {
		return nil, err
	}

	lock, ok := st.Locks[fingerprint]
	if !ok {
		return nil, nil
	}

	return &lock, nil
}

// UpdatePhase updates the phase of an existing lock, used by the bundle
// builder as construction advances through its state machine.
func (s *Store) UpdatePhase(fingerprint, phase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.loadLocks()
	if err != nil {
		return err
	}

	lock, ok := st.Locks[fingerprint]
	if !ok {
		return nil
	}

	lock.Phase = phase
	st.Locks[fingerprint] = lock

	return s.saveLocks(st)
}

// AcquireOrConflict wraps SetLock, translating a held lock into the
// BundleInProgress taxonomy error for direct use by callers.
func (s *Store) AcquireOrConflict(fingerprint, bundleID, taskID string, repos []string) error {
	locked, existing, err := s.SetLock(fingerprint, bundleID, taskID, repos)
	if err != nil {
		return err
	}

	if locked {
		return nil
	}

	return bundleerrors.BundleInProgress(bundleerrors.InProgressInfo{
		TaskID:      existing.TaskID,
		StartedAt:   existing.StartedAt.Format(time.RFC3339),
		Repos:       existing.Repos,
		Fingerprint: fingerprint,
	})
}
