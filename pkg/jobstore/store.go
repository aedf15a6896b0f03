package jobstore

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidState is returned when a caller attempts an illegal state
// transition: writing a non-terminal status onto a terminal entry, or
// calling StoreFinal with a non-terminal status.
var ErrInvalidState = errors.New("invalid job state transition")

// ErrNotFound reports an unknown tracking id. Store's own operations do not
// return it: Get reports a missing entry through its ok result, and
// UpdateStatus, StoreFinal and Delete tolerate one.
var ErrNotFound = errors.New("job not found")

// entry wraps a JobState with its own mutex so that readers and the single
// worker mutating a given ruid never observe a torn (status, result) pair,
// and so that one job's writes never block another job's readers.
type entry struct {
	mu    sync.RWMutex
	state JobState
}

// Store is a thread-safe map of tracking id (ruid) -> job state. It is the
// only mutation surface for job lifecycle: register, updateStatus,
// storeFinal, get, delete.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates an empty job store.
func New() *Store {
	return &Store{
		entries: make(map[string]*entry),
	}
}

// Register inserts a new (QUEUED, nil) entry for ruid. Callers must ensure
// ruid is globally unique; behavior on a duplicate key is undefined.
func (s *Store) Register(ruid string) {
	now := time.Now()
	e := &entry{state: JobState{Status: StatusQueued, CreatedAt: now, UpdatedAt: now}}

	s.mu.Lock()
	s.entries[ruid] = e
	s.mu.Unlock()
}

// UpdateStatus transitions ruid to status, but only if the entry exists and
// is currently non-terminal. A write onto a missing or terminal entry is
// silently ignored; the caller gets no signal that it was, and nothing is
// surfaced to clients.
func (s *Store) UpdateStatus(ruid string, status Status) {
	e := s.lookup(ruid)
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Status.IsTerminal() {
		return
	}
	e.state.Status = status
	e.state.UpdatedAt = time.Now()
}

// StoreFinal writes the terminal (status, result) pair for ruid. finalStatus
// must be COMPLETED or FAILED. Overwrites any prior state for ruid.
func (s *Store) StoreFinal(ruid string, result map[string]any, finalStatus Status) error {
	if !finalStatus.IsTerminal() {
		return fmt.Errorf("%w: storeFinal requires a terminal status, got %q", ErrInvalidState, finalStatus)
	}

	e := s.lookup(ruid)
	if e == nil {
		// Tolerate a missing entry: the worker always registers before
		// dispatching, but storeFinal should never itself fail a job.
		now := time.Now()
		e = &entry{state: JobState{CreatedAt: now}}
		s.mu.Lock()
		s.entries[ruid] = e
		s.mu.Unlock()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Status = finalStatus
	e.state.Result = result
	e.state.UpdatedAt = time.Now()
	return nil
}

// Get returns the current state of ruid, or ok=false if unknown.
func (s *Store) Get(ruid string) (JobState, bool) {
	e := s.lookup(ruid)
	if e == nil {
		return JobState{}, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Clone(), true
}

// Delete removes ruid. Has no effect on a job currently being processed by a
// worker: the worker's in-flight writes will simply recreate or miss the
// entry depending on timing.
func (s *Store) Delete(ruid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, ruid)
}

// Len returns the number of tracked entries, regardless of status.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) lookup(ruid string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[ruid]
}
