package triage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// errLockTableFull bounds how many sessions can hold or wait on a lock at
// once; the pipeline surfaces it as ErrTooBusy.
var errLockTableFull = errors.New("session lock table is full")

// sessionLocks serializes turns against the same chat session so that at
// most one AI call per session is in flight. Entries are created on demand
// and discarded once the last waiter releases them.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
	maxSize int
}

type lockEntry struct {
	mu      sync.Mutex
	waiters int
}

func newSessionLocks(maxSize int) sessionLocks {
	return sessionLocks{
		entries: make(map[uuid.UUID]*lockEntry),
		maxSize: maxSize,
	}
}

func (l *sessionLocks) Lock(sessionID uuid.UUID) error {
	l.mu.Lock()

	entry := l.entries[sessionID]
	if entry == nil {
		if len(l.entries) >= l.maxSize {
			l.mu.Unlock()
			return errLockTableFull
		}
		entry = &lockEntry{}
		l.entries[sessionID] = entry
	}
	entry.waiters++
	l.mu.Unlock()

	entry.mu.Lock()
	return nil
}

func (l *sessionLocks) Unlock(sessionID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.entries[sessionID]
	if entry == nil {
		return fmt.Errorf("no lock held for session %s", sessionID)
	}

	entry.mu.Unlock()
	entry.waiters--
	if entry.waiters == 0 {
		delete(l.entries, sessionID)
	}
	return nil
}
