// Package liveness tracks when each player was last heard from and evicts
// players who have gone quiet.
package liveness

import (
	"sync"
	"time"
)

// Table maps player IDs to the time they were last seen.
type Table struct {
	mu       sync.Mutex
	lastSeen map[string]time.Time
	now      func() time.Time
}

func NewTable() *Table {
	return NewTableWithClock(time.Now)
}

// NewTableWithClock is NewTable with a custom time source.
func NewTableWithClock(now func() time.Time) *Table {
	return &Table{lastSeen: make(map[string]time.Time), now: now}
}

// Touch marks playerID as seen now.
func (t *Table) Touch(playerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen[playerID] = t.now()
}

func (t *Table) LastSeen(playerID string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.lastSeen[playerID]
	return ts, ok
}

// Stale returns the players not seen for longer than timeout.
func (t *Table) Stale(timeout time.Duration) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	var stale []string
	for id, ts := range t.lastSeen {
		if now.Sub(ts) > timeout {
			stale = append(stale, id)
		}
	}
	return stale
}

// RemoveIfStale deletes playerID unless it has been seen again within
// timeout. Returns true if the entry was removed.
func (t *Table) RemoveIfStale(playerID string, timeout time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	ts, ok := t.lastSeen[playerID]
	if !ok || t.now().Sub(ts) <= timeout {
		return false
	}
	delete(t.lastSeen, playerID)
	return true
}

func (t *Table) Remove(playerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lastSeen, playerID)
}

func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lastSeen)
}
