package handlers

import (
	"sync"
)

// aggregateLocks serializes command execution per aggregate id. Commands on
// the same id must read, validate and append as one unit; commands on
// different ids do not coordinate. The unique (aggregate_id, version) index
// in the event store remains the backstop for writers outside this process.
type aggregateLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newAggregateLocks() *aggregateLocks {
	return &aggregateLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the mutex for the given aggregate id and returns the unlock
func (l *aggregateLocks) Lock(aggregateID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[aggregateID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[aggregateID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
