package lock

import (
	"context"
	"fmt"
	"sync"
)

// MemoryLocker is an in-process keyed mutex. Entries are dropped once no caller holds or waits on them.
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	slot chan struct{}
	refs int
}

// NewMemoryLocker creates an empty MemoryLocker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{entries: make(map[string]*memoryEntry)}
}

// Lock implements Locker.
func (m *MemoryLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	m.mu.Lock()
	entry, ok := m.entries[key]
	if !ok {
		entry = &memoryEntry{slot: make(chan struct{}, 1)}
		m.entries[key] = entry
	}
	entry.refs++
	m.mu.Unlock()

	select {
	case entry.slot <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-entry.slot
				m.release(key, entry)
			})
		}, nil
	case <-ctx.Done():
		m.release(key, entry)
		return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
	}
}

func (m *MemoryLocker) release(key string, entry *memoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(m.entries, key)
	}
}

// held reports how many keys currently have holders or waiters
func (m *MemoryLocker) held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
