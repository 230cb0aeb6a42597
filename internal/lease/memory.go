package lease

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryLocker serializes holders inside one process.
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	nextGen uint64
}

type memoryEntry struct {
	gen   uint64
	done  chan struct{}
	timer *time.Timer
}

// NewMemoryLocker creates an in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{entries: make(map[string]*memoryEntry)}
}

// Acquire implements Locker.
func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	for {
		l.mu.Lock()
		entry, held := l.entries[key]
		if !held {
			l.nextGen++
			entry = &memoryEntry{gen: l.nextGen, done: make(chan struct{})}
			l.entries[key] = entry
			gen := entry.gen
			if ttl > 0 {
				entry.timer = time.AfterFunc(ttl, func() { l.release(key, gen) })
			}
			l.mu.Unlock()

			var once sync.Once
			return func() { once.Do(func() { l.release(key, gen) }) }, nil
		}
		done := entry.done
		l.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lease %s: %w", key, ctx.Err())
		}
	}
}

// Held reports whether key is currently leased.
func (l *MemoryLocker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[key]
	return ok
}

func (l *MemoryLocker) release(key string, gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok || entry.gen != gen {
		return
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	delete(l.entries, key)
	close(entry.done)
}

var _ Locker = (*MemoryLocker)(nil)
