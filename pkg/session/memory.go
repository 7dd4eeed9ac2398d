package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process Store backend. Expired entries are
// dropped lazily on read; Sweep exists for a periodic janitor so unread
// expired entries do not accumulate in long sessions.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[memKey]memEntry
	bcast   *broadcaster
	clock   func() time.Time
}

type memKey struct {
	namespace string
	key       string
}

type memEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[memKey]memEntry),
		bcast:   newBroadcaster(),
		clock:   time.Now,
	}
}

// Set stores value under (namespace, key).
func (s *MemoryStore) Set(_ context.Context, namespace, key string, value []byte, opts SetOptions) error {
	entry := memEntry{value: append([]byte(nil), value...)}
	if opts.TTL > 0 {
		entry.expiresAt = s.clock().Add(opts.TTL)
	}

	s.mu.Lock()
	s.entries[memKey{namespace, key}] = entry
	s.mu.Unlock()

	if !opts.SkipBroadcast {
		s.bcast.publish(Event{Namespace: namespace, Key: key, Op: OpSet})
	}
	return nil
}

// Get returns the stored value, or ErrNotFound when absent/expired.
func (s *MemoryStore) Get(_ context.Context, namespace, key string) ([]byte, error) {
	k := memKey{namespace, key}

	s.mu.RLock()
	entry, ok := s.entries[k]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !s.clock().Before(entry.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock; another writer may have
		// refreshed the key meanwhile.
		if cur, ok := s.entries[k]; ok && cur.expiresAt.Equal(entry.expiresAt) {
			delete(s.entries, k)
		}
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	return append([]byte(nil), entry.value...), nil
}

// Delete removes a key.
func (s *MemoryStore) Delete(_ context.Context, namespace, key string) error {
	s.mu.Lock()
	delete(s.entries, memKey{namespace, key})
	s.mu.Unlock()

	s.bcast.publish(Event{Namespace: namespace, Key: key, Op: OpDelete})
	return nil
}

// ClearAll wipes every namespace.
func (s *MemoryStore) ClearAll(_ context.Context) error {
	s.mu.Lock()
	s.entries = make(map[memKey]memEntry)
	s.mu.Unlock()

	s.bcast.publish(Event{Op: OpClear})
	return nil
}

// Subscribe registers a change callback.
func (s *MemoryStore) Subscribe(fn func(Event)) func() {
	return s.bcast.subscribe(fn)
}

// Sweep removes expired entries and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries, counting not-yet-swept expired
// ones.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close is a no-op for the in-memory backend.
func (s *MemoryStore) Close() error {
	return nil
}
