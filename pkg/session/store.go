package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound is returned by Get when a key is absent or its TTL has
// elapsed. Callers cannot distinguish the two cases, by contract.
var ErrNotFound = errors.New("session: not found")

// Op identifies the kind of change an Event describes.
type Op string

const (
	OpSet    Op = "set"
	OpDelete Op = "delete"
	OpClear  Op = "clear"
)

// Event describes a change to the store. For OpClear, Namespace and Key
// are empty.
type Event struct {
	Namespace string `json:"namespace,omitempty"`
	Key       string `json:"key,omitempty"`
	Op        Op     `json:"op"`
}

// SetOptions controls a single write.
type SetOptions struct {
	// TTL expires the key after the given duration; zero means no expiry.
	TTL time.Duration

	// SkipBroadcast suppresses the change event for this write only.
	// Branch-switch persistence uses it so that a write the process
	// itself just applied in memory does not loop back as a reload
	// trigger.
	SkipBroadcast bool
}

// Store is namespaced key/value persistence with optional TTL and change
// notification. Implementations are safe for concurrent use; concurrent
// writes to the same key are last-write-wins.
type Store interface {
	// Set stores value under (namespace, key).
	Set(ctx context.Context, namespace, key string, value []byte, opts SetOptions) error

	// Get returns the stored value, or ErrNotFound when absent/expired.
	Get(ctx context.Context, namespace, key string) ([]byte, error)

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, namespace, key string) error

	// ClearAll wipes every namespace. Used at logout.
	ClearAll(ctx context.Context) error

	// Subscribe registers a change callback and returns its unsubscribe
	// function. Callbacks run synchronously with the triggering write
	// and must not block.
	Subscribe(fn func(Event)) (unsubscribe func())

	// Close releases backend resources.
	Close() error
}

// SetJSON marshals v and stores it under (namespace, key).
func SetJSON(ctx context.Context, s Store, namespace, key string, v interface{}, opts SetOptions) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("session: marshal %s/%s: %w", namespace, key, err)
	}
	return s.Set(ctx, namespace, key, data, opts)
}

// GetJSON loads (namespace, key) and unmarshals it into v.
func GetJSON(ctx context.Context, s Store, namespace, key string, v interface{}) error {
	data, err := s.Get(ctx, namespace, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("session: unmarshal %s/%s: %w", namespace, key, err)
	}
	return nil
}

// broadcaster fans change events out to local subscribers. Shared by all
// store implementations.
type broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]func(Event))}
}

func (b *broadcaster) subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *broadcaster) publish(ev Event) {
	b.mu.Lock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
