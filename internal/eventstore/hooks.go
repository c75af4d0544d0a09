package eventstore

import (
	"context"
	"sync"
)

// Hook is a callback invoked with every successfully appended EventRecord.
// Hooks receive records at-least-once with no ordering guarantee; they must
// tolerate duplicates and must not block. A hook's error or panic is logged
// and never reaches the appending caller.
type Hook func(ctx context.Context, record *EventRecord) error

// HookID identifies a registered hook for removal.
type HookID int64

// HookRegistry is the one piece of mutable shared state inside the store.
// It is owned by a Store instance, not a package singleton, so tests can
// construct a store with zero hooks.
//
// Lifecycle: empty at construction, grows via AddHook, shrinks via RemoveHook.
// Add and remove are safe to call concurrently with in-flight notification;
// a hook added mid-flight need not receive events already in flight.
type HookRegistry struct {
	mu     sync.RWMutex
	nextID HookID
	hooks  map[HookID]Hook
}

// NewHookRegistry creates an empty registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{hooks: make(map[HookID]Hook)}
}

// AddHook registers fn and returns its id for later removal.
func (r *HookRegistry) AddHook(fn Hook) HookID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.hooks[id] = fn
	return id
}

// RemoveHook unregisters the hook with the given id. Unknown ids are ignored.
func (r *HookRegistry) RemoveHook(id HookID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.hooks, id)
}

// Len returns the number of registered hooks.
func (r *HookRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}

// snapshot returns the current hook set. Notification iterates the snapshot,
// never the live map, so concurrent add/remove cannot crash an iteration.
func (r *HookRegistry) snapshot() []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hooks := make([]Hook, 0, len(r.hooks))
	for _, fn := range r.hooks {
		hooks = append(hooks, fn)
	}
	return hooks
}
