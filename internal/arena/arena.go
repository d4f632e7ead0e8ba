// Package arena caches values by key without keeping them alive. An entry
// stays reachable through the arena only while something else holds the
// value; once collected, the entry is dropped.
package arena

import (
	"runtime"
	"strings"
	"sync"
	"weak"
)

// Arena is a weak cache of *T keyed by string. The zero value is not usable;
// call New.
type Arena[T any] struct {
	mu      sync.Mutex
	entries map[string]weak.Pointer[T]
}

func New[T any]() *Arena[T] {
	return &Arena[T]{entries: make(map[string]weak.Pointer[T])}
}

// Get returns the live value for key.
func (a *Arena[T]) Get(key string) (*T, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	wp, ok := a.entries[key]
	if !ok {
		return nil, false
	}
	v := wp.Value()
	if v == nil {
		delete(a.entries, key)
		return nil, false
	}
	return v, true
}

// GetOrCreate returns the live value for key or stores the result of create.
// create runs under the arena lock and must not call back into the arena.
func (a *Arena[T]) GetOrCreate(key string, create func() *T) *T {
	a.mu.Lock()
	defer a.mu.Unlock()
	if wp, ok := a.entries[key]; ok {
		if v := wp.Value(); v != nil {
			return v
		}
	}
	v := create()
	a.setLocked(key, v)
	return v
}

// Set stores v under key, replacing any previous entry.
func (a *Arena[T]) Set(key string, v *T) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setLocked(key, v)
}

func (a *Arena[T]) setLocked(key string, v *T) {
	if v == nil {
		delete(a.entries, key)
		return
	}
	wp := weak.Make(v)
	a.entries[key] = wp
	runtime.AddCleanup(v, a.evict, entry[T]{key: key, wp: wp})
}

type entry[T any] struct {
	key string
	wp  weak.Pointer[T]
}

func (a *Arena[T]) evict(e entry[T]) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cur, ok := a.entries[e.key]; ok && cur == e.wp {
		delete(a.entries, e.key)
	}
}

// Delete drops key.
func (a *Arena[T]) Delete(key string) {
	a.mu.Lock()
	delete(a.entries, key)
	a.mu.Unlock()
}

// DeleteFunc drops every key for which drop returns true.
func (a *Arena[T]) DeleteFunc(drop func(key string) bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for k := range a.entries {
		if drop(k) {
			delete(a.entries, k)
		}
	}
}

// DeletePrefix drops every key starting with prefix.
func (a *Arena[T]) DeletePrefix(prefix string) {
	a.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, prefix) })
}

// Clear drops all entries.
func (a *Arena[T]) Clear() {
	a.mu.Lock()
	clear(a.entries)
	a.mu.Unlock()
}

// Len counts entries, including ones whose value was collected but whose
// cleanup has not run yet.
func (a *Arena[T]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
