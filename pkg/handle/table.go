package handle

import "sync"

// Table maps opaque native handles to objects shared outside the session.
// Native handles are never 0 and never reissued by the same table.
//
// Table is safe for concurrent use.
type Table[T any] struct {
	mu      sync.RWMutex
	entries map[uintptr]T
	next    uintptr
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{entries: make(map[uintptr]T), next: 1}
}

// Register stores v and returns its native handle.
func (t *Table[T]) Register(v T) uintptr {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.next
	t.next++
	t.entries[id] = v
	return id
}

// Lookup returns the object behind id.
func (t *Table[T]) Lookup(id uintptr) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[id]
	return v, ok
}

// Unregister removes id and reports whether it was present.
func (t *Table[T]) Unregister(id uintptr) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[id]; !ok {
		return false
	}
	delete(t.entries, id)
	return true
}

// Len returns the number of registered handles.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
