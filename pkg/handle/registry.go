// Package handle issues and validates opaque 32-bit object identifiers.
//
// A handle packs a kind tag, a slot generation and a slot index:
//
//	31..29 kind | 28..18 generation | 17..0 index
//
// The last index is never issued, so 0xFFFFFFFF is never produced.
// Released slots are reused oldest first and only once a reserve of free
// slots has built up, so a stale handle value comes back only after
// freeReserve << genBits allocations of the same kind.
package handle

import (
	"errors"
	"fmt"
	"sync"
)

// Handle is an opaque object identifier.
type Handle uint32

// Invalid is the reserved "no object" value.
const Invalid Handle = 0xFFFFFFFF

// Kind tags the object type a handle refers to.
type Kind uint8

// Object kinds.
const (
	KindConfig Kind = iota + 1
	KindContext
	KindSurface
	KindBuffer
	KindImage
	KindSubpicture
	KindMFContext
)

var kindNames = map[Kind]string{
	KindConfig:     "config",
	KindContext:    "context",
	KindSurface:    "surface",
	KindBuffer:     "buffer",
	KindImage:      "image",
	KindSubpicture: "subpicture",
	KindMFContext:  "mf-context",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

const (
	indexBits = 18
	genBits   = 11
	kindShift = indexBits + genBits

	indexMask = 1<<indexBits - 1
	genMask   = 1<<genBits - 1

	// MaxSlots is the number of live objects a registry can hold.
	MaxSlots = 1<<indexBits - 1

	// freeReserve is how many released slots wait before the oldest is
	// reused, unless the registry is at its limit.
	freeReserve = 1024
)

// Registry errors.
var (
	// ErrInvalid is returned for handles that were never issued or were released.
	ErrInvalid = errors.New("handle: invalid handle")

	// ErrWrongKind is returned for a handle of another object kind.
	ErrWrongKind = errors.New("handle: wrong object kind")

	// ErrExhausted is returned when every slot is in use.
	ErrExhausted = errors.New("handle: registry exhausted")
)

// Kind returns the kind tag encoded in h.
func (h Handle) Kind() Kind { return Kind(uint32(h) >> kindShift) }

func (h Handle) index() uint32 { return uint32(h) & indexMask }

func (h Handle) gen() uint32 { return (uint32(h) >> indexBits) & genMask }

func makeHandle(k Kind, gen, index uint32) Handle {
	return Handle(uint32(k)<<kindShift | (gen&genMask)<<indexBits | index&indexMask)
}

type slot[T any] struct {
	gen     uint32
	value   T
	live    bool // resolvable
	holds   int  // internal references keeping the slot reserved
	claimed bool // slot is not on the free list
}

// Registry maps handles of one kind to values.
//
// Release revokes a handle at once, but its slot is only recycled after
// every Hold has been dropped, so a handle value is never reissued while
// pending work still refers to it.
//
// Registry is safe for concurrent use.
type Registry[T any] struct {
	mu    sync.RWMutex
	kind  Kind
	limit int
	slots []slot[T]
	free  []uint32
	live  int
}

// New creates a registry for kind. A limit <= 0 or above MaxSlots means MaxSlots.
func New[T any](kind Kind, limit int) *Registry[T] {
	if limit <= 0 || limit > MaxSlots {
		limit = MaxSlots
	}
	return &Registry[T]{kind: kind, limit: limit}
}

// Kind returns the kind this registry issues.
func (r *Registry[T]) Kind() Kind { return r.kind }

// Allocate stores v and returns a new handle for it.
func (r *Registry[T]) Allocate(v T) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var idx uint32
	full := len(r.slots) >= r.limit
	switch {
	case len(r.free) > 0 && (full || len(r.free) >= freeReserve):
		idx = r.free[0]
		r.free = r.free[1:]
	case !full:
		idx = uint32(len(r.slots))
		r.slots = append(r.slots, slot[T]{})
	default:
		return Invalid, fmt.Errorf("%w: %d %s handles in use", ErrExhausted, r.live, r.kind)
	}

	s := &r.slots[idx]
	s.value = v
	s.live = true
	s.claimed = true
	s.holds = 0
	r.live++
	return makeHandle(r.kind, s.gen, idx), nil
}

func (r *Registry[T]) lookup(h Handle) (*slot[T], error) {
	if h == Invalid {
		return nil, ErrInvalid
	}
	if h.Kind() != r.kind {
		return nil, fmt.Errorf("%w: %s handle %#x used as %s", ErrWrongKind, h.Kind(), uint32(h), r.kind)
	}
	idx := h.index()
	if int(idx) >= len(r.slots) {
		return nil, ErrInvalid
	}
	s := &r.slots[idx]
	if !s.live || s.gen != h.gen() {
		return nil, ErrInvalid
	}
	return s, nil
}

// Resolve returns the value behind h.
func (r *Registry[T]) Resolve(h Handle) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, err := r.lookup(h)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.value, nil
}

// Hold pins the slot of h so that its value is not reissued until Drop.
func (r *Registry[T]) Hold(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.lookup(h)
	if err != nil {
		return err
	}
	s.holds++
	return nil
}

// Drop undoes one Hold. A released slot with no holds left is recycled.
func (r *Registry[T]) Drop(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := h.index()
	if h.Kind() != r.kind || int(idx) >= len(r.slots) {
		return
	}
	s := &r.slots[idx]
	if s.gen != h.gen() || s.holds == 0 {
		return
	}
	s.holds--
	r.recycleLocked(idx)
}

// Release revokes h. Later Resolve calls fail even if holds remain.
func (r *Registry[T]) Release(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.lookup(h)
	if err != nil {
		return err
	}
	s.live = false
	r.live--
	r.recycleLocked(h.index())
	return nil
}

func (r *Registry[T]) recycleLocked(idx uint32) {
	s := &r.slots[idx]
	if s.live || s.holds > 0 || !s.claimed {
		return
	}
	var zero T
	s.value = zero
	s.claimed = false
	s.gen = (s.gen + 1) & genMask
	r.free = append(r.free, idx)
}

// Len returns the number of resolvable handles.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.live
}

// Reserved returns the number of slots that cannot be reissued yet,
// live or held.
func (r *Registry[T]) Reserved() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots) - len(r.free)
}

// Each calls fn for every resolvable handle in slot order.
// fn must not call back into the registry.
func (r *Registry[T]) Each(fn func(Handle, T) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.slots {
		s := &r.slots[i]
		if !s.live {
			continue
		}
		if !fn(makeHandle(r.kind, s.gen, uint32(i)), s.value) {
			return
		}
	}
}
