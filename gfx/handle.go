// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import "fmt"

// Handle is an opaque reference to a backend object. The backend tag lives in
// the top 8 bits, a generation counter in the next 24 and the slot index in
// the low 32. The zero Handle is never issued.
type Handle uint64

const (
	generationBits = 24
	generationMask = 1<<generationBits - 1
)

func makeHandle(b Backend, gen uint32, index uint32) Handle {
	return Handle(uint64(b)<<56 | uint64(gen&generationMask)<<32 | uint64(index))
}

// IsNil reports whether h refers to nothing.
func (h Handle) IsNil() bool {
	return h == 0
}

// Backend returns the backend that issued h.
func (h Handle) Backend() Backend {
	return Backend(h >> 56)
}

func (h Handle) generation() uint32 {
	return uint32(h>>32) & generationMask
}

func (h Handle) index() uint32 {
	return uint32(h)
}

func (h Handle) String() string {
	if h.IsNil() {
		return "nil"
	}
	return fmt.Sprintf("%s#%d.%d", h.Backend(), h.index(), h.generation())
}

// Typed handles, one per resource category. They share the same bit layout.
type (
	Buffer              Handle
	Texture             Handle
	TextureView         Handle
	Sampler             Handle
	RenderPass          Handle
	Framebuffer         Handle
	Pipeline            Handle
	PipelineInputLayout Handle
	ShaderModule        Handle
	DescriptorSet       Handle
	Fence               Handle
	Semaphore           Handle
)

// StagingBuffer is a host visible Buffer filled at creation time and used as
// a transfer source.
type StagingBuffer struct {
	Buffer Buffer
	Size   uint64
}

type slot[T any] struct {
	gen  uint32
	live bool
	val  T
}

// Table maps handles of one backend to the backend specific object. Freed
// slots are reused with a new generation so stale handles are detected.
// A Table is not safe for concurrent use.
type Table[T any] struct {
	backend Backend
	slots   []slot[T]
	free    []uint32
	live    int
}

// NewTable creates an empty table issuing handles for backend b.
func NewTable[T any](b Backend) *Table[T] {
	return &Table[T]{backend: b}
}

// Insert stores v and returns its handle.
func (t *Table[T]) Insert(v T) Handle {
	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = uint32(len(t.slots))
		t.slots = append(t.slots, slot[T]{})
	}
	s := &t.slots[idx]
	s.gen = (s.gen + 1) & generationMask
	if s.gen == 0 {
		s.gen = 1
	}
	s.live = true
	s.val = v
	t.live++
	return makeHandle(t.backend, s.gen, idx)
}

// Lookup returns the object behind h, or false when h is nil, stale or
// issued by another table.
func (t *Table[T]) Lookup(h Handle) (*T, bool) {
	if h.IsNil() || h.Backend() != t.backend {
		return nil, false
	}
	idx := h.index()
	if int(idx) >= len(t.slots) {
		return nil, false
	}
	s := &t.slots[idx]
	if !s.live || s.gen != h.generation() {
		return nil, false
	}
	return &s.val, true
}

// Get returns the object behind h. It panics on handles that Lookup rejects.
func (t *Table[T]) Get(h Handle) *T {
	v, ok := t.Lookup(h)
	if !ok {
		t.violation(h)
	}
	return v
}

// Remove deletes h from the table and returns the stored object.
// Removing a handle twice panics.
func (t *Table[T]) Remove(h Handle) T {
	v := *t.Get(h)
	idx := h.index()
	var zero T
	t.slots[idx].val = zero
	t.slots[idx].live = false
	t.free = append(t.free, idx)
	t.live--
	return v
}

// Len returns the number of live objects.
func (t *Table[T]) Len() int {
	return t.live
}

// Each calls fn for every live object in slot order.
func (t *Table[T]) Each(fn func(Handle, *T)) {
	for idx := range t.slots {
		s := &t.slots[idx]
		if s.live {
			fn(makeHandle(t.backend, s.gen, uint32(idx)), &s.val)
		}
	}
}

func (t *Table[T]) violation(h Handle) {
	switch {
	case h.IsNil():
		Violationf("nil handle")
	case h.Backend() != t.backend:
		Violationf("handle %s used with %s renderer", h, t.backend)
	default:
		Violationf("handle %s is destroyed", h)
	}
}
