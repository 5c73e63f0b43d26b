// Package blockpool is a slab-style allocator for fixed-kind node slots,
// ported from original_source/src/keystore/utils/memory_manager.c.
//
// The C source pre-allocates a contiguous arena and a free-slot stack, bump-
// allocates from the arena until it's exhausted, then falls back to the
// heap. Go's allocator and garbage collector make a literal byte-arena port
// unnecessary for safety, but the slab-first/heap-fallback *policy* and the
// pointer-provenance test for Free are kept, because they are exactly the
// behavior spec §4.B and §9 require: bounded pre-allocation, LIFO reuse of
// freed slots, and a fallback path that never errors under pool exhaustion.
package blockpool

import (
	"sync"
	"unsafe"

	"github.com/calvinalkan/latchkv/internal/errs"
)

// Pool is a slab allocator for *T slots. The zero value is not usable; use
// New. A Pool whose concurrent flag is false performs no locking at all,
// matching spec §5: the block pool is only a shared resource once the store
// itself is in concurrent mode.
type Pool[T any] struct {
	mu         sync.Mutex
	concurrent bool

	arena []T // backing slab; never reallocated after New
	next  int // bump cursor into arena

	free []*T // free-slot stack (LIFO), capacity == len(arena)

	heapFallback int // count only; Go's GC reclaims fallback nodes once dropped

	blockSize   uintptr
	totalBlocks int
}

// New reserves a capacity-sized arena of T slots plus a same-sized free-slot
// stack. capacity must be positive.
func New[T any](capacity int, concurrent bool) (*Pool[T], error) {
	if capacity <= 0 {
		return nil, errs.ErrInvalidConfiguration
	}

	return &Pool[T]{
		concurrent:  concurrent,
		arena:       make([]T, capacity),
		free:        make([]*T, 0, capacity),
		blockSize:   unsafe.Sizeof(*new(T)),
		totalBlocks: capacity,
	}, nil
}

func (p *Pool[T]) lock() {
	if p.concurrent {
		p.mu.Lock()
	}
}

func (p *Pool[T]) unlock() {
	if p.concurrent {
		p.mu.Unlock()
	}
}

// Allocate returns a slot for one T. Policy: pop the free stack, else bump
// the arena cursor, else fall back to a heap allocation. Never fails.
func (p *Pool[T]) Allocate() *T {
	p.lock()
	defer p.unlock()

	if n := len(p.free); n > 0 {
		node := p.free[n-1]
		p.free = p.free[:n-1]

		return node
	}

	if p.next < len(p.arena) {
		node := &p.arena[p.next]
		p.next++

		return node
	}

	p.heapFallback++

	return new(T)
}

// Free returns node to the pool if it belongs to the arena and the free
// stack isn't full; otherwise the node is a heap-fallback allocation and is
// simply dropped for the garbage collector to reclaim (see the package
// comment and DESIGN.md for why this differs from the C source's manual
// leak).
func (p *Pool[T]) Free(node *T) {
	if node == nil {
		return
	}

	p.lock()
	defer p.unlock()

	if p.owns(node) && len(p.free) < cap(p.free) {
		var zero T
		*node = zero
		p.free = append(p.free, node)

		return
	}

	if !p.owns(node) {
		p.heapFallback--
	}
}

// owns reports whether node's address falls inside this pool's arena and is
// stride-aligned to block_size — the literal port of the C pool's
// "pool_start <= ptr < pool_end && (ptr - pool_start) % block_size == 0"
// provenance test.
func (p *Pool[T]) owns(node *T) bool {
	if len(p.arena) == 0 {
		return false
	}

	start := uintptr(unsafe.Pointer(&p.arena[0]))
	end := start + uintptr(len(p.arena))*p.blockSize
	addr := uintptr(unsafe.Pointer(node))

	if addr < start || addr >= end {
		return false
	}

	return (addr-start)%p.blockSize == 0
}

// AvailableBlocks is the number of never-yet-allocated arena slots.
func (p *Pool[T]) AvailableBlocks() int {
	p.lock()
	defer p.unlock()

	return len(p.arena) - p.next
}

// ReusableBlocks is the number of freed slots sitting on the free stack.
func (p *Pool[T]) ReusableBlocks() int {
	p.lock()
	defer p.unlock()

	return len(p.free)
}

// TotalBlocks is the arena's fixed capacity.
func (p *Pool[T]) TotalBlocks() int {
	return p.totalBlocks
}

// BlockSize is the size in bytes of one T slot.
func (p *Pool[T]) BlockSize() uintptr {
	return p.blockSize
}

// Cleanup releases the arena and free stack. Safe to call more than once.
func (p *Pool[T]) Cleanup() {
	p.lock()
	defer p.unlock()

	p.arena = nil
	p.free = nil
	p.next = 0
	p.heapFallback = 0
}
