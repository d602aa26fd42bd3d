// SPDX-License-Identifier: Apache-2.0

// Package arena implements the page-backed bump allocator used to serve
// the short-lived allocations of a single compilation. Memory is obtained
// from a backing store in large pages and handed out by advancing a
// cursor; there is no per-object free. Destroy releases every page at
// once and returns the arena to its just-constructed state.
//
// A single Arena is owned by one logical caller at a time and is not
// internally synchronized. Separate arenas are fully independent and may
// be used from separate goroutines. The process-wide Pool is safe for
// concurrent use.
package arena

import (
	"fmt"
	"unsafe"
)

const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// Arena is a bump allocator over a chain of backing-store pages.
// The zero value is not usable; construct with NewArena or Pool.Acquire.
type Arena struct {
	backing Backing

	pages []page

	// Bump window into the last page's usable storage. cursor and limit
	// are offsets from that page's aligned base; both zero while the
	// chain is empty.
	cursor int
	limit  int

	allocatedBytes int // sum of capacities of all pages in the chain
	retiredBytes   int // consumed bytes of every superseded page

	pageSize    int // 0 means resolve DefaultPageSize at growth time
	granularity int // oversize page rounding, 0 means exact fit

	fault FaultPolicy
	stamp StampPolicy
}

// Option configures an Arena at construction time.
type Option func(*Arena)

// WithPageSize overrides the process-wide default page size for this
// arena only.
func WithPageSize(size int) Option {
	return func(a *Arena) {
		a.pageSize = size
	}
}

// WithLargePageRounding rounds the capacity of oversize pages (requests
// larger than the page size) up to a multiple of the given granularity.
// The default is an exact fit of the request plus page overhead.
func WithLargePageRounding(granularity int) Option {
	return func(a *Arena) {
		a.granularity = granularity
	}
}

// WithFaultPolicy installs a fault-injection policy probed before every
// allocation. Intended for diagnostic runs; nil disables probing.
func WithFaultPolicy(p FaultPolicy) Option {
	return func(a *Arena) {
		a.fault = p
	}
}

// WithStampPolicy installs a policy applied to every returned block,
// typically to stamp it with an uninitialized-memory pattern.
func WithStampPolicy(p StampPolicy) Option {
	return func(a *Arena) {
		a.stamp = p
	}
}

// NewArena creates an arena bound to the given backing store. A nil
// backing selects the system heap. If fault injection is enabled in the
// process configuration and no explicit policy is given, a probe against
// the arena's own backing store is installed.
func NewArena(backing Backing, opts ...Option) *Arena {
	if backing == nil {
		backing = System
	}
	a := &Arena{backing: backing}
	a.reconfigure(opts)
	return a
}

// reconfigure resets the per-arena tuning and policies to construction
// defaults and applies opts. Pooled arenas go through it on acquisition
// so they behave identically to freshly constructed ones regardless of
// the options their previous owner used.
func (a *Arena) reconfigure(opts []Option) {
	a.pageSize = 0
	a.granularity = 0
	a.fault = nil
	a.stamp = nil
	for _, opt := range opts {
		opt(a)
	}
	if a.fault == nil && FaultInjectionEnabled() {
		a.fault = NewProbeFaultPolicy(a.backing)
	}
}

// Alloc returns a block of at least size bytes carved from the arena.
// The block size is rounded up to pointer width and the returned address
// is pointer-aligned. The fast path is O(1) and allocation-free; when
// the bump window is exhausted a new page is obtained from the backing
// store. On failure the arena is left untouched and remains usable.
func (a *Arena) Alloc(size int) (unsafe.Pointer, error) {
	if size <= 0 {
		panic("arena: allocation size must be positive")
	}
	size = roundPtr(size)

	if a.fault != nil {
		if err := a.fault.Probe(); err != nil {
			return nil, err
		}
	}

	var block unsafe.Pointer
	if a.cursor+size <= a.limit {
		p := &a.pages[len(a.pages)-1]
		block = unsafe.Add(unsafe.Pointer(unsafe.SliceData(p.buf)), p.base+a.cursor)
		a.cursor += size
	} else {
		var err error
		block, err = a.allocateNewPage(size)
		if err != nil {
			return nil, err
		}
	}

	if a.stamp != nil {
		a.stamp.Stamp(unsafe.Slice((*byte)(block), size))
	}
	return block, nil
}

// MustAlloc is the fail-fast variant of Alloc: an unsatisfiable request
// panics with the allocation error, aborting the current unit of work.
// The arena itself stays consistent and destroyable.
func (a *Arena) MustAlloc(size int) unsafe.Pointer {
	block, err := a.Alloc(size)
	if err != nil {
		panic(err)
	}
	return block
}

// allocateNewPage grows the page chain to satisfy a request the current
// bump window cannot hold and carves the block from the new page's start.
func (a *Arena) allocateNewPage(size int) (unsafe.Pointer, error) {
	capacity := a.pageCapacityFor(size)
	request := capacity + ptrSize

	buf, err := a.backing.Allocate(request)
	if err != nil {
		return nil, fmt.Errorf("arena: page of %d bytes: %w: %v", request, ErrOutOfMemory, err)
	}

	// The outgoing page stops being the active page here; record how much
	// of it was actually consumed.
	if n := len(a.pages); n > 0 {
		a.pages[n-1].used = a.cursor
		a.retiredBytes += a.cursor
	}

	base := alignShift(buf)
	a.pages = append(a.pages, page{buf: buf, base: base, capacity: capacity})
	a.allocatedBytes += capacity
	a.cursor = size
	a.limit = capacity

	return unsafe.Add(unsafe.Pointer(unsafe.SliceData(buf)), base), nil
}

// TotalBytesAllocated returns the sum of the capacities of every page
// created since construction or the last Destroy.
func (a *Arena) TotalBytesAllocated() int {
	return a.allocatedBytes
}

// TotalBytesUsed returns the bytes actually consumed by allocations,
// including the active page's current high-water mark.
func (a *Arena) TotalBytesUsed() int {
	return a.retiredBytes + a.cursor
}

// PageCount returns the number of pages currently in the chain.
func (a *Arena) PageCount() int {
	return len(a.pages)
}

// Destroy releases every page back to the backing store and resets the
// arena to its just-constructed state. It never fails; backing-store
// free errors are handled inside the adapter. The arena may be reused
// or handed to a Pool afterwards, and behaves identically to a fresh
// instance.
func (a *Arena) Destroy() {
	for i := range a.pages {
		p := &a.pages[i]
		if i == len(a.pages)-1 {
			p.used = a.cursor
		}
		a.backing.Free(p.buf)
		p.buf = nil
	}
	a.pages = nil
	a.cursor = 0
	a.limit = 0
	a.allocatedBytes = 0
	a.retiredBytes = 0
}

// roundPtr rounds n up to the native pointer width.
func roundPtr(n int) int {
	return (n + ptrSize - 1) &^ (ptrSize - 1)
}
