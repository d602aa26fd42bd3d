// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"sync"
	"weak"
)

// Pool is a process-wide cache of destroyed arenas, reused to amortize
// construction cost across many short-lived compilations. A pooled
// arena behaves identically to a freshly constructed one.
//
// Entries are held as weak pointers, so the GC can collect idle arenas
// at any time. Acquire upgrades an entry to a strong pointer while
// removing it from the pool; Release destroys the arena and parks it as
// a weak pointer again. The GC thereby keeps the pool sized to actual
// memory pressure.
//
// The pool is safe for concurrent use; the arenas it hands out are not.
type Pool struct {
	mu   sync.Mutex
	idle map[Backing][]weak.Pointer[Arena]
}

// NewPool creates an empty arena pool.
func NewPool() *Pool {
	return &Pool{idle: make(map[Backing][]weak.Pointer[Arena])}
}

// Acquire returns a pooled arena bound to the given backing store, or a
// fresh one when none is cached. A nil backing selects the system heap.
// Arenas are keyed by backing identity: only an arena released with the
// exact same backing value is considered compatible.
func (p *Pool) Acquire(backing Backing) *Arena {
	if backing == nil {
		backing = System
	}

	p.mu.Lock()
	list := p.idle[backing]
	for len(list) > 0 {
		n := len(list) - 1
		wp := list[n]
		list = list[:n]
		if a := wp.Value(); a != nil {
			p.idle[backing] = list
			p.mu.Unlock()
			a.reconfigure(nil)
			return a
		}
		// Weak pointer already collected, keep popping.
	}
	if p.idle != nil {
		delete(p.idle, backing)
	}
	p.mu.Unlock()

	return NewArena(backing)
}

// Release destroys the arena and parks it in the pool for reuse. The
// caller must not use the arena afterwards.
func (p *Pool) Release(a *Arena) {
	a.Destroy()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.idle == nil {
		p.idle = make(map[Backing][]weak.Pointer[Arena])
	}
	p.idle[a.backing] = append(p.idle[a.backing], weak.Make(a))
}

// Shutdown drains the pool, destroying any still-reachable entries.
// The pool is empty but usable afterwards.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, list := range p.idle {
		for _, wp := range list {
			if a := wp.Value(); a != nil {
				a.Destroy()
			}
		}
	}
	p.idle = nil
}

// The default pool backs the package-level Acquire/Release helpers and
// is built lazily; Shutdown tears it down.
var (
	defaultPoolMu sync.Mutex
	defaultPool   *Pool
)

// DefaultPool returns the process-wide arena pool.
func DefaultPool() *Pool {
	defaultPoolMu.Lock()
	defer defaultPoolMu.Unlock()
	if defaultPool == nil {
		defaultPool = NewPool()
	}
	return defaultPool
}

// AcquireArena returns an arena from the process-wide pool.
func AcquireArena(backing Backing) *Arena {
	return DefaultPool().Acquire(backing)
}

// ReleaseArena destroys the arena and returns it to the process-wide
// pool.
func ReleaseArena(a *Arena) {
	DefaultPool().Release(a)
}

func shutdownDefaultPool() {
	defaultPoolMu.Lock()
	p := defaultPool
	defaultPool = nil
	defaultPoolMu.Unlock()
	if p != nil {
		p.Shutdown()
	}
}
