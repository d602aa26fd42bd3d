// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestPoolReusesReleasedArena(t *testing.T) {
	p := NewPool()

	a1 := p.Acquire(nil)
	a1.MustAlloc(64)
	p.Release(a1)

	// a1 is still strongly referenced here, so the weak entry upgrades.
	a2 := p.Acquire(System)
	require.Same(t, a1, a2)

	// A pooled arena is indistinguishable from a fresh one.
	require.Zero(t, a2.PageCount())
	require.Zero(t, a2.TotalBytesAllocated())
	require.Zero(t, a2.TotalBytesUsed())
	require.NotNil(t, a2.MustAlloc(64))
}

func TestPoolAcquireResetsCustomizedArena(t *testing.T) {
	p := NewPool()

	// An arena constructed with every per-arena knob turned, including
	// an exhausted fault policy that fails all further allocations.
	a1 := NewArena(System,
		WithPageSize(1024),
		WithLargePageRounding(4096),
		WithStampPolicy(StampUninitialized),
		WithFaultPolicy(NewCountdownFaultPolicy(0)))
	p.Release(a1)

	a2 := p.Acquire(System)
	require.Same(t, a1, a2)

	// The pooled arena behaves like NewArena(System): the allocation
	// succeeds despite the stale policy, uses the default page size, and
	// hands out unstamped (zeroed) memory.
	ptr := a2.MustAlloc(40)
	require.Equal(t, DefaultPageSize(), a2.TotalBytesAllocated())
	for _, b := range unsafe.Slice((*byte)(ptr), 40) {
		require.Zero(t, b)
	}
}

func TestPoolAcquireArmsConfiguredFaultInjection(t *testing.T) {
	t.Cleanup(Shutdown)

	p := NewPool()
	a1 := NewArena(System)
	require.Nil(t, a1.fault)
	p.Release(a1)

	// Arenas pooled before fault injection was configured pick up the
	// probe at acquisition, exactly as fresh construction would.
	Startup(Config{InjectFaults: true})
	a2 := p.Acquire(System)
	require.Same(t, a1, a2)
	require.NotNil(t, a2.fault)
}

func TestPoolAcquireWithoutEntriesConstructs(t *testing.T) {
	p := NewPool()

	a1 := p.Acquire(System)
	a2 := p.Acquire(System)
	require.NotSame(t, a1, a2)
}

func TestPoolKeysByBackingIdentity(t *testing.T) {
	p := NewPool()
	hosted := NewHostBacking(&fakeManager{}, nil)

	a1 := p.Acquire(System)
	p.Release(a1)

	// A different backing store is not compatible with the pooled entry.
	a2 := p.Acquire(hosted)
	require.NotSame(t, a1, a2)

	// The matching backing still finds it.
	a3 := p.Acquire(System)
	require.Same(t, a1, a3)
}

func TestPoolReleaseDestroys(t *testing.T) {
	backing := &failingBacking{failAfter: 1 << 30}
	p := NewPool()

	a := p.Acquire(backing)
	for i := 0; i < 10; i++ {
		a.MustAlloc(200)
	}
	p.Release(a)
	require.Equal(t, backing.allocs, backing.frees)
}

func TestPoolShutdownDrains(t *testing.T) {
	p := NewPool()

	a1 := p.Acquire(System)
	p.Release(a1)
	p.Shutdown()

	a2 := p.Acquire(System)
	require.NotSame(t, a1, a2)

	// Shutdown on an empty pool is fine.
	p.Shutdown()
}

func TestPoolConcurrentAcquireRelease(t *testing.T) {
	p := NewPool()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				a := p.Acquire(System)
				a.MustAlloc(128)
				a.MustAlloc(64)
				p.Release(a)
			}
		}()
	}
	wg.Wait()
}

func TestDefaultPoolHelpers(t *testing.T) {
	t.Cleanup(Shutdown)

	a1 := AcquireArena(nil)
	a1.MustAlloc(32)
	ReleaseArena(a1)

	a2 := AcquireArena(System)
	require.Same(t, a1, a2)
	ReleaseArena(a2)

	// Process shutdown drains the default pool.
	Shutdown()
	a3 := AcquireArena(System)
	require.NotSame(t, a1, a3)
}
