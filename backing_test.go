// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeManager is a host memory manager that records traffic and can be
// told to fail.
type fakeManager struct {
	allocs    int
	frees     int
	failAlloc bool
	failFree  bool
}

func (m *fakeManager) Allocate(size int) ([]byte, error) {
	if m.failAlloc {
		return nil, errors.New("host quota exceeded")
	}
	m.allocs++
	return make([]byte, size), nil
}

func (m *fakeManager) Free(buf []byte) error {
	m.frees++
	if m.failFree {
		return errors.New("host free failed")
	}
	return nil
}

func TestHostBackingDelegates(t *testing.T) {
	mgr := &fakeManager{}
	a := NewArena(NewHostBacking(mgr, nil), WithPageSize(256))

	for i := 0; i < 16; i++ {
		a.MustAlloc(96)
	}
	require.Greater(t, mgr.allocs, 1)

	a.Destroy()
	require.Equal(t, mgr.allocs, mgr.frees)
}

func TestHostBackingAllocationFailure(t *testing.T) {
	mgr := &fakeManager{failAlloc: true}
	a := NewArena(NewHostBacking(mgr, nil), WithPageSize(256))

	p, err := a.Alloc(8)
	require.Nil(t, p)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.ErrorContains(t, err, "host quota exceeded")
}

func TestHostBackingFreeFailureIsLoggedAndSwallowed(t *testing.T) {
	var logged bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logged, nil))

	mgr := &fakeManager{failFree: true}
	a := NewArena(NewHostBacking(mgr, logger), WithPageSize(256))
	a.MustAlloc(8)

	require.NotPanics(t, a.Destroy)
	require.Contains(t, logged.String(), "failed to free page")
	require.Contains(t, logged.String(), "host free failed")
}

func TestSystemBackingNeverFails(t *testing.T) {
	buf, err := System.Allocate(1 << 20)
	require.NoError(t, err)
	require.Len(t, buf, 1<<20)
	System.Free(buf)
}

func TestSelectBacking(t *testing.T) {
	t.Cleanup(Shutdown)

	mgr := &fakeManager{}

	require.Equal(t, System, SelectBacking(nil, nil))

	b := SelectBacking(mgr, nil)
	require.IsType(t, &HostBacking{}, b)

	Startup(Config{BypassHostAllocator: true})
	require.Equal(t, System, SelectBacking(mgr, nil))
}
