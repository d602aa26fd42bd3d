// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"log/slog"
)

// Backing is the strategy by which page storage is physically obtained
// and released. Implementations must be safe for use by multiple arenas
// concurrently. Free must tolerate the buffers Allocate handed out and
// must not fail from the arena's point of view.
type Backing interface {
	Allocate(size int) ([]byte, error)
	Free(buf []byte)
}

// HostMemoryManager is the capability an embedding host supplies to
// meter or instrument the allocator's memory use. A nil manager means
// the host provides no delegation and the system heap is used.
type HostMemoryManager interface {
	Allocate(size int) ([]byte, error)
	Free(buf []byte) error
}

// System obtains pages directly from the process heap. It can be used
// anywhere a Backing is required and is the stand-in for hosts that do
// not delegate memory management.
var System Backing = SystemBacking{}

// SystemBacking allocates page storage from the Go heap. Allocation
// never fails short of the runtime itself aborting; Free is a no-op and
// leaves reclamation to the garbage collector.
type SystemBacking struct{}

func (SystemBacking) Allocate(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func (SystemBacking) Free(buf []byte) {}

// HostBacking delegates page storage to a host-supplied memory manager.
type HostBacking struct {
	mgr HostMemoryManager
	log *slog.Logger
}

// NewHostBacking wraps a host memory manager as a Backing. Free failures
// reported by the host are logged and swallowed so that Arena.Destroy
// stays infallible; a nil logger discards them.
func NewHostBacking(mgr HostMemoryManager, logger *slog.Logger) *HostBacking {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HostBacking{mgr: mgr, log: logger}
}

func (h *HostBacking) Allocate(size int) ([]byte, error) {
	return h.mgr.Allocate(size)
}

func (h *HostBacking) Free(buf []byte) {
	if err := h.mgr.Free(buf); err != nil {
		h.log.Warn("host memory manager failed to free page",
			"bytes", len(buf),
			"error", err,
		)
	}
}

// SelectBacking picks the backing store for a new arena: the host
// manager when one is supplied and the process is not configured to
// bypass it, the system heap otherwise.
func SelectBacking(mgr HostMemoryManager, logger *slog.Logger) Backing {
	if mgr == nil || BypassHostAllocator() {
		return System
	}
	return NewHostBacking(mgr, logger)
}
