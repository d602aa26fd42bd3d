// SPDX-License-Identifier: Apache-2.0

package arena

import "unsafe"

// page is one backing-store block in an arena's chain. The chain is held
// as a slice owned by the Arena; pages carry no links of their own.
type page struct {
	buf      []byte // raw storage, padded by one pointer width for alignment
	base     int    // offset of the pointer-aligned usable window within buf
	capacity int    // usable bytes
	used     int    // bytes consumed, recorded when the page is superseded or destroyed
}

// pageOverhead is the bookkeeping cost of one page, charged against
// oversize requests when sizing a dedicated page.
const pageOverhead = int(unsafe.Sizeof(page{}))

// pageCapacityFor picks the capacity of the next page: the configured
// page size, or for oversize requests an exact fit of the rounded size
// plus overhead, optionally rounded up to the large-page granularity.
func (a *Arena) pageCapacityFor(size int) int {
	capacity := a.pageSize
	if capacity <= 0 {
		capacity = DefaultPageSize()
	}
	if need := size + pageOverhead; need > capacity {
		capacity = need
		if a.granularity > 0 {
			capacity = roundUp(capacity, a.granularity)
		}
	}
	return capacity
}

// alignShift returns the offset of the first pointer-aligned byte of buf.
// Storage is over-allocated by one pointer width so the shifted window
// still holds the full capacity.
func alignShift(buf []byte) int {
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	rem := int(addr & uintptr(ptrSize-1))
	if rem == 0 {
		return 0
	}
	return ptrSize - rem
}

// roundUp rounds n up to a multiple of granularity, which need not be a
// power of two.
func roundUp(n, granularity int) int {
	return (n + granularity - 1) / granularity * granularity
}
