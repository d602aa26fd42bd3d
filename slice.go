// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"unsafe"
)

const growThreshold = 256

// Allocate returns a zeroed *T carved from the arena. If the arena is
// nil, the value comes from the Go heap instead. Alignment is limited to
// the native pointer width.
func Allocate[T any](a *Arena) (*T, error) {
	var x T
	size := int(unsafe.Sizeof(x))
	if a == nil || size == 0 {
		return new(T), nil
	}
	ptr, err := a.Alloc(size)
	if err != nil {
		return nil, err
	}
	clear(unsafe.Slice((*byte)(ptr), size))
	return (*T)(ptr), nil
}

// MustAllocate is the fail-fast variant of Allocate.
func MustAllocate[T any](a *Arena) *T {
	v, err := Allocate[T](a)
	if err != nil {
		panic(err)
	}
	return v
}

// AllocateSlice returns a []T of the given length and capacity backed by
// the arena. The elements are not zeroed unless the arena's stamp policy
// or backing store makes them so. A nil arena falls back to make.
func AllocateSlice[T any](a *Arena, length, capacity int) ([]T, error) {
	var x T
	size := int(unsafe.Sizeof(x)) * capacity
	if a == nil || size == 0 {
		return make([]T, length, capacity), nil
	}
	ptr, err := a.Alloc(size)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*T)(ptr), capacity)[:length], nil
}

// MustAllocateSlice is the fail-fast variant of AllocateSlice.
func MustAllocateSlice[T any](a *Arena, length, capacity int) []T {
	s, err := AllocateSlice[T](a, length, capacity)
	if err != nil {
		panic(err)
	}
	return s
}

// SliceAppend appends data to s, growing it through the arena when the
// capacity runs out. Growth is fail-fast: an unsatisfiable grow aborts
// like MustAlloc. A nil arena appends on the Go heap.
func SliceAppend[T any](a *Arena, s []T, data ...T) []T {
	if a == nil {
		return append(s, data...)
	}
	s = growSlice(a, s, len(data))
	return append(s, data...)
}

func growSlice[T any](a *Arena, s []T, dataLen int) []T {
	newLen := len(s) + dataLen
	newCap := cap(s)

	if newCap > 0 {
		for newLen > newCap {
			if newCap < growThreshold {
				newCap *= 2
			} else {
				newCap += newCap / 4
			}
		}
	} else {
		newCap = dataLen
	}
	if newCap == cap(s) {
		return s
	}
	s2 := MustAllocateSlice[T](a, len(s), newCap)
	copy(s2, s)
	return s2
}
