// SPDX-License-Identifier: Apache-2.0

package arena

import "io"

// Buffer is a write-only scratch buffer whose storage lives in an
// arena, for callers that assemble byte output (mangled names, encoded
// tables) during a compilation. It implements io.Writer. The contents
// are only valid until the arena is destroyed.
type Buffer struct {
	arena *Arena
	buf   []byte
}

// NewBuffer creates a Buffer backed by the given arena. A nil arena
// falls back to Go heap allocation.
func NewBuffer(a *Arena) *Buffer {
	return &Buffer{arena: a}
}

// Write appends p to the buffer, growing through the arena as needed.
func (b *Buffer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	b.buf = SliceAppend(b.arena, b.buf, p...)
	return len(p), nil
}

// WriteString appends s to the buffer.
func (b *Buffer) WriteString(s string) (int, error) {
	if len(s) == 0 {
		return 0, nil
	}
	b.buf = SliceAppend(b.arena, b.buf, []byte(s)...)
	return len(s), nil
}

// WriteByte appends a single byte to the buffer.
func (b *Buffer) WriteByte(c byte) error {
	b.buf = SliceAppend(b.arena, b.buf, c)
	return nil
}

// WriteTo writes the buffer's contents to w.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.buf)
	return int64(n), err
}

// Bytes returns the accumulated contents. The slice is valid until the
// next write or until the arena is destroyed.
func (b *Buffer) Bytes() []byte {
	return b.buf
}

// String returns the accumulated contents as a string.
func (b *Buffer) String() string {
	return string(b.buf)
}

// Len returns the number of accumulated bytes.
func (b *Buffer) Len() int {
	return len(b.buf)
}

// Reset empties the buffer, keeping its arena storage for reuse.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
}
