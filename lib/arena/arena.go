// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

// Package arena provides a bounded bump allocator for per-request
// scratch memory: folder-entry name copies while building a
// list_folder reply. Allocations never move and are never
// individually freed in place; Release only ever advances a
// high-water mark, coalescing out-of-order frees at the tail exactly
// as the reactor's arena does, so this package keeps that ownership
// discipline even though Go's garbage collector makes it optional
// for correctness. Grounded on the teacher's fixed-capacity
// RingBuffer (observe/ringbuffer.go), generalized from circular
// overwrite to linear bump-then-release since wraparound is not
// required here: an Arena is sized for, and discarded at the end of,
// one request.
package arena

// Arena is a fixed-size byte region with a bump write pointer and a
// release high-water mark. It is not safe for concurrent use; callers
// own one Arena per request/transaction and do not share it across
// goroutines.
type Arena struct {
	buf           []byte
	writeOffset   int
	releaseOffset int
	live          []region
}

type region struct {
	start, end int
	released   bool
}

// New returns an Arena backed by a freshly allocated buffer of the
// given capacity in bytes.
func New(capacity int) *Arena {
	return &Arena{buf: make([]byte, capacity)}
}

// Allocate reserves size bytes aligned to align (which must be a
// power of two), returning the slice and true on success, or (nil,
// false) if the arena does not have enough remaining capacity. It
// never panics and never grows the underlying buffer — callers size
// the Arena for the worst case up front.
func (a *Arena) Allocate(size int, align int) ([]byte, bool) {
	start := alignUp(a.writeOffset, align)
	end := start + size
	if end > len(a.buf) {
		return nil, false
	}

	a.writeOffset = end
	a.live = append(a.live, region{start: start, end: end})
	return a.buf[start:end:end], true
}

// Release marks the allocation backing buf as no longer needed. If
// buf is not the earliest still-live allocation, Release is a no-op
// that simply records the slot as released; the space only becomes
// reusable once every earlier allocation has also been released and
// the release offset catches up past it.
func (a *Arena) Release(buf []byte) {
	if len(buf) == 0 {
		return
	}
	start := a.offsetOf(buf)
	if start < 0 {
		return
	}

	for i := range a.live {
		if a.live[i].start == start && !a.live[i].released {
			a.live[i].released = true
			break
		}
	}
	a.advanceReleaseOffset()
}

// Reset discards every allocation and rewinds the arena to empty,
// ready for reuse by the next request. It does not zero the
// underlying buffer.
func (a *Arena) Reset() {
	a.writeOffset = 0
	a.releaseOffset = 0
	a.live = a.live[:0]
}

// Used reports how many bytes are currently allocated, released or
// not.
func (a *Arena) Used() int { return a.writeOffset }

// Capacity reports the arena's total size in bytes.
func (a *Arena) Capacity() int { return len(a.buf) }

func (a *Arena) offsetOf(buf []byte) int {
	if len(buf) == 0 || len(a.buf) == 0 {
		return -1
	}
	// &buf[0] - &a.buf[0], found without unsafe: buf must be a
	// sub-slice returned by Allocate, so the live region of the same
	// length whose first element has the same address as buf[0] gives
	// its start offset.
	for i := range a.live {
		start := a.live[i].start
		end := a.live[i].end
		if end-start == len(buf) && start+len(buf) <= len(a.buf) {
			if &a.buf[start] == &buf[0] {
				return start
			}
		}
	}
	return -1
}

func (a *Arena) advanceReleaseOffset() {
	for {
		advanced := false
		for i := range a.live {
			if a.live[i].start == a.releaseOffset && a.live[i].released {
				a.releaseOffset = a.live[i].end
				advanced = true
			}
		}
		if !advanced {
			break
		}
	}
}

func alignUp(offset, align int) int {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}
