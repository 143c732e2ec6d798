// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package asyncmap

// Ptr is a strong, refcounted reference into a [Map]'s storage,
// obtained from [Map.Emplace] or [Map.Find]. It is the Go rendition
// of async_ptr<T>: uncopyable in spirit (copying a Ptr value would
// duplicate the handle without incrementing the refcount, so callers
// must not do it), released exactly once via [Ptr.Release].
type Ptr[K comparable, T any] struct {
	key  K
	cell *cell[T]
	m    *Map[K, T]
}

// Value returns a pointer to the referenced value. The pointer is
// valid only until Release; callers must not retain it beyond that.
func (p *Ptr[K, T]) Value() *T {
	return &p.cell.value
}

// Release drops this reference. If it was the last one, the value is
// scheduled for asynchronous destruction on the Map's drain goroutine.
// Safe to call at most once per Ptr; calling it twice double-decrements
// the refcount and will trigger destruction early.
func (p *Ptr[K, T]) Release() {
	p.m.dropRef(p.key, p.cell)
}
