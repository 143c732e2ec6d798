// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package asyncmap

import (
	"context"
	"sort"
	"sync"
)

// DestroyFunc asynchronously tears down a value after its last
// reference drops: closing a transfer slot's file handle, killing a
// process record's child. It runs on the Map's drain goroutine, one
// cell at a time.
type DestroyFunc[T any] func(ctx context.Context, value *T) error

type cellState int

const (
	cellLive cellState = iota
	cellPendingDestroy
	cellDestroying
)

type cell[T any] struct {
	value    T
	refcount int
	state    cellState
}

// Map is an ordered map from K to refcounted values of type T.
// Iteration (Keys, Len) visits entries in key order. Dropping the
// last [Ptr] to a value — via [Ptr.Release] or via [Map.Erase]
// removing the map's own reference — schedules the value for
// asynchronous destruction rather than freeing it inline.
type Map[K comparable, T any] struct {
	mu      sync.Mutex
	cells   map[K]*cell[T]
	keys    []K
	less    func(a, b K) bool
	destroy DestroyFunc[T]

	toDel      []K
	destroying bool

	notify  chan struct{}
	drained chan struct{}
}

// New returns an empty Map that orders keys with less and destroys
// values with destroy. Call Run in its own goroutine before using the
// Map so the destruction queue can drain.
func New[K comparable, T any](less func(a, b K) bool, destroy DestroyFunc[T]) *Map[K, T] {
	return &Map[K, T]{
		cells:   make(map[K]*cell[T]),
		less:    less,
		destroy: destroy,
		notify:  make(chan struct{}, 1),
		drained: make(chan struct{}, 1),
	}
}

// Emplace inserts value under key if key is not already present,
// returning a strong [Ptr] and true. If key is already present it
// returns (nil, false) without modifying the map.
func (m *Map[K, T]) Emplace(key K, value T) (*Ptr[K, T], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, exists := m.cells[key]; exists && c.state == cellLive {
		return nil, false
	}

	// refcount starts at 2: one for the map's own slot, one for the
	// strong Ptr handed back to the caller.
	c := &cell[T]{value: value, refcount: 2, state: cellLive}
	m.cells[key] = c
	m.insertKeyLocked(key)

	return &Ptr[K, T]{key: key, cell: c, m: m}, true
}

// Find returns a strong [Ptr] to the value stored under key, or
// (nil, false) if key is not present. Each call to Find that returns
// a Ptr must be balanced by exactly one [Ptr.Release].
func (m *Map[K, T]) Find(key K) (*Ptr[K, T], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, exists := m.cells[key]
	if !exists || c.state != cellLive {
		return nil, false
	}
	c.refcount++
	return &Ptr[K, T]{key: key, cell: c, m: m}, true
}

// Erase drops the map's own reference to key, removing it from
// iteration immediately. If no other [Ptr] is outstanding, this
// schedules the value for asynchronous destruction. It reports
// whether key was present.
func (m *Map[K, T]) Erase(key K) bool {
	m.mu.Lock()
	c, exists := m.cells[key]
	if !exists {
		m.mu.Unlock()
		return false
	}
	m.removeKeyLocked(key)
	m.mu.Unlock()

	// m.cells[key] stays put until Run actually destroys the cell
	// (or until dropRef finds the refcount still above zero, in which
	// case it must stay reachable for the outstanding Ptr's eventual
	// Release). Deleting it here would leave nextToDestroy's own
	// m.cells[key] lookup with nothing to find once that Release
	// schedules the cell for destruction.
	m.dropRef(key, c)
	return true
}

// Keys returns a copy of the map's keys in order.
func (m *Map[K, T]) Keys() []K {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len reports the number of live entries (not counting cells awaiting
// destruction after Erase).
func (m *Map[K, T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

// Shutdown drops the map's own reference to every entry and blocks
// until the destruction queue is empty and no destroy call is in
// flight.
func (m *Map[K, T]) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	keys := make([]K, len(m.keys))
	copy(keys, m.keys)
	m.mu.Unlock()

	for _, key := range keys {
		m.Erase(key)
	}

	return m.awaitQuiescence(ctx)
}

func (m *Map[K, T]) awaitQuiescence(ctx context.Context) error {
	for {
		m.mu.Lock()
		idle := len(m.toDel) == 0 && !m.destroying
		m.mu.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.drained:
		}
	}
}

// Run drains the destruction queue until ctx is cancelled, calling
// destroy for each cell whose refcount reached zero. At most one
// destroy call is in flight at a time, matching the reactor's
// single-in-flight-destroy invariant — Run is meant to be started
// exactly once per Map, in its own goroutine.
func (m *Map[K, T]) Run(ctx context.Context) {
	for {
		key, c, ok := m.nextToDestroy()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-m.notify:
				continue
			}
		}

		if m.destroy != nil {
			m.destroy(ctx, &c.value)
		}

		m.mu.Lock()
		delete(m.cells, key)
		m.mu.Unlock()

		m.signalDrained()
	}
}

func (m *Map[K, T]) nextToDestroy() (K, *cell[T], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.toDel) == 0 {
		var zero K
		return zero, nil, false
	}

	key := m.toDel[0]
	m.toDel = m.toDel[1:]
	c := m.cells[key]
	c.state = cellDestroying
	m.destroying = true
	return key, c, true
}

func (m *Map[K, T]) signalDrained() {
	m.mu.Lock()
	m.destroying = false
	m.mu.Unlock()

	select {
	case m.drained <- struct{}{}:
	default:
	}
}

func (m *Map[K, T]) dropRef(key K, c *cell[T]) {
	m.mu.Lock()
	c.refcount--
	schedule := c.refcount == 0 && c.state == cellLive
	if schedule {
		c.state = cellPendingDestroy
		m.toDel = append(m.toDel, key)
	}
	m.mu.Unlock()

	if schedule {
		select {
		case m.notify <- struct{}{}:
		default:
		}
	}
}

func (m *Map[K, T]) insertKeyLocked(key K) {
	i := sort.Search(len(m.keys), func(i int) bool { return !m.less(m.keys[i], key) })
	m.keys = append(m.keys, key)
	copy(m.keys[i+1:], m.keys[i:])
	m.keys[i] = key
}

func (m *Map[K, T]) removeKeyLocked(key K) {
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			return
		}
	}
}
