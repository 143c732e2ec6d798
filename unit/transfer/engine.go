// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/taskrelay/taskrelay/lib/asyncmap"
	"github.com/taskrelay/taskrelay/lib/asyncqueue"
	"github.com/taskrelay/taskrelay/lib/clock"
	"github.com/taskrelay/taskrelay/lib/scheduler"
)

// chunkSize is the read size End uses to re-hash the written file; it
// has no bearing on correctness, only on peak memory while verifying.
const chunkSize = 4096

// Slot is one in-flight transfer: the destination file, how much has
// been written so far, and the FIFO that keeps concurrent Data calls
// from interleaving their writes. Slot is stored by value in Engine's
// asyncmap, so written — the one field Data mutates after the slot is
// registered — is a pointer: copies of Slot must all see the same
// counter, the way events/exited are shared in procengine.Process.
type Slot struct {
	seq      uint32
	path     string
	filesize uint64
	written  *uint64
	opened   time.Time

	fifo *asyncqueue.SerialFIFO
	file *os.File
}

// dependent aborts a transfer when its folder is shut down. It
// satisfies folder.Shutdowner structurally, without transfer importing
// folder.
type dependent struct {
	engine *Engine
	seq    uint32
}

func (d dependent) Shutdown(ctx context.Context) error {
	return d.engine.Abort(ctx, d.seq)
}

// Engine tracks every active transfer slot, keyed by the hub's
// sequence number, in lib/asyncmap.Map — the same refcounted,
// key-ordered storage spec.md names for the file-transfer-slot map.
type Engine struct {
	m     *asyncmap.Map[uint32, Slot]
	clock clock.Clock
}

// New returns an Engine with no active transfers. c times out slots
// that ReapStale finds abandoned. Run must be started in its own
// goroutine before Start is called.
func New(c clock.Clock) *Engine {
	e := &Engine{clock: c}
	e.m = asyncmap.New(lessSeq, e.destroy)
	return e
}

func lessSeq(a, b uint32) bool { return a < b }

// destroy is the asyncmap destruction callback. Every path that drops
// a slot (End, Abort, Shutdown, ReapStale) already closes the file
// itself first, so this is only a backstop against a leaked handle;
// unlike Abort it never unlinks, since a slot reaching here through
// End already decided to keep what was written.
func (e *Engine) destroy(ctx context.Context, s *Slot) error {
	s.file.Close()
	return nil
}

// Run drains the engine's destruction queue until ctx is cancelled.
// Meant to be started exactly once, alongside the Engine itself.
func (e *Engine) Run(ctx context.Context) {
	e.m.Run(ctx)
}

// Start opens path for reading and writing (End re-reads it to verify
// the hash) and registers a new slot for seq,
// returning a folder.Shutdowner the caller can register as a folder
// dependent. Rejects a seq already in use.
func (e *Engine) Start(ctx context.Context, seq uint32, path string, filesize uint64) (dependent, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return dependent{}, scheduler.Wrap(scheduler.KindReactorError, err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o600)
	if err != nil {
		return dependent{}, scheduler.Wrap(scheduler.KindReactorError, err)
	}

	slot := Slot{
		seq:      seq,
		path:     path,
		filesize: filesize,
		written:  new(uint64),
		opened:   e.clock.Now(),
		fifo:     asyncqueue.NewSerialFIFO(),
		file:     file,
	}

	ptr, ok := e.m.Emplace(seq, slot)
	if !ok {
		file.Close()
		os.Remove(path)
		return dependent{}, scheduler.New(scheduler.KindInputError, fmt.Sprintf("transfer: seq %d already in use", seq))
	}
	ptr.Release()
	return dependent{engine: e, seq: seq}, nil
}

// Data writes data at offset into the slot registered for seq. Writes
// against the same slot never interleave: every call is serialized
// through the slot's SerialFIFO, mirroring the reactor's
// async_sender_fifo per transfer.
func (e *Engine) Data(ctx context.Context, seq uint32, offset uint64, data []byte) error {
	slot, err := e.snapshot(seq)
	if err != nil {
		return err
	}

	return slot.fifo.Wrap(ctx, func(ctx context.Context) error {
		if offset+uint64(len(data)) > slot.filesize {
			return scheduler.New(scheduler.KindInputError, fmt.Sprintf("transfer: seq %d write past declared filesize", seq))
		}
		if _, err := slot.file.WriteAt(data, int64(offset)); err != nil {
			return scheduler.Wrap(scheduler.KindReactorError, err)
		}
		if end := offset + uint64(len(data)); end > *slot.written {
			*slot.written = end
		}
		return nil
	})
}

// End verifies the file written for seq against expectedHash (FNV-1a,
// 32-bit) and closes it, win or lose. The slot is unregistered either
// way — a failed transfer must be restarted with a fresh Start.
func (e *Engine) End(ctx context.Context, seq uint32, expectedHash uint32) error {
	slot, err := e.snapshot(seq)
	if err != nil {
		return err
	}

	err = slot.fifo.Wrap(ctx, func(ctx context.Context) error {
		defer slot.file.Close()

		if *slot.written != slot.filesize {
			return scheduler.New(scheduler.KindInputError, fmt.Sprintf("transfer: seq %d incomplete: wrote %d of %d bytes", seq, *slot.written, slot.filesize))
		}

		actual, err := hashFile(slot.file)
		if err != nil {
			return scheduler.Wrap(scheduler.KindReactorError, err)
		}
		if actual != expectedHash {
			return scheduler.New(scheduler.KindInputError, fmt.Sprintf("transfer: seq %d hash mismatch: got %#x, want %#x", seq, actual, expectedHash))
		}
		return nil
	})
	e.m.Erase(seq)
	return err
}

// Abort closes and removes the file backing seq without verifying it,
// used for folder deletion, stale reaping, and unit shutdown.
func (e *Engine) Abort(ctx context.Context, seq uint32) error {
	slot, err := e.snapshot(seq)
	if err != nil {
		return err
	}
	err = closeAndUnlink(ctx, &slot)
	e.m.Erase(seq)
	return err
}

// Shutdown aborts every active transfer, for use during the unit's own
// graceful shutdown so no partial file is left half-written.
func (e *Engine) Shutdown(ctx context.Context) error {
	for _, seq := range e.m.Keys() {
		e.Abort(ctx, seq)
	}
	return e.m.Shutdown(ctx)
}

// ReapStale aborts every slot opened more than maxAge ago without a
// matching End or Abort — a hub that crashes or loses its connection
// mid-transfer otherwise leaks an open file handle and a partial file
// forever. Meant to be driven periodically by scheduler.RunIdleTicks.
func (e *Engine) ReapStale(ctx context.Context, maxAge time.Duration) int {
	now := e.clock.Now()

	var stale []uint32
	for _, seq := range e.m.Keys() {
		slot, err := e.snapshot(seq)
		if err != nil {
			continue
		}
		if now.Sub(slot.opened) > maxAge {
			stale = append(stale, seq)
		}
	}

	for _, seq := range stale {
		e.Abort(ctx, seq)
	}
	return len(stale)
}

// snapshot copies the Slot record for seq out of the map, releasing
// the map's reference before returning so no caller ever holds a
// Ptr.Value() pointer past its Release.
func (e *Engine) snapshot(seq uint32) (Slot, error) {
	ptr, ok := e.m.Find(seq)
	if !ok {
		return Slot{}, scheduler.New(scheduler.KindInputError, fmt.Sprintf("transfer: seq %d has no active transfer", seq))
	}
	slot := *ptr.Value()
	ptr.Release()
	return slot, nil
}

func closeAndUnlink(ctx context.Context, slot *Slot) error {
	return slot.fifo.Wrap(ctx, func(ctx context.Context) error {
		slot.file.Close()
		if err := os.Remove(slot.path); err != nil && !os.IsNotExist(err) {
			return scheduler.Wrap(scheduler.KindReactorError, err)
		}
		return nil
	})
}

// hashFile computes FNV-1a (32-bit) over f's contents from the start,
// using the fixed seed/prime the wire protocol pins: init 0x811c9dc5,
// prime 0x01000193 — exactly what hash/fnv.New32a implements.
func hashFile(f *os.File) (uint32, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	h := fnv.New32a()
	buf := make([]byte, chunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	return h.Sum32(), nil
}
