// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"hash/fnv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/taskrelay/taskrelay/lib/clock"
)

func newTestEngine(t *testing.T, c clock.Clock) *Engine {
	t.Helper()
	e := New(c)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go e.Run(ctx)
	return e
}

func TestStartDataEndRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.bin")
	payload := []byte("the quick brown fox jumps over the lazy dog")

	fnvHash := fnv.New32a()
	fnvHash.Write(payload)
	expected := fnvHash.Sum32()

	e := newTestEngine(t, clock.Real())
	ctx := context.Background()

	if _, err := e.Start(ctx, 1, path, uint64(len(payload))); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := e.Data(ctx, 1, 0, payload); err != nil {
		t.Fatalf("Data: %v", err)
	}
	if err := e.End(ctx, 1, expected); err != nil {
		t.Fatalf("End: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("file contents = %q, want %q", got, payload)
	}
}

func TestEndRejectsHashMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.bin")
	payload := []byte("hello")

	e := newTestEngine(t, clock.Real())
	ctx := context.Background()
	if _, err := e.Start(ctx, 1, path, uint64(len(payload))); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := e.Data(ctx, 1, 0, payload); err != nil {
		t.Fatalf("Data: %v", err)
	}

	if err := e.End(ctx, 1, 0xdeadbeef); err == nil {
		t.Fatal("expected hash mismatch to be rejected")
	}
}

func TestEndRejectsIncompleteTransfer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.bin")

	e := newTestEngine(t, clock.Real())
	ctx := context.Background()
	if _, err := e.Start(ctx, 1, path, 10); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := e.Data(ctx, 1, 0, []byte("abc")); err != nil {
		t.Fatalf("Data: %v", err)
	}

	if err := e.End(ctx, 1, 0); err == nil {
		t.Fatal("expected incomplete transfer to be rejected")
	}
}

func TestDataRejectsWriteBeyondDeclaredSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.bin")

	e := newTestEngine(t, clock.Real())
	ctx := context.Background()
	if _, err := e.Start(ctx, 1, path, 4); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := e.Data(ctx, 1, 0, []byte("too long")); err == nil {
		t.Fatal("expected write past declared filesize to be rejected")
	}
}

func TestStartRejectsDuplicateSeq(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, clock.Real())
	ctx := context.Background()

	if _, err := e.Start(ctx, 1, filepath.Join(dir, "a.bin"), 1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := e.Start(ctx, 1, filepath.Join(dir, "b.bin"), 1); err == nil {
		t.Fatal("expected duplicate seq to be rejected")
	}
}

func TestAbortRemovesPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.bin")

	e := newTestEngine(t, clock.Real())
	ctx := context.Background()
	if _, err := e.Start(ctx, 1, path, 10); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := e.Data(ctx, 1, 0, []byte("abc")); err != nil {
		t.Fatalf("Data: %v", err)
	}
	if err := e.Abort(ctx, 1); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file to be removed, stat err = %v", err)
	}
}

func TestReapStaleAbortsAbandonedTransfer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.bin")

	fake := clock.Fake(time.Unix(0, 0))
	e := newTestEngine(t, fake)
	ctx := context.Background()

	if _, err := e.Start(ctx, 1, path, 10); err != nil {
		t.Fatalf("Start: %v", err)
	}

	fake.Advance(time.Minute)
	if n := e.ReapStale(ctx, 30*time.Second); n != 1 {
		t.Fatalf("ReapStale reaped %d slots, want 1", n)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected abandoned file to be removed, stat err = %v", err)
	}
	if err := e.Data(ctx, 1, 0, []byte("abc")); err == nil {
		t.Fatal("expected reaped slot to no longer accept data")
	}
}
