// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package asyncmap

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func less(a, b string) bool { return a < b }

func TestEmplaceRejectsDuplicateKey(t *testing.T) {
	m := New[string, int](less, nil)
	go m.Run(context.Background())

	ptr, ok := m.Emplace("a", 1)
	if !ok {
		t.Fatal("first Emplace should succeed")
	}
	defer ptr.Release()

	if _, ok := m.Emplace("a", 2); ok {
		t.Fatal("Emplace of an existing key should fail")
	}
}

func TestKeysVisitInOrder(t *testing.T) {
	m := New[string, int](less, nil)
	go m.Run(context.Background())

	for _, k := range []string{"c", "a", "b"} {
		ptr, _ := m.Emplace(k, 0)
		ptr.Release()
	}

	got := m.Keys()
	want := []string{"a", "b", "c"}
	for i, k := range want {
		if got[i] != k {
			t.Fatalf("Keys() = %v, want %v", got, want)
		}
	}
}

func TestFindIncrementsRefcountAndReleaseDrops(t *testing.T) {
	m := New[string, int](less, nil)
	go m.Run(context.Background())

	owner, _ := m.Emplace("a", 1)
	owner.Release()

	found, ok := m.Find("a")
	if !ok {
		t.Fatal("Find should locate the emplaced key")
	}
	if *found.Value() != 1 {
		t.Fatalf("Value() = %d, want 1", *found.Value())
	}
	found.Release()

	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (map still owns the cell)", m.Len())
	}
}

func TestEraseSchedulesDestroyOnceRefcountReachesZero(t *testing.T) {
	destroyed := make(chan int, 1)
	m := New[string, int](less, func(ctx context.Context, v *int) error {
		destroyed <- *v
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	owner, _ := m.Emplace("a", 42)
	owner.Release()

	m.Erase("a")

	select {
	case v := <-destroyed:
		if v != 42 {
			t.Fatalf("destroyed value = %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("destroy was never called")
	}

	if m.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after erase", m.Len())
	}
}

func TestEraseWaitsForOutstandingPtrBeforeDestroying(t *testing.T) {
	var destroyCount atomic.Int32
	m := New[string, int](less, func(ctx context.Context, v *int) error {
		destroyCount.Add(1)
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	owner, _ := m.Emplace("a", 1)
	owner.Release()

	held, ok := m.Find("a")
	if !ok {
		t.Fatal("Find should locate the emplaced key")
	}

	m.Erase("a")
	time.Sleep(20 * time.Millisecond)
	if destroyCount.Load() != 0 {
		t.Fatal("destroy ran while a Ptr was still outstanding")
	}

	held.Release()
	deadline := time.After(time.Second)
	for destroyCount.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("destroy never ran after the outstanding Ptr was released")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestShutdownAwaitsDestructionQueueDrain(t *testing.T) {
	var destroyed atomic.Int32
	m := New[string, int](less, func(ctx context.Context, v *int) error {
		time.Sleep(10 * time.Millisecond)
		destroyed.Add(1)
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	for _, k := range []string{"a", "b", "c"} {
		ptr, _ := m.Emplace(k, 0)
		ptr.Release()
	}

	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if destroyed.Load() != 3 {
		t.Fatalf("destroyed = %d, want 3 entries drained", destroyed.Load())
	}
	if m.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after Shutdown", m.Len())
	}
}
