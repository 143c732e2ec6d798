// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package procengine

import (
	"context"
	"testing"
	"time"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go e.Run(ctx)
	return e
}

func drainToExit(t *testing.T, e *Engine, taskID uint32) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		event, err := e.Progress(ctx, taskID)
		if err != nil {
			t.Fatalf("Progress: %v", err)
		}
		if event.Kind == Exit {
			return event
		}
	}
}

func TestStartRunsCommandAndReportsExit(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	dir := t.TempDir()

	if err := e.Start(ctx, 1, dir, []string{"/bin/echo", "hello"}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var sawStdout bool
	var exitEvent Event
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("never observed exit")
		default:
		}
		event, err := e.Progress(ctx, 1)
		if err != nil {
			t.Fatalf("Progress: %v", err)
		}
		if event.Kind == Stdout && string(event.Chunk) == "hello\n" {
			sawStdout = true
		}
		if event.Kind == Exit {
			exitEvent = event
			break
		}
	}
	if !sawStdout {
		t.Fatal("never observed the expected stdout chunk")
	}
	if exitEvent.ExitStatus != 0 {
		t.Fatalf("exit status = %d, want 0", exitEvent.ExitStatus)
	}
}

func TestStartRejectsDuplicateTaskID(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	dir := t.TempDir()

	if err := e.Start(ctx, 1, dir, []string{"sleep", "5"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Cancel(ctx, 1)

	if err := e.Start(ctx, 1, dir, []string{"/bin/echo", "hi"}); err == nil {
		t.Fatal("expected a duplicate task id to be rejected")
	}
}

func TestProgressAfterExitKeepsReturningExit(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	dir := t.TempDir()

	if err := e.Start(ctx, 1, dir, []string{"/bin/echo", "hi"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	drainToExit(t, e, 1)

	event, err := e.Progress(ctx, 1)
	if err != nil {
		t.Fatalf("Progress after exit: %v", err)
	}
	if event.Kind != Exit {
		t.Fatalf("Kind = %v, want Exit", event.Kind)
	}
}

func TestCancelTerminatesAndRemovesTask(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	dir := t.TempDir()

	if err := e.Start(ctx, 1, dir, []string{"sleep", "30"}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := e.Cancel(ctx, 1); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if _, err := e.Progress(ctx, 1); err == nil {
		t.Fatal("expected Progress on a cancelled task to fail")
	}
}

func TestListPaginatesInKeyOrder(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	dir := t.TempDir()

	for _, id := range []uint32{3, 1, 2} {
		if err := e.Start(ctx, id, dir, []string{"sleep", "30"}); err != nil {
			t.Fatalf("Start(%d): %v", id, err)
		}
	}
	defer func() {
		for _, id := range []uint32{3, 1, 2} {
			e.Cancel(ctx, id)
		}
	}()

	got := e.List(ctx, 0, 2)
	want := []uint32{1, 2}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("List(0, 2) = %v, want %v", got, want)
	}

	rest := e.List(ctx, 2, 10)
	if len(rest) != 1 || rest[0] != 3 {
		t.Fatalf("List(2, 10) = %v, want [3]", rest)
	}
}

func TestShutdownKillsEveryRunningProcess(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	dir := t.TempDir()

	for _, id := range []uint32{1, 2} {
		if err := e.Start(ctx, id, dir, []string{"sleep", "30"}); err != nil {
			t.Fatalf("Start(%d): %v", id, err)
		}
	}

	if err := e.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if len(e.List(ctx, 0, 10)) != 0 {
		t.Fatal("expected no tasks to remain after Shutdown")
	}
}
