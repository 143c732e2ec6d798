// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package folder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/taskrelay/taskrelay/lib/scheduler"
)

func TestInitScansExistingSubdirectories(t *testing.T) {
	workdir := t.TempDir()
	for _, name := range []string{"alpha", "beta"} {
		if err := os.Mkdir(filepath.Join(workdir, name), 0o700); err != nil {
			t.Fatalf("Mkdir: %v", err)
		}
	}

	r := NewRegistry(workdir)
	if err := r.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if _, err := r.Lookup("alpha"); err != nil {
		t.Fatalf("Lookup(alpha): %v", err)
	}
	if _, err := r.Lookup("beta"); err != nil {
		t.Fatalf("Lookup(beta): %v", err)
	}
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	r := NewRegistry(t.TempDir())
	if err := r.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := r.Create("task-1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Create("task-1"); err == nil {
		t.Fatal("expected duplicate create to fail")
	}
}

func TestCreateRejectsNameWithSeparator(t *testing.T) {
	r := NewRegistry(t.TempDir())
	if err := r.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := r.Create("a/b"); err == nil {
		t.Fatal("expected name with separator to be rejected")
	}
}

func TestDeleteShutsDownDependentsThenRemovesDirectory(t *testing.T) {
	r := NewRegistry(t.TempDir())
	if err := r.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := r.Create("task-1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	entry, err := r.Lookup("task-1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	shutdownCalled := false
	entry.AddDependent(shutdownerFunc(func(ctx context.Context) error {
		shutdownCalled = true
		return nil
	}))

	if err := r.Delete(context.Background(), "task-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !shutdownCalled {
		t.Fatal("expected dependent to be shut down before delete")
	}
	if _, err := os.Stat(entry.Path); !os.IsNotExist(err) {
		t.Fatalf("expected directory to be removed, stat err = %v", err)
	}
	if _, err := r.Lookup("task-1"); err == nil {
		t.Fatal("expected task-1 to be unregistered")
	}
}

func TestClearRecreatesEmptyDirectory(t *testing.T) {
	r := NewRegistry(t.TempDir())
	if err := r.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := r.Create("task-1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	entry, _ := r.Lookup("task-1")
	if err := os.WriteFile(filepath.Join(entry.Path, "leftover.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := r.Clear(context.Background(), "task-1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	children, err := os.ReadDir(entry.Path)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(children) != 0 {
		t.Fatalf("expected empty directory after Clear, got %d entries", len(children))
	}
	if _, err := r.Lookup("task-1"); err != nil {
		t.Fatalf("expected task-1 to remain registered after Clear: %v", err)
	}
}

func TestDeleteUnknownNameReturnsInputError(t *testing.T) {
	r := NewRegistry(t.TempDir())
	if err := r.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	err := r.Delete(context.Background(), "missing")
	var schedErr *scheduler.Error
	if !errors.As(err, &schedErr) {
		t.Fatalf("expected *scheduler.Error, got %v", err)
	}
	if schedErr.Kind != scheduler.KindInputError {
		t.Fatalf("Kind = %v, want KindInputError", schedErr.Kind)
	}
}

func TestNamesAreReversed(t *testing.T) {
	r := NewRegistry(t.TempDir())
	if err := r.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	for _, name := range []string{"alpha", "beta", "gamma"} {
		if err := r.Create(name); err != nil {
			t.Fatalf("Create(%s): %v", name, err)
		}
	}

	got := r.Names()
	want := []string{"gamma", "beta", "alpha"}
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", got, want)
		}
	}
}

type shutdownerFunc func(ctx context.Context) error

func (f shutdownerFunc) Shutdown(ctx context.Context) error { return f(ctx) }
