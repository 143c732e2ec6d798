// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package folder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/taskrelay/taskrelay/lib/fsutil"
	"github.com/taskrelay/taskrelay/lib/scheduler"
)

// MaxNameLength and MaxPathLength match the reactor's
// folder_max_name_l/folder_max_path_l constants.
const (
	MaxNameLength = 32
	MaxPathLength = 256
)

// Shutdowner is implemented by anything a folder depends on — a
// running file transfer, a running task — that must be torn down
// before the folder itself can be deleted.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Entry is one registered folder.
type Entry struct {
	Name string
	Path string

	mu         sync.Mutex
	dependents []Shutdowner
}

// AddDependent registers s to be shut down before this folder is
// deleted or cleared. The original's folder_delete does not do this
// (original_source/src/unit/folder.hpp:117-132 just erases the map
// entry); this implementation adds it because leaving a transfer or
// task running against a directory that no longer exists would
// violate outstanding invariants on those subsystems (see DESIGN.md).
func (e *Entry) AddDependent(s Shutdowner) {
	e.mu.Lock()
	e.dependents = append(e.dependents, s)
	e.mu.Unlock()
}

func (e *Entry) shutdownDependents(ctx context.Context) error {
	e.mu.Lock()
	dependents := e.dependents
	e.dependents = nil
	e.mu.Unlock()

	for _, d := range dependents {
		if err := d.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Registry tracks every folder under one workdir, keyed by name, in
// name order.
type Registry struct {
	workdir string

	mu      sync.Mutex
	entries map[string]*Entry
	names   []string
}

// NewRegistry returns an empty Registry rooted at workdir. Call Init
// before using it.
func NewRegistry(workdir string) *Registry {
	return &Registry{workdir: workdir, entries: make(map[string]*Entry)}
}

// Init creates workdir if it does not exist, or otherwise scans its
// immediate subdirectories and registers each as a folder.
func (r *Registry) Init() error {
	info, err := os.Stat(r.workdir)
	if os.IsNotExist(err) {
		return os.Mkdir(r.workdir, 0o700)
	}
	if err != nil {
		return scheduler.Wrap(scheduler.KindReactorError, err)
	}
	if !info.IsDir() {
		return scheduler.New(scheduler.KindInputError, fmt.Sprintf("folder: workdir %s is not a directory", r.workdir))
	}

	children, err := os.ReadDir(r.workdir)
	if err != nil {
		return scheduler.Wrap(scheduler.KindReactorError, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, child := range children {
		if !child.IsDir() {
			continue
		}
		name := child.Name()
		if len(name) >= MaxNameLength {
			return scheduler.New(scheduler.KindInputError, fmt.Sprintf("folder: name %q is too long", name))
		}
		if _, exists := r.entries[name]; exists {
			return scheduler.New(scheduler.KindInputError, fmt.Sprintf("folder: duplicate folder name %q", name))
		}
		r.insertLocked(name, filepath.Join(r.workdir, name))
	}
	return nil
}

// Create makes a new folder named name and registers it. Rejects
// names that already exist, contain a path separator, or are
// MaxNameLength bytes or longer.
func (r *Registry) Create(name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.entries[name]; exists {
		r.mu.Unlock()
		return scheduler.New(scheduler.KindInputError, fmt.Sprintf("folder: %q already exists", name))
	}
	path := filepath.Join(r.workdir, name)
	if len(path) >= MaxPathLength {
		r.mu.Unlock()
		return scheduler.New(scheduler.KindInputError, fmt.Sprintf("folder: path %q is too long", path))
	}
	r.mu.Unlock()

	if err := os.Mkdir(path, 0o700); err != nil && !os.IsExist(err) {
		return scheduler.Wrap(scheduler.KindReactorError, err)
	}

	r.mu.Lock()
	r.insertLocked(name, path)
	r.mu.Unlock()
	return nil
}

// Delete shuts down every dependent of name, removes its directory
// tree, and unregisters it.
func (r *Registry) Delete(ctx context.Context, name string) error {
	entry, err := r.lookup(name)
	if err != nil {
		return err
	}

	if err := entry.shutdownDependents(ctx); err != nil {
		return err
	}
	if err := fsutil.RemoveAll(entry.Path, fsutil.DefaultMaxDepth); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.entries, name)
	r.removeNameLocked(name)
	r.mu.Unlock()
	return nil
}

// Clear shuts down every dependent of name, removes and recreates its
// directory, leaving the folder registered but empty.
func (r *Registry) Clear(ctx context.Context, name string) error {
	entry, err := r.lookup(name)
	if err != nil {
		return err
	}

	if err := entry.shutdownDependents(ctx); err != nil {
		return err
	}
	if err := fsutil.RemoveAll(entry.Path, fsutil.DefaultMaxDepth); err != nil {
		return err
	}
	if err := os.Mkdir(entry.Path, 0o700); err != nil {
		return scheduler.Wrap(scheduler.KindReactorError, err)
	}
	return nil
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (*Entry, error) {
	return r.lookup(name)
}

// Names returns every registered folder name in reverse key order,
// matching the original's rbegin() list_folder traversal (see
// DESIGN.md).
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.names))
	for i, name := range r.names {
		out[len(r.names)-1-i] = name
	}
	return out
}

func (r *Registry) lookup(name string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, exists := r.entries[name]
	if !exists {
		return nil, scheduler.New(scheduler.KindInputError, fmt.Sprintf("folder: %q does not exist", name))
	}
	return entry, nil
}

func (r *Registry) insertLocked(name, path string) {
	r.entries[name] = &Entry{Name: name, Path: path}
	i := sort.SearchStrings(r.names, name)
	r.names = append(r.names, "")
	copy(r.names[i+1:], r.names[i:])
	r.names[i] = name
}

func (r *Registry) removeNameLocked(name string) {
	i := sort.SearchStrings(r.names, name)
	if i < len(r.names) && r.names[i] == name {
		r.names = append(r.names[:i], r.names[i+1:]...)
	}
}

func validateName(name string) error {
	if name == "" {
		return scheduler.New(scheduler.KindInputError, "folder: name must not be empty")
	}
	if len(name) >= MaxNameLength {
		return scheduler.New(scheduler.KindInputError, fmt.Sprintf("folder: name %q is too long", name))
	}
	if strings.ContainsRune(name, '/') {
		return scheduler.New(scheduler.KindInputError, fmt.Sprintf("folder: name %q must not contain '/'", name))
	}
	return nil
}
