// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

// Package fsutil provides the filesystem primitives folder.Registry
// needs beyond the standard library: an iterative, depth-bounded
// recursive delete that makes "directory tree deeper than the walker
// can track" an observable error instead of an unbounded call stack.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/taskrelay/taskrelay/lib/scheduler"
)

// DefaultMaxDepth matches the reactor's fs_rm_rf_buff_entry dir_buf[32]:
// a directory tree nested more than 32 levels deep cannot be removed
// by RemoveAll and instead surfaces a reactor error.
const DefaultMaxDepth = 32

type frame struct {
	path    string
	entries []os.DirEntry
	index   int
}

// RemoveAll deletes the file or directory tree rooted at path using an
// explicit stack bounded to maxDepth frames, the same ownership model
// as the reactor's dirs std::span: descending into a subdirectory
// pushes a frame, finishing one pops it, and a tree nested deeper than
// maxDepth fails with a *scheduler.Error of kind KindReactorError
// rather than recursing further.
func RemoveAll(path string, maxDepth int) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return scheduler.Wrap(scheduler.KindReactorError, err)
	}
	if !info.IsDir() {
		if err := os.Remove(path); err != nil {
			return scheduler.Wrap(scheduler.KindReactorError, err)
		}
		return nil
	}

	stack := make([]frame, 0, maxDepth)
	stack = append(stack, frame{path: path})

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if top.entries == nil {
			entries, err := os.ReadDir(top.path)
			if err != nil {
				return scheduler.Wrap(scheduler.KindReactorError, err)
			}
			top.entries = entries
		}

		if top.index == len(top.entries) {
			if err := os.Remove(top.path); err != nil {
				return scheduler.Wrap(scheduler.KindReactorError, err)
			}
			stack = stack[:len(stack)-1]
			continue
		}

		entry := top.entries[top.index]
		top.index++
		childPath := filepath.Join(top.path, entry.Name())

		if !entry.IsDir() {
			if err := os.Remove(childPath); err != nil {
				return scheduler.Wrap(scheduler.KindReactorError, err)
			}
			continue
		}

		if len(stack) == maxDepth {
			return scheduler.New(scheduler.KindReactorError,
				fmt.Sprintf("fsutil: directory tree under %s exceeds max depth %d", path, maxDepth))
		}
		stack = append(stack, frame{path: childPath})
	}

	return nil
}
