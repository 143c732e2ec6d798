// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import "context"

// Task is a goroutine-backed unit of work carrying its own cancellation
// token, the Go rendition of the originating design's stop_token
// derived from a stop_source: Stop() plays the role of
// stop_source::request_stop(), and Context().Done() is the token any
// suspended operation observes to resolve as "stopped".
//
// Cancellation is cooperative — Stop only requests; code running inside
// the task is responsible for noticing ctx.Done() and unwinding (closing
// a handle is enough for most reactor operations: a blocked read or
// accept wakes with an error once the underlying fd is gone).
type Task struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewTask derives a new Task from parent. The returned Task's Context
// is cancelled either when parent is cancelled or when Stop is called,
// whichever happens first.
func NewTask(parent context.Context) *Task {
	ctx, cancel := context.WithCancel(parent)
	return &Task{ctx: ctx, cancel: cancel}
}

// Context returns the task's stop token. Code that wants to observe
// cancellation selects on Context().Done().
func (t *Task) Context() context.Context {
	return t.ctx
}

// Stop requests cancellation, the equivalent of
// stop_source::request_stop(). Safe to call more than once.
func (t *Task) Stop() {
	t.cancel()
}

// Stopped reports whether Stop has been called or the parent context
// has already been cancelled.
func (t *Task) Stopped() bool {
	select {
	case <-t.ctx.Done():
		return true
	default:
		return false
	}
}
