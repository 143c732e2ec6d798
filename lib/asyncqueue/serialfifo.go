// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package asyncqueue

import (
	"context"
	"sync"
)

// SerialFIFO serializes arbitrary funcs against a shared resource: at
// most one Wrap call is actually executing its func at a time, and
// calls run in the order Wrap was invoked. Every file-transfer slot
// owns one so transfer_data calls never interleave their writes,
// matching the reactor's async_sender_fifo.
type SerialFIFO struct {
	mu   sync.Mutex
	tail chan struct{}
}

// NewSerialFIFO returns a FIFO with nothing queued.
func NewSerialFIFO() *SerialFIFO {
	return &SerialFIFO{}
}

// Wrap enqueues fn and blocks until every previously enqueued fn has
// completed, then runs fn, then lets the next enqueued fn proceed.
// If ctx is cancelled before fn's turn arrives, Wrap returns
// ctx.Err() without running fn, but still hands off to the next
// waiter so the FIFO does not stall.
func (f *SerialFIFO) Wrap(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	wait := f.tail
	myTurn := make(chan struct{})
	f.tail = myTurn
	f.mu.Unlock()

	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			// Hand off only once the earlier call has finished, so the
			// next waiter never runs alongside it.
			go func() {
				<-wait
				close(myTurn)
			}()
			return ctx.Err()
		}
	}

	err := fn(ctx)
	close(myTurn)
	return err
}
