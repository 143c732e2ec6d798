// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"sync"
)

// Transactor issues requests on a Conn and waits for the matching
// reply, enforcing that at most one request is ever in flight on the
// connection. The original design leaves this unenforced (a second
// transact before the first resolves would simply desynchronize
// request/reply pairing); this implementation closes that Open
// Question by serializing Transact calls with a non-reentrant lock
// rather than trusting callers to serialize themselves (see
// DESIGN.md).
type Transactor struct {
	conn *Conn
	mu   sync.Mutex
}

// NewTransactor returns a Transactor that issues requests over conn.
func NewTransactor(conn *Conn) *Transactor {
	return &Transactor{conn: conn}
}

// Transact writes request and blocks for exactly one reply frame. If
// ctx is cancelled before the reply arrives, the underlying
// connection is closed to unblock the pending read and Transact
// returns ctx.Err(); the connection is not usable afterward.
func (t *Transactor) Transact(ctx context.Context, request []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.conn.WriteFrame(request); err != nil {
		return nil, fmt.Errorf("transport: transact write: %w", err)
	}

	type result struct {
		reply []byte
		err   error
	}
	done := make(chan result, 1)
	go func() {
		reply, err := t.conn.ReadFrame()
		done <- result{reply: reply, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("transport: transact read: %w", r.err)
		}
		return r.reply, nil
	case <-ctx.Done():
		t.conn.Close()
		<-done
		return nil, ctx.Err()
	}
}
