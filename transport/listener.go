// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Listener receives one request frame at a time from a Conn and
// hands the caller a Promise to fulfill with the matching reply.
type Listener struct {
	conn *Conn
}

// NewListener returns a Listener reading requests from conn.
func NewListener(conn *Conn) *Listener {
	return &Listener{conn: conn}
}

// Incoming blocks for one complete request frame and returns a
// Promise wrapping it. If ctx is cancelled first, the connection is
// closed to unblock the read and Incoming returns ctx.Err().
func (l *Listener) Incoming(ctx context.Context) (*Promise, error) {
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := l.conn.ReadFrame()
		done <- result{data: data, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("transport: incoming: %w", r.err)
		}
		return &Promise{conn: l.conn, data: r.data}, nil
	case <-ctx.Done():
		l.conn.Close()
		<-done
		return nil, ctx.Err()
	}
}

// Promise wraps one received request. Fulfill must be called exactly
// once; a second call panics, matching the protocol's "a promise is
// consumed exactly once" contract. Dropping a Promise without
// fulfilling it is legal and simply leaves the hub waiting until the
// connection is torn down.
type Promise struct {
	conn      *Conn
	data      []byte
	fulfilled atomic.Bool
}

// Data returns the request frame's payload.
func (p *Promise) Data() []byte {
	return p.data
}

// Fulfill COBS-encodes reply and writes it as the response frame.
// Panics if called more than once.
func (p *Promise) Fulfill(reply []byte) error {
	if !p.fulfilled.CompareAndSwap(false, true) {
		panic("transport: Promise.Fulfill called more than once")
	}
	return p.conn.WriteFrame(reply)
}
