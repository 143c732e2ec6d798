// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/taskrelay/taskrelay/lib/wire"
	"github.com/taskrelay/taskrelay/transport"
)

// dialTimeout bounds how long connecting to a unit may take before
// the CLI gives up and reports a clear error.
const dialTimeout = 5 * time.Second

// dial opens a connection to a unit and returns a Transactor ready for
// request/reply calls, plus a close function the caller must defer.
func dial(addr string) (*transport.Transactor, func(), error) {
	nc, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	conn := transport.NewConn(nc)
	return transport.NewTransactor(conn), func() { conn.Close() }, nil
}

// call encodes req, sends it, and decodes the reply.
func call(ctx context.Context, transactor *transport.Transactor, req *wire.HubToUnit) (*wire.UnitToHub, error) {
	encoded, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	raw, err := transactor.Transact(ctx, encoded)
	if err != nil {
		return nil, fmt.Errorf("transacting with unit: %w", err)
	}
	reply, err := wire.DecodeReply(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding reply: %w", err)
	}
	return reply, nil
}
