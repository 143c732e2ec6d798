// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport frames hub↔unit messages over a plain TCP
// connection using COBS (lib/cobs), and provides the two transaction
// shapes the protocol needs: Transactor, used by the hub to issue one
// request and await its one reply with at most one in flight per
// connection, and Listener, used by the unit to receive a request and
// fulfill it with a reply exactly once. Neither type understands the
// hub↔unit message schema — that is lib/wire's job — so both operate
// on raw frame payloads.
//
// Grounded on the teacher's observe.WriteMessage/ReadMessage
// (a fixed 5-byte length header over io.ReadWriteCloser) for the
// "framed message over a byte stream" shape, adapted here from a
// length prefix to COBS delimiting, and on lib/service.SocketServer's
// accept-loop structure for Server (see ../server).
package transport
