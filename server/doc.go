// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

// Package server implements the unit's TCP accept loop, which the
// hub dials. Each accepted
// connection becomes a long-lived Client wrapping a transport.Conn;
// connect and disconnect events are broadcast to subscribers with no
// history replay. Adapted from the teacher's lib/service.SocketServer
// accept loop, which serves a one-shot request/response protocol per
// connection — this package keeps the same listen/accept/graceful-
// shutdown skeleton but drops the one-shot framing in favor of one
// persistent transport.Conn per client for the connection's lifetime.
package server
