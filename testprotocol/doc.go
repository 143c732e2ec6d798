// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

// Package testprotocol drives a real taskrelay-unit dispatcher behind
// a server.Server over loopback TCP and replays the scripted
// scenarios used to validate the hub-unit wire protocol end to end:
// init handshake, folder CRUD, file transfer with FNV-1a integrity
// verification, oversized-transfer rejection, a process lifecycle,
// and cancelling a task or a transfer via folder deletion. Each
// scenario is a
// regular Go test rather than a bespoke DSL, grounded on how the
// teacher's integration suites drive a real server instance instead
// of mocking the transport.
package testprotocol
