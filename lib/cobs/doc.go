// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

// Package cobs implements Consistent Overhead Byte Stuffing framing
// for the hub↔unit wire protocol (see lib/wire and transport). Every
// message is COBS-encoded and terminated with a single 0x00 byte, so
// the transport layer never has to parse a length prefix: the next
// 0x00 always marks the end of the current message, and no encoded
// byte before it is ever zero.
package cobs
