// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire defines the hub↔unit message envelopes and encodes
// them as CBOR. The reactor's original design assumes a bit-exact
// Protocol Buffers schema compiled by an external protoc toolchain;
// without that toolchain available, this implementation substitutes
// fxamacker/cbor (already the teacher's wire-codec library of choice,
// see lib/codec) as the payload format, keeping the same field shapes
// a .proto schema would have described. Every value defined here
// travels inside a COBS frame (lib/cobs) carried by a transport.Conn.
package wire
