// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Taskrelay's standard CBOR encoding configuration.
//
// Taskrelay uses two serialization formats with a clear boundary:
//
//   - JSON for human-facing tooling; the hub CLI has no JSON output
//     mode and prints plain text.
//   - CBOR for everything that crosses the hub↔unit wire: message
//     payloads inside the COBS-framed transport. A unit keeps no
//     on-disk snapshot between restarts.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every Taskrelay package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes.
//
// For buffer-oriented operations (files, tokens):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (sockets, wire connections):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// # Struct Tag Rules
//
// The struct tag on a type documents its serialization format:
//
//   - `cbor` tag: this type is ONLY ever serialized as CBOR. Examples:
//     hub↔unit wire envelopes, request and reply payloads.
//   - `json` tag: this type may be serialized as BOTH JSON and CBOR.
//     fxamacker/cbor v2 reads `json` tags as fallback when `cbor`
//     tags are absent, so a single `json` tag controls field naming
//     and omitempty for both formats. No type in this module uses
//     `json` tags today.
//
// Never use both `cbor` and `json` tags on the same field. The tag
// choice documents the contract — doubling up is noise that obscures
// whether a type participates in JSON serialization.
package codec
