// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

// Package transfer implements the unit's file-transfer engine: each
// active transfer is a Slot identified by the hub's sequence number,
// serialized through a lib/asyncqueue.SerialFIFO so writes against the
// same file handle never interleave. End verifies the written file
// against the FNV-1a hash carried on the wire, matching
// original_source/src/unit/fs_transfer.hpp's integrity check exactly.
package transfer
