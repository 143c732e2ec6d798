// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

// Package unit implements the unit daemon's request dispatcher: it
// pulls one HubToUnit request at a time off a transport.Listener,
// routes it to the folder registry, file-transfer engine, or process
// engine, and fulfills the matching Promise with a stamped UnitToHub
// reply. The original reactor (original_source/src/unit/unit.hpp)
// does this with a single-threaded coroutine switch statement; this
// package keeps the same switch-on-kind shape but drives it from a
// goroutine per connection instead of a shared event loop, relying on
// the per-subsystem locking described in unit/folder, unit/transfer,
// and unit/procengine to make that safe.
package unit
