// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

// Package asyncmap provides an ordered, refcounted map with deferred
// asynchronous destruction, the Go rendition of the originating
// design's async_map<K,T> + async_ptr<T> pair: dropping the last
// strong reference to a cell never frees it inline, it schedules the
// cell for destruction on the map's own drain goroutine, one cell at a
// time, so a slow or blocking teardown never holds up the caller that
// dropped the last reference.
package asyncmap
