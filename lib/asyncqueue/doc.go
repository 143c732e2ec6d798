// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

// Package asyncqueue provides the suspension-point primitives the
// reactor's async_queue, async_optional, and async_sender_fifo cover:
// an unbounded FIFO with both single-waiter and broadcast wakeup, a
// single-shot value every waiter observes once it is set, and an
// adapter that serializes arbitrary work against a shared resource so
// at most one unit of work touches it at a time.
package asyncqueue
