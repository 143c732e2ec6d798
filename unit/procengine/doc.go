// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

// Package procengine runs tasks the hub dispatches to a unit: each
// task's argv is wrapped as "bash --login -c 'exec \"$@\"' -- <args...>"
// and spawned in its own process group, exactly as
// original_source/src/unit/process.hpp does. Output and exit status
// flow through an asyncqueue.Queue so Progress calls observe output
// chunks in the order they were read; once the process has exited,
// Progress reports the exit at once, and chunks still queued at that
// point are not returned. Cancellation sends SIGTERM to the process
// group only; there is no SIGKILL escalation.
package procengine
