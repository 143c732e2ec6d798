// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"context"
	"time"

	"github.com/taskrelay/taskrelay/lib/clock"
)

// RunIdleTicks calls tick once per period, using c so tests can drive
// it deterministically with clock.Fake(), until ctx is cancelled. This
// is the originating design's "idle hook called each reactor loop
// iteration" — unit/transfer uses it to reap abandoned transfers; a
// lib/asyncmap.Map's own drain loop is driven independently by its
// Run method rather than this ticker.
//
// RunIdleTicks blocks until ctx is cancelled; run it in its own
// goroutine.
func RunIdleTicks(ctx context.Context, c clock.Clock, period time.Duration, tick func()) {
	ticker := c.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}
