// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

// Package arena provides bounded bump-allocator scratch space. See
// [Arena] for the allocation and release contract.
package arena
