// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

// Package folder implements the unit's folder registry: named
// per-task workspaces under a shared root directory. Bounds on name
// and path length, and the directory layout, mirror
// original_source/src/unit/folder.hpp exactly.
package folder
