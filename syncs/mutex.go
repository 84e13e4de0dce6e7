// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !rwcell_mutex_debug

package syncs

import "sync"

// RWMutex is an alias for sync.RWMutex.
//
// It's only not a sync.RWMutex when built with the rwcell_mutex_debug build tag.
type RWMutex = sync.RWMutex
