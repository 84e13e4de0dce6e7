// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build rwcell_mutex_debug

package syncs

import (
	"sync"
	"sync/atomic"
)

// RWMutex is a sync.RWMutex that tracks its holders and panics on
// unbalanced unlocks instead of corrupting its state.
type RWMutex struct {
	mu      sync.RWMutex
	readers atomic.Int32
	writer  atomic.Bool
}

func (m *RWMutex) Lock() {
	m.mu.Lock()
	m.writer.Store(true)
}

func (m *RWMutex) TryLock() bool {
	if !m.mu.TryLock() {
		return false
	}
	m.writer.Store(true)
	return true
}

func (m *RWMutex) Unlock() {
	if !m.writer.Swap(false) {
		panic("syncs: Unlock of unlocked RWMutex")
	}
	m.mu.Unlock()
}

func (m *RWMutex) RLock() {
	m.mu.RLock()
	m.readers.Add(1)
}

func (m *RWMutex) TryRLock() bool {
	if !m.mu.TryRLock() {
		return false
	}
	m.readers.Add(1)
	return true
}

func (m *RWMutex) RUnlock() {
	if m.readers.Add(-1) < 0 {
		m.readers.Add(1)
		panic("syncs: RUnlock of unlocked RWMutex")
	}
	m.mu.RUnlock()
}

// Holders returns the number of read holders and whether a writer holds m.
func (m *RWMutex) Holders() (readers int, writer bool) {
	return int(m.readers.Load()), m.writer.Load()
}
