// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package syncs contains additional sync types.
package syncs

import "sync/atomic"

type tryRWLocker interface {
	TryLock() bool
	Unlock()
	TryRLock() bool
	RUnlock()
}

// AssertRLocked panics if rw is not held for reading or writing.
//
// It may fail to panic if another goroutine acquires or releases rw
// concurrently, so it's only suitable for tests and debug checks.
func AssertRLocked(rw *RWMutex) {
	var l tryRWLocker = rw
	if l.TryLock() {
		l.Unlock()
		panic("RWMutex is not locked")
	}
}

// AssertWLocked panics if rw is not held for writing.
//
// A writer queued behind readers makes TryRLock fail too, so a read-held
// rw with a pending writer is not reported.
func AssertWLocked(rw *RWMutex) {
	var l tryRWLocker = rw
	if l.TryRLock() {
		l.RUnlock()
		panic("RWMutex is not write-locked")
	}
}

// WaitGroupChan is like a sync.WaitGroup, but has a chan that closes
// on completion that you can wait on. (This, you can only use the
// value once)
// Also, its zero value is not usable. Use the constructor.
type WaitGroupChan struct {
	n    atomic.Int64
	done chan struct{} // closed on transition to zero
}

// NewWaitGroupChan returns a new single-use WaitGroupChan.
func NewWaitGroupChan() *WaitGroupChan {
	return &WaitGroupChan{done: make(chan struct{})}
}

// DoneChan returns a channel that's closed on completion.
func (c *WaitGroupChan) DoneChan() <-chan struct{} { return c.done }

// Add adds delta, which may be negative, to the WaitGroupChan
// counter. If the counter becomes zero, the Done chan is closed.
func (c *WaitGroupChan) Add(delta int) {
	if c.n.Add(int64(delta)) == 0 {
		close(c.done)
	}
}

// Decr decrements the WaitGroupChan counter by one.
func (c *WaitGroupChan) Decr() { c.Add(-1) }

// Wait blocks until the WaitGroupChan counter is zero.
func (c *WaitGroupChan) Wait() { <-c.done }
