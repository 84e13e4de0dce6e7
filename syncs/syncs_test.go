// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package syncs

import (
	"testing"
	"time"
)

func wantPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		recover()
	}()
	fn()
	t.Fatal("failed to panic")
}

func TestAssertRLocked(t *testing.T) {
	var m RWMutex
	wantPanic(t, func() { AssertRLocked(&m) })
	m.RLock()
	AssertRLocked(&m)
	m.RUnlock()
	m.Lock()
	AssertRLocked(&m)
	m.Unlock()
	wantPanic(t, func() { AssertRLocked(&m) })
}

func TestAssertWLocked(t *testing.T) {
	var m RWMutex
	wantPanic(t, func() { AssertWLocked(&m) })
	m.RLock()
	wantPanic(t, func() { AssertWLocked(&m) })
	m.RUnlock()
	m.Lock()
	AssertWLocked(&m)
	go func() {
		m.Lock()
		m.Unlock()
	}()
	// Give the goroutine above a few moments to get started.
	// The test will pass whether or not we win the race.
	time.Sleep(10 * time.Millisecond)
	AssertWLocked(&m)
	m.Unlock()
}

func TestWaitGroupChan(t *testing.T) {
	wg := NewWaitGroupChan()

	wantNotDone := func() {
		t.Helper()
		select {
		case <-wg.DoneChan():
			t.Fatal("done too early")
		default:
		}
	}

	wantDone := func() {
		t.Helper()
		select {
		case <-wg.DoneChan():
		default:
			t.Fatal("expected to be done")
		}
	}

	wg.Add(2)
	wantNotDone()

	wg.Decr()
	wantNotDone()

	wg.Decr()
	wantDone()
	wantDone()
	wg.Wait()
}
