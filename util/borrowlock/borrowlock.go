// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package borrowlock

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rwcell/rwcell/syncs"
)

// ErrReentrant is returned by [RWLock.RLock] and [RWLock.Lock] when the
// parent context already holds the lock in a mode that would make the
// acquisition deadlock.
var ErrReentrant = errors.New("borrowlock: reentrant acquisition would deadlock")

// Mode is the kind of hold a [Permit] represents.
type Mode uint8

const (
	Shared Mode = iota + 1
	Exclusive
)

func (m Mode) String() string {
	switch m {
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	}
	return "invalid"
}

// RWLock is a reader/writer lock that records its holders in contexts.
// The zero value is an unlocked lock.
//
// An RWLock must not be copied after first use.
type RWLock struct {
	mu syncs.RWMutex
}

type lockerKey struct{ *RWLock }

// state is the [context.Context] carried by a [Permit].
type state struct {
	context.Context             // parent
	rw              *RWLock     // lock this state refers to
	mode            Mode        // hold mode
	parent          *state      // non-nil if riding an ancestor's shared hold
	released        atomic.Bool // set by the first release
}

func (s *state) panicIfReleased() {
	if s.released.Load() {
		panic("borrowlock: use of context after release")
	}
}

func (s *state) Deadline() (deadline time.Time, ok bool) {
	s.panicIfReleased()
	return s.Context.Deadline()
}

func (s *state) Done() <-chan struct{} {
	s.panicIfReleased()
	return s.Context.Done()
}

func (s *state) Err() error {
	s.panicIfReleased()
	return s.Context.Err()
}

func (s *state) Value(key any) any {
	s.panicIfReleased()
	if key == (lockerKey{s.rw}) {
		return s
	}
	return s.Context.Value(key)
}

// release releases s's hold, if it owns one, and reports whether this was
// the first release.
func (s *state) release() bool {
	if !s.released.CompareAndSwap(false, true) {
		return false
	}
	switch {
	case s.parent != nil:
		if s.parent.released.Load() {
			panic("borrowlock: parent permit released before nested permit")
		}
	case s.mode == Exclusive:
		s.rw.mu.Unlock()
	default:
		s.rw.mu.RUnlock()
	}
	return true
}

func checkParent(ctx context.Context) {
	if ctx == nil {
		panic("nil parent context")
	}
}

// held returns the live state for rw carried by ctx, if any.
func (rw *RWLock) held(ctx context.Context) *state {
	checkParent(ctx)
	s, _ := ctx.Value(lockerKey{rw}).(*state)
	return s
}

func (rw *RWLock) grant(ctx context.Context, mode Mode, parent *state) Permit {
	return Permit{&state{Context: ctx, rw: rw, mode: mode, parent: parent}}
}

// TryRLock acquires a shared hold without blocking.
// If ctx already carries a shared hold on rw, the returned permit rides it.
// It reports false if rw is held exclusively, by ctx or anyone else, or
// if a writer is waiting.
func (rw *RWLock) TryRLock(ctx context.Context) (Permit, bool) {
	if h := rw.held(ctx); h != nil {
		if h.mode == Exclusive {
			return Permit{}, false
		}
		return rw.grant(ctx, Shared, h), true
	}
	if !rw.mu.TryRLock() {
		return Permit{}, false
	}
	return rw.grant(ctx, Shared, nil), true
}

// TryLock acquires an exclusive hold without blocking.
// It reports false if rw is held in any mode, including by ctx.
func (rw *RWLock) TryLock(ctx context.Context) (Permit, bool) {
	if rw.held(ctx) != nil {
		return Permit{}, false
	}
	if !rw.mu.TryLock() {
		return Permit{}, false
	}
	return rw.grant(ctx, Exclusive, nil), true
}

// RLock acquires a shared hold, blocking while another call chain holds
// rw exclusively. If ctx already carries a shared hold on rw, the returned
// permit rides it without touching the mutex, so a queued writer cannot
// deadlock the chain against itself.
//
// It returns ErrReentrant if ctx holds rw exclusively.
func (rw *RWLock) RLock(ctx context.Context) (Permit, error) {
	if h := rw.held(ctx); h != nil {
		if h.mode == Exclusive {
			return Permit{}, ErrReentrant
		}
		return rw.grant(ctx, Shared, h), nil
	}
	rw.mu.RLock()
	return rw.grant(ctx, Shared, nil), nil
}

// Lock acquires an exclusive hold, blocking while any other call chain
// holds rw. It returns ErrReentrant if ctx holds rw in any mode.
func (rw *RWLock) Lock(ctx context.Context) (Permit, error) {
	if rw.held(ctx) != nil {
		return Permit{}, ErrReentrant
	}
	rw.mu.Lock()
	return rw.grant(ctx, Exclusive, nil), nil
}

// HeldBy reports the mode in which ctx holds rw, or 0 if it does not.
func (rw *RWLock) HeldBy(ctx context.Context) Mode {
	if h := rw.held(ctx); h != nil {
		return h.mode
	}
	return 0
}

// Permit is a hold on an [RWLock] acquired by one of its methods.
// The zero Permit is invalid.
type Permit struct {
	s *state
}

// Mode returns the hold mode of p.
func (p Permit) Mode() Mode { return p.s.mode }

// Owned reports whether p owns its hold on the mutex, as opposed to
// riding an ancestor's shared hold.
func (p Permit) Owned() bool { return p.s.parent == nil }

// Released reports whether p has been released.
func (p Permit) Released() bool { return p.s.released.Load() }

// Context returns a context derived from the acquisition's parent that
// records p's hold. Pass it down the call chain so nested acquisitions
// are recognized as reentrant.
func (p Permit) Context() context.Context {
	if p.s.released.Load() {
		panic("borrowlock: use of context after release")
	}
	return p.s
}

// Release releases the hold. It panics if p was already released, or if
// p rides a parent permit that has already been released.
func (p Permit) Release() {
	if p.s == nil {
		panic("borrowlock: release of invalid permit")
	}
	if !p.s.release() {
		panic("borrowlock: permit already released")
	}
}

// TryRelease is like Release but reports false instead of panicking if p
// was already released. It is meant for finalization paths that may race
// with an explicit Release.
func (p Permit) TryRelease() bool {
	return p.s.release()
}
