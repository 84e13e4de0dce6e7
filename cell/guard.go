// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package cell

import (
	"context"
	"runtime"

	"github.com/rwcell/rwcell/util/borrowlock"
)

// guard is the state shared by [ReadGuard] and [WriteGuard].
type guard[T any] struct {
	c       *Cell[T]
	p       borrowlock.Permit
	cleanup runtime.Cleanup
	watched bool
}

func (g *guard[T]) check() {
	if g.p.Released() {
		panic("cell: use of guard after release")
	}
}

// Context returns a context recording this borrow. Borrows made with it
// (or a context derived from it) are recognized as reentrant.
func (g *guard[T]) Context() context.Context {
	g.check()
	return g.p.Context()
}

// Get returns a copy of the borrowed value.
func (g *guard[T]) Get() T {
	g.check()
	return g.c.v
}

// Release ends the borrow. It must be called exactly once, typically
// deferred right after the borrow succeeds; a second call panics.
func (g *guard[T]) Release() {
	if g.p.Released() {
		panic("cell: guard already released")
	}
	if g.watched {
		g.cleanup.Stop()
	}
	g.p.Release()
}

// ReadGuard is a shared borrow of a [Cell]. Any number of ReadGuards for
// the same cell may be live at once, but never alongside a [WriteGuard].
type ReadGuard[T any] struct {
	guard[T]
}

func newReadGuard[T any](c *Cell[T], p borrowlock.Permit) *ReadGuard[T] {
	g := &ReadGuard[T]{guard[T]{c: c, p: p}}
	g.cleanup, g.watched = watch(g, p)
	return g
}

// WriteGuard is an exclusive borrow of a [Cell]. While it is live no
// other guard for the same cell is.
type WriteGuard[T any] struct {
	guard[T]
}

func newWriteGuard[T any](c *Cell[T], p borrowlock.Permit) *WriteGuard[T] {
	g := &WriteGuard[T]{guard[T]{c: c, p: p}}
	g.cleanup, g.watched = watch(g, p)
	return g
}

// Set replaces the borrowed value.
func (g *WriteGuard[T]) Set(v T) {
	g.check()
	g.c.v = v
}

// Ptr returns a pointer to the cell's storage for in-place mutation.
// The pointer must not be used after g is released.
func (g *WriteGuard[T]) Ptr() *T {
	g.check()
	return &g.c.v
}
