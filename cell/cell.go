// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package cell provides runtime-checked interior-mutability cells.
//
// [Cell] is safe for concurrent use: its borrows are backed by a
// reader/writer lock. [Unsync] is a cheaper single-owner cell that only
// counts outstanding borrows. Both can be used through the [Borrower]
// interface, which hands out [Ref] and [RefMut] guards regardless of the
// backing kind.
//
// Go has no goroutine identity, so a borrow that conflicts with one the
// caller already holds is recognized through the context: every guard's
// Context records its borrow, and a blocking borrow made with that
// context (or one derived from it) fails with [ErrConflict] instead of
// deadlocking.
//
// Only the guard's context carries the borrow. Borrowing the same cell
// again with the context the guard was acquired with looks like another
// call chain, so an incompatible borrow made that way waits for the guard
// forever.
//
//	g, err := c.BorrowMut(ctx)
//	if err != nil {
//		return err
//	}
//	defer g.Release()
//	*g.Ptr() += n
//	return notify(g.Context()) // notify can't re-borrow c exclusively
package cell

import (
	"context"
	"fmt"

	"github.com/rwcell/rwcell/util/borrowlock"
)

// Cell holds a value of type T that is read through shared borrows and
// mutated through exclusive borrows, checked at run time.
//
// A Cell may be shared between goroutines. Its lock only guards T's own
// storage: values reachable through pointers, maps or slices in T are
// protected only as long as callers touch them exclusively through
// guards.
//
// The zero value holds the zero T and is ready to use. A Cell must not be
// copied after first use.
type Cell[T any] struct {
	lock borrowlock.RWLock
	v    T
}

// New returns a Cell holding v.
func New[T any](v T) *Cell[T] {
	return &Cell[T]{v: v}
}

// TryBorrow returns a shared guard if c is not exclusively borrowed,
// without blocking. If ctx already carries a shared borrow of c, the new
// guard rides it and must be released first.
func (c *Cell[T]) TryBorrow(ctx context.Context) (*ReadGuard[T], bool) {
	p, ok := c.lock.TryRLock(ctx)
	if !ok {
		return nil, false
	}
	return newReadGuard(c, p), true
}

// TryBorrowMut returns an exclusive guard if c is not borrowed at all,
// without blocking.
func (c *Cell[T]) TryBorrowMut(ctx context.Context) (*WriteGuard[T], bool) {
	p, ok := c.lock.TryLock(ctx)
	if !ok {
		return nil, false
	}
	return newWriteGuard(c, p), true
}

// Borrow returns a shared guard, waiting for any exclusive borrow held by
// another call chain to be released. It returns [ErrConflict] if ctx
// itself carries an exclusive borrow of c.
func (c *Cell[T]) Borrow(ctx context.Context) (*ReadGuard[T], error) {
	p, err := c.lock.RLock(ctx)
	if err != nil {
		return nil, ErrConflict
	}
	return newReadGuard(c, p), nil
}

// BorrowMut returns an exclusive guard, waiting for all borrows held by
// other call chains to be released. It returns [ErrConflict] if ctx
// carries any borrow of c.
func (c *Cell[T]) BorrowMut(ctx context.Context) (*WriteGuard[T], error) {
	p, err := c.lock.Lock(ctx)
	if err != nil {
		return nil, ErrConflict
	}
	return newWriteGuard(c, p), nil
}

// MustBorrow is like Borrow but panics with [ErrConflict] instead of
// returning it.
func (c *Cell[T]) MustBorrow(ctx context.Context) *ReadGuard[T] {
	g, err := c.Borrow(ctx)
	if err != nil {
		panic(err)
	}
	return g
}

// MustBorrowMut is like BorrowMut but panics with [ErrConflict] instead
// of returning it.
func (c *Cell[T]) MustBorrowMut(ctx context.Context) *WriteGuard[T] {
	g, err := c.BorrowMut(ctx)
	if err != nil {
		panic(err)
	}
	return g
}

// Get returns a copy of the value under a shared borrow.
func (c *Cell[T]) Get(ctx context.Context) (T, error) {
	g, err := c.Borrow(ctx)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("cell: get: %w", err)
	}
	defer g.Release()
	return g.Get(), nil
}

// Set replaces the value under an exclusive borrow.
func (c *Cell[T]) Set(ctx context.Context, v T) error {
	g, err := c.BorrowMut(ctx)
	if err != nil {
		return fmt.Errorf("cell: set: %w", err)
	}
	defer g.Release()
	g.Set(v)
	return nil
}

// Update calls fn with a pointer to the value under an exclusive borrow.
// fn receives the borrow's context, which any borrow made inside fn must
// descend from. fn must not retain the pointer. The borrow is released
// even if fn panics.
func (c *Cell[T]) Update(ctx context.Context, fn func(ctx context.Context, p *T)) error {
	g, err := c.BorrowMut(ctx)
	if err != nil {
		return fmt.Errorf("cell: update: %w", err)
	}
	defer g.Release()
	fn(g.Context(), g.Ptr())
	return nil
}

// String formats c's value if it can be borrowed without waiting.
func (c *Cell[T]) String() string {
	g, ok := c.TryBorrow(context.Background())
	if !ok {
		return "Cell(<borrowed>)"
	}
	defer g.Release()
	return fmt.Sprintf("Cell(%v)", g.Get())
}
