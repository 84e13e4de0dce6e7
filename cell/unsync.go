// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package cell

import "context"

// Unsync is a single-owner cell that checks borrows by counting them.
// It never blocks: any borrow that conflicts with an outstanding one is
// refused. It is not safe for concurrent use.
//
// The zero value holds the zero T and is ready to use.
type Unsync[T any] struct {
	borrows int // >0: shared borrows; -1: exclusive borrow
	v       T
}

// NewUnsync returns an Unsync holding v.
func NewUnsync[T any](v T) *Unsync[T] {
	return &Unsync[T]{v: v}
}

// PlainRef is a shared borrow of an [Unsync].
type PlainRef[T any] struct {
	u        *Unsync[T]
	ctx      context.Context
	released bool
}

// PlainRefMut is an exclusive borrow of an [Unsync].
type PlainRefMut[T any] struct {
	u        *Unsync[T]
	ctx      context.Context
	released bool
}

func (u *Unsync[T]) TryBorrow(ctx context.Context) (*PlainRef[T], bool) {
	checkParent(ctx)
	if u.borrows < 0 {
		return nil, false
	}
	u.borrows++
	return &PlainRef[T]{u: u, ctx: ctx}, true
}

func (u *Unsync[T]) TryBorrowMut(ctx context.Context) (*PlainRefMut[T], bool) {
	checkParent(ctx)
	if u.borrows != 0 {
		return nil, false
	}
	u.borrows = -1
	return &PlainRefMut[T]{u: u, ctx: ctx}, true
}

// Borrow is TryBorrow with refusal reported as [ErrConflict]. Every
// outstanding borrow of an Unsync belongs to its single owner, so a
// refusal is always a conflict.
func (u *Unsync[T]) Borrow(ctx context.Context) (*PlainRef[T], error) {
	r, ok := u.TryBorrow(ctx)
	if !ok {
		return nil, ErrConflict
	}
	return r, nil
}

// BorrowMut is TryBorrowMut with refusal reported as [ErrConflict].
func (u *Unsync[T]) BorrowMut(ctx context.Context) (*PlainRefMut[T], error) {
	r, ok := u.TryBorrowMut(ctx)
	if !ok {
		return nil, ErrConflict
	}
	return r, nil
}

func (u *Unsync[T]) MustBorrow(ctx context.Context) *PlainRef[T] {
	r, err := u.Borrow(ctx)
	if err != nil {
		panic(err)
	}
	return r
}

func (u *Unsync[T]) MustBorrowMut(ctx context.Context) *PlainRefMut[T] {
	r, err := u.BorrowMut(ctx)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *PlainRef[T]) check() {
	if r.released {
		panic("cell: use of guard after release")
	}
}

// Get returns a copy of the borrowed value.
func (r *PlainRef[T]) Get() T {
	r.check()
	return r.u.v
}

// Context returns the context the borrow was made with.
func (r *PlainRef[T]) Context() context.Context {
	r.check()
	return r.ctx
}

// Release ends the borrow. A second call panics.
func (r *PlainRef[T]) Release() {
	if r.released {
		panic("cell: guard already released")
	}
	r.released = true
	r.u.borrows--
}

func (r *PlainRefMut[T]) check() {
	if r.released {
		panic("cell: use of guard after release")
	}
}

// Get returns a copy of the borrowed value.
func (r *PlainRefMut[T]) Get() T {
	r.check()
	return r.u.v
}

// Set replaces the borrowed value.
func (r *PlainRefMut[T]) Set(v T) {
	r.check()
	r.u.v = v
}

// Ptr returns a pointer to the cell's storage.
// The pointer must not be used after r is released.
func (r *PlainRefMut[T]) Ptr() *T {
	r.check()
	return &r.u.v
}

// Context returns the context the borrow was made with.
func (r *PlainRefMut[T]) Context() context.Context {
	r.check()
	return r.ctx
}

// Release ends the borrow. A second call panics.
func (r *PlainRefMut[T]) Release() {
	if r.released {
		panic("cell: guard already released")
	}
	r.released = true
	r.u.borrows = 0
}

func checkParent(ctx context.Context) {
	if ctx == nil {
		panic("nil parent context")
	}
}
