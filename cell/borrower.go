// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package cell

import "context"

// Borrower is implemented by both cell kinds, so code that only needs
// "a borrow-checked cell" can be written once.
//
// Use [Cell.Borrower] or [Unsync.Borrower] to get one, and [Via] to
// borrow through a pointer to an implementation.
type Borrower[T any] interface {
	// TryBorrow returns a shared guard, or false if one can't be
	// granted right now. It never blocks.
	TryBorrow(context.Context) (Ref[T], bool)
	// TryBorrowMut returns an exclusive guard, or false if one can't
	// be granted right now. It never blocks.
	TryBorrowMut(context.Context) (RefMut[T], bool)
	// Borrow returns a shared guard. It may wait for other goroutines
	// and fails only with ErrConflict.
	Borrow(context.Context) (Ref[T], error)
	// BorrowMut returns an exclusive guard. It may wait for other
	// goroutines and fails only with ErrConflict.
	BorrowMut(context.Context) (RefMut[T], error)
	// MustBorrow is Borrow, panicking with ErrConflict on failure.
	MustBorrow(context.Context) Ref[T]
	// MustBorrowMut is BorrowMut, panicking with ErrConflict on failure.
	MustBorrowMut(context.Context) RefMut[T]
}

// Kind identifies the cell kind backing a [Ref] or [RefMut].
type Kind uint8

const (
	KindPlain  Kind = iota + 1 // backed by an Unsync
	KindLocked                 // backed by a Cell
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindLocked:
		return "locked"
	}
	return "invalid"
}

// Ref is a shared guard from a [Borrower]. Exactly one of its backing
// guards is set. The zero Ref is invalid.
type Ref[T any] struct {
	plain  *PlainRef[T]
	locked *ReadGuard[T]
}

// Kind reports which cell kind r borrows from.
func (r Ref[T]) Kind() Kind {
	switch {
	case r.plain != nil:
		return KindPlain
	case r.locked != nil:
		return KindLocked
	}
	return 0
}

// Plain returns r's backing guard if r borrows from an [Unsync].
func (r Ref[T]) Plain() (*PlainRef[T], bool) { return r.plain, r.plain != nil }

// Locked returns r's backing guard if r borrows from a [Cell].
func (r Ref[T]) Locked() (*ReadGuard[T], bool) { return r.locked, r.locked != nil }

func (r Ref[T]) Get() T {
	switch r.Kind() {
	case KindPlain:
		return r.plain.Get()
	case KindLocked:
		return r.locked.Get()
	}
	panic("cell: use of zero Ref")
}

func (r Ref[T]) Context() context.Context {
	switch r.Kind() {
	case KindPlain:
		return r.plain.Context()
	case KindLocked:
		return r.locked.Context()
	}
	panic("cell: use of zero Ref")
}

func (r Ref[T]) Release() {
	switch r.Kind() {
	case KindPlain:
		r.plain.Release()
	case KindLocked:
		r.locked.Release()
	default:
		panic("cell: use of zero Ref")
	}
}

// RefMut is an exclusive guard from a [Borrower]. Exactly one of its
// backing guards is set. The zero RefMut is invalid.
type RefMut[T any] struct {
	plain  *PlainRefMut[T]
	locked *WriteGuard[T]
}

// Kind reports which cell kind r borrows from.
func (r RefMut[T]) Kind() Kind {
	switch {
	case r.plain != nil:
		return KindPlain
	case r.locked != nil:
		return KindLocked
	}
	return 0
}

// Plain returns r's backing guard if r borrows from an [Unsync].
func (r RefMut[T]) Plain() (*PlainRefMut[T], bool) { return r.plain, r.plain != nil }

// Locked returns r's backing guard if r borrows from a [Cell].
func (r RefMut[T]) Locked() (*WriteGuard[T], bool) { return r.locked, r.locked != nil }

func (r RefMut[T]) Get() T {
	switch r.Kind() {
	case KindPlain:
		return r.plain.Get()
	case KindLocked:
		return r.locked.Get()
	}
	panic("cell: use of zero RefMut")
}

func (r RefMut[T]) Set(v T) {
	switch r.Kind() {
	case KindPlain:
		r.plain.Set(v)
	case KindLocked:
		r.locked.Set(v)
	default:
		panic("cell: use of zero RefMut")
	}
}

// Ptr returns a pointer to the cell's storage. The pointer must not be
// used after r is released.
func (r RefMut[T]) Ptr() *T {
	switch r.Kind() {
	case KindPlain:
		return r.plain.Ptr()
	case KindLocked:
		return r.locked.Ptr()
	}
	panic("cell: use of zero RefMut")
}

func (r RefMut[T]) Context() context.Context {
	switch r.Kind() {
	case KindPlain:
		return r.plain.Context()
	case KindLocked:
		return r.locked.Context()
	}
	panic("cell: use of zero RefMut")
}

func (r RefMut[T]) Release() {
	switch r.Kind() {
	case KindPlain:
		r.plain.Release()
	case KindLocked:
		r.locked.Release()
	default:
		panic("cell: use of zero RefMut")
	}
}

var (
	_ Borrower[int] = lockedBorrower[int]{}
	_ Borrower[int] = plainBorrower[int]{}
	_ Borrower[int] = Indirect[int, Borrower[int]]{}
)

// Borrower returns c as a [Borrower].
func (c *Cell[T]) Borrower() Borrower[T] { return lockedBorrower[T]{c} }

type lockedBorrower[T any] struct{ c *Cell[T] }

func (b lockedBorrower[T]) TryBorrow(ctx context.Context) (Ref[T], bool) {
	g, ok := b.c.TryBorrow(ctx)
	return Ref[T]{locked: g}, ok
}

func (b lockedBorrower[T]) TryBorrowMut(ctx context.Context) (RefMut[T], bool) {
	g, ok := b.c.TryBorrowMut(ctx)
	return RefMut[T]{locked: g}, ok
}

func (b lockedBorrower[T]) Borrow(ctx context.Context) (Ref[T], error) {
	g, err := b.c.Borrow(ctx)
	return Ref[T]{locked: g}, err
}

func (b lockedBorrower[T]) BorrowMut(ctx context.Context) (RefMut[T], error) {
	g, err := b.c.BorrowMut(ctx)
	return RefMut[T]{locked: g}, err
}

func (b lockedBorrower[T]) MustBorrow(ctx context.Context) Ref[T] {
	return Ref[T]{locked: b.c.MustBorrow(ctx)}
}

func (b lockedBorrower[T]) MustBorrowMut(ctx context.Context) RefMut[T] {
	return RefMut[T]{locked: b.c.MustBorrowMut(ctx)}
}

// Borrower returns u as a [Borrower].
func (u *Unsync[T]) Borrower() Borrower[T] { return plainBorrower[T]{u} }

type plainBorrower[T any] struct{ u *Unsync[T] }

func (b plainBorrower[T]) TryBorrow(ctx context.Context) (Ref[T], bool) {
	r, ok := b.u.TryBorrow(ctx)
	return Ref[T]{plain: r}, ok
}

func (b plainBorrower[T]) TryBorrowMut(ctx context.Context) (RefMut[T], bool) {
	r, ok := b.u.TryBorrowMut(ctx)
	return RefMut[T]{plain: r}, ok
}

func (b plainBorrower[T]) Borrow(ctx context.Context) (Ref[T], error) {
	r, err := b.u.Borrow(ctx)
	return Ref[T]{plain: r}, err
}

func (b plainBorrower[T]) BorrowMut(ctx context.Context) (RefMut[T], error) {
	r, err := b.u.BorrowMut(ctx)
	return RefMut[T]{plain: r}, err
}

func (b plainBorrower[T]) MustBorrow(ctx context.Context) Ref[T] {
	return Ref[T]{plain: b.u.MustBorrow(ctx)}
}

func (b plainBorrower[T]) MustBorrowMut(ctx context.Context) RefMut[T] {
	return RefMut[T]{plain: b.u.MustBorrowMut(ctx)}
}

// Indirect forwards [Borrower] through a pointer to an implementation B.
// It adds no state and doesn't allocate.
type Indirect[T any, B Borrower[T]] struct {
	P *B
}

// Via returns an Indirect forwarding to *p. T must be given explicitly:
//
//	b := c.Borrower()
//	useCell(cell.Via[int](&b))
func Via[T any, B Borrower[T]](p *B) Indirect[T, B] {
	return Indirect[T, B]{p}
}

func (i Indirect[T, B]) TryBorrow(ctx context.Context) (Ref[T], bool) {
	return (*i.P).TryBorrow(ctx)
}

func (i Indirect[T, B]) TryBorrowMut(ctx context.Context) (RefMut[T], bool) {
	return (*i.P).TryBorrowMut(ctx)
}

func (i Indirect[T, B]) Borrow(ctx context.Context) (Ref[T], error) {
	return (*i.P).Borrow(ctx)
}

func (i Indirect[T, B]) BorrowMut(ctx context.Context) (RefMut[T], error) {
	return (*i.P).BorrowMut(ctx)
}

func (i Indirect[T, B]) MustBorrow(ctx context.Context) Ref[T] {
	return (*i.P).MustBorrow(ctx)
}

func (i Indirect[T, B]) MustBorrowMut(ctx context.Context) RefMut[T] {
	return (*i.P).MustBorrowMut(ctx)
}
