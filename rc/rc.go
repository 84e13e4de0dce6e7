// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package rc provides reference-counted strong and weak handles to a
// shared [cell.Cell].
//
// A [Strong] handle keeps the cell alive and borrows from it directly: it
// has every borrow method of [cell.Cell], each of which panics once the
// handle is released. A [Weak]
// handle only observes the allocation and may be upgraded to a Strong
// handle while at least one Strong handle is live. Once the last Strong
// handle is released, the value is dropped and no Weak handle can revive
// it.
//
// Go has no destructors, so handles are released explicitly. A handle
// that becomes unreachable without being released is released by the
// garbage collector some time later.
package rc

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/rwcell/rwcell/cell"
	"golang.org/x/sys/cpu"
)

// alloc is the shared allocation behind a set of handles.
type alloc[T any] struct {
	strong atomic.Int64
	weak   atomic.Int64
	_      cpu.CacheLinePad // keep counter traffic off the cell's lock
	cell   atomic.Pointer[cell.Cell[T]]
}

func (a *alloc[T]) releaseStrong() {
	switch n := a.strong.Add(-1); {
	case n == 0:
		a.cell.Store(nil)
	case n < 0:
		panic("rc: strong count underflow")
	}
}

func (a *alloc[T]) releaseWeak() {
	if a.weak.Add(-1) < 0 {
		panic("rc: weak count underflow")
	}
}

// tryAcquireStrong increments the strong count unless it is zero.
func (a *alloc[T]) tryAcquireStrong() bool {
	for {
		n := a.strong.Load()
		if n == 0 {
			return false
		}
		if a.strong.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Strong is an owning handle to a shared cell.
type Strong[T any] struct {
	c        *cell.Cell[T]
	a        *alloc[T]
	released atomic.Bool
	cleanup  runtime.Cleanup
}

// New allocates a cell holding v and returns its first Strong handle.
func New[T any](v T) *Strong[T] {
	a := new(alloc[T])
	c := cell.New(v)
	a.cell.Store(c)
	a.strong.Store(1)
	return newStrong(a, c)
}

// newStrong wraps a strong reference already counted in a.
func newStrong[T any](a *alloc[T], c *cell.Cell[T]) *Strong[T] {
	s := &Strong[T]{c: c, a: a}
	s.cleanup = runtime.AddCleanup(s, (*alloc[T]).releaseStrong, a)
	return s
}

func (s *Strong[T]) check() {
	if s.released.Load() {
		panic("rc: use of released Strong handle")
	}
}

// Clone returns a new Strong handle to the same cell.
func (s *Strong[T]) Clone() *Strong[T] {
	s.check()
	s.a.strong.Add(1)
	return newStrong(s.a, s.c)
}

// Release drops this handle. If it was the last Strong handle, the cell
// is dropped too, whatever the weak count. Guards already borrowed
// through s stay valid until released. A second call panics.
func (s *Strong[T]) Release() {
	if !s.released.CompareAndSwap(false, true) {
		panic("rc: Strong handle already released")
	}
	s.cleanup.Stop()
	s.a.releaseStrong()
}

// Cell returns the shared cell. The result must not be used after s is
// released.
func (s *Strong[T]) Cell() *cell.Cell[T] {
	s.check()
	return s.c
}

func (s *Strong[T]) TryBorrow(ctx context.Context) (*cell.ReadGuard[T], bool) {
	return s.Cell().TryBorrow(ctx)
}

func (s *Strong[T]) TryBorrowMut(ctx context.Context) (*cell.WriteGuard[T], bool) {
	return s.Cell().TryBorrowMut(ctx)
}

func (s *Strong[T]) Borrow(ctx context.Context) (*cell.ReadGuard[T], error) {
	return s.Cell().Borrow(ctx)
}

func (s *Strong[T]) BorrowMut(ctx context.Context) (*cell.WriteGuard[T], error) {
	return s.Cell().BorrowMut(ctx)
}

func (s *Strong[T]) MustBorrow(ctx context.Context) *cell.ReadGuard[T] {
	return s.Cell().MustBorrow(ctx)
}

func (s *Strong[T]) MustBorrowMut(ctx context.Context) *cell.WriteGuard[T] {
	return s.Cell().MustBorrowMut(ctx)
}

func (s *Strong[T]) Get(ctx context.Context) (T, error) {
	return s.Cell().Get(ctx)
}

func (s *Strong[T]) Set(ctx context.Context, v T) error {
	return s.Cell().Set(ctx, v)
}

func (s *Strong[T]) Update(ctx context.Context, fn func(ctx context.Context, p *T)) error {
	return s.Cell().Update(ctx, fn)
}

// Borrower returns the shared cell as a [cell.Borrower]. The result must
// not be used after s is released.
func (s *Strong[T]) Borrower() cell.Borrower[T] {
	return s.Cell().Borrower()
}

func (s *Strong[T]) String() string {
	if s.released.Load() {
		return "Strong(<released>)"
	}
	return s.c.String()
}

// StrongCount returns the number of live Strong handles to the cell.
func (s *Strong[T]) StrongCount() int {
	s.check()
	return int(s.a.strong.Load())
}

// WeakCount returns the number of live Weak handles to the cell.
func (s *Strong[T]) WeakCount() int {
	s.check()
	return int(s.a.weak.Load())
}

// PtrEq reports whether s and other share one allocation. It does not
// compare the stored values.
func (s *Strong[T]) PtrEq(other *Strong[T]) bool {
	return s.a == other.a
}

// Downgrade returns a new Weak handle to the cell. s is unaffected.
func (s *Strong[T]) Downgrade() *Weak[T] {
	s.check()
	s.a.weak.Add(1)
	return newWeak(s.a)
}

// Weak is a non-owning handle to a shared cell.
type Weak[T any] struct {
	a        *alloc[T]
	released atomic.Bool
	cleanup  runtime.Cleanup
}

func newWeak[T any](a *alloc[T]) *Weak[T] {
	w := &Weak[T]{a: a}
	w.cleanup = runtime.AddCleanup(w, (*alloc[T]).releaseWeak, a)
	return w
}

func (w *Weak[T]) check() {
	if w.released.Load() {
		panic("rc: use of released Weak handle")
	}
}

// Upgrade returns a new Strong handle if any Strong handle is still
// live. After the strong count has reached zero it always reports false.
func (w *Weak[T]) Upgrade() (*Strong[T], bool) {
	w.check()
	if !w.a.tryAcquireStrong() {
		return nil, false
	}
	return newStrong(w.a, w.a.cell.Load()), true
}

// Clone returns a new Weak handle to the same allocation.
func (w *Weak[T]) Clone() *Weak[T] {
	w.check()
	w.a.weak.Add(1)
	return newWeak(w.a)
}

// Release drops this handle. A second call panics.
func (w *Weak[T]) Release() {
	if !w.released.CompareAndSwap(false, true) {
		panic("rc: Weak handle already released")
	}
	w.cleanup.Stop()
	w.a.releaseWeak()
}

// StrongCount returns the number of live Strong handles to the cell.
func (w *Weak[T]) StrongCount() int {
	w.check()
	return int(w.a.strong.Load())
}

// WeakCount returns the number of live Weak handles to the cell.
func (w *Weak[T]) WeakCount() int {
	w.check()
	return int(w.a.weak.Load())
}

// PtrEq reports whether w and other share one allocation.
func (w *Weak[T]) PtrEq(other *Weak[T]) bool {
	return w.a == other.a
}
