// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package cell

import (
	"context"
	"errors"
	"testing"
)

func TestUnsyncCounting(t *testing.T) {
	ctx := context.Background()
	u := NewUnsync(42)

	r1 := u.MustBorrow(ctx)
	r2, ok := u.TryBorrow(ctx)
	if !ok {
		t.Fatal("second shared borrow refused")
	}
	if u.borrows != 2 {
		t.Fatalf("borrows = %d, want 2", u.borrows)
	}
	if _, err := u.BorrowMut(ctx); !errors.Is(err, ErrConflict) {
		t.Fatalf("BorrowMut with readers: err = %v, want ErrConflict", err)
	}
	r1.Release()
	r2.Release()

	w, err := u.BorrowMut(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := u.TryBorrow(ctx); ok {
		t.Fatal("TryBorrow succeeded under an exclusive borrow")
	}
	if _, err := u.Borrow(ctx); !errors.Is(err, ErrConflict) {
		t.Fatalf("Borrow under exclusive: err = %v, want ErrConflict", err)
	}
	wantPanic(t, conflictMsg, func() { u.MustBorrowMut(ctx) })
	*w.Ptr() = 49
	w.Release()

	r := u.MustBorrow(ctx)
	if got := r.Get(); got != 49 {
		t.Fatalf("Get = %d, want 49", got)
	}
	r.Release()
	if u.borrows != 0 {
		t.Fatalf("borrows = %d after all releases, want 0", u.borrows)
	}
}

func TestUnsyncMisuse(t *testing.T) {
	ctx := context.Background()
	var u Unsync[string]
	r := u.MustBorrow(ctx)
	if r.Context() != ctx {
		t.Error("Context does not return the borrow's context")
	}
	r.Release()
	wantPanic(t, "cell: guard already released", r.Release)
	wantPanic(t, "cell: use of guard after release", func() { r.Get() })

	w := u.MustBorrowMut(ctx)
	w.Set("x")
	w.Release()
	wantPanic(t, "cell: guard already released", w.Release)
	wantPanic(t, "cell: use of guard after release", func() { w.Ptr() })
	wantPanic(t, "nil parent context", func() { u.TryBorrowMut(nil) })
	if u.borrows != 0 {
		t.Fatalf("borrows = %d, want 0", u.borrows)
	}
}
