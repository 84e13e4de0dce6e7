// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package cell

const conflictMsg = "already mutably borrowed by current call chain"

// ConflictError is the only error returned by borrow operations. It means
// the requested borrow is incompatible with one already held by the
// caller's own call chain, so waiting for it would never finish.
//
// It carries no payload; use errors.Is(err, ErrConflict) to test for it.
type ConflictError struct{}

func (ConflictError) Error() string { return conflictMsg }

// ErrConflict is the [ConflictError] value returned by borrow operations.
var ErrConflict error = ConflictError{}
