// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package borrowlock provides a shared/exclusive lock whose holders are
// recorded in a [context.Context], so that an acquisition made further
// down the same call chain can be recognized as reentrant.
//
// Each successful acquisition returns a [Permit]. A permit owns a read or
// write hold on the underlying [syncs.RWMutex], unless it was granted by
// riding a shared permit already present in the parent context, in which
// case releasing it is a no-op.
//
// Runtime checks ensure that:
//   - a permit is only released once,
//   - a nested permit is not released after its parent, and
//   - a permit's context is not used after the permit is released.
//
// Example:
//
//	func (r *Resource) Sum(ctx context.Context) int {
//	  p, err := r.mu.RLock(ctx) // shared hold, or rides ctx's hold
//	  if err != nil {
//	    return 0 // ctx already holds r.mu exclusively
//	  }
//	  defer p.Release()
//	  return r.a + r.get(p.Context())
//	}
package borrowlock
