// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package cell

import (
	"log"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/rwcell/rwcell/envknob"
	"github.com/rwcell/rwcell/types/logger"
	"github.com/rwcell/rwcell/util/borrowlock"
)

var leakLogf atomic.Pointer[logger.Logf]

func init() {
	SetLogf(log.Printf)
}

// SetLogf sets the logger used to report guards that were garbage
// collected without being released. Reports are prefixed with "rwcell: "
// and rate limited per call site unless RWCELL_DEBUG_LOG_RATE=all.
func SetLogf(logf logger.Logf) {
	lf := logger.RateLimitedFn(logger.WithPrefix(logf, "rwcell: "), time.Minute, 5, 100)
	leakLogf.Store(&lf)
}

// leak is the state needed to release a guard's permit once the guard
// itself is unreachable. It must not refer back to the guard.
type leak struct {
	p     borrowlock.Permit
	stack []byte // acquiring stack, if RWCELL_DEBUG_LEAKS is set
}

// watch arranges for the permit held by owner to be released if owner is
// garbage collected before its Release method is called. Permits riding a
// parent's hold have nothing to release and aren't watched.
func watch[G any](owner *G, p borrowlock.Permit) (c runtime.Cleanup, ok bool) {
	if !p.Owned() {
		return c, false
	}
	l := leak{p: p}
	if envknob.DebugLeaks() {
		l.stack = debug.Stack()
	}
	return runtime.AddCleanup(owner, releaseLeaked, l), true
}

func releaseLeaked(l leak) {
	if !l.p.TryRelease() {
		return
	}
	logf := *leakLogf.Load()
	if l.stack == nil {
		logf("%v guard garbage collected without Release; permit released", l.p.Mode())
		return
	}
	logf("%v guard garbage collected without Release; permit released; acquired at:\n%s", l.p.Mode(), l.stack)
}
