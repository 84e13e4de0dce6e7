// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package tstest

import (
	"sync"
	"testing"
	"time"
)

func TestLogCollector(t *testing.T) {
	c := NewLogCollector(t)
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Logf("line %d", i)
		}()
	}
	wg.Wait()
	if n := len(c.Lines()); n != 10 {
		t.Fatalf("got %d lines, want 10", n)
	}
	if !c.Contains("line 7") {
		t.Error("missing line 7")
	}
}

func TestWaitFor(t *testing.T) {
	n := 0
	if !WaitFor(time.Second, func() bool { n++; return n == 3 }) {
		t.Fatal("WaitFor gave up on a condition that becomes true")
	}
	if WaitFor(20*time.Millisecond, func() bool { return false }) {
		t.Fatal("WaitFor reported true for a condition that never holds")
	}
}

var allocSink []byte

func TestMinAllocsPerRun(t *testing.T) {
	if err := MinAllocsPerRun(t, 0, func() {}); err != nil {
		t.Error(err)
	}
	if err := MinAllocsPerRun(t, 0, func() { allocSink = make([]byte, 1<<10) }); err == nil {
		t.Error("allocating func passed a zero-alloc check")
	}
}
