// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rwcell/rwcell/tstest"
)

func TestRun(t *testing.T) {
	tstest.ResourceCheck(t)
	cfg := config{readers: 3, writers: 4, iterations: 500, verbose: true}
	st, err := run(context.Background(), cfg, t.Logf)
	if err != nil {
		t.Fatal(err)
	}
	if st.final != 2000 {
		t.Errorf("final = %d, want 2000", st.final)
	}
	if st.refused != 3 {
		t.Errorf("refused = %d, want one per reader", st.refused)
	}
}

func TestRunProgress(t *testing.T) {
	tstest.ResourceCheck(t)
	var lc tstest.LogCollector
	cfg := config{readers: 1, writers: 2, iterations: 2000, progress: time.Millisecond}
	st, err := run(context.Background(), cfg, lc.Logf)
	if err != nil {
		t.Fatal(err)
	}
	if st.final != 4000 {
		t.Errorf("final = %d, want 4000", st.final)
	}
	// Progress goes to logf even when not verbose; per-goroutine lines don't.
	for _, l := range lc.Lines() {
		if !strings.Contains(l, "cellstress: progress ") {
			t.Errorf("unexpected log line %q", l)
		}
	}
}

func TestRunInvalidConfig(t *testing.T) {
	if _, err := run(context.Background(), config{writers: 0}, t.Logf); err == nil {
		t.Fatal("run accepted zero writers")
	}
}
