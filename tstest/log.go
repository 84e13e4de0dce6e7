// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package tstest

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

// LogCollector records log lines. Its Logf method is safe for
// concurrent use, such as from cleanup goroutines.
type LogCollector struct {
	t *testing.T // optional; lines are also passed to t.Logf

	mu    sync.Mutex
	lines []string
}

// NewLogCollector returns a LogCollector that also logs to t.
func NewLogCollector(t *testing.T) *LogCollector {
	return &LogCollector{t: t}
}

// Logf records a formatted line. It has the signature of logger.Logf.
func (c *LogCollector) Logf(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	if c.t != nil {
		c.t.Logf("%s", s)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, s)
}

// Lines returns a copy of the recorded lines.
func (c *LogCollector) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

// Contains reports whether any recorded line contains substr.
func (c *LogCollector) Contains(substr string) bool {
	for _, l := range c.Lines() {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}
