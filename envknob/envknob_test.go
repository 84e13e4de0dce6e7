// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package envknob

import (
	"fmt"
	"strings"
	"testing"
)

func TestRegisterBool(t *testing.T) {
	const name = "RWCELL_TEST_KNOB_BOOL"
	t.Setenv(name, "")
	get := RegisterBool(name)
	if get() {
		t.Fatal("unset knob reported true")
	}
	Setenv(name, "1")
	if !get() {
		t.Fatal("knob not updated by Setenv")
	}

	var lines []string
	LogCurrent(func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	})
	if got := strings.Join(lines, "\n"); !strings.Contains(got, name+`="true"`) {
		t.Errorf("LogCurrent output %q does not mention %s", got, name)
	}
	Setenv(name, "")
}

func TestRegisterString(t *testing.T) {
	const name = "RWCELL_TEST_KNOB_STRING"
	t.Setenv(name, "a")
	get := RegisterString(name)
	if got := get(); got != "a" {
		t.Fatalf("got %q, want %q", got, "a")
	}
	Setenv(name, "b")
	if got := get(); got != "b" {
		t.Fatalf("got %q, want %q", got, "b")
	}
	Setenv(name, "")
}
