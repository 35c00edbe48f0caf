package config

import (
	"strings"
	"testing"
)

func TestExitfReportsAndExitsNonZero(t *testing.T) {
	var out strings.Builder
	var codes []int
	prevOut, prevExit := stderr, exit
	stderr, exit = &out, func(code int) { codes = append(codes, code) }
	t.Cleanup(func() { stderr, exit = prevOut, prevExit })

	Exitf("Error: scenario %q not found", "ridge.yaml")

	if got := out.String(); got != "Error: scenario \"ridge.yaml\" not found\n" {
		t.Fatalf("stderr = %q", got)
	}
	if len(codes) != 1 || codes[0] != 1 {
		t.Fatalf("exit codes = %v, want [1]", codes)
	}
}
