package kpanic

import (
	"strings"
	"testing"
)

type captureHalter struct {
	out     strings.Builder
	halted  bool
}

func (c *captureHalter) Putc(b byte) { c.out.WriteByte(b) }

func TestFatalWritesMessageThenHalts(t *testing.T) {
	orig := haltFunc
	defer func() { haltFunc = orig }()

	dev := &captureHalter{}
	haltFunc = func() { dev.halted = true }

	Fatal(dev, "out of memory: %d frames", 0)

	if !strings.Contains(dev.out.String(), "FATAL: out of memory: 0 frames") {
		t.Fatalf("got %q", dev.out.String())
	}
	if !dev.halted {
		t.Fatalf("expected halt to be invoked")
	}
}
