package uartlog

import (
	"strings"
	"testing"
)

type captureDevice struct {
	out strings.Builder
}

func (c *captureDevice) Putc(b byte)   { c.out.WriteByte(b) }
func (c *captureDevice) Getc() byte    { return 0 }
func (c *captureDevice) HasData() bool { return false }

func TestDebugMessagesDroppedBelowVerbosity(t *testing.T) {
	dev := &captureDevice{}
	l := New(dev, LevelInfo)
	l.Debugf("should not appear %d", 1)
	if dev.out.Len() != 0 {
		t.Fatalf("expected debug message to be suppressed, got %q", dev.out.String())
	}
}

func TestInfoMessageWrittenAtInfoVerbosity(t *testing.T) {
	dev := &captureDevice{}
	l := New(dev, LevelInfo)
	l.Infof("booted with %d MB", 128)
	if !strings.Contains(dev.out.String(), "booted with 128 MB") {
		t.Fatalf("got %q", dev.out.String())
	}
}

func TestErrorAlwaysWrittenRegardlessOfVerbosity(t *testing.T) {
	dev := &captureDevice{}
	l := New(dev, LevelError)
	l.Errorf("fatal: %s", "oom")
	if !strings.Contains(dev.out.String(), "ERROR: fatal: oom") {
		t.Fatalf("got %q", dev.out.String())
	}
}
