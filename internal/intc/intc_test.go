package intc

import (
	"testing"

	"pikernel/internal/asmport"
)

func newTestController() *Controller {
	regs := asmport.NewMemRegs(0x10100)
	return NewController(NewGIC(regs))
}

func TestAcquireRequiresRPCHandler(t *testing.T) {
	c := newTestController()
	if err := c.Acquire(1, 27, false); err == nil {
		t.Fatalf("expected NotPermitted without an RPC handler")
	}
}

func TestAcquireThenReleaseRoundTrip(t *testing.T) {
	c := newTestController()
	if err := c.Acquire(1, 27, true); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if owner, ok := c.Owner(27); !ok || owner != 1 {
		t.Fatalf("expected owner 1, got %v, %v", owner, ok)
	}
	if err := c.Release(1, 27); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, ok := c.Owner(27); ok {
		t.Fatalf("expected no owner after release")
	}
}

func TestAcquireByAnotherProcessRejected(t *testing.T) {
	c := newTestController()
	c.Acquire(1, 27, true)
	if err := c.Acquire(2, 27, true); err == nil {
		t.Fatalf("expected AlreadyExists for second owner")
	}
}

func TestRaiseThenPendingClears(t *testing.T) {
	c := newTestController()
	c.Acquire(1, 27, true)
	c.Raise(27)
	if !c.Pending(27) {
		t.Fatalf("expected pending true")
	}
	if c.Pending(27) {
		t.Fatalf("expected pending cleared after first read")
	}
}

func TestReleaseAllOnProcessCleanup(t *testing.T) {
	c := newTestController()
	c.Acquire(1, 27, true)
	c.Acquire(1, 30, true)
	c.ReleaseAll(1)

	if _, ok := c.Owner(27); ok {
		t.Fatalf("expected 27 released")
	}
	if _, ok := c.Owner(30); ok {
		t.Fatalf("expected 30 released")
	}
}
