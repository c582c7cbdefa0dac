// Package intc implements interrupt acquisition/release and pending-
// IRQ query over a generic interrupt controller, generalizing a QEMU
// virt GICv2 driver (gic_qemu.go) behind a register window so a
// Raspberry Pi variant can be added without touching callers.
// Ownership (acquire/release, RPC-bound requirement) is a policy
// layer a bare GIC driver does not itself have, modeled the same way
// internal/shm layers ownership over internal/frame.
package intc

import (
	"pikernel/internal/asmport"
	"pikernel/internal/kerr"
)

// IRQ identifies one interrupt line.
type IRQ uint32

// PID mirrors the caller's process identifier type without importing
// internal/proc.
type PID uint32

const (
	regDistCtl = 0x000
	regCPUCtl = 0x000 + 0x10000
	regPriorityMask = 0x004 + 0x10000
	regEnableSetBase = 0x100
	regEnableClrBase = 0x180
	regAck = 0x00C + 0x10000
	regEOI = 0x010 + 0x10000
)

// GIC is a GICv2-shaped distributor+CPU-interface register window,
// matching a gic_qemu.go-style layout.
type GIC struct {
	regs asmport.Regs
}

// NewGIC brings up the distributor and CPU interface following the
// usual disable/configure/enable sequence.
func NewGIC(regs asmport.Regs) *GIC {
	g := &GIC{regs: regs}
	g.regs.Write32(regDistCtl, 0)
	g.regs.Write32(regCPUCtl, 0)
	g.regs.Write32(regPriorityMask, 0xFF)
	g.regs.Write32(regDistCtl, 1)
	g.regs.Write32(regCPUCtl, 1)
	return g
}

func (g *GIC) enable(irq IRQ) {
	word := regEnableSetBase + 4*(uint32(irq)/32)
	g.regs.Write32(uintptr(word), 1<<(uint32(irq)%32))
}

func (g *GIC) disable(irq IRQ) {
	word := regEnableClrBase + 4*(uint32(irq)/32)
	g.regs.Write32(uintptr(word), 1<<(uint32(irq)%32))
}

// Acknowledge reads the highest-priority pending interrupt's id.
func (g *GIC) Acknowledge() IRQ {
	return IRQ(g.regs.Read32(regAck))
}

// EndOfInterrupt signals completion of handling irq.
func (g *GIC) EndOfInterrupt(irq IRQ) {
	g.regs.Write32(regEOI, uint32(irq))
}

// Controller layers acquisition ownership (one owner per IRQ, RPC
// handler required per the NotPermitted rule) over a GIC.
type Controller struct {
	gic *GIC
	owner map[IRQ]PID
	pending map[IRQ]bool
}

// NewController wraps gic with acquire/release bookkeeping.
func NewController(gic *GIC) *Controller {
	return &Controller{gic: gic, owner: make(map[IRQ]PID), pending: make(map[IRQ]bool)}
}

// Acquire binds irq to pid, requiring the caller to already have an
// RPC handler registered (hasRPCHandler), and enables the line at the
// controller.
func (c *Controller) Acquire(pid PID, irq IRQ, hasRPCHandler bool) error {
	if !hasRPCHandler {
		return kerr.New(kerr.NotPermitted, "interrupt acquire requires a bound RPC handler")
	}
	if owner, taken := c.owner[irq]; taken && owner != pid {
		return kerr.New(kerr.AlreadyExists, "interrupt already acquired")
	}
	c.owner[irq] = pid
	c.gic.enable(irq)
	return nil
}

// Release relinquishes pid's ownership of irq and disables the line.
func (c *Controller) Release(pid PID, irq IRQ) error {
	owner, ok := c.owner[irq]
	if !ok || owner != pid {
		return kerr.New(kerr.NotPermitted, "interrupt not owned by caller")
	}
	delete(c.owner, irq)
	delete(c.pending, irq)
	c.gic.disable(irq)
	return nil
}

// Raise marks irq pending, as the exception vector would upon
// acknowledging it from hardware.
func (c *Controller) Raise(irq IRQ) {
	c.pending[irq] = true
}

// Pending reports and clears whether irq is pending for its owner.
func (c *Controller) Pending(irq IRQ) bool {
	p := c.pending[irq]
	c.pending[irq] = false
	return p
}

// Owner reports the current owner of irq, if acquired.
func (c *Controller) Owner(irq IRQ) (PID, bool) {
	p, ok := c.owner[irq]
	return p, ok
}

// ReleaseAll drops every acquisition pid holds, for process-Kill
// cleanup.
func (c *Controller) ReleaseAll(pid PID) {
	for irq, owner := range c.owner {
		if owner == pid {
			delete(c.owner, irq)
			delete(c.pending, irq)
			c.gic.disable(irq)
		}
	}
}
