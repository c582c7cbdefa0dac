// Package timer implements the periodic tick source that feeds
// internal/event's Timer events, generalizing two competing timer
// backends (BCM system timer via MMIO, ARM generic timer via
// system-register linkname stubs) behind one Source interface selected
// at boot the same way internal/vm picks short vs long descriptors.
package timer

import "pikernel/internal/asmport"

// Source is a one-shot countdown timer: arm it for an interval, then
// poll Fired/Acknowledge once it raises its interrupt.
type Source interface {
	// FrequencyHz is the counter's tick rate.
	FrequencyHz() uint32
	// Arm schedules the next fire ticks ticks from now.
	Arm(ticks uint32)
	// Fired reports whether the armed deadline has passed.
	Fired() bool
	// Acknowledge clears the pending interrupt condition.
	Acknowledge()
}

// BCMSystemTimer drives the Broadcom system timer peripheral: a
// free-running 64-bit counter plus four compare registers, one of
// which (channel 1, the usual firmware convention) this driver owns
// exclusively.
type BCMSystemTimer struct {
	regs asmport.Regs
	channel uint32
	freq uint32
}

const (
	bcmRegCLO = 0x04
	bcmRegCHI = 0x08
	bcmRegC1 = 0x0C + 4 // compare register for channel 1 (C0 is at 0x0C)
	bcmRegCS = 0x00

	bcmDefaultFreqHz = 1_000_000 // 1MHz free-running counter
)

// NewBCMSystemTimer wraps regs as the BCM system timer, using compare
// channel 1.
func NewBCMSystemTimer(regs asmport.Regs) *BCMSystemTimer {
	return &BCMSystemTimer{regs: regs, channel: 1, freq: bcmDefaultFreqHz}
}

func (t *BCMSystemTimer) FrequencyHz() uint32 { return t.freq }

func (t *BCMSystemTimer) Arm(ticks uint32) {
	now := t.regs.Read32(bcmRegCLO)
	t.regs.Write32(bcmRegC1, now+ticks)
}

func (t *BCMSystemTimer) Fired() bool {
	return t.regs.Read32(bcmRegCS)&(1<<t.channel) != 0
}

func (t *BCMSystemTimer) Acknowledge() {
	t.regs.Write32(bcmRegCS, 1<<t.channel)
}

// ARMGenericTimer drives the per-core ARM generic virtual timer
// (CNTV_*), presented here as a register window rather than
// go:linkname system-register accessors, so it can share
// asmport.Regs's testable-fake discipline. Offsets are a software
// convention for this model: TVAL at 0, CTL at 4.
type ARMGenericTimer struct {
	regs asmport.Regs
	freq uint32
}

const (
	armRegTVAL = 0x00
	armRegCTL = 0x04

	ctlEnable = 1 << 0
	ctlIMask = 1 << 1
	ctlIStatus = 1 << 2
)

// NewARMGenericTimer wraps regs as the ARM generic virtual timer
// running at freqHz (62.5MHz on QEMU virt by default).
func NewARMGenericTimer(regs asmport.Regs, freqHz uint32) *ARMGenericTimer {
	return &ARMGenericTimer{regs: regs, freq: freqHz}
}

func (t *ARMGenericTimer) FrequencyHz() uint32 { return t.freq }

func (t *ARMGenericTimer) Arm(ticks uint32) {
	t.regs.Write32(armRegTVAL, ticks)
	t.regs.Write32(armRegCTL, ctlEnable)
}

func (t *ARMGenericTimer) Fired() bool {
	return t.regs.Read32(armRegCTL)&ctlIStatus != 0
}

func (t *ARMGenericTimer) Acknowledge() {
	t.regs.Write32(armRegCTL, ctlEnable|ctlIMask)
}
