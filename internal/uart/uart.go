// Package uart implements the debug serial console the boot path and
// internal/uartlog write to. It generalizes a build-tag-selected
// uart_rpi.go/uart_qemu.go pair into two Device implementations selected
// by constructor instead of by build tag (cmd/kernel constructs the
// QEMUVirt one; internal/bootcfg does not choose between them), since the
// frozen-at-boot driver-selection idiom (see internal/vm/short and
// internal/vm/long) is how this kernel picks between hardware variants
// rather than compiling two binaries.
package uart

import "pikernel/internal/asmport"

// Device is a serial console: put one byte, get one byte (blocking),
// and report whether the receive FIFO currently has data.
type Device interface {
	Putc(c byte)
	Getc() byte
	HasData() bool
}

// Broadcom PL011-compatible register offsets, shared by both variants;
// only the base address and init sequence differ.
const (
	regDR = 0x00
	regFR = 0x18
	regIBRD = 0x24
	regFBRD = 0x28
	regLCRH = 0x2C
	regCR = 0x30
	regIMSC = 0x38
	regICR = 0x44

	frTXFull = 1 << 5
	frRXFull = 1 << 4
)

// pl011 is the common driver body both the Pi's GPIO-muxed PL011 and
// QEMU virt's bare PL011 share; they differ only in Init.
type pl011 struct {
	regs asmport.Regs
}

func (p pl011) Putc(c byte) {
	for p.regs.Read32(regFR)&frTXFull != 0 {
	}
	p.regs.Write32(regDR, uint32(c))
}

func (p pl011) Getc() byte {
	for p.regs.Read32(regFR)&frRXFull != 0 {
	}
	return byte(p.regs.Read32(regDR))
}

func (p pl011) HasData() bool {
	return p.regs.Read32(regFR)&frRXFull == 0
}

// RPi is the Raspberry Pi mini-UART/PL011 path, gated behind GPIO pin
// muxing, the usual uart_rpi.go sequence.
type RPi struct {
	pl011
	gpio asmport.Regs
}

const (
	gpioGPPUD = 0x94
	gpioGPPUDCLK0 = 0x98
)

// NewRPi brings up PL011 on pins 14/15 following the standard register
// write sequence (disable, mux, clock-latch, clear, set baud, 8n1,
// enable TX/RX).
func NewRPi(regs, gpio asmport.Regs) *RPi {
	d := &RPi{pl011: pl011{regs: regs}, gpio: gpio}
	d.init()
	return d
}

func (d *RPi) init() {
	d.regs.Write32(regCR, 0)

	d.gpio.Write32(gpioGPPUD, 0)
	spinDelay(150)
	d.gpio.Write32(gpioGPPUDCLK0, (1<<14)|(1<<15))
	spinDelay(150)
	d.gpio.Write32(gpioGPPUDCLK0, 0)

	d.regs.Write32(regICR, 0x7FF)
	d.regs.Write32(regIBRD, 1)
	d.regs.Write32(regFBRD, 40)
	d.regs.Write32(regLCRH, (1<<4)|(1<<5)|(1<<6))
	d.regs.Write32(regIMSC, (1<<1)|(1<<4)|(1<<5)|(1<<6)|(1<<7)|(1<<8)|(1<<9)|(1<<10))
	d.regs.Write32(regCR, (1<<0)|(1<<8)|(1<<9))
}

func spinDelay(cycles int) {
	for i := 0; i < cycles; i++ {
	}
}

// QEMUVirt is the PL011 instance QEMU's virt machine exposes directly,
// with no GPIO muxing step, the usual uart_qemu.go shape.
type QEMUVirt struct {
	pl011
}

// NewQEMUVirt brings up the virt machine's PL011 with a minimal
// unconditional-enable sequence; no pin muxing exists on this target.
func NewQEMUVirt(regs asmport.Regs) *QEMUVirt {
	d := &QEMUVirt{pl011{regs: regs}}
	d.regs.Write32(regCR, (1<<0)|(1<<8)|(1<<9))
	return d
}
