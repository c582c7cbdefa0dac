package uart

import (
	"testing"

	"pikernel/internal/asmport"
)

func TestRPiPutcWritesDataRegister(t *testing.T) {
	regs := asmport.NewMemRegs(32)
	gpio := asmport.NewMemRegs(64)
	d := NewRPi(regs, gpio)

	d.Putc('K')
	if got := regs.Read32(regDR); got != uint32('K') {
		t.Fatalf("DR = %d, want %d", got, 'K')
	}
}

func TestQEMUVirtEnablesUARTOnInit(t *testing.T) {
	regs := asmport.NewMemRegs(32)
	NewQEMUVirt(regs)
	if got := regs.Read32(regCR); got&1 == 0 {
		t.Fatalf("CR enable bit not set: %#x", got)
	}
}

func TestHasDataReflectsReceiveFIFO(t *testing.T) {
	regs := asmport.NewMemRegs(32)
	d := NewQEMUVirt(regs)

	regs.Write32(regFR, frRXFull)
	if d.HasData() {
		t.Fatalf("expected HasData false when RX FIFO empty flag set")
	}
	regs.Write32(regFR, 0)
	if !d.HasData() {
		t.Fatalf("expected HasData true when RX FIFO empty flag clear")
	}
}
