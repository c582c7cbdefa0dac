package frame

import (
	"testing"

	"pikernel/internal/kerr"
)

func TestFindFreePageThenFreeConserves(t *testing.T) {
	a := New(16 * PageSize)
	before := a.Snapshot()

	addr, err := a.FindFreePage(0)
	if err != nil {
		t.Fatalf("FindFreePage: %v", err)
	}
	a.FreePage(addr)

	after := a.Snapshot()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("bitmap not conserved at word %d: before=%#x after=%#x", i, before[i], after[i])
		}
	}
}

func TestFindFreeRangeFirstFit(t *testing.T) {
	a := New(16 * PageSize)

	first, err := a.FindFreeRange(PageSize, 0)
	if err != nil {
		t.Fatalf("first alloc: %v", err)
	}
	second, err := a.FindFreeRange(PageSize, 0)
	if err != nil {
		t.Fatalf("second alloc: %v", err)
	}
	if second <= first {
		t.Fatalf("expected monotonically increasing first-fit addresses, got %#x then %#x", first, second)
	}
}

func TestFindFreeRangeAlignment(t *testing.T) {
	a := New(64 * PageSize)
	// consume one page so the next free page starts misaligned for a
	// 2-page (8KiB) alignment request unless the allocator skips it.
	if _, err := a.FindFreeRange(PageSize, 0); err != nil {
		t.Fatalf("prime alloc: %v", err)
	}
	addr, err := a.FindFreeRange(PageSize, 2*PageSize)
	if err != nil {
		t.Fatalf("aligned alloc: %v", err)
	}
	if addr%(2*PageSize) != 0 {
		t.Fatalf("address %#x not aligned to %#x", addr, 2*PageSize)
	}
}

func TestFindFreeRangeOutOfMemory(t *testing.T) {
	a := New(2 * PageSize)
	if _, err := a.FindFreeRange(2*PageSize, 0); err != nil {
		t.Fatalf("unexpected failure filling memory: %v", err)
	}
	_, err := a.FindFreePage(0)
	if !kerr.Is(err, kerr.OutOfMemory) {
		t.Fatalf("expected OutOfMemory, got %v", err)
	}
}

func TestCheckBitmapProtectsReservedRange(t *testing.T) {
	a := New(64 * PageSize)
	const mmioStart = 32 * PageSize
	const mmioSize = 4 * PageSize

	a.MarkUsed(mmioStart, mmioSize)
	a.MarkFreeCheck(mmioStart, mmioSize)

	if !a.IsFreeCheckOnly(mmioStart) {
		t.Fatalf("expected mmio range to be check-protected")
	}

	before := a.Snapshot()
	a.FreePage(mmioStart)
	after := a.Snapshot()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("FreePage must not touch check-protected bitmap bits")
		}
	}
}

func TestMarkUsedClampsToPageStart(t *testing.T) {
	a := New(16 * PageSize)
	a.MarkUsed(PageSize+10, 1)
	if !a.testBit(a.bitmap, frameOf(PageSize)) {
		t.Fatalf("expected frame containing unaligned address to be marked used")
	}
}

func TestPlacementAllocAdvancesAndSkipsInitrd(t *testing.T) {
	const kernelEnd = 0x8000
	const initrdStart = 0x9000
	const initrdEnd = 0xA000
	p := NewPlacement(kernelEnd, initrdStart, initrdEnd)

	addr, err := p.Alloc(0x1000, 0x2000)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if addr < initrdEnd {
		t.Fatalf("expected allocation to jump past initrd, got %#x", addr)
	}
	if addr%0x1000 != 0 {
		t.Fatalf("expected aligned address, got %#x", addr)
	}
}

func TestPlacementMarksBitmapOnceFrameAllocatorExists(t *testing.T) {
	a := New(256 * PageSize)
	p := NewPlacement(0, 0, 0)
	p.BindFrameAllocator(a)

	addr, err := p.Alloc(PageSize, PageSize)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if !a.testBit(a.bitmap, frameOf(addr)) {
		t.Fatalf("expected placement allocation to mark the frame used")
	}
}

func TestPlacementHardErrorAfterHeapInit(t *testing.T) {
	p := NewPlacement(0, 0, 0)
	p.MarkHeapUp()
	if _, err := p.Alloc(8, 8); !kerr.Is(err, kerr.InvalidArgument) {
		t.Fatalf("expected InvalidArgument after heap init, got %v", err)
	}
}
