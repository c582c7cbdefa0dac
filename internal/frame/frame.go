// Package frame implements the physical frame bitmap allocator and
// the bootstrap placement allocator that hands out memory before the
// bitmap (and the heap) exist.
//
// The bitmap algorithm mirrors phys_mark_page_used/free and
// phys_find_free_page_range from the bolthur kernel's generic
// mm/phys.c: a first-fit scan of 32-bit words, skipping fully-used
// words, resetting the run on a used bit or a failed alignment check.
package frame

import (
	"pikernel/internal/kerr"
)

const (
	// PageSize is the machine page size in bytes.
	PageSize = 4096
	// bitsPerWord is the number of frames tracked by one bitmap word.
	bitsPerWord = 32
)

// Number identifies a physical frame by its frame number rather than
// a raw address, per the typed-handle redesign.
type Number uint32

// Addr returns the physical address of the start of frame n.
func (n Number) Addr() uint64 { return uint64(n) * PageSize }

func frameOf(addr uint64) Number { return Number(addr / PageSize) }

func alignDown(addr uint64) uint64 { return addr &^ (PageSize - 1) }

func pageRoundUp(n uint64) uint64 { return (n + PageSize - 1) &^ (PageSize - 1) }

func wordIndex(f Number) int { return int(f) / bitsPerWord }
func bitOffset(f Number) uint { return uint(f) % bitsPerWord }

// Allocator is the global physical frame bitmap. One bit per page;
// an auxiliary check bitmap gates which used frames may legitimately
// be released, protecting reserved MMIO/video-core ranges from an
// accidental free call succeeding against the primary bitmap.
type Allocator struct {
	bitmap []uint32
	check []uint32
	totalFrames int
}

// New creates the bitmap for a machine with the given total memory in
// bytes. Per the data-model invariant, the bitmap's own storage is
// marked used immediately by the caller once it knows where the
// bitmap itself is placed (see MarkSelf). Every frame starts out
// legitimately releasable in the check bitmap; platform init carves
// out protected ranges with MarkFreeCheck.
func New(memoryBytes uint64) *Allocator {
	totalFrames := int(memoryBytes / PageSize)
	words := (totalFrames + bitsPerWord - 1) / bitsPerWord
	check := make([]uint32, words)
	for i := range check {
		check[i] = ^uint32(0)
	}
	return &Allocator{
		bitmap: make([]uint32, words),
		check: check,
		totalFrames: totalFrames,
	}
}

// MarkSelf marks the bytes occupied by the allocator's own bitmap
// storage as used; callers compute the storage footprint themselves
// since this Go implementation keeps the bitmap in the Go heap rather
// than at a fixed physical address.
func (a *Allocator) MarkSelf(addr uint64, size uint64) {
	a.MarkUsed(addr, size)
}

// MarkUsed marks every frame touching [addr, addr+size) as used.
// Address is clamped down to its page start, size rounded up,
// silently, per spec.
func (a *Allocator) MarkUsed(addr, size uint64) {
	a.walkRange(addr, size, func(f Number) { a.setBit(a.bitmap, f) })
}

// MarkFree marks every frame touching [addr, addr+size) as free in
// the primary bitmap.
func (a *Allocator) MarkFree(addr, size uint64) {
	a.walkRange(addr, size, func(f Number) { a.clearBit(a.bitmap, f) })
}

// MarkUsedCheck marks the range used in the check bitmap (legitimately
// releasable).
func (a *Allocator) MarkUsedCheck(addr, size uint64) {
	a.walkRange(addr, size, func(f Number) { a.setBit(a.check, f) })
}

// MarkFreeCheck marks the range free in the check bitmap: used
// in the primary bitmap (reserved) but NOT eligible for accidental
// release via FreePage. This is how platform init protects the GPIO
// and video-core windows, grounded on
// phys_platform_init's phys_use_page_range + phys_free_page_range_check
// pairing.
func (a *Allocator) MarkFreeCheck(addr, size uint64) {
	a.walkRange(addr, size, func(f Number) { a.clearBit(a.check, f) })
}

func (a *Allocator) walkRange(addr, size uint64, fn func(Number)) {
	start := alignDown(addr)
	end := pageRoundUp(addr + size)
	for p := start; p < end; p += PageSize {
		fn(frameOf(p))
	}
}

func (a *Allocator) setBit(bm []uint32, f Number) {
	i := wordIndex(f)
	if i < 0 || i >= len(bm) {
		return
	}
	bm[i] |= 1 << bitOffset(f)
}

func (a *Allocator) clearBit(bm []uint32, f Number) {
	i := wordIndex(f)
	if i < 0 || i >= len(bm) {
		return
	}
	bm[i] &^= 1 << bitOffset(f)
}

func (a *Allocator) testBit(bm []uint32, f Number) bool {
	i := wordIndex(f)
	if i < 0 || i >= len(bm) {
		return false
	}
	return bm[i]&(1<<bitOffset(f)) != 0
}

// IsFreeCheckOnly reports whether address overlaps the GPIO/video-core
// reserved window that must never actually be released, even though
// the primary bitmap shows it used. Callers (FreePage) consult this
// before clearing the primary bitmap bit.
//
// A frame is check-protected when its check bit is NOT set (check-bit
// set means "legitimately releasable").
func (a *Allocator) IsFreeCheckOnly(addr uint64) bool {
	f := frameOf(alignDown(addr))
	return a.testBit(a.bitmap, f) && !a.testBit(a.check, f)
}

// FindFreeRange implements the first-fit scan: round the
// request up to a page multiple, walk the bitmap word by word
// skipping fully-used words, scan bits within partly-free words,
// reset the run on a used bit or failed alignment, mark the winning
// run used, and return its start address.
func (a *Allocator) FindFreeRange(size, alignment uint64) (uint64, error) {
	if alignment == 0 {
		alignment = PageSize
	}
	pages := pageRoundUp(size) / PageSize
	if pages == 0 {
		pages = 1
	}

	var runStart Number
	var runLen uint64
	inRun := false

	for idx := 0; idx < len(a.bitmap); idx++ {
		if a.bitmap[idx] == ^uint32(0) {
			// fully used word: any in-progress run is broken.
			inRun = false
			runLen = 0
			continue
		}
		for bit := uint(0); bit < bitsPerWord; bit++ {
			f := Number(idx*bitsPerWord + int(bit))
			if int(f) >= a.totalFrames {
				break
			}
			if a.testBit(a.bitmap, f) {
				inRun = false
				runLen = 0
				continue
			}
			addr := f.Addr()
			if !inRun {
				if addr%alignment != 0 {
					continue // alignment fails; cannot start a run here
				}
				runStart = f
				runLen = 0
				inRun = true
			}
			runLen++
			if runLen == pages {
				a.markRunUsed(runStart, pages)
				return runStart.Addr(), nil
			}
		}
	}
	return 0, kerr.New(kerr.OutOfMemory, "no free range satisfies request")
}

func (a *Allocator) markRunUsed(start Number, pages uint64) {
	for i := uint64(0); i < pages; i++ {
		a.setBit(a.bitmap, Number(uint64(start)+i))
	}
}

// FindFreePage is shorthand for FindFreeRange(PageSize, alignment).
func (a *Allocator) FindFreePage(alignment uint64) (uint64, error) {
	return a.FindFreeRange(PageSize, alignment)
}

// FreePage returns addr's frame to the allocator unless it is
// check-protected (MMIO/video-core), in which case it is a silent
// no-op against the primary bitmap, matching phys_free_check_only's
// gating role.
func (a *Allocator) FreePage(addr uint64) {
	if a.IsFreeCheckOnly(addr) {
		return
	}
	f := frameOf(alignDown(addr))
	a.clearBit(a.bitmap, f)
}

// TotalFrames reports the number of frames the bitmap tracks, for
// tests asserting conservation.
func (a *Allocator) TotalFrames() int { return a.totalFrames }

// Snapshot returns a copy of the primary bitmap words, for
// before/after comparisons in conservation tests.
func (a *Allocator) Snapshot() []uint32 {
	out := make([]uint32, len(a.bitmap))
	copy(out, a.bitmap)
	return out
}
