package frame

import "pikernel/internal/kerr"

// Placement is the bootstrap bump allocator active only before the
// frame Allocator (and the heap) exist. Grounded on
// src/core/mm/placement.c: hand out memory starting from the
// physical end of the kernel image, jumping over the initrd image if
// the request would straddle it, and marking consumed bytes used in
// the bitmap once the frame allocator exists (but the heap does not).
type Placement struct {
	addr uint64
	initrdStart uint64
	initrdEnd uint64
	heapUp bool
	frames *Allocator // nil until the frame allocator exists
}

// NewPlacement starts the bump pointer at kernelEnd, the physical
// address immediately following the kernel image.
func NewPlacement(kernelEnd, initrdStart, initrdEnd uint64) *Placement {
	return &Placement{
		addr: kernelEnd,
		initrdStart: initrdStart,
		initrdEnd: initrdEnd,
	}
}

// BindFrameAllocator records that the frame allocator now exists;
// subsequent allocations mark their consumed bytes used in it.
func (p *Placement) BindFrameAllocator(a *Allocator) {
	p.frames = a
}

// MarkHeapUp records that the heap is initialized; subsequent calls
// to Alloc become a hard error.
func (p *Placement) MarkHeapUp() {
	p.heapUp = true
}

// Alloc hands out size bytes aligned to alignment, advancing the bump
// pointer and jumping over the initrd image if the request would
// straddle it.
func (p *Placement) Alloc(alignment, size uint64) (uint64, error) {
	if p.heapUp {
		return 0, kerr.New(kerr.InvalidArgument, "placement allocation after heap init")
	}
	if alignment == 0 {
		alignment = 1
	}

	address := p.addr
	offset := alignOffset(address, alignment)

	if straddlesInitrd(address, offset+size, p.initrdStart, p.initrdEnd) {
		address = p.initrdEnd
		offset = alignOffset(address, alignment)
	}

	aligned := address + offset

	if p.frames != nil {
		p.frames.MarkUsed(aligned, size)
	}
	p.addr = aligned + size
	return aligned, nil
}

func alignOffset(address, alignment uint64) uint64 {
	rem := address % alignment
	if rem == 0 {
		return 0
	}
	return alignment - rem
}

func straddlesInitrd(address, span, initrdStart, initrdEnd uint64) bool {
	if initrdStart == initrdEnd {
		return false
	}
	rangeEnd := address + span
	return address < initrdEnd && rangeEnd > initrdStart
}
