// Package vm implements an architecture-neutral virtual-memory engine
// façade: a single public contract over two frozen-at-boot
// descriptor-format drivers (Short, Long), per-context page tables, a
// kernel-side temporary mapping window, and TLB/barrier discipline
// around every mutation.
//
// Because this is a hosted Go model rather than code that walks real
// ARM translation tables, the "table" a Context owns is a software
// map keyed by virtual address; the descriptor drivers in
// internal/vm/short and internal/vm/long still do real bit-packing
// work (via internal/bitfield) so the memory-type/page-type/
// permission matrix is fully exercised, and internal/asmport's
// barrier/TLB-invalidate calls are issued at every required point.
package vm

import (
	"sync"

	"pikernel/internal/asmport"
	"pikernel/internal/frame"
	"pikernel/internal/kerr"
	"pikernel/internal/vm/long"
	"pikernel/internal/vm/short"
	"pikernel/internal/vm/ptefmt"
)

// Re-exported vocabulary so callers only need to import internal/vm.
type (
	MemType = ptefmt.MemType
	PageType = ptefmt.PageType
	Perm = ptefmt.Perm
)

const (
	Device = ptefmt.Device
	DeviceStrong = ptefmt.DeviceStrong
	Normal = ptefmt.Normal
	NormalNoCache = ptefmt.NormalNoCache

	Auto = ptefmt.Auto
	Executable = ptefmt.Executable
	NonExecutable = ptefmt.NonExecutable

	Read = ptefmt.Read
	Write = ptefmt.Write
	Execute = ptefmt.Execute
)

// ContextType distinguishes the single shared kernel context from
// per-process user contexts.
type ContextType int

const (
	Kernel ContextType = iota
	User
)

// ContextState implements the lifecycle names:
// Created → Populated → Active (while installed) → Destroyed.
type ContextState int

const (
	StateCreated ContextState = iota
	StatePopulated
	StateActive
	StateDestroyed
)

// Handle is the typed handle redesign for contexts: an arena index,
// never a pointer, per DESIGN NOTES.
type Handle uint32

const invalidHandle Handle = 0

// Default ARM split: kernel owns the high half of the 32-bit virtual
// address space, user owns the low half.
const (
	UserLimit uint64 = 0x80000000
	KernelBase uint64 = 0x80000000

	// TempWindowBase is a fixed kernel-side scratch range used while
	// constructing page tables temporary window.
	TempWindowBase uint64 = 0xF0000000
	TempWindowSize uint64 = 0x01000000 // 16 MiB
)

// entry is one software PTE: the architecture-neutral attribute tuple
// plus the encoded descriptor word the selected driver produced for
// it (kept so tests/diagnostics can assert the encoding round-trips).
type entry struct {
	attr ptefmt.Attr
	encoded uint64
}

// Context is one address-space context: a root "table" (modeled as a
// software map instead of a walked physical tree, see package doc),
// its type, and its lifecycle state.
type Context struct {
	handle Handle
	ctype ContextType
	state ContextState
	entries map[uint64]entry
	tableFrames []frame.Number // page-table frames charged to this context
	rootFrame frame.Number
}

// Engine is the façade: it owns the frame allocator, the frozen
// descriptor driver, the context arena, and the temporary window bump
// pointer.
type Engine struct {
	mu sync.Mutex
	driver ptefmt.Driver
	frames *frame.Allocator
	contexts map[Handle]*Context
	nextHandle Handle
	kernel Handle
	active Handle
	tempBump uint64
	faultData uint64
	faultPrefetch uint64
}

// ShortVsLong implements the boot-time driver-selection rule from
// virt_startup_setup_supported_modes: use Long (LPAE) iff the CPU
// advertises LPAE paging support AND its physical address bus is at
// least 36 bits wide; otherwise Short. Exposed as a pure function of
// two booleans (rather than reading CP15 registers directly) so the
// decision is host-testable, per the register-access
// interface convention.
func ShortVsLong(lpaeAdvertised, physBusAtLeast36Bits bool) string {
	if lpaeAdvertised && physBusAtLeast36Bits {
		return "long"
	}
	return "short"
}

// New creates the engine, selecting and freezing the descriptor
// driver for the lifetime of the kernel.
func New(frames *frame.Allocator, lpaeAdvertised, physBusAtLeast36Bits bool) (*Engine, error) {
	var driver ptefmt.Driver
	if ShortVsLong(lpaeAdvertised, physBusAtLeast36Bits) == "long" {
		driver = long.New()
	} else {
		driver = short.New()
	}
	e := &Engine{
		driver: driver,
		frames: frames,
		contexts: make(map[Handle]*Context),
		nextHandle: 1,
		tempBump: TempWindowBase,
	}
	kh, err := e.CreateContext(Kernel)
	if err != nil {
		return nil, err
	}
	e.kernel = kh
	return e, nil
}

// Driver reports the frozen descriptor-format driver's name.
func (e *Engine) Driver() string { return e.driver.Name() }

func (e *Engine) allocHandle() Handle {
	h := e.nextHandle
	e.nextHandle++
	return h
}

// CreateContext allocates a fresh root table (zeroed) and, for User
// contexts, links in the kernel's upper-half mappings by reference:
// the kernel portion of every user context mirrors the single kernel
// context.
func (e *Engine) CreateContext(ctype ContextType) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rootAddr, err := e.frames.FindFreePage(e.driver.RootTableAlign())
	if err != nil {
		return invalidHandle, err
	}
	ctx := &Context{
		ctype: ctype,
		state: StateCreated,
		entries: make(map[uint64]entry),
	}
	ctx.rootFrame = frame.Number(rootAddr / frame.PageSize)
	ctx.tableFrames = append(ctx.tableFrames, ctx.rootFrame)
	ctx.handle = e.allocHandle()

	if ctype == User && e.kernel != invalidHandle {
		kernelCtx := e.contexts[e.kernel]
		for va, ent := range kernelCtx.entries {
			ctx.entries[va] = ent // shared upper half, by value copy of the PTE, not the frame
		}
	}

	e.contexts[ctx.handle] = ctx
	return ctx.handle, nil
}

func (e *Engine) get(h Handle) (*Context, error) {
	ctx, ok := e.contexts[h]
	if !ok || ctx.state == StateDestroyed {
		return nil, kerr.New(kerr.NotFound, "no such address-space context")
	}
	return ctx, nil
}

func pageAligned(addr uint64) bool { return addr%frame.PageSize == 0 }

func (e *Engine) userFlag(ctx *Context, virt uint64) bool {
	return ctx.ctype == User && virt < UserLimit
}

// Map installs a fixed virtual-to-physical mapping.
func (e *Engine) Map(h Handle, virt, phys uint64, memType MemType, pageType PageType, perm Perm) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ctx, err := e.get(h)
	if err != nil {
		return err
	}
	if !pageAligned(virt) || !pageAligned(phys) {
		panic("vm: misaligned address passed to Map")
	}
	if _, exists := ctx.entries[virt]; exists {
		return kerr.New(kerr.AlreadyMapped, "virtual address already mapped")
	}
	e.install(ctx, virt, frame.Number(phys/frame.PageSize), memType, pageType, perm)
	return nil
}

// MapRandom maps virt to a freshly allocated frame.
func (e *Engine) MapRandom(h Handle, virt uint64, memType MemType, pageType PageType, perm Perm) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ctx, err := e.get(h)
	if err != nil {
		return err
	}
	if !pageAligned(virt) {
		panic("vm: misaligned address passed to MapRandom")
	}
	if _, exists := ctx.entries[virt]; exists {
		return kerr.New(kerr.AlreadyMapped, "virtual address already mapped")
	}
	phys, err := e.frames.FindFreePage(0)
	if err != nil {
		return err
	}
	e.install(ctx, virt, frame.Number(phys/frame.PageSize), memType, pageType, perm)
	return nil
}

// MapRangeRandom maps len bytes starting at virt, each to a freshly
// allocated frame, transactionally: all pages succeed or none do.
func (e *Engine) MapRangeRandom(h Handle, virt, length uint64, memType MemType, pageType PageType, perm Perm) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ctx, err := e.get(h)
	if err != nil {
		return err
	}
	if !pageAligned(virt) {
		panic("vm: misaligned address passed to MapRangeRandom")
	}
	pages := (length + frame.PageSize - 1) / frame.PageSize

	type alloc struct {
		virt uint64
		phys uint64
	}
	allocs := make([]alloc, 0, pages)

	rollback := func() {
		for _, a := range allocs {
			delete(ctx.entries, a.virt)
			e.frames.FreePage(a.phys)
		}
	}

	for i := uint64(0); i < pages; i++ {
		v := virt + i*frame.PageSize
		if _, exists := ctx.entries[v]; exists {
			rollback()
			return kerr.New(kerr.AlreadyMapped, "virtual address already mapped")
		}
		phys, err := e.frames.FindFreePage(0)
		if err != nil {
			rollback()
			return err
		}
		allocs = append(allocs, alloc{virt: v, phys: phys})
	}

	for _, a := range allocs {
		e.install(ctx, a.virt, frame.Number(a.phys/frame.PageSize), memType, pageType, perm)
	}
	return nil
}

func (e *Engine) install(ctx *Context, virt uint64, fr frame.Number, memType MemType, pageType PageType, perm Perm) {
	attr := ptefmt.Attr{
		Frame: fr,
		MemType: memType,
		PageType: pageType,
		Perm: perm,
		User: e.userFlag(ctx, virt),
	}
	encoded := e.driver.Encode(attr)
	ctx.entries[virt] = entry{attr: attr, encoded: encoded}
	if ctx.state == StateCreated {
		ctx.state = StatePopulated
	}

	asmport.Dsb()
	if ctx.handle == e.active {
		asmport.InvalidateTLBEntry(virt)
	}
}

// Unmap removes the mapping at virt; a never-mapped address is a
// success no-op failure semantics.
func (e *Engine) Unmap(h Handle, virt uint64, releasePhysical bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ctx, err := e.get(h)
	if err != nil {
		return err
	}
	ent, exists := ctx.entries[virt]
	if !exists {
		return nil
	}
	delete(ctx.entries, virt)
	if releasePhysical {
		e.frames.FreePage(ent.attr.Frame.Addr())
	}
	asmport.Dsb()
	if ctx.handle == e.active {
		asmport.InvalidateTLBEntry(virt)
	}
	return nil
}

// UnmapRange unmaps every mapped page in [virt, virt+length); unmapped
// pages within the range are skipped.
func (e *Engine) UnmapRange(h Handle, virt, length uint64, release bool) error {
	pages := (length + frame.PageSize - 1) / frame.PageSize
	for i := uint64(0); i < pages; i++ {
		if err := e.Unmap(h, virt+i*frame.PageSize, release); err != nil {
			return err
		}
	}
	return nil
}

// MapTemporary returns a kernel-side virtual window aliasing phys,
// valid until the matching UnmapTemporary. The window is a simple
// bump allocator reset at SetContext
func (e *Engine) MapTemporary(phys, length uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pages := (length + frame.PageSize - 1) / frame.PageSize
	span := pages * frame.PageSize
	if e.tempBump+span > TempWindowBase+TempWindowSize {
		return 0, kerr.New(kerr.OutOfMemory, "temporary mapping window exhausted")
	}
	virt := e.tempBump
	e.tempBump += span

	kernelCtx := e.contexts[e.kernel]
	for i := uint64(0); i < pages; i++ {
		v := virt + i*frame.PageSize
		p := frame.Number((phys + i*frame.PageSize) / frame.PageSize)
		e.install(kernelCtx, v, p, Normal, NonExecutable, Read|Write)
	}
	return virt, nil
}

// UnmapTemporary releases a window returned by MapTemporary. Ordering
// is not enforced (no LIFO requirement), per spec.
func (e *Engine) UnmapTemporary(virt uint64) error {
	e.mu.Lock()
	kernelCtx := e.contexts[e.kernel]
	e.mu.Unlock()
	for v := range kernelCtx.entries {
		if v == virt {
			return e.Unmap(e.kernel, v, false)
		}
	}
	return nil
}

// FindFreeRange returns a page-aligned virtual address in ctx's user
// range whose len following bytes are unmapped, honoring hint if
// feasible, 0 if nothing fits.
func (e *Engine) FindFreeRange(h Handle, length, hint uint64) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	ctx, err := e.get(h)
	if err != nil {
		return 0
	}
	pages := (length + frame.PageSize - 1) / frame.PageSize

	tryFrom := func(start uint64) uint64 {
		run := uint64(0)
		runStart := start
		for v := start; v < UserLimit; v += frame.PageSize {
			if _, used := ctx.entries[v]; used {
				run = 0
				runStart = v + frame.PageSize
				continue
			}
			if run == 0 {
				runStart = v
			}
			run++
			if run == pages {
				return runStart
			}
		}
		return 0
	}

	if hint != 0 && pageAligned(hint) && hint < UserLimit {
		if addr := tryFrom(hint); addr != 0 {
			return addr
		}
	}
	return tryFrom(frame.PageSize)
}

// IsMapped is a pure query.
func (e *Engine) IsMapped(h Handle, virt uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ctx, err := e.get(h)
	if err != nil {
		return false
	}
	_, ok := ctx.entries[virt]
	return ok
}

// IsMappedRange is true iff every page in the range is mapped.
func (e *Engine) IsMappedRange(h Handle, virt, length uint64) bool {
	pages := (length + frame.PageSize - 1) / frame.PageSize
	for i := uint64(0); i < pages; i++ {
		if !e.IsMapped(h, virt+i*frame.PageSize) {
			return false
		}
	}
	return true
}

// SetContext installs ctx as the active address space and issues a
// complete TLB flush
func (e *Engine) SetContext(h Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ctx, err := e.get(h)
	if err != nil {
		return err
	}
	if ctx.state == StateDestroyed {
		panic("vm: attempted to install a destroyed context")
	}
	if prev, ok := e.contexts[e.active]; ok && prev.state == StateActive {
		prev.state = StatePopulated
	}
	ctx.state = StateActive
	e.active = h
	e.tempBump = TempWindowBase
	asmport.Dsb()
	asmport.InvalidateTLBAll()
	return nil
}

// ForkContext returns a new context that initially behaves
// identically to src for reads. DESIGN.md records the choice of eager
// copy over copy-on-write for this implementation.
func (e *Engine) ForkContext(src Handle) (Handle, error) {
	e.mu.Lock()
	srcCtx, err := e.get(src)
	if err != nil {
		e.mu.Unlock()
		return invalidHandle, err
	}
	e.mu.Unlock()

	dst, err := e.CreateContext(srcCtx.ctype)
	if err != nil {
		return invalidHandle, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	dstCtx := e.contexts[dst]

	for virt, ent := range srcCtx.entries {
		if !e.userFlag(srcCtx, virt) && srcCtx.ctype == User {
			// shared kernel-half entry, already copied by CreateContext
			continue
		}
		newPhys, err := e.frames.FindFreePage(0)
		if err != nil {
			return invalidHandle, err
		}
		newAttr := ent.attr
		newAttr.Frame = frame.Number(newPhys / frame.PageSize)
		dstCtx.entries[virt] = entry{attr: newAttr, encoded: e.driver.Encode(newAttr)}
		// newAttr.Frame is a data frame, already tracked via entries
		// and released (or not) by DestroyContext's releaseFrames
		// branch; tableFrames holds only the root table frame
		// CreateContext charged above.
	}
	if dstCtx.state == StateCreated && len(dstCtx.entries) > 0 {
		dstCtx.state = StatePopulated
	}

	asmport.Dsb()
	asmport.InvalidateTLBAll()
	return dst, nil
}

// DestroyContext walks every mapped page; if releaseFrames, returns
// each data frame to the allocator; always returns page-table frames.
func (e *Engine) DestroyContext(h Handle, releaseFrames bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ctx, err := e.get(h)
	if err != nil {
		return err
	}
	if releaseFrames {
		for virt, ent := range ctx.entries {
			if e.userFlag(ctx, virt) || ctx.ctype == Kernel {
				e.frames.FreePage(ent.attr.Frame.Addr())
			}
		}
	}
	for _, tf := range ctx.tableFrames {
		e.frames.FreePage(tf.Addr())
	}
	ctx.entries = nil
	ctx.state = StateDestroyed
	if e.active == h {
		e.active = invalidHandle
	}
	return nil
}

// FaultAddressData reports the architecture register holding the
// faulting address for a data-abort exception. Exception-vector code
// (outside this package, which has no real CPU to trap on) calls
// SetFaultAddressData when it observes one.
func (e *Engine) FaultAddressData() uint64 { return e.faultData }

// FaultAddressPrefetch is FaultAddressData's prefetch-abort analogue.
func (e *Engine) FaultAddressPrefetch() uint64 { return e.faultPrefetch }

// SetFaultAddressData records a data-abort faulting address for later
// retrieval via FaultAddressData.
func (e *Engine) SetFaultAddressData(addr uint64) { e.faultData = addr }

// SetFaultAddressPrefetch records a prefetch-abort faulting address.
func (e *Engine) SetFaultAddressPrefetch(addr uint64) { e.faultPrefetch = addr }
