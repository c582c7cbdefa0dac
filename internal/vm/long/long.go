// Package long implements the ARM long-descriptor (LPAE, 64-bit
// entry) translation-table format driver. Selected when the CPU
// advertises LPAE support AND a physical address bus of at least 36
// bits, per virt_startup_setup_supported_modes in the original
// kernel's arch/arm/mm/virt.c.
package long

import (
	"pikernel/internal/bitfield"
	"pikernel/internal/frame"
	"pikernel/internal/vm/ptefmt"
)

// descriptor mirrors a long-format (LPAE) leaf descriptor's attribute
// bits. Wider frame field than short to reach the larger physical
// address space LPAE supports; exact layout is a non-goal, this one
// keeps the same access-control/cacheability/execute matrix.
type descriptor struct {
	Present  bool   `bitfield:",1"`
	MemType  uint64 `bitfield:",2"`
	PageType uint64 `bitfield:",2"`
	Read     bool   `bitfield:",1"`
	Write    bool   `bitfield:",1"`
	Execute  bool   `bitfield:",1"`
	User     bool   `bitfield:",1"`
	Frame    uint64 `bitfield:",36"`
}

// Driver implements ptefmt.Driver for the long (LPAE) format.
type Driver struct{}

func New() *Driver { return &Driver{} }

func (d *Driver) Name() string { return "long" }

func (d *Driver) Encode(attr ptefmt.Attr) uint64 {
	resolved := attr.ResolvedPageType()
	perm := attr.Perm.Normalize()
	desc := descriptor{
		Present:  true,
		MemType:  uint64(attr.MemType),
		PageType: uint64(resolved),
		Read:     perm&ptefmt.Read != 0,
		Write:    perm&ptefmt.Write != 0,
		Execute:  perm&ptefmt.Execute != 0 && resolved != ptefmt.NonExecutable,
		User:     attr.User,
		Frame:    uint64(attr.Frame),
	}
	packed, err := bitfield.Pack(desc, &bitfield.Config{NumBits: 64})
	if err != nil {
		panic(err)
	}
	return packed
}

func (d *Driver) Decode(word uint64) ptefmt.Attr {
	var desc descriptor
	if err := bitfield.Unpack(word, &desc); err != nil {
		panic(err)
	}
	var perm ptefmt.Perm
	if desc.Read {
		perm |= ptefmt.Read
	}
	if desc.Write {
		perm |= ptefmt.Write
	}
	if desc.Execute {
		perm |= ptefmt.Execute
	}
	return ptefmt.Attr{
		Frame:    frame.Number(desc.Frame),
		MemType:  ptefmt.MemType(desc.MemType),
		PageType: ptefmt.PageType(desc.PageType),
		Perm:     perm,
		User:     desc.User,
	}
}

func (d *Driver) RootTableSize() uint64  { return 8 * 4096 } // 4-level LPAE walk, software-backed
func (d *Driver) RootTableAlign() uint64 { return 4096 }
