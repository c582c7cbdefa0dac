// Package short implements the ARM short-descriptor (32-bit entry)
// translation-table format driver. Selected when the CPU does not
// advertise LPAE, or advertises it but the physical address bus is
// narrower than 36 bits, per
// virt_startup_setup_supported_modes in the original kernel's
// arch/arm/mm/virt.c.
package short

import (
	"pikernel/internal/bitfield"
	"pikernel/internal/frame"
	"pikernel/internal/vm/ptefmt"
)

// descriptor is the software mirror of a short-format second-level
// descriptor's attribute bits, packed with internal/bitfield the same
// way a real PageFlags struct would be. The exact bit assignment is
// not load-bearing; this one preserves the access-control,
// cacheability, and execute-permission matrix the façade promises.
type descriptor struct {
	Present bool `bitfield:",1"`
	MemType uint32 `bitfield:",2"`
	PageType uint32 `bitfield:",2"`
	Read bool `bitfield:",1"`
	Write bool `bitfield:",1"`
	Execute bool `bitfield:",1"`
	User bool `bitfield:",1"`
	Frame uint32 `bitfield:",20"`
}

// Driver implements ptefmt.Driver for the short format.
type Driver struct{}

func New() *Driver { return &Driver{} }

func (d *Driver) Name() string { return "short" }

func (d *Driver) Encode(attr ptefmt.Attr) uint64 {
	resolved := attr.ResolvedPageType()
	perm := attr.Perm.Normalize()
	desc := descriptor{
		Present: true,
		MemType: uint32(attr.MemType),
		PageType: uint32(resolved),
		Read: perm&ptefmt.Read != 0,
		Write: perm&ptefmt.Write != 0,
		Execute: perm&ptefmt.Execute != 0 && resolved != ptefmt.NonExecutable,
		User: attr.User,
		Frame: uint32(attr.Frame),
	}
	packed, err := bitfield.Pack(desc, &bitfield.Config{NumBits: 32})
	if err != nil {
		// Field widths are fixed at compile time; an error here means
		// a frame number overflowed the 20-bit field, which can only
		// happen on a misconfigured machine description.
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
		Frame: frame.Number(desc.Frame),
		MemType: ptefmt.MemType(desc.MemType),
		PageType: ptefmt.PageType(desc.PageType),
		Perm: perm,
		User: desc.User,
	}
}

func (d *Driver) RootTableSize() uint64 { return 4096 } // 1st-level: 4096 entries * 4 bytes in real HW; modeled table is software-backed
func (d *Driver) RootTableAlign() uint64 { return 16 * 1024 }
