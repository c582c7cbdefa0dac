// Package ptefmt defines the memory-type/page-type/permission
// vocabulary the virtual-memory engine's façade speaks, plus the
// Driver interface the Short and Long descriptor-format packages
// implement. Kept separate from internal/vm so both descriptor
// drivers and the façade can import it without a cycle, per the
// descriptor-format-dispatch redesign note: the Short/Long choice is
// frozen at boot and dispatched through one interface, never through
// runtime branches on every mapping operation.
package ptefmt

import "pikernel/internal/frame"

// MemType is one of the four memory-type labels the engine presents,
// independent of descriptor format.
type MemType int

const (
	Device MemType = iota
	DeviceStrong
	Normal
	NormalNoCache
)

// PageType controls the execute-permission bits independent of
// descriptor format.
type PageType int

const (
	Auto PageType = iota
	Executable
	NonExecutable
)

// Perm is a combinable permission set.
type Perm uint8

const (
	Read Perm = 1 << iota
	Write
	Execute
)

// Normalize promotes Write-without-Read to ReadWrite, per spec.
func (p Perm) Normalize() Perm {
	if p&Write != 0 && p&Read == 0 {
		p |= Read
	}
	return p
}

// Attr is the attribute tuple attached to one mapped page, format
// agnostic.
type Attr struct {
	Frame frame.Number
	MemType MemType
	PageType PageType
	Perm Perm
	// User is true when this entry belongs to a user (not kernel)
	// address range; Auto page-type execute resolution depends on it.
	User bool
}

// ResolvedPageType returns the page type after resolving Auto against
// the entry's User flag: Executable for user mappings, NonExecutable
// for kernel mappings
func (a Attr) ResolvedPageType() PageType {
	if a.PageType != Auto {
		return a.PageType
	}
	if a.User {
		return Executable
	}
	return NonExecutable
}

// Driver is the per-descriptor-format encoder/decoder. Short and Long
// each implement this once; the façade never branches on format after
// boot-time selection.
type Driver interface {
	// Name identifies the format, for diagnostics.
	Name() string
	// Encode packs attr into the architecture's native descriptor
	// word (32 bits for Short, 64 for Long — returned widened to
	// uint64).
	Encode(attr Attr) uint64
	// Decode is Encode's inverse, used by table-walk diagnostics and
	// tests.
	Decode(word uint64) Attr
	// RootTableSize is the byte size of a context's root translation
	// table for this format.
	RootTableSize() uint64
	// RootTableAlign is the required alignment of a root table.
	RootTableAlign() uint64
}
