// Package rpcwire defines the kernel↔user-server RPC wire contract:
// a 32-bit tag enum plus one request/response struct pair per tag, per
// the RPC wire format table. The kernel only forwards the
// opaque bytes these encode/decode to/from (internal/ipc carries the
// payload); this package exists so the dispatcher can switch on a
// named Go constant instead of a magic number, directly answering
// the DESIGN NOTES concern about "variadic mailbox tag
// construction" for the analogous property-channel protocol.
package rpcwire

import "pikernel/internal/collection"

// Tag identifies one VFS RPC operation.
type Tag uint32

const (
	TagAdd Tag = iota + 1
	TagOpen
	TagClose
	TagRead
	TagWrite
	TagSeek
	TagStat
	TagMount
	TagUmount
	TagRegisterWatch
	TagRegisterHandler
	TagIoctl
	TagProbe
)

// OpenRequest/OpenResponse and friends are the typed payloads for each
// tag; only their encoded bytes cross the kernel, but user servers and
// test code share these definitions.

type OpenRequest struct {
	Path string
	Flags uint32
}

type OpenResponse struct {
	Handle uint32
	Err int32
}

type CloseRequest struct {
	Handle uint32
}

type CloseResponse struct {
	Err int32
}

type ReadRequest struct {
	Handle uint32
	Offset uint64
	Length uint32
}

type ReadResponse struct {
	Data []byte
	Err int32
}

type WriteRequest struct {
	Handle uint32
	Offset uint64
	Data []byte
}

type WriteResponse struct {
	Written uint32
	Err int32
}

type SeekRequest struct {
	Handle uint32
	Offset int64
	Whence int32
}

type SeekResponse struct {
	NewOffset uint64
	Err int32
}

type StatRequest struct {
	Path string
}

type StatResponse struct {
	Size uint64
	Mode uint32
	IsDir bool
	Err int32
}

type MountRequest struct {
	Device string
	MountPoint string
	FSType string
}

type MountResponse struct {
	Err int32
}

type UmountRequest struct {
	MountPoint string
}

type UmountResponse struct {
	Err int32
}

type RegisterWatchRequest struct {
	Path string
}

type RegisterWatchResponse struct {
	WatchID uint32
	Err int32
}

type RegisterHandlerRequest struct {
	Tag Tag
}

type RegisterHandlerResponse struct {
	Err int32
}

type IoctlRequest struct {
	Handle uint32
	Request uint32
	Data []byte
}

type IoctlResponse struct {
	Data []byte
	Err int32
}

type ProbeRequest struct {
	Device string
}

type ProbeResponse struct {
	FSType string
	Err int32
}

// HandlerBinding records which process answers a tag for a registered
// prefix (e.g. a mount point), ordered by tag for deterministic replay
// in tests the way an AVL-backed name index orders entries.
type HandlerBinding struct {
	Tag Tag
	Pattern string
	Process uint32
}

// Table orders handler bindings by tag, grounded on internal/collection's
// AVL-style tree.
type Table struct {
	tree *collection.Tree[Tag, []HandlerBinding]
}

func NewTable() *Table {
	return &Table{tree: collection.NewTree[Tag, []HandlerBinding](func(a, b Tag) bool { return a < b })}
}

// Bind registers process as the handler for tag/pattern.
func (t *Table) Bind(tag Tag, pattern string, process uint32) {
	existing, _ := t.tree.Find(tag)
	existing = append(existing, HandlerBinding{Tag: tag, Pattern: pattern, Process: process})
	t.tree.Insert(tag, existing)
}

// Lookup returns every binding registered for tag, in registration
// order, for the caller to pick the most specific pattern match.
func (t *Table) Lookup(tag Tag) []HandlerBinding {
	bindings, _ := t.tree.Find(tag)
	return bindings
}

// Tags returns every tag with at least one binding, in ascending
// order.
func (t *Table) Tags() []Tag {
	var tags []Tag
	t.tree.InOrder(func(k Tag, _ []HandlerBinding) {
		tags = append(tags, k)
	})
	return tags
}
