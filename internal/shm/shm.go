// Package shm implements the shared-memory segment registry:
// named/ID-keyed regions mappable into multiple address spaces.
//
// id is canonical; a thin optional name registry exists for symmetry
// with internal/proc's process name index, not as a parallel API.
// Every mutating operation takes an id. See DESIGN.md.
package shm

import (
	"pikernel/internal/frame"
	"pikernel/internal/kerr"
)

// PID mirrors the caller's process identifier type without importing
// internal/proc.
type PID uint32

// ID identifies a shared-memory segment.
type ID uint32

// Attachment records one process's mapping of a segment.
type Attachment struct {
	PID PID
	Virt uint64
}

// Segment mirrors the Shared-memory segment record.
type Segment struct {
	ID ID
	Size uint64 // page multiple
	Frames []frame.Number
	RefCount int
	Attached []Attachment
	CreatorID PID
}

// Registry owns every live segment plus an optional name→id alias
// table.
type Registry struct {
	frames *frame.Allocator
	segments map[ID]*Segment
	names map[string]ID
	nextID ID
}

// New returns an empty registry backed by frames for segment frame
// allocation.
func New(frames *frame.Allocator) *Registry {
	return &Registry{
		frames: frames,
		segments: make(map[ID]*Segment),
		names: make(map[string]ID),
		nextID: 1,
	}
}

// Create reserves size bytes (rounded up to a page multiple) of fresh
// frames and returns the new segment's id.
func (r *Registry) Create(creator PID, size uint64) (ID, error) {
	pages := (size + frame.PageSize - 1) / frame.PageSize
	frames := make([]frame.Number, 0, pages)
	for i := uint64(0); i < pages; i++ {
		addr, err := r.frames.FindFreePage(0)
		if err != nil {
			for _, f := range frames {
				r.frames.FreePage(f.Addr())
			}
			return 0, err
		}
		frames = append(frames, frame.Number(addr/frame.PageSize))
	}
	id := r.nextID
	r.nextID++
	r.segments[id] = &Segment{
		ID: id,
		Size: pages * frame.PageSize,
		Frames: frames,
		RefCount: 1,
		CreatorID: creator,
	}
	return id, nil
}

// Bind associates name with id, for user-space directories that want
// symmetry with the process name index; it is never required to
// Attach/Detach/Destroy, which always take id.
func (r *Registry) Bind(name string, id ID) error {
	if _, ok := r.segments[id]; !ok {
		return kerr.New(kerr.NotFound, "no such segment")
	}
	if _, exists := r.names[name]; exists {
		return kerr.New(kerr.AlreadyExists, "name already bound")
	}
	r.names[name] = id
	return nil
}

// Resolve looks up an id bound to name.
func (r *Registry) Resolve(name string) (ID, bool) {
	id, ok := r.names[name]
	return id, ok
}

// Attach records pid's attachment of segment id at virt and bumps the
// refcount. It installs no page mappings in pid's address space.
func (r *Registry) Attach(id ID, pid PID, virt uint64) error {
	seg, ok := r.segments[id]
	if !ok {
		return kerr.New(kerr.NotFound, "no such segment")
	}
	seg.Attached = append(seg.Attached, Attachment{PID: pid, Virt: virt})
	seg.RefCount++
	return nil
}

// Detach removes pid's attachment to id. If this was the last
// attachment and the creator has also released the segment (tracked
// via refcount reaching zero), the segment's frames are returned to
// the allocator and the segment is destroyed.
func (r *Registry) Detach(id ID, pid PID) error {
	seg, ok := r.segments[id]
	if !ok {
		return kerr.New(kerr.NotFound, "no such segment")
	}
	for i, a := range seg.Attached {
		if a.PID == pid {
			seg.Attached = append(seg.Attached[:i], seg.Attached[i+1:]...)
			break
		}
	}
	seg.RefCount--
	if seg.RefCount <= 0 {
		r.releaseFrames(seg)
		delete(r.segments, id)
	}
	return nil
}

// Destroy is the creator's explicit release: it decrements the
// creator's own reference. Last detach plus creator-release destroys
// the segment
func (r *Registry) Destroy(id ID, creator PID) error {
	seg, ok := r.segments[id]
	if !ok {
		return kerr.New(kerr.NotFound, "no such segment")
	}
	if seg.CreatorID != creator {
		return kerr.New(kerr.NotPermitted, "only the creator may destroy a segment")
	}
	seg.RefCount--
	if seg.RefCount <= 0 {
		r.releaseFrames(seg)
		delete(r.segments, id)
	}
	return nil
}

func (r *Registry) releaseFrames(seg *Segment) {
	for _, f := range seg.Frames {
		r.frames.FreePage(f.Addr())
	}
}

// Get returns segment id's bookkeeping, for read-only inspection
// (e.g. computing write offsets in tests).
func (r *Registry) Get(id ID) (*Segment, bool) {
	seg, ok := r.segments[id]
	return seg, ok
}

// DetachAll removes every attachment pid holds, used at process-Kill
// cleanup.
func (r *Registry) DetachAll(pid PID) {
	for id, seg := range r.segments {
		for _, a := range seg.Attached {
			if a.PID == pid {
				_ = r.Detach(id, pid)
				break
			}
		}
	}
}
