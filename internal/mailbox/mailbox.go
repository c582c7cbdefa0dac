// Package mailbox implements the VideoCore property-channel protocol
// used to query firmware (board revision, ARM/VC memory split) and
// negotiate the framebuffer, generalizing a mailboxRead/mailboxSend
// pair plus a mailbox-property.c-style tag-buffer builder into a
// typed Go request/response API.
package mailbox

import (
	"pikernel/internal/asmport"
	"pikernel/internal/kerr"
)

const (
	regRead = 0x00
	regStatus = 0x18
	regWrite = 0x20

	statusFull = 1 << 31
	statusEmpty = 1 << 30

	// PropertyChannel is the mailbox channel property-tag requests and
	// framebuffer allocation travel over.
	PropertyChannel = 8
)

// Tag identifies one property-channel request, matching the VideoCore
// firmware's tag numbering.
type Tag uint32

const (
	TagGetFirmwareVersion Tag = 0x00000001
	TagGetBoardModel Tag = 0x00010001
	TagGetBoardRevision Tag = 0x00010002
	TagGetBoardSerial Tag = 0x00010004
	TagGetARMMemory Tag = 0x00010005
	TagGetVCMemory Tag = 0x00010006
	TagAllocateBuffer Tag = 0x00040001
	TagSetPhysicalSize Tag = 0x00048003
	TagSetVirtualSize Tag = 0x00048004
	TagSetDepth Tag = 0x00048005
	TagGetPitch Tag = 0x00040008
)

// Request is one property tag plus its request-value words; ResultLen
// is how many response words the firmware writes back.
type Request struct {
	Tag Tag
	Values []uint32
	ResultLen int
}

// Firmware answers property-channel requests. Production code backs
// it with the real VideoCore over the mailbox registers plus a
// DMA-visible scratch buffer; tests back it with a table of canned
// per-tag responses, the same pattern internal/asmport.Regs uses to
// keep MMIO testable.
type Firmware interface {
	Handle(req Request) (values []uint32, ok bool)
}

// Mailbox is the VideoCore mailbox peripheral's doorbell: channel
// status/read/write registers used to signal the firmware that a
// request buffer is ready, the usual mailboxSend/mailboxRead shape.
type Mailbox struct {
	regs asmport.Regs
	firmware Firmware
}

// New wraps regs (the doorbell registers) and firmware (the property
// responder) as a mailbox peripheral.
func New(regs asmport.Regs, firmware Firmware) *Mailbox {
	return &Mailbox{regs: regs, firmware: firmware}
}

func (m *Mailbox) ring(channel uint32) {
	for m.regs.Read32(regStatus)&statusFull != 0 {
	}
	m.regs.Write32(regWrite, channel&0xF)
	for m.regs.Read32(regStatus)&statusEmpty != 0 {
	}
	m.regs.Read32(regRead)
}

// Call submits req over the property channel and returns the
// firmware's response words, or kerr.IOError if the firmware refused
// the request.
func (m *Mailbox) Call(req Request) ([]uint32, error) {
	m.ring(PropertyChannel)
	values, ok := m.firmware.Handle(req)
	if !ok {
		return nil, kerr.New(kerr.IOError, "mailbox property call failed")
	}
	out := make([]uint32, req.ResultLen)
	copy(out, values)
	return out, nil
}

// staticFirmware answers every property-channel request from fixed or
// derived values instead of a real VideoCore core, the same role
// asmport.NewMemRegs plays for MMIO: production wiring uses it until
// this kernel runs against real firmware.
type staticFirmware struct {
	armMemoryBytes uint64
	vcMemoryBytes uint64
	lastWidth uint32
}

// NewStaticFirmware returns a Firmware reporting the given ARM/VC
// memory split and answering framebuffer-negotiation tags well enough
// for internal/framebuffer.Negotiate to complete, computing GetPitch's
// answer from the most recently requested width at 3 bytes/pixel.
func NewStaticFirmware(armMemoryBytes, vcMemoryBytes uint64) Firmware {
	return &staticFirmware{armMemoryBytes: armMemoryBytes, vcMemoryBytes: vcMemoryBytes}
}

func (f *staticFirmware) Handle(req Request) ([]uint32, bool) {
	const bytesPerPixel = 3
	switch req.Tag {
	case TagGetFirmwareVersion:
		return []uint32{1}, true
	case TagGetBoardModel:
		return []uint32{0}, true
	case TagGetBoardRevision:
		return []uint32{0xa02082}, true
	case TagGetBoardSerial:
		return []uint32{0, 0}, true
	case TagGetARMMemory:
		return []uint32{0, uint32(f.armMemoryBytes)}, true
	case TagGetVCMemory:
		return []uint32{uint32(f.armMemoryBytes), uint32(f.vcMemoryBytes)}, true
	case TagSetPhysicalSize:
		if len(req.Values) > 0 {
			f.lastWidth = req.Values[0]
		}
		return req.Values, true
	case TagSetVirtualSize, TagSetDepth, TagAllocateBuffer:
		return req.Values, true
	case TagGetPitch:
		return []uint32{f.lastWidth * bytesPerPixel}, true
	default:
		return nil, false
	}
}
