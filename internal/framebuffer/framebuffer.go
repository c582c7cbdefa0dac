// Package framebuffer renders the boot banner, fatal-panic screen, and
// a live scheduler readout onto the VideoCore framebuffer. It
// negotiates geometry through internal/mailbox the usual
// framebufferInit way (set-physical-size/set-virtual-size/
// set-depth/allocate-buffer/get-pitch), then draws through
// github.com/fogleman/gg instead of poking pixels by hand one at a
// time. Pure enrichment: no invariant in the kernel core depends on
// this package existing.
package framebuffer

import (
	"image/color"

	"github.com/fogleman/gg"

	"pikernel/internal/kerr"
	"pikernel/internal/mailbox"
)

// bytesPerPixel matches the usual COLORDEPTH=24/BYTES_PER_PIXEL=3
// packed RGB framebuffer format.
const bytesPerPixel = 3

// Geometry is the negotiated framebuffer layout.
type Geometry struct {
	Width uint32
	Height uint32
	Pitch uint32
}

// Negotiate asks the VideoCore firmware (via mb) for a framebuffer of
// width x height, following the standard tag sequence: set
// physical size, set virtual size, set depth, allocate buffer, then
// read back the pitch the firmware actually chose.
func Negotiate(mb *mailbox.Mailbox, width, height uint32) (Geometry, error) {
	if _, err := mb.Call(mailbox.Request{Tag: mailbox.TagSetPhysicalSize, Values: []uint32{width, height}}); err != nil {
		return Geometry{}, err
	}
	if _, err := mb.Call(mailbox.Request{Tag: mailbox.TagSetVirtualSize, Values: []uint32{width, height}}); err != nil {
		return Geometry{}, err
	}
	if _, err := mb.Call(mailbox.Request{Tag: mailbox.TagSetDepth, Values: []uint32{bytesPerPixel * 8}}); err != nil {
		return Geometry{}, err
	}
	if _, err := mb.Call(mailbox.Request{Tag: mailbox.TagAllocateBuffer, Values: []uint32{4096, 0}}); err != nil {
		return Geometry{}, err
	}
	pitch, err := mb.Call(mailbox.Request{Tag: mailbox.TagGetPitch, ResultLen: 1})
	if err != nil {
		return Geometry{}, err
	}
	if len(pitch) < 1 {
		return Geometry{}, kerr.New(kerr.IOError, "firmware did not return a pitch")
	}
	return Geometry{Width: width, Height: height, Pitch: pitch[0]}, nil
}

// Surface is a drawable framebuffer backed by a gg.Context; Flush
// packs the RGBA backbuffer down into the device's 24-bit packed RGB
// rows, matching the usual WritePixel byte layout.
type Surface struct {
	geom Geometry
	ctx *gg.Context
	backing []byte
}

// New creates a Surface sized to geom, backed by a freshly allocated
// device row buffer of geom.Pitch*geom.Height bytes.
func New(geom Geometry) *Surface {
	return &Surface{
		geom: geom,
		ctx: gg.NewContext(int(geom.Width), int(geom.Height)),
		backing: make([]byte, uint64(geom.Pitch)*uint64(geom.Height)),
	}
}

// Context exposes the underlying gg drawing context for callers that
// want gg's full drawing API (lines, circles, text) directly.
func (s *Surface) Context() *gg.Context { return s.ctx }

// Clear fills the surface with a solid background color.
func (s *Surface) Clear(c color.Color) {
	s.ctx.SetColor(c)
	s.ctx.Clear()
}

// Flush packs the current RGBA backbuffer into the device's packed
// RGB row format and returns the backing bytes ready to DMA out to
// the negotiated framebuffer address.
func (s *Surface) Flush() []byte {
	img := s.ctx.Image()
	for y := 0; y < int(s.geom.Height); y++ {
		rowOff := uint32(y) * s.geom.Pitch
		for x := 0; x < int(s.geom.Width); x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			off := rowOff + uint32(x)*bytesPerPixel
			if off+bytesPerPixel > uint32(len(s.backing)) {
				continue
			}
			s.backing[off+0] = byte(r >> 8)
			s.backing[off+1] = byte(g >> 8)
			s.backing[off+2] = byte(b >> 8)
		}
	}
	return s.backing
}

// Backing returns the packed device-format bytes most recently
// produced by Flush, without recomputing them.
func (s *Surface) Backing() []byte { return s.backing }
