package framebuffer

import (
	"fmt"
	"image/color"
)

// BootBanner draws the title plus version/memory line at the top of
// the surface, the graphical analogue of a text-mode startup banner.
func (s *Surface) BootBanner(title, detail string) {
	s.Clear(color.Black)
	ctx := s.ctx
	ctx.SetColor(color.White)
	ctx.DrawStringAnchored(title, float64(s.geom.Width)/2, 24, 0.5, 0.5)
	ctx.DrawStringAnchored(detail, float64(s.geom.Width)/2, 44, 0.5, 0.5)
}

// PanicScreen draws a fatal error message on a red field, the
// graphical equivalent of internal/kpanic's serial "FATAL: " line.
func (s *Surface) PanicScreen(message string) {
	s.Clear(color.RGBA{R: 0x99, A: 0xff})
	ctx := s.ctx
	ctx.SetColor(color.White)
	ctx.DrawStringAnchored("FATAL", float64(s.geom.Width)/2, 24, 0.5, 0.5)
	ctx.DrawStringAnchored(message, float64(s.geom.Width)/2, 48, 0.5, 0.5)
}

// ProcessLine is one row of a SchedulerReadout.
type ProcessLine struct {
	PID uint32
	Name string
	Priority int
	State string
}

// SchedulerReadout draws a one-line-per-process debug grid, the
// graphical analogue of a live /proc-style dump; row spacing follows
// the usual CHAR_HEIGHT=16 text-cell convention.
func (s *Surface) SchedulerReadout(lines []ProcessLine) {
	const rowHeight = 16
	s.Clear(color.Black)
	ctx := s.ctx
	ctx.SetColor(color.RGBA{G: 0xff, A: 0xff})
	ctx.DrawString("PID PRI STATE NAME", 4, 12)
	for i, l := range lines {
		y := float64((i+2)*rowHeight - 4)
		if y >= float64(s.geom.Height) {
			break
		}
		row := fmt.Sprintf("%-4d %-4d %-9s %s", l.PID, l.Priority, l.State, l.Name)
		ctx.DrawString(row, 4, y)
	}
}
