// Package viewer renders a running scene with ebiten.
package viewer

import (
	"math"

	"github.com/jakecoffman/cp"
)

// Camera maps world space onto the screen. Center is the world point at the
// middle of the screen.
type Camera struct {
	Center cp.Vector
	Zoom   float64
	Width  int
	Height int
}

func (c Camera) ToScreen(v cp.Vector) (float64, float64) {
	return (v.X-c.Center.X)*c.Zoom + float64(c.Width)/2,
		(v.Y-c.Center.Y)*c.Zoom + float64(c.Height)/2
}

func (c Camera) ToWorld(x, y float64) cp.Vector {
	return cp.Vector{
		X: (x-float64(c.Width)/2)/c.Zoom + c.Center.X,
		Y: (y-float64(c.Height)/2)/c.Zoom + c.Center.Y,
	}
}

// Fit centers the camera on bb and zooms so it fills the screen with a
// margin in pixels.
func (c *Camera) Fit(bb cp.BB, margin float64) {
	w, h := bb.R-bb.L, bb.T-bb.B
	c.Center = cp.Vector{X: (bb.L + bb.R) / 2, Y: (bb.B + bb.T) / 2}
	if w <= 0 || h <= 0 {
		c.Zoom = 1
		return
	}
	zx := (float64(c.Width) - 2*margin) / w
	zy := (float64(c.Height) - 2*margin) / h
	c.Zoom = math.Max(math.Min(zx, zy), 0.01)
}

// ZoomBy scales the zoom, clamped to a sane range.
func (c *Camera) ZoomBy(f float64) {
	c.Zoom = math.Min(math.Max(c.Zoom*f, 0.01), 100)
}
