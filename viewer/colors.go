package viewer

import (
	"image/color"

	"github.com/jakecoffman/cp"
	"golang.org/x/image/colornames"
)

var (
	staticColor     = toFColor(colornames.Lightskyblue)
	dynamicColor    = toFColor(colornames.Orchid)
	sensorColor     = toFColor(colornames.Gold)
	wireColor       = toFColor(colornames.Orange)
	constraintColor = toFColor(colornames.Silver)
	contactColor    = toFColor(colornames.Red)
	outlineColor    = toFColor(colornames.Limegreen)
)

func toFColor(c color.RGBA) cp.FColor {
	return cp.FColor{
		R: float32(c.R) / 255,
		G: float32(c.G) / 255,
		B: float32(c.B) / 255,
		A: float32(c.A) / 255,
	}
}

func toRGBA(c cp.FColor) color.RGBA {
	clamp := func(v float32) uint8 {
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		return uint8(v*255 + 0.5)
	}
	return color.RGBA{R: clamp(c.R), G: clamp(c.G), B: clamp(c.B), A: clamp(c.A)}
}
