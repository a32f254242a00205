package viewer

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/simrig/entity"
)

// drawer renders Chipmunk debug geometry through a camera.
type drawer struct {
	screen *ebiten.Image
	cam    Camera
}

func (d *drawer) line(a, b cp.Vector, c cp.FColor) {
	ax, ay := d.cam.ToScreen(a)
	bx, by := d.cam.ToScreen(b)
	ebitenutil.DrawLine(d.screen, ax, ay, bx, by, toRGBA(c))
}

func (d *drawer) DrawCircle(pos cp.Vector, angle, radius float64, outline, fill cp.FColor, data interface{}) {
	const steps = 20
	prev := pos.Add(cp.Vector{X: radius})
	for i := 1; i <= steps; i++ {
		th := float64(i) * (2 * math.Pi / steps)
		cur := pos.Add(cp.ForAngle(th).Mult(radius))
		d.line(prev, cur, fill)
		prev = cur
	}
	d.line(pos, pos.Add(cp.ForAngle(angle).Mult(radius)), fill)
}

func (d *drawer) DrawSegment(a, b cp.Vector, fill cp.FColor, data interface{}) {
	d.line(a, b, fill)
}

func (d *drawer) DrawFatSegment(a, b cp.Vector, radius float64, outline, fill cp.FColor, data interface{}) {
	d.line(a, b, fill)
	if radius*d.cam.Zoom > 1 {
		d.DrawCircle(a, 0, radius, outline, fill, data)
		d.DrawCircle(b, 0, radius, outline, fill, data)
	}
}

func (d *drawer) DrawPolygon(count int, verts []cp.Vector, radius float64, outline, fill cp.FColor, data interface{}) {
	for i := 0; i < count; i++ {
		d.line(verts[i], verts[(i+1)%count], fill)
	}
}

func (d *drawer) DrawDot(size float64, pos cp.Vector, fill cp.FColor, data interface{}) {
	l := size / 2 / d.cam.Zoom
	d.line(pos.Add(cp.Vector{X: -l}), pos.Add(cp.Vector{X: l}), fill)
	d.line(pos.Add(cp.Vector{Y: -l}), pos.Add(cp.Vector{Y: l}), fill)
}

func (d *drawer) Flags() uint {
	return cp.DRAW_SHAPES | cp.DRAW_CONSTRAINTS | cp.DRAW_COLLISION_POINTS
}

func (d *drawer) OutlineColor() cp.FColor {
	return outlineColor
}

func (d *drawer) ShapeColor(shape *cp.Shape, data interface{}) cp.FColor {
	return shapeColor(shape)
}

func (d *drawer) ConstraintColor() cp.FColor {
	return constraintColor
}

func (d *drawer) CollisionPointColor() cp.FColor {
	return contactColor
}

func (d *drawer) Data() interface{} {
	return nil
}

func shapeColor(shape *cp.Shape) cp.FColor {
	switch {
	case shape == nil:
		return outlineColor
	case shape.Sensor():
		return sensorColor
	}
	if _, ok := shape.UserData.(*entity.Wire); ok {
		return wireColor
	}
	if shape.Body() != nil && shape.Body().GetType() == cp.BODY_STATIC {
		return staticColor
	}
	return dynamicColor
}
