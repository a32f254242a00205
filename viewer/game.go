package viewer

import (
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/simrig/scene"
	"go.uber.org/zap"
	"golang.org/x/image/colornames"
)

const (
	fitMargin = 40
	panSpeed  = 8 // screen pixels per frame
)

// Loader builds and starts a fresh copy of the scene being viewed.
type Loader func() (*scene.Scene, error)

// Game hosts a scene inside the ebiten loop.
type Game struct {
	load   Loader
	log    *zap.Logger
	scene  *scene.Scene
	cam    Camera
	paused bool
	last   time.Time
	err    error
	now    func() time.Time
}

func NewGame(load Loader, log *zap.Logger, width, height int) (*Game, error) {
	g := &Game{
		load: load,
		log:  log,
		cam:  Camera{Zoom: 1, Width: width, Height: height},
		now:  time.Now,
	}
	if err := g.reload(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Game) Scene() *scene.Scene { return g.scene }
func (g *Game) Paused() bool         { return g.paused }
func (g *Game) Camera() Camera       { return g.cam }

// reload replaces the current scene. A failed load keeps the old scene
// running and shows the error.
func (g *Game) reload() error {
	s, err := g.load()
	if err != nil {
		g.err = err
		g.log.Error("reload failed", zap.Error(err))
		return err
	}
	if g.scene != nil {
		g.scene.Teardown()
	}
	g.scene = s
	g.err = nil
	g.last = g.now()
	if bb, ok := Bounds(s.World().Space()); ok {
		g.cam.Fit(bb, fitMargin)
	}
	return nil
}

// Close tears the current scene down.
func (g *Game) Close() {
	if g.scene != nil {
		g.scene.Teardown()
		g.scene = nil
	}
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		_ = g.reload()
	}
	g.handleCamera()

	now := g.now()
	elapsed := now.Sub(g.last)
	g.last = now
	if g.scene == nil {
		return nil
	}
	if g.paused {
		if inpututil.IsKeyJustPressed(ebiten.KeyPeriod) {
			g.scene.Run(1)
		}
		return nil
	}
	g.scene.Update(elapsed)
	return nil
}

func (g *Game) handleCamera() {
	step := panSpeed / g.cam.Zoom
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		g.cam.Center.X -= step
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		g.cam.Center.X += step
	}
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		g.cam.Center.Y -= step
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		g.cam.Center.Y += step
	}
	if _, wy := ebiten.Wheel(); wy != 0 {
		if wy > 0 {
			g.cam.ZoomBy(1.1)
		} else {
			g.cam.ZoomBy(1 / 1.1)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF) && g.scene != nil {
		if bb, ok := Bounds(g.scene.World().Space()); ok {
			g.cam.Fit(bb, fitMargin)
		}
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colornames.Black)
	if g.scene == nil {
		ebitenutil.DebugPrintAt(screen, "no scene", 8, 8)
		return
	}
	if space := g.scene.World().Space(); space != nil {
		cp.DrawSpace(space, &drawer{screen: screen, cam: g.cam})
	}
	for _, w := range g.scene.Wires() {
		g.drawPolyline(screen, w.Points(), toRGBA(wireColor))
	}
	ebitenutil.DebugPrintAt(screen, g.status(), 8, 8)
}

func (g *Game) drawPolyline(screen *ebiten.Image, points []cp.Vector, c color.Color) {
	for i := 1; i < len(points); i++ {
		ax, ay := g.cam.ToScreen(points[i-1])
		bx, by := g.cam.ToScreen(points[i])
		vector.StrokeLine(screen, float32(ax), float32(ay), float32(bx), float32(by), 2, c, true)
	}
}

func (g *Game) status() string {
	r := g.scene.Report()
	failed := 0
	for _, e := range r.Entries {
		if e.Failed() {
			failed++
		}
	}
	msg := fmt.Sprintf("%s  tick %d  failed %d/%d  zoom %.2f", r.Scene, r.Ticks, failed, len(r.Entries), g.cam.Zoom)
	if g.paused {
		msg += "  [paused: . steps]"
	}
	if g.err != nil {
		msg += "\nreload: " + g.err.Error()
	}
	return msg
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.cam.Width, g.cam.Height = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}

// Bounds is the union of every shape's bounding box in space.
func Bounds(space *cp.Space) (cp.BB, bool) {
	var bb cp.BB
	found := false
	if space == nil {
		return bb, false
	}
	space.EachShape(func(shape *cp.Shape) {
		if !found {
			bb = shape.BB()
			found = true
			return
		}
		bb = bb.Merge(shape.BB())
	})
	return bb, found
}
