//go:build ebiten

package app

import (
	"log"
	"time"

	"github.com/CodeVermA/fluid-simulation/internal/core"
	"github.com/CodeVermA/fluid-simulation/internal/fluid"
	"github.com/CodeVermA/fluid-simulation/internal/render"
	"github.com/CodeVermA/fluid-simulation/internal/ui"
	pcore "github.com/CodeVermA/fluid-simulation/pkg/core"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const (
	dragForce      = 6
	obstacleRadius = 4
)

// Game adapts a fluid solver to the ebiten.Game interface.
type Game struct {
	sim     *fluid.Solver
	painter *render.GridPainter
	palette render.Palette
	overlay *ui.Overlay
	hud     *ui.HUD
	clock   *core.FixedStep
	rng     *pcore.RNG

	scale    int
	hudWidth int
	paused   bool
	tickOnce bool
	seed     int64
	splats   int

	dragging     bool
	lastX, lastY int
	dye          [3]float32
}

// New constructs a Game for the provided solver.
func New(sim *fluid.Solver, cfg *Config) *Game {
	size := sim.Size()
	g := &Game{
		sim:     sim,
		painter: render.NewGridPainter(size.W, size.H),
		palette: render.DensityPalette(),
		overlay: ui.NewOverlay(sim, cfg.Scale),
		clock:   core.NewFixedStep(cfg.TPS),
		rng:     pcore.NewRNG(cfg.Seed),
		scale:   cfg.Scale,
		seed:    cfg.Seed,
		splats:  cfg.Splats,
	}
	if cfg.HUD && cfg.HUDWidth > 0 {
		g.hud = ui.NewHUD(sim, cfg.HUDWidth)
		g.hudWidth = cfg.HUDWidth
	}
	g.Reset(cfg.Seed)
	return g
}

// Reset clears the fluid, reseeds it and injects the start-up splats.
func (g *Game) Reset(seed int64) {
	g.seed = seed
	g.sim.Reset(seed)
	g.sim.RandomSplats(g.splats, float32(g.sim.Size().H)/2)
	g.tickOnce = false
}

// Update handles input and advances the solver by one fixed step.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		g.tickOnce = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.Reset(g.seed)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.Reset(time.Now().UnixNano())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		g.sim.ClearObstacles()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyW) {
		g.toggleWalls()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.sim.RandomSplats(1, float32(g.sim.Size().H)/2)
	}

	g.overlay.Update()
	if g.hud != nil {
		g.hud.Update(g.simWidth())
	}
	g.handleMouse()

	if g.paused && !g.tickOnce {
		return nil
	}
	if !g.tickOnce && !g.clock.ShouldStep() {
		return nil
	}
	g.tickOnce = false
	if err := g.sim.Step(g.clock.Seconds()); err != nil {
		log.Printf("step failed: %v", err)
		return err
	}
	return nil
}

func (g *Game) toggleWalls() {
	w := g.sim.Obstacles().Walls()
	if w == fluid.AllWalls {
		g.sim.UpdateBoundaries(false, false, false, false)
		return
	}
	g.sim.UpdateBoundaries(true, true, true, true)
}

// handleMouse turns a left drag into a splat along the drag direction and a
// right click into a circular obstacle.
func (g *Game) handleMouse() {
	mx, my := ebiten.CursorPosition()
	if g.hud.Contains(mx, my) || mx >= g.simWidth() {
		g.dragging = false
		return
	}
	gx, gy := float32(mx)/float32(g.scale), float32(my)/float32(g.scale)

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight) {
		g.sim.SetCircularObstacle(gx, gy, obstacleRadius)
	}
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		g.dragging = false
		return
	}
	if !g.dragging {
		g.dragging = true
		g.lastX, g.lastY = mx, my
		g.dye[0], g.dye[1], g.dye[2] = g.rng.Hue()
		return
	}
	dx, dy := float32(mx-g.lastX), float32(my-g.lastY)
	g.lastX, g.lastY = mx, my
	if dx == 0 && dy == 0 {
		return
	}
	g.sim.Splat(fluid.TargetVelocity, gx, gy, dx*dragForce, dy*dragForce, 0)
	g.sim.Splat(fluid.TargetDensity, gx, gy, g.dye[0], g.dye[1], g.dye[2])
}

func (g *Game) simWidth() int { return g.sim.Size().W * g.scale }

// Draw renders the dye, the debug overlay and the HUD.
func (g *Game) Draw(screen *ebiten.Image) {
	g.painter.Blit(screen, g.sim.Render(), g.palette, g.scale)
	g.overlay.Draw(screen)
	if g.hud != nil {
		g.hud.Draw(screen, g.simWidth(), g.scale)
	}
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	s := g.sim.Size()
	return s.W*g.scale + g.hudWidth, s.H * g.scale
}
