//go:build ebiten

package ui

import (
	"image/color"
	"math"

	"github.com/CodeVermA/fluid-simulation/internal/core"
	"github.com/CodeVermA/fluid-simulation/internal/fluid"
	"github.com/CodeVermA/fluid-simulation/internal/render"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

type velocityProvider interface {
	VelocityAt(x, y float64) (float64, float64)
}

type debugFieldProvider interface {
	Pressure() *core.Field
	Divergence() *core.Field
	Curl() *core.Field
}

type obstacleProvider interface {
	Obstacles() *fluid.Obstacles
}

// Layer selects the scalar debug field drawn over the dye.
type Layer int

const (
	LayerNone Layer = iota
	LayerPressure
	LayerDivergence
	LayerCurl
)

func (l Layer) String() string {
	switch l {
	case LayerPressure:
		return "pressure"
	case LayerDivergence:
		return "divergence"
	case LayerCurl:
		return "curl"
	default:
		return ""
	}
}

// Overlay draws optional debugging visuals on top of the dye.
type Overlay struct {
	sim   core.Sim
	scale int

	showVelocity  bool
	showObstacles bool
	layer         Layer

	fieldPainter *render.GridPainter
	maskPainter  *render.GridPainter
	signed       render.Palette

	pixel        *ebiten.Image
	samples      []arrowSample
	sampleSize   core.Size
	sampleScale  int
	samplePixels float64
}

// NewOverlay constructs an overlay for sim drawn at the given pixel scale.
func NewOverlay(sim core.Sim, scale int) *Overlay {
	size := sim.Size()
	o := &Overlay{
		sim:           sim,
		scale:         max(scale, 1),
		showObstacles: true,
		fieldPainter:  render.NewGridPainter(size.W, size.H),
		maskPainter:   render.NewGridPainter(size.W, size.H),
		signed:        render.SignedPalette(),
	}
	o.pixel = ebiten.NewImage(1, 1)
	o.pixel.Fill(color.White)
	return o
}

// Update toggles layers: 1 velocity arrows, 2 pressure, 3 divergence, 4 curl,
// 5 obstacles.
func (o *Overlay) Update() {
	if inpututil.IsKeyJustPressed(ebiten.KeyDigit1) {
		o.showVelocity = !o.showVelocity
	}
	o.toggleLayer(ebiten.KeyDigit2, LayerPressure)
	o.toggleLayer(ebiten.KeyDigit3, LayerDivergence)
	o.toggleLayer(ebiten.KeyDigit4, LayerCurl)
	if inpututil.IsKeyJustPressed(ebiten.KeyDigit5) {
		o.showObstacles = !o.showObstacles
	}
}

func (o *Overlay) toggleLayer(key ebiten.Key, layer Layer) {
	if !inpututil.IsKeyJustPressed(key) {
		return
	}
	if o.layer == layer {
		o.layer = LayerNone
		return
	}
	o.layer = layer
}

// Draw renders the enabled layers onto screen.
func (o *Overlay) Draw(screen *ebiten.Image) {
	size := o.sim.Size()
	if size.W <= 0 || size.H <= 0 {
		return
	}
	if o.layer != LayerNone {
		if provider, ok := o.sim.(debugFieldProvider); ok {
			o.drawField(screen, o.layerField(provider))
		}
	}
	if o.showObstacles {
		if provider, ok := o.sim.(obstacleProvider); ok {
			mask := provider.Obstacles().Field()
			o.maskPainter.Paint(screen, func(buf []byte) {
				render.FillMaskRGBA(buf, mask, fluid.SolidThreshold, color.RGBA{R: 90, G: 96, B: 110, A: 255})
			}, o.scale)
		}
	}
	if o.showVelocity {
		if provider, ok := o.sim.(velocityProvider); ok {
			o.drawVelocity(screen, provider, size)
		}
	}
	if name := o.layer.String(); name != "" {
		text.Draw(screen, name, basicfont.Face7x13, 6, 16, color.RGBA{R: 230, G: 230, B: 240, A: 255})
	}
}

func (o *Overlay) layerField(p debugFieldProvider) *core.Field {
	switch o.layer {
	case LayerPressure:
		return p.Pressure()
	case LayerDivergence:
		return p.Divergence()
	default:
		return p.Curl()
	}
}

func (o *Overlay) drawField(screen *ebiten.Image, f *core.Field) {
	if f == nil {
		return
	}
	span := fieldSpan(f, 0)
	o.fieldPainter.Paint(screen, func(buf []byte) {
		render.FillSignedRGBA(buf, f, 0, span, o.signed)
	}, o.scale)
}

func (o *Overlay) drawVelocity(screen *ebiten.Image, provider velocityProvider, size core.Size) {
	if o.sampleSize != size || o.sampleScale != o.scale || len(o.samples) == 0 {
		o.samples, o.samplePixels = arrowGrid(size, o.scale)
		o.sampleSize = size
		o.sampleScale = o.scale
	}
	if len(o.samples) == 0 {
		return
	}

	const (
		calmFraction = 0.03
		headAngle    = math.Pi / 6
		minThickness = 0.65
		maxThickness = 1.05
	)

	speeds := make([]float64, len(o.samples))
	vecs := make([][2]float64, len(o.samples))
	maxSpeed := 1e-6
	for i, s := range o.samples {
		vx, vy := provider.VelocityAt(s.cx, s.cy)
		vecs[i] = [2]float64{vx, vy}
		speeds[i] = math.Hypot(vx, vy)
		maxSpeed = math.Max(maxSpeed, speeds[i])
	}

	scale := float64(o.scale)
	minLength := o.samplePixels * 0.35
	maxLength := o.samplePixels * 0.9
	calmDot := math.Max(o.samplePixels*0.18, scale*0.75)

	for i, s := range o.samples {
		normalized := speeds[i] / maxSpeed
		if normalized < calmFraction {
			o.drawPoint(screen, s.sx, s.sy, calmDot, color.RGBA{R: 90, G: 130, B: 170, A: 120})
			continue
		}
		nx, ny := vecs[i][0]/speeds[i], vecs[i][1]/speeds[i]
		length := minLength + (maxLength-minLength)*math.Sqrt(normalized)
		headLength := math.Min(length*0.3, scale*4.5)
		tail := length * 0.4
		tipX, tipY := s.sx+nx*(length-tail), s.sy+ny*(length-tail)
		tailX, tailY := s.sx-nx*tail, s.sy-ny*tail
		thickness := math.Max(scale*(minThickness+(maxThickness-minThickness)*normalized), 1)

		col := arrowColor(normalized)
		o.drawLine(screen, tailX, tailY, tipX-nx*headLength, tipY-ny*headLength, thickness, col)
		angle := math.Atan2(ny, nx)
		for _, side := range []float64{headAngle, -headAngle} {
			hx := tipX - math.Cos(angle+side)*headLength
			hy := tipY - math.Sin(angle+side)*headLength
			o.drawLine(screen, tipX, tipY, hx, hy, thickness*0.85, col)
		}
	}
}

func (o *Overlay) drawPoint(screen *ebiten.Image, x, y, size float64, col color.RGBA) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(size, size)
	op.GeoM.Translate(x-size*0.5, y-size*0.5)
	op.ColorScale.ScaleWithColor(col)
	screen.DrawImage(o.pixel, op)
}

func (o *Overlay) drawLine(screen *ebiten.Image, x1, y1, x2, y2, thickness float64, col color.RGBA) {
	dx, dy := x2-x1, y2-y1
	length := math.Hypot(dx, dy)
	if length <= 1e-4 || thickness <= 0 {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(length, thickness)
	op.GeoM.Translate(0, -thickness/2)
	op.GeoM.Rotate(math.Atan2(dy, dx))
	op.GeoM.Translate(x1, y1)
	op.ColorScale.ScaleWithColor(col)
	screen.DrawImage(o.pixel, op)
}

func arrowColor(t float64) color.RGBA {
	t = clamp01(t)
	return color.RGBA{
		R: uint8(math.Round(80 + 70*t)),
		G: uint8(math.Round(170 + 70*t)),
		B: uint8(math.Round(230 + 20*t)),
		A: uint8(math.Round(150 + 90*t)),
	}
}
