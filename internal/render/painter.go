//go:build ebiten

package render

import (
	"github.com/CodeVermA/fluid-simulation/internal/core"

	"github.com/hajimehoshi/ebiten/v2"
)

// GridPainter uploads W*H pixel buffers into a single image and draws it
// scaled onto the screen.
type GridPainter struct {
	w, h int
	img  *ebiten.Image
	buf  []byte
}

// NewGridPainter allocates a painter for a grid of size w*h.
func NewGridPainter(w, h int) *GridPainter {
	return &GridPainter{w: w, h: h, img: ebiten.NewImage(w, h), buf: make([]byte, 4*w*h)}
}

// Paint lets fill populate the pixel buffer, uploads it and draws the image.
func (gp *GridPainter) Paint(dst *ebiten.Image, fill func(buf []byte), scale int) {
	fill(gp.buf)
	gp.img.WritePixels(gp.buf)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(scale), float64(scale))
	dst.DrawImage(gp.img, op)
}

// Blit draws the density field f.
func (gp *GridPainter) Blit(dst *ebiten.Image, f *core.Field, palette Palette, scale int) {
	if f.W != gp.w || f.H != gp.h {
		return
	}
	gp.Paint(dst, func(buf []byte) { FillDensityRGBA(buf, f, palette) }, scale)
}

// Size returns the dimensions of the underlying image.
func (gp *GridPainter) Size() (int, int) { return gp.w, gp.h }
