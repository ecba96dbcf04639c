package ui

import (
	"math"

	"github.com/CodeVermA/fluid-simulation/internal/core"
)

// arrowSample is a point of the velocity arrow grid: (cx, cy) in grid
// coordinates and (sx, sy) in screen pixels.
type arrowSample struct {
	cx, cy float64
	sx, sy float64
}

const (
	targetSamples = 360.0
	minSpacing    = 6
	maxSpacing    = 20
)

// arrowGrid lays out roughly targetSamples arrow anchors centred on a grid of
// the given size and returns them together with the pixel spacing.
func arrowGrid(size core.Size, scale int) ([]arrowSample, float64) {
	if size.W <= 0 || size.H <= 0 {
		return nil, 0
	}
	scale = max(scale, 1)
	spacing := int(math.Sqrt(float64(size.W*size.H) / targetSamples))
	spacing = min(max(spacing, minSpacing), maxSpacing)

	countX := (size.W + spacing - 1) / spacing
	countY := (size.H + spacing - 1) / spacing
	startX := max((size.W-1-(countX-1)*spacing)/2, 0)
	startY := max((size.H-1-(countY-1)*spacing)/2, 0)

	samples := make([]arrowSample, 0, countX*countY)
	for yi := 0; yi < countY; yi++ {
		cy := float64(min(startY+yi*spacing, size.H-1))
		for xi := 0; xi < countX; xi++ {
			cx := float64(min(startX+xi*spacing, size.W-1))
			samples = append(samples, arrowSample{
				cx: cx,
				cy: cy,
				sx: (cx + 0.5) * float64(scale),
				sy: (cy + 0.5) * float64(scale),
			})
		}
	}
	return samples, float64(spacing * scale)
}

// fieldSpan returns the largest interior magnitude of plane c, or 1 when the
// field is flat.
func fieldSpan(f *core.Field, c int) float32 {
	var span float32
	for y := 1; y <= f.H; y++ {
		for x := 1; x <= f.W; x++ {
			v := f.AtC(c, x, y)
			if v < 0 {
				v = -v
			}
			span = max(span, v)
		}
	}
	if span == 0 {
		return 1
	}
	return span
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
