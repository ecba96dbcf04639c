package render

import (
	"image"
	"image/color"

	"github.com/CodeVermA/fluid-simulation/internal/core"
	"github.com/mazznoer/colorgrad"
)

// Palette is a lookup table of colors sampled evenly from a gradient.
type Palette []color.RGBA

// PaletteSize is the number of entries sampled from each gradient.
const PaletteSize = 256

// DensityPalette maps scalar dye density from black to white hot.
func DensityPalette() Palette { return fromGradient(colorgrad.Inferno(), PaletteSize) }

// SignedPalette maps signed debug fields such as pressure or curl, with zero
// at the centre entry.
func SignedPalette() Palette { return fromGradient(colorgrad.RdBu(), PaletteSize) }

func fromGradient(grad colorgrad.Gradient, n int) Palette {
	cols := grad.Colors(uint(n))
	p := make(Palette, len(cols))
	for i, c := range cols {
		p[i] = color.RGBAModel.Convert(c).(color.RGBA)
	}
	return p
}

// Index returns the palette entry for t in [0, 1]; t is clamped.
func (p Palette) Index(t float32) int {
	if len(p) == 0 {
		return 0
	}
	return int(clamp01(t)*float32(len(p)-1) + 0.5)
}

// At returns the color for t in [0, 1].
func (p Palette) At(t float32) color.RGBA {
	if len(p) == 0 {
		return color.RGBA{}
	}
	return p[p.Index(t)]
}

// Colors converts the palette for use with image.Paletted.
func (p Palette) Colors() color.Palette {
	out := make(color.Palette, len(p))
	for i, c := range p {
		out[i] = c
	}
	return out
}

// Intensity returns the mean of every plane of f at padded (x, y).
func Intensity(f *core.Field, x, y int) float32 {
	var sum float32
	for c := 0; c < f.Comps(); c++ {
		sum += f.AtC(c, x, y)
	}
	return sum / float32(f.Comps())
}

// FillDensityRGBA writes the interior of f into buf as W*H RGBA pixels. Fields
// with three planes are shown as an RGB dye; otherwise the mean intensity is
// looked up in palette.
func FillDensityRGBA(buf []byte, f *core.Field, palette Palette) {
	rgb := f.Comps() >= 3
	i := 0
	for y := 1; y <= f.H; y++ {
		for x := 1; x <= f.W; x++ {
			if rgb {
				buf[i+0] = toByte(f.AtC(0, x, y))
				buf[i+1] = toByte(f.AtC(1, x, y))
				buf[i+2] = toByte(f.AtC(2, x, y))
				buf[i+3] = 0xff
			} else {
				col := palette.At(Intensity(f, x, y))
				buf[i+0] = col.R
				buf[i+1] = col.G
				buf[i+2] = col.B
				buf[i+3] = col.A
			}
			i += 4
		}
	}
}

// FillSignedRGBA writes plane c of f into buf, mapping [-span, span] onto
// palette. Cells within a palette step of zero are left transparent so the
// layer can be drawn over the dye.
func FillSignedRGBA(buf []byte, f *core.Field, c int, span float32, palette Palette) {
	if span <= 0 {
		span = 1
	}
	dead := span / float32(max(len(palette), 1))
	i := 0
	for y := 1; y <= f.H; y++ {
		for x := 1; x <= f.W; x++ {
			v := f.AtC(c, x, y)
			if v > -dead && v < dead {
				buf[i+0], buf[i+1], buf[i+2], buf[i+3] = 0, 0, 0, 0
			} else {
				col := palette.At(0.5 + 0.5*v/span)
				buf[i+0] = col.R
				buf[i+1] = col.G
				buf[i+2] = col.B
				buf[i+3] = col.A
			}
			i += 4
		}
	}
}

// FillMaskRGBA paints cells of f above threshold with tint and clears the rest.
func FillMaskRGBA(buf []byte, f *core.Field, threshold float32, tint color.RGBA) {
	i := 0
	for y := 1; y <= f.H; y++ {
		for x := 1; x <= f.W; x++ {
			if f.At(x, y) > threshold {
				buf[i+0], buf[i+1], buf[i+2], buf[i+3] = tint.R, tint.G, tint.B, tint.A
			} else {
				buf[i+0], buf[i+1], buf[i+2], buf[i+3] = 0, 0, 0, 0
			}
			i += 4
		}
	}
}

// RGBA renders the interior of f into a new image.
func RGBA(f *core.Field, palette Palette) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.W, f.H))
	FillDensityRGBA(img.Pix, f, palette)
	return img
}

// Paletted renders the mean intensity of f as palette indices.
func Paletted(f *core.Field, palette Palette) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, f.W, f.H), palette.Colors())
	for y := 1; y <= f.H; y++ {
		row := img.Pix[(y-1)*img.Stride:]
		for x := 1; x <= f.W; x++ {
			row[x-1] = uint8(palette.Index(Intensity(f, x, y)))
		}
	}
	return img
}

func toByte(v float32) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
