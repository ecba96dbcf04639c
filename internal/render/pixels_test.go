package render

import (
	"image/color"
	"testing"

	"github.com/CodeVermA/fluid-simulation/internal/core"
)

func newField(t *testing.T, w, h, comps int) *core.Field {
	t.Helper()
	f, err := core.NewField(w, h, comps)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	return f
}

func TestPalettesSampleFullGradient(t *testing.T) {
	for name, p := range map[string]Palette{"density": DensityPalette(), "signed": SignedPalette()} {
		if len(p) != PaletteSize {
			t.Fatalf("%s palette has %d entries, want %d", name, len(p), PaletteSize)
		}
		if p[0] == p[len(p)-1] {
			t.Fatalf("%s palette endpoints are identical", name)
		}
		if p.Index(-1) != 0 || p.Index(2) != len(p)-1 {
			t.Fatalf("%s palette does not clamp", name)
		}
	}
}

func TestFillDensityRGBAUsesDyeChannels(t *testing.T) {
	f := newField(t, 3, 1, 3)
	f.SetC(0, 1, 1, 1)
	f.SetC(1, 1, 1, 0.5)
	f.SetC(2, 1, 1, -1)
	f.SetC(0, 2, 1, 2)
	buf := make([]byte, 4*3)

	FillDensityRGBA(buf, f, DensityPalette())

	want := []byte{255, 128, 0, 255, 255, 0, 0, 255, 0, 0, 0, 255}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("buf = %v, want %v", buf, want)
		}
	}
}

func TestFillDensityRGBAScalarUsesPalette(t *testing.T) {
	f := newField(t, 3, 1, 1)
	f.Set(2, 1, 1)
	f.Set(3, 1, 10)
	p := DensityPalette()
	buf := make([]byte, 4*3)

	FillDensityRGBA(buf, f, p)

	for i, want := range []color.RGBA{p[0], p[len(p)-1], p[len(p)-1]} {
		got := color.RGBA{R: buf[4*i], G: buf[4*i+1], B: buf[4*i+2], A: buf[4*i+3]}
		if got != want {
			t.Fatalf("pixel %d = %v, want %v", i, got, want)
		}
	}
}

func TestFillSignedRGBACentresZero(t *testing.T) {
	f := newField(t, 3, 1, 1)
	f.Set(1, 1, -2)
	f.Set(3, 1, 2)
	p := SignedPalette()
	buf := make([]byte, 4*3)

	FillSignedRGBA(buf, f, 0, 2, p)

	if got := (color.RGBA{R: buf[0], G: buf[1], B: buf[2], A: buf[3]}); got != p[0] {
		t.Fatalf("negative extreme = %v, want %v", got, p[0])
	}
	if buf[7] != 0 {
		t.Fatalf("zero cell alpha = %d, want transparent", buf[7])
	}
	if got := (color.RGBA{R: buf[8], G: buf[9], B: buf[10], A: buf[11]}); got != p[len(p)-1] {
		t.Fatalf("positive extreme = %v, want %v", got, p[len(p)-1])
	}
}

func TestFillMaskRGBA(t *testing.T) {
	f := newField(t, 2, 1, 1)
	f.Set(2, 1, 1)
	tint := color.RGBA{R: 10, G: 20, B: 30, A: 200}
	buf := make([]byte, 8)

	FillMaskRGBA(buf, f, 0.5, tint)

	if buf[3] != 0 || buf[4] != 10 || buf[7] != 200 {
		t.Fatalf("buf = %v", buf)
	}
}

func TestPalettedMatchesIntensity(t *testing.T) {
	f := newField(t, 4, 2, 1)
	f.Set(4, 2, 1)
	p := DensityPalette()

	img := Paletted(f, p)

	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 2 {
		t.Fatalf("bounds = %v", b)
	}
	if img.ColorIndexAt(0, 0) != 0 {
		t.Fatalf("empty cell index = %d", img.ColorIndexAt(0, 0))
	}
	if got := int(img.ColorIndexAt(3, 1)); got != len(p)-1 {
		t.Fatalf("full cell index = %d, want %d", got, len(p)-1)
	}
	if rgba := RGBA(f, p); rgba.RGBAAt(3, 1) != p[len(p)-1] {
		t.Fatalf("RGBA pixel = %v", rgba.RGBAAt(3, 1))
	}
}
