package fluid

import (
	"math"
	"testing"

	"github.com/CodeVermA/fluid-simulation/internal/core"
)

func newPlaneField(t *testing.T, w, h int) *core.Field {
	t.Helper()
	f, err := core.NewField(w, h, 1)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	return f
}

func TestSampleBilinearExactAtCellCentres(t *testing.T) {
	f := newPlaneField(t, 6, 5)
	p := f.Plane(0)
	for i := range p {
		p[i] = float32(i%7) * 0.37
	}
	for y := 1; y <= f.H; y++ {
		for x := 1; x <= f.W; x++ {
			got := sampleBilinear(p, f.Stride(), float32(x), float32(y))
			if got != f.At(x, y) {
				t.Fatalf("sample at (%d, %d) = %v, want %v", x, y, got, f.At(x, y))
			}
		}
	}

	f.Clear()
	f.Set(2, 2, 1)
	f.Set(3, 2, 3)
	f.Set(2, 3, 5)
	f.Set(3, 3, 7)
	if got := sampleBilinear(p, f.Stride(), 2.5, 2.5); math.Abs(float64(got-4)) > 1e-6 {
		t.Fatalf("midpoint sample = %v, want 4", got)
	}
	if got := sampleBilinear(p, f.Stride(), 2.5, 2); math.Abs(float64(got-2)) > 1e-6 {
		t.Fatalf("edge midpoint sample = %v, want 2", got)
	}
}

func TestBacktraceFollowsVelocityInOpenFluid(t *testing.T) {
	mask := newPlaneField(t, 10, 10)
	px, py := backtrace(mask.Plane(0), mask.Stride(), 10, 10, 5, 5, 1, -2, 1)
	if px != 4 || py != 7 {
		t.Fatalf("backtrace = (%v, %v), want (4, 7)", px, py)
	}

	// Far traces are clamped half a cell into the halo.
	px, py = backtrace(mask.Plane(0), mask.Stride(), 10, 10, 5, 5, 100, 0, 1)
	if px != 0.5 || py != 5 {
		t.Fatalf("clamped backtrace = (%v, %v), want (0.5, 5)", px, py)
	}
}

func TestBacktraceShrinksAwayFromSolid(t *testing.T) {
	mask := newPlaneField(t, 10, 10)
	for y := 1; y <= 10; y++ {
		mask.Set(3, y, 1)
	}
	px, py := backtrace(mask.Plane(0), mask.Stride(), 10, 10, 5, 5, 2, 0, 1)
	if py != 5 {
		t.Fatalf("py = %v, want 5", py)
	}
	if px <= 3.5 || px >= 5 {
		t.Fatalf("px = %v, want a fluid point between the wall and the cell", px)
	}
	if math.Abs(float64(px)-3.56) > 1e-5 {
		t.Fatalf("px = %v, want 3.56 after two shrink attempts", px)
	}
}

func TestBacktraceFallsBackToOwnCell(t *testing.T) {
	mask := newPlaneField(t, 10, 10)
	for y := 1; y <= 10; y++ {
		for x := 1; x <= 4; x++ {
			mask.Set(x, y, 1)
		}
	}
	px, py := backtrace(mask.Plane(0), mask.Stride(), 10, 10, 5, 5, 10, 0, 1)
	if px != 5 || py != 5 {
		t.Fatalf("backtrace = (%v, %v), want own cell (5, 5)", px, py)
	}
}

func TestJacobiCellNeumannSubstitution(t *testing.T) {
	x := newPlaneField(t, 3, 3)
	b := newPlaneField(t, 3, 3)
	mask := newPlaneField(t, 3, 3)
	x.Set(2, 2, 2)
	x.Set(1, 2, 1)
	x.Set(2, 1, 1)
	x.Set(2, 3, 1)
	x.Set(3, 2, 100)
	mask.Set(3, 2, 1)

	i := x.Index(2, 2)
	got := jacobiCell(x.Plane(0), b.Plane(0), mask.Plane(0), i, x.Stride(), 1, 4, 0)
	if got != 1.25 {
		t.Fatalf("jacobi = %v, want 1.25 with the solid neighbour replaced by the centre", got)
	}

	b.Set(2, 2, 2)
	got = jacobiCell(x.Plane(0), b.Plane(0), mask.Plane(0), i, x.Stride(), 1, 4, -1)
	if got != 0.75 {
		t.Fatalf("jacobi with source = %v, want 0.75", got)
	}

	if got := jacobiCell(x.Plane(0), b.Plane(0), mask.Plane(0), x.Index(3, 2), x.Stride(), 1, 4, 0); got != 0 {
		t.Fatalf("solid cell relaxed to %v, want 0", got)
	}
}

func TestDivergenceCellTreatsSolidAsZero(t *testing.T) {
	u := newPlaneField(t, 3, 3)
	v := newPlaneField(t, 3, 3)
	mask := newPlaneField(t, 3, 3)
	u.Set(3, 2, 4)
	u.Set(1, 2, 2)
	v.Set(2, 3, 1)
	i := u.Index(2, 2)
	if got := divergenceCell(u.Plane(0), v.Plane(0), mask.Plane(0), i, u.Stride()); got != 1.5 {
		t.Fatalf("divergence = %v, want 1.5", got)
	}
	mask.Set(3, 2, 1)
	if got := divergenceCell(u.Plane(0), v.Plane(0), mask.Plane(0), i, u.Stride()); got != -0.5 {
		t.Fatalf("divergence beside wall = %v, want -0.5", got)
	}
}

func TestObstacleCellClampsIntoWall(t *testing.T) {
	u := newPlaneField(t, 3, 3)
	v := newPlaneField(t, 3, 3)
	mask := newPlaneField(t, 3, 3)
	mask.Set(3, 2, 1)
	i := u.Index(2, 2)

	u.Set(2, 2, 3)
	v.Set(2, 2, 2)
	gu, gv := obstacleCell(u.Plane(0), v.Plane(0), mask.Plane(0), i, u.Stride(), 0.5)
	if gu != 0 {
		t.Fatalf("into-wall component = %v, want 0", gu)
	}
	if gv != 1 {
		t.Fatalf("tangential component = %v, want friction-damped 1", gv)
	}

	u.Set(2, 2, -3)
	gu, _ = obstacleCell(u.Plane(0), v.Plane(0), mask.Plane(0), i, u.Stride(), 0.5)
	if gu != -3 {
		t.Fatalf("away-from-wall component = %v, want -3 unchanged", gu)
	}

	mask.Set(2, 1, 1)
	u.Set(2, 2, 1)
	v.Set(2, 2, -4)
	gu, gv = obstacleCell(u.Plane(0), v.Plane(0), mask.Plane(0), i, u.Stride(), 0.5)
	if gu != 0 || gv != 0 {
		t.Fatalf("corner cell velocity = (%v, %v), want (0, 0)", gu, gv)
	}

	gu, gv = obstacleCell(u.Plane(0), v.Plane(0), mask.Plane(0), u.Index(3, 2), u.Stride(), 0.5)
	if gu != 0 || gv != 0 {
		t.Fatal("solid cells must report zero velocity")
	}
}

func TestConfineCellGuardsFlatCurl(t *testing.T) {
	curl := newPlaneField(t, 3, 3)
	mask := newPlaneField(t, 3, 3)
	for i := range curl.Plane(0) {
		curl.Plane(0)[i] = 2
	}
	du, dv := confineCell(curl.Plane(0), mask.Plane(0), curl.Index(2, 2), curl.Stride(), 10, 1e-5, 0.1)
	if du != 0 || dv != 0 {
		t.Fatalf("uniform curl produced force (%v, %v)", du, dv)
	}

	// |curl| grows towards +x, so the force is (0, -curl) scaled.
	curl.Set(3, 2, 4)
	du, dv = confineCell(curl.Plane(0), mask.Plane(0), curl.Index(2, 2), curl.Stride(), 10, 1e-5, 0.1)
	if math.Abs(float64(du)) > 1e-6 || math.Abs(float64(dv+2)) > 1e-5 {
		t.Fatalf("force = (%v, %v), want (0, -2)", du, dv)
	}
}
