package fluid

import (
	"math"

	"github.com/CodeVermA/fluid-simulation/internal/core"
)

// Obstacles composes the solid mask from the always-solid halo ring, the
// domain wall bands and user-placed obstacles. The mask holds 0 for fluid and
// 1 for solid; it is rebuilt on reconfiguration and read-only during a step.
type Obstacles struct {
	mask      *core.Field
	user      *core.Field
	walls     Walls
	thickness int
	version   uint64
}

func newObstacles(w, h int, walls Walls, thickness int) (*Obstacles, error) {
	mask, err := core.NewField(w, h, 1)
	if err != nil {
		return nil, err
	}
	user, err := core.NewField(w, h, 1)
	if err != nil {
		return nil, err
	}
	o := &Obstacles{mask: mask, user: user, walls: walls, thickness: max(thickness, 1)}
	o.rebuild()
	return o, nil
}

// Field exposes the composed mask.
func (o *Obstacles) Field() *core.Field { return o.mask }

// Walls returns the active wall bands.
func (o *Obstacles) Walls() Walls { return o.walls }

// Thickness returns the wall band thickness in cells.
func (o *Obstacles) Thickness() int { return o.thickness }

// Version increments on every rebuild so device copies know when to refresh.
func (o *Obstacles) Version() uint64 { return o.version }

// Solid reports whether padded cell (x, y) is solid. Coordinates outside the
// padded grid count as solid.
func (o *Obstacles) Solid(x, y int) bool {
	if x < 0 || y < 0 || x > o.mask.W+1 || y > o.mask.H+1 {
		return true
	}
	return o.mask.At(x, y) > SolidThreshold
}

// Count returns the number of solid interior cells.
func (o *Obstacles) Count() int {
	n := 0
	for y := 1; y <= o.mask.H; y++ {
		for x := 1; x <= o.mask.W; x++ {
			if o.mask.At(x, y) > SolidThreshold {
				n++
			}
		}
	}
	return n
}

func (o *Obstacles) setWalls(walls Walls, thickness int) {
	o.walls = walls
	o.thickness = max(thickness, 1)
	o.rebuild()
}

func (o *Obstacles) setSolid(x, y int, solid bool) bool {
	if !o.user.Interior(x, y) {
		return false
	}
	v := float32(0)
	if solid {
		v = 1
	}
	o.user.Set(x, y, v)
	o.rebuild()
	return true
}

// setCircle marks every interior cell whose centre lies within r of (cx, cy),
// in padded coordinates.
func (o *Obstacles) setCircle(cx, cy, r float32) int {
	if r <= 0 {
		return 0
	}
	x0 := max(1, int(math.Floor(float64(cx-r))))
	x1 := min(o.user.W, int(math.Ceil(float64(cx+r))))
	y0 := max(1, int(math.Floor(float64(cy-r))))
	y1 := min(o.user.H, int(math.Ceil(float64(cy+r))))
	n := 0
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx, dy := float32(x)-cx, float32(y)-cy
			if dx*dx+dy*dy <= r*r {
				o.user.Set(x, y, 1)
				n++
			}
		}
	}
	o.rebuild()
	return n
}

func (o *Obstacles) clearUser() {
	o.user.Clear()
	o.rebuild()
}

func (o *Obstacles) rebuild() {
	m := o.mask
	plane := m.Plane(0)
	copy(plane, o.user.Plane(0))
	t := o.thickness
	for y := 0; y <= m.H+1; y++ {
		for x := 0; x <= m.W+1; x++ {
			if !m.Interior(x, y) ||
				(o.walls.Left && x <= t) ||
				(o.walls.Right && x > m.W-t) ||
				(o.walls.Top && y <= t) ||
				(o.walls.Bottom && y > m.H-t) {
				plane[m.Index(x, y)] = 1
			}
		}
	}
	o.version++
}
