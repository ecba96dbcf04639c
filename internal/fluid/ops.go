package fluid

import (
	"github.com/CodeVermA/fluid-simulation/internal/core"

	"gonum.org/v1/gonum/floats"
)

// Edge reflection tags.
const (
	tagScalar = 0 // replicate
	tagFlipX  = 1 // negate on the left and right edges
	tagFlipY  = 2 // negate on the top and bottom edges
)

var velocityTags = []int{tagFlipX, tagFlipY}

// state owns every buffer of one solver instance.
type state struct {
	w, h, stride int

	vel      *core.DoubleField
	dens     *core.DoubleField
	pressure *core.DoubleField
	div      *core.Field
	curl     *core.Field
	source   *core.Field

	obstacles *Obstacles
	densTags  []int

	// Host-side injections since the last step; device backends re-upload.
	velDirty  bool
	densDirty bool

	// Per-plane dye budget for the step in flight, and a reduction scratch.
	budget []float64
	sums   []float64
}

func newState(cfg Config) (*state, error) {
	w, h := cfg.Width, cfg.Height
	vel, err := core.NewDoubleField(w, h, 2)
	if err != nil {
		return nil, err
	}
	dens, err := core.NewDoubleField(w, h, cfg.DensityComponents)
	if err != nil {
		return nil, err
	}
	pressure, err := core.NewDoubleField(w, h, 1)
	if err != nil {
		return nil, err
	}
	div, err := core.NewField(w, h, 1)
	if err != nil {
		return nil, err
	}
	curl, err := core.NewField(w, h, 1)
	if err != nil {
		return nil, err
	}
	source, err := core.NewField(w, h, max(2, cfg.DensityComponents))
	if err != nil {
		return nil, err
	}
	obstacles, err := newObstacles(w, h, cfg.Walls, cfg.Params.WallThickness)
	if err != nil {
		return nil, err
	}
	return &state{
		w:         w,
		h:         h,
		stride:    vel.Read.Stride(),
		vel:       vel,
		dens:      dens,
		pressure:  pressure,
		div:       div,
		curl:      curl,
		source:    source,
		obstacles: obstacles,
		densTags:  make([]int, cfg.DensityComponents),
		velDirty:  true,
		densDirty: true,
	}, nil
}

func (s *state) mask() []float32 { return s.obstacles.mask.Plane(0) }

func (s *state) clear() {
	s.vel.Clear()
	s.dens.Clear()
	s.pressure.Clear()
	s.div.Clear()
	s.curl.Clear()
	s.velDirty = true
	s.densDirty = true
}

// zeroSolids clears velocity and density inside solid cells of both buffers.
func (s *state) zeroSolids() {
	mask := s.mask()
	for _, f := range []*core.Field{s.vel.Read, s.vel.Write, s.dens.Read, s.dens.Write} {
		for c := 0; c < f.Comps(); c++ {
			p := f.Plane(c)
			for i, m := range mask {
				if m > SolidThreshold {
					p[i] = 0
				}
			}
		}
	}
	s.velDirty = true
	s.densDirty = true
}

// step runs the fixed operator pipeline once.
func (s *state) step(exec Executor, p Params, dt float32) {
	scale := p.Scale(s.w, s.h)
	friction := float32(p.WallFriction)

	s.diffuse(exec, s.vel, velocityTags, float32(p.Viscosity), dt, scale, p.DiffusionIterations)
	s.enforce(exec, friction)
	if p.Vorticity > 0 {
		s.computeCurl(exec)
		s.confine(exec, float32(p.Vorticity), float32(p.ConfinementEpsilon), dt)
		s.enforce(exec, friction)
	}
	s.advect(exec, s.vel, velocityTags, dt*scale, float32(p.VelocityDissipation))
	s.enforce(exec, friction)
	s.project(exec, p.PressureIterations)
	s.enforce(exec, friction)
	s.diffuse(exec, s.dens, s.densTags, float32(p.Diffusion), dt, scale, p.DiffusionIterations)
	s.advect(exec, s.dens, s.densTags, dt*scale, float32(p.DensityDissipation))
}

// advect moves every plane of q along the current velocity.
func (s *state) advect(exec Executor, q *core.DoubleField, tags []int, dt0, dissipation float32) {
	mask := s.mask()
	u, v := s.vel.Read.Plane(0), s.vel.Read.Plane(1)
	src, dst := q.Read, q.Write
	comps := src.Comps()
	stride, w, h := s.stride, s.w, s.h
	exec.Run(1, h+1, func(y int) {
		for x := 1; x <= w; x++ {
			i := y*stride + x
			if isSolid(mask, i) {
				for c := 0; c < comps; c++ {
					dst.Plane(c)[i] = 0
				}
				continue
			}
			px, py := backtrace(mask, stride, w, h, x, y, u[i], v[i], dt0)
			for c := 0; c < comps; c++ {
				dst.Plane(c)[i] = dissipation * sampleBilinear(src.Plane(c), stride, px, py)
			}
		}
	})
	q.Swap()
	setEdges(q.Read, tags)
}

// interiorSum adds up the interior samples of plane.
func (s *state) interiorSum(plane []float32) float64 {
	s.sums = s.sums[:0]
	for y := 1; y <= s.h; y++ {
		for _, v := range plane[y*s.stride+1 : y*s.stride+s.w+1] {
			s.sums = append(s.sums, float64(v))
		}
	}
	return floats.Sum(s.sums)
}

// captureBudget records, per dye plane, the most mass the plane may hold once
// the coming step has applied dissipation.
func (s *state) captureBudget(dissipation float64) {
	f := s.dens.Read
	s.budget = s.budget[:0]
	for c := 0; c < f.Comps(); c++ {
		s.budget = append(s.budget, dissipation*s.interiorSum(f.Plane(c)))
	}
}

// limitMass scales down every dye plane whose total exceeds the budget taken
// by captureBudget. Bilinear backtracing is not conservative and can add dye.
func (s *state) limitMass() {
	f := s.dens.Read
	scaled := false
	for c := 0; c < f.Comps() && c < len(s.budget); c++ {
		plane := f.Plane(c)
		total, budget := s.interiorSum(plane), s.budget[c]
		if total <= budget || total <= 0 {
			continue
		}
		k := float32(max(budget, 0) / total)
		for y := 1; y <= s.h; y++ {
			row := plane[y*s.stride+1 : y*s.stride+s.w+1]
			for i := range row {
				row[i] *= k
			}
		}
		scaled = true
	}
	if scaled {
		setEdges(f, s.densTags)
		s.densDirty = true
	}
}

// relax runs iters generalized Jacobi passes on every plane of q against the
// matching plane of b.
func (s *state) relax(exec Executor, q *core.DoubleField, b *core.Field, tags []int, alpha, beta, bScale float32, iters int) {
	mask := s.mask()
	comps := q.Read.Comps()
	stride, w, h := s.stride, s.w, s.h
	for it := 0; it < iters; it++ {
		src, dst := q.Read, q.Write
		exec.Run(1, h+1, func(y int) {
			for c := 0; c < comps; c++ {
				in, out, rhs := src.Plane(c), dst.Plane(c), b.Plane(c)
				for x := 1; x <= w; x++ {
					i := y*stride + x
					out[i] = jacobiCell(in, rhs, mask, i, stride, alpha, beta, bScale)
				}
			}
		})
		q.Swap()
	}
	setEdges(q.Read, tags)
}

// diffuse solves the implicit diffusion of q at the given rate.
func (s *state) diffuse(exec Executor, q *core.DoubleField, tags []int, rate, dt, scale float32, iters int) {
	a := dt * rate * scale * scale
	if a <= 0 || iters <= 0 {
		return
	}
	for c := 0; c < q.Read.Comps(); c++ {
		copy(s.source.Plane(c), q.Read.Plane(c))
	}
	s.relax(exec, q, s.source, tags, a, 1+4*a, 1, iters)
}

// computeDivergence fills s.div from the current velocity.
func (s *state) computeDivergence(exec Executor) {
	mask := s.mask()
	u, v := s.vel.Read.Plane(0), s.vel.Read.Plane(1)
	out := s.div.Plane(0)
	stride, w := s.stride, s.w
	exec.Run(1, s.h+1, func(y int) {
		for x := 1; x <= w; x++ {
			i := y*stride + x
			out[i] = divergenceCell(u, v, mask, i, stride)
		}
	})
}

// project removes the divergent part of the velocity field.
func (s *state) project(exec Executor, iters int) {
	s.computeDivergence(exec)
	s.pressure.Clear()
	s.relax(exec, s.pressure, s.div, []int{tagScalar}, 1, 4, -1, iters)

	mask := s.mask()
	p := s.pressure.Read.Plane(0)
	u, v := s.vel.Read.Plane(0), s.vel.Read.Plane(1)
	outU, outV := s.vel.Write.Plane(0), s.vel.Write.Plane(1)
	stride, w := s.stride, s.w
	exec.Run(1, s.h+1, func(y int) {
		for x := 1; x <= w; x++ {
			i := y*stride + x
			if isSolid(mask, i) {
				outU[i], outV[i] = 0, 0
				continue
			}
			gx, gy := gradientCell(p, mask, i, stride)
			outU[i] = u[i] - gx
			outV[i] = v[i] - gy
		}
	})
	s.vel.Swap()
	setEdges(s.vel.Read, velocityTags)
}

// computeCurl fills s.curl from the current velocity.
func (s *state) computeCurl(exec Executor) {
	mask := s.mask()
	u, v := s.vel.Read.Plane(0), s.vel.Read.Plane(1)
	out := s.curl.Plane(0)
	stride, w := s.stride, s.w
	exec.Run(1, s.h+1, func(y int) {
		for x := 1; x <= w; x++ {
			i := y*stride + x
			out[i] = curlCell(u, v, mask, i, stride)
		}
	})
	setEdges(s.curl, []int{tagScalar})
}

// confine adds the vorticity confinement force computed from s.curl.
func (s *state) confine(exec Executor, strength, eps, dt float32) {
	mask := s.mask()
	curl := s.curl.Plane(0)
	u, v := s.vel.Read.Plane(0), s.vel.Read.Plane(1)
	outU, outV := s.vel.Write.Plane(0), s.vel.Write.Plane(1)
	stride, w := s.stride, s.w
	exec.Run(1, s.h+1, func(y int) {
		for x := 1; x <= w; x++ {
			i := y*stride + x
			du, dv := confineCell(curl, mask, i, stride, strength, eps, dt)
			outU[i] = u[i] + du
			outV[i] = v[i] + dv
		}
	})
	s.vel.Swap()
}

// enforce clamps the velocity against obstacle faces and refreshes the halo.
// Each cell only reads and writes itself, so the pass runs in place.
func (s *state) enforce(exec Executor, friction float32) {
	mask := s.mask()
	u, v := s.vel.Read.Plane(0), s.vel.Read.Plane(1)
	stride, w := s.stride, s.w
	exec.Run(1, s.h+1, func(y int) {
		for x := 1; x <= w; x++ {
			i := y*stride + x
			u[i], v[i] = obstacleCell(u, v, mask, i, stride, friction)
		}
	})
	setEdges(s.vel.Read, velocityTags)
}

// setEdges fills the halo ring of every plane of f from the adjacent interior
// cells. tags[c] selects the sign flip for plane c; corners average their two
// edge neighbours.
func setEdges(f *core.Field, tags []int) {
	w, h, stride := f.W, f.H, f.Stride()
	for c := 0; c < f.Comps(); c++ {
		tag := tagScalar
		if c < len(tags) {
			tag = tags[c]
		}
		sx, sy := float32(1), float32(1)
		if tag == tagFlipX {
			sx = -1
		}
		if tag == tagFlipY {
			sy = -1
		}
		p := f.Plane(c)
		for y := 1; y <= h; y++ {
			row := y * stride
			p[row] = sx * p[row+1]
			p[row+w+1] = sx * p[row+w]
		}
		top, bottom := 0, (h+1)*stride
		for x := 1; x <= w; x++ {
			p[top+x] = sy * p[top+stride+x]
			p[bottom+x] = sy * p[bottom-stride+x]
		}
		p[top] = 0.5 * (p[top+1] + p[top+stride])
		p[top+w+1] = 0.5 * (p[top+w] + p[top+stride+w+1])
		p[bottom] = 0.5 * (p[bottom+1] + p[bottom-stride])
		p[bottom+w+1] = 0.5 * (p[bottom+w] + p[bottom-stride+w+1])
	}
}
