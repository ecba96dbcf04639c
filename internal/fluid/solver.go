package fluid

import (
	"errors"
	"fmt"
	"math"

	"github.com/CodeVermA/fluid-simulation/internal/core"
	pcore "github.com/CodeVermA/fluid-simulation/pkg/core"
	"gonum.org/v1/gonum/floats"
)

var (
	_ core.Sim                       = (*Solver)(nil)
	_ core.ParameterControlsProvider = (*Solver)(nil)
	_ core.IntParameterSetter        = (*Solver)(nil)
	_ core.FloatParameterSetter      = (*Solver)(nil)
)

// ErrOutOfBounds reports a point injection outside the interior grid.
var ErrOutOfBounds = errors.New("cell out of bounds")

// ErrClosed reports use of a solver after Close.
var ErrClosed = errors.New("solver closed")

// Target selects the field a splat injects into.
type Target int

const (
	TargetDensity Target = iota
	TargetVelocity
)

func (t Target) String() string {
	switch t {
	case TargetDensity:
		return "density"
	case TargetVelocity:
		return "velocity"
	default:
		return fmt.Sprintf("Target(%d)", int(t))
	}
}

// Solver is a 2D Stable Fluids simulation on a fixed grid. It owns every
// field buffer; callers inject between steps and read the fields back.
// A Solver is not safe for concurrent use.
type Solver struct {
	cfg     Config
	st      *state
	backend Backend
	rng     *pcore.RNG
	frame   int
	closed  bool

	sums []float64
}

// New validates cfg and constructs a solver on the selected backend.
func New(cfg Config) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	st, err := newState(cfg)
	if err != nil {
		return nil, err
	}
	backend, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}
	return &Solver{
		cfg:     cfg,
		st:      st,
		backend: backend,
		rng:     pcore.NewRNG(cfg.Seed),
		sums:    make([]float64, 0, cfg.Width*cfg.Height),
	}, nil
}

// NewDefault constructs a w x h solver with the default configuration.
func NewDefault(w, h int) (*Solver, error) {
	cfg := DefaultConfig()
	cfg.Width = w
	cfg.Height = h
	return New(cfg)
}

// Name identifies the simulation.
func (s *Solver) Name() string { return "fluid" }

// Size returns the interior grid dimensions.
func (s *Solver) Size() core.Size { return core.Size{W: s.st.w, H: s.st.h} }

// Config returns the active configuration.
func (s *Solver) Config() Config { return s.cfg }

// Backend returns the name of the execution backend.
func (s *Solver) Backend() string { return s.backend.Name() }

// Frame returns the number of completed steps since construction or Reset.
func (s *Solver) Frame() int { return s.frame }

// Reset clears velocity, density and pressure, keeps the obstacles and
// reseeds the random splat generator. A zero seed reuses the configured one.
func (s *Solver) Reset(seed int64) {
	if seed == 0 {
		seed = s.cfg.Seed
	}
	s.rng = pcore.NewRNG(seed)
	s.st.clear()
	s.frame = 0
}

// Step advances the simulation by dt seconds.
func (s *Solver) Step(dt float32) error {
	if s.closed {
		return ErrClosed
	}
	if dt <= 0 {
		return nil
	}
	s.st.captureBudget(s.cfg.Params.DensityDissipation)
	if err := s.backend.Step(s.st, s.cfg.Params, dt); err != nil {
		return fmt.Errorf("step %d: %w", s.frame, err)
	}
	s.st.limitMass()
	s.frame++
	return nil
}

// Close releases backend resources. It is safe to call more than once.
func (s *Solver) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.backend.Close()
}

// Splat adds a Gaussian blob centred at grid coordinates (x, y), where cell
// (col, row) is centred at (col, row). For TargetVelocity (vx, vy) is added to
// the velocity; for TargetDensity (vx, vy, vz) is added to the dye planes, and
// a scalar density only receives vx. Solid cells are left untouched.
func (s *Solver) Splat(target Target, x, y, vx, vy, vz float32) {
	var f *core.Field
	var amounts []float32
	switch target {
	case TargetVelocity:
		f = s.st.vel.Read
		amounts = []float32{vx, vy}
		s.st.velDirty = true
	case TargetDensity:
		f = s.st.dens.Read
		amounts = []float32{vx, vy, vz}[:f.Comps()]
		s.st.densDirty = true
	default:
		return
	}
	r := float32(s.cfg.Params.SplatRadius)
	cx, cy := x+core.Pad, y+core.Pad
	reach := 3 * r
	x0 := max(1, int(math.Floor(float64(cx-reach))))
	x1 := min(s.st.w, int(math.Ceil(float64(cx+reach))))
	y0 := max(1, int(math.Floor(float64(cy-reach))))
	y1 := min(s.st.h, int(math.Ceil(float64(cy+reach))))
	mask := s.st.mask()
	inv := 1 / (r * r)
	for py := y0; py <= y1; py++ {
		for px := x0; px <= x1; px++ {
			i := f.Index(px, py)
			if isSolid(mask, i) {
				continue
			}
			dx, dy := float32(px)-cx, float32(py)-cy
			weight := float32(math.Exp(float64(-(dx*dx + dy*dy) * inv)))
			for c, a := range amounts {
				f.Plane(c)[i] += a * weight
			}
		}
	}
}

// AddDensity adds amount to every dye plane of the cell at zero-based
// (row, col).
func (s *Solver) AddDensity(row, col int, amount float32) error {
	x, y, err := s.cell(row, col)
	if err != nil {
		return err
	}
	f := s.st.dens.Read
	for c := 0; c < f.Comps(); c++ {
		f.Add(c, x, y, amount)
	}
	s.st.densDirty = true
	return nil
}

// AddVelocity adds (dx, dy) to the velocity of the cell at zero-based
// (row, col).
func (s *Solver) AddVelocity(row, col int, dx, dy float32) error {
	x, y, err := s.cell(row, col)
	if err != nil {
		return err
	}
	f := s.st.vel.Read
	f.Add(0, x, y, dx)
	f.Add(1, x, y, dy)
	s.st.velDirty = true
	return nil
}

func (s *Solver) cell(row, col int) (int, int, error) {
	if row < 0 || row >= s.st.h || col < 0 || col >= s.st.w {
		return 0, 0, fmt.Errorf("%w: row %d col %d on %dx%d grid", ErrOutOfBounds, row, col, s.st.w, s.st.h)
	}
	return col + core.Pad, row + core.Pad, nil
}

// RandomSplats injects n splats of random color and direction at random
// positions away from the domain edges.
func (s *Solver) RandomSplats(n int, speed float32) {
	w, h := float32(s.st.w), float32(s.st.h)
	for i := 0; i < n; i++ {
		x := s.rng.Range(0.1*w, 0.9*w)
		y := s.rng.Range(0.1*h, 0.9*h)
		angle := s.rng.Range(0, 2*math.Pi)
		vx := speed * float32(math.Cos(float64(angle)))
		vy := speed * float32(math.Sin(float64(angle)))
		r, g, b := s.rng.Hue()
		s.Splat(TargetVelocity, x, y, vx, vy, 0)
		s.Splat(TargetDensity, x, y, r, g, b)
	}
}

// UpdateBoundaries toggles the solid wall bands on each domain edge.
func (s *Solver) UpdateBoundaries(top, bottom, left, right bool) {
	s.cfg.Walls = Walls{Top: top, Bottom: bottom, Left: left, Right: right}
	s.st.obstacles.setWalls(s.cfg.Walls, s.cfg.Params.WallThickness)
	s.st.zeroSolids()
}

// SetSolid marks the cell at zero-based (row, col) as solid or fluid.
func (s *Solver) SetSolid(row, col int, solid bool) error {
	x, y, err := s.cell(row, col)
	if err != nil {
		return err
	}
	s.st.obstacles.setSolid(x, y, solid)
	s.st.zeroSolids()
	return nil
}

// SetCircularObstacle marks every cell within r cells of grid coordinates
// (x, y) as solid and returns the number of cells marked.
func (s *Solver) SetCircularObstacle(x, y, r float32) int {
	n := s.st.obstacles.setCircle(x+core.Pad, y+core.Pad, r)
	s.st.zeroSolids()
	return n
}

// ClearObstacles removes every user-placed obstacle; wall bands remain.
func (s *Solver) ClearObstacles() {
	s.st.obstacles.clearUser()
}

// Render returns the current density field. The field is owned by the solver
// and valid until the next call that mutates it.
func (s *Solver) Render() *core.Field { return s.st.dens.Read }

// Velocity returns the current two-plane velocity field.
func (s *Solver) Velocity() *core.Field { return s.st.vel.Read }

// Pressure returns the pressure solved during the last projection.
func (s *Solver) Pressure() *core.Field { return s.st.pressure.Read }

// Divergence returns the divergence computed by the last projection or
// MaxDivergence call.
func (s *Solver) Divergence() *core.Field { return s.st.div }

// Curl returns the curl computed by the last vorticity pass.
func (s *Solver) Curl() *core.Field { return s.st.curl }

// Obstacles returns the solid mask.
func (s *Solver) Obstacles() *Obstacles { return s.st.obstacles }

// VelocityAt bilinearly samples the velocity at grid coordinates (x, y).
func (s *Solver) VelocityAt(x, y float64) (float64, float64) {
	px := clampf(float32(x)+core.Pad, 0.5, float32(s.st.w)+0.5)
	py := clampf(float32(y)+core.Pad, 0.5, float32(s.st.h)+0.5)
	f := s.st.vel.Read
	u := sampleBilinear(f.Plane(0), f.Stride(), px, py)
	v := sampleBilinear(f.Plane(1), f.Stride(), px, py)
	return float64(u), float64(v)
}

// TotalDensity sums every interior dye sample.
func (s *Solver) TotalDensity() float64 {
	f := s.st.dens.Read
	total := 0.0
	for c := 0; c < f.Comps(); c++ {
		total += floats.Sum(s.interior(f.Plane(c), nil))
	}
	return total
}

// TotalMomentum sums the interior velocity components.
func (s *Solver) TotalMomentum() (float64, float64) {
	f := s.st.vel.Read
	mx := floats.Sum(s.interior(f.Plane(0), nil))
	my := floats.Sum(s.interior(f.Plane(1), nil))
	return mx, my
}

// MaxDivergence recomputes the divergence of the current velocity and
// returns its largest magnitude over fluid cells.
func (s *Solver) MaxDivergence() float64 {
	s.st.computeDivergence(sequentialExecutor{})
	vals := s.interior(s.st.div.Plane(0), math.Abs)
	if len(vals) == 0 {
		return 0
	}
	return floats.Max(vals)
}

// MeanDivergence returns the mean divergence magnitude over interior cells,
// recomputed from the current velocity.
func (s *Solver) MeanDivergence() float64 {
	s.st.computeDivergence(sequentialExecutor{})
	vals := s.interior(s.st.div.Plane(0), math.Abs)
	if len(vals) == 0 {
		return 0
	}
	return floats.Sum(vals) / float64(len(vals))
}

// WallFlux sums the velocity pointing from fluid cells into adjacent solids.
func (s *Solver) WallFlux() float64 {
	f := s.st.vel.Read
	u, v := f.Plane(0), f.Plane(1)
	mask := s.st.mask()
	stride := s.st.stride
	s.sums = s.sums[:0]
	for y := 1; y <= s.st.h; y++ {
		for x := 1; x <= s.st.w; x++ {
			s.sums = append(s.sums, float64(wallFluxCell(u, v, mask, y*stride+x, stride)))
		}
	}
	return floats.Sum(s.sums)
}

// interior copies the interior samples of plane into the solver's scratch
// slice, optionally mapped through fn.
func (s *Solver) interior(plane []float32, fn func(float64) float64) []float64 {
	stride := s.st.stride
	s.sums = s.sums[:0]
	for y := 1; y <= s.st.h; y++ {
		row := plane[y*stride+1 : y*stride+s.st.w+1]
		for _, v := range row {
			val := float64(v)
			if fn != nil {
				val = fn(val)
			}
			s.sums = append(s.sums, val)
		}
	}
	return s.sums
}
