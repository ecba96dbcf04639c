package fluid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/CodeVermA/fluid-simulation/internal/core"
)

// ErrInvalidConfig reports a parameter outside its supported range.
var ErrInvalidConfig = errors.New("invalid fluid config")

// Params holds the physical and numerical tunables of the solver. They may be
// changed between steps.
type Params struct {
	// GridScale is the number of cells per unit length. Zero selects
	// max(Width, Height).
	GridScale float64

	Viscosity           float64
	Diffusion           float64
	VelocityDissipation float64
	DensityDissipation  float64

	PressureIterations  int
	DiffusionIterations int

	Vorticity          float64
	ConfinementEpsilon float64

	WallFriction  float64
	WallThickness int

	// SplatRadius is the Gaussian falloff radius of injections, in cells.
	SplatRadius float64
}

// Walls selects which domain edges carry a solid band.
type Walls struct {
	Top    bool
	Bottom bool
	Left   bool
	Right  bool
}

// AllWalls encloses the domain on every side.
var AllWalls = Walls{Top: true, Bottom: true, Left: true, Right: true}

// String renders the walls in the comma separated form accepted by ParseWalls.
func (w Walls) String() string {
	var parts []string
	if w.Top {
		parts = append(parts, "top")
	}
	if w.Bottom {
		parts = append(parts, "bottom")
	}
	if w.Left {
		parts = append(parts, "left")
	}
	if w.Right {
		parts = append(parts, "right")
	}
	if len(parts) == 0 {
		return "none"
	}
	if len(parts) == 4 {
		return "all"
	}
	return strings.Join(parts, ",")
}

// ParseWalls parses "all", "none" or a comma separated list of edges.
func ParseWalls(s string) (Walls, error) {
	var w Walls
	for _, part := range strings.Split(s, ",") {
		switch strings.TrimSpace(strings.ToLower(part)) {
		case "", "none":
		case "all":
			w = AllWalls
		case "top":
			w.Top = true
		case "bottom":
			w.Bottom = true
		case "left":
			w.Left = true
		case "right":
			w.Right = true
		default:
			return Walls{}, fmt.Errorf("%w: unknown wall %q", ErrInvalidConfig, part)
		}
	}
	return w, nil
}

// Config controls the solver dimensions, execution backend and tunables.
type Config struct {
	Width  int
	Height int

	// Backend names a registered execution backend.
	Backend string
	// Workers bounds the goroutines of the parallel backend. Zero selects
	// runtime.NumCPU.
	Workers int
	// DensityComponents is the number of dye planes: 1 for a scalar density,
	// 3 for an RGB dye.
	DensityComponents int

	Seed  int64
	Walls Walls

	Params Params
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		Width:             128,
		Height:            128,
		Backend:           BackendParallel,
		DensityComponents: 3,
		Seed:              1337,
		Params:            DefaultParams(),
	}
}

// DefaultParams returns the standard tunables.
func DefaultParams() Params {
	return Params{
		Viscosity:           0,
		Diffusion:           0,
		VelocityDissipation: 0.995,
		DensityDissipation:  0.99,
		PressureIterations:  40,
		DiffusionIterations: 20,
		Vorticity:           12,
		ConfinementEpsilon:  1e-5,
		WallFriction:        0.99,
		WallThickness:       2,
		SplatRadius:         5,
	}
}

// Scale returns the effective cells-per-unit factor for a w x h grid.
func (p Params) Scale(w, h int) float32 {
	if p.GridScale > 0 {
		return float32(p.GridScale)
	}
	return float32(max(w, h))
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", core.ErrInvalidSize, c.Width, c.Height)
	}
	if c.DensityComponents < 1 || c.DensityComponents > core.MaxComps {
		return fmt.Errorf("%w: density components %d not in [1, %d]", ErrInvalidConfig, c.DensityComponents, core.MaxComps)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers %d", ErrInvalidConfig, c.Workers)
	}
	return c.Params.Validate()
}

// Validate reports the first out-of-range tunable.
func (p Params) Validate() error {
	switch {
	case p.GridScale < 0:
		return fmt.Errorf("%w: grid scale %v", ErrInvalidConfig, p.GridScale)
	case p.Viscosity < 0:
		return fmt.Errorf("%w: viscosity %v", ErrInvalidConfig, p.Viscosity)
	case p.Diffusion < 0:
		return fmt.Errorf("%w: diffusion %v", ErrInvalidConfig, p.Diffusion)
	case p.VelocityDissipation <= 0 || p.VelocityDissipation > 1:
		return fmt.Errorf("%w: velocity dissipation %v not in (0, 1]", ErrInvalidConfig, p.VelocityDissipation)
	case p.DensityDissipation <= 0 || p.DensityDissipation > 1:
		return fmt.Errorf("%w: density dissipation %v not in (0, 1]", ErrInvalidConfig, p.DensityDissipation)
	case p.PressureIterations < 1:
		return fmt.Errorf("%w: pressure iterations %d", ErrInvalidConfig, p.PressureIterations)
	case p.DiffusionIterations < 0:
		return fmt.Errorf("%w: diffusion iterations %d", ErrInvalidConfig, p.DiffusionIterations)
	case p.Vorticity < 0:
		return fmt.Errorf("%w: vorticity %v", ErrInvalidConfig, p.Vorticity)
	case p.ConfinementEpsilon < 0:
		return fmt.Errorf("%w: confinement epsilon %v", ErrInvalidConfig, p.ConfinementEpsilon)
	case p.WallFriction < 0 || p.WallFriction > 1:
		return fmt.Errorf("%w: wall friction %v not in [0, 1]", ErrInvalidConfig, p.WallFriction)
	case p.WallThickness < 1:
		return fmt.Errorf("%w: wall thickness %d", ErrInvalidConfig, p.WallThickness)
	case p.SplatRadius <= 0:
		return fmt.Errorf("%w: splat radius %v", ErrInvalidConfig, p.SplatRadius)
	}
	return nil
}

// FromMap populates the config from a string map (flag-style key/value pairs).
// Malformed or out-of-range values are ignored.
func FromMap(cfg map[string]string) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	if v, ok := cfg["w"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			c.Width = parsed
		}
	}
	if v, ok := cfg["h"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			c.Height = parsed
		}
	}
	if v, ok := cfg["backend"]; ok && v != "" {
		c.Backend = v
	}
	if v, ok := cfg["workers"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			c.Workers = parsed
		}
	}
	if v, ok := cfg["dye"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 1 && parsed <= core.MaxComps {
			c.DensityComponents = parsed
		}
	}
	if v, ok := cfg["seed"]; ok {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Seed = parsed
		}
	}
	if v, ok := cfg["walls"]; ok {
		if parsed, err := ParseWalls(v); err == nil {
			c.Walls = parsed
		}
	}
	for key, value := range cfg {
		applyParam(&c.Params, key, value)
	}
	return c
}

// ApplyParam parses value into the tunable named key. It reports whether the
// key was recognised and the value accepted.
func ApplyParam(p *Params, key, value string) bool {
	return applyParam(p, key, value)
}

func applyParam(p *Params, key, value string) bool {
	if spec, ok := floatParams[key]; ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil || !spec.accept(parsed) {
			return false
		}
		*spec.field(p) = parsed
		return true
	}
	if spec, ok := intParams[key]; ok {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < spec.min {
			return false
		}
		*spec.field(p) = parsed
		return true
	}
	return false
}

type floatParamSpec struct {
	field  func(*Params) *float64
	min    float64
	max    float64
	hasMax bool
	open   bool
}

func (s floatParamSpec) accept(v float64) bool {
	if v < s.min || (s.open && v == s.min) {
		return false
	}
	return !s.hasMax || v <= s.max
}

type intParamSpec struct {
	field func(*Params) *int
	min   int
}

var floatParams = map[string]floatParamSpec{
	"grid_scale":           {field: func(p *Params) *float64 { return &p.GridScale }},
	"viscosity":            {field: func(p *Params) *float64 { return &p.Viscosity }},
	"diffusion":            {field: func(p *Params) *float64 { return &p.Diffusion }},
	"velocity_dissipation": {field: func(p *Params) *float64 { return &p.VelocityDissipation }, max: 1, hasMax: true, open: true},
	"density_dissipation":  {field: func(p *Params) *float64 { return &p.DensityDissipation }, max: 1, hasMax: true, open: true},
	"vorticity":            {field: func(p *Params) *float64 { return &p.Vorticity }},
	"confinement_epsilon":  {field: func(p *Params) *float64 { return &p.ConfinementEpsilon }},
	"wall_friction":        {field: func(p *Params) *float64 { return &p.WallFriction }, max: 1, hasMax: true},
	"splat_radius":         {field: func(p *Params) *float64 { return &p.SplatRadius }, open: true},
}

var intParams = map[string]intParamSpec{
	"pressure_iterations":  {field: func(p *Params) *int { return &p.PressureIterations }, min: 1},
	"diffusion_iterations": {field: func(p *Params) *int { return &p.DiffusionIterations }},
	"wall_thickness":       {field: func(p *Params) *int { return &p.WallThickness }, min: 1},
}
