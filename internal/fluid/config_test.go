package fluid

import (
	"errors"
	"testing"
)

func TestFromMapOverrides(t *testing.T) {
	cfg := FromMap(map[string]string{
		"w":                   "96",
		"h":                   "64",
		"backend":             BackendSequential,
		"workers":             "3",
		"dye":                 "1",
		"seed":                "42",
		"walls":               "top,left",
		"viscosity":           "0.0002",
		"pressure_iterations": "25",
		"vorticity":           "7.5",
		"wall_thickness":      "3",
	})

	if cfg.Width != 96 || cfg.Height != 64 {
		t.Fatalf("size = %dx%d, want 96x64", cfg.Width, cfg.Height)
	}
	if cfg.Backend != BackendSequential || cfg.Workers != 3 || cfg.DensityComponents != 1 || cfg.Seed != 42 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Walls != (Walls{Top: true, Left: true}) {
		t.Fatalf("walls = %+v", cfg.Walls)
	}
	p := cfg.Params
	if p.Viscosity != 0.0002 || p.PressureIterations != 25 || p.Vorticity != 7.5 || p.WallThickness != 3 {
		t.Fatalf("unexpected params %+v", p)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestFromMapIgnoresMalformedValues(t *testing.T) {
	def := DefaultConfig()
	cfg := FromMap(map[string]string{
		"w":                    "-4",
		"h":                    "tall",
		"dye":                  "9",
		"walls":                "sideways",
		"velocity_dissipation": "1.2",
		"density_dissipation":  "0",
		"pressure_iterations":  "0",
		"splat_radius":         "nope",
		"unknown":              "1",
	})
	if cfg != def {
		t.Fatalf("malformed overrides changed config: %+v", cfg)
	}
	if FromMap(nil) != def {
		t.Fatal("nil map must yield the default config")
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	cases := map[string]func(*Config){
		"workers":        func(c *Config) { c.Workers = -1 },
		"dye":            func(c *Config) { c.DensityComponents = 0 },
		"grid scale":     func(c *Config) { c.Params.GridScale = -1 },
		"viscosity":      func(c *Config) { c.Params.Viscosity = -0.1 },
		"vel dissip":     func(c *Config) { c.Params.VelocityDissipation = 0 },
		"dens dissip":    func(c *Config) { c.Params.DensityDissipation = 1.01 },
		"diffusion iter": func(c *Config) { c.Params.DiffusionIterations = -1 },
		"friction":       func(c *Config) { c.Params.WallFriction = 2 },
		"thickness":      func(c *Config) { c.Params.WallThickness = 0 },
		"splat radius":   func(c *Config) { c.Params.SplatRadius = 0 },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: Validate error = %v, want ErrInvalidConfig", name, err)
		}
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestParseWalls(t *testing.T) {
	cases := map[string]Walls{
		"":                {},
		"none":            {},
		"all":             AllWalls,
		"top":             {Top: true},
		"Bottom, right":   {Bottom: true, Right: true},
		"left,right,top":  {Left: true, Right: true, Top: true},
		"top,bottom,left": {Top: true, Bottom: true, Left: true},
	}
	for in, want := range cases {
		got, err := ParseWalls(in)
		if err != nil {
			t.Fatalf("ParseWalls(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseWalls(%q) = %+v, want %+v", in, got, want)
		}
		round, err := ParseWalls(got.String())
		if err != nil || round != got {
			t.Fatalf("ParseWalls(%q.String()) = %+v, %v", in, round, err)
		}
	}
	if _, err := ParseWalls("top,diagonal"); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("unknown wall error = %v, want ErrInvalidConfig", err)
	}
	if AllWalls.String() != "all" || (Walls{}).String() != "none" {
		t.Fatal("unexpected wall names")
	}
}

func TestScaleDefaultsToLongestSide(t *testing.T) {
	p := DefaultParams()
	if got := p.Scale(96, 64); got != 96 {
		t.Fatalf("Scale = %v, want 96", got)
	}
	p.GridScale = 50
	if got := p.Scale(96, 64); got != 50 {
		t.Fatalf("Scale = %v, want 50", got)
	}
}

func TestApplyParam(t *testing.T) {
	p := DefaultParams()
	if !ApplyParam(&p, "wall_friction", "0.5") || p.WallFriction != 0.5 {
		t.Fatal("wall_friction not applied")
	}
	if ApplyParam(&p, "wall_friction", "1.5") || p.WallFriction != 0.5 {
		t.Fatal("out of range wall_friction applied")
	}
	if !ApplyParam(&p, "diffusion_iterations", "0") || p.DiffusionIterations != 0 {
		t.Fatal("zero diffusion iterations rejected")
	}
	if ApplyParam(&p, "w", "10") {
		t.Fatal("grid key accepted as a tunable")
	}
}
