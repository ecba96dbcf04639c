package app

import (
	"errors"
	"flag"
	"testing"

	"github.com/CodeVermA/fluid-simulation/internal/core"
	"github.com/CodeVermA/fluid-simulation/internal/fluid"
)

func TestBindParsesFlags(t *testing.T) {
	cfg := NewConfig()
	fs := flag.NewFlagSet("fluid", flag.ContinueOnError)
	cfg.Bind(fs)
	err := fs.Parse([]string{
		"-w", "64", "-h", "48", "-backend", "sequential", "-walls", "top,bottom",
		"-seed", "9", "-set", "vorticity=3", "-set", "pressure_iterations=15", "-set", "w=999",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	fc, err := cfg.FluidConfig()
	if err != nil {
		t.Fatalf("FluidConfig: %v", err)
	}
	if fc.Width != 64 || fc.Height != 48 {
		t.Fatalf("size = %dx%d, want explicit flags to win", fc.Width, fc.Height)
	}
	if fc.Backend != fluid.BackendSequential || fc.Seed != 9 {
		t.Fatalf("unexpected config %+v", fc)
	}
	if fc.Walls != (fluid.Walls{Top: true, Bottom: true}) {
		t.Fatalf("walls = %+v", fc.Walls)
	}
	if fc.Params.Vorticity != 3 || fc.Params.PressureIterations != 15 {
		t.Fatalf("overrides not applied: %+v", fc.Params)
	}
}

func TestSetRejectsMalformedOverride(t *testing.T) {
	var l KVList
	if err := l.Set("vorticity"); err == nil {
		t.Fatal("override without '=' accepted")
	}
	if err := l.Set(" viscosity = 0.001 "); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := l.Map()["viscosity"]; got != "0.001" {
		t.Fatalf("trimmed value = %q", got)
	}
}

func TestFluidConfigRejectsBadInput(t *testing.T) {
	cfg := NewConfig()
	cfg.Walls = "upwards"
	if _, err := cfg.FluidConfig(); !errors.Is(err, fluid.ErrInvalidConfig) {
		t.Fatalf("bad walls error = %v", err)
	}

	cfg = NewConfig()
	cfg.Width = 0
	if _, err := cfg.FluidConfig(); !errors.Is(err, core.ErrInvalidSize) {
		t.Fatalf("zero width error = %v", err)
	}

	cfg = NewConfig()
	cfg.Scale = 0
	if _, err := cfg.FluidConfig(); !errors.Is(err, fluid.ErrInvalidConfig) {
		t.Fatalf("zero scale error = %v", err)
	}
}
