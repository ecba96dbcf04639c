package fluid

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestRunScenarioRejectsZeroSteps(t *testing.T) {
	if _, err := RunScenario(DefaultConfig(), 0, 1.0/60); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("RunScenario(0 steps) error = %v, want ErrInvalidConfig", err)
	}
}

func TestRunScenarioKeepsWallsTight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width = 32
	cfg.Height = 32
	cfg.Backend = BackendSequential

	res, err := RunScenario(cfg, 20, 1.0/60)
	if err != nil {
		t.Fatalf("RunScenario: %v", err)
	}
	if res.Steps != 20 || res.PressureIterations != cfg.Params.PressureIterations {
		t.Fatalf("unexpected result header %+v", res)
	}
	if res.WallFlux != 0 {
		t.Fatalf("wall flux %v, want 0", res.WallFlux)
	}
	if math.IsNaN(res.MassDrift) || math.IsNaN(res.MaxDivergence) {
		t.Fatalf("non-finite telemetry %+v", res)
	}
	if res.MeanDivergence > res.MaxDivergence {
		t.Fatalf("mean divergence %.4f above max %.4f", res.MeanDivergence, res.MaxDivergence)
	}
}

func TestIterationSweepMoreIterationsLessDivergence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width = 48
	cfg.Height = 48
	cfg.Backend = BackendSequential

	results, err := IterationSweep(cfg, SweepOptions{Iterations: []int{50, 5, 50}, Steps: 1, Workers: 2})
	if err != nil {
		t.Fatalf("IterationSweep: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 after de-duplication", len(results))
	}
	if results[0].PressureIterations != 5 || results[1].PressureIterations != 50 {
		t.Fatalf("results not sorted by iterations: %d, %d", results[0].PressureIterations, results[1].PressureIterations)
	}
	if results[1].MaxDivergence >= results[0].MaxDivergence {
		t.Fatalf("50 iterations left divergence %.4f, 5 iterations %.4f", results[1].MaxDivergence, results[0].MaxDivergence)
	}
}

func TestFastestWithin(t *testing.T) {
	results := []ScenarioResult{
		{PressureIterations: 10, MaxDivergence: 0.5, StepTime: 1 * time.Millisecond},
		{PressureIterations: 20, MaxDivergence: 0.05, StepTime: 3 * time.Millisecond},
		{PressureIterations: 30, MaxDivergence: 0.01, StepTime: 2 * time.Millisecond},
	}
	best, ok := FastestWithin(results, 0.1)
	if !ok || best.PressureIterations != 30 {
		t.Fatalf("FastestWithin = %+v, %v; want 30 iterations", best, ok)
	}
	if _, ok := FastestWithin(results, 0.001); ok {
		t.Fatal("no result meets the tolerance")
	}
}
