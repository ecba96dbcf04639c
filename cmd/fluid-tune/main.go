package main

import (
	"flag"
	"fmt"
	"log"
	"runtime"
	"strconv"
	"strings"

	"github.com/CodeVermA/fluid-simulation/internal/app"
	"github.com/CodeVermA/fluid-simulation/internal/fluid"
)

func main() {
	steps := flag.Int("steps", 60, "steps to simulate per candidate")
	workers := flag.Int("workers", runtime.NumCPU(), "parallel candidate evaluations")
	width := flag.Int("width", 128, "grid width for tuning runs")
	height := flag.Int("height", 128, "grid height for tuning runs")
	backend := flag.String("backend", fluid.BackendSequential, "solver backend used by every candidate")
	iters := flag.String("iters", "10,20,30,40,50,80", "comma separated pressure iteration counts")
	tolerance := flag.Float64("tolerance", 0.05, "max divergence accepted when picking the fastest candidate")
	manualOnly := flag.Bool("manual", false, "skip sweeping and only evaluate provided overrides")
	var overrides app.KVList
	flag.Var(&overrides, "set", "parameter override in key=value form (repeatable)")
	flag.Parse()

	cfg := fluid.FromMap(overrides.Map())
	cfg.Width = *width
	cfg.Height = *height
	cfg.Backend = *backend
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	baseline, err := fluid.RunScenario(cfg, *steps, 0)
	if err != nil {
		log.Fatalf("baseline: %v", err)
	}
	fmt.Printf("Baseline (%d pressure iterations):\n", cfg.Params.PressureIterations)
	printResult(baseline)

	if *manualOnly {
		fmt.Println("Manual evaluation requested; skipping sweep.")
		printParams(cfg.Params)
		return
	}

	counts, err := parseCounts(*iters)
	if err != nil {
		log.Fatalf("iters: %v", err)
	}
	results, err := fluid.IterationSweep(cfg, fluid.SweepOptions{Iterations: counts, Steps: *steps, Workers: *workers})
	if err != nil {
		log.Fatalf("sweep: %v", err)
	}

	fmt.Println("\nSweep:")
	for _, r := range results {
		printResult(r)
	}

	best, ok := fluid.FastestWithin(results, *tolerance)
	if !ok {
		fmt.Printf("\nNo candidate reached max divergence %.4f; raise -iters or -tolerance.\n", *tolerance)
		return
	}
	fmt.Printf("\nFastest within tolerance %.4f:\n", *tolerance)
	printResult(best)
	cfg.Params.PressureIterations = best.PressureIterations
	printParams(cfg.Params)
}

func parseCounts(s string) ([]int, error) {
	var counts []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid iteration count %q", part)
		}
		counts = append(counts, n)
	}
	return counts, nil
}

func printResult(r fluid.ScenarioResult) {
	fmt.Printf("  iters=%3d  max div %.5f  mean div %.6f  mass drift %+.4f  wall flux %.4g  step %v\n",
		r.PressureIterations, r.MaxDivergence, r.MeanDivergence, r.MassDrift, r.WallFlux, r.StepTime)
}

func printParams(p fluid.Params) {
	fmt.Println("Parameters:")
	fmt.Printf("  grid_scale=%.3f\n", p.GridScale)
	fmt.Printf("  viscosity=%.6f\n", p.Viscosity)
	fmt.Printf("  diffusion=%.6f\n", p.Diffusion)
	fmt.Printf("  velocity_dissipation=%.4f\n", p.VelocityDissipation)
	fmt.Printf("  density_dissipation=%.4f\n", p.DensityDissipation)
	fmt.Printf("  pressure_iterations=%d\n", p.PressureIterations)
	fmt.Printf("  diffusion_iterations=%d\n", p.DiffusionIterations)
	fmt.Printf("  vorticity=%.3f\n", p.Vorticity)
	fmt.Printf("  confinement_epsilon=%.2g\n", p.ConfinementEpsilon)
	fmt.Printf("  wall_friction=%.3f\n", p.WallFriction)
	fmt.Printf("  wall_thickness=%d\n", p.WallThickness)
	fmt.Printf("  splat_radius=%.2f\n", p.SplatRadius)
}
