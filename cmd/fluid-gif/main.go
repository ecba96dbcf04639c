package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"log"
	"os"

	"github.com/CodeVermA/fluid-simulation/internal/app"
	"github.com/CodeVermA/fluid-simulation/internal/fluid"
	"github.com/CodeVermA/fluid-simulation/internal/render"

	xdraw "golang.org/x/image/draw"
)

func main() {
	cfg := app.NewConfig()
	cfg.Scale = 3
	cfg.Bind(flag.CommandLine)
	opts := recordOptions{}
	flag.IntVar(&opts.frames, "frames", 120, "frames to record")
	flag.IntVar(&opts.every, "every", 2, "solver steps per recorded frame")
	flag.StringVar(&opts.out, "out", "fluid.gif", "output file")
	flag.BoolVar(&opts.jet, "jet", true, "inject a rising jet at the bottom every step")
	flag.Float64Var(&opts.obstacle, "obstacle", 0, "radius of a circular obstacle at the centre (0 for none)")
	flag.Parse()

	if err := run(cfg, opts); err != nil {
		log.Fatal(err)
	}
}

type recordOptions struct {
	frames   int
	every    int
	out      string
	jet      bool
	obstacle float64
}

func run(cfg *app.Config, opts recordOptions) (err error) {
	fc, err := cfg.FluidConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	sim, err := fluid.New(fc)
	if err != nil {
		return fmt.Errorf("solver: %w", err)
	}
	defer func() {
		if cerr := sim.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close solver: %w", cerr)
		}
	}()

	size := sim.Size()
	if opts.obstacle > 0 {
		sim.SetCircularObstacle(float32(size.W)/2, float32(size.H)/2, float32(opts.obstacle))
	}
	sim.RandomSplats(cfg.Splats, float32(size.H)/2)

	dt := 1 / float32(max(cfg.TPS, 1))
	pal := frameColors(fc.DensityComponents)
	anim := &gif.GIF{}
	bounds := image.Rect(0, 0, size.W*cfg.Scale, size.H*cfg.Scale)
	scaled := image.NewRGBA(bounds)
	density := render.DensityPalette()
	delay := max(100*opts.every/max(cfg.TPS, 1), 2)

	for f := 0; f < opts.frames; f++ {
		for i := 0; i < max(opts.every, 1); i++ {
			if opts.jet {
				injectJet(sim)
			}
			if err := sim.Step(dt); err != nil {
				return fmt.Errorf("frame %d: %w", f, err)
			}
		}
		src := render.RGBA(sim.Render(), density)
		xdraw.NearestNeighbor.Scale(scaled, bounds, src, src.Bounds(), xdraw.Src, nil)
		frame := image.NewPaletted(bounds, pal)
		draw.FloydSteinberg.Draw(frame, bounds, scaled, image.Point{})
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, delay)
	}

	file, err := os.Create(opts.out)
	if err != nil {
		return fmt.Errorf("create %s: %w", opts.out, err)
	}
	if err := gif.EncodeAll(file, anim); err != nil {
		file.Close()
		return fmt.Errorf("encode: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", opts.out, err)
	}
	log.Printf("wrote %d frames (%dx%d, %s backend) to %s", len(anim.Image), bounds.Dx(), bounds.Dy(), sim.Backend(), opts.out)
	return nil
}

// frameColors picks the GIF palette: the density gradient for scalar dye,
// a general purpose palette for RGB dye.
func frameColors(comps int) color.Palette {
	if comps >= 3 {
		return palette.Plan9
	}
	return render.DensityPalette().Colors()
}

func injectJet(sim *fluid.Solver) {
	size := sim.Size()
	x := float32(size.W) / 2
	y := float32(size.H) * 0.9
	sim.Splat(fluid.TargetVelocity, x, y, 0, -float32(size.H)/8, 0)
	sim.Splat(fluid.TargetDensity, x, y, 0.08, 0.05, 0.02)
}
