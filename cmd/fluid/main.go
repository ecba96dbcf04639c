//go:build ebiten

package main

import (
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/CodeVermA/fluid-simulation/internal/app"
	"github.com/CodeVermA/fluid-simulation/internal/fluid"

	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	flag.Parse()

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *app.Config) (err error) {
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
	log.Printf("fluid %dx%d on %s backend", fc.Width, fc.Height, sim.Backend())

	game := app.New(sim, cfg)
	size := sim.Size()
	hudWidth := 0
	if cfg.HUD {
		hudWidth = cfg.HUDWidth
	}

	ebiten.SetWindowTitle("fluid: " + sim.Backend())
	ebiten.SetTPS(cfg.TPS)
	ebiten.SetWindowSize(size.W*cfg.Scale+hudWidth, size.H*cfg.Scale)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}
