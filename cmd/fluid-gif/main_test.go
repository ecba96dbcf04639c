package main

import (
	"errors"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/CodeVermA/fluid-simulation/internal/app"
	"github.com/CodeVermA/fluid-simulation/internal/fluid"
)

func smallConfig() *app.Config {
	cfg := app.NewConfig()
	cfg.Width = 16
	cfg.Height = 12
	cfg.Scale = 2
	cfg.Splats = 2
	cfg.Backend = fluid.BackendSequential
	return cfg
}

func TestRunWritesAnimation(t *testing.T) {
	out := filepath.Join(t.TempDir(), "fluid.gif")
	opts := recordOptions{frames: 3, every: 1, out: out, jet: true, obstacle: 2}
	if err := run(smallConfig(), opts); err != nil {
		t.Fatalf("run: %v", err)
	}

	file, err := os.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()
	anim, err := gif.DecodeAll(file)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(anim.Image) != 3 {
		t.Fatalf("frames = %d, want 3", len(anim.Image))
	}
	if b := anim.Image[0].Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Fatalf("frame bounds = %v, want 32x24", b)
	}
}

func TestRunReturnsSolverErrors(t *testing.T) {
	cfg := smallConfig()
	cfg.Backend = "cuda"
	out := filepath.Join(t.TempDir(), "fluid.gif")
	err := run(cfg, recordOptions{frames: 1, every: 1, out: out})
	if !errors.Is(err, fluid.ErrUnknownBackend) {
		t.Fatalf("run error = %v, want ErrUnknownBackend", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("output written despite solver error: %v", statErr)
	}
}

func TestRunReportsUnwritableOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "missing", "fluid.gif")
	if err := run(smallConfig(), recordOptions{frames: 1, every: 1, out: out}); err == nil {
		t.Fatalf("run wrote to %s, want create error", out)
	}
}
