package fluid

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Executor runs a per-row function over the half-open row range [lo, hi).
// Run returns only after every row has been processed, which makes each call
// a barrier between operator passes.
type Executor interface {
	Run(lo, hi int, fn func(y int))
	Workers() int
}

type sequentialExecutor struct{}

func (sequentialExecutor) Run(lo, hi int, fn func(y int)) {
	for y := lo; y < hi; y++ {
		fn(y)
	}
}

func (sequentialExecutor) Workers() int { return 1 }

// minRowsPerTask keeps small grids from paying goroutine overhead per pass.
const minRowsPerTask = 8

type parallelExecutor struct {
	workers int
}

// NewExecutor returns a sequential executor for workers == 1 and a goroutine
// fan-out over row bands otherwise. workers <= 0 selects runtime.NumCPU.
func NewExecutor(workers int) Executor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers == 1 {
		return sequentialExecutor{}
	}
	return &parallelExecutor{workers: workers}
}

func (p *parallelExecutor) Workers() int { return p.workers }

func (p *parallelExecutor) Run(lo, hi int, fn func(y int)) {
	rows := hi - lo
	if rows <= 0 {
		return
	}
	tasks := min(p.workers, rows/minRowsPerTask)
	if tasks <= 1 {
		sequentialExecutor{}.Run(lo, hi, fn)
		return
	}
	chunk := (rows + tasks - 1) / tasks
	var g errgroup.Group
	for start := lo; start < hi; start += chunk {
		end := min(start+chunk, hi)
		g.Go(func() error {
			for y := start; y < end; y++ {
				fn(y)
			}
			return nil
		})
	}
	// Band closures never return an error; Wait is the barrier.
	g.Wait() //nolint:errcheck
}
