package fluid

import (
	"runtime"
	"sync/atomic"
	"testing"
)

func TestExecutorVisitsEveryRowOnce(t *testing.T) {
	ranges := []struct{ lo, hi int }{
		{0, 0},
		{1, 2},
		{1, 9},
		{1, 17},
		{1, 65},
		{3, 130},
	}
	for name, exec := range testExecutors {
		for _, r := range ranges {
			visits := make([]atomic.Int32, r.hi+1)
			exec.Run(r.lo, r.hi, func(y int) {
				visits[y].Add(1)
			})
			for y := range visits {
				want := int32(0)
				if y >= r.lo && y < r.hi {
					want = 1
				}
				if got := visits[y].Load(); got != want {
					t.Fatalf("%s: Run(%d, %d) visited row %d %d times, want %d", name, r.lo, r.hi, y, got, want)
				}
			}
		}
	}
}

func TestNewExecutorWorkers(t *testing.T) {
	if _, ok := NewExecutor(1).(sequentialExecutor); !ok {
		t.Fatalf("NewExecutor(1) = %T, want sequentialExecutor", NewExecutor(1))
	}
	if got := NewExecutor(6).Workers(); got != 6 {
		t.Fatalf("NewExecutor(6).Workers() = %d, want 6", got)
	}
	if got, want := NewExecutor(0).Workers(), runtime.NumCPU(); got != want {
		t.Fatalf("NewExecutor(0).Workers() = %d, want %d", got, want)
	}
}
