package core

import "testing"

func TestRNGDeterministic(t *testing.T) {
	a := NewRNG(42)
	b := NewRNG(42)
	for i := 0; i < 64; i++ {
		if a.Float32() != b.Float32() {
			t.Fatalf("sequences diverged at draw %d", i)
		}
	}
}

func TestRNGRangeAndHue(t *testing.T) {
	r := NewRNG(7)
	for i := 0; i < 1000; i++ {
		v := r.Range(-2, 3)
		if v < -2 || v >= 3 {
			t.Fatalf("Range produced %v outside [-2, 3)", v)
		}
		cr, cg, cb := r.Hue()
		for _, c := range []float32{cr, cg, cb} {
			if c < 0 || c > 1 {
				t.Fatalf("Hue component %v outside [0, 1]", c)
			}
		}
		if max(cr, cg, cb) != 1 {
			t.Fatalf("Hue (%v, %v, %v) is not fully saturated", cr, cg, cb)
		}
	}
	if r.Range(1, 1) != 1 {
		t.Fatal("empty range must return its lower bound")
	}
	if r.IntN(0) != 0 {
		t.Fatal("IntN(0) must return 0")
	}
}
