package core

import (
	"errors"
	"slices"
	"testing"
)

func TestNewFieldRejectsInvalidSize(t *testing.T) {
	cases := []struct {
		w, h, comps int
	}{
		{0, 4, 1},
		{4, 0, 1},
		{-3, 4, 1},
		{4, 4, 0},
		{4, 4, MaxComps + 1},
	}
	for _, tc := range cases {
		if _, err := NewField(tc.w, tc.h, tc.comps); !errors.Is(err, ErrInvalidSize) {
			t.Fatalf("NewField(%d, %d, %d) error = %v, want ErrInvalidSize", tc.w, tc.h, tc.comps, err)
		}
	}
}

func TestFieldLayoutIncludesHalo(t *testing.T) {
	f, err := NewField(5, 3, 2)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	if f.Stride() != 7 {
		t.Fatalf("stride = %d, want 7", f.Stride())
	}
	if f.Len() != 7*5 {
		t.Fatalf("len = %d, want %d", f.Len(), 7*5)
	}
	if f.Comps() != 2 || len(f.Plane(1)) != f.Len() {
		t.Fatalf("unexpected plane layout: comps=%d len=%d", f.Comps(), len(f.Plane(1)))
	}

	f.SetC(1, 5, 3, 2.5)
	if got := f.Plane(1)[f.Index(5, 3)]; got != 2.5 {
		t.Fatalf("plane sample = %v, want 2.5", got)
	}
	f.Add(1, 5, 3, 0.5)
	if got := f.AtC(1, 5, 3); got != 3 {
		t.Fatalf("AtC after Add = %v, want 3", got)
	}
	if f.At(5, 3) != 0 {
		t.Fatal("writes to plane 1 must not touch plane 0")
	}

	if !f.Interior(1, 1) || !f.Interior(5, 3) {
		t.Fatal("corner interior cells reported as halo")
	}
	if f.Interior(0, 1) || f.Interior(6, 1) || f.Interior(1, 4) {
		t.Fatal("halo cells reported as interior")
	}
}

func TestFieldCopyFromRequiresSameShape(t *testing.T) {
	a, _ := NewField(4, 4, 1)
	b, _ := NewField(4, 5, 1)
	if err := a.CopyFrom(b); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("CopyFrom mismatched error = %v", err)
	}

	c, _ := NewField(4, 4, 1)
	c.Set(2, 2, 7)
	if err := a.CopyFrom(c); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	if !slices.Equal(a.Plane(0), c.Plane(0)) {
		t.Fatal("CopyFrom did not duplicate samples")
	}
	c.Set(2, 2, 1)
	if a.At(2, 2) != 7 {
		t.Fatal("CopyFrom must not alias the source plane")
	}

	a.Clear()
	for _, v := range a.Plane(0) {
		if v != 0 {
			t.Fatal("Clear left non-zero samples")
		}
	}
}

func TestDoubleFieldSwapIsInvolution(t *testing.T) {
	d, err := NewDoubleField(8, 8, 2)
	if err != nil {
		t.Fatalf("NewDoubleField: %v", err)
	}
	read, write := d.Read, d.Write
	if read == write {
		t.Fatal("double buffer halves must be distinct")
	}

	d.Swap()
	if d.Read != write || d.Write != read {
		t.Fatal("Swap did not exchange identities")
	}
	d.Swap()
	if d.Read != read || d.Write != write {
		t.Fatal("two swaps must restore the original identities")
	}
}

func TestDoubleFieldSwapDoesNotCopy(t *testing.T) {
	d, _ := NewDoubleField(3, 3, 1)
	d.Write.Set(1, 1, 4)
	d.Swap()
	if d.Read.At(1, 1) != 4 {
		t.Fatal("value written to Write not visible through Read after swap")
	}
	if d.Write.At(1, 1) != 0 {
		t.Fatal("swap must not duplicate samples into the other half")
	}
}
