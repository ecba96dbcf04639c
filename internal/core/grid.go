package core

import (
	"errors"
	"fmt"
)

// Pad is the width of the halo ring surrounding the interior of every Field.
const Pad = 1

// MaxComps bounds the number of planes a Field may carry.
const MaxComps = 3

var (
	// ErrInvalidSize reports non-positive dimensions or an unsupported
	// component count.
	ErrInvalidSize = errors.New("invalid field size")
	// ErrShapeMismatch reports an operation between differently shaped fields.
	ErrShapeMismatch = errors.New("field shape mismatch")
)

// Field stores one or more planes of float32 samples over a padded grid in
// row-major order. Interior cells occupy x in [1, W] and y in [1, H]; the ring
// at x = 0, x = W+1, y = 0 and y = H+1 only ever holds boundary values.
type Field struct {
	W, H   int
	stride int
	planes [][]float32
}

// NewField allocates a zeroed field with the given interior dimensions and
// number of component planes.
func NewField(w, h, comps int) (*Field, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, w, h)
	}
	if comps < 1 || comps > MaxComps {
		return nil, fmt.Errorf("%w: %d components", ErrInvalidSize, comps)
	}
	stride := w + 2*Pad
	n := stride * (h + 2*Pad)
	planes := make([][]float32, comps)
	for c := range planes {
		planes[c] = make([]float32, n)
	}
	return &Field{W: w, H: h, stride: stride, planes: planes}, nil
}

// Stride returns the distance between vertically adjacent samples.
func (f *Field) Stride() int { return f.stride }

// Len returns the number of samples per plane, halo included.
func (f *Field) Len() int { return f.stride * (f.H + 2*Pad) }

// Comps returns the number of component planes.
func (f *Field) Comps() int { return len(f.planes) }

// Plane exposes the backing slice of component c so callers can read/write
// samples directly.
func (f *Field) Plane(c int) []float32 { return f.planes[c] }

// Index returns the linear slice index for padded coordinates (x, y).
func (f *Field) Index(x, y int) int { return y*f.stride + x }

// At returns the first component at padded coordinates (x, y).
func (f *Field) At(x, y int) float32 { return f.planes[0][y*f.stride+x] }

// Set writes the first component at padded coordinates (x, y).
func (f *Field) Set(x, y int, v float32) { f.planes[0][y*f.stride+x] = v }

// AtC returns component c at padded coordinates (x, y).
func (f *Field) AtC(c, x, y int) float32 { return f.planes[c][y*f.stride+x] }

// SetC writes component c at padded coordinates (x, y).
func (f *Field) SetC(c, x, y int, v float32) { f.planes[c][y*f.stride+x] = v }

// Add accumulates v into component c at padded coordinates (x, y).
func (f *Field) Add(c, x, y int, v float32) { f.planes[c][y*f.stride+x] += v }

// Interior reports whether padded coordinates (x, y) address an interior cell.
func (f *Field) Interior(x, y int) bool {
	return x >= Pad && x <= f.W && y >= Pad && y <= f.H
}

// SameShape reports whether o has the same dimensions and plane count.
func (f *Field) SameShape(o *Field) bool {
	return o != nil && f.W == o.W && f.H == o.H && len(f.planes) == len(o.planes)
}

// Clear fills every plane with zeros.
func (f *Field) Clear() {
	for _, p := range f.planes {
		clear(p)
	}
}

// CopyFrom overwrites the field with the contents of src.
func (f *Field) CopyFrom(src *Field) error {
	if !f.SameShape(src) {
		return ErrShapeMismatch
	}
	for c, p := range f.planes {
		copy(p, src.planes[c])
	}
	return nil
}

// DoubleField pairs two identically shaped fields. Operators read from Read,
// write into Write and then call Swap.
type DoubleField struct {
	Read  *Field
	Write *Field
}

// NewDoubleField allocates both halves of a double buffer.
func NewDoubleField(w, h, comps int) (*DoubleField, error) {
	read, err := NewField(w, h, comps)
	if err != nil {
		return nil, err
	}
	write, err := NewField(w, h, comps)
	if err != nil {
		return nil, err
	}
	return &DoubleField{Read: read, Write: write}, nil
}

// Swap exchanges the read and write identities without copying samples.
func (d *DoubleField) Swap() { d.Read, d.Write = d.Write, d.Read }

// Clear zeroes both halves.
func (d *DoubleField) Clear() {
	d.Read.Clear()
	d.Write.Clear()
}
