package fluid

import "math"

// Per-cell stencil kernels shared by the CPU backends. Each kernel reads a
// cell, its four neighbours and the obstacle mask, and returns the new value;
// none of them writes to the planes it reads. The OpenCL backend carries the
// same arithmetic in openCLSource.

// SolidThreshold is the mask value above which a cell counts as solid.
const SolidThreshold = 0.1

const (
	backtraceAttempts = 5
	backtraceShrink   = 0.9
	backtraceDecay    = 0.8
)

func isSolid(mask []float32, i int) bool { return mask[i] > SolidThreshold }

// neighbour returns x[j], or centre when j is solid (zero-gradient wall).
func neighbour(x, mask []float32, j int, centre float32) float32 {
	if isSolid(mask, j) {
		return centre
	}
	return x[j]
}

// fluidOrZero returns x[j], or zero when j is solid.
func fluidOrZero(x, mask []float32, j int) float32 {
	if isSolid(mask, j) {
		return 0
	}
	return x[j]
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// backtrace traces cell (x, y) back along (u, v) and returns the sample point.
// When the trace ends inside a solid cell the step is shrunk and retried; if no
// attempt lands in fluid the cell samples itself.
func backtrace(mask []float32, stride, w, h, x, y int, u, v, dt0 float32) (float32, float32) {
	fx, fy := float32(x), float32(y)
	maxX, maxY := float32(w)+0.5, float32(h)+0.5
	px := clampf(fx-dt0*u, 0.5, maxX)
	py := clampf(fy-dt0*v, 0.5, maxY)
	if !isSolid(mask, nearestIndex(stride, px, py)) {
		return px, py
	}
	factor := float32(backtraceShrink)
	for attempt := 0; attempt < backtraceAttempts; attempt++ {
		px = clampf(fx-factor*dt0*u, 0.5, maxX)
		py = clampf(fy-factor*dt0*v, 0.5, maxY)
		if !isSolid(mask, nearestIndex(stride, px, py)) {
			return px, py
		}
		factor *= backtraceDecay
	}
	return fx, fy
}

func nearestIndex(stride int, px, py float32) int {
	return int(py+0.5)*stride + int(px+0.5)
}

// sampleBilinear interpolates q at (px, py). The point must lie inside
// [0, W+1) x [0, H+1), which backtrace guarantees.
func sampleBilinear(q []float32, stride int, px, py float32) float32 {
	x0, y0 := int(px), int(py)
	tx, ty := px-float32(x0), py-float32(y0)
	i := y0*stride + x0
	lo := q[i] + tx*(q[i+1]-q[i])
	hi := q[i+stride] + tx*(q[i+stride+1]-q[i+stride])
	return lo + ty*(hi-lo)
}

// jacobiCell computes one generalized Jacobi update
// (alpha*sum(neighbours) + bScale*b) / beta at index i.
func jacobiCell(x, b, mask []float32, i, stride int, alpha, beta, bScale float32) float32 {
	if isSolid(mask, i) {
		return 0
	}
	c := x[i]
	sum := neighbour(x, mask, i-1, c) +
		neighbour(x, mask, i+1, c) +
		neighbour(x, mask, i-stride, c) +
		neighbour(x, mask, i+stride, c)
	return (alpha*sum + bScale*b[i]) / beta
}

// divergenceCell returns the central-difference divergence of (u, v) at i,
// reading solid neighbours as zero velocity.
func divergenceCell(u, v, mask []float32, i, stride int) float32 {
	if isSolid(mask, i) {
		return 0
	}
	du := fluidOrZero(u, mask, i+1) - fluidOrZero(u, mask, i-1)
	dv := fluidOrZero(v, mask, i+stride) - fluidOrZero(v, mask, i-stride)
	return 0.5 * (du + dv)
}

// gradientCell returns the pressure gradient at i with solid neighbours
// replaced by the centre pressure.
func gradientCell(p, mask []float32, i, stride int) (float32, float32) {
	c := p[i]
	gx := 0.5 * (neighbour(p, mask, i+1, c) - neighbour(p, mask, i-1, c))
	gy := 0.5 * (neighbour(p, mask, i+stride, c) - neighbour(p, mask, i-stride, c))
	return gx, gy
}

// curlCell returns the scalar curl of (u, v) at i.
func curlCell(u, v, mask []float32, i, stride int) float32 {
	if isSolid(mask, i) {
		return 0
	}
	return 0.5 * ((v[i+1] - v[i-1]) - (u[i+stride] - u[i-stride]))
}

// confineCell returns the vorticity confinement velocity increment at i. The
// force is perpendicular to the gradient of |curl| and vanishes where that
// gradient is shorter than eps.
func confineCell(curl, mask []float32, i, stride int, strength, eps, dt float32) (float32, float32) {
	if isSolid(mask, i) {
		return 0, 0
	}
	gx := 0.5 * (abs32(curl[i+1]) - abs32(curl[i-1]))
	gy := 0.5 * (abs32(curl[i+stride]) - abs32(curl[i-stride]))
	mag := float32(math.Sqrt(float64(gx*gx + gy*gy)))
	if mag <= eps {
		return 0, 0
	}
	gx /= mag
	gy /= mag
	c := curl[i] * strength * dt
	return c * gy, -c * gx
}

// obstacleCell clamps the velocity at i against adjacent solid faces: the
// component pointing into a wall is removed and the tangential component is
// damped by friction once per wall axis. Solid cells get zero velocity.
func obstacleCell(u, v, mask []float32, i, stride int, friction float32) (float32, float32) {
	if isSolid(mask, i) {
		return 0, 0
	}
	uu, vv := u[i], v[i]
	wallX := false
	if isSolid(mask, i+1) {
		uu = min(uu, 0)
		wallX = true
	}
	if isSolid(mask, i-1) {
		uu = max(uu, 0)
		wallX = true
	}
	wallY := false
	if isSolid(mask, i+stride) {
		vv = min(vv, 0)
		wallY = true
	}
	if isSolid(mask, i-stride) {
		vv = max(vv, 0)
		wallY = true
	}
	if wallX {
		vv *= friction
	}
	if wallY {
		uu *= friction
	}
	return uu, vv
}

// wallFluxCell returns the velocity magnitude pointing from fluid cell i into
// its solid neighbours.
func wallFluxCell(u, v, mask []float32, i, stride int) float32 {
	if isSolid(mask, i) {
		return 0
	}
	var flux float32
	if isSolid(mask, i+1) && u[i] > 0 {
		flux += u[i]
	}
	if isSolid(mask, i-1) && u[i] < 0 {
		flux -= u[i]
	}
	if isSolid(mask, i+stride) && v[i] > 0 {
		flux += v[i]
	}
	if isSolid(mask, i-stride) && v[i] < 0 {
		flux -= v[i]
	}
	return flux
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
