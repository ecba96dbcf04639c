//go:build opencl

package fluid

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"
)

const openCLSource = `
#define IS_SOLID(j) (mask[(j)] > SOLID_THRESHOLD)
#define NEIGHBOUR(q, j, c) (IS_SOLID(j) ? (c) : (q)[(j)])
#define FLUID_OR_ZERO(q, j) (IS_SOLID(j) ? 0.0f : (q)[(j)])
#define NEAREST(px, py) ((int)((py) + 0.5f) * stride + (int)((px) + 0.5f))
#define INTERIOR_PROLOGUE \
    int stride = w + 2; \
    int i = get_global_id(0); \
    if (i >= stride * (h + 2)) return; \
    int x = i % stride; \
    int y = i / stride; \
    if (x < 1 || x > w || y < 1 || y > h) return;

__kernel void advect(
    const int w,
    const int h,
    const float dt0,
    const float dissipation,
    __global const float* u,
    __global const float* v,
    __global const float* mask,
    __global const float* src,
    __global float* dst)
{
    INTERIOR_PROLOGUE
    if (IS_SOLID(i)) {
        dst[i] = 0.0f;
        return;
    }
    float fx = (float)x;
    float fy = (float)y;
    float max_x = (float)w + 0.5f;
    float max_y = (float)h + 0.5f;
    float px = clamp(fx - dt0 * u[i], 0.5f, max_x);
    float py = clamp(fy - dt0 * v[i], 0.5f, max_y);
    if (IS_SOLID(NEAREST(px, py))) {
        float factor = BACKTRACE_SHRINK;
        int found = 0;
        for (int a = 0; a < BACKTRACE_ATTEMPTS && !found; a++) {
            px = clamp(fx - factor * dt0 * u[i], 0.5f, max_x);
            py = clamp(fy - factor * dt0 * v[i], 0.5f, max_y);
            found = !IS_SOLID(NEAREST(px, py));
            factor *= BACKTRACE_DECAY;
        }
        if (!found) {
            px = fx;
            py = fy;
        }
    }
    int x0 = (int)px;
    int y0 = (int)py;
    float tx = px - (float)x0;
    float ty = py - (float)y0;
    int j = y0 * stride + x0;
    float lo = src[j] + tx * (src[j + 1] - src[j]);
    float hi = src[j + stride] + tx * (src[j + stride + 1] - src[j + stride]);
    dst[i] = dissipation * (lo + ty * (hi - lo));
}

__kernel void jacobi(
    const int w,
    const int h,
    const float alpha,
    const float beta,
    const float b_scale,
    __global const float* q,
    __global const float* b,
    __global const float* mask,
    __global float* out)
{
    INTERIOR_PROLOGUE
    if (IS_SOLID(i)) {
        out[i] = 0.0f;
        return;
    }
    float c = q[i];
    float sum = NEIGHBOUR(q, i - 1, c) + NEIGHBOUR(q, i + 1, c) +
                NEIGHBOUR(q, i - stride, c) + NEIGHBOUR(q, i + stride, c);
    out[i] = (alpha * sum + b_scale * b[i]) / beta;
}

__kernel void divergence(
    const int w,
    const int h,
    __global const float* u,
    __global const float* v,
    __global const float* mask,
    __global float* out)
{
    INTERIOR_PROLOGUE
    if (IS_SOLID(i)) {
        out[i] = 0.0f;
        return;
    }
    float du = FLUID_OR_ZERO(u, i + 1) - FLUID_OR_ZERO(u, i - 1);
    float dv = FLUID_OR_ZERO(v, i + stride) - FLUID_OR_ZERO(v, i - stride);
    out[i] = 0.5f * (du + dv);
}

__kernel void gradient(
    const int w,
    const int h,
    __global const float* p,
    __global const float* mask,
    __global const float* u,
    __global const float* v,
    __global float* out_u,
    __global float* out_v)
{
    INTERIOR_PROLOGUE
    if (IS_SOLID(i)) {
        out_u[i] = 0.0f;
        out_v[i] = 0.0f;
        return;
    }
    float c = p[i];
    out_u[i] = u[i] - 0.5f * (NEIGHBOUR(p, i + 1, c) - NEIGHBOUR(p, i - 1, c));
    out_v[i] = v[i] - 0.5f * (NEIGHBOUR(p, i + stride, c) - NEIGHBOUR(p, i - stride, c));
}

__kernel void curl(
    const int w,
    const int h,
    __global const float* u,
    __global const float* v,
    __global const float* mask,
    __global float* out)
{
    INTERIOR_PROLOGUE
    if (IS_SOLID(i)) {
        out[i] = 0.0f;
        return;
    }
    out[i] = 0.5f * ((v[i + 1] - v[i - 1]) - (u[i + stride] - u[i - stride]));
}

__kernel void confine(
    const int w,
    const int h,
    const float strength,
    const float eps,
    const float dt,
    __global const float* vort,
    __global const float* mask,
    __global const float* u,
    __global const float* v,
    __global float* out_u,
    __global float* out_v)
{
    INTERIOR_PROLOGUE
    float du = 0.0f;
    float dv = 0.0f;
    if (!IS_SOLID(i)) {
        float gx = 0.5f * (fabs(vort[i + 1]) - fabs(vort[i - 1]));
        float gy = 0.5f * (fabs(vort[i + stride]) - fabs(vort[i - stride]));
        float mag = sqrt(gx * gx + gy * gy);
        if (mag > eps) {
            float c = vort[i] * strength * dt;
            du = c * gy / mag;
            dv = -c * gx / mag;
        }
    }
    out_u[i] = u[i] + du;
    out_v[i] = v[i] + dv;
}

__kernel void obstacle(
    const int w,
    const int h,
    const float friction,
    __global const float* mask,
    __global float* u,
    __global float* v)
{
    INTERIOR_PROLOGUE
    if (IS_SOLID(i)) {
        u[i] = 0.0f;
        v[i] = 0.0f;
        return;
    }
    float uu = u[i];
    float vv = v[i];
    int wall_x = 0;
    int wall_y = 0;
    if (IS_SOLID(i + 1)) { uu = fmin(uu, 0.0f); wall_x = 1; }
    if (IS_SOLID(i - 1)) { uu = fmax(uu, 0.0f); wall_x = 1; }
    if (IS_SOLID(i + stride)) { vv = fmin(vv, 0.0f); wall_y = 1; }
    if (IS_SOLID(i - stride)) { vv = fmax(vv, 0.0f); wall_y = 1; }
    if (wall_x) { vv *= friction; }
    if (wall_y) { uu *= friction; }
    u[i] = uu;
    v[i] = vv;
}

__kernel void edges(
    const int w,
    const int h,
    const int tag,
    __global float* q)
{
    int i = get_global_id(0);
    int stride = w + 2;
    float sx = tag == 1 ? -1.0f : 1.0f;
    float sy = tag == 2 ? -1.0f : 1.0f;
    if (i >= 1 && i <= h) {
        int row = i * stride;
        q[row] = sx * q[row + 1];
        q[row + w + 1] = sx * q[row + w];
    }
    if (i >= 1 && i <= w) {
        q[i] = sy * q[stride + i];
        q[(h + 1) * stride + i] = sy * q[h * stride + i];
    }
    if (i == 0) {
        float k = 0.5f * (sx + sy);
        q[0] = k * q[stride + 1];
        q[w + 1] = k * q[stride + w];
        q[(h + 1) * stride] = k * q[h * stride + 1];
        q[(h + 1) * stride + w + 1] = k * q[h * stride + w];
    }
}

__kernel void fill(const int n, const float value, __global float* q)
{
    int i = get_global_id(0);
    if (i < n) {
        q[i] = value;
    }
}

__kernel void copy_buffer(const int n, __global const float* src, __global float* dst)
{
    int i = get_global_id(0);
    if (i < n) {
        dst[i] = src[i];
    }
}
`

var openCLKernels = []string{"advect", "jacobi", "divergence", "gradient", "curl", "confine", "obstacle", "edges", "fill", "copy_buffer"}

func openCLProgram() string {
	header := fmt.Sprintf("#define SOLID_THRESHOLD %gf\n#define BACKTRACE_ATTEMPTS %d\n#define BACKTRACE_SHRINK %gf\n#define BACKTRACE_DECAY %gf\n",
		SolidThreshold, backtraceAttempts, backtraceShrink, backtraceDecay)
	return header + openCLSource
}

type clPair struct {
	read  *cl.MemObject
	write *cl.MemObject
}

func (p *clPair) swap() { p.read, p.write = p.write, p.read }

// openCLBackend runs one work-item per padded cell. The command queue is
// in-order, so every enqueued pass sees the results of the previous one.
type openCLBackend struct {
	context *cl.Context
	queue   *cl.CommandQueue
	program *cl.Program
	kernels map[string]*cl.Kernel

	w, h, n    int
	deviceName string

	velU     clPair
	velV     clPair
	dens     []clPair
	pressure clPair
	div      *cl.MemObject
	curl     *cl.MemObject
	mask     *cl.MemObject
	source   []*cl.MemObject

	buffers     []*cl.MemObject
	maskVersion uint64
	synced      bool
}

func init() {
	RegisterBackend(BackendOpenCL, newOpenCLBackend)
}

func newOpenCLBackend(cfg Config) (Backend, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "querying OpenCL platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms; install OpenCL drivers and verify with `clinfo`"
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, msg, err)
	}
	device := pickDevice(platforms, cl.DeviceTypeGPU)
	if device == nil {
		device = pickDevice(platforms, cl.DeviceTypeCPU)
	}
	if device == nil {
		return nil, fmt.Errorf("%w: no suitable OpenCL devices found", ErrBackendUnavailable)
	}

	b := &openCLBackend{
		w:          cfg.Width,
		h:          cfg.Height,
		n:          (cfg.Width + 2) * (cfg.Height + 2),
		deviceName: device.Name(),
		kernels:    make(map[string]*cl.Kernel, len(openCLKernels)),
	}
	if err := b.setup(device, cfg); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func pickDevice(platforms []*cl.Platform, kind cl.DeviceType) *cl.Device {
	for _, p := range platforms {
		devices, err := p.GetDevices(kind)
		if err != nil && err != cl.ErrDeviceNotFound {
			continue
		}
		if len(devices) > 0 {
			return devices[0]
		}
	}
	return nil
}

func (b *openCLBackend) setup(device *cl.Device, cfg Config) error {
	var err error
	b.context, err = cl.CreateContext([]*cl.Device{device})
	if err != nil {
		return fmt.Errorf("creating OpenCL context: %w", err)
	}
	b.queue, err = b.context.CreateCommandQueue(device, 0)
	if err != nil {
		return fmt.Errorf("creating OpenCL command queue: %w", err)
	}
	b.program, err = b.context.CreateProgramWithSource([]string{openCLProgram()})
	if err != nil {
		return fmt.Errorf("creating OpenCL program: %w", err)
	}
	if err := b.program.BuildProgram([]*cl.Device{device}, ""); err != nil {
		var buildErr cl.BuildError
		if errors.As(err, &buildErr) {
			return fmt.Errorf("building OpenCL program: %s", string(buildErr))
		}
		return fmt.Errorf("building OpenCL program: %w", err)
	}
	for _, name := range openCLKernels {
		k, err := b.program.CreateKernel(name)
		if err != nil {
			return fmt.Errorf("creating %s kernel: %w", name, err)
		}
		b.kernels[name] = k
	}

	if b.velU, err = b.allocPair(); err != nil {
		return err
	}
	if b.velV, err = b.allocPair(); err != nil {
		return err
	}
	if b.pressure, err = b.allocPair(); err != nil {
		return err
	}
	b.dens = make([]clPair, cfg.DensityComponents)
	for c := range b.dens {
		if b.dens[c], err = b.allocPair(); err != nil {
			return err
		}
	}
	if b.div, err = b.alloc(); err != nil {
		return err
	}
	if b.curl, err = b.alloc(); err != nil {
		return err
	}
	if b.mask, err = b.alloc(); err != nil {
		return err
	}
	b.source = make([]*cl.MemObject, max(2, cfg.DensityComponents))
	for c := range b.source {
		if b.source[c], err = b.alloc(); err != nil {
			return err
		}
	}
	return nil
}

func (b *openCLBackend) alloc() (*cl.MemObject, error) {
	buf, err := b.context.CreateEmptyBuffer(cl.MemReadWrite, b.n*int(unsafe.Sizeof(float32(0))))
	if err != nil {
		return nil, fmt.Errorf("allocating device buffer: %w", err)
	}
	b.buffers = append(b.buffers, buf)
	return buf, nil
}

func (b *openCLBackend) allocPair() (clPair, error) {
	read, err := b.alloc()
	if err != nil {
		return clPair{}, err
	}
	write, err := b.alloc()
	if err != nil {
		return clPair{}, err
	}
	return clPair{read: read, write: write}, nil
}

func (b *openCLBackend) Name() string { return BackendOpenCL }

// DeviceName reports the OpenCL device the backend runs on.
func (b *openCLBackend) DeviceName() string { return b.deviceName }

func (b *openCLBackend) Step(st *state, p Params, dt float32) error {
	if err := b.upload(st); err != nil {
		return err
	}
	scale := p.Scale(st.w, st.h)
	friction := float32(p.WallFriction)
	vel := []*clPair{&b.velU, &b.velV}
	dens := make([]*clPair, len(b.dens))
	for c := range b.dens {
		dens[c] = &b.dens[c]
	}

	if err := b.diffuse(vel, velocityTags, float32(p.Viscosity), dt, scale, p.DiffusionIterations); err != nil {
		return err
	}
	if err := b.enforce(friction); err != nil {
		return err
	}
	if p.Vorticity > 0 {
		if err := b.confine(float32(p.Vorticity), float32(p.ConfinementEpsilon), dt); err != nil {
			return err
		}
		if err := b.enforce(friction); err != nil {
			return err
		}
	}
	if err := b.advect(vel, velocityTags, dt*scale, float32(p.VelocityDissipation)); err != nil {
		return err
	}
	if err := b.enforce(friction); err != nil {
		return err
	}
	if err := b.project(p.PressureIterations); err != nil {
		return err
	}
	if err := b.enforce(friction); err != nil {
		return err
	}
	if err := b.diffuse(dens, st.densTags, float32(p.Diffusion), dt, scale, p.DiffusionIterations); err != nil {
		return err
	}
	if err := b.advect(dens, st.densTags, dt*scale, float32(p.DensityDissipation)); err != nil {
		return err
	}
	return b.download(st)
}

func (b *openCLBackend) run(name string, global int, args ...interface{}) error {
	k := b.kernels[name]
	if err := k.SetArgs(args...); err != nil {
		return fmt.Errorf("setting %s kernel arguments: %w", name, err)
	}
	if _, err := b.queue.EnqueueNDRangeKernel(k, nil, []int{global}, nil, nil); err != nil {
		return fmt.Errorf("enqueueing %s kernel: %w", name, err)
	}
	return nil
}

func (b *openCLBackend) edges(buf *cl.MemObject, tag int) error {
	return b.run("edges", max(b.w, b.h)+2, int32(b.w), int32(b.h), int32(tag), buf)
}

func (b *openCLBackend) advect(planes []*clPair, tags []int, dt0, dissipation float32) error {
	for _, pl := range planes {
		if err := b.run("advect", b.n, int32(b.w), int32(b.h), dt0, dissipation,
			b.velU.read, b.velV.read, b.mask, pl.read, pl.write); err != nil {
			return err
		}
	}
	for c, pl := range planes {
		pl.swap()
		if err := b.edges(pl.read, tags[c]); err != nil {
			return err
		}
	}
	return nil
}

func (b *openCLBackend) relax(planes []*clPair, rhs []*cl.MemObject, tags []int, alpha, beta, bScale float32, iters int) error {
	for it := 0; it < iters; it++ {
		for c, pl := range planes {
			if err := b.run("jacobi", b.n, int32(b.w), int32(b.h), alpha, beta, bScale,
				pl.read, rhs[c], b.mask, pl.write); err != nil {
				return err
			}
			pl.swap()
		}
	}
	for c, pl := range planes {
		if err := b.edges(pl.read, tags[c]); err != nil {
			return err
		}
	}
	return nil
}

func (b *openCLBackend) diffuse(planes []*clPair, tags []int, rate, dt, scale float32, iters int) error {
	a := dt * rate * scale * scale
	if a <= 0 || iters <= 0 {
		return nil
	}
	for c, pl := range planes {
		if err := b.run("copy_buffer", b.n, int32(b.n), pl.read, b.source[c]); err != nil {
			return err
		}
	}
	return b.relax(planes, b.source, tags, a, 1+4*a, 1, iters)
}

func (b *openCLBackend) project(iters int) error {
	if err := b.run("divergence", b.n, int32(b.w), int32(b.h), b.velU.read, b.velV.read, b.mask, b.div); err != nil {
		return err
	}
	for _, buf := range []*cl.MemObject{b.pressure.read, b.pressure.write} {
		if err := b.run("fill", b.n, int32(b.n), float32(0), buf); err != nil {
			return err
		}
	}
	if err := b.relax([]*clPair{&b.pressure}, []*cl.MemObject{b.div}, []int{tagScalar}, 1, 4, -1, iters); err != nil {
		return err
	}
	if err := b.run("gradient", b.n, int32(b.w), int32(b.h), b.pressure.read, b.mask,
		b.velU.read, b.velV.read, b.velU.write, b.velV.write); err != nil {
		return err
	}
	b.velU.swap()
	b.velV.swap()
	if err := b.edges(b.velU.read, tagFlipX); err != nil {
		return err
	}
	return b.edges(b.velV.read, tagFlipY)
}

func (b *openCLBackend) confine(strength, eps, dt float32) error {
	if err := b.run("curl", b.n, int32(b.w), int32(b.h), b.velU.read, b.velV.read, b.mask, b.curl); err != nil {
		return err
	}
	if err := b.edges(b.curl, tagScalar); err != nil {
		return err
	}
	if err := b.run("confine", b.n, int32(b.w), int32(b.h), strength, eps, dt, b.curl, b.mask,
		b.velU.read, b.velV.read, b.velU.write, b.velV.write); err != nil {
		return err
	}
	b.velU.swap()
	b.velV.swap()
	return nil
}

func (b *openCLBackend) enforce(friction float32) error {
	if err := b.run("obstacle", b.n, int32(b.w), int32(b.h), friction, b.mask, b.velU.read, b.velV.read); err != nil {
		return err
	}
	if err := b.edges(b.velU.read, tagFlipX); err != nil {
		return err
	}
	return b.edges(b.velV.read, tagFlipY)
}

// upload copies host-side changes made since the last step to the device.
func (b *openCLBackend) upload(st *state) error {
	if !b.synced || st.velDirty {
		if err := b.write(b.velU.read, st.vel.Read.Plane(0), "velocity x"); err != nil {
			return err
		}
		if err := b.write(b.velV.read, st.vel.Read.Plane(1), "velocity y"); err != nil {
			return err
		}
	}
	if !b.synced || st.densDirty {
		for c := range b.dens {
			if err := b.write(b.dens[c].read, st.dens.Read.Plane(c), "density"); err != nil {
				return err
			}
		}
	}
	if !b.synced || b.maskVersion != st.obstacles.Version() {
		if err := b.write(b.mask, st.mask(), "obstacle mask"); err != nil {
			return err
		}
		b.maskVersion = st.obstacles.Version()
	}
	b.synced = true
	st.velDirty = false
	st.densDirty = false
	return nil
}

// download reads the step results back into the host fields.
func (b *openCLBackend) download(st *state) error {
	reads := []struct {
		buf   *cl.MemObject
		host  []float32
		label string
	}{
		{b.velU.read, st.vel.Read.Plane(0), "velocity x"},
		{b.velV.read, st.vel.Read.Plane(1), "velocity y"},
		{b.pressure.read, st.pressure.Read.Plane(0), "pressure"},
		{b.div, st.div.Plane(0), "divergence"},
		{b.curl, st.curl.Plane(0), "curl"},
	}
	for c := range b.dens {
		reads = append(reads, struct {
			buf   *cl.MemObject
			host  []float32
			label string
		}{b.dens[c].read, st.dens.Read.Plane(c), "density"})
	}
	for _, r := range reads {
		if _, err := b.queue.EnqueueReadBufferFloat32(r.buf, true, 0, r.host, nil); err != nil {
			return fmt.Errorf("reading %s buffer: %w", r.label, err)
		}
	}
	return nil
}

func (b *openCLBackend) write(buf *cl.MemObject, host []float32, label string) error {
	if _, err := b.queue.EnqueueWriteBufferFloat32(buf, true, 0, host, nil); err != nil {
		return fmt.Errorf("writing %s buffer: %w", label, err)
	}
	return nil
}

func (b *openCLBackend) Close() error {
	for _, buf := range b.buffers {
		buf.Release()
	}
	b.buffers = nil
	for name, k := range b.kernels {
		k.Release()
		delete(b.kernels, name)
	}
	if b.program != nil {
		b.program.Release()
		b.program = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.context != nil {
		b.context.Release()
		b.context = nil
	}
	return nil
}
