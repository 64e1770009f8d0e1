//go:build opencl

package fluid

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"

	"driftink/telemetry"
)

// clPipeline mirrors the CPU pipeline on an OpenCL device. Velocity,
// pressure and dye live device-resident between ticks; dye and velocity
// are read back each tick so the compositor and the host diagnostics keep
// working unchanged. Dye optionally stores as binary16 on devices that
// advertise cl_khr_fp16.
type clPipeline struct {
	context *cl.Context
	queue   *cl.CommandQueue
	program *cl.Program

	splatVelKernel   *cl.Kernel
	splatDyeKernel   *cl.Kernel
	curlKernel       *cl.Kernel
	vorticityKernel  *cl.Kernel
	divergenceKernel *cl.Kernel
	dampKernel       *cl.Kernel
	jacobiKernel     *cl.Kernel
	gradientKernel   *cl.Kernel
	advectVelKernel  *cl.Kernel
	advectDyeKernel  *cl.Kernel

	velRead  *cl.MemObject
	velWrite *cl.MemObject
	dyeRead  *cl.MemObject
	dyeWrite *cl.MemObject
	prsRead  *cl.MemObject
	prsWrite *cl.MemObject
	divBuf   *cl.MemObject
	curlBuf  *cl.MemObject

	simW, simH int
	dyeW, dyeH int
	fp16       bool
	halves     halfBuffer
	deviceName string
	coldStart  bool
}

const fluidKernelSource = `
static float fast_exp(float x)
{
    if (x > 4.0f) {
        return 54.6f;
    }
    if (x < -4.0f) {
        return 0.0f;
    }
    float x2 = x * x;
    return (12.0f + 6.0f * x + x2) / (12.0f - 6.0f * x + x2);
}

static int clamp_idx(int v, int hi)
{
    return v < 0 ? 0 : (v > hi ? hi : v);
}

static float2 sample_vel(__global const float* vel, int w, int h, float u, float v)
{
    float fx = u * (float)w - 0.5f;
    float fy = v * (float)h - 0.5f;
    int x0 = (int)floor(fx);
    int y0 = (int)floor(fy);
    float tx = fx - (float)x0;
    float ty = fy - (float)y0;
    int x1 = clamp_idx(x0 + 1, w - 1);
    int y1 = clamp_idx(y0 + 1, h - 1);
    x0 = clamp_idx(x0, w - 1);
    y0 = clamp_idx(y0, h - 1);
    float2 a = vload2(y0 * w + x0, vel);
    float2 b = vload2(y0 * w + x1, vel);
    float2 c = vload2(y1 * w + x0, vel);
    float2 d = vload2(y1 * w + x1, vel);
    float2 top = a + (b - a) * tx;
    float2 bot = c + (d - c) * tx;
    return top + (bot - top) * ty;
}

#ifdef DYE_HALF
#define DYE_IN __global const half*
#define DYE_OUT __global half*
#define DYE_LOAD(buf, i) vload_half((i), (buf))
#define DYE_STORE(v, buf, i) vstore_half((v), (i), (buf))
#else
#define DYE_IN __global const float*
#define DYE_OUT __global float*
#define DYE_LOAD(buf, i) (buf)[(i)]
#define DYE_STORE(v, buf, i) (buf)[(i)] = (v)
#endif

__kernel void splat_velocity(
    const int width,
    const int height,
    const float aspect,
    const float px,
    const float py,
    const float inv_r2,
    const float add_x,
    const float add_y,
    __global const float* src,
    __global float* dst)
{
    int idx = get_global_id(0);
    if (idx >= width * height) {
        return;
    }
    int x = idx % width;
    int y = idx / width;
    float u = ((float)x + 0.5f) / (float)width;
    float v = ((float)y + 0.5f) / (float)height;
    float dx = (u - px) * aspect;
    float dy = v - py;
    float g = fast_exp(-(dx * dx + dy * dy) * inv_r2);
    float2 cur = vload2(idx, src);
    cur.x += add_x * g;
    cur.y += add_y * g;
    vstore2(cur, idx, dst);
}

__kernel void splat_dye(
    const int width,
    const int height,
    const float aspect,
    const float px,
    const float py,
    const float inv_r2,
    const float add_r,
    const float add_g,
    const float add_b,
    DYE_IN src,
    DYE_OUT dst)
{
    int idx = get_global_id(0);
    if (idx >= width * height) {
        return;
    }
    int x = idx % width;
    int y = idx / width;
    float u = ((float)x + 0.5f) / (float)width;
    float v = ((float)y + 0.5f) / (float)height;
    float dx = (u - px) * aspect;
    float dy = v - py;
    float g = fast_exp(-(dx * dx + dy * dy) * inv_r2);
    int base = idx * 3;
    DYE_STORE(DYE_LOAD(src, base) + add_r * g, dst, base);
    DYE_STORE(DYE_LOAD(src, base + 1) + add_g * g, dst, base + 1);
    DYE_STORE(DYE_LOAD(src, base + 2) + add_b * g, dst, base + 2);
}

__kernel void compute_curl(
    const int width,
    const int height,
    __global const float* vel,
    __global float* curl)
{
    int idx = get_global_id(0);
    if (idx >= width * height) {
        return;
    }
    int x = idx % width;
    int y = idx / width;
    int xl = clamp_idx(x - 1, width - 1);
    int xr = clamp_idx(x + 1, width - 1);
    int yt = clamp_idx(y - 1, height - 1);
    int yb = clamp_idx(y + 1, height - 1);
    float l = vload2(y * width + xl, vel).y;
    float r = vload2(y * width + xr, vel).y;
    float t = vload2(yt * width + x, vel).x;
    float b = vload2(yb * width + x, vel).x;
    curl[idx] = 0.5f * ((r - l) - (b - t));
}

__kernel void vorticity_confine(
    const int width,
    const int height,
    const float strength,
    const float dt,
    __global const float* curl,
    __global const float* src,
    __global float* dst)
{
    int idx = get_global_id(0);
    if (idx >= width * height) {
        return;
    }
    int x = idx % width;
    int y = idx / width;
    int xl = clamp_idx(x - 1, width - 1);
    int xr = clamp_idx(x + 1, width - 1);
    int yt = clamp_idx(y - 1, height - 1);
    int yb = clamp_idx(y + 1, height - 1);
    float t = fabs(curl[yt * width + x]);
    float b = fabs(curl[yb * width + x]);
    float l = fabs(curl[y * width + xl]);
    float r = fabs(curl[y * width + xr]);
    float c = curl[idx];
    float fx = 0.5f * (t - b);
    float fy = 0.5f * (r - l);
    float scale = strength * c / (sqrt(fx * fx + fy * fy) + 1e-4f);
    float2 v = vload2(idx, src);
    v.x += fx * scale * dt;
    v.y -= fy * scale * dt;
    vstore2(v, idx, dst);
}

__kernel void compute_divergence(
    const int width,
    const int height,
    __global const float* vel,
    __global float* div)
{
    int idx = get_global_id(0);
    if (idx >= width * height) {
        return;
    }
    int x = idx % width;
    int y = idx / width;
    float2 center = vload2(idx, vel);
    float l = x > 0 ? vload2(idx - 1, vel).x : -center.x;
    float r = x < width - 1 ? vload2(idx + 1, vel).x : -center.x;
    float t = y > 0 ? vload2(idx - width, vel).y : -center.y;
    float b = y < height - 1 ? vload2(idx + width, vel).y : -center.y;
    div[idx] = 0.5f * ((r - l) + (b - t));
}

__kernel void damp_pressure(
    const int size,
    const float factor,
    __global const float* src,
    __global float* dst)
{
    int idx = get_global_id(0);
    if (idx >= size) {
        return;
    }
    dst[idx] = src[idx] * factor;
}

__kernel void jacobi_step(
    const int width,
    const int height,
    __global const float* prs,
    __global const float* div,
    __global float* dst)
{
    int idx = get_global_id(0);
    if (idx >= width * height) {
        return;
    }
    int x = idx % width;
    int y = idx / width;
    int xl = clamp_idx(x - 1, width - 1);
    int xr = clamp_idx(x + 1, width - 1);
    int yt = clamp_idx(y - 1, height - 1);
    int yb = clamp_idx(y + 1, height - 1);
    float sum = prs[y * width + xl] + prs[y * width + xr]
        + prs[yt * width + x] + prs[yb * width + x];
    dst[idx] = (sum - div[idx]) * 0.25f;
}

__kernel void subtract_gradient(
    const int width,
    const int height,
    __global const float* prs,
    __global const float* src,
    __global float* dst)
{
    int idx = get_global_id(0);
    if (idx >= width * height) {
        return;
    }
    int x = idx % width;
    int y = idx / width;
    int xl = clamp_idx(x - 1, width - 1);
    int xr = clamp_idx(x + 1, width - 1);
    int yt = clamp_idx(y - 1, height - 1);
    int yb = clamp_idx(y + 1, height - 1);
    float2 v = vload2(idx, src);
    v.x -= prs[y * width + xr] - prs[y * width + xl];
    v.y -= prs[yb * width + x] - prs[yt * width + x];
    vstore2(v, idx, dst);
}

__kernel void advect_velocity(
    const int width,
    const int height,
    const float dt,
    const float factor,
    __global const float* src,
    __global float* dst)
{
    int idx = get_global_id(0);
    if (idx >= width * height) {
        return;
    }
    int x = idx % width;
    int y = idx / width;
    float2 vel = vload2(idx, src);
    float u = ((float)x + 0.5f - vel.x * dt) / (float)width;
    float v = ((float)y + 0.5f - vel.y * dt) / (float)height;
    vstore2(sample_vel(src, width, height, u, v) * factor, idx, dst);
}

__kernel void advect_dye(
    const int dye_w,
    const int dye_h,
    const int sim_w,
    const int sim_h,
    const float dt,
    const float factor,
    __global const float* vel,
    DYE_IN src,
    DYE_OUT dst)
{
    int idx = get_global_id(0);
    if (idx >= dye_w * dye_h) {
        return;
    }
    int x = idx % dye_w;
    int y = idx / dye_w;
    float u = ((float)x + 0.5f) / (float)dye_w;
    float v = ((float)y + 0.5f) / (float)dye_h;
    float2 carry = sample_vel(vel, sim_w, sim_h, u, v);
    float fx = (u - carry.x * dt / (float)sim_w) * (float)dye_w - 0.5f;
    float fy = (v - carry.y * dt / (float)sim_h) * (float)dye_h - 0.5f;
    int x0 = (int)floor(fx);
    int y0 = (int)floor(fy);
    float tx = fx - (float)x0;
    float ty = fy - (float)y0;
    int x1 = clamp_idx(x0 + 1, dye_w - 1);
    int y1 = clamp_idx(y0 + 1, dye_h - 1);
    x0 = clamp_idx(x0, dye_w - 1);
    y0 = clamp_idx(y0, dye_h - 1);
    int i00 = (y0 * dye_w + x0) * 3;
    int i10 = (y0 * dye_w + x1) * 3;
    int i01 = (y1 * dye_w + x0) * 3;
    int i11 = (y1 * dye_w + x1) * 3;
    int out = idx * 3;
    for (int c = 0; c < 3; c++) {
        float a = DYE_LOAD(src, i00 + c);
        float b = DYE_LOAD(src, i10 + c);
        float cc = DYE_LOAD(src, i01 + c);
        float d = DYE_LOAD(src, i11 + c);
        float top = a + (b - a) * tx;
        float bot = cc + (d - cc) * tx;
        DYE_STORE((top + (bot - top) * ty) * factor, dst, out + c);
    }
}`

// newCLPipeline builds the device pipeline sized to s's current
// parameters. Device search prefers GPUs and falls back to CPU OpenCL
// implementations.
func newCLPipeline(s *Sim, preferFP16 bool) (*clPipeline, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "querying OpenCL platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms; install OpenCL drivers and verify with `clinfo`"
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	if len(platforms) == 0 {
		return nil, errors.New("no OpenCL platforms available; ensure a vendor driver is installed and detected by `clinfo`")
	}
	var device *cl.Device
	for _, p := range platforms {
		devices, derr := p.GetDevices(cl.DeviceTypeGPU)
		if derr != nil && derr != cl.ErrDeviceNotFound {
			continue
		}
		if len(devices) > 0 {
			device = devices[0]
			break
		}
	}
	if device == nil {
		for _, p := range platforms {
			devices, derr := p.GetDevices(cl.DeviceTypeCPU)
			if derr != nil && derr != cl.ErrDeviceNotFound {
				continue
			}
			if len(devices) > 0 {
				device = devices[0]
				break
			}
		}
	}
	if device == nil {
		return nil, errors.New("no suitable OpenCL devices found")
	}

	p := &clPipeline{
		simW:       s.params.SimRes,
		simH:       s.params.SimRes,
		dyeW:       s.params.DyeRes,
		dyeH:       s.params.DyeRes,
		fp16:       preferFP16 && strings.Contains(device.Extensions(), "cl_khr_fp16"),
		deviceName: device.Name(),
		coldStart:  true,
	}

	p.context, err = cl.CreateContext([]*cl.Device{device})
	if err != nil {
		return nil, fmt.Errorf("creating OpenCL context: %w", err)
	}
	p.queue, err = p.context.CreateCommandQueue(device, 0)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("creating OpenCL command queue: %w", err)
	}
	p.program, err = p.context.CreateProgramWithSource([]string{fluidKernelSource})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("creating OpenCL program: %w", err)
	}
	buildOpts := ""
	if p.fp16 {
		buildOpts = "-DDYE_HALF=1"
	}
	if err := p.program.BuildProgram([]*cl.Device{device}, buildOpts); err != nil {
		p.Close()
		if buildErr, ok := err.(cl.BuildError); ok {
			return nil, fmt.Errorf("building OpenCL program: %s", string(buildErr))
		}
		return nil, fmt.Errorf("building OpenCL program: %w", err)
	}

	kernels := []struct {
		name string
		dst  **cl.Kernel
	}{
		{"splat_velocity", &p.splatVelKernel},
		{"splat_dye", &p.splatDyeKernel},
		{"compute_curl", &p.curlKernel},
		{"vorticity_confine", &p.vorticityKernel},
		{"compute_divergence", &p.divergenceKernel},
		{"damp_pressure", &p.dampKernel},
		{"jacobi_step", &p.jacobiKernel},
		{"subtract_gradient", &p.gradientKernel},
		{"advect_velocity", &p.advectVelKernel},
		{"advect_dye", &p.advectDyeKernel},
	}
	for _, k := range kernels {
		kern, kerr := p.program.CreateKernel(k.name)
		if kerr != nil {
			p.Close()
			return nil, fmt.Errorf("creating kernel %s: %w", k.name, kerr)
		}
		*k.dst = kern
	}

	if err := p.createBuffers(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *clPipeline) dyeElemSize() int {
	if p.fp16 {
		return int(unsafe.Sizeof(uint16(0)))
	}
	return int(unsafe.Sizeof(float32(0)))
}

func (p *clPipeline) createBuffers() error {
	floatSize := int(unsafe.Sizeof(float32(0)))
	simCells := p.simW * p.simH
	velBytes := simCells * 2 * floatSize
	scalarBytes := simCells * floatSize
	dyeBytes := p.dyeW * p.dyeH * 3 * p.dyeElemSize()

	targets := []struct {
		name  string
		bytes int
		dst   **cl.MemObject
	}{
		{"velocity read", velBytes, &p.velRead},
		{"velocity write", velBytes, &p.velWrite},
		{"dye read", dyeBytes, &p.dyeRead},
		{"dye write", dyeBytes, &p.dyeWrite},
		{"pressure read", scalarBytes, &p.prsRead},
		{"pressure write", scalarBytes, &p.prsWrite},
		{"divergence", scalarBytes, &p.divBuf},
		{"curl", scalarBytes, &p.curlBuf},
	}
	for _, t := range targets {
		buf, err := p.context.CreateEmptyBuffer(cl.MemReadWrite, t.bytes)
		if err != nil {
			p.releaseBuffers()
			return fmt.Errorf("allocating %s buffer: %w", t.name, err)
		}
		*t.dst = buf
	}
	return nil
}

func (p *clPipeline) releaseBuffers() {
	for _, buf := range []**cl.MemObject{
		&p.velRead, &p.velWrite, &p.dyeRead, &p.dyeWrite,
		&p.prsRead, &p.prsWrite, &p.divBuf, &p.curlBuf,
	} {
		if *buf != nil {
			(*buf).Release()
			*buf = nil
		}
	}
}

// realloc rebuilds the device buffers after a resolution change and
// schedules a full re-upload of the host fields.
func (p *clPipeline) realloc(s *Sim) error {
	p.releaseBuffers()
	p.simW, p.simH = s.params.SimRes, s.params.SimRes
	p.dyeW, p.dyeH = s.params.DyeRes, s.params.DyeRes
	p.coldStart = true
	return p.createBuffers()
}

// invalidate marks the device copies stale so the next step re-uploads
// the host fields.
func (p *clPipeline) invalidate() {
	p.coldStart = true
}

func (p *clPipeline) writeDye(buf *cl.MemObject, data []float32) error {
	if p.fp16 {
		bits := p.halves.pack(data)
		byteLen := len(bits) * int(unsafe.Sizeof(uint16(0)))
		if _, err := p.queue.EnqueueWriteBuffer(buf, true, 0, byteLen, unsafe.Pointer(&bits[0]), nil); err != nil {
			return err
		}
		return nil
	}
	_, err := p.queue.EnqueueWriteBufferFloat32(buf, false, 0, data, nil)
	return err
}

func (p *clPipeline) readDye(buf *cl.MemObject, data []float32) error {
	if p.fp16 {
		bits := p.halves.grow(len(data))
		byteLen := len(bits) * int(unsafe.Sizeof(uint16(0)))
		if _, err := p.queue.EnqueueReadBuffer(buf, true, 0, byteLen, unsafe.Pointer(&bits[0]), nil); err != nil {
			return err
		}
		p.halves.unpack(data)
		return nil
	}
	_, err := p.queue.EnqueueReadBufferFloat32(buf, true, 0, data, nil)
	return err
}

func (p *clPipeline) upload(s *Sim) error {
	if _, err := p.queue.EnqueueWriteBufferFloat32(p.velRead, false, 0, s.velocity.Read().data, nil); err != nil {
		return fmt.Errorf("writing velocity buffer: %w", err)
	}
	if _, err := p.queue.EnqueueWriteBufferFloat32(p.prsRead, false, 0, s.pressure.Read().data, nil); err != nil {
		return fmt.Errorf("writing pressure buffer: %w", err)
	}
	if err := p.writeDye(p.dyeRead, s.dye.Read().data); err != nil {
		return fmt.Errorf("writing dye buffer: %w", err)
	}
	return nil
}

// step runs one full tick on the device and reads velocity and dye back
// into s's host fields. Pressure stays device-resident.
func (p *clPipeline) step(s *Sim, dt float64, splats []Splat) error {
	if p.coldStart {
		if err := p.upload(s); err != nil {
			return err
		}
		p.coldStart = false
	}

	simCells := p.simW * p.simH
	dyeCells := p.dyeW * p.dyeH
	simGlobal := []int{simCells}
	dyeGlobal := []int{dyeCells}
	dt32 := float32(dt)

	s.phase(telemetry.PhaseSplat)
	radius := s.params.SplatRadius
	if s.aspect > 1 {
		radius *= s.aspect
	}
	if radius > 0 {
		invR2 := 1 / (radius * radius)
		for _, sp := range splats {
			if err := p.splatVelKernel.SetArgs(
				int32(p.simW), int32(p.simH), s.aspect,
				sp.Pos.X(), sp.Pos.Y(), invR2,
				sp.Force.X(), sp.Force.Y(),
				p.velRead, p.velWrite,
			); err != nil {
				return fmt.Errorf("setting splat velocity args: %w", err)
			}
			if _, err := p.queue.EnqueueNDRangeKernel(p.splatVelKernel, nil, simGlobal, nil, nil); err != nil {
				return fmt.Errorf("enqueueing splat velocity: %w", err)
			}
			p.velRead, p.velWrite = p.velWrite, p.velRead

			if err := p.splatDyeKernel.SetArgs(
				int32(p.dyeW), int32(p.dyeH), s.aspect,
				sp.Pos.X(), sp.Pos.Y(), invR2,
				sp.Color.X(), sp.Color.Y(), sp.Color.Z(),
				p.dyeRead, p.dyeWrite,
			); err != nil {
				return fmt.Errorf("setting splat dye args: %w", err)
			}
			if _, err := p.queue.EnqueueNDRangeKernel(p.splatDyeKernel, nil, dyeGlobal, nil, nil); err != nil {
				return fmt.Errorf("enqueueing splat dye: %w", err)
			}
			p.dyeRead, p.dyeWrite = p.dyeWrite, p.dyeRead
		}
	}

	if !s.params.Paused {
		s.phase(telemetry.PhaseCurl)
		if err := p.curlKernel.SetArgs(int32(p.simW), int32(p.simH), p.velRead, p.curlBuf); err != nil {
			return fmt.Errorf("setting curl args: %w", err)
		}
		if _, err := p.queue.EnqueueNDRangeKernel(p.curlKernel, nil, simGlobal, nil, nil); err != nil {
			return fmt.Errorf("enqueueing curl: %w", err)
		}

		s.phase(telemetry.PhaseVorticity)
		if err := p.vorticityKernel.SetArgs(
			int32(p.simW), int32(p.simH), s.params.CurlStrength, dt32,
			p.curlBuf, p.velRead, p.velWrite,
		); err != nil {
			return fmt.Errorf("setting vorticity args: %w", err)
		}
		if _, err := p.queue.EnqueueNDRangeKernel(p.vorticityKernel, nil, simGlobal, nil, nil); err != nil {
			return fmt.Errorf("enqueueing vorticity: %w", err)
		}
		p.velRead, p.velWrite = p.velWrite, p.velRead

		s.phase(telemetry.PhaseDivergence)
		if err := p.divergenceKernel.SetArgs(int32(p.simW), int32(p.simH), p.velRead, p.divBuf); err != nil {
			return fmt.Errorf("setting divergence args: %w", err)
		}
		if _, err := p.queue.EnqueueNDRangeKernel(p.divergenceKernel, nil, simGlobal, nil, nil); err != nil {
			return fmt.Errorf("enqueueing divergence: %w", err)
		}

		s.phase(telemetry.PhasePressure)
		if err := p.dampKernel.SetArgs(int32(simCells), s.params.PressureDamping, p.prsRead, p.prsWrite); err != nil {
			return fmt.Errorf("setting damp args: %w", err)
		}
		if _, err := p.queue.EnqueueNDRangeKernel(p.dampKernel, nil, simGlobal, nil, nil); err != nil {
			return fmt.Errorf("enqueueing damp: %w", err)
		}
		p.prsRead, p.prsWrite = p.prsWrite, p.prsRead

		for i := 0; i < s.params.PressureIterations; i++ {
			if err := p.jacobiKernel.SetArgs(int32(p.simW), int32(p.simH), p.prsRead, p.divBuf, p.prsWrite); err != nil {
				return fmt.Errorf("setting jacobi args: %w", err)
			}
			if _, err := p.queue.EnqueueNDRangeKernel(p.jacobiKernel, nil, simGlobal, nil, nil); err != nil {
				return fmt.Errorf("enqueueing jacobi: %w", err)
			}
			p.prsRead, p.prsWrite = p.prsWrite, p.prsRead
		}

		s.phase(telemetry.PhaseGradient)
		if err := p.gradientKernel.SetArgs(int32(p.simW), int32(p.simH), p.prsRead, p.velRead, p.velWrite); err != nil {
			return fmt.Errorf("setting gradient args: %w", err)
		}
		if _, err := p.queue.EnqueueNDRangeKernel(p.gradientKernel, nil, simGlobal, nil, nil); err != nil {
			return fmt.Errorf("enqueueing gradient: %w", err)
		}
		p.velRead, p.velWrite = p.velWrite, p.velRead

		s.phase(telemetry.PhaseAdvectVel)
		velFactor := dissipationFactor(dt, s.params.VelocityDissipation)
		if err := p.advectVelKernel.SetArgs(int32(p.simW), int32(p.simH), dt32, velFactor, p.velRead, p.velWrite); err != nil {
			return fmt.Errorf("setting advect velocity args: %w", err)
		}
		if _, err := p.queue.EnqueueNDRangeKernel(p.advectVelKernel, nil, simGlobal, nil, nil); err != nil {
			return fmt.Errorf("enqueueing advect velocity: %w", err)
		}
		p.velRead, p.velWrite = p.velWrite, p.velRead

		s.phase(telemetry.PhaseAdvectDye)
		dyeFactor := dissipationFactor(dt, s.params.DensityDissipation)
		if err := p.advectDyeKernel.SetArgs(
			int32(p.dyeW), int32(p.dyeH), int32(p.simW), int32(p.simH),
			dt32, dyeFactor, p.velRead, p.dyeRead, p.dyeWrite,
		); err != nil {
			return fmt.Errorf("setting advect dye args: %w", err)
		}
		if _, err := p.queue.EnqueueNDRangeKernel(p.advectDyeKernel, nil, dyeGlobal, nil, nil); err != nil {
			return fmt.Errorf("enqueueing advect dye: %w", err)
		}
		p.dyeRead, p.dyeWrite = p.dyeWrite, p.dyeRead
	}

	s.phase(telemetry.PhaseReadback)
	if _, err := p.queue.EnqueueReadBufferFloat32(p.velRead, true, 0, s.velocity.Read().data, nil); err != nil {
		return fmt.Errorf("reading velocity buffer: %w", err)
	}
	if err := p.readDye(p.dyeRead, s.dye.Read().data); err != nil {
		return fmt.Errorf("reading dye buffer: %w", err)
	}
	return nil
}

func (p *clPipeline) Close() {
	p.releaseBuffers()
	for _, k := range []**cl.Kernel{
		&p.splatVelKernel, &p.splatDyeKernel, &p.curlKernel, &p.vorticityKernel,
		&p.divergenceKernel, &p.dampKernel, &p.jacobiKernel, &p.gradientKernel,
		&p.advectVelKernel, &p.advectDyeKernel,
	} {
		if *k != nil {
			(*k).Release()
			*k = nil
		}
	}
	if p.program != nil {
		p.program.Release()
		p.program = nil
	}
	if p.queue != nil {
		p.queue.Release()
		p.queue = nil
	}
	if p.context != nil {
		p.context.Release()
		p.context = nil
	}
}

func (p *clPipeline) DeviceName() string {
	return p.deviceName
}

func (p *clPipeline) usesFP16() bool {
	return p.fp16
}
