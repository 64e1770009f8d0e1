package fluid

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"driftink/telemetry"
)

// PhaseRecorder receives the name of each pipeline phase as it begins.
// *telemetry.PerfCollector satisfies it.
type PhaseRecorder interface {
	StartPhase(name string)
}

// Sim owns the complete solver state: the velocity, dye and pressure
// double buffers, the divergence and curl scratch fields, the splat queue
// and the pointer-color policy. All field mutation happens inside Advance
// on one logical timeline; EnqueueSplat is the only entry point that may
// be called concurrently with it.
type Sim struct {
	params Params
	aspect float32

	velocity   *DoubleBuffer
	dye        *DoubleBuffer
	pressure   *DoubleBuffer
	divergence *Field
	curl       *Field

	queue        splatQueue
	colorTimer   float32
	pointerColor mgl32.Vec3

	rng  *rand.Rand
	pool *workerPool
	gpu  *clPipeline
	perf PhaseRecorder
	log  *slog.Logger
	tick uint64
}

// New validates p, allocates all fields zeroed, and returns a ready Sim
// stepping on the CPU worker pool. Pass nil to use the default logger.
func New(p Params, logger *slog.Logger) (*Sim, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sim{
		params: p,
		aspect: 1,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		pool:   newWorkerPool(0),
		log:    logger,
	}
	s.pointerColor = randomColor(s.rng)
	if err := s.allocFields(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sim) allocFields() error {
	velocity, err := AllocDouble(s.params.SimRes, s.params.SimRes, 2)
	if err != nil {
		return err
	}
	dye, err := AllocDouble(s.params.DyeRes, s.params.DyeRes, 3)
	if err != nil {
		velocity.Release()
		return err
	}
	pressure, err := AllocDouble(s.params.SimRes, s.params.SimRes, 1)
	if err != nil {
		dye.Release()
		velocity.Release()
		return err
	}
	divergence, err := Alloc(s.params.SimRes, s.params.SimRes, 1)
	if err != nil {
		pressure.Release()
		dye.Release()
		velocity.Release()
		return err
	}
	curl, err := Alloc(s.params.SimRes, s.params.SimRes, 1)
	if err != nil {
		divergence.Release()
		pressure.Release()
		dye.Release()
		velocity.Release()
		return err
	}
	s.velocity = velocity
	s.dye = dye
	s.pressure = pressure
	s.divergence = divergence
	s.curl = curl
	return nil
}

func (s *Sim) releaseFields() {
	s.velocity.Release()
	s.dye.Release()
	s.pressure.Release()
	s.divergence.Release()
	s.curl.Release()
	s.velocity, s.dye, s.pressure = nil, nil, nil
	s.divergence, s.curl = nil, nil
}

// Seed reseeds the generator behind pointer colors and random bursts.
func (s *Sim) Seed(seed int64) {
	s.rng = rand.New(rand.NewSource(seed))
	s.pointerColor = randomColor(s.rng)
}

// SetPerf installs a per-phase timing recorder; nil disables recording.
func (s *Sim) SetPerf(rec PhaseRecorder) {
	s.perf = rec
}

func (s *Sim) phase(name string) {
	if s.perf != nil {
		s.perf.StartPhase(name)
	}
}

// EnqueueSplat queues a localized force/dye injection for the next tick.
// It is the sole mutation entry point outside Advance and is safe to call
// from any goroutine.
func (s *Sim) EnqueueSplat(pos, force mgl32.Vec2, color mgl32.Vec3) {
	s.queue.Enqueue(Splat{Pos: pos, Force: force, Color: color})
}

// PendingSplats reports the number of requests waiting for the next tick.
func (s *Sim) PendingSplats() int {
	return s.queue.Len()
}

// SeedSplats enqueues a burst of 5 to 24 random splats with bright
// pointer-style colors, the payload fired on startup and reset.
func (s *Sim) SeedSplats() {
	n := 5 + s.rng.Intn(20)
	for i := 0; i < n; i++ {
		pos := mgl32.Vec2{s.rng.Float32(), s.rng.Float32()}
		force := mgl32.Vec2{
			1000 * (s.rng.Float32() - 0.5),
			1000 * (s.rng.Float32() - 0.5),
		}
		color := randomColor(s.rng).Mul(10)
		s.EnqueueSplat(pos, force, color)
	}
}

// Advance runs one full pipeline pass: flush and apply splats, then the
// fixed operator sequence of curl, confinement, divergence, pressure
// damping, Jacobi relaxation, gradient subtraction and the two advection
// passes. dt is clamped to the configured maximum step. While paused the
// splat flush and color timer still run; only the physical step is
// skipped.
func (s *Sim) Advance(dt float64) error {
	if dt > s.params.MaxStep {
		dt = s.params.MaxStep
	}
	if dt < 0 {
		dt = 0
	}
	s.advanceColorTimer(dt)
	splats := s.queue.Flush()

	if s.gpu != nil {
		if err := s.gpu.step(s, dt, splats); err != nil {
			return err
		}
		if !s.params.Paused {
			s.tick++
		}
		return nil
	}

	s.phase(telemetry.PhaseSplat)
	for _, sp := range splats {
		s.applySplat(sp)
	}
	if s.params.Paused {
		return nil
	}
	s.phase(telemetry.PhaseCurl)
	s.computeCurl()
	s.phase(telemetry.PhaseVorticity)
	s.applyConfinement(dt)
	s.phase(telemetry.PhaseDivergence)
	s.computeDivergence()
	s.phase(telemetry.PhasePressure)
	s.dampPressure()
	for i := 0; i < s.params.PressureIterations; i++ {
		s.jacobiIterate()
	}
	s.phase(telemetry.PhaseGradient)
	s.subtractGradient()
	s.phase(telemetry.PhaseAdvectVel)
	s.advectVelocity(dt)
	s.phase(telemetry.PhaseAdvectDye)
	s.advectDye(dt)
	s.tick++
	return nil
}

// DyeField returns the dye buffer's current Read half, the sole output
// artifact consumed by compositors.
func (s *Sim) DyeField() *Field {
	return s.dye.Read()
}

// VelocityField returns the velocity buffer's current Read half for
// diagnostics. Callers must not mutate it.
func (s *Sim) VelocityField() *Field {
	return s.velocity.Read()
}

// SetViewport supplies the display surface dimensions so splat deposits
// stay circular on non-square viewports. Without a viewport the grids are
// treated as square.
func (s *Sim) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	s.aspect = float32(width) / float32(height)
}

// Params returns a copy of the active configuration.
func (s *Sim) Params() Params {
	return s.params
}

// SetPaused toggles the physical step. Splat accumulation and the color
// timer keep running while paused, so queued strokes appear on the frozen
// dye immediately.
func (s *Sim) SetPaused(v bool) {
	s.params.Paused = v
}

// Reconfigure validates and applies a full parameter set. On error the
// previous configuration stays active. A changed simulation or dye
// resolution releases and reallocates the fields from zero; pending splat
// requests survive since they are resolution independent.
func (s *Sim) Reconfigure(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	resChanged := p.SimRes != s.params.SimRes || p.DyeRes != s.params.DyeRes
	s.params = p
	if resChanged {
		s.releaseFields()
		if err := s.allocFields(); err != nil {
			return err
		}
		s.colorTimer = 0
		if s.gpu != nil {
			return s.gpu.realloc(s)
		}
	}
	return nil
}

// SetResolution reallocates the simulation and dye grids at the given
// sizes, the only path by which resolution changes take effect.
func (s *Sim) SetResolution(simRes, dyeRes int) error {
	p := s.params
	p.SimRes = simRes
	p.DyeRes = dyeRes
	return s.Reconfigure(p)
}

// Reset zeroes every field and drops pending splats; the configuration is
// kept.
func (s *Sim) Reset() {
	s.velocity.Clear()
	s.dye.Clear()
	s.pressure.Clear()
	s.divergence.Clear()
	s.curl.Clear()
	s.queue.Flush()
	s.colorTimer = 0
	s.tick = 0
	if s.gpu != nil {
		s.gpu.invalidate()
	}
}

// EnableOpenCL moves the stepping pipeline onto an OpenCL device built
// from the current parameters. The CPU path keeps serving if this fails.
func (s *Sim) EnableOpenCL(preferFP16 bool) error {
	gpu, err := newCLPipeline(s, preferFP16)
	if err != nil {
		return err
	}
	s.gpu = gpu
	s.log.Info("OpenCL pipeline enabled", "device", gpu.DeviceName(), "fp16_dye", gpu.usesFP16())
	return nil
}

// Backend names the active compute path.
func (s *Sim) Backend() string {
	if s.gpu != nil {
		return "opencl: " + s.gpu.DeviceName()
	}
	return "cpu"
}

// Tick reports the number of completed physical steps.
func (s *Sim) Tick() uint64 {
	return s.tick
}

// Close releases all fields and any device resources. The Sim must not be
// used afterwards.
func (s *Sim) Close() {
	if s.gpu != nil {
		s.gpu.Close()
		s.gpu = nil
	}
	s.releaseFields()
}
