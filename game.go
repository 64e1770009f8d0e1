package main

import (
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"driftink/config"
	"driftink/fluid"
	"driftink/telemetry"
)

// Game owns the solver, input handling and the presentation pipeline.
type Game struct {
	sim *fluid.Sim
	cfg *config.Config
	log *slog.Logger

	perf    *telemetry.PerfCollector
	output  *telemetry.OutputManager
	monitor *monitorHub
	ambient *ambientEmitter

	frame []byte
	lum   []float32

	lastUpdate  time.Time
	lastReport  time.Time
	simTime     float64
	splatsTotal int64

	pointerDown  bool
	lastPointerU float64
	lastPointerV float64
	lastInput    time.Time

	viewW, viewH int
}

// simParams maps the loaded configuration onto the solver's tunables.
func simParams(cfg *config.Config) fluid.Params {
	sc := cfg.Simulation
	return fluid.Params{
		SimRes:              sc.SimResolution,
		DyeRes:              sc.DyeResolution,
		DensityDissipation:  float32(sc.DensityDissipation),
		VelocityDissipation: float32(sc.VelocityDissipation),
		CurlStrength:        float32(sc.CurlStrength),
		PressureDamping:     float32(sc.PressureDamping),
		PressureIterations:  sc.PressureIterations,
		SplatRadius:         float32(sc.SplatRadius),
		SplatForce:          float32(sc.SplatForce),
		ColorUpdateSpeed:    float32(sc.ColorUpdateSpeed),
		MaxStep:             sc.MaxStep,
		Paused:              sc.Paused,
	}
}

// newGame constructs a fully initialized Game instance.
func newGame(cfg *config.Config, logger *slog.Logger) (*Game, error) {
	seed := *seedFlag
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	sim, err := fluid.New(simParams(cfg), logger)
	if err != nil {
		return nil, err
	}
	sim.Seed(seed)
	sim.SetViewport(cfg.Display.Width, cfg.Display.Height)

	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)
	sim.SetPerf(perf)

	if *openCLFlag {
		if err := sim.EnableOpenCL(*preferFP16Flag); err != nil {
			logger.Warn("OpenCL unavailable, staying on CPU workers", "error", err)
		}
	}

	output, err := telemetry.NewOutputManager(*outputDirFlag)
	if err != nil {
		sim.Close()
		return nil, err
	}
	if err := output.WriteConfig(cfg); err != nil {
		logger.Warn("writing config snapshot", "error", err)
	}

	g := &Game{
		sim:       sim,
		cfg:       cfg,
		log:       logger,
		perf:      perf,
		output:    output,
		lastInput: time.Now(),
	}
	if cfg.Ambient.Enabled && !*noAmbientFlag {
		g.ambient = newAmbientEmitter(sim, cfg.Ambient, cfg.Simulation.SplatForce, seed+1)
	}
	if *monitorAddrFlag != "" {
		g.monitor = newMonitorHub(logger)
		go g.monitor.serve(*monitorAddrFlag)
	}

	sim.SeedSplats()
	logger.Info("solver ready",
		"sim_res", cfg.Simulation.SimResolution,
		"dye_res", cfg.Simulation.DyeResolution,
		"backend", sim.Backend(),
		"seed", seed,
	)
	return g, nil
}

// Update advances the solver by the wall-clock time since the previous
// frame, feeding it pointer strokes and ambient drift first.
func (g *Game) Update() error {
	now := time.Now()
	if g.lastUpdate.IsZero() {
		g.lastUpdate = now
		g.lastReport = now
	}
	dt := now.Sub(g.lastUpdate).Seconds()
	g.lastUpdate = now

	g.handleKeys()
	g.handlePointer(now)
	g.ambient.update(dt, now.Sub(g.lastInput))

	g.perf.StartTick()
	if err := g.sim.Advance(dt); err != nil {
		return err
	}
	g.perf.EndTick()

	if !g.sim.Params().Paused {
		step := dt
		if limit := g.sim.Params().MaxStep; step > limit {
			step = limit
		}
		g.simTime += step
	}

	g.maybeReport(now)
	return nil
}

// handleKeys processes the P pause toggle, Space burst, R reset and D
// overlay hotkeys.
func (g *Game) handleKeys() {
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		paused := !g.sim.Params().Paused
		g.sim.SetPaused(paused)
		g.log.Info("pause toggled", "paused", paused)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.sim.SeedSplats()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.sim.Reset()
		g.sim.SeedSplats()
		g.log.Info("field reset")
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyD) {
		*debugFlag = !*debugFlag
	}
}

// handlePointer turns drag deltas into splat requests. The force scales
// with how far the pointer moved this frame, so fast strokes push harder.
func (g *Game) handlePointer(now time.Time) {
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		g.pointerDown = false
		return
	}
	g.lastInput = now
	if g.viewW <= 0 || g.viewH <= 0 {
		return
	}
	mx, my := ebiten.CursorPosition()
	u := float64(mx) / float64(g.viewW)
	v := float64(my) / float64(g.viewH)
	if g.pointerDown {
		du := u - g.lastPointerU
		dv := v - g.lastPointerV
		if du != 0 || dv != 0 {
			force := float64(g.sim.Params().SplatForce)
			g.sim.EnqueueSplat(
				mgl32.Vec2{float32(u), float32(v)},
				mgl32.Vec2{float32(du * force), float32(dv * force)},
				g.sim.PointerColor(),
			)
			g.splatsTotal++
		}
	}
	g.pointerDown = true
	g.lastPointerU = u
	g.lastPointerV = v
}

// maybeReport emits the periodic stats window to the log, the CSV output
// and any monitor clients.
func (g *Game) maybeReport(now time.Time) {
	window := g.cfg.Telemetry.StatsWindow
	if window <= 0 || now.Sub(g.lastReport).Seconds() < window {
		return
	}
	g.lastReport = now

	stats := g.perf.Stats()
	stats.LogStats()

	rec := telemetry.SimRecord{
		Tick:        int64(g.sim.Tick()),
		SimTime:     g.simTime,
		MeanAbsDiv:  float64(g.sim.MeanAbsDivergence()),
		DyeMass:     float64(g.sim.DyeMass()),
		SplatsTotal: g.splatsTotal,
		Backend:     g.sim.Backend(),
	}
	if err := g.output.WriteTelemetry(rec); err != nil {
		g.log.Warn("writing telemetry", "error", err)
	}
	if err := g.output.WritePerf(stats, rec.Tick); err != nil {
		g.log.Warn("writing perf stats", "error", err)
	}
	g.monitor.broadcast(tickStats{
		Type:        "stats",
		Tick:        rec.Tick,
		SimTime:     rec.SimTime,
		TicksPerSec: stats.TicksPerSecond,
		AvgTickUS:   stats.AvgTickDuration.Microseconds(),
		FPS:         stats.FPS,
		MeanAbsDiv:  rec.MeanAbsDiv,
		DyeMass:     rec.DyeMass,
		Splats:      rec.SplatsTotal,
		Backend:     rec.Backend,
		Paused:      g.sim.Params().Paused,
	})
}

// Close releases the solver and flushes telemetry files.
func (g *Game) Close() {
	if err := g.output.Close(); err != nil {
		g.log.Warn("closing output", "error", err)
	}
	g.sim.Close()
}
