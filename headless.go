package main

import (
	"log/slog"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"driftink/config"
	"driftink/fluid"
	"driftink/telemetry"
)

// runHeadless drives the solver at a fixed step without a window, feeding
// it a deterministic circular stirrer so successive runs are comparable.
func runHeadless(cfg *config.Config, logger *slog.Logger, sim *fluid.Sim, perf *telemetry.PerfCollector, output *telemetry.OutputManager, ticks int) error {
	dt := cfg.Simulation.MaxStep
	if dt <= 0 {
		dt = 1.0 / 60.0
	}
	reportEvery := int(cfg.Telemetry.StatsWindow / dt)
	if reportEvery < 1 {
		reportEvery = 1
	}

	logger.Info("headless run starting",
		"ticks", ticks,
		"dt", dt,
		"backend", sim.Backend(),
	)

	force := float64(sim.Params().SplatForce) * 0.25
	durations := make([]float64, 0, ticks)
	var simTime float64
	var splats int64

	for i := 0; i < ticks; i++ {
		// The stirrer walks a circle around the grid center and pushes
		// tangentially, which builds a large stable vortex.
		angle := float64(i) * 0.05
		pos := mgl32.Vec2{
			float32(0.5 + 0.25*math.Cos(angle)),
			float32(0.5 + 0.25*math.Sin(angle)),
		}
		push := mgl32.Vec2{
			float32(-math.Sin(angle) * force),
			float32(math.Cos(angle) * force),
		}
		sim.EnqueueSplat(pos, push, sim.PointerColor())
		splats++

		perf.StartTick()
		start := time.Now()
		if err := sim.Advance(dt); err != nil {
			return err
		}
		durations = append(durations, time.Since(start).Seconds())
		perf.EndTick()
		simTime += dt

		if (i+1)%reportEvery == 0 {
			stats := perf.Stats()
			stats.LogStats()
			rec := telemetry.SimRecord{
				Tick:        int64(sim.Tick()),
				SimTime:     simTime,
				MeanAbsDiv:  float64(sim.MeanAbsDivergence()),
				DyeMass:     float64(sim.DyeMass()),
				SplatsTotal: splats,
				Backend:     sim.Backend(),
			}
			if err := output.WriteTelemetry(rec); err != nil {
				logger.Warn("writing telemetry", "error", err)
			}
			if err := output.WritePerf(stats, rec.Tick); err != nil {
				logger.Warn("writing perf stats", "error", err)
			}
		}
	}

	mean, p50, p90, p99 := telemetry.ComputeTickStats(durations)
	logger.Info("headless run complete",
		"ticks", ticks,
		"backend", sim.Backend(),
		"avg_tick_us", mean*1e6,
		"p50_us", p50*1e6,
		"p90_us", p90*1e6,
		"p99_us", p99*1e6,
		"mean_abs_div", sim.MeanAbsDivergence(),
		"dye_mass", sim.DyeMass(),
	)
	return nil
}
