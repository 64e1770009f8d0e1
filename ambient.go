package main

import (
	"math"
	"time"

	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl32"

	"driftink/config"
	"driftink/fluid"
)

// ambientEmitter injects gentle splats along a Perlin-noise wander path
// whenever the pointer has been idle for a while, so the field never
// settles into a static image.
type ambientEmitter struct {
	sim   *fluid.Sim
	noise *perlin.Perlin
	cfg   config.AmbientConfig
	force float32

	t           float64
	accumulator float64
	lastX       float64
	lastY       float64
	hasLast     bool
}

// newAmbientEmitter builds an emitter with its own noise stream.
func newAmbientEmitter(sim *fluid.Sim, cfg config.AmbientConfig, splatForce float64, seed int64) *ambientEmitter {
	return &ambientEmitter{
		sim:   sim,
		noise: perlin.NewPerlin(2, 2, 3, seed),
		cfg:   cfg,
		force: float32(splatForce * cfg.Strength),
	}
}

// update advances the wander path and emits a splat every cfg.Interval
// seconds of idle time. A nil emitter is a no-op.
func (e *ambientEmitter) update(dt float64, idle time.Duration) {
	if e == nil || !e.cfg.Enabled {
		return
	}
	if idle.Seconds() < e.cfg.IdleDelay {
		e.hasLast = false
		return
	}
	e.t += dt * e.cfg.TimeScale
	e.accumulator += dt
	if e.accumulator < e.cfg.Interval {
		return
	}
	e.accumulator -= e.cfg.Interval

	// Two decorrelated noise channels trace a smooth loop around the
	// grid center.
	px := 0.5 + e.cfg.NoiseScale*e.noise.Noise2D(e.t, 0.37)
	py := 0.5 + e.cfg.NoiseScale*e.noise.Noise2D(e.t, 7.91)
	px = clampUnit(px, 0.05, 0.95)
	py = clampUnit(py, 0.05, 0.95)

	if !e.hasLast {
		e.lastX, e.lastY = px, py
		e.hasLast = true
		return
	}
	dx := px - e.lastX
	dy := py - e.lastY
	e.lastX, e.lastY = px, py
	mag := math.Sqrt(dx*dx + dy*dy)
	if mag < 1e-6 {
		return
	}
	fx := float32(dx/mag) * e.force
	fy := float32(dy/mag) * e.force
	e.sim.EnqueueSplat(
		mgl32.Vec2{float32(px), float32(py)},
		mgl32.Vec2{fx, fy},
		e.sim.PointerColor(),
	)
}

// clampUnit constrains v to the [lo, hi] range.
func clampUnit(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
