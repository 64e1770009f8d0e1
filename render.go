package main

import (
	"fmt"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"driftink/fluid"
	"driftink/telemetry"
)

// Draw composites the dye field into an RGBA frame and hands it to Ebiten.
func (g *Game) Draw(screen *ebiten.Image) {
	g.perf.RecordFrame()

	dye := g.sim.DyeField()
	w, h := dye.Width(), dye.Height()
	if len(g.frame) != w*h*4 {
		g.frame = make([]byte, w*h*4)
	}
	if g.cfg.Display.Shading {
		g.compositeShaded(dye, w, h)
	} else {
		g.compositeFlat(dye, w, h)
	}
	screen.WritePixels(g.frame)

	if *debugFlag {
		g.drawDebugOverlay(screen)
	}
}

// Layout reports the logical screen size. Rendering happens at dye
// resolution and Ebiten scales it to the window; the window aspect feeds
// back into the solver so splats stay circular at any window shape.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth > 0 && outsideHeight > 0 {
		g.sim.SetViewport(outsideWidth, outsideHeight)
	}
	dye := g.sim.DyeField()
	g.viewW, g.viewH = dye.Width(), dye.Height()
	return g.viewW, g.viewH
}

// compositeFlat blends the raw dye straight over the background.
func (g *Game) compositeFlat(dye *fluid.Field, w, h int) {
	src := dye.Data()
	for i := 0; i < w*h; i++ {
		g.blendPixel(i, src[i*3], src[i*3+1], src[i*3+2])
	}
}

// compositeShaded lights the dye with a screen-space normal derived from
// neighboring brightness before blending over the background.
func (g *Game) compositeShaded(dye *fluid.Field, w, h int) {
	if len(g.lum) != w*h {
		g.lum = make([]float32, w*h)
	}
	src := dye.Data()
	for i := 0; i < w*h; i++ {
		cr := src[i*3]
		cg := src[i*3+1]
		cb := src[i*3+2]
		g.lum[i] = float32(math.Sqrt(float64(cr*cr + cg*cg + cb*cb)))
	}
	tz := float32(math.Hypot(1/float64(w), 1/float64(h)))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			left := g.lum[y*w+clampCoord(x-1, 0, w-1)]
			right := g.lum[y*w+clampCoord(x+1, 0, w-1)]
			up := g.lum[clampCoord(y-1, 0, h-1)*w+x]
			down := g.lum[clampCoord(y+1, 0, h-1)*w+x]
			dx := right - left
			dy := down - up
			diffuse := tz/float32(math.Sqrt(float64(dx*dx+dy*dy+tz*tz))) + 0.7
			if diffuse > 1 {
				diffuse = 1
			}
			g.blendPixel(i, src[i*3]*diffuse, src[i*3+1]*diffuse, src[i*3+2]*diffuse)
		}
	}
}

// blendPixel writes one composited pixel: dye over the background, with
// the brightest channel standing in for coverage.
func (g *Game) blendPixel(i int, cr, cg, cb float32) {
	bg := g.cfg.Derived.Background32
	a := cr
	if cg > a {
		a = cg
	}
	if cb > a {
		a = cb
	}
	if a > 1 {
		a = 1
	}
	inv := 1 - a
	g.frame[i*4] = clampByte(bg[0]*inv + cr)
	g.frame[i*4+1] = clampByte(bg[1]*inv + cg)
	g.frame[i*4+2] = clampByte(bg[2]*inv + cb)
	g.frame[i*4+3] = 255
}

// clampByte converts a [0,1] float into an 8-bit channel value.
func clampByte(v float32) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v * 255)
}

// clampCoord constrains a grid coordinate to the inclusive [lo, hi] range.
func clampCoord(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// drawDebugOverlay prints solver vitals in the top-left corner.
func (g *Game) drawDebugOverlay(screen *ebiten.Image) {
	fps := ebiten.ActualFPS()
	tps := ebiten.ActualTPS()
	if tps < 0 {
		tps = 0
	}
	state := "running"
	if g.sim.Params().Paused {
		state = "paused"
	}
	p := g.sim.Params()
	stats := g.perf.Stats()
	debugMsg := fmt.Sprintf("FPS: %.1f  TPS: %.1f\nBackend: %s (%s)\nGrids: sim %d  dye %d\nTick: %d  Pending splats: %d\nAvg tick: %dus  pressure %.0f%%  advect %.0f%%\nMean |div|: %.5f\nDye mass: %.1f",
		fps, tps, g.sim.Backend(), state, p.SimRes, p.DyeRes,
		g.sim.Tick(), g.sim.PendingSplats(),
		stats.AvgTickDuration.Microseconds(),
		stats.PhasePct[telemetry.PhasePressure],
		stats.PhasePct[telemetry.PhaseAdvectVel]+stats.PhasePct[telemetry.PhaseAdvectDye],
		g.sim.MeanAbsDivergence(), g.sim.DyeMass())
	ebitenutil.DebugPrint(screen, debugMsg)
}
