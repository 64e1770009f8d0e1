package fluid

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// advanceColorTimer accumulates scaled frame time and rolls a fresh
// pointer color whenever the timer wraps past 1. It runs every tick,
// paused or not, so strokes keep cycling hues while the physics is
// frozen.
func (s *Sim) advanceColorTimer(dt float64) {
	if s.params.ColorUpdateSpeed <= 0 {
		return
	}
	s.colorTimer += float32(dt) * s.params.ColorUpdateSpeed
	if s.colorTimer >= 1 {
		s.colorTimer -= float32(math.Floor(float64(s.colorTimer)))
		s.pointerColor = randomColor(s.rng)
	}
}

// PointerColor returns the current default splat payload. Input adapters
// and the ambient policy use it so strokes follow the shared hue cycle.
func (s *Sim) PointerColor() mgl32.Vec3 {
	return s.pointerColor
}

// randomColor picks a fully saturated hue and scales it down to a dye
// level suited to additive deposits.
func randomColor(rng *rand.Rand) mgl32.Vec3 {
	return hsv(rng.Float32(), 1, 1).Mul(0.15)
}

// hsv converts HSV, all components in [0,1], to RGB.
func hsv(h, s, v float32) mgl32.Vec3 {
	i := int(h * 6)
	f := h*6 - float32(i)
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)
	switch i % 6 {
	case 0:
		return mgl32.Vec3{v, t, p}
	case 1:
		return mgl32.Vec3{q, v, p}
	case 2:
		return mgl32.Vec3{p, v, t}
	case 3:
		return mgl32.Vec3{p, q, v}
	case 4:
		return mgl32.Vec3{t, p, v}
	default:
		return mgl32.Vec3{v, p, t}
	}
}
