package fluid

import (
	"math"
	"testing"
)

func TestDissipationFactor(t *testing.T) {
	tests := []struct {
		name string
		dt   float64
		rate float32
		want float64
	}{
		{"zero rate preserves", 1.0 / 60, 0, 1},
		{"zero dt preserves", 0, 5, 1},
		{"unit rate over a second halves", 1, 1, 0.5},
		{"default velocity rate", 0.25, 0.2, 1 / 1.05},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := float64(dissipationFactor(tt.dt, tt.rate))
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("dissipationFactor(%v, %v) = %v, want %v", tt.dt, tt.rate, got, tt.want)
			}
		})
	}

	if dissipationFactor(1, 5) >= dissipationFactor(1, 1) {
		t.Error("higher rate should decay faster")
	}
}

func TestAdvectDye_TransportsDownstream(t *testing.T) {
	p := testParams()
	p.DensityDissipation = 0
	s := newTestSim(t, p)

	// Uniform carrier of 16 texels/s in +x; dt 0.5 moves dye 8 texels.
	vel := s.velocity.Read().Data()
	for i := 0; i < len(vel); i += 2 {
		vel[i] = 16
	}
	s.dye.Read().Set(8, 16, 0, 1)

	s.advectDye(0.5)

	got := s.DyeField()
	if v := got.At(16, 16, 0); v < 0.99 {
		t.Errorf("dye at the downstream cell = %v, want ~1", v)
	}
	if v := got.At(8, 16, 0); v > 0.01 {
		t.Errorf("dye left at the source cell = %v, want ~0", v)
	}
}

func TestAdvectVelocity_UniformFieldIsFixedPoint(t *testing.T) {
	p := testParams()
	p.VelocityDissipation = 0
	s := newTestSim(t, p)

	data := s.velocity.Read().Data()
	for i := 0; i < len(data); i += 2 {
		data[i] = 16
		data[i+1] = 4
	}

	s.advectVelocity(0.5)

	after := s.VelocityField()
	for y := 0; y < after.Height(); y++ {
		for x := 0; x < after.Width(); x++ {
			if after.At(x, y, 0) != 16 || after.At(x, y, 1) != 4 {
				t.Fatalf("uniform flow changed at (%d,%d): (%v, %v)",
					x, y, after.At(x, y, 0), after.At(x, y, 1))
			}
		}
	}
}

func TestAdvectDye_DissipationScalesMass(t *testing.T) {
	p := testParams()
	p.DensityDissipation = 1
	s := newTestSim(t, p)

	dye := s.dye.Read().Data()
	for i := range dye {
		dye[i] = 1
	}
	before := s.DyeMass()

	// Zero velocity: every cell samples itself, only the decay applies.
	s.advectDye(1.0 / 60)

	want := float64(before) * (1 / (1 + 1.0/60))
	got := float64(s.DyeMass())
	if math.Abs(got-want)/want > 1e-3 {
		t.Errorf("mass after one decayed step = %v, want %v", got, want)
	}
}
