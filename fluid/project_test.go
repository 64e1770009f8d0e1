package fluid

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestComputeDivergence_UniformFlow(t *testing.T) {
	s := newTestSim(t, testParams())
	data := s.velocity.Read().Data()
	for i := 0; i < len(data); i += 2 {
		data[i] = 3
		data[i+1] = 5
	}

	s.computeDivergence()

	div := s.divergence
	for y := 1; y < 31; y++ {
		for x := 1; x < 31; x++ {
			if got := div.At(x, y, 0); got != 0 {
				t.Fatalf("interior divergence at (%d,%d) = %v, want 0", x, y, got)
			}
		}
	}

	// The closed border reflects the center component, so the corner sees
	// 0.5*((3-(-3)) + (5-(-5))).
	if got := div.At(0, 0, 0); got != 8 {
		t.Errorf("corner divergence = %v, want 8", got)
	}
}

func TestDampPressure(t *testing.T) {
	s := newTestSim(t, testParams())
	data := s.pressure.Read().Data()
	for i := range data {
		data[i] = 2
	}

	s.dampPressure()

	for i, v := range s.pressure.Read().Data() {
		if math.Abs(float64(v)-1.6) > 1e-6 {
			t.Fatalf("pressure sample %d = %v after damping, want 1.6", i, v)
		}
	}
}

func TestSubtractGradient_UniformPressureIsNoop(t *testing.T) {
	s := newTestSim(t, testParams())
	vel := s.velocity.Read().Data()
	for i := 0; i < len(vel); i += 2 {
		vel[i] = 7
		vel[i+1] = -2
	}
	press := s.pressure.Read().Data()
	for i := range press {
		press[i] = 3
	}

	s.subtractGradient()

	after := s.VelocityField()
	for y := 0; y < after.Height(); y++ {
		for x := 0; x < after.Width(); x++ {
			if after.At(x, y, 0) != 7 || after.At(x, y, 1) != -2 {
				t.Fatalf("flat pressure changed velocity at (%d,%d)", x, y)
			}
		}
	}
}

func TestProjection_ReducesDivergence(t *testing.T) {
	p := DefaultParams()
	p.SimRes = 64
	p.DyeRes = 64
	s := newTestSim(t, p)

	s.applySplat(Splat{
		Pos:   mgl32.Vec2{0.5, 0.5},
		Force: mgl32.Vec2{500, 300},
		Color: mgl32.Vec3{},
	})
	before := float64(s.MeanAbsDivergence())
	if before <= 0 {
		t.Fatal("splat produced no divergence")
	}

	s.computeDivergence()
	s.dampPressure()
	for i := 0; i < 30; i++ {
		s.jacobiIterate()
	}
	s.subtractGradient()

	after := float64(s.MeanAbsDivergence())
	if after >= before*0.85 {
		t.Errorf("projection left %.5f of %.5f mean divergence", after, before)
	}
	checkFinite(t, "velocity", s.VelocityField().Data())
	checkFinite(t, "pressure", s.pressure.Read().Data())
}

func TestJacobiIterate_ZeroInputsStayZero(t *testing.T) {
	s := newTestSim(t, testParams())
	for i := 0; i < 10; i++ {
		s.jacobiIterate()
	}
	for i, v := range s.pressure.Read().Data() {
		if v != 0 {
			t.Fatalf("pressure sample %d = %v with zero divergence, want 0", i, v)
		}
	}
}

func TestDyeMass_SumsMagnitudes(t *testing.T) {
	s := newTestSim(t, testParams())
	data := s.dye.Read().Data()
	for i := range data {
		if i%2 == 0 {
			data[i] = 1
		} else {
			data[i] = -1
		}
	}
	want := float64(len(data))
	if got := float64(s.DyeMass()); math.Abs(got-want) > want*1e-5 {
		t.Errorf("mass = %v, want %v", got, want)
	}
}
