package fluid

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testParams() Params {
	p := DefaultParams()
	p.SimRes = 32
	p.DyeRes = 32
	return p
}

func newTestSim(t *testing.T, p Params) *Sim {
	t.Helper()
	s, err := New(p, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func checkFinite(t *testing.T, name string, data []float32) {
	t.Helper()
	for i, v := range data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			t.Fatalf("%s sample %d is not finite: %v", name, i, v)
		}
	}
}

func snapshot(data []float32) []float32 {
	return append([]float32(nil), data...)
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		option string
		mutate func(*Params)
	}{
		{"zero sim res", "sim_resolution", func(p *Params) { p.SimRes = 0 }},
		{"zero dye res", "dye_resolution", func(p *Params) { p.DyeRes = 0 }},
		{"negative density dissipation", "density_dissipation", func(p *Params) { p.DensityDissipation = -1 }},
		{"negative velocity dissipation", "velocity_dissipation", func(p *Params) { p.VelocityDissipation = -0.5 }},
		{"negative curl strength", "curl_strength", func(p *Params) { p.CurlStrength = -1 }},
		{"damping above one", "pressure_damping", func(p *Params) { p.PressureDamping = 1.5 }},
		{"no pressure iterations", "pressure_iterations", func(p *Params) { p.PressureIterations = 0 }},
		{"zero splat radius", "splat_radius", func(p *Params) { p.SplatRadius = 0 }},
		{"radius above one", "splat_radius", func(p *Params) { p.SplatRadius = 1.5 }},
		{"negative color speed", "color_update_speed", func(p *Params) { p.ColorUpdateSpeed = -1 }},
		{"zero max step", "max_step", func(p *Params) { p.MaxStep = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			if err == nil {
				t.Fatal("Validate accepted invalid params")
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error type = %T, want *ConfigurationError", err)
			}
			if cfgErr.Option != tt.option {
				t.Errorf("Option = %q, want %q", cfgErr.Option, tt.option)
			}
		})
	}

	if err := DefaultParams().Validate(); err != nil {
		t.Errorf("DefaultParams failed validation: %v", err)
	}
}

func TestNew_RejectsInvalidParams(t *testing.T) {
	p := DefaultParams()
	p.SimRes = -1
	s, err := New(p, testLogger())
	if err == nil {
		t.Fatal("New accepted invalid params")
	}
	if s != nil {
		t.Error("sim should be nil on error")
	}
}

func TestSim_ZeroFieldStability(t *testing.T) {
	s := newTestSim(t, testParams())
	for i := 0; i < 3; i++ {
		if err := s.Advance(1.0 / 60); err != nil {
			t.Fatal(err)
		}
	}
	if s.Tick() != 3 {
		t.Errorf("tick = %d, want 3", s.Tick())
	}
	for _, v := range s.VelocityField().Data() {
		if v != 0 {
			t.Fatal("velocity drifted from zero with no input")
		}
	}
	for _, v := range s.DyeField().Data() {
		if v != 0 {
			t.Fatal("dye appeared from nowhere")
		}
	}
}

func TestSim_NegativeDtClamped(t *testing.T) {
	s := newTestSim(t, testParams())
	if err := s.Advance(-5); err != nil {
		t.Fatal(err)
	}
	for _, v := range s.VelocityField().Data() {
		if v != 0 {
			t.Fatal("negative dt moved the field")
		}
	}
}

func TestSim_MaxStepClamp(t *testing.T) {
	// A huge dt must produce the same step as dt equal to the clamp.
	pos := mgl32.Vec2{0.5, 0.5}
	force := mgl32.Vec2{200, -50}
	color := mgl32.Vec3{1, 0.5, 0}

	a := newTestSim(t, testParams())
	a.EnqueueSplat(pos, force, color)
	if err := a.Advance(10); err != nil {
		t.Fatal(err)
	}

	b := newTestSim(t, testParams())
	b.EnqueueSplat(pos, force, color)
	if err := b.Advance(1.0 / 60); err != nil {
		t.Fatal(err)
	}

	va, vb := a.VelocityField().Data(), b.VelocityField().Data()
	for i := range va {
		if va[i] != vb[i] {
			t.Fatalf("velocity sample %d differs: %v vs %v", i, va[i], vb[i])
		}
	}
}

func TestSim_SplatMovesDye(t *testing.T) {
	p := DefaultParams()
	p.SimRes = 64
	p.DyeRes = 64
	s := newTestSim(t, p)

	s.EnqueueSplat(mgl32.Vec2{0.5, 0.5}, mgl32.Vec2{100, 0}, mgl32.Vec3{1, 1, 1})
	if err := s.Advance(1.0 / 60); err != nil {
		t.Fatal(err)
	}
	if s.DyeMass() <= 0 {
		t.Fatal("splat deposited no dye")
	}
	before := dyeCentroidX(s.DyeField())

	for i := 0; i < 30; i++ {
		if err := s.Advance(1.0 / 60); err != nil {
			t.Fatal(err)
		}
	}
	after := dyeCentroidX(s.DyeField())

	if after-before < 0.01 {
		t.Errorf("dye centroid moved %.4f, want a clear rightward drift", after-before)
	}
	if s.Tick() != 31 {
		t.Errorf("tick = %d, want 31", s.Tick())
	}
	checkFinite(t, "velocity", s.VelocityField().Data())
	checkFinite(t, "dye", s.DyeField().Data())
}

// dyeCentroidX reports the red-channel mass centroid in UV space.
func dyeCentroidX(f *Field) float64 {
	var sum, weighted float64
	for y := 0; y < f.Height(); y++ {
		for x := 0; x < f.Width(); x++ {
			v := float64(f.At(x, y, 0))
			u := (float64(x) + 0.5) / float64(f.Width())
			sum += v
			weighted += v * u
		}
	}
	if sum == 0 {
		return 0.5
	}
	return weighted / sum
}

func TestSim_PauseSemantics(t *testing.T) {
	s := newTestSim(t, testParams())
	s.EnqueueSplat(mgl32.Vec2{0.5, 0.5}, mgl32.Vec2{100, 0}, mgl32.Vec3{1, 0, 0})
	if err := s.Advance(1.0 / 60); err != nil {
		t.Fatal(err)
	}
	if s.Tick() != 1 {
		t.Fatalf("tick = %d, want 1", s.Tick())
	}

	s.SetPaused(true)
	velSnap := snapshot(s.VelocityField().Data())
	dyeSnap := snapshot(s.DyeField().Data())
	for i := 0; i < 3; i++ {
		if err := s.Advance(1.0 / 60); err != nil {
			t.Fatal(err)
		}
	}
	if s.Tick() != 1 {
		t.Errorf("tick advanced to %d while paused", s.Tick())
	}
	for i, v := range s.VelocityField().Data() {
		if v != velSnap[i] {
			t.Fatal("velocity changed while paused with no input")
		}
	}
	for i, v := range s.DyeField().Data() {
		if v != dyeSnap[i] {
			t.Fatal("dye changed while paused with no input")
		}
	}

	// Splats still deposit onto the frozen field.
	massBefore := s.DyeMass()
	s.EnqueueSplat(mgl32.Vec2{0.25, 0.25}, mgl32.Vec2{0, 0}, mgl32.Vec3{0, 1, 0})
	if err := s.Advance(1.0 / 60); err != nil {
		t.Fatal(err)
	}
	if s.Tick() != 1 {
		t.Errorf("tick advanced to %d while paused", s.Tick())
	}
	if s.DyeMass() <= massBefore {
		t.Error("paused splat did not deposit dye")
	}

	s.SetPaused(false)
	if err := s.Advance(1.0 / 60); err != nil {
		t.Fatal(err)
	}
	if s.Tick() != 2 {
		t.Errorf("tick = %d after unpausing, want 2", s.Tick())
	}
}

func TestSim_ResolutionChange(t *testing.T) {
	s := newTestSim(t, testParams())
	s.EnqueueSplat(mgl32.Vec2{0.5, 0.5}, mgl32.Vec2{50, 50}, mgl32.Vec3{1, 1, 1})
	if err := s.Advance(1.0 / 60); err != nil {
		t.Fatal(err)
	}
	if s.DyeMass() <= 0 {
		t.Fatal("setup splat deposited nothing")
	}

	// A pending request must survive the reallocation.
	s.EnqueueSplat(mgl32.Vec2{0.5, 0.5}, mgl32.Vec2{50, 50}, mgl32.Vec3{1, 1, 1})
	if err := s.SetResolution(48, 96); err != nil {
		t.Fatal(err)
	}

	if got := s.Params(); got.SimRes != 48 || got.DyeRes != 96 {
		t.Fatalf("params = %d/%d, want 48/96", got.SimRes, got.DyeRes)
	}
	if s.VelocityField().Width() != 48 {
		t.Errorf("velocity width = %d, want 48", s.VelocityField().Width())
	}
	if s.DyeField().Width() != 96 {
		t.Errorf("dye width = %d, want 96", s.DyeField().Width())
	}
	if s.DyeMass() != 0 {
		t.Error("fields not zeroed after resolution change")
	}
	if s.PendingSplats() != 1 {
		t.Errorf("pending splats = %d, want 1", s.PendingSplats())
	}

	if err := s.Advance(1.0 / 60); err != nil {
		t.Fatal(err)
	}
	if s.DyeMass() <= 0 {
		t.Error("pending splat did not land on the new grid")
	}
}

func TestSim_ReconfigureInvalidKeepsOld(t *testing.T) {
	s := newTestSim(t, testParams())
	orig := s.Params()

	bad := orig
	bad.PressureDamping = 2
	err := s.Reconfigure(bad)
	if err == nil {
		t.Fatal("Reconfigure accepted invalid params")
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error type = %T, want *ConfigurationError", err)
	}
	if cfgErr.Option != "pressure_damping" {
		t.Errorf("Option = %q, want pressure_damping", cfgErr.Option)
	}
	if s.Params() != orig {
		t.Error("active params changed after a rejected update")
	}
}

func TestSim_ResetClearsState(t *testing.T) {
	s := newTestSim(t, testParams())
	s.EnqueueSplat(mgl32.Vec2{0.5, 0.5}, mgl32.Vec2{80, 0}, mgl32.Vec3{1, 1, 1})
	if err := s.Advance(1.0 / 60); err != nil {
		t.Fatal(err)
	}
	s.EnqueueSplat(mgl32.Vec2{0.1, 0.1}, mgl32.Vec2{1, 1}, mgl32.Vec3{1, 0, 0})

	s.Reset()
	if s.Tick() != 0 {
		t.Errorf("tick = %d after reset, want 0", s.Tick())
	}
	if s.DyeMass() != 0 {
		t.Error("dye survived reset")
	}
	if s.PendingSplats() != 0 {
		t.Error("pending splats survived reset")
	}
	for _, v := range s.VelocityField().Data() {
		if v != 0 {
			t.Fatal("velocity survived reset")
		}
	}
}

func TestSim_ColorCycle(t *testing.T) {
	s := newTestSim(t, testParams())
	s.Seed(1)
	first := s.PointerColor()

	// The color timer runs even while paused, wrapping after six ticks
	// at speed 10 and 1/60 steps.
	s.SetPaused(true)
	for i := 0; i < 7; i++ {
		if err := s.Advance(1.0 / 60); err != nil {
			t.Fatal(err)
		}
	}
	if s.PointerColor() == first {
		t.Error("pointer color did not re-roll after the timer wrapped")
	}
}

func TestSim_SeedSplatsRange(t *testing.T) {
	s := newTestSim(t, testParams())
	s.Seed(7)
	s.SeedSplats()
	n := s.PendingSplats()
	if n < 5 || n > 24 {
		t.Errorf("seed burst enqueued %d splats, want 5..24", n)
	}
}

func TestSim_BackendReporting(t *testing.T) {
	s := newTestSim(t, testParams())
	if s.Backend() != "cpu" {
		t.Fatalf("backend = %q, want cpu", s.Backend())
	}
	if err := s.EnableOpenCL(true); err != nil {
		if s.Backend() != "cpu" {
			t.Error("backend changed after a failed OpenCL enable")
		}
	} else if !strings.HasPrefix(s.Backend(), "opencl: ") {
		t.Errorf("backend = %q, want an opencl prefix", s.Backend())
	}
}

// One splat, one tick, production-like resolutions: the push shows up
// next to the injection point, nothing leaks to the far side of the
// grid, and the dye patch matches the splat footprint.
func TestSim_SingleSplatTick(t *testing.T) {
	p := DefaultParams()
	p.SimRes = 128
	p.DyeRes = 256
	p.DensityDissipation = 0
	p.VelocityDissipation = 0
	p.CurlStrength = 0
	s := newTestSim(t, p)

	s.EnqueueSplat(mgl32.Vec2{0.5, 0.5}, mgl32.Vec2{100, 0}, mgl32.Vec3{1, 0, 0})
	if err := s.Advance(1.0 / 60.0); err != nil {
		t.Fatal(err)
	}

	vel := s.VelocityField()
	if got := vel.At(66, 64, 0); got <= 10 {
		t.Errorf("velocity right of center = %v, want a strong rightward push", got)
	}
	if got := vel.At(115, 64, 0); absf(got) > 1e-6 {
		t.Errorf("velocity far from the splat = %v, want zero", got)
	}

	dye := s.DyeField()
	if got := dye.At(128, 128, 0); got <= 0.3 {
		t.Errorf("dye at the splat center = %v, want a bright deposit", got)
	}
	if got := dye.At(140, 128, 0); got <= 0.1 {
		t.Errorf("dye one radius out = %v, want part of the patch", got)
	}
	if got := dye.At(166, 128, 0); got > 1e-4 {
		t.Errorf("dye three radii out = %v, want none", got)
	}

	checkFinite(t, "velocity", vel.Data())
	checkFinite(t, "dye", dye.Data())
}
