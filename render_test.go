package main

import (
	"bytes"
	"testing"

	"driftink/config"
	"driftink/fluid"
)

func TestClampByte(t *testing.T) {
	tests := []struct {
		v    float32
		want byte
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 127},
		{1, 255},
		{2.5, 255},
	}
	for _, tt := range tests {
		if got := clampByte(tt.v); got != tt.want {
			t.Errorf("clampByte(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestClampCoord(t *testing.T) {
	tests := []struct {
		v, lo, hi, want int
	}{
		{-1, 0, 9, 0},
		{0, 0, 9, 0},
		{5, 0, 9, 5},
		{9, 0, 9, 9},
		{12, 0, 9, 9},
	}
	for _, tt := range tests {
		if got := clampCoord(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("clampCoord(%d, %d, %d) = %d, want %d", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestBlendPixel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Derived.Background32 = [3]float32{1, 0, 0}
	g := &Game{cfg: cfg, frame: make([]byte, 8)}

	// Empty dye shows pure background.
	g.blendPixel(0, 0, 0, 0)
	if got := g.frame[:4]; !bytes.Equal(got, []byte{255, 0, 0, 255}) {
		t.Errorf("empty dye pixel = %v, want pure background", got)
	}

	// Saturated dye replaces the background outright.
	g.blendPixel(1, 0, 1, 0)
	if got := g.frame[4:8]; !bytes.Equal(got, []byte{0, 255, 0, 255}) {
		t.Errorf("saturated dye pixel = %v, want [0 255 0 255]", got)
	}

	// Half coverage keeps half the background under the dye.
	g.blendPixel(0, 0, 0.5, 0)
	if got := g.frame[:4]; !bytes.Equal(got, []byte{127, 127, 0, 255}) {
		t.Errorf("half-covered pixel = %v, want [127 127 0 255]", got)
	}
}

func TestCompositeShaded_UniformDyeMatchesFlat(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	p := fluid.DefaultParams()
	p.SimRes = 16
	p.DyeRes = 16
	sim, err := fluid.New(p, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Close()

	// Uniform dye has no brightness gradient, so the lighting term
	// saturates and shading must reproduce the flat composite exactly.
	dye := sim.DyeField()
	data := dye.Data()
	for i := range data {
		data[i] = 0.3
	}
	w, h := dye.Width(), dye.Height()

	g := &Game{sim: sim, cfg: cfg, frame: make([]byte, w*h*4)}
	g.compositeFlat(dye, w, h)
	flat := append([]byte(nil), g.frame...)
	g.compositeShaded(dye, w, h)
	if !bytes.Equal(flat, g.frame) {
		t.Error("shaded composite of uniform dye differs from flat composite")
	}
}
