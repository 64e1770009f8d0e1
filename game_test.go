package main

import (
	"testing"

	"driftink/config"
	"driftink/fluid"
)

// The embedded defaults and the solver's built-in parameters describe the
// same simulation, so a missing config file changes nothing.
func TestSimParams_MatchesSolverDefaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	got := simParams(cfg)
	want := fluid.DefaultParams()
	if got != want {
		t.Errorf("config defaults map to %+v, want %+v", got, want)
	}
}

func TestNewGame_Constructs(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Simulation.SimResolution = 32
	cfg.Simulation.DyeResolution = 64

	g, err := newGame(cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	if g.sim == nil || g.perf == nil {
		t.Fatal("game missing solver or perf collector")
	}
	if g.sim.PendingSplats() == 0 {
		t.Error("initial burst left no pending splats")
	}
	if g.ambient == nil {
		t.Error("ambient emitter missing with drift enabled in config")
	}
	if g.output != nil {
		t.Error("output manager created without -output-dir")
	}
	if g.monitor != nil {
		t.Error("monitor hub created without -monitor")
	}
}
