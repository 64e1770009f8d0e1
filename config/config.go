// Package config provides configuration loading and access for the solver.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all solver and shell configuration parameters.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Display    DisplayConfig    `yaml:"display"`
	Ambient    AmbientConfig    `yaml:"ambient"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds the solver tunables. Option names match the
// ones reported in configuration errors.
type SimulationConfig struct {
	SimResolution       int     `yaml:"sim_resolution"`
	DyeResolution       int     `yaml:"dye_resolution"`
	DensityDissipation  float64 `yaml:"density_dissipation"`  // Dye decay per second (0 = none)
	VelocityDissipation float64 `yaml:"velocity_dissipation"` // Velocity decay per second
	CurlStrength        float64 `yaml:"curl_strength"`        // Vorticity confinement gain
	PressureDamping     float64 `yaml:"pressure_damping"`     // Pressure carry-over factor in [0, 1]
	PressureIterations  int     `yaml:"pressure_iterations"`  // Jacobi relaxation passes per tick
	SplatRadius         float64 `yaml:"splat_radius"`         // Deposit radius in UV units
	SplatForce          float64 `yaml:"splat_force"`          // Pointer delta to velocity scale
	ColorUpdateSpeed    float64 `yaml:"color_update_speed"`   // Pointer color re-rolls per second
	MaxStep             float64 `yaml:"max_step"`             // Upper clamp on dt in seconds
	Paused              bool    `yaml:"paused"`
}

// DisplayConfig holds window and compositor settings.
type DisplayConfig struct {
	Width      int       `yaml:"width"`
	Height     int       `yaml:"height"`
	TargetFPS  int       `yaml:"target_fps"`
	Shading    bool      `yaml:"shading"`    // Pseudo-3D shading on the dye
	Background []float64 `yaml:"background"` // RGB in [0, 1], blended under the dye
}

// AmbientConfig holds the idle drift emitter parameters.
type AmbientConfig struct {
	Enabled    bool    `yaml:"enabled"`
	IdleDelay  float64 `yaml:"idle_delay"`  // Seconds without pointer input before drifting starts
	Interval   float64 `yaml:"interval"`    // Seconds between ambient splats
	NoiseScale float64 `yaml:"noise_scale"` // Half-extent of the wander path around the grid center
	TimeScale  float64 `yaml:"time_scale"`  // Speed the wander path evolves at
	Strength   float64 `yaml:"strength"`    // Force as a fraction of splat_force
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"` // Seconds between stat reports
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Background32 [3]float32 // Display.Background as float32, padded to 3
	Aspect       float64    // Display width over height
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults
// if path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	for i := 0; i < 3 && i < len(c.Display.Background); i++ {
		c.Derived.Background32[i] = float32(c.Display.Background[i])
	}
	if c.Display.Height > 0 {
		c.Derived.Aspect = float64(c.Display.Width) / float64(c.Display.Height)
	} else {
		c.Derived.Aspect = 1
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
