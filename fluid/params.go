package fluid

// Params is the complete tunable surface of a Sim. Both grids are square;
// the dye grid is independent of the simulation grid so visual fidelity
// can exceed simulation cost.
type Params struct {
	SimRes int
	DyeRes int

	// Dissipation rates are per second; 0 preserves the quantity exactly.
	DensityDissipation  float32
	VelocityDissipation float32

	CurlStrength       float32
	PressureDamping    float32
	PressureIterations int

	// SplatRadius is in UV units; force and dye falloff vanish past twice
	// this distance.
	SplatRadius float32
	// SplatForce scales pointer deltas into injected velocity. Input
	// adapters read it; the core applies whatever force arrives in the
	// request.
	SplatForce float32

	ColorUpdateSpeed float32
	MaxStep          float64
	Paused           bool
}

// DefaultParams mirrors config/defaults.yaml.
func DefaultParams() Params {
	return Params{
		SimRes:              128,
		DyeRes:              512,
		DensityDissipation:  1,
		VelocityDissipation: 0.2,
		CurlStrength:        30,
		PressureDamping:     0.8,
		PressureIterations:  20,
		SplatRadius:         0.05,
		SplatForce:          6000,
		ColorUpdateSpeed:    10,
		MaxStep:             1.0 / 60.0,
	}
}

// Validate checks every tunable against its documented range and returns
// the first violation as a *ConfigurationError.
func (p Params) Validate() error {
	if p.SimRes <= 0 {
		return &ConfigurationError{"sim_resolution", p.SimRes, "must be positive"}
	}
	if p.DyeRes <= 0 {
		return &ConfigurationError{"dye_resolution", p.DyeRes, "must be positive"}
	}
	if p.DensityDissipation < 0 {
		return &ConfigurationError{"density_dissipation", p.DensityDissipation, "must be >= 0"}
	}
	if p.VelocityDissipation < 0 {
		return &ConfigurationError{"velocity_dissipation", p.VelocityDissipation, "must be >= 0"}
	}
	if p.CurlStrength < 0 {
		return &ConfigurationError{"curl_strength", p.CurlStrength, "must be >= 0"}
	}
	if p.PressureDamping < 0 || p.PressureDamping > 1 {
		return &ConfigurationError{"pressure_damping", p.PressureDamping, "must be within [0, 1]"}
	}
	if p.PressureIterations < 1 {
		return &ConfigurationError{"pressure_iterations", p.PressureIterations, "must be >= 1"}
	}
	if p.SplatRadius <= 0 || p.SplatRadius > 1 {
		return &ConfigurationError{"splat_radius", p.SplatRadius, "must be within (0, 1]"}
	}
	if p.ColorUpdateSpeed < 0 {
		return &ConfigurationError{"color_update_speed", p.ColorUpdateSpeed, "must be >= 0"}
	}
	if p.MaxStep <= 0 {
		return &ConfigurationError{"max_step", p.MaxStep, "must be positive"}
	}
	return nil
}
