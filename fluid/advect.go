package fluid

// dissipationFactor converts a per-second dissipation rate into the decay
// applied after one advection step. Rate 0 maps to exactly 1.
func dissipationFactor(dt float64, rate float32) float32 {
	return float32(1 / (1 + float64(rate)*dt))
}

// advectVelocity transports the velocity field through itself: each cell
// traces backward along its own velocity by dt, samples the field there
// bilinearly, and decays the result. The carrying velocity is read
// directly at the output cell since carrier and quantity share a grid.
func (s *Sim) advectVelocity(dt float64) {
	src := s.velocity.Read()
	dst := s.velocity.Write()
	w, h := src.width, src.height
	tx, ty := 1/float64(w), 1/float64(h)
	decay := dissipationFactor(dt, s.params.VelocityDissipation)
	s.pool.run(h, w, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			v := (float64(y) + 0.5) * ty
			for x := 0; x < w; x++ {
				u := (float64(x) + 0.5) * tx
				base := src.base(x, y)
				su := u - dt*float64(src.data[base])*tx
				sv := v - dt*float64(src.data[base+1])*ty
				dst.data[base] = decay * src.bilinear(su, sv, 0)
				dst.data[base+1] = decay * src.bilinear(su, sv, 1)
			}
		}
	})
	s.velocity.Swap()
}

// advectDye transports dye through the velocity field. The dye grid may
// differ from the simulation grid, so the carrying velocity is sampled
// bilinearly at the dye cell's UV rather than read directly, and the
// backtrace still moves in simulation-texel units.
func (s *Sim) advectDye(dt float64) {
	vel := s.velocity.Read()
	src := s.dye.Read()
	dst := s.dye.Write()
	w, h := src.width, src.height
	tx, ty := 1/float64(w), 1/float64(h)
	vtx, vty := 1/float64(vel.width), 1/float64(vel.height)
	decay := dissipationFactor(dt, s.params.DensityDissipation)
	s.pool.run(h, w, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			v := (float64(y) + 0.5) * ty
			for x := 0; x < w; x++ {
				u := (float64(x) + 0.5) * tx
				su := u - dt*float64(vel.bilinear(u, v, 0))*vtx
				sv := v - dt*float64(vel.bilinear(u, v, 1))*vty
				base := dst.base(x, y)
				dst.data[base] = decay * src.bilinear(su, sv, 0)
				dst.data[base+1] = decay * src.bilinear(su, sv, 1)
				dst.data[base+2] = decay * src.bilinear(su, sv, 2)
			}
		}
	})
	s.dye.Swap()
}
